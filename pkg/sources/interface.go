package sources

import (
	"context"
	"io"
)

// Upload is the multipart payload accepted by the conversion service.
type Upload struct {
	ProgressKey string
	Title       string
	Cover       []byte
	CoverName   string
	Text        []byte
	TextName    string
}

// Service is the remote text-to-MOBI converter. Every call after
// ProgressKey is scoped by the key it returned.
type Service interface {
	ProgressKey(ctx context.Context) (string, error)
	Revalidate(ctx context.Context, key string) error
	Upload(ctx context.Context, upload Upload) (string, error)
	Progress(ctx context.Context, key string) (string, error)
	CheckFile(ctx context.Context, key string) error
	Recode(ctx context.Context, key, charset string) error
	Generate(ctx context.Context, key string) error
	Download(ctx context.Context, key string, w io.Writer) (int64, error)
}
