package services

import (
	"context"
	"io"
	"sync"

	"github.com/kerbaras/kindlize/pkg/data"
	"github.com/kerbaras/kindlize/pkg/sources"
)

// mockService implements sources.Service for testing
type mockService struct {
	mu    sync.Mutex
	calls []string

	progressKeyFunc func(ctx context.Context) (string, error)
	uploadFunc      func(ctx context.Context, u sources.Upload) (string, error)
	progressFunc    func(ctx context.Context, key string) (string, error)
	recodeFunc      func(ctx context.Context, key, charset string) error
	downloadFunc    func(ctx context.Context, key string, w io.Writer) (int64, error)
}

func newHappyService() *mockService {
	return &mockService{
		progressKeyFunc: func(ctx context.Context) (string, error) { return "abc123", nil },
		uploadFunc:      func(ctx context.Context, u sources.Upload) (string, error) { return "1", nil },
		progressFunc:    func(ctx context.Context, key string) (string, error) { return "100", nil },
		downloadFunc: func(ctx context.Context, key string, w io.Writer) (int64, error) {
			n, err := w.Write([]byte("X"))
			return int64(n), err
		},
	}
}

func (m *mockService) record(call string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, call)
}

func (m *mockService) Calls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.calls...)
}

func (m *mockService) ProgressKey(ctx context.Context) (string, error) {
	m.record("ProgressKey")
	return m.progressKeyFunc(ctx)
}

func (m *mockService) Revalidate(ctx context.Context, key string) error {
	m.record("Revalidate")
	return nil
}

func (m *mockService) Upload(ctx context.Context, u sources.Upload) (string, error) {
	m.record("Upload")
	return m.uploadFunc(ctx, u)
}

func (m *mockService) Progress(ctx context.Context, key string) (string, error) {
	m.record("Progress")
	return m.progressFunc(ctx, key)
}

func (m *mockService) CheckFile(ctx context.Context, key string) error {
	m.record("CheckFile")
	return nil
}

func (m *mockService) Recode(ctx context.Context, key, charset string) error {
	m.record("Recode")
	if m.recodeFunc != nil {
		return m.recodeFunc(ctx, key, charset)
	}
	return nil
}

func (m *mockService) Generate(ctx context.Context, key string) error {
	m.record("Generate")
	return nil
}

func (m *mockService) Download(ctx context.Context, key string, w io.Writer) (int64, error) {
	m.record("Download")
	return m.downloadFunc(ctx, key, w)
}

// mockHistory implements History for testing
type mockHistory struct {
	mu      sync.Mutex
	saved   []*data.Conversion
	emailed []string
}

func (m *mockHistory) SaveConversion(c *data.Conversion) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saved = append(m.saved, c)
	return nil
}

func (m *mockHistory) MarkEmailed(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.emailed = append(m.emailed, id)
	return nil
}

type mockMailer struct {
	sendFunc func(ctx context.Context, to, attachment string) error
	sent     []string
}

func (m *mockMailer) Send(ctx context.Context, to, attachment string) error {
	m.sent = append(m.sent, to+" "+attachment)
	if m.sendFunc != nil {
		return m.sendFunc(ctx, to, attachment)
	}
	return nil
}

type recordingNotifier struct {
	mu       sync.Mutex
	messages []string
}

func (r *recordingNotifier) Notify(msg string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = append(r.messages, msg)
}

func (r *recordingNotifier) Messages() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.messages...)
}
