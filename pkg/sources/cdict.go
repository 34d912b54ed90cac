package sources

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"time"

	"github.com/go-resty/resty/v2"
	"golang.org/x/time/rate"
)

const DefaultBaseURL = "http://ebook.cdict.info/mobi/"

var (
	ErrTransport = errors.New("transport error")
	// ErrStatus is a non-2xx reply that survived the retries.
	ErrStatus = fmt.Errorf("%w: unexpected status", ErrTransport)
)

var progressKeyPattern = regexp.MustCompile(`progress_key=([a-zA-Z0-9]+)`)

// ExtractProgressKey finds the session token embedded in the upload page.
func ExtractProgressKey(body string) (string, bool) {
	m := progressKeyPattern.FindStringSubmatch(body)
	if m == nil {
		return "", false
	}
	return m[1], true
}

type Options struct {
	BaseURL    string
	Retries    int
	RetryWait  time.Duration
	Timeout    time.Duration
	RateLimit  float64 // requests per second, 0 disables limiting
	HTTPClient *http.Client
}

// CDict talks to ebook.cdict.info. GET endpoints are retried with backoff;
// the upload is sent exactly once.
type CDict struct {
	client  *resty.Client
	upload  *resty.Client
	limiter *rate.Limiter
}

func NewCDict(opts Options) *CDict {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	hc := opts.HTTPClient
	if hc == nil {
		hc = &http.Client{}
	}

	client := resty.NewWithClient(hc).
		SetBaseURL(opts.BaseURL).
		SetLogger(disableLogger{}).
		SetHeader("User-Agent", "kindlize").
		SetRetryCount(opts.Retries).
		SetRetryWaitTime(opts.RetryWait).
		SetRetryMaxWaitTime(8 * opts.RetryWait).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			if err != nil {
				return true
			}
			return r.StatusCode() == http.StatusTooManyRequests || r.StatusCode() >= http.StatusInternalServerError
		})

	upload := resty.NewWithClient(hc).
		SetBaseURL(opts.BaseURL).
		SetLogger(disableLogger{}).
		SetHeader("User-Agent", "kindlize")

	if opts.Timeout > 0 {
		client.SetTimeout(opts.Timeout)
		upload.SetTimeout(opts.Timeout)
	}

	limit := rate.Inf
	if opts.RateLimit > 0 {
		limit = rate.Limit(opts.RateLimit)
	}

	return &CDict{
		client:  client,
		upload:  upload,
		limiter: rate.NewLimiter(limit, 1),
	}
}

func (c *CDict) get(ctx context.Context, path string, params map[string]string) (string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return "", err
	}

	resp, err := c.client.R().
		SetContext(ctx).
		SetQueryParams(params).
		Get(path)
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", fmt.Errorf("%w: GET %s: %v", ErrTransport, path, err)
	}
	if resp.IsError() {
		return "", fmt.Errorf("%w: GET %s: %s", ErrStatus, path, resp.Status())
	}
	return resp.String(), nil
}

func keyParam(key string) map[string]string {
	return map[string]string{"progress_key": key}
}

// ProgressKey fetches the upload page and extracts the session token.
// An empty key with a nil error means the page carried no token.
func (c *CDict) ProgressKey(ctx context.Context) (string, error) {
	body, err := c.get(ctx, "/", nil)
	if err != nil {
		return "", err
	}
	key, _ := ExtractProgressKey(body)
	return key, nil
}

func (c *CDict) Revalidate(ctx context.Context, key string) error {
	_, err := c.get(ctx, "revalid.php", keyParam(key))
	return err
}

// Upload posts the text and cover and returns the raw response body.
func (c *CDict) Upload(ctx context.Context, u Upload) (string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return "", err
	}

	// resty writes plain form fields before file parts, so
	// APC_UPLOAD_PROGRESS precedes the uploads as PHP requires.
	resp, err := c.upload.R().
		SetContext(ctx).
		SetMultipartFormData(map[string]string{
			"APC_UPLOAD_PROGRESS": u.ProgressKey,
			"progress_key":        u.ProgressKey,
			"title":               u.Title,
			"author":              "",
			"font":                "hei",
			"country":             "tw",
			"part":                "0",
			"contents":            "1",
			"transfer":            "USB",
		}).
		SetMultipartFields(
			&resty.MultipartField{
				Param:       "cover_file",
				FileName:    u.CoverName,
				ContentType: "image/jpg",
				Reader:      bytes.NewReader(u.Cover),
			},
			&resty.MultipartField{
				Param:       "txt_file",
				FileName:    u.TextName,
				ContentType: "text/plain",
				Reader:      bytes.NewReader(u.Text),
			},
		).
		Post("target.php")
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", fmt.Errorf("%w: POST target.php: %v", ErrTransport, err)
	}
	if resp.IsError() {
		return "", fmt.Errorf("%w: POST target.php: %s", ErrStatus, resp.Status())
	}
	return resp.String(), nil
}

func (c *CDict) Progress(ctx context.Context, key string) (string, error) {
	return c.get(ctx, "getprogress.php", keyParam(key))
}

func (c *CDict) CheckFile(ctx context.Context, key string) error {
	_, err := c.get(ctx, "chkfile.php", keyParam(key))
	return err
}

func (c *CDict) Recode(ctx context.Context, key, charset string) error {
	_, err := c.get(ctx, "recode_file.php", map[string]string{
		"progress_key": key,
		"code":         charset,
	})
	return err
}

func (c *CDict) Generate(ctx context.Context, key string) error {
	_, err := c.get(ctx, "gen_mobi.php", keyParam(key))
	return err
}

// Download streams the generated file into w.
func (c *CDict) Download(ctx context.Context, key string, w io.Writer) (int64, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return 0, err
	}

	resp, err := c.client.R().
		SetContext(ctx).
		SetQueryParams(keyParam(key)).
		SetDoNotParseResponse(true).
		Get("download.php")
	if err != nil {
		if ctx.Err() != nil {
			return 0, ctx.Err()
		}
		return 0, fmt.Errorf("%w: GET download.php: %v", ErrTransport, err)
	}
	body := resp.RawBody()
	defer body.Close()

	if resp.IsError() {
		return 0, fmt.Errorf("%w: GET download.php: %s", ErrStatus, resp.Status())
	}

	n, err := io.Copy(w, body)
	if err != nil {
		return n, fmt.Errorf("%w: reading download: %v", ErrTransport, err)
	}
	return n, nil
}

type disableLogger struct{}

func (d disableLogger) Errorf(string, ...interface{}) {}
func (d disableLogger) Warnf(string, ...interface{})  {}
func (d disableLogger) Debugf(string, ...interface{}) {}
