package sources

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCDict(t *testing.T, handler http.HandlerFunc) (*CDict, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	c := NewCDict(Options{
		BaseURL:    server.URL + "/mobi/",
		Retries:    2,
		RetryWait:  time.Millisecond,
		Timeout:    5 * time.Second,
		HTTPClient: server.Client(),
	})
	return c, server
}

func TestExtractProgressKey(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		want   string
		wantOK bool
	}{
		{"in link", `<a href="revalid.php?progress_key=abc123">`, "abc123", true},
		{"in hidden field value", `<input name="x" value="y"> progress_key=ZZ9&foo=1`, "ZZ9", true},
		{"first match wins", `progress_key=one progress_key=two`, "one", true},
		{"absent", `<html>maintenance</html>`, "", false},
		{"empty value", `progress_key=&x=1`, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ExtractProgressKey(tt.body)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCDict_ProgressKey(t *testing.T) {
	c, _ := newTestCDict(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/mobi/", r.URL.Path)
		w.Write([]byte(`<form action="target.php?progress_key=abc123">`))
	})

	key, err := c.ProgressKey(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "abc123", key)
}

func TestCDict_GetEndpoints(t *testing.T) {
	var paths []string
	c, _ := newTestCDict(t, func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.URL.Path+"?"+r.URL.RawQuery)
		assert.Equal(t, "abc123", r.URL.Query().Get("progress_key"))
		w.Write([]byte("ok"))
	})
	ctx := context.Background()

	require.NoError(t, c.Revalidate(ctx, "abc123"))
	body, err := c.Progress(ctx, "abc123")
	require.NoError(t, err)
	assert.Equal(t, "ok", body)
	require.NoError(t, c.CheckFile(ctx, "abc123"))
	require.NoError(t, c.Recode(ctx, "abc123", "UTF-8"))
	require.NoError(t, c.Generate(ctx, "abc123"))

	assert.Equal(t, []string{
		"/mobi/revalid.php?progress_key=abc123",
		"/mobi/getprogress.php?progress_key=abc123",
		"/mobi/chkfile.php?progress_key=abc123",
		"/mobi/recode_file.php?code=UTF-8&progress_key=abc123",
		"/mobi/gen_mobi.php?progress_key=abc123",
	}, paths)
}

func TestCDict_Upload(t *testing.T) {
	c, _ := newTestCDict(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/mobi/target.php", r.URL.Path)
		require.NoError(t, r.ParseMultipartForm(1<<20))

		want := map[string]string{
			"APC_UPLOAD_PROGRESS": "abc123",
			"progress_key":        "abc123",
			"title":               "chapter1",
			"author":              "",
			"font":                "hei",
			"country":             "tw",
			"part":                "0",
			"contents":            "1",
			"transfer":            "USB",
		}
		for k, v := range want {
			assert.Equal(t, []string{v}, r.MultipartForm.Value[k], "field %s", k)
		}

		cover, hdr, err := r.FormFile("cover_file")
		require.NoError(t, err)
		assert.Equal(t, "image/jpg", hdr.Header.Get("Content-Type"))
		coverBytes, _ := io.ReadAll(cover)
		assert.Equal(t, []byte("JPEG"), coverBytes)

		txt, hdr, err := r.FormFile("txt_file")
		require.NoError(t, err)
		assert.Equal(t, "text/plain", hdr.Header.Get("Content-Type"))
		txtBytes, _ := io.ReadAll(txt)
		assert.Equal(t, "第一章", string(txtBytes))

		w.Write([]byte("1"))
	})

	body, err := c.Upload(context.Background(), Upload{
		ProgressKey: "abc123",
		Title:       "chapter1",
		Cover:       []byte("JPEG"),
		CoverName:   "cover.jpg",
		Text:        []byte("第一章"),
		TextName:    "chapter1.txt",
	})
	require.NoError(t, err)
	assert.Equal(t, "1", body)
}

func TestCDict_UploadIsNotRetried(t *testing.T) {
	var calls int32
	c, _ := newTestCDict(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadGateway)
	})

	_, err := c.Upload(context.Background(), Upload{ProgressKey: "k", Title: "t", TextName: "t.txt", CoverName: "cover.jpg"})
	assert.ErrorIs(t, err, ErrStatus)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestCDict_GetRetriesServerErrors(t *testing.T) {
	var calls int32
	c, _ := newTestCDict(t, func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) <= 2 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte("ok"))
	})

	require.NoError(t, c.Revalidate(context.Background(), "k"))
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestCDict_GetExhaustsRetries(t *testing.T) {
	var calls int32
	c, _ := newTestCDict(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusInternalServerError)
	})

	err := c.Generate(context.Background(), "k")
	assert.ErrorIs(t, err, ErrStatus)
	// 1 initial + 2 retries
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestCDict_Download(t *testing.T) {
	payload := []byte{0x00, 'B', 'O', 'O', 'K', 0xff}
	c, _ := newTestCDict(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/mobi/download.php", r.URL.Path)
		w.Header().Set("Content-Type", "application/octet-stream")
		w.Write(payload)
	})

	var buf bytes.Buffer
	n, err := c.Download(context.Background(), "abc123", &buf)
	require.NoError(t, err)
	assert.Equal(t, int64(len(payload)), n)
	assert.Equal(t, payload, buf.Bytes())
}

func TestCDict_ContextCancelled(t *testing.T) {
	c, _ := newTestCDict(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.ProgressKey(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestCDict_ConnectionRefused(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	c := NewCDict(Options{BaseURL: url + "/mobi/", Retries: 1, RetryWait: time.Millisecond})
	_, err := c.ProgressKey(context.Background())
	assert.ErrorIs(t, err, ErrTransport)
}
