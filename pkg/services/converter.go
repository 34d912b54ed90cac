package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/kerbaras/kindlize/pkg/integrations"
	"github.com/kerbaras/kindlize/pkg/sources"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// RecodeCharset is what the service is told the uploaded text is in.
// Sources are always decoded to UTF-8 before upload.
const RecodeCharset = "UTF-8"

var (
	ErrConversionFailed = errors.New("conversion failed")
	ErrNoProgressKey    = fmt.Errorf("%w: service page carried no progress key", ErrConversionFailed)
	ErrUploadRejected   = fmt.Errorf("%w: upload rejected by service", ErrConversionFailed)
	ErrPollTimeout      = fmt.Errorf("%w: service did not finish in time", ErrConversionFailed)
	ErrTransport        = sources.ErrTransport
	ErrJobInFlight      = errors.New("a conversion for this output is already running")
)

type Status string

const (
	StatusNotStarted          Status = "not started"
	StatusAwaitingProgressKey Status = "awaiting progress key"
	StatusUploading           Status = "uploading"
	StatusEncoding            Status = "encoding"
	StatusRecoding            Status = "recoding"
	StatusGenerating          Status = "generating"
	StatusDownloading         Status = "downloading"
	StatusComplete            Status = "complete"
	StatusFailed              Status = "failed"
)

// Terminal reports whether no further transitions follow.
func (s Status) Terminal() bool {
	return s == StatusComplete || s == StatusFailed
}

// Job is one conversion, alive for a single Convert call.
type Job struct {
	ID          string
	SourcePath  string
	CoverPath   string
	Title       string
	OutputPath  string
	Format      integrations.KindleFormat
	ProgressKey string
	Status      Status
}

// ConversionProgress is published on every state transition.
type ConversionProgress struct {
	JobID  string
	Title  string
	Status Status
	Poll   int // poll attempt while waiting on the service
	Error  error
}

type Request struct {
	SourcePath string
	CoverPath  string // empty means use a placeholder cover
	Title      string
	OutputPath string
	Format     integrations.KindleFormat
}

type Result struct {
	JobID  string
	Path   string
	Cached bool // output already existed, nothing was converted
}

// Policy tunes polling and decoding. Retries and timeouts of individual
// requests belong to the service client.
type Policy struct {
	MaxPolls      int
	PollInterval  time.Duration
	SourceCharset string
	// Ready decides from a getprogress.php body whether the service is done.
	Ready func(body string) bool
}

func DefaultPolicy() Policy {
	return Policy{
		MaxPolls:      30,
		PollInterval:  2 * time.Second,
		SourceCharset: "utf-8",
		Ready:         ProgressReady,
	}
}

// ProgressReady treats a numeric body as a percentage. Anything else is
// taken as done, since the service answers with an empty or status page
// once the upload slot is released.
func ProgressReady(body string) bool {
	v, err := strconv.ParseFloat(strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(body), "%")), 64)
	if err != nil {
		return true
	}
	return v >= 100
}

// OutputPath places the converted file next to its source, named after
// the item title.
func OutputPath(dir, title string, format integrations.KindleFormat) string {
	if format == "" {
		format = integrations.FormatMOBI
	}
	return filepath.Join(dir, outputName(title)+format.Ext())
}

// outputName keeps a title that is already a single file name untouched,
// so output lands where earlier runs put it. Anything else is sanitized.
func outputName(title string) string {
	if title != "" && title != "." && title != ".." && !strings.ContainsAny(title, `/\`) {
		return title
	}
	return integrations.SanitizeFilename(title)
}

// CoverSource prepares cover JPEG bytes. *integrations.CoverProcessor
// satisfies it.
type CoverSource interface {
	ProcessFile(path string) ([]byte, error)
	Placeholder() ([]byte, error)
}

// Converter drives the remote conversion protocol, or builds EPUBs locally.
type Converter struct {
	service      sources.Service
	covers       CoverSource
	epub         *integrations.TextEPUB
	policy       Policy
	progressChan chan ConversionProgress
	gate         *Gate
}

// Gate admits one running job per output path. Converters built from
// different settings share one Gate so a rebuild cannot start a duplicate.
type Gate struct {
	mu       sync.Mutex
	inFlight map[string]struct{}
}

func NewGate() *Gate {
	return &Gate{inFlight: make(map[string]struct{})}
}

// Acquire claims path until the returned release func is called.
func (g *Gate) Acquire(path string) (func(), error) {
	key := filepath.Clean(path)

	g.mu.Lock()
	defer g.mu.Unlock()
	if _, busy := g.inFlight[key]; busy {
		return nil, fmt.Errorf("%w: %s", ErrJobInFlight, path)
	}
	g.inFlight[key] = struct{}{}

	return func() {
		g.mu.Lock()
		delete(g.inFlight, key)
		g.mu.Unlock()
	}, nil
}

func NewConverter(service sources.Service, covers CoverSource, policy Policy) *Converter {
	if policy.MaxPolls <= 0 {
		policy.MaxPolls = 1
	}
	if policy.Ready == nil {
		policy.Ready = ProgressReady
	}
	return &Converter{
		service:      service,
		covers:       covers,
		epub:         integrations.NewTextEPUB(),
		policy:       policy,
		progressChan: make(chan ConversionProgress, 100),
		gate:         NewGate(),
	}
}

// UseGate replaces the converter's own gate with a shared one. Call it
// before the first Convert.
func (c *Converter) UseGate(g *Gate) {
	if g != nil {
		c.gate = g
	}
}

// GetProgressChannel returns the channel for receiving conversion updates
func (c *Converter) GetProgressChannel() <-chan ConversionProgress {
	return c.progressChan
}

// Convert runs one job to completion. An existing file at OutputPath is
// returned as is without touching the network.
func (c *Converter) Convert(ctx context.Context, req Request) (Result, error) {
	if req.SourcePath == "" || req.OutputPath == "" {
		return Result{}, fmt.Errorf("source and output paths are required")
	}
	if req.Format == "" {
		req.Format = integrations.FormatMOBI
	}

	job := &Job{
		ID:         uuid.NewString(),
		SourcePath: req.SourcePath,
		CoverPath:  req.CoverPath,
		Title:      req.Title,
		OutputPath: req.OutputPath,
		Format:     req.Format,
		Status:     StatusNotStarted,
	}
	result := Result{JobID: job.ID, Path: job.OutputPath}

	release, err := c.gate.Acquire(job.OutputPath)
	if err != nil {
		return result, err
	}
	defer release()

	if _, err := os.Stat(job.OutputPath); err == nil {
		result.Cached = true
		c.transition(job, StatusComplete, 0, nil)
		return result, nil
	}

	if err := c.run(ctx, job); err != nil {
		c.transition(job, StatusFailed, 0, err)
		return result, err
	}

	c.transition(job, StatusComplete, 0, nil)
	return result, nil
}

func (c *Converter) run(ctx context.Context, job *Job) error {
	text, err := c.readSource(job.SourcePath)
	if err != nil {
		return err
	}
	cover := c.cover(job.CoverPath)

	if job.Format == integrations.FormatEPUB {
		c.transition(job, StatusGenerating, 0, nil)
		return c.writeAtomic(ctx, job.OutputPath, func(f *os.File) error {
			return c.epub.Write(f, job.Title, string(text), cover)
		})
	}
	if c.service == nil {
		return fmt.Errorf("no conversion service configured for %s", job.Format)
	}

	c.transition(job, StatusAwaitingProgressKey, 0, nil)
	key, err := c.service.ProgressKey(ctx)
	if err != nil {
		return fmt.Errorf("fetching progress key: %w", err)
	}
	if key == "" {
		return ErrNoProgressKey
	}
	job.ProgressKey = key

	if err := c.service.Revalidate(ctx, key); err != nil {
		return fmt.Errorf("revalidating progress key: %w", err)
	}

	c.transition(job, StatusUploading, 0, nil)
	body, err := c.service.Upload(ctx, sources.Upload{
		ProgressKey: key,
		Title:       job.Title,
		Cover:       cover,
		CoverName:   "cover.jpg",
		Text:        text,
		TextName:    filepath.Base(job.SourcePath),
	})
	if err != nil {
		return fmt.Errorf("uploading %s: %w", filepath.Base(job.SourcePath), err)
	}
	if strings.TrimSpace(body) == "0" {
		return ErrUploadRejected
	}

	c.transition(job, StatusEncoding, 0, nil)
	if err := c.poll(ctx, job); err != nil {
		return err
	}
	if err := c.service.CheckFile(ctx, key); err != nil {
		return fmt.Errorf("checking uploaded file: %w", err)
	}

	c.transition(job, StatusRecoding, 0, nil)
	if err := c.service.Recode(ctx, key, RecodeCharset); err != nil {
		return fmt.Errorf("recoding: %w", err)
	}

	c.transition(job, StatusGenerating, 0, nil)
	if err := c.service.Generate(ctx, key); err != nil {
		return fmt.Errorf("generating: %w", err)
	}
	if err := c.poll(ctx, job); err != nil {
		return err
	}

	c.transition(job, StatusDownloading, 0, nil)
	return c.writeAtomic(ctx, job.OutputPath, func(f *os.File) error {
		if _, err := c.service.Download(ctx, key, f); err != nil {
			return fmt.Errorf("downloading: %w", err)
		}
		return nil
	})
}

func (c *Converter) poll(ctx context.Context, job *Job) error {
	for attempt := 1; attempt <= c.policy.MaxPolls; attempt++ {
		c.transition(job, job.Status, attempt, nil)

		body, err := c.service.Progress(ctx, job.ProgressKey)
		if err != nil {
			return fmt.Errorf("polling progress: %w", err)
		}
		if c.policy.Ready(body) {
			return nil
		}
		if attempt == c.policy.MaxPolls {
			break
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(c.policy.PollInterval):
		}
	}
	return fmt.Errorf("%w after %d polls while %s", ErrPollTimeout, c.policy.MaxPolls, job.Status)
}

// writeAtomic fills a temp file next to path and renames it into place,
// so a partial file never appears at path.
func (c *Converter) writeAtomic(ctx context.Context, path string, fill func(f *os.File) error) (err error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.part")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmp.Name())
		}
	}()

	if err = fill(tmp); err != nil {
		return err
	}
	if err = ctx.Err(); err != nil {
		return err
	}
	if err = tmp.Sync(); err != nil {
		return fmt.Errorf("failed to sync output: %w", err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("failed to close output: %w", err)
	}
	if err = os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to move output into place: %w", err)
	}
	return nil
}

func (c *Converter) readSource(path string) ([]byte, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read source text: %w", err)
	}
	text, err := DecodeText(raw, c.policy.SourceCharset)
	if err != nil {
		return nil, err
	}
	return text, nil
}

// DecodeText converts raw bytes in the named charset (any WHATWG label) to
// UTF-8. A leading BOM wins over the label; invalid bytes become U+FFFD.
func DecodeText(raw []byte, charset string) ([]byte, error) {
	if charset == "" {
		charset = "utf-8"
	}
	enc, err := htmlindex.Get(charset)
	if err != nil {
		return nil, fmt.Errorf("unknown source charset %q: %w", charset, err)
	}
	out, _, err := transform.Bytes(unicode.BOMOverride(enc.NewDecoder()), raw)
	if err != nil {
		return nil, fmt.Errorf("decoding %s text: %w", charset, err)
	}
	return out, nil
}

func (c *Converter) cover(path string) []byte {
	if c.covers == nil {
		if path == "" {
			return nil
		}
		b, err := os.ReadFile(path)
		if err != nil {
			log.Printf("cover %s unreadable: %v", path, err)
			return nil
		}
		return b
	}

	if path != "" {
		b, err := c.covers.ProcessFile(path)
		if err == nil {
			return b
		}
		// the service takes the file as is, so an undecodable cover
		// is still the user's cover
		raw, rerr := os.ReadFile(path)
		if rerr == nil && len(raw) > 0 {
			log.Printf("cover %s not processed, sending it unchanged: %v", path, err)
			return raw
		}
		log.Printf("cover %s unusable, using placeholder: %v", path, err)
	}
	b, err := c.covers.Placeholder()
	if err != nil {
		log.Printf("placeholder cover failed: %v", err)
		return nil
	}
	return b
}

func (c *Converter) transition(job *Job, status Status, poll int, err error) {
	job.Status = status
	c.sendProgress(ConversionProgress{
		JobID:  job.ID,
		Title:  job.Title,
		Status: status,
		Poll:   poll,
		Error:  err,
	})
}

// sendProgress sends a progress update (non-blocking)
func (c *Converter) sendProgress(progress ConversionProgress) {
	select {
	case c.progressChan <- progress:
	default:
		// Channel full, skip this update
	}
}
