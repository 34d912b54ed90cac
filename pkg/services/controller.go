package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"path/filepath"
	"time"

	"github.com/kerbaras/kindlize/pkg/config"
	"github.com/kerbaras/kindlize/pkg/data"
	"github.com/kerbaras/kindlize/pkg/integrations"
	"github.com/kerbaras/kindlize/pkg/sources"
)

// Notifier shows a short status message to the user.
type Notifier interface {
	Notify(msg string)
}

// NotifyFunc adapts a function to Notifier.
type NotifyFunc func(msg string)

func (f NotifyFunc) Notify(msg string) { f(msg) }

// History is the part of the repository the controller writes to.
type History interface {
	SaveConversion(c *data.Conversion) error
	MarkEmailed(id string) error
}

type Mailer interface {
	Send(ctx context.Context, to, attachment string) error
}

type ControllerConfig struct {
	LibraryRoot string
	Email       string // recipient, usually a send-to-Kindle address
}

type ConvertOptions struct {
	Format integrations.KindleFormat
	Email  bool
}

// Controller ties a conversion to history, notifications and mail.
type Controller struct {
	converter *Converter
	history   History
	mailer    Mailer
	notifier  Notifier
	cfg       ControllerConfig
}

// NewController accepts nil history and mailer; those steps are skipped.
func NewController(converter *Converter, history History, mailer Mailer, notifier Notifier, cfg ControllerConfig) *Controller {
	if notifier == nil {
		notifier = NotifyFunc(func(string) {})
	}
	return &Controller{
		converter: converter,
		history:   history,
		mailer:    mailer,
		notifier:  notifier,
		cfg:       cfg,
	}
}

// NewControllerFromSettings wires the cdict client, cover processor and
// mailer from a settings snapshot.
func NewControllerFromSettings(s config.Settings, history History, notifier Notifier) *Controller {
	svc := sources.NewCDict(sources.Options{
		BaseURL:   s.Service.BaseURL,
		Retries:   s.Service.Retries,
		RetryWait: s.Service.RetryWait,
		Timeout:   s.Service.Timeout,
		RateLimit: s.Service.RateLimit,
	})

	policy := DefaultPolicy()
	if s.Service.MaxPolls > 0 {
		policy.MaxPolls = s.Service.MaxPolls
	}
	if s.Service.PollInterval > 0 {
		policy.PollInterval = s.Service.PollInterval
	}
	if s.SourceCharset != "" {
		policy.SourceCharset = s.SourceCharset
	}

	converter := NewConverter(svc, integrations.NewCoverProcessorForDevice(s.Device), policy)

	var mailer Mailer
	if s.SMTP.Username != "" && s.SMTP.Password != "" {
		mailer = integrations.NewMailer(integrations.MailConfig{
			Host:     s.SMTP.Host,
			Port:     s.SMTP.Port,
			Username: s.SMTP.Username,
			Password: s.SMTP.Password,
		})
	}

	return NewController(converter, history, mailer, notifier, ControllerConfig{
		LibraryRoot: s.LibraryRoot,
		Email:       s.Email,
	})
}

func (c *Controller) Converter() *Converter {
	return c.converter
}

// MailConfigured reports whether ConvertAndSend can email results.
func (c *Controller) MailConfigured() bool {
	return c.mailer != nil && c.cfg.Email != ""
}

// Request builds the conversion request for an item of a novel.
func (c *Controller) Request(novel data.Novel, item data.TextItem, format integrations.KindleFormat) Request {
	dir := filepath.Join(c.cfg.LibraryRoot, novel.Folder)
	return Request{
		SourcePath: filepath.Join(dir, item.FileName),
		CoverPath:  novel.CoverPath,
		Title:      item.Title,
		OutputPath: OutputPath(dir, item.Title, format),
		Format:     format,
	}
}

// ConvertAndSend converts one item and, when asked and configured, mails
// the result. A failed conversion is never mailed.
func (c *Controller) ConvertAndSend(ctx context.Context, novel data.Novel, item data.TextItem, opts ConvertOptions) (Result, error) {
	if c.cfg.LibraryRoot == "" {
		c.notifier.Notify("Set the library folder in settings first")
		return Result{}, config.ErrNoLibraryRoot
	}
	if opts.Format == "" {
		opts.Format = integrations.FormatMOBI
	}

	req := c.Request(novel, item, opts.Format)
	if opts.Format == integrations.FormatEPUB {
		c.notifier.Notify(fmt.Sprintf("Building %s…", filepath.Base(req.OutputPath)))
	} else {
		c.notifier.Notify(fmt.Sprintf("Uploading %s to ebook.cdict.info…", item.FileName))
	}

	started := time.Now()
	res, err := c.converter.Convert(ctx, req)
	c.record(novel, req, res, err, started)
	if err != nil {
		c.notifier.Notify("Conversion failed: " + describeConversionError(err))
		return res, err
	}

	name := filepath.Base(res.Path)
	if res.Cached {
		c.notifier.Notify("Already converted: " + name)
	} else {
		c.notifier.Notify("Downloaded " + name)
	}

	if !opts.Email {
		return res, nil
	}
	if !c.MailConfigured() {
		c.notifier.Notify("Email is not configured, skipping send")
		return res, integrations.ErrMailNotConfigured
	}

	c.notifier.Notify(fmt.Sprintf("Sending %s to %s…", name, c.cfg.Email))
	if err := c.mailer.Send(ctx, c.cfg.Email, res.Path); err != nil {
		c.notifier.Notify(describeMailError(err))
		return res, err
	}
	c.notifier.Notify("Email sent")

	if c.history != nil && res.JobID != "" {
		if err := c.history.MarkEmailed(res.JobID); err != nil {
			log.Printf("history: failed to mark %s emailed: %v", res.JobID, err)
		}
	}
	return res, nil
}

func (c *Controller) record(novel data.Novel, req Request, res Result, convErr error, started time.Time) {
	if c.history == nil || errors.Is(convErr, ErrJobInFlight) {
		return
	}

	rec := &data.Conversion{
		ID:         res.JobID,
		Novel:      novel.Title,
		Title:      req.Title,
		SourcePath: req.SourcePath,
		OutputPath: req.OutputPath,
		Format:     string(req.Format),
		Status:     "complete",
		StartedAt:  started,
		FinishedAt: time.Now(),
	}
	switch {
	case convErr != nil:
		rec.Status = "failed"
		rec.Error = convErr.Error()
	case res.Cached:
		rec.Status = "cached"
	}

	if err := c.history.SaveConversion(rec); err != nil {
		log.Printf("history: failed to save %s: %v", rec.ID, err)
	}
}

func describeConversionError(err error) string {
	switch {
	case errors.Is(err, ErrJobInFlight):
		return "already converting this item"
	case errors.Is(err, ErrNoProgressKey):
		return "service did not hand out a session"
	case errors.Is(err, ErrUploadRejected):
		return "service rejected the upload"
	case errors.Is(err, ErrPollTimeout):
		return "service timed out"
	case errors.Is(err, context.Canceled):
		return "cancelled"
	case errors.Is(err, ErrTransport):
		return "network error"
	}
	return err.Error()
}

func describeMailError(err error) string {
	switch {
	case errors.Is(err, integrations.ErrMailAuth):
		return "Email failed: SMTP login rejected, check username and password"
	case errors.Is(err, integrations.ErrMailNotConfigured):
		return "Email is not configured, skipping send"
	case errors.Is(err, integrations.ErrMailDelivery):
		return "Email failed: could not deliver"
	}
	return "Email failed: " + err.Error()
}
