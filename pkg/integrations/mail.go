package integrations

import (
	"context"
	"errors"
	"fmt"
	"net/textproto"
	"os"

	"gopkg.in/gomail.v2"
)

const (
	MailFrom    = "Kindlize <kindlize@chrisliu.net>"
	mailSender  = "kindlize@chrisliu.net"
	MailSubject = "Sending ebook from Kindlize app"
	MailBody    = "Sending ebook from Kindlize app"

	DefaultSMTPHost = "in-v3.mailjet.com"
	DefaultSMTPPort = 587
)

var (
	ErrMailNotConfigured = errors.New("mail is not configured")
	ErrMailAuth          = errors.New("mail authentication failed")
	ErrMailDelivery      = errors.New("mail delivery failed")
)

// Dialer opens an authenticated SMTP session. *gomail.Dialer satisfies it.
type Dialer interface {
	Dial() (gomail.SendCloser, error)
}

type MailConfig struct {
	Host     string
	Port     int
	Username string
	Password string
}

// Mailer sends converted books as attachments.
type Mailer struct {
	cfg    MailConfig
	dialer Dialer
}

func NewMailer(cfg MailConfig) *Mailer {
	if cfg.Host == "" {
		cfg.Host = DefaultSMTPHost
	}
	if cfg.Port == 0 {
		cfg.Port = DefaultSMTPPort
	}
	return &Mailer{
		cfg:    cfg,
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
	}
}

// NewMailerWithDialer is used by tests to avoid a real SMTP server.
func NewMailerWithDialer(cfg MailConfig, d Dialer) *Mailer {
	return &Mailer{cfg: cfg, dialer: d}
}

// Send mails attachment to the address. The returned error wraps
// ErrMailAuth when the server rejected the credentials and ErrMailDelivery
// for anything else that went wrong after configuration checks.
func (m *Mailer) Send(ctx context.Context, to, attachment string) error {
	if m.cfg.Username == "" || m.cfg.Password == "" || to == "" {
		return ErrMailNotConfigured
	}
	if _, err := os.Stat(attachment); err != nil {
		return fmt.Errorf("%w: %v", ErrMailDelivery, err)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	msg := gomail.NewMessage()
	msg.SetHeader("From", MailFrom)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", MailSubject)
	msg.SetBody("text/plain", MailBody)
	msg.Attach(attachment)

	s, err := m.dialer.Dial()
	if err != nil {
		if isAuthError(err) {
			return fmt.Errorf("%w: %v", ErrMailAuth, err)
		}
		return fmt.Errorf("%w: %v", ErrMailDelivery, err)
	}
	defer s.Close()

	if err := ctx.Err(); err != nil {
		return err
	}
	// gomail.Send flattens errors into strings, so send directly to keep
	// the SMTP reply code.
	if err := s.Send(mailSender, []string{to}, msg); err != nil {
		if isAuthError(err) {
			return fmt.Errorf("%w: %v", ErrMailAuth, err)
		}
		return fmt.Errorf("%w: %v", ErrMailDelivery, err)
	}
	return nil
}

// isAuthError reports SMTP 53x replies (530 auth required, 534/535
// credentials rejected).
func isAuthError(err error) bool {
	var tpErr *textproto.Error
	if errors.As(err, &tpErr) {
		return tpErr.Code >= 530 && tpErr.Code <= 539
	}
	return false
}
