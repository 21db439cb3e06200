package email

import (
	"context"
	"errors"
	"fmt"
	"io"

	"dinner-ticketing/internal/config"
	"dinner-ticketing/internal/logger"

	"gopkg.in/gomail.v2"
)

// Inline is an attachment referenced from the HTML body as cid:<Name>.
type Inline struct {
	Name string
	Data []byte
}

type Message struct {
	To      string
	Subject string
	HTML    string
	Inline  []Inline
}

// Sender delivers one message. Implementations must be safe for concurrent use.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

var ErrNotConfigured = errors.New("smtp is not configured")

// SMTPMailer sends through a plain SMTP relay with gomail.
type SMTPMailer struct {
	dialer *gomail.Dialer
	from   string
	logger *logger.Logger
}

func NewSMTPMailer(cfg config.EmailConfig, log *logger.Logger) *SMTPMailer {
	from := cfg.From
	if from == "" {
		from = cfg.SMTPUsername
	}
	return &SMTPMailer{
		dialer: gomail.NewDialer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUsername, cfg.SMTPPassword),
		from:   from,
		logger: log,
	}
}

func (m *SMTPMailer) Send(ctx context.Context, msg Message) error {
	if m.dialer.Host == "" || m.from == "" {
		return ErrNotConfigured
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	gm := buildMessage(m.from, msg)
	if err := m.dialer.DialAndSend(gm); err != nil {
		m.logger.Error("EMAIL", fmt.Sprintf("Failed to send %q to %s: %v", msg.Subject, msg.To, err))
		return fmt.Errorf("send email to %s: %w", msg.To, err)
	}

	m.logger.Info("EMAIL", fmt.Sprintf("Sent %q to %s", msg.Subject, msg.To))
	return nil
}

func buildMessage(from string, msg Message) *gomail.Message {
	gm := gomail.NewMessage()
	gm.SetHeader("From", from)
	gm.SetHeader("To", msg.To)
	gm.SetHeader("Subject", msg.Subject)
	gm.SetBody("text/html", msg.HTML)

	for _, in := range msg.Inline {
		data := in.Data
		gm.Embed(in.Name, gomail.SetCopyFunc(func(w io.Writer) error {
			_, err := w.Write(data)
			return err
		}))
	}
	return gm
}
