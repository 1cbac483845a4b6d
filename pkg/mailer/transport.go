package mailer

import (
	"context"
	"crypto/tls"
	"fmt"
	"strings"

	"gopkg.in/gomail.v2"

	"github.com/luhive/luhive-backend/pkg/config"
	"github.com/luhive/luhive-backend/pkg/logger"
)

// Message is a rendered email ready for delivery.
type Message struct {
	Kind    Kind
	To      string
	ToName  string
	Subject string
	HTML    string
}

// Transport delivers rendered messages.
type Transport interface {
	Deliver(ctx context.Context, msg Message) error
}

type dialer interface {
	DialAndSend(m ...*gomail.Message) error
}

// SMTPTransport sends mail through an SMTP relay.
type SMTPTransport struct {
	dialer   dialer
	from     string
	fromName string
}

// NewSMTPTransport builds a gomail-backed transport from config.
func NewSMTPTransport(cfg config.SMTPConfig) (*SMTPTransport, error) {
	if !cfg.Enabled() {
		return nil, fmt.Errorf("smtp host is required")
	}
	if strings.TrimSpace(cfg.From) == "" {
		return nil, fmt.Errorf("smtp from address is required")
	}
	d := gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password)
	d.TLSConfig = &tls.Config{ServerName: cfg.Host}
	return &SMTPTransport{dialer: d, from: cfg.From, fromName: cfg.FromName}, nil
}

// Deliver implements Transport.
func (t *SMTPTransport) Deliver(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if strings.TrimSpace(msg.To) == "" {
		return fmt.Errorf("recipient is required")
	}
	m := gomail.NewMessage()
	m.SetAddressHeader("From", t.from, t.fromName)
	if msg.ToName != "" {
		m.SetAddressHeader("To", msg.To, msg.ToName)
	} else {
		m.SetHeader("To", msg.To)
	}
	m.SetHeader("Subject", msg.Subject)
	m.SetBody("text/html", msg.HTML)
	if err := t.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("smtp send %s: %w", msg.Kind, err)
	}
	return nil
}

// LogTransport writes messages to the log instead of sending them. Used when
// no SMTP relay is configured.
type LogTransport struct {
	logg *logger.Logger
}

// NewLogTransport returns a transport that only logs.
func NewLogTransport(logg *logger.Logger) *LogTransport {
	return &LogTransport{logg: logg}
}

// Deliver implements Transport.
func (t *LogTransport) Deliver(ctx context.Context, msg Message) error {
	if t.logg != nil {
		ctx = t.logg.WithFields(ctx, map[string]any{
			"email_kind": string(msg.Kind),
			"to":         msg.To,
			"subject":    msg.Subject,
		})
		t.logg.Info(ctx, "smtp disabled; email not sent")
	}
	return nil
}

// NewTransport picks the SMTP transport when configured, else the log transport.
func NewTransport(cfg config.SMTPConfig, logg *logger.Logger) (Transport, error) {
	if !cfg.Enabled() {
		return NewLogTransport(logg), nil
	}
	return NewSMTPTransport(cfg)
}
