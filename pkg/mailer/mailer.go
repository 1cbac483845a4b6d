package mailer

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"html/template"
	"strings"

	"github.com/luhive/luhive-backend/pkg/logger"
	"github.com/luhive/luhive-backend/pkg/metrics"
)

//go:embed templates/*.html
var templateFS embed.FS

// Kind names a transactional email type. It selects the template and labels metrics.
type Kind string

const (
	KindVerification             Kind = "verification"
	KindRegistrationConfirmation Kind = "registration_confirmation"
	KindSubscriptionConfirmation Kind = "subscription_confirmation"
	KindStatusUpdate             Kind = "status_update"
	KindScheduleUpdate           Kind = "schedule_update"
	KindNewEvent                 Kind = "new_event"
	KindReminder                 Kind = "reminder"
	KindWaitlist                 Kind = "waitlist"
	KindJoinNotification         Kind = "join_notification"
	KindCollaborationInvite      Kind = "collaboration_invite"
	KindCollaborationAccepted    Kind = "collaboration_accepted"
	KindCommunityInvite          Kind = "community_invite"
)

// Email is implemented by every typed payload in this package.
type Email interface {
	Kind() Kind
	Recipient() (address, name string)
	Subject() string
}

// Sender is the surface domain services depend on.
type Sender interface {
	Send(ctx context.Context, email Email) error
}

// Renderer turns a typed payload into a deliverable message.
type Renderer interface {
	Render(email Email) (Message, error)
}

// Mailer renders templated emails and hands them to a transport.
type Mailer struct {
	transport Transport
	templates *template.Template
	metrics   *metrics.EmailMetrics
	logg      *logger.Logger
}

// New parses the embedded templates and wires the transport.
func New(transport Transport, emailMetrics *metrics.EmailMetrics, logg *logger.Logger) (*Mailer, error) {
	if transport == nil {
		return nil, fmt.Errorf("mail transport is required")
	}
	tmpl, err := template.ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse email templates: %w", err)
	}
	return &Mailer{
		transport: transport,
		templates: tmpl,
		metrics:   emailMetrics,
		logg:      logg,
	}, nil
}

// Render executes the template for the email kind.
func (m *Mailer) Render(email Email) (Message, error) {
	if email == nil {
		return Message{}, fmt.Errorf("email is required")
	}
	to, name := email.Recipient()
	to = strings.TrimSpace(to)
	if to == "" {
		return Message{}, fmt.Errorf("%s email has no recipient", email.Kind())
	}

	var body bytes.Buffer
	if err := m.templates.ExecuteTemplate(&body, string(email.Kind())+".html", email); err != nil {
		return Message{}, fmt.Errorf("render %s email: %w", email.Kind(), err)
	}
	return Message{
		Kind:    email.Kind(),
		To:      to,
		ToName:  name,
		Subject: email.Subject(),
		HTML:    body.String(),
	}, nil
}

// Send renders and delivers a single email.
func (m *Mailer) Send(ctx context.Context, email Email) error {
	msg, err := m.Render(email)
	if err != nil {
		m.metrics.IncFailed(kindOf(email))
		return err
	}
	return m.Deliver(ctx, msg)
}

// Deliver hands an already rendered message to the transport.
func (m *Mailer) Deliver(ctx context.Context, msg Message) error {
	if err := m.transport.Deliver(ctx, msg); err != nil {
		m.metrics.IncFailed(string(msg.Kind))
		return err
	}
	m.metrics.IncSent(string(msg.Kind))
	return nil
}

func kindOf(email Email) string {
	if email == nil {
		return ""
	}
	return string(email.Kind())
}
