// Package mailertest provides an in-memory mailer.Sender for tests.
package mailertest

import (
	"context"
	"sync"

	"github.com/luhive/luhive-backend/pkg/mailer"
)

// Recorder captures every email passed to Send. Err, when set, is returned
// after the email has been recorded.
type Recorder struct {
	mu   sync.Mutex
	sent []mailer.Email
	Err  error
}

func (r *Recorder) Send(_ context.Context, email mailer.Email) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, email)
	return r.Err
}

// Sent returns a copy of the recorded emails.
func (r *Recorder) Sent() []mailer.Email {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]mailer.Email, len(r.sent))
	copy(out, r.sent)
	return out
}

// OfKind returns the recorded emails with the given kind.
func (r *Recorder) OfKind(kind mailer.Kind) []mailer.Email {
	var out []mailer.Email
	for _, e := range r.Sent() {
		if e.Kind() == kind {
			out = append(out, e)
		}
	}
	return out
}

// Recipients lists the recorded recipient addresses in send order.
func (r *Recorder) Recipients() []string {
	var out []string
	for _, e := range r.Sent() {
		addr, _ := e.Recipient()
		out = append(out, addr)
	}
	return out
}
