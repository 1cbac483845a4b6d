package notifications

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/luhive/luhive-backend/pkg/logger"
	"github.com/luhive/luhive-backend/pkg/mailer"
)

// DefaultSpacing keeps bulk sends under the mail provider's per-second cap.
const DefaultSpacing = 600 * time.Millisecond

// Result counts the outcome of one broadcast.
type Result struct {
	Attempted int `json:"attempted"`
	Sent      int `json:"sent"`
	Failed    int `json:"failed"`
}

// Broadcaster fans one message kind out to many recipients sequentially,
// spacing each send through a shared limiter.
type Broadcaster struct {
	sender  mailer.Sender
	limiter *rate.Limiter
	logg    *logger.Logger
	running sync.WaitGroup
}

// NewBroadcaster builds a broadcaster. A non-positive spacing disables pacing.
func NewBroadcaster(sender mailer.Sender, spacing time.Duration, logg *logger.Logger) (*Broadcaster, error) {
	if sender == nil {
		return nil, fmt.Errorf("mail sender required")
	}
	limit := rate.Inf
	if spacing > 0 {
		limit = rate.Every(spacing)
	}
	return &Broadcaster{
		sender:  sender,
		limiter: rate.NewLimiter(limit, 1),
		logg:    logg,
	}, nil
}

// Send delivers every email in order and runs to completion even when the
// caller's context is cancelled. Failures are logged and counted.
func (b *Broadcaster) Send(ctx context.Context, emails []mailer.Email) Result {
	ctx = context.WithoutCancel(ctx)
	var res Result
	for _, email := range emails {
		if email == nil {
			continue
		}
		if err := b.limiter.Wait(ctx); err != nil {
			b.logError(ctx, "broadcast limiter wait failed", err)
		}
		res.Attempted++
		if err := b.sender.Send(ctx, email); err != nil {
			res.Failed++
			addr, _ := email.Recipient()
			b.logError(b.withRecipient(ctx, email.Kind(), addr), "broadcast send failed", err)
			continue
		}
		res.Sent++
	}
	if b.logg != nil && res.Attempted > 0 {
		b.logg.Info(b.logg.WithFields(ctx, map[string]any{
			"attempted": res.Attempted,
			"sent":      res.Sent,
			"failed":    res.Failed,
		}), "broadcast complete")
	}
	return res
}

// Go runs Send in the background and returns immediately. done, when not nil,
// receives the result. Wait blocks on every broadcast started this way.
func (b *Broadcaster) Go(ctx context.Context, emails []mailer.Email, done func(Result)) {
	if len(emails) == 0 {
		if done != nil {
			done(Result{})
		}
		return
	}
	detached := context.WithoutCancel(ctx)
	b.running.Go(func() {
		res := b.Send(detached, emails)
		if done != nil {
			done(res)
		}
	})
}

// Wait returns once background broadcasts have finished, or with ctx's error
// if it ends first.
func (b *Broadcaster) Wait(ctx context.Context) error {
	finished := make(chan struct{})
	go func() {
		b.running.Wait()
		close(finished)
	}()
	select {
	case <-finished:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (b *Broadcaster) withRecipient(ctx context.Context, kind mailer.Kind, addr string) context.Context {
	if b.logg == nil {
		return ctx
	}
	return b.logg.WithFields(ctx, map[string]any{"email_kind": string(kind), "recipient": addr})
}

func (b *Broadcaster) logError(ctx context.Context, msg string, err error) {
	if b.logg != nil {
		b.logg.Error(ctx, msg, err)
	}
}
