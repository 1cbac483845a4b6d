// Package reminders materializes and delivers scheduled event reminders.
package reminders

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/luhive/luhive-backend/internal/audience"
	"github.com/luhive/luhive-backend/internal/events"
	"github.com/luhive/luhive-backend/pkg/db"
	"github.com/luhive/luhive-backend/pkg/db/models"
	"github.com/luhive/luhive-backend/pkg/enums"
	"github.com/luhive/luhive-backend/pkg/logger"
	"github.com/luhive/luhive-backend/pkg/mailer"
)

const (
	defaultBatchSize = 500
	defaultWorkers   = 4
	defaultSendRate  = 2
)

// DispatchResult summarizes one dispatch pass.
type DispatchResult struct {
	Enqueued  int `json:"enqueued"`
	Processed int `json:"processed"`
	Attempted int `json:"attempted"`
	Failed    int `json:"failed"`
}

type reminderRepository interface {
	EnqueueDue(ctx context.Context, now time.Time) (int, error)
	Due(ctx context.Context, now time.Time, limit int) ([]models.EventReminder, error)
	FindEvent(ctx context.Context, id uuid.UUID) (*models.Event, error)
	CommunitySlug(ctx context.Context, communityID uuid.UUID) (string, error)
	MarkSent(ctx context.Context, id uuid.UUID, at time.Time) error
}

type attendeeReader interface {
	EventAttendees(ctx context.Context, eventID uuid.UUID, filter audience.AttendeeFilter) ([]audience.Recipient, error)
}

type DispatcherParams struct {
	Repo      reminderRepository
	Audience  attendeeReader
	Mailer    mailer.Sender
	Logger    *logger.Logger
	BaseURL   string
	BatchSize int
	Workers   int
	// SendRate is the provider cap in emails per second; zero uses the default.
	SendRate  float64
	SendBurst int
}

// Dispatcher runs reminder passes. It is safe to invoke repeatedly; each
// reminder row is delivered in at most one completed pass.
type Dispatcher struct {
	repo      reminderRepository
	audience  attendeeReader
	mail      mailer.Sender
	logg      *logger.Logger
	baseURL   string
	batchSize int
	workers   int
	limiter   *rate.Limiter
	now       func() time.Time
}

func NewDispatcher(params DispatcherParams) (*Dispatcher, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("reminder repository required")
	}
	if params.Audience == nil {
		return nil, fmt.Errorf("audience reader required")
	}
	if params.Mailer == nil {
		return nil, fmt.Errorf("mailer required")
	}
	batch := params.BatchSize
	if batch <= 0 {
		batch = defaultBatchSize
	}
	workers := params.Workers
	if workers <= 0 {
		workers = defaultWorkers
	}
	sendRate := params.SendRate
	if sendRate <= 0 {
		sendRate = defaultSendRate
	}
	burst := params.SendBurst
	if burst <= 0 {
		burst = 1
	}
	return &Dispatcher{
		repo:      params.Repo,
		audience:  params.Audience,
		mail:      params.Mailer,
		logg:      params.Logger,
		baseURL:   strings.TrimRight(params.BaseURL, "/"),
		batchSize: batch,
		workers:   workers,
		limiter:   rate.NewLimiter(rate.Limit(sendRate), burst),
		now:       func() time.Time { return time.Now().UTC() },
	}, nil
}

// Run performs one pass: enqueue, fetch the due batch, deliver, mark sent.
// Per-recipient failures are counted but never abort the pass. A reminder
// whose event or recipients cannot be loaded stays unsent for the next pass,
// and its error is part of the returned one.
func (d *Dispatcher) Run(ctx context.Context) (DispatchResult, error) {
	var result DispatchResult
	now := d.now()

	enqueued, err := d.repo.EnqueueDue(ctx, now)
	if err != nil {
		return result, fmt.Errorf("enqueue reminders: %w", err)
	}
	result.Enqueued = enqueued

	due, err := d.repo.Due(ctx, now, d.batchSize)
	if err != nil {
		return result, fmt.Errorf("load due reminders: %w", err)
	}

	var errs error
	for i := range due {
		reminder := due[i]
		attempted, failed, err := d.deliver(ctx, &reminder)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("reminder %s: %w", reminder.ID, err))
			continue
		}
		result.Processed++
		result.Attempted += attempted
		result.Failed += failed

		if err := d.repo.MarkSent(ctx, reminder.ID, d.now()); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("mark reminder %s sent: %w", reminder.ID, err))
		}
	}

	if d.logg != nil {
		d.logg.Info(d.logg.WithFields(ctx, map[string]any{
			"enqueued":  result.Enqueued,
			"processed": result.Processed,
			"attempted": result.Attempted,
			"failed":    result.Failed,
			"deferred":  len(due) - result.Processed,
		}), "reminder dispatch complete")
	}
	return result, errs
}

// deliver sends one reminder to every approved attendee through the shared
// limiter and returns attempted and failed counts. An error means nothing
// was sent and the reminder must stay due.
func (d *Dispatcher) deliver(ctx context.Context, reminder *models.EventReminder) (int, int, error) {
	ctx = d.withReminder(ctx, reminder)

	event, err := d.repo.FindEvent(ctx, reminder.EventID)
	if err != nil {
		if db.IsNotFound(err) {
			return 0, 0, nil
		}
		d.logError(ctx, "load reminder event failed", err)
		return 0, 0, fmt.Errorf("load event: %w", err)
	}
	if event.Status != enums.EventStatusPublished {
		return 0, 0, nil
	}

	recipients, err := d.audience.EventAttendees(ctx, event.ID, audience.AttendeeFilter{ApprovedOnly: true})
	if err != nil {
		d.logError(ctx, "load reminder recipients failed", err)
		return 0, 0, fmt.Errorf("load recipients: %w", err)
	}
	if len(recipients) == 0 {
		return 0, 0, nil
	}

	details := events.Details(event, d.eventURL(ctx, event))
	body := d.body(reminder, event)

	var (
		mu   sync.Mutex
		errs error
	)
	g, gctx := errgroup.WithContext(context.WithoutCancel(ctx))
	g.SetLimit(d.workers)
	for _, rcpt := range recipients {
		g.Go(func() error {
			if err := d.limiter.Wait(gctx); err != nil {
				mu.Lock()
				errs = multierr.Append(errs, fmt.Errorf("%s: %w", rcpt.Email, err))
				mu.Unlock()
				return nil
			}
			err := d.mail.Send(gctx, mailer.ReminderEmail{
				To:    rcpt.Email,
				Name:  rcpt.Name,
				Body:  body,
				Event: details,
			})
			if err != nil {
				mu.Lock()
				errs = multierr.Append(errs, fmt.Errorf("%s: %w", rcpt.Email, err))
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()

	failed := len(multierr.Errors(errs))
	if failed > 0 {
		d.logError(d.withCounts(ctx, len(recipients), failed), "reminder sends failed", errs)
	}
	return len(recipients), failed, nil
}

func (d *Dispatcher) body(reminder *models.EventReminder, event *models.Event) string {
	if reminder.Message != nil {
		if msg := strings.TrimSpace(*reminder.Message); msg != "" {
			return msg
		}
	}
	return fmt.Sprintf("%s starts %s.", event.Title, events.HumanizeLead(event.StartTime.Sub(d.now())))
}

func (d *Dispatcher) eventURL(ctx context.Context, event *models.Event) string {
	slug, err := d.repo.CommunitySlug(ctx, event.CommunityID)
	if err != nil || slug == "" {
		return d.baseURL
	}
	return events.PublicURL(d.baseURL, slug, event.ID.String())
}

func (d *Dispatcher) withReminder(ctx context.Context, reminder *models.EventReminder) context.Context {
	if d.logg == nil {
		return ctx
	}
	ctx = d.logg.WithEventID(ctx, reminder.EventID.String())
	return d.logg.WithFields(ctx, map[string]any{
		"reminder_id": reminder.ID.String(),
		"send_offset": reminder.SendOffset,
	})
}

func (d *Dispatcher) withCounts(ctx context.Context, attempted, failed int) context.Context {
	if d.logg == nil {
		return ctx
	}
	return d.logg.WithFields(ctx, map[string]any{"attempted": attempted, "failed": failed})
}

func (d *Dispatcher) logError(ctx context.Context, msg string, err error) {
	if d.logg != nil {
		d.logg.Error(ctx, msg, err)
	}
}
