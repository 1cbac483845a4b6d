package cron

import (
	"context"
	"fmt"

	"github.com/luhive/luhive-backend/internal/reminders"
	"github.com/luhive/luhive-backend/pkg/logger"
)

type reminderDispatcher interface {
	Run(ctx context.Context) (reminders.DispatchResult, error)
}

type ReminderDispatchJobParams struct {
	Logger     *logger.Logger
	Dispatcher reminderDispatcher
}

// NewReminderDispatchJob runs one reminder dispatch pass per cron cycle.
func NewReminderDispatchJob(params ReminderDispatchJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Dispatcher == nil {
		return nil, fmt.Errorf("reminder dispatcher required")
	}
	return &reminderDispatchJob{logg: params.Logger, dispatcher: params.Dispatcher}, nil
}

type reminderDispatchJob struct {
	logg       *logger.Logger
	dispatcher reminderDispatcher
}

func (j *reminderDispatchJob) Name() string { return "reminder-dispatch" }

func (j *reminderDispatchJob) Run(ctx context.Context) error {
	res, err := j.dispatcher.Run(ctx)
	logCtx := j.logg.WithFields(ctx, map[string]any{
		"enqueued":  res.Enqueued,
		"processed": res.Processed,
		"attempted": res.Attempted,
		"failed":    res.Failed,
	})
	if err != nil {
		return fmt.Errorf("reminder dispatch: %w", err)
	}
	j.logg.Info(logCtx, "cron.reminder_dispatch")
	return nil
}
