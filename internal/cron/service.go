package cron

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	pkgerrors "github.com/luhive/luhive-backend/pkg/errors"
	"github.com/luhive/luhive-backend/pkg/logger"
	"github.com/luhive/luhive-backend/pkg/metrics"
)

const (
	defaultInterval = 5 * time.Minute
	minLockTTL      = 30 * time.Second
)

type ServiceParams struct {
	Logger   *logger.Logger
	Schedule *Schedule
	Lock     Lock
	Metrics  *metrics.CronJobMetrics
	// Interval applies to entries registered without their own cadence.
	Interval time.Duration
}

// Service runs every scheduled job on its own ticker until the context ends.
type Service struct {
	logg    *logger.Logger
	entries []Entry
	lock    Lock
	metrics *metrics.CronJobMetrics
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Lock == nil {
		return nil, fmt.Errorf("lock required")
	}
	if params.Schedule == nil || len(params.Schedule.entries) == 0 {
		return nil, fmt.Errorf("at least one job required")
	}
	fallback := params.Interval
	if fallback <= 0 {
		fallback = defaultInterval
	}
	entries := params.Schedule.Entries()
	for i := range entries {
		if entries[i].Every <= 0 {
			entries[i].Every = fallback
		}
	}
	return &Service{
		logg:    params.Logger,
		entries: entries,
		lock:    params.Lock,
		metrics: params.Metrics,
	}, nil
}

// Run blocks until ctx is canceled and returns ctx's error.
func (s *Service) Run(ctx context.Context) error {
	group, ctx := errgroup.WithContext(ctx)
	for _, entry := range s.entries {
		group.Go(func() error {
			return s.loop(ctx, entry)
		})
	}
	return group.Wait()
}

func (s *Service) loop(ctx context.Context, entry Entry) error {
	ctx = s.logg.WithFields(ctx, map[string]any{
		"job":   entry.Job.Name(),
		"every": entry.Every.String(),
	})
	s.logg.Info(ctx, "cron.job_scheduled")

	s.tick(ctx, entry)
	ticker := time.NewTicker(entry.Every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.tick(ctx, entry)
		}
	}
}

// tick runs entry once if this replica wins its lock.
func (s *Service) tick(ctx context.Context, entry Entry) {
	name := entry.Job.Name()
	ttl := entry.Every
	if ttl < minLockTTL {
		ttl = minLockTTL
	}

	release, ok, err := s.lock.Acquire(ctx, name, ttl)
	if err != nil {
		s.logg.Error(ctx, "cron.lock_failed", err)
		s.metrics.Observe(name, metrics.OutcomeFailure, 0)
		return
	}
	if !ok {
		s.logg.Debug(ctx, "cron.job_skipped")
		s.metrics.Observe(name, metrics.OutcomeSkipped, 0)
		return
	}
	defer func() {
		if err := release(context.WithoutCancel(ctx)); err != nil {
			s.logg.WarnErr(ctx, "cron.lock_release_failed", err)
		}
	}()

	start := time.Now()
	err = runSafely(ctx, entry.Job)
	elapsed := time.Since(start)
	ctx = s.logg.WithField(ctx, "duration_ms", elapsed.Milliseconds())

	switch {
	case err == nil:
		s.metrics.Observe(name, metrics.OutcomeSuccess, elapsed)
		s.logg.Info(ctx, "cron.job_completed")
	case errors.Is(err, context.Canceled):
		s.logg.Info(ctx, "cron.job_interrupted")
	default:
		s.metrics.Observe(name, metrics.OutcomeFailure, elapsed)
		ctx = s.logg.WithField(ctx, "retryable", pkgerrors.Retryable(err))
		s.logg.Error(ctx, "cron.job_failed", err)
	}
}

// runSafely keeps a panicking job from taking the other schedules down.
func runSafely(ctx context.Context, job Job) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("job %s panicked: %v", job.Name(), rec)
		}
	}()
	return job.Run(ctx)
}
