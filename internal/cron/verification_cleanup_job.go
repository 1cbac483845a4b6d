package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/luhive/luhive-backend/pkg/logger"
)

const defaultVerificationRetention = 7 * 24 * time.Hour

type VerificationCleanupJobParams struct {
	Logger     *logger.Logger
	Repository expiredRegistrationsRepo
	Retention  time.Duration
}

type expiredRegistrationsRepo interface {
	DeleteExpiredUnverified(ctx context.Context, cutoff time.Time) (int64, error)
}

// NewVerificationCleanupJob removes anonymous registrations whose verification
// token expired more than Retention ago without being used.
func NewVerificationCleanupJob(params VerificationCleanupJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Repository == nil {
		return nil, fmt.Errorf("registrations repository required")
	}
	retention := params.Retention
	if retention <= 0 {
		retention = defaultVerificationRetention
	}
	return &verificationCleanupJob{
		logg:      params.Logger,
		repo:      params.Repository,
		retention: retention,
		now:       time.Now,
	}, nil
}

type verificationCleanupJob struct {
	logg      *logger.Logger
	repo      expiredRegistrationsRepo
	retention time.Duration
	now       func() time.Time
}

func (j *verificationCleanupJob) Name() string { return "verification-cleanup" }

func (j *verificationCleanupJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC().Add(-j.retention)
	deleted, err := j.repo.DeleteExpiredUnverified(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("verification cleanup: %w", err)
	}
	logCtx := j.logg.WithFields(ctx, map[string]any{
		"cutoff":       cutoff,
		"retention":    j.retention.String(),
		"rows_deleted": deleted,
	})
	j.logg.Info(logCtx, "cron.verification_cleanup")
	return nil
}
