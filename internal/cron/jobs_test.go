package cron

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/luhive/luhive-backend/internal/reminders"
	"github.com/luhive/luhive-backend/pkg/logger"
)

func TestVerificationCleanupJobUsesRetentionCutoff(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	repo := &fakeExpiredRepo{deleted: 3}
	job := newVerificationCleanupJob(t, repo)
	job.now = func() time.Time { return now }

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	want := now.Add(-defaultVerificationRetention)
	if !repo.lastCutoff.Equal(want) {
		t.Fatalf("expected cutoff %s, got %s", want, repo.lastCutoff)
	}
	if repo.called != 1 {
		t.Fatalf("expected repo called once, got %d", repo.called)
	}
}

func TestVerificationCleanupJobPropagatesErrors(t *testing.T) {
	job := newVerificationCleanupJob(t, &fakeExpiredRepo{err: errors.New("boom")})
	if err := job.Run(context.Background()); err == nil {
		t.Fatal("expected error")
	}
}

func TestReminderDispatchJob(t *testing.T) {
	logg := logger.New(logger.Options{ServiceName: "test"})
	dispatcher := &fakeDispatcher{result: reminders.DispatchResult{Processed: 2, Attempted: 5, Failed: 1}}
	job, err := NewReminderDispatchJob(ReminderDispatchJobParams{Logger: logg, Dispatcher: dispatcher})
	if err != nil {
		t.Fatalf("NewReminderDispatchJob: %v", err)
	}
	if job.Name() != "reminder-dispatch" {
		t.Fatalf("unexpected job name %q", job.Name())
	}
	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if dispatcher.calls != 1 {
		t.Fatalf("expected one dispatch pass, got %d", dispatcher.calls)
	}

	dispatcher.err = errors.New("db down")
	if err := job.Run(context.Background()); !errors.Is(err, dispatcher.err) {
		t.Fatalf("expected wrapped dispatch error, got %v", err)
	}
}

func TestJobConstructorsRequireDependencies(t *testing.T) {
	logg := logger.New(logger.Options{ServiceName: "test"})
	if _, err := NewReminderDispatchJob(ReminderDispatchJobParams{Logger: logg}); err == nil {
		t.Fatal("expected error without dispatcher")
	}
	if _, err := NewVerificationCleanupJob(VerificationCleanupJobParams{Logger: logg}); err == nil {
		t.Fatal("expected error without repository")
	}
}

func newVerificationCleanupJob(t *testing.T, repo *fakeExpiredRepo) *verificationCleanupJob {
	t.Helper()
	jobIface, err := NewVerificationCleanupJob(VerificationCleanupJobParams{
		Logger:     logger.New(logger.Options{ServiceName: "test"}),
		Repository: repo,
	})
	if err != nil {
		t.Fatalf("NewVerificationCleanupJob: %v", err)
	}
	job, ok := jobIface.(*verificationCleanupJob)
	if !ok {
		t.Fatalf("expected verificationCleanupJob, got %T", jobIface)
	}
	return job
}

type fakeExpiredRepo struct {
	lastCutoff time.Time
	deleted    int64
	err        error
	called     int
}

func (f *fakeExpiredRepo) DeleteExpiredUnverified(_ context.Context, cutoff time.Time) (int64, error) {
	f.called++
	f.lastCutoff = cutoff
	if f.err != nil {
		return 0, f.err
	}
	return f.deleted, nil
}

type fakeDispatcher struct {
	result reminders.DispatchResult
	err    error
	calls  int
}

func (f *fakeDispatcher) Run(context.Context) (reminders.DispatchResult, error) {
	f.calls++
	return f.result, f.err
}
