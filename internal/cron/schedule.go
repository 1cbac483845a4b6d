package cron

import (
	"context"
	"time"
)

// Job is one unit of scheduled work run by the cron worker.
type Job interface {
	Name() string
	Run(ctx context.Context) error
}

// Entry pairs a job with how often it runs.
type Entry struct {
	Job   Job
	Every time.Duration
}

// Schedule is the set of jobs the worker owns. Entries keep registration order.
type Schedule struct {
	entries []Entry
}

func NewSchedule() *Schedule {
	return &Schedule{}
}

// Add registers job to run every interval. Nil jobs are ignored and a
// non-positive interval falls back to the service default.
func (s *Schedule) Add(job Job, every time.Duration) *Schedule {
	if job == nil {
		return s
	}
	s.entries = append(s.entries, Entry{Job: job, Every: every})
	return s
}

func (s *Schedule) Entries() []Entry {
	out := make([]Entry, len(s.entries))
	copy(out, s.entries)
	return out
}
