package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Outcome labels for cron runs.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
	// OutcomeSkipped means another replica held the job lock.
	OutcomeSkipped = "skipped"
)

// CronJobMetrics tracks scheduled job runs. A nil receiver is a no-op.
type CronJobMetrics struct {
	runs        *prometheus.CounterVec
	duration    *prometheus.HistogramVec
	lastSuccess *prometheus.GaugeVec
}

func NewCronJobMetrics(reg prometheus.Registerer) *CronJobMetrics {
	m := &CronJobMetrics{
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "luhive",
			Subsystem: "cron",
			Name:      "job_runs_total",
			Help:      "Cron job cycles by outcome.",
		}, []string{"job", "outcome"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "luhive",
			Subsystem: "cron",
			Name:      "job_duration_seconds",
			Help:      "Wall time of cron jobs that actually ran.",
			Buckets:   []float64{.05, .1, .5, 1, 5, 15, 30, 60, 120, 300},
		}, []string{"job"}),
		lastSuccess: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "luhive",
			Subsystem: "cron",
			Name:      "job_last_success_timestamp_seconds",
			Help:      "Unix time of the last successful run per job.",
		}, []string{"job"}),
	}
	if reg != nil {
		reg.MustRegister(m.runs, m.duration, m.lastSuccess)
	}
	return m
}

// Observe records one cycle. elapsed is ignored for skipped cycles.
func (m *CronJobMetrics) Observe(job, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	job = normalizeLabel(job)
	m.runs.WithLabelValues(job, outcome).Inc()
	if outcome == OutcomeSkipped {
		return
	}
	m.duration.WithLabelValues(job).Observe(elapsed.Seconds())
	if outcome == OutcomeSuccess {
		m.lastSuccess.WithLabelValues(job).SetToCurrentTime()
	}
}
