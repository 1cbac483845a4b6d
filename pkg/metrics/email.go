package metrics

import "github.com/prometheus/client_golang/prometheus"

// EmailMetrics counts outbound transactional email by template kind.
type EmailMetrics struct {
	sent   *prometheus.CounterVec
	failed *prometheus.CounterVec
}

// NewEmailMetrics registers the email counters on the provided registerer.
func NewEmailMetrics(reg prometheus.Registerer) *EmailMetrics {
	if reg == nil {
		return &EmailMetrics{}
	}
	sent := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "luhive",
		Name:      "email_sent_total",
		Help:      "Emails handed to the SMTP relay.",
	}, []string{"kind"})
	failed := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "luhive",
		Name:      "email_failed_total",
		Help:      "Emails that failed to render or send.",
	}, []string{"kind"})
	reg.MustRegister(sent, failed)
	return &EmailMetrics{sent: sent, failed: failed}
}

// IncSent increments the delivered counter for kind.
func (e *EmailMetrics) IncSent(kind string) {
	if e == nil || e.sent == nil {
		return
	}
	e.sent.WithLabelValues(normalizeLabel(kind)).Inc()
}

// IncFailed increments the failure counter for kind.
func (e *EmailMetrics) IncFailed(kind string) {
	if e == nil || e.failed == nil {
		return
	}
	e.failed.WithLabelValues(normalizeLabel(kind)).Inc()
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
