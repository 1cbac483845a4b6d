package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
)

func TestEmailMetricsCountByKind(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewEmailMetrics(reg)
	m.IncSent("reminder")
	m.IncSent("reminder")
	m.IncFailed("")

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}
	if got, err := fetchCounterValue(mfs, "luhive_email_sent_total", "kind", "reminder"); err != nil {
		t.Fatalf("fetch sent: %v", err)
	} else if got != 2 {
		t.Fatalf("expected sent=2, got %f", got)
	}
	if got, err := fetchCounterValue(mfs, "luhive_email_failed_total", "kind", "unknown"); err != nil {
		t.Fatalf("fetch failed: %v", err)
	} else if got != 1 {
		t.Fatalf("expected failed=1, got %f", got)
	}
}

func TestNilEmailMetricsAreNoops(t *testing.T) {
	var m *EmailMetrics
	m.IncSent("x")
	m.IncFailed("x")
	NewEmailMetrics(nil).IncSent("x")
}
