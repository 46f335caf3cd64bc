package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestWebhookEventsTotalLabels(t *testing.T) {
	before := testutil.ToFloat64(WebhookEventsTotal.WithLabelValues("checkout.session.completed", "200"))
	WebhookEventsTotal.WithLabelValues("checkout.session.completed", "200").Inc()
	after := testutil.ToFloat64(WebhookEventsTotal.WithLabelValues("checkout.session.completed", "200"))
	if after != before+1 {
		t.Fatalf("counter = %v, want %v", after, before+1)
	}
}

func TestStampCounterKinds(t *testing.T) {
	for _, kind := range []string{StampKindDrawn, StampKindTyped} {
		before := testutil.ToFloat64(SignaturesStampedTotal.WithLabelValues(kind))
		SignaturesStampedTotal.WithLabelValues(kind).Inc()
		if got := testutil.ToFloat64(SignaturesStampedTotal.WithLabelValues(kind)); got != before+1 {
			t.Fatalf("kind %q counter = %v, want %v", kind, got, before+1)
		}
	}
}

func TestActiveSocketConnectionsGauge(t *testing.T) {
	ActiveSocketConnections.Set(0)
	ActiveSocketConnections.Inc()
	ActiveSocketConnections.Inc()
	ActiveSocketConnections.Dec()
	if got := testutil.ToFloat64(ActiveSocketConnections); got != 1 {
		t.Fatalf("gauge = %v, want 1", got)
	}
}
