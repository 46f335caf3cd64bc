// Package metrics exposes the service's Prometheus collectors.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// WebhookEventsTotal counts Stripe webhook requests by event type and HTTP status.
	WebhookEventsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "signet",
		Subsystem: "billing",
		Name:      "webhook_events_total",
		Help:      "Total Stripe webhook requests by event type and HTTP status.",
	}, []string{"event_type", "status"})

	// WebhookDuration tracks Stripe webhook processing latency.
	WebhookDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "signet",
		Subsystem: "billing",
		Name:      "webhook_duration_seconds",
		Help:      "Stripe webhook processing duration in seconds.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"event_type"})

	// DocumentsSealedTotal counts documents sealed, by what sealed them.
	DocumentsSealedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "signet",
		Subsystem: "documents",
		Name:      "sealed_total",
		Help:      "Total documents sealed with a final stamped PDF.",
	}, []string{"source"})

	// SignaturesStampedTotal counts signature stamps applied, by kind.
	SignaturesStampedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "signet",
		Subsystem: "documents",
		Name:      "signatures_stamped_total",
		Help:      "Total signature stamps applied to PDFs (drawn image or typed name).",
	}, []string{"kind"})

	// ActiveSocketConnections tracks live document-event WebSocket clients.
	ActiveSocketConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "signet",
		Subsystem: "ws",
		Name:      "active_connections",
		Help:      "Currently connected WebSocket clients.",
	})

	// SigningTokenFailuresTotal counts rejected signing links by reason.
	SigningTokenFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "signet",
		Subsystem: "auth",
		Name:      "signing_token_failures_total",
		Help:      "Signing link rejections by reason.",
	}, []string{"reason"})
)

// Stamp kinds recorded in SignaturesStampedTotal.
const (
	StampKindDrawn = "drawn"
	StampKindTyped = "typed"
)
