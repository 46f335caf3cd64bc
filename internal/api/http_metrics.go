package api

import (
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "signet",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration observed at the API layer.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"method", "route", "status"},
	)

	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "signet",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled by the API.",
		},
		[]string{"method", "route", "status"},
	)

	httpRequestErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "signet",
			Subsystem: "http",
			Name:      "request_errors_total",
			Help:      "Total number of HTTP errors surfaced to clients.",
		},
		[]string{"method", "route", "status_class"},
	)
)

func recordAPIRequest(method, route string, status int, elapsed time.Duration) {
	code := strconv.Itoa(status)
	httpRequestDuration.WithLabelValues(method, route, code).Observe(elapsed.Seconds())
	httpRequestsTotal.WithLabelValues(method, route, code).Inc()

	switch {
	case status >= 500:
		httpRequestErrors.WithLabelValues(method, route, "server_error").Inc()
	case status >= 400:
		httpRequestErrors.WithLabelValues(method, route, "client_error").Inc()
	}
}

// maxRouteSegments caps how deep a route label can nest; anything deeper
// is noise from probing clients.
const maxRouteSegments = 5

// normalizeRoute keeps metric label cardinality bounded: numeric path
// segments become :id and long opaque segments (signing tokens, cache
// keys) become :token.
func normalizeRoute(path string) string {
	if idx := strings.IndexByte(path, '?'); idx >= 0 {
		path = path[:idx]
	}

	var b strings.Builder
	count := 0
	for _, seg := range strings.Split(path, "/") {
		if seg == "" {
			continue
		}
		if count++; count > maxRouteSegments {
			break
		}
		b.WriteByte('/')
		b.WriteString(normalizeSegment(seg))
	}
	if b.Len() == 0 {
		return "/"
	}
	return b.String()
}

func normalizeSegment(seg string) string {
	if isNumeric(seg) {
		return ":id"
	}
	if len(seg) > 32 {
		return ":token"
	}
	return seg
}

func isNumeric(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
