// Package stripe handles Stripe payment webhooks for the landing-page
// pledge flow.
package stripe

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	stripelib "github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/webhook"

	"github.com/signetapp/signet/internal/metrics"
)

const webhookBodyLimit = 1024 * 1024 // 1 MiB

// WebhookHandler verifies and dispatches incoming Stripe webhook events.
type WebhookHandler struct {
	secret      string
	provisioner *Provisioner
}

type webhookErrorResponse struct {
	Error string `json:"error"`
}

type webhookReceivedResponse struct {
	Received bool `json:"received"`
}

// NewWebhookHandler creates a Stripe webhook HTTP handler.
func NewWebhookHandler(secret string, provisioner *Provisioner) *WebhookHandler {
	return &WebhookHandler{
		secret:      secret,
		provisioner: provisioner,
	}
}

// ServeHTTP verifies the Stripe signature and dispatches the event.
// Events the service does not handle are rejected with 400 so Stripe's
// endpoint configuration surfaces the mismatch instead of silently
// acknowledging types nobody processes.
func (h *WebhookHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	eventType := "unknown"
	status := http.StatusOK
	defer func() {
		metrics.WebhookEventsTotal.WithLabelValues(eventType, strconv.Itoa(status)).Inc()
		metrics.WebhookDuration.WithLabelValues(eventType).Observe(time.Since(start).Seconds())
	}()

	if r.Method != http.MethodPost {
		status = http.StatusMethodNotAllowed
		writeJSON(w, status, webhookErrorResponse{Error: "method not allowed"})
		return
	}
	if strings.TrimSpace(h.secret) == "" {
		status = http.StatusServiceUnavailable
		writeJSON(w, status, webhookErrorResponse{Error: "webhook secret not configured"})
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, webhookBodyLimit)
	payload, err := io.ReadAll(r.Body)
	if err != nil {
		status = http.StatusBadRequest
		writeJSON(w, status, webhookErrorResponse{Error: "failed to read request body"})
		return
	}

	sigHeader := r.Header.Get("Stripe-Signature")
	if strings.TrimSpace(sigHeader) == "" {
		status = http.StatusBadRequest
		writeJSON(w, status, webhookErrorResponse{Error: "missing Stripe signature"})
		return
	}

	event, err := webhook.ConstructEventWithOptions(payload, sigHeader, h.secret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		status = http.StatusBadRequest
		writeJSON(w, status, webhookErrorResponse{Error: "invalid Stripe signature"})
		return
	}
	eventType = string(event.Type)

	if err := h.handleEvent(r, &event); err != nil {
		log.Error().Err(err).
			Str("event_id", event.ID).
			Str("type", string(event.Type)).
			Msg("Stripe webhook processing failed")
		if isUnhandledType(err) {
			status = http.StatusBadRequest
			writeJSON(w, status, webhookErrorResponse{Error: "unhandled event type"})
			return
		}
		status = http.StatusInternalServerError
		writeJSON(w, status, webhookErrorResponse{Error: "processing failed"})
		return
	}

	status = http.StatusOK
	writeJSON(w, status, webhookReceivedResponse{Received: true})
}

type unhandledTypeError struct {
	eventType string
}

func (e unhandledTypeError) Error() string {
	return fmt.Sprintf("unhandled event type %q", e.eventType)
}

func isUnhandledType(err error) bool {
	_, ok := err.(unhandledTypeError)
	return ok
}

func (h *WebhookHandler) handleEvent(r *http.Request, event *stripelib.Event) error {
	switch event.Type {
	case "checkout.session.completed":
		var session CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
			return fmt.Errorf("decode checkout.session: %w", err)
		}
		return h.provisioner.HandlePledgeCheckout(r.Context(), session)

	default:
		return unhandledTypeError{eventType: string(event.Type)}
	}
}

// CheckoutSession is a minimal representation of a Stripe
// checkout.session event.
type CheckoutSession struct {
	ID              string `json:"id"`
	Mode            string `json:"mode"`
	Customer        string `json:"customer"`
	CustomerEmail   string `json:"customer_email"`
	CustomerDetails struct {
		Email string `json:"email"`
	} `json:"customer_details"`
	Metadata map[string]string `json:"metadata"`
}

func writeJSON[T any](w http.ResponseWriter, status int, v T) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Int("status", status).Msg("billing.stripe: encode webhook response")
	}
}
