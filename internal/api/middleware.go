package api

import (
	"bufio"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"runtime/debug"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/signetapp/signet/internal/logging"
)

// APIError is the structured error body every failing endpoint returns.
type APIError struct {
	ErrorMessage string            `json:"error"`
	Code         string            `json:"code,omitempty"`
	StatusCode   int               `json:"status_code"`
	Timestamp    int64             `json:"timestamp"`
	RequestID    string            `json:"request_id,omitempty"`
	Details      map[string]string `json:"details,omitempty"`
}

func (e *APIError) Error() string {
	return e.ErrorMessage
}

// ErrorHandler wraps the router with request IDs, panic recovery,
// request metrics, and 4xx/5xx logging.
func ErrorHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// ServeMux redirects "" to "./"; normalize before it gets the chance.
		if r.URL.Path == "" {
			r.URL.Path = "/"
		}

		// WebSocket upgrades hijack the connection; leave them alone.
		if r.Header.Get("Upgrade") == "websocket" {
			next.ServeHTTP(w, r)
			return
		}

		ctx, requestID := logging.WithRequestID(r.Context(), strings.TrimSpace(r.Header.Get("X-Request-ID")))
		r = r.WithContext(ctx)

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		rw.Header().Set("X-Request-ID", requestID)

		start := time.Now()
		route := normalizeRoute(r.URL.Path)

		defer func() {
			if rec := recover(); rec != nil {
				log.Error().
					Interface("error", rec).
					Str("method", r.Method).
					Str("path", r.URL.Path).
					Str("request_id", requestID).
					Bytes("stack", debug.Stack()).
					Msg("Panic recovered in API handler")
				writeErrorResponse(rw, http.StatusInternalServerError, "internal_error",
					"An unexpected error occurred", nil)
			}

			elapsed := time.Since(start)
			status := rw.StatusCode()
			recordAPIRequest(r.Method, route, status, elapsed)

			if status >= 400 {
				evt := log.Warn()
				if status >= 500 {
					evt = log.Error()
				}
				evt.Str("method", r.Method).
					Str("path", r.URL.Path).
					Int("status", status).
					Dur("elapsed", elapsed).
					Str("request_id", requestID).
					Msg("Request failed")
			}
		}()

		next.ServeHTTP(rw, r)
	})
}

// writeErrorResponse writes the APIError body. The request ID is read back
// from the X-Request-ID header that ErrorHandler stamps on every response.
func writeErrorResponse(w http.ResponseWriter, statusCode int, code, message string, details map[string]string) {
	requestID := w.Header().Get("X-Request-ID")
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	resp := APIError{
		ErrorMessage: message,
		Code:         code,
		StatusCode:   statusCode,
		Timestamp:    time.Now().Unix(),
		RequestID:    requestID,
		Details:      details,
	}
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		log.Error().Err(err).Msg("Failed to encode error response")
	}
}

// sanitizeErrorForClient returns a generic, safe message for an internal
// error. The raw error is logged server-side; the client only sees the
// generic message.
func sanitizeErrorForClient(err error, genericMsg string) string {
	if err != nil {
		log.Error().Err(err).Msg(genericMsg)
	}
	return genericMsg
}

// responseWriter captures the status code for logging and metrics. The
// first WriteHeader wins; handlers that double-write are logged as the
// status the client actually saw.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
	written    bool
}

func (rw *responseWriter) WriteHeader(code int) {
	if rw.written {
		return
	}
	rw.statusCode = code
	rw.written = true
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	if !rw.written {
		rw.WriteHeader(http.StatusOK)
	}
	return rw.ResponseWriter.Write(b)
}

func (rw *responseWriter) StatusCode() int {
	if rw == nil {
		return http.StatusInternalServerError
	}
	return rw.statusCode
}

// Hijack passes through so WebSocket upgrades under the wrapper still work.
func (rw *responseWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hijacker, ok := rw.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("ResponseWriter does not implement http.Hijacker")
	}
	return hijacker.Hijack()
}

func (rw *responseWriter) Flush() {
	if flusher, ok := rw.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}
