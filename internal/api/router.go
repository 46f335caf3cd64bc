// Package api exposes the HTTP surface: account and two-factor auth,
// document management, signing links, the signature cache, the Stripe
// webhook, and the WebSocket event stream.
package api

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/signetapp/signet/internal/auth"
	billingstripe "github.com/signetapp/signet/internal/billing/stripe"
	"github.com/signetapp/signet/internal/config"
	"github.com/signetapp/signet/internal/pdf"
	"github.com/signetapp/signet/internal/sigcache"
	"github.com/signetapp/signet/internal/store"
	"github.com/signetapp/signet/internal/ws"
)

// Version is stamped at build time.
var Version = "dev"

// Deps carries everything the router wires together.
type Deps struct {
	Config    *config.Config
	Store     *store.Store
	Sessions  *auth.SessionStore
	Signing   *auth.SigningTokenIssuer
	SigCache  sigcache.Cache
	Templates *pdf.TemplateSource
	Hub       *ws.Hub
}

// Router handles HTTP routing
type Router struct {
	mux       *http.ServeMux
	config    *config.Config
	store     *store.Store
	sessions  *auth.SessionStore
	signing   *auth.SigningTokenIssuer
	sigCache  sigcache.Cache
	templates *pdf.TemplateSource
	hub       *ws.Hub
	startTime time.Time
}

// NewRouter creates a new router instance
func NewRouter(deps Deps) http.Handler {
	r := &Router{
		mux:       http.NewServeMux(),
		config:    deps.Config,
		store:     deps.Store,
		sessions:  deps.Sessions,
		signing:   deps.Signing,
		sigCache:  deps.SigCache,
		templates: deps.Templates,
		hub:       deps.Hub,
		startTime: time.Now(),
	}

	r.setupRoutes()
	return ErrorHandler(r)
}

// setupRoutes configures all routes
func (r *Router) setupRoutes() {
	webhook := billingstripe.NewWebhookHandler(
		r.config.StripeWebhookSecret,
		billingstripe.NewProvisioner(r.store, r.sigCache, r.templates, r.hub),
	)

	r.mux.HandleFunc("/api/health", r.handleHealth)
	r.mux.HandleFunc("/api/version", r.handleVersion)

	r.mux.HandleFunc("/api/auth/register", r.handleRegister)
	r.mux.HandleFunc("/api/auth/login", r.handleLogin)
	r.mux.HandleFunc("/api/auth/logout", r.handleLogout)
	r.mux.HandleFunc("/api/auth/session", r.handleSession)

	r.mux.HandleFunc("/api/auth/2fa/setup", r.handleTwoFactorSetup)
	r.mux.HandleFunc("/api/auth/2fa/enable", r.handleTwoFactorEnable)
	r.mux.HandleFunc("/api/auth/2fa/disable", r.handleTwoFactorDisable)
	r.mux.HandleFunc("/api/auth/2fa/verify", r.handleTwoFactorVerify)

	r.mux.HandleFunc("/api/documents", func(w http.ResponseWriter, req *http.Request) {
		switch req.Method {
		case http.MethodGet:
			r.handleListDocuments(w, req)
		case http.MethodPost:
			r.handleUploadDocument(w, req)
		default:
			writeErrorResponse(w, http.StatusMethodNotAllowed, "method_not_allowed", "Method not allowed", nil)
		}
	})
	r.mux.HandleFunc("/api/documents/", r.handleDocumentSubroutes)

	r.mux.HandleFunc("/api/sign/", r.handleSigningSubroutes)
	r.mux.HandleFunc("/api/signatures/cache", r.handleCacheSignature)

	r.mux.Handle("/api/billing/webhook", webhook)

	r.mux.HandleFunc("/ws", r.handleWebSocket)
}

// ServeHTTP implements http.Handler
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	if origins := r.config.AllowedOrigins; origins != "" {
		w.Header().Set("Access-Control-Allow-Origin", origins)
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		w.Header().Set("Access-Control-Allow-Credentials", "true")
	}

	if req.Method == http.MethodOptions {
		w.WriteHeader(http.StatusOK)
		return
	}

	if strings.HasPrefix(req.URL.Path, "/api/") || strings.HasPrefix(req.URL.Path, "/ws") {
		r.addSecurityHeaders(w)
	}

	r.mux.ServeHTTP(w, req)
}

func (r *Router) addSecurityHeaders(w http.ResponseWriter) {
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.Header().Set("X-Frame-Options", "DENY")
	w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
}

func (r *Router) handleHealth(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodGet {
		writeErrorResponse(w, http.StatusMethodNotAllowed, "method_not_allowed", "Method not allowed", nil)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now().Unix(),
		"uptime":    time.Since(r.startTime).Seconds(),
	})
}

func (r *Router) handleVersion(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodGet {
		writeErrorResponse(w, http.StatusMethodNotAllowed, "method_not_allowed", "Method not allowed", nil)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"version": Version,
		"runtime": "go",
	})
}

func (r *Router) handleWebSocket(w http.ResponseWriter, req *http.Request) {
	userID, ok := r.currentUser(req)
	if !ok {
		writeErrorResponse(w, http.StatusUnauthorized, "unauthorized", "Authentication required", nil)
		return
	}
	r.hub.HandleWebSocket(w, req, userID)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Int("status", status).Msg("Failed to encode response")
	}
}
