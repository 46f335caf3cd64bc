package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/signetapp/signet/internal/auth"
	"github.com/signetapp/signet/internal/models"
	"github.com/signetapp/signet/internal/store"
)

const sessionCookieName = "signet_session"

// currentUser resolves the session cookie to a user ID.
func (r *Router) currentUser(req *http.Request) (int64, bool) {
	cookie, err := req.Cookie(sessionCookieName)
	if err != nil || cookie.Value == "" {
		return 0, false
	}
	userID, err := r.sessions.Validate(cookie.Value)
	if err != nil {
		return 0, false
	}
	return userID, true
}

// requireUser writes a 401 when no valid session is present.
func (r *Router) requireUser(w http.ResponseWriter, req *http.Request) (int64, bool) {
	userID, ok := r.currentUser(req)
	if !ok {
		writeErrorResponse(w, http.StatusUnauthorized, "unauthorized", "Authentication required", nil)
	}
	return userID, ok
}

func (r *Router) setSessionCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   strings.HasPrefix(r.config.PublicURL, "https://"),
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(r.config.SessionTTL.Seconds()),
	})
}

func (r *Router) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		MaxAge:   -1,
	})
}

type registerRequest struct {
	Email    string `json:"email"`
	Name     string `json:"name"`
	Password string `json:"password"`
}

func (r *Router) handleRegister(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodPost {
		writeErrorResponse(w, http.StatusMethodNotAllowed, "method_not_allowed", "Method not allowed", nil)
		return
	}

	var body registerRequest
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		writeErrorResponse(w, http.StatusBadRequest, "invalid_request", "Invalid JSON body", nil)
		return
	}

	body.Email = strings.ToLower(strings.TrimSpace(body.Email))
	body.Name = strings.TrimSpace(body.Name)
	if body.Email == "" || !strings.Contains(body.Email, "@") {
		writeErrorResponse(w, http.StatusBadRequest, "invalid_email", "A valid email address is required", nil)
		return
	}
	if body.Name == "" {
		writeErrorResponse(w, http.StatusBadRequest, "invalid_name", "Name is required", nil)
		return
	}
	if err := auth.ValidatePasswordComplexity(body.Password); err != nil {
		writeErrorResponse(w, http.StatusBadRequest, "weak_password", err.Error(), nil)
		return
	}

	hash, err := auth.HashPassword(body.Password)
	if err != nil {
		writeErrorResponse(w, http.StatusInternalServerError, "internal_error",
			sanitizeErrorForClient(err, "Failed to create account"), nil)
		return
	}

	user := &models.User{Email: body.Email, Name: body.Name, PasswordHash: hash}
	if err := r.store.CreateUser(user); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			writeErrorResponse(w, http.StatusConflict, "email_taken", "An account with this email already exists", nil)
			return
		}
		writeErrorResponse(w, http.StatusInternalServerError, "internal_error",
			sanitizeErrorForClient(err, "Failed to create account"), nil)
		return
	}

	token, err := r.sessions.Create(user.ID, req.UserAgent(), clientIP(req))
	if err != nil {
		writeErrorResponse(w, http.StatusInternalServerError, "internal_error",
			sanitizeErrorForClient(err, "Failed to create session"), nil)
		return
	}
	r.setSessionCookie(w, token)

	log.Info().Int64("user_id", user.ID).Msg("Account registered")
	writeJSON(w, http.StatusCreated, user)
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (r *Router) handleLogin(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodPost {
		writeErrorResponse(w, http.StatusMethodNotAllowed, "method_not_allowed", "Method not allowed", nil)
		return
	}

	var body loginRequest
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		writeErrorResponse(w, http.StatusBadRequest, "invalid_request", "Invalid JSON body", nil)
		return
	}

	user, err := r.store.GetUserByEmail(strings.ToLower(strings.TrimSpace(body.Email)))
	if err != nil || !auth.CheckPasswordHash(body.Password, user.PasswordHash) {
		// Identical response for unknown email and wrong password.
		writeErrorResponse(w, http.StatusUnauthorized, auth.ErrInvalidCredentials.Code,
			auth.ErrInvalidCredentials.Message, nil)
		return
	}

	token, err := r.sessions.Create(user.ID, req.UserAgent(), clientIP(req))
	if err != nil {
		writeErrorResponse(w, http.StatusInternalServerError, "internal_error",
			sanitizeErrorForClient(err, "Failed to create session"), nil)
		return
	}
	r.setSessionCookie(w, token)

	log.Info().Int64("user_id", user.ID).Msg("User logged in")
	writeJSON(w, http.StatusOK, user)
}

func (r *Router) handleLogout(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodPost {
		writeErrorResponse(w, http.StatusMethodNotAllowed, "method_not_allowed", "Method not allowed", nil)
		return
	}

	if cookie, err := req.Cookie(sessionCookieName); err == nil && cookie.Value != "" {
		r.sessions.Delete(cookie.Value)
	}
	r.clearSessionCookie(w)
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (r *Router) handleSession(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodGet {
		writeErrorResponse(w, http.StatusMethodNotAllowed, "method_not_allowed", "Method not allowed", nil)
		return
	}

	userID, ok := r.requireUser(w, req)
	if !ok {
		return
	}
	user, err := r.store.GetUserByID(userID)
	if err != nil {
		writeErrorResponse(w, http.StatusUnauthorized, auth.ErrSessionExpired.Code,
			auth.ErrSessionExpired.Message, nil)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func clientIP(req *http.Request) string {
	if fwd := req.Header.Get("X-Forwarded-For"); fwd != "" {
		if idx := strings.Index(fwd, ","); idx > 0 {
			return strings.TrimSpace(fwd[:idx])
		}
		return strings.TrimSpace(fwd)
	}
	host := req.RemoteAddr
	if idx := strings.LastIndex(host, ":"); idx > 0 {
		host = host[:idx]
	}
	return host
}
