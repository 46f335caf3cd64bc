package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/signetapp/signet/internal/auth"
)

type twoFactorTokenRequest struct {
	Token string `json:"token"`
}

// handleTwoFactorSetup generates a fresh TOTP secret and backup codes.
// Nothing is persisted until the user confirms a token via enable, so an
// abandoned setup leaves the account untouched.
func (r *Router) handleTwoFactorSetup(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodPost {
		writeErrorResponse(w, http.StatusMethodNotAllowed, "method_not_allowed", "Method not allowed", nil)
		return
	}
	userID, ok := r.requireUser(w, req)
	if !ok {
		return
	}
	user, err := r.store.GetUserByID(userID)
	if err != nil {
		writeErrorResponse(w, http.StatusInternalServerError, "internal_error",
			sanitizeErrorForClient(err, "Failed to load account"), nil)
		return
	}
	if user.TwoFactorEnabled {
		writeErrorResponse(w, http.StatusConflict, auth.ErrTwoFactorAlreadyEnabled.Code,
			auth.ErrTwoFactorAlreadyEnabled.Message, nil)
		return
	}

	setup, err := auth.GenerateTwoFactorSetup(user.Email)
	if err != nil {
		writeErrorResponse(w, http.StatusInternalServerError, "internal_error",
			sanitizeErrorForClient(err, "Failed to generate two-factor setup"), nil)
		return
	}

	// The secret rides back on the enable call; hashes are only written
	// once a valid token proves the authenticator works.
	writeJSON(w, http.StatusOK, setup)
}

type twoFactorEnableRequest struct {
	Secret      string   `json:"secret"`
	Token       string   `json:"token"`
	BackupCodes []string `json:"backupCodes"`
}

func (r *Router) handleTwoFactorEnable(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodPost {
		writeErrorResponse(w, http.StatusMethodNotAllowed, "method_not_allowed", "Method not allowed", nil)
		return
	}
	userID, ok := r.requireUser(w, req)
	if !ok {
		return
	}
	user, err := r.store.GetUserByID(userID)
	if err != nil {
		writeErrorResponse(w, http.StatusInternalServerError, "internal_error",
			sanitizeErrorForClient(err, "Failed to load account"), nil)
		return
	}
	if user.TwoFactorEnabled {
		writeErrorResponse(w, http.StatusConflict, auth.ErrTwoFactorAlreadyEnabled.Code,
			auth.ErrTwoFactorAlreadyEnabled.Message, nil)
		return
	}

	var body twoFactorEnableRequest
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		writeErrorResponse(w, http.StatusBadRequest, "invalid_request", "Invalid JSON body", nil)
		return
	}
	if body.Secret == "" || len(body.BackupCodes) == 0 {
		writeErrorResponse(w, http.StatusBadRequest, "invalid_request", "Secret and backup codes are required", nil)
		return
	}

	if _, err := auth.VerifyTwoFactorToken(body.Token, body.Secret, nil); err != nil {
		writeTwoFactorError(w, err)
		return
	}

	hashes, err := auth.HashBackupCodes(body.BackupCodes)
	if err != nil {
		writeErrorResponse(w, http.StatusInternalServerError, "internal_error",
			sanitizeErrorForClient(err, "Failed to store backup codes"), nil)
		return
	}
	if err := r.store.UpdateUserTwoFactor(userID, body.Secret, true, hashes); err != nil {
		writeErrorResponse(w, http.StatusInternalServerError, "internal_error",
			sanitizeErrorForClient(err, "Failed to enable two-factor auth"), nil)
		return
	}

	log.Info().Int64("user_id", userID).Msg("Two-factor authentication enabled")
	writeJSON(w, http.StatusOK, map[string]bool{"enabled": true})
}

func (r *Router) handleTwoFactorDisable(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodPost {
		writeErrorResponse(w, http.StatusMethodNotAllowed, "method_not_allowed", "Method not allowed", nil)
		return
	}
	userID, ok := r.requireUser(w, req)
	if !ok {
		return
	}
	user, err := r.store.GetUserByID(userID)
	if err != nil {
		writeErrorResponse(w, http.StatusInternalServerError, "internal_error",
			sanitizeErrorForClient(err, "Failed to load account"), nil)
		return
	}
	if !user.TwoFactorEnabled {
		writeErrorResponse(w, http.StatusConflict, auth.ErrTwoFactorNotEnabled.Code,
			auth.ErrTwoFactorNotEnabled.Message, nil)
		return
	}

	var body twoFactorTokenRequest
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		writeErrorResponse(w, http.StatusBadRequest, "invalid_request", "Invalid JSON body", nil)
		return
	}

	consumed, err := auth.VerifyTwoFactorToken(body.Token, user.TwoFactorSecret, user.BackupCodeHashes)
	if err != nil {
		writeTwoFactorError(w, err)
		return
	}
	if consumed >= 0 {
		if err := r.store.ConsumeBackupCode(userID, consumed); err != nil {
			log.Warn().Err(err).Int64("user_id", userID).Msg("Failed to consume backup code")
		}
	}

	if err := r.store.UpdateUserTwoFactor(userID, "", false, nil); err != nil {
		writeErrorResponse(w, http.StatusInternalServerError, "internal_error",
			sanitizeErrorForClient(err, "Failed to disable two-factor auth"), nil)
		return
	}

	log.Info().Int64("user_id", userID).Msg("Two-factor authentication disabled")
	writeJSON(w, http.StatusOK, map[string]bool{"enabled": false})
}

// handleTwoFactorVerify is the re-authentication gate used before
// sensitive actions. The token's shape is checked before any
// verification work happens, so malformed input never reaches the TOTP
// or backup-code comparison.
func (r *Router) handleTwoFactorVerify(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodPost {
		writeErrorResponse(w, http.StatusMethodNotAllowed, "method_not_allowed", "Method not allowed", nil)
		return
	}
	userID, ok := r.requireUser(w, req)
	if !ok {
		return
	}
	user, err := r.store.GetUserByID(userID)
	if err != nil {
		writeErrorResponse(w, http.StatusInternalServerError, "internal_error",
			sanitizeErrorForClient(err, "Failed to load account"), nil)
		return
	}
	if !user.TwoFactorEnabled {
		writeErrorResponse(w, http.StatusConflict, auth.ErrTwoFactorNotEnabled.Code,
			auth.ErrTwoFactorNotEnabled.Message, nil)
		return
	}

	var body twoFactorTokenRequest
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		writeErrorResponse(w, http.StatusBadRequest, "invalid_request", "Invalid JSON body", nil)
		return
	}

	if err := auth.ValidateTwoFactorTokenFormat(body.Token); err != nil {
		writeTwoFactorError(w, err)
		return
	}

	consumed, err := auth.VerifyTwoFactorToken(body.Token, user.TwoFactorSecret, user.BackupCodeHashes)
	if err != nil {
		writeTwoFactorError(w, err)
		return
	}
	if consumed >= 0 {
		if err := r.store.ConsumeBackupCode(userID, consumed); err != nil {
			log.Warn().Err(err).Int64("user_id", userID).Msg("Failed to consume backup code")
		}
	}

	writeJSON(w, http.StatusOK, map[string]bool{"verified": true})
}

func writeTwoFactorError(w http.ResponseWriter, err error) {
	var coded *auth.CodedError
	if errors.As(err, &coded) {
		status := http.StatusUnauthorized
		if coded == auth.ErrTwoFactorTokenFormat {
			status = http.StatusBadRequest
		}
		writeErrorResponse(w, status, coded.Code, coded.Message, nil)
		return
	}
	writeErrorResponse(w, http.StatusUnauthorized, auth.CodeFromError(err), "Two-factor verification failed", nil)
}
