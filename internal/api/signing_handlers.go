package api

import (
	"encoding/base64"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/signetapp/signet/internal/auth"
	"github.com/signetapp/signet/internal/metrics"
	"github.com/signetapp/signet/internal/models"
	"github.com/signetapp/signet/internal/pdf"
)

// handleSigningSubroutes dispatches /api/sign/{token}[/...] requests.
// These routes are scoped to the signing token alone; no session is
// involved.
func (r *Router) handleSigningSubroutes(w http.ResponseWriter, req *http.Request) {
	rest := strings.TrimPrefix(req.URL.Path, "/api/sign/")
	parts := strings.Split(strings.Trim(rest, "/"), "/")
	if len(parts) == 0 || parts[0] == "" {
		writeErrorResponse(w, http.StatusNotFound, "not_found", "Not found", nil)
		return
	}

	rcp, ok := r.resolveSigningToken(w, parts[0])
	if !ok {
		return
	}

	switch {
	case len(parts) == 1 && req.Method == http.MethodGet:
		r.handleSigningView(w, req, rcp)
	case len(parts) == 3 && parts[1] == "fields" && req.Method == http.MethodPost:
		r.handleSignField(w, req, rcp, parts[2])
	case len(parts) == 2 && parts[1] == "complete" && req.Method == http.MethodPost:
		r.handleCompleteSigning(w, req, rcp)
	default:
		writeErrorResponse(w, http.StatusNotFound, "not_found", "Not found", nil)
	}
}

// resolveSigningToken validates the JWT wrapper and resolves the inner
// recipient token. Invalid, expired, and revoked links all produce the
// same coded error.
func (r *Router) resolveSigningToken(w http.ResponseWriter, raw string) (*models.Recipient, bool) {
	recipientToken, err := r.signing.Parse(raw)
	if err != nil {
		metrics.SigningTokenFailuresTotal.WithLabelValues("parse").Inc()
		writeErrorResponse(w, http.StatusUnauthorized, auth.ErrSigningTokenInvalid.Code,
			auth.ErrSigningTokenInvalid.Message, nil)
		return nil, false
	}
	rcp, err := r.store.GetRecipientByToken(recipientToken)
	if err != nil {
		metrics.SigningTokenFailuresTotal.WithLabelValues("lookup").Inc()
		writeErrorResponse(w, http.StatusUnauthorized, auth.ErrSigningTokenInvalid.Code,
			auth.ErrSigningTokenInvalid.Message, nil)
		return nil, false
	}
	return rcp, true
}

func (r *Router) handleSigningView(w http.ResponseWriter, req *http.Request, rcp *models.Recipient) {
	doc, err := r.store.GetDocumentByID(rcp.DocumentID)
	if err != nil {
		writeErrorResponse(w, http.StatusNotFound, "not_found", "Document not found", nil)
		return
	}

	fields, err := r.store.ListFields(doc.ID)
	if err != nil {
		writeErrorResponse(w, http.StatusInternalServerError, "internal_error",
			sanitizeErrorForClient(err, "Failed to load fields"), nil)
		return
	}
	own := make([]*models.Field, 0, len(fields))
	for _, f := range fields {
		if f.RecipientID == rcp.ID {
			own = append(own, f)
		}
	}

	if rcp.Status == models.RecipientStatusPending {
		if err := r.store.UpdateRecipientStatus(rcp.ID, models.RecipientStatusOpened); err == nil {
			rcp.Status = models.RecipientStatusOpened
			if err := r.store.AppendAudit(doc.ID, rcp.Email, models.AuditDocumentViewed, ""); err != nil {
				log.Warn().Err(err).Int64("document_id", doc.ID).Msg("Failed to record audit event")
			}
		}
	}

	// 2FA requirement surfaces up front so the client can prompt before
	// the first signature attempt.
	requiresTwoFactor := false
	if user, err := r.store.GetUserByEmail(rcp.Email); err == nil {
		requiresTwoFactor = user.TwoFactorEnabled
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"document": map[string]interface{}{
			"id":     doc.ID,
			"title":  doc.Title,
			"status": doc.Status,
			"data":   doc.Data,
		},
		"recipient":         rcp,
		"fields":            own,
		"requiresTwoFactor": requiresTwoFactor,
	})
}

type signFieldRequest struct {
	Image          string `json:"image"`
	Text           string `json:"text"`
	TwoFactorToken string `json:"twoFactorToken"`
}

// handleSignField places a signature value into one of the recipient's
// fields. When the recipient's account has two-factor enabled, a valid
// token must accompany the signature; its shape is checked before any
// verification work.
func (r *Router) handleSignField(w http.ResponseWriter, req *http.Request, rcp *models.Recipient, rawFieldID string) {
	if rcp.Role != models.RecipientRoleSigner {
		writeErrorResponse(w, http.StatusForbidden, "not_a_signer", "This link is view-only", nil)
		return
	}
	if rcp.Status == models.RecipientStatusCompleted {
		writeErrorResponse(w, http.StatusConflict, "already_completed", "Signing has already been completed", nil)
		return
	}

	fieldID, err := strconv.ParseInt(rawFieldID, 10, 64)
	if err != nil {
		writeErrorResponse(w, http.StatusBadRequest, "invalid_id", "Field id must be numeric", nil)
		return
	}

	field, err := r.store.GetField(fieldID)
	if err != nil || field.RecipientID != rcp.ID {
		writeErrorResponse(w, http.StatusNotFound, "not_found", "Field not found", nil)
		return
	}
	if field.Inserted {
		writeErrorResponse(w, http.StatusConflict, "field_signed", "Field has already been signed", nil)
		return
	}

	var body signFieldRequest
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		writeErrorResponse(w, http.StatusBadRequest, "invalid_request", "Invalid JSON body", nil)
		return
	}
	body.Text = strings.TrimSpace(body.Text)
	if (body.Image == "") == (body.Text == "") {
		writeErrorResponse(w, http.StatusBadRequest, "invalid_signature", "Provide either a drawn image or typed text", nil)
		return
	}
	if body.Image != "" {
		if _, err := pdf.DecodeImageDataURL(body.Image); err != nil {
			writeErrorResponse(w, http.StatusBadRequest, "invalid_signature", "Signature image must be a PNG or JPEG data URL", nil)
			return
		}
	}

	if user, err := r.store.GetUserByEmail(rcp.Email); err == nil && user.TwoFactorEnabled {
		if err := auth.ValidateTwoFactorTokenFormat(body.TwoFactorToken); err != nil {
			writeTwoFactorError(w, err)
			return
		}
		consumed, err := auth.VerifyTwoFactorToken(body.TwoFactorToken, user.TwoFactorSecret, user.BackupCodeHashes)
		if err != nil {
			writeTwoFactorError(w, err)
			return
		}
		if consumed >= 0 {
			if err := r.store.ConsumeBackupCode(user.ID, consumed); err != nil {
				log.Warn().Err(err).Int64("user_id", user.ID).Msg("Failed to consume backup code")
			}
		}
	}

	sig := &models.Signature{
		FieldID:     field.ID,
		RecipientID: rcp.ID,
		ImageData:   body.Image,
		TypedText:   body.Text,
	}
	if err := r.store.CreateSignature(sig); err != nil {
		writeErrorResponse(w, http.StatusInternalServerError, "internal_error",
			sanitizeErrorForClient(err, "Failed to store signature"), nil)
		return
	}
	if err := r.store.MarkFieldInserted(field.ID); err != nil {
		writeErrorResponse(w, http.StatusInternalServerError, "internal_error",
			sanitizeErrorForClient(err, "Failed to update field"), nil)
		return
	}

	detail := "typed"
	if sig.IsImage() {
		detail = "drawn"
	}
	if err := r.store.AppendAudit(field.DocumentID, rcp.Email, models.AuditFieldSigned, detail); err != nil {
		log.Warn().Err(err).Int64("document_id", field.DocumentID).Msg("Failed to record audit event")
	}

	writeJSON(w, http.StatusCreated, sig)
}

// handleCompleteSigning finishes the recipient's part. When every
// signer is done the document is sealed: each signature is stamped into
// the PDF and the document moves to completed.
func (r *Router) handleCompleteSigning(w http.ResponseWriter, req *http.Request, rcp *models.Recipient) {
	if rcp.Status == models.RecipientStatusCompleted {
		writeErrorResponse(w, http.StatusConflict, "already_completed", "Signing has already been completed", nil)
		return
	}

	doc, err := r.store.GetDocumentByID(rcp.DocumentID)
	if err != nil {
		writeErrorResponse(w, http.StatusNotFound, "not_found", "Document not found", nil)
		return
	}

	if rcp.Role == models.RecipientRoleSigner {
		fields, err := r.store.ListFields(doc.ID)
		if err != nil {
			writeErrorResponse(w, http.StatusInternalServerError, "internal_error",
				sanitizeErrorForClient(err, "Failed to load fields"), nil)
			return
		}
		for _, f := range fields {
			if f.RecipientID == rcp.ID && !f.Inserted {
				writeErrorResponse(w, http.StatusBadRequest, "fields_remaining",
					"All assigned fields must be signed first", nil)
				return
			}
		}
	}

	if err := r.store.UpdateRecipientStatus(rcp.ID, models.RecipientStatusCompleted); err != nil {
		writeErrorResponse(w, http.StatusInternalServerError, "internal_error",
			sanitizeErrorForClient(err, "Failed to update recipient"), nil)
		return
	}
	rcp.Status = models.RecipientStatusCompleted
	now := time.Now()
	rcp.CompletedAt = &now

	if err := r.store.AppendAudit(doc.ID, rcp.Email, models.AuditRecipientComplete, ""); err != nil {
		log.Warn().Err(err).Int64("document_id", doc.ID).Msg("Failed to record audit event")
	}
	if r.hub != nil {
		r.hub.BroadcastRecipientCompleted(doc.UserID, rcp)
	}

	sealed, err := r.sealIfFinished(doc)
	if err != nil {
		writeErrorResponse(w, http.StatusInternalServerError, "internal_error",
			sanitizeErrorForClient(err, "Failed to finalize document"), nil)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"recipient": rcp,
		"completed": sealed,
	})
}

// sealIfFinished stamps every signed field into the PDF once the last
// signer completes. Viewers never block sealing.
func (r *Router) sealIfFinished(doc *models.Document) (bool, error) {
	recipients, err := r.store.ListRecipients(doc.ID)
	if err != nil {
		return false, err
	}
	for _, rc := range recipients {
		if rc.Role == models.RecipientRoleSigner && rc.Status != models.RecipientStatusCompleted {
			return false, nil
		}
	}

	raw, err := base64.StdEncoding.DecodeString(doc.Data)
	if err != nil {
		return false, err
	}

	fields, err := r.store.ListFields(doc.ID)
	if err != nil {
		return false, err
	}
	for _, f := range fields {
		sig, err := r.store.GetSignatureByField(f.ID)
		if err != nil {
			continue // date/text fields without a value
		}
		stamp := pdf.StampRequest{Page: f.Page, X: f.X, Y: f.Y}
		kind := metrics.StampKindTyped
		if sig.IsImage() {
			stamp.ImageDataURL = sig.ImageData
			kind = metrics.StampKindDrawn
		} else {
			stamp.Text = sig.TypedText
		}
		stamped, err := pdf.Stamp(raw, stamp)
		if err != nil {
			return false, err
		}
		raw = stamped
		metrics.SignaturesStampedTotal.WithLabelValues(kind).Inc()
	}

	if err := r.store.UpdateDocumentData(doc.ID, base64.StdEncoding.EncodeToString(raw)); err != nil {
		return false, err
	}
	if err := r.store.UpdateDocumentStatus(doc.ID, models.DocumentStatusCompleted); err != nil {
		return false, err
	}
	if err := r.store.AppendAudit(doc.ID, "system", models.AuditDocumentCompleted, ""); err != nil {
		log.Warn().Err(err).Int64("document_id", doc.ID).Msg("Failed to record audit event")
	}

	metrics.DocumentsSealedTotal.WithLabelValues("signing").Inc()

	doc.Status = models.DocumentStatusCompleted
	now := time.Now()
	doc.CompletedAt = &now
	if r.hub != nil {
		r.hub.BroadcastDocumentCompleted(doc)
	}

	log.Info().Int64("document_id", doc.ID).Msg("Document sealed")
	return true, nil
}
