package api

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/signetapp/signet/internal/auth"
	"github.com/signetapp/signet/internal/models"
	"github.com/signetapp/signet/internal/pdf"
	"github.com/signetapp/signet/internal/store"
)

type addRecipientRequest struct {
	Email string `json:"email"`
	Name  string `json:"name"`
	Role  string `json:"role"`
}

func (r *Router) handleAddRecipient(w http.ResponseWriter, req *http.Request, userID, docID int64) {
	doc, ok := r.draftDocument(w, userID, docID)
	if !ok {
		return
	}

	var body addRecipientRequest
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		writeErrorResponse(w, http.StatusBadRequest, "invalid_request", "Invalid JSON body", nil)
		return
	}

	body.Email = strings.ToLower(strings.TrimSpace(body.Email))
	if body.Email == "" || !strings.Contains(body.Email, "@") {
		writeErrorResponse(w, http.StatusBadRequest, "invalid_email", "A valid email address is required", nil)
		return
	}
	role := models.RecipientRole(body.Role)
	if role == "" {
		role = models.RecipientRoleSigner
	}
	if role != models.RecipientRoleSigner && role != models.RecipientRoleViewer {
		writeErrorResponse(w, http.StatusBadRequest, "invalid_role", "Role must be signer or viewer", nil)
		return
	}

	rcp := &models.Recipient{
		DocumentID: doc.ID,
		Email:      body.Email,
		Name:       strings.TrimSpace(body.Name),
		Role:       role,
		Token:      auth.NewRecipientToken(),
	}
	if err := r.store.CreateRecipient(rcp); err != nil {
		writeErrorResponse(w, http.StatusInternalServerError, "internal_error",
			sanitizeErrorForClient(err, "Failed to add recipient"), nil)
		return
	}

	writeJSON(w, http.StatusCreated, rcp)
}

func (r *Router) handleRemoveRecipient(w http.ResponseWriter, req *http.Request, userID, docID int64, rawRcpID string) {
	doc, ok := r.draftDocument(w, userID, docID)
	if !ok {
		return
	}
	rcpID, err := strconv.ParseInt(rawRcpID, 10, 64)
	if err != nil {
		writeErrorResponse(w, http.StatusBadRequest, "invalid_id", "Recipient id must be numeric", nil)
		return
	}
	if err := r.store.DeleteRecipient(rcpID, doc.ID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeErrorResponse(w, http.StatusNotFound, "not_found", "Recipient not found", nil)
			return
		}
		writeErrorResponse(w, http.StatusInternalServerError, "internal_error",
			sanitizeErrorForClient(err, "Failed to remove recipient"), nil)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"deleted": true})
}

type addFieldRequest struct {
	RecipientID int64   `json:"recipientId"`
	Type        string  `json:"type"`
	Page        int     `json:"page"`
	X           float64 `json:"x"`
	Y           float64 `json:"y"`
}

func (r *Router) handleAddField(w http.ResponseWriter, req *http.Request, userID, docID int64) {
	doc, ok := r.draftDocument(w, userID, docID)
	if !ok {
		return
	}

	var body addFieldRequest
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		writeErrorResponse(w, http.StatusBadRequest, "invalid_request", "Invalid JSON body", nil)
		return
	}

	fieldType := models.FieldType(body.Type)
	switch fieldType {
	case models.FieldTypeSignature, models.FieldTypeText, models.FieldTypeDate:
	default:
		writeErrorResponse(w, http.StatusBadRequest, "invalid_field_type", "Field type must be signature, text, or date", nil)
		return
	}
	if body.Page < 0 || body.X < 0 || body.Y < 0 {
		writeErrorResponse(w, http.StatusBadRequest, "invalid_position", "Field position must be non-negative", nil)
		return
	}

	// A field placed beyond the last page would be recorded but never
	// rendered when the document is sealed.
	raw, err := base64.StdEncoding.DecodeString(doc.Data)
	if err != nil {
		writeErrorResponse(w, http.StatusInternalServerError, "internal_error",
			sanitizeErrorForClient(err, "Failed to load document"), nil)
		return
	}
	pageCount, err := pdf.PageCount(raw)
	if err != nil {
		writeErrorResponse(w, http.StatusInternalServerError, "internal_error",
			sanitizeErrorForClient(err, "Failed to load document"), nil)
		return
	}
	if body.Page >= pageCount {
		writeErrorResponse(w, http.StatusBadRequest, "invalid_page",
			"Field page is beyond the end of the document",
			map[string]string{"pages": strconv.Itoa(pageCount)})
		return
	}

	rcp, err := r.store.GetRecipient(body.RecipientID)
	if err != nil || rcp.DocumentID != doc.ID {
		writeErrorResponse(w, http.StatusBadRequest, "invalid_recipient", "Recipient does not belong to this document", nil)
		return
	}

	field := &models.Field{
		DocumentID:  doc.ID,
		RecipientID: rcp.ID,
		Type:        fieldType,
		Page:        body.Page,
		X:           body.X,
		Y:           body.Y,
	}
	if err := r.store.CreateField(field); err != nil {
		writeErrorResponse(w, http.StatusInternalServerError, "internal_error",
			sanitizeErrorForClient(err, "Failed to add field"), nil)
		return
	}
	writeJSON(w, http.StatusCreated, field)
}

func (r *Router) handleRemoveField(w http.ResponseWriter, req *http.Request, userID, docID int64, rawFieldID string) {
	doc, ok := r.draftDocument(w, userID, docID)
	if !ok {
		return
	}
	fieldID, err := strconv.ParseInt(rawFieldID, 10, 64)
	if err != nil {
		writeErrorResponse(w, http.StatusBadRequest, "invalid_id", "Field id must be numeric", nil)
		return
	}
	if err := r.store.DeleteField(fieldID, doc.ID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeErrorResponse(w, http.StatusNotFound, "not_found", "Field not found or already signed", nil)
			return
		}
		writeErrorResponse(w, http.StatusInternalServerError, "internal_error",
			sanitizeErrorForClient(err, "Failed to remove field"), nil)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"deleted": true})
}

// handleSendDocument issues signing links and moves the draft to
// pending. The raw recipient tokens exist only inside the returned JWT
// links; the store keeps hashes.
func (r *Router) handleSendDocument(w http.ResponseWriter, req *http.Request, userID, docID int64) {
	doc, ok := r.draftDocument(w, userID, docID)
	if !ok {
		return
	}

	recipients, err := r.store.ListRecipients(doc.ID)
	if err != nil {
		writeErrorResponse(w, http.StatusInternalServerError, "internal_error",
			sanitizeErrorForClient(err, "Failed to load recipients"), nil)
		return
	}
	signers := 0
	for _, rc := range recipients {
		if rc.Role == models.RecipientRoleSigner {
			signers++
		}
	}
	if signers == 0 {
		writeErrorResponse(w, http.StatusBadRequest, "no_signers", "At least one signer is required before sending", nil)
		return
	}

	fields, err := r.store.ListFields(doc.ID)
	if err != nil {
		writeErrorResponse(w, http.StatusInternalServerError, "internal_error",
			sanitizeErrorForClient(err, "Failed to load fields"), nil)
		return
	}
	fieldsByRecipient := make(map[int64]int)
	for _, f := range fields {
		fieldsByRecipient[f.RecipientID]++
	}
	for _, rc := range recipients {
		if rc.Role == models.RecipientRoleSigner && fieldsByRecipient[rc.ID] == 0 {
			writeErrorResponse(w, http.StatusBadRequest, "signer_without_fields",
				"Every signer needs at least one field", map[string]string{"email": rc.Email})
			return
		}
	}

	// Fresh tokens are minted on every send; the store only ever holds
	// their hashes.
	links := make(map[string]string, len(recipients))
	for _, rc := range recipients {
		token := auth.NewRecipientToken()
		if err := r.store.UpdateRecipientToken(rc.ID, token); err != nil {
			writeErrorResponse(w, http.StatusInternalServerError, "internal_error",
				sanitizeErrorForClient(err, "Failed to issue signing link"), nil)
			return
		}
		signed, err := r.signing.Issue(token)
		if err != nil {
			writeErrorResponse(w, http.StatusInternalServerError, "internal_error",
				sanitizeErrorForClient(err, "Failed to issue signing link"), nil)
			return
		}
		links[rc.Email] = r.config.PublicURL + "/sign/" + signed
	}

	if err := r.store.UpdateDocumentStatus(doc.ID, models.DocumentStatusPending); err != nil {
		writeErrorResponse(w, http.StatusInternalServerError, "internal_error",
			sanitizeErrorForClient(err, "Failed to update document"), nil)
		return
	}
	if err := r.store.AppendAudit(doc.ID, actorForUser(r.store, userID), models.AuditDocumentSent, ""); err != nil {
		log.Warn().Err(err).Int64("document_id", doc.ID).Msg("Failed to record audit event")
	}

	doc.Status = models.DocumentStatusPending
	if r.hub != nil {
		r.hub.BroadcastDocumentUpdated(doc)
	}

	log.Info().Int64("document_id", doc.ID).Int("recipients", len(recipients)).Msg("Document sent for signing")
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"document": doc,
		"links":    links,
	})
}

// draftDocument loads the document and rejects edits once it has been
// sent.
func (r *Router) draftDocument(w http.ResponseWriter, userID, docID int64) (*models.Document, bool) {
	doc, err := r.store.GetDocument(docID, userID)
	if err != nil {
		writeErrorResponse(w, http.StatusNotFound, "not_found", "Document not found", nil)
		return nil, false
	}
	if doc.Status != models.DocumentStatusDraft {
		writeErrorResponse(w, http.StatusConflict, "not_draft", "Document has already been sent", nil)
		return nil, false
	}
	return doc, true
}
