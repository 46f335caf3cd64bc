package api

import (
	"encoding/base64"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/signetapp/signet/internal/models"
	"github.com/signetapp/signet/internal/pdf"
	"github.com/signetapp/signet/internal/store"
)

// documentListPath is where failed detail lookups are redirected.
const documentListPath = "/documents"

// handleDocumentSubroutes dispatches /api/documents/{id}[/...] requests.
func (r *Router) handleDocumentSubroutes(w http.ResponseWriter, req *http.Request) {
	userID, ok := r.requireUser(w, req)
	if !ok {
		return
	}

	rest := strings.TrimPrefix(req.URL.Path, "/api/documents/")
	parts := strings.Split(strings.Trim(rest, "/"), "/")
	if len(parts) == 0 || parts[0] == "" {
		writeErrorResponse(w, http.StatusNotFound, "not_found", "Not found", nil)
		return
	}

	// A malformed id is handled by the detail contract below; every
	// other subroute requires it to parse.
	docID, idErr := strconv.ParseInt(parts[0], 10, 64)

	if len(parts) == 1 {
		switch req.Method {
		case http.MethodGet:
			r.handleDocumentDetail(w, req, userID, parts[0], docID, idErr)
		case http.MethodDelete:
			if idErr != nil {
				writeErrorResponse(w, http.StatusBadRequest, "invalid_id", "Document id must be numeric", nil)
				return
			}
			r.handleDeleteDocument(w, req, userID, docID)
		default:
			writeErrorResponse(w, http.StatusMethodNotAllowed, "method_not_allowed", "Method not allowed", nil)
		}
		return
	}

	if idErr != nil {
		writeErrorResponse(w, http.StatusBadRequest, "invalid_id", "Document id must be numeric", nil)
		return
	}

	switch {
	case len(parts) == 2 && parts[1] == "download" && req.Method == http.MethodGet:
		r.handleDownloadDocument(w, req, userID, docID)
	case len(parts) == 2 && parts[1] == "audit" && req.Method == http.MethodGet:
		r.handleDocumentAudit(w, req, userID, docID)
	case len(parts) == 2 && parts[1] == "send" && req.Method == http.MethodPost:
		r.handleSendDocument(w, req, userID, docID)
	case len(parts) == 2 && parts[1] == "recipients" && req.Method == http.MethodPost:
		r.handleAddRecipient(w, req, userID, docID)
	case len(parts) == 3 && parts[1] == "recipients" && req.Method == http.MethodDelete:
		r.handleRemoveRecipient(w, req, userID, docID, parts[2])
	case len(parts) == 2 && parts[1] == "fields" && req.Method == http.MethodPost:
		r.handleAddField(w, req, userID, docID)
	case len(parts) == 3 && parts[1] == "fields" && req.Method == http.MethodDelete:
		r.handleRemoveField(w, req, userID, docID, parts[2])
	default:
		writeErrorResponse(w, http.StatusNotFound, "not_found", "Not found", nil)
	}
}

func (r *Router) handleListDocuments(w http.ResponseWriter, req *http.Request) {
	userID, ok := r.requireUser(w, req)
	if !ok {
		return
	}

	docs, err := r.store.ListDocuments(userID)
	if err != nil {
		writeErrorResponse(w, http.StatusInternalServerError, "internal_error",
			sanitizeErrorForClient(err, "Failed to list documents"), nil)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"documents": docs})
}

func (r *Router) handleUploadDocument(w http.ResponseWriter, req *http.Request) {
	userID, ok := r.requireUser(w, req)
	if !ok {
		return
	}

	req.Body = http.MaxBytesReader(w, req.Body, r.config.MaxUploadBytes)
	if err := req.ParseMultipartForm(r.config.MaxUploadBytes); err != nil {
		writeErrorResponse(w, http.StatusRequestEntityTooLarge, "upload_too_large", "Upload exceeds the size limit", nil)
		return
	}

	file, header, err := req.FormFile("file")
	if err != nil {
		writeErrorResponse(w, http.StatusBadRequest, "missing_file", "A PDF file is required", nil)
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		writeErrorResponse(w, http.StatusBadRequest, "invalid_upload", "Failed to read upload", nil)
		return
	}

	pages, err := pdf.PageCount(data)
	if err != nil {
		writeErrorResponse(w, http.StatusBadRequest, "invalid_pdf", "Uploaded file is not a valid PDF", nil)
		return
	}

	title := strings.TrimSpace(req.FormValue("title"))
	if title == "" {
		title = strings.TrimSuffix(header.Filename, ".pdf")
	}
	if title == "" {
		title = "Untitled document"
	}

	doc := &models.Document{
		UserID: userID,
		Title:  title,
		Status: models.DocumentStatusDraft,
		Data:   base64.StdEncoding.EncodeToString(data),
	}
	if err := r.store.CreateDocument(doc); err != nil {
		writeErrorResponse(w, http.StatusInternalServerError, "internal_error",
			sanitizeErrorForClient(err, "Failed to store document"), nil)
		return
	}
	if err := r.store.AppendAudit(doc.ID, actorForUser(r.store, userID), models.AuditDocumentCreated, "uploaded"); err != nil {
		log.Warn().Err(err).Int64("document_id", doc.ID).Msg("Failed to record audit event")
	}

	log.Info().Int64("document_id", doc.ID).Int64("user_id", userID).Int("pages", pages).Msg("Document uploaded")
	writeJSON(w, http.StatusCreated, doc)
}

// handleDocumentDetail returns the document plus its recipients and
// fields. Any failure to resolve the document for this user redirects
// to the document list rather than erroring: a stale or tampered link
// lands the user somewhere useful.
func (r *Router) handleDocumentDetail(w http.ResponseWriter, req *http.Request, userID int64, rawID string, docID int64, idErr error) {
	if idErr != nil {
		log.Debug().Str("id", rawID).Msg("Document detail requested with non-numeric id")
		http.Redirect(w, req, documentListPath, http.StatusSeeOther)
		return
	}

	doc, err := r.store.GetDocument(docID, userID)
	if err != nil {
		// Not found and not-owned are indistinguishable on purpose.
		http.Redirect(w, req, documentListPath, http.StatusSeeOther)
		return
	}

	recipients, err := r.store.ListRecipients(doc.ID)
	if err != nil {
		http.Redirect(w, req, documentListPath, http.StatusSeeOther)
		return
	}
	fields, err := r.store.ListFields(doc.ID)
	if err != nil {
		http.Redirect(w, req, documentListPath, http.StatusSeeOther)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"document":   doc,
		"recipients": recipients,
		"fields":     fields,
	})
}

func (r *Router) handleDownloadDocument(w http.ResponseWriter, req *http.Request, userID, docID int64) {
	doc, err := r.store.GetDocument(docID, userID)
	if err != nil {
		writeErrorResponse(w, http.StatusNotFound, "not_found", "Document not found", nil)
		return
	}

	raw, err := base64.StdEncoding.DecodeString(doc.Data)
	if err != nil {
		writeErrorResponse(w, http.StatusInternalServerError, "internal_error",
			sanitizeErrorForClient(err, "Stored document is corrupt"), nil)
		return
	}

	download := raw
	if doc.Status == models.DocumentStatusCompleted {
		if withCert, err := r.appendCertificate(doc, raw); err == nil {
			download = withCert
		} else {
			log.Warn().Err(err).Int64("document_id", doc.ID).Msg("Failed to render completion certificate")
		}
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", `attachment; filename="`+safeFilename(doc.Title)+`.pdf"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(download)
}

// appendCertificate renders the audit certificate for a sealed document
// and merges it after the signed pages.
func (r *Router) appendCertificate(doc *models.Document, raw []byte) ([]byte, error) {
	recipients, err := r.store.ListRecipients(doc.ID)
	if err != nil {
		return nil, err
	}
	events, err := r.store.ListAudit(doc.ID)
	if err != nil {
		return nil, err
	}

	sealedAt := time.Now()
	if doc.CompletedAt != nil {
		sealedAt = *doc.CompletedAt
	}

	rcps := make([]models.Recipient, 0, len(recipients))
	for _, rc := range recipients {
		rcps = append(rcps, *rc)
	}
	evs := make([]models.AuditEvent, 0, len(events))
	for _, ev := range events {
		evs = append(evs, *ev)
	}

	cert, err := pdf.GenerateCertificate(pdf.CertificateInput{
		Document:   doc,
		Recipients: rcps,
		Events:     evs,
		SealedAt:   sealedAt,
	})
	if err != nil {
		return nil, err
	}
	return pdf.Merge(raw, cert)
}

func (r *Router) handleDeleteDocument(w http.ResponseWriter, req *http.Request, userID, docID int64) {
	if err := r.store.DeleteDocument(docID, userID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeErrorResponse(w, http.StatusNotFound, "not_found", "Document not found", nil)
			return
		}
		writeErrorResponse(w, http.StatusInternalServerError, "internal_error",
			sanitizeErrorForClient(err, "Failed to delete document"), nil)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"deleted": true})
}

func (r *Router) handleDocumentAudit(w http.ResponseWriter, req *http.Request, userID, docID int64) {
	if _, err := r.store.GetDocument(docID, userID); err != nil {
		writeErrorResponse(w, http.StatusNotFound, "not_found", "Document not found", nil)
		return
	}
	events, err := r.store.ListAudit(docID)
	if err != nil {
		writeErrorResponse(w, http.StatusInternalServerError, "internal_error",
			sanitizeErrorForClient(err, "Failed to load audit trail"), nil)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"events": events})
}

func actorForUser(s *store.Store, userID int64) string {
	user, err := s.GetUserByID(userID)
	if err != nil {
		return "unknown"
	}
	return user.Email
}

func safeFilename(title string) string {
	title = strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', '"', ':', '*', '?', '<', '>', '|':
			return '-'
		}
		return r
	}, title)
	title = strings.TrimSpace(title)
	if title == "" {
		return "document"
	}
	return title
}
