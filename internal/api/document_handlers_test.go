package api

import (
	"bytes"
	"encoding/base64"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/signetapp/signet/internal/models"
	"github.com/signetapp/signet/internal/pdf"
)

func TestUploadAndListDocuments(t *testing.T) {
	env := newTestEnv(t)
	cookie := env.registerUser(t, "docs@example.com")

	docID := env.uploadPDF(t, cookie, "Consulting Agreement")
	require.Positive(t, docID)

	rec := env.do(t, http.MethodGet, "/api/documents", nil, cookie)
	require.Equal(t, http.StatusOK, rec.Code)

	var list struct {
		Documents []models.Document `json:"documents"`
	}
	decodeJSON(t, rec, &list)
	require.Len(t, list.Documents, 1)
	assert.Equal(t, "Consulting Agreement", list.Documents[0].Title)
	assert.Equal(t, models.DocumentStatusDraft, list.Documents[0].Status)
	// PDF payload never rides along on list responses.
	assert.NotContains(t, rec.Body.String(), `"data"`)
}

func TestUploadRejectsNonPDF(t *testing.T) {
	env := newTestEnv(t)
	cookie := env.registerUser(t, "notpdf@example.com")

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", "readme.txt")
	require.NoError(t, err)
	_, err = part.Write([]byte("just some text"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/documents", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.AddCookie(cookie)
	rec := httptest.NewRecorder()
	env.handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)

	var apiErr APIError
	decodeJSON(t, rec, &apiErr)
	assert.Equal(t, "invalid_pdf", apiErr.Code)
}

func TestAddFieldRejectsPageBeyondDocument(t *testing.T) {
	env := newTestEnv(t)
	cookie := env.registerUser(t, "fields@example.com")
	docID := env.uploadPDF(t, cookie, "One Pager")

	rec := env.do(t, http.MethodPost, "/api/documents/"+itoa(docID)+"/recipients",
		bytes.NewReader([]byte(`{"email":"signer@example.com","name":"Signer","role":"signer"}`)), cookie)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var rcp models.Recipient
	decodeJSON(t, rec, &rcp)

	// The upload is a single page; a field on page 8 could never be
	// stamped at sealing time.
	body := []byte(`{"recipientId":` + itoa(rcp.ID) + `,"type":"signature","page":7,"x":77,"y":638}`)
	rec = env.do(t, http.MethodPost, "/api/documents/"+itoa(docID)+"/fields", bytes.NewReader(body), cookie)
	assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())

	var apiErr APIError
	decodeJSON(t, rec, &apiErr)
	assert.Equal(t, "invalid_page", apiErr.Code)
	assert.Equal(t, "1", apiErr.Details["pages"])

	fields, err := env.store.ListFields(docID)
	require.NoError(t, err)
	assert.Empty(t, fields)

	// The last real page is still accepted.
	body = []byte(`{"recipientId":` + itoa(rcp.ID) + `,"type":"signature","page":0,"x":77,"y":638}`)
	rec = env.do(t, http.MethodPost, "/api/documents/"+itoa(docID)+"/fields", bytes.NewReader(body), cookie)
	assert.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
}

func TestDocumentDetailRedirectContract(t *testing.T) {
	env := newTestEnv(t)
	owner := env.registerUser(t, "owner@example.com")
	other := env.registerUser(t, "other@example.com")

	docID := env.uploadPDF(t, owner, "Owned")

	// Non-numeric id redirects to the list.
	rec := env.do(t, http.MethodGet, "/api/documents/abc", nil, owner)
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, documentListPath, rec.Header().Get("Location"))

	// Unknown id redirects to the list.
	rec = env.do(t, http.MethodGet, "/api/documents/99999", nil, owner)
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, documentListPath, rec.Header().Get("Location"))

	// A document owned by someone else redirects the same way.
	rec = env.do(t, http.MethodGet, "/api/documents/"+itoa(docID), nil, other)
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, documentListPath, rec.Header().Get("Location"))

	// The owner gets the detail payload.
	rec = env.do(t, http.MethodGet, "/api/documents/"+itoa(docID), nil, owner)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"document"`)
	assert.Contains(t, rec.Body.String(), `"recipients"`)
	assert.Contains(t, rec.Body.String(), `"fields"`)
}

func TestDownloadDocument(t *testing.T) {
	env := newTestEnv(t)
	cookie := env.registerUser(t, "dl@example.com")
	docID := env.uploadPDF(t, cookie, "Download Me")

	rec := env.do(t, http.MethodGet, "/api/documents/"+itoa(docID)+"/download", nil, cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))

	n, err := pdf.PageCount(rec.Body.Bytes())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestDeleteDocument(t *testing.T) {
	env := newTestEnv(t)
	cookie := env.registerUser(t, "del@example.com")
	docID := env.uploadPDF(t, cookie, "Ephemeral")

	rec := env.do(t, http.MethodDelete, "/api/documents/"+itoa(docID), nil, cookie)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, http.MethodDelete, "/api/documents/"+itoa(docID), nil, cookie)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDeleteDocumentScopedToOwner(t *testing.T) {
	env := newTestEnv(t)
	owner := env.registerUser(t, "mine@example.com")
	thief := env.registerUser(t, "thief@example.com")
	docID := env.uploadPDF(t, owner, "Keep Out")

	rec := env.do(t, http.MethodDelete, "/api/documents/"+itoa(docID), nil, thief)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/documents/"+itoa(docID), nil, owner)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestDocumentDataStoredBase64(t *testing.T) {
	env := newTestEnv(t)
	cookie := env.registerUser(t, "b64@example.com")
	docID := env.uploadPDF(t, cookie, "Encoded")

	user, err := env.store.GetUserByEmail("b64@example.com")
	require.NoError(t, err)

	doc, err := env.store.GetDocument(docID, user.ID)
	require.NoError(t, err)

	raw, err := base64.StdEncoding.DecodeString(doc.Data)
	require.NoError(t, err)
	_, err = pdf.PageCount(raw)
	require.NoError(t, err)
}

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}
