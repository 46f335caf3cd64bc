package pdf

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/signetapp/signet/internal/models"
)

// 1x1 PNG, enough for the image stamp path.
const tinyPNG = "data:image/png;base64,iVBORw0KGgoAAAANSUhEUgAAAAEAAAABCAYAAAAfFcSJAAAADUlEQVR42mP8z8BQDwAEhQGAhKmMIQAAAABJRU5ErkJggg=="

func TestGeneratePledgeTemplate(t *testing.T) {
	data, err := GeneratePledgeTemplate()
	require.NoError(t, err)
	require.NotEmpty(t, data)
	assert.Equal(t, "%PDF-", string(data[:5]))

	n, err := PageCount(data)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestTemplateSourcePrefersFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "pledge.pdf")

	custom, err := GeneratePledgeTemplate()
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, custom, 0o600))

	src := NewTemplateSource(path)
	data, err := src.Bytes()
	require.NoError(t, err)
	assert.Equal(t, custom, data)

	// After the file disappears and a reload, the generated fallback kicks in.
	require.NoError(t, os.Remove(path))
	src.Reload()
	data, err = src.Bytes()
	require.NoError(t, err)
	require.NotEmpty(t, data)
	n, err := PageCount(data)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestStampTypedName(t *testing.T) {
	doc, err := GeneratePledgeTemplate()
	require.NoError(t, err)

	stamped, err := Stamp(doc, StampRequest{Page: 0, X: 77, Y: 638, Text: "Ada Lovelace"})
	require.NoError(t, err)
	require.NotEmpty(t, stamped)

	n, err := PageCount(stamped)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.NotEqual(t, doc, stamped)
}

func TestStampImage(t *testing.T) {
	doc, err := GeneratePledgeTemplate()
	require.NoError(t, err)

	stamped, err := Stamp(doc, StampRequest{Page: 0, X: 77, Y: 638, ImageDataURL: tinyPNG})
	require.NoError(t, err)

	n, err := PageCount(stamped)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestStampRejectsBadInput(t *testing.T) {
	doc, err := GeneratePledgeTemplate()
	require.NoError(t, err)

	_, err = Stamp(doc, StampRequest{Page: 0, X: 10, Y: 10})
	assert.Error(t, err)

	_, err = Stamp(doc, StampRequest{Page: -1, X: 10, Y: 10, Text: "x"})
	assert.Error(t, err)

	_, err = Stamp(doc, StampRequest{Page: 0, X: 10, Y: 10, ImageDataURL: "data:image/gif;base64,AAAA"})
	assert.Error(t, err)
}

func TestStampRejectsPageBeyondDocument(t *testing.T) {
	doc, err := GeneratePledgeTemplate()
	require.NoError(t, err)

	// One-page document; stamping page 6 must fail rather than return
	// an untouched PDF.
	_, err = Stamp(doc, StampRequest{Page: 5, X: 77, Y: 638, Text: "Ada Lovelace"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "out of range")

	_, err = Stamp(doc, StampRequest{Page: 1, X: 77, Y: 638, ImageDataURL: tinyPNG})
	assert.Error(t, err)
}

func TestMergeAppendsPages(t *testing.T) {
	a, err := GeneratePledgeTemplate()
	require.NoError(t, err)
	b, err := GeneratePledgeTemplate()
	require.NoError(t, err)

	merged, err := Merge(a, b)
	require.NoError(t, err)

	n, err := PageCount(merged)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestPageCountRejectsGarbage(t *testing.T) {
	_, err := PageCount([]byte("definitely not a pdf"))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotPDF)
}

func TestDecodeImageDataURL(t *testing.T) {
	img, err := DecodeImageDataURL(tinyPNG)
	require.NoError(t, err)
	assert.NotEmpty(t, img)

	_, err = DecodeImageDataURL("data:image/png;base64,!!!not-base64!!!")
	assert.Error(t, err)

	_, err = DecodeImageDataURL("data:image/png;base64,")
	assert.Error(t, err)

	_, err = DecodeImageDataURL("https://example.com/sig.png")
	assert.Error(t, err)
}

func TestGenerateCertificate(t *testing.T) {
	now := time.Now()
	doc := &models.Document{ID: 7, Title: "Founding Supporter Pledge", Status: models.DocumentStatusCompleted}
	data, err := GenerateCertificate(CertificateInput{
		Document: doc,
		Recipients: []models.Recipient{
			{Name: "Ada Lovelace", Email: "ada@example.com", Role: models.RecipientRoleSigner, Status: models.RecipientStatusCompleted},
		},
		Events: []models.AuditEvent{
			{Action: models.AuditDocumentCreated, Actor: "system", CreatedAt: now},
			{Action: models.AuditFieldSigned, Actor: "ada@example.com", Detail: "typed", CreatedAt: now},
			{Action: models.AuditDocumentCompleted, Actor: "system", CreatedAt: now},
		},
		SealedAt: now,
	})
	require.NoError(t, err)

	n, err := PageCount(data)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	_, err = GenerateCertificate(CertificateInput{})
	assert.Error(t, err)
}
