package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/signetapp/signet/internal/models"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func createTestUser(t *testing.T, s *Store, email string) *models.User {
	t.Helper()
	u := &models.User{Email: email, Name: "Test User", PasswordHash: "$2a$12$fake"}
	require.NoError(t, s.CreateUser(u))
	return u
}

func TestUserRoundTrip(t *testing.T) {
	s := newTestStore(t)

	u := createTestUser(t, s, "Owner@Example.com")
	require.NotZero(t, u.ID)

	byID, err := s.GetUserByID(u.ID)
	require.NoError(t, err)
	assert.Equal(t, "owner@example.com", byID.Email, "emails stored lowercased")

	byEmail, err := s.GetUserByEmail("OWNER@example.COM")
	require.NoError(t, err)
	assert.Equal(t, u.ID, byEmail.ID)

	_, err = s.GetUserByID(9999)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUserDuplicateEmail(t *testing.T) {
	s := newTestStore(t)
	createTestUser(t, s, "dup@example.com")
	err := s.CreateUser(&models.User{Email: "dup@example.com", PasswordHash: "x"})
	assert.Error(t, err)
}

func TestUpdateUserTwoFactorAndConsumeBackupCode(t *testing.T) {
	s := newTestStore(t)
	u := createTestUser(t, s, "tfa@example.com")

	hashes := []string{"hash-a", "hash-b", "hash-c"}
	require.NoError(t, s.UpdateUserTwoFactor(u.ID, "SECRET", true, hashes))

	loaded, err := s.GetUserByID(u.ID)
	require.NoError(t, err)
	assert.True(t, loaded.TwoFactorEnabled)
	assert.Equal(t, "SECRET", loaded.TwoFactorSecret)
	assert.Equal(t, hashes, loaded.BackupCodeHashes)

	require.NoError(t, s.ConsumeBackupCode(u.ID, 1))
	loaded, err = s.GetUserByID(u.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"hash-a", "", "hash-c"}, loaded.BackupCodeHashes)

	assert.Error(t, s.ConsumeBackupCode(u.ID, 10))
}

func TestDocumentOwnerScoping(t *testing.T) {
	s := newTestStore(t)
	owner := createTestUser(t, s, "owner@example.com")
	other := createTestUser(t, s, "other@example.com")

	doc := &models.Document{UserID: owner.ID, Title: "NDA", Data: "cGRm"}
	require.NoError(t, s.CreateDocument(doc))
	assert.Equal(t, models.DocumentStatusDraft, doc.Status)

	got, err := s.GetDocument(doc.ID, owner.ID)
	require.NoError(t, err)
	assert.Equal(t, "NDA", got.Title)
	assert.Equal(t, "cGRm", got.Data)

	// Another user's lookup reports not-found, never the document.
	_, err = s.GetDocument(doc.ID, other.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListDocumentsNewestFirst(t *testing.T) {
	s := newTestStore(t)
	owner := createTestUser(t, s, "owner@example.com")

	for _, title := range []string{"first", "second", "third"} {
		require.NoError(t, s.CreateDocument(&models.Document{UserID: owner.ID, Title: title}))
	}

	docs, err := s.ListDocuments(owner.ID)
	require.NoError(t, err)
	require.Len(t, docs, 3)
	assert.Equal(t, "third", docs[0].Title)
	assert.Equal(t, "first", docs[2].Title)
	assert.Empty(t, docs[0].Data, "listing omits PDF payloads")
}

func TestDocumentStatusLifecycle(t *testing.T) {
	s := newTestStore(t)
	owner := createTestUser(t, s, "owner@example.com")

	doc := &models.Document{UserID: owner.ID, Title: "Contract"}
	require.NoError(t, s.CreateDocument(doc))

	require.NoError(t, s.UpdateDocumentStatus(doc.ID, models.DocumentStatusPending))
	got, err := s.GetDocument(doc.ID, owner.ID)
	require.NoError(t, err)
	assert.Equal(t, models.DocumentStatusPending, got.Status)
	assert.Nil(t, got.CompletedAt)

	require.NoError(t, s.UpdateDocumentStatus(doc.ID, models.DocumentStatusCompleted))
	got, err = s.GetDocument(doc.ID, owner.ID)
	require.NoError(t, err)
	assert.Equal(t, models.DocumentStatusCompleted, got.Status)
	require.NotNil(t, got.CompletedAt)
}

func TestRecipientTokenHashing(t *testing.T) {
	s := newTestStore(t)
	owner := createTestUser(t, s, "owner@example.com")
	doc := &models.Document{UserID: owner.ID, Title: "Contract"}
	require.NoError(t, s.CreateDocument(doc))

	rcp := &models.Recipient{
		DocumentID: doc.ID,
		Email:      "Signer@Example.com",
		Name:       "Signer",
		Token:      "raw-signing-token",
	}
	require.NoError(t, s.CreateRecipient(rcp))

	// Lookup works with the raw token.
	got, err := s.GetRecipientByToken("raw-signing-token")
	require.NoError(t, err)
	assert.Equal(t, rcp.ID, got.ID)
	assert.Equal(t, "signer@example.com", got.Email)
	assert.Equal(t, models.RecipientStatusPending, got.Status)

	// The raw token is never stored.
	var stored string
	require.NoError(t, s.db.QueryRow(`SELECT token_hash FROM recipients WHERE id = ?`, rcp.ID).Scan(&stored))
	assert.Equal(t, HashRecipientToken("raw-signing-token"), stored)
	assert.NotEqual(t, "raw-signing-token", stored)

	_, err = s.GetRecipientByToken("wrong-token")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFieldsAndSignatures(t *testing.T) {
	s := newTestStore(t)
	owner := createTestUser(t, s, "owner@example.com")
	doc := &models.Document{UserID: owner.ID, Title: "Contract"}
	require.NoError(t, s.CreateDocument(doc))
	rcp := &models.Recipient{DocumentID: doc.ID, Email: "s@example.com", Token: "tok"}
	require.NoError(t, s.CreateRecipient(rcp))

	field := &models.Field{
		DocumentID:  doc.ID,
		RecipientID: rcp.ID,
		Type:        models.FieldTypeSignature,
		Page:        0,
		X:           77,
		Y:           638,
	}
	require.NoError(t, s.CreateField(field))

	fields, err := s.ListFields(doc.ID)
	require.NoError(t, err)
	require.Len(t, fields, 1)
	assert.False(t, fields[0].Inserted)
	assert.Equal(t, 77.0, fields[0].X)

	sig := &models.Signature{FieldID: field.ID, RecipientID: rcp.ID, TypedText: "Jane Signer"}
	require.NoError(t, s.CreateSignature(sig))
	require.NoError(t, s.MarkFieldInserted(field.ID))

	got, err := s.GetSignatureByField(field.ID)
	require.NoError(t, err)
	assert.Equal(t, "Jane Signer", got.TypedText)
	assert.False(t, got.IsImage())

	loaded, err := s.GetField(field.ID)
	require.NoError(t, err)
	assert.True(t, loaded.Inserted)

	// Signed fields cannot be deleted.
	assert.ErrorIs(t, s.DeleteField(field.ID, doc.ID), ErrNotFound)
}

func TestDeleteDocumentCascades(t *testing.T) {
	s := newTestStore(t)
	owner := createTestUser(t, s, "owner@example.com")
	doc := &models.Document{UserID: owner.ID, Title: "Contract"}
	require.NoError(t, s.CreateDocument(doc))
	rcp := &models.Recipient{DocumentID: doc.ID, Email: "s@example.com", Token: "tok"}
	require.NoError(t, s.CreateRecipient(rcp))
	require.NoError(t, s.CreateField(&models.Field{DocumentID: doc.ID, RecipientID: rcp.ID, Type: models.FieldTypeSignature}))
	require.NoError(t, s.AppendAudit(doc.ID, "owner@example.com", models.AuditDocumentCreated, ""))

	require.NoError(t, s.DeleteDocument(doc.ID, owner.ID))

	_, err := s.GetRecipientByToken("tok")
	assert.ErrorIs(t, err, ErrNotFound)
	fields, err := s.ListFields(doc.ID)
	require.NoError(t, err)
	assert.Empty(t, fields)
}

func TestAuditTrailOrder(t *testing.T) {
	s := newTestStore(t)
	owner := createTestUser(t, s, "owner@example.com")
	doc := &models.Document{UserID: owner.ID, Title: "Contract"}
	require.NoError(t, s.CreateDocument(doc))

	require.NoError(t, s.AppendAudit(doc.ID, "owner@example.com", models.AuditDocumentCreated, ""))
	require.NoError(t, s.AppendAudit(doc.ID, "owner@example.com", models.AuditDocumentSent, "2 recipients"))

	events, err := s.ListAudit(doc.ID)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, models.AuditDocumentCreated, events[0].Action)
	assert.Equal(t, models.AuditDocumentSent, events[1].Action)
	assert.Equal(t, "2 recipients", events[1].Detail)
}
