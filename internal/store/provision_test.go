package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/signetapp/signet/internal/models"
)

func TestProvisionPledgeCreatesFullRecordSet(t *testing.T) {
	s := newTestStore(t)
	user := createTestUser(t, s, "pledge@example.com")

	doc, err := s.ProvisionPledge(context.Background(), PledgeProvision{
		User:           user,
		Title:          "Founding Supporter Pledge",
		Data:           "cGRmLWJ5dGVz",
		RecipientToken: "pledge-token",
		FieldPage:      0,
		FieldX:         77,
		FieldY:         638,
		SignatureImage: "data:image/png;base64,iVBORw0KGgo=",
	})
	require.NoError(t, err)
	require.NotZero(t, doc.ID)
	assert.Equal(t, models.DocumentStatusCompleted, doc.Status)
	require.NotNil(t, doc.CompletedAt)

	// Document persisted with the stamped payload.
	loaded, err := s.GetDocument(doc.ID, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "cGRmLWJ5dGVz", loaded.Data)

	// Recipient is the purchaser, already completed.
	rcp, err := s.GetRecipientByToken("pledge-token")
	require.NoError(t, err)
	assert.Equal(t, doc.ID, rcp.DocumentID)
	assert.Equal(t, models.RecipientStatusCompleted, rcp.Status)
	require.NotNil(t, rcp.CompletedAt)

	// One inserted signature field at the pledge coordinates.
	fields, err := s.ListFields(doc.ID)
	require.NoError(t, err)
	require.Len(t, fields, 1)
	assert.True(t, fields[0].Inserted)
	assert.Equal(t, 0, fields[0].Page)
	assert.Equal(t, 77.0, fields[0].X)
	assert.Equal(t, 638.0, fields[0].Y)

	sig, err := s.GetSignatureByField(fields[0].ID)
	require.NoError(t, err)
	assert.True(t, sig.IsImage())

	// Audit trail covers creation, signing, and completion.
	events, err := s.ListAudit(doc.ID)
	require.NoError(t, err)
	require.Len(t, events, 3)
	assert.Equal(t, models.AuditDocumentCreated, events[0].Action)
	assert.Equal(t, models.AuditFieldSigned, events[1].Action)
	assert.Equal(t, "drawn", events[1].Detail)
	assert.Equal(t, models.AuditDocumentCompleted, events[2].Action)
}

func TestProvisionPledgeTypedSignature(t *testing.T) {
	s := newTestStore(t)
	user := createTestUser(t, s, "typed@example.com")

	doc, err := s.ProvisionPledge(context.Background(), PledgeProvision{
		User:           user,
		Title:          "Founding Supporter Pledge",
		Data:           "cGRm",
		RecipientToken: "typed-token",
		TypedText:      "Alex Doe",
	})
	require.NoError(t, err)

	fields, err := s.ListFields(doc.ID)
	require.NoError(t, err)
	require.Len(t, fields, 1)

	sig, err := s.GetSignatureByField(fields[0].ID)
	require.NoError(t, err)
	assert.False(t, sig.IsImage())
	assert.Equal(t, "Alex Doe", sig.TypedText)

	events, err := s.ListAudit(doc.ID)
	require.NoError(t, err)
	assert.Equal(t, "typed", events[1].Detail)
}

func TestProvisionPledgeValidation(t *testing.T) {
	s := newTestStore(t)
	user := createTestUser(t, s, "v@example.com")

	_, err := s.ProvisionPledge(context.Background(), PledgeProvision{Title: "x", RecipientToken: "t"})
	assert.Error(t, err, "user required")

	_, err = s.ProvisionPledge(context.Background(), PledgeProvision{User: user, Title: "x"})
	assert.Error(t, err, "recipient token required")
}

func TestProvisionPledgeRollsBackOnFailure(t *testing.T) {
	s := newTestStore(t)
	user := createTestUser(t, s, "rb@example.com")

	first, err := s.ProvisionPledge(context.Background(), PledgeProvision{
		User: user, Title: "Pledge", RecipientToken: "same-token", TypedText: "A",
	})
	require.NoError(t, err)

	// Reusing the token violates the recipients unique constraint partway
	// through the transaction; the second document must not survive.
	_, err = s.ProvisionPledge(context.Background(), PledgeProvision{
		User: user, Title: "Pledge Again", RecipientToken: "same-token", TypedText: "B",
	})
	require.Error(t, err)

	docs, err := s.ListDocuments(user.ID)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, first.ID, docs[0].ID)
}
