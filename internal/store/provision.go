package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/signetapp/signet/internal/models"
)

// PledgeProvision describes the record set created for a landing-page
// pledge purchase: a completed document, the purchaser as its sole signed
// recipient, one signature field, and the signature value itself.
type PledgeProvision struct {
	User           *models.User
	Title          string
	Data           string // base64 of the stamped PDF
	RecipientToken string // raw signing token for the purchaser
	FieldPage      int
	FieldX         float64
	FieldY         float64
	SignatureImage string // data-URL; empty when the name was typed
	TypedText      string
}

// ProvisionPledge creates the document, recipient, field, and signature in
// a single transaction. A failure at any step rolls the whole set back, so
// a half-provisioned pledge can never be observed.
func (s *Store) ProvisionPledge(ctx context.Context, p PledgeProvision) (*models.Document, error) {
	if p.User == nil {
		return nil, fmt.Errorf("provision pledge: user is required")
	}
	if strings.TrimSpace(p.RecipientToken) == "" {
		return nil, fmt.Errorf("provision pledge: recipient token is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin provision tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	now := time.Now().UTC()

	docRes, err := tx.ExecContext(ctx,
		`INSERT INTO documents (user_id, title, status, data, created_at, completed_at) VALUES (?, ?, ?, ?, ?, ?)`,
		p.User.ID, p.Title, string(models.DocumentStatusCompleted), p.Data, now.Unix(), now.Unix(),
	)
	if err != nil {
		return nil, fmt.Errorf("provision document: %w", err)
	}
	docID, _ := docRes.LastInsertId()

	rcpRes, err := tx.ExecContext(ctx,
		`INSERT INTO recipients (document_id, email, name, role, token_hash, status, completed_at) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		docID, strings.ToLower(strings.TrimSpace(p.User.Email)), p.User.Name,
		string(models.RecipientRoleSigner), HashRecipientToken(p.RecipientToken),
		string(models.RecipientStatusCompleted), now.Unix(),
	)
	if err != nil {
		return nil, fmt.Errorf("provision recipient: %w", err)
	}
	rcpID, _ := rcpRes.LastInsertId()

	fieldRes, err := tx.ExecContext(ctx,
		`INSERT INTO fields (document_id, recipient_id, type, page, x, y, inserted) VALUES (?, ?, ?, ?, ?, ?, 1)`,
		docID, rcpID, string(models.FieldTypeSignature), p.FieldPage, p.FieldX, p.FieldY,
	)
	if err != nil {
		return nil, fmt.Errorf("provision field: %w", err)
	}
	fieldID, _ := fieldRes.LastInsertId()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO signatures (field_id, recipient_id, image_data, typed_text, created_at) VALUES (?, ?, ?, ?, ?)`,
		fieldID, rcpID, p.SignatureImage, p.TypedText, now.Unix(),
	); err != nil {
		return nil, fmt.Errorf("provision signature: %w", err)
	}

	detail := "typed"
	if p.SignatureImage != "" {
		detail = "drawn"
	}
	audit := [][3]string{
		{p.User.Email, models.AuditDocumentCreated, "pledge checkout"},
		{p.User.Email, models.AuditFieldSigned, detail},
		{p.User.Email, models.AuditDocumentCompleted, ""},
	}
	for _, ev := range audit {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO audit_events (document_id, actor, action, detail, created_at) VALUES (?, ?, ?, ?, ?)`,
			docID, ev[0], ev[1], ev[2], now.Unix(),
		); err != nil {
			return nil, fmt.Errorf("provision audit event: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit provision tx: %w", err)
	}

	completed := now
	return &models.Document{
		ID:          docID,
		UserID:      p.User.ID,
		Title:       p.Title,
		Status:      models.DocumentStatusCompleted,
		Data:        p.Data,
		CreatedAt:   now,
		CompletedAt: &completed,
	}, nil
}
