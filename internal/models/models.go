// Package models defines the core record types shared across the service.
package models

import "time"

// DocumentStatus tracks a document through its signing lifecycle.
type DocumentStatus string

const (
	DocumentStatusDraft     DocumentStatus = "draft"
	DocumentStatusPending   DocumentStatus = "pending"
	DocumentStatusCompleted DocumentStatus = "completed"
)

// RecipientRole distinguishes signers from view-only recipients.
type RecipientRole string

const (
	RecipientRoleSigner RecipientRole = "signer"
	RecipientRoleViewer RecipientRole = "viewer"
)

// RecipientStatus tracks a recipient's progress on a document.
type RecipientStatus string

const (
	RecipientStatusPending   RecipientStatus = "pending"
	RecipientStatusOpened    RecipientStatus = "opened"
	RecipientStatusCompleted RecipientStatus = "completed"
)

// FieldType identifies the kind of placeholder positioned on a page.
type FieldType string

const (
	FieldTypeSignature FieldType = "signature"
	FieldTypeText      FieldType = "text"
	FieldTypeDate      FieldType = "date"
)

// User is an account holder who can own and sign documents.
type User struct {
	ID               int64     `json:"id"`
	Email            string    `json:"email"`
	Name             string    `json:"name"`
	PasswordHash     string    `json:"-"`
	TwoFactorSecret  string    `json:"-"`
	TwoFactorEnabled bool      `json:"twoFactorEnabled"`
	BackupCodeHashes []string  `json:"-"`
	CreatedAt        time.Time `json:"createdAt"`
	UpdatedAt        time.Time `json:"updatedAt"`
}

// Document is an uploaded PDF plus its signing state. Data holds the PDF
// bytes base64-encoded, matching how records are persisted.
type Document struct {
	ID          int64          `json:"id"`
	UserID      int64          `json:"userId"`
	Title       string         `json:"title"`
	Status      DocumentStatus `json:"status"`
	Data        string         `json:"-"`
	CreatedAt   time.Time      `json:"createdAt"`
	CompletedAt *time.Time     `json:"completedAt,omitempty"`
}

// Recipient is a party who must sign or view a document. Token is the
// opaque signing-link identifier; the raw value is only ever handed to the
// recipient, the store keeps a hash.
type Recipient struct {
	ID          int64           `json:"id"`
	DocumentID  int64           `json:"documentId"`
	Email       string          `json:"email"`
	Name        string          `json:"name"`
	Role        RecipientRole   `json:"role"`
	Token       string          `json:"-"`
	Status      RecipientStatus `json:"status"`
	CompletedAt *time.Time      `json:"completedAt,omitempty"`
}

// Field is a positioned placeholder on a document page assigned to a
// recipient. Page is zero-based; X and Y are PDF points from the page's
// bottom-left corner.
type Field struct {
	ID          int64     `json:"id"`
	DocumentID  int64     `json:"documentId"`
	RecipientID int64     `json:"recipientId"`
	Type        FieldType `json:"type"`
	Page        int       `json:"page"`
	X           float64   `json:"x"`
	Y           float64   `json:"y"`
	Inserted    bool      `json:"inserted"`
}

// Signature is the value a recipient placed into a field: either a drawn
// image (PNG data-URL) or typed text, never both.
type Signature struct {
	ID          int64     `json:"id"`
	FieldID     int64     `json:"fieldId"`
	RecipientID int64     `json:"recipientId"`
	ImageData   string    `json:"-"`
	TypedText   string    `json:"typedText,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}

// IsImage reports whether the signature carries drawn image data.
func (s *Signature) IsImage() bool {
	return s.ImageData != ""
}

// AuditEvent records one step of a document's signing history.
type AuditEvent struct {
	ID         int64     `json:"id"`
	DocumentID int64     `json:"documentId"`
	Actor      string    `json:"actor"`
	Action     string    `json:"action"`
	Detail     string    `json:"detail,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
}

// Audit actions recorded by the service.
const (
	AuditDocumentCreated   = "document.created"
	AuditDocumentSent      = "document.sent"
	AuditDocumentViewed    = "document.viewed"
	AuditFieldSigned       = "field.signed"
	AuditRecipientComplete = "recipient.completed"
	AuditDocumentCompleted = "document.completed"
)
