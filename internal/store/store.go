// Package store persists users, documents, recipients, fields, signatures,
// and audit events in SQLite.
package store

import (
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/signetapp/signet/internal/models"
)

// ErrNotFound is returned when a lookup matches no record.
var ErrNotFound = errors.New("store: not found")

// ErrDuplicate is returned when an insert violates a uniqueness rule,
// such as registering an email twice.
var ErrDuplicate = errors.New("store: duplicate")

func wrapConstraint(err error) error {
	if err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed") {
		return ErrDuplicate
	}
	return err
}

// Store wraps the SQLite database. SQLite is effectively single-writer, so
// the connection pool is pinned to one connection and writes serialize
// through mu.
type Store struct {
	db *sql.DB
	mu sync.Mutex
}

// Open creates (or opens) the database under dataPath and bootstraps the
// schema.
func Open(dataPath string) (*Store, error) {
	dataPath = filepath.Clean(dataPath)
	if strings.TrimSpace(dataPath) == "" {
		return nil, fmt.Errorf("dataPath is required")
	}
	if err := os.MkdirAll(dataPath, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}

	dbPath := filepath.Join(dataPath, "signet.db")
	dsn := dbPath + "?" + url.Values{
		"_pragma": []string{
			"busy_timeout(30000)",
			"journal_mode(WAL)",
			"synchronous(NORMAL)",
			"foreign_keys(ON)",
		},
	}.Encode()

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	s := &Store{db: db}
	if err := s.initSchema(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// Close releases the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS users (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		email TEXT NOT NULL UNIQUE,
		name TEXT NOT NULL DEFAULT '',
		password_hash TEXT NOT NULL,
		totp_secret TEXT NOT NULL DEFAULT '',
		totp_enabled INTEGER NOT NULL DEFAULT 0,
		backup_codes TEXT NOT NULL DEFAULT '[]',
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL
	);
	CREATE TABLE IF NOT EXISTS documents (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		title TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'draft',
		data TEXT NOT NULL DEFAULT '',
		created_at INTEGER NOT NULL,
		completed_at INTEGER
	);
	CREATE INDEX IF NOT EXISTS idx_documents_user_id ON documents(user_id);
	CREATE TABLE IF NOT EXISTS recipients (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		document_id INTEGER NOT NULL REFERENCES documents(id) ON DELETE CASCADE,
		email TEXT NOT NULL,
		name TEXT NOT NULL DEFAULT '',
		role TEXT NOT NULL DEFAULT 'signer',
		token_hash TEXT NOT NULL UNIQUE,
		status TEXT NOT NULL DEFAULT 'pending',
		completed_at INTEGER
	);
	CREATE INDEX IF NOT EXISTS idx_recipients_document_id ON recipients(document_id);
	CREATE TABLE IF NOT EXISTS fields (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		document_id INTEGER NOT NULL REFERENCES documents(id) ON DELETE CASCADE,
		recipient_id INTEGER NOT NULL REFERENCES recipients(id) ON DELETE CASCADE,
		type TEXT NOT NULL,
		page INTEGER NOT NULL DEFAULT 0,
		x REAL NOT NULL,
		y REAL NOT NULL,
		inserted INTEGER NOT NULL DEFAULT 0
	);
	CREATE INDEX IF NOT EXISTS idx_fields_document_id ON fields(document_id);
	CREATE INDEX IF NOT EXISTS idx_fields_recipient_id ON fields(recipient_id);
	CREATE TABLE IF NOT EXISTS signatures (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		field_id INTEGER NOT NULL REFERENCES fields(id) ON DELETE CASCADE,
		recipient_id INTEGER NOT NULL REFERENCES recipients(id) ON DELETE CASCADE,
		image_data TEXT NOT NULL DEFAULT '',
		typed_text TEXT NOT NULL DEFAULT '',
		created_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_signatures_field_id ON signatures(field_id);
	CREATE TABLE IF NOT EXISTS audit_events (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		document_id INTEGER NOT NULL REFERENCES documents(id) ON DELETE CASCADE,
		actor TEXT NOT NULL,
		action TEXT NOT NULL,
		detail TEXT NOT NULL DEFAULT '',
		created_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_audit_events_document_id ON audit_events(document_id);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("init schema: %w", err)
	}
	return nil
}

// HashRecipientToken hashes a raw signing token for storage and lookup.
func HashRecipientToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// --- users ---

// CreateUser inserts a user and fills in its assigned id.
func (s *Store) CreateUser(u *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	codes, err := json.Marshal(u.BackupCodeHashes)
	if err != nil {
		return fmt.Errorf("marshal backup codes: %w", err)
	}
	res, err := s.db.Exec(
		`INSERT INTO users (email, name, password_hash, totp_secret, totp_enabled, backup_codes, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		strings.ToLower(strings.TrimSpace(u.Email)), u.Name, u.PasswordHash,
		u.TwoFactorSecret, boolInt(u.TwoFactorEnabled), string(codes),
		now.Unix(), now.Unix(),
	)
	if err != nil {
		return fmt.Errorf("create user: %w", wrapConstraint(err))
	}
	u.ID, _ = res.LastInsertId()
	u.CreatedAt = now
	u.UpdatedAt = now
	return nil
}

// GetUserByID loads a user by numeric id.
func (s *Store) GetUserByID(id int64) (*models.User, error) {
	return s.scanUser(s.db.QueryRow(userSelect+` WHERE id = ?`, id))
}

// GetUserByEmail loads a user by email (case-insensitive).
func (s *Store) GetUserByEmail(email string) (*models.User, error) {
	return s.scanUser(s.db.QueryRow(userSelect+` WHERE email = ?`,
		strings.ToLower(strings.TrimSpace(email))))
}

const userSelect = `SELECT id, email, name, password_hash, totp_secret, totp_enabled, backup_codes, created_at, updated_at FROM users`

func (s *Store) scanUser(row *sql.Row) (*models.User, error) {
	var u models.User
	var enabled int
	var codes string
	var created, updated int64
	err := row.Scan(&u.ID, &u.Email, &u.Name, &u.PasswordHash, &u.TwoFactorSecret,
		&enabled, &codes, &created, &updated)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("load user: %w", err)
	}
	u.TwoFactorEnabled = enabled != 0
	if err := json.Unmarshal([]byte(codes), &u.BackupCodeHashes); err != nil {
		u.BackupCodeHashes = nil
	}
	u.CreatedAt = time.Unix(created, 0).UTC()
	u.UpdatedAt = time.Unix(updated, 0).UTC()
	return &u, nil
}

// UpdateUserTwoFactor persists a user's two-factor enrollment state.
func (s *Store) UpdateUserTwoFactor(userID int64, secret string, enabled bool, backupCodeHashes []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	codes, err := json.Marshal(backupCodeHashes)
	if err != nil {
		return fmt.Errorf("marshal backup codes: %w", err)
	}
	res, err := s.db.Exec(
		`UPDATE users SET totp_secret = ?, totp_enabled = ?, backup_codes = ?, updated_at = ? WHERE id = ?`,
		secret, boolInt(enabled), string(codes), time.Now().UTC().Unix(), userID,
	)
	if err != nil {
		return fmt.Errorf("update two-factor state: %w", err)
	}
	return requireAffected(res)
}

// ConsumeBackupCode blanks the backup code hash at the given index so a
// used code cannot be replayed.
func (s *Store) ConsumeBackupCode(userID int64, index int) error {
	user, err := s.GetUserByID(userID)
	if err != nil {
		return err
	}
	if index < 0 || index >= len(user.BackupCodeHashes) {
		return fmt.Errorf("backup code index %d out of range", index)
	}
	user.BackupCodeHashes[index] = ""
	return s.UpdateUserTwoFactor(userID, user.TwoFactorSecret, user.TwoFactorEnabled, user.BackupCodeHashes)
}

// --- documents ---

// CreateDocument inserts a draft document owned by d.UserID.
func (s *Store) CreateDocument(d *models.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	if d.Status == "" {
		d.Status = models.DocumentStatusDraft
	}
	res, err := s.db.Exec(
		`INSERT INTO documents (user_id, title, status, data, created_at) VALUES (?, ?, ?, ?, ?)`,
		d.UserID, d.Title, string(d.Status), d.Data, now.Unix(),
	)
	if err != nil {
		return fmt.Errorf("create document: %w", err)
	}
	d.ID, _ = res.LastInsertId()
	d.CreatedAt = now
	return nil
}

const documentSelect = `SELECT id, user_id, title, status, data, created_at, completed_at FROM documents`

// GetDocument loads a document by id scoped to its owner. A document owned
// by a different user is reported as ErrNotFound, not as a permission
// error, so handlers cannot leak existence.
func (s *Store) GetDocument(id, ownerID int64) (*models.Document, error) {
	return s.scanDocument(s.db.QueryRow(documentSelect+` WHERE id = ? AND user_id = ?`, id, ownerID))
}

// GetDocumentByID loads a document without owner scoping (signing flows).
func (s *Store) GetDocumentByID(id int64) (*models.Document, error) {
	return s.scanDocument(s.db.QueryRow(documentSelect+` WHERE id = ?`, id))
}

func (s *Store) scanDocument(row *sql.Row) (*models.Document, error) {
	var d models.Document
	var status string
	var created int64
	var completed sql.NullInt64
	err := row.Scan(&d.ID, &d.UserID, &d.Title, &status, &d.Data, &created, &completed)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("load document: %w", err)
	}
	d.Status = models.DocumentStatus(status)
	d.CreatedAt = time.Unix(created, 0).UTC()
	if completed.Valid {
		t := time.Unix(completed.Int64, 0).UTC()
		d.CompletedAt = &t
	}
	return &d, nil
}

// ListDocuments returns the owner's documents, newest first, without PDF
// payloads.
func (s *Store) ListDocuments(ownerID int64) ([]*models.Document, error) {
	rows, err := s.db.Query(
		`SELECT id, user_id, title, status, created_at, completed_at FROM documents
		 WHERE user_id = ? ORDER BY created_at DESC, id DESC`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	defer rows.Close()

	var docs []*models.Document
	for rows.Next() {
		var d models.Document
		var status string
		var created int64
		var completed sql.NullInt64
		if err := rows.Scan(&d.ID, &d.UserID, &d.Title, &status, &created, &completed); err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		d.Status = models.DocumentStatus(status)
		d.CreatedAt = time.Unix(created, 0).UTC()
		if completed.Valid {
			t := time.Unix(completed.Int64, 0).UTC()
			d.CompletedAt = &t
		}
		docs = append(docs, &d)
	}
	return docs, rows.Err()
}

// UpdateDocumentData replaces the stored base64 PDF payload.
func (s *Store) UpdateDocumentData(id int64, data string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.Exec(`UPDATE documents SET data = ? WHERE id = ?`, data, id)
	if err != nil {
		return fmt.Errorf("update document data: %w", err)
	}
	return requireAffected(res)
}

// UpdateDocumentStatus moves a document through its lifecycle.
func (s *Store) UpdateDocumentStatus(id int64, status models.DocumentStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var completed interface{}
	if status == models.DocumentStatusCompleted {
		completed = time.Now().UTC().Unix()
	}
	res, err := s.db.Exec(`UPDATE documents SET status = ?, completed_at = ? WHERE id = ?`,
		string(status), completed, id)
	if err != nil {
		return fmt.Errorf("update document status: %w", err)
	}
	return requireAffected(res)
}

// DeleteDocument removes an owner's document and, via foreign keys, its
// recipients, fields, signatures, and audit trail.
func (s *Store) DeleteDocument(id, ownerID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.Exec(`DELETE FROM documents WHERE id = ? AND user_id = ?`, id, ownerID)
	if err != nil {
		return fmt.Errorf("delete document: %w", err)
	}
	return requireAffected(res)
}

// --- recipients ---

// CreateRecipient inserts a recipient. r.Token must hold the raw signing
// token; only its hash is stored.
func (s *Store) CreateRecipient(r *models.Recipient) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if r.Role == "" {
		r.Role = models.RecipientRoleSigner
	}
	if r.Status == "" {
		r.Status = models.RecipientStatusPending
	}
	res, err := s.db.Exec(
		`INSERT INTO recipients (document_id, email, name, role, token_hash, status) VALUES (?, ?, ?, ?, ?, ?)`,
		r.DocumentID, strings.ToLower(strings.TrimSpace(r.Email)), r.Name,
		string(r.Role), HashRecipientToken(r.Token), string(r.Status),
	)
	if err != nil {
		return fmt.Errorf("create recipient: %w", wrapConstraint(err))
	}
	r.ID, _ = res.LastInsertId()
	return nil
}

// UpdateRecipientToken replaces the stored token hash. Raw tokens are
// minted when a document is sent, so re-sending invalidates old links.
func (s *Store) UpdateRecipientToken(id int64, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.Exec(`UPDATE recipients SET token_hash = ? WHERE id = ?`,
		HashRecipientToken(token), id)
	if err != nil {
		return fmt.Errorf("update recipient token: %w", wrapConstraint(err))
	}
	return requireAffected(res)
}

const recipientSelect = `SELECT id, document_id, email, name, role, status, completed_at FROM recipients`

// GetRecipientByToken resolves a raw signing token to its recipient.
func (s *Store) GetRecipientByToken(token string) (*models.Recipient, error) {
	return s.scanRecipient(s.db.QueryRow(recipientSelect+` WHERE token_hash = ?`, HashRecipientToken(token)))
}

// GetRecipient loads a recipient by id.
func (s *Store) GetRecipient(id int64) (*models.Recipient, error) {
	return s.scanRecipient(s.db.QueryRow(recipientSelect+` WHERE id = ?`, id))
}

func (s *Store) scanRecipient(row *sql.Row) (*models.Recipient, error) {
	var r models.Recipient
	var role, status string
	var completed sql.NullInt64
	err := row.Scan(&r.ID, &r.DocumentID, &r.Email, &r.Name, &role, &status, &completed)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("load recipient: %w", err)
	}
	r.Role = models.RecipientRole(role)
	r.Status = models.RecipientStatus(status)
	if completed.Valid {
		t := time.Unix(completed.Int64, 0).UTC()
		r.CompletedAt = &t
	}
	return &r, nil
}

// ListRecipients returns a document's recipients in insertion order.
func (s *Store) ListRecipients(documentID int64) ([]*models.Recipient, error) {
	rows, err := s.db.Query(recipientSelect+` WHERE document_id = ? ORDER BY id`, documentID)
	if err != nil {
		return nil, fmt.Errorf("list recipients: %w", err)
	}
	defer rows.Close()

	var recipients []*models.Recipient
	for rows.Next() {
		var r models.Recipient
		var role, status string
		var completed sql.NullInt64
		if err := rows.Scan(&r.ID, &r.DocumentID, &r.Email, &r.Name, &role, &status, &completed); err != nil {
			return nil, fmt.Errorf("scan recipient: %w", err)
		}
		r.Role = models.RecipientRole(role)
		r.Status = models.RecipientStatus(status)
		if completed.Valid {
			t := time.Unix(completed.Int64, 0).UTC()
			r.CompletedAt = &t
		}
		recipients = append(recipients, &r)
	}
	return recipients, rows.Err()
}

// UpdateRecipientStatus advances a recipient's signing progress.
func (s *Store) UpdateRecipientStatus(id int64, status models.RecipientStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var completed interface{}
	if status == models.RecipientStatusCompleted {
		completed = time.Now().UTC().Unix()
	}
	res, err := s.db.Exec(`UPDATE recipients SET status = ?, completed_at = ? WHERE id = ?`,
		string(status), completed, id)
	if err != nil {
		return fmt.Errorf("update recipient status: %w", err)
	}
	return requireAffected(res)
}

// DeleteRecipient removes a recipient and its fields.
func (s *Store) DeleteRecipient(id, documentID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.Exec(`DELETE FROM recipients WHERE id = ? AND document_id = ?`, id, documentID)
	if err != nil {
		return fmt.Errorf("delete recipient: %w", err)
	}
	return requireAffected(res)
}

// --- fields ---

// CreateField inserts a positioned field.
func (s *Store) CreateField(f *models.Field) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.Exec(
		`INSERT INTO fields (document_id, recipient_id, type, page, x, y, inserted) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		f.DocumentID, f.RecipientID, string(f.Type), f.Page, f.X, f.Y, boolInt(f.Inserted),
	)
	if err != nil {
		return fmt.Errorf("create field: %w", err)
	}
	f.ID, _ = res.LastInsertId()
	return nil
}

const fieldSelect = `SELECT id, document_id, recipient_id, type, page, x, y, inserted FROM fields`

// GetField loads a field by id.
func (s *Store) GetField(id int64) (*models.Field, error) {
	row := s.db.QueryRow(fieldSelect+` WHERE id = ?`, id)
	var f models.Field
	var ftype string
	var inserted int
	err := row.Scan(&f.ID, &f.DocumentID, &f.RecipientID, &ftype, &f.Page, &f.X, &f.Y, &inserted)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("load field: %w", err)
	}
	f.Type = models.FieldType(ftype)
	f.Inserted = inserted != 0
	return &f, nil
}

// ListFields returns a document's fields in insertion order.
func (s *Store) ListFields(documentID int64) ([]*models.Field, error) {
	rows, err := s.db.Query(fieldSelect+` WHERE document_id = ? ORDER BY id`, documentID)
	if err != nil {
		return nil, fmt.Errorf("list fields: %w", err)
	}
	defer rows.Close()

	var fields []*models.Field
	for rows.Next() {
		var f models.Field
		var ftype string
		var inserted int
		if err := rows.Scan(&f.ID, &f.DocumentID, &f.RecipientID, &ftype, &f.Page, &f.X, &f.Y, &inserted); err != nil {
			return nil, fmt.Errorf("scan field: %w", err)
		}
		f.Type = models.FieldType(ftype)
		f.Inserted = inserted != 0
		fields = append(fields, &f)
	}
	return fields, rows.Err()
}

// MarkFieldInserted flags a field as signed.
func (s *Store) MarkFieldInserted(id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.Exec(`UPDATE fields SET inserted = 1 WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("mark field inserted: %w", err)
	}
	return requireAffected(res)
}

// DeleteField removes an unsigned field.
func (s *Store) DeleteField(id, documentID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.Exec(`DELETE FROM fields WHERE id = ? AND document_id = ? AND inserted = 0`, id, documentID)
	if err != nil {
		return fmt.Errorf("delete field: %w", err)
	}
	return requireAffected(res)
}

// --- signatures ---

// CreateSignature records the value placed into a field.
func (s *Store) CreateSignature(sig *models.Signature) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	res, err := s.db.Exec(
		`INSERT INTO signatures (field_id, recipient_id, image_data, typed_text, created_at) VALUES (?, ?, ?, ?, ?)`,
		sig.FieldID, sig.RecipientID, sig.ImageData, sig.TypedText, now.Unix(),
	)
	if err != nil {
		return fmt.Errorf("create signature: %w", err)
	}
	sig.ID, _ = res.LastInsertId()
	sig.CreatedAt = now
	return nil
}

// GetSignatureByField loads the signature stored for a field, if any.
func (s *Store) GetSignatureByField(fieldID int64) (*models.Signature, error) {
	row := s.db.QueryRow(
		`SELECT id, field_id, recipient_id, image_data, typed_text, created_at FROM signatures WHERE field_id = ?`,
		fieldID)
	var sig models.Signature
	var created int64
	err := row.Scan(&sig.ID, &sig.FieldID, &sig.RecipientID, &sig.ImageData, &sig.TypedText, &created)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("load signature: %w", err)
	}
	sig.CreatedAt = time.Unix(created, 0).UTC()
	return &sig, nil
}

// --- audit ---

// AppendAudit records a document history event.
func (s *Store) AppendAudit(documentID int64, actor, action, detail string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(
		`INSERT INTO audit_events (document_id, actor, action, detail, created_at) VALUES (?, ?, ?, ?, ?)`,
		documentID, actor, action, detail, time.Now().UTC().Unix(),
	)
	if err != nil {
		return fmt.Errorf("append audit event: %w", err)
	}
	return nil
}

// ListAudit returns a document's history, oldest first.
func (s *Store) ListAudit(documentID int64) ([]*models.AuditEvent, error) {
	rows, err := s.db.Query(
		`SELECT id, document_id, actor, action, detail, created_at FROM audit_events
		 WHERE document_id = ? ORDER BY id`, documentID)
	if err != nil {
		return nil, fmt.Errorf("list audit events: %w", err)
	}
	defer rows.Close()

	var events []*models.AuditEvent
	for rows.Next() {
		var e models.AuditEvent
		var created int64
		if err := rows.Scan(&e.ID, &e.DocumentID, &e.Actor, &e.Action, &e.Detail, &created); err != nil {
			return nil, fmt.Errorf("scan audit event: %w", err)
		}
		e.CreatedAt = time.Unix(created, 0).UTC()
		events = append(events, &e)
	}
	return events, rows.Err()
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func requireAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
