package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	_ "modernc.org/sqlite"
)

const sessionCleanupInterval = 5 * time.Minute

// SessionStore persists login sessions in SQLite.
//
// Sessions are identified by token_hash (SHA-256 of the raw token), encoded
// as hex text. The raw token only exists in the client's cookie.
type SessionStore struct {
	db  *sql.DB
	ttl time.Duration

	stopCleanup chan struct{}
	mu          sync.Mutex
}

func sessionHash(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// NewSessionStore opens (or creates) the session database under dataPath.
func NewSessionStore(dataPath string, ttl time.Duration) (*SessionStore, error) {
	dataPath = filepath.Clean(dataPath)
	if strings.TrimSpace(dataPath) == "" {
		return nil, fmt.Errorf("dataPath is required")
	}
	if err := os.MkdirAll(dataPath, 0o755); err != nil {
		return nil, fmt.Errorf("create session data dir: %w", err)
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}

	dbPath := filepath.Join(dataPath, "sessions.db")
	dsn := dbPath + "?" + url.Values{
		"_pragma": []string{
			"busy_timeout(30000)",
			"journal_mode(WAL)",
			"synchronous(NORMAL)",
		},
	}.Encode()

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open session db: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	s := &SessionStore{
		db:          db,
		ttl:         ttl,
		stopCleanup: make(chan struct{}),
	}
	if err := s.initSchema(); err != nil {
		_ = db.Close()
		return nil, err
	}

	go s.cleanupLoop()

	return s, nil
}

func (s *SessionStore) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS sessions (
		token_hash TEXT PRIMARY KEY,
		user_id INTEGER NOT NULL,
		expires_at INTEGER NOT NULL,
		created_at INTEGER NOT NULL,
		user_agent TEXT,
		ip TEXT
	);
	CREATE INDEX IF NOT EXISTS idx_sessions_expires_at ON sessions(expires_at);
	CREATE INDEX IF NOT EXISTS idx_sessions_user_id ON sessions(user_id);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("init session schema: %w", err)
	}
	return nil
}

func (s *SessionStore) cleanupLoop() {
	ticker := time.NewTicker(sessionCleanupInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			s.DeleteExpired(time.Now().UTC())
		case <-s.stopCleanup:
			return
		}
	}
}

// Stop halts the cleanup loop and closes the database.
func (s *SessionStore) Stop() {
	if s == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	select {
	case <-s.stopCleanup:
		// already stopped
	default:
		close(s.stopCleanup)
	}
	if s.db != nil {
		_ = s.db.Close()
		s.db = nil
	}
}

// Create mints a new session token for the user and stores its hash.
func (s *SessionStore) Create(userID int64, userAgent, ip string) (string, error) {
	if s == nil || s.db == nil {
		return "", fmt.Errorf("session store not configured")
	}

	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return "", fmt.Errorf("generate session token: %w", err)
	}
	token := hex.EncodeToString(raw)

	now := time.Now().UTC()
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.Exec(
		`INSERT INTO sessions (token_hash, user_id, expires_at, created_at, user_agent, ip)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		sessionHash(token),
		userID,
		now.Add(s.ttl).Unix(),
		now.Unix(),
		userAgent,
		ip,
	)
	if err != nil {
		return "", fmt.Errorf("create session: %w", err)
	}
	return token, nil
}

// Validate checks a session token and, when valid, extends its expiry
// (sliding window). It returns the owning user's id.
func (s *SessionStore) Validate(token string) (int64, error) {
	if s == nil || s.db == nil || token == "" {
		return 0, ErrSessionExpired
	}
	key := sessionHash(token)
	now := time.Now().UTC()

	s.mu.Lock()
	defer s.mu.Unlock()

	var userID, expiresAt int64
	row := s.db.QueryRow(`SELECT user_id, expires_at FROM sessions WHERE token_hash = ?`, key)
	if err := row.Scan(&userID, &expiresAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, ErrSessionExpired
		}
		return 0, fmt.Errorf("load session: %w", err)
	}
	if now.Unix() > expiresAt {
		return 0, ErrSessionExpired
	}

	if _, err := s.db.Exec(`UPDATE sessions SET expires_at = ? WHERE token_hash = ?`,
		now.Add(s.ttl).Unix(), key); err != nil {
		log.Warn().Err(err).Msg("Failed to extend session expiry")
	}
	return userID, nil
}

// Delete removes a session (logout).
func (s *SessionStore) Delete(token string) {
	if s == nil || s.db == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	_, _ = s.db.Exec(`DELETE FROM sessions WHERE token_hash = ?`, sessionHash(token))
}

// DeleteExpired drops sessions past their expiry.
func (s *SessionStore) DeleteExpired(now time.Time) {
	if s == nil || s.db == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	_, _ = s.db.Exec(`DELETE FROM sessions WHERE expires_at < ?`, now.UTC().Unix())
}
