// Package sigcache stores transient signature images between the landing
// page and the payment webhook. The entry is written when a visitor draws
// a signature at checkout and read once the corresponding Stripe event
// arrives, so entries are short-lived by design.
package sigcache

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"strings"
	"sync"
	"time"
)

// ErrNotFound is returned when a cache key has no live entry.
var ErrNotFound = errors.New("sigcache: not found")

// Cache stores base64 signature data-URLs under opaque keys with a TTL.
type Cache interface {
	Put(ctx context.Context, key, dataURL string) error
	Get(ctx context.Context, key string) (string, error)
	Close() error
}

// NewKey generates an opaque cache key handed to the client and round-
// tripped through Stripe checkout metadata.
func NewKey() string {
	buf := make([]byte, 16)
	_, _ = rand.Read(buf)
	return "sig_" + hex.EncodeToString(buf)
}

// validDataURL keeps arbitrary payloads out of the cache.
func validDataURL(dataURL string) bool {
	return strings.HasPrefix(dataURL, "data:image/png;base64,") ||
		strings.HasPrefix(dataURL, "data:image/jpeg;base64,")
}

// Memory is an in-process Cache used when no Redis URL is configured.
// Entries expire lazily on read and via a sweep loop.
type Memory struct {
	ttl     time.Duration
	mu      sync.Mutex
	entries map[string]memoryEntry
	stop    chan struct{}
	once    sync.Once
}

type memoryEntry struct {
	dataURL   string
	expiresAt time.Time
}

// NewMemory creates an in-memory cache with the given entry TTL.
func NewMemory(ttl time.Duration) *Memory {
	if ttl <= 0 {
		ttl = time.Hour
	}
	m := &Memory{
		ttl:     ttl,
		entries: make(map[string]memoryEntry),
		stop:    make(chan struct{}),
	}
	go m.sweepLoop()
	return m
}

// Put stores a signature data-URL.
func (m *Memory) Put(_ context.Context, key, dataURL string) error {
	if !validDataURL(dataURL) {
		return errors.New("sigcache: not an image data-URL")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[key] = memoryEntry{dataURL: dataURL, expiresAt: time.Now().Add(m.ttl)}
	return nil
}

// Get returns the stored data-URL or ErrNotFound.
func (m *Memory) Get(_ context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	entry, ok := m.entries[key]
	if !ok {
		return "", ErrNotFound
	}
	if time.Now().After(entry.expiresAt) {
		delete(m.entries, key)
		return "", ErrNotFound
	}
	return entry.dataURL, nil
}

// Close stops the sweep loop.
func (m *Memory) Close() error {
	m.once.Do(func() { close(m.stop) })
	return nil
}

func (m *Memory) sweepLoop() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			now := time.Now()
			m.mu.Lock()
			for key, entry := range m.entries {
				if now.After(entry.expiresAt) {
					delete(m.entries, key)
				}
			}
			m.mu.Unlock()
		case <-m.stop:
			return
		}
	}
}
