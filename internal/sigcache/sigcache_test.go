package sigcache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testDataURL = "data:image/png;base64,iVBORw0KGgoAAAANSUhEUg=="

func TestNewKeyIsOpaqueAndUnique(t *testing.T) {
	a := NewKey()
	b := NewKey()
	assert.NotEqual(t, a, b)
	assert.Contains(t, a, "sig_")
	assert.Len(t, a, 4+32)
}

func TestMemoryPutGet(t *testing.T) {
	m := NewMemory(time.Hour)
	t.Cleanup(func() { _ = m.Close() })

	key := NewKey()
	require.NoError(t, m.Put(context.Background(), key, testDataURL))

	got, err := m.Get(context.Background(), key)
	require.NoError(t, err)
	assert.Equal(t, testDataURL, got)
}

func TestMemoryMissing(t *testing.T) {
	m := NewMemory(time.Hour)
	t.Cleanup(func() { _ = m.Close() })

	_, err := m.Get(context.Background(), "sig_missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryExpiry(t *testing.T) {
	m := NewMemory(10 * time.Millisecond)
	t.Cleanup(func() { _ = m.Close() })

	key := NewKey()
	require.NoError(t, m.Put(context.Background(), key, testDataURL))

	time.Sleep(25 * time.Millisecond)
	_, err := m.Get(context.Background(), key)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryRejectsNonImagePayload(t *testing.T) {
	m := NewMemory(time.Hour)
	t.Cleanup(func() { _ = m.Close() })

	assert.Error(t, m.Put(context.Background(), NewKey(), "not-a-data-url"))
	assert.Error(t, m.Put(context.Background(), NewKey(), "data:text/html;base64,PGI+"))
	assert.NoError(t, m.Put(context.Background(), NewKey(), "data:image/jpeg;base64,/9j/4AAQ"))
}

func TestMemoryCloseIdempotent(t *testing.T) {
	m := NewMemory(time.Hour)
	require.NoError(t, m.Close())
	require.NoError(t, m.Close())
}

func TestNewRedisRejectsBadURL(t *testing.T) {
	_, err := NewRedis(context.Background(), "://not-a-url", time.Hour)
	assert.Error(t, err)
}
