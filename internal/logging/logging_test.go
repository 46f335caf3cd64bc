package logging

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zerolog.InfoLevel, parseLevel(""))
	assert.Equal(t, zerolog.InfoLevel, parseLevel("info"))
	assert.Equal(t, zerolog.DebugLevel, parseLevel("DEBUG"))
	assert.Equal(t, zerolog.WarnLevel, parseLevel("warning"))
	assert.Equal(t, zerolog.ErrorLevel, parseLevel(" error "))
	assert.Equal(t, zerolog.Disabled, parseLevel("disabled"))
	assert.Equal(t, zerolog.InfoLevel, parseLevel("bogus"))
}

func TestWithRequestIDGeneratesWhenEmpty(t *testing.T) {
	ctx, id := WithRequestID(context.Background(), "")
	require.NotEmpty(t, id)
	assert.Equal(t, id, RequestID(ctx))
}

func TestWithRequestIDHonorsIncoming(t *testing.T) {
	ctx, id := WithRequestID(context.Background(), "  req-123  ")
	assert.Equal(t, "req-123", id)
	assert.Equal(t, "req-123", RequestID(ctx))
}

func TestRequestIDMissing(t *testing.T) {
	assert.Empty(t, RequestID(context.Background()))
	assert.Empty(t, RequestID(nil))
}

func TestRotatingFileWriterRotates(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "signet.log")

	w, err := newRotatingFileWriter(path, 1)
	require.NoError(t, err)
	require.NotNil(t, w)
	t.Cleanup(func() { _ = w.Close() })

	// Force the limit low so a couple of writes trigger rotation.
	w.maxBytes = 64
	for i := 0; i < 10; i++ {
		_, err := w.Write([]byte(strings.Repeat("x", 32) + "\n"))
		require.NoError(t, err)
	}

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	rotated := 0
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), "signet.log.") {
			rotated++
		}
	}
	assert.Greater(t, rotated, 0, "expected at least one rotated file")
}

func TestNewRotatingFileWriterEmptyPath(t *testing.T) {
	w, err := newRotatingFileWriter("  ", 10)
	require.NoError(t, err)
	assert.Nil(t, w)
}
