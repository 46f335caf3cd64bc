package config

import (
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestTemplateWatcherFiresOnChange(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "pledge.pdf")
	require.NoError(t, os.WriteFile(path, []byte("%PDF-1.4 original"), 0o644))

	var fired atomic.Int32
	tw, err := NewTemplateWatcher(path, func() { fired.Add(1) })
	require.NoError(t, err)
	require.NoError(t, tw.Start())
	t.Cleanup(tw.Stop)

	// Ensure the mod time moves forward on filesystems with coarse clocks.
	time.Sleep(50 * time.Millisecond)
	require.NoError(t, os.WriteFile(path, []byte("%PDF-1.4 replaced"), 0o644))
	future := time.Now().Add(2 * time.Second)
	require.NoError(t, os.Chtimes(path, future, future))

	deadline := time.After(3 * time.Second)
	for fired.Load() == 0 {
		select {
		case <-deadline:
			t.Fatal("watcher did not fire after template change")
		case <-time.After(50 * time.Millisecond):
		}
	}
}

func TestTemplateWatcherIgnoresOtherFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "pledge.pdf")

	var fired atomic.Int32
	tw, err := NewTemplateWatcher(path, func() { fired.Add(1) })
	require.NoError(t, err)
	require.NoError(t, tw.Start())
	t.Cleanup(tw.Stop)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "other.pdf"), []byte("x"), 0o644))
	time.Sleep(500 * time.Millisecond)
	require.Zero(t, fired.Load())
}

func TestTemplateWatcherStopIdempotent(t *testing.T) {
	tw, err := NewTemplateWatcher(filepath.Join(t.TempDir(), "pledge.pdf"), nil)
	require.NoError(t, err)
	tw.Stop()
	tw.Stop()
}
