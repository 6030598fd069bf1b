package ingest

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func touch(t *testing.T, path string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o600))
}

func TestScanDirectory(t *testing.T) {
	root := t.TempDir()
	touch(t, filepath.Join(root, "b.pdf"))
	touch(t, filepath.Join(root, "a.PNG"))
	touch(t, filepath.Join(root, "notes.txt"))
	touch(t, filepath.Join(root, ".hidden.png"))
	touch(t, filepath.Join(root, ".cache", "c.png"))
	touch(t, filepath.Join(root, "sub", "d.tiff"))

	files, stats, err := ScanDirectory(root, true)
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(root, "a.PNG"),
		filepath.Join(root, "b.pdf"),
		filepath.Join(root, "sub", "d.tiff"),
	}, files)
	assert.Equal(t, uint32(4), stats.Scanned)
	assert.Equal(t, uint32(3), stats.Matched)

	all, _, err := ScanDirectory(root, false)
	require.NoError(t, err)
	assert.Len(t, all, 5)
}

func TestScanDirectoryErrors(t *testing.T) {
	_, _, err := ScanDirectory(" ", true)
	assert.Error(t, err)
	_, _, err = ScanDirectory(filepath.Join(t.TempDir(), "missing"), true)
	assert.Error(t, err)
}

func TestIsHidden(t *testing.T) {
	assert.True(t, IsHidden("/in/.partial.pdf"))
	assert.False(t, IsHidden("/in/scan.pdf"))
	assert.False(t, IsHidden("."))
}

func waitFor(t *testing.T, ch <-chan string) string {
	t.Helper()
	select {
	case p := <-ch:
		return p
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for watcher event")
		return ""
	}
}

func TestWatcherInitialScanAndNewFiles(t *testing.T) {
	root := t.TempDir()
	existing := filepath.Join(root, "old.pdf")
	touch(t, existing)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	events, _, err := StartWatcher(ctx, WatchConfig{Roots: []string{root}, InitialScan: true, Debounce: 50 * time.Millisecond})
	require.NoError(t, err)

	assert.Equal(t, existing, waitFor(t, events))

	touch(t, filepath.Join(root, "ignored.txt"))
	created := filepath.Join(root, "new.png")
	touch(t, created)
	assert.Equal(t, created, waitFor(t, events))

	cancel()
	for range events {
	}
}

func TestWatcherRequiresRoots(t *testing.T) {
	_, _, err := StartWatcher(context.Background(), WatchConfig{})
	assert.Error(t, err)
}
