package artifact

import (
	"bytes"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/doctext/internal/common"
)

func TestScopeReleaseRemovesEverything(t *testing.T) {
	m := NewManager(t.TempDir(), nil)
	s, err := m.NewScope("")
	require.NoError(t, err)

	p := s.Path("page-0000.png")
	require.NoError(t, os.WriteFile(p, []byte("x"), 0o600))
	_, err = s.Track(p, OwnerConversion)
	require.NoError(t, err)
	// untracked files in the job dir go too
	require.NoError(t, os.WriteFile(s.Path("stray.tmp"), []byte("y"), 0o600))

	require.NoError(t, s.Release())
	_, err = os.Stat(s.Dir())
	assert.True(t, os.IsNotExist(err))

	// idempotent
	require.NoError(t, s.Release())
}

func TestScopesAreUnique(t *testing.T) {
	m := NewManager(t.TempDir(), nil)
	a, err := m.NewScope("")
	require.NoError(t, err)
	b, err := m.NewScope("")
	require.NoError(t, err)
	assert.NotEqual(t, a.Dir(), b.Dir())

	_, err = m.NewScope(filepath.Base(a.Dir())[len("job-"):])
	assert.Error(t, err, "reusing a job id must not share its directory")
}

func TestTrackRejectsOwnershipTransfer(t *testing.T) {
	m := NewManager(t.TempDir(), nil)
	s, err := m.NewScope("owner-test")
	require.NoError(t, err)
	defer s.Release()

	p := s.Path("page-0.png")
	_, err = s.Track(p, OwnerConversion)
	require.NoError(t, err)
	_, err = s.Track(p, OwnerConversion)
	require.NoError(t, err)
	_, err = s.Track(p, OwnerPreprocess)
	assert.Error(t, err)

	arts := s.Artifacts()
	require.Len(t, arts, 1)
	assert.Equal(t, OwnerConversion, arts[0].Owner)
}

func TestTrackAfterReleaseFails(t *testing.T) {
	m := NewManager(t.TempDir(), nil)
	s, err := m.NewScope("")
	require.NoError(t, err)
	require.NoError(t, s.Release())

	_, err = s.Track(s.Path("late.png"), OwnerPreprocess)
	assert.Error(t, err)
}

func TestScopeReleaseFailureIsReported(t *testing.T) {
	var buf bytes.Buffer
	m := NewManager(t.TempDir(), slog.New(slog.NewJSONHandler(&buf, nil)))
	s, err := m.NewScope("cleanup-fail")
	require.NoError(t, err)

	// a non-empty directory at a tracked path cannot be removed with os.Remove
	p := s.Path("page-0-normalized.png")
	require.NoError(t, os.Mkdir(p, 0o700))
	require.NoError(t, os.WriteFile(filepath.Join(p, "inner"), []byte("x"), 0o600))
	_, err = s.Track(p, OwnerPreprocess)
	require.NoError(t, err)

	err = s.Release()
	require.Error(t, err)
	assert.True(t, errors.Is(err, common.ErrArtifactCleanupFailure))
	assert.Contains(t, buf.String(), `"code":"ARTIFACT_CLEANUP_FAILURE"`)
	assert.Contains(t, buf.String(), `"job_id":"cleanup-fail"`)
}
