// Package artifact scopes the temporary files a job creates and guarantees their release.
package artifact

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/doctext/internal/common"
)

// Owner names the stage responsible for releasing an artifact.
type Owner string

const (
	OwnerUpload     Owner = "upload"
	OwnerConversion Owner = "conversion"
	OwnerPreprocess Owner = "preprocess"
)

// Artifact is a temporary file owned by exactly one stage. Every artifact is deleted when its job ends.
type Artifact struct {
	Path  string
	Owner Owner
}

// Manager hands out one uniquely named working directory per job under Root.
type Manager struct {
	root   string
	logger *slog.Logger
}

func NewManager(root string, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	if root == "" {
		root = os.TempDir()
	}
	return &Manager{root: root, logger: logger}
}

// NewScope creates {root}/job-{jobID}. An empty jobID gets a fresh UUID.
// It fails if the directory already exists, so two jobs never share a namespace.
func (m *Manager) NewScope(jobID string) (*Scope, error) {
	if jobID == "" {
		jobID = uuid.NewString()
	}
	if err := os.MkdirAll(m.root, 0o755); err != nil {
		return nil, fmt.Errorf("create work root: %w", err)
	}
	dir := filepath.Join(m.root, "job-"+jobID)
	if err := os.Mkdir(dir, 0o700); err != nil {
		return nil, fmt.Errorf("create job dir: %w", err)
	}
	m.logger.Debug("artifact scope opened", "job_id", jobID, "dir", dir)
	return &Scope{
		jobID:     jobID,
		dir:       dir,
		logger:    m.logger,
		artifacts: map[string]Owner{},
	}, nil
}

// Scope tracks the artifacts of a single job.
type Scope struct {
	jobID  string
	dir    string
	logger *slog.Logger

	mu        sync.Mutex
	artifacts map[string]Owner
	released  bool
}

func (s *Scope) Dir() string { return s.dir }

// Path joins name onto the job directory.
func (s *Scope) Path(name string) string { return filepath.Join(s.dir, name) }

// Track registers path under owner. Re-tracking a path under a different owner is rejected.
func (s *Scope) Track(path string, owner Owner) (Artifact, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.released {
		return Artifact{}, fmt.Errorf("scope for job %s already released", s.jobID)
	}
	if prev, ok := s.artifacts[path]; ok && prev != owner {
		return Artifact{}, fmt.Errorf("artifact %s already owned by %s", path, prev)
	}
	s.artifacts[path] = owner
	return Artifact{Path: path, Owner: owner}, nil
}

// Artifacts returns the tracked artifacts sorted by path.
func (s *Scope) Artifacts() []Artifact {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Artifact, 0, len(s.artifacts))
	for p, o := range s.artifacts {
		out = append(out, Artifact{Path: p, Owner: o})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out
}

// Release deletes every tracked artifact and the job directory. It is safe to call more than once.
// Failures are logged and returned as ARTIFACT_CLEANUP_FAILURE; callers treat them as non-fatal.
func (s *Scope) Release() error {
	s.mu.Lock()
	if s.released {
		s.mu.Unlock()
		return nil
	}
	s.released = true
	paths := make([]string, 0, len(s.artifacts))
	for p := range s.artifacts {
		paths = append(paths, p)
	}
	s.mu.Unlock()
	sort.Strings(paths)

	var errs []error
	for _, p := range paths {
		if err := os.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
			errs = append(errs, err)
		}
	}
	if err := os.RemoveAll(s.dir); err != nil {
		errs = append(errs, err)
	}
	if len(errs) == 0 {
		s.logger.Debug("artifact scope released", "job_id", s.jobID, "artifacts", len(paths))
		return nil
	}

	cause := errors.Join(errs...)
	s.logger.Warn("artifact cleanup failed",
		"job_id", s.jobID,
		"code", common.CodeArtifactCleanupFailure,
		"dir", s.dir,
		"error", cause,
	)
	return common.NewAppError(common.CodeArtifactCleanupFailure, "temporary file cleanup failed", cause)
}
