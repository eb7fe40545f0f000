package artifacts

import (
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"slices"
	"strings"
	"sync"

	"lofi/internal/logging"
)

// Role records why a path exists.
type Role int

const (
	RoleInput Role = iota
	RoleIntermediate
	RoleOutput
)

func (r Role) String() string {
	switch r {
	case RoleIntermediate:
		return "intermediate"
	case RoleOutput:
		return "output"
	default:
		return "input"
	}
}

// Path is a file owned by exactly one job.
type Path struct {
	Path string
	Role Role
}

// Report summarizes a release.
type Report struct {
	Removed int
	Missing int
	Failed  int
}

// Tracker owns a job's paths. It is safe for concurrent use.
type Tracker struct {
	logger *slog.Logger
	remove func(string) error

	mu       sync.Mutex
	paths    []Path
	released bool

	once   sync.Once
	report Report
}

// NewTracker constructs an empty tracker.
func NewTracker(logger *slog.Logger) *Tracker {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Tracker{logger: logger, remove: os.Remove}
}

// Register records path under role. Empty and duplicate paths are ignored,
// as is anything registered after release.
func (t *Tracker) Register(path string, role Role) {
	if strings.TrimSpace(path) == "" {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.released {
		t.logger.Debug("artifact registered after release", logging.String("path", path))
		return
	}
	for _, existing := range t.paths {
		if existing.Path == path {
			return
		}
	}
	t.paths = append(t.paths, Path{Path: path, Role: role})
}

// Paths returns a snapshot of the registered paths.
func (t *Tracker) Paths() []Path {
	t.mu.Lock()
	defer t.mu.Unlock()
	return slices.Clone(t.paths)
}

// ReleaseAll removes every registered path. Absent files are counted as
// missing; removal errors are logged and never returned. Only the first call
// does any work, later calls return the same report.
func (t *Tracker) ReleaseAll() Report {
	t.once.Do(func() {
		t.mu.Lock()
		t.released = true
		paths := slices.Clone(t.paths)
		t.mu.Unlock()

		for _, p := range paths {
			err := t.remove(p.Path)
			switch {
			case err == nil:
				t.report.Removed++
			case errors.Is(err, fs.ErrNotExist):
				t.report.Missing++
			default:
				t.report.Failed++
				logging.WarnWithContext(t.logger, "artifact removal failed", "artifact_cleanup",
					logging.String("path", p.Path),
					logging.String("role", p.Role.String()),
					logging.Error(err),
					logging.String(logging.FieldImpact, "file left on disk"),
					logging.String(logging.FieldErrorHint, "check directory permissions"),
				)
			}
		}
		t.logger.Debug("artifacts released",
			logging.Int("removed", t.report.Removed),
			logging.Int("missing", t.report.Missing),
			logging.Int("failed", t.report.Failed),
		)
	})
	return t.report
}
