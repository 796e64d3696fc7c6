package lattice

import (
	"crypto/sha256"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/jward/lattice/internal/store"
)

// Registry maps project roots to isolated partitions on disk. Each
// registered root gets its own SQLite database under
// <data-dir>/projects/<project-id>/index.db; partitions never share state.
type Registry struct {
	dataDir string
	logger  *slog.Logger

	// mu serializes Register so concurrent registrations of the same root
	// yield exactly one partition.
	mu sync.Mutex
}

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithDataDir overrides the registry's on-disk location. The default is
// ~/.lattice.
func WithDataDir(dir string) RegistryOption {
	return func(r *Registry) {
		r.dataDir = dir
	}
}

// WithRegistryLogger sets the logger the registry hands to opened projects.
func WithRegistryLogger(logger *slog.Logger) RegistryOption {
	return func(r *Registry) {
		r.logger = logger
	}
}

// NewRegistry creates a registry rooted at the configured data directory.
func NewRegistry(opts ...RegistryOption) *Registry {
	r := &Registry{
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			home = "."
		}
		r.dataDir = filepath.Join(home, ".lattice")
	}
	return r
}

// ProjectIDFor derives the stable identifier for a root path: the first 16
// hex characters of the SHA-256 of the cleaned absolute path. The same root
// always maps to the same id.
func ProjectIDFor(root string) (string, error) {
	abs, err := filepath.Abs(filepath.Clean(root))
	if err != nil {
		return "", fmt.Errorf("resolve root %q: %w", root, err)
	}
	sum := sha256.Sum256([]byte(abs))
	return fmt.Sprintf("%x", sum)[:16], nil
}

// partitionDir is the directory holding a project's database.
func (r *Registry) partitionDir(id string) string {
	return filepath.Join(r.dataDir, "projects", id)
}

// dbPath is the SQLite database path for a project partition.
func (r *Registry) dbPath(id string) string {
	return filepath.Join(r.partitionDir(id), "index.db")
}

// Register creates a partition for the given root and returns its project
// id. Registering an already-registered root is a no-op returning the same
// id; existing index data is never touched.
func (r *Registry) Register(root string) (string, error) {
	abs, err := filepath.Abs(filepath.Clean(root))
	if err != nil {
		return "", fmt.Errorf("resolve root %q: %w", root, err)
	}
	info, err := os.Stat(abs)
	if err != nil || !info.IsDir() {
		return "", fmt.Errorf("register %q: %w", root, ErrInvalidRoot)
	}

	id, err := ProjectIDFor(abs)
	if err != nil {
		return "", err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	s, err := store.NewStore(r.dbPath(id))
	if err != nil {
		return "", fmt.Errorf("register %q: %w", root, err)
	}
	defer s.Close()
	if err := s.Migrate(); err != nil {
		return "", fmt.Errorf("register %q: %w", root, err)
	}

	existing, err := s.GetMetadata("root")
	if err != nil {
		return "", fmt.Errorf("register %q: %w", root, err)
	}
	if existing != "" {
		return id, nil // already registered
	}
	if err := s.SetMetadata("root", abs); err != nil {
		return "", fmt.Errorf("register %q: %w", root, err)
	}
	if err := s.SetMetadata("created_at", time.Now().UTC().Format(time.RFC3339)); err != nil {
		return "", fmt.Errorf("register %q: %w", root, err)
	}
	return id, nil
}

// Resolve returns the project id for a registered root, or ErrNotRegistered.
func (r *Registry) Resolve(root string) (string, error) {
	id, err := ProjectIDFor(root)
	if err != nil {
		return "", err
	}
	if _, err := os.Stat(r.dbPath(id)); err != nil {
		return "", fmt.Errorf("resolve %q: %w", root, ErrNotRegistered)
	}
	return id, nil
}

// Open opens the project with the given id. The partition must already
// exist; Open never creates one.
func (r *Registry) Open(id string, opts ...Option) (*Project, error) {
	dbPath := r.dbPath(id)
	if _, err := os.Stat(dbPath); err != nil {
		return nil, fmt.Errorf("open project %s: %w", id, ErrMissingProject)
	}
	s, err := store.NewStore(dbPath)
	if err != nil {
		return nil, fmt.Errorf("open project %s: %w", id, err)
	}
	if err := s.Migrate(); err != nil {
		s.Close()
		return nil, fmt.Errorf("open project %s: %w", id, err)
	}
	root, err := s.GetMetadata("root")
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("open project %s: %w", id, err)
	}
	if root == "" {
		s.Close()
		return nil, fmt.Errorf("open project %s: missing root metadata: %w", id, ErrMissingProject)
	}
	return newProject(id, root, s, r.logger, opts...), nil
}

// OpenRoot is Resolve followed by Open.
func (r *Registry) OpenRoot(root string, opts ...Option) (*Project, error) {
	id, err := r.Resolve(root)
	if err != nil {
		return nil, err
	}
	return r.Open(id, opts...)
}

// ProjectInfo describes one registered project.
type ProjectInfo struct {
	ID   string
	Root string
}

// Projects lists every registered project, ordered by id.
func (r *Registry) Projects() ([]ProjectInfo, error) {
	entries, err := os.ReadDir(filepath.Join(r.dataDir, "projects"))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	var infos []ProjectInfo
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		id := entry.Name()
		s, err := store.NewStore(r.dbPath(id))
		if err != nil {
			r.logger.Warn("skipping unreadable partition", "id", id, "error", err)
			continue
		}
		root, err := s.GetMetadata("root")
		s.Close()
		if err != nil {
			r.logger.Warn("skipping unreadable partition", "id", id, "error", err)
			continue
		}
		infos = append(infos, ProjectInfo{ID: id, Root: root})
	}
	return infos, nil
}
