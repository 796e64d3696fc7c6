package lattice

import (
	"context"
	"crypto/sha256"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	ignore "github.com/sabhiram/go-gitignore"

	"github.com/jward/lattice/internal/lang"
	"github.com/jward/lattice/internal/store"
)

// Project is an open handle on one registered project: its root directory
// plus its isolated index partition. All indexing and query operations hang
// off a Project.
type Project struct {
	id     string
	root   string
	store  *store.Store
	logger *slog.Logger

	languages map[string]bool // nil means all supported languages
	parallel  bool
	now       func() time.Time

	// fileLocks gives each file an exclusive reindex section so two
	// concurrent reindexes of the same path cannot interleave.
	mu        sync.Mutex
	fileLocks map[string]*sync.Mutex

	watching atomic.Bool
}

// Option configures a Project.
type Option func(*Project)

// WithLanguages restricts which languages the project indexes.
func WithLanguages(languages ...string) Option {
	return func(p *Project) {
		p.languages = make(map[string]bool, len(languages))
		for _, l := range languages {
			p.languages[l] = true
		}
	}
}

// WithParallel controls parallel extraction. When true (default),
// IndexFiles parses with a worker pool and commits serially. Set to false
// for fully serial indexing.
func WithParallel(parallel bool) Option {
	return func(p *Project) {
		p.parallel = parallel
	}
}

// WithLogger sets the project's logger.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Project) {
		p.logger = logger
	}
}

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(p *Project) {
		p.now = now
	}
}

func newProject(id, root string, s *store.Store, logger *slog.Logger, opts ...Option) *Project {
	p := &Project{
		id:        id,
		root:      root,
		store:     s,
		logger:    logger,
		parallel:  true,
		now:       time.Now,
		fileLocks: make(map[string]*sync.Mutex),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.logger == nil {
		p.logger = slog.Default()
	}
	return p
}

// ID returns the project's stable identifier.
func (p *Project) ID() string { return p.id }

// Root returns the project's registered root directory.
func (p *Project) Root() string { return p.root }

// Close releases the project's database resources.
func (p *Project) Close() error {
	return p.store.Close()
}

// absPath normalizes a caller-supplied path to an absolute path under the
// project root. Relative paths are taken relative to the root.
func (p *Project) absPath(path string) string {
	if filepath.IsAbs(path) {
		return filepath.Clean(path)
	}
	return filepath.Join(p.root, path)
}

// moduleID derives the stable module node id for a file: the root-relative
// path with the extension stripped and separators replaced by dots. A
// Python package __init__ file maps to the package itself.
func (p *Project) moduleID(path string) string {
	rel, err := filepath.Rel(p.root, path)
	if err != nil {
		rel = filepath.Base(path)
	}
	rel = strings.TrimSuffix(rel, filepath.Ext(rel))
	rel = filepath.ToSlash(rel)
	rel = strings.TrimSuffix(rel, "/__init__")
	return strings.ReplaceAll(rel, "/", ".")
}

// lockFile acquires the per-file reindex lock, returning the unlock func.
func (p *Project) lockFile(path string) func() {
	p.mu.Lock()
	l, ok := p.fileLocks[path]
	if !ok {
		l = &sync.Mutex{}
		p.fileLocks[path] = l
	}
	p.mu.Unlock()
	l.Lock()
	return l.Unlock
}

// adapterFor returns the language adapter for a path, or nil when the file
// is unsupported or filtered out by WithLanguages.
func (p *Project) adapterFor(path string) lang.Adapter {
	a := lang.ForFile(path)
	if a == nil {
		return nil
	}
	if p.languages != nil && !p.languages[a.Language()] {
		return nil
	}
	return a
}

// skipDirs are directory names never worth indexing or watching.
var skipDirs = map[string]bool{
	"node_modules": true,
	"vendor":       true,
	"__pycache__":  true,
	"dist":         true,
	"target":       true,
	".git":         true,
}

// pathFilter decides which files and directories indexing and watching
// consider, honoring the project's .gitignore when present.
type pathFilter struct {
	root    string
	ignorer *ignore.GitIgnore
}

func newPathFilter(root string) *pathFilter {
	f := &pathFilter{root: root}
	if ign, err := ignore.CompileIgnoreFile(filepath.Join(root, ".gitignore")); err == nil {
		f.ignorer = ign
	}
	return f
}

func (f *pathFilter) relative(path string) string {
	rel, err := filepath.Rel(f.root, path)
	if err != nil {
		return path
	}
	return rel
}

// IgnoreDir reports whether a directory subtree should be skipped.
func (f *pathFilter) IgnoreDir(path string) bool {
	base := filepath.Base(path)
	if skipDirs[base] || strings.HasPrefix(base, ".") {
		return true
	}
	return f.ignorer != nil && f.ignorer.MatchesPath(f.relative(path))
}

// IgnoreFile reports whether a file should be skipped.
func (f *pathFilter) IgnoreFile(path string) bool {
	base := filepath.Base(path)
	if strings.HasPrefix(base, ".") {
		return true
	}
	if lang.ForFile(path) == nil {
		return true
	}
	return f.ignorer != nil && f.ignorer.MatchesPath(f.relative(path))
}

// discoverFiles walks the project root collecting indexable source files in
// deterministic (lexical walk) order.
func (p *Project) discoverFiles() ([]string, error) {
	filter := newPathFilter(p.root)
	var paths []string
	err := filepath.WalkDir(p.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil // unreadable entries are skipped, not fatal
		}
		if d.IsDir() {
			if path != p.root && filter.IgnoreDir(path) {
				return filepath.SkipDir
			}
			return nil
		}
		if filter.IgnoreFile(path) {
			return nil
		}
		if p.adapterFor(path) == nil {
			return nil
		}
		paths = append(paths, path)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("discover files: %w", err)
	}
	return paths, nil
}

// IndexDirectory discovers and indexes every supported source file under
// the project root. Per-file parse failures are recorded and indexing
// continues; the returned error aggregates them.
func (p *Project) IndexDirectory(ctx context.Context) error {
	paths, err := p.discoverFiles()
	if err != nil {
		return err
	}
	return p.IndexFiles(ctx, paths)
}

// IndexFiles indexes the given files. With parallel mode enabled, parsing
// runs on a worker pool and commits stay serial; otherwise files index one
// by one. Cancellation stops between files, keeping committed progress.
func (p *Project) IndexFiles(ctx context.Context, paths []string) error {
	if p.parallel && len(paths) > 1 {
		return p.indexFilesParallel(ctx, paths)
	}

	var errs []error
	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := p.ReindexFile(ctx, path); err != nil {
			p.logger.Warn("index failed", "path", path, "error", err)
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("indexing had %d error(s): %w", len(errs), errs[0])
	}
	return nil
}

// ReindexFile incrementally reindexes a single file:
//
//   - unchanged content (same hash) is a no-op,
//   - the node set is diffed by id, so unchanged entities keep their ids,
//   - edges owned by the file are rebuilt, edges elsewhere untouched,
//   - previously dangling edges are re-resolved against the file's new names.
//
// The whole swap commits in one transaction; concurrent readers observe the
// pre- or post-state, never a mix. A missing file is treated as a removal.
func (p *Project) ReindexFile(ctx context.Context, path string) error {
	path = p.absPath(path)
	adapter := p.adapterFor(path)
	if adapter == nil {
		return nil
	}

	unlock := p.lockFile(path)
	defer unlock()

	content, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return p.removeFileLocked(path)
	}
	if err != nil {
		return fmt.Errorf("reindex %s: %w", path, err)
	}
	hash := fmt.Sprintf("%x", sha256.Sum256(content))

	existing, err := p.store.IndexedFileByPath(path)
	if err != nil {
		return fmt.Errorf("reindex %s: %w", path, err)
	}
	if existing != nil && existing.FileHash == hash {
		return nil // unchanged
	}

	summary, err := adapter.Parse(ctx, content)
	if err != nil {
		if recErr := p.store.RecordIndexError(path, err.Error(), p.now()); recErr != nil {
			p.logger.Warn("failed to record index error", "path", path, "error", recErr)
		}
		return fmt.Errorf("parse %s: %w", path, err)
	}

	fi, err := p.buildFileIndex(path, hash, content, summary)
	if err != nil {
		return fmt.Errorf("reindex %s: %w", path, err)
	}
	if err := p.store.ApplyFileIndex(fi); err != nil {
		return fmt.Errorf("reindex %s: %w", path, err)
	}
	if err := p.reconcileDangling(path, fi.Nodes); err != nil {
		return fmt.Errorf("reindex %s: %w", path, err)
	}
	return nil
}

// RemoveFile drops all index data for a deleted file. Edges in other files
// that targeted its nodes revert to unresolved rather than disappearing.
func (p *Project) RemoveFile(path string) error {
	path = p.absPath(path)
	unlock := p.lockFile(path)
	defer unlock()
	return p.removeFileLocked(path)
}

func (p *Project) removeFileLocked(path string) error {
	if err := p.store.RemoveFileData(path); err != nil {
		return fmt.Errorf("remove %s: %w", path, err)
	}
	return nil
}

// buildFileIndex converts a parsed file summary into the node and edge
// rows for one file, including the synthetic module node and the removed-id
// diff against the previous index state.
func (p *Project) buildFileIndex(path, hash string, content []byte, summary *lang.FileSummary) (*store.FileIndex, error) {
	moduleID := p.moduleID(path)
	now := p.now()
	lineCount := strings.Count(string(content), "\n") + 1

	nodes := []*store.Node{{
		ID:        moduleID,
		Kind:      KindModule,
		Name:      lastSegment(moduleID),
		FilePath:  path,
		StartLine: 1,
		EndLine:   lineCount,
		StartByte: 0,
		Signature: "module " + moduleID,
		FileHash:  hash,
		IndexedAt: now,
	}}

	for _, entity := range summary.Entities {
		parentID := moduleID
		if entity.Parent != "" {
			parentID = moduleID + "." + entity.Parent
		}
		pid := parentID
		nodes = append(nodes, &store.Node{
			ID:        moduleID + "." + entity.Qualified,
			Kind:      entity.Kind,
			Name:      entity.Name,
			FilePath:  path,
			StartLine: entity.StartLine,
			EndLine:   entity.EndLine,
			StartByte: entity.StartByte,
			ParentID:  &pid,
			Signature: entity.Signature,
			Docstring: entity.Docstring,
			FileHash:  hash,
			IndexedAt: now,
		})
	}

	edges, err := p.buildEdges(moduleID, path, summary, nodes)
	if err != nil {
		return nil, err
	}

	newIDs := make(map[string]bool, len(nodes))
	for _, n := range nodes {
		newIDs[n.ID] = true
	}
	oldIDs, err := p.store.NodeIDsByFile(path)
	if err != nil {
		return nil, err
	}
	var removed []string
	for _, id := range oldIDs {
		if !newIDs[id] {
			removed = append(removed, id)
		}
	}

	return &store.FileIndex{
		FilePath:       path,
		FileHash:       hash,
		IndexedAt:      now,
		Nodes:          nodes,
		Edges:          edges,
		RemovedNodeIDs: removed,
	}, nil
}

func lastSegment(dotted string) string {
	if idx := strings.LastIndexByte(dotted, '.'); idx >= 0 {
		return dotted[idx+1:]
	}
	return dotted
}
