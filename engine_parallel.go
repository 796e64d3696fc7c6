package lattice

import (
	"context"
	"crypto/sha256"
	"fmt"
	"os"
	"runtime"
	"sync"

	"github.com/jward/lattice/internal/lang"
)

// workItem holds everything a parallel parse worker needs for one file.
type workItem struct {
	path    string
	hash    string
	content []byte
	adapter lang.Adapter

	summary *lang.FileSummary // filled in by the worker
}

// indexFilesParallel indexes files using a three-phase pipeline:
//
//	Phase A (serial):   hash check, skip unchanged and unsupported files.
//	Phase B (parallel): tree-sitter parse via worker pool.
//	Phase C (serial):   commit each file's index in its own transaction,
//	                    then re-resolve dangling edges.
//
// Parse failures are recorded per file and do not stop the pipeline.
func (p *Project) indexFilesParallel(ctx context.Context, paths []string) error {
	// ---- Phase A: serial preparation ----
	var items []*workItem
	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return err
		}
		item, skip, err := p.prepareFile(path)
		if err != nil {
			return fmt.Errorf("prepare %s: %w", path, err)
		}
		if skip {
			continue
		}
		items = append(items, item)
	}
	if len(items) == 0 {
		return nil
	}

	// ---- Phase B: parallel parse ----
	numWorkers := min(runtime.NumCPU(), len(items))

	workCh := make(chan *workItem, len(items))
	for _, item := range items {
		workCh <- item
	}
	close(workCh)

	type result struct {
		item *workItem
		err  error
	}
	resultCh := make(chan result, len(items))

	var wg sync.WaitGroup
	for i := 0; i < numWorkers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			// Each Parse call builds its own tree-sitter parser, so
			// workers never share parser state.
			for item := range workCh {
				summary, err := item.adapter.Parse(ctx, item.content)
				item.summary = summary
				resultCh <- result{item: item, err: err}
			}
		}()
	}

	go func() {
		wg.Wait()
		close(resultCh)
	}()

	// ---- Phase C: serial commit ----
	var errs []error
	for res := range resultCh {
		if res.err != nil {
			if recErr := p.store.RecordIndexError(res.item.path, res.err.Error(), p.now()); recErr != nil {
				p.logger.Warn("failed to record index error", "path", res.item.path, "error", recErr)
			}
			errs = append(errs, fmt.Errorf("parse %s: %w", res.item.path, res.err))
			continue
		}
		if err := p.commitFile(res.item); err != nil {
			errs = append(errs, fmt.Errorf("commit %s: %w", res.item.path, err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("indexing had %d error(s): %w", len(errs), errs[0])
	}
	return nil
}

// prepareFile does Phase A work for a single file: adapter lookup, read,
// hash check. Returns (item, skip, error); skip means unchanged or
// unsupported.
func (p *Project) prepareFile(path string) (*workItem, bool, error) {
	path = p.absPath(path)
	adapter := p.adapterFor(path)
	if adapter == nil {
		return nil, true, nil
	}

	content, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, true, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("read file: %w", err)
	}
	hash := fmt.Sprintf("%x", sha256.Sum256(content))

	existing, err := p.store.IndexedFileByPath(path)
	if err != nil {
		return nil, false, fmt.Errorf("lookup file: %w", err)
	}
	if existing != nil && existing.FileHash == hash {
		return nil, true, nil // unchanged
	}

	return &workItem{
		path:    path,
		hash:    hash,
		content: content,
		adapter: adapter,
	}, false, nil
}

// commitFile does Phase C work for a single parsed file under its
// exclusive reindex lock.
func (p *Project) commitFile(item *workItem) error {
	unlock := p.lockFile(item.path)
	defer unlock()

	fi, err := p.buildFileIndex(item.path, item.hash, item.content, item.summary)
	if err != nil {
		return err
	}
	if err := p.store.ApplyFileIndex(fi); err != nil {
		return err
	}
	return p.reconcileDangling(item.path, fi.Nodes)
}
