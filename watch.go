package lattice

import (
	"context"
	"fmt"

	"github.com/jward/lattice/internal/watch"
)

// Watch attaches a filesystem watcher to the project root and feeds
// debounced change batches into the incremental reindexer until ctx is
// cancelled. Reindex failures are logged and recorded, never returned:
// whatever touched the file gets no signal back.
func (p *Project) Watch(ctx context.Context) error {
	filter := newPathFilter(p.root)
	w, err := watch.New(p.root, filter, p.logger)
	if err != nil {
		return fmt.Errorf("watch %s: %w", p.root, err)
	}
	defer w.Close()
	go w.Start()

	p.watching.Store(true)
	defer p.watching.Store(false)
	p.logger.Info("watching", "root", p.root, "project", p.id)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case batch := <-w.Events():
			for _, event := range batch {
				p.handleWatchEvent(ctx, event)
			}
		}
	}
}

func (p *Project) handleWatchEvent(ctx context.Context, event watch.Event) {
	switch event.Op {
	case watch.OpRemove:
		if err := p.RemoveFile(event.Path); err != nil {
			p.logger.Warn("remove failed", "path", event.Path, "error", err)
		}
	case watch.OpWrite:
		if err := p.ReindexFile(ctx, event.Path); err != nil {
			p.logger.Warn("reindex failed", "path", event.Path, "error", err)
		}
	}
}
