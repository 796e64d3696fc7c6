package lattice

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/jward/lattice/internal/watch"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startWatching(t *testing.T, p *Project) (cancel func()) {
	t.Helper()
	ctx, stop := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- p.Watch(ctx) }()

	require.Eventually(t, func() bool {
		st, err := p.Status()
		return err == nil && st.Watching
	}, 5*time.Second, 10*time.Millisecond, "watcher never came up")

	return func() {
		stop()
		select {
		case err := <-done:
			assert.ErrorIs(t, err, context.Canceled)
		case <-time.After(5 * time.Second):
			t.Fatal("watch loop did not stop")
		}
	}
}

func TestWatch_ReindexesOnWriteAndRemove(t *testing.T) {
	t.Parallel()
	p := newTestProject(t, nil)
	stop := startWatching(t, p)
	defer stop()

	writeFiles(t, p.Root(), map[string]string{"a.py": pyHelper})
	require.Eventually(t, func() bool {
		n, err := p.store.NodeByID("a.helper")
		return err == nil && n != nil
	}, 5*time.Second, 20*time.Millisecond, "write never reached the index")

	require.NoError(t, os.Remove(filepath.Join(p.Root(), "a.py")))
	require.Eventually(t, func() bool {
		n, err := p.store.NodeByID("a.helper")
		return err == nil && n == nil
	}, 5*time.Second, 20*time.Millisecond, "removal never reached the index")
}

func TestWatch_RewriteUpdatesEntities(t *testing.T) {
	t.Parallel()
	p := newTestProject(t, map[string]string{"a.py": pyHelper})
	require.NoError(t, p.IndexDirectory(context.Background()))
	stop := startWatching(t, p)
	defer stop()

	writeFiles(t, p.Root(), map[string]string{"a.py": "def renamed(x):\n    return x\n"})
	require.Eventually(t, func() bool {
		renamed, err := p.store.NodeByID("a.renamed")
		if err != nil || renamed == nil {
			return false
		}
		old, err := p.store.NodeByID("a.helper")
		return err == nil && old == nil
	}, 5*time.Second, 20*time.Millisecond, "rewrite never reached the index")
}

func TestWatch_ReindexFailureStaysInsideTheLoop(t *testing.T) {
	t.Parallel()
	p := newTestProject(t, nil)

	// A directory named like a source file makes the read fail; the handler
	// logs it and returns nothing, so the event producer sees no error.
	broken := filepath.Join(p.Root(), "broken.py")
	require.NoError(t, os.Mkdir(broken, 0o755))
	p.handleWatchEvent(context.Background(), watch.Event{Path: broken, Op: watch.OpWrite})

	// Later events still land.
	writeFiles(t, p.Root(), map[string]string{"ok.py": pyHelper})
	p.handleWatchEvent(context.Background(), watch.Event{Path: filepath.Join(p.Root(), "ok.py"), Op: watch.OpWrite})
	n, err := p.store.NodeByID("ok.helper")
	require.NoError(t, err)
	assert.NotNil(t, n)
}
