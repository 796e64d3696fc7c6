package lattice

import (
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegister_ReturnsStableID(t *testing.T) {
	t.Parallel()
	registry := NewRegistry(WithDataDir(t.TempDir()))
	root := t.TempDir()

	id1, err := registry.Register(root)
	require.NoError(t, err)
	require.Len(t, id1, 16)

	id2, err := registry.Register(root)
	require.NoError(t, err)
	assert.Equal(t, id1, id2)
}

func TestRegister_IdempotentKeepsData(t *testing.T) {
	t.Parallel()
	registry := NewRegistry(WithDataDir(t.TempDir()))
	root := t.TempDir()

	id, err := registry.Register(root)
	require.NoError(t, err)

	p, err := registry.Open(id)
	require.NoError(t, err)
	_, err = p.Observe("still here", "user", nil, "")
	require.NoError(t, err)
	require.NoError(t, p.Close())

	// Re-registering must not reset the partition.
	_, err = registry.Register(root)
	require.NoError(t, err)

	p, err = registry.Open(id)
	require.NoError(t, err)
	defer p.Close()
	status, err := p.Status()
	require.NoError(t, err)
	assert.Equal(t, 1, status.Observations)
}

func TestRegister_InvalidRoot(t *testing.T) {
	t.Parallel()
	registry := NewRegistry(WithDataDir(t.TempDir()))

	_, err := registry.Register(filepath.Join(t.TempDir(), "missing"))
	assert.ErrorIs(t, err, ErrInvalidRoot)

	file := filepath.Join(t.TempDir(), "not-a-dir")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0o644))
	_, err = registry.Register(file)
	assert.ErrorIs(t, err, ErrInvalidRoot)
}

func TestRegister_ConcurrentSameRoot(t *testing.T) {
	t.Parallel()
	registry := NewRegistry(WithDataDir(t.TempDir()))
	root := t.TempDir()

	ids := make([]string, 8)
	var wg sync.WaitGroup
	for i := range ids {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			id, err := registry.Register(root)
			assert.NoError(t, err)
			ids[i] = id
		}()
	}
	wg.Wait()

	for _, id := range ids {
		assert.Equal(t, ids[0], id)
	}
}

func TestRegister_DistinctRootsDistinctPartitions(t *testing.T) {
	t.Parallel()
	registry := NewRegistry(WithDataDir(t.TempDir()))

	id1, err := registry.Register(t.TempDir())
	require.NoError(t, err)
	id2, err := registry.Register(t.TempDir())
	require.NoError(t, err)
	assert.NotEqual(t, id1, id2)

	// Observations in one partition stay invisible to the other.
	p1, err := registry.Open(id1)
	require.NoError(t, err)
	defer p1.Close()
	_, err = p1.Observe("only in one", "user", nil, "")
	require.NoError(t, err)

	p2, err := registry.Open(id2)
	require.NoError(t, err)
	defer p2.Close()
	status, err := p2.Status()
	require.NoError(t, err)
	assert.Zero(t, status.Observations)
}

func TestResolve_NotRegistered(t *testing.T) {
	t.Parallel()
	registry := NewRegistry(WithDataDir(t.TempDir()))

	_, err := registry.Resolve(t.TempDir())
	assert.ErrorIs(t, err, ErrNotRegistered)
}

func TestResolve_RegisteredRoot(t *testing.T) {
	t.Parallel()
	registry := NewRegistry(WithDataDir(t.TempDir()))
	root := t.TempDir()

	id, err := registry.Register(root)
	require.NoError(t, err)

	resolved, err := registry.Resolve(root)
	require.NoError(t, err)
	assert.Equal(t, id, resolved)
}

func TestOpen_MissingProject(t *testing.T) {
	t.Parallel()
	registry := NewRegistry(WithDataDir(t.TempDir()))

	_, err := registry.Open("deadbeef00000000")
	assert.ErrorIs(t, err, ErrMissingProject)
}

func TestProjects_ListsRegistered(t *testing.T) {
	t.Parallel()
	registry := NewRegistry(WithDataDir(t.TempDir()))

	infos, err := registry.Projects()
	require.NoError(t, err)
	assert.Empty(t, infos)

	root := t.TempDir()
	id, err := registry.Register(root)
	require.NoError(t, err)

	infos, err = registry.Projects()
	require.NoError(t, err)
	require.Len(t, infos, 1)
	assert.Equal(t, id, infos[0].ID)
	assert.Equal(t, root, infos[0].Root)
}
