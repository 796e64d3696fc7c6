package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(filepath.Join(t.TempDir(), "index.db"))
	require.NoError(t, err)
	require.NoError(t, s.Migrate())
	t.Cleanup(func() { s.Close() })
	return s
}

func strPtr(s string) *string { return &s }

func testNode(id, kind, name, filePath string, startByte int) *Node {
	return &Node{
		ID: id, Kind: kind, Name: name, FilePath: filePath,
		StartLine: 1, EndLine: 2, StartByte: startByte,
		FileHash: "h1", IndexedAt: time.Now().UTC(),
	}
}

func TestMigrate_Idempotent(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	require.NoError(t, s.Migrate())
	require.NoError(t, s.Migrate())
}

func TestMetadata_RoundTrip(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)

	v, err := s.GetMetadata("root")
	require.NoError(t, err)
	assert.Empty(t, v)

	require.NoError(t, s.SetMetadata("root", "/tmp/project"))
	require.NoError(t, s.SetMetadata("root", "/tmp/other")) // upsert

	v, err = s.GetMetadata("root")
	require.NoError(t, err)
	assert.Equal(t, "/tmp/other", v)
}

func TestApplyFileIndex_InsertAndRead(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)

	mod := testNode("pkg.util", "module", "util", "/p/util.py", 0)
	fn := testNode("pkg.util.helper", "function", "helper", "/p/util.py", 10)
	fn.ParentID = strPtr("pkg.util")

	err := s.ApplyFileIndex(&FileIndex{
		FilePath: "/p/util.py", FileHash: "h1", IndexedAt: time.Now().UTC(),
		Nodes: []*Node{mod, fn},
		Edges: []*Edge{{
			SourceID: "pkg.util.helper", TargetID: "other", Kind: "calls",
			FilePath: "/p/util.py", Line: 3,
		}},
	})
	require.NoError(t, err)

	n, err := s.NodeByID("pkg.util.helper")
	require.NoError(t, err)
	require.NotNil(t, n)
	assert.Equal(t, "function", n.Kind)
	require.NotNil(t, n.ParentID)
	assert.Equal(t, "pkg.util", *n.ParentID)

	f, err := s.IndexedFileByPath("/p/util.py")
	require.NoError(t, err)
	require.NotNil(t, f)
	assert.Equal(t, "h1", f.FileHash)
	assert.Equal(t, 2, f.NodeCount)

	edges, err := s.EdgesBySource("pkg.util.helper")
	require.NoError(t, err)
	require.Len(t, edges, 1)
	assert.False(t, edges[0].Resolved)
}

func TestApplyFileIndex_RemovedNodesUnresolveEdges(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)

	// File a defines helper; file b calls it with a resolved edge.
	require.NoError(t, s.ApplyFileIndex(&FileIndex{
		FilePath: "/p/a.py", FileHash: "a1", IndexedAt: time.Now().UTC(),
		Nodes: []*Node{testNode("a.helper", "function", "helper", "/p/a.py", 0)},
	}))
	require.NoError(t, s.ApplyFileIndex(&FileIndex{
		FilePath: "/p/b.py", FileHash: "b1", IndexedAt: time.Now().UTC(),
		Nodes: []*Node{testNode("b.caller", "function", "caller", "/p/b.py", 0)},
		Edges: []*Edge{{
			SourceID: "b.caller", TargetID: "a.helper", Kind: "calls",
			FilePath: "/p/b.py", Resolved: true,
		}},
	}))

	// Reindex file a with helper gone.
	require.NoError(t, s.ApplyFileIndex(&FileIndex{
		FilePath: "/p/a.py", FileHash: "a2", IndexedAt: time.Now().UTC(),
		RemovedNodeIDs: []string{"a.helper"},
	}))

	n, err := s.NodeByID("a.helper")
	require.NoError(t, err)
	assert.Nil(t, n)

	// The edge survives but reverts to unresolved.
	edges, err := s.EdgesBySource("b.caller")
	require.NoError(t, err)
	require.Len(t, edges, 1)
	assert.False(t, edges[0].Resolved)
}

func TestApplyFileIndex_ClearsIndexError(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)

	require.NoError(t, s.RecordIndexError("/p/a.py", "syntax error", time.Now().UTC()))
	errs, err := s.IndexErrors()
	require.NoError(t, err)
	require.Len(t, errs, 1)

	require.NoError(t, s.ApplyFileIndex(&FileIndex{
		FilePath: "/p/a.py", FileHash: "a1", IndexedAt: time.Now().UTC(),
		Nodes: []*Node{testNode("a", "module", "a", "/p/a.py", 0)},
	}))

	errs, err = s.IndexErrors()
	require.NoError(t, err)
	assert.Empty(t, errs)
}

func TestRemoveFileData_UnresolvesInboundEdges(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)

	require.NoError(t, s.ApplyFileIndex(&FileIndex{
		FilePath: "/p/a.py", FileHash: "a1", IndexedAt: time.Now().UTC(),
		Nodes: []*Node{testNode("a.helper", "function", "helper", "/p/a.py", 0)},
	}))
	require.NoError(t, s.ApplyFileIndex(&FileIndex{
		FilePath: "/p/b.py", FileHash: "b1", IndexedAt: time.Now().UTC(),
		Nodes: []*Node{testNode("b.caller", "function", "caller", "/p/b.py", 0)},
		Edges: []*Edge{{
			SourceID: "b.caller", TargetID: "a.helper", Kind: "calls",
			FilePath: "/p/b.py", Resolved: true,
		}},
	}))

	require.NoError(t, s.RemoveFileData("/p/a.py"))

	nodes, err := s.NodesByFile("/p/a.py")
	require.NoError(t, err)
	assert.Empty(t, nodes)
	f, err := s.IndexedFileByPath("/p/a.py")
	require.NoError(t, err)
	assert.Nil(t, f)

	edges, err := s.UnresolvedEdges()
	require.NoError(t, err)
	require.Len(t, edges, 1)
	assert.Equal(t, "a.helper", edges[0].TargetID)
}

func TestNodesByFile_OrderedBySpanStart(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)

	require.NoError(t, s.ApplyFileIndex(&FileIndex{
		FilePath: "/p/a.py", FileHash: "a1", IndexedAt: time.Now().UTC(),
		Nodes: []*Node{
			testNode("a.z", "function", "z", "/p/a.py", 300),
			testNode("a.m", "function", "m", "/p/a.py", 100),
			testNode("a", "module", "a", "/p/a.py", 0),
		},
	}))

	nodes, err := s.NodesByFile("/p/a.py")
	require.NoError(t, err)
	require.Len(t, nodes, 3)
	assert.Equal(t, "a", nodes[0].ID)
	assert.Equal(t, "a.m", nodes[1].ID)
	assert.Equal(t, "a.z", nodes[2].ID)
}

func TestEdges_UniquePerSourceTargetKind(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)

	edge := func(line int) *Edge {
		return &Edge{
			SourceID: "a.f", TargetID: "a.g", Kind: "calls",
			FilePath: "/p/a.py", Line: line, Resolved: true,
		}
	}
	require.NoError(t, s.ApplyFileIndex(&FileIndex{
		FilePath: "/p/a.py", FileHash: "a1", IndexedAt: time.Now().UTC(),
		Edges:    []*Edge{edge(3), edge(9)},
	}))

	edges, err := s.AllEdges()
	require.NoError(t, err)
	require.Len(t, edges, 1)
	assert.Equal(t, 9, edges[0].Line) // last write wins
}

func TestReplaceEdge_SwapsDanglingForResolved(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)

	require.NoError(t, s.ApplyFileIndex(&FileIndex{
		FilePath: "/p/b.py", FileHash: "b1", IndexedAt: time.Now().UTC(),
		Edges: []*Edge{{
			SourceID: "b.caller", TargetID: "helper", Kind: "calls",
			FilePath: "/p/b.py", Line: 4,
		}},
	}))
	dangling, err := s.UnresolvedEdges()
	require.NoError(t, err)
	require.Len(t, dangling, 1)

	require.NoError(t, s.ReplaceEdge(dangling[0].ID, []*Edge{{
		SourceID: "b.caller", TargetID: "a.helper", Kind: "calls",
		FilePath: "/p/b.py", Line: 4, Resolved: true,
	}}))

	edges, err := s.EdgesBySource("b.caller")
	require.NoError(t, err)
	require.Len(t, edges, 1)
	assert.Equal(t, "a.helper", edges[0].TargetID)
	assert.True(t, edges[0].Resolved)
}

func TestAppendObservation_OrderingAndTags(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)

	base := time.Now().UTC().Add(-time.Hour)
	for i, content := range []string{"first", "second", "third"} {
		_, err := s.AppendObservation(&Observation{
			Content:   content,
			Tags:      []string{"t1", "t2"},
			Source:    "user",
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		})
		require.NoError(t, err)
	}
	// Same timestamp as "third": insertion order breaks the tie.
	_, err := s.AppendObservation(&Observation{
		Content: "fourth", Source: "user",
		CreatedAt: base.Add(2 * time.Minute),
	})
	require.NoError(t, err)

	obs, err := s.ObservationsSince(base.Add(-time.Minute), "", 0)
	require.NoError(t, err)
	require.Len(t, obs, 4)
	assert.Equal(t, "fourth", obs[0].Content)
	assert.Equal(t, "third", obs[1].Content)
	assert.Equal(t, "second", obs[2].Content)
	assert.Equal(t, "first", obs[3].Content)
	assert.Equal(t, []string{"t1", "t2"}, obs[3].Tags)
}

func TestObservationsSince_SourceFilterAndWindow(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)

	now := time.Now().UTC()
	_, err := s.AppendObservation(&Observation{Content: "old", Source: "user", CreatedAt: now.Add(-48 * time.Hour)})
	require.NoError(t, err)
	_, err = s.AppendObservation(&Observation{Content: "hooked", Source: "hook", CreatedAt: now})
	require.NoError(t, err)
	_, err = s.AppendObservation(&Observation{Content: "recent", Source: "user", CreatedAt: now})
	require.NoError(t, err)

	obs, err := s.ObservationsSince(now.Add(-24*time.Hour), "", 0)
	require.NoError(t, err)
	assert.Len(t, obs, 2)

	obs, err = s.ObservationsSince(now.Add(-24*time.Hour), "hook", 0)
	require.NoError(t, err)
	require.Len(t, obs, 1)
	assert.Equal(t, "hooked", obs[0].Content)
}

func TestObservationsByNode(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)

	_, err := s.AppendObservation(&Observation{
		Content: "linked", NodeID: strPtr("a.helper"), Source: "user", CreatedAt: time.Now().UTC(),
	})
	require.NoError(t, err)
	_, err = s.AppendObservation(&Observation{Content: "unlinked", Source: "user", CreatedAt: time.Now().UTC()})
	require.NoError(t, err)

	obs, err := s.ObservationsByNode("a.helper")
	require.NoError(t, err)
	require.Len(t, obs, 1)
	assert.Equal(t, "linked", obs[0].Content)
}

func TestStats_CountsAllTables(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)

	require.NoError(t, s.ApplyFileIndex(&FileIndex{
		FilePath: "/p/a.py", FileHash: "a1", IndexedAt: time.Now().UTC(),
		Nodes:    []*Node{testNode("a", "module", "a", "/p/a.py", 0)},
		Edges: []*Edge{{
			SourceID: "a", TargetID: "os", Kind: "imports", FilePath: "/p/a.py",
		}},
	}))
	_, err := s.AppendObservation(&Observation{Content: "note", Source: "user", CreatedAt: time.Now().UTC()})
	require.NoError(t, err)
	require.NoError(t, s.RecordIndexError("/p/bad.py", "boom", time.Now().UTC()))

	stats, err := s.Stats()
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Nodes)
	assert.Equal(t, 1, stats.Edges)
	assert.Equal(t, 1, stats.Observations)
	assert.Equal(t, 1, stats.IndexedFiles)
	assert.Equal(t, 1, stats.IndexErrors)
}
