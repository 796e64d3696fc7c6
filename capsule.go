package lattice

import (
	"fmt"
	"sort"
	"strings"

	"github.com/jward/lattice/internal/store"
)

// CapsuleNeighbor is one node reached while walking the dependency graph
// out from a capsule's focus node. Depth is the shortest edge distance from
// the focus. Node is nil for dangling targets; Target then carries the
// literal reference text.
type CapsuleNeighbor struct {
	Node      *Node
	Target    string
	Kind      string
	Depth     int
	Resolved  bool
	Ambiguous bool
}

// CapsuleView is a bounded-depth neighborhood around one node: its own
// signature and parent, what it depends on, what depends on it, and any
// observations linked to it.
type CapsuleView struct {
	Node         *Node
	Parent       *Node
	Depth        int
	Dependencies []CapsuleNeighbor
	Dependents   []CapsuleNeighbor
	Observations []*Observation
}

// Capsule returns the bounded-depth context around nodeID. depth must be at
// least 1 (ErrMalformedRequest otherwise); an unknown node id yields
// ErrNodeNotFound. A neighbor reachable by several paths appears once, at
// its shortest distance. Output is deterministic for identical input.
func (p *Project) Capsule(nodeID string, depth int) (*CapsuleView, error) {
	if depth < 1 {
		return nil, fmt.Errorf("capsule depth %d: %w", depth, ErrMalformedRequest)
	}
	node, err := p.store.NodeByID(nodeID)
	if err != nil {
		return nil, fmt.Errorf("capsule %s: %w", nodeID, err)
	}
	if node == nil {
		return nil, fmt.Errorf("capsule %s: %w", nodeID, ErrNodeNotFound)
	}

	edges, err := p.store.AllEdges()
	if err != nil {
		return nil, fmt.Errorf("capsule %s: %w", nodeID, err)
	}
	forward := make(map[string][]*store.Edge)
	reverse := make(map[string][]*store.Edge)
	for _, e := range edges {
		forward[e.SourceID] = append(forward[e.SourceID], e)
		reverse[e.TargetID] = append(reverse[e.TargetID], e)
	}

	deps := walkNeighbors(nodeID, depth, forward, func(e *store.Edge) string { return e.TargetID })
	dependents := walkNeighbors(nodeID, depth, reverse, func(e *store.Edge) string { return e.SourceID })

	view := &CapsuleView{Node: node, Depth: depth}

	if node.ParentID != nil {
		parent, err := p.store.NodeByID(*node.ParentID)
		if err != nil {
			return nil, fmt.Errorf("capsule %s: %w", nodeID, err)
		}
		view.Parent = parent
	}

	// Bulk-load every neighbor node in one query.
	idSet := make(map[string]bool)
	for _, n := range deps {
		idSet[n.Target] = true
	}
	for _, n := range dependents {
		idSet[n.Target] = true
	}
	ids := make([]string, 0, len(idSet))
	for id := range idSet {
		ids = append(ids, id)
	}
	nodes, err := p.store.NodesByIDs(ids)
	if err != nil {
		return nil, fmt.Errorf("capsule %s: %w", nodeID, err)
	}
	attach := func(neighbors []CapsuleNeighbor) []CapsuleNeighbor {
		for i := range neighbors {
			neighbors[i].Node = nodes[neighbors[i].Target]
		}
		return neighbors
	}
	view.Dependencies = attach(deps)
	view.Dependents = attach(dependents)

	obs, err := p.store.ObservationsByNode(nodeID)
	if err != nil {
		return nil, fmt.Errorf("capsule %s: %w", nodeID, err)
	}
	view.Observations = obs

	return view, nil
}

// walkNeighbors runs a breadth-first traversal out of start following
// adjacency in one direction, keeping each neighbor at its shortest depth.
func walkNeighbors(start string, maxDepth int, adjacency map[string][]*store.Edge, endpoint func(*store.Edge) string) []CapsuleNeighbor {
	type visit struct {
		id    string
		depth int
	}
	best := make(map[string]*CapsuleNeighbor)
	queue := []visit{{id: start, depth: 0}}
	seen := map[string]bool{start: true}

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if cur.depth == maxDepth {
			continue
		}
		for _, e := range adjacency[cur.id] {
			other := endpoint(e)
			if other == start {
				continue
			}
			d := cur.depth + 1
			if existing, ok := best[other]; !ok || d < existing.Depth {
				best[other] = &CapsuleNeighbor{
					Target:    other,
					Kind:      e.Kind,
					Depth:     d,
					Resolved:  e.Resolved,
					Ambiguous: e.Ambiguous,
				}
			}
			// Dangling targets are leaves; only resolved nodes expand.
			if e.Resolved && !seen[other] {
				seen[other] = true
				queue = append(queue, visit{id: other, depth: d})
			}
		}
	}

	out := make([]CapsuleNeighbor, 0, len(best))
	for _, n := range best {
		out = append(out, *n)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Depth != out[j].Depth {
			return out[i].Depth < out[j].Depth
		}
		return out[i].Target < out[j].Target
	})
	return out
}

// Markdown renders the capsule as a compact markdown context block.
func (v *CapsuleView) Markdown() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "# %s\n\n", v.Node.ID)
	fmt.Fprintf(&sb, "```\n%s\n```\n", v.Node.Signature)
	if v.Node.Docstring != "" {
		fmt.Fprintf(&sb, "\n%s\n", v.Node.Docstring)
	}
	fmt.Fprintf(&sb, "\nFile: %s:%d\n", v.Node.FilePath, v.Node.StartLine)
	if v.Parent != nil {
		fmt.Fprintf(&sb, "Parent: %s (%s)\n", v.Parent.ID, v.Parent.Kind)
	}

	renderNeighbors := func(title string, neighbors []CapsuleNeighbor) {
		if len(neighbors) == 0 {
			return
		}
		fmt.Fprintf(&sb, "\n## %s\n\n", title)
		for _, n := range neighbors {
			marker := ""
			if !n.Resolved {
				marker = " (unresolved)"
			} else if n.Ambiguous {
				marker = " (ambiguous)"
			}
			if n.Node != nil && n.Node.Signature != "" {
				fmt.Fprintf(&sb, "- [%s d%d] %s%s\n", n.Kind, n.Depth, n.Node.Signature, marker)
			} else {
				fmt.Fprintf(&sb, "- [%s d%d] %s%s\n", n.Kind, n.Depth, n.Target, marker)
			}
		}
	}
	renderNeighbors("Dependencies", v.Dependencies)
	renderNeighbors("Dependents", v.Dependents)

	if len(v.Observations) > 0 {
		sb.WriteString("\n## Observations\n\n")
		for _, o := range v.Observations {
			fmt.Fprintf(&sb, "- [%s %s] %s\n", o.Source, o.CreatedAt.Format("2006-01-02"), o.Content)
		}
	}
	return sb.String()
}
