package lattice

import (
	"fmt"
	"sort"
	"strings"

	"github.com/jward/lattice/internal/lang"
	"github.com/jward/lattice/internal/store"
)

// buildEdges turns a file summary's references and imports into edge rows.
// Resolution never guesses: one candidate yields a resolved edge, several
// yield one edge per candidate all marked ambiguous, and none yields a
// dangling edge keeping the literal reference text as its target.
func (p *Project) buildEdges(moduleID, filePath string, summary *lang.FileSummary, nodes []*store.Node) ([]*store.Edge, error) {
	localByID := make(map[string]bool, len(nodes))
	localByName := make(map[string][]string)
	for _, n := range nodes {
		localByID[n.ID] = true
		localByName[n.Name] = append(localByName[n.Name], n.ID)
	}

	seen := make(map[string]bool)
	var edges []*store.Edge
	add := func(e *store.Edge) {
		key := e.SourceID + "\x00" + e.TargetID + "\x00" + e.Kind
		if seen[key] {
			return
		}
		seen[key] = true
		edges = append(edges, e)
	}

	for _, imp := range summary.Imports {
		targets, resolved, ambiguous, err := p.resolveImport(imp.Target, filePath)
		if err != nil {
			return nil, err
		}
		for _, target := range targets {
			add(&store.Edge{
				SourceID:  moduleID,
				TargetID:  target,
				Kind:      EdgeImports,
				FilePath:  filePath,
				Line:      imp.Line,
				Resolved:  resolved,
				Ambiguous: ambiguous,
			})
		}
	}

	for _, ref := range summary.Refs {
		sourceID := moduleID
		if ref.Owner != "" {
			sourceID = moduleID + "." + ref.Owner
		}
		targets, resolved, ambiguous, err := p.resolveRef(ref.Target, moduleID, filePath, localByID, localByName)
		if err != nil {
			return nil, err
		}
		for _, target := range targets {
			if target == sourceID && ref.Kind == EdgeInherits {
				continue // a class cannot inherit itself
			}
			add(&store.Edge{
				SourceID:  sourceID,
				TargetID:  target,
				Kind:      ref.Kind,
				FilePath:  filePath,
				Line:      ref.Line,
				Resolved:  resolved,
				Ambiguous: ambiguous,
			})
		}
	}

	return edges, nil
}

// resolveRef resolves a reference target to node ids. Same-file candidates
// win outright; otherwise the whole project is searched by short name.
func (p *Project) resolveRef(target, moduleID, filePath string, localByID map[string]bool, localByName map[string][]string) ([]string, bool, bool, error) {
	// Exact qualified match within the file ("Parser.parse" seen from the
	// same module).
	if qualified := moduleID + "." + target; localByID[qualified] {
		return []string{qualified}, true, false, nil
	}

	short := lastSegment(target)
	if ids := localByName[short]; len(ids) > 0 {
		unique := uniqueSorted(append([]string(nil), ids...))
		return unique, true, len(unique) > 1, nil
	}

	// Project-wide by short name. Rows from this file are stale (the new
	// node set is not committed yet) and already covered above.
	candidates, err := p.store.NodesByName(short)
	if err != nil {
		return nil, false, false, fmt.Errorf("resolve %q: %w", target, err)
	}
	var ids []string
	for _, c := range candidates {
		if c.FilePath == filePath || c.Kind == KindModule {
			continue
		}
		ids = append(ids, c.ID)
	}
	if len(ids) == 0 {
		return []string{target}, false, false, nil // dangling
	}
	ids = uniqueSorted(ids)
	return ids, true, len(ids) > 1, nil
}

// resolveImport resolves an import target to module node ids. Dotted import
// paths line up with module ids directly; otherwise module nodes are matched
// by their trailing name.
func (p *Project) resolveImport(target, filePath string) ([]string, bool, bool, error) {
	normalized := normalizeImport(target)

	if n, err := p.store.NodeByID(normalized); err != nil {
		return nil, false, false, fmt.Errorf("resolve import %q: %w", target, err)
	} else if n != nil && n.Kind == KindModule && n.FilePath != filePath {
		return []string{n.ID}, true, false, nil
	}

	candidates, err := p.store.NodesByName(lastSegment(normalized))
	if err != nil {
		return nil, false, false, fmt.Errorf("resolve import %q: %w", target, err)
	}
	var ids []string
	for _, c := range candidates {
		if c.Kind != KindModule || c.FilePath == filePath {
			continue
		}
		ids = append(ids, c.ID)
	}
	if len(ids) == 0 {
		return []string{target}, false, false, nil // external or unindexed
	}
	ids = uniqueSorted(ids)
	return ids, true, len(ids) > 1, nil
}

// normalizeImport maps source-level import syntax onto the dotted module id
// space: relative JS paths lose their ./ prefix and extension, slashes
// become dots.
func normalizeImport(target string) string {
	t := strings.TrimPrefix(target, "./")
	t = strings.TrimSuffix(t, ".js")
	t = strings.TrimSuffix(t, ".mjs")
	t = strings.TrimSuffix(t, ".cjs")
	return strings.ReplaceAll(t, "/", ".")
}

// reconcileDangling re-resolves dangling edges elsewhere in the project
// whose target matches a name this file just introduced. Runs after the
// file's own index commits, so the new rows are visible to candidate
// lookups.
func (p *Project) reconcileDangling(filePath string, newNodes []*store.Node) error {
	names := make(map[string]bool, len(newNodes))
	ids := make(map[string]bool, len(newNodes))
	for _, n := range newNodes {
		names[n.Name] = true
		ids[n.ID] = true
	}

	dangling, err := p.store.UnresolvedEdges()
	if err != nil {
		return fmt.Errorf("reconcile dangling: %w", err)
	}
	for _, e := range dangling {
		if e.FilePath == filePath {
			continue // just rebuilt with current resolution
		}
		short := lastSegment(e.TargetID)
		if !names[short] && !ids[normalizeImport(e.TargetID)] {
			continue
		}

		var targets []string
		switch e.Kind {
		case EdgeImports:
			normalized := normalizeImport(e.TargetID)
			if ids[normalized] {
				targets = []string{normalized}
			}
		default:
			candidates, err := p.store.NodesByName(short)
			if err != nil {
				return fmt.Errorf("reconcile dangling: %w", err)
			}
			for _, c := range candidates {
				if c.Kind == KindModule || c.FilePath == e.FilePath {
					continue
				}
				targets = append(targets, c.ID)
			}
			targets = uniqueSorted(targets)
		}
		if len(targets) == 0 {
			continue
		}

		replacements := make([]*store.Edge, 0, len(targets))
		for _, target := range targets {
			replacements = append(replacements, &store.Edge{
				SourceID:  e.SourceID,
				TargetID:  target,
				Kind:      e.Kind,
				FilePath:  e.FilePath,
				Line:      e.Line,
				Resolved:  true,
				Ambiguous: len(targets) > 1,
			})
		}
		if err := p.store.ReplaceEdge(e.ID, replacements); err != nil {
			return fmt.Errorf("reconcile dangling: %w", err)
		}
	}
	return nil
}

func uniqueSorted(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := ids[:0]
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	sort.Strings(out)
	return out
}
