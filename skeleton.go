package lattice

import (
	"fmt"
	"strings"
)

// SkeletonEntry is one signature line of a file skeleton.
type SkeletonEntry struct {
	ID        string
	Kind      string
	Name      string
	Signature string
	Docstring string
	StartLine int
}

// Skeleton is the ordered signature outline of one indexed file.
type Skeleton struct {
	FilePath string
	ModuleID string
	Entries  []SkeletonEntry
}

// Skeleton returns the signature outline of a file, ordered by source
// position. The file must have been indexed (ErrFileNotIndexed otherwise);
// an indexed file with no extractable entities yields an empty outline,
// not an error.
func (p *Project) Skeleton(filePath string) (*Skeleton, error) {
	path := p.absPath(filePath)

	indexed, err := p.store.IndexedFileByPath(path)
	if err != nil {
		return nil, fmt.Errorf("skeleton %s: %w", filePath, err)
	}
	if indexed == nil {
		return nil, fmt.Errorf("skeleton %s: %w", filePath, ErrFileNotIndexed)
	}

	nodes, err := p.store.NodesByFile(path)
	if err != nil {
		return nil, fmt.Errorf("skeleton %s: %w", filePath, err)
	}

	sk := &Skeleton{FilePath: path, ModuleID: p.moduleID(path)}
	for _, n := range nodes {
		if n.Kind == KindModule {
			continue // the module node is the file itself
		}
		sk.Entries = append(sk.Entries, SkeletonEntry{
			ID:        n.ID,
			Kind:      n.Kind,
			Name:      n.Name,
			Signature: n.Signature,
			Docstring: n.Docstring,
			StartLine: n.StartLine,
		})
	}
	return sk, nil
}

// Render returns the skeleton as indented plain text, methods nested under
// their class.
func (sk *Skeleton) Render() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s\n", sk.FilePath)
	for _, e := range sk.Entries {
		indent := "  "
		if e.Kind == KindMethod {
			indent = "    "
		}
		fmt.Fprintf(&sb, "%s%s\n", indent, e.Signature)
	}
	return sb.String()
}
