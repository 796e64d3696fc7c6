package lattice

import "fmt"

// Status summarizes the health of one project partition.
type Status struct {
	ProjectID    string        `json:"project_id"`
	Root         string        `json:"root"`
	Nodes        int           `json:"nodes"`
	Edges        int           `json:"edges"`
	Observations int           `json:"observations"`
	IndexedFiles int           `json:"indexed_files"`
	Watching     bool          `json:"watching"`
	IndexErrors  []*IndexError `json:"index_errors,omitempty"`
}

// Status reports index counts, recorded per-file failures, and whether a
// watcher is currently attached.
func (p *Project) Status() (*Status, error) {
	stats, err := p.store.Stats()
	if err != nil {
		return nil, fmt.Errorf("status: %w", err)
	}
	indexErrors, err := p.store.IndexErrors()
	if err != nil {
		return nil, fmt.Errorf("status: %w", err)
	}
	return &Status{
		ProjectID:    p.id,
		Root:         p.root,
		Nodes:        stats.Nodes,
		Edges:        stats.Edges,
		Observations: stats.Observations,
		IndexedFiles: stats.IndexedFiles,
		Watching:     p.watching.Load(),
		IndexErrors:  indexErrors,
	}, nil
}
