package lattice

import (
	"fmt"
	"strings"
	"time"

	"github.com/jward/lattice/internal/store"
)

// ObservationWindow selects a slice of the observation log.
type ObservationWindow struct {
	Span   time.Duration
	Source string
	Limit  int
}

// Observe appends an observation to the project's log. Content must be
// non-empty; the log is append-only, so the stored text is returned
// verbatim by every later read. An empty source defaults to "user". The
// optional nodeID links the observation to a graph node without any
// existence check, since the node may be indexed later.
func (p *Project) Observe(content, source string, tags []string, nodeID string) (*Observation, error) {
	if strings.TrimSpace(content) == "" {
		return nil, fmt.Errorf("observe: empty content: %w", ErrMalformedRequest)
	}
	if source == "" {
		source = SourceUser
	}

	o := &store.Observation{
		Content:   content,
		Tags:      tags,
		Source:    source,
		CreatedAt: p.now(),
	}
	if nodeID != "" {
		o.NodeID = &nodeID
	}
	if _, err := p.store.AppendObservation(o); err != nil {
		return nil, fmt.Errorf("observe: %w", err)
	}
	return o, nil
}

// Observations returns the newest observations in the window, most recent
// first; ties on timestamp break by insertion order. A non-empty source
// filters by source label, limit 0 means unlimited.
func (p *Project) Observations(window ObservationWindow) ([]*Observation, error) {
	since := p.now().Add(-window.Span)
	obs, err := p.store.ObservationsSince(since, window.Source, window.Limit)
	if err != nil {
		return nil, fmt.Errorf("observations: %w", err)
	}
	return obs, nil
}
