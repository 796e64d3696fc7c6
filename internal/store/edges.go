package store

import (
	"database/sql"
	"fmt"
)

const edgeCols = "id, source_id, target_id, kind, file_path, line, resolved, ambiguous"

func scanEdge(row interface{ Scan(...any) error }) (*Edge, error) {
	e := &Edge{}
	var line sql.NullInt64
	err := row.Scan(&e.ID, &e.SourceID, &e.TargetID, &e.Kind, &e.FilePath, &line, &e.Resolved, &e.Ambiguous)
	if err != nil {
		return nil, err
	}
	if line.Valid {
		e.Line = int(line.Int64)
	}
	return e, nil
}

func collectEdges(rows *sql.Rows) ([]*Edge, error) {
	var edges []*Edge
	for rows.Next() {
		e, err := scanEdge(rows)
		if err != nil {
			return nil, fmt.Errorf("scan edge: %w", err)
		}
		edges = append(edges, e)
	}
	return edges, rows.Err()
}

// EdgesBySource returns outgoing edges for a node, ordered for determinism.
func (s *Store) EdgesBySource(sourceID string) ([]*Edge, error) {
	rows, err := s.db.Query(
		"SELECT "+edgeCols+" FROM edges WHERE source_id = ? ORDER BY target_id, kind", sourceID,
	)
	if err != nil {
		return nil, fmt.Errorf("edges by source: %w", err)
	}
	defer rows.Close()
	return collectEdges(rows)
}

// EdgesByTarget returns incoming edges for a node, ordered for determinism.
func (s *Store) EdgesByTarget(targetID string) ([]*Edge, error) {
	rows, err := s.db.Query(
		"SELECT "+edgeCols+" FROM edges WHERE target_id = ? ORDER BY source_id, kind", targetID,
	)
	if err != nil {
		return nil, fmt.Errorf("edges by target: %w", err)
	}
	defer rows.Close()
	return collectEdges(rows)
}

// AllEdges bulk-loads every edge in the partition for in-memory traversal.
func (s *Store) AllEdges() ([]*Edge, error) {
	rows, err := s.db.Query("SELECT " + edgeCols + " FROM edges ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("all edges: %w", err)
	}
	defer rows.Close()
	return collectEdges(rows)
}

// UnresolvedEdges returns every dangling edge in the partition.
func (s *Store) UnresolvedEdges() ([]*Edge, error) {
	rows, err := s.db.Query("SELECT " + edgeCols + " FROM edges WHERE resolved = 0 ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("unresolved edges: %w", err)
	}
	defer rows.Close()
	return collectEdges(rows)
}

const upsertEdgeSQL = `INSERT INTO edges (source_id, target_id, kind, file_path, line, resolved, ambiguous)
	VALUES (?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(source_id, target_id, kind) DO UPDATE SET
	  file_path=excluded.file_path, line=excluded.line,
	  resolved=excluded.resolved, ambiguous=excluded.ambiguous`

func upsertEdgeTx(tx *sql.Tx, e *Edge) error {
	_, err := tx.Exec(upsertEdgeSQL,
		e.SourceID, e.TargetID, e.Kind, e.FilePath, e.Line, e.Resolved, e.Ambiguous,
	)
	return err
}

// ReplaceEdge atomically swaps a dangling edge for its resolved
// replacement rows. Used when a reindex makes a previously-unresolvable
// target available.
func (s *Store) ReplaceEdge(oldID int64, replacements []*Edge) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("replace edge: begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM edges WHERE id = ?", oldID); err != nil {
		return fmt.Errorf("replace edge: delete: %w", err)
	}
	for _, e := range replacements {
		if err := upsertEdgeTx(tx, e); err != nil {
			return fmt.Errorf("replace edge: insert: %w", err)
		}
	}
	return tx.Commit()
}
