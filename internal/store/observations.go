package store

import (
	"database/sql"
	"fmt"
	"time"
)

const obsCols = "id, content, node_id, tags, source, created_at"

func scanObservation(row interface{ Scan(...any) error }) (*Observation, error) {
	o := &Observation{}
	var nodeID sql.NullString
	var tags string
	err := row.Scan(&o.ID, &o.Content, &nodeID, &tags, &o.Source, &o.CreatedAt)
	if err != nil {
		return nil, err
	}
	if nodeID.Valid {
		o.NodeID = &nodeID.String
	}
	o.Tags = unmarshalTags(tags)
	return o, nil
}

// AppendObservation inserts an observation and returns its assigned id.
// Observations are append-only; no update or delete exists.
func (s *Store) AppendObservation(o *Observation) (int64, error) {
	res, err := s.db.Exec(
		`INSERT INTO observations (content, node_id, tags, source, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		o.Content, o.NodeID, marshalTags(o.Tags), o.Source, o.CreatedAt,
	)
	if err != nil {
		return 0, fmt.Errorf("append observation: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("append observation: last id: %w", err)
	}
	o.ID = id
	return id, nil
}

// ObservationsSince returns observations created after since, newest first.
// Ties on created_at break by insertion order (higher id first). A non-empty
// source filters by source label; limit 0 means unlimited.
func (s *Store) ObservationsSince(since time.Time, source string, limit int) ([]*Observation, error) {
	query := "SELECT " + obsCols + " FROM observations WHERE created_at > ?"
	args := []any{since}
	if source != "" {
		query += " AND source = ?"
		args = append(args, source)
	}
	query += " ORDER BY created_at DESC, id DESC"
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("observations since: %w", err)
	}
	defer rows.Close()
	return collectObservations(rows)
}

// ObservationsByNode returns observations linked to a node, newest first.
func (s *Store) ObservationsByNode(nodeID string) ([]*Observation, error) {
	rows, err := s.db.Query(
		"SELECT "+obsCols+" FROM observations WHERE node_id = ? ORDER BY created_at DESC, id DESC",
		nodeID,
	)
	if err != nil {
		return nil, fmt.Errorf("observations by node: %w", err)
	}
	defer rows.Close()
	return collectObservations(rows)
}

func collectObservations(rows *sql.Rows) ([]*Observation, error) {
	var obs []*Observation
	for rows.Next() {
		o, err := scanObservation(rows)
		if err != nil {
			return nil, fmt.Errorf("scan observation: %w", err)
		}
		obs = append(obs, o)
	}
	return obs, rows.Err()
}
