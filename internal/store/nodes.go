package store

import (
	"database/sql"
	"fmt"
)

const nodeCols = "id, kind, name, file_path, start_line, end_line, start_byte, parent_id, signature, docstring, file_hash, indexed_at"

// scanNode scans a row with nodeCols order into a Node.
func scanNode(row interface{ Scan(...any) error }) (*Node, error) {
	n := &Node{}
	var parent sql.NullString
	err := row.Scan(
		&n.ID, &n.Kind, &n.Name, &n.FilePath,
		&n.StartLine, &n.EndLine, &n.StartByte,
		&parent, &n.Signature, &n.Docstring, &n.FileHash, &n.IndexedAt,
	)
	if err != nil {
		return nil, err
	}
	if parent.Valid {
		n.ParentID = &parent.String
	}
	return n, nil
}

// NodeByID returns the node with the given id, or nil if not indexed.
func (s *Store) NodeByID(id string) (*Node, error) {
	row := s.db.QueryRow("SELECT "+nodeCols+" FROM nodes WHERE id = ?", id)
	n, err := scanNode(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("node by id: %w", err)
	}
	return n, nil
}

// NodesByFile returns all nodes belonging to filePath in source order
// (ascending span start).
func (s *Store) NodesByFile(filePath string) ([]*Node, error) {
	rows, err := s.db.Query(
		"SELECT "+nodeCols+" FROM nodes WHERE file_path = ? ORDER BY start_byte, id",
		filePath,
	)
	if err != nil {
		return nil, fmt.Errorf("nodes by file: %w", err)
	}
	defer rows.Close()
	return collectNodes(rows)
}

// NodesByName returns all nodes with the given short name, ordered by id
// for deterministic candidate sets.
func (s *Store) NodesByName(name string) ([]*Node, error) {
	rows, err := s.db.Query(
		"SELECT "+nodeCols+" FROM nodes WHERE name = ? ORDER BY id", name,
	)
	if err != nil {
		return nil, fmt.Errorf("nodes by name: %w", err)
	}
	defer rows.Close()
	return collectNodes(rows)
}

// NodesByIDs bulk-loads nodes keyed by id. Missing ids are simply absent
// from the result map.
func (s *Store) NodesByIDs(ids []string) (map[string]*Node, error) {
	result := make(map[string]*Node, len(ids))
	if len(ids) == 0 {
		return result, nil
	}
	rows, err := s.db.Query(
		"SELECT "+nodeCols+" FROM nodes WHERE id IN ("+placeholderList(len(ids))+")",
		stringsToArgs(ids)...,
	)
	if err != nil {
		return nil, fmt.Errorf("nodes by ids: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		n, err := scanNode(rows)
		if err != nil {
			return nil, fmt.Errorf("nodes by ids: scan: %w", err)
		}
		result[n.ID] = n
	}
	return result, rows.Err()
}

// NodeIDsByFile returns the id set of a file's nodes.
func (s *Store) NodeIDsByFile(filePath string) ([]string, error) {
	rows, err := s.db.Query("SELECT id FROM nodes WHERE file_path = ?", filePath)
	if err != nil {
		return nil, fmt.Errorf("node ids by file: %w", err)
	}
	defer rows.Close()
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("node ids by file: scan: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func collectNodes(rows *sql.Rows) ([]*Node, error) {
	var nodes []*Node
	for rows.Next() {
		n, err := scanNode(rows)
		if err != nil {
			return nil, fmt.Errorf("scan node: %w", err)
		}
		nodes = append(nodes, n)
	}
	return nodes, rows.Err()
}

const upsertNodeSQL = `INSERT INTO nodes (` + nodeCols + `)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET
	  kind=excluded.kind, name=excluded.name, file_path=excluded.file_path,
	  start_line=excluded.start_line, end_line=excluded.end_line,
	  start_byte=excluded.start_byte, parent_id=excluded.parent_id,
	  signature=excluded.signature, docstring=excluded.docstring,
	  file_hash=excluded.file_hash, indexed_at=excluded.indexed_at`

func upsertNodeTx(tx *sql.Tx, n *Node) error {
	_, err := tx.Exec(upsertNodeSQL,
		n.ID, n.Kind, n.Name, n.FilePath,
		n.StartLine, n.EndLine, n.StartByte,
		n.ParentID, n.Signature, n.Docstring, n.FileHash, n.IndexedAt,
	)
	return err
}
