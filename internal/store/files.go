package store

import (
	"database/sql"
	"fmt"
	"time"
)

// IndexedFileByPath returns the index entry for a file, or nil if the file
// has never been indexed.
func (s *Store) IndexedFileByPath(filePath string) (*IndexedFile, error) {
	f := &IndexedFile{}
	err := s.db.QueryRow(
		"SELECT file_path, file_hash, indexed_at, node_count FROM indexed_files WHERE file_path = ?",
		filePath,
	).Scan(&f.FilePath, &f.FileHash, &f.IndexedAt, &f.NodeCount)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("indexed file by path: %w", err)
	}
	return f, nil
}

// RecentlyIndexedFiles returns files indexed after since, most recent first.
func (s *Store) RecentlyIndexedFiles(since time.Time, limit int) ([]*IndexedFile, error) {
	query := "SELECT file_path, file_hash, indexed_at, node_count FROM indexed_files WHERE indexed_at > ? ORDER BY indexed_at DESC, file_path"
	args := []any{since}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("recently indexed files: %w", err)
	}
	defer rows.Close()
	var files []*IndexedFile
	for rows.Next() {
		f := &IndexedFile{}
		if err := rows.Scan(&f.FilePath, &f.FileHash, &f.IndexedAt, &f.NodeCount); err != nil {
			return nil, fmt.Errorf("recently indexed files: scan: %w", err)
		}
		files = append(files, f)
	}
	return files, rows.Err()
}

// RecordIndexError stores a per-file parse failure, replacing any prior
// record for the same path.
func (s *Store) RecordIndexError(filePath, message string, at time.Time) error {
	_, err := s.db.Exec(
		`INSERT INTO index_errors (file_path, message, occurred_at) VALUES (?, ?, ?)
		 ON CONFLICT(file_path) DO UPDATE SET message=excluded.message, occurred_at=excluded.occurred_at`,
		filePath, message, at,
	)
	if err != nil {
		return fmt.Errorf("record index error: %w", err)
	}
	return nil
}

// IndexErrors returns all recorded per-file failures, ordered by path.
func (s *Store) IndexErrors() ([]*IndexError, error) {
	rows, err := s.db.Query("SELECT file_path, message, occurred_at FROM index_errors ORDER BY file_path")
	if err != nil {
		return nil, fmt.Errorf("index errors: %w", err)
	}
	defer rows.Close()
	var errs []*IndexError
	for rows.Next() {
		e := &IndexError{}
		if err := rows.Scan(&e.FilePath, &e.Message, &e.OccurredAt); err != nil {
			return nil, fmt.Errorf("index errors: scan: %w", err)
		}
		errs = append(errs, e)
	}
	return errs, rows.Err()
}

// FileIndex is the complete result of indexing one file. ApplyFileIndex
// commits it in a single transaction so a concurrent reader observes either
// the pre- or post-reindex state, never a half-updated node.
type FileIndex struct {
	FilePath       string
	FileHash       string
	IndexedAt      time.Time
	Nodes          []*Node
	Edges          []*Edge
	RemovedNodeIDs []string
}

// ApplyFileIndex atomically replaces a file's node and edge set:
//  1. edges owned by the file are deleted and rebuilt,
//  2. edges elsewhere that target removed nodes revert to unresolved
//     (the dependency is still context, its target just left the index),
//  3. removed nodes are deleted, surviving and new nodes upserted,
//  4. the file's index entry is refreshed and any stale parse-error cleared.
func (s *Store) ApplyFileIndex(fi *FileIndex) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("apply file index: begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM edges WHERE file_path = ?", fi.FilePath); err != nil {
		return fmt.Errorf("apply file index: delete edges: %w", err)
	}

	if len(fi.RemovedNodeIDs) > 0 {
		placeholders := placeholderList(len(fi.RemovedNodeIDs))
		args := stringsToArgs(fi.RemovedNodeIDs)
		if _, err := tx.Exec(
			"UPDATE edges SET resolved = 0, ambiguous = 0 WHERE target_id IN ("+placeholders+")",
			args...,
		); err != nil {
			return fmt.Errorf("apply file index: unresolve edges: %w", err)
		}
		if _, err := tx.Exec(
			"DELETE FROM nodes WHERE id IN ("+placeholders+")", args...,
		); err != nil {
			return fmt.Errorf("apply file index: delete nodes: %w", err)
		}
	}

	for _, n := range fi.Nodes {
		if err := upsertNodeTx(tx, n); err != nil {
			return fmt.Errorf("apply file index: node %q: %w", n.ID, err)
		}
	}
	for _, e := range fi.Edges {
		if err := upsertEdgeTx(tx, e); err != nil {
			return fmt.Errorf("apply file index: edge %s->%s: %w", e.SourceID, e.TargetID, err)
		}
	}

	if _, err := tx.Exec(
		`INSERT INTO indexed_files (file_path, file_hash, indexed_at, node_count)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT(file_path) DO UPDATE SET
		   file_hash=excluded.file_hash, indexed_at=excluded.indexed_at,
		   node_count=excluded.node_count`,
		fi.FilePath, fi.FileHash, fi.IndexedAt, len(fi.Nodes),
	); err != nil {
		return fmt.Errorf("apply file index: indexed_files: %w", err)
	}
	if _, err := tx.Exec("DELETE FROM index_errors WHERE file_path = ?", fi.FilePath); err != nil {
		return fmt.Errorf("apply file index: clear error: %w", err)
	}

	return tx.Commit()
}

// RemoveFileData transactionally removes all index data for a deleted file.
// Edges in other files that targeted this file's nodes revert to unresolved.
func (s *Store) RemoveFileData(filePath string) error {
	ids, err := s.NodeIDsByFile(filePath)
	if err != nil {
		return fmt.Errorf("remove file data: %w", err)
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("remove file data: begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM edges WHERE file_path = ?", filePath); err != nil {
		return fmt.Errorf("remove file data: delete edges: %w", err)
	}
	if len(ids) > 0 {
		placeholders := placeholderList(len(ids))
		args := stringsToArgs(ids)
		if _, err := tx.Exec(
			"UPDATE edges SET resolved = 0, ambiguous = 0 WHERE target_id IN ("+placeholders+")",
			args...,
		); err != nil {
			return fmt.Errorf("remove file data: unresolve edges: %w", err)
		}
	}
	for _, q := range []string{
		"DELETE FROM nodes WHERE file_path = ?",
		"DELETE FROM indexed_files WHERE file_path = ?",
		"DELETE FROM index_errors WHERE file_path = ?",
	} {
		if _, err := tx.Exec(q, filePath); err != nil {
			return fmt.Errorf("remove file data: %w", err)
		}
	}
	return tx.Commit()
}
