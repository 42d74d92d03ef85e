package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// ErrNodeExists is returned by InsertNode when the slug is already taken.
// Slugs are globally unique and never renamed.
var ErrNodeExists = errors.New("node already exists")

// scanNode scans a row into a Node. The row must have all 7 columns in
// standard order.
func scanNode(scanner interface{ Scan(dest ...any) error }) (Node, error) {
	var n Node
	err := scanner.Scan(
		&n.Slug, &n.Title, &n.NodeType, &n.Category,
		&n.OutRefs, &n.InRefs, &n.CreatedAt,
	)
	return n, err
}

// InsertNode creates a node row. Fails with ErrNodeExists if the slug is
// already present. The existence check and insert run in one transaction.
func (s *Store) InsertNode(n Node) error {
	if n.Slug == "" {
		return fmt.Errorf("inserting node: empty slug")
	}
	if n.NodeType == "" {
		n.NodeType = "page"
	}
	if n.CreatedAt == 0 {
		n.CreatedAt = time.Now().UnixMilli()
	}

	tx, err := s.conn.Begin()
	if err != nil {
		return fmt.Errorf("inserting node %s: %w", n.Slug, err)
	}
	defer tx.Rollback()

	var exists bool
	if err := tx.QueryRow(
		`SELECT EXISTS(SELECT 1 FROM nodes WHERE slug = ?)`, n.Slug,
	).Scan(&exists); err != nil {
		return fmt.Errorf("inserting node %s: %w", n.Slug, err)
	}
	if exists {
		return fmt.Errorf("inserting node %s: %w", n.Slug, ErrNodeExists)
	}

	_, err = tx.Exec(`
		INSERT INTO nodes (slug, title, node_type, category, out_refs, in_refs, created_at)
		VALUES (?, ?, ?, ?, 0, 0, ?)
	`, n.Slug, n.Title, n.NodeType, n.Category, n.CreatedAt)
	if err != nil {
		return fmt.Errorf("inserting node %s: %w", n.Slug, err)
	}

	return tx.Commit()
}

// GetNode returns a single node by slug, or nil if not found.
func (s *Store) GetNode(slug string) (*Node, error) {
	row := s.conn.QueryRow(`
		SELECT slug, title, node_type, category, out_refs, in_refs, created_at
		FROM nodes WHERE slug = ?
	`, slug)

	n, err := scanNode(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &n, nil
}

// AllNodes returns all nodes ordered by created_at descending.
func (s *Store) AllNodes() ([]Node, error) {
	rows, err := s.conn.Query(`
		SELECT slug, title, node_type, category, out_refs, in_refs, created_at
		FROM nodes ORDER BY created_at DESC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var nodes []Node
	for rows.Next() {
		n, err := scanNode(rows)
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, n)
	}
	return nodes, rows.Err()
}

// MostRecentNode returns the newest node by creation time, or nil on an
// empty graph. Used by the consistency monitor's quick scan.
func (s *Store) MostRecentNode() (*Node, error) {
	row := s.conn.QueryRow(`
		SELECT slug, title, node_type, category, out_refs, in_refs, created_at
		FROM nodes ORDER BY created_at DESC LIMIT 1
	`)
	n, err := scanNode(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &n, nil
}

// NodeCount returns the total number of nodes.
func (s *Store) NodeCount() (int, error) {
	var count int
	err := s.conn.QueryRow(`SELECT COUNT(*) FROM nodes`).Scan(&count)
	return count, err
}

// RecountAll recomputes every node's inbound and outbound reference counts
// from the refs table in one pass. This is the only writer of those counts.
func (s *Store) RecountAll() error {
	tx, err := s.conn.Begin()
	if err != nil {
		return fmt.Errorf("recounting references: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(`
		UPDATE nodes SET
			in_refs  = (SELECT COUNT(*) FROM refs WHERE refs.target_slug = nodes.slug),
			out_refs = (SELECT COUNT(*) FROM refs WHERE refs.source_slug = nodes.slug)
	`)
	if err != nil {
		return fmt.Errorf("recounting references: %w", err)
	}

	return tx.Commit()
}
