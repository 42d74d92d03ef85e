package store

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

// scanFrontier scans a row into a FrontierEntry. The row must have all 9
// columns in standard order.
func scanFrontier(scanner interface{ Scan(dest ...any) error }) (FrontierEntry, error) {
	var e FrontierEntry
	err := scanner.Scan(
		&e.Target, &e.Title, &e.Depth, &e.Source,
		&e.DiscoveredAt, &e.ClaimedAt, &e.CompletedAt, &e.Status, &e.Priority,
	)
	return e, err
}

const frontierColumns = `target_slug, title, depth, source_slug,
	discovered_at, claimed_at, completed_at, status, priority`

// EnqueueFrontier inserts a frontier entry if no live (non-completed) entry
// exists for the target. Returns whether an insert happened. The existence
// check and insert are a single statement, so a concurrent duplicate insert
// of the same target cannot race past it; the partial unique index on live
// targets backstops the check.
func (s *Store) EnqueueFrontier(e FrontierEntry) (bool, error) {
	if e.Target == "" {
		return false, fmt.Errorf("enqueueing frontier entry: empty target")
	}
	if e.Depth < 0 {
		return false, fmt.Errorf("enqueueing %s: negative depth %d", e.Target, e.Depth)
	}
	if e.DiscoveredAt == 0 {
		e.DiscoveredAt = time.Now().UnixMilli()
	}

	res, err := s.conn.Exec(`
		INSERT INTO frontier (target_slug, title, depth, source_slug, discovered_at, status, priority)
		SELECT ?, ?, ?, ?, ?, 'pending', ?
		WHERE NOT EXISTS (
			SELECT 1 FROM frontier WHERE target_slug = ? AND status != 'completed'
		)
	`, e.Target, e.Title, e.Depth, e.Source, e.DiscoveredAt, e.Priority, e.Target)
	if err != nil {
		if isUniqueViolation(err) {
			// Lost a race against a concurrent insert of the same target.
			return false, nil
		}
		return false, fmt.Errorf("enqueueing %s: %w", e.Target, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("enqueueing %s: %w", e.Target, err)
	}
	return n > 0, nil
}

// ClaimNextFrontier selects the pending entry with highest priority, then
// lowest depth, then earliest discovery time, among entries with depth <=
// maxDepth, and transitions it to in_progress. Select-and-mark is a single
// statement. Returns nil when no pending entry qualifies.
func (s *Store) ClaimNextFrontier(maxDepth int) (*FrontierEntry, error) {
	row := s.conn.QueryRow(`
		UPDATE frontier SET status = 'in_progress', claimed_at = ?
		WHERE rowid = (
			SELECT rowid FROM frontier
			WHERE status = 'pending' AND depth <= ?
			ORDER BY priority DESC, depth ASC, discovered_at ASC
			LIMIT 1
		)
		RETURNING `+frontierColumns,
		time.Now().UnixMilli(), maxDepth)

	e, err := scanFrontier(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("claiming frontier entry: %w", err)
	}
	return &e, nil
}

// CompleteFrontier marks the live entry for target as completed.
func (s *Store) CompleteFrontier(target string) error {
	_, err := s.conn.Exec(`
		UPDATE frontier SET status = 'completed', completed_at = ?
		WHERE target_slug = ? AND status != 'completed'
	`, time.Now().UnixMilli(), target)
	if err != nil {
		return fmt.Errorf("completing %s: %w", target, err)
	}
	return nil
}

// PruneCompleted hard-deletes completed entries older than the retention
// window. Returns the number of rows removed.
func (s *Store) PruneCompleted(olderThanDays int) (int, error) {
	cutoff := time.Now().AddDate(0, 0, -olderThanDays).UnixMilli()
	res, err := s.conn.Exec(`
		DELETE FROM frontier WHERE status = 'completed' AND completed_at < ?
	`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("pruning completed entries: %w", err)
	}
	n, err := res.RowsAffected()
	return int(n), err
}

// ReleaseStale flips in_progress entries claimed before the cutoff back to
// pending. This is the operator sweep for entries stranded by a crashed
// worker; it is never run automatically. Returns the number released.
func (s *Store) ReleaseStale(olderThan time.Duration) (int, error) {
	cutoff := time.Now().Add(-olderThan).UnixMilli()
	res, err := s.conn.Exec(`
		UPDATE frontier SET status = 'pending', claimed_at = NULL
		WHERE status = 'in_progress' AND claimed_at IS NOT NULL AND claimed_at < ?
	`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("releasing stale entries: %w", err)
	}
	n, err := res.RowsAffected()
	return int(n), err
}

// GetFrontier returns the live (non-completed) entry for target, or nil.
func (s *Store) GetFrontier(target string) (*FrontierEntry, error) {
	row := s.conn.QueryRow(`
		SELECT `+frontierColumns+` FROM frontier
		WHERE target_slug = ? AND status != 'completed'
	`, target)
	e, err := scanFrontier(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// PendingFrontier returns up to limit pending entries in claim order.
func (s *Store) PendingFrontier(limit int) ([]FrontierEntry, error) {
	rows, err := s.conn.Query(`
		SELECT `+frontierColumns+` FROM frontier
		WHERE status = 'pending'
		ORDER BY priority DESC, depth ASC, discovered_at ASC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []FrontierEntry
	for rows.Next() {
		e, err := scanFrontier(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// FrontierHistogram returns entry counts keyed by depth then status.
func (s *Store) FrontierHistogram() (map[int]map[string]int, error) {
	rows, err := s.conn.Query(`
		SELECT depth, status, COUNT(*) FROM frontier GROUP BY depth, status
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	hist := make(map[int]map[string]int)
	for rows.Next() {
		var depth, count int
		var status string
		if err := rows.Scan(&depth, &status, &count); err != nil {
			return nil, err
		}
		if hist[depth] == nil {
			hist[depth] = make(map[string]int)
		}
		hist[depth][status] = count
	}
	return hist, rows.Err()
}

// isUniqueViolation reports whether err is a SQLite uniqueness failure.
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
