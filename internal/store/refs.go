package store

import "fmt"

// ReplaceReferences clears all references for sourceSlug and inserts the
// given set, ignoring duplicates within the set. Calling twice with the same
// set is a no-op after the first call. Delete and re-insert run in one
// transaction; there are no partial edge updates.
func (s *Store) ReplaceReferences(sourceSlug string, targets []string) error {
	tx, err := s.conn.Begin()
	if err != nil {
		return fmt.Errorf("replacing references for %s: %w", sourceSlug, err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM refs WHERE source_slug = ?`, sourceSlug); err != nil {
		return fmt.Errorf("replacing references for %s: %w", sourceSlug, err)
	}

	stmt, err := tx.Prepare(`INSERT OR IGNORE INTO refs (source_slug, target_slug) VALUES (?, ?)`)
	if err != nil {
		return fmt.Errorf("replacing references for %s: %w", sourceSlug, err)
	}
	defer stmt.Close()

	for _, target := range targets {
		if target == "" {
			continue
		}
		if _, err := stmt.Exec(sourceSlug, target); err != nil {
			return fmt.Errorf("replacing references for %s: %w", sourceSlug, err)
		}
	}

	return tx.Commit()
}

// AllReferences returns every reference edge.
func (s *Store) AllReferences() ([]Reference, error) {
	rows, err := s.conn.Query(`SELECT source_slug, target_slug FROM refs`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var refs []Reference
	for rows.Next() {
		var r Reference
		if err := rows.Scan(&r.Source, &r.Target); err != nil {
			return nil, err
		}
		refs = append(refs, r)
	}
	return refs, rows.Err()
}

// ReferenceCount returns the total number of reference edges.
func (s *Store) ReferenceCount() (int, error) {
	var count int
	err := s.conn.QueryRow(`SELECT COUNT(*) FROM refs`).Scan(&count)
	return count, err
}

// BrokenReferences returns reference targets with no matching node, each
// grouped with the distinct sources that point at it. Ordered by target slug
// ascending; the selector applies its own ranking.
func (s *Store) BrokenReferences() ([]BrokenRef, error) {
	rows, err := s.conn.Query(`
		SELECT DISTINCT r.target_slug, r.source_slug
		FROM refs r
		LEFT JOIN nodes n ON n.slug = r.target_slug
		WHERE n.slug IS NULL
		ORDER BY r.target_slug, r.source_slug
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var broken []BrokenRef
	for rows.Next() {
		var target, source string
		if err := rows.Scan(&target, &source); err != nil {
			return nil, err
		}
		if len(broken) > 0 && broken[len(broken)-1].Target == target {
			last := &broken[len(broken)-1]
			last.Sources = append(last.Sources, source)
			continue
		}
		broken = append(broken, BrokenRef{Target: target, Sources: []string{source}})
	}
	return broken, rows.Err()
}

// SourcesReferencing returns the distinct slugs that reference target,
// ordered ascending.
func (s *Store) SourcesReferencing(target string) ([]string, error) {
	rows, err := s.conn.Query(`
		SELECT DISTINCT source_slug FROM refs WHERE target_slug = ? ORDER BY source_slug
	`, target)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sources []string
	for rows.Next() {
		var src string
		if err := rows.Scan(&src); err != nil {
			return nil, err
		}
		sources = append(sources, src)
	}
	return sources, rows.Err()
}

// TargetsReferencedBy returns the distinct slugs that source references,
// ordered ascending.
func (s *Store) TargetsReferencedBy(source string) ([]string, error) {
	rows, err := s.conn.Query(`
		SELECT DISTINCT target_slug FROM refs WHERE source_slug = ? ORDER BY target_slug
	`, source)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var targets []string
	for rows.Next() {
		var target string
		if err := rows.Scan(&target); err != nil {
			return nil, err
		}
		targets = append(targets, target)
	}
	return targets, rows.Err()
}

// OrphanNodes returns slugs of nodes with zero inbound references, excluding
// the designated root, ordered ascending. Computed directly from the refs
// table rather than the derived in_refs column.
func (s *Store) OrphanNodes(rootSlug string) ([]string, error) {
	rows, err := s.conn.Query(`
		SELECT n.slug FROM nodes n
		WHERE n.slug != ?
		  AND NOT EXISTS (SELECT 1 FROM refs r WHERE r.target_slug = n.slug)
		ORDER BY n.slug
	`, rootSlug)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var orphans []string
	for rows.Next() {
		var slug string
		if err := rows.Scan(&slug); err != nil {
			return nil, err
		}
		orphans = append(orphans, slug)
	}
	return orphans, rows.Err()
}
