package coord

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// SnapshotSlugs returns the set of page slugs currently in the content
// directory. The reconciler diffs a before/after pair of these snapshots to
// detect new nodes, deliberately not trusting the external collaborator's
// self-report (it may write outside the declared output path).
func SnapshotSlugs(contentDir string) (map[string]bool, error) {
	entries, err := os.ReadDir(contentDir)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]bool{}, nil
		}
		return nil, fmt.Errorf("snapshotting %s: %w", contentDir, err)
	}

	slugs := make(map[string]bool, len(entries))
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".html" {
			continue
		}
		slugs[strings.TrimSuffix(e.Name(), ".html")] = true
	}
	return slugs, nil
}

// DiffNewSlugs returns slugs present in after but not before, sorted.
func DiffNewSlugs(before, after map[string]bool) []string {
	var fresh []string
	for slug := range after {
		if !before[slug] {
			fresh = append(fresh, slug)
		}
	}
	sort.Strings(fresh)
	return fresh
}
