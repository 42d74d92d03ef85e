// Package monitor checks the graph for the three inconsistency classes that
// concurrent growth can produce: broken references, orphan nodes, and pages
// still carrying unresolved placeholder links. One scan is a single pass
// over nodes and references, so cost stays linear in graph size.
package monitor

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"tendril/internal/store"
)

// StubReport names a page and how many placeholder links it still carries.
type StubReport struct {
	Slug  string `json:"slug"`
	Stubs int    `json:"stubs"`
}

// BrokenReport is one missing target and everything pointing at it.
type BrokenReport struct {
	Target  string   `json:"target"`
	Sources []string `json:"sources"`
}

// Report is the outcome of one consistency scan.
type Report struct {
	Nodes      int                    `json:"nodes"`
	References int                    `json:"references"`
	Broken     []BrokenReport         `json:"broken,omitempty"`
	Orphans    []string               `json:"orphans,omitempty"`
	Stubs      []StubReport           `json:"stubs,omitempty"`
	Frontier   map[int]map[string]int `json:"frontier,omitempty"`
	Duration   time.Duration          `json:"duration"`
}

// Healthy reports whether the scan found nothing to repair.
func (r *Report) Healthy() bool {
	return len(r.Broken) == 0 && len(r.Orphans) == 0 && len(r.Stubs) == 0
}

// Summary renders the one-line operator view.
func (r *Report) Summary() string {
	if r.Healthy() {
		return fmt.Sprintf("healthy: %d nodes, %d references", r.Nodes, r.References)
	}
	return fmt.Sprintf("%d nodes, %d references, %d broken, %d orphans, %d pages with stubs",
		r.Nodes, r.References, len(r.Broken), len(r.Orphans), len(r.Stubs))
}

// Monitor scans a store plus its content area.
type Monitor struct {
	Store      *store.Store
	ContentDir string
	RootSlug   string
	Log        *slog.Logger
}

// Scan walks the whole graph once. Broken references and orphans come from
// the node and reference sets; stub counts come from the page files
// themselves, since placeholders never become edges.
func (m *Monitor) Scan() (*Report, error) {
	start := time.Now()
	report := &Report{}

	nodes, err := m.Store.AllNodes()
	if err != nil {
		return nil, fmt.Errorf("scanning: %w", err)
	}
	refs, err := m.Store.AllReferences()
	if err != nil {
		return nil, fmt.Errorf("scanning: %w", err)
	}
	report.Nodes = len(nodes)
	report.References = len(refs)

	exists := make(map[string]bool, len(nodes))
	for _, n := range nodes {
		exists[n.Slug] = true
	}

	referenced := make(map[string]bool, len(refs))
	brokenSources := make(map[string][]string)
	for _, ref := range refs {
		referenced[ref.Target] = true
		if !exists[ref.Target] {
			brokenSources[ref.Target] = append(brokenSources[ref.Target], ref.Source)
		}
	}

	for target, sources := range brokenSources {
		sort.Strings(sources)
		report.Broken = append(report.Broken, BrokenReport{Target: target, Sources: sources})
	}
	sort.Slice(report.Broken, func(i, j int) bool {
		return report.Broken[i].Target < report.Broken[j].Target
	})

	for _, n := range nodes {
		if n.Slug == m.RootSlug || referenced[n.Slug] {
			continue
		}
		report.Orphans = append(report.Orphans, n.Slug)
	}
	sort.Strings(report.Orphans)

	for _, n := range nodes {
		count, err := m.countStubs(n.Slug)
		if err != nil {
			if m.Log != nil {
				m.Log.Warn("stub check failed", "slug", n.Slug, "err", err)
			}
			continue
		}
		if count > 0 {
			report.Stubs = append(report.Stubs, StubReport{Slug: n.Slug, Stubs: count})
		}
	}
	sort.Slice(report.Stubs, func(i, j int) bool {
		return report.Stubs[i].Slug < report.Stubs[j].Slug
	})

	hist, err := m.Store.FrontierHistogram()
	if err != nil {
		return nil, fmt.Errorf("scanning: %w", err)
	}
	if len(hist) > 0 {
		report.Frontier = hist
	}

	report.Duration = time.Since(start)
	if m.Log != nil {
		m.Log.Info("consistency scan",
			"nodes", report.Nodes,
			"references", report.References,
			"broken", len(report.Broken),
			"orphans", len(report.Orphans),
			"stub_pages", len(report.Stubs),
			"duration", report.Duration)
	}
	return report, nil
}

// QuickScan checks only the most recently produced node: its page exists,
// its references are recorded, and it carries no placeholders. Cheap enough
// to run after every merge.
func (m *Monitor) QuickScan() (*Report, error) {
	start := time.Now()
	report := &Report{}

	node, err := m.Store.MostRecentNode()
	if err != nil {
		return nil, fmt.Errorf("quick scan: %w", err)
	}
	if node == nil {
		report.Duration = time.Since(start)
		return report, nil
	}
	report.Nodes = 1

	if _, err := os.Stat(m.pagePath(node.Slug)); err != nil {
		report.Broken = append(report.Broken, BrokenReport{Target: node.Slug})
	}
	if count, err := m.countStubs(node.Slug); err == nil && count > 0 {
		report.Stubs = append(report.Stubs, StubReport{Slug: node.Slug, Stubs: count})
	}
	report.Duration = time.Since(start)
	return report, nil
}

func (m *Monitor) pagePath(slug string) string {
	return filepath.Join(m.ContentDir, slug+".html")
}

// countStubs counts href="#" placeholder links in a page.
func (m *Monitor) countStubs(slug string) (int, error) {
	data, err := os.ReadFile(m.pagePath(slug))
	if err != nil {
		return 0, err
	}
	return strings.Count(string(data), `href="#"`), nil
}
