package coord

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"tendril/internal/discover"
	"tendril/internal/store"
)

var titleTagRe = regexp.MustCompile(`(?is)<title>(.*?)</title>`)

// Reconciler merges artifacts from an isolated workspace into the shared
// content area and records them in the graph store. All of it happens under
// the merge lock, so at most one worker mutates the content area at a time.
type Reconciler struct {
	Store       *store.Store
	ContentDir  string
	StateDir    string
	LockTimeout time.Duration
	Log         *slog.Logger
}

// Merge copies every page the collaborator wrote in ws into the content
// area and returns the slugs that are new (detected by before/after
// snapshot diff, not by collaborator self-report). New pages get node rows;
// new and overwritten pages both get their references re-scanned; counts
// are recomputed afterward.
func (r *Reconciler) Merge(ctx context.Context, ws *Workspace) ([]string, error) {
	lock := NewLock(r.StateDir, LockMerge)
	if err := lock.Acquire(ctx, r.LockTimeout); err != nil {
		return nil, fmt.Errorf("reconciling: %w", err)
	}
	defer lock.Release()

	pages, err := ws.Pages()
	if err != nil {
		return nil, fmt.Errorf("reconciling: %w", err)
	}
	if len(pages) == 0 {
		return nil, nil
	}

	before, err := SnapshotSlugs(r.ContentDir)
	if err != nil {
		return nil, fmt.Errorf("reconciling: %w", err)
	}

	if err := os.MkdirAll(r.ContentDir, 0o755); err != nil {
		return nil, fmt.Errorf("reconciling: %w", err)
	}

	copied := make(map[string]string, len(pages)) // slug -> content
	for _, name := range pages {
		slug := discover.Normalize(strings.TrimSuffix(name, ".html"))
		if slug == "" {
			continue
		}
		data, err := os.ReadFile(filepath.Join(ws.Dir, name))
		if err != nil {
			return nil, fmt.Errorf("reconciling %s: %w", name, err)
		}
		dest := filepath.Join(r.ContentDir, slug+".html")
		if err := os.WriteFile(dest, data, 0o644); err != nil {
			return nil, fmt.Errorf("reconciling %s: %w", name, err)
		}
		copied[slug] = string(data)
	}

	after, err := SnapshotSlugs(r.ContentDir)
	if err != nil {
		return nil, fmt.Errorf("reconciling: %w", err)
	}
	fresh := DiffNewSlugs(before, after)

	for _, slug := range fresh {
		content := copied[slug]
		err := r.Store.InsertNode(store.Node{
			Slug:  slug,
			Title: pageTitle(content, slug),
		})
		if err != nil {
			// The row may exist from an earlier run whose file was lost;
			// keep going, the re-scan below still refreshes its edges.
			if r.Log != nil {
				r.Log.Warn("node insert during merge", "slug", slug, "err", err)
			}
		}
	}

	// Re-scan references for everything we copied, new or overwritten.
	// Edges are deleted and fully re-inserted, never patched.
	for slug, content := range copied {
		if err := r.Store.ReplaceReferences(slug, discover.ExtractTargets(content)); err != nil {
			return fresh, fmt.Errorf("reconciling %s: %w", slug, err)
		}
	}

	if err := r.Store.RecountAll(); err != nil {
		return fresh, fmt.Errorf("reconciling: %w", err)
	}

	if r.Log != nil {
		r.Log.Info("merged artifacts", "copied", len(copied), "new", len(fresh))
	}
	return fresh, nil
}

// pageTitle extracts the <title> tag, falling back to a title derived from
// the slug.
func pageTitle(content, slug string) string {
	if m := titleTagRe.FindStringSubmatch(content); m != nil {
		if t := strings.TrimSpace(m[1]); t != "" {
			return t
		}
	}
	return discover.TitleFor(slug)
}
