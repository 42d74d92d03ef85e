// Package selector decides what unit of work runs next. Selection is a
// strict precedence chain over graph state: pending frontier entries, then
// broken references, then orphans, then open-ended creation. Higher levels
// are only reached when all earlier levels find nothing.
package selector

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"tendril/internal/store"
)

// Config holds selection parameters.
type Config struct {
	MaxDepth   int      // frontier entries deeper than this are never claimed
	RootSlug   string   // excluded from orphan detection
	ContentDir string   // page files, read for repair-task context excerpts
	Seeds      []Seed   // creative seeds for create-new tasks
	Palette    []string // style color hints, cycled by sequence number
}

// DefaultSeed is used when no seeds are configured.
var DefaultSeed = Seed{
	Text:        "an unexpected connection between two everyday things",
	Attribution: "tendril",
}

// Next returns the single highest-priority unit of work given current graph
// state. seq is the global loop counter, used only to cycle seeds and style
// hints deterministically. Claiming a frontier entry happens inside this
// call, as one atomic store operation.
func Next(st *store.Store, cfg Config, seq int64) (*Task, error) {
	// 1. Pending frontier entry within depth bound.
	entry, err := st.ClaimNextFrontier(cfg.MaxDepth)
	if err != nil {
		return nil, fmt.Errorf("selecting task: %w", err)
	}
	if entry != nil {
		ctx := ""
		if entry.Source != "" {
			ctx = "discovered from " + entry.Source
		}
		return &Task{
			Kind:     KindExpandFrontier,
			Priority: PriorityHigh,
			Target:   entry.Target,
			Title:    entry.Title,
			Depth:    entry.Depth,
			Context:  ctx,
			Style:    styleFor(cfg, seq),
		}, nil
	}

	// 2. Broken reference with the most distinct referencing sources.
	broken, err := st.BrokenReferences()
	if err != nil {
		return nil, fmt.Errorf("selecting task: %w", err)
	}
	if len(broken) > 0 {
		pick := broken[0]
		for _, b := range broken[1:] {
			// Ties break by target slug ascending; the store already
			// returns targets in ascending order, so strictly-more wins.
			if len(b.Sources) > len(pick.Sources) {
				pick = b
			}
		}
		return &Task{
			Kind:     KindRepairBroken,
			Priority: PriorityCritical,
			Target:   pick.Target,
			Title:    titleFromSlug(pick.Target),
			Depth:    0,
			Context:  repairContext(cfg.ContentDir, pick.Sources),
			Style:    styleFor(cfg, seq),
		}, nil
	}

	// 3. Orphan node: deterministic pick, smallest slug first.
	orphans, err := st.OrphanNodes(cfg.RootSlug)
	if err != nil {
		return nil, fmt.Errorf("selecting task: %w", err)
	}
	if len(orphans) > 0 {
		return &Task{
			Kind:     KindConnectOrphan,
			Priority: PriorityMedium,
			Target:   orphans[0],
			Title:    titleFromSlug(orphans[0]),
			Depth:    0,
			Context:  fmt.Sprintf("%d orphan page(s) with no inbound links", len(orphans)),
			Style:    styleFor(cfg, seq),
		}, nil
	}

	// 4. Nothing to repair or connect: create something new.
	seed := DefaultSeed
	if len(cfg.Seeds) > 0 {
		seed = cfg.Seeds[int(seq)%len(cfg.Seeds)]
	}
	return &Task{
		Kind:     KindCreateNew,
		Priority: PriorityLow,
		Depth:    0,
		Seed:     &seed,
		Style:    styleFor(cfg, seq),
	}, nil
}

const (
	maxContextSources = 3   // excerpted pages per repair task
	excerptLen        = 240 // characters of page text per excerpt
)

var tagRe = regexp.MustCompile(`<[^>]*>`)

// repairContext names the referencing pages and, when the content area is
// available, quotes a short excerpt of each so the generation step can make
// the existing links make sense without reading the graph itself.
func repairContext(contentDir string, sources []string) string {
	parts := []string{"referenced by " + strings.Join(sources, ", ")}
	if contentDir == "" {
		return parts[0]
	}
	for i, src := range sources {
		if i >= maxContextSources {
			break
		}
		if excerpt := pageExcerpt(filepath.Join(contentDir, src+".html")); excerpt != "" {
			parts = append(parts, src+": "+excerpt)
		}
	}
	return strings.Join(parts, "\n")
}

// pageExcerpt reduces a page to its leading plain text. A missing or
// unreadable page contributes nothing rather than failing selection.
func pageExcerpt(path string) string {
	data, err := os.ReadFile(path)
	if err != nil {
		return ""
	}
	text := tagRe.ReplaceAllString(string(data), " ")
	text = strings.Join(strings.Fields(text), " ")
	if len(text) > excerptLen {
		text = text[:excerptLen] + "..."
	}
	return text
}

func styleFor(cfg Config, seq int64) string {
	if len(cfg.Palette) == 0 {
		return ""
	}
	return cfg.Palette[int(seq)%len(cfg.Palette)]
}

// titleFromSlug turns "quantum-moss" into "Quantum Moss".
func titleFromSlug(slug string) string {
	words := strings.Split(slug, "-")
	for i, w := range words {
		if w == "" {
			continue
		}
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}
