// Package discover turns a newly produced page into new frontier entries:
// it extracts reference targets from the page content, filters them for
// depth and relevance, and queues the survivors with a computed priority.
package discover

import (
	"fmt"
	"log/slog"
	"time"

	"tendril/internal/store"
)

// Disposition records what happened to one extracted target.
type Disposition string

const (
	DispositionQueued        Disposition = "queued"
	DispositionAlreadyExists Disposition = "already exists"
	DispositionAlreadyQueued Disposition = "already queued"
	DispositionExceedsDepth  Disposition = "exceeds depth"
	DispositionFiltered      Disposition = "filtered"
)

// TargetReport is the per-target outcome of a discovery pass.
type TargetReport struct {
	Target      string      `json:"target"`
	Disposition Disposition `json:"disposition"`
	Depth       int         `json:"depth,omitempty"`
	Priority    int         `json:"priority,omitempty"`
}

// Report summarizes one discovery pass. It exists for observability only;
// correctness is carried entirely by the enqueue calls.
type Report struct {
	Source  string         `json:"source"`
	Found   int            `json:"found"`
	Queued  int            `json:"queued"`
	Skipped int            `json:"skipped"`
	Targets []TargetReport `json:"targets"`
}

// Engine scans produced pages and feeds the frontier.
type Engine struct {
	Store    *store.Store
	MaxDepth int
	Filter   Filter
	Log      *slog.Logger
}

const priorityBase = 100

// Run extracts reference targets from content produced by source (which sits
// at sourceDepth) and enqueues each new, in-bounds, relevant target at depth
// sourceDepth+1.
func (e *Engine) Run(source string, sourceDepth int, content string) (*Report, error) {
	if sourceDepth < 0 {
		return nil, fmt.Errorf("discovery from %s: negative source depth %d", source, sourceDepth)
	}

	targets := ExtractTargets(content)
	report := &Report{Source: source, Found: len(targets)}
	depth := sourceDepth + 1

	for _, target := range targets {
		tr := TargetReport{Target: target}

		existing, err := e.Store.GetNode(target)
		if err != nil {
			return report, fmt.Errorf("discovery from %s: %w", source, err)
		}
		switch {
		case existing != nil:
			tr.Disposition = DispositionAlreadyExists

		case depth > e.MaxDepth:
			tr.Disposition = DispositionExceedsDepth

		case !e.Filter.Allow(target):
			tr.Disposition = DispositionFiltered

		default:
			sources, err := e.Store.SourcesReferencing(target)
			if err != nil {
				return report, fmt.Errorf("discovery from %s: %w", source, err)
			}
			priority := Priority(depth, e.MaxDepth, len(sources))
			inserted, err := e.Store.EnqueueFrontier(store.FrontierEntry{
				Target:       target,
				Title:        TitleFor(target),
				Depth:        depth,
				Source:       source,
				DiscoveredAt: time.Now().UnixMilli(),
				Priority:     priority,
			})
			if err != nil {
				return report, fmt.Errorf("discovery from %s: %w", source, err)
			}
			tr.Depth = depth
			tr.Priority = priority
			if inserted {
				tr.Disposition = DispositionQueued
			} else {
				tr.Disposition = DispositionAlreadyQueued
			}
		}

		if tr.Disposition == DispositionQueued {
			report.Queued++
		} else {
			report.Skipped++
		}
		report.Targets = append(report.Targets, tr)
	}

	if e.Log != nil {
		e.Log.Info("discovery pass",
			"source", source,
			"found", report.Found,
			"queued", report.Queued,
			"skipped", report.Skipped)
	}
	return report, nil
}

// Priority scores a candidate: a depth component falling linearly from
// priorityBase at depth zero to zero at maxDepth, plus a multiplicity boost
// of 10 per distinct referencing source, capped at 50.
func Priority(depth, maxDepth, distinctSources int) int {
	depthScore := 0
	if maxDepth > 0 && depth <= maxDepth {
		depthScore = priorityBase * (maxDepth - depth) / maxDepth
	}
	boost := distinctSources * 10
	if boost > 50 {
		boost = 50
	}
	return depthScore + boost
}
