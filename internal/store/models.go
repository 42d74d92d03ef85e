package store

// Frontier entry lifecycle. Status only moves forward: a claimed entry stays
// in_progress until completed or explicitly released by an operator sweep.
const (
	StatusPending    = "pending"
	StatusInProgress = "in_progress"
	StatusCompleted  = "completed"
)

// Node is a produced content unit, one row per page in the content area.
// The slug is immutable once created. in_refs/out_refs are derived counts,
// written only by RecountAll.
type Node struct {
	Slug      string `json:"slug"`
	Title     string `json:"title"`
	NodeType  string `json:"type"`
	Category  string `json:"category"`
	OutRefs   int    `json:"out_refs"`
	InRefs    int    `json:"in_refs"`
	CreatedAt int64  `json:"created_at"` // Unix millis
}

// Reference is a directed link from a source node to a target slug. The
// target is a bare string, not a foreign key: it may name a page that does
// not exist yet.
type Reference struct {
	Source string `json:"source"`
	Target string `json:"target"`
}

// FrontierEntry is a queued candidate node awaiting production.
type FrontierEntry struct {
	Target       string `json:"target"`
	Title        string `json:"title"`
	Depth        int    `json:"depth"`
	Source       string `json:"source"`
	DiscoveredAt int64  `json:"discovered_at"` // Unix millis
	ClaimedAt    *int64 `json:"claimed_at,omitempty"`
	CompletedAt  *int64 `json:"completed_at,omitempty"`
	Status       string `json:"status"`
	Priority     int    `json:"priority"`
}

// BrokenRef is a reference target with no matching node, together with the
// distinct sources that point at it.
type BrokenRef struct {
	Target  string   `json:"target"`
	Sources []string `json:"sources"`
}
