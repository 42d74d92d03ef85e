package selector

import "fmt"

// Kind identifies what a unit of work is for.
type Kind string

const (
	KindExpandFrontier Kind = "expand-frontier"
	KindRepairBroken   Kind = "repair-broken-reference"
	KindConnectOrphan  Kind = "connect-orphan"
	KindCreateNew      Kind = "create-new"
)

func (k Kind) String() string { return string(k) }

// Priority tags a task for the external collaborator and for logging. The
// selector's precedence chain, not this tag, decides ordering.
type Priority string

const (
	PriorityCritical Priority = "critical"
	PriorityHigh     Priority = "high"
	PriorityMedium   Priority = "medium"
	PriorityLow      Priority = "low"
)

// Seed is an externally supplied creative prompt for create-new tasks.
type Seed struct {
	Text        string `json:"text" yaml:"text"`
	Attribution string `json:"attribution,omitempty" yaml:"attribution,omitempty"`
}

// Task is one unit of work handed to a worker. It carries everything the
// external generation step needs: target identity or creative seed, the
// referencing context, and a style color hint. Which fields are required
// depends on Kind; Validate enforces that at the process boundary.
type Task struct {
	Kind     Kind     `json:"kind"`
	Priority Priority `json:"priority"`
	Target   string   `json:"target,omitempty"`
	Title    string   `json:"title,omitempty"`
	Depth    int      `json:"depth"`
	Context  string   `json:"context,omitempty"`
	Seed     *Seed    `json:"seed,omitempty"`
	Style    string   `json:"style,omitempty"`
}

// Validate checks kind-specific required fields.
func (t *Task) Validate() error {
	switch t.Kind {
	case KindExpandFrontier, KindRepairBroken, KindConnectOrphan:
		if t.Target == "" {
			return fmt.Errorf("%s task missing target", t.Kind)
		}
	case KindCreateNew:
		if t.Seed == nil || t.Seed.Text == "" {
			return fmt.Errorf("create-new task missing creative seed")
		}
	default:
		return fmt.Errorf("unknown task kind %q", t.Kind)
	}
	if t.Depth < 0 {
		return fmt.Errorf("%s task has negative depth %d", t.Kind, t.Depth)
	}
	return nil
}

// Describe returns a short human-readable label for progress output.
func (t *Task) Describe() string {
	switch t.Kind {
	case KindCreateNew:
		return fmt.Sprintf("%s [%s]", t.Kind, t.Priority)
	default:
		return fmt.Sprintf("%s %s [%s]", t.Kind, t.Target, t.Priority)
	}
}
