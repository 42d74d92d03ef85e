package discover

import (
	"path/filepath"
	"reflect"
	"testing"

	"tendril/internal/store"
)

func openTestStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "tendril.db"))
	if err != nil {
		t.Fatalf("opening test store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestExtractTargets(t *testing.T) {
	content := `<html><body>
		<a href="moss-garden.html">moss</a>
		<a href="Moss Garden.html">duplicate after normalize</a>
		<a href="https://example.com/external.html">external</a>
		<a href="#section">anchor</a>
		<a href="/absolute/path.html">absolute</a>
		<a href="mailto:x@example.com">mail</a>
		<a href="style.css">not html</a>
		<a href="deep/nested-page.html">nested</a>
		<a href="tide-pools.html#notes">fragment</a>
	</body></html>`

	got := ExtractTargets(content)
	want := []string{"moss-garden", "nested-page", "tide-pools"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestNormalize(t *testing.T) {
	cases := map[string]string{
		"Moss Garden":       "moss-garden",
		"  tide_POOLS  ":    "tide-pools",
		"a--b---c":          "a-b-c",
		"-leading-trailing-": "leading-trailing",
		"café!":        "caf",
	}
	for in, want := range cases {
		if got := Normalize(in); got != want {
			t.Errorf("Normalize(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestFilter(t *testing.T) {
	f := Filter{
		MinLength: 4,
		Require:   []string{"moss", "tide"},
		Exclude:   []string{"admin"},
	}
	cases := []struct {
		slug string
		want bool
	}{
		{"moss-garden", true},
		{"tide-pools", true},
		{"abc", false},              // too short
		{"quantum-physics", false},  // no required keyword
		{"moss-admin-page", false},  // excluded keyword wins
	}
	for _, tc := range cases {
		if got := f.Allow(tc.slug); got != tc.want {
			t.Errorf("Allow(%q) = %v, want %v", tc.slug, got, tc.want)
		}
	}
}

func TestFilter_EmptyRequireAllowsAll(t *testing.T) {
	f := Filter{MinLength: 1}
	if !f.Allow("anything") {
		t.Error("empty require list should allow any slug")
	}
}

func TestPriority(t *testing.T) {
	// Linear falloff: depth 0 of max 4 scores the full base.
	if got := Priority(0, 4, 0); got != 100 {
		t.Errorf("depth 0: got %d, want 100", got)
	}
	if got := Priority(4, 4, 0); got != 0 {
		t.Errorf("depth == max: got %d, want 0", got)
	}
	if got := Priority(2, 4, 0); got != 50 {
		t.Errorf("depth 2 of 4: got %d, want 50", got)
	}
	// Multiplicity boost caps at 50.
	if got := Priority(4, 4, 3); got != 30 {
		t.Errorf("3 sources: got %d, want 30", got)
	}
	if got := Priority(4, 4, 20); got != 50 {
		t.Errorf("boost should cap at 50, got %d", got)
	}
}

func TestRun_DepthCutoffScenario(t *testing.T) {
	s := openTestStore(t)
	// Y already exists as a node; X is new. Source sits at depth 2, max is 3.
	if err := s.InsertNode(store.Node{Slug: "y-page", Title: "Y"}); err != nil {
		t.Fatal(err)
	}

	e := &Engine{Store: s, MaxDepth: 3}
	content := `<a href="x-page.html">X</a> <a href="y-page.html">Y</a>`

	report, err := e.Run("source-page", 2, content)
	if err != nil {
		t.Fatal(err)
	}
	if report.Found != 2 || report.Queued != 1 || report.Skipped != 1 {
		t.Errorf("counts: found=%d queued=%d skipped=%d", report.Found, report.Queued, report.Skipped)
	}

	byTarget := make(map[string]TargetReport)
	for _, tr := range report.Targets {
		byTarget[tr.Target] = tr
	}
	if byTarget["x-page"].Disposition != DispositionQueued {
		t.Errorf("x-page: %v", byTarget["x-page"].Disposition)
	}
	if byTarget["x-page"].Depth != 3 {
		t.Errorf("x-page depth = %d, want 3", byTarget["x-page"].Depth)
	}
	if byTarget["y-page"].Disposition != DispositionAlreadyExists {
		t.Errorf("y-page: %v", byTarget["y-page"].Disposition)
	}

	// X must be on the frontier at depth 3; nothing queued for Y.
	entry, err := s.GetFrontier("x-page")
	if err != nil {
		t.Fatal(err)
	}
	if entry == nil || entry.Depth != 3 {
		t.Errorf("x-page frontier entry: %+v", entry)
	}
	if yEntry, _ := s.GetFrontier("y-page"); yEntry != nil {
		t.Errorf("y-page must not be queued, got %+v", yEntry)
	}
}

func TestRun_ExceedsDepth(t *testing.T) {
	s := openTestStore(t)
	e := &Engine{Store: s, MaxDepth: 3}

	report, err := e.Run("deep-source", 3, `<a href="beyond.html">b</a>`)
	if err != nil {
		t.Fatal(err)
	}
	if report.Targets[0].Disposition != DispositionExceedsDepth {
		t.Errorf("got %v, want exceeds depth", report.Targets[0].Disposition)
	}
	if entry, _ := s.GetFrontier("beyond"); entry != nil {
		t.Error("target beyond max depth must not be queued")
	}
}

func TestRun_AlreadyQueued(t *testing.T) {
	s := openTestStore(t)
	if _, err := s.EnqueueFrontier(store.FrontierEntry{Target: "twice", Depth: 1}); err != nil {
		t.Fatal(err)
	}

	e := &Engine{Store: s, MaxDepth: 3}
	report, err := e.Run("another-source", 0, `<a href="twice.html">t</a>`)
	if err != nil {
		t.Fatal(err)
	}
	if report.Targets[0].Disposition != DispositionAlreadyQueued {
		t.Errorf("got %v, want already queued", report.Targets[0].Disposition)
	}
	if report.Queued != 0 {
		t.Errorf("queued = %d, want 0", report.Queued)
	}
}

func TestRun_FilteredTarget(t *testing.T) {
	s := openTestStore(t)
	e := &Engine{Store: s, MaxDepth: 3, Filter: Filter{Exclude: []string{"spam"}}}

	report, err := e.Run("src", 0, `<a href="spam-page.html">s</a>`)
	if err != nil {
		t.Fatal(err)
	}
	if report.Targets[0].Disposition != DispositionFiltered {
		t.Errorf("got %v, want filtered", report.Targets[0].Disposition)
	}
}

func TestRun_MultiplicityRaisesPriority(t *testing.T) {
	s := openTestStore(t)
	for _, slug := range []string{"a", "b"} {
		if err := s.InsertNode(store.Node{Slug: slug, Title: slug}); err != nil {
			t.Fatal(err)
		}
	}
	// Two existing pages already reference "hot-topic".
	if err := s.ReplaceReferences("a", []string{"hot-topic"}); err != nil {
		t.Fatal(err)
	}
	if err := s.ReplaceReferences("b", []string{"hot-topic"}); err != nil {
		t.Fatal(err)
	}

	e := &Engine{Store: s, MaxDepth: 4}
	report, err := e.Run("c", 0, `<a href="hot-topic.html">h</a> <a href="cold-topic.html">c</a>`)
	if err != nil {
		t.Fatal(err)
	}

	var hot, cold int
	for _, tr := range report.Targets {
		switch tr.Target {
		case "hot-topic":
			hot = tr.Priority
		case "cold-topic":
			cold = tr.Priority
		}
	}
	if hot <= cold {
		t.Errorf("hot-topic priority %d should exceed cold-topic %d", hot, cold)
	}
}
