package selector

import (
	"os"
	"path/filepath"
	"strings"
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

func addNode(t *testing.T, s *store.Store, slug string) {
	t.Helper()
	if err := s.InsertNode(store.Node{Slug: slug, Title: slug}); err != nil {
		t.Fatalf("inserting %s: %v", slug, err)
	}
}

func testConfig() Config {
	return Config{
		MaxDepth: 3,
		RootSlug: "home",
		Seeds:    []Seed{{Text: "seed one", Attribution: "test"}},
		Palette:  []string{"#88aa44", "#4488aa"},
	}
}

func TestNext_FrontierBeatsBrokenReference(t *testing.T) {
	s := openTestStore(t)

	// Graph has both a pending frontier entry and a broken reference.
	addNode(t, s, "home")
	if err := s.ReplaceReferences("home", []string{"dangling"}); err != nil {
		t.Fatal(err)
	}
	if _, err := s.EnqueueFrontier(store.FrontierEntry{Target: "queued-page", Depth: 1, Source: "home"}); err != nil {
		t.Fatal(err)
	}

	task, err := Next(s, testConfig(), 0)
	if err != nil {
		t.Fatal(err)
	}
	if task.Kind != KindExpandFrontier {
		t.Fatalf("expected expand-frontier, got %s", task.Kind)
	}
	if task.Target != "queued-page" {
		t.Errorf("target = %q, want queued-page", task.Target)
	}
	if task.Depth != 1 {
		t.Errorf("depth = %d, want 1 (inherited)", task.Depth)
	}

	// The claim must have marked the entry in_progress.
	e, err := s.GetFrontier("queued-page")
	if err != nil {
		t.Fatal(err)
	}
	if e == nil || e.Status != store.StatusInProgress {
		t.Errorf("claimed entry should be in_progress, got %+v", e)
	}
}

func TestNext_RepairTaskCarriesSourceExcerpts(t *testing.T) {
	s := openTestStore(t)
	contentDir := t.TempDir()

	addNode(t, s, "home")
	addNode(t, s, "reef-life")
	if err := s.ReplaceReferences("home", []string{"reef-life"}); err != nil {
		t.Fatal(err)
	}
	if err := s.ReplaceReferences("reef-life", []string{"kelp-forest"}); err != nil {
		t.Fatal(err)
	}
	page := `<html><head><title>Reef Life</title></head><body>` +
		`<p>Kelp forests shelter the reef from winter storms.</p>` +
		`<a href="kelp-forest.html">kelp</a></body></html>`
	if err := os.WriteFile(filepath.Join(contentDir, "reef-life.html"), []byte(page), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg := testConfig()
	cfg.ContentDir = contentDir
	task, err := Next(s, cfg, 0)
	if err != nil {
		t.Fatal(err)
	}
	if task.Kind != KindRepairBroken || task.Target != "kelp-forest" {
		t.Fatalf("task = %+v, want repair of kelp-forest", task)
	}

	// The context must name the source and quote its text, tags stripped,
	// so generation can proceed without reading the graph.
	if !strings.Contains(task.Context, "referenced by reef-life") {
		t.Errorf("context missing source list: %q", task.Context)
	}
	if !strings.Contains(task.Context, "shelter the reef from winter storms") {
		t.Errorf("context missing source excerpt: %q", task.Context)
	}
	if strings.Contains(task.Context, "<p>") {
		t.Errorf("context leaked markup: %q", task.Context)
	}
}

func TestNext_RepairContextWithoutPages(t *testing.T) {
	s := openTestStore(t)
	addNode(t, s, "home")
	if err := s.ReplaceReferences("home", []string{"dangling"}); err != nil {
		t.Fatal(err)
	}

	// No content dir configured: sources only.
	task, err := Next(s, testConfig(), 0)
	if err != nil {
		t.Fatal(err)
	}
	if task.Context != "referenced by home" {
		t.Errorf("context = %q, want bare source list", task.Context)
	}

	// Content dir set but the page file is gone: excerpt silently skipped.
	cfg := testConfig()
	cfg.ContentDir = t.TempDir()
	task, err = Next(s, cfg, 0)
	if err != nil {
		t.Fatal(err)
	}
	if task.Context != "referenced by home" {
		t.Errorf("context = %q, want bare source list when page unreadable", task.Context)
	}
}

func TestNext_BrokenReferenceBeatsOrphan(t *testing.T) {
	s := openTestStore(t)
	addNode(t, s, "home")
	addNode(t, s, "lonely") // orphan
	if err := s.ReplaceReferences("home", []string{"dangling"}); err != nil {
		t.Fatal(err)
	}

	task, err := Next(s, testConfig(), 0)
	if err != nil {
		t.Fatal(err)
	}
	if task.Kind != KindRepairBroken {
		t.Fatalf("expected repair-broken-reference, got %s", task.Kind)
	}
	if task.Target != "dangling" {
		t.Errorf("target = %q, want dangling", task.Target)
	}
	if task.Priority != PriorityCritical {
		t.Errorf("priority = %q, want critical", task.Priority)
	}
}

func TestNext_BrokenReferencePicksMostReferenced(t *testing.T) {
	s := openTestStore(t)
	for _, slug := range []string{"home", "a", "b"} {
		addNode(t, s, slug)
	}
	if err := s.ReplaceReferences("home", []string{"a", "b", "popular", "rare"}); err != nil {
		t.Fatal(err)
	}
	if err := s.ReplaceReferences("a", []string{"popular"}); err != nil {
		t.Fatal(err)
	}
	if err := s.ReplaceReferences("b", []string{"popular", "home"}); err != nil {
		t.Fatal(err)
	}

	task, err := Next(s, testConfig(), 0)
	if err != nil {
		t.Fatal(err)
	}
	if task.Target != "popular" {
		t.Errorf("target = %q, want popular (3 sources beats 1)", task.Target)
	}
}

func TestNext_BrokenReferenceTieBreaksBySlug(t *testing.T) {
	s := openTestStore(t)
	addNode(t, s, "home")
	if err := s.ReplaceReferences("home", []string{"zebra", "aardvark"}); err != nil {
		t.Fatal(err)
	}

	task, err := Next(s, testConfig(), 0)
	if err != nil {
		t.Fatal(err)
	}
	if task.Target != "aardvark" {
		t.Errorf("tie should break by ascending slug, got %q", task.Target)
	}
}

func TestNext_OrphanBeatsCreateNew(t *testing.T) {
	s := openTestStore(t)
	addNode(t, s, "home")
	addNode(t, s, "widow")
	addNode(t, s, "island")
	if err := s.ReplaceReferences("home", []string{}); err != nil {
		t.Fatal(err)
	}

	task, err := Next(s, testConfig(), 0)
	if err != nil {
		t.Fatal(err)
	}
	if task.Kind != KindConnectOrphan {
		t.Fatalf("expected connect-orphan, got %s", task.Kind)
	}
	// Deterministic: smallest slug.
	if task.Target != "island" {
		t.Errorf("target = %q, want island", task.Target)
	}
	if task.Priority != PriorityMedium {
		t.Errorf("priority = %q, want medium", task.Priority)
	}
}

func TestNext_CreateNewWhenGraphClean(t *testing.T) {
	s := openTestStore(t)
	addNode(t, s, "home")

	task, err := Next(s, testConfig(), 0)
	if err != nil {
		t.Fatal(err)
	}
	if task.Kind != KindCreateNew {
		t.Fatalf("expected create-new, got %s", task.Kind)
	}
	if task.Seed == nil || task.Seed.Text != "seed one" {
		t.Errorf("seed not carried: %+v", task.Seed)
	}
	if task.Priority != PriorityLow {
		t.Errorf("priority = %q, want low", task.Priority)
	}
	if err := task.Validate(); err != nil {
		t.Errorf("create-new task should validate: %v", err)
	}
}

func TestNext_FrontierRespectsMaxDepth(t *testing.T) {
	s := openTestStore(t)
	addNode(t, s, "home")
	if _, err := s.EnqueueFrontier(store.FrontierEntry{Target: "deep", Depth: 7}); err != nil {
		t.Fatal(err)
	}

	task, err := Next(s, testConfig(), 0)
	if err != nil {
		t.Fatal(err)
	}
	if task.Kind == KindExpandFrontier {
		t.Errorf("entry beyond max depth must not be selected, got %s", task.Describe())
	}
}

func TestNext_StyleCyclesPalette(t *testing.T) {
	s := openTestStore(t)
	cfg := testConfig()

	first, err := Next(s, cfg, 0)
	if err != nil {
		t.Fatal(err)
	}
	second, err := Next(s, cfg, 1)
	if err != nil {
		t.Fatal(err)
	}
	if first.Style != "#88aa44" || second.Style != "#4488aa" {
		t.Errorf("palette not cycled: %q, %q", first.Style, second.Style)
	}
}

func TestTaskValidate(t *testing.T) {
	cases := []struct {
		name    string
		task    Task
		wantErr bool
	}{
		{"expand with target", Task{Kind: KindExpandFrontier, Target: "x"}, false},
		{"expand missing target", Task{Kind: KindExpandFrontier}, true},
		{"repair missing target", Task{Kind: KindRepairBroken}, true},
		{"create with seed", Task{Kind: KindCreateNew, Seed: &Seed{Text: "t"}}, false},
		{"create missing seed", Task{Kind: KindCreateNew}, true},
		{"unknown kind", Task{Kind: "mystery", Target: "x"}, true},
		{"negative depth", Task{Kind: KindConnectOrphan, Target: "x", Depth: -1}, true},
	}
	for _, tc := range cases {
		err := tc.task.Validate()
		if tc.wantErr && err == nil {
			t.Errorf("%s: expected error", tc.name)
		}
		if !tc.wantErr && err != nil {
			t.Errorf("%s: unexpected error %v", tc.name, err)
		}
	}
}

func TestTitleFromSlug(t *testing.T) {
	if got := titleFromSlug("quantum-moss-garden"); got != "Quantum Moss Garden" {
		t.Errorf("got %q", got)
	}
}
