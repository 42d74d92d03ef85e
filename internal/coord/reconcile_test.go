package coord

import (
	"context"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"tendril/internal/store"
)

func newTestReconciler(t *testing.T) (*Reconciler, *store.Store) {
	t.Helper()
	stateDir := t.TempDir()
	st, err := store.Open(filepath.Join(stateDir, "tendril.db"))
	if err != nil {
		t.Fatalf("opening store: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	return &Reconciler{
		Store:       st,
		ContentDir:  t.TempDir(),
		StateDir:    stateDir,
		LockTimeout: 2 * time.Second,
		Log:         testLogger(),
	}, st
}

func stageArtifact(t *testing.T, r *Reconciler, name, body string) *Workspace {
	t.Helper()
	ws, err := NewWorkspace(r.StateDir, "worker-00")
	if err != nil {
		t.Fatalf("workspace: %v", err)
	}
	t.Cleanup(ws.Remove)
	if err := os.WriteFile(filepath.Join(ws.Dir, name), []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return ws
}

func TestMergeNewPage(t *testing.T) {
	r, st := newTestReconciler(t)
	ws := stageArtifact(t, r, "tide-pools.html",
		`<html><head><title>Tide Pools</title></head><body><a href="moss-garden.html">m</a></body></html>`)

	fresh, err := r.Merge(context.Background(), ws)
	if err != nil {
		t.Fatalf("Merge: %v", err)
	}
	if !reflect.DeepEqual(fresh, []string{"tide-pools"}) {
		t.Fatalf("fresh = %v, want [tide-pools]", fresh)
	}

	node, err := st.GetNode("tide-pools")
	if err != nil || node == nil {
		t.Fatalf("GetNode = (%v, %v)", node, err)
	}
	if node.Title != "Tide Pools" {
		t.Errorf("title = %q, want from <title> tag", node.Title)
	}

	refs, err := st.AllReferences()
	if err != nil || len(refs) != 1 {
		t.Fatalf("refs = (%v, %v), want one edge", refs, err)
	}
	if refs[0].Source != "tide-pools" || refs[0].Target != "moss-garden" {
		t.Errorf("edge = %+v", refs[0])
	}
}

func TestMergeOverwriteIsNotNew(t *testing.T) {
	r, st := newTestReconciler(t)

	ws := stageArtifact(t, r, "tide-pools.html",
		`<html><head><title>Tide Pools</title></head><body><a href="old-link.html">o</a></body></html>`)
	if _, err := r.Merge(context.Background(), ws); err != nil {
		t.Fatalf("first merge: %v", err)
	}

	// Second merge rewrites the same page with a different reference.
	ws2 := stageArtifact(t, r, "tide-pools.html",
		`<html><head><title>Tide Pools</title></head><body><a href="new-link.html">n</a></body></html>`)
	fresh, err := r.Merge(context.Background(), ws2)
	if err != nil {
		t.Fatalf("second merge: %v", err)
	}
	if len(fresh) != 0 {
		t.Fatalf("overwrite reported as new: %v", fresh)
	}

	// Edges were replaced, not accumulated.
	refs, err := st.AllReferences()
	if err != nil || len(refs) != 1 {
		t.Fatalf("refs = (%v, %v), want one edge", refs, err)
	}
	if refs[0].Target != "new-link" {
		t.Errorf("edge target = %q, want new-link", refs[0].Target)
	}
}

func TestMergeNormalizesFilenames(t *testing.T) {
	r, st := newTestReconciler(t)
	ws := stageArtifact(t, r, "Moss Garden.html", `<html><head><title>Moss</title></head><body></body></html>`)

	fresh, err := r.Merge(context.Background(), ws)
	if err != nil {
		t.Fatalf("Merge: %v", err)
	}
	if !reflect.DeepEqual(fresh, []string{"moss-garden"}) {
		t.Fatalf("fresh = %v, want [moss-garden]", fresh)
	}
	if _, err := os.Stat(filepath.Join(r.ContentDir, "moss-garden.html")); err != nil {
		t.Fatalf("normalized page missing: %v", err)
	}
	if node, _ := st.GetNode("moss-garden"); node == nil {
		t.Fatal("normalized node missing")
	}
}

func TestMergeEmptyWorkspace(t *testing.T) {
	r, _ := newTestReconciler(t)
	ws, err := NewWorkspace(r.StateDir, "worker-00")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(ws.Remove)

	fresh, err := r.Merge(context.Background(), ws)
	if err != nil {
		t.Fatalf("Merge: %v", err)
	}
	if len(fresh) != 0 {
		t.Fatalf("fresh = %v, want none", fresh)
	}
}
