package coord

import (
	"fmt"
	"os"
	"path/filepath"
)

// Workspace is a disposable, worker-private directory used for one task
// execution. Concurrent workers never see each other's workspaces; the
// external collaborator writes its artifact here before reconciliation
// copies it into the shared content area.
type Workspace struct {
	Dir string
}

// NewWorkspace creates a fresh workspace for workerID under
// stateDir/workspaces.
func NewWorkspace(stateDir, workerID string) (*Workspace, error) {
	parent := filepath.Join(stateDir, "workspaces")
	if err := os.MkdirAll(parent, 0o755); err != nil {
		return nil, fmt.Errorf("creating workspace parent: %w", err)
	}
	dir, err := os.MkdirTemp(parent, workerID+"-*")
	if err != nil {
		return nil, fmt.Errorf("creating workspace for %s: %w", workerID, err)
	}
	return &Workspace{Dir: dir}, nil
}

// Remove tears the workspace down. Safe to call multiple times; called
// unconditionally at the end of every loop iteration.
func (w *Workspace) Remove() {
	if w == nil || w.Dir == "" {
		return
	}
	_ = os.RemoveAll(w.Dir)
}

// Pages lists the .html files currently in the workspace.
func (w *Workspace) Pages() ([]string, error) {
	entries, err := os.ReadDir(w.Dir)
	if err != nil {
		return nil, fmt.Errorf("listing workspace %s: %w", w.Dir, err)
	}
	var pages []string
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".html" {
			continue
		}
		pages = append(pages, e.Name())
	}
	return pages, nil
}
