package coord

import (
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
)

// Publisher is the optional publish collaborator: it commits the content
// area to its git repository after reconciliation, outside the merge lock,
// so a slow or failing remote never blocks graph mutation. Failures are
// reported but never fatal to the worker loop.
type Publisher struct {
	Dir  string // content directory (inside a git work tree)
	Push bool   // also push to the default remote
	Log  *slog.Logger
}

// Publish stages and commits the given slugs. A no-op commit (nothing
// staged) is not an error.
func (p *Publisher) Publish(slugs []string) error {
	if len(slugs) == 0 {
		return nil
	}

	if _, err := gitOutput(p.Dir, "rev-parse", "--git-dir"); err != nil {
		return fmt.Errorf("publishing: content dir is not a git work tree: %w", err)
	}

	args := append([]string{"add", "--"}, pageFiles(slugs)...)
	if _, err := gitOutput(p.Dir, args...); err != nil {
		return fmt.Errorf("publishing: git add: %w", err)
	}

	msg := fmt.Sprintf("grow: %s", strings.Join(slugs, ", "))
	if len(msg) > 72 {
		msg = msg[:69] + "..."
	}
	if _, err := gitOutput(p.Dir, "commit", "-m", msg); err != nil {
		// Nothing staged is the common benign case.
		if p.Log != nil {
			p.Log.Debug("publish commit skipped", "err", err)
		}
		return nil
	}

	if p.Push {
		if _, err := gitOutput(p.Dir, "push"); err != nil {
			return fmt.Errorf("publishing: git push: %w", err)
		}
	}

	if p.Log != nil {
		p.Log.Info("published pages", "count", len(slugs), "push", p.Push)
	}
	return nil
}

func pageFiles(slugs []string) []string {
	files := make([]string, len(slugs))
	for i, s := range slugs {
		files[i] = s + ".html"
	}
	return files
}

// gitOutput runs a git command in dir and returns trimmed stdout.
func gitOutput(dir string, args ...string) (string, error) {
	cmd := exec.Command("git", args...)
	cmd.Dir = dir
	out, err := cmd.Output()
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(out)), nil
}
