package coord

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"

	"tendril/internal/selector"
)

// Generator is the external content-generation collaborator. Given a task
// and a private workspace, it either writes a new page artifact into the
// workspace or fails. Only the error result is trusted; the reconciler
// detects actual output by snapshot diffing.
type Generator interface {
	Generate(ctx context.Context, task *selector.Task, ws *Workspace) error
}

// CLIGenerator runs an external LLM CLI (claude-compatible flags) as the
// generation collaborator. The coordinator, not the CLI, enforces the hard
// timeout.
type CLIGenerator struct {
	Binary   string        // e.g. "claude"
	Model    string        // optional model override
	MaxTurns int           // agent turn cap passed through to the CLI
	Timeout  time.Duration // hard wall-clock limit per invocation
	Log      *slog.Logger
}

// Generate builds a prompt from the task and invokes the external binary
// with the workspace as its working directory. On timeout the process gets
// SIGTERM, then SIGKILL after a grace period.
func (g *CLIGenerator) Generate(ctx context.Context, task *selector.Task, ws *Workspace) error {
	if err := task.Validate(); err != nil {
		return fmt.Errorf("rejecting task: %w", err)
	}
	if _, err := exec.LookPath(g.Binary); err != nil {
		return fmt.Errorf("generator binary %q not found in PATH: %w", g.Binary, err)
	}

	timeout := g.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Minute
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	args := []string{
		"-p", BuildPrompt(task),
		"--dangerously-skip-permissions",
	}
	if g.Model != "" {
		args = append(args, "--model", g.Model)
	}
	if g.MaxTurns > 0 {
		args = append(args, "--max-turns", strconv.Itoa(g.MaxTurns))
	}

	cmd := exec.CommandContext(ctx, g.Binary, args...)
	cmd.Dir = ws.Dir
	// Strip CLAUDE_CODE_* and CLAUDECODE so the collaborator does not detect
	// a recursive agent session when tendril itself runs under one.
	cmd.Env = filterGeneratorEnv(os.Environ())
	cmd.Cancel = func() error {
		return cmd.Process.Signal(syscall.SIGTERM)
	}
	cmd.WaitDelay = 3 * time.Second // SIGKILL after grace period

	var stderr cappedBuffer
	stderr.limit = 10 * 1024
	cmd.Stderr = &stderr
	cmd.Stdout = &stderr

	start := time.Now()
	err := cmd.Run()
	elapsed := time.Since(start)

	if g.Log != nil {
		g.Log.Debug("generator finished",
			"task", task.Describe(),
			"duration", elapsed,
			"err", err)
	}

	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return fmt.Errorf("generation timed out after %s", timeout)
		}
		tail := strings.TrimSpace(stderr.String())
		if tail != "" {
			return fmt.Errorf("generation failed: %w (output: %s)", err, tail)
		}
		return fmt.Errorf("generation failed: %w", err)
	}
	return nil
}

// BuildPrompt renders a task into collaborator instructions. The prompt is
// self-contained: target identity or seed, referencing context, and the
// style hint all travel with it, so the collaborator never queries the graph.
func BuildPrompt(task *selector.Task) string {
	var b strings.Builder

	b.WriteString("You are growing a self-referencing HTML wiki. ")
	b.WriteString("Write exactly one complete HTML page into the current directory. ")
	b.WriteString("The page must use relative links like <a href=\"some-topic.html\"> to reference related topics, existing or invented.\n\n")

	switch task.Kind {
	case selector.KindExpandFrontier:
		fmt.Fprintf(&b, "Create the page %q (file %s.html), titled %q.\n", task.Target, task.Target, task.Title)
		if task.Context != "" {
			fmt.Fprintf(&b, "It was %s; write it so that link makes sense.\n", task.Context)
		}
	case selector.KindRepairBroken:
		fmt.Fprintf(&b, "Create the missing page %q (file %s.html), titled %q.\n", task.Target, task.Target, task.Title)
		if task.Context != "" {
			fmt.Fprintf(&b, "Existing pages already link to it:\n%s\n", task.Context)
		}
	case selector.KindConnectOrphan:
		fmt.Fprintf(&b, "The page %q has no inbound links. Create one new page (pick a fitting topic and filename) that naturally links to %s.html.\n",
			task.Target, task.Target)
	case selector.KindCreateNew:
		fmt.Fprintf(&b, "Create a brand-new page about: %s\n", task.Seed.Text)
		if task.Seed.Attribution != "" {
			fmt.Fprintf(&b, "(seed courtesy of %s)\n", task.Seed.Attribution)
		}
	}

	fmt.Fprintf(&b, "\nTask priority: %s.\n", task.Priority)
	if task.Style != "" {
		fmt.Fprintf(&b, "Use %s as the page's accent color.\n", task.Style)
	}
	b.WriteString("Include at least three relative links to other topic pages. Do not use href=\"#\" placeholders.\n")

	return b.String()
}

// filterGeneratorEnv removes CLAUDE_CODE_* and CLAUDECODE variables from the
// environment slice.
func filterGeneratorEnv(env []string) []string {
	filtered := make([]string, 0, len(env))
	for _, e := range env {
		key := e
		if idx := strings.IndexByte(e, '='); idx >= 0 {
			key = e[:idx]
		}
		if strings.HasPrefix(key, "CLAUDE_CODE_") || key == "CLAUDECODE" {
			continue
		}
		filtered = append(filtered, e)
	}
	return filtered
}

// cappedBuffer is a bytes.Buffer that stops writing after a byte limit.
// Captures collaborator output without unbounded memory growth.
type cappedBuffer struct {
	mu    sync.Mutex
	buf   bytes.Buffer
	limit int
}

func (c *cappedBuffer) Write(p []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	remaining := c.limit - c.buf.Len()
	if remaining <= 0 {
		return len(p), nil // pretend we wrote it all
	}
	toWrite := p
	if len(toWrite) > remaining {
		toWrite = toWrite[:remaining]
	}
	_, err := c.buf.Write(toWrite)
	// Always report full input length to satisfy the io.Writer contract.
	return len(p), err
}

func (c *cappedBuffer) String() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.buf.String()
}
