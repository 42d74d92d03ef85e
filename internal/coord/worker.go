package coord

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"tendril/internal/discover"
	"tendril/internal/selector"
	"tendril/internal/store"
)

// Worker runs the straight-line task loop:
// idle -> task-fetch -> isolated-execution -> reconciliation -> discovery -> idle.
// All coordination with sibling workers goes through the store's atomic
// operations and the on-disk assign/merge locks.
type Worker struct {
	ID       string
	Store    *store.Store
	Selector selector.Config
	Engine   *discover.Engine
	Gen      Generator
	Recon    *Reconciler
	Pub      *Publisher // nil disables publishing

	// QuickScan, when set, runs the cheap newest-node consistency check
	// after every successful loop. Full scans stay with the coordinator.
	QuickScan func()

	StateDir    string
	MaxLoops    int           // loop budget; <= 0 means unlimited
	LockTimeout time.Duration // per lock acquisition
	Backoff     time.Duration // fixed delay after a fetch failure
	Counter     *Counter
	Log         *slog.Logger
}

// WorkerReport summarizes one worker's run.
type WorkerReport struct {
	Worker    string        `json:"worker"`
	Loops     int           `json:"loops"`
	Succeeded int           `json:"succeeded"`
	Failed    int           `json:"failed"`
	Duration  time.Duration `json:"duration"`
}

// Run loops until the budget is exhausted or ctx is cancelled. Both are
// graceful exits and leave a done marker; only a panic (handled by the
// coordinator) counts as a crash.
func (w *Worker) Run(ctx context.Context) (*WorkerReport, error) {
	report := &WorkerReport{Worker: w.ID}
	start := time.Now()
	defer func() {
		report.Duration = time.Since(start)
	}()

	_ = os.Remove(w.doneMarkerPath()) // stale marker from a prior run

	backoff := w.Backoff
	if backoff <= 0 {
		backoff = 2 * time.Second
	}

	for w.MaxLoops <= 0 || report.Loops < w.MaxLoops {
		if ctx.Err() != nil {
			break // shutting down: stop accepting new task-fetches
		}

		task, seq, err := w.fetchTask(ctx)
		if err != nil {
			if ctx.Err() != nil {
				break
			}
			w.Log.Warn("task fetch failed, backing off",
				"worker", w.ID, "err", err, "backoff", backoff)
			select {
			case <-ctx.Done():
			case <-time.After(backoff):
			}
			continue
		}

		loopStart := time.Now()
		ok := w.runTask(ctx, task)
		report.Loops++
		if ok {
			report.Succeeded++
			if w.QuickScan != nil {
				w.QuickScan()
			}
		} else {
			report.Failed++
		}

		// The loop finished even if shutdown began meanwhile, so the
		// counter bump must not be cancelled with it.
		w.completeLoop(context.Background())
		w.heartbeat()

		w.Log.Info("loop finished",
			"worker", w.ID,
			"seq", seq,
			"task", task.Describe(),
			"ok", ok,
			"duration", time.Since(loopStart))
	}

	w.writeDoneMarker(report)
	return report, nil
}

// fetchTask selects the next unit of work under the assign lock. The store's
// claim is itself atomic; the lock is defense in depth for the wider
// read-then-mark sequence and for the shared counter read.
func (w *Worker) fetchTask(ctx context.Context) (*selector.Task, int64, error) {
	lock := NewLock(w.StateDir, LockAssign)
	if err := lock.Acquire(ctx, w.LockTimeout); err != nil {
		return nil, 0, err
	}
	defer lock.Release()

	seq, err := w.Counter.Value()
	if err != nil {
		return nil, 0, err
	}
	task, err := selector.Next(w.Store, w.Selector, seq)
	if err != nil {
		return nil, 0, err
	}
	if err := task.Validate(); err != nil {
		return nil, 0, err
	}
	return task, seq, nil
}

// completeLoop bumps the global loop counter under the assign lock family.
func (w *Worker) completeLoop(ctx context.Context) {
	lock := NewLock(w.StateDir, LockAssign)
	if err := lock.Acquire(ctx, w.LockTimeout); err != nil {
		w.Log.Warn("loop counter lock failed", "worker", w.ID, "err", err)
		return
	}
	defer lock.Release()
	if _, err := w.Counter.Increment(); err != nil {
		w.Log.Warn("loop counter increment failed", "worker", w.ID, "err", err)
	}
}

// runTask executes one claimed task end to end. Returns false on any
// failure; a claimed frontier entry is only completed when its target
// actually appears in the content area, so a failed run leaves it
// in_progress for an operator sweep.
func (w *Worker) runTask(ctx context.Context, task *selector.Task) bool {
	ws, err := NewWorkspace(w.StateDir, w.ID)
	if err != nil {
		w.Log.Error("workspace creation failed", "worker", w.ID, "err", err)
		return false
	}
	defer ws.Remove() // unconditional teardown, success or failure

	if err := w.Gen.Generate(ctx, task, ws); err != nil {
		w.Log.Warn("generation failed",
			"worker", w.ID, "task", task.Describe(), "err", err)
		return false
	}

	fresh, err := w.Recon.Merge(ctx, ws)
	if err != nil {
		w.Log.Warn("reconciliation failed",
			"worker", w.ID, "task", task.Describe(), "err", err)
		return false
	}

	// Completion is keyed on the target node existing, not on the merge
	// reporting a fresh slug: a queued target can be produced by another
	// task between enqueue and claim, in which case this merge is an
	// overwrite (fresh stays empty) and the entry must still complete.
	if task.Kind == selector.KindExpandFrontier {
		node, err := w.Store.GetNode(task.Target)
		if err == nil && node != nil {
			if err := w.Store.CompleteFrontier(task.Target); err != nil {
				w.Log.Warn("frontier completion failed",
					"worker", w.ID, "target", task.Target, "err", err)
			}
		}
	}

	if len(fresh) == 0 {
		w.Log.Warn("no new node produced",
			"worker", w.ID, "task", task.Describe())
		return false
	}

	for _, slug := range fresh {
		content, err := os.ReadFile(filepath.Join(w.Recon.ContentDir, slug+".html"))
		if err != nil {
			w.Log.Warn("reading merged page failed", "slug", slug, "err", err)
			continue
		}
		report, err := w.Engine.Run(slug, task.Depth, string(content))
		if err != nil {
			w.Log.Warn("discovery failed", "slug", slug, "err", err)
			continue
		}
		w.Log.Info("discovery",
			"worker", w.ID,
			"source", slug,
			"found", report.Found,
			"queued", report.Queued,
			"skipped", report.Skipped)
	}

	if w.Pub != nil {
		if err := w.Pub.Publish(fresh); err != nil {
			// Publish problems never block graph growth.
			w.Log.Warn("publish failed", "worker", w.ID, "err", err)
		}
	}

	return true
}

func (w *Worker) doneMarkerPath() string {
	return filepath.Join(w.StateDir, "workers", w.ID+".done")
}

// writeDoneMarker distinguishes graceful completion from a crash: a crashed
// worker never reaches this.
func (w *Worker) writeDoneMarker(report *WorkerReport) {
	dir := filepath.Dir(w.doneMarkerPath())
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return
	}
	body := fmt.Sprintf("loops=%d succeeded=%d failed=%d finished=%s\n",
		report.Loops, report.Succeeded, report.Failed,
		time.Now().UTC().Format(time.RFC3339))
	_ = os.WriteFile(w.doneMarkerPath(), []byte(body), 0o644)
}

// heartbeat records liveness once per loop for cross-process observability.
func (w *Worker) heartbeat() {
	dir := filepath.Join(w.StateDir, "workers")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return
	}
	stamp := time.Now().UTC().Format(time.RFC3339) + "\n"
	_ = os.WriteFile(filepath.Join(dir, w.ID+".heartbeat"), []byte(stamp), 0o644)
}
