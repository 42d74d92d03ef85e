package coord

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
)

// Coordinator supervises a fixed pool of workers. Each worker runs as a
// goroutine; a panicking worker is detected and restarted under the same
// identity, while budget-exhausted and shutdown exits are final.
type Coordinator struct {
	Workers   int
	ScanEvery int64 // run a full consistency scan every N completed loops; <= 0 disables

	// NewWorker builds a worker for the given identity. Called once per
	// worker at startup and again on every restart.
	NewWorker func(id string) *Worker

	// Scan runs a consistency pass over the whole graph. Optional.
	Scan func(ctx context.Context)

	StateDir string
	Counter  *Counter
	Log      *slog.Logger
}

// RunReport summarizes a whole coordinator run.
type RunReport struct {
	RunID    string          `json:"run_id"`
	Loops    int64           `json:"loops"`
	Restarts int             `json:"restarts"`
	Workers  []*WorkerReport `json:"workers"`
	Duration time.Duration   `json:"duration"`
}

type workerExit struct {
	id      string
	crashed bool
	report  *WorkerReport
	err     error
}

// Run starts the pool and blocks until every worker has exited. Cancelling
// ctx triggers a graceful shutdown: workers finish their current loop, stop
// fetching, and crashed workers are no longer restarted.
func (c *Coordinator) Run(ctx context.Context) (*RunReport, error) {
	runID := uuid.New().String()
	start := time.Now()
	report := &RunReport{RunID: runID}

	n := c.Workers
	if n <= 0 {
		n = 1
	}
	startLoops, err := c.Counter.Value()
	if err != nil {
		return nil, err
	}

	c.Log.Info("run starting", "run_id", runID, "workers", n)

	exits := make(chan workerExit, n)
	for i := 0; i < n; i++ {
		id := workerID(i)
		c.spawn(ctx, id, exits)
	}

	ticker := time.NewTicker(2 * time.Second)
	defer ticker.Stop()

	running := n
	lastScan := startLoops
	for running > 0 {
		select {
		case ex := <-exits:
			if ex.crashed && ctx.Err() == nil {
				report.Restarts++
				c.Log.Error("worker crashed, restarting",
					"worker", ex.id, "err", ex.err, "restarts", report.Restarts)
				c.spawn(ctx, ex.id, exits)
				continue
			}
			running--
			if ex.crashed {
				c.Log.Error("worker crashed during shutdown, not restarting",
					"worker", ex.id, "err", ex.err)
				report.Workers = append(report.Workers, &WorkerReport{Worker: ex.id})
				continue
			}
			c.Log.Info("worker done",
				"worker", ex.id,
				"loops", ex.report.Loops,
				"succeeded", ex.report.Succeeded,
				"failed", ex.report.Failed)
			report.Workers = append(report.Workers, ex.report)

		case <-ticker.C:
			c.maybeScan(ctx, &lastScan)
		}
	}

	if loops, err := c.Counter.Value(); err == nil {
		report.Loops = loops - startLoops
	}
	report.Duration = time.Since(start)

	// Workspaces are removed per task, but a crash can strand one.
	_ = os.RemoveAll(filepath.Join(c.StateDir, "workspaces"))

	c.Log.Info("run finished",
		"run_id", runID,
		"loops", report.Loops,
		"restarts", report.Restarts,
		"duration", report.Duration)
	return report, nil
}

// spawn launches one worker goroutine wrapped with panic recovery so a
// crash surfaces as a workerExit instead of taking down the process.
func (c *Coordinator) spawn(ctx context.Context, id string, exits chan<- workerExit) {
	w := c.NewWorker(id)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				exits <- workerExit{id: id, crashed: true, err: panicErr(r)}
			}
		}()
		rep, err := w.Run(ctx)
		exits <- workerExit{id: id, report: rep, err: err}
	}()
}

func (c *Coordinator) maybeScan(ctx context.Context, lastScan *int64) {
	if c.Scan == nil || c.ScanEvery <= 0 {
		return
	}
	loops, err := c.Counter.Value()
	if err != nil {
		return
	}
	if loops-*lastScan < c.ScanEvery {
		return
	}
	*lastScan = loops
	c.Log.Info("periodic consistency scan", "loops", loops)
	c.Scan(ctx)
}

func workerID(i int) string {
	return fmt.Sprintf("worker-%02d", i)
}

type recoveredPanic struct {
	value any
}

func (e recoveredPanic) Error() string {
	return "worker panic: " + panicString(e.value)
}

func panicErr(v any) error { return recoveredPanic{value: v} }

func panicString(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case error:
		return t.Error()
	default:
		return "unexpected failure"
	}
}
