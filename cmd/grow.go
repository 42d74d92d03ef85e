package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"tendril/internal/config"
	"tendril/internal/coord"
	"tendril/internal/discover"
	"tendril/internal/logging"
	"tendril/internal/monitor"
	"tendril/internal/store"
)

var (
	growWorkers   int
	growMaxLoops  int
	growGenerator string
	growNoPublish bool
	growJSON      bool
)

var growCmd = &cobra.Command{
	Use:   "grow",
	Short: "Run the growth loop until the loop budget is spent",
	Long: `Starts the worker pool. Each worker repeatedly selects the next unit of
work, has the external collaborator write the page in an isolated
workspace, merges the artifacts, and queues newly referenced topics.
Ctrl-C shuts down gracefully: in-flight loops finish, no new one starts.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if growWorkers > 0 {
			cfg.Workers = growWorkers
		}
		if growMaxLoops > 0 {
			cfg.MaxLoops = growMaxLoops
		}
		if growGenerator != "" {
			cfg.Generator.Binary = growGenerator
		}
		if growNoPublish {
			cfg.Publish.Enabled = false
		}

		log, closeLog := logging.New(cfg.Log.File, logging.ParseLevel(cfg.Log.Level))
		defer closeLog()

		st, err := openStore(cfg)
		if err != nil {
			return err
		}
		defer st.Close()

		if err := os.MkdirAll(cfg.ContentDir, 0o755); err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		mon := &monitor.Monitor{
			Store:      st,
			ContentDir: cfg.ContentDir,
			RootSlug:   cfg.RootSlug,
			Log:        log,
		}

		c := &coord.Coordinator{
			Workers:   cfg.Workers,
			ScanEvery: int64(cfg.ScanEvery),
			NewWorker: func(id string) *coord.Worker {
				return newWorker(id, cfg, st, mon, log)
			},
			Scan: func(context.Context) {
				if _, err := mon.Scan(); err != nil {
					log.Warn("periodic scan failed", "err", err)
				}
			},
			StateDir: cfg.StateDir,
			Counter:  coord.NewCounter(cfg.StateDir),
			Log:      log,
		}

		report, err := c.Run(ctx)
		if err != nil {
			return err
		}

		if growJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(report)
		}
		printRunReport(report)
		return nil
	},
}

// newWorker wires one worker from the configuration. Called for initial
// spawns and for crash replacements alike.
func newWorker(id string, cfg config.Config, st *store.Store, mon *monitor.Monitor, log *slog.Logger) *coord.Worker {
	lockTimeout := 30 * time.Second
	return &coord.Worker{
		ID:       id,
		Store:    st,
		Selector: cfg.Selector(),
		Engine: &discover.Engine{
			Store:    st,
			MaxDepth: cfg.MaxDepth,
			Filter: discover.Filter{
				MinLength: cfg.Filter.MinLength,
				Require:   cfg.Filter.Require,
				Exclude:   cfg.Filter.Exclude,
			},
			Log: log,
		},
		Gen: &coord.CLIGenerator{
			Binary:   cfg.Generator.Binary,
			Model:    cfg.Generator.Model,
			MaxTurns: cfg.Generator.MaxTurns,
			Timeout:  time.Duration(cfg.Generator.TimeoutSeconds) * time.Second,
			Log:      log,
		},
		Recon: &coord.Reconciler{
			Store:       st,
			ContentDir:  cfg.ContentDir,
			StateDir:    cfg.StateDir,
			LockTimeout: lockTimeout,
			Log:         log,
		},
		Pub: newPublisher(cfg, log),
		QuickScan: func() {
			report, err := mon.QuickScan()
			if err != nil {
				log.Warn("quick scan failed", "worker", id, "err", err)
				return
			}
			if !report.Healthy() {
				log.Warn("quick scan findings", "worker", id, "summary", report.Summary())
			}
		},
		StateDir:    cfg.StateDir,
		MaxLoops:    cfg.MaxLoops,
		LockTimeout: lockTimeout,
		Backoff:     2 * time.Second,
		Counter:     coord.NewCounter(cfg.StateDir),
		Log:         log,
	}
}

func newPublisher(cfg config.Config, log *slog.Logger) *coord.Publisher {
	if !cfg.Publish.Enabled {
		return nil
	}
	return &coord.Publisher{Dir: cfg.ContentDir, Push: cfg.Publish.Push, Log: log}
}

func printRunReport(report *coord.RunReport) {
	fmt.Printf("\n  Run %s: %d loops in %s, %d restarts\n",
		shortID(report.RunID), report.Loops, report.Duration.Round(time.Second), report.Restarts)
	for _, w := range report.Workers {
		fmt.Printf("    %s: %d loops (%d ok, %d failed)\n",
			w.Worker, w.Loops, w.Succeeded, w.Failed)
	}
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func init() {
	growCmd.Flags().IntVar(&growWorkers, "workers", 0, "Override configured worker count")
	growCmd.Flags().IntVar(&growMaxLoops, "max-loops", 0, "Override per-worker loop budget")
	growCmd.Flags().StringVar(&growGenerator, "generator", "", "Override generator binary")
	growCmd.Flags().BoolVar(&growNoPublish, "no-publish", false, "Skip git publication even when configured")
	growCmd.Flags().BoolVar(&growJSON, "json", false, "Output run report as JSON")
	rootCmd.AddCommand(growCmd)
}
