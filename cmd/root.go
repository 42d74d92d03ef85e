package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"tendril/internal/config"
	"tendril/internal/store"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "tendril",
	Short: "Tendril grows a self-referencing wiki of HTML pages",
	Long: `Tendril runs concurrent workers that expand a content graph: each loop
picks the most useful unit of work (a queued topic, a broken link, an
unconnected page), asks an external collaborator to write the page, merges
the result, and queues whatever the new page links to.`,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to .tendril.yaml (default: walk up from cwd)")
}

// loadConfig resolves configuration using priority: --config flag >
// TENDRIL_CONFIG env > walk-up discovery > defaults.
func loadConfig() (config.Config, error) {
	return config.Load(configPath)
}

// openStore opens an existing graph database; it refuses to create one so
// a typo'd path fails loudly instead of growing a second graph.
func openStore(cfg config.Config) (*store.Store, error) {
	if _, err := os.Stat(cfg.DBPath); err != nil {
		return nil, fmt.Errorf("no graph database at %s (run `tendril init` first)", cfg.DBPath)
	}
	return store.Open(cfg.DBPath)
}
