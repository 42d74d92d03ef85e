package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
)

var (
	frontierLimit        int
	frontierJSON         bool
	frontierReleaseStale time.Duration
)

var frontierCmd = &cobra.Command{
	Use:   "frontier",
	Short: "List pending frontier entries in claim order",
	Long: `Shows what the workers will pick up next, highest priority first.

--release-stale returns entries that have sat in_progress longer than the
given duration to pending, recovering claims stranded by killed workers.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		st, err := openStore(cfg)
		if err != nil {
			return err
		}
		defer st.Close()

		if frontierReleaseStale > 0 {
			released, err := st.ReleaseStale(frontierReleaseStale)
			if err != nil {
				return err
			}
			fmt.Printf("[frontier] released %d stale claim(s)\n", released)
		}

		entries, err := st.PendingFrontier(frontierLimit)
		if err != nil {
			return err
		}

		if frontierJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(entries)
		}

		if len(entries) == 0 {
			fmt.Println("frontier is empty")
			return nil
		}
		for _, e := range entries {
			src := ""
			if e.Source != "" {
				src = mutedStyle.Render(" <- " + e.Source)
			}
			fmt.Printf("  p%-3d d%d  %s%s\n", e.Priority, e.Depth, e.Target, src)
		}
		return nil
	},
}

func init() {
	frontierCmd.Flags().IntVar(&frontierLimit, "limit", 20, "Maximum entries to show")
	frontierCmd.Flags().BoolVar(&frontierJSON, "json", false, "Output as JSON")
	frontierCmd.Flags().DurationVar(&frontierReleaseStale, "release-stale", 0, "Release in_progress claims older than this (e.g. 30m)")
	rootCmd.AddCommand(frontierCmd)
}
