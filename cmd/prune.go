package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var pruneOlderThan int

var pruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Delete completed frontier entries past the retention window",
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

		days := pruneOlderThan
		if days <= 0 {
			days = cfg.RetentionDays
		}
		removed, err := st.PruneCompleted(days)
		if err != nil {
			return err
		}
		fmt.Printf("[prune] removed %d completed entries older than %d day(s)\n", removed, days)
		return nil
	},
}

func init() {
	pruneCmd.Flags().IntVar(&pruneOlderThan, "older-than", 0, "Retention in days (default: config retention_days)")
	rootCmd.AddCommand(pruneCmd)
}
