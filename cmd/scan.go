package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"tendril/internal/monitor"
)

var (
	scanJSON  bool
	scanQuick bool
)

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Check the graph for broken links, orphan pages, and stubs",
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

		mon := &monitor.Monitor{
			Store:      st,
			ContentDir: cfg.ContentDir,
			RootSlug:   cfg.RootSlug,
		}

		var report *monitor.Report
		if scanQuick {
			report, err = mon.QuickScan()
		} else {
			report, err = mon.Scan()
		}
		if err != nil {
			return err
		}

		if scanJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(report)
		}
		printScan(report)
		return nil
	},
}

func printScan(report *monitor.Report) {
	fmt.Println()
	if report.Healthy() {
		fmt.Println("  " + okStyle.Render(report.Summary()))
		fmt.Println()
		return
	}
	fmt.Println("  " + report.Summary())

	if len(report.Broken) > 0 {
		fmt.Println()
		fmt.Println("  " + badStyle.Render("BROKEN REFERENCES"))
		for _, b := range report.Broken {
			fmt.Printf("    %s %s\n", b.Target,
				mutedStyle.Render("<- "+strings.Join(b.Sources, ", ")))
		}
	}
	if len(report.Orphans) > 0 {
		fmt.Println()
		fmt.Println("  " + warnStyle.Render("ORPHAN PAGES"))
		for _, slug := range report.Orphans {
			fmt.Printf("    %s\n", slug)
		}
	}
	if len(report.Stubs) > 0 {
		fmt.Println()
		fmt.Println("  " + warnStyle.Render("PAGES WITH PLACEHOLDER LINKS"))
		for _, s := range report.Stubs {
			fmt.Printf("    %s (%d)\n", s.Slug, s.Stubs)
		}
	}
	fmt.Println()
}

func init() {
	scanCmd.Flags().BoolVar(&scanJSON, "json", false, "Output as JSON")
	scanCmd.Flags().BoolVar(&scanQuick, "quick", false, "Only check the most recently produced page")
	rootCmd.AddCommand(scanCmd)
}
