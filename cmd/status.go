package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"tendril/internal/coord"
	"tendril/internal/store"
)

var (
	headingStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#4682b4"))
	okStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("#2e8b57"))
	warnStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#b8860b"))
	badStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#e53935"))
	mutedStyle   = lipgloss.NewStyle().Faint(true)
)

var statusJSON bool

type statusReport struct {
	Nodes      int                    `json:"nodes"`
	References int                    `json:"references"`
	Broken     int                    `json:"broken"`
	Orphans    int                    `json:"orphans"`
	Loops      int64                  `json:"loops"`
	Newest     string                 `json:"newest,omitempty"`
	NewestAt   string                 `json:"newest_at,omitempty"`
	Frontier   map[int]map[string]int `json:"frontier,omitempty"`
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show graph size, loop count, and the frontier by depth",
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

		report, err := buildStatus(cfg.StateDir, cfg.RootSlug, st)
		if err != nil {
			return err
		}

		if statusJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(report)
		}
		printStatus(report)
		return nil
	},
}

func buildStatus(stateDir, rootSlug string, st *store.Store) (*statusReport, error) {
	report := &statusReport{}
	var err error

	if report.Nodes, err = st.NodeCount(); err != nil {
		return nil, err
	}
	if report.References, err = st.ReferenceCount(); err != nil {
		return nil, err
	}
	broken, err := st.BrokenReferences()
	if err != nil {
		return nil, err
	}
	report.Broken = len(broken)
	orphans, err := st.OrphanNodes(rootSlug)
	if err != nil {
		return nil, err
	}
	report.Orphans = len(orphans)
	if report.Loops, err = coord.NewCounter(stateDir).Value(); err != nil {
		return nil, err
	}
	if report.Frontier, err = st.FrontierHistogram(); err != nil {
		return nil, err
	}

	newest, err := st.MostRecentNode()
	if err != nil {
		return nil, err
	}
	if newest != nil {
		report.Newest = newest.Slug
		report.NewestAt = time.UnixMilli(newest.CreatedAt).Format(time.RFC3339)
	}
	return report, nil
}

func printStatus(report *statusReport) {
	fmt.Println()
	fmt.Println("  " + headingStyle.Render("GRAPH"))
	fmt.Printf("  Nodes: %d  References: %d  Loops completed: %d\n",
		report.Nodes, report.References, report.Loops)
	health := okStyle.Render("no broken references, no orphans")
	if report.Broken > 0 || report.Orphans > 0 {
		health = badStyle.Render(fmt.Sprintf("%d broken", report.Broken)) +
			"  " + warnStyle.Render(fmt.Sprintf("%d orphans", report.Orphans))
	}
	fmt.Println("  " + health)
	if report.Newest != "" {
		fmt.Printf("  Newest page: %s %s\n",
			report.Newest, mutedStyle.Render("("+report.NewestAt+")"))
	}

	fmt.Println()
	fmt.Println("  " + headingStyle.Render("FRONTIER"))
	if len(report.Frontier) == 0 {
		fmt.Println("  " + mutedStyle.Render("empty"))
		fmt.Println()
		return
	}

	depths := make([]int, 0, len(report.Frontier))
	for d := range report.Frontier {
		depths = append(depths, d)
	}
	sort.Ints(depths)
	for _, d := range depths {
		counts := report.Frontier[d]
		line := fmt.Sprintf("  depth %d: ", d)
		line += okStyle.Render(fmt.Sprintf("%d pending", counts[store.StatusPending]))
		if n := counts[store.StatusInProgress]; n > 0 {
			line += "  " + warnStyle.Render(fmt.Sprintf("%d in progress", n))
		}
		if n := counts[store.StatusCompleted]; n > 0 {
			line += "  " + mutedStyle.Render(fmt.Sprintf("%d completed", n))
		}
		fmt.Println(line)
	}
	fmt.Println()
}

func init() {
	statusCmd.Flags().BoolVar(&statusJSON, "json", false, "Output as JSON")
	rootCmd.AddCommand(statusCmd)
}
