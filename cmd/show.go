package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"tendril/internal/discover"
	"tendril/internal/store"
)

var showJSON bool

var showCmd = &cobra.Command{
	Use:   "show <slug>",
	Short: "Show one page's node: references in and out, frontier state",
	Args:  cobra.ExactArgs(1),
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

		slug := discover.Normalize(args[0])
		node, err := st.GetNode(slug)
		if err != nil {
			return err
		}
		if node == nil {
			// The slug may still be queued rather than written.
			entry, err := st.GetFrontier(slug)
			if err != nil {
				return err
			}
			if entry == nil {
				return fmt.Errorf("no page or frontier entry for %q", slug)
			}
			fmt.Printf("%s is %s on the frontier (depth %d, priority %d, from %s)\n",
				slug, entry.Status, entry.Depth, entry.Priority, entry.Source)
			return nil
		}

		inbound, err := st.SourcesReferencing(slug)
		if err != nil {
			return err
		}
		outbound, err := st.TargetsReferencedBy(slug)
		if err != nil {
			return err
		}

		if showJSON {
			out := struct {
				Node     *store.Node `json:"node"`
				Inbound  []string    `json:"inbound,omitempty"`
				Outbound []string    `json:"outbound,omitempty"`
			}{node, inbound, outbound}
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(out)
		}

		fmt.Println()
		fmt.Printf("  %s %s\n", headingStyle.Render(node.Slug),
			mutedStyle.Render(node.Title))
		fmt.Printf("  created %s\n", time.UnixMilli(node.CreatedAt).Format(time.RFC3339))
		fmt.Printf("  references out: %d  in: %d\n", node.OutRefs, node.InRefs)
		if len(outbound) > 0 {
			fmt.Println("  links to:")
			for _, t := range outbound {
				fmt.Printf("    -> %s\n", t)
			}
		}
		if len(inbound) > 0 {
			fmt.Println("  linked from:")
			for _, s := range inbound {
				fmt.Printf("    <- %s\n", s)
			}
		}
		fmt.Println()
		return nil
	},
}

func init() {
	showCmd.Flags().BoolVar(&showJSON, "json", false, "Output as JSON")
	rootCmd.AddCommand(showCmd)
}
