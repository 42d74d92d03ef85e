package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"tendril/internal/config"
	"tendril/internal/store"
)

var initForce bool

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a tendril project in the current directory",
	Long: `Writes .tendril.yaml, creates the content and state directories, opens
the graph database (creating the schema), and seeds the root page so the
first grow run has somewhere to start.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		dir, err := os.Getwd()
		if err != nil {
			return err
		}

		path, err := config.Write(dir)
		if err != nil {
			if !initForce {
				return err
			}
			fmt.Printf("[init] keeping existing %s\n", path)
		} else {
			fmt.Printf("[init] wrote %s\n", path)
		}

		cfg, err := config.Load(path)
		if err != nil {
			return err
		}

		for _, d := range []string{cfg.ContentDir, cfg.StateDir, filepath.Dir(cfg.DBPath)} {
			if err := os.MkdirAll(d, 0o755); err != nil {
				return err
			}
		}

		st, err := store.Open(cfg.DBPath)
		if err != nil {
			return err
		}
		defer st.Close()
		fmt.Printf("[init] graph database at %s\n", cfg.DBPath)

		if err := seedRoot(cfg, st); err != nil {
			return err
		}

		fmt.Println("[init] done. Run `tendril grow` to start.")
		return nil
	},
}

// seedRoot creates the root page and its node if the graph is empty.
func seedRoot(cfg config.Config, st *store.Store) error {
	node, err := st.GetNode(cfg.RootSlug)
	if err != nil {
		return err
	}
	if node != nil {
		return nil
	}

	page := filepath.Join(cfg.ContentDir, cfg.RootSlug+".html")
	if _, err := os.Stat(page); os.IsNotExist(err) {
		body := fmt.Sprintf(`<!DOCTYPE html>
<html>
<head><title>%s</title></head>
<body>
<h1>%s</h1>
<p>This wiki grows itself. Pages appear here as workers write them.</p>
</body>
</html>
`, cfg.RootSlug, cfg.RootSlug)
		if err := os.WriteFile(page, []byte(body), 0o644); err != nil {
			return err
		}
	}

	if err := st.InsertNode(store.Node{Slug: cfg.RootSlug, Title: cfg.RootSlug}); err != nil {
		return err
	}
	fmt.Printf("[init] seeded root page %s\n", page)
	return nil
}

func init() {
	initCmd.Flags().BoolVar(&initForce, "force", false, "Proceed even when .tendril.yaml already exists")
	rootCmd.AddCommand(initCmd)
}
