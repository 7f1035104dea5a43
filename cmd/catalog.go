package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/reptin/rcs/internal/catalog"
	"github.com/reptin/rcs/internal/engine"
)

var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "Manage the suggested-platform catalog",
}

var catalogSeedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Load the built-in platform catalog",
	RunE: func(cmd *cobra.Command, args []string) error {
		cat, err := openCatalog()
		if err != nil {
			return err
		}
		defer cat.Close()

		n, err := cat.Seed()
		if err != nil {
			return err
		}
		fmt.Printf("Seeded %d platforms.\n", n)
		return nil
	},
}

var (
	catalogContext  string
	catalogQuery    string
	catalogCategory string
)

var catalogListCmd = &cobra.Command{
	Use:   "list",
	Short: "List catalog platforms",
	RunE: func(cmd *cobra.Command, args []string) error {
		cat, err := openCatalog()
		if err != nil {
			return err
		}
		defer cat.Close()

		platforms, err := cat.List(catalog.Filter{
			Context:  engine.Context(catalogContext),
			Query:    catalogQuery,
			Category: catalogCategory,
		})
		if err != nil {
			return err
		}
		if len(platforms) == 0 {
			fmt.Println("No platforms. Run `rcs catalog seed` first.")
			return nil
		}
		for _, p := range platforms {
			fmt.Printf("%-16s %-20s %-12s %s\n", p.ID, p.Title, p.Category, p.URL)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(catalogCmd)
	catalogCmd.AddCommand(catalogSeedCmd, catalogListCmd)

	catalogListCmd.Flags().StringVar(&catalogContext, "context", "", "Filter by context: selection, image, link, page")
	catalogListCmd.Flags().StringVar(&catalogQuery, "query", "", "Match against title and tags")
	catalogListCmd.Flags().StringVar(&catalogCategory, "category", "", "Filter by category")
}

func openCatalog() (*catalog.Store, error) {
	cfg := loadConfig()
	cat, err := catalog.Open(cfg.Storage.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open catalog: %w", err)
	}
	return cat, nil
}
