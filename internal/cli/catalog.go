package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/partsflow/gatekeeper/internal/catalog"
)

var importDBPath string

func init() {
	rootCmd.AddCommand(catalogCmd)
	catalogCmd.AddCommand(catalogImportCmd)
	catalogImportCmd.Flags().StringVar(&importDBPath, "db", "catalog.db", "Path to the sqlite database")
}

var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "Catalog data operations",
}

var catalogImportCmd = &cobra.Command{
	Use:   "import <products.json>",
	Short: "Import a products JSON file into the sqlite catalog",
	Long:  "Replaces the database contents with the records from the JSON file,\npreserving file order for pagination.",
	Args:  cobra.ExactArgs(1),
	RunE:  runCatalogImport,
}

func runCatalogImport(cmd *cobra.Command, args []string) error {
	snapshot, err := catalog.LoadJSON(args[0])
	if err != nil {
		return err
	}

	store, err := catalog.OpenSQLite(importDBPath)
	if err != nil {
		return err
	}
	defer store.Close()

	products := snapshot.Products()
	if err := store.Import(cmd.Context(), products); err != nil {
		return fmt.Errorf("import failed: %w", err)
	}

	fmt.Printf("Imported %d products into %s\n", len(products), importDBPath)
	return nil
}
