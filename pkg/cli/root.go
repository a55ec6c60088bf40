// Package cli implements pgcat, a command-line view of the pg_catalog
// snapshot engine. Commands build the catalog chain in-process from a DuckDB
// file and an optional YAML seed.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	version = "dev"
	commit  = "none"
)

// Execute runs the CLI.
func Execute() int {
	rootCmd := newRootCmd()
	if err := rootCmd.Execute(); err != nil {
		if getOutputFormat(rootCmd) == "json" {
			_ = PrintJSON(os.Stdout, map[string]any{
				"error": err.Error(),
			})
		} else {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		return 1
	}
	return 0
}

func newRootCmd() *cobra.Command {
	var (
		output   string
		seed     string
		duckPath string
		catalog  string
		user     string
	)

	rootCmd := &cobra.Command{
		Use:           "pgcat",
		Short:         "pg_catalog snapshot CLI",
		Long:          "Inspect the pg_catalog relations and introspection functions a DuckDB catalog chain exposes.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if !cmd.Flags().Changed("duckdb") {
				if v := os.Getenv("DUCKDB_PATH"); v != "" {
					duckPath = v
				}
			}
			if !cmd.Flags().Changed("seed") {
				if v := os.Getenv("CATALOG_SEED_FILE"); v != "" {
					seed = v
				}
			}
			return validateOutputFormat(output)
		},
	}

	rootCmd.PersistentFlags().StringVarP(&output, "output", "o", "", "Output format: table|json (default json when stdout is not a terminal)")
	rootCmd.PersistentFlags().StringVar(&seed, "seed", "", "YAML file declaring in-memory catalogs")
	rootCmd.PersistentFlags().StringVar(&duckPath, "duckdb", "", "DuckDB database file (empty opens an in-memory database)")
	rootCmd.PersistentFlags().StringVar(&catalog, "catalog", "duckdb", "Catalog that hosts pg_catalog")
	rootCmd.PersistentFlags().StringVar(&user, "user", "postgres", "Name reported by current_user")

	opts := &sessionOptions{seed: &seed, duckPath: &duckPath, catalog: &catalog, user: &user}

	rootCmd.AddCommand(newRelationsCmd(opts))
	rootCmd.AddCommand(newDumpCmd(opts))
	rootCmd.AddCommand(newFunctionsCmd(opts))
	rootCmd.AddCommand(newQueryCmd(opts))
	rootCmd.AddCommand(newVersionCmd())

	return rootCmd
}
