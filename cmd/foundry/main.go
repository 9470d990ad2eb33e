package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var version = "dev"

var noColor bool

var rootCmd = &cobra.Command{
	Use:     "foundry",
	Short:   "foundry — industry dashboard for manufacturable items",
	Version: version,
	Long: `foundry keeps a persisted catalog-filter configuration, queries the
industry backend for profitable manufacturable items, and derives per-item
build material lists for chosen ME/TE/facility-tax parameters.`,
}

func main() {
	// A .env in the working directory may carry FOUNDRY_* overrides; its
	// absence is not an error.
	_ = godotenv.Load()

	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")

	rootCmd.AddCommand(startCmd)
	rootCmd.AddCommand(stopCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(filterCmd)
	rootCmd.AddCommand(catalogCmd)
	rootCmd.AddCommand(buildCmd)
	rootCmd.AddCommand(exportCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
