package main

import (
	"github.com/spf13/cobra"

	"github.com/credable-eng/fieldsift/internal/api"
	"github.com/credable-eng/fieldsift/version"
)

var (
	cfgFile      string
	outputFormat string
)

var rootCmd = &cobra.Command{
	Use:   "fieldsift",
	Short: "Field extraction service for loan documents",
	Long: `fieldsift extracts structured fields from loan document batches using an
LLM completion backend and reconciles values across documents.

Each request:
  - Extracts per-page text from PDFs, spreadsheets and plain text
  - Prompts the completion backend against the field schema
  - Locates each value's page and excerpt in the source text
  - Reconciles conflicting values with a priority document winning`,
	Version: version.GitRelease,
}

func init() {
	rootCmd.PersistentFlags().StringVar(
		&cfgFile, "config", "", "config file (default: ./config.yaml or ~/.fieldsift/config.yaml)",
	)
	rootCmd.PersistentFlags().StringVarP(
		&outputFormat, "output", "o", "yaml", "output format: yaml or json",
	)

	// Set output format before any command runs
	rootCmd.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		api.SetOutputFormat(outputFormat)
	}

	rootCmd.AddCommand(versionCmd)
}
