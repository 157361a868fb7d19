package main

import (
	"github.com/spf13/cobra"

	"github.com/Nat1anWasTaken/paperly/internal/home"
	"github.com/Nat1anWasTaken/paperly/version"
)

var (
	cfgFile string
	homeDir string
)

var rootCmd = &cobra.Command{
	Use:   "paperly",
	Short: "PDF paper ingestion pipeline with AI enrichment",
	Long: `Paperly converts uploaded PDF papers into ordered, typed content blocks
enriched with AI-generated metadata, quizzes and translations.

The pipeline includes:
  - PDF to markdown conversion via an external converter
  - Figure extraction and upload to object storage
  - Title inference and paper record creation
  - Markdown parsing into a linked chain of typed blocks
  - Per-section comprehension quiz generation`,
	Version: version.GitRelease,
}

func init() {
	rootCmd.PersistentFlags().StringVar(
		&cfgFile, "config", "", "config file (default: ./config.yaml or ~/.paperly/config.yaml)",
	)
	rootCmd.PersistentFlags().StringVar(
		&homeDir, "home", "", "paperly home directory (default: ~/.paperly)",
	)

	rootCmd.AddCommand(versionCmd)
}

// getHome resolves the home directory from the --home flag.
func getHome() (*home.Dir, error) {
	return home.New(homeDir)
}
