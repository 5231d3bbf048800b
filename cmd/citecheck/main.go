// Package main provides the citecheck CLI entry point.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version is set at build time via ldflags
var Version = "dev"

// humanOutput controls whether to use human-readable output
var humanOutput bool

// configFile optionally overlays a YAML config on the environment
var configFile string

func main() {
	if err := rootCmd.Execute(); err != nil {
		// Print the error since we have SilenceErrors: true
		// This ensures Cobra errors (like missing required flags) are visible
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(ExitError)
	}
}

var rootCmd = &cobra.Command{
	Use:   "citecheck",
	Short: "Citation extraction and verification CLI",
	Long: `citecheck extracts bibliography entries from PDFs and verifies
them against scholarly databases.

Core features:
  - Layout-aware text reconstruction for one- and two-column PDFs
  - Reference section segmentation across numbering styles
  - Per-style field parsing (title, authors, venue, year)
  - Progressive search against Crossref and OpenAlex with
    fuzzy confidence scoring
  - Optional GROBID structuring and web-search fallback

All commands output JSON by default for tool integration.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&humanOutput, "human", false, "Use human-readable output instead of JSON")
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "Path to YAML config file (overrides environment)")
	rootCmd.Version = Version
}
