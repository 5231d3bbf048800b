package main

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/matsen/citecheck/internal/config"
	"github.com/matsen/citecheck/internal/pdftext"
	"github.com/matsen/citecheck/internal/pipeline"
)

var extractCmd = &cobra.Command{
	Use:   "extract <pdf>",
	Short: "Extract bibliography entries from a PDF",
	Long: `Extract reconstructs the PDF's text in reading order, locates the
reference section, detects its numbering style and parses each entry
into structured fields. No network access is performed.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		cfg := mustLoadConfig()

		citations, style, err := pipeline.ExtractFile(args[0], layoutOptions(cfg))
		switch {
		case errors.Is(err, pdftext.ErrNoTextLayer):
			exitWithError(ExitDataError, "no extractable text layer in %s (scanned PDF?)", args[0])
		case errors.Is(err, pipeline.ErrNoCitations):
			exitWithError(ExitDataError, "no citations found in %s", args[0])
		case err != nil:
			exitWithError(ExitDataError, "extracting %s: %v", args[0], err)
		}

		if humanOutput {
			printCitationsHuman(style, citations)
			return
		}
		outputJSON(ExtractResponse{Style: style, Count: len(citations), Citations: citations})
	},
}

func init() {
	rootCmd.AddCommand(extractCmd)
}

// mustLoadConfig loads configuration from the environment (plus an
// optional YAML file), exiting on error.
func mustLoadConfig() *config.Config {
	var (
		cfg *config.Config
		err error
	)
	if configFile != "" {
		cfg, err = config.LoadWithFile(configFile)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		exitWithError(ExitConfigError, "loading configuration: %v", err)
	}
	return cfg
}

func layoutOptions(cfg *config.Config) pdftext.Options {
	return pdftext.Options{
		Mode:               pdftext.ColumnMode(cfg.ColumnMode),
		MinColumnFragments: cfg.MinColumnFragments,
		MinColumnShare:     cfg.MinColumnShare,
	}
}
