package main

import (
	"errors"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/matsen/citecheck/internal/pipeline"
)

var parseCmd = &cobra.Command{
	Use:   "parse [file]",
	Short: "Parse citations from plain text",
	Long: `Parse segments already-extracted text (from a file, or stdin when no
argument is given) and parses each reference entry into structured
fields. Useful for text copied from a PDF viewer.`,
	Args: cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		var (
			data []byte
			err  error
		)
		if len(args) == 1 {
			data, err = os.ReadFile(args[0])
		} else {
			data, err = io.ReadAll(os.Stdin)
		}
		if err != nil {
			exitWithError(ExitDataError, "reading input: %v", err)
		}

		citations, style, err := pipeline.FromText(string(data))
		if errors.Is(err, pipeline.ErrNoCitations) {
			exitWithError(ExitDataError, "no citations found in input")
		}

		if humanOutput {
			printCitationsHuman(style, citations)
			return
		}
		outputJSON(ExtractResponse{Style: style, Count: len(citations), Citations: citations})
	},
}

func init() {
	rootCmd.AddCommand(parseCmd)
}
