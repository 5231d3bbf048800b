package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/matsen/citecheck/internal/cache"
	"github.com/matsen/citecheck/internal/config"
	"github.com/matsen/citecheck/internal/enrich"
	"github.com/matsen/citecheck/internal/pdftext"
	"github.com/matsen/citecheck/internal/pipeline"
	"github.com/matsen/citecheck/internal/sources"
	"github.com/matsen/citecheck/internal/verify"
)

var verifyProgress bool

var verifyCmd = &cobra.Command{
	Use:   "verify <pdf>",
	Short: "Extract citations from a PDF and verify them against scholarly databases",
	Long: `Verify runs the full pipeline: extraction, optional GROBID
structuring, then a progressive search against Crossref with OpenAlex
as fallback. Each candidate is scored by fuzzy field similarity and the
best match above the acceptance threshold is reported.

With --progress, per-citation results stream to stderr as they resolve.`,
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

		ctx := context.Background()

		// Optional structuring pass before search: GROBID's fields make
		// far better queries than heuristic parses.
		if enricher := enrich.NewClient(cfg.GrobidBaseURL); enricher.Enabled() {
			raws := make([]string, len(citations))
			for i, c := range citations {
				raws[i] = c.Raw
			}
			structured, err := enricher.StructureAll(ctx, raws)
			if err == nil {
				for i := range citations {
					structured[i].Apply(&citations[i])
				}
			}
		}

		session, closeFn, err := newSessionFromConfig(cfg)
		if err != nil {
			exitWithError(ExitConfigError, "building session: %v", err)
		}
		defer closeFn()

		results := session.Collect(ctx, citations)
		found := 0
		for _, r := range results {
			if r.Found {
				found++
			}
		}

		if humanOutput {
			fmt.Printf("Detected style: %s\n", style)
			fmt.Printf("Verified %d/%d citations\n\n", found, len(results))
			printResultsHuman(results)
			return
		}
		outputJSON(VerifyResponse{Style: style, Total: len(results), Found: found, Results: results})
	},
}

func init() {
	verifyCmd.Flags().BoolVar(&verifyProgress, "progress", false, "Stream per-citation progress to stderr")
	rootCmd.AddCommand(verifyCmd)
}

// newSessionFromConfig assembles providers, cache and thresholds into a
// verification session. The returned func releases the cache handle.
func newSessionFromConfig(cfg *config.Config) (*verify.Session, func(), error) {
	var primary sources.Provider = sources.NewCrossref(
		sources.WithCrossrefBaseURL(cfg.CrossrefBaseURL),
		sources.WithCrossrefMailto(cfg.ContactEmail),
	)
	var secondary sources.Provider = sources.NewOpenAlex(
		sources.WithOpenAlexBaseURL(cfg.OpenAlexBaseURL),
		sources.WithOpenAlexMailto(cfg.ContactEmail),
	)

	closeFn := func() {}
	if cfg.CachePath != "" {
		c, err := cache.Open(cfg.CachePath)
		if err != nil {
			return nil, nil, err
		}
		primary = cache.Wrap(primary, c)
		secondary = cache.Wrap(secondary, c)
		closeFn = func() { c.Close() }
	}

	scfg := verify.Config{
		AcceptThreshold:      cfg.AcceptThreshold,
		FallbackThreshold:    cfg.FallbackThreshold,
		BatchSize:            cfg.BatchSize,
		BatchDelay:           cfg.BatchDelay(),
		PrimaryConcurrency:   cfg.CrossrefConcurrency,
		SecondaryConcurrency: cfg.OpenAlexConcurrency,
	}

	opts := []verify.SessionOption{}
	if web := sources.NewWebSearch(cfg.GoogleAPIKey, cfg.GoogleSearchEngineID); web.Enabled() {
		opts = append(opts, verify.WithTertiary(web))
	}
	if verifyProgress {
		opts = append(opts, verify.WithLogger(progressLogger()))
	}

	return verify.NewSession(scfg, primary, secondary, opts...), closeFn, nil
}

// progressLogger builds a stderr zap logger for --progress runs.
func progressLogger() *zap.Logger {
	cfg := zap.NewDevelopmentConfig()
	cfg.OutputPaths = []string{"stderr"}
	logger, err := cfg.Build()
	if err != nil {
		fmt.Fprintf(os.Stderr, "warning: could not build progress logger: %v\n", err)
		return zap.NewNop()
	}
	return logger
}
