package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/matsen/citecheck/internal/server"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the citation verification HTTP server",
	Long: `Serve exposes the pipeline over HTTP:

  POST /api/extract  multipart PDF upload, returns extracted citations
  POST /api/search   citation batch, streams NDJSON progress records
  POST /api/grobid   raw reference strings, proxied to GROBID

Configuration is read from the environment (and .env); see --config for
a YAML overlay.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg := mustLoadConfig()

		logger, err := zap.NewProduction()
		if err != nil {
			exitWithError(ExitError, "building logger: %v", err)
		}
		defer logger.Sync()

		srv, err := server.New(cfg, logger)
		if err != nil {
			exitWithError(ExitConfigError, "building server: %v", err)
		}

		addr := serveAddr
		if addr == "" {
			addr = ":" + cfg.HTTPPort
		}
		logger.Info("listening", zap.String("addr", addr))
		if err := srv.Run(addr); err != nil {
			exitWithError(ExitError, "server: %v", err)
		}
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "Listen address (default :$HTTP_PORT)")
	rootCmd.AddCommand(serveCmd)
}
