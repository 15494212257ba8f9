package main

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/credable-eng/fieldsift/internal/config"
	"github.com/credable-eng/fieldsift/internal/server"
)

var (
	serveHost string
	servePort string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the fieldsift server",
	Long: `Start the fieldsift HTTP server.

The server provides:
  - /health              - Basic server health check
  - /ready               - Readiness check (probes the completion backend)
  - /api/schema          - The active extraction field schema
  - /api/extract-fields  - Multipart document upload for field extraction

Examples:
  fieldsift serve                    # Start on default port 8080
  fieldsift serve --port 3000        # Start on custom port
  fieldsift serve --host 0.0.0.0     # Bind to all interfaces`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		// Set up logger
		logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		}))

		// Load configuration with hot reload
		cfgMgr, err := config.NewManager(cfgFile)
		if err != nil {
			return err
		}
		cfgMgr.WatchConfig()

		// Create server
		srv, err := server.New(server.Config{
			Host:          serveHost,
			Port:          servePort,
			ConfigManager: cfgMgr,
			Logger:        logger,
		})
		if err != nil {
			return err
		}

		// Start server (blocks until shutdown)
		return srv.Start(ctx)
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveHost, "host", "127.0.0.1", "Host to bind to")
	serveCmd.Flags().StringVar(&servePort, "port", "8080", "Port to listen on")

	rootCmd.AddCommand(serveCmd)
}
