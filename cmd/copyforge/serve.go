package main

import (
	"github.com/spf13/cobra"

	_ "github.com/copyforge/copyforge/docs/swagger"
	"github.com/copyforge/copyforge/internal/home"
	"github.com/copyforge/copyforge/internal/providers"
	"github.com/copyforge/copyforge/internal/server"
)

var (
	serveHost string
	servePort string
	serveMock bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the copyforge server",
	Long: `Start the copyforge HTTP server.

The config file is watched; provider and pipeline changes apply without
a restart. --mock serves canned model replies and needs no API keys.

The server provides:
  - /health        - Basic server health check
  - /ready         - Readiness check (requires a usable model provider)
  - /status        - Providers, rate limits and call counts
  - /api/...       - Analysis and generation endpoints
  - /swagger.json  - OpenAPI spec

Examples:
  copyforge serve                    # Start on the configured port (8080)
  copyforge serve --port 3000        # Start on custom port
  copyforge serve --host 0.0.0.0     # Bind to all interfaces
  copyforge serve --mock             # Run without API keys`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		logger, err := newLogger()
		if err != nil {
			return err
		}

		h, err := home.New(homeDir)
		if err != nil {
			return err
		}
		if err := h.EnsureExists(); err != nil {
			return err
		}

		cm, err := loadConfig(h, logger)
		if err != nil {
			return err
		}
		if cm.ConfigFileUsed() != "" {
			cm.WatchConfig()
		}

		cfg := server.Config{
			Host:          serveHost,
			Port:          servePort,
			ConfigManager: cm,
			Home:          h,
			Logger:        logger,
		}
		if serveMock {
			cfg.Registry = mockRegistry()
			cfg.DefaultProvider = providers.MockClientName
			logger.Warn("serving mock model replies")
		}

		srv, err := server.New(cfg)
		if err != nil {
			return err
		}

		// Start server (blocks until shutdown)
		return srv.Start(ctx)
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveHost, "host", "", "Host to bind to (default from config)")
	serveCmd.Flags().StringVar(&servePort, "port", "", "Port to listen on (default from config)")
	serveCmd.Flags().BoolVar(&serveMock, "mock", false, "Use the offline mock model instead of real providers")

	rootCmd.AddCommand(serveCmd)
}
