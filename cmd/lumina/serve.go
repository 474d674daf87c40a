package main

import (
	"fmt"
	"net"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"lumina/internal/httpapi"
	"lumina/internal/i18n"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the REST + SSE API for a web front end",
	Long: `Starts the HTTP bridge. Fragments, AI operations and view state are exposed
under /api, chat replies stream as Server-Sent Events from POST /api/chat, and
Prometheus metrics are served at /metrics.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if addr := strings.TrimSpace(serveAddr); addr != "" {
			cfg.Server.Addr = addr
		}
		app, err := buildApp(cmd.Context(), cfg, false)
		if err != nil {
			return err
		}
		defer app.Close()

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		srv := httpapi.New(app.Manager, httpapi.Options{
			Logger:         app.Logger,
			Metrics:        app.Metrics,
			AllowedOrigins: cfg.Server.AllowedOrigins,
		})
		return srv.ListenAndServe(ctx, cfg.Server.Addr, func(addr net.Addr) {
			fmt.Fprintln(cmd.OutOrStdout(), i18n.T("server.listening", addr.String()))
		})
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address, overrides server.addr")
}
