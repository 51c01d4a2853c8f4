package cmd

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/furnicon/furnicon/internal/handlers"
	"github.com/spf13/cobra"
)

func newServeCmd() *cobra.Command {
	var port string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the ingestion API server",
		Long: `Starts the Furnicon JSON API on the specified port.

Each operator creates a session, uploads a product photo, reviews the generated
draft and publishes it into the shared catalog.

Uploads given as image_url are fetched from any http(s) host, including loopback and
private addresses, so the API is meant for trusted operators. Set image_url_hosts in the
config file or IMAGE_URL_HOSTS (comma-separated) to restrict the hosts it will fetch from.`,
		Example: `  # Start server on default port 8888
  furnicon serve

  # Start server on custom port with a config file
  furnicon serve --port 3000 --config furnicon.yaml`,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("port") && a.cfg.Port != "" {
				port = a.cfg.Port
			}

			handler := handlers.New(a.store, a.newPipeline)
			if len(a.cfg.ImageURLHosts) > 0 {
				handler.AllowImageHosts(a.cfg.ImageURLHosts)
				slog.Info("Restricting image_url uploads", "hosts", a.cfg.ImageURLHosts)
			}

			addr := ":" + port
			server := &http.Server{
				Addr:              addr,
				Handler:           handler.Routes(),
				ReadHeaderTimeout: 10 * time.Second,
			}

			// Start server in goroutine
			serverErr := make(chan error, 1)
			go func() {
				slog.Info("Furnicon API available", "addr", addr, "url", "http://localhost"+addr)
				if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					serverErr <- err
				}
			}()

			// Wait for context cancellation (Ctrl+C) or server error
			select {
			case <-cmd.Context().Done():
				slog.Info("Shutting down server...")
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := server.Shutdown(shutdownCtx); err != nil {
					slog.Error("Server shutdown failed", "err", err)
					return err
				}
				slog.Info("Server stopped", "catalog_entries", a.store.Len())
				return nil
			case err := <-serverErr:
				return err
			}
		},
	}

	cmd.Flags().StringVarP(&port, "port", "p", "8888", "Port to listen on")

	return cmd
}
