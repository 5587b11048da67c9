package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/anime-shed/artwork-matcher/internal/container"
	"github.com/anime-shed/artwork-matcher/internal/logger"
)

func newServeCmd() *cobra.Command {
	var port string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		Example: `  # Listen on the configured HOST/PORT
  artwork-matcher serve

  # Override the port
  artwork-matcher serve --port 9090`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if port != "" {
				cfg.Port = port
			}

			ctx := cmd.Context()
			c, err := container.NewContainer(ctx, cfg)
			if err != nil {
				return err
			}
			defer c.Close()
			c.StartBackground(ctx)

			server := &http.Server{
				Addr:         cfg.ServerAddress(),
				Handler:      c.Handler(),
				ReadTimeout:  cfg.RequestTimeout,
				WriteTimeout: cfg.RequestTimeout + 5*time.Second,
			}

			serverErr := make(chan error, 1)
			go func() {
				logger.WithFields(logrus.Fields{
					"address": cfg.ServerAddress(),
					"timeout": cfg.RequestTimeout,
				}).Info("Starting HTTP server")

				if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					serverErr <- err
				}
			}()

			select {
			case <-ctx.Done():
				logger.Info("Shutting down server...")
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
				defer cancel()
				if err := server.Shutdown(shutdownCtx); err != nil {
					logger.WithError(err).Error("Server forced to shutdown")
					return err
				}
				logger.Info("Server exited")
				return nil
			case err := <-serverErr:
				return err
			}
		},
	}

	cmd.Flags().StringVarP(&port, "port", "p", "", "Port to listen on (overrides PORT)")

	return cmd
}
