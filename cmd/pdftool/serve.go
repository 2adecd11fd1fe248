package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/Lllllllleong/pdftoolkit/internal/api"
	"github.com/Lllllllleong/pdftoolkit/internal/services"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the document operations over HTTP",
	RunE: func(cmd *cobra.Command, args []string) error {
		if addr, _ := cmd.Flags().GetString("addr"); addr != "" {
			cfg.Server.Address = addr
		}
		gin.SetMode(gin.ReleaseMode)
		return withToolkit(cmd.Context(), func(ctx context.Context, tk *services.Toolkit) error {
			handler := api.NewHandler(tk, api.Config{
				MaxUploadBytes: cfg.Server.MaxUploadMB << 20,
				MaxFiles:       cfg.Server.MaxFiles,
			})
			srv := &http.Server{
				Addr:              cfg.Server.Address,
				Handler:           api.NewRouter(handler),
				ReadHeaderTimeout: 10 * time.Second,
			}

			errCh := make(chan error, 1)
			go func() {
				slog.Info("HTTP server listening.", "address", srv.Addr, "renderer", tk.Renderer(), "model", tk.Model())
				errCh <- srv.ListenAndServe()
			}()

			select {
			case err := <-errCh:
				if errors.Is(err, http.ErrServerClosed) {
					return nil
				}
				return err
			case <-ctx.Done():
			}

			slog.Info("Shutting down HTTP server.")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})
	},
}

func init() {
	serveCmd.Flags().String("addr", "", "listen address (default: server.address)")
	rootCmd.AddCommand(serveCmd)
}
