package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/AOShei/pdf-viewer/pkg/observability"
	"github.com/AOShei/pdf-viewer/pkg/server"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve [path_or_url]",
	Short: "Serve a viewer over HTTP and websocket",
	Long: `Starts an HTTP API over a single viewer. The document can be given here
or switched later with PATCH /api/state.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if serveAddr != "" {
			cfg.Server.Addr = serveAddr
		}
		s, err := newSession(cfg, logger, "pdf-viewer")
		if err != nil {
			return err
		}
		defer s.Close()
		if err := s.apply(); err != nil {
			return err
		}
		if len(args) == 1 {
			s.viewer.SetSrc(args[0])
		}

		srv := server.New(server.Config{
			Addr:     cfg.Server.Addr,
			AllowAll: cfg.Server.AllowAllOrigins,
		}, s.viewer, s.canvas, logger)

		ctx := cmd.Context()
		go func() {
			<-ctx.Done()
			fmt.Fprintln(os.Stderr, "\nShutting down server...")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				logger.Warn("shutdown", observability.Error("err", err))
			}
		}()

		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (overrides server.addr)")
	rootCmd.AddCommand(serveCmd)
}
