package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/pders01/reviewq/internal/api"
	"github.com/pders01/reviewq/internal/debuglog"
	"github.com/pders01/reviewq/internal/queue"
)

var (
	serveAddr       string
	strictEndpoints bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the review queue over HTTP",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "Listen address (overrides server.addr)")
	serveCmd.Flags().BoolVar(&strictEndpoints, "strict-endpoints", false, "Only accept a public https backend URL")
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if serveAddr != "" {
		cfg.Server.Addr = serveAddr
	}
	if strictEndpoints {
		cfg.Backend.StrictEndpoints = true
	}
	// Access logs need at least info level.
	if debuglog.ParseLogLevel(cfg.Log.Level) == debuglog.LevelOff {
		cfg.Log.Level = "info"
	}
	if err := setupLogging(cfg); err != nil {
		return err
	}
	defer debuglog.Close()

	b, err := openBackend(cfg)
	if err != nil {
		return err
	}
	defer b.Close()

	router, err := queue.NewRouter(cfg.Routes)
	if err != nil {
		return fmt.Errorf("invalid routes: %w", err)
	}

	srv := api.New(cfg, api.Deps{
		Querier:   b,
		Deleter:   b,
		Router:    router,
		Logger:    debuglog.L(),
		Version:   Version,
		StartTime: time.Now(),
	})

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	fmt.Fprintf(cmd.OutOrStdout(), "Serving review queue on %s (%s backend, logs in %s)\n", cfg.Server.Addr, cfg.Backend.Kind, cfg.Log.File)

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Stop(shutdownCtx)
}
