package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"forcecalc/internal/calculator"
	"forcecalc/internal/config"
	"forcecalc/internal/geocode"
	"forcecalc/internal/gesture"
	"forcecalc/internal/history"
	"forcecalc/internal/observability"
	"forcecalc/internal/server"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var configPath string

var version = "dev"

var rootCmd = &cobra.Command{
	Use:     "forcecalc-api",
	Short:   "Serve the calculator API",
	Version: version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return loadDotEnv(envFiles)
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}
		return run(cmd.Context(), cfg)
	},
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "forcecalc.yaml", "path to the YAML config file")
	rootCmd.PersistentFlags().StringSliceVar(&envFiles, "env-file", nil, "dotenv files to load (default .env if present)")
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config) error {
	observability.ServiceVersion = version

	// Logger
	if err := observability.InitLogger(); err != nil {
		return err
	}
	defer observability.SyncLogger()

	// Tracing, metrics, OTLP logs
	telemetryShutdown, err := initTelemetry(ctx)
	if err != nil {
		return err
	}
	defer telemetryShutdown(context.Background())

	// History
	store, err := openHistory(cfg.History)
	if err != nil {
		return err
	}
	defer store.Close()

	// Calculator
	geocoder := geocode.NewClient(cfg.Geocode.BaseURL, cfg.Geocode.Timeout)
	enricher := calculator.NewEnricher(geocoder, store, nil, cfg.Geocode.Timeout)
	sessions := calculator.NewSessions(calculator.Options{
		Clock:         gesture.SystemClock(),
		LongPress:     cfg.Gesture.LongPress,
		ModeToggle:    cfg.Gesture.ModeToggle,
		ToastDuration: cfg.Gesture.ToastDuration,
		History:       store,
		Enricher:      enricher,
		Logger:        observability.Logger,
	})

	// Router
	router := server.NewRouter(calculator.NewHandler(sessions, store))

	srv := &http.Server{
		Addr:    cfg.Server.Addr,
		Handler: router,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		observability.Logger.Info("server started", zap.String("addr", cfg.Server.Addr))

		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		sessions.RunSweeper(gctx, cfg.Session.SweepInterval, cfg.Session.IdleTimeout)
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		return shutdown(srv, sessions, enricher, cfg.Server.ShutdownTimeout)
	})

	return g.Wait()
}

// shutdown stops accepting requests, invalidates gesture timers and drains
// in-flight address lookups before the history store is closed.
func shutdown(srv *http.Server, sessions *calculator.Sessions, enricher *calculator.Enricher, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	err := srv.Shutdown(ctx)
	sessions.Close()

	done := make(chan struct{})
	go func() {
		enricher.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		observability.Logger.Warn("address lookups still in flight at shutdown")
	}

	observability.Logger.Info("server stopped")
	return err
}

func openHistory(cfg config.HistoryConfig) (history.Store, error) {
	switch cfg.Driver {
	case "sqlite":
		return history.NewSQLite(cfg.Path)
	default:
		return history.NewMemory(), nil
	}
}
