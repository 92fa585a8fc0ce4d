package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"bookcourier/internal/config"
	"bookcourier/internal/platform/logging"
	"bookcourier/internal/platform/telemetry"
)

const shutdownGrace = 10 * time.Second

// Serve listens on addr until ctx is cancelled, then drains in-flight
// requests.
func Serve(ctx context.Context, addr string, handler http.Handler, log *slog.Logger) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		log.Info("listening", "addr", addr)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	log.Info("shutting down")
	return srv.Shutdown(shutdownCtx)
}

// Main is the shared entry point of the service binaries: it loads config,
// sets up logging and tracing, builds the app for role and serves it.
func Main(role Role) int {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	log := logging.New(cfg.LogLevel, cfg.LogFormat)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTelemetry, err := telemetry.Setup(ctx, cfg.ServiceName, cfg.OTLPEndpoint)
	if err != nil {
		log.Error("failed to set up telemetry", "err", err)
		return 1
	}
	defer func() {
		if err := shutdownTelemetry(context.Background()); err != nil {
			log.Warn("telemetry shutdown", "err", err)
		}
	}()

	a, err := New(ctx, cfg, log, role)
	if err != nil {
		log.Error("failed to start", "driver", cfg.StoreDriver, "err", err)
		return 1
	}
	defer func() {
		if err := a.Close(context.Background()); err != nil {
			log.Warn("failed to close stores", "err", err)
		}
	}()

	log.Info("starting", "service", cfg.ServiceName, "driver", cfg.StoreDriver)
	if err := Serve(ctx, cfg.Addr(), a.Handler(), log); err != nil {
		log.Error("server stopped", "err", err)
		return 1
	}
	return 0
}
