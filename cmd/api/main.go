// cmd/api/main.go
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"bookcourier/internal/app"
	"bookcourier/internal/config"
	"bookcourier/internal/gateway"
	"bookcourier/internal/platform/logging"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	log := logging.New(cfg.LogLevel, cfg.LogFormat)

	handler, err := gateway.NewRouter(cfg.CatalogServiceURL, cfg.OrdersServiceURL, log)
	if err != nil {
		log.Error("failed to build gateway", "err", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := app.Serve(ctx, cfg.Addr(), handler, log); err != nil {
		log.Error("gateway stopped", "err", err)
		os.Exit(1)
	}
}
