// cmd/chaos/main.go
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"time"

	"bookcourier/internal/chaos"
	"bookcourier/internal/platform/logging"
)

func main() {
	duration := flag.Duration("duration", 10*time.Second, "observation window per experiment")
	interval := flag.Duration("interval", time.Second, "metric sampling interval")
	pause := flag.Duration("pause", 5*time.Second, "pause between experiments")
	flag.Parse()

	log := logging.New(os.Getenv("LOG_LEVEL"), os.Getenv("LOG_FORMAT"))
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	lab, err := chaos.NewLab(ctx, log)
	if err != nil {
		log.Error("failed to build lab", "err", err)
		os.Exit(1)
	}

	engine := chaos.NewEngine(log, *interval)
	results := engine.GameDay(ctx, "Order lifecycle game day", chaos.Experiments(lab, *duration), *pause)
	for _, r := range results {
		if !r.HypothesisHeld {
			os.Exit(1)
		}
	}
}
