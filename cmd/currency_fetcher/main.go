package main

import (
	"context"
	"github.com/langowen/cryptoconvert/deploy/config"
	fetcherApp "github.com/langowen/cryptoconvert/internal/currency_fetcher/app"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	cfg := config.NewConfig()

	ctx, cancel := context.WithCancel(context.Background())

	app := fetcherApp.NewFetcherApp(cfg)
	fetcherDone := app.Start(ctx)

	done := make(chan os.Signal, 1)

	signal.Notify(done, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)

	<-done
	slog.Info("Gracefully shutting down")

	cancel()

	<-fetcherDone
	slog.Info("fetcher stopped")
}
