package fetcherApp

import (
	"context"
	"errors"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/langowen/cryptoconvert/deploy/config"
	"github.com/langowen/cryptoconvert/internal/currency_fetcher/adapter/api_client/binance"
	"github.com/langowen/cryptoconvert/internal/currency_fetcher/adapter/api_client/bitfinex"
	"github.com/langowen/cryptoconvert/internal/currency_fetcher/adapter/api_client/coinbase"
	"github.com/langowen/cryptoconvert/internal/currency_fetcher/adapter/api_client/fiat"
	"github.com/langowen/cryptoconvert/internal/currency_fetcher/adapter/api_client/httpjson"
	"github.com/langowen/cryptoconvert/internal/currency_fetcher/adapter/storage/postgres"
	"github.com/langowen/cryptoconvert/internal/currency_fetcher/adapter/storage/redis"
	"github.com/langowen/cryptoconvert/internal/currency_fetcher/fetcher"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	redisPack "github.com/redis/go-redis/v9"
	"log"
	"log/slog"
	"net/http"
	"os"
	"time"
)

type FetcherApp struct {
	cfg *config.Config
}

func NewFetcherApp(cfg *config.Config) *FetcherApp {
	return &FetcherApp{cfg: cfg}
}

// Start polls the price sources and publishes every update to Redis until
// ctx is cancelled.
func (a *FetcherApp) Start(ctx context.Context) <-chan struct{} {
	a.initLogger()
	slog.Info("Logger initialized")

	pgStorage := a.initDatabase(ctx)

	rdStorage := a.initRedis(ctx)
	slog.Info("Redis client initialized")

	httpClient := httpjson.NewHTTPClient(a.cfg.Fetcher.Timeout)
	slog.Info("HTTP client initialized")

	worker := a.initFetcher(ctx, httpClient, pgStorage, rdStorage)
	worker.Restart(ctx)
	slog.Info("starting fetcher")

	serverDone := a.startMetrics(ctx, worker)

	done := make(chan struct{})
	go func() {
		<-serverDone

		worker.Stop()
		if pgStorage != nil {
			pgStorage.Close()
		}
		if err := rdStorage.Close(); err != nil {
			slog.Error("Failed to close redis client", "error", err)
		}

		close(done)
	}()

	return done
}

func (a *FetcherApp) initLogger() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level:     slog.LevelDebug,
		AddSource: false,
	}))
	slog.SetDefault(logger)
}

func (a *FetcherApp) initDatabase(ctx context.Context) *postgres.Storage {
	if !a.cfg.Storage.Enabled() {
		return nil
	}

	pgStorage, err := postgres.InitStorage(ctx, a.cfg.Storage.DSN(), a.cfg.Storage.Timeout)
	if err != nil {
		log.Fatalln("Failed to initialize PostgresSQL storage", "error", err)
	}
	slog.Info("Storage initialized")

	return pgStorage
}

func (a *FetcherApp) initRedis(ctx context.Context) *redis.Storage {
	if !a.cfg.Redis.Enabled() {
		log.Fatalln("REDIS_HOST is required for the fetcher")
	}

	options := &redisPack.Options{
		Addr:     a.cfg.Redis.Host,
		Password: a.cfg.Redis.Password,
		DB:       a.cfg.Redis.DB,
	}

	rdStorage, err := redis.InitStorage(ctx, options, a.cfg.Redis.Channel)
	if err != nil {
		log.Fatalln("Failed to initialize Redis storage", "error", err)
	}

	return rdStorage
}

func (a *FetcherApp) initFetcher(ctx context.Context, client *httpjson.HTTPClient, pg *postgres.Storage, rd *redis.Storage) *fetcher.Worker {
	fc := a.cfg.Fetcher

	sources := []fetcher.Source{
		binance.NewClient(client, fc.BinanceURL, a.cfg.Split("QuoteAssets"), a.cfg.Split("USDAliases")),
		bitfinex.NewClient(client, fc.BitfinexURL),
		coinbase.NewClient(client, fc.CoinbaseURL),
	}

	var lists fetcher.ListSource
	if pg != nil {
		lists = pg
	}

	return fetcher.NewWorker(sources, fiat.NewClient(client, fc.FiatURL), lists,
		fetcher.WithCryptoInterval(fc.CryptoInterval),
		fetcher.WithFiatInterval(fc.FiatInterval),
		fetcher.WithBinance(fc.Binance),
		fetcher.WithBitfinex(fc.Bitfinex),
		fetcher.WithCoinbase(fc.Coinbase),
		fetcher.WithOnUpdate(fetcher.PublishTo(ctx, rd)),
	)
}

func (a *FetcherApp) startMetrics(ctx context.Context, worker *fetcher.Worker) <-chan struct{} {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Handle("/metrics", promhttp.Handler())
	r.Get("/status", func(w http.ResponseWriter, r *http.Request) {
		if !worker.IsReady() {
			http.Error(w, worker.State().String(), http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(worker.State().String()))
	})

	server := &http.Server{
		Addr:        ":" + a.cfg.HTTPServer.Port,
		Handler:     r,
		ReadTimeout: a.cfg.HTTPServer.Timeout,
		IdleTimeout: a.cfg.HTTPServer.IdleTimeout,
	}

	doneChan := make(chan struct{})

	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Metrics server error", "error", err)
		}
	}()

	go func() {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("Failed to stop metrics server", "error", err)
		}

		close(doneChan)
	}()

	return doneChan
}
