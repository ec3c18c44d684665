package apiApp

import (
	"context"
	"github.com/langowen/cryptoconvert/deploy/config"
	"github.com/langowen/cryptoconvert/internal/api_service/ports/http/public"
	"github.com/langowen/cryptoconvert/internal/api_service/service"
	"github.com/langowen/cryptoconvert/internal/convert"
	"github.com/langowen/cryptoconvert/internal/currency_fetcher/adapter/api_client/binance"
	"github.com/langowen/cryptoconvert/internal/currency_fetcher/adapter/api_client/bitfinex"
	"github.com/langowen/cryptoconvert/internal/currency_fetcher/adapter/api_client/coinbase"
	"github.com/langowen/cryptoconvert/internal/currency_fetcher/adapter/api_client/fiat"
	"github.com/langowen/cryptoconvert/internal/currency_fetcher/adapter/api_client/httpjson"
	"github.com/langowen/cryptoconvert/internal/currency_fetcher/adapter/storage/postgres"
	"github.com/langowen/cryptoconvert/internal/currency_fetcher/adapter/storage/redis"
	"github.com/langowen/cryptoconvert/internal/currency_fetcher/fetcher"
	"github.com/langowen/cryptoconvert/internal/custom"
	redisPack "github.com/redis/go-redis/v9"
	"log"
	"log/slog"
	"os"
	"time"
)

type ApiApp struct {
	cfg *config.Config
}

func NewApiApp(cfg *config.Config) *ApiApp {
	return &ApiApp{cfg: cfg}
}

// Start runs the converter and the HTTP server until ctx is cancelled. The
// returned channel closes after shutdown.
func (a *ApiApp) Start(ctx context.Context) <-chan struct{} {
	a.initLogger()
	slog.Info("Logger initialized")

	pgStorage := a.initDatabase(ctx)
	rdStorage := a.initRedis(ctx)

	httpClient := httpjson.NewHTTPClient(a.cfg.Fetcher.Timeout)
	slog.Info("HTTP client initialized")

	hub := public.NewHub()

	worker := a.initWorker(ctx, httpClient, pgStorage, rdStorage, hub)
	registry := custom.NewRegistry()

	converter := convert.New(worker, registry)
	converter.Start(ctx)
	slog.Info("Converter started")

	go a.loadCustom(ctx, converter, httpClient)

	apiService := service.NewService(converter, httpClient)
	slog.Info("Service initialized")

	serverDone := public.StartServer(ctx, apiService, hub, a.cfg)
	slog.Info("server started", "port", a.cfg.HTTPServer.Port)

	done := make(chan struct{})
	go func() {
		<-serverDone

		converter.Stop()
		registry.Close()
		if pgStorage != nil {
			pgStorage.Close()
		}
		if rdStorage != nil {
			if err := rdStorage.Close(); err != nil {
				slog.Error("Failed to close redis client", "error", err)
			}
		}

		close(done)
	}()

	return done
}

func (a *ApiApp) initLogger() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level:     slog.LevelDebug,
		AddSource: false,
	}))
	slog.SetDefault(logger)
}

func (a *ApiApp) initDatabase(ctx context.Context) *postgres.Storage {
	if !a.cfg.Storage.Enabled() {
		slog.Info("Storage not configured, currency lists derived from tickers")
		return nil
	}

	pgStorage, err := postgres.InitStorage(ctx, a.cfg.Storage.DSN(), a.cfg.Storage.Timeout)
	if err != nil {
		log.Fatalln("Failed to initialize PostgresSQL storage", "error", err)
	}
	slog.Info("Storage initialized")

	return pgStorage
}

func (a *ApiApp) initRedis(ctx context.Context) *redis.Storage {
	if !a.cfg.Redis.Enabled() {
		slog.Info("Redis not configured, updates are not published")
		return nil
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
	slog.Info("Redis client initialized")

	return rdStorage
}

func (a *ApiApp) initWorker(ctx context.Context, client *httpjson.HTTPClient, pg *postgres.Storage, rd *redis.Storage, hub *public.Hub) *fetcher.Worker {
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

	onUpdate := []fetcher.UpdateFunc{hub.Broadcast}
	if rd != nil {
		onUpdate = append(onUpdate, fetcher.PublishTo(ctx, rd))
	}

	return fetcher.NewWorker(sources, fiat.NewClient(client, fc.FiatURL), lists,
		fetcher.WithCryptoInterval(fc.CryptoInterval),
		fetcher.WithFiatInterval(fc.FiatInterval),
		fetcher.WithBinance(fc.Binance),
		fetcher.WithBitfinex(fc.Bitfinex),
		fetcher.WithCoinbase(fc.Coinbase),
		fetcher.WithOnUpdate(fetcher.Chain(onUpdate...)),
	)
}

// loadCustom registers the custom currencies file once prices are loaded, so
// symbol collisions are checked against the full lists.
func (a *ApiApp) loadCustom(ctx context.Context, converter *convert.Converter, client *httpjson.HTTPClient) {
	const op = "apiApp.loadCustom"

	if a.cfg.Custom.File == "" {
		return
	}

	entries, err := custom.LoadFile(a.cfg.Custom.File)
	if err != nil {
		slog.Error("Failed to load custom currencies", "op", op, "error", err)
		return
	}

	if _, err := converter.Ready(ctx); err != nil {
		slog.Warn("Custom currencies not loaded", "op", op, "error", err)
		return
	}

	loaded := 0
	for _, e := range entries {
		seedCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
		err := converter.AddCurrency(seedCtx, e.Base, e.Quote, custom.HTTPFetcher(client, e.URL, e.Path), e.Interval)
		cancel()
		if err != nil {
			slog.Error("Failed to add custom currency", "op", op, "pair", e.Base+e.Quote, "error", err)
			continue
		}
		loaded++
	}

	slog.Info("Custom currencies loaded", "count", loaded, "total", len(entries))
}
