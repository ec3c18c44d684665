package convert

import (
	"context"
	"errors"
	"github.com/langowen/cryptoconvert/internal/currency_fetcher/fetcher"
	"github.com/langowen/cryptoconvert/internal/custom"
	"github.com/langowen/cryptoconvert/internal/entities"
	"slices"
	"sync/atomic"
	"testing"
	"time"
)

type staticSource []entities.Ticker

func (s staticSource) Name() string { return fetcher.SourceBinance }

func (s staticSource) FetchTickers(context.Context) ([]entities.Ticker, error) {
	return s, nil
}

type countingSource struct {
	staticSource
	calls atomic.Int32
}

func (s *countingSource) FetchTickers(ctx context.Context) ([]entities.Ticker, error) {
	s.calls.Add(1)
	return s.staticSource.FetchTickers(ctx)
}

type staticFiat map[string]float64

func (f staticFiat) FetchRates(context.Context) (map[string]float64, error) {
	return f, nil
}

func newConverter(t *testing.T) *Converter {
	t.Helper()

	src := staticSource{
		{Base: "BTC", Quote: "USD", Price: 50000},
		{Base: "ETH", Quote: "USD", Price: 2500},
	}
	fiat := staticFiat{"USD": 1, "EUR": 0.9}

	w := fetcher.NewWorker([]fetcher.Source{src}, fiat, nil,
		fetcher.WithCryptoInterval(time.Hour),
		fetcher.WithFiatInterval(time.Hour),
	)
	registry := custom.NewRegistry()
	t.Cleanup(registry.Close)

	return New(w, registry)
}

func startReady(t *testing.T, c *Converter) {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(func() {
		c.Stop()
		cancel()
	})
	c.Start(ctx)

	waitCtx, waitCancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer waitCancel()

	got, err := c.Ready(waitCtx)
	if err != nil {
		t.Fatalf("Ready: %v", err)
	}
	if got != c {
		t.Fatal("Ready should return the converter")
	}
}

func TestConverterBeforeReady(t *testing.T) {
	c := newConverter(t)

	if c.IsReady() {
		t.Fatal("converter ready before start")
	}
	if _, err := c.Convert("BTC", "USD", 1); !entities.IsRejected(err) {
		t.Errorf("Convert before ready = %v, want rejected", err)
	}
	if _, err := c.Ready(context.Background()); !errors.Is(err, entities.ErrNotReady) {
		t.Errorf("Ready before start = %v, want ErrNotReady", err)
	}
	if c.From("BTC") != nil {
		t.Error("pair table must be empty before start")
	}
}

func TestConverterPairs(t *testing.T) {
	c := newConverter(t)
	startReady(t, c)

	got, err := c.From("BTC")["EUR"](2)
	if err != nil || got != 90000 {
		t.Errorf("BTC -> EUR = %v, %v; want 90000", got, err)
	}

	fn, ok := c.Pair("ETH", "ETH")
	if !ok {
		t.Fatal("identity pair missing")
	}
	if got, _ := fn(0.123456789); got != 0.123456789 {
		t.Errorf("identity = %v", got)
	}

	if got, _ := c.Convert("USD", "BTC", 1); got != 0.00002 {
		t.Errorf("USD -> BTC = %v, want 0.00002", got)
	}

	for _, amount := range []any{0, nil} {
		if _, err := c.Convert("BTC", "USD", amount); !entities.IsRejected(err) {
			t.Errorf("amount %v: err = %v, want rejected", amount, err)
		}
	}

	if _, err := c.Convert("BTC", "XYZ", 1); !errors.Is(err, entities.ErrUnknownSymbol) {
		t.Errorf("unknown symbol err = %v", err)
	}

	quotes := c.From("BTC")
	if len(quotes) != 4 {
		t.Errorf("BTC quotes = %d targets, want 4", len(quotes))
	}
	for _, sym := range []string{"BTC", "ETH", "EUR", "USD"} {
		if quotes[sym] == nil {
			t.Errorf("BTC -> %s missing", sym)
		}
	}
	if _, err := quotes.To("XYZ")(1); !errors.Is(err, entities.ErrUnknownSymbol) {
		t.Errorf("To(XYZ) err = %v, want ErrUnknownSymbol", err)
	}
	if got, err := quotes.To("USD")(1); err != nil || got != 50000 {
		t.Errorf("To(USD) = %v, %v", got, err)
	}
	if _, err := c.From("XYZ").To("USD")(1); !errors.Is(err, entities.ErrUnknownSymbol) {
		t.Errorf("unsupported source err = %v", err)
	}
	if c.LastUpdated().IsZero() || c.Ticker().Crypto.Current["BTCUSD"] != 50000 {
		t.Error("ticker getters not wired")
	}
}

func TestConverterCustomCurrency(t *testing.T) {
	c := newConverter(t)
	startReady(t, c)

	ctx := context.Background()
	fetch := func(context.Context) (float64, error) { return 1.5, nil }

	if err := c.AddCurrency(ctx, "FOO", "USD", fetch, time.Hour); err != nil {
		t.Fatalf("AddCurrency: %v", err)
	}

	quotes := c.From("FOO")
	if quotes == nil {
		t.Fatal("FOO not in pair table")
	}
	if got, err := quotes["USD"](1); err != nil || got != 1.5 {
		t.Errorf("FOO -> USD = %v, %v; want 1.5", got, err)
	}
	if got, err := quotes["EUR"](1); err != nil || got != 1.35 {
		t.Errorf("FOO -> EUR = %v, %v; want 1.35", got, err)
	}
	if !slices.Contains(c.List().Crypto, "FOO") {
		t.Errorf("list = %v, want FOO among crypto", c.List().Crypto)
	}
	if c.CustomTicker()["FOOUSD"] != 1.5 {
		t.Errorf("custom ticker = %v", c.CustomTicker())
	}

	c.RemoveCurrency("FOO", "")

	if c.From("FOO") != nil {
		t.Error("FOO still convertible after removal")
	}
	if _, ok := c.From("BTC")["FOO"]; ok {
		t.Error("BTC -> FOO still present after removal")
	}
}

func TestConverterAddCurrencyConflicts(t *testing.T) {
	c := newConverter(t)
	startReady(t, c)

	var calls atomic.Int32
	fetch := func(context.Context) (float64, error) {
		calls.Add(1)
		return 1, nil
	}

	tests := []struct {
		base string
		want error
	}{
		{"ticker", entities.ErrReservedSymbol},
		{"SETOPTIONS", entities.ErrReservedSymbol},
		{"Default", entities.ErrReservedSymbol},
		{"BTC", entities.ErrSymbolExists},
		{"EUR", entities.ErrSymbolExists},
	}

	for _, tt := range tests {
		err := c.AddCurrency(context.Background(), tt.base, "USD", fetch, time.Hour)
		if !errors.Is(err, tt.want) {
			t.Errorf("%s: err = %v, want %v", tt.base, err, tt.want)
		}
		if !entities.IsConflict(err) {
			t.Errorf("%s: err = %v is not a conflict", tt.base, err)
		}
	}

	if calls.Load() != 0 {
		t.Errorf("fetcher called %d times for rejected symbols", calls.Load())
	}
}

func TestConverterSetOptionsRestarts(t *testing.T) {
	c := newConverter(t)
	startReady(t, c)

	w := c.SetOptions(context.Background(), fetcher.WithCryptoInterval(2*time.Hour))
	if w.Options().CryptoInterval != 2*time.Hour {
		t.Errorf("crypto interval = %v", w.Options().CryptoInterval)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if _, err := c.Ready(ctx); err != nil {
		t.Fatalf("Ready after restart: %v", err)
	}
	if got, _ := c.Convert("BTC", "USD", 1); got != 50000 {
		t.Errorf("BTC -> USD after restart = %v", got)
	}
}

func TestConverterSetOptionsOutlivesCallerContext(t *testing.T) {
	src := &countingSource{staticSource: staticSource{{Base: "BTC", Quote: "USD", Price: 50000}}}
	w := fetcher.NewWorker([]fetcher.Source{src}, staticFiat{"USD": 1}, nil,
		fetcher.WithCryptoInterval(time.Hour),
		fetcher.WithFiatInterval(time.Hour),
	)
	registry := custom.NewRegistry()
	t.Cleanup(registry.Close)

	c := New(w, registry)
	startReady(t, c)

	reqCtx, cancel := context.WithCancel(context.Background())
	c.SetOptions(reqCtx, fetcher.WithCryptoInterval(10*time.Millisecond))
	cancel()

	before := src.calls.Load()
	deadline := time.Now().Add(2 * time.Second)
	for src.calls.Load() < before+3 {
		if time.Now().After(deadline) {
			t.Fatalf("polling stopped after caller context cancel: %d calls", src.calls.Load())
		}
		time.Sleep(10 * time.Millisecond)
	}

	if w.State() != fetcher.Ready {
		t.Errorf("state = %v, want Ready", w.State())
	}
}
