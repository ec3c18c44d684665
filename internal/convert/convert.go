// Package convert exposes live conversion functions for every supported
// crypto and fiat currency pair.
package convert

import (
	"context"
	"github.com/langowen/cryptoconvert/internal/currency_fetcher/fetcher"
	"github.com/langowen/cryptoconvert/internal/custom"
	"github.com/langowen/cryptoconvert/internal/entities"
	"github.com/pkg/errors"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// reserved names cannot be used as custom currency symbols.
var reserved = []string{
	"ready",
	"start",
	"stop",
	"setOptions",
	"addCurrency",
	"removeCurrency",
	"isReady",
	"list",
	"cryptoInfo",
	"lastUpdated",
	"ticker",
	"default",
}

// Quotes maps a target symbol to the conversion from a fixed source symbol.
// Indexing an unsupported target yields nil, use To for a checked lookup.
type Quotes map[string]ConversionFunc

// To returns the conversion into sym. An unsupported sym gives a function
// that always fails with entities.ErrUnknownSymbol.
func (q Quotes) To(sym string) ConversionFunc {
	if fn, ok := q[sym]; ok {
		return fn
	}
	return func(any) (float64, error) {
		return 0, errors.Wrapf(entities.ErrUnknownSymbol, "convert.Quotes.To: %s", sym)
	}
}

// table is the symbol universe conversion functions are bound to.
type table struct {
	symbols map[string]bool
	order   []string
	coins   map[string]bool
}

// Converter combines the price worker and the custom registry.
type Converter struct {
	worker *fetcher.Worker
	custom *custom.Registry
	engine *engine

	table   atomic.Pointer[table]
	buildMu sync.Mutex

	// ctx is the lifecycle context of the last Start.
	ctxMu sync.Mutex
	ctx   context.Context
}

func New(worker *fetcher.Worker, registry *custom.Registry) *Converter {
	c := &Converter{
		worker: worker,
		custom: registry,
		engine: &engine{prices: worker, custom: registry},
	}
	c.table.Store(&table{symbols: map[string]bool{}, coins: map[string]bool{}})

	worker.OnListChange(func(entities.Lists) {
		c.initialize()
	})

	return c
}

// Start (re)starts the price worker. The pair table is rebuilt once the new
// epoch is ready. The returned channel closes at that point.
func (c *Converter) Start(ctx context.Context) <-chan struct{} {
	c.ctxMu.Lock()
	c.ctx = ctx
	c.ctxMu.Unlock()

	done := c.worker.Restart(ctx)

	go func() {
		select {
		case <-done:
			c.initialize()
		case <-ctx.Done():
		}
	}()

	return done
}

func (c *Converter) Stop() *fetcher.Worker {
	return c.worker.Stop()
}

// Ready waits for the price cache and for every pending custom currency seed.
func (c *Converter) Ready(ctx context.Context) (*Converter, error) {
	const op = "convert.Ready"

	if err := c.worker.Ready(ctx); err != nil {
		return nil, errors.Wrap(err, op)
	}
	if err := c.custom.Ready(ctx); err != nil {
		return nil, errors.Wrap(err, op)
	}

	c.initialize()

	return c, nil
}

// SetOptions updates the worker options. A running worker is restarted when
// an interval changed, otherwise new intervals apply on the next Start.
// The restarted worker keeps the context of the last Start, ctx only carries
// values and is used when the converter was never started.
func (c *Converter) SetOptions(ctx context.Context, opts ...fetcher.Option) *fetcher.Worker {
	prev := c.worker.Options()
	w := c.worker.SetOptions(opts...)
	next := w.Options()

	changed := prev.CryptoInterval != next.CryptoInterval || prev.FiatInterval != next.FiatInterval
	if state := w.State(); changed && (state == fetcher.Loading || state == fetcher.Ready) {
		slog.Info("Poll interval changed, restarting price worker")

		c.ctxMu.Lock()
		life := c.ctx
		c.ctxMu.Unlock()
		if life == nil {
			life = context.WithoutCancel(ctx)
		}
		c.Start(life)
	}

	return w
}

// AddCurrency registers a custom currency priced by fetch.
func (c *Converter) AddCurrency(ctx context.Context, base, quote string, fetch custom.Fetcher, interval time.Duration) error {
	const op = "convert.AddCurrency"

	if isReserved(base) {
		return errors.Wrapf(entities.ErrReservedSymbol, "%s: %s", op, base)
	}

	lists := c.worker.Lists()
	if slices.Contains(lists.Crypto, base) || slices.Contains(lists.Fiat, base) {
		return errors.Wrapf(entities.ErrSymbolExists, "%s: %s", op, base)
	}

	if err := c.custom.AddCurrency(ctx, base, quote, fetch, interval); err != nil {
		return errors.Wrap(err, op)
	}

	if c.worker.IsReady() {
		c.initialize()
	}

	return nil
}

// RemoveCurrency removes base/quote, or every pair of base when quote is empty.
func (c *Converter) RemoveCurrency(base, quote string) {
	if c.custom.RemoveCurrency(base, quote) > 0 {
		c.initialize()
	}
}

func (c *Converter) IsReady() bool {
	return c.worker.IsReady()
}

// List returns the supported symbols. Custom bases are listed as crypto.
func (c *Converter) List() entities.Lists {
	lists := c.worker.Lists()
	for _, base := range c.custom.List() {
		if !slices.Contains(lists.Crypto, base) {
			lists.Crypto = append(lists.Crypto, base)
		}
	}
	return lists
}

func (c *Converter) CryptoInfo() map[string]entities.CryptoInfo {
	return c.worker.CryptoInfo()
}

func (c *Converter) LastUpdated() time.Time {
	return c.worker.LastUpdated()
}

func (c *Converter) Ticker() *entities.Snapshot {
	return c.worker.Snapshot()
}

// CustomTicker returns the cached custom currency rates.
func (c *Converter) CustomTicker() map[string]float64 {
	return c.custom.Ticker()
}

// Pair returns the conversion from one symbol into another.
func (c *Converter) Pair(from, to string) (ConversionFunc, bool) {
	t := c.table.Load()
	if !t.symbols[from] || !t.symbols[to] {
		return nil, false
	}
	return c.engine.pair(from, to, t.coins), true
}

// From returns the conversions from sym into every supported symbol, or nil
// when sym is not supported.
func (c *Converter) From(sym string) Quotes {
	t := c.table.Load()
	if !t.symbols[sym] {
		return nil
	}

	quotes := make(Quotes, len(t.order))
	for _, to := range t.order {
		quotes[to] = c.engine.pair(sym, to, t.coins)
	}
	return quotes
}

// Convert converts amount between two supported symbols.
func (c *Converter) Convert(from, to string, amount any) (float64, error) {
	const op = "convert.Convert"

	fn, ok := c.Pair(from, to)
	if !ok {
		if len(c.table.Load().order) == 0 {
			return 0, errors.Wrap(entities.ErrNotReady, op)
		}
		return 0, errors.Wrapf(entities.ErrUnknownSymbol, "%s: %s -> %s", op, from, to)
	}
	return fn(amount)
}

// initialize rebuilds the pair table from the current lists.
func (c *Converter) initialize() {
	c.buildMu.Lock()
	defer c.buildMu.Unlock()

	lists := c.List()

	t := &table{
		symbols: make(map[string]bool, len(lists.Crypto)+len(lists.Fiat)),
		coins:   make(map[string]bool, len(lists.Crypto)),
	}
	for _, sym := range lists.Crypto {
		if sym == "" || t.symbols[sym] {
			continue
		}
		t.symbols[sym] = true
		t.coins[sym] = true
		t.order = append(t.order, sym)
	}
	for _, sym := range lists.Fiat {
		if sym == "" || t.symbols[sym] {
			continue
		}
		t.symbols[sym] = true
		t.order = append(t.order, sym)
	}

	c.table.Store(t)

	slog.Debug("Pair table rebuilt", "symbols", len(t.order))
}

func isReserved(sym string) bool {
	return slices.ContainsFunc(reserved, func(name string) bool {
		return strings.EqualFold(name, sym)
	})
}
