package fetcher

import (
	"context"
	"github.com/langowen/cryptoconvert/internal/entities"
	"github.com/pkg/errors"
	"log/slog"
	"slices"
	"sync"
	"sync/atomic"
	"time"
)

type State int32

const (
	Uninitialized State = iota
	Loading
	Ready
	Stopped
)

func (s State) String() string {
	return [...]string{"uninitialized", "loading", "ready", "stopped"}[s]
}

// universe is the supported symbol set. fixed is true when it comes from a
// ListSource rather than from the tickers themselves.
type universe struct {
	lists entities.Lists
	info  map[string]entities.CryptoInfo
	fixed bool
}

// epoch tracks readiness of one Restart-to-Restart lifecycle.
type epoch struct {
	done   chan struct{}
	once   sync.Once
	crypto atomic.Bool
	fiat   atomic.Bool
}

// Worker polls crypto and fiat price sources and keeps the latest snapshot.
type Worker struct {
	sources []Source
	fiat    FiatSource
	lists   ListSource

	optsMu sync.RWMutex
	opts   Options

	snapshot atomic.Pointer[entities.Snapshot]
	writeMu  sync.Mutex
	universe atomic.Pointer[universe]
	listMu   sync.Mutex

	state atomic.Int32
	ready atomic.Bool

	mu     sync.Mutex
	cancel context.CancelFunc
	epoch  *epoch

	listenersMu sync.Mutex
	listeners   []func(entities.Lists)
}

// NewWorker creates a stopped worker. Sources are listed in merge precedence
// order. lists may be nil.
func NewWorker(sources []Source, fiat FiatSource, lists ListSource, opts ...Option) *Worker {
	w := &Worker{
		sources: sources,
		fiat:    fiat,
		lists:   lists,
		opts:    DefaultOptions(),
	}
	for _, opt := range opts {
		opt(&w.opts)
	}

	w.snapshot.Store(entities.NewSnapshot())
	w.universe.Store(&universe{info: map[string]entities.CryptoInfo{}})

	return w
}

// Restart stops running loops, begins a new epoch and polls in the
// background until ctx is cancelled or Stop is called. The returned channel
// is closed once the epoch is ready.
func (w *Worker) Restart(ctx context.Context) <-chan struct{} {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.cancel != nil {
		w.cancel()
	}

	ctx, cancel := context.WithCancel(ctx)
	ep := &epoch{done: make(chan struct{})}
	w.cancel, w.epoch = cancel, ep

	w.ready.Store(false)
	w.state.Store(int32(Loading))

	opts := w.Options()
	go w.run(ctx, ep, opts.CryptoInterval, opts.FiatInterval)

	slog.Info("Price worker started",
		"crypto_interval", opts.CryptoInterval,
		"fiat_interval", opts.FiatInterval,
	)

	return ep.done
}

// Stop cancels the polling loops. Cached data stays readable. Fetches that
// are already in flight may still land.
func (w *Worker) Stop() *Worker {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.cancel != nil {
		w.cancel()
		w.cancel = nil
	}
	w.state.Store(int32(Stopped))

	slog.Info("Price worker stopped")

	return w
}

// Ready blocks until the current epoch has loaded both partitions.
func (w *Worker) Ready(ctx context.Context) error {
	const op = "fetcher.Ready"

	w.mu.Lock()
	ep := w.epoch
	w.mu.Unlock()

	if ep == nil {
		return errors.Wrap(entities.ErrNotReady, op+": worker not started")
	}

	select {
	case <-ep.done:
		return nil
	case <-ctx.Done():
		return errors.Wrap(ctx.Err(), op)
	}
}

// SetOptions merges opts. Interval changes only apply after Restart.
func (w *Worker) SetOptions(opts ...Option) *Worker {
	w.optsMu.Lock()
	defer w.optsMu.Unlock()

	for _, opt := range opts {
		opt(&w.opts)
	}

	return w
}

func (w *Worker) Options() Options {
	w.optsMu.RLock()
	defer w.optsMu.RUnlock()

	return w.opts
}

func (w *Worker) State() State {
	return State(w.state.Load())
}

func (w *Worker) IsReady() bool {
	return w.ready.Load()
}

func (w *Worker) Snapshot() *entities.Snapshot {
	return w.snapshot.Load()
}

func (w *Worker) LastUpdated() time.Time {
	return w.snapshot.Load().Crypto.LastUpdated
}

func (w *Worker) Lists() entities.Lists {
	u := w.universe.Load()
	return entities.Lists{
		Crypto: slices.Clone(u.lists.Crypto),
		Fiat:   slices.Clone(u.lists.Fiat),
	}
}

func (w *Worker) CryptoInfo() map[string]entities.CryptoInfo {
	u := w.universe.Load()

	out := make(map[string]entities.CryptoInfo, len(u.info))
	for k, v := range u.info {
		out[k] = v
	}
	return out
}

// OnListChange registers fn to be called whenever the supported symbol
// universe changes.
func (w *Worker) OnListChange(fn func(entities.Lists)) {
	w.listenersMu.Lock()
	defer w.listenersMu.Unlock()

	w.listeners = append(w.listeners, fn)
}

func (w *Worker) run(ctx context.Context, ep *epoch, cryptoEvery, fiatEvery time.Duration) {
	w.loadLists(ctx)

	// fiat first, so the first crypto merge can drop fiat/fiat pairs
	w.pollFiat(ctx, ep)
	w.pollCrypto(ctx, ep)

	go w.loop(ctx, fiatEvery, func(ctx context.Context) {
		w.loadLists(ctx)
		w.pollFiat(ctx, ep)
	})
	w.loop(ctx, cryptoEvery, func(ctx context.Context) {
		w.pollCrypto(ctx, ep)
	})
}

func (w *Worker) loop(ctx context.Context, interval time.Duration, poll func(context.Context)) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			poll(ctx)
		case <-ctx.Done():
			return
		}
	}
}

func (w *Worker) loadLists(ctx context.Context) {
	const op = "fetcher.loadLists"

	if w.lists == nil {
		return
	}

	lists, info, err := w.lists.GetLists(ctx)
	if err != nil {
		if ctx.Err() == nil {
			slog.Warn("Failed to load currency lists", "op", op, "error", err)
		}
		return
	}
	if len(lists.Crypto) == 0 && len(lists.Fiat) == 0 {
		slog.Warn("Currency list source returned nothing, deriving lists from tickers", "op", op)
		return
	}

	w.updateUniverse(func(*universe) *universe {
		return &universe{lists: lists, info: info, fixed: true}
	})
}

func (w *Worker) pollFiat(ctx context.Context, ep *epoch) {
	const op = "fetcher.pollFiat"

	start := time.Now()
	rates, err := w.fiat.FetchRates(ctx)
	observePoll(fiatSourceName, time.Since(start).Seconds(), err)
	if err != nil {
		if ctx.Err() == nil {
			slog.Warn("Fiat rates poll failed, keeping cached rates", "op", op, "error", err)
		}
		return
	}
	if len(rates) == 0 {
		slog.Warn("Fiat rates poll returned no rates", "op", op)
		return
	}

	now := time.Now()

	w.writeMu.Lock()
	next := w.snapshot.Load().WithFiat(rates, now)
	w.snapshot.Store(next)
	w.writeMu.Unlock()

	lastUpdate.WithLabelValues("fiat").Set(float64(now.Unix()))

	w.updateUniverse(func(u *universe) *universe {
		if u.fixed {
			return u
		}
		return &universe{
			lists: entities.Lists{
				Crypto: slices.DeleteFunc(slices.Clone(u.lists.Crypto), func(s string) bool {
					_, isFiat := rates[s]
					return isFiat
				}),
				Fiat: sortedKeys(rates),
			},
			info:  u.info,
		}
	})

	slog.Debug("Fiat rates updated", "count", len(rates))

	w.notify(next, true)
	w.markReady(ep, &ep.fiat)
}

func (w *Worker) pollCrypto(ctx context.Context, ep *epoch) {
	const op = "fetcher.pollCrypto"

	opts := w.Options()

	var sources []Source
	for _, src := range w.sources {
		if opts.enabled(src.Name()) {
			sources = append(sources, src)
		}
	}
	if len(sources) == 0 {
		slog.Warn("Crypto poll skipped", "op", op, "error", entities.ErrNoSources)
		return
	}

	results := make([][]entities.Ticker, len(sources))
	failed := make([]bool, len(sources))

	var wg sync.WaitGroup
	for i, src := range sources {
		i, src := i, src
		wg.Add(1)
		go func() {
			defer wg.Done()

			start := time.Now()
			tickers, err := src.FetchTickers(ctx)
			observePoll(src.Name(), time.Since(start).Seconds(), err)
			if err != nil {
				failed[i] = true
				if ctx.Err() == nil {
					slog.Warn("Price source poll failed", "op", op, "source", src.Name(), "error", err)
				}
				return
			}
			tickers = slices.Clone(tickers)
			for j := range tickers {
				if tickers[j].Source == "" {
					tickers[j].Source = src.Name()
				}
			}
			results[i] = tickers
		}()
	}
	wg.Wait()

	if !slices.Contains(failed, false) {
		slog.Warn("Every price source failed, keeping cached tickers", "op", op)
		return
	}

	u := w.universe.Load()
	now := time.Now()

	w.writeMu.Lock()
	cur := w.snapshot.Load()
	fiat := set(u.lists.Fiat, sortedKeys(cur.Fiat.Current))

	var allowed map[string]bool
	if u.fixed {
		allowed = set(u.lists.Crypto, u.lists.Fiat)
	}

	merged, wins := merge(results, fiat, allowed)
	if len(merged) == 0 {
		w.writeMu.Unlock()
		slog.Warn("Crypto poll produced no usable tickers", "op", op)
		return
	}

	next := cur.WithCrypto(merged, now)
	w.snapshot.Store(next)
	w.writeMu.Unlock()

	lastUpdate.WithLabelValues("crypto").Set(float64(now.Unix()))
	for _, src := range sources {
		mergedTickers.WithLabelValues(src.Name()).Set(float64(wins[src.Name()]))
	}

	// derived lists only grow, so a source missing one tick does not make
	// its symbols disappear
	seen := deriveCrypto(results, fiat)
	w.updateUniverse(func(u *universe) *universe {
		if u.fixed {
			return u
		}
		return &universe{
			lists: entities.Lists{Crypto: sortedKeys(set(u.lists.Crypto, seen)), Fiat: u.lists.Fiat},
			info:  u.info,
		}
	})

	slog.Debug("Crypto tickers updated", "count", len(merged), "sources", len(sources), "wins", wins)

	w.notify(next, false)
	w.markReady(ep, &ep.crypto)
}

// updateUniverse replaces the universe with fn(current) and calls list
// listeners when the symbols changed.
func (w *Worker) updateUniverse(fn func(*universe) *universe) {
	w.listMu.Lock()
	prev := w.universe.Load()
	next := fn(prev)
	w.universe.Store(next)
	w.listMu.Unlock()

	if slices.Equal(prev.lists.Crypto, next.lists.Crypto) && slices.Equal(prev.lists.Fiat, next.lists.Fiat) {
		return
	}

	w.listenersMu.Lock()
	listeners := slices.Clone(w.listeners)
	w.listenersMu.Unlock()

	lists := w.Lists()
	for _, fn := range listeners {
		fn(lists)
	}
}

func (w *Worker) markReady(ep *epoch, flag *atomic.Bool) {
	flag.Store(true)
	if !ep.crypto.Load() || !ep.fiat.Load() {
		return
	}

	ep.once.Do(func() {
		w.mu.Lock()
		current := w.epoch == ep
		w.mu.Unlock()

		if current {
			w.ready.Store(true)
			w.state.CompareAndSwap(int32(Loading), int32(Ready))
			slog.Info("Price cache ready")
		}
		close(ep.done)
	})
}

func (w *Worker) notify(snapshot *entities.Snapshot, isFiat bool) {
	fn := w.Options().OnUpdate
	if fn == nil {
		return
	}

	defer func() {
		if r := recover(); r != nil {
			slog.Error("Update callback panic recovered", "panic", r)
		}
	}()

	fn(snapshot, isFiat)
}
