// Package custom keeps user supplied currencies that are priced by their own
// fetchers instead of the exchange feeds.
package custom

import (
	"context"
	"github.com/langowen/cryptoconvert/internal/entities"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"log/slog"
	"math"
	"sync"
	"time"
)

var ErrInvalidEntry = errors.New("invalid custom currency")

var fetchesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "cryptoconvert",
	Name:      "custom_fetches_total",
	Help:      "Custom currency fetches by pair and result.",
}, []string{"pair", "result"})

// Fetcher returns the price of one unit of base in quote.
type Fetcher func(ctx context.Context) (float64, error)

type entry struct {
	base     string
	quote    string
	fetch    Fetcher
	interval time.Duration
	rate     float64
	cancel   context.CancelFunc
}

type Registry struct {
	mu      sync.RWMutex
	entries map[string]*entry
	order   []string

	pending int
	idle    chan struct{}
}

func NewRegistry() *Registry {
	idle := make(chan struct{})
	close(idle)

	return &Registry{
		entries: make(map[string]*entry),
		idle:    idle,
	}
}

// AddCurrency seeds the rate with one blocking fetch and then refreshes it
// every interval until the pair is removed. A failed seed registers nothing.
func (r *Registry) AddCurrency(ctx context.Context, base, quote string, fetch Fetcher, interval time.Duration) error {
	const op = "custom.AddCurrency"

	if base == "" || quote == "" || base == quote || fetch == nil || interval <= 0 {
		return errors.Wrapf(ErrInvalidEntry, "%s: %s/%s every %s", op, base, quote, interval)
	}

	key := base + quote
	if r.Has(key) {
		return errors.Wrapf(entities.ErrPairExists, "%s: %s", op, key)
	}

	r.beginSeed()
	rate, err := fetchRate(ctx, key, fetch)
	r.endSeed()
	if err != nil {
		return errors.Wrap(err, op)
	}

	loopCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	e := &entry{
		base:     base,
		quote:    quote,
		fetch:    fetch,
		interval: interval,
		rate:     rate,
		cancel:   cancel,
	}

	r.mu.Lock()
	if _, ok := r.entries[key]; ok {
		r.mu.Unlock()
		cancel()
		return errors.Wrapf(entities.ErrPairExists, "%s: %s", op, key)
	}
	r.entries[key] = e
	r.order = append(r.order, key)
	r.mu.Unlock()

	go r.poll(loopCtx, key, e)

	slog.Info("Custom currency added", "pair", key, "rate", rate, "interval", interval)

	return nil
}

// RemoveCurrency removes base/quote, or every pair of base when quote is
// empty. It reports how many pairs were removed.
func (r *Registry) RemoveCurrency(base, quote string) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	removed := 0
	order := r.order[:0]
	for _, key := range r.order {
		e := r.entries[key]
		if e.base == base && (quote == "" || e.quote == quote) {
			e.cancel()
			delete(r.entries, key)
			removed++
			continue
		}
		order = append(order, key)
	}
	r.order = order

	if removed > 0 {
		slog.Info("Custom currency removed", "base", base, "quote", quote, "pairs", removed)
	}

	return removed
}

// Ready returns once no seeding fetch is in flight.
func (r *Registry) Ready(ctx context.Context) error {
	r.mu.RLock()
	idle := r.idle
	r.mu.RUnlock()

	select {
	case <-idle:
		return nil
	case <-ctx.Done():
		return errors.Wrap(ctx.Err(), "custom.Ready")
	}
}

// List returns the distinct registered bases in registration order.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	seen := make(map[string]bool, len(r.order))
	var list []string
	for _, key := range r.order {
		base := r.entries[key].base
		if !seen[base] {
			seen[base] = true
			list = append(list, base)
		}
	}
	return list
}

// Ticker returns the cached rates keyed by base+quote.
func (r *Registry) Ticker() map[string]float64 {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(map[string]float64, len(r.entries))
	for key, e := range r.entries {
		out[key] = e.rate
	}
	return out
}

func (r *Registry) Rate(key string) (float64, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.entries[key]
	if !ok {
		return 0, false
	}
	return e.rate, true
}

func (r *Registry) Has(key string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.entries[key]
	return ok
}

// Close stops every refresh loop.
func (r *Registry) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, e := range r.entries {
		e.cancel()
	}
}

// poll runs fetches one after another, so a slow fetch delays the next tick
// instead of overlapping it.
func (r *Registry) poll(ctx context.Context, key string, e *entry) {
	const op = "custom.poll"

	ticker := time.NewTicker(e.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rate, err := fetchRate(ctx, key, e.fetch)
			if err != nil {
				if ctx.Err() == nil {
					slog.Warn("Custom currency fetch failed, keeping cached rate", "op", op, "pair", key, "error", err)
				}
				continue
			}

			r.mu.Lock()
			e.rate = rate
			r.mu.Unlock()

		case <-ctx.Done():
			return
		}
	}
}

func (r *Registry) beginSeed() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.pending == 0 {
		r.idle = make(chan struct{})
	}
	r.pending++
}

func (r *Registry) endSeed() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.pending--
	if r.pending == 0 {
		close(r.idle)
	}
}

func fetchRate(ctx context.Context, key string, fetch Fetcher) (rate float64, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = errors.Errorf("fetcher panic: %v", p)
		}

		result := "success"
		if err != nil {
			result = "error"
		}
		fetchesTotal.WithLabelValues(key, result).Inc()
	}()

	rate, err = fetch(ctx)
	if err != nil {
		return 0, err
	}
	if rate <= 0 || math.IsNaN(rate) || math.IsInf(rate, 0) {
		return 0, errors.Errorf("unusable rate %v", rate)
	}

	return rate, nil
}
