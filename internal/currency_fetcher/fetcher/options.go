package fetcher

import (
	"github.com/langowen/cryptoconvert/internal/entities"
	"time"
)

const (
	DefaultCryptoInterval = 5 * time.Second
	DefaultFiatInterval   = time.Hour
)

// Source names toggled by Options.
const (
	SourceBinance  = "binance"
	SourceBitfinex = "bitfinex"
	SourceCoinbase = "coinbase"
)

// UpdateFunc is called with the new snapshot after every successful poll.
type UpdateFunc func(snapshot *entities.Snapshot, isFiat bool)

type Options struct {
	CryptoInterval time.Duration
	FiatInterval   time.Duration
	Binance        bool
	Bitfinex       bool
	Coinbase       bool
	OnUpdate       UpdateFunc
}

type Option func(o *Options)

func DefaultOptions() Options {
	return Options{
		CryptoInterval: DefaultCryptoInterval,
		FiatInterval:   DefaultFiatInterval,
		Binance:        true,
		Bitfinex:       true,
		Coinbase:       true,
	}
}

// WithCryptoInterval ignores non-positive durations.
func WithCryptoInterval(d time.Duration) Option {
	return func(o *Options) {
		if d > 0 {
			o.CryptoInterval = d
		}
	}
}

// WithFiatInterval ignores non-positive durations.
func WithFiatInterval(d time.Duration) Option {
	return func(o *Options) {
		if d > 0 {
			o.FiatInterval = d
		}
	}
}

func WithBinance(enabled bool) Option {
	return func(o *Options) {
		o.Binance = enabled
	}
}

func WithBitfinex(enabled bool) Option {
	return func(o *Options) {
		o.Bitfinex = enabled
	}
}

func WithCoinbase(enabled bool) Option {
	return func(o *Options) {
		o.Coinbase = enabled
	}
}

func WithOnUpdate(fn UpdateFunc) Option {
	return func(o *Options) {
		o.OnUpdate = fn
	}
}

// Chain fans an update out to several callbacks in order.
func Chain(fns ...UpdateFunc) UpdateFunc {
	return func(snapshot *entities.Snapshot, isFiat bool) {
		for _, fn := range fns {
			if fn != nil {
				fn(snapshot, isFiat)
			}
		}
	}
}

func (o Options) enabled(source string) bool {
	switch source {
	case SourceBinance:
		return o.Binance
	case SourceBitfinex:
		return o.Bitfinex
	case SourceCoinbase:
		return o.Coinbase
	default:
		return true
	}
}
