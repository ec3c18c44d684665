package fetcher

import (
	"context"
	"github.com/langowen/cryptoconvert/internal/entities"
)

// Source is an exchange that reports crypto tickers.
type Source interface {
	Name() string
	FetchTickers(ctx context.Context) ([]entities.Ticker, error)
}

// FiatSource reports fiat rates against USD keyed by symbol.
type FiatSource interface {
	FetchRates(ctx context.Context) (map[string]float64, error)
}
