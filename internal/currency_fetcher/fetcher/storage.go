package fetcher

import (
	"context"
	"github.com/langowen/cryptoconvert/internal/entities"
)

// ListSource provides an explicit supported-currency universe and crypto
// metadata. Without one, lists are derived from the polled tickers.
type ListSource interface {
	GetLists(ctx context.Context) (entities.Lists, map[string]entities.CryptoInfo, error)
}
