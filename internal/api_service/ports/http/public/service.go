package public

import (
	"context"
	"github.com/langowen/cryptoconvert/internal/custom"
	"github.com/langowen/cryptoconvert/internal/entities"
)

type Service interface {
	Convert(ctx context.Context, from, to, amount string) (*entities.Conversion, error)
	Tickers(ctx context.Context) *entities.Tickers
	Lists(ctx context.Context) entities.Lists
	Info(ctx context.Context) map[string]entities.CryptoInfo
	Status(ctx context.Context) *entities.Status
	AddCurrency(ctx context.Context, entry custom.Entry) error
	RemoveCurrency(ctx context.Context, base, quote string)
}
