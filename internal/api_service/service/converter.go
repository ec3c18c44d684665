package service

import (
	"context"
	"github.com/langowen/cryptoconvert/internal/custom"
	"github.com/langowen/cryptoconvert/internal/entities"
	"time"
)

type Converter interface {
	Convert(from, to string, amount any) (float64, error)
	IsReady() bool
	List() entities.Lists
	CryptoInfo() map[string]entities.CryptoInfo
	LastUpdated() time.Time
	Ticker() *entities.Snapshot
	CustomTicker() map[string]float64
	AddCurrency(ctx context.Context, base, quote string, fetch custom.Fetcher, interval time.Duration) error
	RemoveCurrency(base, quote string)
}
