package convert

import (
	"github.com/langowen/cryptoconvert/internal/entities"
	"github.com/langowen/cryptoconvert/internal/format"
	"github.com/pkg/errors"
)

const usd = "USD"

// bridges are tried in order when a coin has no direct USD quote.
var bridges = []string{"BTC", "ETH"}

// ConversionFunc converts amount from one currency into another. It returns
// an error matched by entities.IsRejected when prices are not loaded or the
// amount is unusable, and entities.ErrNoRoute when no rate links the pair.
type ConversionFunc func(amount any) (float64, error)

// Prices is the read side of the price cache.
type Prices interface {
	Snapshot() *entities.Snapshot
}

// Rates is the read side of the custom currency registry.
type Rates interface {
	Rate(key string) (float64, bool)
}

type engine struct {
	prices Prices
	custom Rates
}

// view is one consistent read of the rates used for a single conversion.
type view struct {
	crypto map[string]float64
	fiat   map[string]float64
	custom Rates
	coins  map[string]bool
}

func (e *engine) pair(from, to string, coins map[string]bool) ConversionFunc {
	return func(amount any) (float64, error) {
		return e.convert(from, to, amount, coins)
	}
}

func (e *engine) convert(coin, to string, amount any, coins map[string]bool) (float64, error) {
	const op = "convert.Pair"

	snap := e.prices.Snapshot()
	if format.IsEmpty(snap.Crypto.Current) || format.IsEmpty(snap.Fiat.Current) {
		return 0, errors.Wrap(entities.ErrNotReady, op)
	}

	d, err := format.Parse(amount)
	if err != nil {
		return 0, errors.Wrap(err, op)
	}
	if d.IsZero() {
		return 0, errors.Wrap(entities.ErrInvalidAmount, op+": zero amount")
	}
	amt, _ := d.Float64()

	if coin == to {
		return amt, nil
	}

	v := &view{
		crypto: snap.Crypto.Current,
		fiat:   snap.Fiat.Current,
		custom: e.custom,
		coins:  coins,
	}

	if rate, ok := v.price(coin, to); ok {
		precision := format.CryptoPrecision
		if v.isFiat(coin) && v.isFiat(to) {
			precision = format.FiatPrecision
		}
		return format.Round(rate*amt, precision), nil
	}

	switch {
	case coins[coin] && coins[to]:
		from, ok := v.usdPrice(coin, nil)
		if !ok {
			break
		}
		into, ok := v.usdPrice(to, nil)
		if !ok {
			break
		}
		return format.Round(from/into*amt, format.CryptoPrecision), nil

	case v.isFiat(coin) && v.isFiat(to):
		return format.Round(amt/v.fiat[coin]*v.fiat[to], format.FiatPrecision), nil

	case v.isFiat(to):
		price, ok := v.usdPrice(coin, nil)
		if !ok || !v.isFiat(usd) {
			break
		}
		return format.Round(price/v.fiat[usd]*v.fiat[to]*amt, format.CryptoPrecision), nil

	case v.isFiat(coin):
		price, ok := v.usdPrice(to, nil)
		if !ok || !v.isFiat(usd) {
			break
		}
		return format.Round(amt/(price/v.fiat[usd]*v.fiat[coin]), format.CryptoPrecision), nil
	}

	return 0, errors.Wrapf(entities.ErrNoRoute, "%s: %s -> %s", op, coin, to)
}

func (v *view) isFiat(sym string) bool {
	return v.fiat[sym] > 0
}

// price looks up coin/to directly or through the inverse quote. Custom
// rates win over exchange tickers.
func (v *view) price(coin, to string) (float64, bool) {
	if v.custom != nil {
		if rate, ok := v.custom.Rate(coin + to); ok && rate > 0 {
			return rate, true
		}
		if rate, ok := v.custom.Rate(to + coin); ok && rate > 0 {
			return 1 / rate, true
		}
	}

	if rate := v.crypto[coin+to]; rate > 0 {
		return rate, true
	}
	if rate := v.crypto[to+coin]; rate > 0 {
		return 1 / rate, true
	}

	return 0, false
}

// usdPrice returns the USD price of coin, bridging through BTC or ETH when
// there is no direct quote. visited breaks bridge cycles.
func (v *view) usdPrice(coin string, visited map[string]bool) (float64, bool) {
	if price, ok := v.price(coin, usd); ok {
		return price, true
	}

	if visited == nil {
		visited = make(map[string]bool, len(bridges)+1)
	}
	visited[coin] = true

	for _, bridge := range bridges {
		if visited[bridge] {
			continue
		}

		rate, ok := v.price(coin, bridge)
		if !ok {
			continue
		}
		if bridgeUSD, ok := v.usdPrice(bridge, visited); ok {
			return rate * bridgeUSD, true
		}
	}

	return 0, false
}
