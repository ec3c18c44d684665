package bitfinex

import (
	"context"
	"github.com/langowen/cryptoconvert/internal/currency_fetcher/adapter/api_client/httpjson"
	"github.com/langowen/cryptoconvert/internal/entities"
	"github.com/pkg/errors"
	"github.com/tidwall/gjson"
	"strings"
)

const Name = "bitfinex"

// lastPriceIdx is the LAST_PRICE position in a trading pair ticker row.
const lastPriceIdx = 7

// Bitfinex uses its own codes for a few assets.
var renames = map[string]string{
	"UST": "USDT",
	"UDC": "USDC",
	"DSH": "DASH",
	"IOT": "IOTA",
}

type Client struct {
	http *httpjson.HTTPClient
	url  string
}

func NewClient(client *httpjson.HTTPClient, url string) *Client {
	return &Client{http: client, url: url}
}

func (c *Client) Name() string {
	return Name
}

func (c *Client) FetchTickers(ctx context.Context) ([]entities.Ticker, error) {
	const op = "bitfinex.FetchTickers"

	doc, err := c.http.Get(ctx, c.url)
	if err != nil {
		return nil, errors.Wrap(err, op)
	}
	if !doc.IsArray() {
		return nil, errors.Errorf("%s: unexpected payload", op)
	}

	var tickers []entities.Ticker
	doc.ForEach(func(_, row gjson.Result) bool {
		fields := row.Array()
		if len(fields) <= lastPriceIdx {
			return true
		}

		base, quote, ok := splitSymbol(fields[0].String())
		if !ok {
			return true
		}

		price := fields[lastPriceIdx].Float()
		if price <= 0 {
			return true
		}

		tickers = append(tickers, entities.Ticker{Base: base, Quote: quote, Price: price, Source: Name})
		return true
	})

	return tickers, nil
}

// splitSymbol parses "tBTCUSD" and "tAVAX:USD" style symbols. Funding
// symbols ("fUSD") are rejected.
func splitSymbol(symbol string) (string, string, bool) {
	if !strings.HasPrefix(symbol, "t") {
		return "", "", false
	}
	symbol = symbol[1:]

	var base, quote string
	if i := strings.IndexByte(symbol, ':'); i >= 0 {
		base, quote = symbol[:i], symbol[i+1:]
	} else if len(symbol) == 6 {
		base, quote = symbol[:3], symbol[3:]
	} else {
		return "", "", false
	}

	if base == "" || quote == "" {
		return "", "", false
	}

	return rename(base), rename(quote), true
}

func rename(code string) string {
	if r, ok := renames[code]; ok {
		return r
	}
	return code
}
