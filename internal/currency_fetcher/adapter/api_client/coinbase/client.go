package coinbase

import (
	"context"
	"github.com/langowen/cryptoconvert/internal/currency_fetcher/adapter/api_client/httpjson"
	"github.com/langowen/cryptoconvert/internal/entities"
	"github.com/pkg/errors"
	"github.com/tidwall/gjson"
	"sort"
)

const Name = "coinbase"

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

// FetchTickers reads the exchange-rates table, which lists how many units of
// every asset one unit of the base currency buys, and inverts it into
// SYMBOL/base prices.
func (c *Client) FetchTickers(ctx context.Context) ([]entities.Ticker, error) {
	const op = "coinbase.FetchTickers"

	doc, err := c.http.Get(ctx, c.url)
	if err != nil {
		return nil, errors.Wrap(err, op)
	}

	base := doc.Get("data.currency").String()
	rates := doc.Get("data.rates")
	if base == "" || !rates.IsObject() {
		return nil, errors.Errorf("%s: unexpected payload", op)
	}

	var tickers []entities.Ticker
	rates.ForEach(func(key, value gjson.Result) bool {
		symbol := key.String()
		rate := value.Float()
		if symbol == base || rate <= 0 {
			return true
		}

		tickers = append(tickers, entities.Ticker{Base: symbol, Quote: base, Price: 1 / rate, Source: Name})
		return true
	})

	sort.Slice(tickers, func(i, j int) bool { return tickers[i].Base < tickers[j].Base })

	return tickers, nil
}
