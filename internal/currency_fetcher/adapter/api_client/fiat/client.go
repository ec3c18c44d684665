package fiat

import (
	"context"
	"github.com/langowen/cryptoconvert/internal/currency_fetcher/adapter/api_client/httpjson"
	"github.com/pkg/errors"
	"github.com/tidwall/gjson"
)

// Client reads an open.er-api.com style rate table and normalizes it to USD.
type Client struct {
	http *httpjson.HTTPClient
	url  string
}

func NewClient(client *httpjson.HTTPClient, url string) *Client {
	return &Client{http: client, url: url}
}

func (c *Client) FetchRates(ctx context.Context) (map[string]float64, error) {
	const op = "fiat.FetchRates"

	doc, err := c.http.Get(ctx, c.url)
	if err != nil {
		return nil, errors.Wrap(err, op)
	}

	if res := doc.Get("result"); res.Exists() && res.String() != "success" {
		return nil, errors.Errorf("%s: api result %q: %s", op, res.String(), doc.Get("error-type").String())
	}

	table := doc.Get("rates")
	if !table.IsObject() {
		return nil, errors.Errorf("%s: rates table missing", op)
	}

	rates := make(map[string]float64)
	table.ForEach(func(key, value gjson.Result) bool {
		if r := value.Float(); r > 0 {
			rates[key.String()] = r
		}
		return true
	})

	usd, ok := rates["USD"]
	if !ok {
		return nil, errors.Errorf("%s: USD missing from rates table", op)
	}

	if usd != 1 {
		for k, v := range rates {
			rates[k] = v / usd
		}
	}

	return rates, nil
}
