package binance

import (
	"context"
	"github.com/langowen/cryptoconvert/internal/currency_fetcher/adapter/api_client/httpjson"
	"github.com/langowen/cryptoconvert/internal/entities"
	"github.com/pkg/errors"
	"github.com/tidwall/gjson"
	"sort"
	"strings"
)

const Name = "binance"

type Client struct {
	http       *httpjson.HTTPClient
	url        string
	quotes     []string
	usdAliases map[string]bool
}

// NewClient builds a Binance ticker client. Binance symbols carry no
// separator, so pairs are split on the longest matching quote asset.
// Tickers quoted in one of usdAliases are also reported against USD.
func NewClient(client *httpjson.HTTPClient, url string, quotes, usdAliases []string) *Client {
	q := append([]string(nil), quotes...)
	sort.SliceStable(q, func(i, j int) bool { return len(q[i]) > len(q[j]) })

	aliases := make(map[string]bool, len(usdAliases))
	for _, a := range usdAliases {
		aliases[a] = true
	}

	return &Client{
		http:       client,
		url:        url,
		quotes:     q,
		usdAliases: aliases,
	}
}

func (c *Client) Name() string {
	return Name
}

func (c *Client) FetchTickers(ctx context.Context) ([]entities.Ticker, error) {
	const op = "binance.FetchTickers"

	doc, err := c.http.Get(ctx, c.url)
	if err != nil {
		return nil, errors.Wrap(err, op)
	}
	if !doc.IsArray() {
		return nil, errors.Errorf("%s: unexpected payload: %s", op, truncate(doc.Raw))
	}

	var tickers, aliased []entities.Ticker
	doc.ForEach(func(_, item gjson.Result) bool {
		base, quote, ok := c.split(item.Get("symbol").String())
		if !ok {
			return true
		}

		price := item.Get("price").Float()
		if price <= 0 {
			return true
		}

		t := entities.Ticker{Base: base, Quote: quote, Price: price, Source: Name}
		tickers = append(tickers, t)

		if c.usdAliases[quote] {
			t.Quote = "USD"
			t.Alias = true
			aliased = append(aliased, t)
		}
		return true
	})

	return append(tickers, aliased...), nil
}

func (c *Client) split(symbol string) (string, string, bool) {
	for _, q := range c.quotes {
		if strings.HasSuffix(symbol, q) && len(symbol) > len(q) {
			return symbol[:len(symbol)-len(q)], q, true
		}
	}
	return "", "", false
}

func truncate(s string) string {
	if len(s) > 128 {
		return s[:128] + "..."
	}
	return s
}
