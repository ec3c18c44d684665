package binance

import (
	"context"
	"github.com/langowen/cryptoconvert/internal/currency_fetcher/adapter/api_client/httpjson"
	"github.com/langowen/cryptoconvert/internal/entities"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

const payload = `[
	{"symbol":"BTCUSDT","price":"50000.00"},
	{"symbol":"ETHBTC","price":"0.06"},
	{"symbol":"BTCBUSD","price":"50010.00"},
	{"symbol":"BTCUSD","price":"49990.00"},
	{"symbol":"DOGEXYZ","price":"1.0"},
	{"symbol":"LUNAUSDT","price":"0"}
]`

func TestFetchTickers(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(payload))
	}))
	defer srv.Close()

	c := NewClient(httpjson.NewHTTPClient(time.Second), srv.URL, []string{"USD", "USDT", "BUSD", "BTC"}, []string{"USDT"})

	tickers, err := c.FetchTickers(context.Background())
	if err != nil {
		t.Fatalf("FetchTickers: %v", err)
	}

	want := []entities.Ticker{
		{Base: "BTC", Quote: "USDT", Price: 50000, Source: Name},
		{Base: "ETH", Quote: "BTC", Price: 0.06, Source: Name},
		{Base: "BTC", Quote: "BUSD", Price: 50010, Source: Name},
		{Base: "BTC", Quote: "USD", Price: 49990, Source: Name},
		{Base: "BTC", Quote: "USD", Price: 50000, Source: Name, Alias: true},
	}
	if len(tickers) != len(want) {
		t.Fatalf("got %d tickers, want %d: %+v", len(tickers), len(want), tickers)
	}
	for i := range want {
		if tickers[i] != want[i] {
			t.Errorf("ticker %d = %+v, want %+v", i, tickers[i], want[i])
		}
	}
}

func TestFetchTickersUnexpectedPayload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"code":-1003,"msg":"Too many requests"}`))
	}))
	defer srv.Close()

	c := NewClient(httpjson.NewHTTPClient(time.Second), srv.URL, []string{"USDT"}, nil)
	if _, err := c.FetchTickers(context.Background()); err == nil {
		t.Fatal("expected error")
	}
}
