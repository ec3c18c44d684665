package service

import (
	"context"
	"errors"
	"github.com/langowen/cryptoconvert/internal/custom"
	"github.com/langowen/cryptoconvert/internal/entities"
	"github.com/tidwall/gjson"
	"testing"
	"time"
)

type fakeConverter struct {
	ready   bool
	from    string
	to      string
	amount  any
	added   []string
	removed []string
	seeded  float64
}

func (f *fakeConverter) Convert(from, to string, amount any) (float64, error) {
	f.from, f.to, f.amount = from, to, amount
	if from == "XYZ" {
		return 0, entities.ErrUnknownSymbol
	}
	return 42, nil
}

func (f *fakeConverter) IsReady() bool { return f.ready }

func (f *fakeConverter) List() entities.Lists {
	return entities.Lists{Crypto: []string{"BTC", "ETH"}, Fiat: []string{"USD"}}
}

func (f *fakeConverter) CryptoInfo() map[string]entities.CryptoInfo { return nil }

func (f *fakeConverter) LastUpdated() time.Time { return time.Unix(100, 0) }

func (f *fakeConverter) Ticker() *entities.Snapshot { return entities.NewSnapshot() }

func (f *fakeConverter) CustomTicker() map[string]float64 {
	return map[string]float64{"FOOUSD": 2}
}

func (f *fakeConverter) AddCurrency(ctx context.Context, base, quote string, fetch custom.Fetcher, interval time.Duration) error {
	rate, err := fetch(ctx)
	if err != nil {
		return err
	}
	f.seeded = rate
	f.added = append(f.added, base+quote)
	return nil
}

func (f *fakeConverter) RemoveCurrency(base, quote string) {
	f.removed = append(f.removed, base+quote)
}

type staticGetter string

func (g staticGetter) Get(context.Context, string) (gjson.Result, error) {
	return gjson.Parse(string(g)), nil
}

func TestServiceConvert(t *testing.T) {
	conv := &fakeConverter{}
	s := NewService(conv, staticGetter(`{}`))

	got, err := s.Convert(context.Background(), " btc", "eur ", "2")
	if err != nil {
		t.Fatal(err)
	}
	if conv.from != "BTC" || conv.to != "EUR" || conv.amount != "2" {
		t.Errorf("converter called with %s %s %v", conv.from, conv.to, conv.amount)
	}
	if got.Result == nil || *got.Result != 42 || got.From != "BTC" {
		t.Errorf("conversion = %+v", got)
	}

	if _, err := s.Convert(context.Background(), "xyz", "usd", "1"); !errors.Is(err, entities.ErrUnknownSymbol) {
		t.Errorf("err = %v, want ErrUnknownSymbol", err)
	}
}

func TestServiceStatus(t *testing.T) {
	s := NewService(&fakeConverter{ready: true}, staticGetter(`{}`))

	st := s.Status(context.Background())
	if !st.Ready || st.Crypto != 2 || st.Fiat != 1 || !st.LastUpdated.Equal(time.Unix(100, 0)) {
		t.Errorf("status = %+v", st)
	}

	if s.Tickers(context.Background()).Custom["FOOUSD"] != 2 {
		t.Error("custom rates missing from tickers")
	}
}

func TestServiceAddCurrency(t *testing.T) {
	conv := &fakeConverter{}
	s := NewService(conv, staticGetter(`{"data":{"rate":"3.5"}}`), WithSeedTimeout(time.Second))

	entry := custom.Entry{Base: "foo", Quote: "usd", URL: "http://x", Path: "data.rate"}
	if err := s.AddCurrency(context.Background(), entry); err != nil {
		t.Fatal(err)
	}
	if len(conv.added) != 1 || conv.added[0] != "FOOUSD" || conv.seeded != 3.5 {
		t.Errorf("added = %v seeded = %v", conv.added, conv.seeded)
	}

	if err := s.AddCurrency(context.Background(), custom.Entry{Base: "FOO"}); !errors.Is(err, custom.ErrInvalidEntry) {
		t.Errorf("err = %v, want ErrInvalidEntry", err)
	}

	s.RemoveCurrency(context.Background(), "foo", "")
	if len(conv.removed) != 1 || conv.removed[0] != "FOO" {
		t.Errorf("removed = %v", conv.removed)
	}
}
