package config

import (
	"reflect"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("BD_HOST", "")
	t.Setenv("REDIS_HOST", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Fetcher.CryptoInterval != 5*time.Second {
		t.Errorf("crypto interval = %v, want 5s", cfg.Fetcher.CryptoInterval)
	}
	if cfg.Fetcher.FiatInterval != time.Hour {
		t.Errorf("fiat interval = %v, want 1h", cfg.Fetcher.FiatInterval)
	}
	if !cfg.Fetcher.Binance || !cfg.Fetcher.Bitfinex || !cfg.Fetcher.Coinbase {
		t.Error("all sources should be enabled by default")
	}
	if cfg.Storage.Enabled() || cfg.Redis.Enabled() {
		t.Error("storage and redis should be disabled without hosts")
	}
}

func TestSplit(t *testing.T) {
	cfg := &Config{Fetcher: Fetcher{QuoteAssets: "usdt, BTC,,eth "}}

	got := cfg.Split("QuoteAssets")
	want := []string{"USDT", "BTC", "ETH"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Split = %v, want %v", got, want)
	}

	if cfg.Split("USDAliases") != nil {
		t.Error("empty field should split to nil")
	}
	if cfg.Split("Missing") != nil {
		t.Error("unknown field should split to nil")
	}
	if cfg.Split("Timeout") != nil {
		t.Error("non-string field should split to nil")
	}
}

func TestStorageDSN(t *testing.T) {
	s := Storage{Host: "db", Port: 5432, User: "u", Password: "p", DBName: "rates", SSLMode: "disable", Schema: "dev"}
	want := "host=db port=5432 user=u password=p dbname=rates sslmode=disable search_path=dev"
	if got := s.DSN(); got != want {
		t.Errorf("DSN = %q, want %q", got, want)
	}
}
