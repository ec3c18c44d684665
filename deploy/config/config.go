package config

import (
	"fmt"
	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
	"log"
	"reflect"
	"strings"
	"time"
)

type Config struct {
	Storage    Storage
	Redis      Redis
	HTTPServer HTTPServer
	Fetcher    Fetcher
	Custom     Custom
}

// Storage is optional. When Host is empty the supported currency lists are
// derived from the exchange tickers instead of the database.
type Storage struct {
	Timeout  time.Duration `env:"BD_TIMEOUT" env-default:"10s"`
	Host     string        `env:"BD_HOST"`
	Port     int           `env:"BD_PORT" env-default:"5432"`
	User     string        `env:"BD_USER"`
	Password string        `env:"BD_PASSWORD"`
	DBName   string        `env:"BD_DBNAME"`
	SSLMode  string        `env:"BD_SSL_MODE" env-default:"disable"`
	Schema   string        `env:"BD_SCHEMA" env-default:"dev"`
}

type Redis struct {
	Host     string `env:"REDIS_HOST"`
	Password string `env:"REDIS_PASSWORD"`
	DB       int    `env:"REDIS_DB" env-default:"0"`
	Channel  string `env:"REDIS_CHANNEL" env-default:"currency_updated"`
}

type HTTPServer struct {
	Port        string        `env:"HTTP_PORT" env-default:"8082"`
	Timeout     time.Duration `env:"HTTP_TIMEOUT" env-default:"2m"`
	IdleTimeout time.Duration `env:"HTTP_IDLE_TIMEOUT" env-default:"60s"`
}

type Fetcher struct {
	CryptoInterval time.Duration `env:"FETCHER_CRYPTO_INTERVAL" env-default:"5s"`
	FiatInterval   time.Duration `env:"FETCHER_FIAT_INTERVAL" env-default:"1h"`
	Timeout        time.Duration `env:"FETCHER_TIMEOUT" env-default:"10s"`
	Binance        bool          `env:"FETCHER_BINANCE" env-default:"true"`
	Bitfinex       bool          `env:"FETCHER_BITFINEX" env-default:"true"`
	Coinbase       bool          `env:"FETCHER_COINBASE" env-default:"true"`
	BinanceURL     string        `env:"FETCHER_BINANCE_URL" env-default:"https://api.binance.com/api/v3/ticker/price"`
	BitfinexURL    string        `env:"FETCHER_BITFINEX_URL" env-default:"https://api-pub.bitfinex.com/v2/tickers?symbols=ALL"`
	CoinbaseURL    string        `env:"FETCHER_COINBASE_URL" env-default:"https://api.coinbase.com/v2/exchange-rates?currency=USD"`
	FiatURL        string        `env:"FETCHER_FIAT_URL" env-default:"https://open.er-api.com/v6/latest/USD"`
	QuoteAssets    string        `env:"FETCHER_QUOTE_ASSETS" env-default:"USDT,USDC,FDUSD,TUSD,BUSD,USD,BTC,ETH,BNB,EUR,GBP,TRY,BRL,JPY"`
	USDAliases     string        `env:"FETCHER_USD_ALIASES" env-default:"USDT"`
}

type Custom struct {
	File string `env:"CUSTOM_CURRENCIES_FILE"`
}

func NewConfig() *Config {
	cfg, err := Load()
	if err != nil {
		log.Fatal("Error reading env: ", err)
	}

	return cfg
}

func Load() (*Config, error) {
	cfg := &Config{}

	_ = godotenv.Load(".env")

	if err := cleanenv.ReadEnv(cfg); err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	return cfg, nil
}

// Split returns the comma separated Fetcher field as a slice.
func (c *Config) Split(fieldName string) []string {
	v := reflect.ValueOf(&c.Fetcher).Elem()
	f := v.FieldByName(fieldName)
	if !f.IsValid() || f.Kind() != reflect.String {
		return nil
	}
	str := f.String()
	if str == "" {
		return nil
	}

	parts := strings.Split(str, ",")
	out := parts[:0]
	for _, p := range parts {
		if p = strings.ToUpper(strings.TrimSpace(p)); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func (s Storage) Enabled() bool {
	return s.Host != ""
}

func (s Storage) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s search_path=%s",
		s.Host,
		s.Port,
		s.User,
		s.Password,
		s.DBName,
		s.SSLMode,
		s.Schema,
	)
}

func (r Redis) Enabled() bool {
	return r.Host != ""
}
