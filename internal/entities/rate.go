package entities

import "time"

// Ticker is a single crypto price quoted by an exchange. Alias marks a price
// restated against an equivalent quote (USDT as USD) rather than listed as is.
type Ticker struct {
	Base   string
	Quote  string
	Price  float64
	Source string
	Alias  bool
}

func (t Ticker) Key() string {
	return t.Base + t.Quote
}

// Partition holds the latest rates of one price family keyed by pair-key
// (crypto) or by symbol (fiat, rate against USD).
type Partition struct {
	Current     map[string]float64 `json:"current"`
	LastUpdated time.Time          `json:"last_updated"`
}

// Snapshot is never mutated after it has been published.
type Snapshot struct {
	Crypto Partition `json:"crypto"`
	Fiat   Partition `json:"fiat"`
}

func NewSnapshot() *Snapshot {
	return &Snapshot{
		Crypto: Partition{Current: map[string]float64{}},
		Fiat:   Partition{Current: map[string]float64{}},
	}
}

// WithCrypto returns a copy of s with the crypto partition replaced.
func (s *Snapshot) WithCrypto(current map[string]float64, date time.Time) *Snapshot {
	return &Snapshot{
		Crypto: Partition{Current: current, LastUpdated: date},
		Fiat:   s.Fiat,
	}
}

// WithFiat returns a copy of s with the fiat partition replaced.
func (s *Snapshot) WithFiat(current map[string]float64, date time.Time) *Snapshot {
	return &Snapshot{
		Crypto: s.Crypto,
		Fiat:   Partition{Current: current, LastUpdated: date},
	}
}

type Lists struct {
	Crypto []string `json:"crypto"`
	Fiat   []string `json:"fiat"`
}

type CryptoInfo struct {
	ID     int    `json:"id"`
	Symbol string `json:"symbol"`
	Title  string `json:"title"`
	Logo   string `json:"logo"`
	Rank   int    `json:"rank"`
}

// Conversion is the result of converting an amount between two symbols.
type Conversion struct {
	From   string   `json:"from"`
	To     string   `json:"to"`
	Amount string   `json:"amount"`
	Result *float64 `json:"result"`
}

// Update is published to subscribers after every successful poll.
type Update struct {
	Fiat   bool      `json:"fiat"`
	Ticker *Snapshot `json:"ticker"`
}

// Tickers is the full rate cache including custom currencies.
type Tickers struct {
	Crypto Partition          `json:"crypto"`
	Fiat   Partition          `json:"fiat"`
	Custom map[string]float64 `json:"custom"`
}

type Status struct {
	Ready       bool      `json:"ready"`
	LastUpdated time.Time `json:"last_updated"`
	Crypto      int       `json:"crypto"`
	Fiat        int       `json:"fiat"`
}
