package service

import (
	"context"
	"github.com/langowen/cryptoconvert/internal/custom"
	"github.com/langowen/cryptoconvert/internal/entities"
	"github.com/pkg/errors"
	"strings"
	"time"
)

const defaultSeedTimeout = 15 * time.Second

type Service struct {
	converter Converter
	client    custom.Getter
	opts      Options
}

type Options struct {
	SeedTimeout time.Duration
}

type Option func(o *Options)

// WithSeedTimeout bounds the first fetch of a custom currency added over the API.
func WithSeedTimeout(d time.Duration) Option {
	return func(o *Options) {
		if d > 0 {
			o.SeedTimeout = d
		}
	}
}

func NewService(converter Converter, client custom.Getter, opts ...Option) *Service {
	o := Options{SeedTimeout: defaultSeedTimeout}
	for _, opt := range opts {
		opt(&o)
	}

	return &Service{
		converter: converter,
		client:    client,
		opts:      o,
	}
}

func (s *Service) Convert(ctx context.Context, from, to, amount string) (*entities.Conversion, error) {
	const op = "service.Convert"

	from, to = normalize(from), normalize(to)

	result, err := s.converter.Convert(from, to, amount)
	if err != nil {
		return nil, errors.Wrap(err, op)
	}

	return &entities.Conversion{
		From:   from,
		To:     to,
		Amount: amount,
		Result: &result,
	}, nil
}

func (s *Service) Tickers(ctx context.Context) *entities.Tickers {
	snap := s.converter.Ticker()

	return &entities.Tickers{
		Crypto: snap.Crypto,
		Fiat:   snap.Fiat,
		Custom: s.converter.CustomTicker(),
	}
}

func (s *Service) Lists(ctx context.Context) entities.Lists {
	return s.converter.List()
}

func (s *Service) Info(ctx context.Context) map[string]entities.CryptoInfo {
	return s.converter.CryptoInfo()
}

func (s *Service) Status(ctx context.Context) *entities.Status {
	lists := s.converter.List()

	return &entities.Status{
		Ready:       s.converter.IsReady(),
		LastUpdated: s.converter.LastUpdated(),
		Crypto:      len(lists.Crypto),
		Fiat:        len(lists.Fiat),
	}
}

// AddCurrency registers an HTTP backed custom currency.
func (s *Service) AddCurrency(ctx context.Context, entry custom.Entry) error {
	const op = "service.AddCurrency"

	if err := entry.Normalize(); err != nil {
		return errors.Wrap(err, op)
	}

	ctx, cancel := context.WithTimeout(ctx, s.opts.SeedTimeout)
	defer cancel()

	fetch := custom.HTTPFetcher(s.client, entry.URL, entry.Path)
	if err := s.converter.AddCurrency(ctx, entry.Base, entry.Quote, fetch, entry.Interval); err != nil {
		return errors.Wrap(err, op)
	}

	return nil
}

func (s *Service) RemoveCurrency(ctx context.Context, base, quote string) {
	s.converter.RemoveCurrency(normalize(base), normalize(quote))
}

func normalize(sym string) string {
	return strings.ToUpper(strings.TrimSpace(sym))
}
