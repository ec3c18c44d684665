package postgres

import (
	"context"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/langowen/cryptoconvert/internal/entities"
	"github.com/pkg/errors"
	"time"
)

type Storage struct {
	db *pgxpool.Pool
}

func NewStorage(pool *pgxpool.Pool) *Storage {
	return &Storage{
		db: pool,
	}
}

func InitStorage(ctx context.Context, dsn string, timeout time.Duration) (*Storage, error) {
	const op = "storage.postgres.New"

	poolConfig, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, errors.Wrap(err, op)
	}
	poolConfig.MaxConns = 5
	poolConfig.MinConns = 1
	poolConfig.MaxConnLifetime = 10 * time.Minute
	poolConfig.MaxConnIdleTime = 5 * time.Minute

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, errors.Wrap(err, op)
	}

	if err = pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, errors.Wrap(err, op)
	}

	return NewStorage(pool), nil
}

func (s *Storage) Close() {
	s.db.Close()
}

// GetLists returns the supported symbols and crypto metadata, ordered by
// market rank.
func (s *Storage) GetLists(ctx context.Context) (entities.Lists, map[string]entities.CryptoInfo, error) {
	const op = "storage.postgres.GetLists"

	var lists entities.Lists

	cryptoQuery := `
		SELECT id, code, COALESCE(title, ''), COALESCE(logo, ''), COALESCE(rank, 0)
		FROM cryptocurrencies
		ORDER BY COALESCE(rank, 2147483647), id`
	cryptoRows, err := s.db.Query(ctx, cryptoQuery)
	if err != nil {
		return lists, nil, errors.Wrap(err, op)
	}
	defer cryptoRows.Close()

	info := make(map[string]entities.CryptoInfo)
	for cryptoRows.Next() {
		var ci entities.CryptoInfo
		if err = cryptoRows.Scan(&ci.ID, &ci.Symbol, &ci.Title, &ci.Logo, &ci.Rank); err != nil {
			return lists, nil, errors.Wrap(err, op)
		}
		lists.Crypto = append(lists.Crypto, ci.Symbol)
		info[ci.Symbol] = ci
	}

	if err = cryptoRows.Err(); err != nil {
		return lists, nil, errors.Wrap(err, op)
	}

	fiatRows, err := s.db.Query(ctx, `SELECT code FROM fiat_currencies ORDER BY id`)
	if err != nil {
		return lists, nil, errors.Wrap(err, op)
	}
	defer fiatRows.Close()

	for fiatRows.Next() {
		var code string
		if err = fiatRows.Scan(&code); err != nil {
			return lists, nil, errors.Wrap(err, op)
		}
		lists.Fiat = append(lists.Fiat, code)
	}

	if err = fiatRows.Err(); err != nil {
		return lists, nil, errors.Wrap(err, op)
	}

	return lists, info, nil
}
