package redis

import (
	"context"
	"encoding/json"
	"github.com/langowen/cryptoconvert/internal/entities"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
	"log/slog"
)

const (
	cryptoKey = "tickers:crypto"
	fiatKey   = "tickers:fiat"
)

type Storage struct {
	rdb     *redis.Client
	channel string
}

func NewStorage(client *redis.Client, channel string) *Storage {
	return &Storage{
		rdb:     client,
		channel: channel,
	}
}

func InitStorage(ctx context.Context, options *redis.Options, channel string) (*Storage, error) {
	const op = "storage.redis.InitStorage"

	redisClient := redis.NewClient(options)

	if _, err := redisClient.Ping(ctx).Result(); err != nil {
		return nil, errors.Wrap(err, op)
	}

	return NewStorage(redisClient, channel), nil
}

func (s *Storage) Close() error {
	return s.rdb.Close()
}

// PublishUpd stores the updated partition and announces the whole snapshot
// on the update channel.
func (s *Storage) PublishUpd(ctx context.Context, snapshot *entities.Snapshot, isFiat bool) error {
	const op = "storage.redis.PublishUpd"

	key, partition := cryptoKey, snapshot.Crypto
	if isFiat {
		key, partition = fiatKey, snapshot.Fiat
	}

	stored, err := json.Marshal(partition)
	if err != nil {
		return errors.Wrap(err, op)
	}

	msg, err := json.Marshal(entities.Update{Fiat: isFiat, Ticker: snapshot})
	if err != nil {
		return errors.Wrap(err, op)
	}

	pipe := s.rdb.TxPipeline()
	pipe.Set(ctx, key, stored, 0)
	pipe.Publish(ctx, s.channel, msg)
	if _, err := pipe.Exec(ctx); err != nil {
		return errors.Wrap(err, op)
	}

	slog.Debug("Published ticker update", "channel", s.channel, "fiat", isFiat)

	return nil
}
