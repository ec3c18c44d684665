package fetcher

import (
	"context"
	"github.com/langowen/cryptoconvert/internal/entities"
	"log/slog"
)

type Publisher interface {
	PublishUpd(ctx context.Context, snapshot *entities.Snapshot, isFiat bool) error
}

// PublishTo adapts a Publisher into an update callback. Publish errors are
// logged and never interrupt polling.
func PublishTo(ctx context.Context, p Publisher) UpdateFunc {
	return func(snapshot *entities.Snapshot, isFiat bool) {
		const op = "fetcher.PublishTo"

		if err := p.PublishUpd(ctx, snapshot, isFiat); err != nil {
			slog.Error("Failed to publish ticker update", "op", op, "fiat", isFiat, "error", err)
		}
	}
}
