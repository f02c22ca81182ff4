package storage

import (
	"context"

	"autoswap/internal/pricefeed"
)

// Archive persists price samples across sessions. Implementations are
// best-effort; the trading loop never depends on them.
type Archive interface {
	InsertSamples(ctx context.Context, chainID uint64, pair string, samples []pricefeed.Sample) error
	RecentSamples(ctx context.Context, chainID uint64, pair string, limit int) ([]pricefeed.Sample, error)
}
