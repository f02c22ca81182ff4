package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"autoswap/internal/pricefeed"
)

// Store archives price samples in Postgres. The trading loop itself writes
// nothing durable; only the price feed uses this, and only when a DSN is
// configured.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(ctx context.Context, dsn string) (*Store, error) {
	if dsn == "" {
		return nil, fmt.Errorf("pg dsn is required")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}
	return &Store{pool: pool}, nil
}

func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// InsertSamples appends price samples for a pair.
func (s *Store) InsertSamples(ctx context.Context, chainID uint64, pair string, samples []pricefeed.Sample) error {
	if len(samples) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, sample := range samples {
		batch.Queue(`
			INSERT INTO price_samples (chain_id, pair, sampled_at, price)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (chain_id, pair, sampled_at) DO NOTHING
		`,
			int64(chainID),
			pair,
			sample.Time.UTC(),
			sample.Price,
		)
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	for range samples {
		if _, err := br.Exec(); err != nil {
			return err
		}
	}
	return nil
}

// RecentSamples returns up to limit samples for the pair, oldest first.
func (s *Store) RecentSamples(ctx context.Context, chainID uint64, pair string, limit int) ([]pricefeed.Sample, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.pool.Query(ctx, `
		SELECT sampled_at, price FROM (
			SELECT sampled_at, price FROM price_samples
			WHERE chain_id = $1 AND pair = $2
			ORDER BY sampled_at DESC
			LIMIT $3
		) recent ORDER BY sampled_at ASC
	`, int64(chainID), pair, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	samples := make([]pricefeed.Sample, 0, limit)
	for rows.Next() {
		var ts time.Time
		var price float64
		if err := rows.Scan(&ts, &price); err != nil {
			return nil, err
		}
		samples = append(samples, pricefeed.Sample{Time: ts, Price: price})
	}
	return samples, rows.Err()
}
