// Package pgxstore answers the statistics queries GetQueryPlan reports
// back to a client directly against Postgres via pgx/v5, bypassing
// GORM's row-mapping overhead for the one path latency actually
// matters on: per-table row and page counts and per-index selectivity.
// It reads Postgres's own planner statistics (pg_class, pg_stats)
// rather than running a count(*) itself, since sqlstore.Engine has no
// query plan of its own to keep those counts current against.
package pgxstore

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// StatsReader runs read-only statistics lookups against Postgres's
// system catalog for tables the SQL passthrough engine executes
// against directly.
type StatsReader struct {
	pool *pgxpool.Pool
}

// Open connects a pgxpool to dsn, sized by maxConns.
func Open(ctx context.Context, dsn string, maxConns int32) (*StatsReader, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("pgxstore: parse dsn: %w", err)
	}
	if maxConns > 0 {
		cfg.MaxConns = maxConns
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("pgxstore: connect: %w", err)
	}
	return &StatsReader{pool: pool}, nil
}

// Close releases the pool.
func (s *StatsReader) Close() { s.pool.Close() }

// ClassRowCount returns Postgres's estimated row count for table, the
// cardinality statistic last ANALYZE recorded in pg_class.reltuples.
func (s *StatsReader) ClassRowCount(ctx context.Context, table string) (int64, error) {
	var count int64
	err := s.pool.QueryRow(ctx,
		`SELECT coalesce(reltuples, 0)::bigint FROM pg_class WHERE relname = $1`, table,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("pgxstore: class row count for %q: %w", table, err)
	}
	return count, nil
}

// PageFanout returns the number of disk pages table occupies
// (pg_class.relpages), used to estimate heap-file size for the
// query-plan-less statistics report.
func (s *StatsReader) PageFanout(ctx context.Context, table string) (int32, error) {
	var pages int32
	err := s.pool.QueryRow(ctx,
		`SELECT coalesce(relpages, 0) FROM pg_class WHERE relname = $1`, table,
	).Scan(&pages)
	if err != nil {
		return 0, fmt.Errorf("pgxstore: page fanout for %q: %w", table, err)
	}
	return pages, nil
}

// IndexCardinality returns the distinct-value estimate Postgres keeps
// for column on table (pg_stats.n_distinct), the selectivity statistic
// a query plan would otherwise rely on. A negative n_distinct is a
// fraction-of-rows estimate rather than an absolute count; callers
// that need an absolute number should combine it with ClassRowCount.
func (s *StatsReader) IndexCardinality(ctx context.Context, table, column string) (float64, error) {
	var nDistinct float64
	err := s.pool.QueryRow(ctx,
		`SELECT coalesce(n_distinct, 0) FROM pg_stats WHERE tablename = $1 AND attname = $2`,
		table, column,
	).Scan(&nDistinct)
	if err != nil {
		return 0, fmt.Errorf("pgxstore: index cardinality for %q.%q: %w", table, column, err)
	}
	return nDistinct, nil
}
