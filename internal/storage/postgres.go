package storage

import (
	"context"
	"fmt"
	"iter"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresSource reads vectors (bytea) from PostgreSQL through a pgx pool.
type PostgresSource struct {
	pool *pgxpool.Pool
}

// NewPostgresSource connects to dsn and verifies connectivity.
func NewPostgresSource(ctx context.Context, dsn string) (*PostgresSource, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parsing DSN: %w", err)
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("connecting to database: %w", err)
	}
	return &PostgresSource{pool: pool}, nil
}

// Rows streams (id, vector) pairs selected by q.
func (s *PostgresSource) Rows(ctx context.Context, q Query) (iter.Seq2[Row, error], error) {
	query, args, ok := q.statement(func(n int) string { return fmt.Sprintf("$%d", n) })
	if !ok {
		return noRows, nil
	}
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", q.Table, err)
	}
	return func(yield func(Row, error) bool) {
		defer rows.Close()
		for rows.Next() {
			var r Row
			if err := rows.Scan(&r.ID, &r.Vector); err != nil {
				if !yield(Row{}, fmt.Errorf("scan %s row: %w", q.Table, err)) {
					return
				}
				continue
			}
			if !yield(r, nil) {
				return
			}
		}
		if err := rows.Err(); err != nil {
			yield(Row{}, fmt.Errorf("iterate %s: %w", q.Table, err))
		}
	}, nil
}

// Close closes the pool.
func (s *PostgresSource) Close() error {
	s.pool.Close()
	return nil
}
