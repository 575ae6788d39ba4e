package storage

import (
	"context"
	"database/sql"
	"fmt"
	"iter"

	_ "github.com/mattn/go-sqlite3"
	_ "modernc.org/sqlite"
)

// SQLSource reads vectors through database/sql. It serves both SQLite
// drivers; the SQL is identical.
type SQLSource struct {
	db     *sql.DB
	driver string
}

// NewSQLSource opens dsn with driver ("sqlite3" or "sqlite") and verifies the connection.
func NewSQLSource(ctx context.Context, driver, dsn string) (*SQLSource, error) {
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return &SQLSource{db: db, driver: driver}, nil
}

// NewSQLSourceFromDB wraps an existing handle. Close closes db.
func NewSQLSourceFromDB(db *sql.DB, driver string) *SQLSource {
	return &SQLSource{db: db, driver: driver}
}

// Driver returns the database/sql driver name in use.
func (s *SQLSource) Driver() string { return s.driver }

// Rows streams (id, vector) pairs selected by q.
func (s *SQLSource) Rows(ctx context.Context, q Query) (iter.Seq2[Row, error], error) {
	query, args, ok := q.statement(func(int) string { return "?" })
	if !ok {
		return noRows, nil
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
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

// Close closes the database connection.
func (s *SQLSource) Close() error {
	return s.db.Close()
}
