// Package storage streams stored vectors out of relational databases so an
// index can be rebuilt from them.
package storage

import (
	"context"
	"fmt"
	"iter"
)

// Row is one stored vector: the database id and its raw float32 bytes.
type Row struct {
	ID     int64
	Vector []byte
}

// Table names a vector-bearing table.
type Table string

const (
	// TableTags holds one vector per tag.
	TableTags Table = "tags"
	// TableChunks holds one vector per file chunk; files carry the group (diary name).
	TableChunks Table = "chunks"
)

// Query selects which stored vectors to stream.
type Query struct {
	Table Table
	// Group filters chunks by files.diary_name. Required for TableChunks.
	Group string
}

// Source streams vectors for a Query. The returned sequence yields per-row
// scan failures as errors and must be consumed to release the cursor.
type Source interface {
	Rows(ctx context.Context, q Query) (iter.Seq2[Row, error], error)
	Close() error
}

// Drivers accepted by Open.
const (
	DriverSQLite3  = "sqlite3" // github.com/mattn/go-sqlite3 (cgo)
	DriverSQLite   = "sqlite"  // modernc.org/sqlite (pure Go)
	DriverPostgres = "pgx"     // github.com/jackc/pgx/v5
)

// Open connects to dsn with the named driver.
func Open(ctx context.Context, driver, dsn string) (Source, error) {
	switch driver {
	case DriverSQLite3, DriverSQLite, "":
		if driver == "" {
			driver = DriverSQLite3
		}
		return NewSQLSource(ctx, driver, dsn)
	case DriverPostgres, "postgres":
		return NewPostgresSource(ctx, dsn)
	default:
		return nil, fmt.Errorf("unknown recovery driver: %s (supported: sqlite3, sqlite, pgx)", driver)
	}
}

// statement builds the SELECT for q. placeholder renders the n-th bind
// parameter in the dialect. ok is false for queries that select nothing:
// unknown tables, and chunks without a group.
func (q Query) statement(placeholder func(n int) string) (sql string, args []any, ok bool) {
	switch {
	case q.Table == TableTags:
		return `SELECT id, vector FROM tags WHERE vector IS NOT NULL`, nil, true
	case q.Table == TableChunks && q.Group != "":
		return `SELECT c.id, c.vector FROM chunks c JOIN files f ON c.file_id = f.id
			WHERE f.diary_name = ` + placeholder(1) + ` AND c.vector IS NOT NULL`, []any{q.Group}, true
	default:
		return "", nil, false
	}
}

func noRows(func(Row, error) bool) {}
