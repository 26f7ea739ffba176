// Package duckdb keeps a durable archive of ingested log entries, uploaded
// file records and activity in DuckDB. The in-memory store stays the source
// of truth for the API; the archive survives restarts and feeds backups.
package duckdb

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "github.com/duckdb/duckdb-go/v2"

	"github.com/nexumobscura/nexum/internal/duckdb/migrate"
)

// DefaultQueryTimeout bounds every archive statement.
const DefaultQueryTimeout = 30 * time.Second

// Store wraps the DuckDB connection.
type Store struct {
	db           *sql.DB
	mu           sync.RWMutex
	dbPath       string
	QueryTimeout time.Duration
}

// NewStore opens or creates the archive at dbPath and applies migrations.
// An empty path opens an in-memory database.
func NewStore(dbPath string, queryTimeout time.Duration) (*Store, error) {
	if dbPath != "" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
			return nil, fmt.Errorf("create archive dir: %w", err)
		}
	}
	if queryTimeout <= 0 {
		queryTimeout = DefaultQueryTimeout
	}

	db, err := sql.Open("duckdb", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open duckdb %q: %w", dbPath, err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), queryTimeout)
	defer cancel()
	if _, err := migrate.NewRunner(db).Run(ctx); err != nil {
		db.Close()
		return nil, err
	}

	return &Store{db: db, dbPath: dbPath, QueryTimeout: queryTimeout}, nil
}

// Close closes the connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB exposes the connection for ad-hoc queries in tests and tools.
func (s *Store) DB() *sql.DB {
	return s.db
}

func (s *Store) queryContext(parent context.Context) (context.Context, context.CancelFunc) {
	if parent == nil {
		parent = context.Background()
	}
	return context.WithTimeout(parent, s.QueryTimeout)
}
