package store

import (
	"database/sql"
	"fmt"

	_ "github.com/duckdb/duckdb-go/v2"
)

// NewDB opens a DuckDB database at path. An empty path or ":memory:" opens
// an in-memory database.
func NewDB(path string) (*sql.DB, error) {
	if path == ":memory:" {
		path = ""
	}
	db, err := sql.Open("duckdb", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open duckdb: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to open duckdb: %w", err)
	}
	return db, nil
}

// Store provides access to all storage repositories.
type Store struct {
	db          *sql.DB
	extractions *ExtractionStore
}

func NewStore(db *sql.DB) *Store {
	return &Store{
		db:          db,
		extractions: NewExtractionStore(NewQueryInterceptor(db)),
	}
}

func (s *Store) Extractions() *ExtractionStore {
	return s.extractions
}

func (s *Store) Close() error {
	return s.db.Close()
}
