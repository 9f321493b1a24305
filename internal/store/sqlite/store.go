// Package sqlite implements the record store on SQLite (modernc.org/sqlite).
package sqlite

import (
	"database/sql"
	_ "embed"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/devoverflow/overflow-server/internal/store"

	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var schemaSQL string

// FaultHook runs before each operation of a committing batch. A non-nil
// error aborts the batch as if the operation itself had failed.
type FaultHook func(index int, op store.Op) error

// Store provides SQLite-backed persistence for the Overflow server.
type Store struct {
	db     *sql.DB
	logger *slog.Logger
	tracer trace.Tracer
	now    func() time.Time

	mu        sync.RWMutex
	faultHook FaultHook
}

var _ store.Store = (*Store)(nil)

// Open creates a new SQLite store at the given path and applies the schema.
//
// Pragmas are passed in the DSN so every pooled connection gets them.
// Transactions begin IMMEDIATE: concurrent batches queue on the write lock
// (bounded by busy_timeout) instead of failing on lock upgrade.
func Open(path string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	params := url.Values{}
	params.Add("_pragma", "foreign_keys(1)")
	params.Add("_pragma", "busy_timeout(10000)")
	params.Add("_pragma", "journal_mode(WAL)")
	params.Add("_pragma", "synchronous(NORMAL)")
	params.Set("_txlock", "immediate")
	dsn := "file:" + path + "?" + params.Encode()

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(time.Hour)

	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("exec schema: %w", err)
	}

	return &Store{
		db:     db,
		logger: logger,
		tracer: otel.Tracer("overflow.store.sqlite"),
		now:    time.Now,
	}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping checks the database connection.
func (s *Store) Ping() error {
	return s.db.Ping()
}

// SetFaultHook installs a hook consulted before every batch operation.
// Pass nil to remove it.
func (s *Store) SetFaultHook(hook FaultHook) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.faultHook = hook
}

func (s *Store) hook() FaultHook {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.faultHook
}

// formatTime formats a time.Time to RFC3339Nano for storage.
func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}
