package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/ShroXd/cascade"
)

// Options configures SQLiteStore.
type Options struct {
	// Crawler is written next to every result.
	Crawler string

	// CreateIfNotExists creates the database file if it doesn't exist.
	CreateIfNotExists bool

	// EnableWAL enables Write-Ahead Logging.
	EnableWAL bool
}

func DefaultOptions() Options {
	return Options{
		Crawler:           "crawler",
		CreateIfNotExists: true,
		EnableWAL:         true,
	}
}

// StoredResult is a row of the results table.
type StoredResult struct {
	ID       int64
	Crawler  string
	StoredAt time.Time
	Data     map[string]any
}

// SQLiteStore writes results as JSON documents into an SQLite database.
type SQLiteStore struct {
	db      *sql.DB
	dbPath  string
	crawler string
	logger  cascade.Logger
}

// Open opens or creates results.db inside dbDir.
func Open(dbDir string, opts Options) (*SQLiteStore, error) {
	dbPath := filepath.Join(dbDir, "results.db")

	var dsn string
	if opts.CreateIfNotExists {
		if err := os.MkdirAll(dbDir, 0750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
		dsn = dbPath + "?mode=rwc"
	} else {
		if _, err := os.Stat(dbPath); err != nil {
			return nil, fmt.Errorf("database not found at %s: %w", dbPath, err)
		}
		dsn = dbPath + "?mode=rw"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	s := &SQLiteStore{
		db:      db,
		dbPath:  dbPath,
		crawler: opts.Crawler,
		logger:  cascade.NewNopLogger(),
	}

	if opts.EnableWAL {
		if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}

	if err := s.createTables(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return s, nil
}

func (s *SQLiteStore) createTables() error {
	schema := `
	CREATE TABLE IF NOT EXISTS results (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		crawler TEXT NOT NULL,
		stored_at TEXT NOT NULL,
		data TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_results_crawler ON results(crawler);
	`
	_, err := s.db.ExecContext(context.Background(), schema)
	return err
}

func (s *SQLiteStore) SetLogger(logger cascade.Logger) {
	s.logger = logger
}

func (s *SQLiteStore) Path() string {
	return s.dbPath
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) Store(ctx context.Context, result *cascade.Result) error {
	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to marshal result: %w", err)
	}

	res, err := s.db.ExecContext(ctx,
		"INSERT INTO results (crawler, stored_at, data) VALUES (?, ?, ?)",
		s.crawler, time.Now().UTC().Format(time.RFC3339Nano), string(data),
	)
	if err != nil {
		return fmt.Errorf("failed to insert result: %w", err)
	}

	id, _ := res.LastInsertId()
	s.logger.Debug("Stored result", cascade.LogContext{"store": "sqlite", "id": id})

	return nil
}

// Results reads back the rows written for crawler, oldest first.
func (s *SQLiteStore) Results(ctx context.Context, crawler string) ([]StoredResult, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, crawler, stored_at, data FROM results WHERE crawler = ? ORDER BY id",
		crawler,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query results: %w", err)
	}
	defer rows.Close()

	var out []StoredResult
	for rows.Next() {
		var (
			r        StoredResult
			storedAt string
			data     string
		)
		if err := rows.Scan(&r.ID, &r.Crawler, &storedAt, &data); err != nil {
			return nil, fmt.Errorf("failed to scan result: %w", err)
		}
		r.StoredAt, _ = time.Parse(time.RFC3339Nano, storedAt)
		if err := json.Unmarshal([]byte(data), &r.Data); err != nil {
			return nil, fmt.Errorf("failed to decode result %d: %w", r.ID, err)
		}
		out = append(out, r)
	}

	return out, rows.Err()
}
