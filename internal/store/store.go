package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

type Store struct {
	db *sqlx.DB
}

// NewStore creates a new database store
func NewStore(databaseURL string) (*Store, error) {
	db, err := sqlx.Connect("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

// GetDB returns the underlying database connection
func (s *Store) GetDB() *sqlx.DB {
	return s.db
}

// NextVersion atomically increments and returns the version counter for an
// aggregate key, starting from 1 for a key that has never published. The
// upsert is a single statement so concurrent publishers for the same key
// serialize on the row instead of racing the read-modify-write.
func (s *Store) NextVersion(ctx context.Context, aggregateKey string) (int64, error) {
	var version int64
	err := s.db.GetContext(ctx, &version, `
		INSERT INTO event_versions (aggregate_key, version)
		VALUES ($1, 1)
		ON CONFLICT (aggregate_key)
		DO UPDATE SET version = event_versions.version + 1
		RETURNING version`, aggregateKey)
	if err != nil {
		return 0, fmt.Errorf("failed to advance version for %s: %w", aggregateKey, err)
	}
	return version, nil
}

// IsEventProcessed checks if an event has been processed
func (s *Store) IsEventProcessed(ctx context.Context, eventID string) (bool, error) {
	var exists bool
	err := s.db.GetContext(ctx, &exists,
		"SELECT EXISTS(SELECT 1 FROM processed_events WHERE event_id = $1)", eventID)
	return exists, err
}

// MarkEventProcessed marks an event as processed
func (s *Store) MarkEventProcessed(ctx context.Context, eventID, eventType string) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO processed_events (event_id, event_type) VALUES ($1, $2) ON CONFLICT (event_id) DO NOTHING",
		eventID, eventType)
	return err
}
