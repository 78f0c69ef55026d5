// Package store persists the few things NeoTrace keeps between runs:
// submitted feedback on the server side, and trivial client preferences
// (the web app kept these in browser local storage).
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

// ErrNotFound is returned when a preference key has never been set.
var ErrNotFound = errors.New("not found")

// FeedbackRecord is one stored feedback submission.
type FeedbackRecord struct {
	ID        string
	Rating    int
	Message   string
	Page      string
	CreatedAt time.Time
}

// Store wraps the SQLite database.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the database at path.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	createFeedbackTable := `
	CREATE TABLE IF NOT EXISTS feedback (
		id TEXT PRIMARY KEY,
		rating INTEGER,
		message TEXT,
		page TEXT,
		created_at DATETIME
	);`

	createPreferencesTable := `
	CREATE TABLE IF NOT EXISTS preferences (
		key TEXT PRIMARY KEY,
		value TEXT
	);`

	if _, err := db.Exec(createFeedbackTable); err != nil {
		return nil, fmt.Errorf("failed to create feedback table: %w", err)
	}
	if _, err := db.Exec(createPreferencesTable); err != nil {
		return nil, fmt.Errorf("failed to create preferences table: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping verifies the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// SaveFeedback stores one feedback submission and returns its id.
func (s *Store) SaveFeedback(ctx context.Context, rating int, message, page string) (string, error) {
	id := uuid.NewString()
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO feedback (id, rating, message, page, created_at) VALUES (?, ?, ?, ?, ?)",
		id, rating, message, page, time.Now(),
	)
	if err != nil {
		return "", fmt.Errorf("failed to save feedback: %w", err)
	}
	return id, nil
}

// RecentFeedback returns the newest feedback rows, most recent first.
func (s *Store) RecentFeedback(ctx context.Context, limit int) ([]FeedbackRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, rating, message, page, created_at FROM feedback ORDER BY created_at DESC LIMIT ?",
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load feedback: %w", err)
	}
	defer rows.Close()

	records := []FeedbackRecord{}
	for rows.Next() {
		var rec FeedbackRecord
		if err := rows.Scan(&rec.ID, &rec.Rating, &rec.Message, &rec.Page, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan feedback: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// SetPreference stores a preference value, replacing any previous one.
func (s *Store) SetPreference(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT OR REPLACE INTO preferences (key, value) VALUES (?, ?)",
		key, value,
	)
	if err != nil {
		return fmt.Errorf("failed to save preference: %w", err)
	}
	return nil
}

// Preference returns a stored preference, or ErrNotFound.
func (s *Store) Preference(ctx context.Context, key string) (string, error) {
	var value string
	err := s.db.QueryRowContext(ctx, "SELECT value FROM preferences WHERE key = ?", key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to load preference: %w", err)
	}
	return value, nil
}
