// Package history reads the decision log the organizer daemon keeps in a
// local SQLite file.
package history

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

//go:embed schema.sql
var schema string

// previewLen bounds the summary preview shown in history rows.
const previewLen = 100

// Record is one logged file decision.
type Record struct {
	Filename  string
	Path      string
	Filetype  string
	Category  string
	Summary   string
	Timestamp time.Time
}

// SummaryPreview returns the summary truncated for table rendering.
func (r Record) SummaryPreview() string {
	if len(r.Summary) <= previewLen {
		return r.Summary
	}
	return r.Summary[:previewLen] + "..."
}

// Filter narrows a history query. Both fields are optional: Search is a
// case-insensitive substring match on filename or summary, Category an exact
// match.
type Filter struct {
	Search   string
	Category string
}

// Store handles log-store queries.
type Store struct {
	db *sql.DB
}

// Open opens the daemon's log database at the given path.
func Open(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Query returns the logged decisions matching the filter, newest first.
func (s *Store) Query(ctx context.Context, f Filter) ([]Record, error) {
	query := "SELECT filename, path, filetype, category, summary, timestamp FROM files WHERE 1=1"
	var args []any

	if f.Search != "" {
		query += " AND (filename LIKE ? OR summary LIKE ?)"
		pattern := "%" + f.Search + "%"
		args = append(args, pattern, pattern)
	}
	if f.Category != "" {
		query += " AND category = ?"
		args = append(args, f.Category)
	}
	query += " ORDER BY timestamp DESC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var r Record
		var ts string
		if err := rows.Scan(&r.Filename, &r.Path, &r.Filetype, &r.Category, &r.Summary, &ts); err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		r.Timestamp = parseTimestamp(ts)
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate history: %w", err)
	}
	return records, nil
}

// parseTimestamp handles the daemon's isoformat() text as well as RFC 3339.
// Unparseable values yield the zero time; ordering already happened in SQL.
func parseTimestamp(s string) time.Time {
	for _, layout := range []string{
		time.RFC3339Nano,
		time.RFC3339,
		"2006-01-02T15:04:05.999999",
		"2006-01-02T15:04:05",
	} {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
