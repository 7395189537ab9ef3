package routestore

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var schemaSQL string

// SQLite is a Store backed by a local SQLite file.
type SQLite struct {
	conn    *sql.DB
	writeMu sync.Mutex // SQLite allows a single writer
}

// OpenSQLite opens (creating if needed) the database at path and ensures the
// schema exists.
func OpenSQLite(ctx context.Context, path string) (*SQLite, error) {
	dsn := path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	conn, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	conn.SetMaxOpenConns(1)
	conn.SetMaxIdleConns(1)
	conn.SetConnMaxLifetime(time.Hour)

	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	if _, err := conn.ExecContext(ctx, schemaSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}
	return &SQLite{conn: conn}, nil
}

func (s *SQLite) Put(ctx context.Context, key string, value json.RawMessage) error {
	if !json.Valid(value) {
		return fmt.Errorf("route %q: value is not valid JSON", key)
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	_, err := s.conn.ExecContext(ctx, `
		INSERT INTO user_routes (route_key, value, updated_at_utc) VALUES (?, ?, ?)
		ON CONFLICT (route_key) DO UPDATE SET
			value = excluded.value,
			updated_at_utc = excluded.updated_at_utc`,
		key, string(value), time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("failed to store route %q: %w", key, err)
	}
	return nil
}

func (s *SQLite) Get(ctx context.Context, key string) (Record, error) {
	row := s.conn.QueryRowContext(ctx,
		"SELECT route_key, value, updated_at_utc FROM user_routes WHERE route_key = ?", key)
	rec, err := scanRecord(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, fmt.Errorf("route %q: %w", key, ErrNotFound)
	}
	if err != nil {
		return Record{}, fmt.Errorf("failed to read route %q: %w", key, err)
	}
	return rec, nil
}

func (s *SQLite) Delete(ctx context.Context, key string) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	res, err := s.conn.ExecContext(ctx, "DELETE FROM user_routes WHERE route_key = ?", key)
	if err != nil {
		return fmt.Errorf("failed to delete route %q: %w", key, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("route %q: %w", key, ErrNotFound)
	}
	return nil
}

func (s *SQLite) List(ctx context.Context) ([]Record, error) {
	rows, err := s.conn.QueryContext(ctx,
		"SELECT route_key, value, updated_at_utc FROM user_routes ORDER BY route_key")
	if err != nil {
		return nil, fmt.Errorf("failed to list routes: %w", err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		rec, err := scanRecord(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("failed to scan route: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (s *SQLite) Close() error {
	return s.conn.Close()
}

func scanRecord(scan func(dest ...any) error) (Record, error) {
	var (
		rec       Record
		value     string
		updatedAt string
	)
	if err := scan(&rec.Key, &value, &updatedAt); err != nil {
		return Record{}, err
	}
	rec.Value = json.RawMessage(value)
	if t, err := time.Parse(time.RFC3339Nano, updatedAt); err == nil {
		rec.UpdatedAt = t
	}
	return rec, nil
}
