package routestore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Postgres is a Store backed by a PostgreSQL database.
type Postgres struct {
	pool *pgxpool.Pool
}

// OpenPostgres connects to databaseURL and ensures the schema exists.
func OpenPostgres(ctx context.Context, databaseURL string) (*Postgres, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	_, err = pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS user_routes (
			route_key  TEXT PRIMARY KEY,
			value      JSONB NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}
	return &Postgres{pool: pool}, nil
}

func (p *Postgres) Put(ctx context.Context, key string, value json.RawMessage) error {
	if !json.Valid(value) {
		return fmt.Errorf("route %q: value is not valid JSON", key)
	}
	_, err := p.pool.Exec(ctx, `
		INSERT INTO user_routes (route_key, value, updated_at) VALUES ($1, $2, NOW())
		ON CONFLICT (route_key) DO UPDATE SET
			value = EXCLUDED.value,
			updated_at = EXCLUDED.updated_at`,
		key, string(value),
	)
	if err != nil {
		return fmt.Errorf("failed to store route %q: %w", key, err)
	}
	return nil
}

func (p *Postgres) Get(ctx context.Context, key string) (Record, error) {
	var (
		rec   Record
		value string
	)
	err := p.pool.QueryRow(ctx,
		"SELECT route_key, value::text, updated_at FROM user_routes WHERE route_key = $1", key,
	).Scan(&rec.Key, &value, &rec.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Record{}, fmt.Errorf("route %q: %w", key, ErrNotFound)
	}
	if err != nil {
		return Record{}, fmt.Errorf("failed to read route %q: %w", key, err)
	}
	rec.Value = json.RawMessage(value)
	return rec, nil
}

func (p *Postgres) Delete(ctx context.Context, key string) error {
	tag, err := p.pool.Exec(ctx, "DELETE FROM user_routes WHERE route_key = $1", key)
	if err != nil {
		return fmt.Errorf("failed to delete route %q: %w", key, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("route %q: %w", key, ErrNotFound)
	}
	return nil
}

func (p *Postgres) List(ctx context.Context) ([]Record, error) {
	rows, err := p.pool.Query(ctx,
		"SELECT route_key, value::text, updated_at FROM user_routes ORDER BY route_key")
	if err != nil {
		return nil, fmt.Errorf("failed to list routes: %w", err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var (
			rec   Record
			value string
		)
		if err := rows.Scan(&rec.Key, &value, &rec.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan route: %w", err)
		}
		rec.Value = json.RawMessage(value)
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (p *Postgres) Close() error {
	p.pool.Close()
	return nil
}
