// Package routestore persists user-authored routes. The store itself is an
// opaque key-value store of JSON records; it never interprets them beyond
// the typed helpers in this file.
package routestore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/cxd309/railsim/internal/route"
)

// ErrNotFound is returned when no record exists for a key.
var ErrNotFound = errors.New("record not found")

// Record is one stored value.
type Record struct {
	Key       string          `json:"key"`
	Value     json.RawMessage `json:"value"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// Store is a key-value store of JSON records.
type Store interface {
	Put(ctx context.Context, key string, value json.RawMessage) error
	Get(ctx context.Context, key string) (Record, error)
	Delete(ctx context.Context, key string) error
	List(ctx context.Context) ([]Record, error)
	Close() error
}

// SaveRoute stores a user route under a new key and returns the key.
func SaveRoute(ctx context.Context, s Store, r route.UserRoute) (string, error) {
	key := uuid.New().String()
	if err := PutRoute(ctx, s, key, r); err != nil {
		return "", err
	}
	return key, nil
}

// PutRoute stores a user route under key, replacing any previous value.
func PutRoute(ctx context.Context, s Store, key string, r route.UserRoute) error {
	data, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("encoding route %q: %w", key, err)
	}
	return s.Put(ctx, key, data)
}

// LoadRoute reads the user route stored under key.
func LoadRoute(ctx context.Context, s Store, key string) (route.UserRoute, error) {
	rec, err := s.Get(ctx, key)
	if err != nil {
		return route.UserRoute{}, err
	}
	var r route.UserRoute
	if err := json.Unmarshal(rec.Value, &r); err != nil {
		return route.UserRoute{}, fmt.Errorf("decoding route %q: %w", key, err)
	}
	return r, nil
}

// Open opens the store of the given kind: "sqlite" (the default) uses
// sqlitePath, "postgres" uses databaseURL.
func Open(ctx context.Context, kind, sqlitePath, databaseURL string) (Store, error) {
	switch kind {
	case "", "sqlite":
		s, err := OpenSQLite(ctx, sqlitePath)
		if err != nil {
			return nil, err
		}
		return s, nil
	case "postgres":
		p, err := OpenPostgres(ctx, databaseURL)
		if err != nil {
			return nil, err
		}
		return p, nil
	}
	return nil, fmt.Errorf("unknown route store %q", kind)
}
