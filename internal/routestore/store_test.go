package routestore

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/paulmach/osm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cxd309/railsim/internal/route"
)

func openSQLite(t *testing.T) Store {
	t.Helper()
	s, err := OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "routes.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func openPostgres(t *testing.T) Store {
	t.Helper()
	databaseURL := os.Getenv("DATABASE_URL")
	if databaseURL == "" {
		t.Skip("DATABASE_URL not set - skipping integration test")
	}
	p, err := OpenPostgres(context.Background(), databaseURL)
	require.NoError(t, err)
	t.Cleanup(func() { p.Close() })
	return p
}

// testStore exercises the Store contract. Keys are prefixed so a shared
// database is left as it was found.
func testStore(t *testing.T, s Store) {
	ctx := context.Background()
	prefix := uuid.New().String() + "/"
	a, b := prefix+"a", prefix+"b"
	t.Cleanup(func() {
		_ = s.Delete(ctx, a)
		_ = s.Delete(ctx, b)
	})

	_, err := s.Get(ctx, a)
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.Put(ctx, b, json.RawMessage(`{"name": "B"}`)))
	require.NoError(t, s.Put(ctx, a, json.RawMessage(`{"name": "A"}`)))

	rec, err := s.Get(ctx, a)
	require.NoError(t, err)
	assert.Equal(t, a, rec.Key)
	assert.JSONEq(t, `{"name": "A"}`, string(rec.Value))
	assert.False(t, rec.UpdatedAt.IsZero())

	require.NoError(t, s.Put(ctx, a, json.RawMessage(`{"name": "A2"}`)))
	rec, err = s.Get(ctx, a)
	require.NoError(t, err)
	assert.JSONEq(t, `{"name": "A2"}`, string(rec.Value))

	all, err := s.List(ctx)
	require.NoError(t, err)
	var keys []string
	for _, r := range all {
		if strings.HasPrefix(r.Key, prefix) {
			keys = append(keys, r.Key)
		}
	}
	assert.Equal(t, []string{a, b}, keys)

	require.NoError(t, s.Delete(ctx, a))
	assert.ErrorIs(t, s.Delete(ctx, a), ErrNotFound)
	_, err = s.Get(ctx, a)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSQLite(t *testing.T) {
	testStore(t, openSQLite(t))
}

func TestPostgres(t *testing.T) {
	testStore(t, openPostgres(t))
}

func TestSQLiteRejectsInvalidJSON(t *testing.T) {
	s := openSQLite(t)
	assert.Error(t, s.Put(context.Background(), "k", json.RawMessage(`{`)))
}

func TestSQLitePersists(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "routes.db")

	s, err := OpenSQLite(ctx, path)
	require.NoError(t, err)
	require.NoError(t, s.Put(ctx, "k", json.RawMessage(`[1, 2]`)))
	require.NoError(t, s.Close())

	s, err = OpenSQLite(ctx, path)
	require.NoError(t, err)
	defer s.Close()
	rec, err := s.Get(ctx, "k")
	require.NoError(t, err)
	assert.JSONEq(t, `[1, 2]`, string(rec.Value))
}

func TestRouteHelpers(t *testing.T) {
	ctx := context.Background()
	s := openSQLite(t)

	ur := route.UserRoute{
		Name:     "Airport shuttle",
		Color:    "#00aaff",
		Sections: []route.SectionRef{{Way: 10, From: 1, To: 3}, {Way: 20}},
		Stops:    []osm.NodeID{1, 5},
	}
	key, err := SaveRoute(ctx, s, ur)
	require.NoError(t, err)
	_, err = uuid.Parse(key)
	require.NoError(t, err)

	got, err := LoadRoute(ctx, s, key)
	require.NoError(t, err)
	assert.Equal(t, ur, got)

	ur.Name = "Renamed"
	require.NoError(t, PutRoute(ctx, s, key, ur))
	got, err = LoadRoute(ctx, s, key)
	require.NoError(t, err)
	assert.Equal(t, "Renamed", got.Name)

	_, err = LoadRoute(ctx, s, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestOpen(t *testing.T) {
	ctx := context.Background()

	s, err := Open(ctx, "", filepath.Join(t.TempDir(), "routes.db"), "")
	require.NoError(t, err)
	assert.IsType(t, &SQLite{}, s)
	require.NoError(t, s.Close())

	_, err = Open(ctx, "redis", "", "")
	assert.Error(t, err)
}
