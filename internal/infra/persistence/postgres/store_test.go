package postgres

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"strongholdcore/internal/infra/persistence/postgres/testutil"
	"strongholdcore/pkg/domain"
)

func newStubStore(t *testing.T) (*Store, *testutil.StubConn) {
	t.Helper()
	db, conn := testutil.NewStubDB()
	var gotDriver, gotDSN string
	restore := OverrideSQLOpen(func(driverName, dsn string) (*sql.DB, error) {
		gotDriver, gotDSN = driverName, dsn
		return db, nil
	})
	t.Cleanup(restore)
	store, err := NewStore(context.Background(), "")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	assert.Equal(t, "pgx", gotDriver)
	assert.Equal(t, defaultDSN, gotDSN)
	return store, conn
}

func session(id string, ended time.Time) domain.Session {
	return domain.Session{
		ID:        id,
		StartedAt: ended.Add(-time.Minute),
		EndedAt:   ended,
		Reason:    domain.ResetManual,
		Throws:    []domain.Throw{domain.NewThrow(0, 0, -45), domain.NewThrow(100, 0, 0)},
		Estimate:  domain.Estimate{Throws: 2, Certainty: 0.93},
	}
}

func TestStoreCreatesTableAndRoundTrips(t *testing.T) {
	store, conn := newStubStore(t)
	require.NotEmpty(t, conn.Execs)
	assert.Contains(t, conn.Execs[0], "CREATE TABLE IF NOT EXISTS sessions")

	ctx := context.Background()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	a := session("a", base)
	require.NoError(t, store.SaveSession(ctx, a))
	require.NoError(t, store.SaveSession(ctx, session("b", base.Add(time.Hour))))

	got, ok, err := store.GetSession(ctx, "a")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, a, got)

	_, ok, err = store.GetSession(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, ok)

	all, err := store.ListSessions(ctx, 0)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "b", all[0].ID)

	one, err := store.ListSessions(ctx, 1)
	require.NoError(t, err)
	require.Len(t, one, 1)
	assert.Equal(t, "b", one[0].ID)
}

func TestStoreUpsertReplacesSession(t *testing.T) {
	store, conn := newStubStore(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, store.SaveSession(ctx, session("a", base)))
	again := session("a", base.Add(time.Minute))
	again.Reason = domain.ResetAuto
	require.NoError(t, store.SaveSession(ctx, again))
	assert.Len(t, conn.Rows, 1)
	got, ok, err := store.GetSession(ctx, "a")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, domain.ResetAuto, got.Reason)
}

func TestStoreRejectsMissingID(t *testing.T) {
	store, _ := newStubStore(t)
	require.Error(t, store.SaveSession(context.Background(), domain.Session{}))
}

func TestStoreSurfacesDriverFailures(t *testing.T) {
	t.Run("open", func(t *testing.T) {
		restore := OverrideSQLOpen(func(string, string) (*sql.DB, error) { return nil, errors.New("boom") })
		defer restore()
		_, err := NewStore(context.Background(), "postgres://example")
		require.ErrorContains(t, err, "open postgres")
	})
	t.Run("ping", func(t *testing.T) {
		db, conn := testutil.NewStubDB()
		conn.FailPing = true
		restore := OverrideSQLOpen(func(string, string) (*sql.DB, error) { return db, nil })
		defer restore()
		_, err := NewStore(context.Background(), "")
		require.ErrorContains(t, err, "ping postgres")
	})
	t.Run("query", func(t *testing.T) {
		store, conn := newStubStore(t)
		conn.FailQuery = true
		_, err := store.ListSessions(context.Background(), 0)
		require.ErrorContains(t, err, "select sessions")
	})
}
