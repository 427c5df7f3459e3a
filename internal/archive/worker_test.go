package archive

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"strongholdcore/internal/blob"
	"strongholdcore/internal/config"
	"strongholdcore/internal/core"
	"strongholdcore/internal/infra/persistence/memory"
	"strongholdcore/pkg/domain"
)

func finished(id string) domain.Session {
	end := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	return domain.Session{
		ID:        id,
		StartedAt: end.Add(-2 * time.Minute),
		EndedAt:   end,
		Reason:    domain.ResetManual,
		Throws:    []domain.Throw{domain.NewThrow(0, 0, -45), domain.NewThrow(100, 0, 0)},
	}
}

type failingStore struct{ *memory.Store }

func (failingStore) SaveSession(context.Context, domain.Session) error {
	return errors.New("disk full")
}

func TestWorkerSavesAndExports(t *testing.T) {
	store := memory.NewStore()
	exports := blob.NewMemory()
	w := NewWorker(store, exports, Options{Prefix: DefaultPrefix})
	w.Start()

	require.NoError(t, w.Archive(context.Background(), finished("s1")))
	require.NoError(t, w.Stop(context.Background()))

	got, ok, err := store.GetSession(context.Background(), "s1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Len(t, got.Throws, 2)

	info, rc, err := exports.Get(context.Background(), "sessions/s1.json")
	require.NoError(t, err)
	defer func() { _ = rc.Close() }()
	assert.Equal(t, "application/json", info.ContentType)
	assert.Equal(t, "manual", info.Metadata["reason"])
	body, err := io.ReadAll(rc)
	require.NoError(t, err)
	var decoded domain.Session
	require.NoError(t, json.Unmarshal(body, &decoded))
	assert.Equal(t, "s1", decoded.ID)
}

func TestWorkerQueueFullAndStopped(t *testing.T) {
	w := NewWorker(memory.NewStore(), nil, Options{QueueSize: 1})
	require.NoError(t, w.Archive(context.Background(), finished("a")))
	err := w.Archive(context.Background(), finished("b"))
	require.ErrorIs(t, err, ErrQueueFull)

	// queued work is drained on stop even though Start ran late
	w.Start()
	require.NoError(t, w.Stop(context.Background()))
	assert.ErrorIs(t, w.Archive(context.Background(), finished("c")), ErrStopped)
	sessions, err := w.store.ListSessions(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	assert.Equal(t, "a", sessions[0].ID)
}

func TestWorkerExportsEvenWhenSaveFails(t *testing.T) {
	exports := blob.NewMemory()
	w := NewWorker(failingStore{memory.NewStore()}, exports, Options{Prefix: "x/"})
	w.Start()
	require.NoError(t, w.Archive(context.Background(), finished("s2")))
	require.NoError(t, w.Stop(context.Background()))
	list, err := exports.List(context.Background(), "x/")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "x/s2.json", list[0].Key)
}

func TestWorkerBehindStateHandlerReset(t *testing.T) {
	store := memory.NewStore()
	w := NewWorker(store, nil, Options{})
	w.Start()
	settings := core.DefaultSettings()
	h, err := core.NewStateHandler(settings, core.WithArchiver(w))
	require.NoError(t, err)
	defer h.Close()

	ctx := context.Background()
	h.AppendThrow(ctx, domain.NewThrow(0, 0, -45))
	h.ResetIfNotLocked(ctx)
	require.NoError(t, w.Stop(context.Background()))

	sessions, err := store.ListSessions(ctx, 0)
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	assert.Equal(t, domain.ResetManual, sessions[0].Reason)
	assert.Len(t, sessions[0].Throws, 1)
}

func TestOpenStoreDrivers(t *testing.T) {
	ctx := context.Background()
	mem, err := OpenStore(ctx, config.StorageConfig{Driver: "memory"})
	require.NoError(t, err)
	require.NoError(t, mem.Close())

	path := filepath.Join(t.TempDir(), "nested", "archive.db")
	sq, err := OpenStore(ctx, config.StorageConfig{Driver: "sqlite", SQLitePath: path})
	require.NoError(t, err)
	require.NoError(t, sq.SaveSession(ctx, finished("db")))
	require.NoError(t, sq.Close())
	reopened, err := OpenStore(ctx, config.StorageConfig{Driver: "sqlite", SQLitePath: path})
	require.NoError(t, err)
	_, ok, err := reopened.GetSession(ctx, "db")
	require.NoError(t, err)
	assert.True(t, ok)
	require.NoError(t, reopened.Close())

	_, err = OpenStore(ctx, config.StorageConfig{Driver: "mysql"})
	require.Error(t, err)
}
