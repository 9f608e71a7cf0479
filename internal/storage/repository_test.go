package storage_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"moneyplanner/internal/storage"
	"moneyplanner/internal/storage/file"
	"moneyplanner/internal/storage/memory"
)

func newSQLite(t *testing.T, historyLimit int) *storage.SQLiteRepository {
	t.Helper()
	repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "data", "planner.db"), historyLimit)
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })
	return repo
}

// Every backend must satisfy the same contract.
func TestStoreContract(t *testing.T) {
	fileStore, err := file.New(filepath.Join(t.TempDir(), "nested", "planner.json"))
	require.NoError(t, err)

	stores := map[string]storage.Store{
		"memory": memory.New(),
		"file":   fileStore,
		"sqlite": newSQLite(t, 0),
	}

	for name, s := range stores {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			_, err := s.Load(ctx)
			assert.ErrorIs(t, err, storage.ErrNotFound)

			require.NoError(t, s.Store(ctx, []byte(`{"currentBalance": 1}`)))
			require.NoError(t, s.Store(ctx, []byte(`{"currentBalance": 2, "note": "🍕"}`)))

			got, err := s.Load(ctx)
			require.NoError(t, err)
			assert.JSONEq(t, `{"currentBalance": 2, "note": "🍕"}`, string(got))
		})
	}
}

func TestSQLiteHistoryIsBounded(t *testing.T) {
	repo := newSQLite(t, 2)
	ctx := context.Background()

	for _, doc := range []string{`{"v":1}`, `{"v":2}`, `{"v":3}`} {
		require.NoError(t, repo.Store(ctx, []byte(doc)))
	}

	history, err := repo.History(ctx, 10)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Greater(t, history[0].ID, history[1].ID)
	assert.Equal(t, len(`{"v":3}`), history[0].Size)

	old, err := repo.LoadVersion(ctx, history[1].ID)
	require.NoError(t, err)
	assert.Equal(t, `{"v":2}`, string(old))

	_, err = repo.LoadVersion(ctx, 9999)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestSQLiteReopenKeepsDocument(t *testing.T) {
	path := filepath.Join(t.TempDir(), "planner.db")
	ctx := context.Background()

	repo, err := storage.NewSQLiteRepository(path, 0)
	require.NoError(t, err)
	require.NoError(t, repo.Store(ctx, []byte(`{"v":1}`)))
	require.NoError(t, repo.Close())

	repo, err = storage.NewSQLiteRepository(path, 0)
	require.NoError(t, err)
	defer repo.Close()

	got, err := repo.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, `{"v":1}`, string(got))
	assert.NoError(t, repo.Ping(ctx))
}

func TestMemoryStoreCopiesDocuments(t *testing.T) {
	s := memory.New()
	ctx := context.Background()
	doc := []byte(`{"v":1}`)
	require.NoError(t, s.Store(ctx, doc))
	doc[2] = 'x'

	got, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, `{"v":1}`, string(got))
	assert.Equal(t, 1, s.Saves())
}

func TestFileStoreRejectsEmptyPath(t *testing.T) {
	_, err := file.New("")
	assert.Error(t, err)
}
