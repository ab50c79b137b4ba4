package trend

import (
	"context"
	"incov-backend/lib/testutil"
	"incov-backend/services/trend/db"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func setupStore(t testing.TB) (HistoryStore, func()) {
	res, cleanup := testutil.SetupService(t, testutil.ServiceParams{
		Name:     "services/trend",
		DbSchema: db.Schema,
	})
	return NewHistoryStore(res.DB), cleanup
}

func TestHistoryStoreNeverRewritesPastKeys(t *testing.T) {
	store, cleanup := setupStore(t)
	defer cleanup()
	ctx := context.Background()

	seed := Series{
		{Date: "3/23/20", Value: 40},
		{Date: "3/24/20", Value: 42},
	}
	require.NoError(t, store.Seed(ctx, Recovered, seed))

	// reseeding with different values is ignored
	require.NoError(t, store.Seed(ctx, Recovered, Series{{Date: "3/23/20", Value: 1}}))

	day := time.Date(2020, 3, 25, 10, 0, 0, 0, time.UTC)
	require.NoError(t, store.Put(ctx, Recovered, day, 43))
	// a second run on the same day overwrites its own key
	require.NoError(t, store.Put(ctx, Recovered, day.Add(time.Hour), 45))

	series, err := store.Series(ctx, Recovered)
	require.NoError(t, err)
	require.Equal(t, Series{
		{Date: "3/23/20", Value: 40},
		{Date: "3/24/20", Value: 42},
		{Date: "3/25/20", Value: 45},
	}, series)
}

func TestHistoryStoreTodayMatchesSeedKey(t *testing.T) {
	store, cleanup := setupStore(t)
	defer cleanup()
	ctx := context.Background()

	require.NoError(t, store.Seed(ctx, Recovered, Series{{Date: "4/1/20", Value: 10}}))
	require.NoError(t, store.Put(ctx, Recovered, time.Date(2020, 4, 1, 8, 0, 0, 0, time.UTC), 12))

	series, err := store.Series(ctx, Recovered)
	require.NoError(t, err)
	require.Equal(t, Series{{Date: "4/1/20", Value: 12}}, series)
}

func TestHistoryStoreZeroPaddedSeedDiverges(t *testing.T) {
	store, cleanup := setupStore(t)
	defer cleanup()
	ctx := context.Background()

	require.NoError(t, store.Seed(ctx, Recovered, Series{{Date: "04/01/20", Value: 10}}))
	require.NoError(t, store.Put(ctx, Recovered, time.Date(2020, 4, 1, 8, 0, 0, 0, time.UTC), 12))

	series, err := store.Series(ctx, Recovered)
	require.NoError(t, err)
	require.Len(t, series, 2)
}

func TestHistoryStoreSeparatesSeries(t *testing.T) {
	store, cleanup := setupStore(t)
	defer cleanup()
	ctx := context.Background()

	require.NoError(t, store.Seed(ctx, Recovered, Series{{Date: "4/1/20", Value: 10}}))
	require.NoError(t, store.Seed(ctx, Deaths, Series{{Date: "4/1/20", Value: 3}}))

	series, err := store.Series(ctx, Deaths)
	require.NoError(t, err)
	require.Equal(t, Series{{Date: "4/1/20", Value: 3}}, series)
}

func TestHistoryConfigOpenDB(t *testing.T) {
	_, err := HistoryConfig{}.OpenDB()
	require.Error(t, err)

	path := filepath.Join(t.TempDir(), "state", "history.db")
	database, err := HistoryConfig{File: path}.OpenDB()
	require.NoError(t, err)
	defer database.Close()

	store := NewHistoryStore(database)
	ctx := context.Background()
	require.NoError(t, store.Seed(ctx, Recovered, Series{{Date: "4/1/20", Value: 10}}))
	series, err := store.Series(ctx, Recovered)
	require.NoError(t, err)
	require.Len(t, series, 1)
}
