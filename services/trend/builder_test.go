package trend

import (
	"bytes"
	"context"
	"errors"
	"incov-backend/lib/errs"
	"incov-backend/lib/scrapers/mohfw"
	"incov-backend/lib/testutil"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

var testRecords = []mohfw.RegionRecord{
	{Region: "Kerala", ConfirmedDomestic: 10, ConfirmedForeign: 2, Recovered: 3, Deaths: 0},
	{Region: "Delhi", ConfirmedDomestic: 5, ConfirmedForeign: 1, Recovered: 1, Deaths: 1},
}

func TestBuild(t *testing.T) {
	store, cleanup := setupStore(t)
	defer cleanup()

	csv := string(readFixture(t, "confirmed_global.csv"))
	server := testutil.NewMockServer(t, map[string]http.HandlerFunc{
		"GET /confirmed.csv": testutil.Respond(http.StatusOK, "text/csv", csv),
		"GET /deaths.csv":    testutil.Respond(http.StatusOK, "text/csv", csv),
	})

	builder := NewBuilder(BuilderOptions{
		Series: []SeriesConfig{
			{Name: Confirmed, Source: SourceCSV, Url: server.URL + "/confirmed.csv"},
			{Name: Deaths, Source: SourceCSV, Url: server.URL + "/deaths.csv"},
			{Name: Recovered, Source: SourceSeed, Seed: map[string]int{
				"3/24/20": 2,
				"3/23/20": 1,
			}},
		},
		Now: func() time.Time { return time.Date(2020, 3, 25, 6, 0, 0, 0, time.UTC) },
	}, store)

	snapshot, err := builder.Build(context.Background(), testRecords)
	require.NoError(t, err)
	require.Len(t, snapshot[Confirmed], 5)
	require.Equal(t, Series{
		{Date: "3/23/20", Value: 1},
		{Date: "3/24/20", Value: 2},
		{Date: "3/25/20", Value: 4},
	}, snapshot[Recovered])

	var buf bytes.Buffer
	require.NoError(t, EncodeTrend(&buf, snapshot))
	require.Contains(t, buf.String(), `"RECOVERED":{"3/23/20":1,"3/24/20":2,"3/25/20":4}`)
}

func TestBuildPartialFailure(t *testing.T) {
	store, cleanup := setupStore(t)
	defer cleanup()

	server := testutil.NewMockServer(t, map[string]http.HandlerFunc{
		"GET /confirmed.csv": testutil.Respond(http.StatusBadGateway, "", ""),
	})

	builder := NewBuilder(BuilderOptions{
		Series: []SeriesConfig{
			{Name: Confirmed, Source: SourceCSV, Url: server.URL + "/confirmed.csv"},
			{Name: Recovered, Source: SourceSeed, Seed: map[string]int{"3/24/20": 2}},
		},
		Now: func() time.Time { return time.Date(2020, 3, 25, 6, 0, 0, 0, time.UTC) },
	}, store)

	snapshot, err := builder.Build(context.Background(), testRecords)
	var fetchErr *errs.FetchError
	require.True(t, errors.As(err, &fetchErr))
	require.NotContains(t, snapshot, Confirmed)
	require.Len(t, snapshot[Recovered], 2)
}

func TestBuildSeedWithoutRecords(t *testing.T) {
	store, cleanup := setupStore(t)
	defer cleanup()

	builder := NewBuilder(BuilderOptions{
		Series: []SeriesConfig{{Name: Recovered, Source: SourceSeed}},
	}, store)
	_, err := builder.Build(context.Background(), nil)
	require.Error(t, err)
}

func TestWriteTrend(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trend.json")
	err := WriteTrend(path, Snapshot{Recovered: {{Date: "1/1/21", Value: 1}}})
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, "{\"RECOVERED\":{\"1/1/21\":1}}\n", string(data))
}
