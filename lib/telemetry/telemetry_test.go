package telemetry

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestInitSlogAppendsToFile(t *testing.T) {
	logFile := filepath.Join(t.TempDir(), "log.txt")

	closer, err := InitSlog(false, logFile)
	require.NoError(t, err)
	slog.Info("CSV WRITE COMPLETE")
	slog.Debug("hidden at info level")
	require.NoError(t, closer.Close())

	contents, err := os.ReadFile(logFile)
	require.NoError(t, err)
	require.Contains(t, string(contents), "CSV WRITE COMPLETE")
	require.NotContains(t, string(contents), "hidden at info level")
}

func TestRecordRunStats(t *testing.T) {
	cleanup := SetupForTesting("test:telemetry")
	defer cleanup()

	stats := RecordRunStats(context.Background(), time.Now().Add(-time.Second))
	require.GreaterOrEqual(t, stats.Elapsed, time.Second)
}
