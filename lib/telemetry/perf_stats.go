package telemetry

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/shirou/gopsutil/v4/process"
)

var meter = Meter("incov.run_stats")

type RunStats struct {
	Elapsed    time.Duration
	CPUPercent float64
	RSSBytes   uint64
}

// RecordRunStats samples this process once, at the end of a run, and
// records duration, cpu and resident memory as gauges.
func RecordRunStats(ctx context.Context, started time.Time) RunStats {
	stats := RunStats{Elapsed: time.Since(started)}

	proc, err := process.NewProcessWithContext(ctx, int32(os.Getpid()))
	if err != nil {
		slog.WarnContext(ctx, "failed to inspect own process", "err", err)
		return stats
	}
	cpu, err := proc.CPUPercentWithContext(ctx)
	if err == nil {
		stats.CPUPercent = cpu
	}
	mem, err := proc.MemoryInfoWithContext(ctx)
	if err == nil && mem != nil {
		stats.RSSBytes = mem.RSS
	}

	elapsedGauge, _ := meter.Float64Gauge("run_seconds")
	cpuGauge, _ := meter.Float64Gauge("cpu_usage")
	memoryGauge, _ := meter.Int64Gauge("rss_mb")
	elapsedGauge.Record(ctx, stats.Elapsed.Seconds())
	cpuGauge.Record(ctx, stats.CPUPercent)
	memoryGauge.Record(ctx, int64(stats.RSSBytes/1_000_000))

	return stats
}
