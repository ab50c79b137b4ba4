package commands

import (
	"fmt"
	"incov-backend/lib/timezone"
	"incov-backend/services/report"
	"incov-backend/services/trend"
	"log/slog"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var trendCsv string

func init() {
	trendCmd.Flags().StringVar(&trendCsv, "csv", "", "The csv today's seeded values are taken from, defaults to today's file in the data directory.")
	rootCmd.AddCommand(trendCmd)
}

var trendCmd = &cobra.Command{
	Use:   "trend [--csv <file.csv>]",
	Short: "Builds trend.json from the time series and the local history.",
	RunE: func(cmd *cobra.Command, args []string) error {
		path := trendCsv
		if path == "" {
			path = report.CSVPath(cfg.DataDir, timezone.Now())
		}
		records, err := report.ReadCSV(path)
		if err != nil {
			slog.Warn("no state records for today, seeded series will fail", "csv", path, "err", err)
			records = nil
		}

		history, err := cfg.Trend.History.OpenDB()
		if err != nil {
			return fmt.Errorf("open trend history: %w", err)
		}
		defer history.Close()

		builder := trend.NewBuilder(trend.BuilderOptions{
			Country: cfg.Trend.Country,
			Series:  cfg.Trend.Series,
			Timeout: cfg.Timeout(),
			Output:  httpOutput(),
		}, trend.NewHistoryStore(history))

		snapshot, buildErr := builder.Build(cmd.Context(), records)

		t := table.NewWriter()
		t.SetOutputMirror(os.Stdout)
		t.AppendHeader(table.Row{"Series", "Points", "Last Date", "Last Value"})
		for _, series := range cfg.Trend.Series {
			points := snapshot[series.Name]
			if len(points) == 0 {
				t.AppendRow(table.Row{series.Name, 0, "", ""})
				continue
			}
			last := points[len(points)-1]
			t.AppendRow(table.Row{series.Name, len(points), last.Date, last.Value})
		}
		t.SetStyle(table.StyleRounded)
		t.Render()

		if buildErr != nil {
			return buildErr
		}
		return trend.WriteTrend(cfg.TrendPath(), snapshot)
	},
}
