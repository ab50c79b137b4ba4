package commands

import (
	"incov-backend/lib/timezone"
	"incov-backend/services/report"
	"log/slog"

	"github.com/spf13/cobra"
)

var (
	renderCsv string
	renderOut string
)

func init() {
	renderCmd.Flags().StringVar(&renderCsv, "csv", "", "The csv to render, defaults to today's file in the data directory.")
	renderCmd.Flags().StringVarP(&renderOut, "out", "o", "", "Where to write the page, defaults to index.html in the report directory.")
	rootCmd.AddCommand(renderCmd)
}

var renderCmd = &cobra.Command{
	Use:   "render [--csv <file.csv>] [--out <index.html>]",
	Short: "Renders the html report from an already written csv.",
	RunE: func(cmd *cobra.Command, args []string) error {
		now := timezone.Now()
		path := renderCsv
		if path == "" {
			path = report.CSVPath(cfg.DataDir, now)
		}
		out := renderOut
		if out == "" {
			out = cfg.HtmlPath()
		}

		records, err := report.ReadCSV(path)
		if err != nil {
			return err
		}
		tmpl, err := report.LoadTemplate(cfg.Report.Template)
		if err != nil {
			return err
		}
		err = report.WriteHTML(out, tmpl, records, report.Summarize(records, now))
		if err != nil {
			return err
		}
		slog.Info("rendered report", "csv", path, "out", out, "states", len(records))
		return nil
	},
}
