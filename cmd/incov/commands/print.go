package commands

import (
	"fmt"
	"incov-backend/lib/scrapers/mohfw"
	"incov-backend/lib/timezone"
	"incov-backend/services/report"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var printFile string

func init() {
	printCmd.Flags().StringVarP(&printFile, "file", "f", "", "Extract from a saved copy of the page instead of fetching it.")
	rootCmd.AddCommand(printCmd)
}

func loadRecords(cmd *cobra.Command, file string) ([]mohfw.RegionRecord, error) {
	var markup []byte
	var err error
	if file != "" {
		markup, err = os.ReadFile(file)
	} else {
		fetcher := mohfw.NewFetcher(mohfw.FetcherOptions{
			Url:              cfg.Source.Url,
			Timeout:          cfg.Timeout(),
			CloudflareBypass: cfg.Source.CloudflareBypass,
			Output:           httpOutput(),
		})
		markup, err = fetcher.Fetch(cmd.Context())
	}
	if err != nil {
		return nil, err
	}
	return mohfw.Extract(markup, cfg.Selector())
}

var printCmd = &cobra.Command{
	Use:   "print [--file <page.html>]",
	Short: "Prints the state wise table without writing anything.",
	RunE: func(cmd *cobra.Command, args []string) error {
		records, err := loadRecords(cmd, printFile)
		if err != nil {
			return err
		}
		summary := report.Summarize(records, timezone.Now())

		t := table.NewWriter()
		t.SetOutputMirror(os.Stdout)
		if cfg.Selector().Columns.Split() {
			t.AppendHeader(table.Row{"State/UT", "Confirmed (Indian)", "Confirmed (Foreign)", "Cured/Discharged", "Death"})
			domestic, foreign := 0, 0
			for _, r := range records {
				t.AppendRow(table.Row{r.Region, r.ConfirmedDomestic, r.ConfirmedForeign, r.Recovered, r.Deaths})
				domestic += r.ConfirmedDomestic
				foreign += r.ConfirmedForeign
			}
			t.AppendFooter(table.Row{
				fmt.Sprintf("%d states", summary.RegionCount),
				domestic, foreign, summary.TotalRecovered, summary.TotalDeaths,
			})
		} else {
			t.AppendHeader(table.Row{"State/UT", "Confirmed", "Cured/Discharged", "Death"})
			for _, r := range records {
				t.AppendRow(table.Row{r.Region, r.Confirmed(), r.Recovered, r.Deaths})
			}
			t.AppendFooter(table.Row{
				fmt.Sprintf("%d states", summary.RegionCount),
				summary.TotalConfirmed, summary.TotalRecovered, summary.TotalDeaths,
			})
		}
		t.SetStyle(table.StyleRounded)
		t.Render()
		return nil
	},
}
