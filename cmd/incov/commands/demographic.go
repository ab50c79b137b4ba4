package commands

import (
	"incov-backend/services/demographic"
	"os"
	"sort"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var demographicFile string

func init() {
	demographicCmd.Flags().StringVarP(&demographicFile, "file", "f", "", "Read the linelist from a file instead of fetching it.")
	rootCmd.AddCommand(demographicCmd)
}

func printTable(name string, counts demographic.Table) {
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetTitle(name)
	t.AppendHeader(table.Row{"Value", "Count"})
	for _, k := range keys {
		t.AppendRow(table.Row{k, counts[k]})
	}
	t.AppendFooter(table.Row{"Total", counts.Total()})
	t.SetStyle(table.StyleRounded)
	t.Render()
}

var demographicCmd = &cobra.Command{
	Use:   "demographic [--file <raw_data.json>]",
	Short: "Builds demographic.json from the case linelist.",
	RunE: func(cmd *cobra.Command, args []string) error {
		var cases []demographic.Case
		if demographicFile != "" {
			body, err := os.ReadFile(demographicFile)
			if err != nil {
				return err
			}
			cases, err = demographic.ParseLinelist(body)
			if err != nil {
				return err
			}
		} else {
			fetcher := demographic.NewLinelistFetcher(demographic.LinelistOptions{
				Url:     cfg.Demographic.Url,
				Timeout: cfg.Timeout(),
				Output:  httpOutput(),
			})
			var err error
			cases, err = fetcher.Fetch(cmd.Context())
			if err != nil {
				return err
			}
		}

		profile := demographic.Build(cases)
		printTable("GENDER", profile.Gender)
		printTable("AGE", profile.Age)
		printTable("CSTATUS", profile.Status)

		return demographic.WriteProfile(cfg.DemographicPath(), profile)
	},
}
