package commands

import (
	"database/sql"
	"fmt"
	"incov-backend/services/notify"
	"incov-backend/services/pipeline"
	"os"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(runCmd)
}

func openHistory() (*sql.DB, error) {
	if !cfg.Trend.Enabled {
		return nil, nil
	}
	return cfg.Trend.History.OpenDB()
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Runs every stage once: scrape, write, render, enrich, publish and notify.",
	RunE: func(cmd *cobra.Command, args []string) error {
		history, err := openHistory()
		if err != nil {
			return fmt.Errorf("open trend history: %w", err)
		}
		if history != nil {
			defer history.Close()
		}

		p, err := pipeline.New(cfg, pipeline.Options{
			History: history,
			Output:  httpOutput(),
		})
		if err != nil {
			return err
		}

		result := p.Run(cmd.Context())

		t := notify.StageTable(result.Stages)
		t.SetOutputMirror(os.Stdout)
		t.Render()

		if !result.Success {
			return fmt.Errorf("run %s failed at stage %s", result.RunID, result.FailedStage)
		}
		return nil
	},
}
