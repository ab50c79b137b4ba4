package commands

import (
	"context"
	"errors"
	"fmt"
	"incov-backend/lib/configutil"
	"incov-backend/lib/restyutil"
	"incov-backend/lib/serviceutil"
	"incov-backend/lib/telemetry"
	"incov-backend/lib/timezone"
	"incov-backend/services/pipeline"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"
)

var (
	configPath   string
	debug        bool
	timezoneName string
)

// set up by the root command before any subcommand runs
var (
	cfg       pipeline.Config
	logCloser io.Closer
	tel       telemetry.Telemetry
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "config.json5", "The config file to read, <name>.local.<ext> is merged over it.")
	rootCmd.PersistentFlags().BoolVarP(&debug, "debug", "v", false, "Enable debug logging and http dumps.")
	rootCmd.PersistentFlags().StringVar(&timezoneName, "tz", "", "IANA timezone of file dates and report stamps, defaults to IST.")
}

var rootCmd = &cobra.Command{
	Use:           "incov",
	Short:         "incov scrapes the state wise COVID-19 table and publishes the data and report.",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = configutil.ReadConfig[pipeline.Config](configPath)
		missingConfig := errors.Is(err, os.ErrNotExist)
		if missingConfig {
			configutil.OverlayEnv(&cfg)
		} else if err != nil {
			return fmt.Errorf("read config: %w", err)
		}
		cfg = cfg.WithDefaults()

		logFile := cfg.LogFile
		if logFile == "" {
			logFile = "log.txt"
		}
		logCloser, err = telemetry.InitSlog(debug, logFile)
		if err != nil {
			return fmt.Errorf("open log file: %w", err)
		}
		if missingConfig {
			slog.Warn("no config file found, using defaults", "path", configPath)
		}

		if timezoneName != "" {
			err = timezone.Init(timezoneName)
			if err != nil {
				return err
			}
		}

		tel, err = telemetry.SetupFromEnv(cmd.Context(), "incov")
		if errors.Is(err, os.ErrNotExist) {
			slog.Debug("no telemetry.json5 found, telemetry is disabled")
		} else if err != nil {
			slog.Warn("failed to set up telemetry", "err", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second*5)
		defer cancel()
		err := tel.Shutdown(ctx)
		if err != nil {
			slog.Warn("failed to flush telemetry", "err", err)
		}
		if logCloser != nil {
			logCloser.Close()
		}
	},
}

// httpOutput returns the http dump output, only when debugging.
func httpOutput() restyutil.InstrumentOutput {
	if !debug || cfg.HttpDumpDir == "" {
		return nil
	}
	output, err := restyutil.NewFilesystemOutput(cfg.HttpDumpDir)
	if err != nil {
		slog.Warn("failed to create http dump directory", "dir", cfg.HttpDumpDir, "err", err)
		return nil
	}
	return output
}

func ExecuteContext(ctx context.Context) {
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		serviceutil.Fatal("incov failed", err)
	}
}
