package commands

import (
	"log/slog"
	"time"

	"hackwatch/lib/serviceutil"
	"hackwatch/lib/telemetry"

	"github.com/spf13/cobra"
)

var watchInterval *time.Duration

func init() {
	watchInterval = watchCmd.Flags().Duration("interval", time.Minute*15, "How long to wait between scans.")
	rootCmd.AddCommand(watchCmd)
}

var watchCmd = &cobra.Command{
	Use:   "watch [--interval <duration>]",
	Short: "Scan all boards on a fixed interval until interrupted.",
	Run: func(cmd *cobra.Command, args []string) {
		cfg := loadConfig()
		scanner, closer := buildScanner(cfg)
		defer closer()

		ctx := serviceutil.SignalContext()
		telemetry.InstrumentPerfStats(ctx)

		// each tick is an independent run; a failed board is retried
		// naturally on the next one
		for {
			_, err := scanner.ScanAll(ctx)
			if err != nil {
				slog.Error("scan run had failures", "err", err)
			}

			slog.Info("sleeping until next scan", "interval", watchInterval.String())
			select {
			case <-time.After(*watchInterval):
			case <-ctx.Done():
				slog.Info("shutting down")
				return
			}
		}
	},
}
