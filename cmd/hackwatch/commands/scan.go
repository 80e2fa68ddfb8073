package commands

import (
	"log/slog"
	"os"
	"time"

	"hackwatch/lib/serviceutil"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(scanCmd)
}

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Scan every configured board once and record thread changes.",
	Run: func(cmd *cobra.Command, args []string) {
		cfg := loadConfig()
		scanner, closer := buildScanner(cfg)
		defer closer()

		ctx := serviceutil.SignalContext()

		t1 := time.Now()
		_, err := scanner.ScanAll(ctx)
		t2 := time.Now()

		slog.Info("scan finished", "seconds", t2.Sub(t1).Seconds())
		if err != nil {
			os.Exit(1)
		}
	},
}
