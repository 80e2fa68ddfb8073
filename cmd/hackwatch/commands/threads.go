package commands

import (
	"fmt"
	"os"
	"time"

	"hackwatch/lib/scrapers/geekhack"
	"hackwatch/lib/serviceutil"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var threadsBoard *string
var threadsLimit *int64

func init() {
	threadsBoard = threadsCmd.Flags().String("board", geekhack.InterestChecks.Slug, "Board slug to list threads from.")
	threadsLimit = threadsCmd.Flags().Int64("limit", 25, "Maximum number of threads to list.")
	rootCmd.AddCommand(threadsCmd)
}

func newTable() table.Writer {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.SetOutputMirror(os.Stdout)
	return t
}

var threadsCmd = &cobra.Command{
	Use:   "threads [--board <slug>] [--limit <n>]",
	Short: "List tracked threads for a board, newest activity first.",
	Run: func(cmd *cobra.Command, args []string) {
		cfg := loadConfig()

		board, ok := geekhack.BoardBySlug(*threadsBoard)
		if !ok {
			serviceutil.Fatal("unknown board", fmt.Errorf("no board with slug %q", *threadsBoard))
		}

		store, database := openStore(cfg)
		defer database.Close()

		threads, err := store.List(cmd.Context(), board, *threadsLimit)
		if err != nil {
			serviceutil.Fatal("failed to list threads", err)
		}

		t := newTable()
		t.AppendHeader(table.Row{"Topic", "Title", "Replies", "Last Reply", "By"})
		for _, thread := range threads {
			t.AppendRow(table.Row{
				thread.ID,
				thread.Title,
				thread.Replies,
				thread.LastReplyAt.Format(time.DateTime),
				thread.LastReplyBy,
			})
		}
		t.Render()
	},
}
