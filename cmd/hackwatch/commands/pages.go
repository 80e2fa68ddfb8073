package commands

import (
	"os"

	"hackwatch/lib/scrapers/geekhack"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(pagesCmd)
}

var pagesCmd = &cobra.Command{
	Use:   "pages",
	Short: "Show how many listing pages each configured board currently has.",
	Run: func(cmd *cobra.Command, args []string) {
		cfg := loadConfig()
		client := geekhack.NewClient(geekhack.ClientOptions{})

		t := newTable()
		t.AppendHeader(table.Row{"Board", "Pages"})

		failed := false
		for _, board := range resolveBoards(cfg) {
			count, err := client.PageCount(cmd.Context(), board)
			if err != nil {
				t.AppendRow(table.Row{board.Slug, err.Error()})
				failed = true
				continue
			}
			t.AppendRow(table.Row{board.Slug, count})
		}
		t.Render()

		if failed {
			os.Exit(1)
		}
	},
}
