package cmd

import (
	"fmt"

	"github.com/charmbracelet/bubbles/table"
	"github.com/kerbaras/kindlize/pkg/data"
	"github.com/spf13/cobra"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show past conversions",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		limit, _ := cmd.Flags().GetInt("limit")

		repo, err := data.NewDuckDBRepository(store.Settings().HistoryDB)
		cobra.CheckErr(err)
		defer repo.Close()

		conversions, err := repo.ListConversions(limit)
		cobra.CheckErr(err)

		if len(conversions) == 0 {
			fmt.Println("🕘 No conversions yet. Use 'kindlize convert' or the browser to make one.")
			return
		}

		columns := []table.Column{
			{Title: "When", Width: 16},
			{Title: "Novel", Width: 24},
			{Title: "Item", Width: 24},
			{Title: "Format", Width: 6},
			{Title: "Status", Width: 8},
			{Title: "Mailed", Width: 6},
		}

		rows := []table.Row{}
		for _, c := range conversions {
			mailed := ""
			if c.Emailed {
				mailed = "yes"
			}
			rows = append(rows, table.Row{
				c.StartedAt.Local().Format("2006-01-02 15:04"),
				truncateString(c.Novel, 22),
				truncateString(c.Title, 22),
				c.Format,
				c.Status,
				mailed,
			})
		}

		fmt.Printf("\n🕘 History (%d conversions)\n\n", len(conversions))
		fmt.Println(renderTable(columns, rows))

		for _, c := range conversions {
			if c.Status == "failed" && c.Error != "" {
				fmt.Printf("⚠️  %s / %s: %s\n", c.Novel, c.Title, c.Error)
			}
		}
	},
}

func init() {
	historyCmd.Flags().IntP("limit", "n", 20, "Number of conversions to show")
}
