package cmd

import (
	"fmt"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/lipgloss"
	"github.com/kerbaras/kindlize/pkg/library"
	"github.com/spf13/cobra"
)

var listCmd = &cobra.Command{
	Use:   "list [keyword]",
	Short: "List the novels in your library",
	Long:  "Display the novel folders under the library root, newest first, optionally filtered by a keyword",
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		settings := store.Settings()
		cobra.CheckErr(settings.RequireLibraryRoot())

		novels := library.NewScanner().Novels(settings.LibraryRoot)
		library.SortNewestFirst(novels)
		if len(args) == 1 {
			novels = library.Filter(novels, args[0])
		}

		if len(novels) == 0 {
			fmt.Printf("📚 No novels found in %s\n", settings.LibraryRoot)
			return
		}

		columns := []table.Column{
			{Title: "Title", Width: 36},
			{Title: "Created", Width: 12},
			{Title: "Cover", Width: 6},
			{Title: "Folder", Width: 36},
		}

		rows := []table.Row{}
		for _, novel := range novels {
			cover := "-"
			if novel.HasCover() {
				cover = "yes"
			}
			rows = append(rows, table.Row{
				truncateString(novel.Title, 34),
				novel.CreatedAt.Format("2006-01-02"),
				cover,
				truncateString(novel.Folder, 34),
			})
		}

		fmt.Printf("\n📚 Library (%d novels)\n\n", len(novels))
		fmt.Println(renderTable(columns, rows))
	},
}

func renderTable(columns []table.Column, rows []table.Row) string {
	t := table.New(
		table.WithColumns(columns),
		table.WithRows(rows),
		table.WithFocused(false),
		table.WithHeight(len(rows)),
	)

	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("240")).
		BorderBottom(true).
		Bold(true)
	s.Selected = s.Selected.
		Foreground(lipgloss.NoColor{}).
		Bold(false)
	t.SetStyles(s)

	return t.View()
}

// truncateString shortens s to max runes, marking the cut with an ellipsis.
func truncateString(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	if max <= 1 {
		return string(r[:max])
	}
	return string(r[:max-1]) + "…"
}
