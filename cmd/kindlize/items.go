package cmd

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/kerbaras/kindlize/pkg/data"
	"github.com/kerbaras/kindlize/pkg/integrations"
	"github.com/kerbaras/kindlize/pkg/library"
	"github.com/kerbaras/kindlize/pkg/services"
	"github.com/spf13/cobra"
)

var itemsCmd = &cobra.Command{
	Use:   "items <novel>",
	Short: "List the text files of a novel",
	Long:  "List the convertible text files inside a novel folder. The novel is matched by folder name or title.",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		settings := store.Settings()
		cobra.CheckErr(settings.RequireLibraryRoot())

		scanner := library.NewScanner()
		novel := findNovel(scanner, settings.LibraryRoot, args[0])
		items, err := scanner.Items(settings.LibraryRoot, novel)
		cobra.CheckErr(err)

		if len(items) == 0 {
			fmt.Printf("📭 No text files in %s\n", novel.Folder)
			return
		}

		dir := filepath.Join(settings.LibraryRoot, novel.Folder)
		fmt.Printf("\n📖 %s (%d items)\n\n", novel.Title, len(items))
		for _, item := range items {
			mark := "○"
			if _, err := os.Stat(services.OutputPath(dir, item.Title, integrations.FormatMOBI)); err == nil {
				mark = "●"
			}
			fmt.Printf("  %s %s\n", mark, item.Title)
		}
	},
}

func findNovel(scanner *library.Scanner, root, name string) data.Novel {
	novel, ok := library.Find(scanner.Novels(root), name)
	if !ok {
		cobra.CheckErr(fmt.Errorf("%w: %s", library.ErrNovelNotFound, name))
	}
	return novel
}

func findItem(scanner *library.Scanner, root string, novel data.Novel, name string) data.TextItem {
	items, err := scanner.Items(root, novel)
	if err != nil && !errors.Is(err, library.ErrNovelNotFound) {
		cobra.CheckErr(err)
	}
	for _, item := range items {
		if item.FileName == name || item.Title == name {
			return item
		}
	}
	cobra.CheckErr(fmt.Errorf("no text file %q in %s", name, novel.Folder))
	return data.TextItem{}
}
