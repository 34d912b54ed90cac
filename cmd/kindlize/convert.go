package cmd

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"

	"github.com/kerbaras/kindlize/pkg/data"
	"github.com/kerbaras/kindlize/pkg/integrations"
	"github.com/kerbaras/kindlize/pkg/library"
	"github.com/kerbaras/kindlize/pkg/services"
	"github.com/spf13/cobra"
)

// cliNotifier prints controller notifications as they arrive.
type cliNotifier struct{}

func (cliNotifier) Notify(msg string) {
	icon := "💬"
	switch {
	case strings.HasPrefix(msg, "Uploading"), strings.HasPrefix(msg, "Building"):
		icon = "📤"
	case strings.HasPrefix(msg, "Downloaded"), strings.HasPrefix(msg, "Already converted"):
		icon = "📥"
	case strings.HasPrefix(msg, "Sending"):
		icon = "✉️ "
	case msg == "Email sent":
		icon = "✅"
	case strings.Contains(msg, "failed"), strings.Contains(msg, "not configured"):
		icon = "⚠️ "
	}
	fmt.Printf("%s %s\n", icon, msg)
}

var convertCmd = &cobra.Command{
	Use:   "convert <novel> <item>",
	Short: "Convert a text file and optionally mail it",
	Long: `Convert one text file of a novel to MOBI through ebook.cdict.info, or to
EPUB locally with --format epub. The output is written next to the source.
An existing output is reused without contacting the service.

Examples:
  kindlize convert MyNovel chapter1
  kindlize convert MyNovel chapter1.txt --email
  kindlize convert "_tag-MyNovel" chapter1 --format epub`,
	Args: cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		email, _ := cmd.Flags().GetBool("email")
		formatFlag, _ := cmd.Flags().GetString("format")

		format, err := integrations.ParseFormat(formatFlag)
		cobra.CheckErr(err)

		settings := store.Settings()
		cobra.CheckErr(settings.RequireLibraryRoot())

		scanner := library.NewScanner()
		novel := findNovel(scanner, settings.LibraryRoot, args[0])
		item := findItem(scanner, settings.LibraryRoot, novel, args[1])

		var history services.History
		if repo, err := data.NewDuckDBRepository(settings.HistoryDB); err != nil {
			log.Printf("Warning: history disabled: %v", err)
		} else {
			defer repo.Close()
			history = repo
		}

		ctrl := services.NewControllerFromSettings(settings, history, cliNotifier{})

		// Listen for progress
		go func() {
			for progress := range ctrl.Converter().GetProgressChannel() {
				switch {
				case progress.Poll > 1:
					fmt.Printf("  … %s (poll %d)\n", progress.Status, progress.Poll)
				case progress.Poll == 0 && !progress.Status.Terminal():
					fmt.Printf("  %s\n", progress.Status)
				}
			}
		}()

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()

		res, err := ctrl.ConvertAndSend(ctx, novel, item, services.ConvertOptions{Format: format, Email: email})
		if err != nil {
			if res.Path != "" && errors.Is(err, integrations.ErrMailNotConfigured) {
				fmt.Printf("📖 Output: %s\n", res.Path)
			}
			cobra.CheckErr(err)
		}

		fmt.Printf("📖 Output: %s\n", res.Path)
	},
}

func init() {
	convertCmd.Flags().BoolP("email", "e", false, "Mail the result to the configured address")
	convertCmd.Flags().StringP("format", "f", "mobi", "Output format: mobi (remote) or epub (local)")
}
