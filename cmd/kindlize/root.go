package cmd

import (
	"os"

	"github.com/kerbaras/kindlize/pkg/app"
	"github.com/kerbaras/kindlize/pkg/config"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfgFile string
	v       = viper.New()
	store   = config.NewStore(v)
)

var rootCmd = &cobra.Command{
	Use:   "kindlize",
	Short: "Send the novels in your synced folder to your Kindle",
	Long: `Browse the novel folders under your library root, convert a chapter's
text file to MOBI through ebook.cdict.info and mail it to your Kindle.

Run without a subcommand to open the interactive browser.`,
	Run: func(cmd *cobra.Command, args []string) {
		// Launch TUI by default
		a := app.NewApp(store)
		if err := a.Run(); err != nil {
			cobra.CheckErr(err)
		}
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ~/.config/kindlize/kindlize.yaml)")
	rootCmd.PersistentFlags().String("root", "", "library root, overrides the library_root setting")
	cobra.CheckErr(v.BindPFlag(config.KeyLibraryRoot, rootCmd.PersistentFlags().Lookup("root")))

	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(itemsCmd)
	rootCmd.AddCommand(convertCmd)
	rootCmd.AddCommand(settingsCmd)
	rootCmd.AddCommand(historyCmd)
}

func initConfig() {
	config.SetDefaults(v)
	cobra.CheckErr(config.Init(v, cfgFile))
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
