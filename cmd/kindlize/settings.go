package cmd

import (
	"fmt"
	"strings"

	"github.com/kerbaras/kindlize/pkg/config"
	"github.com/kerbaras/kindlize/pkg/integrations"
	"github.com/spf13/cobra"
)

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Show or change settings",
}

var settingsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the current settings",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		if path := v.ConfigFileUsed(); path != "" {
			fmt.Printf("⚙️  %s\n\n", path)
		} else {
			fmt.Printf("⚙️  no config file yet, showing defaults\n\n")
		}
		for _, key := range config.Keys() {
			value := store.Display(key)
			if value == "" {
				value = "(not set)"
			}
			fmt.Printf("  %-18s %s\n", key, value)
		}
	},
}

var settingsSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Change one setting and save",
	Long: fmt.Sprintf(`Change one setting and save it to the config file.
The SMTP password is stored in the system keyring when one is available.

Keys: %s`, strings.Join(config.Keys(), ", ")),
	Args: cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		key, value := args[0], args[1]
		if !knownKey(key) {
			cobra.CheckErr(fmt.Errorf("unknown setting %q", key))
		}
		if key == config.KeyDevice {
			if _, ok := integrations.GetDeviceProfile(value); !ok {
				cobra.CheckErr(fmt.Errorf("unknown device: %s. Use 'kindlize settings devices' to see available options", value))
			}
		}

		cobra.CheckErr(store.Update(map[string]string{key: value}))
		fmt.Printf("✅ %s = %s\n", key, store.Display(key))
	},
}

var settingsDevicesCmd = &cobra.Command{
	Use:   "devices",
	Short: "List the Kindle models covers can be sized for",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		current := store.Settings().Device
		fmt.Println("📱 Kindle devices:")
		for _, line := range integrations.ListDevices() {
			mark := " "
			if strings.HasPrefix(line, current+":") {
				mark = "*"
			}
			fmt.Printf(" %s %s\n", mark, line)
		}
	},
}

func knownKey(key string) bool {
	for _, k := range config.Keys() {
		if k == key {
			return true
		}
	}
	switch key {
	case config.KeyServiceRetries, config.KeyServiceRetryWait, config.KeyServiceTimeout,
		config.KeyServiceMaxPolls, config.KeyServicePollInterval, config.KeyServiceRateLimit:
		return true
	}
	return false
}

func init() {
	settingsCmd.AddCommand(settingsShowCmd)
	settingsCmd.AddCommand(settingsSetCmd)
	settingsCmd.AddCommand(settingsDevicesCmd)
}
