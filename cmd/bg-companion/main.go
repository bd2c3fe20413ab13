// Command bg-companion records Hearthstone Battlegrounds matches from
// Power.log.
package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/ramonehamilton/BG-Companion/internal/version"
)

// Global flags shared by every subcommand.
var (
	configPath string
	envFile    string
	logLevel   string
	logFormat  string
)

func main() {
	root := &cobra.Command{
		Use:          version.Service,
		Short:        "Record Hearthstone Battlegrounds matches from Power.log",
		SilenceUsage: true,
	}
	root.Version = version.GetVersion()
	root.SetVersionTemplate("{{.Version}}\n")

	flags := root.PersistentFlags()
	flags.StringVar(&configPath, "config", "", "Config file (default ~/.bg-companion/config.toml)")
	flags.StringVar(&envFile, "env-file", ".env", "Environment file loaded before BGC_* overrides")
	flags.StringVar(&logLevel, "log-level", "info", "Log level: debug, info, warn or error")
	flags.StringVar(&logFormat, "log-format", "console", "Log format: console or json")

	root.AddCommand(watchCmd())
	root.AddCommand(replayCmd())
	root.AddCommand(analyzeCmd())
	root.AddCommand(matchesCmd())
	root.AddCommand(backupCmd())
	root.AddCommand(configCmd())
	root.AddCommand(versionCmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			cmd.Println(version.GetVersion())
		},
	}
}
