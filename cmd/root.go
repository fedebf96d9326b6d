package cmd

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Tresorkaseka/Flashnotify/cmd/channels"
	configcmd "github.com/Tresorkaseka/Flashnotify/cmd/config"
	"github.com/Tresorkaseka/Flashnotify/cmd/send"
	"github.com/Tresorkaseka/Flashnotify/cmd/serve"
	"github.com/Tresorkaseka/Flashnotify/internal/conf"
	"github.com/Tresorkaseka/Flashnotify/internal/logging"
)

// RootCommand creates and returns the root command
func RootCommand(settings *conf.Settings) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:     "flashnotify",
		Short:   "Flashnotify notification dispatch CLI",
		Version: settings.Version,
	}

	// Set up the global flags for the root command.
	setupFlags(rootCmd, settings)

	// Add sub-commands to the root command.
	subcommands := []*cobra.Command{
		send.Command(settings),
		serve.Command(settings),
		channels.Command(settings),
		configcmd.Command(),
	}

	rootCmd.AddCommand(subcommands...)

	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		if settings.Debug {
			logging.SetLevel(slog.LevelDebug)
		}
		return nil
	}

	return rootCmd
}

// setupFlags defines flags that are global to the command line interface
func setupFlags(rootCmd *cobra.Command, settings *conf.Settings) error {
	rootCmd.PersistentFlags().BoolVarP(&settings.Debug, "debug", "d", viper.GetBool("debug"), "Enable debug output")

	if err := viper.BindPFlags(rootCmd.PersistentFlags()); err != nil {
		return fmt.Errorf("error binding flags: %v", err)
	}

	return nil
}
