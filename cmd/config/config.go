package config

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Tresorkaseka/Flashnotify/internal/conf"
)

// Command returns a cobra command that writes the default configuration file.
func Command() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Write the default configuration file",
		Long:  "Create a configuration file with default settings in the standard location. Fails when a configuration file already exists.",
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := conf.CreateDefaultConfig()
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Configuration file created at %s\n", path)
			return nil
		},
	}
}
