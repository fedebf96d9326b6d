package serve

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Tresorkaseka/Flashnotify/internal/conf"
	"github.com/Tresorkaseka/Flashnotify/internal/daemon"
)

// Command creates the serve command, which runs the notification engine
// until interrupted.
func Command(settings *conf.Settings) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the notification engine as a daemon",
		Long:  "Start the dispatcher with all configured delivery channels, the result archive, the observability endpoint and the host resource monitor, and keep running until interrupted.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return daemon.Run(cmd.Context(), settings)
		},
	}

	if err := setupFlags(cmd, settings); err != nil {
		fmt.Printf("error setting up flags: %v\n", err)
		os.Exit(1)
	}

	return cmd
}

// setupFlags configures flags specific to the serve command.
func setupFlags(cmd *cobra.Command, settings *conf.Settings) error {
	cmd.Flags().IntVar(&settings.Dispatch.Workers, "workers", viper.GetInt("dispatch.workers"), "Number of dispatch workers")
	cmd.Flags().IntVar(&settings.Dispatch.QueueSize, "queuesize", viper.GetInt("dispatch.queuesize"), "Capacity of the pending notification queue")
	cmd.Flags().BoolVar(&settings.Observability.Enabled, "observability", viper.GetBool("observability.enabled"), "Enable Prometheus metrics and health endpoint")
	cmd.Flags().StringVar(&settings.Observability.Listen, "listen", viper.GetString("observability.listen"), "Listen address and port of the metrics endpoint")
	cmd.Flags().BoolVar(&settings.Monitor.Enabled, "monitor", viper.GetBool("monitor.enabled"), "Enable host resource monitoring")

	// Bind flags to the viper settings
	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		return fmt.Errorf("error binding flags: %v", err)
	}

	return nil
}
