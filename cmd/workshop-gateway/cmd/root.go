package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/oshokin/gmpublish/internal/config"
	"github.com/oshokin/gmpublish/internal/service/gateway"
	"github.com/oshokin/gmpublish/internal/version"
)

var (
	// cfgPath stores the configuration file path.
	cfgPath string
	// listenAddress overrides the listen address from the configuration.
	listenAddress string

	// rootCmd represents the base command for the gateway.
	rootCmd = &cobra.Command{
		Use:   "workshop-gateway",
		Short: "Run a local workshop gateway.",
		Long: `Serves the workshop gateway API for local publishing and testing.

Accounts, guard codes and the listings file are read from the configuration file.
Listings survive restarts; uploaded cloud files and trusted sentries do not.`,
		Args: cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			// Setup graceful shutdown handling.
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()

			return gateway.Run(ctx, &gateway.Options{
				ConfigPath:    cfgPath,
				ListenAddress: listenAddress,
			})
		},
	}
)

// Execute runs the workshop-gateway CLI and exits with non-zero status on error.
func Execute() {
	version.AttachCobraVersionCommand(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	rootCmd.Flags().StringVarP(&cfgPath, "config", "c", config.DefaultGatewayConfigFilename, "path to configuration file")
	rootCmd.Flags().StringVarP(&listenAddress, "listen", "l", "", "listen address override, e.g. :27060")
}
