package cmd

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/oshokin/gmpublish/internal/config"
	"github.com/oshokin/gmpublish/internal/service/client"
	"github.com/oshokin/gmpublish/internal/version"
)

// publishFunc runs one publishing session for the given credentials.
type publishFunc func(ctx context.Context, username, password string) error

// newRootCmd builds the gmpublish command around publish.
func newRootCmd(publish publishFunc) *cobra.Command {
	root := &cobra.Command{
		Use:   "gmpublish <username> <password>",
		Short: "Publish the addon folder to the workshop.",
		Long: `Builds the addon in the configured folder, uploads it and creates or updates its workshop listing.

The addon folder must contain addon.json with Title, Description, Icon, Tags, Type and WorkshopID.
A WorkshopID of 0 creates a new listing and writes the new id back to addon.json.
Email and authenticator codes are asked for when the account requires them.

Settings are read from ` + config.DefaultConfigFilename + ` in the working directory when present,
and can be overridden with GMPUBLISH_* environment variables, e.g. GMPUBLISH_ADDON_DIR.`,
		Args: cobra.ExactArgs(2),
		RunE: func(_ *cobra.Command, args []string) error {
			// Setup graceful shutdown handling.
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()

			return publish(ctx, args[0], args[1])
		},
	}

	root.CompletionOptions.DisableDefaultCmd = true
	version.AttachCobraVersionCommand(root)

	return root
}

// credentialArgs keeps two positional arguments away from subcommand routing,
// so a username such as "version" or "help" is still a username.
func credentialArgs(args []string) []string {
	if len(args) != 2 || strings.HasPrefix(args[0], "-") || strings.HasPrefix(args[1], "-") {
		return args
	}

	return append([]string{"--"}, args...)
}

// Execute runs the gmpublish CLI and exits with non-zero status on error.
func Execute() {
	root := newRootCmd(func(ctx context.Context, username, password string) error {
		// The session outcome is reported in the log only.
		_, err := client.Run(ctx, &client.Options{
			Username: username,
			Password: password,
		})

		return err
	})
	root.SetArgs(credentialArgs(os.Args[1:]))

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}
