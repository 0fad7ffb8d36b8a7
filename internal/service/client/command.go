package client

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/mattn/go-isatty"

	"github.com/oshokin/gmpublish/internal/cloud"
	"github.com/oshokin/gmpublish/internal/config"
	"github.com/oshokin/gmpublish/internal/logger"
	"github.com/oshokin/gmpublish/internal/prompt"
	"github.com/oshokin/gmpublish/internal/sentry"
	"github.com/oshokin/gmpublish/internal/service/common"
	"github.com/oshokin/gmpublish/internal/service/publish"
	"github.com/oshokin/gmpublish/internal/service/session"
)

// Options configures one publishing run.
type Options struct {
	// ConfigPath to YAML settings file, defaults to standard filename if empty.
	ConfigPath string
	// Username is the account name.
	Username string
	// Password is the account password.
	Password string
	// Prompter answers guard challenges. Defaults to the process console.
	Prompter session.Prompter
}

// fallbackMachineName is sent when the host cannot be identified.
const fallbackMachineName = "gmpublish"

var (
	errCredentialsRequired = errors.New("username and password must be provided")
	errUnknownLogLevel     = errors.New("unknown log level")
)

// Run publishes the configured addon folder and waits for a final acknowledgment.
// It returns the terminal session state; errors are reserved for setup failures.
func Run(ctx context.Context, opts *Options) (session.State, error) {
	ctx = logger.WithName(ctx, "gmpublish")

	if opts.Username == "" || opts.Password == "" {
		return session.StateFailed, errCredentialsRequired
	}

	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return session.StateFailed, fmt.Errorf("load settings: %w", err)
	}

	level, ok := logger.ParseLogLevel(cfg.LogLevel)
	if !ok {
		return session.StateFailed, fmt.Errorf("%w: %q", errUnknownLogLevel, cfg.LogLevel)
	}

	logger.SetLevel(level)

	prompter := opts.Prompter
	if prompter == nil {
		prompter = prompt.NewConsole()
	}

	machineName, err := common.DetectMachineName()
	if err != nil {
		logger.WarnKV(ctx, "Unable to detect machine name", "error", err)

		machineName = fallbackMachineName
	}

	client, err := common.Dial(ctx, cfg.ServerAddress, common.WithCallTimeout(cfg.Timeout))
	if err != nil {
		return session.StateFailed, err
	}

	defer func() {
		_ = client.Close()
	}()

	progress := cfg.Progress && isatty.IsTerminal(os.Stdout.Fd())
	uploader := cloud.NewUploader(client, cloud.WithProgress(progress))

	pipeline := publish.New(uploader, client, publish.Options{
		AddonDir:    cfg.AddonDir,
		WorkDir:     cfg.WorkDir,
		AppID:       cfg.AppID,
		Compression: cfg.Compression,
	})

	credentials := session.Credentials{
		Username:    opts.Username,
		Password:    opts.Password,
		MachineName: machineName,
	}

	manager := session.NewManager(
		client,
		sentry.NewStore(cfg.SentryFile),
		prompter,
		pipeline,
		credentials,
		session.WithReconnectDelay(cfg.ReconnectDelay),
	)

	logger.InfoKV(ctx, "Publishing addon",
		"server_address", cfg.ServerAddress,
		"addon_dir", cfg.AddonDir,
		"app_id", cfg.AppID)

	state := manager.Run(ctx)

	logger.InfoKV(ctx, "Session ended", "state", state)
	prompter.Acknowledge(ctx, "Done? Press Enter to exit.")

	return state, nil
}
