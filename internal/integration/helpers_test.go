package integration

import (
	"context"
	"net"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/gmpublish/internal/addon"
	"github.com/oshokin/gmpublish/internal/config"
	"github.com/oshokin/gmpublish/internal/prompt"
	"github.com/oshokin/gmpublish/internal/service/client"
	"github.com/oshokin/gmpublish/internal/service/gateway"
	"github.com/oshokin/gmpublish/internal/service/session"
)

// reservePort returns a free TCP address on localhost.
func reservePort(t *testing.T) string {
	t.Helper()

	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	addr := l.Addr().String()
	_ = l.Close()

	return addr
}

// startGateway runs a real gateway with the given accounts.
// Returns the listings file path; the gateway stops when the test ends.
func startGateway(t *testing.T, addr string, accounts ...config.Account) string {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "workshop-gateway.yaml")
	listingsPath := filepath.Join(dir, "listings.yaml")

	require.NoError(
		t,
		config.SaveGateway(cfgPath, &config.GatewayConfig{
			ListenAddress:  addr,
			ListingsFile:   listingsPath,
			FirstListingID: 500,
			LogLevel:       "warn",
			Accounts:       accounts,
		}),
	)

	go func() {
		options := &gateway.Options{
			ConfigPath: cfgPath,
		}

		_ = gateway.Run(ctx, options) //nolint:errcheck // The gateway stops with the test.
	}()

	// Wait briefly for the gateway to start listening.
	time.Sleep(150 * time.Millisecond)

	t.Cleanup(func() {
		cancel()
		time.Sleep(100 * time.Millisecond)
	})

	return listingsPath
}

// publisher is one workstation: an addon folder, a sentry file and a settings file.
type publisher struct {
	addonDir   string
	sentryFile string
	configPath string
}

// newPublisher prepares an addon folder and settings pointing at addr.
func newPublisher(t *testing.T, addr string) *publisher {
	t.Helper()

	dir := t.TempDir()
	p := &publisher{
		addonDir:   filepath.Join(dir, "Addon"),
		sentryFile: filepath.Join(dir, "sentry.bin"),
		configPath: filepath.Join(dir, "gmpublish.yaml"),
	}

	require.NoError(t, os.MkdirAll(filepath.Join(p.addonDir, "lua", "autorun"), 0o750))
	require.NoError(t, os.WriteFile(
		filepath.Join(p.addonDir, "lua", "autorun", "hello.lua"),
		[]byte(`print("hello from the workshop")`),
		0o600,
	))
	require.NoError(t, os.WriteFile(filepath.Join(p.addonDir, "icon.jpg"), []byte("\xff\xd8\xff\xe0 icon"), 0o600))

	manifest := &addon.Manifest{
		Title:       "Hello",
		Description: "Prints a greeting.",
		Icon:        "icon.jpg",
		Tags:        []string{"fun", "build"},
		Type:        1,
	}
	require.NoError(t, manifest.Save(p.addonDir))

	require.NoError(t, config.Save(p.configPath, &config.Config{
		ServerAddress:  addr,
		AppID:          config.DefaultAppID,
		AddonDir:       p.addonDir,
		WorkDir:        dir,
		SentryFile:     p.sentryFile,
		Timeout:        5 * time.Second,
		ReconnectDelay: 50 * time.Millisecond,
		LogLevel:       "warn",
	}))

	return p
}

// run publishes once, answering prompts from input.
func (p *publisher) run(t *testing.T, username, password, input string) session.State {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	state, err := client.Run(ctx, &client.Options{
		ConfigPath: p.configPath,
		Username:   username,
		Password:   password,
		Prompter:   prompt.NewLineConsole(strings.NewReader(input), &strings.Builder{}),
	})
	require.NoError(t, err)

	return state
}

// manifest reloads addon.json from the publisher's folder.
func (p *publisher) manifest(t *testing.T) *addon.Manifest {
	t.Helper()

	m, err := addon.LoadManifest(p.addonDir)
	require.NoError(t, err)

	return m
}
