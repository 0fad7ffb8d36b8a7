package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Config holds the publisher settings. The CLI takes no flags, so every value
// comes from the optional settings file or GMPUBLISH_* environment variables.
type Config struct {
	// ServerAddress is the gRPC address of the workshop gateway.
	ServerAddress string `mapstructure:"server_addr" yaml:"server_addr"`
	// AppID is the application the addon is published for.
	AppID uint32 `mapstructure:"app_id" yaml:"app_id"`
	// AddonDir is the folder holding addon.json and the addon content.
	AddonDir string `mapstructure:"addon_dir" yaml:"addon_dir"`
	// WorkDir is where the package is built before upload. Empty means the OS temp dir.
	WorkDir string `mapstructure:"work_dir" yaml:"work_dir"`
	// SentryFile is the device-trust token file.
	SentryFile string `mapstructure:"sentry_file" yaml:"sentry_file"`
	// Timeout bounds each unary RPC.
	Timeout time.Duration `mapstructure:"timeout" yaml:"timeout"`
	// ReconnectDelay is the pause before reconnecting after a disconnect.
	ReconnectDelay time.Duration `mapstructure:"reconnect_delay" yaml:"reconnect_delay"`
	// Compression is the package codec: lzma, zstd or lz4.
	Compression string `mapstructure:"compression" yaml:"compression"`
	// LogLevel is the minimum level of printed messages.
	LogLevel string `mapstructure:"log_level" yaml:"log_level"`
	// Progress enables upload progress bars on interactive terminals.
	Progress bool `mapstructure:"progress" yaml:"progress"`
}

const (
	// DefaultConfigFilename is the default filename for publisher settings.
	DefaultConfigFilename = "gmpublish.yaml"

	// DefaultServerAddress is the gateway address used when none is configured.
	DefaultServerAddress = "127.0.0.1:27060"

	// DefaultAppID is the application addons are published for.
	DefaultAppID uint32 = 4000

	// DefaultAddonDir is the folder with addon.json.
	DefaultAddonDir = "./Addon"

	// DefaultSentryFilename is the default device-trust token file.
	DefaultSentryFilename = "sentry.bin"

	// DefaultTimeout is the default duration for network operations.
	DefaultTimeout = 30 * time.Second

	// DefaultReconnectDelay is the pause between a disconnect and the next connection attempt.
	DefaultReconnectDelay = 5 * time.Second

	// DefaultCompression is the package codec used when none is configured.
	DefaultCompression = "lzma"

	// DefaultLogLevel is the default minimum log level.
	DefaultLogLevel = "info"

	// DefaultFilePermissions is the default file permission for config files.
	DefaultFilePermissions = 0o600

	// envPrefix namespaces environment overrides, e.g. GMPUBLISH_SERVER_ADDR.
	envPrefix = "GMPUBLISH"
)

var (
	// errConfigIsNotSet is returned when a nil configuration is provided.
	errConfigIsNotSet = errors.New("configuration is not set")
	// errServerSocketRequired is returned when server address is missing.
	errServerSocketRequired = errors.New("server address must be provided")
	// errUnknownCompression is returned for codecs other than lzma, zstd and lz4.
	errUnknownCompression = errors.New("unknown compression")
	// errAppIDRequired is returned when the app id is zero.
	errAppIDRequired = errors.New("app id must be provided")
)

// Load reads publisher settings from the optional file at path, applies
// environment overrides and validates the result. A missing file is not an error.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultConfigFilename
	}

	v := viper.New()
	v.SetConfigFile(filepath.Clean(path))
	v.SetConfigType("yaml")
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil && !isMissingFile(err) {
		return nil, fmt.Errorf("read settings: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal settings: %w", err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Save writes publisher settings to the provided path.
func Save(path string, cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	if path == "" {
		path = DefaultConfigFilename
	}

	if err := Validate(cfg); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}

	if err := os.WriteFile(filepath.Clean(path), data, DefaultFilePermissions); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}

	return nil
}

// Validate checks the provided settings for required fields and formatting,
// filling defaults for optional ones.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	if cfg.ServerAddress == "" {
		return errServerSocketRequired
	}

	if _, _, err := net.SplitHostPort(cfg.ServerAddress); err != nil {
		return fmt.Errorf("invalid server socket: %w", err)
	}

	if cfg.AppID == 0 {
		return errAppIDRequired
	}

	if cfg.AddonDir == "" {
		cfg.AddonDir = DefaultAddonDir
	}

	if cfg.SentryFile == "" {
		cfg.SentryFile = DefaultSentryFilename
	}

	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}

	if cfg.ReconnectDelay <= 0 {
		cfg.ReconnectDelay = DefaultReconnectDelay
	}

	cfg.Compression = strings.ToLower(strings.TrimSpace(cfg.Compression))
	switch cfg.Compression {
	case "":
		cfg.Compression = DefaultCompression
	case "lzma", "zstd", "lz4":
	default:
		return fmt.Errorf("%w: %q", errUnknownCompression, cfg.Compression)
	}

	if cfg.LogLevel == "" {
		cfg.LogLevel = DefaultLogLevel
	}

	return nil
}

// setDefaults registers every key so that AutomaticEnv can override it.
func setDefaults(v *viper.Viper) {
	v.SetDefault("server_addr", DefaultServerAddress)
	v.SetDefault("app_id", DefaultAppID)
	v.SetDefault("addon_dir", DefaultAddonDir)
	v.SetDefault("work_dir", "")
	v.SetDefault("sentry_file", DefaultSentryFilename)
	v.SetDefault("timeout", DefaultTimeout)
	v.SetDefault("reconnect_delay", DefaultReconnectDelay)
	v.SetDefault("compression", DefaultCompression)
	v.SetDefault("log_level", DefaultLogLevel)
	v.SetDefault("progress", true)
}

// isMissingFile reports whether err means the settings file does not exist.
func isMissingFile(err error) bool {
	var notFound viper.ConfigFileNotFoundError
	if errors.As(err, &notFound) {
		return true
	}

	return errors.Is(err, fs.ErrNotExist)
}
