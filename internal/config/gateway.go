package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Guard modes of a gateway account.
const (
	GuardNone      = "none"
	GuardEmail     = "email"
	GuardTwoFactor = "two_factor"
)

// GatewayConfig holds the settings of the local workshop gateway.
type GatewayConfig struct {
	// ListenAddress is the gRPC address the gateway binds to.
	ListenAddress string `yaml:"listen_addr"`
	// ListingsFile is the YAML file storing published listings.
	ListingsFile string `yaml:"listings_file"`
	// FirstListingID is assigned to the first listing ever created.
	FirstListingID uint64 `yaml:"first_listing_id"`
	// LogLevel is the minimum level of gateway messages.
	LogLevel string `yaml:"log_level"`
	// Accounts are the users allowed to log on.
	Accounts []Account `yaml:"accounts"`
}

// Account is a gateway user.
type Account struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	Email    string `yaml:"email"`
	// Guard is none, email or two_factor.
	Guard string `yaml:"guard"`
	// GuardCode is the code accepted for the guard challenge.
	GuardCode string `yaml:"guard_code"`
}

const (
	// DefaultGatewayConfigFilename is the default filename for gateway settings.
	DefaultGatewayConfigFilename = "workshop-gateway.yaml"

	// DefaultListingsFilename is the default filename for stored listings.
	DefaultListingsFilename = "workshop-listings.yaml"

	// DefaultFirstListingID is the id of the first created listing.
	DefaultFirstListingID uint64 = 100000
)

var (
	errNoAccounts        = errors.New("at least one account must be configured")
	errAccountIncomplete = errors.New("account requires username and password")
	errUnknownGuard      = errors.New("unknown guard mode")
	errGuardCodeRequired = errors.New("guard code must be provided")
	errDuplicateAccount  = errors.New("duplicate account")
)

// LoadGateway reads gateway settings from path and validates them.
func LoadGateway(path string) (*GatewayConfig, error) {
	if path == "" {
		path = DefaultGatewayConfigFilename
	}

	contents, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("read settings: %w", err)
	}

	var cfg GatewayConfig
	if err := yaml.Unmarshal(contents, &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal settings: %w", err)
	}

	if err := ValidateGateway(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// SaveGateway writes gateway settings to the provided path.
func SaveGateway(path string, cfg *GatewayConfig) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	if path == "" {
		path = DefaultGatewayConfigFilename
	}

	if err := ValidateGateway(cfg); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}

	// Accounts carry passwords.
	if err := os.WriteFile(filepath.Clean(path), data, DefaultFilePermissions); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}

	return nil
}

// ValidateGateway checks gateway settings and fills defaults.
func ValidateGateway(cfg *GatewayConfig) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	if cfg.ListenAddress == "" {
		return errServerSocketRequired
	}

	if _, err := net.ResolveTCPAddr("tcp", cfg.ListenAddress); err != nil {
		return fmt.Errorf("invalid listen socket: %w", err)
	}

	if cfg.ListingsFile == "" {
		cfg.ListingsFile = DefaultListingsFilename
	}

	if cfg.FirstListingID == 0 {
		cfg.FirstListingID = DefaultFirstListingID
	}

	if cfg.LogLevel == "" {
		cfg.LogLevel = DefaultLogLevel
	}

	if len(cfg.Accounts) == 0 {
		return errNoAccounts
	}

	seen := make(map[string]struct{}, len(cfg.Accounts))

	for i := range cfg.Accounts {
		account := &cfg.Accounts[i]
		if account.Username == "" || account.Password == "" {
			return errAccountIncomplete
		}

		if _, ok := seen[account.Username]; ok {
			return fmt.Errorf("%w: %s", errDuplicateAccount, account.Username)
		}

		seen[account.Username] = struct{}{}

		switch account.Guard {
		case "":
			account.Guard = GuardNone
		case GuardNone:
		case GuardEmail, GuardTwoFactor:
			if account.GuardCode == "" {
				return fmt.Errorf("%w: %s", errGuardCodeRequired, account.Username)
			}
		default:
			return fmt.Errorf("%w: %q", errUnknownGuard, account.Guard)
		}
	}

	return nil
}
