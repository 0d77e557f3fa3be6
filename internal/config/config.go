// Package config loads the application configuration. Values come from the
// JSON config file written by the setup command, overridden by environment
// variables with the BUNQYNAB_ prefix. Configuration is loaded once at
// process start and read-only thereafter.
package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/pkg/errors"
)

const (
	// EnvPrefix is the prefix for environment variable overrides.
	EnvPrefix = "BUNQYNAB_"

	// DefaultDataDir holds config, caches, tracking runs and the model
	// registry unless overridden.
	DefaultDataDir = "data"

	// ConfigFileName is the name of the config file inside the data dir.
	ConfigFileName = "config.json"
)

// Config holds the application configuration.
type Config struct {
	// Host is the address the webhook server listens on.
	Host string `koanf:"host"`

	// Port is the port the webhook server listens on.
	Port int `koanf:"port"`

	// Hostname is the externally reachable hostname, used to register the
	// webhook callback with the bank API.
	Hostname string `koanf:"hostname"`

	// TLSCert and TLSKey are paths to the certificate and key files for the
	// webhook server.
	TLSCert string `koanf:"tls_cert"`
	TLSKey  string `koanf:"tls_key"`

	// BunqAPIKey authenticates against the bunq API.
	BunqAPIKey string `koanf:"bunq_api_key"`

	// YnabToken authenticates against the YNAB API.
	YnabToken string `koanf:"ynab_token"`

	// Currency is the default currency code; payments in another currency
	// get a note appended to their memo.
	Currency string `koanf:"currency"`

	// DataDir is the root for all persisted state.
	DataDir string `koanf:"data_dir"`

	// ModelBasePort is the first port assigned to per-budget model servers.
	ModelBasePort int `koanf:"model_base_port"`

	// SentryDSN enables error tracking when set.
	SentryDSN string `koanf:"sentry_dsn"`
}

// Load reads the configuration from the config file and the environment.
// A missing config file is not an error as long as the required values are
// provided through the environment.
func Load() (*Config, error) {
	k := koanf.New(".")

	path := ConfigPath()
	if _, err := os.Stat(path); err == nil {
		if err := k.Load(file.Provider(path), json.Parser()); err != nil {
			return nil, errors.Wrapf(err, "failed to load config file %s", path)
		}
	}

	err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	}), nil)
	if err != nil {
		return nil, errors.Wrap(err, "failed to load environment")
	}

	cfg := &Config{
		Host:          "0.0.0.0",
		Port:          8045,
		Currency:      "EUR",
		DataDir:       DefaultDataDir,
		ModelBasePort: 5100,
	}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal config")
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ConfigPath returns the location of the config file. BUNQYNAB_CONFIG_FILE
// overrides the default data/config.json.
func ConfigPath() string {
	if p := os.Getenv(EnvPrefix + "CONFIG_FILE"); p != "" {
		return p
	}
	dir := os.Getenv(EnvPrefix + "DATA_DIR")
	if dir == "" {
		dir = DefaultDataDir
	}
	return filepath.Join(dir, ConfigFileName)
}

// validate checks the structural requirements. Missing credentials are fatal
// at startup rather than surfacing later as opaque API errors.
func (c *Config) validate() error {
	if c.BunqAPIKey == "" {
		return errors.New("config: bunq_api_key is required")
	}
	if c.YnabToken == "" {
		return errors.New("config: ynab_token is required")
	}
	return nil
}
