// Package config loads stepdeck settings: built-in defaults, then
// ~/.stepdeck/config.yaml, then environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds every runtime setting.
type Config struct {
	DataDir string `yaml:"data_dir"`

	// Backend selects where projects live: "local" or "remote".
	Backend  string `yaml:"backend"`
	APIURL   string `yaml:"api_url"`
	APIToken string `yaml:"api_token"`

	// Assets selects where assets live: "local" (follows Backend) or "gcs".
	Assets    string `yaml:"assets"`
	GCSBucket string `yaml:"gcs_bucket"`

	SendGridKey  string `yaml:"sendgrid_api_key"`
	SendGridURL  string `yaml:"sendgrid_base_url"`
	MailFrom     string `yaml:"mail_from"`
	MailFromName string `yaml:"mail_from_name"`
	MailRetries  int    `yaml:"mail_retries"`

	// OwnerEmail is blind copied on every quiz report.
	OwnerEmail string `yaml:"owner_email"`

	LogMode string `yaml:"log_mode"`

	// ExportWidth is the default PNG export width in pixels.
	ExportWidth int `yaml:"export_width"`
}

// Dir returns ~/.stepdeck.
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("get home dir: %w", err)
	}
	return filepath.Join(home, ".stepdeck"), nil
}

// Default returns the settings used when nothing is configured.
func Default() Config {
	dir, err := Dir()
	if err != nil {
		dir = ".stepdeck"
	}
	return Config{
		DataDir:     filepath.Join(dir, "data"),
		Backend:     "local",
		APIURL:      "http://localhost:8080",
		Assets:      "local",
		MailRetries: 4,
		LogMode:     "dev",
		ExportWidth: 1920,
	}
}

// Load reads the default config file and applies the environment.
func Load() (Config, error) {
	dir, err := Dir()
	if err != nil {
		return Config{}, err
	}
	return LoadFile(filepath.Join(dir, "config.yaml"))
}

// LoadFile is Load with an explicit file path. A missing file is not an
// error.
func LoadFile(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("config.Load: parse %s: %w", path, err)
		}
	case !errors.Is(err, os.ErrNotExist):
		return Config{}, fmt.Errorf("config.Load: %w", err)
	}
	cfg.applyEnv(os.Getenv)
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyEnv(getenv func(string) string) {
	str := func(name string, dst *string) {
		if v := strings.TrimSpace(getenv(name)); v != "" {
			*dst = v
		}
	}
	num := func(name string, dst *int) {
		if v, err := strconv.Atoi(strings.TrimSpace(getenv(name))); err == nil {
			*dst = v
		}
	}
	str("STEPDECK_DATA_DIR", &c.DataDir)
	str("STEPDECK_BACKEND", &c.Backend)
	str("STEPDECK_API_URL", &c.APIURL)
	str("STEPDECK_TOKEN", &c.APIToken)
	str("STEPDECK_ASSETS", &c.Assets)
	str("STEPDECK_GCS_BUCKET", &c.GCSBucket)
	str("STEPDECK_OWNER_EMAIL", &c.OwnerEmail)
	str("STEPDECK_LOG_MODE", &c.LogMode)
	num("STEPDECK_EXPORT_WIDTH", &c.ExportWidth)
	str("SENDGRID_API_KEY", &c.SendGridKey)
	str("SENDGRID_BASE_URL", &c.SendGridURL)
	str("SENDGRID_FROM_EMAIL", &c.MailFrom)
	str("SENDGRID_FROM_NAME", &c.MailFromName)
	num("SENDGRID_MAX_RETRIES", &c.MailRetries)
}

// Validate checks enumerated values and required companions.
func (c Config) Validate() error {
	switch c.Backend {
	case "local":
	case "remote":
		if c.APIURL == "" {
			return fmt.Errorf("config: backend remote requires api_url")
		}
	default:
		return fmt.Errorf("config: unknown backend %q", c.Backend)
	}
	switch c.Assets {
	case "local":
	case "gcs":
		if c.GCSBucket == "" {
			return fmt.Errorf("config: assets gcs requires gcs_bucket")
		}
	default:
		return fmt.Errorf("config: unknown assets backend %q", c.Assets)
	}
	if c.ExportWidth <= 0 {
		return fmt.Errorf("config: export_width must be positive")
	}
	return nil
}

// LogPath is where the terminal UI writes its log.
func (c Config) LogPath() string {
	return filepath.Join(c.DataDir, "stepdeck.log")
}
