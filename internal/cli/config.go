package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/charmbracelet/log"

	"github.com/plugindex/plugindex/pkg/registry"
)

// Config holds the user-facing settings read from the config file.
// Every field has a working default; the file is optional.
type Config struct {
	Registry struct {
		// Repo is the "owner/name" repository publishing the registry files.
		Repo string `toml:"repo"`
		// Branch the registry files are published on.
		Branch string `toml:"branch"`
	} `toml:"registry"`

	GitHub struct {
		// Token authenticates releases-API requests. The GITHUB_TOKEN
		// environment variable takes precedence over the file.
		Token string `toml:"token"`
	} `toml:"github"`

	Cache struct {
		// FreshnessMinutes is how long cached values are served without
		// revalidation.
		FreshnessMinutes int `toml:"freshness_minutes"`
		// SuppressionMinutes is the cooldown after a failed release lookup.
		SuppressionMinutes int `toml:"suppression_minutes"`
	} `toml:"cache"`

	Filter struct {
		// BatchSize is how many release dates are resolved concurrently.
		BatchSize int `toml:"batch_size"`
		// BatchDelayMS is the pause between batches in milliseconds.
		BatchDelayMS int `toml:"batch_delay_ms"`
	} `toml:"filter"`
}

func defaultConfig() Config {
	var c Config
	c.Registry.Repo = "plugindex/registry"
	c.Registry.Branch = "main"
	return c
}

// configPath returns the default config file location,
// ~/.config/plugindex/config.toml.
func configPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "plugindex", "config.toml"), nil
}

// loadConfig reads the config file at path, or the default location when
// path is empty. A missing file yields the defaults; a malformed file is
// an error.
func loadConfig(path string) (Config, error) {
	cfg := defaultConfig()

	if path == "" {
		var err error
		if path, err = configPath(); err != nil {
			return cfg, nil
		}
	}

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("read config %s: %w", path, err)
	}
	return cfg, nil
}

// serviceOptions converts the config into registry options, resolving the
// token from the environment and wiring the logger.
func (c Config) serviceOptions(logger *log.Logger) registry.Options {
	token := os.Getenv("GITHUB_TOKEN")
	if token == "" {
		token = c.GitHub.Token
	}

	base := fmt.Sprintf("https://raw.githubusercontent.com/%s/%s", c.Registry.Repo, c.Registry.Branch)

	opts := registry.Options{
		RegistryURL: base + "/community-plugins.json",
		StatsURL:    base + "/community-plugin-stats.json",
		Token:       token,
		Logger:      func(format string, args ...any) { logger.Debugf(format, args...) },
	}
	if c.Cache.FreshnessMinutes > 0 {
		opts.FreshnessWindow = time.Duration(c.Cache.FreshnessMinutes) * time.Minute
	}
	if c.Cache.SuppressionMinutes > 0 {
		opts.SuppressionWindow = time.Duration(c.Cache.SuppressionMinutes) * time.Minute
	}
	if c.Filter.BatchSize > 0 {
		opts.BatchSize = c.Filter.BatchSize
	}
	if c.Filter.BatchDelayMS > 0 {
		opts.BatchDelay = time.Duration(c.Filter.BatchDelayMS) * time.Millisecond
	}
	return opts
}
