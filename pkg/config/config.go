// Package config loads and validates the application configuration.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/viper"

	"syncrepo/pkg/filter"
)

// DefaultFileName is the configuration file looked up in the working
// directory when no explicit path is given.
const DefaultFileName = "syncrepo.yaml"

// Config is the full option surface. It is fixed at startup; nothing is
// hot-reloadable.
type Config struct {
	RootPath             string   `mapstructure:"rootPath"`
	OutputPath           string   `mapstructure:"outputPath"`
	Extensions           []string `mapstructure:"extensions"`
	ExcludeSuffixes      []string `mapstructure:"excludeSuffixes"`
	ExcludeDirs          []string `mapstructure:"excludeDirs"`
	SensitiveFiles       []string `mapstructure:"sensitiveFiles"`
	ExcludeRegexes       []string `mapstructure:"excludeRegexes"`
	DebounceDelaySeconds int      `mapstructure:"debounceDelaySeconds"`
	MaxFileSizeKB        int      `mapstructure:"maxFileSizeKB"`
	TokenModel           string   `mapstructure:"tokenModel"`
	Clipboard            bool     `mapstructure:"clipboard"`
}

// Default returns the built-in defaults. All filter rule sets default to
// empty; only the delay and the size cap carry values.
func Default() Config {
	return Config{
		DebounceDelaySeconds: 5,
		MaxFileSizeKB:        1024,
	}
}

// Load reads the configuration file at explicitPath over the defaults. When
// explicitPath is empty, DefaultFileName in the working directory is used
// if present; a missing default file is not an error.
func Load(explicitPath string) (Config, error) {
	cfg := Default()

	path := explicitPath
	if path == "" {
		if _, err := os.Stat(DefaultFileName); err != nil {
			return cfg, nil
		}
		path = DefaultFileName
	}

	reader := viper.New()
	reader.SetConfigFile(path)
	if err := reader.ReadInConfig(); err != nil {
		return Config{}, fmt.Errorf("read configuration from %s: %w", path, err)
	}
	if err := reader.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode configuration from %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks the required options.
func (c Config) Validate() error {
	if len(c.Extensions) == 0 {
		return fmt.Errorf("config: extensions must list at least one suffix")
	}
	if c.OutputPath == "" {
		return fmt.Errorf("config: outputPath is required")
	}
	if c.RootPath == "" {
		return fmt.Errorf("config: rootPath is required")
	}
	if c.DebounceDelaySeconds <= 0 {
		return fmt.Errorf("config: debounceDelaySeconds must be positive")
	}
	return nil
}

// DebounceDelay returns the configured debounce interval.
func (c Config) DebounceDelay() time.Duration {
	return time.Duration(c.DebounceDelaySeconds) * time.Second
}

// FilterConfig converts the scope options into the filter package's form.
func (c Config) FilterConfig() filter.Config {
	return filter.Config{
		Extensions:      c.Extensions,
		ExcludeSuffixes: c.ExcludeSuffixes,
		ExcludeDirs:     c.ExcludeDirs,
		SensitiveFiles:  c.SensitiveFiles,
		ExcludeRegexes:  c.ExcludeRegexes,
	}
}
