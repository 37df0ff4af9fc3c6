// Package config resolves process-level settings from defaults, an optional
// YAML config file, and environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/adrg/xdg"
	"github.com/goccy/go-yaml"
)

// ErrReadConfig indicates the config file could not be read or parsed.
var ErrReadConfig = errors.New("reading config")

// DefaultAllowedCountryCodes is the default country code set for output
// filename validation.
var DefaultAllowedCountryCodes = []string{"ru", "kg", "uz", "tm", "ua", "by", "nl", "az"}

// Config holds process-level settings: folder layout, country code set, and
// analysis limits. Values are resolved in order: built-in defaults, then the
// YAML config file, then environment variables.
type Config struct {
	BaseFolder         string `yaml:"base_folder"`
	InputFolder        string `yaml:"input_folder"`
	LogFolder          string `yaml:"log_folder"`
	ParquetFolder      string `yaml:"parquet_folder"`
	WorkflowsFolder    string `yaml:"workflows_folder"`
	ExportsFolder      string `yaml:"exports_folder"`
	AnalyzeCacheFolder string `yaml:"analyze_cache_folder"`
	TempFolder         string `yaml:"temp_folder"`

	AllowedCountryCodes []string `yaml:"allowed_country_codes"`

	// AnalyzeRows bounds the schema-inference prefix for delimited sources.
	AnalyzeRows int `yaml:"analyze_rows"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		BaseFolder:          ".",
		InputFolder:         "data",
		LogFolder:           "logs",
		ParquetFolder:       "parquet_cache",
		WorkflowsFolder:     "workflows",
		ExportsFolder:       "exports",
		AnalyzeCacheFolder:  "analyze_cache",
		AllowedCountryCodes: DefaultAllowedCountryCodes,
		AnalyzeRows:         1000,
	}
}

// DefaultFilePath returns the default config file location under the XDG
// config directory. The file does not have to exist.
func DefaultFilePath() string {
	path, err := xdg.ConfigFile("datacleaner/config.yaml")
	if err != nil {
		return filepath.Join(".", "config.yaml")
	}

	return path
}

// Load resolves the configuration. When path is empty the default XDG
// location is consulted; a missing file there is not an error. An explicit
// path that cannot be read fails with [ErrReadConfig].
func Load(path string) (*Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		path = DefaultFilePath()
	}

	data, err := os.ReadFile(path) //nolint:gosec // Config path from CLI flag is expected.
	switch {
	case err == nil:
		err = yaml.Unmarshal(data, cfg)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrReadConfig, path, err)
		}
	case explicit:
		return nil, fmt.Errorf("%w: %w", ErrReadConfig, err)
	}

	cfg.applyEnv()
	cfg.resolveFolders()

	return cfg, nil
}

// applyEnv overrides fields from environment variables.
func (c *Config) applyEnv() {
	for _, v := range []struct {
		dst *string
		key string
	}{
		{&c.BaseFolder, "BASE_FOLDER"},
		{&c.InputFolder, "INPUT_FOLDER"},
		{&c.LogFolder, "LOG_FOLDER"},
		{&c.ParquetFolder, "PARQUET_FOLDER"},
		{&c.WorkflowsFolder, "WORKFLOWS_FOLDER"},
		{&c.ExportsFolder, "EXPORTS_FOLDER"},
		{&c.AnalyzeCacheFolder, "ANALYZE_CACHE_FOLDER"},
		{&c.TempFolder, "TEMP_FOLDER"},
	} {
		if val := os.Getenv(v.key); val != "" {
			*v.dst = val
		}
	}

	if val := os.Getenv("ALLOWED_COUNTRY_CODES"); val != "" {
		c.AllowedCountryCodes = splitList(val)
	}

	if val := os.Getenv("ANALYZE_ROWS"); val != "" {
		n, err := strconv.Atoi(val)
		if err == nil && n > 0 {
			c.AnalyzeRows = n
		}
	}
}

// resolveFolders makes relative folder paths absolute under BaseFolder.
func (c *Config) resolveFolders() {
	base, err := filepath.Abs(c.BaseFolder)
	if err != nil {
		base = c.BaseFolder
	}

	c.BaseFolder = base

	for _, dst := range []*string{
		&c.InputFolder,
		&c.LogFolder,
		&c.ParquetFolder,
		&c.WorkflowsFolder,
		&c.ExportsFolder,
		&c.AnalyzeCacheFolder,
	} {
		if *dst != "" && !filepath.IsAbs(*dst) {
			*dst = filepath.Join(base, *dst)
		}
	}

	if c.TempFolder != "" && !filepath.IsAbs(c.TempFolder) {
		c.TempFolder = filepath.Join(base, c.TempFolder)
	}
}

// AllowsCountry reports whether code is in the allowed set,
// case-insensitively.
func (c *Config) AllowsCountry(code string) bool {
	code = strings.ToLower(code)
	for _, cc := range c.AllowedCountryCodes {
		if strings.ToLower(cc) == code {
			return true
		}
	}

	return false
}

// EnsureDirectories creates the configured folders when absent. Creation
// failures are returned but callers treat them as non-fatal.
func (c *Config) EnsureDirectories() error {
	var errs []error

	for _, dir := range []string{
		c.InputFolder,
		c.LogFolder,
		c.ParquetFolder,
		c.WorkflowsFolder,
		c.ExportsFolder,
		c.AnalyzeCacheFolder,
		c.TempFolder,
	} {
		if dir == "" {
			continue
		}

		err := os.MkdirAll(dir, 0o755)
		if err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

// splitList parses a comma-separated list, trimming whitespace and dropping
// empty items.
func splitList(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))

	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}

	return out
}
