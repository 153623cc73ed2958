// Package config loads the configuration keys spec.md §6 enumerates,
// from a TOML file, the way the teacher persists its own key material
// (key/group.go, key/keys.go) with github.com/BurntSushi/toml.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
	multierror "github.com/hashicorp/go-multierror"
)

// LanguageConfig holds the languages.regex.<name>.* keys for one
// language.
type LanguageConfig struct {
	MTU         int  `toml:"mtu"`
	FixedSlice  bool `toml:"fixed_slice"`
	AllowAEBits bool `toml:"allow_ae_bits"`
}

// RuntimeConfig holds the runtime.fte.record_layer.* keys.
type RuntimeConfig struct {
	MaxCellSize int `toml:"max_cell_size"`
}

// General holds the general.* keys.
type General struct {
	DFADir string `toml:"dfa_dir"`
}

// Config is the parsed form of an fte TOML configuration file.
type Config struct {
	General   General `toml:"general"`
	Languages struct {
		Regex map[string]LanguageConfig `toml:"regex"`
	} `toml:"languages"`
	Runtime struct {
		FTE struct {
			RecordLayer RuntimeConfig `toml:"record_layer"`
		} `toml:"fte"`
	} `toml:"runtime"`
}

// Load reads and parses path.
func Load(path string) (*Config, error) {
	var cfg Config
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, fmt.Errorf("config: decoding %s: %w", path, err)
	}
	return &cfg, nil
}

// Validate checks every key spec.md §6 requires, aggregating every
// problem found with go-multierror instead of stopping at the first one
// — an operator fixing a broken config wants the whole list at once,
// matching the aggregation style the teacher uses for independent
// per-peer failures in client/watcher.go and client/optimizing.go.
func (c *Config) Validate() error {
	var errs *multierror.Error

	if c.General.DFADir == "" {
		errs = multierror.Append(errs, fmt.Errorf("general.dfa_dir is required"))
	} else if info, err := os.Stat(c.General.DFADir); err != nil || !info.IsDir() {
		errs = multierror.Append(errs, fmt.Errorf("general.dfa_dir %q is not a readable directory", c.General.DFADir))
	}

	if len(c.Languages.Regex) == 0 {
		errs = multierror.Append(errs, fmt.Errorf("at least one languages.regex.<name> entry is required"))
	}
	for name, lang := range c.Languages.Regex {
		if lang.MTU <= 0 {
			errs = multierror.Append(errs, fmt.Errorf("languages.regex.%s.mtu must be positive, got %d", name, lang.MTU))
		}
	}

	if c.Runtime.FTE.RecordLayer.MaxCellSize <= 0 {
		errs = multierror.Append(errs, fmt.Errorf("runtime.fte.record_layer.max_cell_size must be positive"))
	}

	return errs.ErrorOrNil()
}

// DFAPath returns the path to the .dfa file for name.
func (c *Config) DFAPath(name string) string {
	return filepath.Join(c.General.DFADir, name+".dfa")
}

// Language returns the configuration for name and whether it was found.
func (c *Config) Language(name string) (LanguageConfig, bool) {
	lc, ok := c.Languages.Regex[name]
	return lc, ok
}

// LanguageNames returns every configured language name, for httpapi's
// /languages endpoint and cmd/fte's `languages` subcommand.
func (c *Config) LanguageNames() []string {
	names := make([]string, 0, len(c.Languages.Regex))
	for name := range c.Languages.Regex {
		names = append(names, name)
	}
	return names
}

// MaxCellSize returns runtime.fte.record_layer.max_cell_size.
func (c *Config) MaxCellSize() int {
	return c.Runtime.FTE.RecordLayer.MaxCellSize
}
