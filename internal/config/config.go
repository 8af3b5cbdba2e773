// Package config loads optional host-CLI settings from a TOML file,
// SPEC_FULL.md section 10.3. Absence of a config file (or of the -config
// flag) falls back to DefaultConfig, so existing invocations of the CLI
// keep working unchanged.
package config

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// Config holds the settings the host CLI exposes beyond its flags.
type Config struct {
	Debug struct {
		Enabled     bool `toml:"enabled"`
		DumpOnFault bool `toml:"dump_on_fault"`
	} `toml:"debug"`

	IO struct {
		StdinBufferBytes  int `toml:"stdin_buffer_bytes"`
		StdoutBufferBytes int `toml:"stdout_buffer_bytes"`
	} `toml:"io"`

	Assembler struct {
		EntryLabel string `toml:"entry_label"`
	} `toml:"assembler"`
}

// DefaultConfig returns the settings used when no config file is supplied.
func DefaultConfig() *Config {
	cfg := &Config{}
	cfg.Debug.Enabled = false
	cfg.Debug.DumpOnFault = false
	cfg.IO.StdinBufferBytes = 4096
	cfg.IO.StdoutBufferBytes = 4096
	cfg.Assembler.EntryLabel = "main"
	return cfg
}

// LoadFrom reads and parses a TOML config file at path, starting from
// DefaultConfig so a partial file only overrides the keys it sets.
func LoadFrom(path string) (*Config, error) {
	cfg := DefaultConfig()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}

	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	return cfg, nil
}
