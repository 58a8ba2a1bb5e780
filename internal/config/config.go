// Copyright (c) 2025 Jeremy Hahn
// Copyright (c) 2025 Automate The Things, LLC
//
// This file is part of go-pkgtrust.
//
// go-pkgtrust is dual-licensed:
//
// 1. GNU Affero General Public License v3.0 (AGPL-3.0)
//    See LICENSE file or visit https://www.gnu.org/licenses/agpl-3.0.html
//
// 2. Commercial License
//    Contact licensing@automatethethings.com for commercial licensing options.

// Package config loads and validates the pkgtrust configuration.
package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config represents the complete pkgtrust configuration
type Config struct {
	GPG     GPGConfig             `yaml:"gpg"`
	Repos   map[string]RepoConfig `yaml:"repos"`
	History HistoryConfig         `yaml:"history"`
	Logging LoggingConfig         `yaml:"logging"`
}

// GPGConfig contains the signature-policy settings
type GPGConfig struct {
	// LocalpkgGPGCheck requires signature checks for packages supplied on
	// the command line.
	LocalpkgGPGCheck bool `yaml:"localpkg_gpgcheck"`

	// InstallRoot is applied to every verification session.
	InstallRoot string `yaml:"installroot"`
}

// RepoConfig contains the per-repository settings
type RepoConfig struct {
	GPGCheck bool `yaml:"gpgcheck"`
}

// HistoryConfig controls the trust-event history database
type HistoryConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// LoggingConfig controls logging behavior
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// DefaultConfig returns a configuration with safe defaults: signature checks
// enabled everywhere, bare install root.
func DefaultConfig() *Config {
	return &Config{
		GPG: GPGConfig{
			LocalpkgGPGCheck: true,
			InstallRoot:      "/",
		},
		Repos: map[string]RepoConfig{},
		History: HistoryConfig{
			Enabled: false,
			Path:    "/var/lib/pkgtrust/history.db",
		},
		Logging: LoggingConfig{Level: "info"},
	}
}

// Load reads configuration from a YAML file and applies environment
// variable overrides
func Load(path string) (*Config, error) {
	// #nosec G304 - Config file path is provided by admin/user
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// applyEnvOverrides applies environment variable overrides to the configuration
func applyEnvOverrides(cfg *Config) {
	if root := os.Getenv("PKGTRUST_INSTALLROOT"); root != "" {
		cfg.GPG.InstallRoot = root
	}
	if path := os.Getenv("PKGTRUST_HISTORY_PATH"); path != "" {
		cfg.History.Path = path
	}
	if level := os.Getenv("PKGTRUST_LOG_LEVEL"); level != "" {
		cfg.Logging.Level = level
	}
}

// Validate checks the configuration for consistency
func (c *Config) Validate() error {
	if c.GPG.InstallRoot == "" {
		return fmt.Errorf("gpg.installroot must not be empty")
	}
	if !strings.HasPrefix(c.GPG.InstallRoot, "/") {
		return fmt.Errorf("gpg.installroot %q must be absolute", c.GPG.InstallRoot)
	}
	if c.History.Enabled && c.History.Path == "" {
		return fmt.Errorf("history.path must be set when history is enabled")
	}
	return nil
}

// RepoGPGCheck returns the gpgcheck flag for the given repository id.
// Repositories without explicit configuration default to checking.
func (c *Config) RepoGPGCheck(id string) bool {
	if rc, ok := c.Repos[id]; ok {
		return rc.GPGCheck
	}
	return true
}

// Debug reports whether debug logging is requested.
func (c *Config) Debug() bool {
	return strings.EqualFold(c.Logging.Level, "debug")
}
