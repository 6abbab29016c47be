// Package config provides optional YAML configuration loading for rspd, the
// trace-replay RSP server. Every field here also has a CLI flag; the file is
// a convenience for fixed lab/CI setups, not a required input.
package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the top-level configuration structure for rspd.
type Config struct {
	// TracePath is the path to the recorded trace file. Required.
	TracePath string `yaml:"trace_path"`

	// Format selects the trace parser ("spike", "sifive-rtl"). Required.
	Format string `yaml:"format"`

	// CPU selects the register/width capability profile ("rv32", "rv64").
	// Defaults to "rv32" when omitted.
	CPU string `yaml:"cpu"`

	// Host is the bind address for the RSP/gdbserver socket (spec §6
	// --host). Defaults to "localhost" when omitted.
	Host string `yaml:"host"`

	// Port is the TCP port for the RSP/gdbserver socket (spec §6 --port).
	// Defaults to 1234 when omitted.
	Port int `yaml:"port"`

	// StatusAddr is the listen address for the read-only HTTP status API.
	// Empty disables the status API.
	StatusAddr string `yaml:"status_addr"`

	// LogLevel sets the minimum log severity: "debug", "info", "warn", or
	// "error". Defaults to "info" when omitted.
	LogLevel string `yaml:"log_level"`
}

var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

var validCPUs = map[string]bool{
	"rv32": true,
	"rv64": true,
}

// Load reads the YAML file at path, unmarshals it into Config, applies
// defaults, and validates required fields. It returns a typed error joining
// every validation failure encountered.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: cannot read %q: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: cannot parse %q: %w", path, err)
	}

	applyDefaults(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("config: validation failed for %q: %w", path, err)
	}

	return &cfg, nil
}

// applyDefaults fills in zero-value optional fields with sensible defaults.
func applyDefaults(cfg *Config) {
	if cfg.CPU == "" {
		cfg.CPU = "rv32"
	}
	if cfg.Host == "" {
		cfg.Host = "localhost"
	}
	if cfg.Port == 0 {
		cfg.Port = 1234
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
}

// validate checks that all required fields are populated and that
// enumerated fields contain only valid values.
func validate(cfg *Config) error {
	var errs []error

	if cfg.TracePath == "" {
		errs = append(errs, errors.New("trace_path is required"))
	}
	if cfg.Format == "" {
		errs = append(errs, errors.New("format is required"))
	}
	if !validCPUs[cfg.CPU] {
		errs = append(errs, fmt.Errorf("cpu %q must be one of: rv32, rv64", cfg.CPU))
	}
	if !validLogLevels[cfg.LogLevel] {
		errs = append(errs, fmt.Errorf("log_level %q must be one of: debug, info, warn, error", cfg.LogLevel))
	}

	return errors.Join(errs...)
}
