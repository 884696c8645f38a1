/*
 * Copyright (c) 2026 Rowgate Authors.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

/*
Package config provides configuration management for rowgate.

The configuration system supports multiple sources with clear precedence:
 1. Command-line flags (highest priority)
 2. Environment variables
 3. Configuration file
 4. Default values (lowest priority)

Configuration File Format:
The configuration file uses TOML format for readability and ease of use.

Example configuration file:

	# rowgate Configuration
	max_concurrent_requests = 10
	batch_rows = 128
	quorum = "localhost:8920"
	metrics_enabled = true
	metrics_addr = ":9420"
	health_enabled = true
	health_addr = ":9421"
	probe_table = "rowgate_probe"
	log_level = "info"
	log_json = false

The one value this package must guarantee before any operation is admitted
is max_concurrent_requests: it sizes the permit pool and has to be a
positive integer. Validate rejects anything else.

Environment Variables:
  - ROWGATE_MAX_CONCURRENT_REQUESTS: permit pool capacity
  - ROWGATE_BATCH_ROWS: default rows per scan batch
  - ROWGATE_QUORUM: comma-separated store quorum addresses
  - ROWGATE_DISCOVERY_ENABLED: discover quorum nodes via mDNS (true/false)
  - ROWGATE_METRICS_ENABLED: enable the Prometheus endpoint (true/false)
  - ROWGATE_METRICS_ADDR: metrics listen address
  - ROWGATE_HEALTH_ENABLED: enable health endpoints (true/false)
  - ROWGATE_HEALTH_ADDR: health listen address
  - ROWGATE_PROBE_TABLE: table probed by the health check
  - ROWGATE_LOG_LEVEL: log level (debug, info, warn, error)
  - ROWGATE_LOG_JSON: enable JSON logging (true/false)
  - ROWGATE_CONFIG_FILE: path to configuration file
*/
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
)

// Environment variable names for configuration.
const (
	EnvMaxConcurrentRequests = "ROWGATE_MAX_CONCURRENT_REQUESTS"
	EnvBatchRows             = "ROWGATE_BATCH_ROWS"
	EnvQuorum                = "ROWGATE_QUORUM"
	EnvDiscoveryEnabled      = "ROWGATE_DISCOVERY_ENABLED"
	EnvMetricsEnabled        = "ROWGATE_METRICS_ENABLED"
	EnvMetricsAddr           = "ROWGATE_METRICS_ADDR"
	EnvHealthEnabled         = "ROWGATE_HEALTH_ENABLED"
	EnvHealthAddr            = "ROWGATE_HEALTH_ADDR"
	EnvProbeTable            = "ROWGATE_PROBE_TABLE"
	EnvLogLevel              = "ROWGATE_LOG_LEVEL"
	EnvLogJSON               = "ROWGATE_LOG_JSON"
	EnvConfigFile            = "ROWGATE_CONFIG_FILE"
)

// Default configuration file paths (searched in order).
var DefaultConfigPaths = []string{
	"/etc/rowgate/rowgate.conf",
	"$HOME/.config/rowgate/rowgate.conf",
	"./rowgate.conf",
}

// MetricsConfig holds metrics endpoint settings.
type MetricsConfig struct {
	Enabled bool   `toml:"metrics_enabled" json:"metrics_enabled"`
	Addr    string `toml:"metrics_addr" json:"metrics_addr"`
}

// HealthConfig holds health endpoint settings.
type HealthConfig struct {
	Enabled    bool   `toml:"health_enabled" json:"health_enabled"`
	Addr       string `toml:"health_addr" json:"health_addr"`
	ProbeTable string `toml:"probe_table" json:"probe_table"`
}

// Config holds all configuration values for rowgate.
type Config struct {
	// Admission control
	MaxConcurrentRequests int `toml:"max_concurrent_requests" json:"max_concurrent_requests"`

	// Scan defaults
	BatchRows int `toml:"batch_rows" json:"batch_rows"` // default rows per scan batch

	// Store quorum
	Quorum           string `toml:"quorum" json:"quorum"` // comma-separated host:port list
	DiscoveryEnabled bool   `toml:"discovery_enabled" json:"discovery_enabled"`

	// Observability
	Metrics MetricsConfig `toml:"metrics" json:"metrics"`
	Health  HealthConfig  `toml:"health" json:"health"`

	// Logging configuration
	LogLevel string `toml:"log_level" json:"log_level"`
	LogJSON  bool   `toml:"log_json" json:"log_json"`

	// Metadata
	ConfigFile string `toml:"-" json:"-"` // Path to loaded config file
}

// DefaultConfig returns a Config with sensible default values.
func DefaultConfig() *Config {
	return &Config{
		MaxConcurrentRequests: 10,
		BatchRows:             128,
		Quorum:                "localhost:8920",
		DiscoveryEnabled:      false,
		Metrics: MetricsConfig{
			Enabled: false,
			Addr:    ":9420",
		},
		Health: HealthConfig{
			Enabled:    false,
			Addr:       ":9421",
			ProbeTable: "rowgate_probe",
		},
		LogLevel: "info",
		LogJSON:  false,
	}
}

// Manager handles configuration loading, validation, and access.
type Manager struct {
	config *Config
	mu     sync.RWMutex
}

// NewManager creates a new configuration manager with default values.
func NewManager() *Manager {
	return &Manager{config: DefaultConfig()}
}

// Global manager instance for convenience.
var globalManager = NewManager()

// Global returns the global configuration manager.
func Global() *Manager {
	return globalManager
}

// Get returns the current configuration.
func (m *Manager) Get() *Config {
	m.mu.RLock()
	defer m.mu.RUnlock()
	// Return a copy to prevent external modification
	cfg := *m.config
	return &cfg
}

// Set updates the configuration.
func (m *Manager) Set(cfg *Config) {
	m.mu.Lock()
	m.config = cfg
	m.mu.Unlock()
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	var errs []string

	// The permit pool must have room for at least one operation. Zero or
	// negative capacity is a configuration error, rejected before any
	// pool is constructed.
	if c.MaxConcurrentRequests < 1 {
		errs = append(errs, fmt.Sprintf("invalid max_concurrent_requests: %d (must be a positive integer)", c.MaxConcurrentRequests))
	}

	if c.BatchRows < 1 {
		errs = append(errs, fmt.Sprintf("invalid batch_rows: %d (must be a positive integer)", c.BatchRows))
	}

	if c.Quorum == "" && !c.DiscoveryEnabled {
		errs = append(errs, "quorum cannot be empty unless discovery is enabled")
	}

	if c.Health.Enabled && c.Health.ProbeTable == "" {
		errs = append(errs, "probe_table cannot be empty when health checks are enabled")
	}

	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "error":
		// Valid log levels
	default:
		errs = append(errs, fmt.Sprintf("invalid log_level: %s (must be debug, info, warn, or error)", c.LogLevel))
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}

	return nil
}

// QuorumAddrs returns the configured quorum as a list of host:port strings.
func (c *Config) QuorumAddrs() []string {
	if c.Quorum == "" {
		return nil
	}
	parts := strings.Split(c.Quorum, ",")
	addrs := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			addrs = append(addrs, p)
		}
	}
	return addrs
}

// LoadFromFile loads configuration from a TOML file.
func (m *Manager) LoadFromFile(path string) error {
	// Expand environment variables in path
	path = os.ExpandEnv(path)

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := DefaultConfig()
	if err := parseTOML(string(data), cfg); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.ConfigFile = path
	m.Set(cfg)
	return nil
}

// LoadFromEnv loads configuration from environment variables.
// This merges with existing configuration (env vars override file values).
func (m *Manager) LoadFromEnv() {
	cfg := m.Get()

	if v := os.Getenv(EnvMaxConcurrentRequests); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.MaxConcurrentRequests = n
		}
	}
	if v := os.Getenv(EnvBatchRows); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.BatchRows = n
		}
	}
	if v := os.Getenv(EnvQuorum); v != "" {
		cfg.Quorum = v
	}
	if v := os.Getenv(EnvDiscoveryEnabled); v != "" {
		cfg.DiscoveryEnabled = parseBool(v)
	}
	if v := os.Getenv(EnvMetricsEnabled); v != "" {
		cfg.Metrics.Enabled = parseBool(v)
	}
	if v := os.Getenv(EnvMetricsAddr); v != "" {
		cfg.Metrics.Addr = v
	}
	if v := os.Getenv(EnvHealthEnabled); v != "" {
		cfg.Health.Enabled = parseBool(v)
	}
	if v := os.Getenv(EnvHealthAddr); v != "" {
		cfg.Health.Addr = v
	}
	if v := os.Getenv(EnvProbeTable); v != "" {
		cfg.Health.ProbeTable = v
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv(EnvLogJSON); v != "" {
		cfg.LogJSON = parseBool(v)
	}

	m.Set(cfg)
}

// FindConfigFile searches for a configuration file in default locations.
// Returns the path to the first file found, or empty string if none found.
func FindConfigFile() string {
	// Check environment variable first
	if envPath := os.Getenv(EnvConfigFile); envPath != "" {
		if _, err := os.Stat(os.ExpandEnv(envPath)); err == nil {
			return os.ExpandEnv(envPath)
		}
	}

	// Search default paths
	for _, path := range DefaultConfigPaths {
		expandedPath := os.ExpandEnv(path)
		if _, err := os.Stat(expandedPath); err == nil {
			return expandedPath
		}
	}

	return ""
}

// Load loads configuration from all sources with proper precedence.
// Order: defaults -> config file -> environment variables
// Command-line flags should be applied after calling this function.
func (m *Manager) Load() error {
	// Start with defaults (already set in NewManager)

	// Try to load from config file
	configPath := FindConfigFile()
	if configPath != "" {
		if err := m.LoadFromFile(configPath); err != nil {
			return err
		}
	}

	// Apply environment variables (override file values)
	m.LoadFromEnv()

	return nil
}

// parseBool interprets the truthy values accepted in config files and
// environment variables.
func parseBool(v string) bool {
	return strings.ToLower(v) == "true" || v == "1"
}

// parseTOML is a simple TOML parser for our configuration format.
// It handles the subset of TOML we need without external dependencies.
func parseTOML(data string, cfg *Config) error {
	lines := strings.Split(data, "\n")

	for lineNum, line := range lines {
		// Remove comments
		if idx := strings.Index(line, "#"); idx != -1 {
			line = line[:idx]
		}
		line = strings.TrimSpace(line)

		// Skip empty lines
		if line == "" {
			continue
		}

		// Parse key = value
		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			return fmt.Errorf("line %d: invalid syntax: %s", lineNum+1, line)
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])

		// Remove quotes from string values
		if len(value) >= 2 && ((value[0] == '"' && value[len(value)-1] == '"') ||
			(value[0] == '\'' && value[len(value)-1] == '\'')) {
			value = value[1 : len(value)-1]
		}

		// Apply value to config
		if err := applyConfigValue(cfg, key, value); err != nil {
			return fmt.Errorf("line %d: %w", lineNum+1, err)
		}
	}

	return nil
}

// applyConfigValue applies a key-value pair to the configuration.
func applyConfigValue(cfg *Config, key, value string) error {
	switch key {
	case "max_concurrent_requests":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid max_concurrent_requests value: %s", value)
		}
		cfg.MaxConcurrentRequests = n
	case "batch_rows":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid batch_rows value: %s", value)
		}
		cfg.BatchRows = n
	case "quorum":
		cfg.Quorum = value
	case "discovery_enabled":
		cfg.DiscoveryEnabled = parseBool(value)
	case "metrics_enabled":
		cfg.Metrics.Enabled = parseBool(value)
	case "metrics_addr":
		cfg.Metrics.Addr = value
	case "health_enabled":
		cfg.Health.Enabled = parseBool(value)
	case "health_addr":
		cfg.Health.Addr = value
	case "probe_table":
		cfg.Health.ProbeTable = value
	case "log_level":
		cfg.LogLevel = value
	case "log_json":
		cfg.LogJSON = parseBool(value)
	default:
		// Ignore unknown keys for forward compatibility
	}

	return nil
}

// String returns a string representation of the configuration.
func (c *Config) String() string {
	var sb strings.Builder
	sb.WriteString("rowgate Configuration:\n")
	sb.WriteString(fmt.Sprintf("  Max Concurrent Requests: %d\n", c.MaxConcurrentRequests))
	sb.WriteString(fmt.Sprintf("  Batch Rows:              %d\n", c.BatchRows))
	sb.WriteString(fmt.Sprintf("  Quorum:                  %s\n", c.Quorum))
	sb.WriteString(fmt.Sprintf("  Discovery:               %v\n", c.DiscoveryEnabled))
	sb.WriteString(fmt.Sprintf("  Metrics:                 %v (%s)\n", c.Metrics.Enabled, c.Metrics.Addr))
	sb.WriteString(fmt.Sprintf("  Health:                  %v (%s)\n", c.Health.Enabled, c.Health.Addr))
	sb.WriteString(fmt.Sprintf("  Log Level:               %s\n", c.LogLevel))
	sb.WriteString(fmt.Sprintf("  Log JSON:                %v\n", c.LogJSON))
	if c.ConfigFile != "" {
		sb.WriteString(fmt.Sprintf("  Config File:             %s\n", c.ConfigFile))
	}
	return sb.String()
}

// ToTOML returns the configuration as a TOML string.
func (c *Config) ToTOML() string {
	var sb strings.Builder
	sb.WriteString("# rowgate Configuration File\n")
	sb.WriteString("# Generated by rowgate\n\n")
	sb.WriteString("# Maximum concurrent in-flight requests (sizes the permit pool)\n")
	sb.WriteString(fmt.Sprintf("max_concurrent_requests = %d\n\n", c.MaxConcurrentRequests))
	sb.WriteString("# Default rows per scan batch\n")
	sb.WriteString(fmt.Sprintf("batch_rows = %d\n\n", c.BatchRows))
	sb.WriteString("# Store quorum (comma-separated host:port)\n")
	sb.WriteString(fmt.Sprintf("quorum = \"%s\"\n", c.Quorum))
	sb.WriteString(fmt.Sprintf("discovery_enabled = %v\n\n", c.DiscoveryEnabled))
	sb.WriteString("# Observability\n")
	sb.WriteString(fmt.Sprintf("metrics_enabled = %v\n", c.Metrics.Enabled))
	sb.WriteString(fmt.Sprintf("metrics_addr = \"%s\"\n", c.Metrics.Addr))
	sb.WriteString(fmt.Sprintf("health_enabled = %v\n", c.Health.Enabled))
	sb.WriteString(fmt.Sprintf("health_addr = \"%s\"\n", c.Health.Addr))
	sb.WriteString(fmt.Sprintf("probe_table = \"%s\"\n\n", c.Health.ProbeTable))
	sb.WriteString("# Logging\n")
	sb.WriteString(fmt.Sprintf("log_level = \"%s\"\n", c.LogLevel))
	sb.WriteString(fmt.Sprintf("log_json = %v\n", c.LogJSON))
	return sb.String()
}

// SaveToFile saves the configuration to a file.
func (c *Config) SaveToFile(path string) error {
	// Expand environment variables
	path = os.ExpandEnv(path)

	// Create directory if needed
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	// Write file
	if err := os.WriteFile(path, []byte(c.ToTOML()), 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
