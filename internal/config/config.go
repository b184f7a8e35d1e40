// Package config loads the service configuration: path-loss calibration,
// area/zone thresholds, the tracked-device allow-list, and the static
// scanner topology and area-name directory.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// DefaultConfigPath is the path to the stock configuration file.
const DefaultConfigPath = "config/presence.defaults.json"

// ScannerEntry describes one fixed receiver in the topology section.
type ScannerEntry struct {
	AreaID string `json:"area_id"`
	Name   string `json:"name,omitempty"`
}

// Config is the root configuration. Fields are pointers so a partial
// JSON file overrides only what it names; the Get* accessors supply
// defaults for everything omitted.
type Config struct {
	// Area/zone thresholds
	MaxAreaRadiusM  *float64 `json:"max_area_radius_m,omitempty"`
	PresenceTimeout *string  `json:"presence_timeout,omitempty"` // duration string like "60s"
	RefreshInterval *string  `json:"refresh_interval,omitempty"` // duration string like "10s"

	// Path-loss calibration
	RefPowerDbm       *float64 `json:"ref_power_dbm,omitempty"`
	AttenuationFactor *float64 `json:"attenuation_factor,omitempty"`

	// Devices participating in presence notification
	TrackedAddresses []string `json:"tracked_addresses,omitempty"`

	// Eviction horizon for devices unseen this long; empty = keep forever
	DeviceEvictAfter *string `json:"device_evict_after,omitempty"`

	// Scanner topology: address -> installation details
	Scanners map[string]ScannerEntry `json:"scanners,omitempty"`

	// Area-name directory: area id -> display names (usually one)
	Areas map[string][]string `json:"areas,omitempty"`
}

// EmptyConfig returns a Config with all fields unset.
func EmptyConfig() *Config {
	return &Config{}
}

// LoadConfig loads a Config from a JSON file. The file must have a
// .json extension and stay under the max file size. Omitted fields keep
// their defaults, so partial configs are safe.
func LoadConfig(path string) (*Config, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024 // 1MB
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := EmptyConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks the configuration values.
func (c *Config) Validate() error {
	if c.MaxAreaRadiusM != nil && *c.MaxAreaRadiusM <= 0 {
		return fmt.Errorf("max_area_radius_m must be positive, got %f", *c.MaxAreaRadiusM)
	}

	if c.AttenuationFactor != nil && *c.AttenuationFactor <= 0 {
		return fmt.Errorf("attenuation_factor must be positive, got %f", *c.AttenuationFactor)
	}

	for _, field := range []struct {
		name  string
		value *string
	}{
		{"presence_timeout", c.PresenceTimeout},
		{"refresh_interval", c.RefreshInterval},
		{"device_evict_after", c.DeviceEvictAfter},
	} {
		if field.value != nil && *field.value != "" {
			if _, err := time.ParseDuration(*field.value); err != nil {
				return fmt.Errorf("invalid %s %q: %w", field.name, *field.value, err)
			}
		}
	}

	for addr, entry := range c.Scanners {
		if entry.AreaID == "" {
			return fmt.Errorf("scanner %s has no area_id", addr)
		}
	}

	return nil
}

// GetMaxAreaRadiusM returns the area radius in metres or the default.
func (c *Config) GetMaxAreaRadiusM() float64 {
	if c.MaxAreaRadiusM == nil {
		return 3.0
	}
	return *c.MaxAreaRadiusM
}

// GetPresenceTimeout parses and returns the presence timeout.
func (c *Config) GetPresenceTimeout() time.Duration {
	return c.duration(c.PresenceTimeout, 60*time.Second)
}

// GetRefreshInterval parses and returns the tick interval.
func (c *Config) GetRefreshInterval() time.Duration {
	return c.duration(c.RefreshInterval, 10*time.Second)
}

// GetRefPowerDbm returns the 1m reference power or the default.
func (c *Config) GetRefPowerDbm() float64 {
	if c.RefPowerDbm == nil {
		return -55.0
	}
	return *c.RefPowerDbm
}

// GetAttenuationFactor returns the attenuation factor or the default.
func (c *Config) GetAttenuationFactor() float64 {
	if c.AttenuationFactor == nil {
		return 3.0
	}
	return *c.AttenuationFactor
}

// GetDeviceEvictAfter returns the eviction horizon; zero means devices
// are kept forever.
func (c *Config) GetDeviceEvictAfter() time.Duration {
	return c.duration(c.DeviceEvictAfter, 0)
}

func (c *Config) duration(value *string, fallback time.Duration) time.Duration {
	if value == nil || *value == "" {
		return fallback
	}
	d, err := time.ParseDuration(*value)
	if err != nil {
		return fallback
	}
	return d
}
