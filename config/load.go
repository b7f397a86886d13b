package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

const envPrefix = "CANLINK"

// Load returns the defaults overlaid with the given file (optional) and
// environment overrides, in that order. An empty path skips the file layer.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		if err := loadFileInto(cfg, path); err != nil {
			return nil, err
		}
	}
	applyEnvOverrides(cfg)
	return cfg, nil
}

// LoadFile reads one configuration file over the defaults. YAML is selected
// by a .yaml/.yml extension, JSON otherwise.
func LoadFile(path string) (*Config, error) {
	return Load(path)
}

func loadFileInto(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config: read %s: %w", path, err)
	}
	// Unmarshaling over the defaults keeps any field the file omits.
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return fmt.Errorf("config: parse %s: %w", path, err)
		}
	default:
		if err := json.Unmarshal(data, cfg); err != nil {
			return fmt.Errorf("config: parse %s: %w", path, err)
		}
	}
	return nil
}

func applyEnvOverrides(cfg *Config) {
	if val := os.Getenv(envPrefix + "_NODE_ORG"); val != "" {
		cfg.Node.Org = val
	}
	if val := os.Getenv(envPrefix + "_NODE_ID"); val != "" {
		cfg.Node.ID = val
	}
	if val := os.Getenv(envPrefix + "_TRANSPORT_TYPE"); val != "" {
		cfg.Transport.Type = val
	}
	if val := os.Getenv(envPrefix + "_TRANSPORT_CHANNEL"); val != "" {
		cfg.Transport.Channel = val
	}
	if val := os.Getenv(envPrefix + "_VEHICLE_NAME"); val != "" {
		cfg.Vehicle.Name = val
	}
	if val := os.Getenv(envPrefix + "_NATS_URLS"); val != "" {
		cfg.Telemetry.URLs = strings.Split(val, ",")
	}
	if val := os.Getenv(envPrefix + "_NATS_USERNAME"); val != "" {
		cfg.Telemetry.Username = val
	}
	if val := os.Getenv(envPrefix + "_NATS_PASSWORD"); val != "" {
		cfg.Telemetry.Password = val
	}
	if val := os.Getenv(envPrefix + "_NATS_TOKEN"); val != "" {
		cfg.Telemetry.Token = val
	}
}
