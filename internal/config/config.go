// Package config handles loading, defaulting, and validation of the fleet
// core's TOML configuration file. Every section maps to a typed struct so
// the rest of the codebase gets strong typing without manual key lookups.
package config

import (
	"errors"
	"os"

	"github.com/pelletier/go-toml/v2"
)

// Config is the top-level configuration, mirroring the TOML sections.
type Config struct {
	Server    ServerConfig    `toml:"server"    json:"server"`
	OSC       OSCConfig       `toml:"osc"       json:"osc"`
	Heartbeat HeartbeatConfig `toml:"heartbeat" json:"heartbeat"`
	Telemetry TelemetryConfig `toml:"telemetry" json:"telemetry"`
	Logging   LoggingConfig   `toml:"logging"   json:"logging"`
}

// ServerConfig controls the monitor daemon's HTTP control/status surface.
type ServerConfig struct {
	Bind string `toml:"bind" json:"bind"`
}

// OSCConfig controls the scheduler's outbound transport.
type OSCConfig struct {
	Host              string  `toml:"host"                json:"host"`
	Port              int     `toml:"port"                json:"port"`
	Broadcast         bool    `toml:"broadcast"            json:"broadcast"`
	DefaultLeadTime   float64 `toml:"default_lead_time"    json:"default_lead_time"`
	BundleSpacing     float64 `toml:"bundle_spacing"       json:"bundle_spacing"`
	EncryptionEnabled bool    `toml:"encryption_enabled"   json:"encryption_enabled"`
}

// HeartbeatConfig controls the monitor's UDP listener, registry, and CSV
// sink.
type HeartbeatConfig struct {
	Host         string `toml:"host"          json:"host"`
	Port         int    `toml:"port"          json:"port"`
	RegistryPath string `toml:"registry_path" json:"registry_path"`
	CSVPath      string `toml:"csv_path"      json:"csv_path"`
	Quiet        bool   `toml:"quiet"         json:"quiet"`
}

// TelemetryConfig controls the WebSocket fan-out endpoint.
type TelemetryConfig struct {
	Path            string `toml:"path"             json:"path"`
	BroadcastBuffer int    `toml:"broadcast_buffer" json:"broadcast_buffer"`
}

// LoggingConfig controls the structured logging level.
type LoggingConfig struct {
	Level string `toml:"level" json:"level"`
}

// Default returns a Config populated with sane defaults. Values here are
// used whenever the TOML file omits a field.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Bind: "0.0.0.0:8080",
		},
		OSC: OSCConfig{
			Host:              "255.255.255.255",
			Port:              9000,
			Broadcast:         true,
			DefaultLeadTime:   3.0,
			BundleSpacing:     0.05,
			EncryptionEnabled: false,
		},
		Heartbeat: HeartbeatConfig{
			Host:         "0.0.0.0",
			Port:         9001,
			RegistryPath: "/var/lib/fleetcore/registry.json",
			CSVPath:      "/var/lib/fleetcore/heartbeats.csv",
			Quiet:        false,
		},
		Telemetry: TelemetryConfig{
			Path:            "/ws",
			BroadcastBuffer: 256,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load reads the TOML file at path, layers it on top of the defaults, and
// validates the result. An error is returned if the file can't be read,
// parsed, or if any constraint is violated.
func Load(path string) (Config, error) {
	cfg := Default()

	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}

	if err := toml.Unmarshal(b, &cfg); err != nil {
		return cfg, err
	}

	if err := validate(cfg); err != nil {
		return cfg, err
	}

	return cfg, nil
}

func validate(cfg Config) error {
	if cfg.Server.Bind == "" {
		return errors.New("server.bind must not be empty")
	}
	if cfg.OSC.Port <= 0 || cfg.OSC.Port > 65535 {
		return errors.New("osc.port must be between 1 and 65535")
	}
	if cfg.OSC.DefaultLeadTime < 3.0 {
		return errors.New("osc.default_lead_time must be >= 3.0")
	}
	if cfg.OSC.BundleSpacing < 0.01 {
		return errors.New("osc.bundle_spacing must be >= 0.01")
	}
	if cfg.Heartbeat.Port <= 0 || cfg.Heartbeat.Port > 65535 {
		return errors.New("heartbeat.port must be between 1 and 65535")
	}
	if cfg.Heartbeat.RegistryPath == "" {
		return errors.New("heartbeat.registry_path must not be empty")
	}
	if cfg.Telemetry.Path == "" {
		return errors.New("telemetry.path must not be empty")
	}
	if cfg.Telemetry.BroadcastBuffer <= 0 {
		return errors.New("telemetry.broadcast_buffer must be > 0")
	}
	return nil
}
