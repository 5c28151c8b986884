package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadLayersOntoDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fleetcore.toml")
	toml := `
[osc]
host = "192.168.1.255"
port = 9100

[heartbeat]
registry_path = "/tmp/registry.json"
`
	if err := os.WriteFile(path, []byte(toml), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.OSC.Host != "192.168.1.255" || cfg.OSC.Port != 9100 {
		t.Fatalf("osc overrides not applied: %+v", cfg.OSC)
	}
	if cfg.OSC.DefaultLeadTime != 3.0 {
		t.Fatalf("expected default lead time to survive unset, got %v", cfg.OSC.DefaultLeadTime)
	}
	if cfg.Heartbeat.RegistryPath != "/tmp/registry.json" {
		t.Fatalf("heartbeat override not applied: %+v", cfg.Heartbeat)
	}
	if cfg.Heartbeat.Port != 9001 {
		t.Fatalf("expected default heartbeat port to survive unset, got %v", cfg.Heartbeat.Port)
	}
}

func TestValidateRejectsLowLeadTime(t *testing.T) {
	cfg := Default()
	cfg.OSC.DefaultLeadTime = 1.0
	if err := validate(cfg); err == nil {
		t.Fatal("expected validation error for lead time below 3.0")
	}
}

func TestValidateRejectsBadPort(t *testing.T) {
	cfg := Default()
	cfg.Heartbeat.Port = 0
	if err := validate(cfg); err == nil {
		t.Fatal("expected validation error for invalid heartbeat port")
	}
}

func TestDefaultPassesValidation(t *testing.T) {
	if err := validate(Default()); err != nil {
		t.Fatalf("Default() failed validation: %v", err)
	}
}
