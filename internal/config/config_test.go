package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultIsCapabilityDenying(t *testing.T) {
	cfg := Default()
	if cfg.Capability.AllowNetwork || cfg.Capability.AllowFS {
		t.Errorf("Default() should deny network and filesystem capabilities, got %+v", cfg.Capability)
	}
	if cfg.Limits.MaxCallDepth <= 0 {
		t.Errorf("Default() must set a positive MaxCallDepth, got %d", cfg.Limits.MaxCallDepth)
	}
}

func TestLoadYAMLOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".jsvmrc.yaml")
	doc := "log_level: debug\ncapability:\n  allow_network: true\nlimits:\n  max_call_depth: 42\n"
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatalf("writing fixture: %v", err)
	}

	cfg, err := LoadYAML(Default(), path)
	if err != nil {
		t.Fatalf("LoadYAML failed: %v", err)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("expected log_level=debug, got %s", cfg.LogLevel)
	}
	if !cfg.Capability.AllowNetwork {
		t.Errorf("expected allow_network=true")
	}
	if cfg.Limits.MaxCallDepth != 42 {
		t.Errorf("expected max_call_depth=42, got %d", cfg.Limits.MaxCallDepth)
	}
	if cfg.SnapshotDir != Default().SnapshotDir {
		t.Errorf("fields absent from the document should keep their default, got SnapshotDir=%s", cfg.SnapshotDir)
	}
}

func TestLoadYAMLMissingFileIsNotAnError(t *testing.T) {
	cfg, err := LoadYAML(Default(), filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("missing file should not error, got %v", err)
	}
	if cfg != Default() {
		t.Errorf("missing file should leave cfg unchanged")
	}
}

func TestLoadDispatchesByExtension(t *testing.T) {
	dir := t.TempDir()
	yamlPath := filepath.Join(dir, "jsvm.yaml")
	if err := os.WriteFile(yamlPath, []byte("log_level: trace\n"), 0o644); err != nil {
		t.Fatalf("writing fixture: %v", err)
	}
	cfg, err := Load(Default(), yamlPath)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.LogLevel != "trace" {
		t.Errorf("expected Load to route a .yaml path through LoadYAML, got LogLevel=%s", cfg.LogLevel)
	}

	envPath := filepath.Join(dir, "jsvm.env")
	if err := os.WriteFile(envPath, []byte("JSVM_LOG_LEVEL=warn\n"), 0o644); err != nil {
		t.Fatalf("writing fixture: %v", err)
	}
	cfg, err = Load(Default(), envPath)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.LogLevel != "warn" {
		t.Errorf("expected Load to route a non-.yaml path through LoadEnv, got LogLevel=%s", cfg.LogLevel)
	}
}

func TestValidateRejectsNonPositiveLimits(t *testing.T) {
	cfg := Default()
	cfg.Limits.MaxCallDepth = 0
	if err := cfg.Validate(); err == nil {
		t.Errorf("expected Validate to reject a zero MaxCallDepth")
	}
}
