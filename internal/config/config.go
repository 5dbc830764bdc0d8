// Package config loads and validates runtime configuration for the engine:
// capability defaults, GC thresholds, stack/call limits, snapshot location,
// and log level. Values can be overridden by a `.jsvmrc.env` file picked up
// with godotenv, the way a host's API endpoints or secrets would be, or by
// a `.jsvmrc.yaml` file unmarshaled with yaml.v3 for a host that wants a
// structured config document instead of flat env vars.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// CapabilityDefaults mirrors internal/capability's gate surface so a host
// can express "deny network by default" etc. without importing capability
// directly (config is loaded before the capability package is wired).
type CapabilityDefaults struct {
	AllowNetwork bool `json:"allow_network" yaml:"allow_network"`
	AllowFS      bool `json:"allow_fs" yaml:"allow_fs"`
	AllowTimers  bool `json:"allow_timers" yaml:"allow_timers"`
}

// Limits bounds a runtime's resource consumption (spec.md §5).
type Limits struct {
	MaxHeapBytes   int64 `json:"max_heap_bytes" yaml:"max_heap_bytes"`
	MaxOperandSlot int   `json:"max_operand_slots" yaml:"max_operand_slots"`
	MaxCallDepth   int   `json:"max_call_depth" yaml:"max_call_depth"`
	OpcodeBudget   int64 `json:"opcode_budget" yaml:"opcode_budget"` // 0 means unbounded
}

// GC tunes the mark-and-sweep collector's trigger threshold.
type GC struct {
	InitialThresholdBytes int64   `json:"initial_threshold_bytes" yaml:"initial_threshold_bytes"`
	GrowthFactor          float64 `json:"growth_factor" yaml:"growth_factor"`
}

// Config is the full runtime configuration a host assembles before
// constructing a vm.Interpreter.
type Config struct {
	Capability  CapabilityDefaults `json:"capability" yaml:"capability"`
	Limits      Limits             `json:"limits" yaml:"limits"`
	GC          GC                 `json:"gc" yaml:"gc"`
	SnapshotDir string             `json:"snapshot_dir" yaml:"snapshot_dir"`
	LogDir      string             `json:"log_dir" yaml:"log_dir"`
	LogLevel    string             `json:"log_level" yaml:"log_level"`
	DebugMode   bool               `json:"debug_mode" yaml:"debug_mode"`
}

// Default returns a conservative, capability-denying configuration.
func Default() Config {
	return Config{
		Capability:  CapabilityDefaults{},
		Limits:      Limits{MaxHeapBytes: 256 << 20, MaxOperandSlot: 10000, MaxCallDepth: 1000},
		GC:          GC{InitialThresholdBytes: 4 << 20, GrowthFactor: 2},
		SnapshotDir: ".jsvm/snapshots",
		LogDir:      ".jsvm/logs",
		LogLevel:    "info",
	}
}

// LoadEnv applies a `.env`-style file (default `.jsvmrc.env`) over cfg's
// defaults, returning the merged config. A missing file is not an error —
// it simply means no overrides apply.
func LoadEnv(cfg Config, path string) (Config, error) {
	if path == "" {
		path = ".jsvmrc.env"
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}
	vars, err := godotenv.Read(path)
	if err != nil {
		return cfg, fmt.Errorf("config: loading %s: %w", path, err)
	}
	if v, ok := vars["JSVM_SNAPSHOT_DIR"]; ok && v != "" {
		cfg.SnapshotDir = v
	}
	if v, ok := vars["JSVM_LOG_DIR"]; ok && v != "" {
		cfg.LogDir = v
	}
	if v, ok := vars["JSVM_LOG_LEVEL"]; ok && v != "" {
		cfg.LogLevel = v
	}
	if v, ok := vars["JSVM_DEBUG"]; ok && (v == "1" || v == "true") {
		cfg.DebugMode = true
	}
	if v, ok := vars["JSVM_ALLOW_NETWORK"]; ok && (v == "1" || v == "true") {
		cfg.Capability.AllowNetwork = true
	}
	if v, ok := vars["JSVM_ALLOW_FS"]; ok && (v == "1" || v == "true") {
		cfg.Capability.AllowFS = true
	}
	if v, ok := vars["JSVM_ALLOW_TIMERS"]; ok && (v == "1" || v == "true") {
		cfg.Capability.AllowTimers = true
	}
	return cfg, nil
}

// LoadYAML merges a structured YAML document over cfg's defaults. Like
// LoadEnv, a missing file is not an error. Only fields present in the
// document override cfg, so a host can ship a partial `.jsvmrc.yaml`
// covering just the settings it cares about.
func LoadYAML(cfg Config, path string) (Config, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return cfg, fmt.Errorf("config: reading %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("config: parsing %s: %w", path, err)
	}
	return cfg, nil
}

// Load dispatches to LoadYAML or LoadEnv based on path's extension, so a
// host can hand either format to the same --config flag. An empty path
// falls back to LoadEnv's own `.jsvmrc.env` default.
func Load(cfg Config, path string) (Config, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return LoadYAML(cfg, path)
	default:
		return LoadEnv(cfg, path)
	}
}

// Validate checks the config is internally consistent before it's used to
// construct a runtime.
func (c Config) Validate() error {
	if c.Limits.MaxOperandSlot <= 0 {
		return fmt.Errorf("config validation failed: max_operand_slots must be positive")
	}
	if c.Limits.MaxCallDepth <= 0 {
		return fmt.Errorf("config validation failed: max_call_depth must be positive")
	}
	if c.GC.GrowthFactor <= 1 {
		return fmt.Errorf("config validation failed: gc growth_factor must exceed 1")
	}
	if c.SnapshotDir == "" {
		return fmt.Errorf("config validation failed: snapshot_dir is required")
	}
	return nil
}
