package config

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultPath is the configuration file looked up when none is specified.
const DefaultPath = "reaper.yaml"

// Environment variables that override file values.
const (
	EnvConfig      = "REAPER_CONFIG"
	EnvTarget      = "REAPER_TARGET"
	EnvGracePeriod = "REAPER_GRACE_PERIOD"
	EnvBackend     = "REAPER_BACKEND"
	EnvLogLevel    = "REAPER_LOG_LEVEL"
	EnvLogFormat   = "REAPER_LOG_FORMAT"
	EnvAddr        = "REAPER_ADDR"
)

// Load reads a configuration file from the provided path, applies
// environment overrides and validates the result.
func Load(path string) (*Config, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve config path: %w", err)
	}

	data, err := os.ReadFile(absPath)
	if err != nil {
		return nil, fmt.Errorf("open config file: %w", err)
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", absPath, err)
	}
	return cfg, nil
}

// LoadOptional behaves like Load but falls back to defaults when the file
// does not exist.
func LoadOptional(path string) (*Config, error) {
	cfg, err := Load(path)
	if err == nil {
		return cfg, nil
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}
	cfg = &Config{}
	if err := finish(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Resolve loads the file named by REAPER_CONFIG or explicit when set, and
// the optional default file otherwise.
func Resolve(explicit string) (*Config, error) {
	if explicit != "" {
		return Load(explicit)
	}
	if path := strings.TrimSpace(os.Getenv(EnvConfig)); path != "" {
		return Load(path)
	}
	return LoadOptional(DefaultPath)
}

// Parse decodes, validates and defaults a configuration document.
func Parse(data []byte) (*Config, error) {
	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	if raw == nil {
		raw = map[string]any{}
	}
	if err := validateAgainstSchema(raw); err != nil {
		return nil, err
	}

	var cfg Config
	if len(bytes.TrimSpace(data)) > 0 {
		decoder := yaml.NewDecoder(bytes.NewReader(data))
		decoder.KnownFields(true)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, fmt.Errorf("decode: %w", err)
		}
	}
	if err := finish(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func finish(cfg *Config) error {
	if err := applyEnv(cfg); err != nil {
		return err
	}
	if err := cfg.ApplyDefaults(); err != nil {
		return err
	}
	return cfg.Validate()
}

func applyEnv(cfg *Config) error {
	if value := strings.TrimSpace(os.Getenv(EnvTarget)); value != "" {
		cfg.Target.Name = value
	}
	if value := strings.TrimSpace(os.Getenv(EnvGracePeriod)); value != "" {
		dur, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("%s: invalid duration %q: %w", EnvGracePeriod, value, err)
		}
		cfg.GracePeriod = Duration{Duration: dur, explicit: true}
	}
	if value := strings.TrimSpace(os.Getenv(EnvBackend)); value != "" {
		cfg.Backend = value
	}
	if value := strings.TrimSpace(os.Getenv(EnvLogLevel)); value != "" {
		cfg.Log.Level = value
	}
	if value := strings.TrimSpace(os.Getenv(EnvLogFormat)); value != "" {
		cfg.Log.Format = value
	}
	if value := strings.TrimSpace(os.Getenv(EnvAddr)); value != "" {
		cfg.Server.Addr = value
	}
	return nil
}

// Marshal renders the configuration as YAML.
func Marshal(cfg *Config) ([]byte, error) {
	buf := &bytes.Buffer{}
	enc := yaml.NewEncoder(buf)
	enc.SetIndent(2)
	if err := enc.Encode(cfg); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
