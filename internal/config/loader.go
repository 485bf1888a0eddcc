package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// searchPaths returns the ordered list of config file locations to try.
func searchPaths() []string {
	paths := []string{
		"/etc/midicue/midicue.yaml",
	}

	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".config", "midicue", "midicue.yaml"))
	}

	paths = append(paths, "midicue.yaml")

	if envPath := os.Getenv("MIDICUE_CONFIG"); envPath != "" {
		paths = append(paths, envPath)
	}

	return paths
}

// Load reads configuration from YAML files and environment variables.
// Files are loaded in order (each overrides the previous):
// /etc/midicue/midicue.yaml < ~/.config/midicue/midicue.yaml < ./midicue.yaml < $MIDICUE_CONFIG
func Load() (*Config, error) {
	cfg := Defaults()

	for _, path := range searchPaths() {
		if err := loadFile(cfg, path); err != nil {
			return nil, fmt.Errorf("loading config %s: %w", path, err)
		}
	}

	applyEnvOverrides(cfg)

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// LoadFromFile reads configuration from a specific file path.
func LoadFromFile(path string) (*Config, error) {
	cfg := Defaults()

	if err := loadFile(cfg, path); err != nil {
		return nil, fmt.Errorf("loading config %s: %w", path, err)
	}

	applyEnvOverrides(cfg)

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Environment variables have higher priority than YAML config values.
func applyEnvOverrides(cfg *Config) {
	if endpoint := os.Getenv("MIDICUE_PUSHOVER_ENDPOINT"); endpoint != "" {
		cfg.Pushover.Endpoint = endpoint
	}
	if level := os.Getenv("MIDICUE_LOG_LEVEL"); level != "" {
		cfg.Server.LogLevel = level
	}
}

func loadFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path) //nolint:gosec // path comes from trusted config search paths
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("reading file: %w", err)
	}

	slog.Debug("loading config file", "path", path)

	expanded := os.ExpandEnv(string(data))

	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return fmt.Errorf("parsing YAML: %w", err)
	}

	return nil
}

// ExpandHome replaces a leading ~ with the user's home directory.
func ExpandHome(path string) string {
	if !strings.HasPrefix(path, "~") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[1:])
}

func validate(cfg *Config) error {
	if cfg.Server.Port < 1 || cfg.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535, got %d", cfg.Server.Port)
	}
	if cfg.Server.Host == "0.0.0.0" || cfg.Server.Host == "::" || cfg.Server.Host == "" {
		return fmt.Errorf("server.host must be a loopback address, got %q", cfg.Server.Host)
	}
	if !strings.HasPrefix(cfg.Pushover.Endpoint, "http://") && !strings.HasPrefix(cfg.Pushover.Endpoint, "https://") {
		return fmt.Errorf("pushover.endpoint must be an http(s) URL, got %q", cfg.Pushover.Endpoint)
	}
	if cfg.Pushover.Timeout <= 0 {
		return fmt.Errorf("pushover.timeout must be positive")
	}
	if cfg.MIDI.PollInterval <= 0 {
		return fmt.Errorf("midi.poll_interval must be positive")
	}
	if cfg.MIDI.ErrorBackoff <= 0 {
		return fmt.Errorf("midi.error_backoff must be positive")
	}
	if cfg.Dispatch.QueueSize < 1 {
		return fmt.Errorf("dispatch.queue_size must be at least 1")
	}

	cfg.Server.SecretDir = ExpandHome(cfg.Server.SecretDir)

	return nil
}
