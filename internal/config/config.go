package config

import "time"

// Config is the root configuration for the midicue service.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Pushover PushoverConfig `yaml:"pushover"`
	MIDI     MIDIConfig     `yaml:"midi"`
	Dispatch DispatchConfig `yaml:"dispatch"`
	MCP      MCPConfig      `yaml:"mcp"`
}

type ServerConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	LogLevel string `yaml:"log_level"`
	LogFile  string `yaml:"log_file"`
	// SecretDir holds the generated control API token.
	SecretDir string `yaml:"secret_dir"`
}

type PushoverConfig struct {
	Endpoint string        `yaml:"endpoint"`
	Title    string        `yaml:"title"`
	Timeout  time.Duration `yaml:"timeout"`
}

type MIDIConfig struct {
	PollInterval time.Duration `yaml:"poll_interval"`
	ErrorBackoff time.Duration `yaml:"error_backoff"`
}

type DispatchConfig struct {
	QueueSize int `yaml:"queue_size"`
}

type MCPConfig struct {
	Enabled bool `yaml:"enabled"`
}

// Defaults returns a Config with sensible default values.
func Defaults() *Config {
	return &Config{
		Server: ServerConfig{
			Host:      "127.0.0.1",
			Port:      8421,
			LogLevel:  "info",
			SecretDir: "~/.config/midicue",
		},
		Pushover: PushoverConfig{
			Endpoint: "https://api.pushover.net/1/messages.json",
			Title:    "Stage Alert",
			Timeout:  10 * time.Second,
		},
		MIDI: MIDIConfig{
			PollInterval: 10 * time.Millisecond,
			ErrorBackoff: 100 * time.Millisecond,
		},
		Dispatch: DispatchConfig{
			QueueSize: 32,
		},
		MCP: MCPConfig{
			Enabled: true,
		},
	}
}
