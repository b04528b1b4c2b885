package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config collects everything the client needs to join a session.
type Config struct {
	Server  *ServerConfig  `json:"server"`
	Archive *ArchiveConfig `json:"archive"`
}

// ServerConfig locates the relay and tunes the channel.
type ServerConfig struct {
	URL          string        `json:"url"`
	DialTimeout  time.Duration `json:"dial_timeout"`
	WriteTimeout time.Duration `json:"write_timeout"`
	SendBuffer   int           `json:"send_buffer"`
}

// ArchiveConfig locates the transcript mirror. The default keeps it in
// memory; point Path at a file to keep a copy of the session transcript.
type ArchiveConfig struct {
	Path string `json:"path"`
}

// DefaultConfig returns the local-development defaults.
func DefaultConfig() *Config {
	return &Config{
		Server: &ServerConfig{
			URL:          "ws://localhost:8000",
			DialTimeout:  10 * time.Second,
			WriteTimeout: 5 * time.Second,
			SendBuffer:   100,
		},
		Archive: &ArchiveConfig{
			Path: ":memory:",
		},
	}
}

// Validate rejects configurations that cannot work.
func (c *Config) Validate() error {
	if c.Server == nil {
		return fmt.Errorf("server configuration is required")
	}
	if c.Server.URL == "" {
		return fmt.Errorf("server URL cannot be empty")
	}
	if c.Server.DialTimeout <= 0 {
		return fmt.Errorf("dial timeout must be positive")
	}
	if c.Server.WriteTimeout <= 0 {
		return fmt.Errorf("write timeout must be positive")
	}
	if c.Server.SendBuffer <= 0 {
		return fmt.Errorf("send buffer must be positive")
	}
	if c.Archive == nil {
		return fmt.Errorf("archive configuration is required")
	}
	if c.Archive.Path == "" {
		return fmt.Errorf("archive path cannot be empty")
	}
	return nil
}

// LoadFromEnv layers environment variables over the defaults.
func LoadFromEnv() *Config {
	config := DefaultConfig()

	if url := os.Getenv("BREAKOUT_SERVER_URL"); url != "" {
		config.Server.URL = url
	}
	if dialTimeout := os.Getenv("BREAKOUT_DIAL_TIMEOUT"); dialTimeout != "" {
		if timeout, err := time.ParseDuration(dialTimeout); err == nil {
			config.Server.DialTimeout = timeout
		}
	}
	if writeTimeout := os.Getenv("BREAKOUT_WRITE_TIMEOUT"); writeTimeout != "" {
		if timeout, err := time.ParseDuration(writeTimeout); err == nil {
			config.Server.WriteTimeout = timeout
		}
	}
	if sendBuffer := os.Getenv("BREAKOUT_SEND_BUFFER"); sendBuffer != "" {
		if size, err := strconv.Atoi(sendBuffer); err == nil {
			config.Server.SendBuffer = size
		}
	}
	if archivePath := os.Getenv("BREAKOUT_ARCHIVE_PATH"); archivePath != "" {
		config.Archive.Path = archivePath
	}

	return config
}

// ConfigFile mirrors Config for JSON parsing; durations arrive as strings.
type ConfigFile struct {
	Server  *ServerConfigFile  `json:"server"`
	Archive *ArchiveConfigFile `json:"archive"`
}

type ServerConfigFile struct {
	URL          string `json:"url"`
	DialTimeout  string `json:"dial_timeout"`
	WriteTimeout string `json:"write_timeout"`
	SendBuffer   int    `json:"send_buffer"`
}

type ArchiveConfigFile struct {
	Path string `json:"path"`
}

// LoadFromFile reads a JSON configuration file over the defaults.
func LoadFromFile(filepath string) (*Config, error) {
	data, err := os.ReadFile(filepath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", filepath, err)
	}

	var configFile ConfigFile
	if err := json.Unmarshal(data, &configFile); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", filepath, err)
	}

	config := DefaultConfig()

	if configFile.Server != nil {
		if configFile.Server.URL != "" {
			config.Server.URL = configFile.Server.URL
		}
		if configFile.Server.SendBuffer > 0 {
			config.Server.SendBuffer = configFile.Server.SendBuffer
		}
		if configFile.Server.DialTimeout != "" {
			if timeout, err := time.ParseDuration(configFile.Server.DialTimeout); err == nil {
				config.Server.DialTimeout = timeout
			}
		}
		if configFile.Server.WriteTimeout != "" {
			if timeout, err := time.ParseDuration(configFile.Server.WriteTimeout); err == nil {
				config.Server.WriteTimeout = timeout
			}
		}
	}

	if configFile.Archive != nil && configFile.Archive.Path != "" {
		config.Archive.Path = configFile.Archive.Path
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration in %s: %w", filepath, err)
	}

	return config, nil
}

// LoadConfigWithPrecedence resolves configuration as file > environment >
// defaults. File errors fall back silently; environment and defaults
// still apply.
func LoadConfigWithPrecedence(filepath string) *Config {
	config := LoadFromEnv()

	if filepath != "" {
		if fileConfig, err := LoadFromFile(filepath); err == nil {
			config = fileConfig
		}
	}

	return config
}
