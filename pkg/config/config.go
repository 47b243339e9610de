// Package config loads service configuration from a YAML file with
// environment-variable overrides for deployment-specific values.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the full service configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Browser   BrowserConfig   `yaml:"browser"`
	Terminal  TerminalConfig  `yaml:"terminal"`
	LLM       LLMConfig       `yaml:"llm"`
	Whitelist WhitelistConfig `yaml:"command_whitelist"`
}

// ServerConfig configures the HTTP boundary.
type ServerConfig struct {
	Listen string `yaml:"listen"`
}

// BrowserConfig configures the browser session manager.
type BrowserConfig struct {
	Headless          bool `yaml:"headless"`
	ViewportWidth     int  `yaml:"viewport_width"`
	ViewportHeight    int  `yaml:"viewport_height"`
	NavigationTimeout int  `yaml:"navigation_timeout_seconds"`
	MaxContexts       int  `yaml:"max_contexts"`
	IdleTimeout       int  `yaml:"idle_timeout_seconds"`
	ReapInterval      int  `yaml:"reap_interval_seconds"`
}

// TerminalConfig configures the terminal session manager.
type TerminalConfig struct {
	DefaultDir     string `yaml:"default_dir"`
	CommandTimeout int    `yaml:"command_timeout_seconds"`
	LogCapacity    int    `yaml:"log_capacity"`
	MaxSessions    int    `yaml:"max_sessions"`
}

// LLMConfig configures the model registry.
type LLMConfig struct {
	DefaultModel string `yaml:"default_model"`
	BaseURL      string `yaml:"base_url"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		Server: ServerConfig{Listen: ":8787"},
		Browser: BrowserConfig{
			Headless:          true,
			ViewportWidth:     1280,
			ViewportHeight:    720,
			NavigationTimeout: 30,
			MaxContexts:       10,
			IdleTimeout:       300,
			ReapInterval:      60,
		},
		Terminal: TerminalConfig{
			DefaultDir:     "/home",
			CommandTimeout: 60,
			LogCapacity:    100,
			MaxSessions:    20,
		},
		LLM: LLMConfig{DefaultModel: "gpt-4o"},
		Whitelist: WhitelistConfig{
			Enabled: false,
			Patterns: []string{
				"pwd",
				"ls*",
				"cat *",
				"git *",
				"npm *",
			},
		},
	}
}

// Load reads the configuration at path, layered over defaults. A
// missing file is not an error; environment overrides are applied last.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("failed to read config %s: %w", path, err)
			}
		} else if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	}

	if listen := os.Getenv("OUTPOST_LISTEN"); listen != "" {
		cfg.Server.Listen = listen
	}
	if headless := os.Getenv("OUTPOST_BROWSER_HEADLESS"); headless != "" {
		cfg.Browser.Headless = headless != "false" && headless != "0"
	}
	if baseURL := os.Getenv("OPENAI_BASE_URL"); baseURL != "" {
		cfg.LLM.BaseURL = baseURL
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.Server.Listen == "" {
		return fmt.Errorf("server.listen must not be empty")
	}
	if c.Browser.ViewportWidth <= 0 || c.Browser.ViewportHeight <= 0 {
		return fmt.Errorf("browser viewport dimensions must be positive")
	}
	if c.Terminal.LogCapacity <= 0 {
		return fmt.Errorf("terminal.log_capacity must be positive")
	}
	if _, err := c.Whitelist.Matcher(); err != nil {
		return err
	}
	return nil
}

// NavigationTimeoutDuration returns the browser navigation timeout.
func (c BrowserConfig) NavigationTimeoutDuration() time.Duration {
	return time.Duration(c.NavigationTimeout) * time.Second
}

// IdleTimeoutDuration returns the browser context idle timeout.
func (c BrowserConfig) IdleTimeoutDuration() time.Duration {
	return time.Duration(c.IdleTimeout) * time.Second
}

// ReapIntervalDuration returns the idle-reaper tick interval.
func (c BrowserConfig) ReapIntervalDuration() time.Duration {
	return time.Duration(c.ReapInterval) * time.Second
}

// CommandTimeoutDuration returns the terminal command timeout.
func (c TerminalConfig) CommandTimeoutDuration() time.Duration {
	return time.Duration(c.CommandTimeout) * time.Second
}
