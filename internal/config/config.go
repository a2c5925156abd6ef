package config

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

//go:embed default.yaml
var DefaultConfigYAML []byte

type Config struct {
	Research Research `yaml:"research"`
	Server   Server   `yaml:"server"`
	Logging  Logging  `yaml:"logging"`
}

type Research struct {
	Provider     string `yaml:"provider"`
	Model        string `yaml:"model"`
	OllamaURL    string `yaml:"ollama_url"`
	OpenAIModel  string `yaml:"openai_model"`
	APIKeyEnv    string `yaml:"api_key_env"`
	MaxTokens    int    `yaml:"max_tokens"`
	TrackDelayMS int    `yaml:"track_delay_ms"`
}

type Server struct {
	Port int `yaml:"port"`
}

type Logging struct {
	Level string `yaml:"level"`
}

// ConfigDir returns the XDG config directory for showprep.
func ConfigDir() string {
	return filepath.Join(homeDir(), ".config", "showprep")
}

// ResolveConfigPath finds the config file following priority:
// explicit path > ~/.config/showprep/config.yaml > ./config.yaml
func ResolveConfigPath(explicit string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", fmt.Errorf("config file not found: %s", explicit)
		}
		return explicit, nil
	}

	xdgConfig := filepath.Join(ConfigDir(), "config.yaml")
	if _, err := os.Stat(xdgConfig); err == nil {
		return xdgConfig, nil
	}

	cwdConfig := "config.yaml"
	if _, err := os.Stat(cwdConfig); err == nil {
		return cwdConfig, nil
	}

	return "", fmt.Errorf(
		"no config file found; searched:\n  %s\n  ./config.yaml\n\nRun 'showprep init' to create a default config",
		xdgConfig,
	)
}

// Load reads and parses a config YAML file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	return parse(data)
}

// parse parses YAML bytes into a Config, applying defaults.
func parse(data []byte) (*Config, error) {
	cfg := &Config{
		Research: Research{
			Provider:     "openai",
			Model:        "qwen2.5:7b",
			OllamaURL:    "http://localhost:11434",
			OpenAIModel:  "gpt-4o-mini",
			APIKeyEnv:    "OPENAI_API_KEY",
			MaxTokens:    1024,
			TrackDelayMS: 1000,
		},
		Server:  Server{Port: 8080},
		Logging: Logging{Level: "INFO"},
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	return cfg, nil
}

// TrackDelay returns the courtesy pause between enrichment calls.
func (c *Config) TrackDelay() time.Duration {
	if c.Research.TrackDelayMS < 0 {
		return 0
	}
	return time.Duration(c.Research.TrackDelayMS) * time.Millisecond
}

func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}
