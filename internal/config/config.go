package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds all application configuration.
type Config struct {
	Backend   string        `yaml:"backend"` // "local" or "cloud"
	ModelPath string        `yaml:"model_path"`
	Cloud     CloudConfig   `yaml:"cloud"`
	Audio     AudioConfig   `yaml:"audio"`
	Hotkey    HotkeyConfig  `yaml:"hotkey"`
	Paste     PasteConfig   `yaml:"paste"`
	History   HistoryConfig `yaml:"history"`
	Notify    bool          `yaml:"notify"`
	LogLevel  string        `yaml:"log_level"`
}

// CloudConfig holds settings for the cloud transcription backend.
type CloudConfig struct {
	APIKey         string `yaml:"api_key"`
	BaseURL        string `yaml:"base_url"`
	Model          string `yaml:"model"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

// AudioConfig holds audio capture settings.
type AudioConfig struct {
	SampleRate uint32 `yaml:"sample_rate"`
	Channels   uint32 `yaml:"channels"`
}

// HotkeyConfig holds hotkey-related settings.
type HotkeyConfig struct {
	Keys []string `yaml:"keys"`
	Mode string   `yaml:"mode"` // "hold" or "toggle"
}

// PasteConfig holds output delivery settings.
type PasteConfig struct {
	Enabled bool `yaml:"enabled"`
}

// HistoryConfig holds transcript history settings.
type HistoryConfig struct {
	Path string `yaml:"path"`
}

// DefaultConfigDir returns the default config directory path.
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "whisperclip")
}

// DefaultConfigPath returns the default config file path.
func DefaultConfigPath() string {
	return filepath.Join(DefaultConfigDir(), "config.yaml")
}

// DefaultDataDir returns the default data directory for models and history.
func DefaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".local", "share", "whisperclip")
}

// DefaultModelsDir returns the default directory for downloaded models.
func DefaultModelsDir() string {
	return filepath.Join(DefaultDataDir(), "models")
}

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Backend:   "local",
		ModelPath: filepath.Join(DefaultModelsDir(), "ggml-base.en.bin"),
		Cloud: CloudConfig{
			BaseURL:        "https://api.groq.com/openai/v1",
			Model:          "whisper-large-v3-turbo",
			TimeoutSeconds: 30,
		},
		Audio: AudioConfig{
			SampleRate: 16000,
			Channels:   1,
		},
		Hotkey: HotkeyConfig{
			Keys: []string{"ctrl", "shift", "r"},
			Mode: "toggle",
		},
		Paste: PasteConfig{
			Enabled: true,
		},
		History: HistoryConfig{
			Path: filepath.Join(DefaultDataDir(), "history.db"),
		},
		Notify:   true,
		LogLevel: "info",
	}
}

// Load reads and parses a YAML config file. Missing fields are filled with
// defaults. A GROQ_API_KEY environment variable overrides cloud.api_key.
// Tilde (~) in paths is expanded to the user's home directory.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	cfg.applyEnv()
	cfg.ModelPath = expandTilde(cfg.ModelPath)
	cfg.History.Path = expandTilde(cfg.History.Path)

	return cfg, nil
}

// FromEnv returns the default config with environment overrides applied.
// Used when no config file exists.
func FromEnv() *Config {
	cfg := Default()
	cfg.applyEnv()
	return cfg
}

func (c *Config) applyEnv() {
	if key := os.Getenv("GROQ_API_KEY"); key != "" {
		c.Cloud.APIKey = key
	}
	if backend := os.Getenv("WHISPERCLIP_BACKEND"); backend != "" {
		c.Backend = backend
	}
}

// Validate checks the config for invalid values.
func (c *Config) Validate() error {
	switch c.Backend {
	case "local":
		if c.ModelPath == "" {
			return fmt.Errorf("model_path must not be empty when backend is \"local\"")
		}
	case "cloud":
		if c.Cloud.APIKey == "" {
			return fmt.Errorf("cloud.api_key (or GROQ_API_KEY) must be set when backend is \"cloud\"")
		}
		if c.Cloud.BaseURL == "" {
			return fmt.Errorf("cloud.base_url must not be empty")
		}
		if c.Cloud.Model == "" {
			return fmt.Errorf("cloud.model must not be empty")
		}
		if c.Cloud.TimeoutSeconds <= 0 {
			return fmt.Errorf("cloud.timeout_seconds must be > 0, got %d", c.Cloud.TimeoutSeconds)
		}
	default:
		return fmt.Errorf("backend must be \"local\" or \"cloud\", got %q", c.Backend)
	}

	if c.Audio.SampleRate == 0 {
		return fmt.Errorf("audio.sample_rate must be > 0")
	}

	if c.Audio.Channels == 0 {
		return fmt.Errorf("audio.channels must be > 0")
	}

	if len(c.Hotkey.Keys) == 0 {
		return fmt.Errorf("hotkey.keys must not be empty")
	}

	switch c.Hotkey.Mode {
	case "hold", "toggle":
	default:
		return fmt.Errorf("hotkey.mode must be \"hold\" or \"toggle\", got %q", c.Hotkey.Mode)
	}

	if c.History.Path == "" {
		return fmt.Errorf("history.path must not be empty")
	}

	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log_level must be debug, info, warn, or error, got %q", c.LogLevel)
	}

	return nil
}

// ParseLogLevel maps a config log level string to a slog.Level.
// Unknown values default to info.
func ParseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// WriteDefault writes a commented default config file to the default path
// if none exists. Returns the written path, or "" if a config already exists.
func WriteDefault() (string, error) {
	path := DefaultConfigPath()
	if _, err := os.Stat(path); err == nil {
		return "", nil
	}

	if err := os.MkdirAll(DefaultConfigDir(), 0755); err != nil {
		return "", fmt.Errorf("creating config dir: %w", err)
	}

	data, err := yaml.Marshal(Default())
	if err != nil {
		return "", fmt.Errorf("marshaling default config: %w", err)
	}

	header := "# whisperclip configuration\n# backend: \"local\" (whisper.cpp) or \"cloud\" (Groq-compatible API)\n# cloud.api_key may instead be supplied via the GROQ_API_KEY environment variable.\n"
	if err := os.WriteFile(path, append([]byte(header), data...), 0644); err != nil {
		return "", fmt.Errorf("writing default config: %w", err)
	}

	return path, nil
}

// expandTilde replaces a leading ~ with the user's home directory.
func expandTilde(path string) string {
	if !strings.HasPrefix(path, "~") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[1:])
}
