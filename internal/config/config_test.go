package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"gopkg.in/yaml.v3"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Backend != "local" {
		t.Errorf("Backend = %q, want %q", cfg.Backend, "local")
	}
	if cfg.ModelPath == "" {
		t.Error("ModelPath should not be empty")
	}
	if cfg.Cloud.Model != "whisper-large-v3-turbo" {
		t.Errorf("Cloud.Model = %q, want %q", cfg.Cloud.Model, "whisper-large-v3-turbo")
	}
	if cfg.Cloud.TimeoutSeconds != 30 {
		t.Errorf("Cloud.TimeoutSeconds = %d, want 30", cfg.Cloud.TimeoutSeconds)
	}
	if cfg.Audio.SampleRate != 16000 {
		t.Errorf("Audio.SampleRate = %d, want 16000", cfg.Audio.SampleRate)
	}
	if cfg.Audio.Channels != 1 {
		t.Errorf("Audio.Channels = %d, want 1", cfg.Audio.Channels)
	}
	if cfg.Hotkey.Mode != "toggle" {
		t.Errorf("Hotkey.Mode = %q, want %q", cfg.Hotkey.Mode, "toggle")
	}
	if !cfg.Paste.Enabled {
		t.Error("Paste.Enabled should default to true")
	}
	if cfg.History.Path == "" {
		t.Error("History.Path should not be empty")
	}
	if cfg.LogLevel != "info" {
		t.Errorf("LogLevel = %q, want %q", cfg.LogLevel, "info")
	}
}

func TestLoad(t *testing.T) {
	yamlContent := `
backend: cloud
model_path: /tmp/test-model.bin
cloud:
  api_key: gsk_test
  model: whisper-large-v3
  timeout_seconds: 10
audio:
  sample_rate: 44100
  channels: 2
hotkey:
  keys: ["alt", "d"]
  mode: hold
paste:
  enabled: false
history:
  path: /tmp/history.db
log_level: debug
`
	tmpDir := t.TempDir()
	cfgPath := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(cfgPath, []byte(yamlContent), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	cfg, err := Load(cfgPath)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Backend != "cloud" {
		t.Errorf("Backend = %q, want %q", cfg.Backend, "cloud")
	}
	if cfg.Cloud.Model != "whisper-large-v3" {
		t.Errorf("Cloud.Model = %q, want %q", cfg.Cloud.Model, "whisper-large-v3")
	}
	if cfg.Cloud.TimeoutSeconds != 10 {
		t.Errorf("Cloud.TimeoutSeconds = %d, want 10", cfg.Cloud.TimeoutSeconds)
	}
	if cfg.Audio.SampleRate != 44100 {
		t.Errorf("Audio.SampleRate = %d, want 44100", cfg.Audio.SampleRate)
	}
	if cfg.Audio.Channels != 2 {
		t.Errorf("Audio.Channels = %d, want 2", cfg.Audio.Channels)
	}
	if cfg.Hotkey.Mode != "hold" {
		t.Errorf("Hotkey.Mode = %q, want %q", cfg.Hotkey.Mode, "hold")
	}
	if cfg.Paste.Enabled {
		t.Error("Paste.Enabled should be false")
	}
	if cfg.History.Path != "/tmp/history.db" {
		t.Errorf("History.Path = %q, want %q", cfg.History.Path, "/tmp/history.db")
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("LogLevel = %q, want %q", cfg.LogLevel, "debug")
	}
}

func TestLoadExpandsTilde(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("cannot determine home directory")
	}

	yamlContent := `
model_path: ~/models/test.bin
history:
  path: ~/data/history.db
`
	tmpDir := t.TempDir()
	cfgPath := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(cfgPath, []byte(yamlContent), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	cfg, err := Load(cfgPath)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if want := filepath.Join(home, "models/test.bin"); cfg.ModelPath != want {
		t.Errorf("ModelPath = %q, want %q", cfg.ModelPath, want)
	}
	if want := filepath.Join(home, "data/history.db"); cfg.History.Path != want {
		t.Errorf("History.Path = %q, want %q", cfg.History.Path, want)
	}
}

func TestLoadFileNotFound(t *testing.T) {
	_, err := Load("/nonexistent/config.yaml")
	if err == nil {
		t.Error("Load() should return error for nonexistent file")
	}
}

func TestLoadEnvOverridesAPIKey(t *testing.T) {
	t.Setenv("GROQ_API_KEY", "gsk_from_env")

	yamlContent := `
backend: cloud
cloud:
  api_key: gsk_from_file
`
	tmpDir := t.TempDir()
	cfgPath := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(cfgPath, []byte(yamlContent), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	cfg, err := Load(cfgPath)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Cloud.APIKey != "gsk_from_env" {
		t.Errorf("Cloud.APIKey = %q, want env override %q", cfg.Cloud.APIKey, "gsk_from_env")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr bool
	}{
		{
			name:    "valid default config",
			modify:  func(c *Config) {},
			wantErr: false,
		},
		{
			name:    "unknown backend",
			modify:  func(c *Config) { c.Backend = "invalid" },
			wantErr: true,
		},
		{
			name:    "local backend without model path",
			modify:  func(c *Config) { c.ModelPath = "" },
			wantErr: true,
		},
		{
			name: "cloud backend without api key",
			modify: func(c *Config) {
				c.Backend = "cloud"
				c.Cloud.APIKey = ""
			},
			wantErr: true,
		},
		{
			name: "cloud backend with api key",
			modify: func(c *Config) {
				c.Backend = "cloud"
				c.Cloud.APIKey = "gsk_test"
			},
			wantErr: false,
		},
		{
			name: "cloud backend with zero timeout",
			modify: func(c *Config) {
				c.Backend = "cloud"
				c.Cloud.APIKey = "gsk_test"
				c.Cloud.TimeoutSeconds = 0
			},
			wantErr: true,
		},
		{
			name:    "empty hotkey keys",
			modify:  func(c *Config) { c.Hotkey.Keys = nil },
			wantErr: true,
		},
		{
			name:    "invalid hotkey mode",
			modify:  func(c *Config) { c.Hotkey.Mode = "invalid" },
			wantErr: true,
		},
		{
			name:    "zero sample rate",
			modify:  func(c *Config) { c.Audio.SampleRate = 0 },
			wantErr: true,
		},
		{
			name:    "zero channels",
			modify:  func(c *Config) { c.Audio.Channels = 0 },
			wantErr: true,
		},
		{
			name:    "empty history path",
			modify:  func(c *Config) { c.History.Path = "" },
			wantErr: true,
		},
		{
			name:    "invalid log level",
			modify:  func(c *Config) { c.LogLevel = "invalid" },
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.modify(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestWriteDefault_CreatesFile(t *testing.T) {
	// Use a temp dir as fake home to avoid touching real config
	tmpHome := t.TempDir()
	t.Setenv("HOME", tmpHome)

	path, err := WriteDefault()
	if err != nil {
		t.Fatalf("WriteDefault() error = %v", err)
	}

	expectedPath := filepath.Join(tmpHome, ".config", "whisperclip", "config.yaml")
	if path != expectedPath {
		t.Errorf("WriteDefault() path = %q, want %q", path, expectedPath)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read written config: %v", err)
	}

	if !strings.HasPrefix(string(data), "# whisperclip") {
		t.Error("written config should start with header comment")
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		t.Fatalf("written config is not valid YAML: %v", err)
	}
	if cfg.Backend != "local" {
		t.Errorf("written config Backend = %q, want %q", cfg.Backend, "local")
	}
	if cfg.Audio.SampleRate != 16000 {
		t.Errorf("written config Audio.SampleRate = %d, want 16000", cfg.Audio.SampleRate)
	}
}

func TestWriteDefault_NoOpIfExists(t *testing.T) {
	tmpHome := t.TempDir()
	t.Setenv("HOME", tmpHome)

	configDir := filepath.Join(tmpHome, ".config", "whisperclip")
	if err := os.MkdirAll(configDir, 0755); err != nil {
		t.Fatalf("failed to create config dir: %v", err)
	}
	existingContent := []byte("backend: cloud\n")
	configPath := filepath.Join(configDir, "config.yaml")
	if err := os.WriteFile(configPath, existingContent, 0644); err != nil {
		t.Fatalf("failed to write existing config: %v", err)
	}

	path, err := WriteDefault()
	if err != nil {
		t.Fatalf("WriteDefault() error = %v", err)
	}
	if path != "" {
		t.Errorf("WriteDefault() path = %q, want empty string for existing file", path)
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		t.Fatalf("failed to read config: %v", err)
	}
	if string(data) != string(existingContent) {
		t.Error("WriteDefault() should not overwrite existing config file")
	}
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		input string
		want  slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"error", slog.LevelError},
		{"unknown", slog.LevelInfo}, // defaults to info
		{"", slog.LevelInfo},        // defaults to info
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got := ParseLogLevel(tt.input)
			if got != tt.want {
				t.Errorf("ParseLogLevel(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}
