package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.General.DefaultSourceBranch != "main" {
		t.Errorf("Expected default source branch 'main', got %q", cfg.General.DefaultSourceBranch)
	}

	if cfg.Server.ToolsPath != "/api/tools/call" {
		t.Errorf("Expected tools path '/api/tools/call', got %q", cfg.Server.ToolsPath)
	}

	if cfg.UI.AutoCloseDelay.Duration != 2*time.Second {
		t.Errorf("Expected auto close delay 2s, got %v", cfg.UI.AutoCloseDelay)
	}

	if !cfg.Safety.BlockOnStatusError {
		t.Error("Expected BlockOnStatusError to be true")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name        string
		mutate      func(*Config)
		wantWarning bool
	}{
		{
			name:        "default config is valid",
			mutate:      func(*Config) {},
			wantWarning: false,
		},
		{
			name:        "empty server url",
			mutate:      func(c *Config) { c.Server.URL = "" },
			wantWarning: true,
		},
		{
			name:        "non http server url",
			mutate:      func(c *Config) { c.Server.URL = "ftp://backend" },
			wantWarning: true,
		},
		{
			name:        "http stream url",
			mutate:      func(c *Config) { c.Server.StreamURL = "http://backend" },
			wantWarning: true,
		},
		{
			name:        "tools path without slash",
			mutate:      func(c *Config) { c.Server.ToolsPath = "api/tools/call" },
			wantWarning: true,
		},
		{
			name:        "invalid template variable",
			mutate:      func(c *Config) { c.Open.Command = "xdg-open {path}" },
			wantWarning: true,
		},
		{
			name:        "valid template variables",
			mutate:      func(c *Config) { c.Open.Command = "firefox --new-tab {url} # {client} {branch}" },
			wantWarning: false,
		},
		{
			name:        "invalid theme",
			mutate:      func(c *Config) { c.UI.Theme = "invalid" },
			wantWarning: true,
		},
		{
			name:        "negative history limit",
			mutate:      func(c *Config) { c.General.HistoryLimit = -1 },
			wantWarning: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			warnings := cfg.Validate()
			hasWarnings := len(warnings) > 0
			if hasWarnings != tt.wantWarning {
				t.Errorf("Validate() hasWarnings = %v, want %v. Warnings: %v", hasWarnings, tt.wantWarning, warnings)
			}
		})
	}
}

func TestLoadPreservesDefaults(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.toml")

	// Only specify some values - others should keep defaults
	tomlContent := `[server]
url = "https://mcp.example.com"
timeout = "30s"

[general]
default_source_branch = "18.0"
`
	if err := os.WriteFile(configPath, []byte(tomlContent), 0644); err != nil {
		t.Fatalf("Failed to write test config: %v", err)
	}

	cfg, err := LoadFromPath(configPath)
	if err != nil {
		t.Fatalf("LoadFromPath() error: %v", err)
	}

	if cfg.Server.URL != "https://mcp.example.com" {
		t.Errorf("Expected server url to be loaded, got %q", cfg.Server.URL)
	}
	if cfg.Server.Timeout.Duration != 30*time.Second {
		t.Errorf("Expected timeout 30s, got %v", cfg.Server.Timeout)
	}
	if cfg.General.DefaultSourceBranch != "18.0" {
		t.Errorf("Expected source branch '18.0', got %q", cfg.General.DefaultSourceBranch)
	}

	// Non-specified values keep defaults, booleans included
	if cfg.Server.ToolsPath != "/api/tools/call" {
		t.Errorf("Expected default tools path, got %q", cfg.Server.ToolsPath)
	}
	if !cfg.Safety.BlockOnStatusError {
		t.Error("Expected BlockOnStatusError to remain true when not specified")
	}
	if !cfg.UI.Mouse {
		t.Error("Expected Mouse to remain true when not specified")
	}
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := LoadFromPath(filepath.Join(t.TempDir(), "absent.toml"))
	if err != nil {
		t.Fatalf("LoadFromPath() error: %v", err)
	}
	if cfg.Server.URL != DefaultConfig().Server.URL {
		t.Errorf("Expected default url, got %q", cfg.Server.URL)
	}
}

func TestLoadRejectsBadDuration(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(configPath, []byte("[ui]\nauto_close_delay = \"soon\"\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadFromPath(configPath); err == nil {
		t.Error("Expected error for invalid duration")
	}
}

func TestDefaultConfigFileRoundTrips(t *testing.T) {
	path := filepath.Join(t.TempDir(), "odoodash", "config.toml")
	if err := CreateDefaultConfigFile(path); err != nil {
		t.Fatalf("CreateDefaultConfigFile() error: %v", err)
	}

	cfg, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("generated config does not parse: %v", err)
	}
	if warnings := cfg.Validate(); len(warnings) > 0 {
		t.Errorf("generated config has warnings: %v", warnings)
	}
}

func TestStreamBaseURL(t *testing.T) {
	tests := []struct {
		name   string
		server ServerConfig
		want   string
	}{
		{"derived http", ServerConfig{URL: "http://localhost:8000/"}, "ws://localhost:8000"},
		{"derived https", ServerConfig{URL: "https://mcp.example.com"}, "wss://mcp.example.com"},
		{"explicit", ServerConfig{URL: "http://a", StreamURL: "ws://b:9000/"}, "ws://b:9000"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.server.StreamBaseURL(); got != tt.want {
				t.Errorf("StreamBaseURL() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestConfigPath(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/tmp/xdg")
	path := ConfigPath()

	if path != "/tmp/xdg/odoodash/config.toml" {
		t.Errorf("Expected XDG path, got %q", path)
	}
}

func TestExtractTemplateVars(t *testing.T) {
	tests := []struct {
		input    string
		expected []string
	}{
		{"xdg-open {url}", []string{"{url}"}},
		{"no vars here", nil},
		{"{url} {client} {branch}", []string{"{url}", "{client}", "{branch}"}},
		{"{}", nil}, // Empty braces are not valid template vars
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got := extractTemplateVars(tt.input)
			if len(got) != len(tt.expected) {
				t.Errorf("extractTemplateVars(%q) = %v, want %v", tt.input, got, tt.expected)
			}
		})
	}
}
