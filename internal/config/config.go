// Package config handles odoodash configuration.
package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// Config represents odoodash configuration.
type Config struct {
	Server  ServerConfig  `toml:"server"`
	General GeneralConfig `toml:"general"`
	Safety  SafetyConfig  `toml:"safety"`
	Open    OpenConfig    `toml:"open"`
	UI      UIConfig      `toml:"ui"`
	Keys    KeysConfig    `toml:"keys"`
}

// ServerConfig describes how to reach the backend automation service.
type ServerConfig struct {
	// Base URL of the command/query endpoint (e.g. http://localhost:8000)
	URL string `toml:"url"`

	// Base URL for WebSocket streams. Empty derives it from URL (http -> ws).
	StreamURL string `toml:"stream_url"`

	// Path of the tool call endpoint, appended to URL
	ToolsPath string `toml:"tools_path"`

	// Optional bearer token
	Token string `toml:"token"`

	// Per-request timeout (e.g. "15s")
	Timeout Duration `toml:"timeout"`

	// Append the target branch to the branch-switch stream path
	BranchScopedStream bool `toml:"branch_scoped_stream"`
}

// GeneralConfig contains general settings.
type GeneralConfig struct {
	// Source ref for new branches when the dragged client has no branch
	DefaultSourceBranch string `toml:"default_source_branch"`

	// Number of commits/builds fetched for the detail panel
	HistoryLimit int `toml:"history_limit"`

	// Cache the client list on disk for instant startup
	CacheClients bool `toml:"cache_clients"`
}

// SafetyConfig contains safety settings.
type SafetyConfig struct {
	// Refuse a branch switch when the uncommitted-changes check fails
	BlockOnStatusError bool `toml:"block_on_status_error"`
}

// OpenConfig contains settings for opening a client's web UI.
type OpenConfig struct {
	// Command to run. Template variables: {url}, {client}, {base}, {branch}
	Command string `toml:"command"`
}

// UIConfig contains UI settings.
type UIConfig struct {
	// Delay before a successful branch switch dialog closes itself
	AutoCloseDelay Duration `toml:"auto_close_delay"`

	// How long status messages stay visible
	MessageTimeout Duration `toml:"message_timeout"`

	// Show the detail panel on startup
	ShowDetail bool `toml:"show_detail"`

	// Enable mouse support (click to select, drag to reclassify)
	Mouse bool `toml:"mouse"`

	// Color theme: auto, dark, light
	Theme string `toml:"theme"`
}

// KeysConfig contains keybinding settings.
type KeysConfig struct {
	Up       string `toml:"up"`
	Down     string `toml:"down"`
	Home     string `toml:"home"`
	End      string `toml:"end"`
	Switch   string `toml:"switch"`
	Rename   string `toml:"rename"`
	Move     string `toml:"move"`
	Filter   string `toml:"filter"`
	Refresh  string `toml:"refresh"`
	Detail   string `toml:"detail"`
	Open     string `toml:"open"`
	Start    string `toml:"start"`
	Create   string `toml:"create"`
	Settings string `toml:"settings"`
	Help     string `toml:"help"`
	Quit     string `toml:"quit"`
}

// Duration is a time.Duration that reads and writes as a TOML string ("2s").
type Duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", string(text), err)
	}
	d.Duration = v
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			URL:       "http://localhost:8000",
			ToolsPath: "/api/tools/call",
			Timeout:   Duration{15 * time.Second},
		},
		General: GeneralConfig{
			DefaultSourceBranch: "main",
			HistoryLimit:        20,
			CacheClients:        true,
		},
		Safety: SafetyConfig{
			BlockOnStatusError: true,
		},
		Open: OpenConfig{
			Command: "",
		},
		UI: UIConfig{
			AutoCloseDelay: Duration{2 * time.Second},
			MessageTimeout: Duration{5 * time.Second},
			ShowDetail:     true,
			Mouse:          true,
			Theme:          "auto",
		},
		Keys: KeysConfig{
			Up:       "up,k",
			Down:     "down,j",
			Home:     "home,g",
			End:      "end,G",
			Switch:   "enter",
			Rename:   "r",
			Move:     "m",
			Filter:   "/",
			Refresh:  "R",
			Detail:   "tab",
			Open:     "o",
			Start:    "S",
			Create:   "c",
			Settings: ",",
			Help:     "?",
			Quit:     "q,ctrl+c",
		},
	}
}

// StreamBaseURL returns the WebSocket base URL, deriving it from the
// command endpoint when not configured.
func (s ServerConfig) StreamBaseURL() string {
	if s.StreamURL != "" {
		return strings.TrimRight(s.StreamURL, "/")
	}
	u := strings.TrimRight(s.URL, "/")
	switch {
	case strings.HasPrefix(u, "https://"):
		return "wss://" + strings.TrimPrefix(u, "https://")
	case strings.HasPrefix(u, "http://"):
		return "ws://" + strings.TrimPrefix(u, "http://")
	}
	return u
}

// ConfigPath returns the path to the config file.
// Uses ~/.config/odoodash/config.toml (XDG style) on all Unix systems.
func ConfigPath() string {
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "odoodash", "config.toml")
	}
	home := os.Getenv("HOME")
	if home != "" {
		return filepath.Join(home, ".config", "odoodash", "config.toml")
	}
	configDir, err := os.UserConfigDir()
	if err != nil {
		return filepath.Join(".", "odoodash", "config.toml")
	}
	return filepath.Join(configDir, "odoodash", "config.toml")
}

// Load loads configuration from the config file.
func Load() (*Config, error) {
	return LoadFromPath(ConfigPath())
}

// LoadFromPath loads configuration from a specific path.
func LoadFromPath(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, err
	}

	// go-toml/v2 only overwrites fields present in the file,
	// so unspecified fields keep their defaults.
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	return cfg, nil
}

// Save writes configuration to path.
func Save(cfg *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	data, err := toml.Marshal(cfg)
	if err != nil {
		return err
	}

	// The file may hold a token.
	return os.WriteFile(path, data, 0600)
}

// CreateDefaultConfigFile creates a default config file with comments.
func CreateDefaultConfigFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(generateDefaultConfigContent()), 0600)
}

// generateDefaultConfigContent generates a commented config file.
func generateDefaultConfigContent() string {
	var b strings.Builder
	cfg := DefaultConfig()

	b.WriteString("# odoodash configuration\n\n")

	b.WriteString("[server]\n")
	b.WriteString("# Backend automation service\n")
	fmt.Fprintf(&b, "url = %q\n", cfg.Server.URL)
	b.WriteString("# WebSocket base URL (derived from url when unset)\n")
	b.WriteString("# stream_url = \"ws://localhost:8000\"\n")
	fmt.Fprintf(&b, "tools_path = %q\n", cfg.Server.ToolsPath)
	b.WriteString("# token = \"\"\n")
	fmt.Fprintf(&b, "timeout = %q\n", cfg.Server.Timeout.String())
	b.WriteString("# Append the target branch to the stream path\n")
	fmt.Fprintf(&b, "branch_scoped_stream = %v\n\n", cfg.Server.BranchScopedStream)

	b.WriteString("[general]\n")
	b.WriteString("# Source ref for branches created by drag and drop\n")
	fmt.Fprintf(&b, "default_source_branch = %q\n", cfg.General.DefaultSourceBranch)
	fmt.Fprintf(&b, "history_limit = %d\n", cfg.General.HistoryLimit)
	fmt.Fprintf(&b, "cache_clients = %v\n\n", cfg.General.CacheClients)

	b.WriteString("[safety]\n")
	b.WriteString("# Refuse to switch branches when the uncommitted-changes check fails\n")
	fmt.Fprintf(&b, "block_on_status_error = %v\n\n", cfg.Safety.BlockOnStatusError)

	b.WriteString("[open]\n")
	b.WriteString("# Command used to open a client's web UI (auto-detected if not set)\n")
	b.WriteString("# Template variables: {url}, {client}, {base}, {branch}\n")
	b.WriteString("# command = \"xdg-open {url}\"\n\n")

	b.WriteString("[ui]\n")
	fmt.Fprintf(&b, "auto_close_delay = %q\n", cfg.UI.AutoCloseDelay.String())
	fmt.Fprintf(&b, "message_timeout = %q\n", cfg.UI.MessageTimeout.String())
	fmt.Fprintf(&b, "show_detail = %v\n", cfg.UI.ShowDetail)
	fmt.Fprintf(&b, "mouse = %v\n", cfg.UI.Mouse)
	b.WriteString("# Color theme: \"auto\", \"dark\", or \"light\"\n")
	fmt.Fprintf(&b, "theme = %q\n\n", cfg.UI.Theme)

	b.WriteString("[keys]\n")
	b.WriteString("# Keybindings (comma-separated for multiple keys)\n")
	fmt.Fprintf(&b, "# up = %q\n", cfg.Keys.Up)
	fmt.Fprintf(&b, "# down = %q\n", cfg.Keys.Down)
	fmt.Fprintf(&b, "# switch = %q\n", cfg.Keys.Switch)
	fmt.Fprintf(&b, "# rename = %q\n", cfg.Keys.Rename)
	fmt.Fprintf(&b, "# move = %q\n", cfg.Keys.Move)
	fmt.Fprintf(&b, "# filter = %q\n", cfg.Keys.Filter)
	fmt.Fprintf(&b, "# refresh = %q\n", cfg.Keys.Refresh)
	fmt.Fprintf(&b, "# help = %q\n", cfg.Keys.Help)
	fmt.Fprintf(&b, "# quit = %q\n", cfg.Keys.Quit)

	return b.String()
}

// Validate validates the configuration and returns warnings.
func (c *Config) Validate() []string {
	var warnings []string

	if c.Server.URL == "" {
		warnings = append(warnings, "server.url is empty")
	} else if u, err := url.Parse(c.Server.URL); err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		warnings = append(warnings, fmt.Sprintf("Invalid value for server.url: %s (expected http or https URL)", c.Server.URL))
	}

	if c.Server.StreamURL != "" {
		if u, err := url.Parse(c.Server.StreamURL); err != nil || (u.Scheme != "ws" && u.Scheme != "wss") {
			warnings = append(warnings, fmt.Sprintf("Invalid value for server.stream_url: %s (expected ws or wss URL)", c.Server.StreamURL))
		}
	}

	if c.Server.ToolsPath != "" && !strings.HasPrefix(c.Server.ToolsPath, "/") {
		warnings = append(warnings, fmt.Sprintf("server.tools_path should start with '/': %s", c.Server.ToolsPath))
	}

	if c.Server.Timeout.Duration < 0 {
		warnings = append(warnings, "server.timeout must not be negative")
	}

	if c.General.HistoryLimit < 0 {
		warnings = append(warnings, fmt.Sprintf("general.history_limit must not be negative, got %d", c.General.HistoryLimit))
	}

	if c.UI.AutoCloseDelay.Duration < 0 {
		warnings = append(warnings, "ui.auto_close_delay must not be negative")
	}

	validVars := []string{"{url}", "{client}", "{base}", "{branch}"}
	for _, v := range extractTemplateVars(c.Open.Command) {
		found := false
		for _, valid := range validVars {
			if v == valid {
				found = true
				break
			}
		}
		if !found {
			warnings = append(warnings, fmt.Sprintf("Unknown template variable in open.command: %s", v))
		}
	}

	if c.UI.Theme != "" &&
		c.UI.Theme != "auto" &&
		c.UI.Theme != "dark" &&
		c.UI.Theme != "light" {
		warnings = append(warnings, fmt.Sprintf("Invalid value for ui.theme: %s (expected auto, dark, or light)", c.UI.Theme))
	}

	return warnings
}

// extractTemplateVars extracts template variables from a string.
func extractTemplateVars(s string) []string {
	re := regexp.MustCompile(`\{[^}]+\}`)
	return re.FindAllString(s, -1)
}
