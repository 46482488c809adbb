package exec

import (
	"errors"
	"testing"

	"github.com/henri123lemoine/odoodash/internal/clients"
)

func TestExpandTemplate(t *testing.T) {
	c := clients.Client{
		Name:   "acme-staging",
		Branch: "staging-2024-07-14",
		URL:    "https://acme-staging.example.com/web",
	}.Normalize()

	tests := []struct {
		name     string
		template string
		expected string
	}{
		{
			name:     "url variable",
			template: "firefox {url}",
			expected: "firefox https://acme-staging.example.com/web",
		},
		{
			name:     "client variable",
			template: "echo {client}",
			expected: "echo acme-staging",
		},
		{
			name:     "base variable",
			template: "echo {base}",
			expected: "echo acme",
		},
		{
			name:     "branch variable",
			template: "echo {branch}",
			expected: "echo staging-2024-07-14",
		},
		{
			name:     "multiple variables",
			template: "tmux new-window -n {client} 'w3m {url}'",
			expected: "tmux new-window -n acme-staging 'w3m https://acme-staging.example.com/web'",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := expandTemplate(tt.template, c)
			if result != tt.expected {
				t.Errorf("expandTemplate() = %q, want %q", result, tt.expected)
			}
		})
	}
}

func TestExpandTemplateQuotesValues(t *testing.T) {
	c := clients.Client{
		Name:   "acme-dev",
		Branch: "feature;rm",
		URL:    "http://localhost:8069/web?db=acme&debug=1",
	}.Normalize()

	result := expandTemplate("open {url} {branch}", c)
	expected := "open 'http://localhost:8069/web?db=acme&debug=1' 'feature;rm'"
	if result != expected {
		t.Errorf("expandTemplate() = %q, want %q", result, expected)
	}
}

func TestShellQuote(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "no special chars - no quoting",
			input:    "https://acme.example.com/web",
			expected: "https://acme.example.com/web",
		},
		{
			name:     "empty",
			input:    "",
			expected: "''",
		},
		{
			name:     "spaces",
			input:    "My Client",
			expected: "'My Client'",
		},
		{
			name:     "single quote",
			input:    "it's here",
			expected: "'it'\"'\"'s here'",
		},
		{
			name:     "query string",
			input:    "http://x/web?a=1&b=2",
			expected: "'http://x/web?a=1&b=2'",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := shellQuote(tt.input)
			if result != tt.expected {
				t.Errorf("shellQuote(%q) = %q, want %q", tt.input, result, tt.expected)
			}
		})
	}
}

func TestOpenWithoutURL(t *testing.T) {
	err := Open("echo {url}", clients.Client{Name: "acme-prod"})
	if !errors.Is(err, ErrNoURL) {
		t.Errorf("Open() error = %v, want ErrNoURL", err)
	}
}

func TestOpenRunsTemplate(t *testing.T) {
	c := clients.Client{Name: "acme-prod", URL: "https://acme.example.com"}
	if err := Open("true {url}", c); err != nil {
		t.Errorf("Open() error = %v", err)
	}
}

func stubLookPath(found ...string) func() {
	orig := lookPath
	lookPath = func(name string) (string, error) {
		for _, f := range found {
			if f == name {
				return "/usr/bin/" + name, nil
			}
		}
		return "", errors.New("not found")
	}
	return func() { lookPath = orig }
}

func env(vars map[string]string) func(string) string {
	return func(k string) string { return vars[k] }
}

func TestDetectLauncher(t *testing.T) {
	tests := []struct {
		name  string
		goos  string
		env   map[string]string
		found []string
		want  string
		argv  []string
	}{
		{
			name: "macOS",
			goos: "darwin",
			want: "open",
			argv: []string{"open", "https://x"},
		},
		{
			name:  "linux desktop",
			goos:  "linux",
			env:   map[string]string{"DISPLAY": ":0"},
			found: []string{"xdg-open"},
			want:  "xdg-open",
			argv:  []string{"xdg-open", "https://x"},
		},
		{
			name:  "gio fallback",
			goos:  "linux",
			env:   map[string]string{"WAYLAND_DISPLAY": "wayland-0"},
			found: []string{"gio"},
			want:  "gio",
			argv:  []string{"gio", "open", "https://x"},
		},
		{
			name:  "WSL",
			goos:  "linux",
			env:   map[string]string{"WSL_DISTRO_NAME": "Ubuntu"},
			found: []string{"wslview", "xdg-open"},
			want:  "wslview",
			argv:  []string{"wslview", "https://x"},
		},
		{
			name:  "headless SSH",
			goos:  "linux",
			env:   map[string]string{"SSH_CONNECTION": "10.0.0.1 22 10.0.0.2 22"},
			found: []string{"xdg-open"},
			want:  "",
		},
		{
			name: "nothing installed",
			goos: "linux",
			env:  map[string]string{"DISPLAY": ":0"},
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			defer stubLookPath(tt.found...)()

			l := detectLauncher(tt.goos, env(tt.env))
			if l.Name() != tt.want {
				t.Errorf("Name() = %q, want %q", l.Name(), tt.want)
			}
			argv := l.Command("https://x")
			if len(argv) != len(tt.argv) {
				t.Fatalf("Command() = %v, want %v", argv, tt.argv)
			}
			for i := range argv {
				if argv[i] != tt.argv[i] {
					t.Errorf("Command()[%d] = %q, want %q", i, argv[i], tt.argv[i])
				}
			}
		})
	}
}

func TestLauncherCaching(t *testing.T) {
	ResetLauncher()
	defer ResetLauncher()

	first := DefaultLauncher()
	second := DefaultLauncher()
	if first != second {
		t.Error("DefaultLauncher() should return the cached launcher")
	}
}
