package exec

import (
	"os"
	osExec "os/exec"
	"runtime"
	"strings"
)

// Launcher opens URLs with the platform's default browser handler.
type Launcher interface {
	// Name returns the handler binary, e.g. "xdg-open".
	Name() string

	// Command returns the argv that opens url.
	Command(url string) []string
}

type argvLauncher struct {
	name string
	args []string
}

func (l *argvLauncher) Name() string { return l.name }

func (l *argvLauncher) Command(url string) []string {
	argv := append([]string{l.name}, l.args...)
	return append(argv, url)
}

// noneLauncher is used when no handler is available, e.g. over plain SSH.
type noneLauncher struct{}

func (n *noneLauncher) Name() string            { return "" }
func (n *noneLauncher) Command(string) []string { return nil }

// launcher is cached for the lifetime of the process.
var launcher Launcher

// lookPath is swapped in tests.
var lookPath = osExec.LookPath

// DefaultLauncher returns the Launcher for the current environment.
func DefaultLauncher() Launcher {
	if launcher != nil {
		return launcher
	}
	launcher = detectLauncher(runtime.GOOS, os.Getenv)
	return launcher
}

// ResetLauncher clears the cached launcher (useful for testing).
func ResetLauncher() {
	launcher = nil
}

func detectLauncher(goos string, getenv func(string) string) Launcher {
	switch goos {
	case "darwin":
		return &argvLauncher{name: "open"}
	case "windows":
		return &argvLauncher{name: "rundll32", args: []string{"url.dll,FileProtocolHandler"}}
	}

	// WSL inherits a Linux userland but the browser lives on the Windows side.
	if getenv("WSL_DISTRO_NAME") != "" {
		if _, err := lookPath("wslview"); err == nil {
			return &argvLauncher{name: "wslview"}
		}
	}
	if getenv("DISPLAY") == "" && getenv("WAYLAND_DISPLAY") == "" && strings.TrimSpace(getenv("SSH_CONNECTION")) != "" {
		return &noneLauncher{}
	}
	for _, name := range []string{"xdg-open", "gio", "sensible-browser"} {
		if _, err := lookPath(name); err == nil {
			if name == "gio" {
				return &argvLauncher{name: name, args: []string{"open"}}
			}
			return &argvLauncher{name: name}
		}
	}
	return &noneLauncher{}
}
