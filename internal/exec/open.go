// Package exec handles executing external commands.
package exec

import (
	"errors"
	"fmt"
	osExec "os/exec"
	"strings"

	"github.com/henri123lemoine/odoodash/internal/clients"
	"github.com/henri123lemoine/odoodash/internal/debug"
)

var (
	// ErrNoURL is returned when a client has no web UI address.
	ErrNoURL = errors.New("client has no URL")

	// ErrNoLauncher is returned when no browser handler could be found.
	ErrNoLauncher = errors.New("no browser handler found; set open.command")
)

// Open opens the web UI of c. An empty command uses the platform's default
// handler; otherwise the command template is expanded and run via the shell.
// The process is started detached so it can outlive the dashboard.
func Open(command string, c clients.Client) error {
	if c.URL == "" {
		return fmt.Errorf("open %s: %w", c.Name, ErrNoURL)
	}

	var cmd *osExec.Cmd
	if strings.TrimSpace(command) == "" {
		argv := DefaultLauncher().Command(c.URL)
		if len(argv) == 0 {
			return ErrNoLauncher
		}
		cmd = osExec.Command(argv[0], argv[1:]...)
	} else {
		cmd = osExec.Command("sh", "-c", expandTemplate(command, c))
	}

	debug.Log("open %s: %s", c.Name, strings.Join(cmd.Args, " "))
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("open %s: %w", c.Name, err)
	}
	// Reap the child without blocking the caller.
	go func() { _ = cmd.Wait() }()
	return nil
}

// expandTemplate expands template variables in the command.
func expandTemplate(command string, c clients.Client) string {
	return strings.NewReplacer(
		"{url}", shellQuote(c.URL),
		"{client}", shellQuote(c.Name),
		"{base}", shellQuote(c.BaseName),
		"{branch}", shellQuote(c.BranchOrDerived()),
	).Replace(command)
}

// shellQuote wraps s in single quotes when it contains anything the shell
// would interpret.
func shellQuote(s string) string {
	if s == "" {
		return "''"
	}
	safe := true
	for _, r := range s {
		if !isShellSafe(r) {
			safe = false
			break
		}
	}
	if safe {
		return s
	}
	return "'" + strings.ReplaceAll(s, "'", `'"'"'`) + "'"
}

func isShellSafe(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		return true
	}
	return strings.ContainsRune("-_./:,+=@%", r)
}
