package flow

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/henri123lemoine/odoodash/internal/debug"
	"github.com/henri123lemoine/odoodash/internal/mcp"
)

// ErrNoPending is returned when a gate decision is made with nothing pending.
var ErrNoPending = errors.New("no pending switch")

// resetCommand discards every uncommitted change in a workspace.
const resetCommand = "git reset --hard"

// Workspace is the slice of the backend the gate needs.
type Workspace interface {
	ClientGitStatus(ctx context.Context, client string) (mcp.GitStatus, error)
	CommitClientChanges(ctx context.Context, client, message string) (string, error)
	ExecuteShellCommand(ctx context.Context, client, command string) (string, error)
}

// PendingSwitch is a branch switch held back by uncommitted changes.
type PendingSwitch struct {
	TargetClientName string
	BaseName         string
	TargetBranch     string
}

// Decision is the outcome of a gate check.
type Decision int

const (
	// DecisionProceed means the switch may start now.
	DecisionProceed Decision = iota
	// DecisionAwait means the user must commit, discard or cancel first.
	DecisionAwait
	// DecisionBlocked means the workspace state could not be determined.
	DecisionBlocked
)

func (d Decision) String() string {
	switch d {
	case DecisionProceed:
		return "proceed"
	case DecisionAwait:
		return "await"
	case DecisionBlocked:
		return "blocked"
	}
	return fmt.Sprintf("Decision(%d)", int(d))
}

// Gate holds a branch switch until the workspace has no uncommitted changes.
type Gate struct {
	ws           Workspace
	blockOnError bool

	mu      sync.Mutex
	pending *PendingSwitch
}

// NewGate creates a gate. With blockOnError set, a failed git status query
// blocks the switch instead of letting it through.
func NewGate(ws Workspace, blockOnError bool) *Gate {
	return &Gate{ws: ws, blockOnError: blockOnError}
}

// Check queries the workspace of p.BaseName. A dirty workspace parks p until
// CommitAndProceed, DiscardAndProceed or Cancel resolves it.
func (g *Gate) Check(ctx context.Context, p PendingSwitch) (Decision, error) {
	st, err := g.ws.ClientGitStatus(ctx, p.BaseName)
	if err != nil {
		if g.blockOnError {
			debug.Log("gate %s: status failed, blocking: %v", p.BaseName, err)
			return DecisionBlocked, fmt.Errorf("check %s workspace: %w", p.BaseName, err)
		}
		debug.Log("gate %s: status failed, proceeding: %v", p.BaseName, err)
		return DecisionProceed, nil
	}

	if !st.HasUncommittedChanges {
		debug.Log("gate %s: clean, proceeding to %s", p.BaseName, p.TargetBranch)
		return DecisionProceed, nil
	}

	g.mu.Lock()
	g.pending = &p
	g.mu.Unlock()
	debug.Log("gate %s: uncommitted changes on %s, awaiting decision", p.BaseName, st.CurrentBranch)
	return DecisionAwait, nil
}

// Pending returns the parked switch, if any.
func (g *Gate) Pending() (PendingSwitch, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.pending == nil {
		return PendingSwitch{}, false
	}
	return *g.pending, true
}

// CommitAndProceed commits the pending changes and releases the switch.
// On failure the switch stays pending.
func (g *Gate) CommitAndProceed(ctx context.Context) (PendingSwitch, error) {
	p, ok := g.Pending()
	if !ok {
		return PendingSwitch{}, ErrNoPending
	}
	if _, err := g.ws.CommitClientChanges(ctx, p.BaseName, CommitMessage(p.TargetBranch)); err != nil {
		return PendingSwitch{}, fmt.Errorf("commit %s changes: %w", p.BaseName, err)
	}
	g.release(p)
	debug.Log("gate %s: committed, proceeding to %s", p.BaseName, p.TargetBranch)
	return p, nil
}

// DiscardAndProceed hard-resets the workspace and releases the switch.
// On failure the switch stays pending.
func (g *Gate) DiscardAndProceed(ctx context.Context) (PendingSwitch, error) {
	p, ok := g.Pending()
	if !ok {
		return PendingSwitch{}, ErrNoPending
	}
	if _, err := g.ws.ExecuteShellCommand(ctx, p.BaseName, resetCommand); err != nil {
		return PendingSwitch{}, fmt.Errorf("discard %s changes: %w", p.BaseName, err)
	}
	g.release(p)
	debug.Log("gate %s: discarded, proceeding to %s", p.BaseName, p.TargetBranch)
	return p, nil
}

// Cancel drops the pending switch without touching the backend.
func (g *Gate) Cancel() (PendingSwitch, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.pending == nil {
		return PendingSwitch{}, false
	}
	p := *g.pending
	g.pending = nil
	debug.Log("gate %s: cancelled", p.BaseName)
	return p, true
}

// release clears p unless a newer check replaced it meanwhile.
func (g *Gate) release(p PendingSwitch) {
	g.mu.Lock()
	if g.pending != nil && *g.pending == p {
		g.pending = nil
	}
	g.mu.Unlock()
}

// CommitMessage is the auto-commit message used before switching to branch.
func CommitMessage(branch string) string {
	if branch == "" {
		branch = "default"
	}
	return fmt.Sprintf("Auto-commit before switching to %s branch", branch)
}
