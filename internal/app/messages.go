package app

import (
	"github.com/henri123lemoine/odoodash/internal/clients"
	"github.com/henri123lemoine/odoodash/internal/flow"
	"github.com/henri123lemoine/odoodash/internal/mcp"
	"github.com/henri123lemoine/odoodash/internal/progress"
)

// Message types for the bubbletea app.

// ClientsLoadedMsg is sent when the client list is loaded.
type ClientsLoadedMsg struct {
	Clients   []clients.Client
	FromCache bool
	Err       error
}

// SelectedMsg is sent when a selection has gone through the switcher.
type SelectedMsg struct {
	Target  clients.Client
	Outcome flow.SelectOutcome
	Err     error
}

// GateResolvedMsg is sent when a pending switch was committed or discarded.
type GateResolvedMsg struct {
	Pending flow.PendingSwitch
	Action  string
	Err     error
}

// ProgressMsg carries a new snapshot of the branch switch.
type ProgressMsg struct {
	Snapshot progress.Snapshot
}

// SwitchReloadMsg is sent after a successful switch auto-closes.
type SwitchReloadMsg struct{}

// DroppedMsg is sent when a drag-and-drop reclassification finishes.
type DroppedMsg struct {
	Result  flow.DropResult
	Dropped bool
	Err     error
}

// RenamedMsg is sent when a branch rename finishes.
type RenamedMsg struct {
	Outcome flow.RenameOutcome
	OldName string
	NewName string
	Err     error
}

// DetailLoadedMsg is sent when the detail panel data for a client is loaded.
type DetailLoadedMsg struct {
	Client  string
	Commits []mcp.Commit
	Builds  []mcp.Build
	Docker  string
	Err     error
}

// CommitDetailsMsg is sent when a single commit is loaded.
type CommitDetailsMsg struct {
	Details mcp.CommitDetails
	Err     error
}

// ClientStartedMsg is sent when a client's containers were started.
type ClientStartedMsg struct {
	Client string
	Err    error
}

// ClientOpenedMsg is sent when a client's web UI was opened.
type ClientOpenedMsg struct {
	Client string
	Err    error
}

// ClientCreatedMsg is sent when a new client was created.
type ClientCreatedMsg struct {
	Name string
	Err  error
}

// GitHubConfigLoadedMsg is sent when the GitHub settings are loaded.
type GitHubConfigLoadedMsg struct {
	Config mcp.GitHubConfig
	Err    error
}

// GitHubConfigSavedMsg is sent when the GitHub settings were saved.
type GitHubConfigSavedMsg struct {
	Err error
}

// GitHubTestedMsg is sent when the GitHub connection test finishes.
type GitHubTestedMsg struct {
	Message string
	Err     error
}

// TraefikConfigLoadedMsg is sent when the Traefik settings are loaded.
type TraefikConfigLoadedMsg struct {
	Config mcp.TraefikConfig
	Err    error
}

// TraefikConfigSavedMsg is sent when the Traefik settings were saved.
type TraefikConfigSavedMsg struct {
	Err error
}

// clearMessageMsg expires the status message with the given id.
type clearMessageMsg struct {
	id int
}
