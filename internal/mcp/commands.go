package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"github.com/henri123lemoine/odoodash/internal/clients"
)

// SyncStatus describes a workspace relative to its remote.
type SyncStatus string

const (
	SyncUpToDate SyncStatus = "up_to_date"
	SyncBehind   SyncStatus = "behind"
	SyncAhead    SyncStatus = "ahead"
)

// GitStatus is the workspace state of a base client.
type GitStatus struct {
	CurrentBranch         string     `json:"current_branch"`
	HasUncommittedChanges bool       `json:"has_uncommitted_changes"`
	SyncStatus            SyncStatus `json:"sync_status"`
}

// Overview is the runtime summary of one client instance.
type Overview struct {
	Name        string `json:"name"`
	Status      string `json:"status"`
	DockerState string `json:"docker_status"`
	URL         string `json:"url"`
	Branch      string `json:"branch"`
}

// Commit is one entry of a client's history.
type Commit struct {
	Hash    string `json:"hash"`
	Message string `json:"message"`
	Author  string `json:"author"`
	Date    string `json:"date"`
}

// CommitDetails extends Commit with the files it touched.
type CommitDetails struct {
	Commit
	Files     []string `json:"files"`
	Additions int      `json:"additions"`
	Deletions int      `json:"deletions"`
}

// Build is one deployment build of a client.
type Build struct {
	ID        string `json:"id"`
	Status    string `json:"status"`
	Branch    string `json:"branch"`
	Commit    string `json:"commit"`
	StartedAt string `json:"started_at"`
	Duration  string `json:"duration"`
}

// GitHubConfig holds the deployment target settings kept by the backend.
type GitHubConfig struct {
	Token        string `json:"token,omitempty"`
	Organization string `json:"organization"`
	Configured   bool   `json:"configured"`
}

// TraefikConfig is where the backend's Traefik routes client instances.
type TraefikConfig struct {
	Domain   string `json:"domain"`
	Protocol string `json:"protocol"`
}

// Traefik protocols accepted by save_traefik_config.
const (
	ProtocolHTTP  = "http"
	ProtocolHTTPS = "https"
)

// ErrInvalidProtocol is returned for a Traefik protocol other than http or https.
var ErrInvalidProtocol = errors.New("protocol must be http or https")

// Validate normalizes the protocol, defaulting to https, and checks it.
func (tc *TraefikConfig) Validate() error {
	tc.Domain = strings.TrimSpace(tc.Domain)
	tc.Protocol = strings.ToLower(strings.TrimSpace(tc.Protocol))
	if tc.Protocol == "" {
		tc.Protocol = ProtocolHTTPS
	}
	if tc.Protocol != ProtocolHTTP && tc.Protocol != ProtocolHTTPS {
		return ErrInvalidProtocol
	}
	if tc.Domain == "" {
		return errors.New("domain is required")
	}
	return nil
}

// NewClient are the parameters of create_client_github.
type NewClient struct {
	Name          string `json:"name"`
	Template      string `json:"template"`
	Version       string `json:"version"`
	HasEnterprise bool   `json:"has_enterprise"`
}

// decodeList accepts either a bare array or an object wrapping it under key.
func decodeList[T any](r *Result, key string) ([]T, error) {
	var list []T
	if err := r.Decode(&list); err == nil {
		return list, nil
	}
	var wrapped map[string]json.RawMessage
	if err := r.Decode(&wrapped); err != nil {
		return nil, err
	}
	raw, ok := wrapped[key]
	if !ok {
		return nil, nil
	}
	if err := json.Unmarshal(raw, &list); err != nil {
		return nil, err
	}
	return list, nil
}

// ListClients returns every client instance known to the backend.
func (c *Client) ListClients(ctx context.Context) ([]clients.Client, error) {
	res, err := c.Call(ctx, "list_clients", nil)
	if err != nil {
		return nil, err
	}
	return decodeList[clients.Client](res, "clients")
}

// ClientsOverview returns the runtime summary of every client.
func (c *Client) ClientsOverview(ctx context.Context) ([]Overview, error) {
	res, err := c.Call(ctx, "get_clients_overview", nil)
	if err != nil {
		return nil, err
	}
	return decodeList[Overview](res, "clients")
}

// ClientStatus returns the Docker state of a client: running, stopped or unknown.
func (c *Client) ClientStatus(ctx context.Context, client string) (string, error) {
	res, err := c.Call(ctx, "get_client_status", map[string]any{"client": client})
	if err != nil {
		return "", err
	}
	var s string
	if err := res.Decode(&s); err == nil {
		return normalizeDockerState(s), nil
	}
	var obj struct {
		Status string `json:"status"`
	}
	if err := res.Decode(&obj); err != nil {
		return "unknown", nil
	}
	return normalizeDockerState(obj.Status), nil
}

func normalizeDockerState(s string) string {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "running", "up":
		return "running"
	case "stopped", "exited", "down":
		return "stopped"
	default:
		return "unknown"
	}
}

// StartClient starts a client's containers.
func (c *Client) StartClient(ctx context.Context, client string) error {
	_, err := c.Call(ctx, "start_client", map[string]any{"client": client})
	return err
}

// CreateClientBranch creates branch from source for a base client.
func (c *Client) CreateClientBranch(ctx context.Context, client, branch, source string) error {
	_, err := c.Call(ctx, "create_client_branch", map[string]any{
		"client": client,
		"branch": branch,
		"source": source,
	})
	return err
}

// RenameClientBranch renames a branch of a base client.
func (c *Client) RenameClientBranch(ctx context.Context, client, oldBranch, newBranch string) error {
	_, err := c.Call(ctx, "rename_client_branch", map[string]any{
		"client":     client,
		"old_branch": oldBranch,
		"new_branch": newBranch,
	})
	return err
}

// ClientGitStatus returns the workspace state of a base client.
func (c *Client) ClientGitStatus(ctx context.Context, client string) (GitStatus, error) {
	res, err := c.Call(ctx, "get_client_git_status", map[string]any{"client": client})
	if err != nil {
		return GitStatus{}, err
	}
	var st GitStatus
	if err := res.Decode(&st); err != nil {
		return GitStatus{}, err
	}
	return st, nil
}

// CommitClientChanges commits every pending change in the workspace.
func (c *Client) CommitClientChanges(ctx context.Context, client, message string) (string, error) {
	res, err := c.Call(ctx, "commit_client_changes", map[string]any{
		"client":  client,
		"message": message,
	})
	if err != nil {
		return "", err
	}
	return resultText(res, "message"), nil
}

// ExecuteShellCommand runs command inside the client's workspace.
func (c *Client) ExecuteShellCommand(ctx context.Context, client, command string) (string, error) {
	res, err := c.Call(ctx, "execute_shell_command", map[string]any{
		"client":  client,
		"command": command,
	})
	if err != nil {
		return "", err
	}
	return resultText(res, "output"), nil
}

// resultText returns a string payload, or the named field of an object payload.
func resultText(r *Result, field string) string {
	var s string
	if err := r.Decode(&s); err == nil {
		return s
	}
	var obj map[string]any
	if err := r.Decode(&obj); err == nil {
		if v, ok := obj[field].(string); ok {
			return v
		}
	}
	return ""
}

// CreateClient creates a new client repository from a template.
func (c *Client) CreateClient(ctx context.Context, nc NewClient) error {
	_, err := c.Call(ctx, "create_client_github", map[string]any{
		"name":           nc.Name,
		"template":       nc.Template,
		"version":        nc.Version,
		"has_enterprise": nc.HasEnterprise,
	})
	return err
}

// CommitHistory returns the latest commits of a client.
func (c *Client) CommitHistory(ctx context.Context, client, branch string, limit int) ([]Commit, error) {
	args := map[string]any{"client": client, "limit": limit}
	if branch != "" {
		args["branch"] = branch
	}
	res, err := c.Call(ctx, "get_commit_history", args)
	if err != nil {
		return nil, err
	}
	return decodeList[Commit](res, "commits")
}

// BuildHistory returns the latest builds of a client.
func (c *Client) BuildHistory(ctx context.Context, client string, limit int) ([]Build, error) {
	res, err := c.Call(ctx, "get_build_history", map[string]any{"client": client, "limit": limit})
	if err != nil {
		return nil, err
	}
	return decodeList[Build](res, "builds")
}

// CommitDetails returns one commit with its changed files.
func (c *Client) CommitDetails(ctx context.Context, client, hash string) (CommitDetails, error) {
	res, err := c.Call(ctx, "get_commit_details", map[string]any{"client": client, "commit": hash})
	if err != nil {
		return CommitDetails{}, err
	}
	var d CommitDetails
	if err := res.Decode(&d); err != nil {
		return CommitDetails{}, err
	}
	return d, nil
}

// GitHubConfig returns the stored GitHub settings.
func (c *Client) GitHubConfig(ctx context.Context) (GitHubConfig, error) {
	res, err := c.Call(ctx, "get_github_config", nil)
	if err != nil {
		return GitHubConfig{}, err
	}
	var gc GitHubConfig
	if err := res.Decode(&gc); err != nil {
		return GitHubConfig{}, err
	}
	return gc, nil
}

// SaveGitHubConfig stores GitHub settings in the backend.
func (c *Client) SaveGitHubConfig(ctx context.Context, gc GitHubConfig) error {
	_, err := c.Call(ctx, "save_github_config", map[string]any{
		"token":        gc.Token,
		"organization": gc.Organization,
	})
	return err
}

// TestGitHubConnection asks the backend to verify its GitHub credentials.
func (c *Client) TestGitHubConnection(ctx context.Context) (string, error) {
	res, err := c.Call(ctx, "test_github_connection", nil)
	if err != nil {
		return "", err
	}
	return resultText(res, "message"), nil
}

// TraefikConfig returns the stored Traefik domain and protocol.
func (c *Client) TraefikConfig(ctx context.Context) (TraefikConfig, error) {
	res, err := c.Call(ctx, "get_traefik_config", nil)
	if err != nil {
		return TraefikConfig{}, err
	}
	var tc TraefikConfig
	if err := res.Decode(&tc); err != nil {
		return TraefikConfig{}, err
	}
	return tc, nil
}

// SaveTraefikConfig validates tc and stores it in the backend.
func (c *Client) SaveTraefikConfig(ctx context.Context, tc TraefikConfig) error {
	if err := tc.Validate(); err != nil {
		return err
	}
	_, err := c.Call(ctx, "save_traefik_config", map[string]any{
		"domain":   tc.Domain,
		"protocol": tc.Protocol,
	})
	return err
}
