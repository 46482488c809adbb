package app

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/sync/singleflight"

	"github.com/henri123lemoine/odoodash/internal/clients"
	"github.com/henri123lemoine/odoodash/internal/debug"
	"github.com/henri123lemoine/odoodash/internal/exec"
	"github.com/henri123lemoine/odoodash/internal/flow"
	"github.com/henri123lemoine/odoodash/internal/mcp"
	"github.com/henri123lemoine/odoodash/internal/progress"
)

// Backend is everything the dashboard asks of the automation service.
type Backend interface {
	flow.Workspace
	flow.BranchCreator
	flow.BranchRenamer

	ListClients(ctx context.Context) ([]clients.Client, error)
	ClientsOverview(ctx context.Context) ([]mcp.Overview, error)
	ClientStatus(ctx context.Context, client string) (string, error)
	StartClient(ctx context.Context, client string) error
	CreateClient(ctx context.Context, nc mcp.NewClient) error
	CommitHistory(ctx context.Context, client, branch string, limit int) ([]mcp.Commit, error)
	BuildHistory(ctx context.Context, client string, limit int) ([]mcp.Build, error)
	CommitDetails(ctx context.Context, client, hash string) (mcp.CommitDetails, error)
	GitHubConfig(ctx context.Context) (mcp.GitHubConfig, error)
	SaveGitHubConfig(ctx context.Context, gc mcp.GitHubConfig) error
	TestGitHubConnection(ctx context.Context) (string, error)
	TraefikConfig(ctx context.Context) (mcp.TraefikConfig, error)
	SaveTraefikConfig(ctx context.Context, tc mcp.TraefikConfig) error
}

// Commands

func loadCachedClients(path, server string) tea.Cmd {
	return func() tea.Msg {
		c := clients.LoadCache(path, server)
		if c == nil {
			return nil
		}
		return ClientsLoadedMsg{Clients: c.Clients, FromCache: true}
	}
}

// loadClients fetches the list and overview. Concurrent refreshes share one
// backend round trip.
func loadClients(ctx context.Context, b Backend, group *singleflight.Group, cachePath, server string) tea.Cmd {
	return func() tea.Msg {
		v, err, shared := group.Do("clients", func() (interface{}, error) {
			list, err := b.ListClients(ctx)
			if err != nil {
				return nil, err
			}
			overview, err := b.ClientsOverview(ctx)
			if err != nil {
				debug.Log("overview failed, using list only: %v", err)
			}
			list = clients.NormalizeAll(mergeOverview(list, overview))
			if cachePath != "" {
				if err := clients.SaveCache(cachePath, server, list); err != nil {
					debug.Log("save client cache: %v", err)
				}
			}
			return list, nil
		})
		if shared {
			debug.Log("client refresh shared with an in-flight call")
		}
		if err != nil {
			return ClientsLoadedMsg{Err: err}
		}
		return ClientsLoadedMsg{Clients: v.([]clients.Client)}
	}
}

// mergeOverview fills runtime fields the list left empty.
func mergeOverview(list []clients.Client, overview []mcp.Overview) []clients.Client {
	if len(overview) == 0 {
		return list
	}
	byName := make(map[string]mcp.Overview, len(overview))
	for _, o := range overview {
		byName[o.Name] = o
	}
	out := make([]clients.Client, len(list))
	for i, c := range list {
		if o, ok := byName[c.Name]; ok {
			if c.Status == "" {
				c.Status = clients.Status(o.Status)
			}
			if c.DockerState == "" {
				c.DockerState = o.DockerState
			}
			if c.URL == "" {
				c.URL = o.URL
			}
			if c.Branch == "" {
				c.Branch = o.Branch
			}
		}
		out[i] = c
	}
	return out
}

func selectClient(ctx context.Context, s *flow.Switcher, current, target clients.Client) tea.Cmd {
	return func() tea.Msg {
		outcome, err := s.Select(ctx, current, target)
		return SelectedMsg{Target: target, Outcome: outcome, Err: err}
	}
}

func commitAndSwitch(ctx context.Context, s *flow.Switcher) tea.Cmd {
	return func() tea.Msg {
		p, err := s.Commit(ctx)
		return GateResolvedMsg{Pending: p, Action: "commit", Err: err}
	}
}

func discardAndSwitch(ctx context.Context, s *flow.Switcher) tea.Cmd {
	return func() tea.Msg {
		p, err := s.Discard(ctx)
		return GateResolvedMsg{Pending: p, Action: "discard", Err: err}
	}
}

// waitForProgress blocks until the tracker publishes again. The handler
// re-arms it so the app keeps observing for its whole lifetime.
func waitForProgress(ch <-chan progress.Snapshot) tea.Cmd {
	return func() tea.Msg {
		snap, ok := <-ch
		if !ok {
			return nil
		}
		return ProgressMsg{Snapshot: snap}
	}
}

func waitForReload(ch <-chan struct{}) tea.Cmd {
	return func() tea.Msg {
		if _, ok := <-ch; !ok {
			return nil
		}
		return SwitchReloadMsg{}
	}
}

func dropClient(ctx context.Context, r *flow.Reclassifier, zone flow.Zone) tea.Cmd {
	return func() tea.Msg {
		res, dropped, err := r.Drop(ctx, zone, time.Now())
		return DroppedMsg{Result: res, Dropped: dropped, Err: err}
	}
}

func commitRename(ctx context.Context, r *flow.Rename, oldName, newName string) tea.Cmd {
	return func() tea.Msg {
		outcome, err := r.Commit(ctx)
		return RenamedMsg{Outcome: outcome, OldName: oldName, NewName: newName, Err: err}
	}
}

func loadDetail(ctx context.Context, b Backend, c clients.Client, limit int) tea.Cmd {
	return func() tea.Msg {
		msg := DetailLoadedMsg{Client: c.Name}
		commits, err := b.CommitHistory(ctx, c.BaseName, c.Branch, limit)
		if err != nil {
			debug.Log("commit history %s: %v", c.Name, err)
			msg.Err = err
		}
		msg.Commits = commits

		builds, err := b.BuildHistory(ctx, c.Name, limit)
		if err != nil {
			debug.Log("build history %s: %v", c.Name, err)
		}
		msg.Builds = builds

		docker, err := b.ClientStatus(ctx, c.Name)
		if err != nil {
			debug.Log("client status %s: %v", c.Name, err)
			docker = "unknown"
		}
		msg.Docker = docker
		return msg
	}
}

func loadCommitDetails(ctx context.Context, b Backend, client, hash string) tea.Cmd {
	return func() tea.Msg {
		d, err := b.CommitDetails(ctx, client, hash)
		return CommitDetailsMsg{Details: d, Err: err}
	}
}

func startClient(ctx context.Context, b Backend, client string) tea.Cmd {
	return func() tea.Msg {
		err := b.StartClient(ctx, client)
		return ClientStartedMsg{Client: client, Err: err}
	}
}

func openClient(command string, c clients.Client) tea.Cmd {
	return func() tea.Msg {
		err := exec.Open(command, c)
		return ClientOpenedMsg{Client: c.Name, Err: err}
	}
}

func createClient(ctx context.Context, b Backend, nc mcp.NewClient) tea.Cmd {
	return func() tea.Msg {
		err := b.CreateClient(ctx, nc)
		return ClientCreatedMsg{Name: nc.Name, Err: err}
	}
}

func loadGitHubConfig(ctx context.Context, b Backend) tea.Cmd {
	return func() tea.Msg {
		gc, err := b.GitHubConfig(ctx)
		return GitHubConfigLoadedMsg{Config: gc, Err: err}
	}
}

func saveGitHubConfig(ctx context.Context, b Backend, gc mcp.GitHubConfig) tea.Cmd {
	return func() tea.Msg {
		err := b.SaveGitHubConfig(ctx, gc)
		return GitHubConfigSavedMsg{Err: err}
	}
}

func loadTraefikConfig(ctx context.Context, b Backend) tea.Cmd {
	return func() tea.Msg {
		tc, err := b.TraefikConfig(ctx)
		return TraefikConfigLoadedMsg{Config: tc, Err: err}
	}
}

func saveTraefikConfig(ctx context.Context, b Backend, tc mcp.TraefikConfig) tea.Cmd {
	return func() tea.Msg {
		err := b.SaveTraefikConfig(ctx, tc)
		return TraefikConfigSavedMsg{Err: err}
	}
}

func testGitHubConnection(ctx context.Context, b Backend) tea.Cmd {
	return func() tea.Msg {
		msg, err := b.TestGitHubConnection(ctx)
		return GitHubTestedMsg{Message: msg, Err: err}
	}
}

func clearMessageAfter(d time.Duration, id int) tea.Cmd {
	return tea.Tick(d, func(time.Time) tea.Msg {
		return clearMessageMsg{id: id}
	})
}
