package app

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	zone "github.com/lrstanley/bubblezone"
	"github.com/sahilm/fuzzy"
	"golang.org/x/sync/singleflight"

	"github.com/henri123lemoine/odoodash/internal/clients"
	"github.com/henri123lemoine/odoodash/internal/config"
	"github.com/henri123lemoine/odoodash/internal/flow"
	"github.com/henri123lemoine/odoodash/internal/mcp"
	"github.com/henri123lemoine/odoodash/internal/progress"
	"github.com/henri123lemoine/odoodash/internal/ui"
)

// State represents the current UI state.
type State int

const (
	StateList State = iota
	StateFilter
	StateRename
	StateConfirmSwitch
	StateProgress
	StateDrag
	StateHistory
	StateCommitDetails
	StateCreate
	StateSettings
	StateHelp
)

// Detail panel tabs.
const (
	TabCommits = iota
	TabBuilds
	TabDocker
	tabCount
)

var zoneOnce sync.Once

// Model is the main application model.
type Model struct {
	// Configuration
	config    *config.Config
	backend   Backend
	ctx       context.Context
	cachePath string
	refresh   *singleflight.Group

	// Flows
	switcher     *flow.Switcher
	orchestrator *flow.Orchestrator
	reclassifier *flow.Reclassifier
	rename       *flow.Rename

	// Observed branch switch
	progressCh   <-chan progress.Snapshot
	unsubscribe  func()
	reloadCh     chan struct{}
	progress     progress.Snapshot
	switchTarget flow.Target

	// Data
	clients  []clients.Client
	filtered []clients.Client
	rows     []clients.Row
	expanded map[clients.SectionKey]bool
	cursor   int
	offset   int
	selected string

	// State
	state      State
	loading    bool
	fromCache  bool
	err        error
	message    string
	messageAt  time.Time
	messageID  int
	pending    *flow.PendingSwitch
	resolving  bool
	hoverZone  flow.Zone
	mouseDown  bool
	mouseMoved bool

	// Detail panel
	showDetail    bool
	detailTab     int
	detailFor     string
	detailLoading bool
	commits       []mcp.Commit
	builds        []mcp.Build
	docker        string
	historyCursor int
	commitView    viewport.Model

	// Inputs
	filterInput textinput.Model
	renameInput textinput.Model
	create      createForm
	settings    settingsForm

	// UI
	width   int
	height  int
	keys    KeyMap
	spinner spinner.Model
	inZone  func(id string, msg tea.MouseMsg) bool
}

// New creates a new Model. dialer opens branch-switch streams.
func New(cfg *config.Config, backend Backend, dialer flow.Dialer) Model {
	zoneOnce.Do(zone.NewGlobal)

	filterInput := textinput.New()
	filterInput.Placeholder = "filter..."
	filterInput.CharLimit = 50

	renameInput := textinput.New()
	renameInput.Placeholder = "branch-name"
	renameInput.CharLimit = 100

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = ui.SpinnerStyle

	reloadCh := make(chan struct{}, 1)
	tracker := progress.NewTracker()
	progressCh, unsubscribe := tracker.Subscribe()
	orchestrator := flow.NewOrchestrator(dialer, tracker,
		flow.WithAutoClose(cfg.UI.AutoCloseDelay.Duration),
		flow.WithReload(func() {
			select {
			case reloadCh <- struct{}{}:
			default:
			}
		}),
	)

	cachePath := ""
	if cfg.General.CacheClients {
		cachePath = clients.CachePath(cfg.Server.URL)
	}

	return Model{
		config:       cfg,
		backend:      backend,
		ctx:          context.Background(),
		cachePath:    cachePath,
		refresh:      &singleflight.Group{},
		switcher:     flow.NewSwitcher(flow.NewGate(backend, cfg.Safety.BlockOnStatusError), orchestrator),
		orchestrator: orchestrator,
		reclassifier: flow.NewReclassifier(backend, cfg.General.DefaultSourceBranch),
		rename:       flow.NewRename(backend),
		progressCh:   progressCh,
		unsubscribe:  unsubscribe,
		reloadCh:     reloadCh,
		expanded:     make(map[clients.SectionKey]bool),
		state:        StateList,
		loading:      true,
		showDetail:   cfg.UI.ShowDetail,
		commitView:   viewport.New(0, 0),
		filterInput:  filterInput,
		renameInput:  renameInput,
		create:       newCreateForm(),
		settings:     newSettingsForm(),
		keys:         KeyMapFromConfig(&cfg.Keys),
		spinner:      sp,
		inZone: func(id string, msg tea.MouseMsg) bool {
			return zone.Get(id).InBounds(msg)
		},
	}
}

// Init initializes the model.
func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{
		m.spinner.Tick,
		waitForProgress(m.progressCh),
		waitForReload(m.reloadCh),
		m.refreshClients(),
	}
	if m.cachePath != "" {
		cmds = append([]tea.Cmd{loadCachedClients(m.cachePath, m.config.Server.URL)}, cmds...)
	}
	return tea.Batch(cmds...)
}

// Close releases the branch switch and the progress subscription.
func (m Model) Close() {
	m.orchestrator.Close()
	if m.unsubscribe != nil {
		m.unsubscribe()
	}
}

func (m Model) refreshClients() tea.Cmd {
	return loadClients(m.ctx, m.backend, m.refresh, m.cachePath, m.config.Server.URL)
}

// Update handles messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.commitView.Width = max(20, msg.Width-8)
		m.commitView.Height = max(5, msg.Height-10)
		m.ensureCursorVisible()
		return m, nil

	case tea.KeyMsg:
		// Handle quit globally
		if key.Matches(msg, m.keys.Quit) && m.state == StateList {
			return m, tea.Quit
		}
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
		return m.handleKeyPress(msg)

	case tea.MouseMsg:
		if !m.config.UI.Mouse {
			return m, nil
		}
		return m.handleMouse(msg)

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case ClientsLoadedMsg:
		if msg.FromCache && !m.loading {
			// A live list already arrived.
			return m, nil
		}
		if msg.Err != nil {
			m.loading = false
			m.err = msg.Err
			return m, nil
		}
		m.loading = false
		m.fromCache = msg.FromCache
		if !msg.FromCache {
			m.err = nil
		}
		m.clients = clients.NormalizeAll(msg.Clients)
		m.applyFilter()
		return m, m.maybeLoadDetail()

	case SelectedMsg:
		return m.handleSelected(msg)

	case GateResolvedMsg:
		m.resolving = false
		if msg.Err != nil {
			// The switch stays pending; the user may pick again or cancel.
			m.err = msg.Err
			return m, nil
		}
		m.pending = nil
		m.selected = msg.Pending.TargetClientName
		m.switchTarget = flow.Target{Base: msg.Pending.BaseName, Branch: msg.Pending.TargetBranch}
		m.state = m.progressState()
		return m, nil

	case ProgressMsg:
		m.progress = msg.Snapshot
		if m.state == StateProgress && m.orchestrator.State() == flow.StateIdle {
			m.state = StateList
		}
		return m, waitForProgress(m.progressCh)

	case SwitchReloadMsg:
		cmd := m.setMessage(fmt.Sprintf("Switched %s to %s", m.switchTarget.Base, m.switchTarget.Branch))
		m.switchTarget = flow.Target{}
		return m, tea.Batch(cmd, m.refreshClients(), waitForReload(m.reloadCh))

	case DroppedMsg:
		m.hoverZone = flow.ZoneNone
		if m.state == StateDrag {
			m.state = StateList
		}
		if msg.Err != nil {
			m.err = msg.Err
			return m, nil
		}
		if !msg.Dropped {
			return m, nil
		}
		m.expanded[clients.SectionKey{Base: msg.Result.Base, Environment: msg.Result.Zone.Environment()}] = true
		cmd := m.setMessage(fmt.Sprintf("Created %s from %s", msg.Result.Branch, msg.Result.Source))
		return m, tea.Batch(cmd, m.refreshClients())

	case RenamedMsg:
		if msg.Err != nil {
			m.err = msg.Err
			return m, nil
		}
		if msg.Outcome != flow.RenameApplied {
			return m, nil
		}
		cmd := m.setMessage(fmt.Sprintf("Renamed %s to %s", msg.OldName, msg.NewName))
		return m, tea.Batch(cmd, m.refreshClients())

	case DetailLoadedMsg:
		if msg.Client != m.detailFor {
			return m, nil
		}
		m.detailLoading = false
		m.commits = msg.Commits
		m.builds = msg.Builds
		m.docker = msg.Docker
		if m.historyCursor >= len(m.commits) {
			m.historyCursor = 0
		}
		return m, nil

	case CommitDetailsMsg:
		if msg.Err != nil {
			m.err = msg.Err
			m.state = StateHistory
			return m, nil
		}
		m.commitView.SetContent(ui.RenderCommitDetails(msg.Details, m.commitView.Width))
		m.commitView.GotoTop()
		return m, nil

	case ClientStartedMsg:
		if msg.Err != nil {
			m.err = msg.Err
			return m, nil
		}
		cmd := m.setMessage("Started " + msg.Client)
		m.detailFor = ""
		return m, tea.Batch(cmd, m.refreshClients())

	case ClientOpenedMsg:
		if msg.Err != nil {
			m.err = msg.Err
		}
		return m, nil

	case ClientCreatedMsg:
		m.create.submitting = false
		if msg.Err != nil {
			m.err = msg.Err
			return m, nil
		}
		m.create.reset()
		m.state = StateList
		cmd := m.setMessage("Created client " + msg.Name)
		return m, tea.Batch(cmd, m.refreshClients())

	case GitHubConfigLoadedMsg:
		m.settings.loading = false
		if msg.Err != nil {
			m.err = msg.Err
			return m, nil
		}
		m.settings.loadGitHub(msg.Config)
		return m, nil

	case TraefikConfigLoadedMsg:
		if msg.Err != nil {
			m.err = msg.Err
			return m, nil
		}
		m.settings.loadTraefik(msg.Config)
		return m, nil

	case TraefikConfigSavedMsg:
		if msg.Err != nil {
			m.err = msg.Err
			return m, nil
		}
		m.settings.status = "Saved"
		return m, m.setMessage("Traefik settings saved")

	case GitHubConfigSavedMsg:
		if msg.Err != nil {
			m.err = msg.Err
			return m, nil
		}
		m.settings.status = "Saved"
		return m, m.setMessage("GitHub settings saved")

	case GitHubTestedMsg:
		if msg.Err != nil {
			m.settings.status = "Connection failed: " + mcp.Message(msg.Err)
			return m, nil
		}
		m.settings.status = "Connection OK"
		if msg.Message != "" {
			m.settings.status += ": " + msg.Message
		}
		return m, nil

	case clearMessageMsg:
		if msg.id == m.messageID {
			m.message = ""
		}
		return m, nil
	}

	return m, nil
}

// handleSelected applies the outcome of a selection.
func (m Model) handleSelected(msg SelectedMsg) (tea.Model, tea.Cmd) {
	switch msg.Outcome {
	case flow.OutcomeSelected:
		m.selected = msg.Target.Name
		return m, m.maybeLoadDetail()
	case flow.OutcomeSwitching:
		m.selected = msg.Target.Name
		m.switchTarget = flow.Target{Base: msg.Target.BaseName, Branch: msg.Target.BranchOrDerived()}
		m.state = m.progressState()
		return m, nil
	case flow.OutcomeAwaitingDecision:
		if p, ok := m.switcher.Gate().Pending(); ok {
			m.pending = &p
			m.state = StateConfirmSwitch
		}
		return m, nil
	case flow.OutcomeBlocked:
		m.err = msg.Err
		return m, nil
	}
	return m, nil
}

// progressState shows the progress dialog unless the switch already ended.
func (m Model) progressState() State {
	if m.orchestrator.State() == flow.StateIdle {
		return StateList
	}
	return StateProgress
}

// setMessage shows a status message and schedules its expiry.
func (m *Model) setMessage(s string) tea.Cmd {
	m.messageID++
	m.message = s
	m.messageAt = time.Now()
	m.err = nil
	return clearMessageAfter(m.config.UI.MessageTimeout.Duration, m.messageID)
}

// currentClient is the client under the cursor, if the cursor is on one.
func (m Model) currentClient() (clients.Client, bool) {
	if m.cursor < 0 || m.cursor >= len(m.rows) {
		return clients.Client{}, false
	}
	row := m.rows[m.cursor]
	if row.IsHeader {
		return clients.Client{}, false
	}
	return row.Client, true
}

// selectedClient is the client last selected with Enter or a click.
func (m Model) selectedClient() clients.Client {
	c, _ := clients.Find(m.clients, m.selected)
	return c
}

// maybeLoadDetail fetches the detail panel data for the client under the cursor.
func (m *Model) maybeLoadDetail() tea.Cmd {
	if !m.showDetail {
		return nil
	}
	c, ok := m.currentClient()
	if !ok || c.Name == m.detailFor {
		return nil
	}
	m.detailFor = c.Name
	m.detailLoading = true
	m.commits, m.builds, m.docker = nil, nil, ""
	return loadDetail(m.ctx, m.backend, c, m.config.General.HistoryLimit)
}

// clientSource implements fuzzy.Source for client fuzzy matching.
type clientSource []clients.Client

func (s clientSource) String(i int) string {
	// Match against name, branch and tier
	return s[i].Name + " " + s[i].Branch + " " + string(s[i].Environment)
}

func (s clientSource) Len() int {
	return len(s)
}

// applyFilter filters clients using fuzzy matching and rebuilds the rows.
func (m *Model) applyFilter() {
	filter := strings.TrimSpace(m.filterInput.Value())
	if filter == "" {
		m.filtered = m.clients
	} else {
		matches := fuzzy.FindFrom(filter, clientSource(m.clients))
		m.filtered = nil
		for _, match := range matches {
			m.filtered = append(m.filtered, m.clients[match.Index])
		}
		m.filtered = clients.NormalizeAll(m.filtered)
	}
	m.rebuildRows()
}

func (m *Model) rebuildRows() {
	var keep string
	if c, ok := m.currentClient(); ok {
		keep = c.Name
	}
	m.rows = clients.Rows(m.filtered, m.expanded)

	if keep != "" {
		for i, r := range m.rows {
			if !r.IsHeader && r.Client.Name == keep {
				m.cursor = i
				break
			}
		}
	}
	if m.cursor >= len(m.rows) {
		m.cursor = len(m.rows) - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
	m.ensureCursorVisible()
}

// visibleRows is how many sidebar rows fit on screen.
func (m Model) visibleRows() int {
	reserved := 8
	if m.showDetail {
		reserved += 10
	}
	n := m.height - reserved
	if n < 3 {
		n = 3
	}
	return n
}

func (m *Model) ensureCursorVisible() {
	visible := m.visibleRows()
	if m.cursor < m.offset {
		m.offset = m.cursor
	}
	if m.cursor >= m.offset+visible {
		m.offset = m.cursor - visible + 1
	}
	if m.offset < 0 {
		m.offset = 0
	}
}

// View renders the UI.
func (m Model) View() string {
	params := ui.RenderParams{
		State:         int(m.state),
		Rows:          m.rows,
		Cursor:        m.cursor,
		ViewOffset:    m.offset,
		VisibleCount:  m.visibleRows(),
		Selected:      m.selected,
		Width:         m.width,
		Height:        m.height,
		Loading:       m.loading,
		Stale:         m.fromCache,
		Err:           m.err,
		Message:       m.message,
		MessageAt:     m.messageAt,
		SpinnerFrame:  m.spinner.View(),
		FilterInput:   m.filterInput.View(),
		FilterValue:   m.filterInput.Value(),
		RenameInput:   m.renameInput.View(),
		RenameOld:     m.rename.OldName(),
		Pending:       m.pending,
		Resolving:     m.resolving,
		Progress:      m.progress,
		SwitchState:   string(m.orchestrator.State()),
		SwitchTarget:  m.switchTarget,
		SwitchErr:     m.orchestrator.LastError(),
		Dragging:      m.state == StateDrag || m.mouseMoved,
		HoverZone:     m.hoverZone,
		ShowDetail:    m.showDetail,
		DetailTab:     m.detailTab,
		DetailLoading: m.detailLoading,
		Commits:       m.commits,
		Builds:        m.builds,
		Docker:        m.docker,
		HistoryCursor: m.historyCursor,
		CommitView:    m.commitView.View(),
		Create:        m.create.view(),
		Settings:      m.settings.view(),
		HelpSections:  m.helpSections(),
	}
	if p, ok := m.reclassifier.Payload(); ok {
		params.DragSource = p.Source.Name
	}
	if c, ok := m.currentClient(); ok {
		params.Current = &c
	}
	return zone.Scan(ui.Render(params))
}

// helpSections lists the bindings shown on the help screen.
func (m Model) helpSections() []ui.HelpSection {
	section := func(title string, bindings ...key.Binding) ui.HelpSection {
		s := ui.HelpSection{Title: title}
		for _, b := range bindings {
			h := b.Help()
			s.Bindings = append(s.Bindings, ui.HelpBinding{Keys: h.Key, Desc: h.Desc})
		}
		return s
	}
	return []ui.HelpSection{
		section("Navigation", m.keys.Up, m.keys.Down, m.keys.Home, m.keys.End, m.keys.Filter),
		section("Branches", m.keys.Switch, m.keys.Rename, m.keys.Move, m.keys.Refresh),
		section("Clients", m.keys.Detail, m.keys.History, m.keys.Open, m.keys.Start, m.keys.Create, m.keys.Settings),
		section("General", m.keys.Help, m.keys.Quit),
	}
}
