package app

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/henri123lemoine/odoodash/internal/clients"
	"github.com/henri123lemoine/odoodash/internal/debug"
	"github.com/henri123lemoine/odoodash/internal/flow"
)

// handleKeyPress handles key presses based on current state.
func (m Model) handleKeyPress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch m.state {
	case StateList:
		return m.handleListKeys(msg)
	case StateFilter:
		return m.handleFilterKeys(msg)
	case StateRename:
		return m.handleRenameKeys(msg)
	case StateConfirmSwitch:
		return m.handleConfirmSwitchKeys(msg)
	case StateProgress:
		return m.handleProgressKeys(msg)
	case StateDrag:
		return m.handleDragKeys(msg)
	case StateHistory:
		return m.handleHistoryKeys(msg)
	case StateCommitDetails:
		return m.handleCommitDetailsKeys(msg)
	case StateCreate:
		return m.handleCreateKeys(msg)
	case StateSettings:
		return m.handleSettingsKeys(msg)
	case StateHelp:
		return m.handleHelpKeys(msg)
	}
	return m, nil
}

// handleListKeys handles key presses in the client list.
func (m Model) handleListKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Up):
		if m.cursor > 0 {
			m.cursor--
		}
		m.ensureCursorVisible()
		return m, m.maybeLoadDetail()
	case key.Matches(msg, m.keys.Down):
		if m.cursor < len(m.rows)-1 {
			m.cursor++
		}
		m.ensureCursorVisible()
		return m, m.maybeLoadDetail()
	case key.Matches(msg, m.keys.Home):
		m.cursor = 0
		m.ensureCursorVisible()
		return m, m.maybeLoadDetail()
	case key.Matches(msg, m.keys.End):
		m.cursor = max(0, len(m.rows)-1)
		m.ensureCursorVisible()
		return m, m.maybeLoadDetail()

	case key.Matches(msg, m.keys.Switch):
		return m.activateRow()

	case key.Matches(msg, m.keys.Rename):
		if c, ok := m.currentClient(); ok {
			m.rename.StartEditing(c)
			m.renameInput.SetValue(m.rename.Buffer())
			m.renameInput.CursorEnd()
			m.renameInput.Focus()
			m.state = StateRename
			return m, textinput.Blink
		}
	case key.Matches(msg, m.keys.Move):
		if c, ok := m.currentClient(); ok {
			m.reclassifier.BeginDrag(c)
			m.hoverZone = flow.ZoneNone
			m.state = StateDrag
		}
	case key.Matches(msg, m.keys.Filter):
		m.state = StateFilter
		m.filterInput.Focus()
		return m, textinput.Blink
	case key.Matches(msg, m.keys.Refresh):
		return m, tea.Batch(m.setMessage("Refreshing..."), m.refreshClients())
	case key.Matches(msg, m.keys.Detail):
		m.showDetail = !m.showDetail
		m.detailFor = ""
		m.ensureCursorVisible()
		return m, m.maybeLoadDetail()
	case key.Matches(msg, m.keys.NextTab):
		if m.showDetail {
			m.detailTab = (m.detailTab + 1) % tabCount
		}
	case key.Matches(msg, m.keys.PrevTab):
		if m.showDetail {
			m.detailTab = (m.detailTab + tabCount - 1) % tabCount
		}
	case key.Matches(msg, m.keys.History):
		if c, ok := m.currentClient(); ok {
			m.state = StateHistory
			m.historyCursor = 0
			if c.Name != m.detailFor {
				m.detailFor = c.Name
				m.detailLoading = true
				return m, loadDetail(m.ctx, m.backend, c, m.config.General.HistoryLimit)
			}
		}
	case key.Matches(msg, m.keys.Open):
		if c, ok := m.currentClient(); ok {
			return m, openClient(m.config.Open.Command, c)
		}
	case key.Matches(msg, m.keys.Start):
		if c, ok := m.currentClient(); ok {
			return m, tea.Batch(m.setMessage("Starting "+c.Name+"..."), startClient(m.ctx, m.backend, c.Name))
		}
	case key.Matches(msg, m.keys.Create):
		m.state = StateCreate
		return m, m.create.focus(0)
	case key.Matches(msg, m.keys.Settings):
		m.state = StateSettings
		m.settings.loading = true
		m.settings.status = ""
		return m, tea.Batch(m.settings.focus(0), loadGitHubConfig(m.ctx, m.backend), loadTraefikConfig(m.ctx, m.backend))
	case key.Matches(msg, m.keys.Help):
		m.state = StateHelp
	case key.Matches(msg, m.keys.Cancel):
		m.err = nil
	}
	return m, nil
}

// activateRow toggles a section header or selects the client under the cursor.
func (m Model) activateRow() (tea.Model, tea.Cmd) {
	if m.cursor < 0 || m.cursor >= len(m.rows) {
		return m, nil
	}
	row := m.rows[m.cursor]
	if row.IsHeader {
		m.expanded[row.Section] = !row.Expanded
		m.rebuildRows()
		return m, nil
	}
	debug.Log("select %s (current %q)", row.Client.Name, m.selected)
	return m, selectClient(m.ctx, m.switcher, m.selectedClient(), row.Client)
}

// handleFilterKeys handles key presses in filter mode.
func (m Model) handleFilterKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		m.state = StateList
		m.filterInput.Reset()
		m.applyFilter()
		return m, nil
	case tea.KeyEnter:
		m.state = StateList
		m.filterInput.Blur()
		return m, nil
	}

	var cmd tea.Cmd
	m.filterInput, cmd = m.filterInput.Update(msg)
	m.applyFilter()
	return m, cmd
}

// handleRenameKeys handles key presses in the inline branch rename.
func (m Model) handleRenameKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		m.rename.Cancel()
		m.renameInput.Reset()
		m.renameInput.Blur()
		m.state = StateList
		return m, nil
	case tea.KeyEnter:
		oldName := m.rename.OldName()
		newName := strings.TrimSpace(m.renameInput.Value())
		m.rename.SetBuffer(m.renameInput.Value())
		m.renameInput.Reset()
		m.renameInput.Blur()
		m.state = StateList
		return m, commitRename(m.ctx, m.rename, oldName, newName)
	}

	var cmd tea.Cmd
	m.renameInput, cmd = m.renameInput.Update(msg)
	m.rename.SetBuffer(m.renameInput.Value())
	return m, cmd
}

// handleConfirmSwitchKeys handles the uncommitted-changes dialog.
func (m Model) handleConfirmSwitchKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.resolving {
		return m, nil
	}
	switch {
	case key.Matches(msg, m.keys.Commit):
		m.resolving = true
		m.err = nil
		return m, commitAndSwitch(m.ctx, m.switcher)
	case key.Matches(msg, m.keys.Discard):
		m.resolving = true
		m.err = nil
		return m, discardAndSwitch(m.ctx, m.switcher)
	case key.Matches(msg, m.keys.Cancel), msg.String() == "n":
		m.switcher.Cancel()
		m.pending = nil
		m.state = StateList
	}
	return m, nil
}

// handleProgressKeys handles the branch-switch progress dialog.
func (m Model) handleProgressKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Retry):
		if err := m.orchestrator.Retry(m.ctx); err != nil {
			debug.Log("retry ignored: %v", err)
		}
	case key.Matches(msg, m.keys.Cancel), key.Matches(msg, m.keys.Confirm):
		completed := m.orchestrator.State() == flow.StateCompleted
		m.orchestrator.Close()
		m.state = StateList
		if completed {
			// Closed before the auto-close could reload.
			cmd := m.setMessage("Switched " + m.switchTarget.Base + " to " + m.switchTarget.Branch)
			m.switchTarget = flow.Target{}
			return m, tea.Batch(cmd, m.refreshClients())
		}
		m.switchTarget = flow.Target{}
	}
	return m, nil
}

// handleDragKeys handles keyboard reclassification.
func (m Model) handleDragKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.DropStaging):
		m.hoverZone = flow.ZoneStaging
		m.reclassifier.Hover(flow.ZoneStaging)
		return m, dropClient(m.ctx, m.reclassifier, flow.ZoneStaging)
	case key.Matches(msg, m.keys.DropDevelopment):
		m.hoverZone = flow.ZoneDevelopment
		m.reclassifier.Hover(flow.ZoneDevelopment)
		return m, dropClient(m.ctx, m.reclassifier, flow.ZoneDevelopment)
	case key.Matches(msg, m.keys.NextTab), key.Matches(msg, m.keys.PrevTab), key.Matches(msg, m.keys.Detail):
		if m.hoverZone == flow.ZoneStaging {
			m.hoverZone = flow.ZoneDevelopment
		} else {
			m.hoverZone = flow.ZoneStaging
		}
		m.reclassifier.Hover(m.hoverZone)
	case key.Matches(msg, m.keys.Confirm):
		if m.hoverZone != flow.ZoneNone {
			return m, dropClient(m.ctx, m.reclassifier, m.hoverZone)
		}
	case key.Matches(msg, m.keys.Cancel):
		return m.cancelDrag(), nil
	}
	return m, nil
}

// handleHistoryKeys handles the commit history list.
func (m Model) handleHistoryKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Up):
		if m.historyCursor > 0 {
			m.historyCursor--
		}
	case key.Matches(msg, m.keys.Down):
		if m.historyCursor < len(m.commits)-1 {
			m.historyCursor++
		}
	case key.Matches(msg, m.keys.Confirm):
		c, ok := clients.Find(m.clients, m.detailFor)
		if ok && m.historyCursor < len(m.commits) {
			m.state = StateCommitDetails
			m.commitView.SetContent("")
			return m, loadCommitDetails(m.ctx, m.backend, c.BaseName, m.commits[m.historyCursor].Hash)
		}
	case key.Matches(msg, m.keys.Cancel), msg.String() == "q":
		m.state = StateList
	}
	return m, nil
}

// handleCommitDetailsKeys scrolls the commit details view.
func (m Model) handleCommitDetailsKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keys.Cancel) || msg.String() == "q" {
		m.state = StateHistory
		return m, nil
	}
	var cmd tea.Cmd
	m.commitView, cmd = m.commitView.Update(msg)
	return m, cmd
}

// handleHelpKeys handles key presses in the help view.
func (m Model) handleHelpKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	// Any key closes help
	m.state = StateList
	return m, nil
}
