package app

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/henri123lemoine/odoodash/internal/debug"
	"github.com/henri123lemoine/odoodash/internal/flow"
	"github.com/henri123lemoine/odoodash/internal/ui"
)

// handleMouse handles clicks and drag-and-drop between the sidebar and the
// drop zones. A press on a row starts a drag; a release without movement is
// a click.
func (m Model) handleMouse(msg tea.MouseMsg) (tea.Model, tea.Cmd) {
	if m.state != StateList && m.state != StateDrag {
		return m, nil
	}

	switch {
	case msg.Button == tea.MouseButtonWheelUp:
		if m.cursor > 0 {
			m.cursor--
			m.ensureCursorVisible()
		}
		return m, nil
	case msg.Button == tea.MouseButtonWheelDown:
		if m.cursor < len(m.rows)-1 {
			m.cursor++
			m.ensureCursorVisible()
		}
		return m, nil

	case msg.Action == tea.MouseActionPress && msg.Button == tea.MouseButtonLeft:
		row, ok := m.rowAt(msg)
		if !ok {
			return m, nil
		}
		m.cursor = row
		m.mouseDown = true
		m.mouseMoved = false
		if c, ok := m.currentClient(); ok {
			m.reclassifier.BeginDrag(c)
		}
		return m, m.maybeLoadDetail()

	case msg.Action == tea.MouseActionMotion:
		if !m.mouseDown {
			return m, nil
		}
		if _, ok := m.reclassifier.Payload(); !ok {
			return m, nil
		}
		m.mouseMoved = true
		m.hoverZone = m.zoneAt(msg)
		m.reclassifier.Hover(m.hoverZone)
		return m, nil

	case msg.Action == tea.MouseActionRelease:
		if !m.mouseDown {
			return m, nil
		}
		moved := m.mouseMoved
		m.mouseDown = false
		m.mouseMoved = false

		if !moved {
			if m.state == StateDrag {
				return m.cancelDrag(), nil
			}
			m.reclassifier.EndDrag()
			return m.activateRow()
		}

		target := m.zoneAt(msg)
		if target == flow.ZoneNone {
			debug.Log("drop outside the zones")
			return m.cancelDrag(), nil
		}
		m.hoverZone = flow.ZoneNone
		return m, dropClient(m.ctx, m.reclassifier, target)
	}
	return m, nil
}

// rowAt returns the index of the visible row under the pointer.
func (m Model) rowAt(msg tea.MouseMsg) (int, bool) {
	end := min(len(m.rows), m.offset+m.visibleRows())
	for i := m.offset; i < end; i++ {
		if m.inZone(ui.RowZoneID(i), msg) {
			return i, true
		}
	}
	return 0, false
}

func (m Model) zoneAt(msg tea.MouseMsg) flow.Zone {
	switch {
	case m.inZone(ui.ZoneStaging, msg):
		return flow.ZoneStaging
	case m.inZone(ui.ZoneDevelopment, msg):
		return flow.ZoneDevelopment
	}
	return flow.ZoneNone
}

// cancelDrag drops the payload and leaves move mode.
func (m Model) cancelDrag() Model {
	m.reclassifier.EndDrag()
	m.hoverZone = flow.ZoneNone
	if m.state == StateDrag {
		m.state = StateList
	}
	return m
}
