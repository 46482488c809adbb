package app

import (
	"errors"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/henri123lemoine/odoodash/internal/mcp"
	"github.com/henri123lemoine/odoodash/internal/ui"
)

const (
	defaultTemplate = "odoo-template"
	defaultVersion  = "18.0"
)

// createForm collects the parameters of a new client.
type createForm struct {
	inputs     []textinput.Model // name, template, version
	enterprise bool
	focused    int // len(inputs) is the enterprise toggle
	submitting bool
}

func newCreateForm() createForm {
	name := textinput.New()
	name.Placeholder = "client-name"
	name.CharLimit = 64

	template := textinput.New()
	template.Placeholder = defaultTemplate
	template.CharLimit = 100

	version := textinput.New()
	version.Placeholder = defaultVersion
	version.CharLimit = 10

	return createForm{inputs: []textinput.Model{name, template, version}}
}

func (f *createForm) focus(i int) tea.Cmd {
	f.focused = i
	for j := range f.inputs {
		f.inputs[j].Blur()
	}
	if i < len(f.inputs) {
		f.inputs[i].Focus()
		return textinput.Blink
	}
	return nil
}

func (f *createForm) reset() {
	for i := range f.inputs {
		f.inputs[i].Reset()
	}
	f.enterprise = false
	f.focused = 0
	f.submitting = false
}

// value returns the form as a create request.
func (f createForm) value() (mcp.NewClient, error) {
	nc := mcp.NewClient{
		Name:          strings.TrimSpace(f.inputs[0].Value()),
		Template:      strings.TrimSpace(f.inputs[1].Value()),
		Version:       strings.TrimSpace(f.inputs[2].Value()),
		HasEnterprise: f.enterprise,
	}
	if nc.Name == "" {
		return nc, errors.New("client name is required")
	}
	if strings.ContainsAny(nc.Name, " /\\") {
		return nc, errors.New("client name must not contain spaces or slashes")
	}
	if nc.Template == "" {
		nc.Template = defaultTemplate
	}
	if nc.Version == "" {
		nc.Version = defaultVersion
	}
	return nc, nil
}

func (f createForm) view() ui.FormView {
	v := ui.FormView{Focused: f.focused, Busy: f.submitting}
	labels := []string{"Name", "Template", "Odoo version"}
	for i, in := range f.inputs {
		v.Fields = append(v.Fields, ui.FormField{Label: labels[i], Input: in.View()})
	}
	toggle := "[ ]"
	if f.enterprise {
		toggle = "[x]"
	}
	v.Fields = append(v.Fields, ui.FormField{Label: "Enterprise", Input: toggle})
	return v
}

// handleCreateKeys handles key presses in the new client form.
func (m Model) handleCreateKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.create.submitting {
		return m, nil
	}
	fields := len(m.create.inputs) + 1

	switch msg.Type {
	case tea.KeyEsc:
		m.create.reset()
		m.state = StateList
		return m, nil
	case tea.KeyTab, tea.KeyDown:
		return m, m.create.focus((m.create.focused + 1) % fields)
	case tea.KeyShiftTab, tea.KeyUp:
		return m, m.create.focus((m.create.focused + fields - 1) % fields)
	case tea.KeyEnter:
		nc, err := m.create.value()
		if err != nil {
			m.err = err
			return m, nil
		}
		m.err = nil
		m.create.submitting = true
		return m, createClient(m.ctx, m.backend, nc)
	case tea.KeySpace:
		if m.create.focused == len(m.create.inputs) {
			m.create.enterprise = !m.create.enterprise
			return m, nil
		}
	}

	if m.create.focused >= len(m.create.inputs) {
		return m, nil
	}
	var cmd tea.Cmd
	m.create.inputs[m.create.focused], cmd = m.create.inputs[m.create.focused].Update(msg)
	return m, cmd
}

// Settings form fields. The first two are saved as GitHub settings, the
// rest as Traefik settings.
const (
	fieldToken = iota
	fieldOrganization
	fieldDomain
	fieldProtocol
	settingsFieldCount
)

// settingsForm edits the deployment target settings kept by the backend.
type settingsForm struct {
	inputs     []textinput.Model
	configured bool
	focused    int
	loading    bool
	status     string
}

func newSettingsForm() settingsForm {
	inputs := make([]textinput.Model, settingsFieldCount)

	inputs[fieldToken] = textinput.New()
	inputs[fieldToken].Placeholder = "ghp_..."
	inputs[fieldToken].EchoMode = textinput.EchoPassword
	inputs[fieldToken].CharLimit = 200

	inputs[fieldOrganization] = textinput.New()
	inputs[fieldOrganization].Placeholder = "organization"
	inputs[fieldOrganization].CharLimit = 100

	inputs[fieldDomain] = textinput.New()
	inputs[fieldDomain].Placeholder = "odoo.example.com"
	inputs[fieldDomain].CharLimit = 253

	inputs[fieldProtocol] = textinput.New()
	inputs[fieldProtocol].Placeholder = mcp.ProtocolHTTPS
	inputs[fieldProtocol].CharLimit = 5

	return settingsForm{inputs: inputs}
}

func (f *settingsForm) focus(i int) tea.Cmd {
	f.focused = (i + len(f.inputs)) % len(f.inputs)
	for j := range f.inputs {
		f.inputs[j].Blur()
	}
	f.inputs[f.focused].Focus()
	return textinput.Blink
}

// loadGitHub fills the GitHub fields. The stored token is never shown;
// leaving the field empty keeps it.
func (f *settingsForm) loadGitHub(gc mcp.GitHubConfig) {
	f.inputs[fieldToken].Reset()
	f.inputs[fieldOrganization].SetValue(gc.Organization)
	f.configured = gc.Configured
}

func (f *settingsForm) loadTraefik(tc mcp.TraefikConfig) {
	f.inputs[fieldDomain].SetValue(tc.Domain)
	f.inputs[fieldProtocol].SetValue(tc.Protocol)
}

func (f settingsForm) github() mcp.GitHubConfig {
	return mcp.GitHubConfig{
		Token:        strings.TrimSpace(f.inputs[fieldToken].Value()),
		Organization: strings.TrimSpace(f.inputs[fieldOrganization].Value()),
	}
}

func (f settingsForm) traefik() mcp.TraefikConfig {
	return mcp.TraefikConfig{
		Domain:   f.inputs[fieldDomain].Value(),
		Protocol: f.inputs[fieldProtocol].Value(),
	}
}

func (f settingsForm) view() ui.FormView {
	v := ui.FormView{Focused: f.focused, Busy: f.loading, Status: f.status}
	tokenLabel := "GitHub token"
	if f.configured {
		tokenLabel = "GitHub token (set)"
	}
	v.Fields = []ui.FormField{
		{Label: tokenLabel, Input: f.inputs[fieldToken].View()},
		{Label: "GitHub organization", Input: f.inputs[fieldOrganization].View()},
		{Label: "Traefik domain", Input: f.inputs[fieldDomain].View()},
		{Label: "Traefik protocol (http/https)", Input: f.inputs[fieldProtocol].View()},
	}
	return v
}

// handleSettingsKeys handles key presses in the settings view. Enter saves
// the group the focused field belongs to.
func (m Model) handleSettingsKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.settings.inputs[fieldToken].Reset()
		m.state = StateList
		return m, nil
	case "tab", "down":
		return m, m.settings.focus(m.settings.focused + 1)
	case "shift+tab", "up":
		return m, m.settings.focus(m.settings.focused - 1)
	case "enter":
		if m.settings.focused >= fieldDomain {
			tc := m.settings.traefik()
			if err := tc.Validate(); err != nil {
				m.err = err
				return m, nil
			}
			m.err = nil
			m.settings.status = "Saving..."
			return m, saveTraefikConfig(m.ctx, m.backend, tc)
		}
		gc := m.settings.github()
		if gc.Organization == "" {
			m.err = errors.New("organization is required")
			return m, nil
		}
		m.err = nil
		m.settings.status = "Saving..."
		return m, saveGitHubConfig(m.ctx, m.backend, gc)
	case "ctrl+t":
		m.settings.status = "Testing connection..."
		return m, testGitHubConnection(m.ctx, m.backend)
	}

	var cmd tea.Cmd
	i := m.settings.focused
	m.settings.inputs[i], cmd = m.settings.inputs[i].Update(msg)
	return m, cmd
}
