package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	zone "github.com/lrstanley/bubblezone"

	"github.com/henri123lemoine/odoodash/internal/clients"
	"github.com/henri123lemoine/odoodash/internal/flow"
	"github.com/henri123lemoine/odoodash/internal/mcp"
	"github.com/henri123lemoine/odoodash/internal/progress"
)

// State constants (matching app.State)
const (
	StateList = iota
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

// Detail tabs (matching app tabs)
const (
	TabCommits = iota
	TabBuilds
	TabDocker
)

var tabNames = []string{"Commits", "Builds", "Docker"}

// Mouse zone ids.
const (
	ZoneStaging     = "zone-staging"
	ZoneDevelopment = "zone-development"
)

// RowZoneID is the mouse zone id of sidebar row i.
func RowZoneID(i int) string {
	return fmt.Sprintf("row-%d", i)
}

// HelpBinding represents a keybinding for help display.
type HelpBinding struct {
	Keys string
	Desc string
}

// HelpSection represents a section of help bindings.
type HelpSection struct {
	Title    string
	Bindings []HelpBinding
}

// FormField is one labelled input of a form.
type FormField struct {
	Label string
	Input string
}

// FormView is a rendered form: its fields, which one has focus, and a
// status line.
type FormView struct {
	Fields  []FormField
	Focused int
	Busy    bool
	Status  string
}

// RenderParams contains all parameters needed for rendering.
type RenderParams struct {
	State        int
	Rows         []clients.Row
	Cursor       int
	ViewOffset   int
	VisibleCount int
	Selected     string
	Width        int
	Height       int
	Loading      bool
	Stale        bool
	Err          error
	Message      string
	MessageAt    time.Time
	SpinnerFrame string

	FilterInput string
	FilterValue string
	RenameInput string
	RenameOld   string

	// Branch switch
	Pending      *flow.PendingSwitch
	Resolving    bool
	Progress     progress.Snapshot
	SwitchState  string
	SwitchTarget flow.Target
	SwitchErr    error

	// Reclassification
	Dragging   bool
	HoverZone  flow.Zone
	DragSource string

	// Detail panel and history
	ShowDetail    bool
	DetailTab     int
	DetailLoading bool
	Commits       []mcp.Commit
	Builds        []mcp.Build
	Docker        string
	HistoryCursor int
	CommitView    string
	Current       *clients.Client

	Create       FormView
	Settings     FormView
	HelpSections []HelpSection
}

// MinWidth is the absolute minimum terminal width we try to support.
const MinWidth = 30

// MinHeight is the absolute minimum terminal height we try to support.
const MinHeight = 8

// Render renders the full UI.
func Render(p RenderParams) string {
	if p.Width < MinWidth {
		p.Width = MinWidth
	}
	if p.Height < MinHeight {
		p.Height = MinHeight
	}

	switch p.State {
	case StateConfirmSwitch:
		return renderConfirmSwitch(p)
	case StateProgress:
		return renderProgress(p)
	case StateRename:
		return renderRename(p)
	case StateHistory:
		return renderHistory(p)
	case StateCommitDetails:
		return renderCommitDetailsView(p)
	case StateCreate:
		return renderCreate(p)
	case StateSettings:
		return renderSettings(p)
	case StateHelp:
		return renderHelp(p)
	default:
		// List, filter and drag share the main layout.
		return renderList(p)
	}
}

func divider(width int) string {
	return DividerStyle.Render(strings.Repeat(SymbolDivider, max(0, width)))
}

// renderList renders the sidebar, the drop zones and the detail panel.
func renderList(p RenderParams) string {
	var b strings.Builder
	contentWidth := p.Width - 6

	if p.State == StateFilter {
		b.WriteString(HeaderStyle.Render("FILTER") + "  " + p.FilterInput + "\n")
	} else {
		header := HeaderStyle.Render("CLIENTS")
		if p.FilterValue != "" {
			header += "  " + MutedStyle.Render("filter: "+p.FilterValue)
		}
		if p.Stale {
			header += "  " + MutedStyle.Render("(cached)")
		}
		b.WriteString(header + "\n")
	}
	b.WriteString(divider(contentWidth) + "\n")

	switch {
	case p.Loading && len(p.Rows) == 0:
		b.WriteString("\n" + p.SpinnerFrame + " Loading clients...\n")
	case len(p.Rows) == 0 && p.FilterValue != "":
		b.WriteString("\n" + MutedStyle.Render("No matches found.") + "\n")
	case len(p.Rows) == 0:
		b.WriteString("\n" + MutedStyle.Render("No clients found. Press 'c' to create one.") + "\n")
	default:
		b.WriteString(renderRows(p, contentWidth))
	}

	b.WriteString("\n" + renderDropZones(p, contentWidth) + "\n")

	if p.ShowDetail && p.Current != nil {
		b.WriteString(renderDetailPanel(p, contentWidth) + "\n")
	}

	b.WriteString(divider(contentWidth) + "\n")
	if line := statusLine(p); line != "" {
		b.WriteString(line + "\n")
	}
	b.WriteString(HelpStyle.Render(listHelp(p)))

	return wrapInBox(b.String(), p.Width)
}

func listHelp(p RenderParams) string {
	switch p.State {
	case StateFilter:
		return "enter keep • esc clear"
	case StateDrag:
		return "s staging • d development • tab toggle • enter drop • esc cancel"
	}
	return compactHelp(
		"enter switch • r rename • m move • / filter • tab detail • i history • o open • ? help • q quit",
		"enter•r•m•/•tab•i•o•?•q",
		p.Width,
	)
}

// renderRows renders the visible sidebar rows, each marked as a mouse zone.
func renderRows(p RenderParams, width int) string {
	var b strings.Builder
	start := p.ViewOffset
	end := min(len(p.Rows), p.ViewOffset+p.VisibleCount)
	if start >= len(p.Rows) {
		start = 0
	}

	if start > 0 {
		b.WriteString(MutedStyle.Render(fmt.Sprintf("  ↑ %d more above", start)) + "\n")
	}
	for i := start; i < end; i++ {
		line := renderRow(p.Rows[i], i == p.Cursor, p.Selected, width)
		b.WriteString(zone.Mark(RowZoneID(i), line) + "\n")
	}
	if end < len(p.Rows) {
		b.WriteString(MutedStyle.Render(fmt.Sprintf("  ↓ %d more below", len(p.Rows)-end)) + "\n")
	}
	return b.String()
}

func renderRow(row clients.Row, cursor bool, selected string, width int) string {
	marker := "  "
	if cursor {
		marker = SelectedStyle.Render(SymbolCursor + " ")
	}

	if row.IsHeader {
		arrow := SymbolExpanded
		if !row.Expanded {
			arrow = SymbolCollapsed
		}
		title := row.Section.Base + " · " + EnvironmentStyle(row.Section.Environment).Render(string(row.Section.Environment))
		return marker + MutedStyle.Render(arrow) + " " + title + MutedStyle.Render(fmt.Sprintf(" (%d)", row.Count))
	}

	c := row.Client
	current := " "
	if c.Name == selected {
		current = CurrentStyle.Render(SymbolCurrent)
	}
	name := truncate(c.Name, width/2)
	if cursor {
		name = SelectedStyle.Render(name)
	} else {
		name = NormalStyle.Render(name)
	}
	branch := c.BranchOrDerived()
	if branch == "" {
		branch = "-"
	}
	return marker + "  " + current + " " + StatusBadge(c.Status) + " " + name + "  " + MutedStyle.Render(truncate(branch, width/3))
}

// renderDropZones renders the staging and development targets side by side.
func renderDropZones(p RenderParams, width int) string {
	zoneWidth := max(12, width/2-4)
	render := func(id string, z flow.Zone, label string) string {
		style := DropZoneStyle
		if p.Dragging && p.HoverZone == z {
			style = DropZoneActiveStyle
		}
		return zone.Mark(id, style.Width(zoneWidth).Render(label))
	}

	staging := render(ZoneStaging, flow.ZoneStaging, "⇣ New staging branch")
	development := render(ZoneDevelopment, flow.ZoneDevelopment, "⇣ New development branch")
	zones := lipgloss.JoinHorizontal(lipgloss.Top, staging, "  ", development)

	if p.Dragging && p.DragSource != "" {
		return SelectedStyle.Render("Moving "+p.DragSource) + MutedStyle.Render(" → drop on a zone") + "\n" + zones
	}
	return zones
}

// renderDetailPanel renders the tabbed detail panel of the client under the cursor.
func renderDetailPanel(p RenderParams, width int) string {
	var b strings.Builder
	c := p.Current

	var tabs []string
	for i, name := range tabNames {
		if i == p.DetailTab {
			tabs = append(tabs, ActiveTabStyle.Render(name))
		} else {
			tabs = append(tabs, TabStyle.Render(name))
		}
	}
	b.WriteString(TitleStyle.Render(c.Name) + "  " + strings.Join(tabs, " ") + "\n")

	info := []string{EnvironmentStyle(c.Environment).Render(string(c.Environment))}
	if c.Version != "" {
		info = append(info, "Odoo "+c.Version)
	}
	if c.URL != "" {
		info = append(info, c.URL)
	}
	b.WriteString(MutedStyle.Render(strings.Join(info, " · ")) + "\n")

	if p.DetailLoading {
		b.WriteString(p.SpinnerFrame + " Loading...\n")
		return b.String()
	}

	switch p.DetailTab {
	case TabCommits:
		if len(p.Commits) == 0 {
			b.WriteString(MutedStyle.Render("No commits.") + "\n")
		}
		for i, cm := range p.Commits {
			if i >= 5 {
				b.WriteString(MutedStyle.Render(fmt.Sprintf("  ... %d more (i for history)", len(p.Commits)-5)) + "\n")
				break
			}
			b.WriteString(renderCommitLine(cm, false, width) + "\n")
		}
	case TabBuilds:
		if len(p.Builds) == 0 {
			b.WriteString(MutedStyle.Render("No builds.") + "\n")
		}
		for i, bd := range p.Builds {
			if i >= 5 {
				break
			}
			b.WriteString(renderBuildLine(bd, width) + "\n")
		}
	case TabDocker:
		state := p.Docker
		if state == "" {
			state = c.DockerState
		}
		if state == "" {
			state = "unknown"
		}
		line := "Containers: " + dockerStyle(state).Render(state)
		if state != "running" {
			line += MutedStyle.Render("  (S to start)")
		}
		b.WriteString(line + "\n")
	}
	return b.String()
}

func dockerStyle(state string) lipgloss.Style {
	switch state {
	case "running":
		return SuccessStyle
	case "stopped":
		return DangerStyle
	}
	return MutedStyle
}

func renderCommitLine(c mcp.Commit, selected bool, width int) string {
	hash := c.Hash
	if len(hash) > 7 {
		hash = hash[:7]
	}
	msg := truncate(firstLine(c.Message), max(10, width-30))
	line := MutedStyle.Render(hash) + " " + msg
	if c.Author != "" {
		line += " " + MutedStyle.Render("("+c.Author+")")
	}
	if selected {
		return SelectedStyle.Render(SymbolCursor+" ") + line
	}
	return "  " + line
}

func renderBuildLine(bd mcp.Build, width int) string {
	status := bd.Status
	style := MutedStyle
	switch strings.ToLower(status) {
	case "success", "succeeded", "completed":
		style = SuccessStyle
	case "failed", "failure", "error":
		style = DangerStyle
	case "running", "in_progress", "building":
		style = DirtyStyle
	}
	commit := bd.Commit
	if len(commit) > 7 {
		commit = commit[:7]
	}
	line := "  " + style.Render(status) + " " + truncate(bd.Branch, width/3)
	if commit != "" {
		line += " " + MutedStyle.Render(commit)
	}
	if bd.StartedAt != "" {
		line += " " + MutedStyle.Render(bd.StartedAt)
	}
	if bd.Duration != "" {
		line += " " + MutedStyle.Render("("+bd.Duration+")")
	}
	return line
}

// statusLine renders the last error, or the status message with its time.
func statusLine(p RenderParams) string {
	if p.Err != nil {
		return ErrorStyle.Render("Error: " + mcp.Message(p.Err))
	}
	if p.Message != "" {
		stamp := ""
		if !p.MessageAt.IsZero() {
			stamp = MutedStyle.Render(p.MessageAt.Format("15:04:05") + " ")
		}
		return stamp + SuccessStyle.Render(p.Message)
	}
	return ""
}

// renderConfirmSwitch renders the uncommitted changes dialog.
func renderConfirmSwitch(p RenderParams) string {
	var b strings.Builder
	contentWidth := p.Width - 6

	b.WriteString(HeaderStyle.Render("UNCOMMITTED CHANGES") + "\n")
	b.WriteString(divider(contentWidth) + "\n\n")

	if p.Pending != nil {
		b.WriteString(SelectedStyle.Render(p.Pending.BaseName) + " has uncommitted changes.\n")
		b.WriteString("Switching to " + SelectedStyle.Render(p.Pending.TargetBranch) + MutedStyle.Render(" ("+p.Pending.TargetClientName+")") + "\n\n")
	}
	b.WriteString("c  commit them, then switch\n")
	b.WriteString(DangerStyle.Render("d  discard them (git reset --hard), then switch") + "\n")
	b.WriteString("esc  cancel\n")

	if p.Resolving {
		b.WriteString("\n" + p.SpinnerFrame + " Working...\n")
	}
	if p.Err != nil {
		b.WriteString("\n" + ErrorStyle.Render("Error: "+mcp.Message(p.Err)) + "\n")
	}
	return wrapDialog(b.String(), p.Width)
}

// renderProgress renders the branch switch progress dialog.
func renderProgress(p RenderParams) string {
	var b strings.Builder
	contentWidth := p.Width - 6
	snap := p.Progress

	title := "SWITCHING BRANCH"
	if p.SwitchTarget.Base != "" {
		title += "  " + MutedStyle.Render(p.SwitchTarget.Base+" → "+p.SwitchTarget.Branch)
	}
	b.WriteString(HeaderStyle.Render(title) + "\n")
	b.WriteString(divider(contentWidth) + "\n\n")

	pct := snap.PercentComplete()
	b.WriteString(ProgressBar(pct, max(10, contentWidth-8)) + fmt.Sprintf(" %3d%%", pct) + "\n")
	b.WriteString(MutedStyle.Render(snap.ProgressLabel()) + "\n\n")

	for _, s := range snap.Steps {
		line := StepIcon(s.Status) + " " + s.Action
		if s.Details != "" {
			line += MutedStyle.Render("  " + truncate(s.Details, max(10, contentWidth-len(s.Action)-6)))
		}
		b.WriteString(line + "\n")
	}

	b.WriteString("\n")
	switch p.SwitchState {
	case string(flow.StateFailed):
		if p.SwitchErr != nil {
			b.WriteString(ErrorStyle.Render(mcp.Message(p.SwitchErr)) + "\n")
		}
		b.WriteString(HelpStyle.Render("r retry • esc close"))
	case string(flow.StateCompleted):
		b.WriteString(SuccessStyle.Render("Done.") + " " + HelpStyle.Render("closing... • esc close now"))
	default:
		b.WriteString(p.SpinnerFrame + " " + HelpStyle.Render("working..."))
	}
	return wrapDialog(b.String(), p.Width)
}

// ProgressBar renders a percent-filled bar of the given width.
func ProgressBar(percent, width int) string {
	percent = min(100, max(0, percent))
	filled := width * percent / 100
	return SuccessStyle.Render(strings.Repeat("█", filled)) + MutedStyle.Render(strings.Repeat("░", width-filled))
}

// renderRename renders the inline branch rename.
func renderRename(p RenderParams) string {
	var b strings.Builder
	contentWidth := p.Width - 6

	b.WriteString(HeaderStyle.Render("RENAME BRANCH") + "\n")
	b.WriteString(divider(contentWidth) + "\n\n")
	b.WriteString("Current: " + MutedStyle.Render(p.RenameOld) + "\n\n")
	b.WriteString("New name:\n")
	b.WriteString(p.RenameInput + "\n")
	b.WriteString("\n" + divider(contentWidth) + "\n")
	b.WriteString(HelpStyle.Render("enter confirm • esc cancel"))

	return wrapInBox(b.String(), p.Width)
}

// renderHistory renders the commit history of the client in the detail panel.
func renderHistory(p RenderParams) string {
	var b strings.Builder
	contentWidth := p.Width - 6

	title := "COMMIT HISTORY"
	if p.Current != nil {
		title += "  " + MutedStyle.Render(p.Current.Name)
	}
	b.WriteString(HeaderStyle.Render(title) + "\n")
	b.WriteString(divider(contentWidth) + "\n\n")

	switch {
	case p.DetailLoading:
		b.WriteString(p.SpinnerFrame + " Loading history...\n")
	case len(p.Commits) == 0:
		b.WriteString(MutedStyle.Render("No commits.") + "\n")
	default:
		visible := max(3, p.Height-10)
		start := 0
		if p.HistoryCursor >= visible {
			start = p.HistoryCursor - visible + 1
		}
		end := min(len(p.Commits), start+visible)
		for i := start; i < end; i++ {
			b.WriteString(renderCommitLine(p.Commits[i], i == p.HistoryCursor, contentWidth) + "\n")
		}
	}
	if p.Err != nil {
		b.WriteString("\n" + ErrorStyle.Render("Error: "+mcp.Message(p.Err)) + "\n")
	}

	b.WriteString("\n" + divider(contentWidth) + "\n")
	b.WriteString(HelpStyle.Render("↑/↓ select • enter details • esc back"))
	return wrapInBox(b.String(), p.Width)
}

func renderCommitDetailsView(p RenderParams) string {
	var b strings.Builder
	contentWidth := p.Width - 6

	b.WriteString(HeaderStyle.Render("COMMIT") + "\n")
	b.WriteString(divider(contentWidth) + "\n")
	if p.CommitView == "" {
		b.WriteString(p.SpinnerFrame + " Loading commit...\n")
	} else {
		b.WriteString(p.CommitView + "\n")
	}
	b.WriteString(divider(contentWidth) + "\n")
	b.WriteString(HelpStyle.Render("↑/↓ scroll • esc back"))
	return wrapInBox(b.String(), p.Width)
}

// RenderCommitDetails formats a commit for the scrollable details view.
func RenderCommitDetails(d mcp.CommitDetails, width int) string {
	var b strings.Builder
	b.WriteString(SelectedStyle.Render(d.Hash) + "\n")
	if d.Author != "" {
		b.WriteString(MutedStyle.Render("Author: ") + d.Author + "\n")
	}
	if d.Date != "" {
		b.WriteString(MutedStyle.Render("Date:   ") + d.Date + "\n")
	}
	b.WriteString("\n")
	for _, line := range strings.Split(strings.TrimRight(d.Message, "\n"), "\n") {
		b.WriteString("    " + line + "\n")
	}
	b.WriteString("\n")
	b.WriteString(SuccessStyle.Render(fmt.Sprintf("+%d", d.Additions)) + " " + DangerStyle.Render(fmt.Sprintf("-%d", d.Deletions)) + "\n")
	for _, f := range d.Files {
		b.WriteString("  " + truncate(f, max(10, width-2)) + "\n")
	}
	return b.String()
}

func renderForm(title string, f FormView, help string, p RenderParams) string {
	var b strings.Builder
	contentWidth := p.Width - 6

	b.WriteString(HeaderStyle.Render(title) + "\n")
	b.WriteString(divider(contentWidth) + "\n\n")
	for i, field := range f.Fields {
		label := field.Label + ":"
		if i == f.Focused {
			label = SelectedStyle.Render(SymbolCursor + " " + label)
		} else {
			label = "  " + label
		}
		b.WriteString(label + "\n    " + field.Input + "\n")
	}
	if f.Busy {
		b.WriteString("\n" + p.SpinnerFrame + " Working...\n")
	}
	if f.Status != "" {
		b.WriteString("\n" + MutedStyle.Render(f.Status) + "\n")
	}
	if p.Err != nil {
		b.WriteString("\n" + ErrorStyle.Render("Error: "+mcp.Message(p.Err)) + "\n")
	}
	b.WriteString("\n" + divider(contentWidth) + "\n")
	b.WriteString(HelpStyle.Render(help))
	return wrapInBox(b.String(), p.Width)
}

func renderCreate(p RenderParams) string {
	return renderForm("NEW CLIENT", p.Create, "tab next • space toggle • enter create • esc cancel", p)
}

func renderSettings(p RenderParams) string {
	return renderForm("DEPLOYMENT SETTINGS", p.Settings, "tab next • enter save • ctrl+t test • esc back", p)
}

// renderHelp renders the help screen.
func renderHelp(p RenderParams) string {
	var b strings.Builder
	contentWidth := p.Width - 6

	b.WriteString(HeaderStyle.Render("HELP") + "\n")
	b.WriteString(divider(contentWidth) + "\n\n")

	for i, section := range p.HelpSections {
		b.WriteString(BranchStyle.Render(section.Title) + "\n")
		b.WriteString(divider(40) + "\n")
		for _, binding := range section.Bindings {
			keys := binding.Keys
			if len(keys) < 10 {
				keys = keys + strings.Repeat(" ", 10-len(keys))
			}
			b.WriteString(MutedStyle.Render("  "+keys) + " " + binding.Desc + "\n")
		}
		if i < len(p.HelpSections)-1 {
			b.WriteString("\n")
		}
	}

	b.WriteString("\n" + divider(contentWidth) + "\n")
	b.WriteString(HelpStyle.Render("Press any key to close"))
	return wrapInBox(b.String(), p.Width)
}

// wrapInBox wraps content in a box.
func wrapInBox(content string, width int) string {
	boxWidth := max(width-2, MinWidth-2)
	return BoxStyle.Width(boxWidth).Render(content)
}

func wrapDialog(content string, width int) string {
	boxWidth := max(width-2, MinWidth-2)
	return DialogStyle.Width(boxWidth).Render(content)
}

// compactHelp returns a shortened help string for small terminals.
func compactHelp(full, compact string, width int) string {
	if width >= 80 {
		return full
	}
	return compact
}

func truncate(s string, n int) string {
	if n <= 3 || lipgloss.Width(s) <= n {
		return s
	}
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
