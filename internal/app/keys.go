package app

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"

	"github.com/henri123lemoine/odoodash/internal/config"
)

// KeyMap defines all keybindings.
type KeyMap struct {
	// Navigation
	Up   key.Binding
	Down key.Binding
	Home key.Binding
	End  key.Binding

	// Actions
	Switch   key.Binding
	Rename   key.Binding
	Move     key.Binding
	Filter   key.Binding
	Refresh  key.Binding
	Detail   key.Binding
	History  key.Binding
	Open     key.Binding
	Start    key.Binding
	Create   key.Binding
	Settings key.Binding

	// Detail tabs
	NextTab key.Binding
	PrevTab key.Binding

	// Drop zones
	DropStaging     key.Binding
	DropDevelopment key.Binding

	// Dialogs
	Commit  key.Binding
	Discard key.Binding
	Retry   key.Binding
	Confirm key.Binding
	Cancel  key.Binding

	// General
	Quit key.Binding
	Help key.Binding
}

// DefaultKeyMap returns the default key bindings.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Up: key.NewBinding(
			key.WithKeys("up", "k"),
			key.WithHelp("↑/k", "up"),
		),
		Down: key.NewBinding(
			key.WithKeys("down", "j"),
			key.WithHelp("↓/j", "down"),
		),
		Home: key.NewBinding(
			key.WithKeys("home", "g"),
			key.WithHelp("g/home", "first"),
		),
		End: key.NewBinding(
			key.WithKeys("end", "G"),
			key.WithHelp("G/end", "last"),
		),
		Switch: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "select / switch"),
		),
		Rename: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "rename branch"),
		),
		Move: key.NewBinding(
			key.WithKeys("m"),
			key.WithHelp("m", "move to tier"),
		),
		Filter: key.NewBinding(
			key.WithKeys("/"),
			key.WithHelp("/", "filter"),
		),
		Refresh: key.NewBinding(
			key.WithKeys("R"),
			key.WithHelp("R", "refresh"),
		),
		Detail: key.NewBinding(
			key.WithKeys("tab"),
			key.WithHelp("tab", "details"),
		),
		History: key.NewBinding(
			key.WithKeys("i"),
			key.WithHelp("i", "commit history"),
		),
		Open: key.NewBinding(
			key.WithKeys("o"),
			key.WithHelp("o", "open in browser"),
		),
		Start: key.NewBinding(
			key.WithKeys("S"),
			key.WithHelp("S", "start client"),
		),
		Create: key.NewBinding(
			key.WithKeys("c"),
			key.WithHelp("c", "new client"),
		),
		Settings: key.NewBinding(
			key.WithKeys(","),
			key.WithHelp(",", "settings"),
		),
		NextTab: key.NewBinding(
			key.WithKeys("]", "right", "l"),
			key.WithHelp("]", "next tab"),
		),
		PrevTab: key.NewBinding(
			key.WithKeys("[", "left", "h"),
			key.WithHelp("[", "previous tab"),
		),
		DropStaging: key.NewBinding(
			key.WithKeys("s"),
			key.WithHelp("s", "drop on staging"),
		),
		DropDevelopment: key.NewBinding(
			key.WithKeys("d"),
			key.WithHelp("d", "drop on development"),
		),
		Commit: key.NewBinding(
			key.WithKeys("c"),
			key.WithHelp("c", "commit and switch"),
		),
		Discard: key.NewBinding(
			key.WithKeys("d"),
			key.WithHelp("d", "discard and switch"),
		),
		Retry: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "retry"),
		),
		Confirm: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "confirm"),
		),
		Cancel: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "cancel"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "help"),
		),
	}
}

// KeyMapFromConfig creates a KeyMap from config settings.
func KeyMapFromConfig(cfg *config.KeysConfig) KeyMap {
	km := DefaultKeyMap()

	override := func(b *key.Binding, keys, desc string) {
		if keys == "" {
			return
		}
		*b = key.NewBinding(
			key.WithKeys(parseKeys(keys)...),
			key.WithHelp(keys, desc),
		)
	}

	override(&km.Up, cfg.Up, "up")
	override(&km.Down, cfg.Down, "down")
	override(&km.Home, cfg.Home, "first")
	override(&km.End, cfg.End, "last")
	override(&km.Switch, cfg.Switch, "select / switch")
	override(&km.Rename, cfg.Rename, "rename branch")
	override(&km.Move, cfg.Move, "move to tier")
	override(&km.Filter, cfg.Filter, "filter")
	override(&km.Refresh, cfg.Refresh, "refresh")
	override(&km.Detail, cfg.Detail, "details")
	override(&km.Open, cfg.Open, "open in browser")
	override(&km.Start, cfg.Start, "start client")
	override(&km.Create, cfg.Create, "new client")
	override(&km.Settings, cfg.Settings, "settings")
	override(&km.Help, cfg.Help, "help")
	override(&km.Quit, cfg.Quit, "quit")

	return km
}

// parseKeys parses a comma-separated list of keys. A lone "," is the comma key.
func parseKeys(s string) []string {
	if strings.TrimSpace(s) == "," {
		return []string{","}
	}
	parts := strings.Split(s, ",")
	var keys []string
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			keys = append(keys, p)
		}
	}
	return keys
}
