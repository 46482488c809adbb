// Package flow holds the stateful workflows behind the dashboard: the
// uncommitted-changes gate, the streamed branch switch, drag-and-drop
// reclassification and inline branch rename.
//
// Each flow is a small mutex-guarded state machine that talks to the backend
// through a narrow port interface, so the TUI can drive it from tea.Cmd
// goroutines and tests can drive it with fakes.
package flow
