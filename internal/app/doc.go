// Package app provides the main Bubble Tea application model for odoodash.
//
// It manages the UI state machine, handles keyboard and mouse input, and
// coordinates the branch switch flows in package flow with rendering in
// package ui. States cover the grouped client list, filtering, inline
// branch renames, the uncommitted changes dialog, switch progress,
// reclassification by drag and drop, commit history, client creation and
// the GitHub settings form.
//
// The main type is Model, which implements the Bubble Tea interface
// (Init, Update, View). Backend calls run as tea.Cmd closures and come
// back as messages.
package app
