// Package ui renders the odoodash terminal UI.
//
// Render takes RenderParams and produces the full frame: the grouped client
// sidebar, the staging and development drop zones, the detail panel and any
// dialog for the current state. Rows and drop zones are wrapped in bubblezone
// marks so the app can hit-test mouse events. Rendering has no side effects.
package ui
