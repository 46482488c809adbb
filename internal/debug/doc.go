// Package debug provides debug logging for odoodash.
//
// When enabled via the --debug flag, it records backend calls, stream frames
// and flow transitions to a log file, so a failed branch switch can be traced
// after the fact without cluttering the terminal UI.
package debug
