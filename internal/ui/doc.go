// Package ui renders the monitor in a terminal with tcell.
//
// The screen has one toggle control, the status text and a level bar with
// the threshold marked on it. Space or Enter toggles detection; q, Esc or
// Ctrl-C quit.
package ui
