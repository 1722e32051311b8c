// Package frame implements a display-refresh style scheduler.
//
// A Loop owns one goroutine. It runs requested frame callbacks once per tick
// and executes actions posted with Do between ticks, so callbacks and actions
// never run in parallel with each other.
package frame
