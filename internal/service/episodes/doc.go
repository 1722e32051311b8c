// Package episodes prints the alert episode journal.
package episodes
