// Package checker polls the monitor daemon and raises a desktop notification
// when an alert episode begins.
package checker
