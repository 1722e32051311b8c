// Package client implements the noise-monitorctl commands.
//
// Each command connects to the monitor daemon, performs one control action
// and prints the resulting status.
package client
