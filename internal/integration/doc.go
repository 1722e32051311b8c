// Package integration runs the noise-monitor daemon end to end against real
// capture child processes and the gRPC and HTTP surfaces.
package integration
