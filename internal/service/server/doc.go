// Package server assembles and runs the noise-monitor daemon.
//
// The daemon owns the frame loop and the monitor controller. The gRPC control
// API, the HTTP metrics and status feed and the terminal UI reach the
// controller only through actions posted to the loop.
package server
