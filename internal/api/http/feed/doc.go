// Package feed serves the monitor's HTTP surface: Prometheus metrics, the
// current status as JSON and a WebSocket feed that pushes every status
// change to connected clients.
package feed
