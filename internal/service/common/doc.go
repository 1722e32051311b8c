// Package common holds helpers shared by several services.
//
// It provides a lightweight gRPC client wrapper with timeouts, the actor
// (hostname/username) attached to control requests for the audit log, and a
// process guard that refuses to start a second monitor daemon.
//
//nolint:revive,nolintlint // Package name "common" is intentional for shared helpers.
package common
