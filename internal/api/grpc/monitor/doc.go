// Package monitor implements the gRPC transport for the noise monitor.
//
// The service noisemonitor.v1.MonitorService is described by hand with
// protobuf well-known types: requests are google.protobuf.Empty and every
// response is a google.protobuf.Struct carrying the monitor status. The
// package exposes the service descriptor, a client stub and a server that
// calls into a provided business-service interface.
package monitor
