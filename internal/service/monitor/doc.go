// Package monitor implements the noise detection controller.
//
// The Controller owns the monitor state and its resources: the microphone
// stream, the pending frame callback and the alert tone. It is driven by a
// frame scheduler and is not safe for concurrent use; every method must run on
// the scheduler's goroutine (see frame.Loop.Do).
package monitor
