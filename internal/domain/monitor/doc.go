// Package monitor contains core domain types for noise detection.
//
// It defines State (the controller's live flags), Snapshot (a copy safe to hand
// to transports), Episode (one alert interval) and the alert Policy, along
// with the status texts shown to the user.
package monitor
