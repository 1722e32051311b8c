package audio

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrPermissionDenied is returned when the OS refuses access to the microphone.
	ErrPermissionDenied = errors.New("microphone permission denied")
	// ErrDeviceUnavailable is returned when no usable input device exists.
	ErrDeviceUnavailable = errors.New("microphone unavailable")
	// ErrUnknownBackend is returned for an unsupported capture backend name.
	ErrUnknownBackend = errors.New("unknown capture backend")
)

// permissionMarkers are lowercase fragments capture tools print when access is refused.
//
//nolint:gochecknoglobals // Read-only lookup table.
var permissionMarkers = []string{
	"permission denied",
	"access denied",
	"not permitted",
	"not authorized",
}

// classify maps capture tool diagnostics to one of the acquisition errors.
func classify(stderr string) error {
	msg := strings.TrimSpace(stderr)
	lower := strings.ToLower(msg)

	for _, marker := range permissionMarkers {
		if strings.Contains(lower, marker) {
			return fmt.Errorf("%w: %s", ErrPermissionDenied, msg)
		}
	}

	if msg == "" {
		return ErrDeviceUnavailable
	}

	return fmt.Errorf("%w: %s", ErrDeviceUnavailable, msg)
}
