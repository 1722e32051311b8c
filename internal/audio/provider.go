package audio

import (
	"context"
	"fmt"
)

// Backend names accepted by NewProvider.
const (
	BackendExec      = "exec"
	BackendPortAudio = "portaudio"
)

// Provider opens microphone streams.
type Provider interface {
	Open(ctx context.Context) (Stream, error)
}

// NewProvider returns the provider for the named backend.
//
//nolint:ireturn // Callers select a backend at runtime.
func NewProvider(backend string, opts CaptureOptions) (Provider, error) {
	switch backend {
	case "", BackendExec:
		return NewExecProvider(opts), nil
	case BackendPortAudio:
		p, err := newPortAudioProvider(opts)
		if err != nil {
			return nil, err
		}

		return p, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, backend)
	}
}
