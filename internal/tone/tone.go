package tone

import (
	"context"
	"errors"
	"fmt"
)

// Generator kinds accepted by New.
const (
	KindPCM  = "pcm"
	KindBeep = "beep"
	KindNone = "none"
)

// ErrUnknownKind is returned by New for unsupported generator kinds.
var ErrUnknownKind = errors.New("unknown tone generator")

// Tone is a sounding tone. Stop silences it; calling Stop again is a no-op.
type Tone interface {
	Stop() error
}

// Generator starts continuous tones.
type Generator interface {
	StartTone(ctx context.Context, frequency, gain float64) (Tone, error)
}

// Options configures the generator returned by New.
type Options struct {
	// Kind selects the generator implementation.
	Kind string
	// Command overrides the player executable for KindPCM.
	Command string
	// Args overrides the player arguments for KindPCM.
	Args []string
	// SampleRate is the synthesis rate for KindPCM.
	SampleRate int
}

// New returns the generator selected by opts.Kind.
//
//nolint:ireturn // Callers select a generator at runtime.
func New(opts Options) (Generator, error) {
	switch opts.Kind {
	case "", KindPCM:
		return NewPCMGenerator(opts.Command, opts.Args, opts.SampleRate), nil
	case KindBeep:
		return NewBeepGenerator(), nil
	case KindNone:
		return Silent{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, opts.Kind)
	}
}

// Silent is a Generator that produces no sound.
type Silent struct{}

// StartTone returns a handle that does nothing.
//
//nolint:ireturn // Satisfies Generator.
func (Silent) StartTone(context.Context, float64, float64) (Tone, error) {
	return silentTone{}, nil
}

type silentTone struct{}

func (silentTone) Stop() error { return nil }
