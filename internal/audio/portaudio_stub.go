//go:build !portaudio

package audio

import (
	"context"
	"errors"
)

// errPortAudioDisabled is returned when the binary was built without the portaudio tag.
var errPortAudioDisabled = errors.New("portaudio backend not compiled in, rebuild with -tags portaudio")

type portAudioProvider struct{}

func newPortAudioProvider(CaptureOptions) (*portAudioProvider, error) {
	return nil, errPortAudioDisabled
}

func (*portAudioProvider) Open(context.Context) (Stream, error) {
	return nil, errPortAudioDisabled
}
