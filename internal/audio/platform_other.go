//go:build !linux && !darwin

package audio

import "strconv"

// DirectShow has no safe default device, so one must be configured.
func platformConfig() CaptureConfig {
	return CaptureConfig{
		Command: "ffmpeg",
		BuildArgs: func(device string, sampleRate int) []string {
			return []string{
				"-hide_banner", "-loglevel", "error",
				"-f", "dshow",
				"-i", "audio=" + device,
				"-ac", "1",
				"-ar", strconv.Itoa(sampleRate),
				"-f", "s16le",
				"-",
			}
		},
	}
}
