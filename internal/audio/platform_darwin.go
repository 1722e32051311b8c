//go:build darwin

package audio

import "strconv"

func platformConfig() CaptureConfig {
	return CaptureConfig{
		Command:       "ffmpeg",
		DefaultDevice: "0",
		BuildArgs: func(device string, sampleRate int) []string {
			return []string{
				"-hide_banner", "-loglevel", "error",
				"-f", "avfoundation",
				"-i", ":" + device,
				"-ac", "1",
				"-ar", strconv.Itoa(sampleRate),
				"-f", "s16le",
				"-",
			}
		},
	}
}
