//go:build linux

package audio

import "strconv"

func platformConfig() CaptureConfig {
	return CaptureConfig{
		Command:       "arecord",
		DefaultDevice: "default",
		BuildArgs: func(device string, sampleRate int) []string {
			return []string{
				"-D", device,
				"-f", "S16_LE",
				"-r", strconv.Itoa(sampleRate),
				"-c", "1",
				"-t", "raw",
				"-q",
				"-",
			}
		},
	}
}
