package audio

// CaptureConfig defines platform-specific capture settings.
type CaptureConfig struct {
	// Command is the executable name.
	Command string
	// DefaultDevice is used when no device is configured.
	DefaultDevice string
	// BuildArgs returns the arguments producing S16LE mono PCM on stdout.
	BuildArgs func(device string, sampleRate int) []string
}
