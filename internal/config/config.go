package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/oshokin/noise-monitor/internal/audio"
	domain "github.com/oshokin/noise-monitor/internal/domain/monitor"
	"github.com/oshokin/noise-monitor/internal/tone"
)

// Config holds the settings shared by the noise-monitor binaries.
type Config struct {
	// LogLevel is the minimum level of log messages.
	LogLevel string `yaml:"log_level" validate:"omitempty,oneof=debug info warn error"`
	// Monitor configures detection.
	Monitor MonitorConfig `yaml:"monitor"`
	// Analyzer configures the frequency analysis.
	Analyzer AnalyzerConfig `yaml:"analyzer"`
	// Capture configures microphone acquisition.
	Capture CaptureConfig `yaml:"capture"`
	// Tone configures the alert tone.
	Tone ToneConfig `yaml:"tone"`
	// Control configures the gRPC control API.
	Control ControlConfig `yaml:"control"`
	// HTTP configures the metrics and status feed listener.
	HTTP HTTPConfig `yaml:"http"`
	// Journal configures the alert episode journal.
	Journal JournalConfig `yaml:"journal"`
}

// MonitorConfig configures the detection loop.
type MonitorConfig struct {
	// Threshold is the mean magnitude (0..255) above which noise is reported.
	Threshold float64 `yaml:"threshold" validate:"gte=0,lte=255"`
	// Policy decides whether alerts are sticky or clear automatically.
	Policy string `yaml:"policy" validate:"oneof=sticky auto-clear"`
	// FrameRate is the number of frames sampled per second.
	FrameRate int `yaml:"frame_rate" validate:"gte=1,lte=240"`
}

// AnalyzerConfig configures the frequency analyzer.
type AnalyzerConfig struct {
	FFTSize     int     `yaml:"fft_size" validate:"gte=32,lte=32768"`
	Smoothing   float64 `yaml:"smoothing" validate:"gte=0,lt=1"`
	MinDecibels float64 `yaml:"min_decibels"`
	MaxDecibels float64 `yaml:"max_decibels" validate:"gtfield=MinDecibels"`
}

// CaptureConfig configures microphone acquisition.
type CaptureConfig struct {
	// Backend is "exec" (capture child process) or "portaudio".
	Backend string `yaml:"backend" validate:"oneof=exec portaudio"`
	// Command overrides the capture executable.
	Command string `yaml:"command"`
	// Args replaces the platform arguments of Command when set.
	Args []string `yaml:"args,omitempty"`
	// Device is the platform-specific input device.
	Device string `yaml:"device"`
	// SampleRate is the capture rate in hertz.
	SampleRate int `yaml:"sample_rate" validate:"gte=8000,lte=192000"`
	// StartupTimeout bounds the wait for the first samples.
	StartupTimeout time.Duration `yaml:"startup_timeout" validate:"gt=0"`
}

// ToneConfig configures the alert tone.
type ToneConfig struct {
	// Kind is "pcm", "beep" or "none".
	Kind string `yaml:"kind" validate:"oneof=pcm beep none"`
	// Frequency is the tone pitch in hertz.
	Frequency float64 `yaml:"frequency" validate:"gt=0,lte=20000"`
	// Gain is the tone amplitude relative to full scale.
	Gain float64 `yaml:"gain" validate:"gte=0,lte=1"`
	// Command overrides the player executable for the pcm kind.
	Command string `yaml:"command"`
}

// ControlConfig configures the gRPC control API.
type ControlConfig struct {
	// ListenAddress is where the daemon serves and where clients connect.
	ListenAddress string `yaml:"listen_address" validate:"required,hostname_port"`
	// Timeout is the duration for RPC calls.
	Timeout time.Duration `yaml:"timeout" validate:"gt=0"`
}

// HTTPConfig configures the metrics and status feed listener.
type HTTPConfig struct {
	// ListenAddress is the HTTP address; empty disables the listener.
	ListenAddress string `yaml:"listen_address" validate:"omitempty,hostname_port"`
}

// JournalConfig configures the episode journal.
type JournalConfig struct {
	// Path is the JSON lines file; empty disables the journal.
	Path string `yaml:"path"`
}

const (
	// DefaultConfigFilename is the default filename for settings.
	DefaultConfigFilename = "noise-monitor.yaml"

	// DefaultEnvFilename is the dotenv file consulted for overrides.
	DefaultEnvFilename = ".env"

	// DefaultJournalFilename is the default filename for the episode journal.
	DefaultJournalFilename = "noise-monitor-episodes.jsonl"

	// DefaultControlAddress is the default gRPC address.
	DefaultControlAddress = "127.0.0.1:50071"

	// DefaultTimeout is the default duration for RPC calls.
	DefaultTimeout = 5 * time.Second

	// DefaultFilePermissions is the default file permission for config and journal files.
	DefaultFilePermissions = 0o600

	// envPrefix prefixes every environment override.
	envPrefix = "NOISE_MONITOR_"
)

var (
	// errConfigIsNotSet is returned when a nil configuration is provided.
	errConfigIsNotSet = errors.New("configuration is not set")
	// errInvalidOverride is returned when an environment override cannot be parsed.
	errInvalidOverride = errors.New("invalid environment override")

	//nolint:gochecknoglobals // Validator caches struct metadata and is safe for concurrent use.
	validate = validator.New(validator.WithRequiredStructEnabled())
)

// Default returns the configuration used when no file exists.
func Default() *Config {
	analyzer := audio.DefaultAnalyzerOptions()

	return &Config{
		LogLevel: "info",
		Monitor: MonitorConfig{
			Threshold: domain.DefaultThreshold,
			Policy:    string(domain.PolicySticky),
			FrameRate: 60,
		},
		Analyzer: AnalyzerConfig{
			FFTSize:     analyzer.FFTSize,
			Smoothing:   analyzer.Smoothing,
			MinDecibels: analyzer.MinDecibels,
			MaxDecibels: analyzer.MaxDecibels,
		},
		Capture: CaptureConfig{
			Backend:        audio.BackendExec,
			SampleRate:     audio.DefaultSampleRate,
			StartupTimeout: audio.DefaultStartupTimeout,
		},
		Tone: ToneConfig{
			Kind:      tone.KindPCM,
			Frequency: domain.DefaultToneFrequency,
			Gain:      domain.DefaultToneGain,
		},
		Control: ControlConfig{
			ListenAddress: DefaultControlAddress,
			Timeout:       DefaultTimeout,
		},
		Journal: JournalConfig{
			Path: DefaultJournalFilename,
		},
	}
}

// Load reads configuration from path on top of the defaults, applies
// environment overrides and validates the result. A missing file at the
// default path yields the defaults; a missing file at an explicit path is an error.
func Load(path string) (*Config, error) {
	explicit := path != "" && path != DefaultConfigFilename
	if path == "" {
		path = DefaultConfigFilename
	}

	cfg := Default()

	contents, err := os.ReadFile(filepath.Clean(path))
	switch {
	case err == nil:
		if err = yaml.Unmarshal(contents, cfg); err != nil {
			return nil, fmt.Errorf("unmarshal settings: %w", err)
		}
	case errors.Is(err, os.ErrNotExist) && !explicit:
		// Defaults only.
	default:
		return nil, fmt.Errorf("read settings: %w", err)
	}

	env, err := environment(DefaultEnvFilename)
	if err != nil {
		return nil, err
	}

	if err = ApplyEnv(cfg, env); err != nil {
		return nil, err
	}

	if err = Validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Save writes cfg to path.
func Save(path string, cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	if path == "" {
		path = DefaultConfigFilename
	}

	if err := Validate(cfg); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}

	// Restrict permissions.
	if err := os.WriteFile(filepath.Clean(path), data, DefaultFilePermissions); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}

	return nil
}

// Validate checks field ranges and cross-field rules.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	if err := validate.Struct(cfg); err != nil {
		return fmt.Errorf("invalid settings: %w", err)
	}

	if err := cfg.AnalyzerOptions().Validate(); err != nil {
		return fmt.Errorf("invalid analyzer settings: %w", err)
	}

	if _, _, err := net.SplitHostPort(cfg.Control.ListenAddress); err != nil {
		return fmt.Errorf("invalid control address: %w", err)
	}

	return nil
}

// AnalyzerOptions converts the analyzer section.
func (c *Config) AnalyzerOptions() audio.AnalyzerOptions {
	return audio.AnalyzerOptions{
		FFTSize:     c.Analyzer.FFTSize,
		Smoothing:   c.Analyzer.Smoothing,
		MinDecibels: c.Analyzer.MinDecibels,
		MaxDecibels: c.Analyzer.MaxDecibels,
	}
}

// CaptureOptions converts the capture and analyzer sections.
func (c *Config) CaptureOptions() audio.CaptureOptions {
	return audio.CaptureOptions{
		Command:        c.Capture.Command,
		Args:           c.Capture.Args,
		Device:         c.Capture.Device,
		SampleRate:     c.Capture.SampleRate,
		StartupTimeout: c.Capture.StartupTimeout,
		Analyzer:       c.AnalyzerOptions(),
	}
}

// ToneOptions converts the tone section.
func (c *Config) ToneOptions() tone.Options {
	return tone.Options{
		Kind:    c.Tone.Kind,
		Command: c.Tone.Command,
	}
}

// Policy returns the parsed alert policy.
func (c *Config) Policy() domain.Policy {
	// Validate has already restricted the value.
	p, _ := domain.ParsePolicy(c.Monitor.Policy)

	return p
}

// environment merges the dotenv file with the process environment, which wins.
func environment(envFile string) (map[string]string, error) {
	env, err := godotenv.Read(envFile)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("read %s: %w", envFile, err)
		}

		env = make(map[string]string)
	}

	for _, kv := range os.Environ() {
		key, value, ok := strings.Cut(kv, "=")
		if ok && strings.HasPrefix(key, envPrefix) {
			env[key] = value
		}
	}

	return env, nil
}

// ApplyEnv applies NOISE_MONITOR_* overrides from env to cfg.
func ApplyEnv(cfg *Config, env map[string]string) error {
	for key, value := range env {
		name, ok := strings.CutPrefix(key, envPrefix)
		if !ok {
			continue
		}

		if err := applyOverride(cfg, name, value); err != nil {
			return fmt.Errorf("%w %s: %w", errInvalidOverride, key, err)
		}
	}

	return nil
}

func applyOverride(cfg *Config, name, value string) error {
	var err error

	switch name {
	case "LOG_LEVEL":
		cfg.LogLevel = value
	case "THRESHOLD":
		cfg.Monitor.Threshold, err = strconv.ParseFloat(value, 64)
	case "POLICY":
		cfg.Monitor.Policy = value
	case "FRAME_RATE":
		cfg.Monitor.FrameRate, err = strconv.Atoi(value)
	case "CAPTURE_BACKEND":
		cfg.Capture.Backend = value
	case "DEVICE":
		cfg.Capture.Device = value
	case "TONE":
		cfg.Tone.Kind = value
	case "CONTROL_ADDRESS":
		cfg.Control.ListenAddress = value
	case "HTTP_ADDRESS":
		cfg.HTTP.ListenAddress = value
	case "JOURNAL":
		cfg.Journal.Path = value
	}

	return err
}
