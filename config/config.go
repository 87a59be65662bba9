// Package config loads the rmxtoys YAML configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/rapidmidiex/rmxtoys/circle"
	"github.com/rapidmidiex/rmxtoys/export"
	"github.com/rapidmidiex/rmxtoys/schedule"
	"github.com/rapidmidiex/rmxtoys/theory"
)

const DefaultServer = "https://rmx.fly.dev"

// Config holds all rmxtoys configuration.
type Config struct {
	// RMX jam server, used by jams and share.
	Server string `yaml:"server"`
	// Name signs jam chat. Defaults to $USER.
	Name string `yaml:"name"`

	Audio    AudioConfig    `yaml:"audio"`
	Playback PlaybackConfig `yaml:"playback"`
	Export   ExportConfig   `yaml:"export"`
	Logging  LoggingConfig  `yaml:"logging"`
}

type AudioConfig struct {
	// SoundFont path. Empty plays the built in tone synth.
	SoundFont  string `yaml:"soundfont"`
	SampleRate int    `yaml:"sample_rate"`
	// Speaker buffer, e.g. "100ms".
	Buffer string `yaml:"buffer"`
}

type PlaybackConfig struct {
	FPS    int     `yaml:"fps"`
	Key    string  `yaml:"key"`
	BPM    float64 `yaml:"bpm"`
	Layout string  `yaml:"layout"` // chromatic, fifths
}

type ExportConfig struct {
	Dir     string   `yaml:"dir"`
	Formats []string `yaml:"formats"`
	// ConvertURL posts rendered WAV files for conversion when set.
	ConvertURL string `yaml:"convert_url"`
	ConvertExt string `yaml:"convert_ext"`
	Retries    int    `yaml:"retries"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, console
	// File receives the logs while the TUI owns the terminal.
	File string `yaml:"file"`
}

func DefaultConfig() *Config {
	return &Config{
		Server: DefaultServer,
		Audio: AudioConfig{
			SampleRate: 44100,
			Buffer:     "100ms",
		},
		Playback: PlaybackConfig{
			FPS:    30,
			Key:    "C",
			BPM:    120,
			Layout: "chromatic",
		},
		Export: ExportConfig{
			Dir:        ".",
			Formats:    []string{"wav", "mid", "vtt", "frames.json"},
			ConvertExt: "mp4",
			Retries:    1,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			File:   filepath.Join(os.TempDir(), "rmxtoys.log"),
		},
	}
}

// DefaultPath is ~/.config/rmxtoys/config.yaml, or the working directory when
// there is no user config directory.
func DefaultPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "rmxtoys.yaml"
	}
	return filepath.Join(dir, "rmxtoys", "config.yaml")
}

// Load loads configuration from a YAML file. A missing file yields defaults.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
	case err != nil:
		return nil, fmt.Errorf("failed to read config: %w", err)
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	cfg.applyEnvOverrides()
	return cfg, nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

func (c *Config) applyEnvOverrides() {
	if path := os.Getenv("RMXTOYS_SOUNDFONT"); path != "" {
		c.Audio.SoundFont = path
	}
	if url := os.Getenv("RMXTOYS_SERVER"); url != "" {
		c.Server = url
	}
	if url := os.Getenv("RMXTOYS_CONVERT_URL"); url != "" {
		c.Export.ConvertURL = url
	}
}

// DisplayName is the name shown to other jam members.
func (c *Config) DisplayName() string {
	if c.Name != "" {
		return c.Name
	}
	if u := os.Getenv("USER"); u != "" {
		return u
	}
	return "guest"
}

// BufferDuration returns the speaker buffer, 100ms when unset or invalid.
func (c *Config) BufferDuration() time.Duration {
	d, err := time.ParseDuration(c.Audio.Buffer)
	if err != nil || d <= 0 {
		return 100 * time.Millisecond
	}
	return d
}

// ScheduleOptions turns the playback section into schedule options.
func (c *Config) ScheduleOptions() (schedule.Options, error) {
	opts := schedule.DefaultOptions()
	key, err := theory.ParseKey(c.Playback.Key)
	if err != nil {
		return opts, err
	}
	opts.Key = key
	if c.Playback.BPM != 0 {
		opts.BPM = c.Playback.BPM
	}
	layout, ok := circle.ParseLayout(c.Playback.Layout)
	if !ok {
		return opts, fmt.Errorf("unknown layout %q (valid: chromatic, fifths)", c.Playback.Layout)
	}
	opts.Layout = layout
	return opts, opts.Validate()
}

func (c *Config) ExportFormats() ([]export.Format, error) {
	formats := make([]export.Format, 0, len(c.Export.Formats))
	for _, s := range c.Export.Formats {
		f, err := export.ParseFormat(strings.ToLower(s))
		if err != nil {
			return nil, err
		}
		formats = append(formats, f)
	}
	return formats, nil
}

// Converter returns nil when no conversion endpoint is configured.
func (c *Config) Converter() *export.Converter {
	if c.Export.ConvertURL == "" {
		return nil
	}
	conv := export.NewConverter(c.Export.ConvertURL)
	conv.Retries = c.Export.Retries
	return conv
}

var validLevels = []string{"debug", "info", "warn", "error"}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if !strings.HasPrefix(c.Server, "http://") && !strings.HasPrefix(c.Server, "https://") {
		return fmt.Errorf("invalid server %q: must be an http(s) URL", c.Server)
	}
	if c.Audio.SampleRate < 8000 || c.Audio.SampleRate > 192000 {
		return fmt.Errorf("invalid sample rate: %d", c.Audio.SampleRate)
	}
	if c.Playback.FPS < 1 || c.Playback.FPS > 120 {
		return fmt.Errorf("invalid fps: %d", c.Playback.FPS)
	}
	if _, err := c.ScheduleOptions(); err != nil {
		return fmt.Errorf("invalid playback: %w", err)
	}
	if _, err := c.ExportFormats(); err != nil {
		return fmt.Errorf("invalid export: %w", err)
	}
	if c.Export.Retries < 0 {
		return fmt.Errorf("invalid retries: %d", c.Export.Retries)
	}

	validLevel := false
	for _, l := range validLevels {
		if c.Logging.Level == l {
			validLevel = true
			break
		}
	}
	if !validLevel {
		return fmt.Errorf("invalid log level: %s (valid: %v)", c.Logging.Level, validLevels)
	}
	return nil
}
