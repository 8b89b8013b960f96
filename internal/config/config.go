// Package config handles skinplay configuration loading and management.
package config

import "fmt"

// Output formats.
const (
	FormatText = "text"
	FormatYAML = "yaml"
)

// Config holds all skinplay settings.
type Config struct {
	Logging  LoggingConfig  `yaml:"logging"`
	Import   ImportConfig   `yaml:"import"`
	Playback PlaybackConfig `yaml:"playback"`
	Output   OutputConfig   `yaml:"output"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level   string `yaml:"level"`
	LogFile string `yaml:"log_file"`
}

// ImportConfig controls how model files are read and assembled.
type ImportConfig struct {
	Path                  string  `yaml:"path"`                     // model file
	Clip                  string  `yaml:"clip"`                     // empty = first clip
	DefaultTicksPerSecond float32 `yaml:"default_ticks_per_second"` // for clips that report 0
	StrictWeights         bool    `yaml:"strict_weights"`
}

// PlaybackConfig controls the animator run.
type PlaybackConfig struct {
	Instances      int     `yaml:"instances"`
	Frames         int     `yaml:"frames"`
	FrameRate      float32 `yaml:"frame_rate"`
	TimeOffsetStep float32 `yaml:"time_offset_step"` // seconds between instance start times
}

// OutputConfig controls where command results go.
type OutputConfig struct {
	Format string `yaml:"format"`
	Path   string `yaml:"path"` // empty = stdout
}

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Logging: LoggingConfig{
			Level: "info",
		},
		Import: ImportConfig{
			DefaultTicksPerSecond: 25,
		},
		Playback: PlaybackConfig{
			Instances: 1,
			Frames:    60,
			FrameRate: 60,
		},
		Output: OutputConfig{
			Format: FormatText,
		},
	}
}

// Validate rejects settings the tool cannot run with.
func (c *Config) Validate() error {
	switch {
	case c.Playback.Instances < 1:
		return fmt.Errorf("playback.instances must be at least 1, got %d", c.Playback.Instances)
	case c.Playback.Frames < 0:
		return fmt.Errorf("playback.frames must not be negative, got %d", c.Playback.Frames)
	case c.Playback.FrameRate <= 0:
		return fmt.Errorf("playback.frame_rate must be positive, got %v", c.Playback.FrameRate)
	case c.Import.DefaultTicksPerSecond < 0:
		return fmt.Errorf("import.default_ticks_per_second must not be negative, got %v", c.Import.DefaultTicksPerSecond)
	case c.Output.Format != FormatText && c.Output.Format != FormatYAML:
		return fmt.Errorf("output.format must be %q or %q, got %q", FormatText, FormatYAML, c.Output.Format)
	}
	return nil
}

// FrameStep returns the seconds between two frames.
func (c *Config) FrameStep() float32 {
	return 1 / c.Playback.FrameRate
}
