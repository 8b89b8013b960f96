package config

import "flag"

// Flags are the command-line overrides shared by every subcommand.
type Flags struct {
	Config    *string
	Debug     *bool
	Model     *string
	Clip      *string
	Frames    *int
	Instances *int
	Format    *string
}

// RegisterFlags adds the shared flags to fs.
func RegisterFlags(fs *flag.FlagSet) *Flags {
	return &Flags{
		Config:    fs.String("config", "", "Path to config file"),
		Debug:     fs.Bool("debug", false, "Enable debug logging"),
		Model:     fs.String("model", "", "Model file (glTF/GLB)"),
		Clip:      fs.String("clip", "", "Animation clip name (default: first clip)"),
		Frames:    fs.Int("frames", 0, "Number of frames to play"),
		Instances: fs.Int("instances", 0, "Number of concurrent animator instances"),
		Format:    fs.String("format", "", "Output format: text or yaml"),
	}
}

// ConfigPath returns the explicit config path if provided via -config.
func (f *Flags) ConfigPath() string {
	if f == nil {
		return ""
	}
	return *f.Config
}

// apply applies CLI flag overrides to the config.
func (f *Flags) apply(cfg *Config) {
	if f == nil {
		return
	}
	if *f.Debug {
		cfg.Logging.Level = "debug"
	}
	if *f.Model != "" {
		cfg.Import.Path = *f.Model
	}
	if *f.Clip != "" {
		cfg.Import.Clip = *f.Clip
	}
	if *f.Frames > 0 {
		cfg.Playback.Frames = *f.Frames
	}
	if *f.Instances > 0 {
		cfg.Playback.Instances = *f.Instances
	}
	if *f.Format != "" {
		cfg.Output.Format = *f.Format
	}
}
