package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/Faultbox/skelanim/internal/assets"
	"github.com/Faultbox/skelanim/internal/config"
	"github.com/Faultbox/skelanim/internal/logger"
	"github.com/Faultbox/skelanim/internal/playback"
	"github.com/Faultbox/skelanim/pkg/math"
	"github.com/Faultbox/skelanim/pkg/skeleton"
)

// session is the state every command starts from.
type session struct {
	cfg   *config.Config
	entry *assets.Entry
	out   io.Writer
	close func() error
}

func open(name string, args []string, stdout io.Writer) (*session, error) {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	flags := config.RegisterFlags(fs)
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	cfg, err := config.Load(flags)
	if err != nil {
		return nil, err
	}
	if fs.NArg() > 0 {
		cfg.Import.Path = fs.Arg(0)
	}
	if cfg.Import.Path == "" {
		return nil, errors.New("no model file given")
	}

	if err := logger.Init(cfg.Logging.Level, cfg.Logging.LogFile); err != nil {
		return nil, fmt.Errorf("initializing logger: %w", err)
	}

	mgr := assets.NewManager(skeleton.Options{
		Clip:                  cfg.Import.Clip,
		DefaultTicksPerSecond: cfg.Import.DefaultTicksPerSecond,
		StrictWeights:         cfg.Import.StrictWeights,
	})
	entry, err := mgr.Load(cfg.Import.Path)
	if err != nil {
		logger.Sync()
		return nil, err
	}

	s := &session{cfg: cfg, entry: entry, out: stdout, close: func() error { return nil }}
	if cfg.Output.Path != "" {
		f, err := os.Create(cfg.Output.Path)
		if err != nil {
			logger.Sync()
			return nil, err
		}
		s.out = f
		s.close = f.Close
	}
	return s, nil
}

func (s *session) finish(err error) error {
	logger.Sync()
	if cerr := s.close(); err == nil {
		err = cerr
	}
	return err
}

func (s *session) yaml(v any) error {
	enc := yaml.NewEncoder(s.out)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return err
	}
	return enc.Close()
}

type clipReport struct {
	Name           string  `yaml:"name"`
	Duration       float32 `yaml:"duration"`
	TicksPerSecond float32 `yaml:"ticks_per_second"`
	Channels       int     `yaml:"channels"`
}

type infoReport struct {
	Model    string      `yaml:"model"`
	ID       string      `yaml:"id"`
	Nodes    int         `yaml:"nodes"`
	Bones    int         `yaml:"bones"`
	Meshes   int         `yaml:"meshes"`
	Vertices int         `yaml:"vertices"`
	Clip     *clipReport `yaml:"clip,omitempty"`
	Warnings []string    `yaml:"warnings,omitempty"`
}

func cmdInfo(args []string, stdout io.Writer) error {
	s, err := open("info", args, stdout)
	if err != nil {
		return err
	}
	return s.finish(s.info())
}

func (s *session) info() error {
	m := s.entry.Model
	r := infoReport{
		Model:  m.Name,
		ID:     m.ID,
		Nodes:  m.Hierarchy().Len(),
		Bones:  m.BoneCount(),
		Meshes: len(m.Meshes()),
	}
	for _, mesh := range m.Meshes() {
		r.Vertices += len(mesh.Influences)
	}
	if a := m.Animation(); a != nil {
		r.Clip = &clipReport{Name: a.Name(), Duration: a.Duration(), TicksPerSecond: a.TicksPerSecond(), Channels: a.ChannelCount()}
	}
	for _, d := range s.entry.Diagnostics {
		r.Warnings = append(r.Warnings, d.String())
	}

	if s.cfg.Output.Format == config.FormatYAML {
		return s.yaml(r)
	}

	fmt.Fprintf(s.out, "Model:    %s\n", r.Model)
	fmt.Fprintf(s.out, "ID:       %s\n", r.ID)
	fmt.Fprintf(s.out, "Nodes:    %d\n", r.Nodes)
	fmt.Fprintf(s.out, "Bones:    %d\n", r.Bones)
	fmt.Fprintf(s.out, "Meshes:   %d (%d vertices)\n", r.Meshes, r.Vertices)
	if r.Clip != nil {
		fmt.Fprintf(s.out, "Clip:     %s (%.2f ticks at %.2f ticks/s, %d channels)\n",
			r.Clip.Name, r.Clip.Duration, r.Clip.TicksPerSecond, r.Clip.Channels)
	} else {
		fmt.Fprintln(s.out, "Clip:     (none)")
	}
	fmt.Fprintf(s.out, "Warnings: %d\n", len(r.Warnings))
	for _, w := range r.Warnings {
		fmt.Fprintf(s.out, "  %s\n", w)
	}
	return nil
}

type nodeReport struct {
	ID       int         `yaml:"id"`
	Parent   int         `yaml:"parent"`
	Name     string      `yaml:"name"`
	Bone     int         `yaml:"bone"`
	Animated bool        `yaml:"animated"`
	Local    [16]float32 `yaml:"local,flow"`
}

func nodeReports(h *skeleton.Hierarchy) []nodeReport {
	nodes := h.Nodes()
	out := make([]nodeReport, len(nodes))
	for i, n := range nodes {
		out[i] = nodeReport{ID: n.ID, Parent: n.Parent, Name: n.Name, Bone: n.Bone, Animated: n.Animated(), Local: n.Local}
	}
	return out
}

func cmdBones(args []string, stdout io.Writer) error {
	s, err := open("bones", args, stdout)
	if err != nil {
		return err
	}
	return s.finish(s.bones())
}

func (s *session) bones() error {
	h := s.entry.Model.Hierarchy()
	reports := nodeReports(h)

	if s.cfg.Output.Format == config.FormatYAML {
		return s.yaml(reports)
	}

	depth := make([]int, len(reports))
	for _, n := range reports {
		if n.Parent != skeleton.NoParent {
			depth[n.ID] = depth[n.Parent] + 1
		}

		var tags []string
		if n.Bone != skeleton.NoBone {
			tags = append(tags, fmt.Sprintf("bone=%d", n.Bone))
		}
		if n.Animated {
			tags = append(tags, "animated")
		}
		fmt.Fprintf(s.out, "%4d  %s%s", n.ID, strings.Repeat("  ", depth[n.ID]), n.Name)
		if len(tags) > 0 {
			fmt.Fprintf(s.out, "  [%s]", strings.Join(tags, " "))
		}
		fmt.Fprintln(s.out)
	}
	return nil
}

func cmdPlay(args []string, stdout io.Writer) error {
	s, err := open("play", args, stdout)
	if err != nil {
		return err
	}
	return s.finish(s.play(context.Background()))
}

func (s *session) play(ctx context.Context) error {
	pb := s.cfg.Playback
	r, err := playback.NewRunner(s.entry.Model, playback.Options{
		Instances:      pb.Instances,
		FrameStep:      s.cfg.FrameStep(),
		TimeOffsetStep: pb.TimeOffsetStep,
	})
	if err != nil {
		return err
	}

	if s.cfg.Output.Format == config.FormatYAML {
		var frames []playback.Frame
		if err := r.Run(ctx, pb.Frames, func(f playback.Frame) error {
			frames = append(frames, f)
			return nil
		}); err != nil {
			return err
		}
		return s.yaml(frames)
	}

	return r.Run(ctx, pb.Frames, func(f playback.Frame) error {
		fmt.Fprintf(s.out, "frame %4d  %7.3fs\n", f.Index, f.Elapsed)
		for _, inst := range f.Instances {
			fmt.Fprintf(s.out, "  %s  t=%8.3f  sum=%12.5f\n", inst.ID, inst.Time, inst.Checksum)
		}
		return nil
	})
}

type dumpReport struct {
	Model   string        `yaml:"model"`
	Nodes   []nodeReport  `yaml:"nodes"`
	Palette [][16]float32 `yaml:"palette,omitempty"`
}

func cmdDump(args []string, stdout io.Writer) error {
	s, err := open("dump", args, stdout)
	if err != nil {
		return err
	}
	return s.finish(s.dump())
}

// dump always writes YAML. The palette is the pose at time 0.
func (s *session) dump() error {
	m := s.entry.Model
	r := dumpReport{Model: m.Name, Nodes: nodeReports(m.Hierarchy())}

	if m.Animation() != nil {
		a, err := skeleton.NewAnimator(m)
		if err != nil {
			return err
		}
		r.Palette = palette(a.BoneTransforms())
	}
	return s.yaml(r)
}

func palette(ms []math.Mat4) [][16]float32 {
	out := make([][16]float32, len(ms))
	for i, m := range ms {
		out[i] = m
	}
	return out
}
