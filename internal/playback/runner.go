// Package playback drives many animator instances over one shared model.
package playback

import (
	"context"
	"fmt"
	"runtime"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Faultbox/skelanim/internal/logger"
	"github.com/Faultbox/skelanim/pkg/math"
	"github.com/Faultbox/skelanim/pkg/skeleton"
)

// Options configures a Runner.
type Options struct {
	Instances      int
	Workers        int     // 0 = GOMAXPROCS
	FrameStep      float32 // seconds per frame
	TimeOffsetStep float32 // seconds between instance start times
}

// Instance is one playing copy of the model.
type Instance struct {
	ID       string
	Animator *skeleton.Animator
}

// InstanceFrame summarizes one instance after a frame.
type InstanceFrame struct {
	ID       string  `yaml:"id"`
	Time     float32 `yaml:"time"` // ticks
	Checksum float32 `yaml:"checksum"`
}

// Frame is the outcome of one Step.
type Frame struct {
	Index     int             `yaml:"index"`
	Elapsed   float32         `yaml:"elapsed"` // seconds since the first frame
	Instances []InstanceFrame `yaml:"instances"`
}

// Runner steps every instance once per frame on a pool of worker goroutines.
// Instances share the model read-only and write only their own buffers.
type Runner struct {
	model     *skeleton.Model
	instances []*Instance
	opts      Options
	frame     int
	log       *zap.Logger
}

// NewRunner binds opts.Instances animators to m. Instance i starts
// i*TimeOffsetStep seconds into the clip.
func NewRunner(m *skeleton.Model, opts Options) (*Runner, error) {
	if opts.Instances < 1 {
		return nil, fmt.Errorf("playback: need at least one instance, got %d", opts.Instances)
	}
	if opts.FrameStep < 0 {
		return nil, fmt.Errorf("playback: negative frame step %v", opts.FrameStep)
	}
	if opts.Workers <= 0 {
		opts.Workers = runtime.GOMAXPROCS(0)
	}
	if opts.Workers > opts.Instances {
		opts.Workers = opts.Instances
	}

	r := &Runner{
		model:     m,
		instances: make([]*Instance, opts.Instances),
		opts:      opts,
		log:       logger.Named("playback"),
	}
	for i := range r.instances {
		a, err := skeleton.NewAnimator(m)
		if err != nil {
			return nil, fmt.Errorf("playback: instance %d: %w", i, err)
		}
		if opts.TimeOffsetStep != 0 {
			a.Update(float32(i) * opts.TimeOffsetStep)
		}
		r.instances[i] = &Instance{ID: uuid.NewString(), Animator: a}
	}

	r.log.Debug("runner ready",
		zap.String("model", m.Name),
		zap.Int("instances", opts.Instances),
		zap.Int("workers", opts.Workers))
	return r, nil
}

// Instances returns the playing instances.
func (r *Runner) Instances() []*Instance { return r.instances }

// Step advances every instance by one frame.
func (r *Runner) Step() Frame {
	r.update(r.opts.FrameStep)
	r.frame++

	f := Frame{
		Index:     r.frame,
		Elapsed:   float32(r.frame) * r.opts.FrameStep,
		Instances: make([]InstanceFrame, len(r.instances)),
	}
	for i, inst := range r.instances {
		f.Instances[i] = InstanceFrame{
			ID:       inst.ID,
			Time:     inst.Animator.CurrentTime(),
			Checksum: Checksum(inst.Animator.BoneTransforms()),
		}
	}
	return f
}

func (r *Runner) update(dt float32) {
	jobs := make(chan int, len(r.instances))
	var wg sync.WaitGroup

	for w := 0; w < r.opts.Workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range jobs {
				r.instances[idx].Animator.Update(dt)
			}
		}()
	}

	for i := range r.instances {
		jobs <- i
	}
	close(jobs)

	wg.Wait()
}

// Run steps frames times, calling fn after each frame. It stops early when
// ctx is done or fn returns an error.
func (r *Runner) Run(ctx context.Context, frames int, fn func(Frame) error) error {
	for i := 0; i < frames; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		f := r.Step()
		if fn != nil {
			if err := fn(f); err != nil {
				return err
			}
		}
	}
	r.log.Debug("run finished", zap.Int("frames", frames), zap.Int("total", r.frame))
	return nil
}

// Checksum sums every element of a bone palette. Equal poses give equal sums.
func Checksum(palette []math.Mat4) float32 {
	var sum float32
	for _, m := range palette {
		for _, v := range m {
			sum += v
		}
	}
	return sum
}
