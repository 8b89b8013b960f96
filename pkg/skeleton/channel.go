package skeleton

import (
	"sort"

	"github.com/Faultbox/skelanim/pkg/math"
	"github.com/Faultbox/skelanim/pkg/scene"
)

// Stream identifies one of a channel's keyframe streams.
type Stream int

// Keyframe streams.
const (
	StreamPosition Stream = iota
	StreamRotation
	StreamScale
)

func (s Stream) String() string {
	switch s {
	case StreamPosition:
		return "position"
	case StreamRotation:
		return "rotation"
	case StreamScale:
		return "scale"
	default:
		return "unknown"
	}
}

type keyframe[T any] struct {
	value T
	time  float32
}

// Channel is one bone's keyframe track. Every stream ends with a synthetic
// frame that repeats frame 0 at the clip duration, so playback loops without
// a seam.
type Channel struct {
	name      string
	bone      int
	positions []keyframe[math.Vec3]
	rotations []keyframe[math.Quat]
	scales    []keyframe[math.Vec3]
}

// NewChannel builds the track for bone from the imported channel.
// duration is the clip length in ticks.
func NewChannel(src scene.Channel, bone int, duration float32) (*Channel, error) {
	c := &Channel{name: src.Node, bone: bone}

	var err error
	if c.positions, err = closeLoop(src, bone, StreamPosition, vectorFrames(src.Positions), duration); err != nil {
		return nil, err
	}
	if c.rotations, err = closeLoop(src, bone, StreamRotation, rotationFrames(src.Rotations), duration); err != nil {
		return nil, err
	}
	if c.scales, err = closeLoop(src, bone, StreamScale, vectorFrames(src.Scales), duration); err != nil {
		return nil, err
	}
	return c, nil
}

func vectorFrames(keys []scene.VectorKey) []keyframe[math.Vec3] {
	frames := make([]keyframe[math.Vec3], len(keys), len(keys)+1)
	for i, k := range keys {
		frames[i] = keyframe[math.Vec3]{value: k.Value, time: k.Time}
	}
	return frames
}

func rotationFrames(keys []scene.QuatKey) []keyframe[math.Quat] {
	frames := make([]keyframe[math.Quat], len(keys), len(keys)+1)
	for i, k := range keys {
		frames[i] = keyframe[math.Quat]{value: k.Value.Normalize(), time: k.Time}
	}
	return frames
}

// closeLoop validates a stream and appends the loop-closing frame.
func closeLoop[T any](src scene.Channel, bone int, s Stream, frames []keyframe[T], duration float32) ([]keyframe[T], error) {
	const op = "new channel"

	if len(frames) == 0 {
		return nil, newError(ErrConsistency, op, "no authored frames").node(src.Node).bone(bone).stream(s)
	}
	for i := 1; i < len(frames); i++ {
		if frames[i].time < frames[i-1].time {
			return nil, newError(ErrConsistency, op, "frame %d at %v precedes frame %d at %v",
				i, frames[i].time, i-1, frames[i-1].time).node(src.Node).bone(bone).stream(s)
		}
	}

	end := duration
	if last := frames[len(frames)-1].time; last > end {
		end = last
	}
	return append(frames, keyframe[T]{value: frames[0].value, time: end}), nil
}

// Name returns the name of the node the channel drives.
func (c *Channel) Name() string { return c.name }

// Bone returns the bone id the channel drives.
func (c *Channel) Bone() int { return c.bone }

// FrameCount returns the number of frames in a stream, including the synthetic last frame.
func (c *Channel) FrameCount(s Stream) int {
	switch s {
	case StreamPosition:
		return len(c.positions)
	case StreamRotation:
		return len(c.rotations)
	case StreamScale:
		return len(c.scales)
	default:
		return 0
	}
}

// FrameTime returns the timestamp of frame i in a stream.
func (c *Channel) FrameTime(s Stream, i int) float32 {
	switch s {
	case StreamPosition:
		return c.positions[i].time
	case StreamRotation:
		return c.rotations[i].time
	default:
		return c.scales[i].time
	}
}

// Position returns the interpolated translation at time t (ticks).
func (c *Channel) Position(t float32) math.Vec3 {
	return sample(c.positions, t, math.LerpVec3)
}

// Rotation returns the interpolated rotation at time t (ticks).
func (c *Channel) Rotation(t float32) math.Quat {
	return sample(c.rotations, t, math.Slerp)
}

// ScaleAt returns the interpolated scale at time t (ticks).
func (c *Channel) ScaleAt(t float32) math.Vec3 {
	return sample(c.scales, t, math.LerpVec3)
}

// Interpolate returns the node-to-parent transform at time t (ticks),
// composed as Translate * Rotate * Scale.
func (c *Channel) Interpolate(t float32) math.Mat4 {
	return math.TRS(c.Position(t), c.Rotation(t), c.ScaleAt(t))
}

func sample[T any](frames []keyframe[T], t float32, blend func(a, b T, w float32) T) T {
	i, j := bracket(frames, t)
	if i == j {
		return frames[i].value
	}
	w := math.BlendWeight(frames[i].time, frames[j].time, t)
	return blend(frames[i].value, frames[j].value, w)
}

// bracket returns (i, i+1) with time[i] <= t < time[i+1]. Times outside the
// stream map to the first or last pair; the blend weight clamps them.
func bracket[T any](frames []keyframe[T], t float32) (int, int) {
	n := len(frames)
	if n == 1 {
		return 0, 0
	}

	k := sort.Search(n, func(k int) bool { return frames[k].time > t })
	switch k {
	case 0:
		return 0, 1
	case n:
		return n - 2, n - 1
	default:
		return k - 1, k
	}
}
