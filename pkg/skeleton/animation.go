package skeleton

import (
	"go.uber.org/multierr"

	"github.com/Faultbox/skelanim/pkg/scene"
)

// DefaultTicksPerSecond is used for clips that don't state a tick rate.
const DefaultTicksPerSecond = 25

// AnimationOptions tunes clip assembly.
type AnimationOptions struct {
	// DefaultTicksPerSecond replaces a zero tick rate. Zero means DefaultTicksPerSecond.
	DefaultTicksPerSecond float32
}

// Animation is one clip reconciled against a hierarchy. Channels are indexed
// by bone id; a nil slot is a dead bone that keeps its static transform.
type Animation struct {
	name     string
	duration float32 // ticks
	speed    float32 // ticks per second
	channels []*Channel
	bound    int
}

// NewAnimation assembles clip against h. Channels whose target is not a node
// of h, or is a node never promoted to a bone, are dropped and reported in the
// returned Diagnostics. Every retained channel marks its node as animated.
//
// h must already have its meshes bound and must not carry another animation.
func NewAnimation(clip *scene.Clip, h *Hierarchy, opts AnimationOptions) (*Animation, Diagnostics, error) {
	const op = "new animation"

	if clip == nil {
		return nil, nil, newError(ErrImport, op, "scene has no animation clip")
	}
	if h.clipBound {
		return nil, nil, newError(ErrPrecondition, op, "hierarchy already bound to an animation")
	}
	if clip.Duration <= 0 {
		return nil, nil, newError(ErrConsistency, op, "clip %q has non-positive duration %v", clip.Name, clip.Duration)
	}

	// a failed assembly leaves h unusable for another attempt
	h.clipBound = true

	var diags Diagnostics
	speed := clip.TicksPerSecond
	if speed <= 0 {
		speed = opts.DefaultTicksPerSecond
		if speed <= 0 {
			speed = DefaultTicksPerSecond
		}
		diags.add(DiagDefaultTickRate, "", "", "clip %q has no tick rate, using %v ticks/s", clip.Name, speed)
	}

	a := &Animation{
		name:     clip.Name,
		duration: clip.Duration,
		speed:    speed,
		channels: make([]*Channel, h.BoneCount()),
	}

	for _, src := range clip.Channels {
		id, ok := h.Find(src.Node)
		if !ok {
			diags.add(DiagChannelNoNode, src.Node, "", "channel %q dropped: no such node", src.Node)
			continue
		}
		node := &h.nodes[id]
		if !node.IsBone() {
			diags.add(DiagChannelNotBone, src.Node, "", "channel %q dropped: node is not a bone", src.Node)
			continue
		}
		if a.channels[node.Bone] != nil {
			return nil, diags, newError(ErrConsistency, op, "bone already has a channel").node(src.Node).bone(node.Bone)
		}

		ch, err := NewChannel(src, node.Bone, clip.Duration)
		if err != nil {
			return nil, diags, err
		}
		a.channels[node.Bone] = ch
		node.animated = true
		a.bound++
	}

	if err := a.validate(h); err != nil {
		return nil, diags, err
	}
	return a, diags, nil
}

// validate checks retained channels == animated nodes == distinct bones referenced.
func (a *Animation) validate(h *Hierarchy) error {
	const op = "validate animation"

	var errs error
	filled := 0
	bones := make(map[int]struct{}, a.bound)
	for bone, ch := range a.channels {
		if ch == nil {
			continue
		}
		filled++
		bones[ch.bone] = struct{}{}
		if ch.bone != bone {
			errs = multierr.Append(errs, newError(ErrConsistency, op, "channel stored in slot %d", bone).node(ch.name).bone(ch.bone))
		}
		if node := &h.nodes[h.boneNodes[bone]]; !node.animated {
			errs = multierr.Append(errs, newError(ErrConsistency, op, "bone has a channel but its node is not animated").node(node.Name).bone(bone))
		}
	}

	if animated := h.AnimatedCount(); filled != a.bound || animated != a.bound || len(bones) != a.bound {
		errs = multierr.Append(errs, newError(ErrConsistency, op,
			"channel count mismatch: %d retained, %d filled, %d animated nodes, %d distinct bones",
			a.bound, filled, animated, len(bones)))
	}
	if a.bound > h.BoneCount() {
		errs = multierr.Append(errs, newError(ErrConsistency, op, "%d channels for %d bones", a.bound, h.BoneCount()))
	}
	return errs
}

// Name returns the clip name.
func (a *Animation) Name() string { return a.name }

// Duration returns the clip length in ticks.
func (a *Animation) Duration() float32 { return a.duration }

// TicksPerSecond returns the playback speed.
func (a *Animation) TicksPerSecond() float32 { return a.speed }

// Channel returns the channel driving bone, or nil for a dead bone.
func (a *Animation) Channel(bone int) *Channel { return a.channels[bone] }

// ChannelCount returns the number of retained channels.
func (a *Animation) ChannelCount() int { return a.bound }

// BoneCount returns the number of channel slots, one per bone.
func (a *Animation) BoneCount() int { return len(a.channels) }
