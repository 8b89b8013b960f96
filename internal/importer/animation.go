package importer

import (
	"fmt"

	"github.com/qmuntal/gltf"
	"go.uber.org/zap"

	"github.com/Faultbox/skelanim/pkg/math"
	"github.com/Faultbox/skelanim/pkg/scene"
)

// glTF times are seconds.
const ticksPerSecond = 1

// poseDuration is the length given to a clip whose keys all sit at t=0.
const poseDuration = 1

func (c *converter) clips() ([]scene.Clip, error) {
	clips := make([]scene.Clip, 0, len(c.doc.Animations))
	for i, anim := range c.doc.Animations {
		clip, err := c.clip(i, anim)
		if err != nil {
			return nil, err
		}
		clips = append(clips, clip)
	}
	return clips, nil
}

func (c *converter) clip(i int, anim *gltf.Animation) (scene.Clip, error) {
	clip := scene.Clip{Name: anim.Name, TicksPerSecond: ticksPerSecond}
	if clip.Name == "" {
		clip.Name = fmt.Sprintf("animation_%d", i)
	}

	// channels in first-seen node order
	byNode := make(map[uint32]int)
	var nodes []uint32

	for _, ch := range anim.Channels {
		if ch.Target.Node == nil || ch.Sampler == nil {
			continue
		}
		node := *ch.Target.Node
		if int(node) >= len(c.names) {
			return clip, importErr("animation %q: target node %d out of range", clip.Name, node)
		}
		if int(*ch.Sampler) >= len(anim.Samplers) {
			return clip, importErr("animation %q: sampler %d out of range", clip.Name, *ch.Sampler)
		}
		sampler := anim.Samplers[*ch.Sampler]

		switch ch.Target.Path {
		case gltf.TRSTranslation, gltf.TRSRotation, gltf.TRSScale:
		default:
			c.log.Debug("skipping animation path", zap.String("node", c.names[node]), zap.Any("path", ch.Target.Path))
			continue
		}

		idx, ok := byNode[node]
		if !ok {
			idx = len(nodes)
			byNode[node] = idx
			nodes = append(nodes, node)
			clip.Channels = append(clip.Channels, scene.Channel{Node: c.names[node]})
		}
		dst := &clip.Channels[idx]

		end, err := c.sample(dst, ch.Target.Path, sampler)
		if err != nil {
			return clip, fmt.Errorf("animation %q: node %s: %w", clip.Name, dst.Node, err)
		}
		if end > clip.Duration {
			clip.Duration = end
		}
	}

	for idx, node := range nodes {
		c.fillRest(&clip.Channels[idx], c.doc.Nodes[node])
	}

	if clip.Duration <= 0 && len(clip.Channels) > 0 {
		c.log.Debug("pose clip", zap.String("clip", clip.Name), zap.Float32("duration", poseDuration))
		clip.Duration = poseDuration
	}
	return clip, nil
}

// sample copies one sampler into the matching stream of dst and returns the
// last keyframe time.
func (c *converter) sample(dst *scene.Channel, path gltf.TRSProperty, s *gltf.AnimationSampler) (float32, error) {
	if s.Input == nil || s.Output == nil {
		return 0, importErr("sampler without input or output")
	}

	times, err := readAccessor[[]float32](c.doc, *s.Input)
	if err != nil {
		return 0, fmt.Errorf("keyframe times: %w", err)
	}
	if len(times) == 0 {
		return 0, nil
	}

	// cubic spline outputs hold in-tangent, value, out-tangent per key
	stride, offset := 1, 0
	if s.Interpolation == gltf.InterpolationCubicSpline {
		stride, offset = 3, 1
	}
	if s.Interpolation == gltf.InterpolationStep {
		c.log.Debug("step interpolation played back as linear", zap.String("node", dst.Node))
	}

	if path == gltf.TRSRotation {
		values, err := readAccessor[[][4]float32](c.doc, *s.Output)
		if err != nil {
			return 0, fmt.Errorf("rotation values: %w", err)
		}
		if len(values) < len(times)*stride {
			return 0, importErr("%d rotation values for %d keys", len(values), len(times))
		}
		for k, t := range times {
			dst.Rotations = append(dst.Rotations, scene.QuatKey{Value: math.QuatFromXYZW(values[k*stride+offset]), Time: t})
		}
		return times[len(times)-1], nil
	}

	values, err := readAccessor[[][3]float32](c.doc, *s.Output)
	if err != nil {
		return 0, fmt.Errorf("%v values: %w", path, err)
	}
	if len(values) < len(times)*stride {
		return 0, importErr("%d %v values for %d keys", len(values), path, len(times))
	}
	keys := make([]scene.VectorKey, len(times))
	for k, t := range times {
		keys[k] = scene.VectorKey{Value: math.Vec3(values[k*stride+offset]), Time: t}
	}
	if path == gltf.TRSTranslation {
		dst.Positions = append(dst.Positions, keys...)
	} else {
		dst.Scales = append(dst.Scales, keys...)
	}
	return times[len(times)-1], nil
}

// fillRest gives every stream the channel doesn't animate one key holding
// the node's rest value.
func (c *converter) fillRest(ch *scene.Channel, n *gltf.Node) {
	t, r, s := restTRS(n)
	if len(ch.Positions) == 0 {
		ch.Positions = []scene.VectorKey{{Value: t}}
	}
	if len(ch.Rotations) == 0 {
		ch.Rotations = []scene.QuatKey{{Value: r}}
	}
	if len(ch.Scales) == 0 {
		ch.Scales = []scene.VectorKey{{Value: s}}
	}
}
