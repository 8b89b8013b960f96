package skeleton

import (
	"github.com/Faultbox/skelanim/pkg/math"
)

// Animator is the playback state of one model instance. The zero value is
// unbound; Reset binds it. The model is only read, so many animators may
// share one Model and Update concurrently, each on its own goroutine.
type Animator struct {
	model          *Model
	currentTime    float32 // ticks, within [0, duration)
	boneTransforms []math.Mat4
	nodeToModel    []math.Mat4
}

// NewAnimator returns an animator bound to m.
func NewAnimator(m *Model) (*Animator, error) {
	a := &Animator{}
	if err := a.Reset(m); err != nil {
		return nil, err
	}
	return a, nil
}

// Reset binds the animator to m, sizes its buffers to m's bone and node
// counts, rewinds to time 0 and evaluates the pose there.
func (a *Animator) Reset(m *Model) error {
	const op = "reset animator"

	if m == nil {
		return newError(ErrPrecondition, op, "nil model")
	}
	if m.animation == nil {
		return newError(ErrPrecondition, op, "model %q has no animation", m.Name)
	}

	a.model = m
	a.currentTime = 0
	a.boneTransforms = resize(a.boneTransforms, m.BoneCount())
	a.nodeToModel = resize(a.nodeToModel, m.hierarchy.Len())
	a.evaluate()
	return nil
}

func resize(buf []math.Mat4, n int) []math.Mat4 {
	if cap(buf) < n {
		buf = make([]math.Mat4, n)
	}
	buf = buf[:n]
	for i := range buf {
		buf[i] = math.Identity()
	}
	return buf
}

// Update advances playback by dt seconds, looping at the clip end, and
// recomputes every bone's skinning matrix.
//
// Update panics with an ErrPrecondition error if the animator is unbound or
// its buffers don't match the bound model.
func (a *Animator) Update(dt float32) {
	const op = "update animator"

	if a.model == nil {
		panic(newError(ErrPrecondition, op, "animator is not bound to a model"))
	}
	if len(a.boneTransforms) != a.model.BoneCount() || len(a.nodeToModel) != a.model.hierarchy.Len() {
		panic(newError(ErrPrecondition, op, "buffers sized for %d bones, model %q has %d",
			len(a.boneTransforms), a.model.Name, a.model.BoneCount()))
	}

	anim := a.model.animation
	a.currentTime = math.Wrap(a.currentTime+anim.speed*dt, anim.duration)
	a.evaluate()
}

// evaluate walks the hierarchy once, parents before children.
func (a *Animator) evaluate() {
	h := a.model.hierarchy
	anim := a.model.animation

	for i := range h.nodes {
		node := &h.nodes[i]

		local := node.Local
		if node.animated {
			local = anim.channels[node.Bone].Interpolate(a.currentTime)
		}

		parentToModel := h.rootInverse
		if !node.IsRoot() {
			parentToModel = a.nodeToModel[node.Parent]
		}

		a.nodeToModel[i] = parentToModel.Mul4(local)
		if node.IsBone() {
			a.boneTransforms[node.Bone] = a.nodeToModel[i].Mul4(node.Offset)
		}
	}
}

// Bound reports whether the animator has a model.
func (a *Animator) Bound() bool { return a.model != nil }

// Model returns the bound model, or nil.
func (a *Animator) Model() *Model { return a.model }

// CurrentTime returns the playback position in ticks.
func (a *Animator) CurrentTime() float32 { return a.currentTime }

// BoneTransforms returns the skinning matrices indexed by bone id. The slice
// is owned by the animator and overwritten by the next Update.
func (a *Animator) BoneTransforms() []math.Mat4 { return a.boneTransforms }

// NodeToModel returns the node-to-model transform of node id from the last evaluation.
func (a *Animator) NodeToModel(id int) math.Mat4 { return a.nodeToModel[id] }
