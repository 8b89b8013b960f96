package skeleton

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Faultbox/skelanim/pkg/math"
	"github.com/Faultbox/skelanim/pkg/scene"
)

func TestAnimatorBindPose(t *testing.T) {
	a, err := NewAnimator(mustModel(t, legScene()))
	require.NoError(t, err)

	assert.True(t, a.Bound())
	assert.Zero(t, a.CurrentTime())
	require.Len(t, a.BoneTransforms(), 2)
	// offsets are the inverse bind pose, so frame 0 skins to identity
	for _, m := range a.BoneTransforms() {
		requireMat4(t, math.Identity(), m)
	}
}

func TestAnimatorBendsKnee(t *testing.T) {
	a, err := NewAnimator(mustModel(t, legScene()))
	require.NoError(t, err)

	a.Update(1) // 5 ticks, knee at 90 degrees
	assert.InDelta(t, 5, a.CurrentTime(), eps)

	bones := a.BoneTransforms()
	requireMat4(t, math.Identity(), bones[0])

	// a vertex one unit above the knee swings to its left
	requireVec3(t, math.Vec3{-1, 2, 0}, math.TransformPoint(bones[1], math.Vec3{0, 3, 0}))
	// the knee pivot itself stays put
	requireVec3(t, math.Vec3{0, 2, 0}, math.TransformPoint(bones[1], math.Vec3{0, 2, 0}))

	knee, _ := a.Model().Hierarchy().Find("knee")
	requireVec3(t, math.Vec3{0, 2, 0}, math.TransformPoint(a.NodeToModel(knee), math.Vec3{}))
}

func TestAnimatorLoops(t *testing.T) {
	a, err := NewAnimator(mustModel(t, legScene()))
	require.NoError(t, err)

	a.Update(2.5) // 12.5 ticks wraps to 2.5
	assert.InDelta(t, 2.5, a.CurrentTime(), eps)

	a.Update(2) // 10 ticks, one full loop
	assert.InDelta(t, 2.5, a.CurrentTime(), eps)

	a.Update(-1) // backwards past 0
	assert.InDelta(t, 7.5, a.CurrentTime(), eps)
	assert.GreaterOrEqual(t, a.CurrentTime(), float32(0))
	assert.Less(t, a.CurrentTime(), a.Model().Animation().Duration())
}

func TestAnimatorUpdateZeroIsIdempotent(t *testing.T) {
	a, err := NewAnimator(mustModel(t, legScene()))
	require.NoError(t, err)
	a.Update(0.37)

	want := append([]math.Mat4(nil), a.BoneTransforms()...)
	for range 10 {
		a.Update(0)
		assert.Equal(t, want, a.BoneTransforms())
	}
}

func TestAnimatorConstantChannel(t *testing.T) {
	s := &scene.Scene{
		Root: &scene.Node{
			Name:      "root",
			Transform: math.Identity(),
			Children:  []*scene.Node{{Name: "bone", Transform: math.Identity()}},
		},
		Meshes: []scene.Mesh{{
			Name:        "m",
			VertexCount: 1,
			Bones: []scene.BoneBinding{{
				Node:    "bone",
				Offset:  math.Identity(),
				Weights: []scene.VertexWeight{{Vertex: 0, Weight: 1}},
			}},
		}},
		Clips: []scene.Clip{{
			Name:           "idle",
			Duration:       2,
			TicksPerSecond: 1,
			Channels: []scene.Channel{{
				Node:      "bone",
				Positions: []scene.VectorKey{{Value: math.Vec3{}, Time: 0}},
				Rotations: []scene.QuatKey{{Value: math.QuatIdentity(), Time: 0}},
				Scales:    []scene.VectorKey{{Value: math.One(), Time: 0}},
			}},
		}},
	}

	m := mustModel(t, s)
	ch := m.Animation().Channel(0)
	require.NotNil(t, ch)
	for _, st := range []Stream{StreamPosition, StreamRotation, StreamScale} {
		require.Equal(t, 2, ch.FrameCount(st))
		assert.Equal(t, float32(2), ch.FrameTime(st, 1))
	}

	a, err := NewAnimator(m)
	require.NoError(t, err)
	before := a.BoneTransforms()[0]

	a.Update(1)
	assert.InDelta(t, 1, a.CurrentTime(), eps)
	requireMat4(t, before, a.BoneTransforms()[0])
	requireMat4(t, math.Identity(), a.BoneTransforms()[0])
}

func TestAnimatorRootInverseCorrectsUnits(t *testing.T) {
	s := legScene()
	s.Root.Transform = math.Scale(math.Vec3{0.01, 0.01, 0.01})

	a, err := NewAnimator(mustModel(t, s))
	require.NoError(t, err)

	requireMat4(t, math.Identity(), a.NodeToModel(0))
	hip, _ := a.Model().Hierarchy().Find("hip")
	requireMat4(t, math.Translate(math.Vec3{0, 1, 0}), a.NodeToModel(hip))
}

func TestAnimatorDeadBoneKeepsStaticTransform(t *testing.T) {
	a, err := NewAnimator(mustModel(t, legScene()))
	require.NoError(t, err)

	hip, _ := a.Model().Hierarchy().Find("hip")
	for _, dt := range []float32{0.3, 0.9, 1.4} {
		a.Update(dt)
		requireMat4(t, math.Translate(math.Vec3{0, 1, 0}), a.NodeToModel(hip))
	}
}

func TestAnimatorResetErrors(t *testing.T) {
	var a Animator
	assert.False(t, a.Bound())

	err := a.Reset(nil)
	assert.True(t, errors.Is(err, ErrPrecondition))

	s := legScene()
	s.Clips = nil
	err = a.Reset(mustModel(t, s))
	assert.True(t, errors.Is(err, ErrPrecondition))
	assert.False(t, a.Bound())

	_, err = NewAnimator(mustModel(t, s))
	assert.True(t, errors.Is(err, ErrPrecondition))
}

func TestAnimatorResetRebinds(t *testing.T) {
	a, err := NewAnimator(mustModel(t, legScene()))
	require.NoError(t, err)
	a.Update(0.5)

	s := legScene()
	s.Meshes[0].Bones = s.Meshes[0].Bones[:1]
	s.Clips[0].Channels = append(s.Clips[0].Channels, constantChannel("hip"))
	other := mustModel(t, s)

	require.NoError(t, a.Reset(other))
	assert.Zero(t, a.CurrentTime())
	assert.Len(t, a.BoneTransforms(), 1)
	assert.Same(t, other, a.Model())
}

func TestAnimatorUpdatePanics(t *testing.T) {
	var unbound Animator
	err := recoverError(func() { unbound.Update(0.1) })
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrPrecondition))

	a, err := NewAnimator(mustModel(t, legScene()))
	require.NoError(t, err)
	a.boneTransforms = a.boneTransforms[:1]

	err = recoverError(func() { a.Update(0.1) })
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrPrecondition))
}

func TestAnimatorsShareModelConcurrently(t *testing.T) {
	m := mustModel(t, legScene())
	const instances = 8
	const frames = 200

	dt := func(i int) float32 { return float32(i+1) / 97 }

	// serial reference run
	want := make([][]math.Mat4, instances)
	for i := range instances {
		a, err := NewAnimator(m)
		require.NoError(t, err)
		for range frames {
			a.Update(dt(i))
		}
		want[i] = append([]math.Mat4(nil), a.BoneTransforms()...)
	}

	got := make([][]math.Mat4, instances)
	var wg sync.WaitGroup
	for i := range instances {
		a, err := NewAnimator(m)
		require.NoError(t, err)
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range frames {
				a.Update(dt(i))
			}
			got[i] = append([]math.Mat4(nil), a.BoneTransforms()...)
		}()
	}
	wg.Wait()

	assert.Equal(t, want, got)
}

func TestAnimatorRotationStaysRigid(t *testing.T) {
	a, err := NewAnimator(mustModel(t, legScene()))
	require.NoError(t, err)

	for range 50 {
		a.Update(0.037)
		m := a.BoneTransforms()[1]
		// rotation and translation only: determinant stays 1
		assert.InDelta(t, 1, m.Det(), 1e-3)
	}
}
