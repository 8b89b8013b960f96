package skeleton

import (
	stdmath "math"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Faultbox/skelanim/pkg/math"
	"github.com/Faultbox/skelanim/pkg/scene"
)

const eps = 1e-4

var (
	axisY = math.Vec3{0, 1, 0}
	axisZ = math.Vec3{0, 0, 1}
)

// legScene builds root -> hip -> knee plus a prop under root.
// hip and knee are skinned; knee bends 90 degrees about Z halfway through a
// 10 tick clip played at 5 ticks/s.
func legScene() *scene.Scene {
	up := math.Translate(math.Vec3{0, 1, 0})
	return &scene.Scene{
		Name: "leg",
		Root: &scene.Node{
			Name:      "root",
			Transform: math.Identity(),
			Children: []*scene.Node{
				{
					Name:      "hip",
					Transform: up,
					Children: []*scene.Node{
						{Name: "knee", Transform: up},
					},
				},
				{Name: "prop", Transform: math.Translate(math.Vec3{3, 0, 0})},
			},
		},
		Meshes: []scene.Mesh{
			{
				Name:        "thigh",
				VertexCount: 3,
				Format:      scene.HasPosition | scene.HasNormal,
				Bones: []scene.BoneBinding{
					{
						Node:    "hip",
						Offset:  math.Translate(math.Vec3{0, -1, 0}),
						Weights: []scene.VertexWeight{{Vertex: 0, Weight: 1}, {Vertex: 1, Weight: 0.5}},
					},
					{
						Node:    "knee",
						Offset:  math.Translate(math.Vec3{0, -2, 0}),
						Weights: []scene.VertexWeight{{Vertex: 1, Weight: 0.5}, {Vertex: 2, Weight: 1}},
					},
				},
			},
		},
		Clips: []scene.Clip{
			{
				Name:           "bend",
				Duration:       10,
				TicksPerSecond: 5,
				Channels: []scene.Channel{
					{
						Node:      "knee",
						Positions: []scene.VectorKey{{Value: math.Vec3{0, 1, 0}, Time: 0}},
						Rotations: []scene.QuatKey{
							{Value: math.QuatIdentity(), Time: 0},
							{Value: math.QuatFromAxisAngle(axisZ, stdmath.Pi/2), Time: 5},
						},
						Scales: []scene.VectorKey{{Value: math.One(), Time: 0}},
					},
					constantChannel("ghost"),
					constantChannel("prop"),
				},
			},
		},
	}
}

func constantChannel(node string) scene.Channel {
	return scene.Channel{
		Node:      node,
		Positions: []scene.VectorKey{{Value: math.Vec3{}, Time: 0}},
		Rotations: []scene.QuatKey{{Value: math.QuatIdentity(), Time: 0}},
		Scales:    []scene.VectorKey{{Value: math.One(), Time: 0}},
	}
}

func mustModel(t *testing.T, s *scene.Scene) *Model {
	t.Helper()
	m, _, err := NewModel(s, Options{})
	require.NoError(t, err)
	return m
}

func mustHierarchy(t *testing.T, s *scene.Scene) *Hierarchy {
	t.Helper()
	h, err := BuildHierarchy(s.Root)
	require.NoError(t, err)
	_, _, err = h.BindMeshes(s.Meshes, BindOptions{})
	require.NoError(t, err)
	return h
}

// recoverError runs fn and returns the error it panicked with, if any.
func recoverError(fn func()) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err, _ = r.(error)
		}
	}()
	fn()
	return nil
}

func requireMat4(t *testing.T, want, got math.Mat4) {
	t.Helper()
	require.True(t, math.ApproxEqualMat4(want, got, eps), "want %v\ngot  %v", want, got)
}

func requireVec3(t *testing.T, want, got math.Vec3) {
	t.Helper()
	require.True(t, want.ApproxEqualThreshold(got, eps), "want %v, got %v", want, got)
}
