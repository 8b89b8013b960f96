// Package scene defines the raw data an importer hands to the skeleton builder:
// a rooted node tree, skinned meshes with their bone bindings, and keyframe clips.
// Nothing here is validated; pkg/skeleton owns every consistency rule.
package scene

import (
	"github.com/Faultbox/skelanim/pkg/math"
)

// Node is one node of the imported tree.
type Node struct {
	Name      string    // may be empty
	Transform math.Mat4 // node-to-parent
	Children  []*Node   // ordered
}

// VertexWeight is a single (vertex, weight) pair of a bone binding.
type VertexWeight struct {
	Vertex uint32
	Weight float32
}

// BoneBinding links a mesh to the hierarchy node that deforms it.
type BoneBinding struct {
	Node    string    // target node name
	Offset  math.Mat4 // model-to-node (inverse bind pose)
	Weights []VertexWeight
}

// VertexFormat is a bitset of the vertex attributes a mesh carries.
type VertexFormat uint8

// Vertex attribute flags.
const (
	HasPosition VertexFormat = 1 << iota
	HasNormal
	HasUV
	HasUV2
	HasTangent
)

// Has reports whether every flag in attr is set.
func (f VertexFormat) Has(attr VertexFormat) bool {
	return f&attr == attr
}

// Mesh is one imported mesh, reduced to what skinning needs.
type Mesh struct {
	Name        string
	VertexCount int
	Format      VertexFormat
	Bones       []BoneBinding
}

// VectorKey is a position or scale keyframe. Time is in ticks.
type VectorKey struct {
	Value math.Vec3
	Time  float32
}

// QuatKey is a rotation keyframe. Time is in ticks.
type QuatKey struct {
	Value math.Quat
	Time  float32
}

// Channel holds the keyframe streams authored for one node.
type Channel struct {
	Node      string
	Positions []VectorKey
	Rotations []QuatKey
	Scales    []VectorKey
}

// Clip is one animation clip.
type Clip struct {
	Name           string
	Duration       float32 // in ticks
	TicksPerSecond float32 // 0 when the source file doesn't say
	Channels       []Channel
}

// Scene is everything an importer produced for one model file.
type Scene struct {
	Name   string
	Root   *Node
	Meshes []Mesh
	Clips  []Clip
}

// Clip returns the clip with the given name, or the first clip when name is empty.
// Returns nil if there is no match.
func (s *Scene) Clip(name string) *Clip {
	if name == "" {
		if len(s.Clips) == 0 {
			return nil
		}
		return &s.Clips[0]
	}
	for i := range s.Clips {
		if s.Clips[i].Name == name {
			return &s.Clips[i]
		}
	}
	return nil
}

// Walk visits every node in pre-order, parents before children.
// Returning false from fn skips that node's subtree.
func (n *Node) Walk(fn func(node *Node, depth int) bool) {
	n.walk(fn, 0)
}

func (n *Node) walk(fn func(node *Node, depth int) bool, depth int) {
	if n == nil || !fn(n, depth) {
		return
	}
	for _, child := range n.Children {
		child.walk(fn, depth+1)
	}
}

// CountNodes returns the number of nodes in the subtree rooted at n.
func (n *Node) CountNodes() int {
	count := 0
	n.Walk(func(*Node, int) bool {
		count++
		return true
	})
	return count
}
