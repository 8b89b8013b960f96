// Package skeleton computes per-frame skinning matrices for a skinned mesh.
//
// A model is built in phases: BuildHierarchy flattens the imported node tree
// into a pre-ordered array, BindMeshes promotes the nodes referenced by mesh
// skin data to bones, and NewAnimation reconciles one keyframe clip against
// the hierarchy. The result is immutable and may be shared by any number of
// Animator instances, each of which owns only its playback time and output
// buffers.
//
// Matrices are named after the spaces they map between: node-to-parent is a
// node's local transform, node-to-model chains node-to-parent up to the root,
// and the bind offset (model-to-node) takes a bind-pose vertex into bone space.
package skeleton

import (
	"fmt"
	"slices"

	"github.com/Faultbox/skelanim/pkg/math"
	"github.com/Faultbox/skelanim/pkg/scene"
)

// Sentinel ids.
const (
	NoParent = -1
	NoBone   = -1
)

// Node is one entry of the flattened hierarchy. ID equals its array index.
type Node struct {
	ID     int
	Parent int // NoParent for the root, otherwise < ID
	Name   string
	Local  math.Mat4 // node-to-parent
	Bone   int       // NoBone unless promoted by mesh skin data
	Offset math.Mat4 // model-to-node, valid when Bone != NoBone

	animated bool
}

// IsRoot reports whether n is the hierarchy root.
func (n *Node) IsRoot() bool { return n.Parent == NoParent }

// IsBone reports whether n was promoted to a bone.
func (n *Node) IsBone() bool { return n.Bone != NoBone }

// Animated reports whether a channel of the bound animation drives n.
func (n *Node) Animated() bool { return n.animated }

// Hierarchy is the arena of nodes in pre-order: every parent precedes its
// descendants, so one forward pass can chain transforms.
type Hierarchy struct {
	nodes       []Node
	byName      map[string]int
	boneNodes   []int // bone id -> node id
	rootInverse math.Mat4

	meshesBound bool
	clipBound   bool
	diagnostics Diagnostics
}

// BuildHierarchy flattens the imported tree rooted at root.
// Unnamed nodes get a fallback name; the first node wins a name lookup when
// names repeat.
func BuildHierarchy(root *scene.Node) (*Hierarchy, error) {
	if root == nil {
		return nil, newError(ErrImport, "build hierarchy", "scene has no root node")
	}

	h := &Hierarchy{
		nodes:  make([]Node, 0, root.CountNodes()),
		byName: make(map[string]int),
	}
	if err := h.flatten(root, NoParent); err != nil {
		return nil, err
	}

	top := &h.nodes[0]
	if top.Local.Det() == 0 {
		return nil, newError(ErrConsistency, "build hierarchy", "root transform is singular").node(top.Name)
	}
	h.rootInverse = math.Inverse(top.Local)
	return h, nil
}

func (h *Hierarchy) flatten(src *scene.Node, parent int) error {
	if src == nil {
		return newError(ErrImport, "build hierarchy", "nil child under node %d", parent)
	}

	id := len(h.nodes)
	name := src.Name
	if name == "" {
		name = fmt.Sprintf("node_%d", id)
		h.diagnostics.add(DiagUnnamedNode, name, "", "node %d has no name, using %q", id, name)
	}

	h.nodes = append(h.nodes, Node{
		ID:     id,
		Parent: parent,
		Name:   name,
		Local:  src.Transform,
		Bone:   NoBone,
		Offset: math.Identity(),
	})
	if _, dup := h.byName[name]; !dup {
		h.byName[name] = id
	}

	for _, child := range src.Children {
		if err := h.flatten(child, id); err != nil {
			return err
		}
	}
	return nil
}

// Len returns the number of nodes.
func (h *Hierarchy) Len() int { return len(h.nodes) }

// Node returns a copy of the node with the given id.
func (h *Hierarchy) Node(id int) Node { return h.nodes[id] }

// Nodes returns a copy of every node in stored order.
func (h *Hierarchy) Nodes() []Node { return slices.Clone(h.nodes) }

// Root returns the root node.
func (h *Hierarchy) Root() Node { return h.nodes[0] }

// Find returns the id of the first node named name.
func (h *Hierarchy) Find(name string) (int, bool) {
	id, ok := h.byName[name]
	return id, ok
}

// BoneCount returns the number of promoted bones.
func (h *Hierarchy) BoneCount() int { return len(h.boneNodes) }

// BoneNode returns the node id of the given bone.
func (h *Hierarchy) BoneNode(bone int) int { return h.boneNodes[bone] }

// AnimatedCount returns the number of nodes driven by a channel.
func (h *Hierarchy) AnimatedCount() int {
	n := 0
	for i := range h.nodes {
		if h.nodes[i].animated {
			n++
		}
	}
	return n
}

// RootInverse returns the inverse of the root's node-to-parent transform.
// It converts the source tool's units into model units.
func (h *Hierarchy) RootInverse() math.Mat4 { return h.rootInverse }

// Diagnostics returns the warnings collected while building the hierarchy.
func (h *Hierarchy) Diagnostics() Diagnostics { return slices.Clone(h.diagnostics) }
