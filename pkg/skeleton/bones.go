package skeleton

import (
	"go.uber.org/multierr"

	"github.com/Faultbox/skelanim/pkg/math"
	"github.com/Faultbox/skelanim/pkg/scene"
)

// MaxInfluences is the number of bones that may weigh on a single vertex.
const MaxInfluences = 4

// weightTolerance bounds how far a vertex's weights may drift from 1 before
// StrictWeights reports it.
const weightTolerance = 0.01

// VertexInfluence is the per-vertex skinning attribute handed to the renderer.
// Unused slots have bone id NoBone and weight 0.
type VertexInfluence struct {
	BoneIDs [MaxInfluences]int32
	Weights [MaxInfluences]float32
}

func emptyInfluence() VertexInfluence {
	return VertexInfluence{BoneIDs: [MaxInfluences]int32{NoBone, NoBone, NoBone, NoBone}}
}

// add records bone's weight on the vertex. A bone already present accumulates.
func (v *VertexInfluence) add(bone int, weight float32) bool {
	for i := range v.BoneIDs {
		if v.BoneIDs[i] == int32(bone) {
			v.Weights[i] += weight
			return true
		}
		if v.BoneIDs[i] == NoBone {
			v.BoneIDs[i] = int32(bone)
			v.Weights[i] = weight
			return true
		}
	}
	return false
}

// WeightSum returns the total weight on the vertex.
func (v VertexInfluence) WeightSum() float32 {
	var sum float32
	for _, w := range v.Weights {
		sum += w
	}
	return sum
}

// SkinnedMesh is a mesh's per-vertex bone data after promotion.
type SkinnedMesh struct {
	Name       string
	Influences []VertexInfluence
}

// BindOptions tunes the promotion pass.
type BindOptions struct {
	// StrictWeights reports vertices whose weights don't sum to 1.
	StrictWeights bool
}

// BindMeshes is the promotion pass. The first mesh binding that references a
// node makes it a bone with the next free id and records its bind offset; later
// references only add vertex weights. Once every mesh is processed the bone
// table is validated.
//
// Bone ids therefore follow mesh processing order, not the node order.
func (h *Hierarchy) BindMeshes(meshes []scene.Mesh, opts BindOptions) ([]SkinnedMesh, Diagnostics, error) {
	if h.meshesBound {
		return nil, nil, newError(ErrPrecondition, "bind meshes", "hierarchy already has bones bound")
	}
	h.meshesBound = true

	var diags Diagnostics
	out := make([]SkinnedMesh, 0, len(meshes))

	var format scene.VertexFormat
	for i := range meshes {
		mesh := &meshes[i]

		if i == 0 {
			format = mesh.Format
		} else if mesh.Format != format && diags.Count(DiagVertexFormat) == 0 {
			diags.add(DiagVertexFormat, "", mesh.Name,
				"mesh %q vertex format %05b differs from first mesh %05b", mesh.Name, mesh.Format, format)
		}

		skinned, err := h.bindMesh(mesh, &diags)
		if err != nil {
			return nil, diags, err
		}

		if opts.StrictWeights && len(mesh.Bones) > 0 {
			for v, inf := range skinned.Influences {
				if sum := inf.WeightSum(); !math.NearlyEqual(sum, 1, weightTolerance) {
					diags.add(DiagWeightSum, "", mesh.Name, "mesh %q vertex %d weights sum to %.4f", mesh.Name, v, sum)
				}
			}
		}
		out = append(out, skinned)
	}

	if err := h.validateBones(); err != nil {
		return nil, diags, err
	}
	return out, diags, nil
}

func (h *Hierarchy) bindMesh(mesh *scene.Mesh, diags *Diagnostics) (SkinnedMesh, error) {
	const op = "bind meshes"

	influences := make([]VertexInfluence, mesh.VertexCount)
	for v := range influences {
		influences[v] = emptyInfluence()
	}

	for _, binding := range mesh.Bones {
		id, ok := h.Find(binding.Node)
		if !ok {
			return SkinnedMesh{}, newError(ErrConsistency, op, "bone references a node missing from the hierarchy").
				mesh(mesh.Name).node(binding.Node)
		}
		node := &h.nodes[id]

		if !node.IsBone() {
			node.Bone = len(h.boneNodes)
			node.Offset = binding.Offset
			h.boneNodes = append(h.boneNodes, id)
		}

		if len(binding.Weights) == 0 {
			diags.add(DiagUnusedBoneBinding, node.Name, mesh.Name, "bone %q has no vertex weights in mesh %q", node.Name, mesh.Name)
		}

		for _, vw := range binding.Weights {
			if int(vw.Vertex) >= len(influences) {
				return SkinnedMesh{}, newError(ErrConsistency, op, "vertex %d out of range (mesh has %d vertices)", vw.Vertex, len(influences)).
					mesh(mesh.Name).node(node.Name).bone(node.Bone)
			}
			if !influences[vw.Vertex].add(node.Bone, vw.Weight) {
				return SkinnedMesh{}, newError(ErrConsistency, op, "vertex %d exceeds %d bone influences", vw.Vertex, MaxInfluences).
					mesh(mesh.Name).node(node.Name).bone(node.Bone)
			}
		}
	}

	return SkinnedMesh{Name: mesh.Name, Influences: influences}, nil
}

// validateBones checks that bone ids are dense and map one to one onto nodes.
func (h *Hierarchy) validateBones() error {
	const op = "validate bones"

	var errs error
	seen := make(map[int]bool, len(h.boneNodes))
	for bone, id := range h.boneNodes {
		node := &h.nodes[id]
		if node.Bone != bone {
			errs = multierr.Append(errs, newError(ErrConsistency, op, "bone table says %d, node says %d", bone, node.Bone).node(node.Name))
		}
		if seen[id] {
			errs = multierr.Append(errs, newError(ErrConsistency, op, "node bound to more than one bone").node(node.Name).bone(bone))
		}
		seen[id] = true
	}

	bones := 0
	for i := range h.nodes {
		if h.nodes[i].IsBone() {
			bones++
		}
	}
	if bones != len(h.boneNodes) {
		errs = multierr.Append(errs, newError(ErrConsistency, op, "%d nodes are bones but %d bone ids were assigned", bones, len(h.boneNodes)))
	}
	return errs
}
