package importer

import (
	"fmt"

	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"
	"go.uber.org/zap"

	"github.com/Faultbox/skelanim/pkg/math"
	"github.com/Faultbox/skelanim/pkg/scene"
)

// meshes emits one scene.Mesh per primitive of every node in the imported
// scene that instances a mesh. Skinned nodes bind each joint of their skin;
// unskinned meshes carry no bones. Mesh nodes of other scenes are skipped.
func (c *converter) meshes() ([]scene.Mesh, error) {
	var out []scene.Mesh
	for i, n := range c.doc.Nodes {
		if n.Mesh == nil || !c.inTree[i] {
			continue
		}
		if int(*n.Mesh) >= len(c.doc.Meshes) {
			return nil, importErr("node %s: mesh %d out of range", c.names[i], *n.Mesh)
		}
		src := c.doc.Meshes[*n.Mesh]

		var skin *gltf.Skin
		var offsets []math.Mat4
		if n.Skin != nil {
			if int(*n.Skin) >= len(c.doc.Skins) {
				return nil, importErr("node %s: skin %d out of range", c.names[i], *n.Skin)
			}
			skin = c.doc.Skins[*n.Skin]
			var err error
			if offsets, err = c.inverseBindMatrices(skin); err != nil {
				return nil, fmt.Errorf("node %s: %w", c.names[i], err)
			}
		}

		meshName := src.Name
		if meshName == "" {
			meshName = fmt.Sprintf("mesh_%d", *n.Mesh)
		}

		for p, prim := range src.Primitives {
			name := meshName
			if len(src.Primitives) > 1 {
				name = fmt.Sprintf("%s/%d", meshName, p)
			}
			m, err := c.primitive(name, prim, skin, offsets)
			if err != nil {
				return nil, err
			}
			out = append(out, m)
		}
	}
	return out, nil
}

func (c *converter) inverseBindMatrices(skin *gltf.Skin) ([]math.Mat4, error) {
	offsets := make([]math.Mat4, len(skin.Joints))
	if skin.InverseBindMatrices == nil {
		for j := range offsets {
			offsets[j] = math.Identity()
		}
		return offsets, nil
	}

	mats, err := readAccessor[[][4][4]float32](c.doc, *skin.InverseBindMatrices)
	if err != nil {
		return nil, fmt.Errorf("inverse bind matrices: %w", err)
	}
	if len(mats) < len(skin.Joints) {
		return nil, importErr("skin %q has %d joints but %d inverse bind matrices", skin.Name, len(skin.Joints), len(mats))
	}
	for j := range offsets {
		offsets[j] = columns(mats[j])
	}
	return offsets, nil
}

// columns flattens a column-major accessor element.
func columns(m [4][4]float32) math.Mat4 {
	var out math.Mat4
	for col := range m {
		copy(out[col*4:col*4+4], m[col][:])
	}
	return out
}

func (c *converter) primitive(name string, prim *gltf.Primitive, skin *gltf.Skin, offsets []math.Mat4) (scene.Mesh, error) {
	mesh := scene.Mesh{Name: name, Format: vertexFormat(prim.Attributes)}

	pos, ok := prim.Attributes[attrPosition]
	if !ok {
		return mesh, importErr("mesh %q has no %s attribute", name, attrPosition)
	}
	if int(pos) >= len(c.doc.Accessors) {
		return mesh, importErr("mesh %q: accessor %d out of range", name, pos)
	}
	mesh.VertexCount = int(c.doc.Accessors[pos].Count)

	if skin == nil {
		return mesh, nil
	}

	jointsIdx, hasJoints := prim.Attributes[attrJoints]
	weightsIdx, hasWeights := prim.Attributes[attrWeights]
	if !hasJoints || !hasWeights {
		c.log.Warn("skinned primitive without joint data", zap.String("mesh", name))
		return mesh, nil
	}

	joints, err := c.readJoints(jointsIdx)
	if err != nil {
		return mesh, fmt.Errorf("mesh %q: %w", name, err)
	}
	weights, err := readAccessor[[][4]float32](c.doc, weightsIdx)
	if err != nil {
		return mesh, fmt.Errorf("mesh %q: weights: %w", name, err)
	}
	if len(joints) != mesh.VertexCount || len(weights) != mesh.VertexCount {
		return mesh, importErr("mesh %q: %d vertices but %d joints and %d weights", name, mesh.VertexCount, len(joints), len(weights))
	}

	bindings := make([]scene.BoneBinding, len(skin.Joints))
	for j, node := range skin.Joints {
		if int(node) >= len(c.names) {
			return mesh, importErr("skin %q: joint node %d out of range", skin.Name, node)
		}
		bindings[j] = scene.BoneBinding{Node: c.names[node], Offset: offsets[j]}
	}

	for v := range joints {
		for k := range joints[v] {
			w := weights[v][k]
			if w == 0 {
				continue
			}
			j := int(joints[v][k])
			if j >= len(bindings) {
				return mesh, importErr("mesh %q: vertex %d uses joint %d, skin has %d", name, v, j, len(bindings))
			}
			bindings[j].Weights = append(bindings[j].Weights, scene.VertexWeight{Vertex: uint32(v), Weight: w})
		}
	}

	// joints no vertex of this primitive uses don't deform it
	for _, b := range bindings {
		if len(b.Weights) > 0 {
			mesh.Bones = append(mesh.Bones, b)
		}
	}
	return mesh, nil
}

func vertexFormat(attrs map[string]uint32) scene.VertexFormat {
	var f scene.VertexFormat
	for attr, flag := range map[string]scene.VertexFormat{
		attrPosition:  scene.HasPosition,
		attrNormal:    scene.HasNormal,
		attrTexCoord0: scene.HasUV,
		attrTexCoord1: scene.HasUV2,
		attrTangent:   scene.HasTangent,
	} {
		if _, ok := attrs[attr]; ok {
			f |= flag
		}
	}
	return f
}

// readJoints accepts both unsigned byte and unsigned short joint indices.
func (c *converter) readJoints(idx uint32) ([][4]uint16, error) {
	acr, err := accessor(c.doc, idx)
	if err != nil {
		return nil, err
	}
	data, err := modeler.ReadAccessor(c.doc, acr, nil)
	if err != nil {
		return nil, importErr("joints: reading accessor %d: %v", idx, err)
	}

	switch v := data.(type) {
	case [][4]uint16:
		return v, nil
	case [][4]uint8:
		out := make([][4]uint16, len(v))
		for i, j := range v {
			out[i] = [4]uint16{uint16(j[0]), uint16(j[1]), uint16(j[2]), uint16(j[3])}
		}
		return out, nil
	default:
		return nil, importErr("joints: accessor %d has unsupported type %T", idx, data)
	}
}

func accessor(doc *gltf.Document, idx uint32) (*gltf.Accessor, error) {
	if int(idx) >= len(doc.Accessors) {
		return nil, importErr("accessor %d out of range", idx)
	}
	return doc.Accessors[idx], nil
}

// readAccessor decodes an accessor into the Go type T that matches its
// glTF type and component type.
func readAccessor[T any](doc *gltf.Document, idx uint32) (T, error) {
	var zero T
	acr, err := accessor(doc, idx)
	if err != nil {
		return zero, err
	}
	data, err := modeler.ReadAccessor(doc, acr, nil)
	if err != nil {
		return zero, importErr("reading accessor %d: %v", idx, err)
	}
	v, ok := data.(T)
	if !ok {
		return zero, importErr("accessor %d holds %T, want %T", idx, data, zero)
	}
	return v, nil
}
