// Package importer reads glTF 2.0 files (.gltf/.glb) into scene.Scene values.
//
// glTF keyframe times are in seconds, so imported clips use one tick per
// second. Streams a channel doesn't animate are filled with the node's rest
// value so every imported channel carries all three streams.
package importer

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/qmuntal/gltf"
	"go.uber.org/zap"

	"github.com/Faultbox/skelanim/internal/logger"
	"github.com/Faultbox/skelanim/pkg/math"
	"github.com/Faultbox/skelanim/pkg/scene"
	"github.com/Faultbox/skelanim/pkg/skeleton"
)

// glTF vertex attribute names.
const (
	attrPosition  = "POSITION"
	attrNormal    = "NORMAL"
	attrTangent   = "TANGENT"
	attrTexCoord0 = "TEXCOORD_0"
	attrTexCoord1 = "TEXCOORD_1"
	attrJoints    = "JOINTS_0"
	attrWeights   = "WEIGHTS_0"
)

func importErr(format string, args ...any) error {
	return fmt.Errorf("%w: %s", skeleton.ErrImport, fmt.Sprintf(format, args...))
}

// Load opens a .gltf or .glb file and converts it.
func Load(path string) (*scene.Scene, error) {
	doc, err := gltf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: opening %s: %v", skeleton.ErrImport, path, err)
	}

	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	s, err := FromDocument(doc, name)
	if err != nil {
		return nil, fmt.Errorf("importing %s: %w", path, err)
	}
	return s, nil
}

// FromDocument converts an in-memory glTF document. name is used when the
// document's scene is unnamed.
func FromDocument(doc *gltf.Document, name string) (*scene.Scene, error) {
	log := logger.Named("importer")

	if doc == nil || len(doc.Nodes) == 0 {
		return nil, importErr("document has no nodes")
	}

	c := &converter{
		doc:   doc,
		log:   log,
		names: make([]string, len(doc.Nodes)),
	}
	c.assignNames()

	roots, sceneName, err := c.roots()
	if err != nil {
		return nil, err
	}
	if sceneName != "" {
		name = sceneName
	}

	root, err := c.tree(roots, name)
	if err != nil {
		return nil, err
	}

	meshes, err := c.meshes()
	if err != nil {
		return nil, err
	}

	clips, err := c.clips()
	if err != nil {
		return nil, err
	}

	log.Debug("imported scene",
		zap.String("scene", name),
		zap.Int("nodes", root.CountNodes()),
		zap.Int("meshes", len(meshes)),
		zap.Int("clips", len(clips)))

	return &scene.Scene{Name: name, Root: root, Meshes: meshes, Clips: clips}, nil
}

type converter struct {
	doc    *gltf.Document
	log    *zap.Logger
	names  []string // glTF node index -> unique name
	inTree []bool   // glTF node index -> reachable from the imported scene
}

// assignNames gives every node a unique name. Bone bindings and channels
// refer to nodes by name, so unnamed and repeated names are disambiguated
// with the node index.
func (c *converter) assignNames() {
	seen := make(map[string]bool, len(c.doc.Nodes))
	for i, n := range c.doc.Nodes {
		name := n.Name
		switch {
		case name == "":
			name = fmt.Sprintf("node_%d", i)
		case seen[name]:
			name = fmt.Sprintf("%s_%d", name, i)
		}
		seen[name] = true
		c.names[i] = name
	}
}

// roots returns the root node indices of the default scene. Documents
// without scenes use every node that is nobody's child.
func (c *converter) roots() ([]uint32, string, error) {
	doc := c.doc
	if len(doc.Scenes) > 0 {
		idx := uint32(0)
		if doc.Scene != nil {
			idx = *doc.Scene
		}
		if int(idx) >= len(doc.Scenes) {
			return nil, "", importErr("default scene %d out of range", idx)
		}
		sc := doc.Scenes[idx]
		if len(sc.Nodes) == 0 {
			return nil, "", importErr("scene %d has no nodes", idx)
		}
		return sc.Nodes, sc.Name, nil
	}

	isChild := make([]bool, len(doc.Nodes))
	for _, n := range doc.Nodes {
		for _, ch := range n.Children {
			if int(ch) < len(isChild) {
				isChild[ch] = true
			}
		}
	}
	var roots []uint32
	for i := range doc.Nodes {
		if !isChild[i] {
			roots = append(roots, uint32(i))
		}
	}
	if len(roots) == 0 {
		return nil, "", importErr("node graph has no root")
	}
	return roots, "", nil
}

// tree builds the scene tree. Several roots are gathered under a synthetic
// identity root.
func (c *converter) tree(roots []uint32, name string) (*scene.Node, error) {
	visited := make([]bool, len(c.doc.Nodes))
	c.inTree = visited

	if len(roots) == 1 {
		return c.node(roots[0], visited)
	}

	root := &scene.Node{Name: name, Transform: math.Identity()}
	for _, r := range roots {
		child, err := c.node(r, visited)
		if err != nil {
			return nil, err
		}
		root.Children = append(root.Children, child)
	}
	return root, nil
}

func (c *converter) node(idx uint32, visited []bool) (*scene.Node, error) {
	if int(idx) >= len(c.doc.Nodes) {
		return nil, importErr("node %d out of range", idx)
	}
	if visited[idx] {
		return nil, importErr("node %d (%s) is reachable twice", idx, c.names[idx])
	}
	visited[idx] = true

	src := c.doc.Nodes[idx]
	n := &scene.Node{Name: c.names[idx], Transform: localTransform(src)}
	for _, ch := range src.Children {
		child, err := c.node(ch, visited)
		if err != nil {
			return nil, err
		}
		n.Children = append(n.Children, child)
	}
	return n, nil
}

// localTransform returns the node-to-parent matrix. glTF matrices are
// column-major like math.Mat4. An unset matrix is all zeros.
func localTransform(n *gltf.Node) math.Mat4 {
	if m := math.Mat4(n.Matrix); m != (math.Mat4{}) && m != math.Identity() {
		return m
	}
	t, r, s := restTRS(n)
	return math.TRS(t, r, s)
}

// restTRS returns the node's rest translation, rotation and scale. Zero
// rotation and scale are unset fields and read as their defaults.
func restTRS(n *gltf.Node) (math.Vec3, math.Quat, math.Vec3) {
	r := math.QuatIdentity()
	if n.Rotation != [4]float32{} {
		r = math.QuatFromXYZW(n.Rotation).Normalize()
	}
	s := math.One()
	if n.Scale != [3]float32{} {
		s = math.Vec3(n.Scale)
	}
	return math.Vec3(n.Translation), r, s
}
