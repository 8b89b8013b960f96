package skeleton

import (
	"github.com/google/uuid"

	"github.com/Faultbox/skelanim/pkg/scene"
)

// Options controls model assembly.
type Options struct {
	// Clip selects a clip by name. Empty loads the first clip.
	Clip string
	// DefaultTicksPerSecond replaces a zero tick rate.
	DefaultTicksPerSecond float32
	// StrictWeights reports vertices whose weights don't sum to 1.
	StrictWeights bool
}

// Model is an immutable skinned model: hierarchy, per-vertex bone data and at
// most one animation. Safe for concurrent readers once NewModel returns.
type Model struct {
	ID   string
	Name string

	hierarchy *Hierarchy
	meshes    []SkinnedMesh
	animation *Animation
}

// NewModel runs every construction phase on an imported scene: hierarchy
// build, bone promotion and validation, then assembly of one clip if the scene
// has any. A scene without clips yields a static model, as does a clip with no
// positive duration, which is reported as a diagnostic.
func NewModel(s *scene.Scene, opts Options) (*Model, Diagnostics, error) {
	const op = "new model"

	if s == nil || s.Root == nil {
		return nil, nil, newError(ErrImport, op, "scene has no root node")
	}

	h, err := BuildHierarchy(s.Root)
	if err != nil {
		return nil, nil, err
	}
	diags := h.Diagnostics()

	meshes, bindDiags, err := h.BindMeshes(s.Meshes, BindOptions{StrictWeights: opts.StrictWeights})
	diags = append(diags, bindDiags...)
	if err != nil {
		return nil, diags, err
	}

	m := &Model{
		ID:        uuid.NewString(),
		Name:      s.Name,
		hierarchy: h,
		meshes:    meshes,
	}

	clip := s.Clip(opts.Clip)
	if clip == nil {
		if opts.Clip != "" {
			return nil, diags, newError(ErrImport, op, "clip %q not found", opts.Clip)
		}
		return m, diags, nil
	}
	if clip.Duration <= 0 {
		diags.add(DiagEmptyClip, "", "", "clip %q has duration %v, loading the model static", clip.Name, clip.Duration)
		return m, diags, nil
	}

	anim, animDiags, err := NewAnimation(clip, h, AnimationOptions{DefaultTicksPerSecond: opts.DefaultTicksPerSecond})
	diags = append(diags, animDiags...)
	if err != nil {
		return nil, diags, err
	}
	m.animation = anim
	return m, diags, nil
}

// Hierarchy returns the node hierarchy.
func (m *Model) Hierarchy() *Hierarchy { return m.hierarchy }

// Meshes returns the per-vertex bone data of every mesh.
func (m *Model) Meshes() []SkinnedMesh { return m.meshes }

// Animation returns the bound clip, or nil for a static model.
func (m *Model) Animation() *Animation { return m.animation }

// BoneCount returns the number of bones.
func (m *Model) BoneCount() int { return m.hierarchy.BoneCount() }
