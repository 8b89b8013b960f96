package main

import (
	"bytes"
	stdmath "math"
	"os"
	"path/filepath"
	"testing"

	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

// writeArm saves a GLB with one animated bone ("shoulder") skinning a single
// vertex, and a config file that keeps logging quiet.
func writeArm(t *testing.T) (model, cfg string) {
	t.Helper()
	dir := t.TempDir()

	doc := gltf.NewDocument()
	if len(doc.Buffers) == 0 {
		doc.Buffers = append(doc.Buffers, new(gltf.Buffer))
	}
	positions := modeler.WriteAccessor(doc, gltf.TargetArrayBuffer, [][3]float32{{1, 0, 0}})
	joints := modeler.WriteAccessor(doc, gltf.TargetArrayBuffer, [][4]uint8{{0, 0, 0, 0}})
	weights := modeler.WriteAccessor(doc, gltf.TargetArrayBuffer, [][4]float32{{1, 0, 0, 0}})
	s := float32(stdmath.Sqrt2 / 2)
	times := modeler.WriteAccessor(doc, gltf.TargetNone, []float32{0, 1})
	rotations := modeler.WriteAccessor(doc, gltf.TargetNone, [][4]float32{{0, 0, 0, 1}, {0, 0, s, s}})

	doc.Nodes = []*gltf.Node{
		{Name: "arm", Children: []uint32{1, 2}},
		{Name: "shoulder"},
		{Name: "sleeve", Mesh: gltf.Index(0), Skin: gltf.Index(0)},
	}
	doc.Scenes = []*gltf.Scene{{Name: "arm", Nodes: []uint32{0}}}
	doc.Scene = gltf.Index(0)
	doc.Meshes = []*gltf.Mesh{{
		Name: "sleeve",
		Primitives: []*gltf.Primitive{{
			Attributes: map[string]uint32{
				"POSITION":  uint32(positions),
				"JOINTS_0":  uint32(joints),
				"WEIGHTS_0": uint32(weights),
			},
		}},
	}}
	doc.Skins = []*gltf.Skin{{Name: "armskin", Joints: []uint32{1}}}
	doc.Animations = []*gltf.Animation{{
		Name: "raise",
		Samplers: []*gltf.AnimationSampler{{
			Input:         gltf.Index(uint32(times)),
			Output:        gltf.Index(uint32(rotations)),
			Interpolation: gltf.InterpolationLinear,
		}},
		Channels: []*gltf.Channel{{
			Sampler: gltf.Index(0),
			Target:  gltf.ChannelTarget{Node: gltf.Index(1), Path: gltf.TRSRotation},
		}},
	}}

	model = filepath.Join(dir, "arm.glb")
	require.NoError(t, gltf.SaveBinary(doc, model))

	cfg = filepath.Join(dir, "skinplay.yaml")
	require.NoError(t, os.WriteFile(cfg, []byte("logging:\n  level: error\nplayback:\n  frames: 3\n"), 0o644))
	return model, cfg
}

func TestInfo(t *testing.T) {
	model, cfg := writeArm(t)

	var out bytes.Buffer
	require.NoError(t, cmdInfo([]string{"-config", cfg, model}, &out))

	text := out.String()
	assert.Contains(t, text, "Model:    arm")
	assert.Contains(t, text, "Nodes:    3")
	assert.Contains(t, text, "Bones:    1")
	assert.Contains(t, text, "Meshes:   1 (1 vertices)")
	assert.Contains(t, text, "Clip:     raise")
}

func TestInfoYAML(t *testing.T) {
	model, cfg := writeArm(t)

	var out bytes.Buffer
	require.NoError(t, cmdInfo([]string{"-config", cfg, "-format", "yaml", "-model", model}, &out))

	var r infoReport
	require.NoError(t, yaml.Unmarshal(out.Bytes(), &r))
	assert.Equal(t, 3, r.Nodes)
	assert.Equal(t, 1, r.Bones)
	require.NotNil(t, r.Clip)
	assert.Equal(t, "raise", r.Clip.Name)
	assert.Equal(t, 1, r.Clip.Channels)
}

func TestBones(t *testing.T) {
	model, cfg := writeArm(t)

	var out bytes.Buffer
	require.NoError(t, cmdBones([]string{"-config", cfg, model}, &out))

	assert.Contains(t, out.String(), "  shoulder  [bone=0 animated]")
	assert.Contains(t, out.String(), "  sleeve\n")
}

func TestPlay(t *testing.T) {
	model, cfg := writeArm(t)

	var out bytes.Buffer
	require.NoError(t, cmdPlay([]string{"-config", cfg, "-instances", "2", "-format", "yaml", model}, &out))

	var frames []struct {
		Index     int `yaml:"index"`
		Instances []struct {
			ID string `yaml:"id"`
		} `yaml:"instances"`
	}
	require.NoError(t, yaml.Unmarshal(out.Bytes(), &frames))
	require.Len(t, frames, 3)
	assert.Equal(t, 3, frames[2].Index)
	assert.Len(t, frames[0].Instances, 2)
}

func TestDump(t *testing.T) {
	model, cfg := writeArm(t)

	var out bytes.Buffer
	require.NoError(t, cmdDump([]string{"-config", cfg, model}, &out))

	var r dumpReport
	require.NoError(t, yaml.Unmarshal(out.Bytes(), &r))
	require.Len(t, r.Nodes, 3)
	assert.Equal(t, "shoulder", r.Nodes[1].Name)
	assert.Equal(t, 0, r.Nodes[1].Bone)
	require.Len(t, r.Palette, 1)
	// bind pose at time 0
	assert.InDelta(t, 1, r.Palette[0][0], 1e-4)
	assert.InDelta(t, 1, r.Palette[0][15], 1e-4)
}

func TestOutputFile(t *testing.T) {
	model, cfg := writeArm(t)
	path := filepath.Join(t.TempDir(), "info.yaml")
	require.NoError(t, os.WriteFile(cfg, []byte("logging:\n  level: error\noutput:\n  path: "+path+"\n"), 0o644))

	var out bytes.Buffer
	require.NoError(t, cmdInfo([]string{"-config", cfg, model}, &out))
	assert.Zero(t, out.Len())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "Bones:    1")
}

func TestOutputFileNotCreatable(t *testing.T) {
	model, cfg := writeArm(t)
	path := filepath.Join(t.TempDir(), "missing", "info.txt")
	require.NoError(t, os.WriteFile(cfg, []byte("logging:\n  level: error\noutput:\n  path: "+path+"\n"), 0o644))

	var out bytes.Buffer
	err := cmdInfo([]string{"-config", cfg, model}, &out)
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
	assert.Zero(t, out.Len())
}

func TestCommandErrors(t *testing.T) {
	_, cfg := writeArm(t)
	var out bytes.Buffer

	assert.Error(t, cmdInfo([]string{"-config", cfg}, &out))
	assert.Error(t, cmdInfo([]string{"-config", cfg, "missing.glb"}, &out))
	assert.Error(t, cmdPlay([]string{"-config", cfg, "-format", "xml", "x.glb"}, &out))
	assert.Error(t, cmdBones([]string{"-nope"}, &out))
}
