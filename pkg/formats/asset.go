package formats

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"
)

// Schema identifies which asset layout produced an Asset.
type Schema int

const (
	SchemaSkeletal Schema = iota // rigged model (.ymd)
	SchemaShape                  // aura shape asset
)

// String returns the schema name.
func (s Schema) String() string {
	switch s {
	case SchemaSkeletal:
		return "ymd"
	case SchemaShape:
		return "aura"
	default:
		return fmt.Sprintf("Unknown(%d)", int(s))
	}
}

// Known format version tags.
const (
	Version2015 int32 = 20158017
	Version2018 int32 = 20181101
)

// KnownVersion reports whether v is a version tag this package was built against.
func KnownVersion(v int32) bool {
	return v == Version2015 || v == Version2018
}

type (
	Vec2 [2]float32
	Vec3 [3]float32
	// Quat is a rotation stored as X, Y, Z, W.
	Quat [4]float32
	// Face is a triangle of vertex indices.
	Face [3]uint32
)

// Asset is one decoded model. It owns every nested structure.
type Asset struct {
	Schema        Schema
	FormatVersion int32

	Objects          []*Object
	BindPose         []BindPoseBone
	Skeleton         *Skeleton
	Animations       []AnimationClip
	MeshNameBindings map[string]string // mesh name -> hierarchy node name

	// Shape-asset sections.
	Materials []MaterialRef
	Shapes    []Shape
	Curves    []CurveTrack
}

// Supported reports whether the version tag is in the known set.
// Assets with unknown tags decode best-effort and are otherwise untouched.
func (a *Asset) Supported() bool {
	return KnownVersion(a.FormatVersion)
}

// FlipV reports whether consumers should use 1-v for texture coordinates.
// Versions before 2018-11-01 store V top-down.
func (a *Asset) FlipV() bool {
	return a.FormatVersion < Version2018
}

// Object returns the object with the given name, or nil.
func (a *Asset) Object(name string) *Object {
	for _, o := range a.Objects {
		if o.Name == name {
			return o
		}
	}
	return nil
}

// MeshCount returns the number of meshes across all objects.
func (a *Asset) MeshCount() int {
	n := 0
	for _, o := range a.Objects {
		n += len(o.Meshes)
	}
	return n
}

// VertexCount returns the number of vertices across all meshes and shapes.
func (a *Asset) VertexCount() int {
	n := 0
	for _, o := range a.Objects {
		for _, m := range o.Meshes {
			n += len(m.Positions)
		}
	}
	for _, s := range a.Shapes {
		n += len(s.Positions)
	}
	return n
}

// Animation returns the first clip with the given name, or nil.
func (a *Asset) Animation(name string) *AnimationClip {
	for i := range a.Animations {
		if a.Animations[i].Name == name {
			return &a.Animations[i]
		}
	}
	return nil
}

// Object is a logical group of meshes.
type Object struct {
	Name   string
	Meshes []*Mesh
}

// Mesh returns the mesh with the given name, or nil.
func (o *Object) Mesh(name string) *Mesh {
	for _, m := range o.Meshes {
		if m.Name == name {
			return m
		}
	}
	return nil
}

// Mesh holds de-indexed geometry: positions, normals and uvs are parallel.
type Mesh struct {
	Name      string
	Positions []Vec3
	Normals   []Vec3
	UVs       []Vec2
	Faces     []Face

	// FaceGroupsIdx holds one entry per face element pointing into FaceGroups.
	FaceGroupsIdx []uint32
	BoneNames     []string
	FaceGroups    []WeightGroup
}

// WeightGroup is a set of bone influences. BoneIdx indexes Mesh.BoneNames.
type WeightGroup struct {
	BoneIdx []uint32
	Weight  []float32
}

// BindPoseBone is a bone's reference transform, 16 floats in row-major order.
type BindPoseBone struct {
	Name   string
	Matrix [16]float32
}

// Mat4 returns the matrix as an mgl32 (column-major) value.
func (b BindPoseBone) Mat4() mgl32.Mat4 {
	m := b.Matrix
	return mgl32.Mat4FromRows(
		mgl32.Vec4{m[0], m[1], m[2], m[3]},
		mgl32.Vec4{m[4], m[5], m[6], m[7]},
		mgl32.Vec4{m[8], m[9], m[10], m[11]},
		mgl32.Vec4{m[12], m[13], m[14], m[15]},
	)
}

// Inverse returns the inverted bind matrix. Singular matrices are returned
// unchanged, matching how importers fall back when inversion fails.
func (b BindPoseBone) Inverse() mgl32.Mat4 {
	m := b.Mat4()
	if m.Det() == 0 {
		return m
	}
	return m.Inv()
}

// AnimationClip maps bone (or object) names to keyframe tracks.
// Every track has FrameCount frames.
type AnimationClip struct {
	Name       string
	FrameCount int
	Tracks     []Track
}

// Track returns the frames for a bone, or nil.
func (c *AnimationClip) Track(bone string) []Keyframe {
	for _, t := range c.Tracks {
		if t.Bone == bone {
			return t.Frames
		}
	}
	return nil
}

// Track is one bone's keyframes in stored order.
type Track struct {
	Bone   string
	Frames []Keyframe
	// Stride is the inferred record length in floats.
	Stride int
}

// Keyframe is a sampled local transform.
type Keyframe struct {
	Time     float32
	Scale    Vec3
	Rotation Quat
	Location Vec3
}

// Quat returns the rotation as an mgl32 quaternion.
func (k Keyframe) Quat() mgl32.Quat {
	r := k.Rotation
	return mgl32.Quat{W: r[3], V: mgl32.Vec3{r[0], r[1], r[2]}}
}

// Mat4 composes translation, rotation and scale.
func (k Keyframe) Mat4() mgl32.Mat4 {
	t := mgl32.Translate3D(k.Location[0], k.Location[1], k.Location[2])
	s := mgl32.Scale3D(k.Scale[0], k.Scale[1], k.Scale[2])
	return t.Mul4(k.Quat().Normalize().Mat4()).Mul4(s)
}

// MaterialRef is a shape-asset material. Params are opaque texture slot bindings.
type MaterialRef struct {
	Name         string
	MaterialName string // only in 2018-11-01 assets
	Variant      string
	Texture      string
	Params       []KeyValue
}

// KeyValue is an ordered string pair.
type KeyValue struct {
	Key   string
	Value string
}

// Shape is a morph-style vertex set from the aura schema.
type Shape struct {
	Name      string
	Material  string
	Positions []Vec3
	Indices   []uint32
	Faces     []Face
}

// CurveTrack is a named list of 9-float samples trailing the aura clip.
type CurveTrack struct {
	Name    string
	Samples [][9]float32
}
