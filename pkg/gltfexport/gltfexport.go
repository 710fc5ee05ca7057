// Package gltfexport converts decoded model assets to glTF 2.0 documents.
//
// Meshes and shapes become mesh nodes; the bone or object hierarchy becomes
// a node tree. Skinning and animation are not exported.
package gltfexport

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"

	"github.com/Faultbox/ezmodel/pkg/formats"
)

// ErrEmptyAsset is returned when an asset has no exportable geometry.
var ErrEmptyAsset = errors.New("asset has no triangles to export")

type builder struct {
	doc   *gltf.Document
	asset *formats.Asset
	flipV bool

	bindWorld map[string]mgl32.Mat4 // bone name -> bind-pose world matrix
}

// Build converts a to a glTF document.
func Build(a *formats.Asset) (*gltf.Document, error) {
	b := &builder{
		doc:       gltf.NewDocument(),
		asset:     a,
		flipV:     a.FlipV(),
		bindWorld: make(map[string]mgl32.Mat4, len(a.BindPose)),
	}
	for _, bone := range a.BindPose {
		b.bindWorld[bone.Name] = bone.Mat4()
	}

	var meshes int
	switch a.Schema {
	case formats.SchemaShape:
		meshes = b.addShapes()
	default:
		meshes = b.addObjects()
		b.addSkeleton(nil)
	}
	if meshes == 0 {
		return nil, ErrEmptyAsset
	}
	return b.doc, nil
}

// Save writes a as a binary glTF (.glb) file.
func Save(a *formats.Asset, path string) error {
	doc, err := Build(a)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	if err := gltf.SaveBinary(doc, path); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}

func (b *builder) addNode(n *gltf.Node, parent *uint32) uint32 {
	idx := uint32(len(b.doc.Nodes))
	b.doc.Nodes = append(b.doc.Nodes, n)
	if parent == nil {
		b.doc.Scenes[0].Nodes = append(b.doc.Scenes[0].Nodes, idx)
	} else {
		p := b.doc.Nodes[*parent]
		p.Children = append(p.Children, idx)
	}
	return idx
}

// addObjects emits one node per object with a child node per mesh.
func (b *builder) addObjects() int {
	count := 0
	for _, obj := range b.asset.Objects {
		objIdx := b.addNode(&gltf.Node{Name: obj.Name}, nil)
		for _, m := range obj.Meshes {
			meshIdx, ok := b.addMesh(m)
			if !ok {
				continue
			}
			node := &gltf.Node{Name: m.Name, Mesh: gltf.Index(meshIdx)}
			if bone, ok := b.asset.MeshNameBindings[m.Name]; ok {
				node.Extras = map[string]interface{}{"bone": bone}
			}
			b.addNode(node, gltf.Index(objIdx))
			count++
		}
	}
	return count
}

func (b *builder) addMesh(m *formats.Mesh) (uint32, bool) {
	if len(m.Faces) == 0 {
		return 0, false
	}

	attributes := map[string]uint32{
		"POSITION": modeler.WritePosition(b.doc, vec3s(m.Positions)),
	}
	if len(m.Normals) == len(m.Positions) {
		attributes["NORMAL"] = modeler.WriteNormal(b.doc, vec3s(m.Normals))
	}
	if len(m.UVs) == len(m.Positions) {
		attributes["TEXCOORD_0"] = modeler.WriteTextureCoord(b.doc, uvs(m.UVs, b.flipV))
	}

	b.doc.Meshes = append(b.doc.Meshes, &gltf.Mesh{
		Name: m.Name,
		Primitives: []*gltf.Primitive{{
			Attributes: attributes,
			Indices:    gltf.Index(modeler.WriteIndices(b.doc, indices(m.Faces))),
		}},
	})
	return uint32(len(b.doc.Meshes) - 1), true
}

// addShapes emits shape meshes, attached to hierarchy nodes that name them.
// Shapes nothing refers to become root nodes.
func (b *builder) addShapes() int {
	shapeMesh := make(map[string]uint32)
	for _, s := range b.asset.Shapes {
		if len(s.Faces) == 0 {
			continue
		}
		b.doc.Meshes = append(b.doc.Meshes, &gltf.Mesh{
			Name: s.Name,
			Primitives: []*gltf.Primitive{{
				Attributes: map[string]uint32{
					"POSITION": modeler.WritePosition(b.doc, vec3s(s.Positions)),
				},
				Indices: gltf.Index(modeler.WriteIndices(b.doc, indices(s.Faces))),
			}},
		})
		shapeMesh[s.Name] = uint32(len(b.doc.Meshes) - 1)
	}

	used := make(map[string]bool)
	b.addSkeleton(func(node *gltf.Node, name string) {
		shape, ok := b.asset.MeshNameBindings[name]
		if !ok {
			return
		}
		if idx, ok := shapeMesh[shape]; ok {
			node.Mesh = gltf.Index(idx)
			used[shape] = true
		}
	})

	for _, s := range b.asset.Shapes {
		idx, ok := shapeMesh[s.Name]
		if !ok || used[s.Name] {
			continue
		}
		b.addNode(&gltf.Node{Name: s.Name, Mesh: gltf.Index(idx)}, nil)
	}
	return len(shapeMesh)
}

// addSkeleton mirrors the hierarchy arena as glTF nodes. Bones with a
// bind pose get a local matrix relative to their parent's bind pose.
func (b *builder) addSkeleton(decorate func(node *gltf.Node, name string)) {
	sk := b.asset.Skeleton
	if sk == nil || sk.Len() == 0 {
		return
	}

	gltfIdx := make([]uint32, sk.Len())
	sk.Walk(func(idx, depth int) bool {
		n := sk.Nodes[idx]
		node := &gltf.Node{Name: n.Name}
		if local, ok := b.localBind(n); ok {
			node.Matrix = local
		}
		if decorate != nil {
			decorate(node, n.Name)
		}

		var parent *uint32
		if n.Parent >= 0 {
			parent = gltf.Index(gltfIdx[n.Parent])
		}
		gltfIdx[idx] = b.addNode(node, parent)
		return true
	})
}

func (b *builder) localBind(n formats.SkeletonNode) ([16]float32, bool) {
	world, ok := b.bindWorld[n.Name]
	if !ok {
		return [16]float32{}, false
	}
	if n.Parent >= 0 {
		if parentWorld, ok := b.bindWorld[b.asset.Skeleton.Nodes[n.Parent].Name]; ok && parentWorld.Det() != 0 {
			world = parentWorld.Inv().Mul4(world)
		}
	}
	return world, true
}

func vec3s(vs []formats.Vec3) [][3]float32 {
	out := make([][3]float32, len(vs))
	for i, v := range vs {
		out[i] = v
	}
	return out
}

func uvs(vs []formats.Vec2, flipV bool) [][2]float32 {
	out := make([][2]float32, len(vs))
	for i, v := range vs {
		out[i] = v
		if flipV {
			out[i][1] = 1 - v[1]
		}
	}
	return out
}

func indices(faces []formats.Face) []uint32 {
	out := make([]uint32, 0, len(faces)*3)
	for _, f := range faces {
		out = append(out, f[0], f[1], f[2])
	}
	return out
}
