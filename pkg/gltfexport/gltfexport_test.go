package gltfexport

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/qmuntal/gltf"

	"github.com/Faultbox/ezmodel/pkg/formats"
)

func triangleMesh(name string) *formats.Mesh {
	return &formats.Mesh{
		Name:      name,
		Positions: []formats.Vec3{{0, 0, 0}, {1, 0, 0}, {0, 2, 0}},
		Normals:   []formats.Vec3{{0, 0, 1}, {0, 0, 1}, {0, 0, 1}},
		UVs:       []formats.Vec2{{0, 0}, {1, 0}, {0, 1}},
		Faces:     []formats.Face{{0, 1, 2}},
	}
}

func translation(name string, x, y, z float32) formats.BindPoseBone {
	return formats.BindPoseBone{Name: name, Matrix: [16]float32{
		1, 0, 0, x,
		0, 1, 0, y,
		0, 0, 1, z,
		0, 0, 0, 1,
	}}
}

func skeletalAsset(t *testing.T) *formats.Asset {
	t.Helper()
	sk := formats.NewSkeleton()
	for _, p := range [][2]string{{"root", ""}, {"spine", "root"}} {
		if _, err := sk.Add(p[0], p[1]); err != nil {
			t.Fatal(err)
		}
	}
	return &formats.Asset{
		Schema:        formats.SchemaSkeletal,
		FormatVersion: formats.Version2018,
		Objects: []*formats.Object{
			{Name: "body", Meshes: []*formats.Mesh{triangleMesh("skin_mesh"), {Name: "empty"}}},
		},
		BindPose:         []formats.BindPoseBone{translation("root", 0, 1, 0), translation("spine", 0, 3, 0)},
		Skeleton:         sk,
		MeshNameBindings: map[string]string{"skin_mesh": "spine"},
	}
}

func nodeByName(doc *gltf.Document, name string) (int, *gltf.Node) {
	for i, n := range doc.Nodes {
		if n.Name == name {
			return i, n
		}
	}
	return -1, nil
}

func TestBuild_Skeletal(t *testing.T) {
	doc, err := Build(skeletalAsset(t))
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	if len(doc.Meshes) != 1 {
		t.Fatalf("got %d meshes, want 1 (empty mesh skipped)", len(doc.Meshes))
	}
	prim := doc.Meshes[0].Primitives[0]
	for _, attr := range []string{"POSITION", "NORMAL", "TEXCOORD_0"} {
		if _, ok := prim.Attributes[attr]; !ok {
			t.Errorf("missing attribute %s", attr)
		}
	}
	if prim.Indices == nil || doc.Accessors[*prim.Indices].Count != 3 {
		t.Errorf("indices accessor = %v", prim.Indices)
	}
	pos := doc.Accessors[prim.Attributes["POSITION"]]
	if pos.Count != 3 || len(pos.Max) != 3 || pos.Max[1] != 2 {
		t.Errorf("POSITION accessor count %d max %v", pos.Count, pos.Max)
	}

	bodyIdx, body := nodeByName(doc, "body")
	if body == nil || len(body.Children) != 1 {
		t.Fatalf("body node = %+v", body)
	}
	meshNode := doc.Nodes[body.Children[0]]
	if meshNode.Name != "skin_mesh" || meshNode.Mesh == nil || *meshNode.Mesh != 0 {
		t.Errorf("mesh node = %+v", meshNode)
	}

	rootIdx, root := nodeByName(doc, "root")
	_, spine := nodeByName(doc, "spine")
	if root == nil || spine == nil {
		t.Fatal("skeleton nodes missing")
	}
	scene := doc.Scenes[0].Nodes
	if len(scene) != 2 || int(scene[0]) != bodyIdx || int(scene[1]) != rootIdx {
		t.Errorf("scene roots = %v", scene)
	}
	// Column-major translation lives in elements 12..14; spine is local to root.
	if root.Matrix[13] != 1 || spine.Matrix[13] != 2 {
		t.Errorf("root ty = %v, spine local ty = %v", root.Matrix[13], spine.Matrix[13])
	}
}

func TestBuild_Shape(t *testing.T) {
	sk := formats.NewSkeleton()
	if _, err := sk.Add("obj", ""); err != nil {
		t.Fatal(err)
	}
	a := &formats.Asset{
		Schema:        formats.SchemaShape,
		FormatVersion: formats.Version2015,
		Shapes: []formats.Shape{
			{Name: "bound", Positions: []formats.Vec3{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}}, Faces: []formats.Face{{0, 1, 2}}},
			{Name: "loose", Positions: []formats.Vec3{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}}, Faces: []formats.Face{{0, 1, 2}}},
		},
		Skeleton:         sk,
		MeshNameBindings: map[string]string{"obj": "bound"},
	}

	doc, err := Build(a)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if len(doc.Meshes) != 2 {
		t.Fatalf("got %d meshes, want 2", len(doc.Meshes))
	}
	_, obj := nodeByName(doc, "obj")
	if obj == nil || obj.Mesh == nil || *obj.Mesh != 0 {
		t.Errorf("obj node = %+v", obj)
	}
	_, loose := nodeByName(doc, "loose")
	if loose == nil || loose.Mesh == nil || *loose.Mesh != 1 {
		t.Errorf("loose node = %+v", loose)
	}
	if _, bound := nodeByName(doc, "bound"); bound != nil {
		t.Error("bound shape should only hang off its hierarchy node")
	}
}

func TestBuild_Empty(t *testing.T) {
	a := &formats.Asset{Schema: formats.SchemaSkeletal, Skeleton: formats.NewSkeleton()}
	if _, err := Build(a); !errors.Is(err, ErrEmptyAsset) {
		t.Errorf("expected ErrEmptyAsset, got %v", err)
	}
}

func TestUVFlip(t *testing.T) {
	in := []formats.Vec2{{0.25, 0.25}}
	if got := uvs(in, false)[0]; got != [2]float32{0.25, 0.25} {
		t.Errorf("unflipped = %v", got)
	}
	if got := uvs(in, true)[0]; got != [2]float32{0.25, 0.75} {
		t.Errorf("flipped = %v", got)
	}
}

func TestSave(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "model.glb")
	if err := Save(skeletalAsset(t), path); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	doc, err := gltf.Open(path)
	if err != nil {
		t.Fatalf("gltf.Open failed: %v", err)
	}
	if len(doc.Meshes) != 1 || len(doc.Nodes) != 4 {
		t.Errorf("reloaded %d meshes and %d nodes, want 1 and 4", len(doc.Meshes), len(doc.Nodes))
	}
}
