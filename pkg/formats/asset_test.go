package formats

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
)

func TestBindPoseBone_Mat4(t *testing.T) {
	b := BindPoseBone{Name: "hip"}
	copy(b.Matrix[:], identity())
	b.Matrix[3] = 4 // row 0, column 3: x translation
	b.Matrix[7] = 5
	b.Matrix[11] = 6

	m := b.Mat4()
	if got := m.Col(3); got != (mgl32.Vec4{4, 5, 6, 1}) {
		t.Errorf("translation column = %v", got)
	}

	inv := b.Inverse()
	if got := inv.Col(3); !got.ApproxEqual(mgl32.Vec4{-4, -5, -6, 1}) {
		t.Errorf("inverse translation = %v", got)
	}
	if !m.Mul4(inv).ApproxEqual(mgl32.Ident4()) {
		t.Error("M * M^-1 is not identity")
	}
}

func TestBindPoseBone_SingularInverse(t *testing.T) {
	var b BindPoseBone
	b.Matrix[0] = 1
	if b.Inverse() != b.Mat4() {
		t.Error("singular matrix should be returned unchanged")
	}
}

func TestKeyframe_Transform(t *testing.T) {
	k := Keyframe{
		Scale:    Vec3{2, 2, 2},
		Rotation: Quat{0, 0, 0, 1},
		Location: Vec3{1, 2, 3},
	}
	q := k.Quat()
	if q.W != 1 || q.V != (mgl32.Vec3{}) {
		t.Errorf("Quat = %v", q)
	}

	p := k.Mat4().Mul4x1(mgl32.Vec4{1, 0, 0, 1})
	if !p.ApproxEqual(mgl32.Vec4{3, 2, 3, 1}) {
		t.Errorf("transformed point = %v, want [3 2 3 1]", p)
	}
}

func TestAsset_Lookups(t *testing.T) {
	a := &Asset{
		FormatVersion: Version2015,
		Objects: []*Object{
			{Name: "body", Meshes: []*Mesh{{Name: "m0", Positions: make([]Vec3, 4)}, {Name: "m1"}}},
			{Name: "hat", Meshes: []*Mesh{{Name: "m0", Positions: make([]Vec3, 2)}}},
		},
		Shapes:     []Shape{{Positions: make([]Vec3, 5)}},
		Animations: []AnimationClip{{Name: "walk"}, {Name: "run"}},
	}

	if a.Object("hat") == nil || a.Object("cape") != nil {
		t.Error("Object lookup failed")
	}
	if a.Object("body").Mesh("m1") == nil || a.Object("body").Mesh("m2") != nil {
		t.Error("Mesh lookup failed")
	}
	if a.MeshCount() != 3 {
		t.Errorf("MeshCount = %d, want 3", a.MeshCount())
	}
	if a.VertexCount() != 11 {
		t.Errorf("VertexCount = %d, want 11", a.VertexCount())
	}
	if c := a.Animation("run"); c == nil || c.Name != "run" {
		t.Errorf("Animation(run) = %v", c)
	}
	if a.Animation("jump") != nil {
		t.Error("Animation(jump) should be nil")
	}
	if !a.FlipV() {
		t.Error("2015 asset should flip V")
	}
}

func TestSchema_String(t *testing.T) {
	tests := []struct {
		s    Schema
		want string
	}{
		{SchemaSkeletal, "ymd"},
		{SchemaShape, "aura"},
		{Schema(9), "Unknown(9)"},
	}
	for _, tt := range tests {
		if got := tt.s.String(); got != tt.want {
			t.Errorf("%d.String() = %q, want %q", int(tt.s), got, tt.want)
		}
	}
}
