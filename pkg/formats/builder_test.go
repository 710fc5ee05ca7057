package formats

import (
	"bytes"
	"encoding/binary"
)

// assetWriter builds little-endian asset fixtures.
type assetWriter struct {
	bytes.Buffer
}

func (w *assetWriter) i32(vs ...int32) *assetWriter {
	for _, v := range vs {
		binary.Write(&w.Buffer, binary.LittleEndian, v)
	}
	return w
}

func (w *assetWriter) f32(vs ...float32) *assetWriter {
	for _, v := range vs {
		binary.Write(&w.Buffer, binary.LittleEndian, v)
	}
	return w
}

func (w *assetWriter) str(s string) *assetWriter {
	w.i32(int32(len(s)))
	w.WriteString(s)
	return w
}

func (w *assetWriter) zeros(n int) *assetWriter {
	w.Write(make([]byte, n))
	return w
}

// vertex writes position, normal, uv and filler bytes of padding.
func (w *assetWriter) vertex(x, y, z float32, filler int) *assetWriter {
	w.f32(x, y, z, 0, 1, 0, x, y)
	return w.zeros(filler)
}

// triangleSubMesh writes a sub-mesh of n vertices with n face elements.
func (w *assetWriter) triangleSubMesh(n int, stride int32, group int32) *assetWriter {
	w.i32(int32(n))
	for i := 0; i < n; i++ {
		w.vertex(float32(i), float32(i)*2, float32(i)*3, int(stride)-32)
	}
	w.i32(int32(n))
	for i := 0; i < n; i++ {
		w.i32(group)
	}
	return w
}

// keyframe writes the 11 interpreted floats of a frame.
func (w *assetWriter) keyframe(t float32, loc float32) *assetWriter {
	return w.f32(t, 1, 1, 1, 0, 0, 0, 1, loc, 0, 0)
}

// bone writes a hierarchy entry with an optional mesh binding.
func (w *assetWriter) bone(name, parent, mesh string) *assetWriter {
	w.str(name).str(parent)
	if mesh == "" {
		w.i32(0)
	} else {
		w.i32(1).str(mesh)
	}
	return w.f32(1, 2, 3, 4, 5, 6, 7, 8, 9, 10)
}

// ymdHeader writes a version tag and padding so that the geometry section
// starts at offset 8.
func ymdHeader(version int32) *assetWriter {
	w := &assetWriter{}
	w.i32(version, 0)
	return w
}

// singleTriangle writes one "skin_mesh" on object "body" with a loop
// count of 1. The mesh name carries the "skin" token at offset 16.
func singleTriangle(w *assetWriter) {
	w.i32(1) // mesh count
	w.str("skin_mesh").i32(1).zeros(8)
	w.str("body").i32(32)
	w.triangleSubMesh(3, 32, 0)
}

// buildYMD assembles a skeletal asset. Nil sections get defaults: one
// triangle, no bind sets, a single root bone and no clips.
func buildYMD(version int32, geometry, bind, skeleton, clips func(w *assetWriter)) []byte {
	w := ymdHeader(version)
	if geometry == nil {
		geometry = singleTriangle
	}
	geometry(w)
	if bind == nil {
		bind = func(w *assetWriter) { w.i32(0) }
	}
	bind(w)
	if skeleton == nil {
		skeleton = func(w *assetWriter) { w.i32(1).bone("root", "", "") }
	}
	skeleton(w)
	if clips == nil {
		clips = func(w *assetWriter) { w.i32(0) }
	}
	clips(w)
	return w.Bytes()
}

// minimalYMD is one triangle, no bind sets, one root bone and no clips.
func minimalYMD(version int32) []byte {
	return buildYMD(version, nil, nil, nil, nil)
}

func identity() []float32 {
	return []float32{1, 0, 0, 0, 0, 1, 0, 0, 0, 0, 1, 0, 0, 0, 0, 1}
}
