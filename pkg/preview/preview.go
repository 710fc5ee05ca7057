// Package preview renders decoded assets to small flat-shaded thumbnails.
//
// Geometry is rotated by a fixed yaw and pitch, fitted to the image with an
// orthographic projection and rasterized with a z-buffer. Images are drawn
// at Size*Supersample and filtered down, then written as lossless WebP.
package preview

import (
	"errors"
	"image"
	"image/color"
	"math"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/Faultbox/ezmodel/pkg/formats"
)

// ErrNothingToDraw is returned for assets without any triangles.
var ErrNothingToDraw = errors.New("asset has no triangles to draw")

// Options controls the rendered view.
type Options struct {
	Size        int     // output edge length in pixels
	Supersample int     // render scale factor before downsampling
	Yaw         float32 // rotation about Y, radians
	Pitch       float32 // rotation about X, radians
	Color       color.NRGBA
}

// DefaultOptions returns a three-quarter view at 256 pixels.
func DefaultOptions() Options {
	return Options{
		Size:        256,
		Supersample: 2,
		Yaw:         mgl32.DegToRad(-30),
		Pitch:       mgl32.DegToRad(20),
		Color:       color.NRGBA{R: 180, G: 180, B: 190, A: 255},
	}
}

// triangleSet is one vertex array with the faces indexing it.
type triangleSet struct {
	positions []formats.Vec3
	faces     []formats.Face
}

func collect(a *formats.Asset) []triangleSet {
	var sets []triangleSet
	for _, obj := range a.Objects {
		for _, m := range obj.Meshes {
			if len(m.Faces) > 0 {
				sets = append(sets, triangleSet{m.Positions, m.Faces})
			}
		}
	}
	for _, s := range a.Shapes {
		if len(s.Faces) > 0 {
			sets = append(sets, triangleSet{s.Positions, s.Faces})
		}
	}
	return sets
}

// Render draws a at opts.Size*opts.Supersample pixels. The result has a
// transparent background.
func Render(a *formats.Asset, opts Options) (*image.NRGBA, error) {
	sets := collect(a)
	if len(sets) == 0 {
		return nil, ErrNothingToDraw
	}
	if opts.Supersample < 1 {
		opts.Supersample = 1
	}
	renderSize := opts.Size * opts.Supersample

	rot := mgl32.Rotate3DX(opts.Pitch).Mul3(mgl32.Rotate3DY(opts.Yaw))

	rotated := make([][]mgl32.Vec3, len(sets))
	minV := [3]float64{math.Inf(1), math.Inf(1), math.Inf(1)}
	maxV := [3]float64{math.Inf(-1), math.Inf(-1), math.Inf(-1)}
	for i, s := range sets {
		rotated[i] = make([]mgl32.Vec3, len(s.positions))
		for j, p := range s.positions {
			v := rot.Mul3x1(mgl32.Vec3(p))
			rotated[i][j] = v
			for k := 0; k < 3; k++ {
				minV[k] = math.Min(minV[k], float64(v[k]))
				maxV[k] = math.Max(maxV[k], float64(v[k]))
			}
		}
	}

	center := [3]float64{
		(minV[0] + maxV[0]) / 2,
		(minV[1] + maxV[1]) / 2,
		(minV[2] + maxV[2]) / 2,
	}
	span := math.Max(maxV[0]-minV[0], maxV[1]-minV[1])
	if span < 0.001 {
		span = 0.001
	}
	margin := renderSize / 16
	scale := float64(renderSize-2*margin) / span
	half := float64(renderSize) / 2

	fb := newFrameBuffer(renderSize, renderSize)
	lt := defaultLight()
	for i, s := range sets {
		verts := rotated[i]
		px := make([]float64, len(verts))
		py := make([]float64, len(verts))
		pz := make([]float64, len(verts))
		for j, v := range verts {
			px[j] = (float64(v[0])-center[0])*scale + half
			py[j] = half - (float64(v[1])-center[1])*scale
			pz[j] = float64(v[2]) - center[2]
		}
		for _, f := range s.faces {
			rasterizeTriangle(fb, px, py, pz, [3]int{int(f[0]), int(f[1]), int(f[2])}, opts.Color, lt)
		}
	}
	return fb.image(), nil
}

// Thumbnail renders a and filters it down to opts.Size.
func Thumbnail(a *formats.Asset, opts Options) (*image.NRGBA, error) {
	img, err := Render(a, opts)
	if err != nil {
		return nil, err
	}
	if opts.Supersample > 1 {
		img = Downsample(img, opts.Size)
	}
	return img, nil
}
