package preview

import (
	"image"
	"image/color"
	"math"
)

// frameBuffer holds the render target as flat slices.
type frameBuffer struct {
	width  int
	height int
	color  []uint8   // RGBA interleaved, len = w*h*4
	zbuf   []float64 // depth per pixel, larger is nearer, initialized to -inf
}

func newFrameBuffer(w, h int) *frameBuffer {
	n := w * h
	zbuf := make([]float64, n)
	for i := range zbuf {
		zbuf[i] = math.Inf(-1)
	}
	return &frameBuffer{
		width:  w,
		height: h,
		color:  make([]uint8, n*4),
		zbuf:   zbuf,
	}
}

func (fb *frameBuffer) image() *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, fb.width, fb.height))
	copy(img.Pix, fb.color)
	return img
}

// light is the flat-shading setup: a unit direction and ambient term.
type light struct {
	dir     [3]float64
	ambient float64
}

func defaultLight() light {
	x, y, z := 0.3, 0.5, 0.8
	l := math.Sqrt(x*x + y*y + z*z)
	return light{dir: [3]float64{x / l, y / l, z / l}, ambient: 0.3}
}

// rasterizeTriangle fills one screen-space triangle with a flat-shaded color.
// Both windings are drawn; the z-buffer resolves overlap.
func rasterizeTriangle(fb *frameBuffer, px, py, pz []float64, vi [3]int, base color.NRGBA, lt light) {
	nv := len(px)
	for _, i := range vi {
		if i < 0 || i >= nv {
			return
		}
	}

	x0, y0, z0 := px[vi[0]], py[vi[0]], pz[vi[0]]
	x1, y1, z1 := px[vi[1]], py[vi[1]], pz[vi[1]]
	x2, y2, z2 := px[vi[2]], py[vi[2]], pz[vi[2]]

	// Face normal in screen space; y points down so flip it back.
	e1x, e1y, e1z := x1-x0, y0-y1, z1-z0
	e2x, e2y, e2z := x2-x0, y0-y2, z2-z0
	nx := e1y*e2z - e1z*e2y
	ny := e1z*e2x - e1x*e2z
	nz := e1x*e2y - e1y*e2x
	nl := math.Sqrt(nx*nx + ny*ny + nz*nz)
	if nl < 1e-8 {
		return
	}
	ndl := math.Abs(nx*lt.dir[0]+ny*lt.dir[1]+nz*lt.dir[2]) / nl
	shade := lt.ambient + (1-lt.ambient)*ndl
	r := clamp255(float64(base.R) * shade)
	g := clamp255(float64(base.G) * shade)
	b := clamp255(float64(base.B) * shade)

	minX := int(math.Floor(math.Min(math.Min(x0, x1), x2)))
	maxX := int(math.Ceil(math.Max(math.Max(x0, x1), x2)))
	minY := int(math.Floor(math.Min(math.Min(y0, y1), y2)))
	maxY := int(math.Ceil(math.Max(math.Max(y0, y1), y2)))
	if minX < 0 {
		minX = 0
	}
	if maxX >= fb.width {
		maxX = fb.width - 1
	}
	if minY < 0 {
		minY = 0
	}
	if maxY >= fb.height {
		maxY = fb.height - 1
	}
	if minX > maxX || minY > maxY {
		return
	}

	det := (y1-y2)*(x0-x2) + (x2-x1)*(y0-y2)
	if det > -1e-8 && det < 1e-8 {
		return
	}
	invDet := 1.0 / det

	dy12 := y1 - y2
	dx21 := x2 - x1
	dy20 := y2 - y0
	dx02 := x0 - x2

	for sy := minY; sy <= maxY; sy++ {
		dsy := float64(sy) + 0.5 - y2
		rowOff := sy * fb.width
		for sx := minX; sx <= maxX; sx++ {
			dsx := float64(sx) + 0.5 - x2
			w0 := (dy12*dsx + dx21*dsy) * invDet
			w1 := (dy20*dsx + dx02*dsy) * invDet
			w2 := 1.0 - w0 - w1
			if w0 < -0.001 || w1 < -0.001 || w2 < -0.001 {
				continue
			}

			z := w0*z0 + w1*z1 + w2*z2
			idx := rowOff + sx
			if z <= fb.zbuf[idx] {
				continue
			}
			fb.zbuf[idx] = z

			p := idx * 4
			fb.color[p] = r
			fb.color[p+1] = g
			fb.color[p+2] = b
			fb.color[p+3] = base.A
		}
	}
}

func clamp255(v float64) uint8 {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v + 0.5)
}
