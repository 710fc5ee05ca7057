package formats

import (
	"fmt"

	"go.uber.org/zap"
)

// Shape vertex records are 12 floats (position plus 9 unused) and each
// vertex also has one index word.
const (
	shapeVertexBytes = 12 * 4
	shapeIndexBytes  = 4
)

// auraKeyframeFloats is how many floats of an aura keyframe are interpreted;
// the remainder of the inferred stride is skipped.
const auraKeyframeFloats = 11

type auraDecoder struct {
	c     *Cursor
	log   *zap.Logger
	asset *Asset
}

// DecodeAura decodes a shape asset. On error no Asset is returned.
func DecodeAura(data []byte, opts ...Option) (*Asset, error) {
	o := buildOptions(opts)
	c := NewCursor(data, o.decode)

	version, err := c.ReadI32()
	if err != nil {
		return nil, &DecodeError{Schema: SchemaShape, Section: "header", Err: err}
	}

	log := o.log.With(zap.String("schema", SchemaShape.String()), zap.Int32("version", version))
	if !KnownVersion(version) {
		log.Warn("unsupported format version, decoding best-effort")
	}

	d := &auraDecoder{
		c:   c,
		log: log,
		asset: &Asset{
			Schema:           SchemaShape,
			FormatVersion:    version,
			Skeleton:         NewSkeleton(),
			MeshNameBindings: make(map[string]string),
		},
	}

	passes := []struct {
		name string
		run  func() error
	}{
		{"materials", d.readMaterials},
		{"shapes", d.readShapes},
		{"hierarchy", d.readHierarchy},
		{"animation", d.readAnimation},
		{"curves", d.readCurves},
	}
	for _, p := range passes {
		if err := p.run(); err != nil {
			return nil, wrapSection(SchemaShape, p.name, c, err)
		}
		log.Debug("pass complete", zap.String("pass", p.name), zap.Int("offset", c.Tell()))
	}

	return d.asset, nil
}

func (d *auraDecoder) readMaterials() error {
	c := d.c
	count, err := c.ReadCount(12)
	if err != nil {
		return fmt.Errorf("material count: %w", err)
	}

	d.asset.Materials = make([]MaterialRef, 0, count)
	for i := 0; i < count; i++ {
		m, err := d.readMaterial()
		if err != nil {
			return fmt.Errorf("material %d: %w", i, err)
		}
		d.asset.Materials = append(d.asset.Materials, m)
	}
	return nil
}

func (d *auraDecoder) readMaterial() (MaterialRef, error) {
	c := d.c
	var m MaterialRef
	var err error

	if m.Name, err = c.ReadString(); err != nil {
		return m, err
	}
	if d.asset.FormatVersion == Version2018 {
		if m.MaterialName, err = c.ReadString(); err != nil {
			return m, err
		}
	}

	// A flag of 1 means no variant string follows.
	flag, err := c.ReadI32()
	if err != nil {
		return m, err
	}
	if flag != 1 {
		if m.Variant, err = c.ReadString(); err != nil {
			return m, err
		}
	}

	if m.Texture, err = c.ReadString(); err != nil {
		return m, err
	}

	params, err := c.ReadCount(12)
	if err != nil {
		return m, fmt.Errorf("param count: %w", err)
	}
	m.Params = make([]KeyValue, params)
	for j := range m.Params {
		if err := c.Skip(4); err != nil {
			return m, err
		}
		if m.Params[j].Key, err = c.ReadString(); err != nil {
			return m, err
		}
		if m.Params[j].Value, err = c.ReadString(); err != nil {
			return m, err
		}
	}
	return m, nil
}

func (d *auraDecoder) readShapes() error {
	c := d.c
	count, err := c.ReadCount(4)
	if err != nil {
		return fmt.Errorf("shape count: %w", err)
	}

	d.asset.Shapes = make([]Shape, 0, count)
	for i := 0; i < count; i++ {
		s, err := d.readShape()
		if err != nil {
			return fmt.Errorf("shape %d: %w", i, err)
		}
		d.asset.Shapes = append(d.asset.Shapes, s)
	}
	return nil
}

func (d *auraDecoder) readShape() (Shape, error) {
	c := d.c
	var s Shape
	var err error

	if s.Name, err = c.ReadString(); err != nil {
		return s, err
	}
	if err := c.Skip(12); err != nil {
		return s, err
	}
	if s.Material, err = c.ReadString(); err != nil {
		return s, err
	}
	if err := c.Skip(4); err != nil {
		return s, err
	}

	n, err := c.ReadCount(shapeVertexBytes + shapeIndexBytes)
	if err != nil {
		return s, fmt.Errorf("%q vertex count: %w", s.Name, err)
	}

	s.Positions = make([]Vec3, n)
	for j := range s.Positions {
		var p [3]float32
		if err := c.readFloats(p[:]); err != nil {
			return s, err
		}
		s.Positions[j] = p
		if err := c.Skip(shapeVertexBytes - 12); err != nil {
			return s, err
		}
	}

	s.Indices = make([]uint32, n)
	for j := range s.Indices {
		idx, err := c.ReadI32()
		if err != nil {
			return s, err
		}
		if idx < 0 {
			return s, fmt.Errorf("%w: index %d in shape %q", ErrInvalidCount, idx, s.Name)
		}
		s.Indices[j] = uint32(idx)
	}
	if err := c.Skip(4); err != nil {
		return s, err
	}

	for j := 0; j+2 < n; j += 3 {
		f := uint32(j)
		s.Faces = append(s.Faces, Face{f, f + 1, f + 2})
	}
	return s, nil
}

func (d *auraDecoder) readHierarchy() error {
	c := d.c
	if err := c.Skip(4); err != nil {
		return err
	}
	count, err := c.ReadCount(8)
	if err != nil {
		return fmt.Errorf("object count: %w", err)
	}
	for i := 0; i < count; i++ {
		if err := readHierarchyEntry(c, d.asset.Skeleton, d.asset.MeshNameBindings, true); err != nil {
			return fmt.Errorf("object %d: %w", i, err)
		}
	}
	return c.Skip(4)
}

func (d *auraDecoder) readAnimation() error {
	c := d.c
	name, err := c.ReadString()
	if err != nil {
		return fmt.Errorf("clip name: %w", err)
	}
	if err := c.Skip(4); err != nil {
		return err
	}

	clip := AnimationClip{Name: name}
	tracks, err := c.ReadCount(8)
	if err != nil {
		return fmt.Errorf("track count: %w", err)
	}
	clip.Tracks = make([]Track, 0, tracks)

	for j := 0; j < tracks; j++ {
		object, err := c.ReadString()
		if err != nil {
			return fmt.Errorf("track %d name: %w", j, err)
		}
		frames, err := c.ReadCount(KeyframeFloats * 4)
		if err != nil {
			return fmt.Errorf("track %q frame count: %w", object, err)
		}
		if err := checkFrameCount(&clip, j, frames, object); err != nil {
			return err
		}

		track := Track{Bone: object, Frames: make([]Keyframe, frames), Stride: KeyframeFloats}
		for k := 0; k < frames; k++ {
			start := c.Tell()
			if track.Frames[k], err = readKeyframe(c); err != nil {
				return fmt.Errorf("track %q frame %d: %w", object, k, err)
			}
			if k == 0 {
				if track.Stride, err = InferStride(c.Bytes(), start+KeyframeFloats*4, track.Frames[0].Time, KeyframeFloats, frames); err != nil {
					return fmt.Errorf("track %q: %w", object, err)
				}
				d.log.Debug("keyframe stride inferred",
					zap.String("object", object),
					zap.Int("stride", track.Stride))
			}
			if err := c.Skip((track.Stride - auraKeyframeFloats) * 4); err != nil {
				return err
			}
		}
		clip.Tracks = append(clip.Tracks, track)
	}

	d.asset.Animations = []AnimationClip{clip}
	return nil
}

func (d *auraDecoder) readCurves() error {
	c := d.c
	count, err := c.ReadCount(8)
	if err != nil {
		return fmt.Errorf("curve count: %w", err)
	}

	d.asset.Curves = make([]CurveTrack, 0, count)
	for i := 0; i < count; i++ {
		var ct CurveTrack
		if ct.Name, err = c.ReadString(); err != nil {
			return fmt.Errorf("curve %d name: %w", i, err)
		}
		n, err := c.ReadCount(9 * 4)
		if err != nil {
			return fmt.Errorf("curve %q sample count: %w", ct.Name, err)
		}
		ct.Samples = make([][9]float32, n)
		for j := range ct.Samples {
			if err := c.readFloats(ct.Samples[j][:]); err != nil {
				return err
			}
		}
		d.asset.Curves = append(d.asset.Curves, ct)
	}
	return nil
}
