package formats

import (
	"fmt"

	"go.uber.org/zap"
)

// vertexFixedBytes is the interpreted part of a vertex record:
// position (3), normal (3) and uv (2) floats.
const vertexFixedBytes = 32

// bindBoneBytes is the smallest bind-pose bone record: name length plus matrix.
const bindBoneBytes = 4 + 64

// ymdDecoder carries the state threaded through the passes of one decode.
type ymdDecoder struct {
	c   *Cursor
	opt options
	log *zap.Logger

	asset      *Asset
	objects    map[string]int      // object name -> index in asset.Objects
	meshOwners map[string][]string // mesh name -> objects holding a mesh of that name
	bindIndex  map[string]int      // bone name -> index in asset.BindPose
}

// DecodeYMD decodes a rigged model. On error no Asset is returned.
func DecodeYMD(data []byte, opts ...Option) (*Asset, error) {
	o := buildOptions(opts)

	layout, err := Sniff(data)
	if err != nil {
		return nil, &DecodeError{Schema: SchemaSkeletal, Section: "header", Err: err}
	}

	log := o.log.With(zap.String("schema", SchemaSkeletal.String()), zap.Int32("version", layout.Version))
	if !KnownVersion(layout.Version) {
		log.Warn("unsupported format version, decoding best-effort")
	}
	log.Debug("geometry section located",
		zap.String("token", layout.Token),
		zap.Int("offset", layout.GeometryOffset))

	c := NewCursor(data, o.decode)
	if err := c.Seek(layout.GeometryOffset); err != nil {
		return nil, &DecodeError{Schema: SchemaSkeletal, Section: "header", Err: err}
	}

	d := &ymdDecoder{
		c:   c,
		opt: o,
		log: log,
		asset: &Asset{
			Schema:           SchemaSkeletal,
			FormatVersion:    layout.Version,
			Skeleton:         NewSkeleton(),
			MeshNameBindings: make(map[string]string),
		},
		objects:    make(map[string]int),
		meshOwners: make(map[string][]string),
		bindIndex:  make(map[string]int),
	}

	passes := []struct {
		name string
		run  func() error
	}{
		{"geometry", d.readGeometry},
		{"bind pose", d.readBindPose},
		{"skeleton", d.readSkeleton},
		{"animation", d.readAnimations},
	}
	for _, p := range passes {
		if err := p.run(); err != nil {
			return nil, wrapSection(SchemaSkeletal, p.name, c, err)
		}
		log.Debug("pass complete", zap.String("pass", p.name), zap.Int("offset", c.Tell()))
	}

	return d.asset, nil
}

// mesh returns the (object, mesh) entry, creating both on first use.
func (d *ymdDecoder) mesh(objectName, meshName string) *Mesh {
	idx, ok := d.objects[objectName]
	if !ok {
		idx = len(d.asset.Objects)
		d.objects[objectName] = idx
		d.asset.Objects = append(d.asset.Objects, &Object{Name: objectName})
	}
	obj := d.asset.Objects[idx]

	if m := obj.Mesh(meshName); m != nil {
		return m
	}
	m := &Mesh{Name: meshName}
	obj.Meshes = append(obj.Meshes, m)
	d.meshOwners[meshName] = append(d.meshOwners[meshName], objectName)
	return m
}

func (d *ymdDecoder) readGeometry() error {
	count, err := d.c.ReadCount(4)
	if err != nil {
		return fmt.Errorf("mesh count: %w", err)
	}
	for i := 0; i < count; i++ {
		if err := d.readMeshEntry(i); err != nil {
			return fmt.Errorf("mesh %d: %w", i, err)
		}
	}
	return nil
}

// readMeshEntry handles the three header shapes. A tag of 1 means an unnamed
// single sub-mesh; any other tag is the length of the mesh name, followed by
// a sub-mesh count.
func (d *ymdDecoder) readMeshEntry(i int) error {
	c := d.c
	meshName := fmt.Sprintf("unnamed_mesh_%d", i)
	headerSkip := 4
	subMeshes := 1

	tag, err := c.ReadI32()
	if err != nil {
		return err
	}
	if tag != 1 {
		if meshName, err = c.ReadText(int(tag)); err != nil {
			return fmt.Errorf("mesh name: %w", err)
		}
		loops, err := c.ReadI32()
		if err != nil {
			return err
		}
		headerSkip = 8
		if loops > 1 {
			subMeshes = int(loops)
		}
	}

	// Sub-meshes accumulate into one entry keyed by the last object name.
	scratch := &Mesh{Name: meshName}
	var objectName string
	for s := 0; s < subMeshes; s++ {
		if err := c.Skip(headerSkip); err != nil {
			return err
		}
		if objectName, err = c.ReadString(); err != nil {
			return fmt.Errorf("object name: %w", err)
		}
		stride, err := c.ReadI32()
		if err != nil {
			return err
		}
		if stride < vertexFixedBytes {
			return fmt.Errorf("%w: vertex stride %d below %d", ErrInvalidCount, stride, vertexFixedBytes)
		}
		if err := d.readSubMesh(scratch, int(stride)); err != nil {
			return fmt.Errorf("%s/%s sub-mesh %d: %w", objectName, meshName, s, err)
		}
	}
	appendMesh(d.mesh(objectName, meshName), scratch)
	return nil
}

// appendMesh concatenates src onto dst, offsetting face indices by the
// vertices dst already holds.
func appendMesh(dst, src *Mesh) {
	base := uint32(len(dst.Positions))
	dst.Positions = append(dst.Positions, src.Positions...)
	dst.Normals = append(dst.Normals, src.Normals...)
	dst.UVs = append(dst.UVs, src.UVs...)
	for _, f := range src.Faces {
		dst.Faces = append(dst.Faces, Face{f[0] + base, f[1] + base, f[2] + base})
	}
	dst.FaceGroupsIdx = append(dst.FaceGroupsIdx, src.FaceGroupsIdx...)
}

// readSubMesh appends one sub-mesh's vertices and implicit faces to m.
func (d *ymdDecoder) readSubMesh(m *Mesh, stride int) error {
	c := d.c
	vertices, err := c.ReadCount(stride)
	if err != nil {
		return fmt.Errorf("vertex count: %w", err)
	}
	if vertices == 0 {
		return nil
	}

	base := uint32(len(m.Positions))
	var v [8]float32
	for i := 0; i < vertices; i++ {
		if err := c.readFloats(v[:]); err != nil {
			return err
		}
		m.Positions = append(m.Positions, Vec3{v[0], v[1], v[2]})
		m.Normals = append(m.Normals, Vec3{v[3], v[4], v[5]})
		m.UVs = append(m.UVs, Vec2{v[6], v[7]})
		if err := c.Skip(stride - vertexFixedBytes); err != nil {
			return err
		}
	}

	elements, err := c.ReadCount(4)
	if err != nil {
		return fmt.Errorf("face element count: %w", err)
	}
	if elements > vertices {
		return fmt.Errorf("%w: %d face elements for %d vertices", ErrInvalidCount, elements, vertices)
	}
	for i := 0; i+2 < elements; i += 3 {
		f := base + uint32(i)
		m.Faces = append(m.Faces, Face{f, f + 1, f + 2})
	}
	for i := 0; i < elements; i++ {
		g, err := c.ReadI32()
		if err != nil {
			return err
		}
		if g < 0 {
			return fmt.Errorf("%w: face group index %d", ErrInvalidCount, g)
		}
		m.FaceGroupsIdx = append(m.FaceGroupsIdx, uint32(g))
	}
	return nil
}

func (d *ymdDecoder) readBindPose() error {
	c := d.c
	count, err := c.ReadCount(4)
	if err != nil {
		return fmt.Errorf("bind set count: %w", err)
	}

	for i := 0; i < count; i++ {
		meshName, err := c.ReadString()
		if err != nil {
			return fmt.Errorf("bind set %d name: %w", i, err)
		}
		bones, err := d.readBoneCount()
		if err != nil {
			return fmt.Errorf("bind set %q bone count: %w", meshName, err)
		}
		owner, err := d.owner(meshName)
		if err != nil {
			return err
		}
		m := d.asset.Objects[d.objects[owner]].Mesh(meshName)

		m.BoneNames = make([]string, 0, bones)
		for j := 0; j < bones; j++ {
			var bone BindPoseBone
			if bone.Name, err = c.ReadString(); err != nil {
				return fmt.Errorf("bind set %q bone %d: %w", meshName, j, err)
			}
			if err := c.readFloats(bone.Matrix[:]); err != nil {
				return fmt.Errorf("bone %q matrix: %w", bone.Name, err)
			}
			m.BoneNames = append(m.BoneNames, bone.Name)
			d.setBindPose(bone)
		}

		if m.FaceGroups, err = d.readWeightGroups(); err != nil {
			return fmt.Errorf("bind set %q weights: %w", meshName, err)
		}
	}
	return nil
}

// readBoneCount reads a bind set's bone count. Some mesh variants carry 64
// extra header bytes here; a count above the limit means we read into them.
func (d *ymdDecoder) readBoneCount() (int, error) {
	c := d.c
	start := c.Tell()
	raw, err := c.ReadI32()
	if err != nil {
		return 0, err
	}

	pos := start
	if int(raw) > d.opt.boneCountLimit {
		pos = start + d.opt.boneCountReseek
		d.log.Debug("bone count guard triggered",
			zap.Int32("raw", raw),
			zap.Int("offset", start),
			zap.Int("reseek", pos))
	}
	if err := c.Seek(pos); err != nil {
		return 0, err
	}
	return c.ReadCount(bindBoneBytes)
}

// owner resolves which object holds the mesh a bind set belongs to.
func (d *ymdDecoder) owner(meshName string) (string, error) {
	owners := d.meshOwners[meshName]
	switch {
	case len(owners) == 0:
		return "", fmt.Errorf("%w: no object holds mesh %q", ErrAmbiguousJoin, meshName)
	case len(owners) == 1:
		return owners[0], nil
	case !d.opt.firstMatchJoin:
		return "", fmt.Errorf("%w: mesh %q is held by %d objects %q", ErrAmbiguousJoin, meshName, len(owners), owners)
	}

	// First match in object order.
	first := owners[0]
	for _, o := range owners[1:] {
		if d.objects[o] < d.objects[first] {
			first = o
		}
	}
	d.log.Debug("ambiguous bind set owner, using first match",
		zap.String("mesh", meshName),
		zap.String("object", first),
		zap.Strings("candidates", owners))
	return first, nil
}

// setBindPose records a bone. A repeated name replaces the earlier matrix.
func (d *ymdDecoder) setBindPose(bone BindPoseBone) {
	if idx, ok := d.bindIndex[bone.Name]; ok {
		d.asset.BindPose[idx] = bone
		return
	}
	d.bindIndex[bone.Name] = len(d.asset.BindPose)
	d.asset.BindPose = append(d.asset.BindPose, bone)
}

func (d *ymdDecoder) readWeightGroups() ([]WeightGroup, error) {
	c := d.c
	count, err := c.ReadCount(4)
	if err != nil {
		return nil, err
	}

	groups := make([]WeightGroup, count)
	for i := range groups {
		pairs, err := c.ReadCount(8)
		if err != nil {
			return nil, fmt.Errorf("group %d: %w", i, err)
		}
		g := WeightGroup{
			BoneIdx: make([]uint32, pairs),
			Weight:  make([]float32, pairs),
		}
		for k := 0; k < pairs; k++ {
			idx, err := c.ReadI32()
			if err != nil {
				return nil, err
			}
			if idx < 0 {
				return nil, fmt.Errorf("%w: bone index %d in group %d", ErrInvalidCount, idx, i)
			}
			g.BoneIdx[k] = uint32(idx)
			if g.Weight[k], err = c.ReadF32(); err != nil {
				return nil, err
			}
		}
		groups[i] = g
	}
	return groups, nil
}

func (d *ymdDecoder) readSkeleton() error {
	count, err := d.c.ReadCount(8)
	if err != nil {
		return fmt.Errorf("bone count: %w", err)
	}
	for i := 0; i < count; i++ {
		if err := readHierarchyEntry(d.c, d.asset.Skeleton, d.asset.MeshNameBindings, false); err != nil {
			return fmt.Errorf("bone %d: %w", i, err)
		}
	}
	return nil
}

// readHierarchyEntry reads one node: name, parent name (length 0 for roots),
// a mesh flag followed by the mesh name when non-zero, and a 10-float
// transform. Skeletal assets bind mesh -> bone; shape assets bind
// object -> mesh.
func readHierarchyEntry(c *Cursor, sk *Skeleton, bindings map[string]string, objectToMesh bool) error {
	name, err := c.ReadString()
	if err != nil {
		return err
	}
	parent, err := c.ReadString()
	if err != nil {
		return fmt.Errorf("%q parent: %w", name, err)
	}

	idx, err := sk.Add(name, parent)
	if err != nil {
		return err
	}
	node := &sk.Nodes[idx]

	bound, err := c.ReadI32()
	if err != nil {
		return fmt.Errorf("%q mesh flag: %w", name, err)
	}
	if bound != 0 {
		if node.Mesh, err = c.ReadString(); err != nil {
			return fmt.Errorf("%q mesh: %w", name, err)
		}
		if objectToMesh {
			bindings[name] = node.Mesh
		} else {
			bindings[node.Mesh] = name
		}
	}
	return c.readFloats(node.Transform[:])
}

func (d *ymdDecoder) readAnimations() error {
	c := d.c
	count, err := c.ReadCount(12)
	if err != nil {
		return fmt.Errorf("clip count: %w", err)
	}

	d.asset.Animations = make([]AnimationClip, 0, count)
	for i := 0; i < count; i++ {
		name, err := c.ReadString()
		if err != nil {
			return fmt.Errorf("clip %d name: %w", i, err)
		}
		if err := c.Skip(4); err != nil {
			return err
		}
		clip, err := d.readClip(name)
		if err != nil {
			return fmt.Errorf("clip %q: %w", name, err)
		}
		if err := c.Skip(4); err != nil {
			return err
		}
		d.asset.Animations = append(d.asset.Animations, clip)
	}
	return nil
}

func (d *ymdDecoder) readClip(name string) (AnimationClip, error) {
	c := d.c
	clip := AnimationClip{Name: name}

	tracks, err := c.ReadCount(8)
	if err != nil {
		return clip, fmt.Errorf("track count: %w", err)
	}
	clip.Tracks = make([]Track, 0, tracks)

	for j := 0; j < tracks; j++ {
		bone, err := c.ReadString()
		if err != nil {
			return clip, fmt.Errorf("track %d bone: %w", j, err)
		}
		frames, err := c.ReadCount(KeyframeFloats * 4)
		if err != nil {
			return clip, fmt.Errorf("track %q frame count: %w", bone, err)
		}
		if err := checkFrameCount(&clip, j, frames, bone); err != nil {
			return clip, err
		}

		track := Track{Bone: bone, Frames: make([]Keyframe, frames), Stride: KeyframeFloats}
		for k := 0; k < frames; k++ {
			if track.Frames[k], err = readKeyframe(c); err != nil {
				return clip, fmt.Errorf("track %q frame %d: %w", bone, k, err)
			}
			if err := c.Skip(4); err != nil {
				return clip, err
			}
			if k == 0 {
				if track.Stride, err = InferStride(c.Bytes(), c.Tell(), track.Frames[0].Time, KeyframeFloats, frames); err != nil {
					return clip, fmt.Errorf("track %q: %w", bone, err)
				}
				d.log.Debug("keyframe stride inferred",
					zap.String("clip", name),
					zap.String("bone", bone),
					zap.Int("stride", track.Stride))
			}
			if err := c.Skip((track.Stride - KeyframeFloats) * 4); err != nil {
				return clip, err
			}
		}
		clip.Tracks = append(clip.Tracks, track)
	}
	return clip, nil
}

// checkFrameCount takes the clip's frame count from its first track and
// requires every later track to match it.
func checkFrameCount(clip *AnimationClip, track, frames int, bone string) error {
	if track == 0 {
		clip.FrameCount = frames
		return nil
	}
	if frames != clip.FrameCount {
		return fmt.Errorf("%w: track %q has %d frames, clip has %d",
			ErrTrackLengthMismatch, bone, frames, clip.FrameCount)
	}
	return nil
}

// readKeyframe reads time, scale, rotation and location.
func readKeyframe(c *Cursor) (Keyframe, error) {
	var f [11]float32
	if err := c.readFloats(f[:]); err != nil {
		return Keyframe{}, err
	}
	return Keyframe{
		Time:     f[0],
		Scale:    Vec3{f[1], f[2], f[3]},
		Rotation: Quat{f[4], f[5], f[6], f[7]},
		Location: Vec3{f[8], f[9], f[10]},
	}, nil
}
