// Package formats decodes the binary model assets shipped inside .ez containers.
//
// Two layouts are supported: the rigged "ymd" model (meshes, bind pose,
// weights, bone hierarchy, animation) and the "aura" shape asset
// (materials, shapes, object hierarchy, animation). Both share the Cursor,
// the hierarchy arena and keyframe stride inference.
package formats

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/Faultbox/ezmodel/pkg/encoding"
)

// Default bone-count guard, see WithBoneCountGuard.
const (
	DefaultBoneCountLimit  = 100
	DefaultBoneCountReseek = 64
)

type options struct {
	log             *zap.Logger
	decode          encoding.Decoder
	firstMatchJoin  bool
	boneCountLimit  int
	boneCountReseek int
}

// Option configures a decode call.
type Option func(*options)

// WithLogger sets the logger used for debug output.
func WithLogger(l *zap.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.log = l
		}
	}
}

// WithTextDecoder sets how length-prefixed strings are decoded.
func WithTextDecoder(d encoding.Decoder) Option {
	return func(o *options) {
		if d != nil {
			o.decode = d
		}
	}
}

// WithFirstMatchJoin makes the bind-pose owner lookup pick the first object
// that holds the mesh instead of failing with ErrAmbiguousJoin.
func WithFirstMatchJoin(enabled bool) Option {
	return func(o *options) {
		o.firstMatchJoin = enabled
	}
}

// WithBoneCountGuard overrides the bone-count misread guard: a count above
// limit is re-read reseek bytes further on.
func WithBoneCountGuard(limit, reseek int) Option {
	return func(o *options) {
		if limit > 0 {
			o.boneCountLimit = limit
		}
		if reseek > 0 {
			o.boneCountReseek = reseek
		}
	}
}

func buildOptions(opts []Option) options {
	o := options{
		log:             zap.NewNop(),
		decode:          encoding.DecodeUTF8,
		boneCountLimit:  DefaultBoneCountLimit,
		boneCountReseek: DefaultBoneCountReseek,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// SchemaForName picks the schema from a file name extension.
func SchemaForName(name string) (Schema, error) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".ymd":
		return SchemaSkeletal, nil
	case ".aura":
		return SchemaShape, nil
	default:
		return 0, fmt.Errorf("%w: unknown asset extension %q", ErrUnrecognizedLayout, filepath.Ext(name))
	}
}

// Decode decodes data using the schema implied by name's extension.
func Decode(name string, data []byte, opts ...Option) (*Asset, error) {
	schema, err := SchemaForName(name)
	if err != nil {
		return nil, err
	}
	if schema == SchemaShape {
		return DecodeAura(data, opts...)
	}
	return DecodeYMD(data, opts...)
}

// DecodeFile reads and decodes an asset from disk.
func DecodeFile(path string, opts ...Option) (*Asset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading asset file: %w", err)
	}
	return Decode(path, data, opts...)
}
