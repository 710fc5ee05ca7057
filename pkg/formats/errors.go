package formats

import (
	"errors"
	"fmt"

	"github.com/Faultbox/ezmodel/pkg/encoding"
)

// Decode errors.
var (
	ErrUnrecognizedLayout   = errors.New("unrecognized asset layout")
	ErrUnexpectedEOF        = errors.New("unexpected end of asset data")
	ErrInvalidEncoding      = encoding.ErrInvalidText
	ErrUnresolvableStride   = errors.New("unresolvable keyframe stride")
	ErrUnresolvedTreeParent = errors.New("parent not present in hierarchy")
	ErrAmbiguousJoin        = errors.New("ambiguous bind-pose owner")
	ErrInvalidCount         = errors.New("invalid element count")
	ErrTrackLengthMismatch  = errors.New("animation track frame counts differ")
)

// DecodeError records where in the asset a decode failed.
type DecodeError struct {
	Schema  Schema
	Section string
	Offset  int
	Err     error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("%s %s section at offset %d: %v", e.Schema, e.Section, e.Offset, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// wrapSection attaches schema, section and the cursor offset to err.
func wrapSection(schema Schema, section string, c *Cursor, err error) error {
	if err == nil {
		return nil
	}
	var de *DecodeError
	if errors.As(err, &de) {
		return err
	}
	return &DecodeError{Schema: schema, Section: section, Offset: c.Tell(), Err: err}
}
