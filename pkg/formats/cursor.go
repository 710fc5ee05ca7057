package formats

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/Faultbox/ezmodel/pkg/encoding"
)

// Cursor is a sequential little-endian reader over an asset buffer.
// It never grows or writes the buffer.
type Cursor struct {
	data   []byte
	off    int
	decode encoding.Decoder
}

// NewCursor returns a cursor at offset 0. A nil decoder selects strict UTF-8.
func NewCursor(data []byte, decode encoding.Decoder) *Cursor {
	if decode == nil {
		decode = encoding.DecodeUTF8
	}
	return &Cursor{data: data, decode: decode}
}

// Tell returns the current offset.
func (c *Cursor) Tell() int {
	return c.off
}

// Len returns the buffer size.
func (c *Cursor) Len() int {
	return len(c.data)
}

// Remaining returns the number of unread bytes.
func (c *Cursor) Remaining() int {
	return len(c.data) - c.off
}

// Bytes returns the underlying buffer.
func (c *Cursor) Bytes() []byte {
	return c.data
}

// Seek moves to an absolute offset.
func (c *Cursor) Seek(pos int) error {
	if pos < 0 || pos > len(c.data) {
		return fmt.Errorf("%w: seek to %d of %d", ErrUnexpectedEOF, pos, len(c.data))
	}
	c.off = pos
	return nil
}

// Skip advances n bytes.
func (c *Cursor) Skip(n int) error {
	if err := c.need(n); err != nil {
		return err
	}
	c.off += n
	return nil
}

func (c *Cursor) need(n int) error {
	if n < 0 {
		return fmt.Errorf("%w: negative length %d at %d", ErrInvalidCount, n, c.off)
	}
	if n > len(c.data)-c.off {
		return fmt.Errorf("%w: need %d bytes at %d, have %d", ErrUnexpectedEOF, n, c.off, len(c.data)-c.off)
	}
	return nil
}

// ReadBytes returns the next n bytes. The slice aliases the buffer.
func (c *Cursor) ReadBytes(n int) ([]byte, error) {
	if err := c.need(n); err != nil {
		return nil, err
	}
	b := c.data[c.off : c.off+n]
	c.off += n
	return b, nil
}

// ReadI32 reads a little-endian int32.
func (c *Cursor) ReadI32() (int32, error) {
	if err := c.need(4); err != nil {
		return 0, err
	}
	v := int32(binary.LittleEndian.Uint32(c.data[c.off:]))
	c.off += 4
	return v, nil
}

// ReadF32 reads a little-endian float32.
func (c *Cursor) ReadF32() (float32, error) {
	if err := c.need(4); err != nil {
		return 0, err
	}
	v := math.Float32frombits(binary.LittleEndian.Uint32(c.data[c.off:]))
	c.off += 4
	return v, nil
}

// ReadF32s reads n consecutive float32 values.
func (c *Cursor) ReadF32s(n int) ([]float32, error) {
	if n < 0 {
		return nil, fmt.Errorf("%w: negative float count %d at %d", ErrInvalidCount, n, c.off)
	}
	if n > (len(c.data)-c.off)/4 {
		return nil, fmt.Errorf("%w: need %d floats at %d, have %d bytes", ErrUnexpectedEOF, n, c.off, len(c.data)-c.off)
	}
	out := make([]float32, n)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(c.data[c.off:]))
		c.off += 4
	}
	return out, nil
}

// readFloats fills dst from the stream.
func (c *Cursor) readFloats(dst []float32) error {
	if err := c.need(len(dst) * 4); err != nil {
		return err
	}
	for i := range dst {
		dst[i] = math.Float32frombits(binary.LittleEndian.Uint32(c.data[c.off:]))
		c.off += 4
	}
	return nil
}

// ReadString reads a 4-byte length followed by that many bytes of text.
func (c *Cursor) ReadString() (string, error) {
	n, err := c.ReadI32()
	if err != nil {
		return "", err
	}
	return c.ReadText(int(n))
}

// ReadText decodes the next n bytes as text.
func (c *Cursor) ReadText(n int) (string, error) {
	start := c.off
	b, err := c.ReadBytes(n)
	if err != nil {
		return "", err
	}
	s, err := c.decode(b)
	if err != nil {
		return "", fmt.Errorf("string at %d: %w", start, err)
	}
	return s, nil
}

// ReadCount reads an int32 element count and checks that count records of
// recordSize bytes can still fit in the buffer.
func (c *Cursor) ReadCount(recordSize int) (int, error) {
	start := c.off
	v, err := c.ReadI32()
	if err != nil {
		return 0, err
	}
	if v < 0 {
		return 0, fmt.Errorf("%w: %d at %d", ErrInvalidCount, v, start)
	}
	if recordSize > 0 && int64(v)*int64(recordSize) > int64(c.Remaining()) {
		return 0, fmt.Errorf("%w: %d records of %d bytes at %d exceed remaining %d",
			ErrUnexpectedEOF, v, recordSize, start, c.Remaining())
	}
	return int(v), nil
}
