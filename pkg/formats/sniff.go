package formats

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// SniffWindow is how many leading bytes are searched for a magic token.
const SniffWindow = 300

// geometryTokens are tried in order; the first that occurs wins.
var geometryTokens = [][]byte{
	[]byte("geometries"),
	[]byte("skin"),
	[]byte("sikn"),
}

// Layout describes where the geometry section of a skeletal asset starts.
type Layout struct {
	Version        int32
	GeometryOffset int
	Token          string
}

// Sniff reads the version tag and locates the geometry section.
// The section begins 8 bytes before the first token occurrence.
func Sniff(data []byte) (Layout, error) {
	if len(data) < 4 {
		return Layout{}, fmt.Errorf("%w: %d bytes, need a 4-byte version tag", ErrUnexpectedEOF, len(data))
	}
	layout := Layout{Version: int32(binary.LittleEndian.Uint32(data))}

	window := data
	if len(window) > SniffWindow {
		window = window[:SniffWindow]
	}

	for _, tok := range geometryTokens {
		pos := bytes.Index(window, tok)
		if pos < 0 {
			continue
		}
		if pos < 8 {
			return layout, fmt.Errorf("%w: token %q at %d leaves no room for the section header",
				ErrUnrecognizedLayout, tok, pos)
		}
		layout.GeometryOffset = pos - 8
		layout.Token = string(tok)
		return layout, nil
	}

	return layout, fmt.Errorf("%w: no geometry token in first %d bytes", ErrUnrecognizedLayout, len(window))
}
