// Package encoding provides text decoding for strings embedded in model assets.
package encoding

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/japanese"
	"golang.org/x/text/transform"
)

// Supported text encoding names.
const (
	UTF8     = "utf-8"
	ShiftJIS = "shift-jis"
)

// ErrInvalidText is returned when bytes are not valid in the selected encoding.
var ErrInvalidText = errors.New("invalid text encoding")

// Decoder converts raw string bytes to a UTF-8 Go string.
type Decoder func(data []byte) (string, error)

// Lookup returns the decoder registered under name.
// Names are matched case-insensitively; "" selects UTF-8.
func Lookup(name string) (Decoder, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", UTF8, "utf8":
		return DecodeUTF8, nil
	case ShiftJIS, "shift_jis", "sjis":
		return DecodeShiftJIS, nil
	default:
		return nil, fmt.Errorf("unknown text encoding %q", name)
	}
}

// DecodeUTF8 validates data as UTF-8.
func DecodeUTF8(data []byte) (string, error) {
	if !utf8.Valid(data) {
		return "", fmt.Errorf("%w: %d bytes are not UTF-8", ErrInvalidText, len(data))
	}
	return string(data), nil
}

// DecodeShiftJIS converts Shift-JIS bytes to UTF-8.
// The x/text decoder substitutes U+FFFD for malformed input, so any
// replacement rune in the output means the input was not Shift-JIS.
func DecodeShiftJIS(data []byte) (string, error) {
	result, _, err := transform.Bytes(japanese.ShiftJIS.NewDecoder(), data)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidText, err)
	}
	if bytes.ContainsRune(result, utf8.RuneError) {
		return "", fmt.Errorf("%w: %d bytes are not Shift-JIS", ErrInvalidText, len(data))
	}
	return string(result), nil
}

// TrimNullBytes removes trailing null bytes from a byte slice.
func TrimNullBytes(data []byte) []byte {
	return bytes.TrimRight(data, "\x00")
}
