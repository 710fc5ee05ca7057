package formats

import (
	"encoding/binary"
	"errors"
	"testing"
)

func TestSniff(t *testing.T) {
	place := func(size, at int, token string) []byte {
		data := make([]byte, size)
		binary.LittleEndian.PutUint32(data, uint32(Version2018))
		copy(data[at:], token)
		return data
	}

	tests := []struct {
		name       string
		data       []byte
		wantOffset int
		wantToken  string
		wantErr    error
	}{
		{"geometries", place(300, 40, "geometries"), 32, "geometries", nil},
		{"skin", place(300, 100, "skin"), 92, "skin", nil},
		{"sikn", place(300, 12, "sikn"), 4, "sikn", nil},
		{"no token", make([]byte, 300), 0, "", ErrUnrecognizedLayout},
		{"token past window", place(400, 310, "geometries"), 0, "", ErrUnrecognizedLayout},
		{"token straddles window", place(400, 295, "geometries"), 0, "", ErrUnrecognizedLayout},
		{"token too early", place(300, 4, "skin"), 0, "", ErrUnrecognizedLayout},
		{"short buffer", []byte{1, 2}, 0, "", ErrUnexpectedEOF},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			layout, err := Sniff(tt.data)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("expected %v, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Sniff failed: %v", err)
			}
			if layout.GeometryOffset != tt.wantOffset {
				t.Errorf("GeometryOffset = %d, want %d", layout.GeometryOffset, tt.wantOffset)
			}
			if layout.Token != tt.wantToken {
				t.Errorf("Token = %q, want %q", layout.Token, tt.wantToken)
			}
			if layout.Version != Version2018 {
				t.Errorf("Version = %d, want %d", layout.Version, Version2018)
			}
		})
	}
}

func TestSniff_TokenPriority(t *testing.T) {
	// "skin" occurs first but "geometries" has priority.
	data := make([]byte, 300)
	copy(data[20:], "skin")
	copy(data[200:], "geometries")

	layout, err := Sniff(data)
	if err != nil {
		t.Fatalf("Sniff failed: %v", err)
	}
	if layout.Token != "geometries" || layout.GeometryOffset != 192 {
		t.Errorf("got token %q at %d, want geometries at 192", layout.Token, layout.GeometryOffset)
	}
}

func TestSniff_UnrecognizedKeepsVersion(t *testing.T) {
	data := make([]byte, 300)
	binary.LittleEndian.PutUint32(data, uint32(Version2015))

	layout, err := Sniff(data)
	if !errors.Is(err, ErrUnrecognizedLayout) {
		t.Fatalf("expected ErrUnrecognizedLayout, got %v", err)
	}
	if layout.Version != Version2015 {
		t.Errorf("Version = %d, want %d", layout.Version, Version2015)
	}
}
