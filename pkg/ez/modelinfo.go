package ez

import (
	"encoding/json"
	"fmt"
)

// ModelInfo is the parsed modelInfo.txt sidecar. Names and textures are
// opaque strings; nothing in this module resolves them.
type ModelInfo struct {
	Materials []MaterialInfo `json:"material"`
}

// MaterialInfo associates an object name with texture names.
type MaterialInfo struct {
	Name    string   `json:"name"`
	Texture []string `json:"texture"`
}

// ParseModelInfo parses sidecar JSON. A leading UTF-8 byte order mark is ignored.
func ParseModelInfo(data []byte) (*ModelInfo, error) {
	data = trimBOM(data)
	var info ModelInfo
	if err := json.Unmarshal(data, &info); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", ModelInfoName, err)
	}
	return &info, nil
}

// Textures returns the texture names listed for object, or nil.
func (m *ModelInfo) Textures(object string) []string {
	if m == nil {
		return nil
	}
	for _, mat := range m.Materials {
		if mat.Name == object {
			return mat.Texture
		}
	}
	return nil
}

func trimBOM(data []byte) []byte {
	if len(data) >= 3 && data[0] == 0xef && data[1] == 0xbb && data[2] == 0xbf {
		return data[3:]
	}
	return data
}
