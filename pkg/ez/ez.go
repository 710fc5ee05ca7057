// Package ez provides reading functionality for .ez model containers.
//
// A container is an AES-encrypted zip archive holding one model asset
// (.ymd or .aura), its textures and an optional modelInfo.txt sidecar.
package ez

import (
	"archive/zip"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/Faultbox/ezmodel/pkg/ezcrypt"
	"github.com/Faultbox/ezmodel/pkg/formats"
)

// Container errors.
var (
	ErrNotBlockAligned = ezcrypt.ErrNotBlockAligned
	ErrNoAsset         = errors.New("no model asset in container")
)

// ModelInfoName is the sidecar member holding texture associations.
const ModelInfoName = "modelinfo.txt"

// Archive represents an opened, decrypted container.
type Archive struct {
	name     string
	fileList map[string]*zip.File
}

// Entry describes one archive member.
type Entry struct {
	Name             string
	CompressedSize   uint64
	UncompressedSize uint64
}

// Open reads, decrypts and indexes a container file. The container name is
// the file name without its extension.
func Open(path string) (*Archive, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("opening file: %w", err)
	}
	return OpenBytes(stem(path), data)
}

// OpenBytes decrypts an in-memory container.
func OpenBytes(name string, data []byte) (*Archive, error) {
	plain, err := ezcrypt.DecryptBytes(data)
	if err != nil {
		return nil, fmt.Errorf("decrypting container: %w", err)
	}
	return FromZip(name, plain)
}

// FromZip indexes already-decrypted zip data.
func FromZip(name string, zipData []byte) (*Archive, error) {
	zr, err := zip.NewReader(bytes.NewReader(zipData), int64(len(zipData)))
	if err != nil {
		return nil, fmt.Errorf("reading zip directory: %w", err)
	}

	archive := &Archive{
		name:     name,
		fileList: make(map[string]*zip.File, len(zr.File)),
	}
	for _, f := range zr.File {
		if f.FileInfo().IsDir() {
			continue
		}
		archive.fileList[normalizePath(f.Name)] = f
	}
	return archive, nil
}

// Name returns the container name used to locate the primary asset.
func (a *Archive) Name() string {
	return a.name
}

// List returns all member paths in sorted order.
func (a *Archive) List() []string {
	result := make([]string, 0, len(a.fileList))
	for _, f := range a.fileList {
		result = append(result, f.Name)
	}
	sort.Strings(result)
	return result
}

// Entries returns member metadata in sorted order.
func (a *Archive) Entries() []Entry {
	result := make([]Entry, 0, len(a.fileList))
	for _, f := range a.fileList {
		result = append(result, Entry{
			Name:             f.Name,
			CompressedSize:   f.CompressedSize64,
			UncompressedSize: f.UncompressedSize64,
		})
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result
}

// Contains checks if a member exists. Lookups ignore case and separator style.
func (a *Archive) Contains(path string) bool {
	_, ok := a.fileList[normalizePath(path)]
	return ok
}

// Read reads a member from the archive.
func (a *Archive) Read(path string) ([]byte, error) {
	f, ok := a.fileList[normalizePath(path)]
	if !ok {
		return nil, fmt.Errorf("file not found: %s", path)
	}

	rc, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", f.Name, err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", f.Name, err)
	}
	return data, nil
}

// ExtractAll writes every member under dir and returns the written paths.
// Members that would land outside dir are rejected.
func (a *Archive) ExtractAll(dir string) ([]string, error) {
	return a.Extract(dir, nil)
}

// Extract writes the members accepted by match under dir, keeping their
// relative paths. A nil match accepts every member.
func (a *Archive) Extract(dir string, match func(name string) bool) ([]string, error) {
	var written []string
	for _, name := range a.List() {
		if match != nil && !match(name) {
			continue
		}
		target, err := memberPath(dir, name)
		if err != nil {
			return written, err
		}
		data, err := a.Read(name)
		if err != nil {
			return written, err
		}
		if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
			return written, err
		}
		if err := os.WriteFile(target, data, 0644); err != nil {
			return written, err
		}
		written = append(written, target)
	}
	return written, nil
}

// PrimaryAsset returns the member holding the model. A member named
// <container>.ymd wins; otherwise the first .ymd, then the first .aura.
func (a *Archive) PrimaryAsset() (string, error) {
	names := a.List()
	want := strings.ToLower(a.name) + ".ymd"
	for _, n := range names {
		if strings.ToLower(path.Base(normalizePath(n))) == want {
			return n, nil
		}
	}
	for _, ext := range []string{".ymd", ".aura"} {
		for _, n := range names {
			if strings.ToLower(path.Ext(n)) == ext {
				return n, nil
			}
		}
	}
	return "", fmt.Errorf("%w: %s", ErrNoAsset, a.name)
}

// Assets returns every decodable member in sorted order.
func (a *Archive) Assets() []string {
	var result []string
	for _, n := range a.List() {
		if _, err := formats.SchemaForName(n); err == nil {
			result = append(result, n)
		}
	}
	return result
}

// DecodeAsset decodes the primary asset.
func (a *Archive) DecodeAsset(opts ...formats.Option) (*formats.Asset, error) {
	name, err := a.PrimaryAsset()
	if err != nil {
		return nil, err
	}
	data, err := a.Read(name)
	if err != nil {
		return nil, err
	}
	asset, err := formats.Decode(name, data, opts...)
	if err != nil {
		return nil, fmt.Errorf("decoding %s: %w", name, err)
	}
	return asset, nil
}

// ModelInfo parses the sidecar, if present. A container without one
// returns nil and no error.
func (a *Archive) ModelInfo() (*ModelInfo, error) {
	for _, n := range a.List() {
		if path.Base(normalizePath(n)) != ModelInfoName {
			continue
		}
		data, err := a.Read(n)
		if err != nil {
			return nil, err
		}
		return ParseModelInfo(data)
	}
	return nil, nil
}

func normalizePath(p string) string {
	p = strings.ReplaceAll(p, "\\", "/")
	return strings.ToLower(p)
}

func stem(p string) string {
	base := filepath.Base(p)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// memberPath joins a member name onto dir, refusing names that escape it.
func memberPath(dir, name string) (string, error) {
	clean := path.Clean("/" + strings.ReplaceAll(name, "\\", "/"))
	target := filepath.Join(dir, filepath.FromSlash(clean))
	rel, err := filepath.Rel(dir, target)
	if err != nil || rel == "." || strings.HasPrefix(rel, "..") {
		return "", fmt.Errorf("member %q escapes extraction directory", name)
	}
	return target, nil
}
