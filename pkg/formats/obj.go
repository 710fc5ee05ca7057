package formats

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// WriteOBJ writes a mesh as Wavefront OBJ text. Attributes are parallel
// arrays, so each face corner uses the same 1-based index for v, vt and vn.
// Face corners only reference the attributes the mesh actually carries.
func WriteOBJ(w io.Writer, m *Mesh, flipV bool) error {
	bw := bufio.NewWriter(w)

	for _, p := range m.Positions {
		fmt.Fprintf(bw, "v %f %f %f\n", p[0], p[1], p[2])
	}
	for _, uv := range m.UVs {
		v := uv[1]
		if flipV {
			v = 1 - v
		}
		fmt.Fprintf(bw, "vt %f %f\n", uv[0], v)
	}
	for _, n := range m.Normals {
		fmt.Fprintf(bw, "vn %f %f %f\n", n[0], n[1], n[2])
	}
	corner := cornerFormat(len(m.UVs) > 0, len(m.Normals) > 0)
	for _, f := range m.Faces {
		bw.WriteString("f")
		for _, idx := range f {
			fmt.Fprintf(bw, corner, idx+1)
		}
		bw.WriteByte('\n')
	}

	return bw.Flush()
}

// cornerFormat returns a one-index format for a face corner, e.g. " %[1]d/%[1]d".
func cornerFormat(hasUV, hasNormal bool) string {
	switch {
	case hasUV && hasNormal:
		return " %[1]d/%[1]d/%[1]d"
	case hasUV:
		return " %[1]d/%[1]d"
	case hasNormal:
		return " %[1]d//%[1]d"
	default:
		return " %d"
	}
}

// ExportOBJ writes every mesh of a skeletal asset to dir as
// <object>_<mesh>.obj, and every shape of a shape asset as <shape>.obj.
// It returns the written paths.
func ExportOBJ(a *Asset, dir string) ([]string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}

	var paths []string
	for _, obj := range a.Objects {
		for _, m := range obj.Meshes {
			path := filepath.Join(dir, objFileName(obj.Name, m.Name))
			if err := writeOBJFile(path, m, a.FlipV()); err != nil {
				return paths, fmt.Errorf("writing %s: %w", path, err)
			}
			paths = append(paths, path)
		}
	}
	for _, sh := range a.Shapes {
		path := filepath.Join(dir, pathSeparators.Replace(sh.Name+".obj"))
		m := &Mesh{Name: sh.Name, Positions: sh.Positions, Faces: sh.Faces}
		if err := writeOBJFile(path, m, false); err != nil {
			return paths, fmt.Errorf("writing %s: %w", path, err)
		}
		paths = append(paths, path)
	}
	return paths, nil
}

func writeOBJFile(path string, m *Mesh, flipV bool) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := WriteOBJ(f, m, flipV); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

var pathSeparators = strings.NewReplacer("/", "_", "\\", "_")

// objFileName keeps names inside dir.
func objFileName(object, mesh string) string {
	return pathSeparators.Replace(object + "_" + mesh + ".obj")
}
