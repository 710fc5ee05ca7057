package ez

import (
	"bytes"
	"image"
	"image/jpeg"
	"image/png"
	"io"
	"path"
	"strings"

	"github.com/ftrvxmtrx/tga"
	"golang.org/x/image/bmp"
)

type imageFormat struct {
	name         string
	decodeConfig func(io.Reader) (image.Config, error)
}

// TGA has no magic number, so formats are chosen by extension rather than
// by image.DecodeConfig sniffing.
var imageFormats = map[string]imageFormat{
	".png":  {"png", png.DecodeConfig},
	".jpg":  {"jpeg", jpeg.DecodeConfig},
	".jpeg": {"jpeg", jpeg.DecodeConfig},
	".tga":  {"tga", tga.DecodeConfig},
	".bmp":  {"bmp", bmp.DecodeConfig},
}

// ImageInfo describes a texture member. Err is set when the header could
// not be read.
type ImageInfo struct {
	Name   string
	Format string
	Width  int
	Height int
	Err    error
}

// Images reads the headers of every image member.
func (a *Archive) Images() []ImageInfo {
	var result []ImageInfo
	for _, n := range a.List() {
		format, ok := imageFormats[strings.ToLower(path.Ext(n))]
		if !ok {
			continue
		}
		info := ImageInfo{Name: n, Format: format.name}
		data, err := a.Read(n)
		if err == nil {
			var cfg image.Config
			if cfg, err = format.decodeConfig(bytes.NewReader(data)); err == nil {
				info.Width, info.Height = cfg.Width, cfg.Height
			}
		}
		info.Err = err
		result = append(result, info)
	}
	return result
}
