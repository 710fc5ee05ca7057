// Package config handles eztool configuration loading and management.
package config

import (
	"fmt"
	"strings"

	"github.com/Faultbox/ezmodel/pkg/encoding"
	"github.com/Faultbox/ezmodel/pkg/formats"
)

// Export formats.
const (
	FormatOBJ     = "obj"
	FormatGLTF    = "gltf"
	FormatPreview = "preview"
)

// Config holds all tool settings.
type Config struct {
	Decode    DecodeConfig    `yaml:"decode"`
	Export    ExportConfig    `yaml:"export"`
	Batch     BatchConfig     `yaml:"batch"`
	Container ContainerConfig `yaml:"container"`
	Preview   PreviewConfig   `yaml:"preview"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// DecodeConfig controls how model assets are parsed.
type DecodeConfig struct {
	TextEncoding    string `yaml:"text_encoding"`    // utf-8 or shift-jis
	FirstMatchJoin  bool   `yaml:"first_match_join"` // pick the first owner instead of failing
	BoneCountLimit  int    `yaml:"bone_count_limit"`
	BoneCountReseek int    `yaml:"bone_count_reseek"`
}

// ExportConfig selects the output format and location.
type ExportConfig struct {
	Format    string `yaml:"format"`
	OutputDir string `yaml:"output_dir"`
}

// BatchConfig holds worker pool settings.
type BatchConfig struct {
	Workers  int  `yaml:"workers"`
	FailFast bool `yaml:"fail_fast"`
}

// ContainerConfig holds container handling settings.
type ContainerConfig struct {
	SearchPaths   []string `yaml:"search_paths"`   // directories to resolve model names in
	KeepExtracted bool     `yaml:"keep_extracted"` // write raw members next to exports
}

// PreviewConfig holds thumbnail rendering settings.
type PreviewConfig struct {
	Size        int `yaml:"size"`
	Supersample int `yaml:"supersample"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level   string `yaml:"level"`
	LogFile string `yaml:"log_file"`
}

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Decode: DecodeConfig{
			TextEncoding:    encoding.UTF8,
			BoneCountLimit:  formats.DefaultBoneCountLimit,
			BoneCountReseek: formats.DefaultBoneCountReseek,
		},
		Export: ExportConfig{
			Format:    FormatOBJ,
			OutputDir: "out",
		},
		Batch: BatchConfig{
			Workers: 4,
		},
		Preview: PreviewConfig{
			Size:        256,
			Supersample: 2,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Validate reports the first setting that cannot be used.
func (c *Config) Validate() error {
	if _, err := encoding.Lookup(c.Decode.TextEncoding); err != nil {
		return fmt.Errorf("decode.text_encoding: %w", err)
	}
	if c.Decode.BoneCountLimit <= 0 || c.Decode.BoneCountReseek < 0 {
		return fmt.Errorf("decode: bone count guard %d/%d out of range",
			c.Decode.BoneCountLimit, c.Decode.BoneCountReseek)
	}
	switch strings.ToLower(c.Export.Format) {
	case FormatOBJ, FormatGLTF, FormatPreview:
	default:
		return fmt.Errorf("export.format: unknown format %q", c.Export.Format)
	}
	if c.Batch.Workers < 1 {
		return fmt.Errorf("batch.workers must be at least 1, got %d", c.Batch.Workers)
	}
	if c.Preview.Size < 16 || c.Preview.Supersample < 1 || c.Preview.Supersample > 8 {
		return fmt.Errorf("preview: size %d / supersample %d out of range",
			c.Preview.Size, c.Preview.Supersample)
	}
	return nil
}

// DecodeOptions converts the decode section into decoder options.
func (c *Config) DecodeOptions() ([]formats.Option, error) {
	dec, err := encoding.Lookup(c.Decode.TextEncoding)
	if err != nil {
		return nil, err
	}
	return []formats.Option{
		formats.WithTextDecoder(dec),
		formats.WithFirstMatchJoin(c.Decode.FirstMatchJoin),
		formats.WithBoneCountGuard(c.Decode.BoneCountLimit, c.Decode.BoneCountReseek),
	}, nil
}
