package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Faultbox/ezmodel/pkg/encoding"
	"github.com/Faultbox/ezmodel/pkg/formats"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Decode.TextEncoding != encoding.UTF8 {
		t.Errorf("expected text encoding utf-8, got %s", cfg.Decode.TextEncoding)
	}
	if cfg.Decode.FirstMatchJoin {
		t.Error("expected first_match_join to be false by default")
	}
	if cfg.Decode.BoneCountLimit != 100 || cfg.Decode.BoneCountReseek != 64 {
		t.Errorf("expected bone guard 100/64, got %d/%d", cfg.Decode.BoneCountLimit, cfg.Decode.BoneCountReseek)
	}
	if cfg.Export.Format != FormatOBJ {
		t.Errorf("expected format obj, got %s", cfg.Export.Format)
	}
	if cfg.Export.OutputDir != "out" {
		t.Errorf("expected output dir 'out', got %s", cfg.Export.OutputDir)
	}
	if cfg.Batch.Workers != 4 {
		t.Errorf("expected 4 workers, got %d", cfg.Batch.Workers)
	}
	if cfg.Container.KeepExtracted {
		t.Error("expected keep_extracted to be false by default")
	}
	if cfg.Logging.Level != "info" || cfg.Logging.LogFile != "" {
		t.Errorf("unexpected logging defaults: %+v", cfg.Logging)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate: %v", err)
	}
}

func TestLoadFromFile(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "eztool.yaml")

	yamlContent := `
decode:
  text_encoding: "shift-jis"
  first_match_join: true
  bone_count_limit: 200

export:
  format: "gltf"
  output_dir: "/tmp/models"

batch:
  workers: 8
  fail_fast: true

container:
  search_paths: ["/data/models", "/data/mods"]
  keep_extracted: true

preview:
  size: 512
  supersample: 3

logging:
  level: "debug"
  log_file: "eztool.log"
`
	if err := os.WriteFile(configPath, []byte(yamlContent), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	cfg := Default()
	if err := loadFromFile(cfg, configPath); err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if cfg.Decode.TextEncoding != "shift-jis" || !cfg.Decode.FirstMatchJoin {
		t.Errorf("decode section = %+v", cfg.Decode)
	}
	if cfg.Decode.BoneCountLimit != 200 {
		t.Errorf("expected bone_count_limit 200, got %d", cfg.Decode.BoneCountLimit)
	}
	// Keys absent from the file keep their defaults.
	if cfg.Decode.BoneCountReseek != 64 {
		t.Errorf("expected bone_count_reseek to stay 64, got %d", cfg.Decode.BoneCountReseek)
	}
	if cfg.Export.Format != FormatGLTF || cfg.Export.OutputDir != "/tmp/models" {
		t.Errorf("export section = %+v", cfg.Export)
	}
	if cfg.Batch.Workers != 8 || !cfg.Batch.FailFast {
		t.Errorf("batch section = %+v", cfg.Batch)
	}
	if !cfg.Container.KeepExtracted {
		t.Error("expected keep_extracted to be true")
	}
	if len(cfg.Container.SearchPaths) != 2 || cfg.Container.SearchPaths[1] != "/data/mods" {
		t.Errorf("search_paths = %v", cfg.Container.SearchPaths)
	}
	if cfg.Preview.Size != 512 || cfg.Preview.Supersample != 3 {
		t.Errorf("preview section = %+v", cfg.Preview)
	}
	if cfg.Logging.Level != "debug" || cfg.Logging.LogFile != "eztool.log" {
		t.Errorf("logging section = %+v", cfg.Logging)
	}
}

func TestLoadFromFileInvalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"bad syntax", "batch:\n  workers: not a number\n  invalid syntax here\n"},
		{"wrong type", "batch:\n  workers: many\n"},
		{"unknown key", "export:\n  fromat: gltf\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			configPath := filepath.Join(t.TempDir(), "invalid.yaml")
			if err := os.WriteFile(configPath, []byte(tt.content), 0644); err != nil {
				t.Fatalf("failed to write test config: %v", err)
			}
			if err := loadFromFile(Default(), configPath); err == nil {
				t.Error("expected error loading invalid YAML, got nil")
			}
		})
	}
}

func TestLoadFromFileMissing(t *testing.T) {
	if err := loadFromFile(Default(), "/nonexistent/path/eztool.yaml"); err == nil {
		t.Error("expected error loading missing file, got nil")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{"encoding", func(c *Config) { c.Decode.TextEncoding = "latin-1" }, "text_encoding"},
		{"bone limit", func(c *Config) { c.Decode.BoneCountLimit = 0 }, "bone count"},
		{"format", func(c *Config) { c.Export.Format = "fbx" }, "export.format"},
		{"workers", func(c *Config) { c.Batch.Workers = 0 }, "workers"},
		{"supersample", func(c *Config) { c.Preview.Supersample = 0 }, "preview"},
		{"size", func(c *Config) { c.Preview.Size = 4 }, "preview"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tt.field) {
				t.Errorf("error %q does not mention %q", err, tt.field)
			}
		})
	}

	cfg := Default()
	cfg.Export.Format = "GLTF"
	if err := cfg.Validate(); err != nil {
		t.Errorf("format matching should ignore case: %v", err)
	}
}

func TestDecodeOptions(t *testing.T) {
	cfg := Default()
	opts, err := cfg.DecodeOptions()
	if err != nil {
		t.Fatalf("DecodeOptions failed: %v", err)
	}
	if len(opts) != 3 {
		t.Errorf("got %d options, want 3", len(opts))
	}

	// The options must be accepted by the decoder: a garbage buffer still
	// fails on layout, not on option handling.
	if _, err := formats.DecodeYMD([]byte("no tokens here"), opts...); err == nil {
		t.Error("expected decode error for garbage input")
	}

	cfg.Decode.TextEncoding = "ebcdic"
	if _, err := cfg.DecodeOptions(); err == nil {
		t.Error("expected error for unknown encoding")
	}
}

func TestConfigDir(t *testing.T) {
	dir := ConfigDir()
	if dir == "" {
		t.Error("ConfigDir returned empty string")
	}
	if !filepath.IsAbs(dir) {
		t.Errorf("ConfigDir should return absolute path, got %s", dir)
	}
	if filepath.Base(dir) != "ezmodel" {
		t.Errorf("ConfigDir should end in ezmodel, got %s", dir)
	}
}

func TestFindConfigFile(t *testing.T) {
	origDir, _ := os.Getwd()
	defer os.Chdir(origDir)

	tmpDir := t.TempDir()
	os.Chdir(tmpDir)
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(tmpDir, "xdg"))
	t.Setenv("HOME", tmpDir)
	t.Setenv("APPDATA", filepath.Join(tmpDir, "appdata"))

	if path := findConfigFile(); path != "" {
		t.Errorf("expected empty path when no config exists, got %s", path)
	}

	if err := os.WriteFile(filepath.Join(tmpDir, "eztool.yaml"), []byte("batch:\n  workers: 2\n"), 0644); err != nil {
		t.Fatalf("failed to create test config: %v", err)
	}
	if path := findConfigFile(); path == "" {
		t.Error("expected to find eztool.yaml in current directory")
	}
}

func TestApplyFlags(t *testing.T) {
	tests := []struct {
		name     string
		setup    func()
		verify   func(*Config)
		teardown func()
	}{
		{
			name:  "debug flag",
			setup: func() { *flagDebug = true },
			verify: func(cfg *Config) {
				if cfg.Logging.Level != "debug" {
					t.Errorf("expected log level 'debug', got %s", cfg.Logging.Level)
				}
			},
			teardown: func() { *flagDebug = false },
		},
		{
			name:  "workers flag",
			setup: func() { *flagWorkers = 16 },
			verify: func(cfg *Config) {
				if cfg.Batch.Workers != 16 {
					t.Errorf("expected 16 workers, got %d", cfg.Batch.Workers)
				}
			},
			teardown: func() { *flagWorkers = 0 },
		},
		{
			name: "format and out flags",
			setup: func() {
				*flagFormat = FormatGLTF
				*flagOut = "/tmp/glb"
			},
			verify: func(cfg *Config) {
				if cfg.Export.Format != FormatGLTF || cfg.Export.OutputDir != "/tmp/glb" {
					t.Errorf("export section = %+v", cfg.Export)
				}
			},
			teardown: func() {
				*flagFormat = ""
				*flagOut = ""
			},
		},
		{
			name: "decode flags",
			setup: func() {
				*flagEncoding = encoding.ShiftJIS
				*flagFirstMatch = true
			},
			verify: func(cfg *Config) {
				if cfg.Decode.TextEncoding != encoding.ShiftJIS || !cfg.Decode.FirstMatchJoin {
					t.Errorf("decode section = %+v", cfg.Decode)
				}
			},
			teardown: func() {
				*flagEncoding = ""
				*flagFirstMatch = false
			},
		},
		{
			name:  "log file flag",
			setup: func() { *flagLogFile = "run.log" },
			verify: func(cfg *Config) {
				if cfg.Logging.LogFile != "run.log" {
					t.Errorf("expected log file run.log, got %s", cfg.Logging.LogFile)
				}
			},
			teardown: func() { *flagLogFile = "" },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.setup()
			defer tt.teardown()

			cfg := Default()
			applyFlags(cfg)
			tt.verify(cfg)
		})
	}
}

func TestLoadPriority(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "eztool.yaml")
	if err := os.WriteFile(configPath, []byte("batch:\n  workers: 2\nexport:\n  format: gltf\n"), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	*flagConfig = configPath
	*flagWorkers = 6
	defer func() {
		*flagConfig = ""
		*flagWorkers = 0
	}()

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Batch.Workers != 6 {
		t.Errorf("expected workers 6 from flag, got %d", cfg.Batch.Workers)
	}
	if cfg.Export.Format != FormatGLTF {
		t.Errorf("expected format gltf from file, got %s", cfg.Export.Format)
	}
	if cfg.Export.OutputDir != "out" {
		t.Errorf("expected default output dir, got %s", cfg.Export.OutputDir)
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "eztool.yaml")
	if err := os.WriteFile(configPath, []byte("export:\n  format: fbx\n"), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}
	*flagConfig = configPath
	defer func() { *flagConfig = "" }()

	if _, err := Load(); err == nil {
		t.Error("expected Load to reject unknown export format")
	}
}

func TestSaveTo(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "eztool.yaml")

	cfg := Default()
	cfg.Batch.Workers = 3
	cfg.Decode.TextEncoding = encoding.ShiftJIS
	if err := cfg.SaveTo(path); err != nil {
		t.Fatalf("SaveTo failed: %v", err)
	}

	loaded := Default()
	if err := loadFromFile(loaded, path); err != nil {
		t.Fatalf("failed to reload saved config: %v", err)
	}
	if loaded.Batch.Workers != 3 || loaded.Decode.TextEncoding != encoding.ShiftJIS {
		t.Errorf("reloaded config = %+v", loaded)
	}
}

func TestSave(t *testing.T) {
	tmpDir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", tmpDir)
	t.Setenv("HOME", tmpDir)
	t.Setenv("APPDATA", tmpDir)

	if err := Default().Save(); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if _, err := os.Stat(filepath.Join(ConfigDir(), "config.yaml")); err != nil {
		t.Errorf("saved config not found: %v", err)
	}
}
