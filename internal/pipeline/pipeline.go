// Package pipeline decodes and exports many model files concurrently.
//
// Each input is decoded independently on its own buffer, so workers share
// nothing but the job channel and the results slice they write by index.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Faultbox/ezmodel/pkg/ez"
	"github.com/Faultbox/ezmodel/pkg/formats"
	"github.com/Faultbox/ezmodel/pkg/gltfexport"
	"github.com/Faultbox/ezmodel/pkg/preview"
)

// Export formats.
const (
	FormatOBJ     = "obj"
	FormatGLTF    = "gltf"
	FormatPreview = "preview"
)

// ErrSkipped marks inputs that were not processed because the run stopped.
var ErrSkipped = errors.New("skipped")

// Config holds the shared settings for a run.
type Config struct {
	OutputDir     string
	Format        string
	Workers       int
	FailFast      bool
	KeepExtracted bool
	DecodeOptions []formats.Option
	Preview       preview.Options
	Logger        *zap.Logger

	// ProgressInterval controls how often progress is logged; zero disables it.
	ProgressInterval time.Duration
}

// Result holds the outcome of processing one input.
type Result struct {
	Path     string
	Member   string // asset member inside a container, empty for bare assets
	Schema   formats.Schema
	Version  int32
	Meshes   int
	Vertices int
	Outputs  []string
	Duration time.Duration
	Err      error
}

// OK reports whether the input was decoded and exported.
func (r Result) OK() bool {
	return r.Err == nil
}

// Summary is the outcome of a run.
type Summary struct {
	RunID     string
	Results   []Result
	Succeeded int
	Failed    int
	Skipped   int
	Elapsed   time.Duration
}

// Run processes paths with a worker pool. Results keep the input order.
// The returned error is non-nil only when ctx ends the run early.
func Run(ctx context.Context, cfg Config, paths []string) (*Summary, error) {
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if _, err := outputName(cfg.Format, "probe"); err != nil {
		return nil, err
	}

	runID := uuid.Must(uuid.NewV7()).String()
	log := cfg.Logger.Named("pipeline").With(zap.String("run_id", runID))

	total := len(paths)
	results := make([]Result, total)
	var processed atomic.Int64
	start := time.Now()

	log.Info("batch started",
		zap.Int("inputs", total),
		zap.Int("workers", cfg.Workers),
		zap.String("format", cfg.Format))

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	done := make(chan struct{})
	if cfg.ProgressInterval > 0 {
		go reportProgress(log, done, &processed, total, start, cfg.ProgressInterval)
	}

	jobs := make(chan int, cfg.Workers*2)
	var wg sync.WaitGroup
	for w := 0; w < cfg.Workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range jobs {
				if runCtx.Err() != nil {
					results[idx] = Result{Path: paths[idx], Err: ErrSkipped}
					continue
				}
				results[idx] = Process(cfg, paths[idx])
				processed.Add(1)

				r := results[idx]
				if r.Err != nil {
					log.Warn("input failed", zap.String("path", r.Path), zap.Error(r.Err))
					if cfg.FailFast {
						cancel()
					}
					continue
				}
				log.Debug("input done",
					zap.String("path", r.Path),
					zap.Int("meshes", r.Meshes),
					zap.Duration("took", r.Duration))
			}
		}()
	}

	for i := range paths {
		jobs <- i
	}
	close(jobs)

	wg.Wait()
	close(done)

	s := &Summary{RunID: runID, Results: results, Elapsed: time.Since(start)}
	for _, r := range results {
		switch {
		case r.Err == nil:
			s.Succeeded++
		case errors.Is(r.Err, ErrSkipped):
			s.Skipped++
		default:
			s.Failed++
		}
	}

	log.Info("batch finished",
		zap.Int("succeeded", s.Succeeded),
		zap.Int("failed", s.Failed),
		zap.Int("skipped", s.Skipped),
		zap.Duration("elapsed", s.Elapsed))

	if err := ctx.Err(); err != nil {
		return s, err
	}
	return s, nil
}

func reportProgress(log *zap.Logger, done <-chan struct{}, processed *atomic.Int64, total int, start time.Time, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			p := processed.Load()
			if p == 0 {
				continue
			}
			rate := float64(p) / time.Since(start).Seconds()
			log.Info("progress",
				zap.Int64("done", p),
				zap.Int("total", total),
				zap.Float64("per_sec", rate))
		}
	}
}

// Process decodes and exports a single input.
func Process(cfg Config, path string) Result {
	start := time.Now()
	r := Result{Path: path}

	asset, archive, err := decode(cfg, path, &r)
	if err != nil {
		r.Err = err
		r.Duration = time.Since(start)
		return r
	}
	r.Schema = asset.Schema
	r.Version = asset.FormatVersion
	r.Meshes = asset.MeshCount()
	r.Vertices = asset.VertexCount()

	name := stem(path)
	dir := filepath.Join(cfg.OutputDir, name)
	outputs, err := export(cfg, asset, dir, name)
	r.Outputs = outputs
	if err != nil {
		r.Err = fmt.Errorf("exporting %s: %w", path, err)
		r.Duration = time.Since(start)
		return r
	}

	if archive != nil && cfg.KeepExtracted {
		written, err := archive.ExtractAll(filepath.Join(dir, "members"))
		r.Outputs = append(r.Outputs, written...)
		if err != nil {
			r.Err = fmt.Errorf("extracting %s: %w", path, err)
		}
	}

	r.Duration = time.Since(start)
	return r
}

func decode(cfg Config, path string, r *Result) (*formats.Asset, *ez.Archive, error) {
	if strings.EqualFold(filepath.Ext(path), ".ez") {
		archive, err := ez.Open(path)
		if err != nil {
			return nil, nil, err
		}
		member, err := archive.PrimaryAsset()
		if err != nil {
			return nil, nil, err
		}
		r.Member = member
		asset, err := archive.DecodeAsset(cfg.DecodeOptions...)
		if err != nil {
			return nil, nil, err
		}
		return asset, archive, nil
	}

	asset, err := formats.DecodeFile(path, cfg.DecodeOptions...)
	if err != nil {
		return nil, nil, err
	}
	return asset, nil, nil
}

func export(cfg Config, a *formats.Asset, dir, name string) ([]string, error) {
	file, err := outputName(cfg.Format, name)
	if err != nil {
		return nil, err
	}
	switch strings.ToLower(cfg.Format) {
	case FormatGLTF:
		out := filepath.Join(dir, file)
		if err := gltfexport.Save(a, out); err != nil {
			return nil, err
		}
		return []string{out}, nil
	case FormatPreview:
		out := filepath.Join(dir, file)
		if err := preview.Save(a, out, cfg.Preview); err != nil {
			return nil, err
		}
		return []string{out}, nil
	default:
		return formats.ExportOBJ(a, dir)
	}
}

// outputName returns the single-file output name for format, or "" for
// formats that write one file per mesh.
func outputName(format, name string) (string, error) {
	switch strings.ToLower(format) {
	case FormatOBJ, "":
		return "", nil
	case FormatGLTF:
		return name + ".glb", nil
	case FormatPreview:
		return name + ".webp", nil
	default:
		return "", fmt.Errorf("unknown export format %q", format)
	}
}

// Discover walks root and returns every container and bare asset below it,
// sorted by path.
func Discover(root string) ([]string, error) {
	var paths []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		switch strings.ToLower(filepath.Ext(path)) {
		case ".ez", ".ymd", ".aura":
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(paths)
	return paths, nil
}

func stem(p string) string {
	base := filepath.Base(p)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
