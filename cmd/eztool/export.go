package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/Faultbox/ezmodel/internal/config"
	"github.com/Faultbox/ezmodel/internal/logger"
	"github.com/Faultbox/ezmodel/internal/pipeline"
	"github.com/Faultbox/ezmodel/pkg/formats"
	"github.com/Faultbox/ezmodel/pkg/preview"
)

func decodeOptions(cfg *config.Config) []formats.Option {
	opts, err := cfg.DecodeOptions()
	if err != nil {
		exitf("Error: %v", err)
	}
	return append(opts, formats.WithLogger(logger.Named("decode")))
}

func pipelineConfig(cfg *config.Config, format string) pipeline.Config {
	popts := preview.DefaultOptions()
	popts.Size = cfg.Preview.Size
	popts.Supersample = cfg.Preview.Supersample

	return pipeline.Config{
		OutputDir:        cfg.Export.OutputDir,
		Format:           format,
		Workers:          cfg.Batch.Workers,
		FailFast:         cfg.Batch.FailFast,
		KeepExtracted:    cfg.Container.KeepExtracted,
		DecodeOptions:    decodeOptions(cfg),
		Preview:          popts,
		Logger:           logger.Log,
		ProgressInterval: 2 * time.Second,
	}
}

// loadAsset decodes a container's primary asset or a bare asset file.
func loadAsset(cfg *config.Config, path string) *formats.Asset {
	opts := decodeOptions(cfg)
	path = resolveInput(cfg, path)
	if strings.EqualFold(filepath.Ext(path), ".ez") {
		archive := openArchive(cfg, path)
		asset, err := archive.DecodeAsset(opts...)
		if err != nil {
			exitf("Error: %v", err)
		}
		return asset
	}

	asset, err := formats.DecodeFile(path, opts...)
	if err != nil {
		exitf("Error: %v", err)
	}
	return asset
}

func printAssetSummary(a *formats.Asset) {
	support := "supported"
	if !a.Supported() {
		support = "unknown, decoded best-effort"
	}
	fmt.Printf("Schema:    %s\n", a.Schema)
	fmt.Printf("Version:   %d (%s)\n", a.FormatVersion, support)
	fmt.Printf("Objects:   %d\n", len(a.Objects))
	fmt.Printf("Meshes:    %d\n", a.MeshCount())
	fmt.Printf("Vertices:  %d\n", a.VertexCount())
	if a.Skeleton != nil {
		fmt.Printf("Nodes:     %d\n", a.Skeleton.Len())
	}
	fmt.Printf("Clips:     %d\n", len(a.Animations))
	if a.Schema == formats.SchemaShape {
		fmt.Printf("Materials: %d\n", len(a.Materials))
		fmt.Printf("Shapes:    %d\n", len(a.Shapes))
		fmt.Printf("Curves:    %d\n", len(a.Curves))
	}
}

func cmdDecode(cfg *config.Config, args []string) {
	fs := flag.NewFlagSet("decode", flag.ExitOnError)
	tree := fs.Bool("tree", false, "Print the node hierarchy")
	fs.Parse(args)

	if fs.NArg() < 1 {
		exitf("Usage: eztool decode [-tree] <file.ez|file.ymd|file.aura>")
	}

	a := loadAsset(cfg, fs.Arg(0))
	printAssetSummary(a)

	for _, obj := range a.Objects {
		fmt.Printf("\nObject %s\n", obj.Name)
		for _, m := range obj.Meshes {
			line := fmt.Sprintf("  mesh %-24s %6d verts %6d faces", m.Name, len(m.Positions), len(m.Faces))
			if bone, ok := a.MeshNameBindings[m.Name]; ok {
				line += " -> " + bone
			}
			fmt.Println(line)
		}
	}

	for _, m := range a.Materials {
		fmt.Printf("\nMaterial %s (%s)\n", m.Name, m.Texture)
		for _, p := range m.Params {
			fmt.Printf("  %s = %s\n", p.Key, p.Value)
		}
	}
	for _, s := range a.Shapes {
		fmt.Printf("Shape %-24s %6d verts %6d faces  material %s\n", s.Name, len(s.Positions), len(s.Faces), s.Material)
	}

	for _, c := range a.Animations {
		fmt.Printf("\nClip %s: %d frames, %d tracks\n", c.Name, c.FrameCount, len(c.Tracks))
	}
	for _, c := range a.Curves {
		fmt.Printf("Curve %s: %d samples\n", c.Name, len(c.Samples))
	}

	if *tree && a.Skeleton != nil {
		fmt.Println("\nHierarchy:")
		a.Skeleton.Walk(func(idx, depth int) bool {
			n := a.Skeleton.Nodes[idx]
			suffix := ""
			if n.Mesh != "" {
				suffix = "  [" + n.Mesh + "]"
			}
			fmt.Printf("  %s%s%s\n", strings.Repeat("  ", depth), n.Name, suffix)
			return true
		})
	}
}

func cmdExport(cfg *config.Config, format string, args []string) {
	if len(args) < 1 {
		exitf("Usage: eztool %s <file.ez|file.ymd|file.aura>...", format)
	}

	pcfg := pipelineConfig(cfg, format)
	failed := 0
	for _, arg := range args {
		path := resolveInput(cfg, arg)
		r := pipeline.Process(pcfg, path)
		if r.Err != nil {
			fmt.Fprintf(os.Stderr, "Error: %s: %v\n", path, r.Err)
			failed++
			continue
		}
		for _, out := range r.Outputs {
			fmt.Printf("Wrote: %s\n", out)
		}
	}
	if failed > 0 {
		exitf("%d of %d inputs failed", failed, len(args))
	}
}

func cmdBatch(cfg *config.Config, args []string) {
	if len(args) < 1 {
		exitf("Usage: eztool batch <dir|file>...")
	}

	var inputs []string
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			exitf("Error: %v", err)
		}
		if !info.IsDir() {
			inputs = append(inputs, arg)
			continue
		}
		found, err := pipeline.Discover(arg)
		if err != nil {
			exitf("Error scanning %s: %v", arg, err)
		}
		inputs = append(inputs, found...)
	}
	if len(inputs) == 0 {
		exitf("No containers or assets found")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	s, err := pipeline.Run(ctx, pipelineConfig(cfg, cfg.Export.Format), inputs)
	if s != nil {
		for _, r := range s.Results {
			switch {
			case r.OK():
				fmt.Printf("ok    %s (%d meshes, %d outputs, %v)\n", r.Path, r.Meshes, len(r.Outputs), r.Duration.Round(time.Millisecond))
			default:
				fmt.Printf("FAIL  %s: %v\n", r.Path, r.Err)
			}
		}
		fmt.Fprintf(os.Stderr, "\nRun %s: %d ok, %d failed, %d skipped in %v\n",
			s.RunID, s.Succeeded, s.Failed, s.Skipped, s.Elapsed.Round(time.Millisecond))
	}
	if err != nil {
		exitf("Error: %v", err)
	}
	if s.Failed > 0 {
		logger.Sync()
		os.Exit(1)
	}
}

func cmdConfig(cfg *config.Config, args []string) {
	fs := flag.NewFlagSet("config", flag.ExitOnError)
	save := fs.String("save", "", "Write the effective config to this path")
	userDir := fs.Bool("user", false, "Write the effective config to the user config directory")
	fs.Parse(args)

	switch {
	case *save != "":
		if err := cfg.SaveTo(*save); err != nil {
			exitf("Error: %v", err)
		}
		fmt.Printf("Saved: %s\n", *save)
	case *userDir:
		if err := cfg.Save(); err != nil {
			exitf("Error: %v", err)
		}
		fmt.Printf("Saved: %s\n", filepath.Join(config.ConfigDir(), "config.yaml"))
	default:
		data, err := yaml.Marshal(cfg)
		if err != nil {
			exitf("Error: %v", err)
		}
		os.Stdout.Write(data)
	}
}
