package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/Faultbox/ezmodel/internal/config"
	"github.com/Faultbox/ezmodel/internal/library"
	"github.com/Faultbox/ezmodel/internal/logger"
	"github.com/Faultbox/ezmodel/pkg/ez"
	"github.com/Faultbox/ezmodel/pkg/ezcrypt"
)

var (
	libOnce sync.Once
	lib     *library.Library
)

// modelLibrary indexes the configured search paths on first use.
func modelLibrary(cfg *config.Config) *library.Library {
	libOnce.Do(func() {
		lib = library.New()
		for _, dir := range cfg.Container.SearchPaths {
			if err := lib.AddDir(dir); err != nil {
				logger.Warn("skipping search path", zap.String("dir", dir), zap.Error(err))
			}
		}
	})
	return lib
}

// resolveInput returns arg when it names an existing file, otherwise the
// container the library indexes under that model name.
func resolveInput(cfg *config.Config, arg string) string {
	if _, err := os.Stat(arg); err == nil || len(cfg.Container.SearchPaths) == 0 {
		return arg
	}
	path, err := modelLibrary(cfg).Find(arg)
	if err != nil {
		exitf("Error: %v", err)
	}
	logger.Debug("resolved model name", zap.String("name", arg), zap.String("path", path))
	return path
}

func openArchive(cfg *config.Config, arg string) *ez.Archive {
	var (
		archive *ez.Archive
		err     error
	)
	if _, statErr := os.Stat(arg); statErr != nil && len(cfg.Container.SearchPaths) > 0 {
		archive, err = modelLibrary(cfg).Open(arg)
	} else {
		archive, err = ez.Open(arg)
	}
	if err != nil {
		exitf("Error: %v", err)
	}
	return archive
}

func cmdModels(cfg *config.Config) {
	if len(cfg.Container.SearchPaths) == 0 {
		exitf("No container.search_paths configured")
	}
	l := modelLibrary(cfg)
	for _, name := range l.Names() {
		path, _ := l.Find(name)
		fmt.Printf("%-30s %s\n", name, path)
	}
}

func cmdInfo(cfg *config.Config, args []string) {
	if len(args) < 1 {
		exitf("Usage: eztool info <file.ez>")
	}

	archive := openArchive(cfg, args[0])
	entries := archive.Entries()

	var totalSize uint64
	extCount := make(map[string]int)
	for _, e := range entries {
		totalSize += e.UncompressedSize
		ext := strings.ToLower(filepath.Ext(e.Name))
		if ext == "" {
			ext = "(no ext)"
		}
		extCount[ext]++
	}

	fmt.Printf("Container: %s\n", args[0])
	fmt.Printf("Members:   %d\n", len(entries))
	fmt.Printf("Size:      %.2f KB\n", float64(totalSize)/1024)

	exts := make([]string, 0, len(extCount))
	for ext := range extCount {
		exts = append(exts, ext)
	}
	sort.Slice(exts, func(i, j int) bool {
		if extCount[exts[i]] != extCount[exts[j]] {
			return extCount[exts[i]] > extCount[exts[j]]
		}
		return exts[i] < exts[j]
	})
	for _, ext := range exts {
		fmt.Printf("  %-10s %d\n", ext, extCount[ext])
	}

	fmt.Println()
	primary, err := archive.PrimaryAsset()
	if err != nil {
		fmt.Printf("Asset:     none (%v)\n", err)
	} else {
		fmt.Printf("Asset:     %s\n", primary)
		opts := decodeOptions(cfg)
		if asset, err := archive.DecodeAsset(opts...); err != nil {
			fmt.Printf("Decode:    failed: %v\n", err)
		} else {
			printAssetSummary(asset)
		}
	}

	info, err := archive.ModelInfo()
	switch {
	case err != nil:
		fmt.Printf("\nModel info: unreadable (%v)\n", err)
	case info != nil:
		fmt.Println("\nModel info:")
		for _, m := range info.Materials {
			fmt.Printf("  %-20s %s\n", m.Name, strings.Join(m.Texture, ", "))
		}
	}

	images := archive.Images()
	if len(images) > 0 {
		fmt.Println("\nImages:")
		for _, img := range images {
			if img.Err != nil {
				fmt.Printf("  %-30s %-5s unreadable: %v\n", img.Name, img.Format, img.Err)
				continue
			}
			fmt.Printf("  %-30s %-5s %dx%d\n", img.Name, img.Format, img.Width, img.Height)
		}
	}
}

func cmdList(cfg *config.Config, args []string) {
	fs := flag.NewFlagSet("list", flag.ExitOnError)
	limit := fs.Int("n", 0, "Limit output to N members (0 = all)")
	long := fs.Bool("l", false, "Show sizes")
	fs.Parse(args)

	if fs.NArg() < 1 {
		exitf("Usage: eztool list [-n N] [-l] <file.ez> [pattern]")
	}

	archive := openArchive(cfg, fs.Arg(0))

	pattern := ""
	if fs.NArg() > 1 {
		pattern = strings.ToLower(fs.Arg(1))
	}

	count := 0
	for _, e := range archive.Entries() {
		if pattern != "" && !matchMember(pattern, e.Name) {
			continue
		}
		if *long {
			fmt.Printf("%10d %10d  %s\n", e.UncompressedSize, e.CompressedSize, e.Name)
		} else {
			fmt.Println(e.Name)
		}
		count++
		if *limit > 0 && count >= *limit {
			break
		}
	}

	if pattern != "" {
		fmt.Fprintf(os.Stderr, "\n(%d members matched)\n", count)
	}
}

// matchMember reports whether a lower-cased pattern matches a member's base
// name as a glob, or its full path as a substring.
func matchMember(pattern, name string) bool {
	lower := strings.ToLower(name)
	if matched, _ := filepath.Match(pattern, filepath.Base(lower)); matched {
		return true
	}
	return !strings.ContainsAny(pattern, "*?[") && strings.Contains(lower, pattern)
}

func cmdExtract(cfg *config.Config, args []string) {
	fs := flag.NewFlagSet("extract", flag.ExitOnError)
	fs.Parse(args)

	if fs.NArg() < 1 {
		exitf("Usage: eztool extract <file.ez> [pattern]")
	}

	archive := openArchive(cfg, fs.Arg(0))
	outputDir := filepath.Join(cfg.Export.OutputDir, archive.Name())

	var match func(string) bool
	if fs.NArg() > 1 {
		pattern := strings.ToLower(fs.Arg(1))
		match = func(name string) bool { return matchMember(pattern, name) }
	}

	written, err := archive.Extract(outputDir, match)
	for _, p := range written {
		fmt.Printf("Extracted: %s\n", p)
	}
	if err != nil {
		exitf("Error: %v", err)
	}
	fmt.Fprintf(os.Stderr, "\nExtracted %d files\n", len(written))
}

func cmdDecrypt(cfg *config.Config, args []string) {
	if len(args) < 1 {
		exitf("Usage: eztool decrypt <file.ez> [out.zip]")
	}

	in := resolveInput(cfg, args[0])
	out := strings.TrimSuffix(in, filepath.Ext(in)) + ".zip"
	if len(args) > 1 {
		out = args[1]
	}

	if err := ezcrypt.DecryptFile(in, out); err != nil {
		exitf("Error: %v", err)
	}
	fmt.Printf("Decrypted: %s\n", out)
}
