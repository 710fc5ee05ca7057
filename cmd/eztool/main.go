// eztool is a CLI utility for encrypted .ez model containers and the
// .ymd / .aura assets inside them.
package main

import (
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/Faultbox/ezmodel/internal/config"
	"github.com/Faultbox/ezmodel/internal/logger"
)

func main() {
	config.ParseFlags()
	args := config.Args()
	if len(args) < 1 {
		printUsage()
		os.Exit(1)
	}

	command := args[0]
	args = args[1:]
	if command == "help" {
		printUsage()
		return
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if err := logger.Init(cfg.Logging.Level, cfg.Logging.LogFile); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	logger.Debug("config loaded",
		zap.String("path", config.ConfigPath()),
		zap.String("format", cfg.Export.Format),
		zap.Int("workers", cfg.Batch.Workers))

	switch command {
	case "info":
		cmdInfo(cfg, args)
	case "list", "ls":
		cmdList(cfg, args)
	case "extract", "x":
		cmdExtract(cfg, args)
	case "decrypt":
		cmdDecrypt(cfg, args)
	case "decode":
		cmdDecode(cfg, args)
	case config.FormatOBJ, config.FormatGLTF, config.FormatPreview:
		cmdExport(cfg, command, args)
	case "models":
		cmdModels(cfg)
	case "batch":
		cmdBatch(cfg, args)
	case "config":
		cmdConfig(cfg, args)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
	logger.Sync()
}

func printUsage() {
	fmt.Println(`eztool - encrypted model container utility

Usage:
  eztool [global options] <command> [options]

Commands:
  info <file.ez>                     Show container and asset summary
  list <file.ez> [pattern]           List members (optional glob pattern)
  extract <file.ez> [pattern]        Extract members to the output directory
  decrypt <file.ez> [out.zip]        Decrypt a container to a plain zip
  decode <file>                      Dump the decoded scene model
  obj <file>...                      Export meshes as Wavefront OBJ
  gltf <file>...                     Export a binary glTF (.glb)
  preview <file>...                  Render a WebP thumbnail
  batch <dir|file>...                Export many inputs concurrently
  models                             List models found in container.search_paths
  config [-save path]                Print or save the effective config

Inputs are .ez containers or bare .ymd / .aura assets. When
container.search_paths is configured, a model name may be given instead
of a container path.

Global options:
  -config path      Config file (default ./eztool.yaml, then user config dir)
  -debug            Enable debug logging
  -log-file path    Also write logs to a rotating file
  -out dir          Output directory
  -format fmt       Batch export format: obj, gltf or preview
  -workers n        Batch worker count
  -encoding enc     Name encoding: utf-8 or shift-jis
  -first-match      Join meshes to the first owning object

Examples:
  eztool info hero.ez
  eztool list hero.ez "*.png"
  eztool -out ./models gltf hero.ez
  eztool -workers 8 -format preview batch ./containers`)
}

// exitf prints an error, flushes logs and exits with status 1.
func exitf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	logger.Sync()
	os.Exit(1)
}
