package config

import "flag"

var (
	flagConfig     = flag.String("config", "", "Path to config file")
	flagDebug      = flag.Bool("debug", false, "Enable debug logging")
	flagLogFile    = flag.String("log-file", "", "Also write logs to this file")
	flagWorkers    = flag.Int("workers", 0, "Number of batch workers")
	flagFormat     = flag.String("format", "", "Export format: obj, gltf or preview")
	flagOut        = flag.String("out", "", "Output directory")
	flagEncoding   = flag.String("encoding", "", "Text encoding of names: utf-8 or shift-jis")
	flagFirstMatch = flag.Bool("first-match", false, "Join meshes to the first owning object instead of failing")
)

// ParseFlags parses command-line flags. Call this early in main().
func ParseFlags() {
	flag.Parse()
}

// Args returns the non-flag arguments: the command and its operands.
func Args() []string {
	return flag.Args()
}

// ConfigPath returns the explicit config path if provided via -config.
func ConfigPath() string {
	return *flagConfig
}

// applyFlags applies CLI flag overrides to the config.
func applyFlags(cfg *Config) {
	if *flagDebug {
		cfg.Logging.Level = "debug"
	}
	if *flagLogFile != "" {
		cfg.Logging.LogFile = *flagLogFile
	}
	if *flagWorkers > 0 {
		cfg.Batch.Workers = *flagWorkers
	}
	if *flagFormat != "" {
		cfg.Export.Format = *flagFormat
	}
	if *flagOut != "" {
		cfg.Export.OutputDir = *flagOut
	}
	if *flagEncoding != "" {
		cfg.Decode.TextEncoding = *flagEncoding
	}
	if *flagFirstMatch {
		cfg.Decode.FirstMatchJoin = true
	}
}
