package config

import "flag"

var (
	flagConfig     = flag.String("config", "", "Path to config file")
	flagDebug      = flag.Bool("debug", false, "Enable debug logging")
	flagLOD        = flag.Int("lod", -1, "LOD index of the generated blocks")
	flagOctahedral = flag.Bool("octahedral", false, "Use 2-byte octahedral normal encoding")
	flagWorkers    = flag.Int("workers", 0, "Number of blocks processed concurrently")
	flagOut        = flag.String("out", "", "Directory to write atlas and lookup images to")
	flagFormat     = flag.String("format", "", "Image format: png or bmp")
	flagGPU        = flag.Bool("gpu", false, "Create OpenGL textures in a hidden window")
	flagSave       = flag.Bool("save-config", false, "Write the effective config to the user config directory and exit")
)

// ParseFlags parses command-line flags. Call this early in main().
func ParseFlags() {
	flag.Parse()
}

// ConfigPath returns the explicit config path if provided via --config flag.
func ConfigPath() string {
	return *flagConfig
}

// SaveRequested reports whether --save-config was given.
func SaveRequested() bool {
	return *flagSave
}

// applyFlags applies CLI flag overrides to the config.
func applyFlags(cfg *Config) {
	if *flagDebug {
		cfg.Logging.Level = "debug"
	}
	if *flagLOD >= 0 {
		cfg.Blocks.LOD = *flagLOD
	}
	if *flagOctahedral {
		cfg.Detail.OctahedralEncodingEnabled = true
	}
	if *flagWorkers > 0 {
		cfg.Pipeline.Workers = *flagWorkers
	}
	if *flagOut != "" {
		cfg.Output.Dir = *flagOut
	}
	if *flagFormat != "" {
		cfg.Output.Format = *flagFormat
	}
	if *flagGPU {
		cfg.Pipeline.GPU = true
	}
}
