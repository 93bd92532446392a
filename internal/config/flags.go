package config

import "flag"

var (
	flagConfig    = flag.String("config", "", "Path to config file")
	flagDebug     = flag.Bool("debug", false, "Enable debug logging")
	flagStride    = flag.Int("stride", 0, "Keep every n-th point while loading")
	flagChunkSize = flag.Float64("chunk-size", 0, "Chunk edge length in world units")
	flagOutlines  = flag.Bool("outlines", false, "Draw chunk outlines")
	flagWidth     = flag.Int("width", 0, "Window width")
	flagHeight    = flag.Int("height", 0, "Window height")
)

// ParseFlags parses command-line flags. Call this early in main().
func ParseFlags() {
	flag.Parse()
}

// ConfigPath returns the explicit config path if provided via --config flag.
func ConfigPath() string {
	return *flagConfig
}

// Args returns the positional arguments left after flag parsing.
func Args() []string {
	return flag.Args()
}

// applyFlags applies CLI flag overrides to the config.
func applyFlags(cfg *Config) {
	if *flagDebug {
		cfg.Logging.Level = "debug"
	}
	if *flagStride > 0 {
		cfg.Ingest.Stride = *flagStride
	}
	if *flagChunkSize > 0 {
		cfg.Partition.ChunkSize = float32(*flagChunkSize)
	}
	if *flagOutlines {
		cfg.Viewer.ShowOutlines = true
	}
	if *flagWidth > 0 {
		cfg.Viewer.Width = *flagWidth
	}
	if *flagHeight > 0 {
		cfg.Viewer.Height = *flagHeight
	}
}
