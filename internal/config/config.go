// Package config handles tool and viewer configuration loading and management.
package config

// Config holds all settings.
type Config struct {
	Ingest    IngestConfig    `yaml:"ingest"`
	Partition PartitionConfig `yaml:"partition"`
	LOD       LODConfig       `yaml:"lod"`
	Viewer    ViewerConfig    `yaml:"viewer"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// IngestConfig holds point file loading settings.
type IngestConfig struct {
	BlockSize int `yaml:"block_size"` // bytes read per worker block
	Workers   int `yaml:"workers"`    // 0 = one per CPU
	Stride    int `yaml:"stride"`     // keep every n-th record
}

// PartitionConfig holds chunking settings.
type PartitionConfig struct {
	ChunkSize float32 `yaml:"chunk_size"`
}

// LODConfig holds level-of-detail settings.
type LODConfig struct {
	Workers   int       `yaml:"workers"`   // 0 = one per CPU
	Seed      uint64    `yaml:"seed"`      // 0 = fresh entropy per chunk
	Distances []float32 `yaml:"distances"` // camera distance upper bound per level
}

// ViewerConfig holds display and rendering settings.
type ViewerConfig struct {
	Width        int     `yaml:"width"`
	Height       int     `yaml:"height"`
	Fullscreen   bool    `yaml:"fullscreen"`
	VSync        bool    `yaml:"vsync"`
	PointSize    float32 `yaml:"point_size"`
	ShowOutlines bool    `yaml:"show_outlines"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level   string `yaml:"level"`
	LogFile string `yaml:"log_file"`
}

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Ingest: IngestConfig{
			BlockSize: 1 << 20,
			Workers:   0,
			Stride:    1,
		},
		Partition: PartitionConfig{
			ChunkSize: 10,
		},
		LOD: LODConfig{
			Workers:   0,
			Seed:      0,
			Distances: []float32{5, 15, 23, 30, 50},
		},
		Viewer: ViewerConfig{
			Width:        1280,
			Height:       720,
			Fullscreen:   false,
			VSync:        true,
			PointSize:    2,
			ShowOutlines: false,
		},
		Logging: LoggingConfig{
			Level:   "info",
			LogFile: "",
		},
	}
}
