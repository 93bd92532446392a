// Package loader reads point cloud files into memory and writes them back
// out. Text scans and containers are decoded block by block on a bounded set
// of workers; LAS files are read through lidario.
package loader

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/Faultbox/pcloud/internal/config"
	"github.com/Faultbox/pcloud/internal/logger"
	"github.com/Faultbox/pcloud/internal/pointcloud"
)

var (
	// ErrIO is wrapped by errors from opening, reading or writing files.
	ErrIO = errors.New("point cloud i/o error")
	// ErrFormat is wrapped by errors from decoding a file whose content is invalid.
	ErrFormat = errors.New("point cloud format error")
)

const (
	// DefaultBlockSize is the number of bytes handed to one worker.
	DefaultBlockSize = 1 << 20
	// DefaultChunkSize is the chunk edge length used after loading.
	DefaultChunkSize = 10
)

// Loader holds ingestion settings. The zero value is not usable; use New
// or Default.
type Loader struct {
	BlockSize int
	// Workers caps the goroutines per wave, up to the CPU count. Zero means one per CPU.
	Workers int
	// ChunkSize is the edge length of the partition built after a load.
	ChunkSize   float32
	Partitioner pointcloud.Partitioner
	// Buffers is attached to every loaded cloud.
	Buffers pointcloud.BufferAllocator

	log *zap.Logger
}

// Default returns a loader with the built-in settings.
func Default() *Loader {
	return &Loader{
		BlockSize: DefaultBlockSize,
		ChunkSize: DefaultChunkSize,
		log:       logger.Named("loader"),
	}
}

// New returns a loader configured from cfg.
func New(cfg *config.Config, buffers pointcloud.BufferAllocator) *Loader {
	l := Default()
	if cfg.Ingest.BlockSize > 0 {
		l.BlockSize = cfg.Ingest.BlockSize
	}
	l.Workers = cfg.Ingest.Workers
	if cfg.Partition.ChunkSize > 0 {
		l.ChunkSize = cfg.Partition.ChunkSize
	}
	l.Partitioner.Workers = cfg.LOD.Workers
	if cfg.LOD.Seed != 0 {
		l.Partitioner.Seeds = pointcloud.FixedSeed(cfg.LOD.Seed)
	}
	l.Buffers = buffers
	return l
}

func (l *Loader) workers() int {
	if l.Workers > 0 {
		return min(l.Workers, runtime.NumCPU())
	}
	return runtime.NumCPU()
}

func (l *Loader) blockSize() int {
	if l.BlockSize > 0 {
		return l.BlockSize
	}
	return DefaultBlockSize
}

func (l *Loader) logger() *zap.Logger {
	if l.log == nil {
		return logger.Named("loader")
	}
	return l.log
}

// CloudName returns the display name of a cloud loaded from path.
func CloudName(path string) string {
	return "PointCloud_" + filepath.Base(path)
}

// LoadPointCloudFile loads path with the default loader.
func LoadPointCloudFile(path string, stride int) (*pointcloud.PointCloud, Stats, error) {
	return Default().LoadPointCloudFile(path, stride)
}

// LoadFromContainer loads a PCB container with the default loader.
func LoadFromContainer(path string) (*pointcloud.PointCloud, Stats, error) {
	return Default().LoadFromContainer(path)
}

// LoadPointCloudFile reads every stride-th record of path. Files ending in
// .pcb are read as containers, .las through lidario, anything else as XYZ
// text. The returned cloud is always valid: on failure it is empty and the
// error wraps ErrIO or ErrFormat. Instance matrices and the chunk partition
// are built in every case.
func (l *Loader) LoadPointCloudFile(path string, stride int) (*pointcloud.PointCloud, Stats, error) {
	stride = max(stride, 1)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".pcb":
		return l.load(path, stride, l.readContainer)
	case ".las":
		return l.load(path, stride, l.readLAS)
	default:
		return l.load(path, stride, l.readText)
	}
}

// LoadFromContainer reads a whole PCB container. The cloud's transform is
// the identity.
func (l *Loader) LoadFromContainer(path string) (*pointcloud.PointCloud, Stats, error) {
	return l.load(path, 1, l.readContainer)
}

type readFunc func(f *os.File, cloud *pointcloud.PointCloud, stride int, st *counters) error

func (l *Loader) load(path string, stride int, read readFunc) (*pointcloud.PointCloud, Stats, error) {
	log := l.logger().With(zap.String("path", path))
	start := time.Now()

	cloud := pointcloud.New(CloudName(path), path)
	cloud.Buffers = l.Buffers

	var st counters
	err := l.readFile(path, cloud, stride, &st, read)
	if err != nil {
		log.Error("Failed to load point cloud", zap.Error(err))
		cloud.Reset()
	}

	stats := st.snapshot()
	stats.Duration = time.Since(start)
	if stats.Malformed > 0 {
		log.Warn("Skipped malformed records", zap.Int64("malformed", stats.Malformed))
	}

	cloud.BuildInstanceMatrices()
	if perr := l.Partitioner.Partition(cloud, l.chunkSize()); perr != nil {
		err = errors.Join(err, perr)
	}

	log.Info("Loaded point cloud",
		zap.String("name", cloud.Name),
		zap.Int64("records", stats.Records),
		zap.Int("points", cloud.Len()),
		zap.Int("chunks", len(cloud.Chunks)),
		zap.Int64("waves", stats.Waves),
		zap.Duration("elapsed", stats.Duration))
	return cloud, stats, err
}

func (l *Loader) readFile(path string, cloud *pointcloud.PointCloud, stride int, st *counters, read readFunc) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrIO, err)
	}
	defer f.Close()
	return read(f, cloud, stride, st)
}

func (l *Loader) chunkSize() float32 {
	if l.ChunkSize > 0 {
		return l.ChunkSize
	}
	return DefaultChunkSize
}
