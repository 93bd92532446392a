package pointcloud

import (
	"cmp"
	"errors"
	"fmt"
	"maps"
	"slices"

	"github.com/chewxy/math32"

	"github.com/Faultbox/pcloud/pkg/math"
)

// ErrInvalidChunkSize is returned when the chunk edge length is not a
// positive finite number.
var ErrInvalidChunkSize = errors.New("invalid chunk size")

// ChunkKey is the integer grid cell of a chunk.
type ChunkKey struct {
	X, Y, Z int32
}

// KeyFor returns the grid cell containing p for the given edge length.
func KeyFor(p math.Vec3, chunkSize float32) ChunkKey {
	return ChunkKey{
		X: int32(math32.Floor(p.X / chunkSize)),
		Y: int32(math32.Floor(p.Y / chunkSize)),
		Z: int32(math32.Floor(p.Z / chunkSize)),
	}
}

// Center returns the world-space center of the cell.
func (k ChunkKey) Center(chunkSize float32) math.Vec3 {
	return math.Vec3{
		X: (float32(k.X) + 0.5) * chunkSize,
		Y: (float32(k.Y) + 0.5) * chunkSize,
		Z: (float32(k.Z) + 0.5) * chunkSize,
	}
}

// Compare orders keys by X, then Y, then Z.
func (k ChunkKey) Compare(other ChunkKey) int {
	if c := cmp.Compare(k.X, other.X); c != 0 {
		return c
	}
	if c := cmp.Compare(k.Y, other.Y); c != 0 {
		return c
	}
	return cmp.Compare(k.Z, other.Z)
}

func (k ChunkKey) String() string {
	return fmt.Sprintf("(%d,%d,%d)", k.X, k.Y, k.Z)
}

// Chunk is the set of points falling inside one grid cell.
type Chunk struct {
	Key    ChunkKey
	Points []Point
	Center math.Vec3
	// BoundingRadius is the largest distance from a transformed point to Center.
	BoundingRadius float32
	LODs           []LODLevel
}

// Len returns the number of points in the chunk.
func (c *Chunk) Len() int {
	return len(c.Points)
}

// LOD returns the level at index level, clamped to the available levels.
func (c *Chunk) LOD(level int) *LODLevel {
	if len(c.LODs) == 0 {
		return nil
	}
	return &c.LODs[min(max(level, 0), len(c.LODs)-1)]
}

func (c *Chunk) releaseBuffers(alloc BufferAllocator) {
	for i := range c.LODs {
		lvl := &c.LODs[i]
		if lvl.Buffer != NoBuffer && alloc != nil {
			alloc.Release(lvl.Buffer)
		}
		lvl.Buffer = NoBuffer
	}
}

// Partitioner rebuilds a cloud's chunks and their levels of detail.
type Partitioner struct {
	// Workers bounds concurrent LOD work per chunk. Zero means one per CPU.
	Workers int
	// Seeds supplies one sampling seed per chunk. Nil draws from entropy.
	Seeds SeedSource
}

// Partition rebuilds cloud's chunks with the default Partitioner.
func Partition(cloud *PointCloud, chunkSize float32) error {
	var p Partitioner
	return p.Partition(cloud, chunkSize)
}

// Rescale repartitions cloud with its chunk size multiplied by factor.
// A nil cloud is a no-op.
func (p *Partitioner) Rescale(cloud *PointCloud, factor float32) error {
	if cloud == nil {
		return nil
	}
	return p.Partition(cloud, cloud.ChunkSize*factor)
}

type cell struct {
	points []Point
	world  []math.Vec3
}

// Partition discards the cloud's existing chunks, releasing their buffers,
// and assigns every point to the cell floor(transformed / chunkSize). Chunks
// are ordered by key. Each chunk then gets its levels of detail and the
// outline is rebuilt. On error the cloud is left untouched.
func (p *Partitioner) Partition(cloud *PointCloud, chunkSize float32) error {
	if !(chunkSize > 0) || math32.IsInf(chunkSize, 1) {
		return fmt.Errorf("%w: %v", ErrInvalidChunkSize, chunkSize)
	}

	cloud.Release()
	cloud.ChunkSize = chunkSize

	m := cloud.Transform.Matrix()
	cells := make(map[ChunkKey]*cell)
	for _, pt := range cloud.Points {
		world := ApplyTransform(m, pt.Position)
		key := KeyFor(world, chunkSize)
		c, ok := cells[key]
		if !ok {
			c = &cell{}
			cells[key] = c
		}
		c.points = append(c.points, pt)
		c.world = append(c.world, world)
	}

	gen := &LODGenerator{Workers: p.Workers, Seeds: p.Seeds, Buffers: cloud.Buffers}
	keys := slices.SortedFunc(maps.Keys(cells), ChunkKey.Compare)
	chunks := make([]Chunk, 0, len(keys))
	for _, key := range keys {
		c := cells[key]
		chunk := Chunk{
			Key:    key,
			Points: c.points,
			Center: key.Center(chunkSize),
		}
		for _, w := range c.world {
			chunk.BoundingRadius = max(chunk.BoundingRadius, w.Distance(chunk.Center))
		}
		gen.Generate(&chunk)
		chunks = append(chunks, chunk)
	}

	cloud.Chunks = chunks
	cloud.Outline = BuildOutline(chunks, chunkSize)
	return nil
}
