package pointcloud

import (
	stdmath "math"
	"math/rand/v2"
	"runtime"
	"slices"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/Faultbox/pcloud/pkg/math"
)

// LODLevelCount is the number of detail levels generated per chunk.
const LODLevelCount = 5

const (
	lodGridSize  = 8
	lodGridCells = lodGridSize * lodGridSize * lodGridSize

	// Below these sizes the work runs on the calling goroutine.
	parallelBinMin    = 1 << 15
	parallelSampleMin = 1 << 14
)

// Per-level point budget multipliers, scaled by the chunk's bounding radius.
// Level 0 is unbounded.
var lodThresholdMultipliers = [LODLevelCount]float64{0, 600000, 100000, 50000, 30000}

// LODDistances are the default camera distance upper bounds per level.
var LODDistances = []float32{5, 15, 23, 30, 50}

// LODLevel is one detail level of a chunk.
type LODLevel struct {
	Level      int
	PointCount int
	Points     []Point
	// Buffer is NoBuffer when the level is empty or no allocator is set.
	Buffer BufferHandle
}

// LevelThresholds returns the point budget of each level for a chunk with
// the given bounding radius. Budgets are truncated to integers and never
// drop below 1.
func LevelThresholds(radius float32) [LODLevelCount]int {
	var t [LODLevelCount]int
	t[0] = stdmath.MaxInt
	for i := 1; i < LODLevelCount; i++ {
		v := stdmath.Trunc(lodThresholdMultipliers[i] * float64(radius))
		switch {
		case !(v >= 1):
			t[i] = 1
		case v >= stdmath.MaxInt:
			t[i] = stdmath.MaxInt
		default:
			t[i] = int(v)
		}
	}
	return t
}

// SelectLOD returns the level to draw at the given camera distance: the
// first level whose distance bound exceeds it, or the coarsest level.
func SelectLOD(distance float32, distances []float32) int {
	for i, d := range distances {
		if i >= LODLevelCount-1 {
			break
		}
		if distance < d {
			return i
		}
	}
	return max(min(len(distances), LODLevelCount)-1, 0)
}

// SeedSource returns a sampling seed each time it is called.
type SeedSource func() uint64

// EntropySeed draws a fresh seed from the runtime's random source.
func EntropySeed() uint64 {
	return rand.Uint64()
}

// FixedSeed returns a source that always yields seed, making sampling
// reproducible.
func FixedSeed(seed uint64) SeedSource {
	return func() uint64 { return seed }
}

// LODGenerator builds the detail levels of chunks.
type LODGenerator struct {
	Workers int
	Seeds   SeedSource
	Buffers BufferAllocator
}

func (g *LODGenerator) workers() int {
	if g.Workers > 0 {
		return g.Workers
	}
	return runtime.NumCPU()
}

func (g *LODGenerator) seed() uint64 {
	if g.Seeds == nil {
		return EntropySeed()
	}
	return g.Seeds()
}

// Generate fills c.LODs. Level 0 is the full chunk. A level whose budget
// covers the whole chunk is level 0 again; otherwise it holds
// min(budget, previous/2) points spread evenly over an 8×8×8 voxel grid
// and sampled without replacement inside each voxel.
func (g *LODGenerator) Generate(c *Chunk) {
	c.releaseBuffers(g.Buffers)

	levels := make([]LODLevel, LODLevelCount)
	levels[0] = LODLevel{Level: 0, PointCount: len(c.Points), Points: c.Points}

	thresholds := LevelThresholds(c.BoundingRadius)
	var grid *voxelGrid
	seed := g.seed()
	prev := len(c.Points)
	for lvl := 1; lvl < LODLevelCount; lvl++ {
		if len(c.Points) <= thresholds[lvl] {
			levels[lvl] = LODLevel{Level: lvl, PointCount: len(c.Points), Points: c.Points}
			prev = len(c.Points)
			continue
		}
		if grid == nil {
			grid = buildVoxelGrid(c.Points, g.workers())
		}
		target := min(thresholds[lvl], prev/2)
		pts := grid.sample(c.Points, target, seed, lvl, g.workers())
		levels[lvl] = LODLevel{Level: lvl, PointCount: len(pts), Points: pts}
		prev = len(pts)
	}

	if g.Buffers != nil {
		for i := range levels {
			if levels[i].PointCount > 0 {
				levels[i].Buffer = g.Buffers.Allocate(levels[i].Points)
			}
		}
	}
	c.LODs = levels
}

// voxelGrid buckets point indices by voxel. Each bucket has its own lock so
// workers binning different ranges only contend on shared voxels.
type voxelGrid struct {
	buckets [lodGridCells]voxelBucket
}

type voxelBucket struct {
	mu      sync.Mutex
	members []int
}

func buildVoxelGrid(points []Point, workers int) *voxelGrid {
	g := &voxelGrid{}
	if len(points) == 0 {
		return g
	}

	lo, hi := points[0].Position, points[0].Position
	for i := 1; i < len(points); i++ {
		lo = lo.Min(points[i].Position)
		hi = hi.Max(points[i].Position)
	}
	extent := hi.Sub(lo)

	bin := func(start, end int) {
		for i := start; i < end; i++ {
			b := &g.buckets[voxelIndex(points[i].Position, lo, extent)]
			b.mu.Lock()
			b.members = append(b.members, i)
			b.mu.Unlock()
		}
	}

	if workers <= 1 || len(points) < parallelBinMin {
		bin(0, len(points))
		return g
	}

	var eg errgroup.Group
	span := (len(points) + workers - 1) / workers
	for start := 0; start < len(points); start += span {
		end := min(start+span, len(points))
		eg.Go(func() error {
			bin(start, end)
			return nil
		})
	}
	_ = eg.Wait()

	// Concurrent binning interleaves members; restore index order so a
	// fixed seed always samples the same points.
	for i := range g.buckets {
		slices.Sort(g.buckets[i].members)
	}
	return g
}

// voxelIndex numbers cells with x varying fastest.
func voxelIndex(p, lo, extent math.Vec3) int {
	x := voxelAxis(p.X, lo.X, extent.X)
	y := voxelAxis(p.Y, lo.Y, extent.Y)
	z := voxelAxis(p.Z, lo.Z, extent.Z)
	return x + y*lodGridSize + z*lodGridSize*lodGridSize
}

func voxelAxis(v, lo, extent float32) int {
	if !(extent > 0) {
		return 0
	}
	n := (v - lo) / extent * lodGridSize
	if !(n > 0) {
		return 0
	}
	return min(int(n), lodGridSize-1)
}

// sample draws target points spread over the voxels: each voxel gets
// target/512, and the first target%512 voxels one more.
func (g *voxelGrid) sample(points []Point, target int, seed uint64, level, workers int) []Point {
	if target <= 0 {
		return []Point{}
	}
	base, rem := target/lodGridCells, target%lodGridCells
	quota := func(cell int) int {
		if cell < rem {
			return base + 1
		}
		return base
	}

	picked := make([][]Point, lodGridCells)
	pick := func(cell int) {
		q := quota(cell)
		if q == 0 {
			return
		}
		r := rand.New(rand.NewPCG(seed, uint64(level)<<32|uint64(cell)))
		picked[cell] = sampleBucket(points, g.buckets[cell].members, q, r)
	}

	if workers <= 1 || len(points) < parallelSampleMin {
		for cell := range lodGridCells {
			pick(cell)
		}
	} else {
		var eg errgroup.Group
		eg.SetLimit(workers)
		for cell := range lodGridCells {
			eg.Go(func() error {
				pick(cell)
				return nil
			})
		}
		_ = eg.Wait()
	}

	return slices.Concat(picked...)
}

// sampleBucket returns up to quota points chosen uniformly without
// replacement from members, using a partial Fisher-Yates shuffle.
func sampleBucket(points []Point, members []int, quota int, r *rand.Rand) []Point {
	if len(members) <= quota {
		out := make([]Point, len(members))
		for i, idx := range members {
			out[i] = points[idx]
		}
		return out
	}

	idx := slices.Clone(members)
	out := make([]Point, quota)
	for i := 0; i < quota; i++ {
		j := i + r.IntN(len(idx)-i)
		idx[i], idx[j] = idx[j], idx[i]
		out[i] = points[idx[i]]
	}
	return out
}

// LODSelection is the level picked for one chunk at a camera position.
type LODSelection struct {
	Chunk    int
	Level    int
	Distance float32
	Buffer   BufferHandle
	Points   int
}

// SelectLODs picks a level for every chunk from the distance between eye
// and the chunk center. Chunks whose level is empty are skipped.
func (c *PointCloud) SelectLODs(eye math.Vec3, distances []float32) []LODSelection {
	out := make([]LODSelection, 0, len(c.Chunks))
	for i := range c.Chunks {
		chunk := &c.Chunks[i]
		dist := eye.Distance(chunk.Center)
		lvl := chunk.LOD(SelectLOD(dist, distances))
		if lvl == nil || lvl.PointCount == 0 {
			continue
		}
		out = append(out, LODSelection{
			Chunk:    i,
			Level:    lvl.Level,
			Distance: dist,
			Buffer:   lvl.Buffer,
			Points:   lvl.PointCount,
		})
	}
	return out
}
