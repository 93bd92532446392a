package pointcloud

import "github.com/Faultbox/pcloud/pkg/math"

// PointCloud owns its points, the chunk partition derived from them and any
// buffer handles its allocator hands out.
type PointCloud struct {
	Name       string
	SourcePath string
	Points     []Point
	Transform  Transform
	Visible    bool

	// ChunkSize is the edge length the current partition was built with.
	ChunkSize float32
	Chunks    []Chunk
	// Outline holds 24 line endpoints per chunk.
	Outline []math.Vec3

	// InstanceMatrices holds one translation matrix per point.
	InstanceMatrices []math.Mat4

	// Buffers receives LOD point sets during partitioning. Nil means no
	// buffers are created and every handle stays NoBuffer.
	Buffers BufferAllocator
}

// New returns an empty, visible cloud with an identity transform.
func New(name, sourcePath string) *PointCloud {
	return &PointCloud{
		Name:       name,
		SourcePath: sourcePath,
		Points:     []Point{},
		Transform:  IdentityTransform(),
		Visible:    true,
		Chunks:     []Chunk{},
		Outline:    []math.Vec3{},
	}
}

// Len returns the number of points in the cloud.
func (c *PointCloud) Len() int {
	return len(c.Points)
}

// ModelMatrix returns the matrix of the cloud's transform.
func (c *PointCloud) ModelMatrix() math.Mat4 {
	return c.Transform.Matrix()
}

// BuildInstanceMatrices rebuilds the per-point translation list from the
// untransformed point positions.
func (c *PointCloud) BuildInstanceMatrices() {
	mats := make([]math.Mat4, len(c.Points))
	for i := range c.Points {
		mats[i] = math.TranslateVec3(c.Points[i].Position)
	}
	c.InstanceMatrices = mats
}

// Reset drops the points and all derived data, releasing buffers, and
// restores the identity transform.
func (c *PointCloud) Reset() {
	c.Release()
	c.Points = []Point{}
	c.InstanceMatrices = nil
	c.Transform = IdentityTransform()
}

// Release frees every buffer handle through the allocator and discards the
// chunk partition. The points are kept.
func (c *PointCloud) Release() {
	for i := range c.Chunks {
		c.Chunks[i].releaseBuffers(c.Buffers)
	}
	c.Chunks = []Chunk{}
	c.Outline = []math.Vec3{}
}

// TotalLODPoints returns the number of points held by the given level
// across all chunks.
func (c *PointCloud) TotalLODPoints(level int) int {
	total := 0
	for i := range c.Chunks {
		if level < len(c.Chunks[i].LODs) {
			total += c.Chunks[i].LODs[level].PointCount
		}
	}
	return total
}
