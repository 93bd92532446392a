package pointcloud

// BufferHandle identifies a render buffer owned by a BufferAllocator.
// The zero handle means "no buffer".
type BufferHandle uint32

// NoBuffer is the handle of a level that has nothing to draw.
const NoBuffer BufferHandle = 0

// BufferAllocator creates and frees render buffers for LOD point sets.
// The point cloud only stores the handles it is given; it never reads
// buffer contents.
type BufferAllocator interface {
	// Allocate uploads points and returns a non-zero handle. It is only
	// called with a non-empty slice.
	Allocate(points []Point) BufferHandle
	// Release frees a handle previously returned by Allocate.
	Release(h BufferHandle)
}
