package pointcloud

import (
	"github.com/Faultbox/pcloud/internal/engine/debug"
	"github.com/Faultbox/pcloud/pkg/math"
)

// OutlineVerticesPerChunk is the number of line endpoints emitted per chunk.
const OutlineVerticesPerChunk = debug.BBoxWireframeVertexCount

// BuildOutline returns the 12 edges of every chunk's cube as line endpoint
// pairs, in chunk order. The result is never nil.
func BuildOutline(chunks []Chunk, chunkSize float32) []math.Vec3 {
	outline := make([]math.Vec3, 0, len(chunks)*OutlineVerticesPerChunk)
	for i := range chunks {
		outline = debug.AppendCubeWireframe(outline, chunks[i].Center, chunkSize)
	}
	return outline
}
