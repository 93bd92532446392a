// Package debug provides debug visualization utilities.
package debug

import "github.com/Faultbox/pcloud/pkg/math"

// BBoxWireframeVertexCount is the number of vertices for a bbox wireframe (12 edges × 2).
const BBoxWireframeVertexCount = 24

// AppendBBoxWireframe appends the line vertices of the axis-aligned box
// [min, max] to dst, two endpoints per edge, and returns the extended slice.
func AppendBBoxWireframe(dst []math.Vec3, min, max math.Vec3) []math.Vec3 {
	return append(dst,
		// Bottom face (4 edges)
		math.Vec3{X: min.X, Y: min.Y, Z: min.Z}, math.Vec3{X: max.X, Y: min.Y, Z: min.Z},
		math.Vec3{X: max.X, Y: min.Y, Z: min.Z}, math.Vec3{X: max.X, Y: min.Y, Z: max.Z},
		math.Vec3{X: max.X, Y: min.Y, Z: max.Z}, math.Vec3{X: min.X, Y: min.Y, Z: max.Z},
		math.Vec3{X: min.X, Y: min.Y, Z: max.Z}, math.Vec3{X: min.X, Y: min.Y, Z: min.Z},
		// Top face (4 edges)
		math.Vec3{X: min.X, Y: max.Y, Z: min.Z}, math.Vec3{X: max.X, Y: max.Y, Z: min.Z},
		math.Vec3{X: max.X, Y: max.Y, Z: min.Z}, math.Vec3{X: max.X, Y: max.Y, Z: max.Z},
		math.Vec3{X: max.X, Y: max.Y, Z: max.Z}, math.Vec3{X: min.X, Y: max.Y, Z: max.Z},
		math.Vec3{X: min.X, Y: max.Y, Z: max.Z}, math.Vec3{X: min.X, Y: max.Y, Z: min.Z},
		// Vertical edges (4 edges)
		math.Vec3{X: min.X, Y: min.Y, Z: min.Z}, math.Vec3{X: min.X, Y: max.Y, Z: min.Z},
		math.Vec3{X: max.X, Y: min.Y, Z: min.Z}, math.Vec3{X: max.X, Y: max.Y, Z: min.Z},
		math.Vec3{X: max.X, Y: min.Y, Z: max.Z}, math.Vec3{X: max.X, Y: max.Y, Z: max.Z},
		math.Vec3{X: min.X, Y: min.Y, Z: max.Z}, math.Vec3{X: min.X, Y: max.Y, Z: max.Z},
	)
}

// AppendCubeWireframe appends the wireframe of a cube with edge length size
// centered at center.
func AppendCubeWireframe(dst []math.Vec3, center math.Vec3, size float32) []math.Vec3 {
	half := math.Splat(size / 2)
	return AppendBBoxWireframe(dst, center.Sub(half), center.Add(half))
}
