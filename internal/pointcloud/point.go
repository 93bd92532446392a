// Package pointcloud holds the in-memory point cloud model: points, the
// cloud's affine transform, its spatial chunk partition with per-chunk
// levels of detail, and the outline geometry derived from the chunks.
package pointcloud

import (
	stdmath "math"

	"github.com/chewxy/math32"

	"github.com/Faultbox/pcloud/pkg/formats"
	"github.com/Faultbox/pcloud/pkg/math"
)

// Point is a single scanned sample. Intensity and color channels are in [0, 1].
// The layout is float32 only so a []Point can be uploaded to the GPU as-is.
type Point struct {
	Position  math.Vec3
	Intensity float32
	Color     math.Vec3
}

// PointSize is the size of a Point in bytes.
const PointSize = 28

// Record quantizes p for the container format, storing pos as its position.
// Export passes the transformed position; the stored point is never modified.
func (p Point) Record(pos math.Vec3) formats.PCBRecord {
	return formats.PCBRecord{
		Position:  [3]float32{pos.X, pos.Y, pos.Z},
		Intensity: QuantizeIntensity(p.Intensity),
		Color:     [3]uint8{QuantizeChannel(p.Color.X), QuantizeChannel(p.Color.Y), QuantizeChannel(p.Color.Z)},
	}
}

// PointFromRecord decodes a container record.
func PointFromRecord(rec formats.PCBRecord) Point {
	return Point{
		Position:  math.Vec3{X: rec.Position[0], Y: rec.Position[1], Z: rec.Position[2]},
		Intensity: float32(rec.Intensity) / 1000,
		Color: math.Vec3{
			X: float32(rec.Color[0]) / 255,
			Y: float32(rec.Color[1]) / 255,
			Z: float32(rec.Color[2]) / 255,
		},
	}
}

// QuantizeIntensity encodes intensity as round(intensity*1000).
// Negative and NaN values encode as 0.
func QuantizeIntensity(intensity float32) uint32 {
	v := stdmath.Round(float64(intensity) * 1000)
	if !(v > 0) {
		return 0
	}
	if v > stdmath.MaxUint32 {
		return stdmath.MaxUint32
	}
	return uint32(v)
}

// QuantizeChannel encodes a [0, 1] color channel as round(c*255), clamped to a byte.
func QuantizeChannel(c float32) uint8 {
	v := math32.Round(c * 255)
	if !(v > 0) {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v)
}
