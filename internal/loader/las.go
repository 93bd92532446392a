package loader

import (
	"fmt"
	"os"

	"github.com/edaniels/lidario"
	"go.uber.org/multierr"

	"github.com/Faultbox/pcloud/internal/pointcloud"
	"github.com/Faultbox/pcloud/pkg/math"
)

const lasChannelMax = 65535

// readLAS reads a LAS file sequentially. Unlike the block pipeline the
// stride counter runs across the whole file.
func (l *Loader) readLAS(f *os.File, cloud *pointcloud.PointCloud, stride int, st *counters) (err error) {
	lf, err := lidario.NewLasFile(f.Name(), "r")
	if err != nil {
		return fmt.Errorf("%w: %w", ErrFormat, err)
	}
	defer func() {
		err = multierr.Combine(err, lf.Close())
	}()

	n := lf.Header.NumberPoints
	st.records.Add(int64(n))
	st.blocks.Inc()
	st.waves.Inc()

	points := make([]pointcloud.Point, 0, (n+stride-1)/stride)
	for i := 0; i < n; i += stride {
		p, perr := lf.LasPoint(i)
		if perr != nil {
			st.malformed.Inc()
			continue
		}
		points = append(points, pointFromLAS(p))
	}
	st.kept.Add(int64(len(points)))
	cloud.Points = points
	return nil
}

func pointFromLAS(p lidario.LasPointer) pointcloud.Point {
	data := p.PointData()
	pt := pointcloud.Point{
		Position:  math.Vec3{X: float32(data.X), Y: float32(data.Y), Z: float32(data.Z)},
		Intensity: float32(data.Intensity) / lasChannelMax,
		Color:     math.Splat(1),
	}
	if rgb := p.RgbData(); rgb != nil {
		pt.Color = math.Vec3{
			X: float32(rgb.Red) / lasChannelMax,
			Y: float32(rgb.Green) / lasChannelMax,
			Z: float32(rgb.Blue) / lasChannelMax,
		}
	}
	return pt
}
