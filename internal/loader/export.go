package loader

import (
	"bufio"
	"fmt"
	stdmath "math"
	"os"
	"path/filepath"
	"strings"

	"github.com/edaniels/lidario"
	"go.uber.org/multierr"

	"github.com/Faultbox/pcloud/internal/pointcloud"
	"github.com/Faultbox/pcloud/pkg/formats"
)

func exportError(path string, err error) error {
	return fmt.Errorf("%w: export to %s: %w", ErrIO, path, err)
}

// Export writes cloud to path in the format named by its extension:
// .pcb, .las, or XYZ text for anything else.
func Export(cloud *pointcloud.PointCloud, path string) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".pcb":
		return ExportToContainer(cloud, path)
	case ".las":
		return ExportToLAS(cloud, path)
	default:
		return ExportToText(cloud, path)
	}
}

// transformedRecords encodes every point at its transformed position.
func transformedRecords(cloud *pointcloud.PointCloud, yield func(rec formats.PCBRecord) error) error {
	m := cloud.Transform.Matrix()
	for _, p := range cloud.Points {
		if err := yield(p.Record(pointcloud.ApplyTransform(m, p.Position))); err != nil {
			return err
		}
	}
	return nil
}

// ExportToText writes one "x y z intensity*1000 r g b" line per point with
// the cloud's transform applied to the positions.
func ExportToText(cloud *pointcloud.PointCloud, path string) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return exportError(path, err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil {
			err = multierr.Combine(err, exportError(path, cerr))
		}
	}()

	w := bufio.NewWriterSize(f, DefaultBlockSize)
	var line []byte
	err = transformedRecords(cloud, func(rec formats.PCBRecord) error {
		line = formats.AppendXYZLine(line[:0], rec.Position[0], rec.Position[1], rec.Position[2], rec.Intensity, rec.Color)
		_, werr := w.Write(line)
		return werr
	})
	if err == nil {
		err = w.Flush()
	}
	if err != nil {
		return exportError(path, err)
	}
	return nil
}

// ExportToContainer writes a PCB container with the cloud's transform
// applied to the positions.
func ExportToContainer(cloud *pointcloud.PointCloud, path string) (err error) {
	if uint64(cloud.Len()) > stdmath.MaxUint32 {
		return exportError(path, fmt.Errorf("%d points exceed the container limit", cloud.Len()))
	}

	f, err := os.Create(path)
	if err != nil {
		return exportError(path, err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil {
			err = multierr.Combine(err, exportError(path, cerr))
		}
	}()

	w := bufio.NewWriterSize(f, DefaultBlockSize)
	if err = formats.WritePCBHeader(w, uint32(cloud.Len())); err != nil {
		return exportError(path, err)
	}
	var buf [formats.PCBRecordSize]byte
	err = transformedRecords(cloud, func(rec formats.PCBRecord) error {
		formats.EncodePCBRecord(buf[:], rec)
		_, werr := w.Write(buf[:])
		return werr
	})
	if err == nil {
		err = w.Flush()
	}
	if err != nil {
		return exportError(path, err)
	}
	return nil
}

// ExportToLAS writes a LAS file with RGB points (point format 2) with the
// cloud's transform applied to the positions.
func ExportToLAS(cloud *pointcloud.PointCloud, path string) (err error) {
	lf, err := lidario.NewLasFile(path, "w")
	if err != nil {
		return exportError(path, err)
	}
	defer func() {
		if cerr := lf.Close(); cerr != nil {
			err = multierr.Combine(err, exportError(path, cerr))
		}
	}()

	if err = lf.AddHeader(lidario.LasHeader{PointFormatID: 2}); err != nil {
		return exportError(path, err)
	}

	m := cloud.Transform.Matrix()
	for _, p := range cloud.Points {
		pos := pointcloud.ApplyTransform(m, p.Position)
		pr0 := &lidario.PointRecord0{
			X:         float64(pos.X),
			Y:         float64(pos.Y),
			Z:         float64(pos.Z),
			Intensity: lasChannel(p.Intensity),
			BitField: lidario.PointBitField{
				Value: (1) | (1 << 3),
			},
			ClassBitField: lidario.ClassificationBitField{},
			PointSourceID: 1,
		}
		lp := &lidario.PointRecord2{
			PointRecord0: pr0,
			RGB: &lidario.RgbData{
				Red:   lasChannel(p.Color.X),
				Green: lasChannel(p.Color.Y),
				Blue:  lasChannel(p.Color.Z),
			},
		}
		if err = lf.AddLasPoint(lp); err != nil {
			return exportError(path, err)
		}
	}
	return nil
}

func lasChannel(v float32) uint16 {
	c := stdmath.Round(float64(v) * lasChannelMax)
	if !(c > 0) {
		return 0
	}
	return uint16(min(c, lasChannelMax))
}
