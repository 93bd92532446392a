package loader

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"slices"

	"github.com/Faultbox/pcloud/internal/pointcloud"
	"github.com/Faultbox/pcloud/pkg/formats"
	"github.com/Faultbox/pcloud/pkg/math"
)

// lineBlocks splits a reader into blocks of roughly size bytes that end on a
// line boundary. The partial line at the end of a read is carried into the
// next block, so no line is ever split between two workers.
type lineBlocks struct {
	r     io.Reader
	size  int
	carry []byte
	eof   bool
}

func (b *lineBlocks) Next(buf []byte) ([]byte, error) {
	buf = append(buf[:0], b.carry...)
	b.carry = b.carry[:0]

	for !b.eof {
		start := len(buf)
		buf = slices.Grow(buf, b.size)[:start+b.size]
		n, err := io.ReadFull(b.r, buf[start:])
		buf = buf[:start+n]
		switch {
		case err == io.EOF || err == io.ErrUnexpectedEOF:
			b.eof = true
		case err != nil:
			return nil, fmt.Errorf("%w: %w", ErrIO, err)
		default:
			if i := bytes.LastIndexByte(buf[start:], '\n'); i >= 0 {
				cut := start + i + 1
				b.carry = append(b.carry, buf[cut:]...)
				return buf[:cut], nil
			}
			// No newline yet: the current line is longer than a block.
		}
	}

	if len(buf) == 0 {
		return nil, io.EOF
	}
	return buf, io.EOF
}

func (l *Loader) readText(f *os.File, cloud *pointcloud.PointCloud, stride int, st *counters) error {
	src := &lineBlocks{r: f, size: l.blockSize()}
	return l.ingest(src, parseTextBlock, stride, cloud, st)
}

// parseTextBlock decodes the XYZ lines of block. Every line, empty or not,
// advances the stride counter; unselected lines are not parsed.
func parseTextBlock(block []byte, stride int, st *counters) []pointcloud.Point {
	var (
		points  []pointcloud.Point
		counter int
		bad     int64
	)
	for len(block) > 0 {
		line := block
		if i := bytes.IndexByte(block, '\n'); i >= 0 {
			line, block = block[:i], block[i+1:]
		} else {
			block = nil
		}

		selected := counter%stride == 0
		counter++
		if !selected || len(bytes.TrimSpace(line)) == 0 {
			continue
		}

		rec, ok := formats.ParseXYZLine(line)
		if !ok {
			bad++
			continue
		}
		points = append(points, pointFromXYZ(rec))
	}

	st.records.Add(int64(counter))
	st.malformed.Add(bad)
	return points
}

func pointFromXYZ(rec formats.XYZRecord) pointcloud.Point {
	return pointcloud.Point{
		Position:  math.Vec3{X: rec.X, Y: rec.Y, Z: rec.Z},
		Intensity: normalizeIntensity(rec.Intensity),
		Color: math.Vec3{
			X: normalizeChannel(rec.R),
			Y: normalizeChannel(rec.G),
			Z: normalizeChannel(rec.B),
		},
	}
}

// normalizeIntensity maps a scanned intensity to [0, 1]. Values already in
// range are kept; larger values are read as the ×1000 fixed-point form that
// text export writes.
func normalizeIntensity(v float32) float32 {
	switch {
	case !(v > 0):
		return 0
	case v <= 1:
		return v
	default:
		return min(v/1000, 1)
	}
}

func normalizeChannel(c int) float32 {
	return float32(min(max(c, 0), 255)) / 255
}
