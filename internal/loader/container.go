package loader

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/Faultbox/pcloud/internal/pointcloud"
	"github.com/Faultbox/pcloud/pkg/formats"
)

// recordBlocks reads whole PCB records from the body of a container,
// perBlock records at a time, stopping after the count from the header.
type recordBlocks struct {
	r         io.Reader
	perBlock  int
	remaining int
}

func (b *recordBlocks) Next(buf []byte) ([]byte, error) {
	if b.remaining == 0 {
		return nil, io.EOF
	}
	n := min(b.perBlock, b.remaining)
	size := n * formats.PCBRecordSize
	if cap(buf) < size {
		buf = make([]byte, size)
	}
	buf = buf[:size]

	if _, err := io.ReadFull(b.r, buf); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, fmt.Errorf("%w: %w: %d records missing", ErrFormat, formats.ErrTruncatedPCBData, b.remaining)
		}
		return nil, fmt.Errorf("%w: %w", ErrIO, err)
	}
	b.remaining -= n
	if b.remaining == 0 {
		return buf, io.EOF
	}
	return buf, nil
}

func (l *Loader) readContainer(f *os.File, cloud *pointcloud.PointCloud, stride int, st *counters) error {
	count, err := formats.ReadPCBHeader(f)
	switch {
	case errors.Is(err, formats.ErrInvalidPCBMagic), errors.Is(err, formats.ErrTruncatedPCBData):
		return fmt.Errorf("%w: %w", ErrFormat, err)
	case err != nil:
		return fmt.Errorf("%w: %w", ErrIO, err)
	}

	// Reject a short body before decoding anything so a truncated
	// container never yields a partial cloud.
	if info, err := f.Stat(); err == nil && info.Mode().IsRegular() {
		want := int64(formats.PCBHeaderSize) + int64(count)*formats.PCBRecordSize
		if info.Size() < want {
			return fmt.Errorf("%w: %w: header declares %d records, file holds %d bytes",
				ErrFormat, formats.ErrTruncatedPCBData, count, info.Size())
		}
	}

	cloud.Points = make([]pointcloud.Point, 0, count)
	src := &recordBlocks{
		r:         f,
		perBlock:  max(l.blockSize()/formats.PCBRecordSize, 1),
		remaining: int(count),
	}
	return l.ingest(src, parseRecordBlock, stride, cloud, st)
}

func parseRecordBlock(block []byte, stride int, st *counters) []pointcloud.Point {
	n := len(block) / formats.PCBRecordSize
	points := make([]pointcloud.Point, 0, (n+stride-1)/stride)
	for i := 0; i < n; i += stride {
		off := i * formats.PCBRecordSize
		rec := formats.DecodePCBRecord(block[off : off+formats.PCBRecordSize])
		points = append(points, pointcloud.PointFromRecord(rec))
	}
	st.records.Add(int64(n))
	return points
}
