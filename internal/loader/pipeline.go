package loader

import (
	"errors"
	"io"
	"sync"
	"time"

	"go.uber.org/atomic"
	"golang.org/x/sync/errgroup"

	"github.com/Faultbox/pcloud/internal/pointcloud"
)

// Stats describes one load.
type Stats struct {
	// Records is the number of lines or container records read.
	Records int64
	// Malformed is the number of selected records that failed to parse.
	Malformed int64
	// Kept is the number of points added to the cloud.
	Kept   int64
	Blocks int64
	Waves  int64

	Duration time.Duration
}

type counters struct {
	records   atomic.Int64
	malformed atomic.Int64
	kept      atomic.Int64
	blocks    atomic.Int64
	waves     atomic.Int64
}

func (c *counters) snapshot() Stats {
	return Stats{
		Records:   c.records.Load(),
		Malformed: c.malformed.Load(),
		Kept:      c.kept.Load(),
		Blocks:    c.blocks.Load(),
		Waves:     c.waves.Load(),
	}
}

// blockSource yields consecutive blocks of input. Next may reuse buf's
// storage. It returns io.EOF, possibly together with a final block, once
// the input is exhausted.
type blockSource interface {
	Next(buf []byte) ([]byte, error)
}

// blockParser decodes one block into points. The stride counter is local to
// the block: record i of the block is kept when i%stride == 0.
type blockParser func(block []byte, stride int, st *counters) []pointcloud.Point

// ingest reads up to one block per worker, parses the wave concurrently and
// waits for the whole wave before reading more. Workers only build local
// slices; appending them to the cloud is the one step serialized by mu.
func (l *Loader) ingest(src blockSource, parse blockParser, stride int, cloud *pointcloud.PointCloud, st *counters) error {
	workers := l.workers()
	bufs := make([][]byte, workers)
	wave := make([][]byte, 0, workers)
	var mu sync.Mutex

	for {
		wave = wave[:0]
		var readErr error
		for i := 0; i < workers; i++ {
			block, err := src.Next(bufs[i])
			bufs[i] = block
			if len(block) > 0 {
				wave = append(wave, block)
			}
			if err != nil {
				readErr = err
				break
			}
		}

		if len(wave) > 0 {
			st.waves.Inc()
			st.blocks.Add(int64(len(wave)))

			var eg errgroup.Group
			for _, block := range wave {
				eg.Go(func() error {
					local := parse(block, stride, st)
					st.kept.Add(int64(len(local)))

					mu.Lock()
					cloud.Points = append(cloud.Points, local...)
					mu.Unlock()
					return nil
				})
			}
			_ = eg.Wait()
		}

		switch {
		case errors.Is(readErr, io.EOF):
			return nil
		case readErr != nil:
			return readErr
		}
	}
}
