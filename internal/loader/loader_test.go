package loader

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"go.viam.com/test"

	"github.com/Faultbox/pcloud/internal/config"
	"github.com/Faultbox/pcloud/internal/pointcloud"
	"github.com/Faultbox/pcloud/pkg/formats"
	"github.com/Faultbox/pcloud/pkg/math"
)

func writeFile(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	test.That(t, os.WriteFile(path, data, 0o644), test.ShouldBeNil)
	return path
}

func xyzLines(n int) []byte {
	var buf bytes.Buffer
	for i := 0; i < n; i++ {
		fmt.Fprintf(&buf, "%d.5 %d.25 -%d 0.5 %d %d %d\n", i, i%7, i%3, i%256, (i*3)%256, 255)
	}
	return buf.Bytes()
}

func sampleCloud(n int, seed uint64) *pointcloud.PointCloud {
	r := rand.New(rand.NewPCG(seed, 1))
	cloud := pointcloud.New("sample", "")
	for i := 0; i < n; i++ {
		cloud.Points = append(cloud.Points, pointcloud.Point{
			Position:  math.Vec3{X: r.Float32()*40 - 20, Y: r.Float32() * 40, Z: r.Float32() * 5},
			Intensity: float32(r.IntN(1001)) / 1000,
			Color:     math.Vec3{X: float32(r.IntN(256)) / 255, Y: float32(r.IntN(256)) / 255, Z: float32(r.IntN(256)) / 255},
		})
	}
	return cloud
}

func sequentialLoader() *Loader {
	l := Default()
	l.Workers = 1
	l.Partitioner.Seeds = pointcloud.FixedSeed(1)
	return l
}

func TestLoadTextStride(t *testing.T) {
	path := writeFile(t, "scan.xyz", xyzLines(1000))

	for _, stride := range []int{1, 2, 3, 7, 1000, 5000} {
		cloud, stats, err := Default().LoadPointCloudFile(path, stride)
		test.That(t, err, test.ShouldBeNil)
		want := (1000 + stride - 1) / stride
		test.That(t, cloud.Len(), test.ShouldEqual, want)
		test.That(t, stats.Records, test.ShouldEqual, int64(1000))
		test.That(t, stats.Kept, test.ShouldEqual, int64(want))
		test.That(t, stats.Malformed, test.ShouldEqual, int64(0))
	}
}

func TestLoadTextStrideBelowOne(t *testing.T) {
	path := writeFile(t, "scan.xyz", xyzLines(10))
	cloud, _, err := Default().LoadPointCloudFile(path, 0)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, cloud.Len(), test.ShouldEqual, 10)
}

func TestLoadTextFields(t *testing.T) {
	path := writeFile(t, "one.txt", []byte("1.5 -2 3.25 0.25 255 0 51\n"))
	cloud, _, err := Default().LoadPointCloudFile(path, 1)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, cloud.Len(), test.ShouldEqual, 1)

	p := cloud.Points[0]
	test.That(t, p.Position, test.ShouldResemble, math.Vec3{X: 1.5, Y: -2, Z: 3.25})
	test.That(t, p.Intensity, test.ShouldAlmostEqual, 0.25, 1e-6)
	test.That(t, p.Color.X, test.ShouldAlmostEqual, 1, 1e-6)
	test.That(t, p.Color.Y, test.ShouldAlmostEqual, 0, 1e-6)
	test.That(t, p.Color.Z, test.ShouldAlmostEqual, 0.2, 1e-6)
	test.That(t, cloud.Name, test.ShouldEqual, "PointCloud_one.txt")
	test.That(t, cloud.SourcePath, test.ShouldEqual, path)
}

func TestLoadTextMalformed(t *testing.T) {
	data := strings.Join([]string{
		"0 0 0 0.5 1 2 3",
		"",
		"not a point",
		"1 1 1 0.5 1 2",
		"2 2 2 0.5 1 2 3 extra columns",
		"3 3 3 0.5 x 2 3",
		"4 4 4 0.5 1 2 3\r",
	}, "\n")
	path := writeFile(t, "bad.xyz", []byte(data))

	cloud, stats, err := Default().LoadPointCloudFile(path, 1)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, cloud.Len(), test.ShouldEqual, 3)
	test.That(t, stats.Records, test.ShouldEqual, int64(7))
	test.That(t, stats.Malformed, test.ShouldEqual, int64(3))
}

func TestLoadTextSmallBlocks(t *testing.T) {
	const n = 500
	path := writeFile(t, "scan.xyz", xyzLines(n))

	l := Default()
	l.BlockSize = 64
	l.Workers = 3
	cloud, stats, err := l.LoadPointCloudFile(path, 1)
	test.That(t, err, test.ShouldBeNil)

	// Blocks end on line boundaries, so no line is lost or split.
	test.That(t, cloud.Len(), test.ShouldEqual, n)
	test.That(t, stats.Malformed, test.ShouldEqual, int64(0))
	test.That(t, stats.Blocks, test.ShouldBeGreaterThan, int64(3))
	test.That(t, stats.Waves, test.ShouldBeGreaterThan, int64(1))

	seen := map[float32]bool{}
	for _, p := range cloud.Points {
		seen[p.Position.X] = true
	}
	test.That(t, seen, test.ShouldHaveLength, n)
}

func TestLoadTextStrideIsBlockLocal(t *testing.T) {
	const (
		n      = 500
		stride = 3
		size   = 64
	)
	data := xyzLines(n)
	path := writeFile(t, "scan.xyz", data)

	// Each block restarts the counter, so it keeps ceil(lines/stride).
	want := 0
	src := &lineBlocks{r: bytes.NewReader(data), size: size}
	for {
		block, err := src.Next(nil)
		lines := bytes.Count(block, []byte("\n"))
		want += (lines + stride - 1) / stride
		if err != nil {
			break
		}
	}

	l := Default()
	l.BlockSize = size
	l.Workers = 3
	cloud, stats, err := l.LoadPointCloudFile(path, stride)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, stats.Records, test.ShouldEqual, int64(n))
	test.That(t, cloud.Len(), test.ShouldEqual, want)
	test.That(t, stats.Kept, test.ShouldEqual, int64(want))
	// Blocks that do not hold a multiple of stride lines keep extra points.
	test.That(t, want, test.ShouldBeGreaterThan, (n+stride-1)/stride)
}

func TestLoadTextNonFinite(t *testing.T) {
	data := "nan 1 1 0.5 1 2 3\ninf 1 1 0.5 1 2 3\n1 1 1 0.5 1 2 3\n"
	path := writeFile(t, "nonfinite.xyz", []byte(data))

	cloud, stats, err := Default().LoadPointCloudFile(path, 1)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, cloud.Len(), test.ShouldEqual, 1)
	test.That(t, stats.Malformed, test.ShouldEqual, int64(2))
	test.That(t, cloud.Chunks, test.ShouldHaveLength, 1)
	test.That(t, cloud.Chunks[0].Key, test.ShouldResemble, pointcloud.ChunkKey{})
}

func TestWorkersCappedAtCPUCount(t *testing.T) {
	l := Default()
	l.Workers = runtime.NumCPU() + 16
	test.That(t, l.workers(), test.ShouldEqual, runtime.NumCPU())
	l.Workers = 1
	test.That(t, l.workers(), test.ShouldEqual, 1)
	l.Workers = 0
	test.That(t, l.workers(), test.ShouldEqual, runtime.NumCPU())
}

func TestLoadTextNoTrailingNewline(t *testing.T) {
	path := writeFile(t, "scan.xyz", []byte("0 0 0 0.5 1 2 3\n1 1 1 0.5 1 2 3"))
	cloud, _, err := Default().LoadPointCloudFile(path, 1)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, cloud.Len(), test.ShouldEqual, 2)
}

func TestLineBlocks(t *testing.T) {
	long := strings.Repeat("9", 100)
	input := "a\nbb\n" + long + "\ncc"
	src := &lineBlocks{r: strings.NewReader(input), size: 8}

	var blocks []string
	var buf []byte
	for {
		block, err := src.Next(buf)
		if len(block) > 0 {
			blocks = append(blocks, string(block))
		}
		if err != nil {
			test.That(t, err, test.ShouldEqual, io.EOF)
			break
		}
		// Every block before the last ends on a newline.
		test.That(t, strings.HasSuffix(string(block), "\n"), test.ShouldBeTrue)
		buf = block
	}
	test.That(t, len(blocks), test.ShouldBeGreaterThan, 1)
	test.That(t, blocks[0], test.ShouldEqual, "a\nbb\n")
	test.That(t, strings.Join(blocks, ""), test.ShouldEqual, input)
}

func TestLoadEmptyFile(t *testing.T) {
	for _, name := range []string{"empty.xyz", "empty.pcb"} {
		t.Run(name, func(t *testing.T) {
			data := []byte{}
			if strings.HasSuffix(name, ".pcb") {
				var buf bytes.Buffer
				test.That(t, formats.WritePCB(&buf, nil), test.ShouldBeNil)
				data = buf.Bytes()
			}
			path := writeFile(t, name, data)

			cloud, stats, err := Default().LoadPointCloudFile(path, 1)
			test.That(t, err, test.ShouldBeNil)
			test.That(t, cloud.Len(), test.ShouldEqual, 0)
			test.That(t, cloud.Chunks, test.ShouldHaveLength, 0)
			test.That(t, cloud.Outline, test.ShouldNotBeNil)
			test.That(t, cloud.Outline, test.ShouldHaveLength, 0)
			test.That(t, cloud.InstanceMatrices, test.ShouldHaveLength, 0)
			test.That(t, stats.Kept, test.ShouldEqual, int64(0))
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing.xyz")
	cloud, _, err := Default().LoadPointCloudFile(path, 1)
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, errors.Is(err, ErrIO), test.ShouldBeTrue)
	test.That(t, errors.Is(err, os.ErrNotExist), test.ShouldBeTrue)
	test.That(t, cloud, test.ShouldNotBeNil)
	test.That(t, cloud.Len(), test.ShouldEqual, 0)
	test.That(t, cloud.Chunks, test.ShouldHaveLength, 0)
	test.That(t, cloud.Outline, test.ShouldHaveLength, 0)

	_, _, err = LoadFromContainer(filepath.Join(t.TempDir(), "missing.pcb"))
	test.That(t, errors.Is(err, ErrIO), test.ShouldBeTrue)
}

func TestLoadPartitionsAndInstances(t *testing.T) {
	path := writeFile(t, "scan.xyz", xyzLines(300))

	l := sequentialLoader()
	l.ChunkSize = 4
	cloud, _, err := l.LoadPointCloudFile(path, 1)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, cloud.ChunkSize, test.ShouldEqual, float32(4))
	test.That(t, cloud.InstanceMatrices, test.ShouldHaveLength, cloud.Len())
	test.That(t, cloud.Outline, test.ShouldHaveLength, pointcloud.OutlineVerticesPerChunk*len(cloud.Chunks))

	total := 0
	for _, c := range cloud.Chunks {
		total += c.Len()
	}
	test.That(t, total, test.ShouldEqual, cloud.Len())
}

func TestNewFromConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Ingest.BlockSize = 4096
	cfg.Ingest.Workers = 2
	cfg.Partition.ChunkSize = 3
	cfg.LOD.Seed = 9

	l := New(cfg, nil)
	test.That(t, l.BlockSize, test.ShouldEqual, 4096)
	test.That(t, l.Workers, test.ShouldEqual, 2)
	test.That(t, l.ChunkSize, test.ShouldEqual, float32(3))
	test.That(t, l.Partitioner.Seeds, test.ShouldNotBeNil)
	test.That(t, l.Partitioner.Seeds(), test.ShouldEqual, uint64(9))

	def := New(config.Default(), nil)
	test.That(t, def.Partitioner.Seeds, test.ShouldBeNil)
	test.That(t, def.BlockSize, test.ShouldEqual, DefaultBlockSize)
}

func TestNormalizeIntensity(t *testing.T) {
	for _, tc := range []struct {
		in, want float32
	}{
		{-1, 0},
		{0, 0},
		{0.5, 0.5},
		{1, 1},
		{500, 0.5},
		{1000, 1},
		{70000, 1},
	} {
		test.That(t, normalizeIntensity(tc.in), test.ShouldAlmostEqual, tc.want, 1e-6)
	}
	test.That(t, normalizeChannel(-5), test.ShouldEqual, float32(0))
	test.That(t, normalizeChannel(300), test.ShouldEqual, float32(1))
}
