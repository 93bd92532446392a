// pcbtool inspects and converts point cloud files.
package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"

	"github.com/Faultbox/pcloud/internal/loader"
	"github.com/Faultbox/pcloud/internal/pointcloud"
	"github.com/Faultbox/pcloud/internal/report"
	"github.com/Faultbox/pcloud/pkg/math"
)

const (
	flagStride    = "stride"
	flagSize      = "size"
	flagWorkers   = "workers"
	flagSeed      = "seed"
	flagTranslate = "translate"
	flagRotate    = "rotate"
	flagScale     = "scale"
)

func main() {
	loadFlags := []cli.Flag{
		&cli.IntFlag{
			Name:  flagStride,
			Value: 1,
			Usage: "keep every n-th point",
		},
		&cli.Float64Flag{
			Name:  flagSize,
			Value: loader.DefaultChunkSize,
			Usage: "chunk edge length in world units",
		},
		&cli.IntFlag{
			Name:  flagWorkers,
			Usage: "parallel workers (0 = number of CPUs)",
		},
		&cli.Uint64Flag{
			Name:  flagSeed,
			Usage: "LOD sampling seed (0 = random)",
		},
	}

	app := &cli.App{
		Name:  "pcbtool",
		Usage: "inspect and convert point cloud files",
		Commands: []*cli.Command{
			{
				Name:      "info",
				Usage:     "print a summary of a point cloud",
				ArgsUsage: "<file>",
				Flags:     loadFlags,
				Action:    infoCommand,
			},
			{
				Name:      "convert",
				Usage:     "convert between .xyz, .pcb and .las, applying a transform",
				ArgsUsage: "<in> <out>",
				Flags: append([]cli.Flag{
					&cli.StringFlag{
						Name:  flagTranslate,
						Usage: "translation as `X,Y,Z`",
					},
					&cli.StringFlag{
						Name:  flagRotate,
						Usage: "rotation in degrees as `X,Y,Z`",
					},
					&cli.StringFlag{
						Name:  flagScale,
						Usage: "scale as `X,Y,Z`",
					},
				}, loadFlags...),
				Action: convertCommand,
			},
			{
				Name:      "chunks",
				Usage:     "list the chunks of a point cloud",
				ArgsUsage: "<file>",
				Flags:     loadFlags,
				Action:    chunksCommand,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newLoader(c *cli.Context) *loader.Loader {
	l := loader.Default()
	l.Workers = c.Int(flagWorkers)
	l.ChunkSize = float32(c.Float64(flagSize))
	l.Partitioner.Workers = l.Workers
	if seed := c.Uint64(flagSeed); seed != 0 {
		l.Partitioner.Seeds = pointcloud.FixedSeed(seed)
	}
	return l
}

func load(c *cli.Context, path string) (*pointcloud.PointCloud, error) {
	cloud, stats, err := newLoader(c).LoadPointCloudFile(path, c.Int(flagStride))
	if err != nil {
		return nil, errors.Wrapf(err, "loading %s", path)
	}
	if stats.Malformed > 0 {
		fmt.Fprintf(c.App.ErrWriter, "warning: skipped %d malformed records\n", stats.Malformed)
	}
	return cloud, nil
}

func infoCommand(c *cli.Context) error {
	if c.NArg() != 1 {
		return errors.New("info requires exactly one file")
	}
	cloud, err := load(c, c.Args().First())
	if err != nil {
		return err
	}
	summary, err := report.Summarize(cloud)
	if err != nil {
		return errors.Wrap(err, "summarizing")
	}
	return summary.Write(c.App.Writer)
}

func convertCommand(c *cli.Context) error {
	if c.NArg() != 2 {
		return errors.New("convert requires an input and an output file")
	}
	in, out := c.Args().Get(0), c.Args().Get(1)

	transform, err := transformFlags(c)
	if err != nil {
		return err
	}
	cloud, err := load(c, in)
	if err != nil {
		return err
	}
	cloud.Transform = transform

	if err := loader.Export(cloud, out); err != nil {
		return errors.Wrap(err, "export failed")
	}
	fmt.Fprintf(c.App.Writer, "wrote %d points to %s\n", cloud.Len(), out)
	return nil
}

func chunksCommand(c *cli.Context) error {
	if c.NArg() != 1 {
		return errors.New("chunks requires exactly one file")
	}
	cloud, err := load(c, c.Args().First())
	if err != nil {
		return err
	}

	w := c.App.Writer
	fmt.Fprintf(w, "%-24s %-30s %10s %10s  %s\n", "KEY", "CENTER", "RADIUS", "POINTS", "LOD")
	for _, ch := range cloud.Chunks {
		counts := make([]string, len(ch.LODs))
		for i, lvl := range ch.LODs {
			counts[i] = strconv.Itoa(lvl.PointCount)
		}
		center := fmt.Sprintf("(%.2f, %.2f, %.2f)", ch.Center.X, ch.Center.Y, ch.Center.Z)
		fmt.Fprintf(w, "%-24s %-30s %10.3f %10d  %s\n",
			ch.Key, center, ch.BoundingRadius, ch.Len(), strings.Join(counts, "/"))
	}
	fmt.Fprintf(w, "%d chunks\n", len(cloud.Chunks))
	return nil
}

func transformFlags(c *cli.Context) (pointcloud.Transform, error) {
	t := pointcloud.IdentityTransform()
	var err error
	if t.Position, err = parseVec3(c.String(flagTranslate), t.Position); err != nil {
		return t, errors.Wrapf(err, "invalid --%s", flagTranslate)
	}
	if t.Rotation, err = parseVec3(c.String(flagRotate), t.Rotation); err != nil {
		return t, errors.Wrapf(err, "invalid --%s", flagRotate)
	}
	if t.Scale, err = parseVec3(c.String(flagScale), t.Scale); err != nil {
		return t, errors.Wrapf(err, "invalid --%s", flagScale)
	}
	return t, nil
}

// parseVec3 parses "x,y,z". An empty string yields def.
func parseVec3(s string, def math.Vec3) (math.Vec3, error) {
	if s == "" {
		return def, nil
	}
	parts := strings.Split(s, ",")
	if len(parts) != 3 {
		return def, errors.Errorf("expected 3 comma separated values, got %d", len(parts))
	}
	var v [3]float32
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 32)
		if err != nil {
			return def, errors.Wrapf(err, "component %d", i)
		}
		v[i] = float32(f)
	}
	return math.Vec3{X: v[0], Y: v[1], Z: v[2]}, nil
}
