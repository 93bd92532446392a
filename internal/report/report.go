// Package report summarizes a loaded point cloud and its chunk partition.
package report

import (
	"fmt"
	"io"

	"github.com/montanaflynn/stats"
	"github.com/samber/lo"

	"github.com/Faultbox/pcloud/internal/pointcloud"
	"github.com/Faultbox/pcloud/pkg/math"
)

// Distribution describes the spread of a per-chunk quantity.
type Distribution struct {
	Mean   float64
	Median float64
	Max    float64
	StdDev float64
}

// Summary is a snapshot of a cloud's size, extent and partition.
type Summary struct {
	Name   string
	Points int
	// Min and Max bound the transformed point positions.
	Min, Max math.Vec3

	ChunkSize      float32
	Chunks         int
	PointsPerChunk Distribution
	Radii          Distribution
	// LODPoints is the total point count of each level across all chunks.
	LODPoints       [pointcloud.LODLevelCount]int
	OutlineVertices int
}

// Summarize computes a Summary of cloud.
func Summarize(cloud *pointcloud.PointCloud) (Summary, error) {
	s := Summary{
		Name:            cloud.Name,
		Points:          cloud.Len(),
		ChunkSize:       cloud.ChunkSize,
		Chunks:          len(cloud.Chunks),
		OutlineVertices: len(cloud.Outline),
	}

	if cloud.Len() > 0 {
		m := cloud.Transform.Matrix()
		s.Min = pointcloud.ApplyTransform(m, cloud.Points[0].Position)
		s.Max = s.Min
		for _, p := range cloud.Points[1:] {
			w := pointcloud.ApplyTransform(m, p.Position)
			s.Min = s.Min.Min(w)
			s.Max = s.Max.Max(w)
		}
	}

	for lvl := range s.LODPoints {
		s.LODPoints[lvl] = lo.SumBy(cloud.Chunks, func(c pointcloud.Chunk) int {
			if lvl < len(c.LODs) {
				return c.LODs[lvl].PointCount
			}
			return 0
		})
	}

	if len(cloud.Chunks) == 0 {
		return s, nil
	}

	var err error
	counts := lo.Map(cloud.Chunks, func(c pointcloud.Chunk, _ int) float64 { return float64(c.Len()) })
	if s.PointsPerChunk, err = distribution(counts); err != nil {
		return s, fmt.Errorf("points per chunk: %w", err)
	}
	radii := lo.Map(cloud.Chunks, func(c pointcloud.Chunk, _ int) float64 { return float64(c.BoundingRadius) })
	if s.Radii, err = distribution(radii); err != nil {
		return s, fmt.Errorf("chunk radii: %w", err)
	}
	return s, nil
}

func distribution(values stats.Float64Data) (Distribution, error) {
	var (
		d   Distribution
		err error
	)
	if d.Mean, err = values.Mean(); err != nil {
		return d, err
	}
	if d.Median, err = values.Median(); err != nil {
		return d, err
	}
	if d.Max, err = values.Max(); err != nil {
		return d, err
	}
	if d.StdDev, err = values.StandardDeviation(); err != nil {
		return d, err
	}
	return d, nil
}

// Write prints s as aligned text.
func (s Summary) Write(w io.Writer) error {
	_, err := fmt.Fprintf(w,
		"Name:        %s\n"+
			"Points:      %d\n"+
			"Bounds:      (%.3f, %.3f, %.3f) - (%.3f, %.3f, %.3f)\n"+
			"Chunk size:  %g\n"+
			"Chunks:      %d\n"+
			"Per chunk:   mean %.1f, median %.1f, max %.0f, stddev %.1f\n"+
			"Radius:      mean %.3f, max %.3f\n"+
			"Outline:     %d vertices\n",
		s.Name, s.Points,
		s.Min.X, s.Min.Y, s.Min.Z, s.Max.X, s.Max.Y, s.Max.Z,
		s.ChunkSize, s.Chunks,
		s.PointsPerChunk.Mean, s.PointsPerChunk.Median, s.PointsPerChunk.Max, s.PointsPerChunk.StdDev,
		s.Radii.Mean, s.Radii.Max,
		s.OutlineVertices)
	if err != nil {
		return err
	}
	for lvl, n := range s.LODPoints {
		if _, err := fmt.Fprintf(w, "LOD %d:       %d points\n", lvl, n); err != nil {
			return err
		}
	}
	return nil
}
