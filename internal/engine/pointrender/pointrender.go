// Package pointrender draws chunked point clouds with OpenGL. Its Renderer
// is the BufferAllocator handed to point clouds, so every LOD level owns a
// VAO/VBO pair keyed by its BufferHandle.
package pointrender

import (
	"fmt"
	"unsafe"

	"github.com/go-gl/gl/v4.1-core/gl"
	"go.uber.org/zap"

	"github.com/Faultbox/pcloud/internal/config"
	"github.com/Faultbox/pcloud/internal/engine/pointrender/shaders"
	"github.com/Faultbox/pcloud/internal/engine/shader"
	"github.com/Faultbox/pcloud/internal/logger"
	"github.com/Faultbox/pcloud/internal/pointcloud"
	"github.com/Faultbox/pcloud/pkg/math"
)

type buffer struct {
	vao   uint32
	vbo   uint32
	count int32
}

// FrameStats counts what the last Draw submitted.
type FrameStats struct {
	Chunks int
	Points int
}

// Renderer uploads LOD point sets and draws them.
type Renderer struct {
	points *shader.Program
	lines  *shader.Program

	buffers map[pointcloud.BufferHandle]buffer
	next    pointcloud.BufferHandle

	outline buffer

	PointSize    float32
	ShowOutlines bool
	// IntensityMix blends point color (0) toward intensity grey (1).
	IntensityMix float32
	Distances    []float32
	OutlineColor math.Vec3

	log *zap.Logger
}

var _ pointcloud.BufferAllocator = (*Renderer)(nil)

// New compiles the point and line programs. It must be called after the
// OpenGL context is current.
func New(viewer config.ViewerConfig, distances []float32) (*Renderer, error) {
	points, err := shader.NewProgram(shaders.PointVertexShader, shaders.PointFragmentShader)
	if err != nil {
		return nil, fmt.Errorf("point shader: %w", err)
	}
	lines, err := shader.NewProgram(shaders.LineVertexShader, shaders.LineFragmentShader)
	if err != nil {
		points.Delete()
		return nil, fmt.Errorf("line shader: %w", err)
	}

	if len(distances) == 0 {
		distances = pointcloud.LODDistances
	}

	return &Renderer{
		points:       points,
		lines:        lines,
		buffers:      make(map[pointcloud.BufferHandle]buffer),
		PointSize:    max(viewer.PointSize, 1),
		ShowOutlines: viewer.ShowOutlines,
		Distances:    distances,
		OutlineColor: math.Vec3{X: 0.9, Y: 0.8, Z: 0.2},
		log:          logger.Named("pointrender"),
	}, nil
}

// Allocate uploads points into a new VAO/VBO pair.
func (r *Renderer) Allocate(points []pointcloud.Point) pointcloud.BufferHandle {
	if len(points) == 0 {
		return pointcloud.NoBuffer
	}

	var b buffer
	gl.GenVertexArrays(1, &b.vao)
	gl.BindVertexArray(b.vao)

	gl.GenBuffers(1, &b.vbo)
	gl.BindBuffer(gl.ARRAY_BUFFER, b.vbo)
	gl.BufferData(gl.ARRAY_BUFFER, len(points)*pointcloud.PointSize, unsafe.Pointer(&points[0]), gl.STATIC_DRAW)

	const stride = int32(pointcloud.PointSize)
	// Position
	gl.VertexAttribPointerWithOffset(0, 3, gl.FLOAT, false, stride, 0)
	gl.EnableVertexAttribArray(0)
	// Intensity
	gl.VertexAttribPointerWithOffset(1, 1, gl.FLOAT, false, stride, 3*4)
	gl.EnableVertexAttribArray(1)
	// Color
	gl.VertexAttribPointerWithOffset(2, 3, gl.FLOAT, false, stride, 4*4)
	gl.EnableVertexAttribArray(2)

	gl.BindBuffer(gl.ARRAY_BUFFER, 0)
	gl.BindVertexArray(0)

	b.count = int32(len(points))
	r.next++
	r.buffers[r.next] = b
	return r.next
}

// Release frees the buffers behind h.
func (r *Renderer) Release(h pointcloud.BufferHandle) {
	b, ok := r.buffers[h]
	if !ok {
		return
	}
	deleteBuffer(&b)
	delete(r.buffers, h)
}

func deleteBuffer(b *buffer) {
	if b.vao != 0 {
		gl.DeleteVertexArrays(1, &b.vao)
	}
	if b.vbo != 0 {
		gl.DeleteBuffers(1, &b.vbo)
	}
	*b = buffer{}
}

// Live returns the number of allocated point buffers.
func (r *Renderer) Live() int {
	return len(r.buffers)
}

// UploadOutline replaces the outline line buffer.
func (r *Renderer) UploadOutline(outline []math.Vec3) {
	deleteBuffer(&r.outline)
	if len(outline) == 0 {
		return
	}

	gl.GenVertexArrays(1, &r.outline.vao)
	gl.BindVertexArray(r.outline.vao)
	gl.GenBuffers(1, &r.outline.vbo)
	gl.BindBuffer(gl.ARRAY_BUFFER, r.outline.vbo)
	gl.BufferData(gl.ARRAY_BUFFER, len(outline)*12, unsafe.Pointer(&outline[0]), gl.STATIC_DRAW)
	gl.VertexAttribPointerWithOffset(0, 3, gl.FLOAT, false, 12, 0)
	gl.EnableVertexAttribArray(0)
	gl.BindBuffer(gl.ARRAY_BUFFER, 0)
	gl.BindVertexArray(0)

	r.outline.count = int32(len(outline))
}

// Draw renders cloud's chunks at the level chosen for their distance from
// eye, then the outline if enabled.
func (r *Renderer) Draw(cloud *pointcloud.PointCloud, view, proj math.Mat4, eye math.Vec3) FrameStats {
	var fs FrameStats
	if !cloud.Visible {
		return fs
	}

	viewProj := proj.Mul(view)
	r.points.Use()
	r.points.SetMat4("uMVP", viewProj.Mul(cloud.ModelMatrix()))
	r.points.SetFloat("uPointSize", r.PointSize)
	r.points.SetFloat("uIntensityMix", r.IntensityMix)

	for _, sel := range cloud.SelectLODs(eye, r.Distances) {
		b, ok := r.buffers[sel.Buffer]
		if !ok {
			continue
		}
		gl.BindVertexArray(b.vao)
		gl.DrawArrays(gl.POINTS, 0, b.count)
		fs.Chunks++
		fs.Points += int(b.count)
	}
	gl.BindVertexArray(0)

	if r.ShowOutlines && r.outline.count > 0 {
		r.lines.Use()
		r.lines.SetMat4("uViewProj", viewProj)
		r.lines.SetVec3("uColor", r.OutlineColor)
		gl.BindVertexArray(r.outline.vao)
		gl.DrawArrays(gl.LINES, 0, r.outline.count)
		gl.BindVertexArray(0)
	}
	return fs
}

// Destroy releases every buffer and both programs.
func (r *Renderer) Destroy() {
	if n := len(r.buffers); n > 0 {
		r.log.Debug("Releasing point buffers still alive", zap.Int("count", n))
	}
	for h := range r.buffers {
		r.Release(h)
	}
	deleteBuffer(&r.outline)
	r.points.Delete()
	r.lines.Delete()
}
