// Package viewer implements the interactive point cloud viewer loop.
package viewer

import (
	"fmt"
	"time"

	"github.com/veandco/go-sdl2/sdl"
	"go.uber.org/zap"

	"github.com/Faultbox/pcloud/internal/config"
	"github.com/Faultbox/pcloud/internal/engine/camera"
	"github.com/Faultbox/pcloud/internal/engine/debug"
	"github.com/Faultbox/pcloud/internal/engine/input"
	"github.com/Faultbox/pcloud/internal/engine/pointrender"
	"github.com/Faultbox/pcloud/internal/engine/renderer"
	"github.com/Faultbox/pcloud/internal/engine/window"
	"github.com/Faultbox/pcloud/internal/loader"
	"github.com/Faultbox/pcloud/internal/logger"
	"github.com/Faultbox/pcloud/internal/pointcloud"
	"github.com/Faultbox/pcloud/internal/report"
)

const title = "pcview"

// Viewer owns the window, GL state and the cloud being shown.
type Viewer struct {
	cfg     *config.Config
	running bool

	window   *window.Window
	renderer *renderer.Renderer
	points   *pointrender.Renderer
	input    *input.Input
	camera   *camera.OrbitCamera
	loader   *loader.Loader
	snapshot *debug.Snapshot

	cloud *pointcloud.PointCloud
	frame pointrender.FrameStats
	log   *zap.Logger
}

// New creates the window and GL resources.
func New(cfg *config.Config) (*Viewer, error) {
	v := &Viewer{
		cfg:      cfg,
		input:    input.New(),
		camera:   camera.NewOrbitCamera(),
		snapshot: debug.NewSnapshot("screenshots", title),
		log:      logger.Named("viewer"),
	}

	var err error
	v.window, err = window.New(window.ConfigFrom(title, cfg.Viewer))
	if err != nil {
		return nil, fmt.Errorf("failed to create window: %w", err)
	}

	// The renderer needs the GL context the window just created.
	width, height := v.window.Size()
	v.renderer, err = renderer.New(renderer.Config{
		Width:      width,
		Height:     height,
		ClearColor: [3]float32{0.1, 0.1, 0.15},
	})
	if err != nil {
		v.window.Close()
		return nil, fmt.Errorf("failed to create renderer: %w", err)
	}

	v.points, err = pointrender.New(cfg.Viewer, cfg.LOD.Distances)
	if err != nil {
		v.window.Close()
		return nil, fmt.Errorf("failed to create point renderer: %w", err)
	}

	v.loader = loader.New(cfg, v.points)
	return v, nil
}

// Open loads path and frames it. A failed load still leaves an empty cloud
// on screen; the error is returned for reporting.
func (v *Viewer) Open(path string) error {
	if v.cloud != nil {
		v.cloud.Release()
	}

	cloud, stats, err := v.loader.LoadPointCloudFile(path, v.cfg.Ingest.Stride)
	v.cloud = cloud
	v.points.UploadOutline(cloud.Outline)

	summary, serr := report.Summarize(cloud)
	if serr == nil && summary.Points > 0 {
		v.camera.FitToBounds(summary.Min, summary.Max)
	}
	v.log.Info("Opened point cloud",
		zap.String("name", cloud.Name),
		zap.Int("points", summary.Points),
		zap.Int("chunks", summary.Chunks),
		zap.Int64("malformed", stats.Malformed),
		zap.Duration("elapsed", stats.Duration))
	return err
}

// Run starts the main loop.
func (v *Viewer) Run() error {
	v.running = true

	lastTime := time.Now()
	frameCount := 0
	fpsTimer := time.Now()

	v.log.Info("Starting viewer loop")

	for v.running {
		now := time.Now()
		dt := float32(now.Sub(lastTime).Seconds())
		lastTime = now

		if v.input.Update() {
			v.running = false
			break
		}
		v.handleEvents()
		v.handleMovement(dt)

		v.render()
		v.window.SwapBuffers()

		frameCount++
		if time.Since(fpsTimer) >= time.Second {
			v.window.SetTitle(fmt.Sprintf("%s - %d fps - %d points in %d chunks",
				title, frameCount, v.frame.Points, v.frame.Chunks))
			frameCount = 0
			fpsTimer = time.Now()
		}
	}

	return nil
}

func (v *Viewer) handleEvents() {
	for _, event := range v.input.Events() {
		switch event.Type {
		case input.EventWindowResize:
			v.renderer.Resize(v.window.Size())
		case input.EventMouseMove:
			if v.input.IsButtonHeld(sdl.BUTTON_LEFT) {
				v.camera.HandleDrag(event.DeltaX, event.DeltaY)
			}
		case input.EventMouseWheel:
			v.camera.HandleZoom(event.DeltaY)
		case input.EventKeyDown:
			v.handleKey(event.Key)
		}
	}
}

func (v *Viewer) handleKey(key sdl.Scancode) {
	switch key {
	case sdl.SCANCODE_ESCAPE:
		v.running = false
	case sdl.SCANCODE_O:
		v.points.ShowOutlines = !v.points.ShowOutlines
	case sdl.SCANCODE_I:
		v.points.IntensityMix = 1 - v.points.IntensityMix
	case sdl.SCANCODE_V:
		if v.cloud != nil {
			v.cloud.Visible = !v.cloud.Visible
		}
	case sdl.SCANCODE_RIGHTBRACKET:
		v.repartition(2)
	case sdl.SCANCODE_LEFTBRACKET:
		v.repartition(0.5)
	case sdl.SCANCODE_P:
		v.saveSnapshot()
	case sdl.SCANCODE_F:
		v.fit()
	case sdl.SCANCODE_Q:
		v.rotate(-15)
	case sdl.SCANCODE_E:
		v.rotate(15)
	}
}

func (v *Viewer) handleMovement(dt float32) {
	var forward, right, up float32
	if v.input.IsKeyHeld(sdl.SCANCODE_W) {
		forward++
	}
	if v.input.IsKeyHeld(sdl.SCANCODE_S) {
		forward--
	}
	if v.input.IsKeyHeld(sdl.SCANCODE_D) {
		right++
	}
	if v.input.IsKeyHeld(sdl.SCANCODE_A) {
		right--
	}
	if v.input.IsKeyHeld(sdl.SCANCODE_SPACE) {
		up++
	}
	if v.input.IsKeyHeld(sdl.SCANCODE_LSHIFT) {
		up--
	}
	if forward != 0 || right != 0 || up != 0 {
		// Tuned for 60 frames per second.
		scale := dt * 60
		v.camera.HandleMovement(forward*scale, right*scale, up*scale)
	}
}

// rotate turns the cloud about its vertical axis. Chunks live in world
// space, so a transform change requires a full repartition.
func (v *Viewer) rotate(degrees float32) {
	if v.cloud == nil {
		return
	}
	v.cloud.Transform.Rotation.Y += degrees
	v.repartition(1)
}

// repartition rebuilds the chunks with the chunk size scaled by factor.
func (v *Viewer) repartition(factor float32) {
	if v.cloud == nil {
		return
	}
	start := time.Now()
	if err := v.loader.Partitioner.Rescale(v.cloud, factor); err != nil {
		v.log.Warn("Repartition rejected", zap.Float32("factor", factor), zap.Error(err))
		return
	}
	v.points.UploadOutline(v.cloud.Outline)
	v.log.Info("Repartitioned",
		zap.Float32("chunk_size", v.cloud.ChunkSize),
		zap.Int("chunks", len(v.cloud.Chunks)),
		zap.Int("buffers", v.points.Live()),
		zap.Duration("elapsed", time.Since(start)))
}

func (v *Viewer) fit() {
	if v.cloud == nil {
		return
	}
	if summary, err := report.Summarize(v.cloud); err == nil && summary.Points > 0 {
		v.camera.FitToBounds(summary.Min, summary.Max)
	}
}

// saveSnapshot reads back the last rendered frame.
func (v *Viewer) saveSnapshot() {
	pixels, w, h := v.renderer.ReadPixels()
	path, err := v.snapshot.Save(pixels, w, h)
	if err != nil {
		v.log.Warn("Snapshot failed", zap.Error(err))
		return
	}
	v.log.Info("Snapshot saved", zap.String("path", path))
}

func (v *Viewer) render() {
	v.renderer.Begin()
	if v.cloud != nil {
		view := v.camera.ViewMatrix()
		proj := v.camera.ProjectionMatrix(v.renderer.AspectRatio())
		v.frame = v.points.Draw(v.cloud, view, proj, v.camera.Position())
	}
	v.renderer.End()
}

// Close frees GL resources and the window.
func (v *Viewer) Close() {
	v.log.Info("Closing viewer")

	if v.cloud != nil {
		v.cloud.Release()
	}
	if v.points != nil {
		v.points.Destroy()
	}
	if v.window != nil {
		v.window.Close()
	}
}
