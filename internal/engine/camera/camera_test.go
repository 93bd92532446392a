package camera

import (
	"testing"

	"github.com/Faultbox/pcloud/pkg/math"
)

func near(a, b float32) bool {
	d := a - b
	return d < 1e-3 && d > -1e-3
}

func TestPositionDistance(t *testing.T) {
	c := NewOrbitCamera()
	c.Center = math.Vec3{X: 1, Y: 2, Z: 3}
	c.Distance = 10
	c.RotationX = 0.3
	c.RotationY = 1.2

	if d := c.Position().Distance(c.Center); !near(d, 10) {
		t.Errorf("expected camera 10 units from center, got %f", d)
	}
}

func TestPositionStraightBehind(t *testing.T) {
	c := NewOrbitCamera()
	c.Distance = 5
	c.RotationX = 0
	c.RotationY = 0

	p := c.Position()
	if !near(p.X, 0) || !near(p.Y, 0) || !near(p.Z, 5) {
		t.Errorf("expected (0,0,5), got %v", p)
	}
}

func TestHandleZoomClamps(t *testing.T) {
	c := NewOrbitCamera()
	for i := 0; i < 200; i++ {
		c.HandleZoom(1)
	}
	if c.Distance != c.MinDistance {
		t.Errorf("expected zoom in to stop at %f, got %f", c.MinDistance, c.Distance)
	}
	for i := 0; i < 500; i++ {
		c.HandleZoom(-1)
	}
	if c.Distance != c.MaxDistance {
		t.Errorf("expected zoom out to stop at %f, got %f", c.MaxDistance, c.Distance)
	}
}

func TestHandleDragClampsPitch(t *testing.T) {
	c := NewOrbitCamera()
	c.HandleDrag(0, 1e6)
	if c.RotationX != c.MaxPitch {
		t.Errorf("expected pitch %f, got %f", c.MaxPitch, c.RotationX)
	}
	c.HandleDrag(0, -1e6)
	if c.RotationX != c.MinPitch {
		t.Errorf("expected pitch %f, got %f", c.MinPitch, c.RotationX)
	}
}

func TestFitToBounds(t *testing.T) {
	c := NewOrbitCamera()
	c.FitToBounds(math.Vec3{X: -10, Y: 0, Z: -10}, math.Vec3{X: 10, Y: 4, Z: 10})

	want := math.Vec3{X: 0, Y: 2, Z: 0}
	if c.Center != want {
		t.Errorf("expected center %v, got %v", want, c.Center)
	}
	radius := math.Vec3{X: 20, Y: 4, Z: 20}.Length() / 2
	if c.Distance < radius {
		t.Errorf("camera at %f is inside the bounds radius %f", c.Distance, radius)
	}
}

func TestViewMatrixMapsCenterAhead(t *testing.T) {
	c := NewOrbitCamera()
	c.Center = math.Vec3{X: 3, Y: 1, Z: -2}
	c.Distance = 8

	v := c.ViewMatrix().TransformVec3(c.Center)
	// In view space the orbit center lies straight down -Z.
	if !near(v.X, 0) || !near(v.Y, 0) || !near(v.Z, -8) {
		t.Errorf("expected (0,0,-8), got %v", v)
	}
}
