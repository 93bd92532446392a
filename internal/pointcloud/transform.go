package pointcloud

import "github.com/Faultbox/pcloud/pkg/math"

// Transform is a cloud's affine placement. Rotation is Euler angles in degrees.
type Transform struct {
	Position math.Vec3 `yaml:"position"`
	Rotation math.Vec3 `yaml:"rotation"`
	Scale    math.Vec3 `yaml:"scale"`
}

// IdentityTransform returns a transform with no translation or rotation and unit scale.
func IdentityTransform() Transform {
	return Transform{Scale: math.Splat(1)}
}

// Matrix returns T · Rx · Ry · Rz · S, so scale applies first and
// translation last when the matrix is applied to a point.
func (t Transform) Matrix() math.Mat4 {
	return math.TranslateVec3(t.Position).
		Mul(math.RotateX(math.Radians(t.Rotation.X))).
		Mul(math.RotateY(math.Radians(t.Rotation.Y))).
		Mul(math.RotateZ(math.Radians(t.Rotation.Z))).
		Mul(math.Scale(t.Scale.X, t.Scale.Y, t.Scale.Z))
}

// IsIdentity reports whether t leaves points unchanged.
func (t Transform) IsIdentity() bool {
	return t == IdentityTransform()
}

// ApplyTransform maps p through m. Export and partitioning both go through
// this function so that their results are bit-identical.
func ApplyTransform(m math.Mat4, p math.Vec3) math.Vec3 {
	return m.TransformVec3(p)
}
