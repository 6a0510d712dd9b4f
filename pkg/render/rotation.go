package render

import (
	"math"

	"github.com/taigrr/voxlab/pkg/math3d"
)

// DragSensitivity is the trackball rotation in radians per pixel of drag.
const DragSensitivity = 0.01

// RotationState is the volume orientation as a unit quaternion. Euler
// angles are derived from it on demand and never stored. The zero value is
// the identity rotation.
type RotationState struct {
	q math3d.Quat
}

// Quat returns the current rotation.
func (r *RotationState) Quat() math3d.Quat {
	if r.q == (math3d.Quat{}) {
		return math3d.QuatIdentity()
	}
	return r.q
}

// Drag applies a screen-space drag of (dx, dy) pixels. The increment
// rotY(dx*s) * rotX(dy*s) is pre-multiplied, so rotation is relative to the
// camera no matter how the volume is already oriented.
func (r *RotationState) Drag(dx, dy float64) {
	rotY := math3d.QuatFromAxisAngle(math3d.V3(0, 1, 0), dx*DragSensitivity)
	rotX := math3d.QuatFromAxisAngle(math3d.V3(1, 0, 0), dy*DragSensitivity)
	r.q = rotY.Mul(rotX).Mul(r.Quat()).Normalize()
}

// Reset returns to the identity rotation.
func (r *RotationState) Reset() {
	r.q = math3d.QuatIdentity()
}

// SetEulerDegrees replaces the rotation with Rx(x) * Ry(y) * Rz(z).
func (r *RotationState) SetEulerDegrees(x, y, z float64) {
	r.q = math3d.QuatFromEulerXYZ(radians(x), radians(y), radians(z))
}

// EulerDegrees returns XYZ Euler angles of the current rotation.
func (r *RotationState) EulerDegrees() (x, y, z float64) {
	x, y, z = r.Quat().EulerXYZ()
	return degrees(x), degrees(y), degrees(z)
}

// Matrix returns the rotation as a 4x4 matrix.
func (r *RotationState) Matrix() math3d.Mat4 {
	return r.Quat().Mat4()
}

func radians(d float64) float64 { return d * math.Pi / 180 }
func degrees(r float64) float64 { return r * 180 / math.Pi }
