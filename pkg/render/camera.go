package render

import (
	"math"

	"github.com/taigrr/voxlab/pkg/math3d"
)

// Camera limits and defaults.
const (
	DefaultDistance = 2.0
	MinDistance     = 0.5
	MaxDistance     = 10.0
)

// Camera orbits a target point. Yaw and pitch are unclamped radians; only
// their sines and cosines are used, so wrap-around is harmless.
type Camera struct {
	Target   math3d.Vec3
	Up       math3d.Vec3
	Distance float64
	Yaw      float64 // around +Y, 0 looks down -Z
	Pitch    float64 // elevation above the XZ plane

	// Projection parameters
	FOV         float64 // Vertical field of view in radians
	AspectRatio float64 // Width / Height
	Near        float64 // Near clipping plane
	Far         float64 // Far clipping plane

	// Cached matrices (computed on demand)
	viewMatrix     math3d.Mat4
	projMatrix     math3d.Mat4
	viewProjMatrix math3d.Mat4
	viewDirty      bool
	projDirty      bool
}

// NewCamera returns a camera on +Z at DefaultDistance looking at the origin.
func NewCamera() *Camera {
	return &Camera{
		Up:          math3d.Up(),
		Distance:    DefaultDistance,
		FOV:         math.Pi / 4, // 45 degrees
		AspectRatio: 1,
		Near:        0.1,
		Far:         100,
		viewDirty:   true,
		projDirty:   true,
	}
}

// Position returns target + distance * (sin(yaw)cos(pitch), sin(pitch),
// cos(yaw)cos(pitch)).
func (c *Camera) Position() math3d.Vec3 {
	sy, cy := math.Sincos(c.Yaw)
	sp, cp := math.Sincos(c.Pitch)
	return c.Target.Add(math3d.V3(sy*cp, sp, cy*cp).Scale(c.Distance))
}

// Rotate adds to yaw and pitch.
func (c *Camera) Rotate(deltaYaw, deltaPitch float64) {
	c.Yaw += deltaYaw
	c.Pitch += deltaPitch
	c.viewDirty = true
}

// Zoom moves the camera delta units toward the target, keeping the
// distance within [MinDistance, MaxDistance].
func (c *Camera) Zoom(delta float64) {
	c.Distance = min(max(c.Distance-delta, MinDistance), MaxDistance)
	c.viewDirty = true
}

// SetDistance places the camera d units from the target, clamped to
// [MinDistance, MaxDistance].
func (c *Camera) SetDistance(d float64) {
	c.Distance = min(max(d, MinDistance), MaxDistance)
	c.viewDirty = true
}

// Reset restores the default orbit, keeping projection settings.
func (c *Camera) Reset() {
	c.Target = math3d.Vec3{}
	c.Distance = DefaultDistance
	c.Yaw, c.Pitch = 0, 0
	c.viewDirty = true
}

// SetAspectRatio sets the aspect ratio.
func (c *Camera) SetAspectRatio(aspect float64) {
	if aspect <= 0 || aspect == c.AspectRatio {
		return
	}
	c.AspectRatio = aspect
	c.projDirty = true
}

// ViewMatrix returns the view matrix.
func (c *Camera) ViewMatrix() math3d.Mat4 {
	if c.viewDirty {
		up := c.Up
		if up == (math3d.Vec3{}) {
			up = math3d.Up()
		}
		c.viewMatrix = math3d.LookAt(c.Position(), c.Target, up)
	}
	return c.viewMatrix
}

// ProjectionMatrix returns the projection matrix.
func (c *Camera) ProjectionMatrix() math3d.Mat4 {
	if c.projDirty {
		c.projMatrix = math3d.Perspective(c.FOV, c.AspectRatio, c.Near, c.Far)
	}
	return c.projMatrix
}

// ViewProjectionMatrix returns the combined view-projection matrix.
func (c *Camera) ViewProjectionMatrix() math3d.Mat4 {
	if c.viewDirty || c.projDirty {
		view := c.ViewMatrix()
		proj := c.ProjectionMatrix()
		c.viewProjMatrix = proj.Mul(view)
		c.viewDirty = false
		c.projDirty = false
	}
	return c.viewProjMatrix
}

// ScreenRay returns the world-space ray through the NDC point (x, y).
func (c *Camera) ScreenRay(ndcX, ndcY float64) math3d.Ray {
	return math3d.Unproject(c.ViewProjectionMatrix().Inverse(), ndcX, ndcY)
}

// WorldToScreen transforms a world point to screen coordinates.
// Returns (screenX, screenY, depth, visible).
func (c *Camera) WorldToScreen(worldPos math3d.Vec3, screenWidth, screenHeight int) (x, y, depth float64, visible bool) {
	clipPos := c.ViewProjectionMatrix().MulVec4(math3d.V4FromV3(worldPos, 1))

	// Behind the camera
	if clipPos.W <= 0 {
		return 0, 0, 0, false
	}

	ndc := clipPos.PerspectiveDivide()
	if ndc.X < -1 || ndc.X > 1 || ndc.Y < -1 || ndc.Y > 1 || ndc.Z < -1 || ndc.Z > 1 {
		return 0, 0, 0, false
	}

	x, y = NDCToScreen(ndc.X, ndc.Y, screenWidth, screenHeight)
	return x, y, ndc.Z, true
}

// NDCToScreen maps NDC to pixel coordinates with y pointing down.
func NDCToScreen(ndcX, ndcY float64, width, height int) (x, y float64) {
	return (ndcX + 1) * 0.5 * float64(width), (1 - ndcY) * 0.5 * float64(height)
}

// ScreenToNDC maps a pixel position to NDC, the inverse of NDCToScreen.
func ScreenToNDC(x, y float64, width, height int) (ndcX, ndcY float64) {
	return x/float64(width)*2 - 1, 1 - y/float64(height)*2
}
