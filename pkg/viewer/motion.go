package viewer

import (
	"math"

	"github.com/charmbracelet/harmonica"

	"github.com/taigrr/voxlab/pkg/render"
)

// restEpsilon is the speed, in pixels per frame, below which drag inertia
// stops.
const restEpsilon = 0.05

// Inertia keeps a released drag spinning the volume and eases it to a stop.
// The decaying velocity is fed back through RotationState.Drag, so the
// rotation stays a renormalized quaternion.
type Inertia struct {
	VX, VY   float64 // pixels per frame
	ax, ay   float64 // spring velocity of VX, VY
	spring   harmonica.Spring
	dragging bool
}

// NewInertia returns inertia stepped at fps frames per second.
func NewInertia(fps int) Inertia {
	return Inertia{
		// critically damped so the spin never reverses
		spring: harmonica.NewSpring(harmonica.FPS(fps), 4.0, 1.0),
	}
}

// Grab starts a drag and cancels any spin in progress.
func (in *Inertia) Grab() {
	in.dragging = true
	in.VX, in.VY, in.ax, in.ay = 0, 0, 0, 0
}

// Track records the latest drag delta as the release velocity.
func (in *Inertia) Track(dx, dy float64) {
	in.VX, in.VY = dx, dy
}

// Release ends the drag; the last tracked delta keeps rotating.
func (in *Inertia) Release() {
	in.dragging = false
}

// Stop cancels the spin.
func (in *Inertia) Stop() {
	in.VX, in.VY, in.ax, in.ay = 0, 0, 0, 0
}

// Moving reports whether Step would still rotate.
func (in *Inertia) Moving() bool {
	return !in.dragging && math.Hypot(in.VX, in.VY) >= restEpsilon
}

// Step applies one frame of spin to r and decays the velocity toward zero.
func (in *Inertia) Step(r *render.RotationState) {
	if !in.Moving() {
		if !in.dragging {
			in.Stop()
		}
		return
	}
	r.Drag(in.VX, in.VY)
	in.VX, in.ax = in.spring.Update(in.VX, in.ax, 0)
	in.VY, in.ay = in.spring.Update(in.VY, in.ay, 0)
}

// Zoom eases the camera distance toward a target set by scrolling.
type Zoom struct {
	Target float64
	vel    float64
	spring harmonica.Spring
}

// NewZoom returns a zoom at distance d stepped at fps frames per second.
func NewZoom(fps int, d float64) Zoom {
	return Zoom{
		Target: d,
		spring: harmonica.NewSpring(harmonica.FPS(fps), 8.0, 1.0),
	}
}

// Scroll moves the target by -delta, clamped to the camera's range.
func (z *Zoom) Scroll(delta float64) {
	z.Target = min(max(z.Target-delta, render.MinDistance), render.MaxDistance)
}

// Step moves c one frame closer to the target.
func (z *Zoom) Step(c *render.Camera) {
	if math.Abs(c.Distance-z.Target) < 1e-4 && math.Abs(z.vel) < 1e-4 {
		if c.Distance != z.Target {
			c.SetDistance(z.Target)
		}
		z.vel = 0
		return
	}
	d, v := z.spring.Update(c.Distance, z.vel, z.Target)
	z.vel = v
	c.SetDistance(d)
}
