package render

import (
	"image/color"

	"github.com/taigrr/voxlab/pkg/math3d"
)

// Wireframe draws overlay lines straight into a framebuffer, outside of
// any Device: the volume outline while a volume loads and the hover marker.
type Wireframe struct {
	viewProj math3d.Mat4
	fb       *Framebuffer
}

// NewWireframe returns a wireframe renderer projecting through viewProj.
func NewWireframe(viewProj math3d.Mat4, fb *Framebuffer) *Wireframe {
	return &Wireframe{
		viewProj: viewProj,
		fb:       fb,
	}
}

// DrawLine3D draws a world-space line, clipped against the near plane.
func (w *Wireframe) DrawLine3D(p1, p2 math3d.Vec3, c color.RGBA) {
	vp := w.viewProj
	a := clipVertex{Pos: vp.MulVec4(math3d.V4FromV3(p1, 1))}
	b := clipVertex{Pos: vp.MulVec4(math3d.V4FromV3(p2, 1))}
	da, db := a.Pos.NearDistance(), b.Pos.NearDistance()
	switch {
	case da < 0 && db < 0:
		return
	case da < 0:
		a = lerpClip(a, b, da/(da-db))
	case db < 0:
		b = lerpClip(a, b, da/(da-db))
	}
	ax, ay := NDCToScreen(a.Pos.X/a.Pos.W, a.Pos.Y/a.Pos.W, w.fb.Width, w.fb.Height)
	bx, by := NDCToScreen(b.Pos.X/b.Pos.W, b.Pos.Y/b.Pos.W, w.fb.Width, w.fb.Height)
	w.fb.DrawLine(int(ax), int(ay), int(bx), int(by), c)
}

// cubeEdges are the 12 edges of a box whose corners are numbered as in
// AABB.Corners.
var cubeEdges = [12][2]int{
	{0, 1}, {2, 3}, {4, 5}, {6, 7}, // along X
	{0, 2}, {1, 3}, {4, 6}, {5, 7}, // along Y
	{0, 4}, {1, 5}, {2, 6}, {3, 7}, // along Z
}

// DrawVolumeBounds draws the outline of the volume cube under rotation.
func (w *Wireframe) DrawVolumeBounds(rotation math3d.Mat4, c color.RGBA) {
	corners := VolumeBounds.Corners()
	for i := range corners {
		corners[i] = rotation.MulVec3(corners[i])
	}
	for _, e := range cubeEdges {
		w.DrawLine3D(corners[e[0]], corners[e[1]], c)
	}
}

// DrawAxes draws the axis gizmo from the volume's (0,0,0) corner.
func (w *Wireframe) DrawAxes(rotation math3d.Mat4) {
	origin := math3d.Splat3(-0.5)
	axes := [3]struct {
		dir math3d.Vec3
		c   color.RGBA
	}{
		{math3d.V3(1, 0, 0), ColorRed},
		{math3d.V3(0, 1, 0), ColorGreen},
		{math3d.V3(0, 0, 1), ColorBlue},
	}
	for _, a := range axes {
		end := origin.Add(a.dir.Scale(AxisLength))
		w.DrawLine3D(rotation.MulVec3(origin), rotation.MulVec3(end), a.c)
	}
}

// DrawPoint draws a point as a small cross.
func (w *Wireframe) DrawPoint(pos math3d.Vec3, size float64, c color.RGBA) {
	halfSize := size / 2
	w.DrawLine3D(
		math3d.V3(pos.X-halfSize, pos.Y, pos.Z),
		math3d.V3(pos.X+halfSize, pos.Y, pos.Z),
		c,
	)
	w.DrawLine3D(
		math3d.V3(pos.X, pos.Y-halfSize, pos.Z),
		math3d.V3(pos.X, pos.Y+halfSize, pos.Z),
		c,
	)
	w.DrawLine3D(
		math3d.V3(pos.X, pos.Y, pos.Z-halfSize),
		math3d.V3(pos.X, pos.Y, pos.Z+halfSize),
		c,
	)
}

// VolumeToWorld maps a volume-local position to world space under
// rotation.
func VolumeToWorld(local math3d.Vec3, rotation math3d.Mat4) math3d.Vec3 {
	return rotation.MulVec3Dir(local.Sub(math3d.VolumeCenter))
}
