package render

import (
	"image/color"
	"math"

	"github.com/taigrr/voxlab/pkg/math3d"
)

// clipVertex is a vertex as the vertex stage leaves it.
type clipVertex struct {
	Pos  math3d.Vec4
	Vary varyings
}

// screenVertex holds a vertex transformed to screen space. Vary is
// pre-divided by w for perspective-correct interpolation.
type screenVertex struct {
	X, Y float64 // Screen coordinates
	Z    float64 // NDC depth
	InvW float64
	Vary varyings
}

// shadeFunc runs the fragment stage; false discards the fragment.
type shadeFunc func(in varyings) (fragColor, bool)

// rasterizer turns clip-space primitives into framebuffer writes.
type rasterizer struct {
	fb      *Framebuffer
	zbuffer []float64 // Depth buffer (1D array, row-major)
}

// resize matches the depth buffer to the framebuffer.
func (r *rasterizer) resize() {
	if n := r.fb.Width * r.fb.Height; n <= cap(r.zbuffer) {
		r.zbuffer = r.zbuffer[:n]
	} else {
		r.zbuffer = make([]float64, n)
	}
}

// clearDepth resets the depth buffer (call before each frame).
func (r *rasterizer) clearDepth() {
	// Use copy-doubling for faster clearing
	n := len(r.zbuffer)
	if n == 0 {
		return
	}
	r.zbuffer[0] = math.MaxFloat64
	for i := 1; i < n; i *= 2 {
		copy(r.zbuffer[i:], r.zbuffer[:i])
	}
}

// clipNear clips a convex polygon against the near plane z >= -w
// (Sutherland-Hodgman). Everything it returns has w > 0.
func clipNear(in []clipVertex) []clipVertex {
	dist := func(v clipVertex) float64 { return v.Pos.NearDistance() }
	out := make([]clipVertex, 0, len(in)+1)
	for i := range in {
		a, b := in[i], in[(i+1)%len(in)]
		da, db := dist(a), dist(b)
		if da >= 0 {
			out = append(out, a)
		}
		if (da >= 0) != (db >= 0) {
			out = append(out, lerpClip(a, b, da/(da-db)))
		}
	}
	return out
}

func lerpClip(a, b clipVertex, t float64) clipVertex {
	return clipVertex{
		Pos:  a.Pos.Lerp(b.Pos, t),
		Vary: a.Vary.lerp(b.Vary, t),
	}
}

func (r *rasterizer) toScreen(v clipVertex) screenVertex {
	invW := 1 / v.Pos.W
	x, y := NDCToScreen(v.Pos.X*invW, v.Pos.Y*invW, r.fb.Width, r.fb.Height)
	return screenVertex{X: x, Y: y, Z: v.Pos.Z * invW, InvW: invW, Vary: v.Vary.scale(invW)}
}

// triangle clips, culls and fills one triangle.
func (r *rasterizer) triangle(v [3]clipVertex, st DrawState, shade shadeFunc) {
	poly := clipNear(v[:])
	for i := 1; i+1 < len(poly); i++ {
		r.fill(r.toScreen(poly[0]), r.toScreen(poly[i]), r.toScreen(poly[i+1]), st, shade)
	}
}

// edgeCoeffs returns A, B, C for the edge function A*x + B*y + C of the
// edge (x0,y0)->(x1,y1).
func edgeCoeffs(x0, y0, x1, y1 float64) (A, B, C float64) {
	A = y0 - y1 // dy
	B = x1 - x0 // -dx
	C = x0*y1 - x1*y0
	return
}

// fill rasterizes a screen-space triangle with incremental edge functions.
func (r *rasterizer) fill(s0, s1, s2 screenVertex, st DrawState, shade shadeFunc) {
	// Screen y points down, so counter-clockwise in NDC gives cross < 0.
	cross := (s1.X-s0.X)*(s2.Y-s0.Y) - (s2.X-s0.X)*(s1.Y-s0.Y)
	if cross == 0 {
		return
	}
	front := cross < 0
	if (st.Cull == CullFront && front) || (st.Cull == CullBack && !front) {
		return
	}

	width, height := r.fb.Width, r.fb.Height
	minX := max(0, int(math.Floor(min(s0.X, s1.X, s2.X))))
	maxX := min(width-1, int(math.Ceil(max(s0.X, s1.X, s2.X))))
	minY := max(0, int(math.Floor(min(s0.Y, s1.Y, s2.Y))))
	maxY := min(height-1, int(math.Ceil(max(s0.Y, s1.Y, s2.Y))))
	if minX > maxX || minY > maxY {
		return
	}

	// Edge 0: v1 -> v2, Edge 1: v2 -> v0, Edge 2: v0 -> v1
	A0, B0, C0 := edgeCoeffs(s1.X, s1.Y, s2.X, s2.Y)
	A1, B1, C1 := edgeCoeffs(s2.X, s2.Y, s0.X, s0.Y)
	A2, B2, C2 := edgeCoeffs(s0.X, s0.Y, s1.X, s1.Y)
	invArea := 1 / cross

	px := float64(minX) + 0.5
	py := float64(minY) + 0.5
	w0Row := A0*px + B0*py + C0
	w1Row := A1*px + B1*py + C1
	w2Row := A2*px + B2*py + C2

	for y := minY; y <= maxY; y++ {
		w0, w1, w2 := w0Row, w1Row, w2Row
		for x := minX; x <= maxX; x++ {
			b0, b1, b2 := w0*invArea, w1*invArea, w2*invArea
			if b0 >= 0 && b1 >= 0 && b2 >= 0 {
				z := b0*s0.Z + b1*s1.Z + b2*s2.Z
				iw := b0*s0.InvW + b1*s1.InvW + b2*s2.InvW
				vary := s0.Vary.scale(b0).add(s1.Vary.scale(b1)).add(s2.Vary.scale(b2)).scale(1 / iw)
				r.fragment(x, y, z, vary, st, shade)
			}
			w0 += A0
			w1 += A1
			w2 += A2
		}
		w0Row += B0
		w1Row += B1
		w2Row += B2
	}
}

// line clips a segment against the near plane and draws it with
// Bresenham's algorithm, interpolating depth and varyings along it.
func (r *rasterizer) line(a, b clipVertex, st DrawState, shade shadeFunc) {
	da, db := a.Pos.NearDistance(), b.Pos.NearDistance()
	switch {
	case da < 0 && db < 0:
		return
	case da < 0:
		a = lerpClip(a, b, da/(da-db))
	case db < 0:
		b = lerpClip(a, b, da/(da-db))
	}
	s0, s1 := r.toScreen(a), r.toScreen(b)
	x0, y0 := int(math.Floor(s0.X)), int(math.Floor(s0.Y))
	x1, y1 := int(math.Floor(s1.X)), int(math.Floor(s1.Y))
	bresenham(x0, y0, x1, y1, func(x, y, i, n int) {
		if x < 0 || x >= r.fb.Width || y < 0 || y >= r.fb.Height {
			return
		}
		t := 0.0
		if n > 0 {
			t = float64(i) / float64(n)
		}
		z := s0.Z + (s1.Z-s0.Z)*t
		iw := s0.InvW + (s1.InvW-s0.InvW)*t
		vary := s0.Vary.lerp(s1.Vary, t).scale(1 / iw)
		r.fragment(x, y, z, vary, st, shade)
	})
}

// fragment runs the depth test, the fragment stage and the color write.
func (r *rasterizer) fragment(x, y int, z float64, vary varyings, st DrawState, shade shadeFunc) {
	idx := y*r.fb.Width + x
	if st.DepthTest && z >= r.zbuffer[idx] {
		return
	}
	c, ok := shade(vary)
	if !ok {
		return
	}
	if st.DepthTest {
		r.zbuffer[idx] = z
	}
	if st.Blend {
		r.fb.BlendPixel(x, y, c.R, c.G, c.B, c.A)
		return
	}
	r.fb.Pixels[idx] = color.RGBA{
		R: uint8(clamp01(c.R)*255 + 0.5),
		G: uint8(clamp01(c.G)*255 + 0.5),
		B: uint8(clamp01(c.B)*255 + 0.5),
		A: uint8(clamp01(c.A)*255 + 0.5),
	}
}

// bresenham visits every pixel of the line (x0, y0)-(x1, y1). plot gets
// the step index i out of n total steps.
func bresenham(x0, y0, x1, y1 int, plot func(x, y, i, n int)) {
	dx := abs(x1 - x0)
	dy := -abs(y1 - y0)
	sx := 1
	if x0 > x1 {
		sx = -1
	}
	sy := 1
	if y0 > y1 {
		sy = -1
	}
	err := dx + dy
	n := max(dx, -dy)

	for i := 0; ; i++ {
		plot(x0, y0, i, n)
		if x0 == x1 && y0 == y1 {
			break
		}
		e2 := 2 * err
		if e2 >= dy {
			err += dy
			x0 += sx
		}
		if e2 <= dx {
			err += dx
			y0 += sy
		}
	}
}
