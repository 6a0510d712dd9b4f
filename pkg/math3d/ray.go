package math3d

import "math"

// Ray is a half-line Origin + t*Dir.
type Ray struct {
	Origin Vec3
	Dir    Vec3
}

// At returns the point at parameter t.
func (r Ray) At(t float64) Vec3 {
	return r.Origin.Add(r.Dir.Scale(t))
}

// Transform maps the ray through m: the origin as a point, the direction
// as a vector. Dir is not renormalized so t values stay comparable for
// rigid transforms.
func (r Ray) Transform(m Mat4) Ray {
	return Ray{Origin: m.MulVec3(r.Origin), Dir: m.MulVec3Dir(r.Dir)}
}

// IntersectBox intersects the ray with the axis-aligned box [lo, hi] using
// the slab method. tNear is clamped to 0 so a ray starting inside the box
// enters at its origin. ok is false exactly when tNear > tFar.
func (r Ray) IntersectBox(lo, hi Vec3) (tNear, tFar float64, ok bool) {
	inv := r.Dir.Recip()
	t0 := lo.Sub(r.Origin).Mul(inv)
	t1 := hi.Sub(r.Origin).Mul(inv)
	tNear = math.Max(fixNaN(t0.Min(t1), math.Inf(-1)).MaxComponent(), 0)
	tFar = fixNaN(t0.Max(t1), math.Inf(1)).MinComponent()
	return tNear, tFar, tNear <= tFar
}

// IntersectUnitCube intersects the ray with [0,1]^3.
func (r Ray) IntersectUnitCube() (tNear, tFar float64, ok bool) {
	return r.IntersectBox(Vec3{}, Splat3(1))
}

// fixNaN replaces NaN components, produced when an axis-parallel ray lies
// exactly on a slab plane (0 * Inf), with fill.
func fixNaN(v Vec3, fill float64) Vec3 {
	if math.IsNaN(v.X) {
		v.X = fill
	}
	if math.IsNaN(v.Y) {
		v.Y = fill
	}
	if math.IsNaN(v.Z) {
		v.Z = fill
	}
	return v
}

// Unproject returns the world-space ray through the NDC point (x, y) by
// unprojecting it at the near (z=-1) and far (z=1) planes.
func Unproject(invViewProj Mat4, x, y float64) Ray {
	near := invViewProj.MulVec4(V4(x, y, -1, 1)).PerspectiveDivide()
	far := invViewProj.MulVec4(V4(x, y, 1, 1)).PerspectiveDivide()
	return Ray{Origin: near, Dir: far.Sub(near).Normalize()}
}
