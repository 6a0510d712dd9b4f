package math3d

import "math"

// Volume-local space is the unit cube [0,1]^3. In world space the volume
// occupies [-0.5,0.5]^3 rotated about the origin, so the two spaces differ
// by the inverse volume rotation and a shift of 0.5 on every axis.

// VolumeCenter is the center of volume-local space.
var VolumeCenter = Splat3(0.5)

// ToVolumeLocal shifts a world-space point into volume-local space without
// undoing any rotation.
func ToVolumeLocal(world Vec3) Vec3 {
	return world.Add(VolumeCenter)
}

// RotateAboutCenter applies the rotation m to p about the volume center.
func RotateAboutCenter(p Vec3, m Mat4) Vec3 {
	return m.MulVec3Dir(p.Sub(VolumeCenter)).Add(VolumeCenter)
}

// VolumeRay maps a world-space ray into unrotated volume-local space.
// invRotation is the inverse of the volume rotation.
func VolumeRay(world Ray, invRotation Mat4) Ray {
	return Ray{
		Origin: RotateAboutCenter(ToVolumeLocal(world.Origin), invRotation),
		Dir:    invRotation.MulVec3Dir(world.Dir),
	}
}

// VoxelIndex returns the nearest voxel on an axis of n voxels for the
// volume-local coordinate p, clamped to [0, n-1].
func VoxelIndex(p float64, n int) int {
	v := int(math.Floor(p * float64(n)))
	if v < 0 {
		return 0
	}
	if v > n-1 {
		return n - 1
	}
	return v
}

// VoxelIndex3 applies VoxelIndex on each axis.
func VoxelIndex3(p Vec3, nx, ny, nz int) (x, y, z int) {
	return VoxelIndex(p.X, nx), VoxelIndex(p.Y, ny), VoxelIndex(p.Z, nz)
}

// CellIndex maps voxel v on an axis of n voxels to its coarse cell out of
// cells, i.e. floor(v / (n/cells)) clamped to the last cell.
func CellIndex(v, n, cells int) int {
	c := v * cells / n
	if c > cells-1 {
		return cells - 1
	}
	return c
}

// CellSpan returns the volume-local interval [lo, hi) covered by coarse
// cell c: exactly the positions whose nearest voxel maps to c.
func CellSpan(c, n, cells int) (lo, hi float64) {
	vLo := (c*n + cells - 1) / cells
	vHi := ((c+1)*n + cells - 1) / cells
	return float64(vLo) / float64(n), float64(vHi) / float64(n)
}

// CellExit returns the ray parameter at which r leaves the axis-aligned
// box [lo, hi].
func CellExit(r Ray, lo, hi Vec3) float64 {
	_, tFar, _ := r.IntersectBox(lo, hi)
	return tFar
}
