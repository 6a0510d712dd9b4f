package render

import (
	"github.com/taigrr/voxlab/pkg/math3d"
	"github.com/taigrr/voxlab/pkg/volume"
)

const (
	// PickStep is the march spacing used for picking, in volume-local units.
	PickStep = 0.01

	// PickThreshold is the normalized value a voxel must exceed to be hit.
	PickThreshold = 0.05
)

// HoverInfo describes the voxel under the cursor. Valid is false when the
// ray misses the volume or passes only through values at or below
// PickThreshold.
type HoverInfo struct {
	Valid      bool
	Voxel      [3]int
	Value      float32
	Normalized float64
	Position   math3d.Vec3 // volume-local hit position in [0,1]^3
}

// Picker finds voxels along rays on the CPU copy of the volume. It works
// at the resolution of Field, which may be lower than the rendered one.
type Picker struct {
	Field    *volume.Field
	Rotation math3d.Mat4
}

// PickScreen casts the ray through the NDC point (x, y).
func (p Picker) PickScreen(viewProj math3d.Mat4, ndcX, ndcY float64) HoverInfo {
	return p.PickRay(math3d.Unproject(viewProj.Inverse(), ndcX, ndcY))
}

// PickRay marches a world-space ray through the rotated volume and returns
// the first voxel whose normalized value exceeds PickThreshold.
func (p Picker) PickRay(world math3d.Ray) HoverInfo {
	f := p.Field
	if f == nil || !f.Dims.Valid() {
		return HoverInfo{}
	}
	rot := p.Rotation
	if rot == (math3d.Mat4{}) {
		rot = math3d.Identity()
	}
	world.Dir = world.Dir.Normalize()
	ray := math3d.VolumeRay(world, rot.Inverse())
	tNear, tFar, ok := ray.IntersectUnitCube()
	if !ok {
		return HoverInfo{}
	}

	var hit HoverInfo
	d := f.Dims
	m := marcher{dims: d, step: PickStep}
	m.walk(ray, tNear, tFar, func(pos math3d.Vec3) bool {
		if !pos.InUnitCube() {
			return true
		}
		x, y, z := math3d.VoxelIndex3(pos, d.X, d.Y, d.Z)
		v := f.At(x, y, z)
		n := f.Range.Normalize(v)
		if n <= PickThreshold {
			return true
		}
		hit = HoverInfo{Valid: true, Voxel: [3]int{x, y, z}, Value: v, Normalized: n, Position: pos}
		return false
	})
	return hit
}
