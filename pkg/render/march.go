package render

import (
	"math"

	"github.com/taigrr/voxlab/pkg/math3d"
	"github.com/taigrr/voxlab/pkg/volume"
)

// marcher walks a volume-local ray at a fixed spacing. Samples sit on the
// lattice t = tNear + i*step; skipping never moves a sample off it.
type marcher struct {
	dims volume.Dims
	step float64

	// occupied reports whether a coarse cell may hold visible samples.
	// When nil every sample is visited.
	occupied func(i, j, k int) bool
}

// walk calls visit for each sample position in [tNear, tFar) until visit
// returns false or MaxSteps lattice points have been consumed. Samples
// inside unoccupied cells are jumped over to the first lattice point at or
// beyond the cell exit.
func (m marcher) walk(ray math3d.Ray, tNear, tFar float64, visit func(p math3d.Vec3) bool) {
	if m.step <= 0 || !m.dims.Valid() {
		return
	}
	const cells = volume.OccupancyGridSize
	d := m.dims
	for i := 0; i < MaxSteps; {
		t := tNear + float64(i)*m.step
		if t >= tFar {
			return
		}
		p := ray.At(t)
		if m.occupied != nil {
			vx, vy, vz := math3d.VoxelIndex3(p, d.X, d.Y, d.Z)
			cx := math3d.CellIndex(vx, d.X, cells)
			cy := math3d.CellIndex(vy, d.Y, cells)
			cz := math3d.CellIndex(vz, d.Z, cells)
			if !m.occupied(cx, cy, cz) {
				lo, hi := cellBox(d, cx, cy, cz)
				exit := math3d.CellExit(ray, lo, hi)
				next := int(math.Ceil((exit-tNear)/m.step - 1e-9))
				i = max(next, i+1)
				continue
			}
		}
		if !visit(p) {
			return
		}
		i++
	}
}

// cellBox returns the volume-local box covered by coarse cell (cx, cy, cz).
func cellBox(d volume.Dims, cx, cy, cz int) (lo, hi math3d.Vec3) {
	const cells = volume.OccupancyGridSize
	x0, x1 := math3d.CellSpan(cx, d.X, cells)
	y0, y1 := math3d.CellSpan(cy, d.Y, cells)
	z0, z1 := math3d.CellSpan(cz, d.Z, cells)
	return math3d.V3(x0, y0, z0), math3d.V3(x1, y1, z1)
}
