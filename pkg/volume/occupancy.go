package volume

import "github.com/taigrr/voxlab/pkg/math3d"

const (
	// OccupancyGridSize is the number of coarse cells along each axis.
	OccupancyGridSize = 16

	// OccupancyThreshold is the normalized value a voxel must exceed for
	// its coarse cell to count as occupied.
	OccupancyThreshold = 0.02
)

// OccupancyGrid is a 16x16x16 grid of 0/1 cells in the same x-fastest
// layout as Field.Data, ready to upload as a 3-D texture.
type OccupancyGrid struct {
	Cells []float32
}

// GridDims returns the occupancy grid dimensions.
func GridDims() Dims {
	return Dims{X: OccupancyGridSize, Y: OccupancyGridSize, Z: OccupancyGridSize}
}

// BuildOccupancy marks every coarse cell that contains at least one voxel
// with a normalized value above OccupancyThreshold. It makes a single pass
// over the field.
func BuildOccupancy(f *Field) *OccupancyGrid {
	g := &OccupancyGrid{Cells: make([]float32, GridDims().Len())}
	d := f.Dims

	// Per-axis voxel to cell lookup tables.
	cx := cellTable(d.X)
	cy := cellTable(d.Y)
	cz := cellTable(d.Z)

	gd := GridDims()
	i := 0
	for z := range d.Z {
		for y := range d.Y {
			rowCell := gd.Index(0, cy[y], cz[z])
			for x := range d.X {
				if f.Range.Normalize(f.Data[i]) > OccupancyThreshold {
					g.Cells[rowCell+cx[x]] = 1
				}
				i++
			}
		}
	}
	return g
}

// BuildSkipGrid is BuildOccupancy dilated by one voxel: a cell is also
// marked when a voxel above the threshold lies one voxel outside it on any
// axis. Trilinear filtering reads the neighbors of a sample's nearest voxel,
// so a ray may only skip cells that stay clear under this wider test.
func BuildSkipGrid(f *Field) *OccupancyGrid {
	g := &OccupancyGrid{Cells: make([]float32, GridDims().Len())}
	d := f.Dims

	xlo, xhi := dilatedTables(d.X)
	ylo, yhi := dilatedTables(d.Y)
	zlo, zhi := dilatedTables(d.Z)

	gd := GridDims()
	i := 0
	for z := range d.Z {
		for y := range d.Y {
			for x := range d.X {
				if f.Range.Normalize(f.Data[i]) > OccupancyThreshold {
					for k := zlo[z]; k <= zhi[z]; k++ {
						for j := ylo[y]; j <= yhi[y]; j++ {
							for c := xlo[x]; c <= xhi[x]; c++ {
								g.Cells[gd.Index(c, j, k)] = 1
							}
						}
					}
				}
				i++
			}
		}
	}
	return g
}

// dilatedTables returns, per voxel, the first and last cell touched by the
// voxel and its two axis neighbors.
func dilatedTables(n int) (lo, hi []int) {
	t := cellTable(n)
	lo, hi = make([]int, n), make([]int, n)
	for v := range n {
		lo[v] = t[max(v-1, 0)]
		hi[v] = t[min(v+1, n-1)]
	}
	return lo, hi
}

func cellTable(n int) []int {
	t := make([]int, n)
	for v := range n {
		t[v] = math3d.CellIndex(v, n, OccupancyGridSize)
	}
	return t
}

// Occupied reports whether cell (i, j, k) is occupied.
func (g *OccupancyGrid) Occupied(i, j, k int) bool {
	return g.Cells[GridDims().Index(i, j, k)] != 0
}

// Count returns the number of occupied cells.
func (g *OccupancyGrid) Count() int {
	n := 0
	for _, c := range g.Cells {
		if c != 0 {
			n++
		}
	}
	return n
}
