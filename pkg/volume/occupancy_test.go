package volume

import (
	"testing"

	"github.com/taigrr/voxlab/pkg/math3d"
)

func TestBuildOccupancyAllZero(t *testing.T) {
	f, err := NewField(Dims{20, 20, 20}, make([]float32, 8000))
	if err != nil {
		t.Fatal(err)
	}
	g := BuildOccupancy(f)
	if n := g.Count(); n != 0 {
		t.Errorf("occupied cells = %d, want 0", n)
	}
	if len(g.Cells) != OccupancyGridSize*OccupancyGridSize*OccupancyGridSize {
		t.Errorf("len(cells) = %d", len(g.Cells))
	}
}

func TestBuildOccupancySingleVoxel(t *testing.T) {
	tests := []struct {
		name    string
		dims    Dims
		x, y, z int
	}{
		{"8 cube", Dims{8, 8, 8}, 2, 2, 2},
		{"64 cube corner", Dims{64, 64, 64}, 63, 0, 17},
		{"anisotropic", Dims{33, 7, 100}, 20, 6, 99},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := SingleVoxel(tt.dims, tt.x, tt.y, tt.z, 1)
			g := BuildOccupancy(f)
			if n := g.Count(); n != 1 {
				t.Fatalf("occupied cells = %d, want 1", n)
			}
			i := math3d.CellIndex(tt.x, tt.dims.X, OccupancyGridSize)
			j := math3d.CellIndex(tt.y, tt.dims.Y, OccupancyGridSize)
			k := math3d.CellIndex(tt.z, tt.dims.Z, OccupancyGridSize)
			if !g.Occupied(i, j, k) {
				t.Errorf("cell (%d,%d,%d) not occupied", i, j, k)
			}
		})
	}
}

func TestBuildOccupancyThreshold(t *testing.T) {
	d := Dims{32, 32, 32}
	data := make([]float32, d.Len())
	data[d.Index(0, 0, 0)] = 100  // sets the range to [0, 100]
	data[d.Index(10, 10, 10)] = 2 // exactly 0.02 normalized: not above
	data[d.Index(20, 20, 20)] = 2.5
	f, err := NewField(d, data)
	if err != nil {
		t.Fatal(err)
	}
	g := BuildOccupancy(f)

	if g.Occupied(5, 5, 5) {
		t.Error("cell holding a voxel at exactly the threshold is occupied")
	}
	if !g.Occupied(10, 10, 10) {
		t.Error("cell holding a voxel above the threshold is empty")
	}
	if !g.Occupied(0, 0, 0) {
		t.Error("cell holding the maximum is empty")
	}
	if n := g.Count(); n != 2 {
		t.Errorf("occupied cells = %d, want 2", n)
	}
}

func TestBuildOccupancyMatchesBruteForce(t *testing.T) {
	f := Phantom(Dims{37, 29, 45})
	g := BuildOccupancy(f)

	var want [OccupancyGridSize][OccupancyGridSize][OccupancyGridSize]bool
	for z := range f.Dims.Z {
		for y := range f.Dims.Y {
			for x := range f.Dims.X {
				if f.Normalized(x, y, z) > OccupancyThreshold {
					i := math3d.CellIndex(x, f.Dims.X, OccupancyGridSize)
					j := math3d.CellIndex(y, f.Dims.Y, OccupancyGridSize)
					k := math3d.CellIndex(z, f.Dims.Z, OccupancyGridSize)
					want[i][j][k] = true
				}
			}
		}
	}
	for i := range OccupancyGridSize {
		for j := range OccupancyGridSize {
			for k := range OccupancyGridSize {
				if g.Occupied(i, j, k) != want[i][j][k] {
					t.Fatalf("cell (%d,%d,%d) = %v, want %v", i, j, k, g.Occupied(i, j, k), want[i][j][k])
				}
			}
		}
	}
}

func TestBuildSkipGridCoversNeighbors(t *testing.T) {
	d := Dims{32, 32, 32}
	g := BuildSkipGrid(SingleVoxel(d, 2, 16, 16, 1))
	// Voxel x=2 opens cell 1; its neighbor x=1 sits in cell 0. On y and z
	// voxels 15 and 17 fall in cells 7 and 8.
	if n := g.Count(); n != 8 {
		t.Errorf("marked cells = %d, want 8", n)
	}
	for _, c := range [][3]int{{0, 7, 7}, {1, 8, 8}, {0, 8, 7}, {1, 7, 8}} {
		if !g.Occupied(c[0], c[1], c[2]) {
			t.Errorf("cell %v not marked", c)
		}
	}
	if g.Occupied(2, 8, 8) {
		t.Error("cell 2 marked, but voxel 3 does not border it")
	}
}

func TestBuildSkipGridMatchesBruteForce(t *testing.T) {
	for _, d := range []Dims{{37, 29, 45}, {8, 8, 8}, {64, 5, 17}} {
		t.Run(d.String(), func(t *testing.T) {
			f := Phantom(d)
			g := BuildSkipGrid(f)
			base := BuildOccupancy(f)

			var want [OccupancyGridSize][OccupancyGridSize][OccupancyGridSize]bool
			for z := range d.Z {
				for y := range d.Y {
					for x := range d.X {
						if f.Normalized(x, y, z) <= OccupancyThreshold {
							continue
						}
						for dz := -1; dz <= 1; dz++ {
							for dy := -1; dy <= 1; dy++ {
								for dx := -1; dx <= 1; dx++ {
									vx := min(max(x+dx, 0), d.X-1)
									vy := min(max(y+dy, 0), d.Y-1)
									vz := min(max(z+dz, 0), d.Z-1)
									i := math3d.CellIndex(vx, d.X, OccupancyGridSize)
									j := math3d.CellIndex(vy, d.Y, OccupancyGridSize)
									k := math3d.CellIndex(vz, d.Z, OccupancyGridSize)
									want[i][j][k] = true
								}
							}
						}
					}
				}
			}
			for i := range OccupancyGridSize {
				for j := range OccupancyGridSize {
					for k := range OccupancyGridSize {
						if g.Occupied(i, j, k) != want[i][j][k] {
							t.Fatalf("cell (%d,%d,%d) = %v, want %v", i, j, k, g.Occupied(i, j, k), want[i][j][k])
						}
						if base.Occupied(i, j, k) && !g.Occupied(i, j, k) {
							t.Fatalf("cell (%d,%d,%d) occupied but not marked", i, j, k)
						}
					}
				}
			}
		})
	}
}
