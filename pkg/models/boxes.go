package models

import (
	"github.com/taigrr/voxlab/pkg/math3d"
	"github.com/taigrr/voxlab/pkg/volume"
)

// AddBox appends the 12 triangles of the box [lo, hi], four vertices per
// side so each side keeps a flat normal.
func (m *Mesh) AddBox(lo, hi math3d.Vec3) {
	c := func(x, y, z bool) math3d.Vec3 {
		p := lo
		if x {
			p.X = hi.X
		}
		if y {
			p.Y = hi.Y
		}
		if z {
			p.Z = hi.Z
		}
		return p
	}
	sides := [6]struct {
		normal  math3d.Vec3
		corners [4]math3d.Vec3
	}{
		{math3d.V3(-1, 0, 0), [4]math3d.Vec3{c(false, false, false), c(false, false, true), c(false, true, true), c(false, true, false)}},
		{math3d.V3(1, 0, 0), [4]math3d.Vec3{c(true, false, false), c(true, true, false), c(true, true, true), c(true, false, true)}},
		{math3d.V3(0, -1, 0), [4]math3d.Vec3{c(false, false, false), c(true, false, false), c(true, false, true), c(false, false, true)}},
		{math3d.V3(0, 1, 0), [4]math3d.Vec3{c(false, true, false), c(false, true, true), c(true, true, true), c(true, true, false)}},
		{math3d.V3(0, 0, -1), [4]math3d.Vec3{c(false, false, false), c(false, true, false), c(true, true, false), c(true, false, false)}},
		{math3d.V3(0, 0, 1), [4]math3d.Vec3{c(false, false, true), c(true, false, true), c(true, true, true), c(false, true, true)}},
	}
	for _, s := range sides {
		base := len(m.Vertices)
		for _, p := range s.corners {
			m.Vertices = append(m.Vertices, MeshVertex{Position: p, Normal: s.normal})
		}
		m.Faces = append(m.Faces,
			Face{V: [3]int{base, base + 1, base + 2}},
			Face{V: [3]int{base, base + 2, base + 3}},
		)
	}
}

// UnitCube returns the proxy cube [-0.5, 0.5]^3 the volume is drawn on.
func UnitCube() *Mesh {
	m := NewMesh("volume")
	m.AddBox(math3d.Splat3(-0.5), math3d.Splat3(0.5))
	m.CalculateBounds()
	return m
}

// OccupancyMesh returns one box per occupied cell of g, placed where the
// cell lies inside the world-space volume cube. d are the dimensions of
// the field the grid was built from.
func OccupancyMesh(g *volume.OccupancyGrid, d volume.Dims) *Mesh {
	const cells = volume.OccupancyGridSize
	m := NewMesh("occupancy")
	for k := range cells {
		for j := range cells {
			for i := range cells {
				if !g.Occupied(i, j, k) {
					continue
				}
				x0, x1 := math3d.CellSpan(i, d.X, cells)
				y0, y1 := math3d.CellSpan(j, d.Y, cells)
				z0, z1 := math3d.CellSpan(k, d.Z, cells)
				if x0 >= x1 || y0 >= y1 || z0 >= z1 {
					continue
				}
				m.AddBox(
					math3d.V3(x0, y0, z0).Sub(math3d.VolumeCenter),
					math3d.V3(x1, y1, z1).Sub(math3d.VolumeCenter),
				)
			}
		}
	}
	m.CalculateBounds()
	return m
}
