package volume

import "math"

// Generator builds a synthetic field of the given dims.
type Generator func(d Dims) *Field

// Generators lists the built-in synthetic fields by name.
var Generators = map[string]Generator{
	"phantom":  Phantom,
	"gradient": Gradient,
	"sphere":   Sphere,
}

// Gradient returns a field whose value is x + y + z.
func Gradient(d Dims) *Field {
	data := make([]float32, d.Len())
	for z := range d.Z {
		for y := range d.Y {
			for x := range d.X {
				data[d.Index(x, y, z)] = float32(x + y + z)
			}
		}
	}
	return &Field{Dims: d, Data: data, Range: ComputeRange(data)}
}

// Sphere returns a solid ball of value 1 centered in the field with a radius
// of 0.35 of the shortest axis, on a zero background.
func Sphere(d Dims) *Field {
	data := make([]float32, d.Len())
	r := 0.35 * float64(min(d.X, d.Y, d.Z))
	cx, cy, cz := float64(d.X-1)/2, float64(d.Y-1)/2, float64(d.Z-1)/2
	for z := range d.Z {
		for y := range d.Y {
			for x := range d.X {
				dx, dy, dz := float64(x)-cx, float64(y)-cy, float64(z)-cz
				if dx*dx+dy*dy+dz*dz <= r*r {
					data[d.Index(x, y, z)] = 1
				}
			}
		}
	}
	return &Field{Dims: d, Data: data, Range: ComputeRange(data)}
}

// Phantom returns a head-like phantom: a bright shell around a dimmer
// interior with two dense inclusions, on an empty background.
func Phantom(d Dims) *Field {
	data := make([]float32, d.Len())
	type blob struct {
		cx, cy, cz, rx, ry, rz float64
		value                  float32
	}
	blobs := []blob{
		{0.5, 0.5, 0.5, 0.42, 0.46, 0.40, 0.9},
		{0.5, 0.5, 0.5, 0.38, 0.42, 0.36, 0.3},
		{0.38, 0.55, 0.5, 0.08, 0.1, 0.09, 0.7},
		{0.62, 0.45, 0.55, 0.06, 0.06, 0.12, 1.0},
	}
	for z := range d.Z {
		pz := (float64(z) + 0.5) / float64(d.Z)
		for y := range d.Y {
			py := (float64(y) + 0.5) / float64(d.Y)
			for x := range d.X {
				px := (float64(x) + 0.5) / float64(d.X)
				var v float32
				for _, b := range blobs {
					ex := (px - b.cx) / b.rx
					ey := (py - b.cy) / b.ry
					ez := (pz - b.cz) / b.rz
					if ex*ex+ey*ey+ez*ez <= 1 {
						v = b.value
					}
				}
				// Low-amplitude texture so the interior is not flat.
				if v > 0 {
					v += float32(0.05 * math.Sin(23*px) * math.Cos(17*py) * math.Sin(11*pz))
				}
				data[d.Index(x, y, z)] = v
			}
		}
	}
	return &Field{Dims: d, Data: data, Range: ComputeRange(data)}
}

// SingleVoxel returns an all-zero field with one voxel set to value.
func SingleVoxel(d Dims, x, y, z int, value float32) *Field {
	data := make([]float32, d.Len())
	data[d.Index(x, y, z)] = value
	return &Field{Dims: d, Data: data, Range: ComputeRange(data)}
}
