package render

import (
	"fmt"
	"math"

	"github.com/taigrr/voxlab/pkg/math3d"
)

// FilterMode determines how texture sampling is performed.
type FilterMode int

const (
	FilterNearest   FilterMode = iota // Nearest-neighbor (blocky)
	FilterTrilinear                   // Trilinear interpolation (smooth)
)

func (f FilterMode) String() string {
	switch f {
	case FilterNearest:
		return "nearest"
	case FilterTrilinear:
		return "trilinear"
	default:
		return fmt.Sprintf("FilterMode(%d)", int(f))
	}
}

// Texture3D is a single-channel float volume texture. Texel (x, y, z) is
// stored at x + Width*(y + Height*z). Coordinates outside [0,1] clamp to
// the edge texels.
type Texture3D struct {
	Width  int
	Height int
	Depth  int
	Data   []float32
	Filter FilterMode
}

// NewTexture3D wraps data, which must hold width*height*depth texels.
func NewTexture3D(width, height, depth int, data []float32, filter FilterMode) (*Texture3D, error) {
	if width <= 0 || height <= 0 || depth <= 0 {
		return nil, fmt.Errorf("texture %dx%dx%d: non-positive size", width, height, depth)
	}
	if len(data) != width*height*depth {
		return nil, fmt.Errorf("texture %dx%dx%d: have %d texels", width, height, depth, len(data))
	}
	return &Texture3D{Width: width, Height: height, Depth: depth, Data: data, Filter: filter}, nil
}

// Fetch returns the texel at integer coordinates, clamped to the edges.
func (t *Texture3D) Fetch(x, y, z int) float32 {
	x = clampInt(x, 0, t.Width-1)
	y = clampInt(y, 0, t.Height-1)
	z = clampInt(z, 0, t.Depth-1)
	return t.Data[x+t.Width*(y+t.Height*z)]
}

// Sample returns the filtered value at normalized coordinates p.
func (t *Texture3D) Sample(p math3d.Vec3) float32 {
	if t.Filter == FilterTrilinear {
		return t.sampleTrilinear(p)
	}
	return t.sampleNearest(p)
}

func (t *Texture3D) sampleNearest(p math3d.Vec3) float32 {
	x, y, z := math3d.VoxelIndex3(p, t.Width, t.Height, t.Depth)
	return t.Data[x+t.Width*(y+t.Height*z)]
}

// sampleTrilinear places texel centers at (i+0.5)/size, as OpenGL does.
func (t *Texture3D) sampleTrilinear(p math3d.Vec3) float32 {
	fx := p.X*float64(t.Width) - 0.5
	fy := p.Y*float64(t.Height) - 0.5
	fz := p.Z*float64(t.Depth) - 0.5

	x0, y0, z0 := int(math.Floor(fx)), int(math.Floor(fy)), int(math.Floor(fz))
	tx := float32(fx - float64(x0))
	ty := float32(fy - float64(y0))
	tz := float32(fz - float64(z0))

	c00 := lerp32(t.Fetch(x0, y0, z0), t.Fetch(x0+1, y0, z0), tx)
	c10 := lerp32(t.Fetch(x0, y0+1, z0), t.Fetch(x0+1, y0+1, z0), tx)
	c01 := lerp32(t.Fetch(x0, y0, z0+1), t.Fetch(x0+1, y0, z0+1), tx)
	c11 := lerp32(t.Fetch(x0, y0+1, z0+1), t.Fetch(x0+1, y0+1, z0+1), tx)

	c0 := lerp32(c00, c10, ty)
	c1 := lerp32(c01, c11, ty)
	return lerp32(c0, c1, tz)
}

func lerp32(a, b, t float32) float32 {
	return a + (b-a)*t
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
