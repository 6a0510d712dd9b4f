// Package volume holds dense scalar fields and the pure transforms applied
// to them: point resampling, occupancy grids and the little-endian f32 wire
// encoding.
//
// Storage order is x fastest: the sample at (x, y, z) lives at
// x + X*(y + Y*z). A 3-D texture built from Data uses width = X,
// height = Y and depth = Z.
package volume

import (
	"errors"
	"fmt"
	"math"
)

// ErrDimsMismatch is returned when a data slice does not hold exactly
// X*Y*Z samples.
var ErrDimsMismatch = errors.New("data length does not match dimensions")

// Dims are the voxel counts along each axis.
type Dims struct {
	X, Y, Z int
}

// Len returns the number of voxels.
func (d Dims) Len() int {
	return d.X * d.Y * d.Z
}

// MaxAxis returns the longest axis length.
func (d Dims) MaxAxis() int {
	return max(d.X, d.Y, d.Z)
}

// Valid reports whether every axis holds at least one voxel.
func (d Dims) Valid() bool {
	return d.X > 0 && d.Y > 0 && d.Z > 0
}

// Index returns the linear index of (x, y, z).
func (d Dims) Index(x, y, z int) int {
	return x + d.X*(y+d.Y*z)
}

// Array returns the dims as [x, y, z].
func (d Dims) Array() [3]int {
	return [3]int{d.X, d.Y, d.Z}
}

// String formats the dims as "X,Y,Z", the form used by the X-Volume-Dims
// header.
func (d Dims) String() string {
	return fmt.Sprintf("%d,%d,%d", d.X, d.Y, d.Z)
}

// ParseDims parses the "X,Y,Z" form produced by String.
func ParseDims(s string) (Dims, error) {
	var d Dims
	n, err := fmt.Sscanf(s, "%d,%d,%d", &d.X, &d.Y, &d.Z)
	if err != nil || n != 3 {
		return Dims{}, fmt.Errorf("parse dims %q: expected X,Y,Z", s)
	}
	if !d.Valid() {
		return Dims{}, fmt.Errorf("parse dims %q: non-positive axis", s)
	}
	return d, nil
}

// ValueRange is the [Min, Max] interval of a field's native samples.
type ValueRange struct {
	Min, Max float32
}

// ComputeRange scans data once for its extrema. NaN samples are ignored;
// an empty or all-NaN slice yields [0, 0].
func ComputeRange(data []float32) ValueRange {
	r := ValueRange{Min: float32(math.Inf(1)), Max: float32(math.Inf(-1))}
	for _, v := range data {
		if v != v {
			continue
		}
		if v < r.Min {
			r.Min = v
		}
		if v > r.Max {
			r.Max = v
		}
	}
	if r.Min > r.Max {
		return ValueRange{}
	}
	return r
}

// Normalize maps v into [0, 1] relative to the range. A degenerate range
// maps everything to 0.
func (r ValueRange) Normalize(v float32) float64 {
	span := float64(r.Max) - float64(r.Min)
	if span <= 0 {
		return 0
	}
	return (float64(v) - float64(r.Min)) / span
}

// Array returns the range as [min, max].
func (r ValueRange) Array() [2]float32 {
	return [2]float32{r.Min, r.Max}
}

// Field is an immutable dense scalar field. Transforms return new fields
// and never modify Data in place.
type Field struct {
	Dims  Dims
	Data  []float32
	Range ValueRange
}

// NewField wraps data and computes its native value range.
func NewField(d Dims, data []float32) (*Field, error) {
	if !d.Valid() || len(data) != d.Len() {
		return nil, fmt.Errorf("new field %s with %d samples: %w", d, len(data), ErrDimsMismatch)
	}
	return &Field{Dims: d, Data: data, Range: ComputeRange(data)}, nil
}

// NewFieldWithRange wraps data with a range that is already known, as for
// resampled or transmitted fields that inherit the native range.
func NewFieldWithRange(d Dims, data []float32, r ValueRange) (*Field, error) {
	if !d.Valid() || len(data) != d.Len() {
		return nil, fmt.Errorf("new field %s with %d samples: %w", d, len(data), ErrDimsMismatch)
	}
	return &Field{Dims: d, Data: data, Range: r}, nil
}

// At returns the sample at (x, y, z).
func (f *Field) At(x, y, z int) float32 {
	return f.Data[f.Dims.Index(x, y, z)]
}

// Normalized returns the sample at (x, y, z) mapped through the range.
func (f *Field) Normalized(x, y, z int) float64 {
	return f.Range.Normalize(f.At(x, y, z))
}

// ByteSize returns the encoded size in bytes.
func (f *Field) ByteSize() int {
	return 4 * len(f.Data)
}
