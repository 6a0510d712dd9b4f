package volume

// Factor returns the integer stride used to bring the longest axis of d
// down to at most target: max(1, maxAxis/target).
func Factor(d Dims, target int) int {
	if target <= 0 {
		return max(1, d.MaxAxis())
	}
	return max(1, d.MaxAxis()/target)
}

// ResampledDims returns floor(n/factor) on every axis, never below one voxel.
func ResampledDims(d Dims, factor int) Dims {
	return Dims{
		X: max(1, d.X/factor),
		Y: max(1, d.Y/factor),
		Z: max(1, d.Z/factor),
	}
}

// Resample point-samples f so its longest axis is at most target. The
// output voxel (x, y, z) is f[x*factor, y*factor, z*factor]; no averaging
// or interpolation is done, so the output is bit-reproducible. The native
// value range is carried over unchanged.
func Resample(f *Field, target int) *Field {
	factor := Factor(f.Dims, target)
	if factor == 1 {
		data := make([]float32, len(f.Data))
		copy(data, f.Data)
		return &Field{Dims: f.Dims, Data: data, Range: f.Range}
	}

	out := ResampledDims(f.Dims, factor)
	data := make([]float32, out.Len())
	i := 0
	for z := range out.Z {
		for y := range out.Y {
			row := f.Dims.Index(0, y*factor, z*factor)
			for x := range out.X {
				data[i] = f.Data[row+x*factor]
				i++
			}
		}
	}
	return &Field{Dims: out, Data: data, Range: f.Range}
}
