package store

import (
	"fmt"
	"os"
	"slices"

	"github.com/ctessum/cdf"

	"github.com/taigrr/voxlab/pkg/volume"
)

// DatasetNames are tried in order when locating the scalar field inside a
// NetCDF file.
var DatasetNames = []string{"target", "volume", "data"}

// Extension is the file suffix scanned for by Open.
const Extension = ".nc"

// ReadNetCDF loads the first recognized dataset of a NetCDF classic file.
// A variable of shape [s0, s1, s2] (last index fastest) becomes a field of
// dims X=s2, Y=s1, Z=s0, so the file order already matches the x-fastest
// layout. It returns the dataset name that was used.
func ReadNetCDF(path string) (*volume.Field, string, error) {
	fp, err := os.Open(path)
	if err != nil {
		return nil, "", fmt.Errorf("open %s: %w: %v", path, ErrReadFailure, err)
	}
	defer fp.Close()

	f, err := cdf.Open(fp)
	if err != nil {
		return nil, "", fmt.Errorf("parse netcdf header of %s: %w: %v", path, ErrReadFailure, err)
	}

	name, err := findDataset(f.Header.Variables(), path)
	if err != nil {
		return nil, "", err
	}
	lengths := f.Header.Lengths(name)
	if len(lengths) < 3 {
		return nil, "", fmt.Errorf("dataset %q in %s has %d dimensions, want 3: %w", name, path, len(lengths), ErrDatasetMissing)
	}
	// Leading singleton axes (e.g. a time axis of length 1) are dropped.
	for len(lengths) > 3 && lengths[0] == 1 {
		lengths = lengths[1:]
	}
	if len(lengths) != 3 {
		return nil, "", fmt.Errorf("dataset %q in %s has shape %v, want 3 axes: %w", name, path, lengths, ErrDatasetMissing)
	}
	d := volume.Dims{X: lengths[2], Y: lengths[1], Z: lengths[0]}

	data, err := readFloats(f, name, d.Len())
	if err != nil {
		return nil, "", fmt.Errorf("read dataset %q in %s: %w: %v", name, path, ErrReadFailure, err)
	}
	field, err := volume.NewField(d, data)
	if err != nil {
		return nil, "", fmt.Errorf("dataset %q in %s: %w: %v", name, path, ErrReadFailure, err)
	}
	return field, name, nil
}

func findDataset(vars []string, path string) (string, error) {
	for _, name := range DatasetNames {
		if slices.Contains(vars, name) {
			return name, nil
		}
	}
	return "", fmt.Errorf("%s has none of %v (variables: %v): %w", path, DatasetNames, vars, ErrDatasetMissing)
}

// readFloats reads the variable as float32, narrowing double-precision
// variables.
func readFloats(f *cdf.File, name string, n int) ([]float32, error) {
	buf := make([]float32, n)
	if _, err := f.Reader(name, nil, nil).Read(buf); err == nil {
		return buf, nil
	}
	wide := make([]float64, n)
	if _, err := f.Reader(name, nil, nil).Read(wide); err != nil {
		return nil, err
	}
	for i, v := range wide {
		buf[i] = float32(v)
	}
	return buf, nil
}

// WriteNetCDF stores field as a float variable called name with dimensions
// (z, y, x).
func WriteNetCDF(path, name string, field *volume.Field) error {
	fp, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer fp.Close()

	d := field.Dims
	axes := []string{"z", "y", "x"}
	lengths := []int{d.Z, d.Y, d.X}
	h := cdf.NewHeader(axes, lengths)
	h.AddAttribute("", "comment", "voxlab scalar field")
	h.AddVariable(name, axes, []float32{0})
	h.AddAttribute(name, "valid_range", []float32{field.Range.Min, field.Range.Max})
	h.Define()

	f, err := cdf.Create(fp, h)
	if err != nil {
		return fmt.Errorf("write netcdf header to %s: %w", path, err)
	}
	w := f.Writer(name, []int{0, 0, 0}, lengths)
	if _, err := w.Write(field.Data); err != nil {
		return fmt.Errorf("write dataset %q to %s: %w", name, path, err)
	}
	if err := cdf.UpdateNumRecs(fp); err != nil {
		return fmt.Errorf("finalize %s: %w", path, err)
	}
	return nil
}
