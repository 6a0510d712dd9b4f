package volume

import (
	"errors"
	"math"
	"slices"
	"testing"
)

func TestNewFieldValidatesLength(t *testing.T) {
	tests := []struct {
		name string
		dims Dims
		n    int
		ok   bool
	}{
		{"exact", Dims{2, 3, 4}, 24, true},
		{"short", Dims{2, 3, 4}, 23, false},
		{"long", Dims{2, 3, 4}, 25, false},
		{"zero axis", Dims{0, 3, 4}, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewField(tt.dims, make([]float32, tt.n))
			if tt.ok && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !tt.ok && !errors.Is(err, ErrDimsMismatch) {
				t.Fatalf("err = %v, want ErrDimsMismatch", err)
			}
		})
	}
}

func TestLayoutIsXFastest(t *testing.T) {
	d := Dims{4, 3, 2}
	if got := d.Index(1, 0, 0); got != 1 {
		t.Errorf("Index(1,0,0) = %d, want 1", got)
	}
	if got := d.Index(0, 1, 0); got != 4 {
		t.Errorf("Index(0,1,0) = %d, want 4", got)
	}
	if got := d.Index(0, 0, 1); got != 12 {
		t.Errorf("Index(0,0,1) = %d, want 12", got)
	}
}

func TestComputeRange(t *testing.T) {
	nan := float32(math.NaN())
	tests := []struct {
		name string
		data []float32
		want ValueRange
	}{
		{"simple", []float32{3, -1, 7, 2}, ValueRange{-1, 7}},
		{"constant", []float32{5, 5}, ValueRange{5, 5}},
		{"skips nan", []float32{nan, 2, nan, 4}, ValueRange{2, 4}},
		{"empty", nil, ValueRange{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ComputeRange(tt.data)
			if got != tt.want {
				t.Errorf("ComputeRange = %+v, want %+v", got, tt.want)
			}
			if got.Min > got.Max {
				t.Errorf("min > max")
			}
		})
	}
}

func TestNormalizeDegenerateRange(t *testing.T) {
	r := ValueRange{Min: 4, Max: 4}
	if got := r.Normalize(4); got != 0 {
		t.Errorf("Normalize = %v, want 0", got)
	}
	r = ValueRange{Min: -2, Max: 2}
	if got := r.Normalize(1); got != 0.75 {
		t.Errorf("Normalize(1) = %v, want 0.75", got)
	}
}

func TestDimsStringRoundTrip(t *testing.T) {
	d := Dims{64, 32, 17}
	if d.String() != "64,32,17" {
		t.Fatalf("String = %q", d.String())
	}
	got, err := ParseDims(d.String())
	if err != nil || got != d {
		t.Errorf("ParseDims = %v, %v", got, err)
	}
	for _, bad := range []string{"", "1,2", "a,b,c", "0,1,1"} {
		if _, err := ParseDims(bad); err == nil {
			t.Errorf("ParseDims(%q) succeeded", bad)
		}
	}
}

func TestEncodeLE(t *testing.T) {
	got := EncodeLE([]float32{1, -2.5})
	want := []byte{0x00, 0x00, 0x80, 0x3f, 0x00, 0x00, 0x20, 0xc0}
	if !slices.Equal(got, want) {
		t.Errorf("EncodeLE = % x, want % x", got, want)
	}
	if _, err := DecodeLE(got[:7]); err == nil {
		t.Error("DecodeLE accepted a truncated sample")
	}
}

func TestFieldFromBytes(t *testing.T) {
	src := Gradient(Dims{3, 4, 5})
	got, err := FieldFromBytes(src.Dims, src.Range, src.Bytes())
	if err != nil {
		t.Fatal(err)
	}
	if !slices.Equal(got.Data, src.Data) || got.Range != src.Range {
		t.Error("decoded field differs")
	}
	if _, err := FieldFromBytes(Dims{4, 4, 5}, src.Range, src.Bytes()); !errors.Is(err, ErrDimsMismatch) {
		t.Errorf("err = %v, want ErrDimsMismatch", err)
	}
}
