package volume

import (
	"slices"
	"testing"
)

func TestResampleIdentityForLargeTargets(t *testing.T) {
	f := Gradient(Dims{X: 9, Y: 5, Z: 7})
	for _, target := range []int{9, 10, 64, 1 << 20} {
		got := Resample(f, target)
		if got.Dims != f.Dims {
			t.Fatalf("target %d: dims = %v, want %v", target, got.Dims, f.Dims)
		}
		if !slices.Equal(got.Data, f.Data) {
			t.Errorf("target %d: data differs from source", target)
		}
		if &got.Data[0] == &f.Data[0] {
			t.Errorf("target %d: result aliases source data", target)
		}
	}
}

func TestResampleDeterministic(t *testing.T) {
	f := Phantom(Dims{X: 40, Y: 33, Z: 21})
	a := Resample(f, 10)
	b := Resample(f, 10)
	if a.Dims != b.Dims || !slices.Equal(a.Data, b.Data) {
		t.Error("two resamples of the same field differ")
	}
}

func TestResampleDimsRule(t *testing.T) {
	tests := []struct {
		name   string
		dims   Dims
		target int
		factor int
		want   Dims
	}{
		{"cube halves", Dims{8, 8, 8}, 4, 2, Dims{4, 4, 4}},
		{"same factor on every axis", Dims{100, 50, 30}, 16, 6, Dims{16, 8, 5}},
		{"factor floors", Dims{65, 64, 64}, 64, 1, Dims{65, 64, 64}},
		{"long z", Dims{20, 20, 200}, 64, 3, Dims{6, 6, 66}},
		{"thin axis keeps one slice", Dims{64, 64, 2}, 16, 4, Dims{16, 16, 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Factor(tt.dims, tt.target); got != tt.factor {
				t.Errorf("Factor = %d, want %d", got, tt.factor)
			}
			f := Gradient(tt.dims)
			got := Resample(f, tt.target)
			if got.Dims != tt.want {
				t.Errorf("dims = %v, want %v", got.Dims, tt.want)
			}
			if len(got.Data) != got.Dims.Len() {
				t.Errorf("len(data) = %d, want %d", len(got.Data), got.Dims.Len())
			}
		})
	}
}

func TestResamplePointSamples(t *testing.T) {
	src := Gradient(Dims{8, 8, 8})
	got := Resample(src, 4)

	if got.Dims != (Dims{4, 4, 4}) {
		t.Fatalf("dims = %v, want 4x4x4", got.Dims)
	}
	if got.At(0, 0, 0) != src.At(0, 0, 0) {
		t.Errorf("r[0,0,0] = %v, want %v", got.At(0, 0, 0), src.At(0, 0, 0))
	}
	if got.At(3, 3, 3) != src.At(6, 6, 6) {
		t.Errorf("r[3,3,3] = %v, want s[6,6,6] = %v", got.At(3, 3, 3), src.At(6, 6, 6))
	}
	for z := range 4 {
		for y := range 4 {
			for x := range 4 {
				if got.At(x, y, z) != src.At(2*x, 2*y, 2*z) {
					t.Fatalf("r[%d,%d,%d] is not a point sample", x, y, z)
				}
			}
		}
	}
}

func TestResampleKeepsNativeRange(t *testing.T) {
	// The maximum sits on an odd index that point sampling skips.
	f := SingleVoxel(Dims{8, 8, 8}, 3, 3, 3, 5)
	got := Resample(f, 4)
	if got.Range != f.Range {
		t.Errorf("range = %+v, want native %+v", got.Range, f.Range)
	}
	if ComputeRange(got.Data).Max != 0 {
		t.Fatal("test setup: maximum should not survive resampling")
	}
}

func BenchmarkResample256To64(b *testing.B) {
	f := Gradient(Dims{256, 256, 128})
	for b.Loop() {
		_ = Resample(f, 64)
	}
}
