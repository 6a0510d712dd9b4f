package viewer

import (
	"testing"

	"github.com/taigrr/voxlab/pkg/render"
)

func TestInertiaDecays(t *testing.T) {
	in := NewInertia(60)
	in.Grab()
	in.Track(8, -4)
	if in.Moving() {
		t.Error("Moving() while held")
	}
	in.Release()
	if !in.Moving() {
		t.Fatal("not Moving() after release")
	}

	var r render.RotationState
	prev := in.VX
	for range 300 {
		in.Step(&r)
		if in.VX > prev {
			t.Fatalf("speed grew from %v to %v", prev, in.VX)
		}
		prev = in.VX
	}
	if in.Moving() || in.VX != 0 || in.VY != 0 {
		t.Errorf("still moving after 5s: (%v, %v)", in.VX, in.VY)
	}
}

func TestZoomStep(t *testing.T) {
	c := render.NewCamera()
	z := NewZoom(60, c.Distance)
	z.Scroll(1.5)
	if z.Target != 0.5 {
		t.Fatalf("Target = %v, want 0.5", z.Target)
	}
	for range 300 {
		z.Step(c)
		if c.Distance < render.MinDistance {
			t.Fatalf("Distance %v below the minimum", c.Distance)
		}
	}
	if c.Distance != 0.5 {
		t.Errorf("Distance = %v, want 0.5", c.Distance)
	}
}
