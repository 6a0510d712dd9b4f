package render

import (
	"testing"

	"github.com/taigrr/voxlab/pkg/math3d"
)

func newTestWireframe(size int) (*Wireframe, *Framebuffer) {
	fb := NewFramebuffer(size, size)
	fb.Clear(ColorBlack)
	return NewWireframe(NewCamera().ViewProjectionMatrix(), fb), fb
}

func countColor(fb *Framebuffer, want [3]uint8) int {
	n := 0
	for y := range fb.Height {
		for x := range fb.Width {
			c := fb.GetPixel(x, y)
			if c.R == want[0] && c.G == want[1] && c.B == want[2] {
				n++
			}
		}
	}
	return n
}

func TestWireframeVolumeBounds(t *testing.T) {
	w, fb := newTestWireframe(40)
	w.DrawVolumeBounds(math3d.Identity(), ColorWhite)

	if countColor(fb, [3]uint8{255, 255, 255}) == 0 {
		t.Fatal("no outline drawn")
	}
	if c := fb.GetPixel(20, 20); c != ColorBlack {
		t.Errorf("center pixel = %v, want the outline to leave it empty", c)
	}
	if c := fb.GetPixel(0, 0); c != ColorBlack {
		t.Errorf("corner pixel = %v, want empty", c)
	}
}

func TestWireframeClipsBehindCamera(t *testing.T) {
	w, fb := newTestWireframe(20)
	// Both ends are behind the camera at z = 2.
	w.DrawLine3D(math3d.V3(-1, 0, 3), math3d.V3(1, 0, 3), ColorWhite)
	if n := countColor(fb, [3]uint8{255, 255, 255}); n != 0 {
		t.Errorf("%d pixels drawn for a line behind the camera", n)
	}

	// One end behind: the visible part is still drawn.
	w.DrawLine3D(math3d.V3(0, 0, 0), math3d.V3(0, 0, 5), ColorWhite)
	if n := countColor(fb, [3]uint8{255, 255, 255}); n == 0 {
		t.Error("line crossing the near plane was dropped")
	}
}

func TestWireframeAxes(t *testing.T) {
	w, fb := newTestWireframe(48)
	w.DrawAxes(math3d.Identity())
	for _, c := range [][3]uint8{{255, 0, 0}, {0, 255, 0}, {0, 0, 255}} {
		if countColor(fb, c) == 0 {
			t.Errorf("axis color %v missing", c)
		}
	}
}

func TestWireframePoint(t *testing.T) {
	w, fb := newTestWireframe(21)
	w.DrawPoint(math3d.Vec3{}, 0.2, ColorYellow)
	if c := fb.GetPixel(10, 10); c != ColorYellow {
		t.Errorf("center pixel = %v, want the marker", c)
	}
}
