package render

import (
	"errors"
	"image/color"
	"testing"

	"github.com/taigrr/voxlab/pkg/math3d"
)

func newLineProgram(t *testing.T, dev *SoftDevice) Handle {
	t.Helper()
	src := DefaultShaders()
	prog, err := buildProgram(dev, src.LineVertex, src.LineFragment)
	if err != nil {
		t.Fatalf("build line program: %v", err)
	}
	return prog
}

func identityUniforms() Uniforms {
	return Uniforms{ViewProj: math3d.Identity(), Model: math3d.Identity(), InvModel: math3d.Identity()}
}

// solidTriangle returns a mesh with one triangle in NDC, counter-clockwise
// unless cw is set.
func solidTriangle(c math3d.Vec3, z float32, cw bool) MeshDesc {
	pos := []float32{
		-0.5, -0.5, z,
		0.5, -0.5, z,
		0, 0.5, z,
	}
	if cw {
		pos[0], pos[3] = pos[3], pos[0]
	}
	col := make([]float32, 0, 9)
	for range 3 {
		col = append(col, float32(c.X), float32(c.Y), float32(c.Z))
	}
	return MeshDesc{Positions: pos, Colors: col, Primitive: Triangles}
}

func countNot(fb *Framebuffer, bg color.RGBA) int {
	n := 0
	for _, p := range fb.Pixels {
		if p != bg {
			n++
		}
	}
	return n
}

func TestSoftDeviceCulling(t *testing.T) {
	tests := []struct {
		name  string
		cw    bool
		cull  CullMode
		drawn bool
	}{
		{"ccw no cull", false, CullNone, true},
		{"ccw cull back", false, CullBack, true},
		{"ccw cull front", false, CullFront, false},
		{"cw cull back", true, CullBack, false},
		{"cw cull front", true, CullFront, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dev := NewSoftDevice(32, 32)
			dev.Clear(ColorBlack)
			prog := newLineProgram(t, dev)
			mesh, err := dev.CreateMesh(solidTriangle(math3d.V3(1, 0, 0), 0, tt.cw))
			if err != nil {
				t.Fatal(err)
			}
			err = dev.Draw(DrawCall{Program: prog, Mesh: mesh, Uniforms: identityUniforms(), State: DrawState{Cull: tt.cull}})
			if err != nil {
				t.Fatal(err)
			}
			center := dev.Framebuffer().GetPixel(16, 16)
			if got := center == ColorRed; got != tt.drawn {
				t.Errorf("center pixel = %v, drawn = %v, want %v", center, got, tt.drawn)
			}
		})
	}
}

func TestSoftDeviceDepthTest(t *testing.T) {
	for _, order := range []string{"near first", "far first"} {
		t.Run(order, func(t *testing.T) {
			dev := NewSoftDevice(32, 32)
			dev.Clear(ColorBlack)
			prog := newLineProgram(t, dev)
			near, _ := dev.CreateMesh(solidTriangle(math3d.V3(0, 1, 0), -0.5, false))
			far, _ := dev.CreateMesh(solidTriangle(math3d.V3(0, 0, 1), 0.5, false))
			meshes := []Handle{near, far}
			if order == "far first" {
				meshes = []Handle{far, near}
			}
			for _, m := range meshes {
				call := DrawCall{Program: prog, Mesh: m, Uniforms: identityUniforms(), State: DrawState{DepthTest: true}}
				if err := dev.Draw(call); err != nil {
					t.Fatal(err)
				}
			}
			if got := dev.Framebuffer().GetPixel(16, 16); got != ColorGreen {
				t.Errorf("center pixel = %v, want the nearer green triangle", got)
			}
		})
	}
}

func TestSoftDeviceNearPlaneClipping(t *testing.T) {
	cam := NewCamera()
	u := identityUniforms()
	u.ViewProj = cam.ViewProjectionMatrix()

	tests := []struct {
		name  string
		pos   []float32
		drawn bool
	}{
		{"straddling", []float32{-1, -0.2, 0, 1, -0.2, 0, 0, -0.2, 5}, true},
		{"behind", []float32{-1, -0.2, 3, 1, -0.2, 3, 0, -0.2, 5}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dev := NewSoftDevice(48, 48)
			dev.Clear(ColorBlack)
			prog := newLineProgram(t, dev)
			mesh, err := dev.CreateMesh(MeshDesc{
				Positions: tt.pos,
				Colors:    []float32{1, 1, 1, 1, 1, 1, 1, 1, 1},
				Primitive: Triangles,
			})
			if err != nil {
				t.Fatal(err)
			}
			if err := dev.Draw(DrawCall{Program: prog, Mesh: mesh, Uniforms: u}); err != nil {
				t.Fatal(err)
			}
			n := countNot(dev.Framebuffer(), ColorBlack)
			if (n > 0) != tt.drawn {
				t.Errorf("%d pixels drawn, want drawn = %v", n, tt.drawn)
			}
		})
	}
}

func TestSoftDeviceLines(t *testing.T) {
	dev := NewSoftDevice(20, 20)
	dev.Clear(ColorBlack)
	prog := newLineProgram(t, dev)
	mesh, err := dev.CreateMesh(MeshDesc{
		Positions: []float32{-0.95, 0.05, 0, 0.95, 0.05, 0},
		Colors:    []float32{0, 0, 1, 0, 0, 1},
		Primitive: Lines,
	})
	if err != nil {
		t.Fatal(err)
	}
	if err := dev.Draw(DrawCall{Program: prog, Mesh: mesh, Uniforms: identityUniforms()}); err != nil {
		t.Fatal(err)
	}
	fb := dev.Framebuffer()
	for x := range 20 {
		if got := fb.GetPixel(x, 9); got != ColorBlue {
			t.Errorf("pixel (%d, 9) = %v, want blue", x, got)
		}
	}
	if n := countNot(fb, ColorBlack); n != 20 {
		t.Errorf("%d pixels drawn, want 20", n)
	}
}

func TestSoftDeviceBlend(t *testing.T) {
	dev := NewSoftDevice(8, 8)
	dev.Clear(ColorBlack)
	dev.raster.fragment(2, 2, 0, varyings{}, DrawState{Blend: true}, func(varyings) (fragColor, bool) {
		return fragColor{R: 1, G: 1, B: 1, A: 0.5}, true
	})
	got := dev.Framebuffer().GetPixel(2, 2)
	if got.R < 127 || got.R > 128 {
		t.Errorf("blended pixel = %v, want half white", got)
	}
}

func TestSoftDeviceResources(t *testing.T) {
	dev := NewSoftDevice(4, 4)
	prog := newLineProgram(t, dev)
	if got := dev.Live(); got != 1 {
		t.Fatalf("Live() = %d after building a program, want 1", got)
	}

	mesh, err := dev.CreateMesh(solidTriangle(math3d.V3(1, 1, 1), 0, false))
	if err != nil {
		t.Fatal(err)
	}
	tex, err := dev.CreateTexture3D(Texture3DDesc{Width: 2, Height: 2, Depth: 2}, make([]float32, 8))
	if err != nil {
		t.Fatal(err)
	}
	if got := dev.Live(); got != 3 {
		t.Errorf("Live() = %d, want 3", got)
	}

	dev.DeleteTexture(tex)
	dev.DeleteMesh(mesh)
	dev.DeleteProgram(prog)
	if got := dev.Live(); got != 0 {
		t.Errorf("Live() = %d after deleting everything, want 0", got)
	}
	if err := dev.Draw(DrawCall{Program: prog, Mesh: mesh}); err == nil {
		t.Error("Draw with a deleted program succeeded")
	}
}

func TestSoftDeviceRejectsBadMeshes(t *testing.T) {
	dev := NewSoftDevice(4, 4)
	tests := []struct {
		name string
		desc MeshDesc
	}{
		{"ragged positions", MeshDesc{Positions: []float32{0, 0}}},
		{"color count", MeshDesc{Positions: []float32{0, 0, 0, 1, 1, 1, 2, 2, 2}, Colors: []float32{1, 1, 1}}},
		{"partial triangle", MeshDesc{Positions: []float32{0, 0, 0, 1, 1, 1}}},
		{"partial line", MeshDesc{Positions: []float32{0, 0, 0}, Primitive: Lines}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := dev.CreateMesh(tt.desc); err == nil {
				t.Error("CreateMesh succeeded")
			}
		})
	}
	if _, err := dev.CreateTexture3D(Texture3DDesc{Width: 2, Height: 2, Depth: 2}, make([]float32, 7)); err == nil {
		t.Error("CreateTexture3D accepted a short buffer")
	}
}

func TestSoftDeviceShaderErrors(t *testing.T) {
	dev := NewSoftDevice(4, 4)
	_, err := dev.CompileShader(StageFragment, "void main() {}")
	var se *ShaderError
	if !errors.As(err, &se) || se.Kind != CompileFailure || se.Stage != StageFragment {
		t.Fatalf("CompileShader error = %v, want fragment compile failure", err)
	}
	if !errors.Is(err, ErrShaderCompile) {
		t.Errorf("errors.Is(%v, ErrShaderCompile) = false", err)
	}

	src := DefaultShaders()
	vs, err := dev.CompileShader(StageVertex, src.LineVertex)
	if err != nil {
		t.Fatal(err)
	}
	fs, err := dev.CompileShader(StageFragment, src.VolumeFragment)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := dev.LinkProgram(vs, fs); !errors.Is(err, ErrProgramLink) {
		t.Errorf("linking line vertex with volume fragment: err = %v, want ErrProgramLink", err)
	}
}

func TestSoftDeviceViewport(t *testing.T) {
	dev := NewSoftDevice(4, 4)
	dev.Viewport(10, 6)
	fb := dev.Framebuffer()
	if fb.Width != 10 || fb.Height != 6 || len(fb.Pixels) != 60 {
		t.Errorf("framebuffer %dx%d with %d pixels after Viewport(10, 6)", fb.Width, fb.Height, len(fb.Pixels))
	}
	if len(dev.raster.zbuffer) != 60 {
		t.Errorf("depth buffer holds %d values, want 60", len(dev.raster.zbuffer))
	}
}
