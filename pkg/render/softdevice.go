package render

import (
	"fmt"
	"image/color"
	"slices"

	"github.com/taigrr/voxlab/pkg/math3d"
)

// SoftDevice is a Device that runs on the CPU and draws into a
// Framebuffer. Shaders are checked like a driver front end would check
// them, and each program runs the Go kernels its sources name.
type SoftDevice struct {
	raster rasterizer
	next   Handle

	shaders  map[Handle]*glslShader
	programs map[Handle]softProgram
	meshes   map[Handle]MeshDesc
	textures map[Handle]*Texture3D
}

type softProgram struct {
	vertex   vertexKernel
	fragment fragmentKernel
}

// NewSoftDevice returns a device with a width x height framebuffer.
func NewSoftDevice(width, height int) *SoftDevice {
	d := &SoftDevice{
		raster:   rasterizer{fb: NewFramebuffer(width, height)},
		shaders:  make(map[Handle]*glslShader),
		programs: make(map[Handle]softProgram),
		meshes:   make(map[Handle]MeshDesc),
		textures: make(map[Handle]*Texture3D),
	}
	d.raster.resize()
	d.raster.clearDepth()
	return d
}

// Framebuffer returns the color target.
func (d *SoftDevice) Framebuffer() *Framebuffer {
	return d.raster.fb
}

// Viewport resizes the color and depth targets.
func (d *SoftDevice) Viewport(width, height int) {
	fb := d.raster.fb
	if fb.Width == width && fb.Height == height {
		return
	}
	fb.Resize(width, height)
	d.raster.resize()
	d.raster.clearDepth()
}

// Clear fills the color target with c and resets depth.
func (d *SoftDevice) Clear(c color.RGBA) {
	d.raster.fb.Clear(c)
	d.raster.clearDepth()
}

// Live returns the number of resources not yet deleted.
func (d *SoftDevice) Live() int {
	return len(d.shaders) + len(d.programs) + len(d.meshes) + len(d.textures)
}

func (d *SoftDevice) handle() Handle {
	d.next++
	return d.next
}

// CompileShader implements Device.
func (d *SoftDevice) CompileShader(stage ShaderStage, source string) (Handle, error) {
	sh, log := parseGLSL(stage, source)
	if log != "" {
		return 0, &ShaderError{Kind: CompileFailure, Stage: stage, Log: log}
	}
	h := d.handle()
	d.shaders[h] = sh
	return h, nil
}

// DeleteShader implements Device.
func (d *SoftDevice) DeleteShader(h Handle) {
	delete(d.shaders, h)
}

// LinkProgram implements Device.
func (d *SoftDevice) LinkProgram(vertex, fragment Handle) (Handle, error) {
	vs, fs := d.shaders[vertex], d.shaders[fragment]
	if vs == nil || fs == nil {
		return 0, &ShaderError{Kind: LinkFailure, Log: "unknown shader handle"}
	}
	if log := linkGLSL(vs, fs); log != "" {
		return 0, &ShaderError{Kind: LinkFailure, Log: log}
	}
	h := d.handle()
	d.programs[h] = softProgram{
		vertex:   vertexKernels[vs.kernel],
		fragment: fragmentKernels[fs.kernel],
	}
	return h, nil
}

// DeleteProgram implements Device.
func (d *SoftDevice) DeleteProgram(h Handle) {
	delete(d.programs, h)
}

// CreateMesh implements Device.
func (d *SoftDevice) CreateMesh(desc MeshDesc) (Handle, error) {
	if len(desc.Positions)%3 != 0 {
		return 0, fmt.Errorf("create mesh: %d position floats is not a multiple of 3", len(desc.Positions))
	}
	if len(desc.Colors) != 0 && len(desc.Colors) != len(desc.Positions) {
		return 0, fmt.Errorf("create mesh: %d color floats for %d vertices", len(desc.Colors), desc.VertexCount())
	}
	per := 3
	if desc.Primitive == Lines {
		per = 2
	}
	if desc.VertexCount()%per != 0 {
		return 0, fmt.Errorf("create mesh: %d vertices is not a whole number of primitives", desc.VertexCount())
	}
	desc.Positions = slices.Clone(desc.Positions)
	desc.Colors = slices.Clone(desc.Colors)
	h := d.handle()
	d.meshes[h] = desc
	return h, nil
}

// DeleteMesh implements Device.
func (d *SoftDevice) DeleteMesh(h Handle) {
	delete(d.meshes, h)
}

// CreateTexture3D implements Device. The data is copied.
func (d *SoftDevice) CreateTexture3D(desc Texture3DDesc, data []float32) (Handle, error) {
	tex, err := NewTexture3D(desc.Width, desc.Height, desc.Depth, slices.Clone(data), desc.Filter)
	if err != nil {
		return 0, fmt.Errorf("create %w", err)
	}
	h := d.handle()
	d.textures[h] = tex
	return h, nil
}

// DeleteTexture implements Device.
func (d *SoftDevice) DeleteTexture(h Handle) {
	delete(d.textures, h)
}

// Draw implements Device.
func (d *SoftDevice) Draw(call DrawCall) error {
	prog, ok := d.programs[call.Program]
	if !ok {
		return fmt.Errorf("draw: unknown program %d", call.Program)
	}
	mesh, ok := d.meshes[call.Mesh]
	if !ok {
		return fmt.Errorf("draw: unknown mesh %d", call.Mesh)
	}
	var tex [MaxTextureUnits]*Texture3D
	for unit, h := range call.Textures {
		if h == 0 {
			continue
		}
		if tex[unit], ok = d.textures[h]; !ok {
			return fmt.Errorf("draw: unknown texture %d on unit %d", h, unit)
		}
	}

	u := &call.Uniforms
	shade := func(in varyings) (fragColor, bool) {
		return prog.fragment(in, u, tex)
	}
	vertex := func(i int) clipVertex {
		p := mesh.Positions[3*i : 3*i+3]
		pos := math3d.V3(float64(p[0]), float64(p[1]), float64(p[2]))
		var col math3d.Vec3
		if len(mesh.Colors) != 0 {
			c := mesh.Colors[3*i : 3*i+3]
			col = math3d.V3(float64(c[0]), float64(c[1]), float64(c[2]))
		}
		clip, vary := prog.vertex(pos, col, u)
		return clipVertex{Pos: clip, Vary: vary}
	}

	n := mesh.VertexCount()
	switch mesh.Primitive {
	case Lines:
		for i := 0; i+1 < n; i += 2 {
			d.raster.line(vertex(i), vertex(i+1), call.State, shade)
		}
	default:
		for i := 0; i+2 < n; i += 3 {
			d.raster.triangle([3]clipVertex{vertex(i), vertex(i + 1), vertex(i + 2)}, call.State, shade)
		}
	}
	return nil
}
