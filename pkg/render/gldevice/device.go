//go:build gl

// Package gldevice implements render.Device on OpenGL 4.1 core. Every call
// must come from the goroutine that owns the current GL context.
package gldevice

import (
	"fmt"
	"image/color"
	"strings"

	"github.com/go-gl/gl/v4.1-core/gl"

	"github.com/taigrr/voxlab/pkg/logging"
	"github.com/taigrr/voxlab/pkg/math3d"
	"github.com/taigrr/voxlab/pkg/render"
)

type program struct {
	id  uint32
	loc map[string]int32
}

type mesh struct {
	vao, vbo uint32
	count    int32
	mode     uint32
}

// Device is a render.Device backed by the current OpenGL context.
type Device struct {
	next render.Handle

	shaders  map[render.Handle]uint32
	programs map[render.Handle]*program
	meshes   map[render.Handle]mesh
	textures map[render.Handle]uint32
}

// New loads the GL function pointers for the current context.
func New() (*Device, error) {
	if err := gl.Init(); err != nil {
		return nil, fmt.Errorf("init OpenGL: %w", err)
	}
	logging.Infof("OpenGL %s, GLSL %s",
		gl.GoStr(gl.GetString(gl.VERSION)),
		gl.GoStr(gl.GetString(gl.SHADING_LANGUAGE_VERSION)))
	return &Device{
		shaders:  make(map[render.Handle]uint32),
		programs: make(map[render.Handle]*program),
		meshes:   make(map[render.Handle]mesh),
		textures: make(map[render.Handle]uint32),
	}, nil
}

func (d *Device) handle() render.Handle {
	d.next++
	return d.next
}

// Clear clears the color and depth buffers.
func (d *Device) Clear(c color.RGBA) {
	gl.ClearColor(float32(c.R)/255, float32(c.G)/255, float32(c.B)/255, float32(c.A)/255)
	gl.Clear(gl.COLOR_BUFFER_BIT | gl.DEPTH_BUFFER_BIT)
}

// Viewport implements render.Device.
func (d *Device) Viewport(width, height int) {
	gl.Viewport(0, 0, int32(width), int32(height))
}

// CompileShader implements render.Device.
func (d *Device) CompileShader(stage render.ShaderStage, source string) (render.Handle, error) {
	kind := uint32(gl.VERTEX_SHADER)
	if stage == render.StageFragment {
		kind = gl.FRAGMENT_SHADER
	}
	shader := gl.CreateShader(kind)
	csources, free := gl.Strs(source + "\x00")
	gl.ShaderSource(shader, 1, csources, nil)
	free()
	gl.CompileShader(shader)

	var status int32
	gl.GetShaderiv(shader, gl.COMPILE_STATUS, &status)
	if status == gl.FALSE {
		var logLength int32
		gl.GetShaderiv(shader, gl.INFO_LOG_LENGTH, &logLength)
		log := strings.Repeat("\x00", int(logLength+1))
		gl.GetShaderInfoLog(shader, logLength, nil, gl.Str(log))
		gl.DeleteShader(shader)
		return 0, &render.ShaderError{Kind: render.CompileFailure, Stage: stage, Log: strings.TrimRight(log, "\x00")}
	}
	h := d.handle()
	d.shaders[h] = shader
	return h, nil
}

// DeleteShader implements render.Device.
func (d *Device) DeleteShader(h render.Handle) {
	if id, ok := d.shaders[h]; ok {
		gl.DeleteShader(id)
		delete(d.shaders, h)
	}
}

// LinkProgram implements render.Device.
func (d *Device) LinkProgram(vertex, fragment render.Handle) (render.Handle, error) {
	vs, okV := d.shaders[vertex]
	fs, okF := d.shaders[fragment]
	if !okV || !okF {
		return 0, &render.ShaderError{Kind: render.LinkFailure, Log: "unknown shader handle"}
	}
	id := gl.CreateProgram()
	gl.AttachShader(id, vs)
	gl.AttachShader(id, fs)
	gl.LinkProgram(id)
	gl.DetachShader(id, vs)
	gl.DetachShader(id, fs)

	var status int32
	gl.GetProgramiv(id, gl.LINK_STATUS, &status)
	if status == gl.FALSE {
		var logLength int32
		gl.GetProgramiv(id, gl.INFO_LOG_LENGTH, &logLength)
		log := strings.Repeat("\x00", int(logLength+1))
		gl.GetProgramInfoLog(id, logLength, nil, gl.Str(log))
		gl.DeleteProgram(id)
		return 0, &render.ShaderError{Kind: render.LinkFailure, Log: strings.TrimRight(log, "\x00")}
	}
	h := d.handle()
	d.programs[h] = &program{id: id, loc: make(map[string]int32)}
	return h, nil
}

// DeleteProgram implements render.Device.
func (d *Device) DeleteProgram(h render.Handle) {
	if p, ok := d.programs[h]; ok {
		gl.DeleteProgram(p.id)
		delete(d.programs, h)
	}
}

// CreateMesh implements render.Device. Positions and colors are
// interleaved into one buffer.
func (d *Device) CreateMesh(desc render.MeshDesc) (render.Handle, error) {
	n := desc.VertexCount()
	if n == 0 || len(desc.Positions)%3 != 0 {
		return 0, fmt.Errorf("create mesh: %d position floats", len(desc.Positions))
	}
	hasColor := len(desc.Colors) != 0
	if hasColor && len(desc.Colors) != len(desc.Positions) {
		return 0, fmt.Errorf("create mesh: %d color floats for %d vertices", len(desc.Colors), n)
	}
	stride := 3
	if hasColor {
		stride = 6
	}
	buf := make([]float32, 0, n*stride)
	for i := range n {
		buf = append(buf, desc.Positions[3*i:3*i+3]...)
		if hasColor {
			buf = append(buf, desc.Colors[3*i:3*i+3]...)
		}
	}

	var m mesh
	gl.GenVertexArrays(1, &m.vao)
	gl.BindVertexArray(m.vao)
	gl.GenBuffers(1, &m.vbo)
	gl.BindBuffer(gl.ARRAY_BUFFER, m.vbo)
	gl.BufferData(gl.ARRAY_BUFFER, len(buf)*4, gl.Ptr(buf), gl.STATIC_DRAW)
	gl.VertexAttribPointerWithOffset(render.AttribPosition, 3, gl.FLOAT, false, int32(stride*4), 0)
	gl.EnableVertexAttribArray(render.AttribPosition)
	if hasColor {
		gl.VertexAttribPointerWithOffset(render.AttribColor, 3, gl.FLOAT, false, int32(stride*4), 3*4)
		gl.EnableVertexAttribArray(render.AttribColor)
	}
	gl.BindVertexArray(0)

	m.count = int32(n)
	m.mode = gl.TRIANGLES
	if desc.Primitive == render.Lines {
		m.mode = gl.LINES
	}
	h := d.handle()
	d.meshes[h] = m
	return h, nil
}

// DeleteMesh implements render.Device.
func (d *Device) DeleteMesh(h render.Handle) {
	if m, ok := d.meshes[h]; ok {
		gl.DeleteBuffers(1, &m.vbo)
		gl.DeleteVertexArrays(1, &m.vao)
		delete(d.meshes, h)
	}
}

// CreateTexture3D implements render.Device. Texels are uploaded as R32F
// with x fastest, so width, height and depth map to X, Y and Z.
func (d *Device) CreateTexture3D(desc render.Texture3DDesc, data []float32) (render.Handle, error) {
	if len(data) == 0 || len(data) != desc.Width*desc.Height*desc.Depth {
		return 0, fmt.Errorf("create texture %dx%dx%d: have %d texels", desc.Width, desc.Height, desc.Depth, len(data))
	}
	filter := int32(gl.NEAREST)
	if desc.Filter == render.FilterTrilinear {
		filter = gl.LINEAR
	}

	var tex uint32
	gl.GenTextures(1, &tex)
	gl.BindTexture(gl.TEXTURE_3D, tex)
	gl.TexParameteri(gl.TEXTURE_3D, gl.TEXTURE_MIN_FILTER, filter)
	gl.TexParameteri(gl.TEXTURE_3D, gl.TEXTURE_MAG_FILTER, filter)
	gl.TexParameteri(gl.TEXTURE_3D, gl.TEXTURE_WRAP_S, gl.CLAMP_TO_EDGE)
	gl.TexParameteri(gl.TEXTURE_3D, gl.TEXTURE_WRAP_T, gl.CLAMP_TO_EDGE)
	gl.TexParameteri(gl.TEXTURE_3D, gl.TEXTURE_WRAP_R, gl.CLAMP_TO_EDGE)
	gl.PixelStorei(gl.UNPACK_ALIGNMENT, 1)
	gl.TexImage3D(gl.TEXTURE_3D, 0, gl.R32F,
		int32(desc.Width), int32(desc.Height), int32(desc.Depth),
		0, gl.RED, gl.FLOAT, gl.Ptr(data))
	gl.BindTexture(gl.TEXTURE_3D, 0)

	if e := gl.GetError(); e != gl.NO_ERROR {
		gl.DeleteTextures(1, &tex)
		return 0, fmt.Errorf("create texture %dx%dx%d: GL error 0x%x", desc.Width, desc.Height, desc.Depth, e)
	}
	h := d.handle()
	d.textures[h] = tex
	return h, nil
}

// DeleteTexture implements render.Device.
func (d *Device) DeleteTexture(h render.Handle) {
	if tex, ok := d.textures[h]; ok {
		gl.DeleteTextures(1, &tex)
		delete(d.textures, h)
	}
}

// location caches uniform lookups per program. Uniforms the linker
// optimized away come back as -1, which GL ignores on upload.
func (p *program) location(name string) int32 {
	if l, ok := p.loc[name]; ok {
		return l
	}
	l := gl.GetUniformLocation(p.id, gl.Str(name+"\x00"))
	p.loc[name] = l
	return l
}

// Draw implements render.Device.
func (d *Device) Draw(call render.DrawCall) error {
	p, ok := d.programs[call.Program]
	if !ok {
		return fmt.Errorf("draw: unknown program %d", call.Program)
	}
	m, ok := d.meshes[call.Mesh]
	if !ok {
		return fmt.Errorf("draw: unknown mesh %d", call.Mesh)
	}

	gl.UseProgram(p.id)
	u := call.Uniforms
	for name, mat := range map[string]math3d.Mat4{
		render.UniformViewProj: u.ViewProj,
		render.UniformModel:    u.Model,
		render.UniformInvModel: u.InvModel,
	} {
		f := mat.Float32()
		gl.UniformMatrix4fv(p.location(name), 1, false, &f[0])
	}
	gl.Uniform3f(p.location(render.UniformCameraPos), float32(u.CameraPos.X), float32(u.CameraPos.Y), float32(u.CameraPos.Z))
	gl.Uniform1f(p.location(render.UniformStepSize), float32(u.StepSize))
	gl.Uniform1f(p.location(render.UniformValueMin), float32(u.ValueMin))
	gl.Uniform1f(p.location(render.UniformValueMax), float32(u.ValueMax))
	gl.Uniform1f(p.location(render.UniformOpacity), float32(u.Opacity))
	gl.Uniform3i(p.location(render.UniformDims), int32(u.Dims.X), int32(u.Dims.Y), int32(u.Dims.Z))

	samplers := [render.MaxTextureUnits]string{
		render.UnitVolume:    render.SamplerVolume,
		render.UnitOccupancy: render.SamplerOccupancy,
	}
	for unit, h := range call.Textures {
		if h == 0 {
			continue
		}
		tex, ok := d.textures[h]
		if !ok {
			return fmt.Errorf("draw: unknown texture %d on unit %d", h, unit)
		}
		gl.ActiveTexture(gl.TEXTURE0 + uint32(unit))
		gl.BindTexture(gl.TEXTURE_3D, tex)
		gl.Uniform1i(p.location(samplers[unit]), int32(unit))
	}

	switch call.State.Cull {
	case render.CullFront:
		gl.Enable(gl.CULL_FACE)
		gl.CullFace(gl.FRONT)
	case render.CullBack:
		gl.Enable(gl.CULL_FACE)
		gl.CullFace(gl.BACK)
	default:
		gl.Disable(gl.CULL_FACE)
	}
	if call.State.Blend {
		gl.Enable(gl.BLEND)
		gl.BlendFunc(gl.SRC_ALPHA, gl.ONE_MINUS_SRC_ALPHA)
	} else {
		gl.Disable(gl.BLEND)
	}
	if call.State.DepthTest {
		gl.Enable(gl.DEPTH_TEST)
	} else {
		gl.Disable(gl.DEPTH_TEST)
	}

	gl.BindVertexArray(m.vao)
	gl.DrawArrays(m.mode, 0, m.count)
	gl.BindVertexArray(0)

	if e := gl.GetError(); e != gl.NO_ERROR {
		return fmt.Errorf("draw: GL error 0x%x", e)
	}
	return nil
}

var _ render.Device = (*Device)(nil)
