package render

import (
	"errors"
	"fmt"

	"github.com/taigrr/voxlab/pkg/logging"
	"github.com/taigrr/voxlab/pkg/math3d"
	"github.com/taigrr/voxlab/pkg/models"
	"github.com/taigrr/voxlab/pkg/volume"
)

// State is the lifecycle stage of an Engine.
type State int

const (
	Uninitialized State = iota
	Ready
	VolumeBound
)

func (s State) String() string {
	switch s {
	case Uninitialized:
		return "uninitialized"
	case Ready:
		return "ready"
	case VolumeBound:
		return "volume bound"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// RenderStats counts draws and frustum rejections since the last reset.
type RenderStats struct {
	Drawn  int
	Culled int
}

// Engine owns the device resources for drawing a volume: the ray-march and
// line programs, the proxy cube and axis meshes, and the volume and
// occupancy textures. An Engine is confined to the render loop.
type Engine struct {
	// Shaders overrides the built-in sources when set.
	Shaders ShaderSources

	// Filter is used for the volume texture; the occupancy texture is
	// always fetched per texel.
	Filter FilterMode

	Stats RenderStats

	dev   Device
	state State

	volumeProg Handle
	lineProg   Handle
	cube       Handle
	axes       Handle
	volumeTex  Handle
	occTex     Handle
	dims       volume.Dims
}

// NewEngine returns an uninitialized engine with trilinear filtering.
func NewEngine() *Engine {
	return &Engine{Filter: FilterTrilinear}
}

// State returns the lifecycle stage.
func (e *Engine) State() State {
	return e.state
}

// Dims returns the dimensions of the bound volume.
func (e *Engine) Dims() volume.Dims {
	return e.dims
}

// Initialize compiles and links both programs and creates the cube and
// axis meshes. On failure everything created so far is released and the
// engine stays Uninitialized; shader problems come back as *ShaderError.
func (e *Engine) Initialize(dev Device) (err error) {
	if e.state != Uninitialized {
		return fmt.Errorf("initialize: engine is %s", e.state)
	}
	e.dev = dev
	defer func() {
		if err != nil {
			e.release()
			e.dev = nil
		}
	}()

	src := e.Shaders
	if src.IsZero() {
		src = DefaultShaders()
	}
	if e.volumeProg, err = buildProgram(dev, src.VolumeVertex, src.VolumeFragment); err != nil {
		return fmt.Errorf("volume program: %w", err)
	}
	if e.lineProg, err = buildProgram(dev, src.LineVertex, src.LineFragment); err != nil {
		return fmt.Errorf("line program: %w", err)
	}
	cube := models.UnitCube()
	if e.cube, err = dev.CreateMesh(MeshDesc{Positions: cube.TrianglePositions(), Primitive: Triangles}); err != nil {
		return fmt.Errorf("cube mesh: %w", err)
	}
	if e.axes, err = dev.CreateMesh(axesMesh()); err != nil {
		return fmt.Errorf("axes mesh: %w", err)
	}

	e.state = Ready
	logging.Debugf("render engine ready")
	return nil
}

// buildProgram compiles both stages and links them. The shader objects
// are deleted once the program exists or on failure.
func buildProgram(dev Device, vertex, fragment string) (Handle, error) {
	vs, err := dev.CompileShader(StageVertex, vertex)
	if err != nil {
		return 0, err
	}
	defer dev.DeleteShader(vs)
	fs, err := dev.CompileShader(StageFragment, fragment)
	if err != nil {
		return 0, err
	}
	defer dev.DeleteShader(fs)
	return dev.LinkProgram(vs, fs)
}

// axesMesh returns three lines from the volume's (0,0,0) corner along +X
// (red), +Y (green) and +Z (blue).
func axesMesh() MeshDesc {
	const o, l = -0.5, -0.5 + AxisLength
	return MeshDesc{
		Positions: []float32{
			o, o, o, l, o, o,
			o, o, o, o, l, o,
			o, o, o, o, o, l,
		},
		Colors: []float32{
			1, 0, 0, 1, 0, 0,
			0, 1, 0, 0, 1, 0,
			0, 0, 1, 0, 0, 1,
		},
		Primitive: Lines,
	}
}

// UploadVolume makes f the rendered volume. It builds the skip grid on the
// CPU and replaces both textures; the previous ones are deleted.
func (e *Engine) UploadVolume(f *volume.Field) error {
	if e.state == Uninitialized {
		return fmt.Errorf("upload volume: %w", ErrNotInitialized)
	}
	if f == nil || !f.Dims.Valid() || len(f.Data) != f.Dims.Len() {
		return fmt.Errorf("upload volume: %w", volume.ErrDimsMismatch)
	}

	d := f.Dims
	volTex, err := e.dev.CreateTexture3D(Texture3DDesc{Width: d.X, Height: d.Y, Depth: d.Z, Filter: e.Filter}, f.Data)
	if err != nil {
		return fmt.Errorf("upload volume %s: %w", d, err)
	}
	grid := volume.BuildSkipGrid(f)
	gd := volume.GridDims()
	occTex, err := e.dev.CreateTexture3D(Texture3DDesc{Width: gd.X, Height: gd.Y, Depth: gd.Z, Filter: FilterNearest}, grid.Cells)
	if err != nil {
		e.dev.DeleteTexture(volTex)
		return fmt.Errorf("upload occupancy: %w", err)
	}

	e.deleteTextures()
	e.volumeTex, e.occTex, e.dims = volTex, occTex, d
	e.state = VolumeBound
	logging.Debugf("uploaded volume %s, %d of %d cells occupied", d, grid.Count(), gd.Len())
	return nil
}

// Render draws the volume. It does nothing unless a volume is bound and
// p.HasVolume is set, or when the rotated volume lies outside the view
// frustum.
func (e *Engine) Render(p RenderParams) error {
	if e.state != VolumeBound || !p.HasVolume {
		return nil
	}
	if !NewFrustumFromMatrix(p.ViewProj).IntersectAABB(VolumeBounds.Transform(p.Rotation)) {
		e.Stats.Culled++
		return nil
	}
	call := DrawCall{
		Program:  e.volumeProg,
		Mesh:     e.cube,
		Textures: [MaxTextureUnits]Handle{UnitVolume: e.volumeTex, UnitOccupancy: e.occTex},
		Uniforms: Uniforms{
			ViewProj:  p.ViewProj,
			Model:     p.Rotation,
			InvModel:  p.Rotation.Inverse(),
			CameraPos: p.CameraPosition,
			StepSize:  p.StepSize,
			ValueMin:  float64(p.ValueRange.Min),
			ValueMax:  float64(p.ValueRange.Max),
			Opacity:   p.Opacity,
			Dims:      e.dims,
		},
		// Back faces only, so the volume still draws with the camera inside it.
		State: DrawState{Cull: CullFront, Blend: true},
	}
	if err := e.dev.Draw(call); err != nil {
		return fmt.Errorf("render volume: %w", err)
	}
	e.Stats.Drawn++
	return nil
}

// RenderAxes draws the axis gizmo rotated with the volume, on top of
// everything.
func (e *Engine) RenderAxes(p RenderParams) error {
	if e.state == Uninitialized {
		return nil
	}
	call := DrawCall{
		Program:  e.lineProg,
		Mesh:     e.axes,
		Uniforms: Uniforms{ViewProj: p.ViewProj, Model: p.Rotation, InvModel: math3d.Identity()},
	}
	if err := e.dev.Draw(call); err != nil {
		return fmt.Errorf("render axes: %w", err)
	}
	return nil
}

// DrawFrame is the render loop's per-frame entry: it applies a pending
// volume from x, then draws the volume and, when enabled, the axes.
func (e *Engine) DrawFrame(x *Exchange) error {
	p, pending := x.Frame()
	var errs []error
	if pending != nil {
		if err := e.UploadVolume(pending); err != nil {
			errs = append(errs, err)
		}
	}
	if err := e.Render(p); err != nil {
		errs = append(errs, err)
	}
	if p.ShowAxes {
		if err := e.RenderAxes(p); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Destroy releases every device resource. It is safe to call in any state
// and more than once.
func (e *Engine) Destroy() {
	if e.dev == nil {
		return
	}
	e.release()
	e.dev = nil
	e.state = Uninitialized
	e.dims = volume.Dims{}
}

func (e *Engine) release() {
	e.deleteTextures()
	for _, h := range []*Handle{&e.cube, &e.axes} {
		if *h != 0 {
			e.dev.DeleteMesh(*h)
			*h = 0
		}
	}
	for _, h := range []*Handle{&e.volumeProg, &e.lineProg} {
		if *h != 0 {
			e.dev.DeleteProgram(*h)
			*h = 0
		}
	}
}

func (e *Engine) deleteTextures() {
	for _, h := range []*Handle{&e.volumeTex, &e.occTex} {
		if *h != 0 {
			e.dev.DeleteTexture(*h)
			*h = 0
		}
	}
}
