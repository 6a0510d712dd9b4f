package render

import (
	"github.com/taigrr/voxlab/pkg/math3d"
	"github.com/taigrr/voxlab/pkg/volume"
)

// Handle names a device resource. The zero Handle names nothing.
type Handle uint32

// ShaderStage selects the pipeline stage a shader is compiled for.
type ShaderStage int

const (
	StageVertex ShaderStage = iota
	StageFragment
)

func (s ShaderStage) String() string {
	if s == StageVertex {
		return "vertex"
	}
	return "fragment"
}

// Primitive is the topology of a mesh.
type Primitive int

const (
	Triangles Primitive = iota
	Lines
)

// CullMode selects which triangle faces are discarded. Counter-clockwise
// triangles in normalized device coordinates face the viewer.
type CullMode int

const (
	CullNone CullMode = iota
	CullFront
	CullBack
)

// MaxTextureUnits is the number of texture slots in a DrawCall.
const MaxTextureUnits = 2

// Texture units used by the volume program.
const (
	UnitVolume    = 0
	UnitOccupancy = 1
)

// MeshDesc describes vertex data. Positions holds xyz triples; Colors, when
// present, holds one rgb triple per vertex.
type MeshDesc struct {
	Positions []float32
	Colors    []float32
	Primitive Primitive
}

// VertexCount returns the number of vertices in the mesh.
func (m MeshDesc) VertexCount() int {
	return len(m.Positions) / 3
}

// Texture3DDesc describes a single-channel float 3-D texture.
type Texture3DDesc struct {
	Width, Height, Depth int
	Filter               FilterMode
}

// DrawState is the fixed-function state of a draw.
type DrawState struct {
	Cull      CullMode
	Blend     bool // src-alpha, one-minus-src-alpha
	DepthTest bool
}

// Uniforms are the values a program may read during a draw.
type Uniforms struct {
	ViewProj  math3d.Mat4
	Model     math3d.Mat4
	InvModel  math3d.Mat4
	CameraPos math3d.Vec3
	StepSize  float64
	ValueMin  float64
	ValueMax  float64
	Opacity   float64
	Dims      volume.Dims
}

// DrawCall binds a program, a mesh and textures for a single draw.
type DrawCall struct {
	Program  Handle
	Mesh     Handle
	Textures [MaxTextureUnits]Handle
	Uniforms Uniforms
	State    DrawState
}

// Device is the graphics API the Engine renders through. Compile and link
// failures are reported as *ShaderError. Devices are not safe for
// concurrent use; all calls come from the render loop.
type Device interface {
	CompileShader(stage ShaderStage, source string) (Handle, error)
	DeleteShader(h Handle)
	LinkProgram(vertex, fragment Handle) (Handle, error)
	DeleteProgram(h Handle)

	CreateMesh(desc MeshDesc) (Handle, error)
	DeleteMesh(h Handle)

	CreateTexture3D(desc Texture3DDesc, data []float32) (Handle, error)
	DeleteTexture(h Handle)

	Viewport(width, height int)
	Draw(call DrawCall) error
}
