package render

import (
	"github.com/taigrr/voxlab/pkg/math3d"
	"github.com/taigrr/voxlab/pkg/volume"
)

// Ray-march constants shared by the GLSL sources and the CPU kernel.
const (
	// DensityScale converts a normalized sample into opacity per unit length.
	DensityScale = 40.0

	// SaturationAlpha ends a march once accumulated opacity reaches it.
	SaturationAlpha = 0.95

	// MaxSteps bounds the number of samples per ray.
	MaxSteps = 1024

	// AxisLength is the length of each axis gizmo line in world units.
	AxisLength = 1.2
)

// Quality bounds for StepSizeForQuality.
const (
	MaxStepSize = 0.02
	MinStepSize = 0.003
)

// StepSizeForQuality maps a quality in [0,1] linearly onto
// [MaxStepSize, MinStepSize]: higher quality samples more finely.
func StepSizeForQuality(q float64) float64 {
	q = min(max(q, 0), 1)
	return MaxStepSize - q*(MaxStepSize-MinStepSize)
}

// RenderParams is the per-frame snapshot handed from the control loop to
// the render loop. It is a plain value; copies never alias.
type RenderParams struct {
	CameraPosition math3d.Vec3
	ViewProj       math3d.Mat4
	Aspect         float64
	StepSize       float64
	ValueRange     volume.ValueRange
	Rotation       math3d.Mat4
	Opacity        float64
	ShowAxes       bool
	HasVolume      bool
}

// DefaultRenderParams returns the parameters of a fresh viewer: camera at
// (0,0,2), identity rotation, fully opaque, axes shown, no volume.
func DefaultRenderParams() RenderParams {
	cam := NewCamera()
	return RenderParams{
		CameraPosition: cam.Position(),
		ViewProj:       cam.ViewProjectionMatrix(),
		Aspect:         1,
		StepSize:       0.005,
		ValueRange:     volume.ValueRange{Min: 0, Max: 1},
		Rotation:       math3d.Identity(),
		Opacity:        1,
		ShowAxes:       true,
	}
}
