package render

import (
	"github.com/taigrr/voxlab/pkg/math3d"
)

// varyings are the values interpolated between the vertex and fragment
// stages of the soft device.
type varyings struct {
	World math3d.Vec3
	Color math3d.Vec3
}

func (v varyings) scale(s float64) varyings {
	return varyings{World: v.World.Scale(s), Color: v.Color.Scale(s)}
}

func (v varyings) add(o varyings) varyings {
	return varyings{World: v.World.Add(o.World), Color: v.Color.Add(o.Color)}
}

func (v varyings) lerp(o varyings, t float64) varyings {
	return varyings{World: v.World.Lerp(o.World, t), Color: v.Color.Lerp(o.Color, t)}
}

// fragColor is a straight-alpha color with components in [0,1].
type fragColor struct {
	R, G, B, A float64
}

type (
	vertexKernel   func(pos, color math3d.Vec3, u *Uniforms) (math3d.Vec4, varyings)
	fragmentKernel func(in varyings, u *Uniforms, tex [MaxTextureUnits]*Texture3D) (fragColor, bool)
)

// CPU equivalents of the GLSL main functions, selected by their
// "// @kernel" names.
var (
	vertexKernels = map[string]vertexKernel{
		"transform": transformKernel,
	}
	fragmentKernels = map[string]fragmentKernel{
		"raymarch": raymarchKernel,
		"lines":    lineKernel,
	}
)

func transformKernel(pos, color math3d.Vec3, u *Uniforms) (math3d.Vec4, varyings) {
	world := u.Model.MulVec3(pos)
	clip := u.ViewProj.MulVec4(math3d.V4FromV3(world, 1))
	return clip, varyings{World: world, Color: color}
}

func lineKernel(in varyings, _ *Uniforms, _ [MaxTextureUnits]*Texture3D) (fragColor, bool) {
	return fragColor{R: in.Color.X, G: in.Color.Y, B: in.Color.Z, A: 1}, true
}

// raymarchKernel casts a ray from the camera through the fragment's world
// position, marches it through the volume front to back and returns the
// composited grayscale color. Fragments whose ray misses the volume or
// gathers no opacity are discarded.
func raymarchKernel(in varyings, u *Uniforms, tex [MaxTextureUnits]*Texture3D) (fragColor, bool) {
	vol, occ := tex[UnitVolume], tex[UnitOccupancy]
	if vol == nil {
		return fragColor{}, false
	}
	dir := in.World.Sub(u.CameraPos).Normalize()
	ray := math3d.VolumeRay(math3d.Ray{Origin: u.CameraPos, Dir: dir}, u.InvModel)
	tNear, tFar, ok := ray.IntersectUnitCube()
	if !ok {
		return fragColor{}, false
	}

	m := marcher{dims: u.Dims, step: u.StepSize}
	if occ != nil {
		m.occupied = func(i, j, k int) bool { return occ.Fetch(i, j, k) >= 0.5 }
	}
	span := u.ValueMax - u.ValueMin
	var color, alpha float64
	m.walk(ray, tNear, tFar, func(p math3d.Vec3) bool {
		var n float64
		if span > 0 {
			n = clamp01((float64(vol.Sample(p)) - u.ValueMin) / span)
		}
		a := clamp01(n * DensityScale * u.StepSize)
		color += (1 - alpha) * a * n
		alpha += (1 - alpha) * a
		return alpha < SaturationAlpha
	})
	if alpha <= 0 {
		return fragColor{}, false
	}
	g := color / alpha
	return fragColor{R: g, G: g, B: g, A: alpha * u.Opacity}, true
}
