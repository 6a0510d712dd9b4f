package render

import (
	"strconv"
	"strings"
	"text/template"

	"github.com/taigrr/voxlab/pkg/volume"
)

// Uniform and sampler names shared by the GLSL sources and every Device.
const (
	UniformViewProj  = "u_view_proj"
	UniformModel     = "u_model"
	UniformInvModel  = "u_inv_model"
	UniformCameraPos = "u_camera_pos"
	UniformStepSize  = "u_step_size"
	UniformValueMin  = "u_value_min"
	UniformValueMax  = "u_value_max"
	UniformOpacity   = "u_opacity"
	UniformDims      = "u_dims"
	SamplerVolume    = "u_volume"
	SamplerOccupancy = "u_occupancy"
)

// Vertex attribute locations.
const (
	AttribPosition = 0
	AttribColor    = 1
)

// ShaderSources holds the four GLSL sources the engine builds its two
// programs from.
type ShaderSources struct {
	VolumeVertex   string
	VolumeFragment string
	LineVertex     string
	LineFragment   string
}

// IsZero reports whether no sources are set.
func (s ShaderSources) IsZero() bool {
	return s == ShaderSources{}
}

const volumeVertexSrc = `#version 410 core
// @kernel transform
layout(location = {{.AttribPosition}}) in vec3 a_position;

uniform mat4 u_view_proj;
uniform mat4 u_model;

out vec3 v_world;

void main() {
    vec4 world = u_model * vec4(a_position, 1.0);
    v_world = world.xyz;
    gl_Position = u_view_proj * world;
}
`

const volumeFragmentSrc = `#version 410 core
// @kernel raymarch
in vec3 v_world;

uniform vec3 u_camera_pos;
uniform mat4 u_inv_model;
uniform float u_step_size;
uniform float u_value_min;
uniform float u_value_max;
uniform float u_opacity;
uniform ivec3 u_dims;
uniform sampler3D u_volume;
uniform sampler3D u_occupancy;

out vec4 frag_color;

// Occupancy cells are set where some voxel, or a voxel one step outside
// the cell, normalizes above {{glf .Threshold}}.
const int GRID = {{.GridSize}};
const int MAX_STEPS = {{.MaxSteps}};
const float DENSITY_SCALE = {{glf .DensityScale}};
const float SATURATION = {{glf .Saturation}};

bool slab(vec3 o, vec3 d, vec3 lo, vec3 hi, out float tNear, out float tFar) {
    vec3 inv = 1.0 / d;
    vec3 t0 = (lo - o) * inv;
    vec3 t1 = (hi - o) * inv;
    vec3 tmin = min(t0, t1);
    vec3 tmax = max(t0, t1);
    tNear = max(max(max(tmin.x, tmin.y), tmin.z), 0.0);
    tFar = min(min(tmax.x, tmax.y), tmax.z);
    return tNear <= tFar;
}

void main() {
    vec3 dir = normalize(v_world - u_camera_pos);
    vec3 origin = (u_inv_model * vec4(u_camera_pos, 1.0)).xyz + 0.5;
    vec3 ldir = (u_inv_model * vec4(dir, 0.0)).xyz;

    float tNear;
    float tFar;
    if (!slab(origin, ldir, vec3(0.0), vec3(1.0), tNear, tFar)) {
        discard;
    }

    vec3 dims = vec3(u_dims);
    float span = u_value_max - u_value_min;
    float color = 0.0;
    float alpha = 0.0;
    int i = 0;
    for (int n = 0; n < MAX_STEPS; n++) {
        if (i >= MAX_STEPS) {
            break;
        }
        float t = tNear + float(i) * u_step_size;
        if (t >= tFar) {
            break;
        }
        vec3 p = origin + ldir * t;
        ivec3 voxel = clamp(ivec3(floor(p * dims)), ivec3(0), u_dims - 1);
        ivec3 cell = min(voxel * GRID / u_dims, ivec3(GRID - 1));
        if (texelFetch(u_occupancy, cell, 0).r < 0.5) {
            vec3 lo = vec3((cell * u_dims + GRID - 1) / GRID) / dims;
            vec3 hi = vec3(((cell + 1) * u_dims + GRID - 1) / GRID) / dims;
            float enter;
            float exit;
            slab(origin, ldir, lo, hi, enter, exit);
            i = max(int(ceil((exit - tNear) / u_step_size - 1e-9)), i + 1);
            continue;
        }
        float v = texture(u_volume, p).r;
        float norm = span > 0.0 ? clamp((v - u_value_min) / span, 0.0, 1.0) : 0.0;
        float a = clamp(norm * DENSITY_SCALE * u_step_size, 0.0, 1.0);
        color += (1.0 - alpha) * a * norm;
        alpha += (1.0 - alpha) * a;
        if (alpha >= SATURATION) {
            break;
        }
        i++;
    }
    if (alpha <= 0.0) {
        discard;
    }
    frag_color = vec4(vec3(color / alpha), alpha * u_opacity);
}
`

const lineVertexSrc = `#version 410 core
// @kernel transform
layout(location = {{.AttribPosition}}) in vec3 a_position;
layout(location = {{.AttribColor}}) in vec3 a_color;

uniform mat4 u_view_proj;
uniform mat4 u_model;

out vec3 v_color;

void main() {
    v_color = a_color;
    gl_Position = u_view_proj * u_model * vec4(a_position, 1.0);
}
`

const lineFragmentSrc = `#version 410 core
// @kernel lines
in vec3 v_color;

out vec4 frag_color;

void main() {
    frag_color = vec4(v_color, 1.0);
}
`

type shaderParams struct {
	AttribPosition int
	AttribColor    int
	GridSize       int
	MaxSteps       int
	Threshold      float64
	DensityScale   float64
	Saturation     float64
}

var defaultShaders = generateShaders()

// DefaultShaders returns the built-in GLSL 4.10 sources.
func DefaultShaders() ShaderSources {
	return defaultShaders
}

func generateShaders() ShaderSources {
	p := shaderParams{
		AttribPosition: AttribPosition,
		AttribColor:    AttribColor,
		GridSize:       volume.OccupancyGridSize,
		MaxSteps:       MaxSteps,
		Threshold:      volume.OccupancyThreshold,
		DensityScale:   DensityScale,
		Saturation:     SaturationAlpha,
	}
	return ShaderSources{
		VolumeVertex:   execShader("volume.vert", volumeVertexSrc, p),
		VolumeFragment: execShader("volume.frag", volumeFragmentSrc, p),
		LineVertex:     execShader("line.vert", lineVertexSrc, p),
		LineFragment:   execShader("line.frag", lineFragmentSrc, p),
	}
}

func execShader(name, src string, p shaderParams) string {
	t := template.Must(template.New(name).Funcs(template.FuncMap{"glf": glf}).Parse(src))
	var b strings.Builder
	if err := t.Execute(&b, p); err != nil {
		panic(err)
	}
	return b.String()
}

// glf formats v as a GLSL float literal.
func glf(v float64) string {
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if !strings.ContainsAny(s, ".e") {
		s += ".0"
	}
	return s
}
