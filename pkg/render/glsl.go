package render

import (
	"fmt"
	"maps"
	"slices"
	"strings"
)

// glslShader is what the soft device keeps of a compiled source: its
// interface and the CPU kernel it names with a "// @kernel" directive.
type glslShader struct {
	stage    ShaderStage
	kernel   string
	uniforms map[string]string // name -> type
	inputs   map[string]string
	outputs  map[string]string
}

const kernelDirective = "// @kernel "

// parseGLSL performs the checks a driver front end would reject a source
// for and reads its top-level interface declarations. The returned string
// is a compile log, empty on success.
func parseGLSL(stage ShaderStage, src string) (*glslShader, string) {
	sh := &glslShader{
		stage:    stage,
		uniforms: make(map[string]string),
		inputs:   make(map[string]string),
		outputs:  make(map[string]string),
	}

	lines := strings.Split(src, "\n")
	first := -1
	for i, l := range lines {
		if strings.TrimSpace(l) != "" {
			first = i
			break
		}
	}
	if first < 0 {
		return nil, "0:0: error: empty source"
	}
	if !strings.HasPrefix(strings.TrimSpace(lines[first]), "#version ") {
		return nil, fmt.Sprintf("0:%d: error: #version must come first", first+1)
	}

	var code strings.Builder
	depth := 0
	for i, raw := range lines {
		line := strings.TrimSpace(raw)
		if name, ok := strings.CutPrefix(line, kernelDirective); ok {
			sh.kernel = strings.TrimSpace(name)
			continue
		}
		if j := strings.Index(line, "//"); j >= 0 {
			line = strings.TrimSpace(line[:j])
		}
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if depth == 0 {
			if err := sh.declare(line); err != "" {
				return nil, fmt.Sprintf("0:%d: error: %s", i+1, err)
			}
		}
		for _, r := range line {
			switch r {
			case '{':
				depth++
			case '}':
				depth--
			}
			if depth < 0 {
				return nil, fmt.Sprintf("0:%d: error: unexpected '}'", i+1)
			}
		}
		code.WriteString(line)
		code.WriteByte('\n')
	}
	if depth != 0 {
		return nil, "0:0: error: unbalanced braces at end of source"
	}
	body := code.String()
	if strings.Count(body, "(") != strings.Count(body, ")") {
		return nil, "0:0: error: unbalanced parentheses"
	}
	if !strings.Contains(body, "void main(") {
		return nil, "0:0: error: missing entry point main"
	}
	return sh, ""
}

// declare records a top-level "uniform|in|out type name;" line. Other
// top-level lines are ignored.
func (sh *glslShader) declare(line string) string {
	if rest, ok := strings.CutPrefix(line, "layout"); ok {
		end := strings.Index(rest, ")")
		if end < 0 {
			return "malformed layout qualifier"
		}
		line = strings.TrimSpace(rest[end+1:])
	}
	f := strings.Fields(line)
	if len(f) == 0 {
		return ""
	}
	var table map[string]string
	switch f[0] {
	case "uniform":
		table = sh.uniforms
	case "in":
		table = sh.inputs
	case "out":
		table = sh.outputs
	default:
		return ""
	}
	if len(f) != 3 || !strings.HasSuffix(f[2], ";") {
		return fmt.Sprintf("malformed %s declaration", f[0])
	}
	name := strings.TrimSuffix(f[2], ";")
	if _, dup := table[name]; dup {
		return fmt.Sprintf("redeclaration of %q", name)
	}
	table[name] = f[1]
	return ""
}

// linkGLSL checks that the two stages agree. The returned string is a
// link log, empty on success.
func linkGLSL(vs, fs *glslShader) string {
	var problems []string
	if vs.stage != StageVertex || fs.stage != StageFragment {
		problems = append(problems, "program needs one vertex and one fragment shader")
	}
	for _, name := range slices.Sorted(maps.Keys(fs.inputs)) {
		typ := fs.inputs[name]
		out, ok := vs.outputs[name]
		switch {
		case !ok:
			problems = append(problems, fmt.Sprintf("fragment input %q has no matching vertex output", name))
		case out != typ:
			problems = append(problems, fmt.Sprintf("type mismatch on %q: vertex %s, fragment %s", name, out, typ))
		}
	}
	for _, name := range slices.Sorted(maps.Keys(fs.uniforms)) {
		typ := fs.uniforms[name]
		if other, ok := vs.uniforms[name]; ok && other != typ {
			problems = append(problems, fmt.Sprintf("uniform %q declared as %s and %s", name, other, typ))
		}
	}
	if _, ok := vertexKernels[vs.kernel]; !ok {
		problems = append(problems, fmt.Sprintf("vertex kernel %q is not available", vs.kernel))
	}
	if _, ok := fragmentKernels[fs.kernel]; !ok {
		problems = append(problems, fmt.Sprintf("fragment kernel %q is not available", fs.kernel))
	}
	return strings.Join(problems, "; ")
}
