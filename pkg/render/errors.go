package render

import (
	"errors"
	"fmt"
)

var (
	// ErrShaderCompile matches any *ShaderError from a failed compile.
	ErrShaderCompile = errors.New("shader compile failed")

	// ErrProgramLink matches any *ShaderError from a failed link.
	ErrProgramLink = errors.New("program link failed")

	// ErrNotInitialized is returned by engine operations that need a device.
	ErrNotInitialized = errors.New("render engine not initialized")
)

// ShaderErrorKind says which step of program construction failed.
type ShaderErrorKind int

const (
	CompileFailure ShaderErrorKind = iota
	LinkFailure
)

// ShaderError carries the driver's info log for a failed compile or link.
type ShaderError struct {
	Kind  ShaderErrorKind
	Stage ShaderStage // compile failures only
	Log   string
}

func (e *ShaderError) Error() string {
	if e.Kind == LinkFailure {
		return fmt.Sprintf("link program: %s", e.Log)
	}
	return fmt.Sprintf("compile %s shader: %s", e.Stage, e.Log)
}

// Is lets errors.Is match ErrShaderCompile or ErrProgramLink.
func (e *ShaderError) Is(target error) bool {
	switch e.Kind {
	case CompileFailure:
		return target == ErrShaderCompile
	case LinkFailure:
		return target == ErrProgramLink
	}
	return false
}
