package gfx

import (
	"github.com/hubastard/grove3d/engine/core"
	"github.com/hubastard/grove3d/engine/gfx/glsl"
)

// Shader is one stage's source plus its reflected interface. It is immutable
// once created.
type Shader struct {
	id         ID
	Path       string
	Source     string
	SPIRV      []byte // compiled module for pipeline-object backends, may be nil
	Reflection *glsl.Reflection
}

// NewShader parses source; the stage comes from the path suffix. A parse
// failure is logged and returned, and no Shader is created.
func NewShader(path, source string) (*Shader, error) {
	refl, err := glsl.ParseFile(path, source)
	if err != nil {
		core.Logger().Error("shader parse failed", "shader", path, "err", err)
		return nil, err
	}
	core.Logger().Debug("shader reflected", "shader", path, "stage", refl.Stage,
		"inputs", len(refl.Inputs), "samplers", len(refl.Samplers), "block", refl.Block != nil)
	return &Shader{id: nextID(), Path: path, Source: source, Reflection: refl}, nil
}

// WithSPIRV attaches a compiled module and returns s.
func (s *Shader) WithSPIRV(code []byte) *Shader {
	s.SPIRV = code
	return s
}

func (s *Shader) ResourceID() ID            { return s.id }
func (s *Shader) Stage() glsl.Stage         { return s.Reflection.Stage }
func (s *Shader) Block() *glsl.UniformBlock { return s.Reflection.Block }
