package glsl

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Stage is the pipeline stage a shader source belongs to.
type Stage int32

const (
	Vertex Stage = iota
	TessControl
	TessEval
	Geometry
	Fragment

	StagesN
)

var stageNames = [StagesN]string{"vertex", "tess-control", "tess-eval", "geometry", "fragment"}

// stageExts are the file suffixes a stage is derived from.
var stageExts = [StagesN]string{".vert", ".tesc", ".tese", ".geom", ".frag"}

func (s Stage) String() string {
	if s < 0 || s >= StagesN {
		return fmt.Sprintf("Stage(%d)", int32(s))
	}
	return stageNames[s]
}

// Ext returns the source file suffix of the stage.
func (s Stage) Ext() string {
	if s < 0 || s >= StagesN {
		return ""
	}
	return stageExts[s]
}

// StageFromPath derives the stage from the file suffix. A trailing ".spv" is
// ignored so "lit.frag.spv" is a fragment shader.
func StageFromPath(path string) (Stage, error) {
	p := strings.TrimSuffix(path, ".spv")
	ext := strings.ToLower(filepath.Ext(p))
	for s, e := range stageExts {
		if e == ext {
			return Stage(s), nil
		}
	}
	return 0, fmt.Errorf("glsl: cannot derive shader stage from %q", path)
}

// Attribute is one entry of the fixed vertex attribute catalog. Vertex shader
// inputs must use these names verbatim.
type Attribute int32

const (
	AttrPosition Attribute = iota
	AttrNormal
	AttrTangent
	AttrColor
	AttrUV

	AttributesN
)

var attrNames = [AttributesN]string{"a_position", "a_normal", "a_tangent", "a_color", "a_uv"}

func (a Attribute) String() string {
	if a < 0 || a >= AttributesN {
		return fmt.Sprintf("Attribute(%d)", int32(a))
	}
	return attrNames[a]
}

// AttributeByName looks up a catalog attribute by its shader name.
func AttributeByName(name string) (Attribute, bool) {
	for i, n := range attrNames {
		if n == name {
			return Attribute(i), true
		}
	}
	return 0, false
}
