package glbackend

import (
	"testing"

	"github.com/hubastard/grove3d/engine/gfx"
	"github.com/hubastard/grove3d/engine/gfx/glsl"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSourceTargetsCoreProfile(t *testing.T) {
	src := `#version 450
layout(location = 0) in vec3 a_position;
layout(location = 0) out vec2 v_uv;
layout(set = 0, binding = 0) uniform Transform { mat4 u_pvm; };
layout(set = 0, binding = 1) uniform sampler2D u_albedo;
void main() { gl_Position = u_pvm * vec4(a_position, 1.0); }
`
	s, err := gfx.NewShader("lit.vert", src)
	require.NoError(t, err)

	out := Source(s)
	assert.Equal(t, `#version 410 core
layout(location = 0) in vec3 a_position;
layout(location = 0) out vec2 v_uv;
layout(std140) uniform Transform { mat4 u_pvm; };
 uniform sampler2D u_albedo;
void main() { gl_Position = u_pvm * vec4(a_position, 1.0); }
`, out)
	assert.NotContains(t, out, "binding")
}

func TestSourceKeepsExplicitStd140(t *testing.T) {
	src := "#version 450 core\nlayout(std140, binding = 2) uniform UBO { vec4 u_color; };\nvoid main() {}\n"
	s, err := gfx.NewShader("flat.frag", src)
	require.NoError(t, err)

	out := Source(s)
	assert.Equal(t, "#version 410 core\nlayout(std140) uniform UBO { vec4 u_color; };\nvoid main() {}\n", out)

	// the result still reflects to the same block
	refl, err := glsl.Parse(glsl.Fragment, out)
	require.NoError(t, err)
	assert.Equal(t, s.Block().Size, refl.Block.Size)
	assert.Equal(t, "410", refl.Version)
}
