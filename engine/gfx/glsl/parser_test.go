package glsl

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const litVert = `#version 450
// lit vertex shader
layout(location = 0) in vec3 a_position;
layout(location = 1) in vec3 a_normal;
layout(location=4) in vec2 a_uv;

layout(location = 0) out vec3 v_normal;
layout(location = 1) smooth out vec2 v_uv;

/* block layout:
   pvm first */
layout(set = 0, binding = 0) uniform Transform {
    mat4 u_pvm;
    mat4 u_model;
    mat3 u_normalMatrix;
    vec3 u_cameraPos;
    float u_glNDC;
} xf;

vec4 project(vec3 p) { return xf.u_pvm * vec4(p, 1.0); }

void main() {
    v_normal = xf.u_normalMatrix * a_normal;
    v_uv = a_uv;
    gl_Position = project(a_position);
    if (xf.u_glNDC < 0.5) { gl_Position.y = -gl_Position.y; }
}
`

func TestParseLitVertex(t *testing.T) {
	r, err := ParseFile("shaders/lit.vert", litVert)
	require.NoError(t, err)

	assert.Equal(t, Vertex, r.Stage)
	assert.Equal(t, "450", r.Version)
	assert.Empty(t, r.Profile)

	assert.Equal(t, map[string]Variable{
		"a_position": {Name: "a_position", Type: "vec3", Location: 0},
		"a_normal":   {Name: "a_normal", Type: "vec3", Location: 1},
		"a_uv":       {Name: "a_uv", Type: "vec2", Location: 4},
	}, r.Inputs)
	assert.Equal(t, map[string]Variable{
		"v_normal": {Name: "v_normal", Type: "vec3", Location: 0},
		"v_uv":     {Name: "v_uv", Type: "vec2", Location: 1},
	}, r.Outputs)
	assert.Empty(t, r.Samplers)

	require.NotNil(t, r.Block)
	assert.Equal(t, "Transform", r.Block.Name)
	assert.Equal(t, "xf", r.Block.Instance)
	assert.Equal(t, 0, r.Block.Binding)
	assert.Equal(t, []Member{
		{Name: "u_pvm", Type: "mat4", Offset: 0},
		{Name: "u_model", Type: "mat4", Offset: 64},
		{Name: "u_normalMatrix", Type: "mat3", Offset: 128},
		{Name: "u_cameraPos", Type: "vec3", Offset: 176},
		{Name: "u_glNDC", Type: "float", Offset: 188},
	}, r.Block.Members)
	assert.Equal(t, 192, r.Block.Size)
	assert.Len(t, r.Spans, 6)
}

func TestParseUniformColorBlock(t *testing.T) {
	src := "#version 450\nlayout(set=0,binding=0) uniform UBO { vec4 u_color; };\n"
	r, err := Parse(Fragment, src)
	require.NoError(t, err)
	require.NotNil(t, r.Block)
	assert.Equal(t, "UBO", r.Block.Name)
	assert.Equal(t, 0, r.Block.Binding)
	assert.Equal(t, []Member{{Name: "u_color", Type: "vec4"}}, r.Block.Members)
	assert.Equal(t, 16, r.Block.Size)
	m, ok := r.Block.Member("u_color")
	assert.True(t, ok)
	assert.Equal(t, "vec4", m.Type)
}

func TestParseSamplersAndProfile(t *testing.T) {
	src := `#version 410 core
layout(binding = 1) uniform sampler2D u_albedo;
layout(set = 1, binding = 3) uniform samplerCube u_env;
layout(location = 0) in vec2 v_uv;
layout(location = 0) out vec4 o_color;
uniform float ignored_without_layout;
void main() { o_color = texture(u_albedo, v_uv); }
`
	r, err := Parse(Fragment, src)
	require.NoError(t, err)
	assert.Equal(t, "core", r.Profile)
	assert.Equal(t, map[string]Sampler{
		"u_albedo": {Name: "u_albedo", Type: "sampler2D", Binding: 1},
		"u_env":    {Name: "u_env", Type: "samplerCube", Set: 1, Binding: 3},
	}, r.Samplers)
	assert.Nil(t, r.Block)
	// fragment inputs are varyings, not catalog attributes
	assert.Contains(t, r.Inputs, "v_uv")
}

func TestParseGeometryArrays(t *testing.T) {
	src := `#version 450
layout(triangles) in;
layout(triangle_strip, max_vertices = 3) out;
layout(location = 0) in vec3 v_normal[];
layout(location = 0) out vec3 g_normal;
void main() {}
`
	r, err := Parse(Geometry, src)
	require.NoError(t, err)
	assert.Equal(t, -1, r.Inputs["v_normal"].ArrayLen)
	require.Len(t, r.Spans, 4)
	assert.Equal(t, DeclOther, r.Spans[0].Decl)
	assert.Equal(t, []Qualifier{{Name: "triangle_strip"}, {Name: "max_vertices", Value: 3, HasValue: true}}, r.Spans[1].Qualifiers)
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name  string
		stage Stage
		src   string
		msg   string
		line  int
	}{
		{"missing version", Vertex, "layout(location=0) in vec3 a_position;", "#version", 1},
		{"version after comment only", Vertex, "// header\nvoid main(){}", "#version", 2},
		{"duplicate version", Vertex, "#version 450\n#version 460\n", "duplicate", 2},
		{"unknown attribute", Vertex, "#version 450\nlayout(location=0) in vec3 a_pos;\n", "unknown vertex attribute", 2},
		{"missing location", Vertex, "#version 450\nlayout(binding=0) in vec3 a_position;\n", "no location", 2},
		{"second block", Fragment, "#version 450\nlayout(binding=0) uniform A { vec4 u_color; };\nlayout(binding=1) uniform B { float u_time; };\n", "second uniform block", 3},
		{"unclosed layout", Fragment, "#version 450\nlayout(binding=0 uniform sampler2D t;\n", "malformed layout qualifier", 2},
		{"unbalanced brace", Fragment, "#version 450\nvoid main() {\n", "unbalanced", 2},
		{"stray paren", Fragment, "#version 450\n)\n", "unbalanced", 2},
		{"unclosed block", Fragment, "#version 450\nlayout(binding=0) uniform A { vec4 u_color;\n", "unbalanced", 2},
		{"bad qualifier value", Fragment, "#version 450\nlayout(binding=x) uniform sampler2D t;\n", "expected integer", 2},
		{"empty layout", Fragment, "#version 450\nlayout() uniform sampler2D t;\n", "malformed layout qualifier", 2},
		{"duplicate uniform", Fragment, "#version 450\nlayout(binding=0) uniform A { vec4 u_color; float u_color; };\n", "duplicate uniform", 2},
		{"duplicate input", Fragment, "#version 450\nlayout(location=0) in vec2 v;\nlayout(location=1) in vec2 v;\n", "duplicate input", 3},
		{"loose uniform", Fragment, "#version 450\nlayout(location=0) uniform float u_time;\n", "inside the uniform block", 2},
		{"struct member", Fragment, "#version 450\nlayout(binding=0) uniform A { Light l; };\n", "unsupported uniform block member type", 2},
		{"unterminated comment", Fragment, "#version 450\n/* open", "unterminated block comment", 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.stage, tt.src)
			var pe *ParseError
			require.True(t, errors.As(err, &pe), "got %v", err)
			assert.Contains(t, pe.Msg, tt.msg)
			assert.Equal(t, tt.line, pe.Pos.Line)
		})
	}
}

func TestParseFileCarriesPath(t *testing.T) {
	_, err := ParseFile("shaders/broken.frag", "void main(){}")
	var pe *ParseError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, "shaders/broken.frag", pe.Path)
	assert.Contains(t, err.Error(), "shaders/broken.frag:1:1")

	_, err = ParseFile("shaders/broken.txt", "#version 450\n")
	assert.Error(t, err)
}

func TestRewriteDropsQualifiers(t *testing.T) {
	src := "#version 450\nlayout(set = 0, binding = 2) uniform sampler2D u_tex;\nlayout(std140, binding = 0) uniform UBO { vec4 u_color; };\n"
	r, err := Parse(Fragment, src)
	require.NoError(t, err)

	edits := []Edit{{Start: r.VersionSpan.Start, End: r.VersionSpan.End, Text: "#version 410 core"}}
	for _, sp := range r.Spans {
		var kept []Qualifier
		for _, q := range sp.Qualifiers {
			if q.Name != "set" && q.Name != "binding" {
				kept = append(kept, q)
			}
		}
		edits = append(edits, Edit{Start: sp.Start, End: sp.End, Text: FormatLayout(kept)})
	}
	out := Rewrite(src, edits)
	assert.Equal(t, "#version 410 core\n uniform sampler2D u_tex;\nlayout(std140) uniform UBO { vec4 u_color; };\n", out)

	// the rewritten text still parses when layouts remain on every reflected declaration
	_, err = Parse(Fragment, "#version 410 core\nlayout(std140) uniform UBO { vec4 u_color; };\n")
	assert.NoError(t, err)
}
