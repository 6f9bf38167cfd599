package render

import (
	"fmt"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/hubastard/grove3d/engine/colors"
	"github.com/hubastard/grove3d/engine/gfx"
	"github.com/hubastard/grove3d/engine/gfx/glsl"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testLight struct{ l *Light }

func (n testLight) Light() *Light { return n.l }

func TestFrameVisitsPassTypesInOrder(t *testing.T) {
	r, b := newTestRenderer(t)
	vs := mustShader(t, "unlit.vert", vertSrc)
	fs := mustShader(t, "sample.frag", sampleFragSrc)
	depthVS := mustShader(t, "depth.vert", shadowVertSrc)
	depthFS := mustShader(t, "depth.frag", emptyFragSrc)
	plainFS := mustShader(t, "plain.frag", emptyFragSrc)

	color, err := gfx.NewRenderTarget(gfx.TargetColor, gfx.OutputTexture, 32, 32)
	require.NoError(t, err)
	depth, err := gfx.NewRenderTarget(gfx.TargetDepth, gfx.OutputRender, 32, 32)
	require.NoError(t, err)
	shadowMap, err := gfx.NewRenderTarget(gfx.TargetDepth, gfx.OutputTexture, 16, 16)
	require.NoError(t, err)

	node := newTestNode(t, "n")
	// registered Standard, Shadow, Offscreen: submission must still be ascending
	node.effect = NewCustomEffect("mixed", node, func(e *Effect, _ *Renderer) error {
		e.AddPass(NewPass(PassStandard, node).SetShaders(Shaders(vs, fs)).SetTexture(glsl.Fragment, SamplerMirror, color.Texture))
		e.AddPass(NewPass(PassShadow, node).SetShaders(Shaders(depthVS, depthFS)).SetTargets(shadowMap))
		e.AddPass(NewPass(PassOffscreen, node).SetShaders(Shaders(vs, plainFS)).SetTargets(color, depth))
		return nil
	})
	q := NewQueue()
	q.Push(node)
	frame(t, r, q)

	assert.Equal(t, []string{
		"begin frame",
		"begin offscreen", "bind offscreen n clear", "draw n 0 3", "end offscreen",
		"begin shadow", "bind shadow n clear", "draw n 0 3", "end shadow",
		"begin standard", "bind standard n clear", "draw n 0 3", "end standard",
		"end frame", "present",
	}, b.calls)
	assert.True(t, node.AllowsPass(PassShadow))
	w, h := r.Passes(PassShadow)[0].Size()
	assert.Equal(t, []int{16, 16}, []int{w, h})
}

func TestUnlitColorEffect(t *testing.T) {
	r, _ := newTestRenderer(t)
	vs := mustShader(t, "unlit.vert", vertSrc)
	fs := mustShader(t, "color.frag", colorFragSrc)

	block := fs.Block()
	require.NotNil(t, block)
	assert.Equal(t, "UBO", block.Name)
	assert.Equal(t, 0, block.Binding)
	require.Len(t, block.Members, 1)
	assert.Equal(t, "u_color", block.Members[0].Name)
	assert.Equal(t, 0, block.Members[0].Offset)

	node := newTestNode(t, "cube")
	e := NewColorEffect(node, Shaders(vs, fs), colors.Green)
	node.effect = e
	require.NoError(t, e.Init(r))
	require.NoError(t, e.InitPasses(r))

	assert.Empty(t, e.Passes[PassOffscreen])
	assert.Empty(t, e.Passes[PassShadow])
	require.Len(t, e.Passes[PassStandard], 1)
	p := e.Passes[PassStandard][0]
	assert.True(t, p.Ready())
	assert.False(t, node.Lit())

	ub := p.UniformBuffer(glsl.Fragment)
	require.NotNil(t, ub)
	assert.Equal(t, []gfx.UniformRole{gfx.RoleColor}, ub.Roles())
	assert.Equal(t, float32(1), ub.Float(gfx.RoleColor, 1))
	assert.Equal(t, float32(0), ub.Float(gfx.RoleColor, 0))

	w, h := p.Size()
	assert.Equal(t, []int{640, 480}, []int{w, h}, "standard passes take the window size")
}

func TestMirrorWithTwoDependencies(t *testing.T) {
	r, b := newTestRenderer(t)
	vs := mustShader(t, "unlit.vert", vertSrc)
	colorFS := mustShader(t, "color.frag", colorFragSrc)
	sampleFS := mustShader(t, "mirror.frag", sampleFragSrc)
	emptyFS := mustShader(t, "vcolor.frag", emptyFragSrc)

	mirror := newTestNode(t, "mirror")
	a := newTestNode(t, "a")
	c := newTestNode(t, "c")
	a.effect = NewColorEffect(a, Shaders(vs, colorFS), colors.Red)
	c.effect = NewVertexColorEffect(c, Shaders(vs, emptyFS))
	mirror.effect = NewMirrorEffect(mirror, Shaders(vs, sampleFS), Shaders(vs, colorFS), []Node{a, c}, 0)

	q := NewQueue()
	q.Push(mirror)
	q.Push(a)
	q.Push(c)
	frame(t, r, q)

	assert.Len(t, mirror.effect.Passes[PassOffscreen], 2)
	assert.Len(t, mirror.effect.Passes[PassStandard], 1)
	assert.Len(t, r.Passes(PassOffscreen), 2)
	assert.Len(t, r.Passes(PassStandard), 3)
	assert.Equal(t, []Node{a, c}, mirror.effect.Dependencies)

	assert.Equal(t, []string{
		"begin frame",
		"begin offscreen",
		"bind offscreen a clear", "draw a 0 3",
		"bind offscreen c load", "draw c 0 3",
		"end offscreen",
		"begin standard",
		"bind standard mirror clear", "draw mirror 0 3",
		"bind standard a clear", "draw a 0 3",
		"bind standard c clear", "draw c 0 3",
		"end standard",
		"end frame", "present",
	}, b.calls)

	w, h := r.Passes(PassOffscreen)[0].Size()
	assert.Equal(t, []int{32, 32}, []int{w, h})
	assert.Equal(t, gfx.WindingCW, r.Passes(PassOffscreen)[0].State.Cull.Front)
	assert.Equal(t, colors.Red, r.Passes(PassOffscreen)[0].Color)
	assert.Equal(t, colors.White, r.Passes(PassOffscreen)[1].Color)
}

func TestMirrorColorIgnoresPushOrder(t *testing.T) {
	for _, mirrorFirst := range []bool{true, false} {
		t.Run(fmt.Sprintf("mirror first %v", mirrorFirst), func(t *testing.T) {
			r, _ := newTestRenderer(t)
			vs := mustShader(t, "unlit.vert", vertSrc)
			colorFS := mustShader(t, "color.frag", colorFragSrc)
			sampleFS := mustShader(t, "mirror.frag", sampleFragSrc)

			mirror := newTestNode(t, "mirror")
			a := newTestNode(t, "a")
			a.effect = NewColorEffect(a, Shaders(vs, colorFS), colors.Red)
			mirror.effect = NewMirrorEffect(mirror, Shaders(vs, sampleFS), Shaders(vs, colorFS), []Node{a}, 0)

			q := NewQueue()
			if mirrorFirst {
				q.Push(mirror)
				q.Push(a)
			} else {
				q.Push(a)
				q.Push(mirror)
			}
			frame(t, r, q)
			require.Len(t, r.Passes(PassOffscreen), 1)
			assert.Equal(t, colors.Red, r.Passes(PassOffscreen)[0].Color)

			// later changes to the reflected node follow into the reflection
			a.effect.Passes[PassStandard][0].Color = colors.Blue
			frame(t, r, q)
			assert.Equal(t, colors.Blue, r.Passes(PassOffscreen)[0].Color)
		})
	}
}

func TestMissingPVMFailsSetup(t *testing.T) {
	tests := []struct {
		name string
		src  string
	}{
		{"block without pvm", "#version 450\nlayout(location=0) in vec3 a_position;\nlayout(binding=0) uniform T { mat4 u_model; };\nvoid main(){}\n"},
		{"no block", "#version 450\nlayout(location=0) in vec3 a_position;\nvoid main(){}\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, b := newTestRenderer(t)
			vs := mustShader(t, "bad.vert", tt.src)
			fs := mustShader(t, "color.frag", colorFragSrc)
			node := newTestNode(t, "n")
			node.effect = NewColorEffect(node, Shaders(vs, fs), colors.Red)
			q := NewQueue()
			q.Push(node)

			err := r.ComputeGraphicsResources(q)
			var missing *MissingRoleError
			require.ErrorAs(t, err, &missing)
			assert.Equal(t, gfx.RolePVM, missing.Role)
			assert.Equal(t, glsl.Vertex, missing.Stage)
			assert.Equal(t, PassStandard, missing.Pass)
			assert.Error(t, node.effect.Err())

			assert.Empty(t, r.Passes(PassStandard))
			assert.Empty(t, b.handles)

			// failed effects are not retried
			assert.NoError(t, r.ComputeGraphicsResources(q))
			assert.Empty(t, r.Passes(PassStandard))
		})
	}
}

func TestUniformRolesAreDeclaredCatalogMembers(t *testing.T) {
	r, _ := newTestRenderer(t)
	vs := mustShader(t, "wide.vert", `#version 450
layout(location = 0) in vec3 a_position;
layout(binding = 0) uniform T {
    mat4 u_pvm;
    vec4 u_custom;
    mat4 u_model;
    float u_time;
    vec3 u_lightDir;
};
void main() {}
`)
	fs := mustShader(t, "color.frag", colorFragSrc)
	node := newTestNode(t, "n")
	node.effect = NewColorEffect(node, Shaders(vs, fs), colors.Red)
	q := NewQueue()
	q.Push(node)
	frame(t, r, q)

	p := r.Passes(PassStandard)[0]
	assert.Equal(t, []gfx.UniformRole{gfx.RolePVM, gfx.RoleModel, gfx.RoleTime, gfx.RoleLightDir},
		p.UniformBuffer(glsl.Vertex).Roles())
	assert.Equal(t, float32(1), p.UniformBuffer(glsl.Vertex).Float(gfx.RoleTime, 0))
	// unlit: no light pushed
	assert.Equal(t, float32(0), p.UniformBuffer(glsl.Vertex).Float(gfx.RoleLightDir, 1))
}

func TestMistypedRoleFailsSetup(t *testing.T) {
	r, _ := newTestRenderer(t)
	vs := mustShader(t, "bad.vert", "#version 450\nlayout(location=0) in vec3 a_position;\nlayout(binding=0) uniform T { mat4 u_pvm; vec3 u_color; };\nvoid main(){}\n")
	fs := mustShader(t, "color.frag", colorFragSrc)
	node := newTestNode(t, "n")
	node.effect = NewColorEffect(node, Shaders(vs, fs), colors.Red)
	q := NewQueue()
	q.Push(node)
	assert.Error(t, r.ComputeGraphicsResources(q))
}

func TestLitShadowEffect(t *testing.T) {
	r, _ := newTestRenderer(t)
	litVS := mustShader(t, "lit.vert", `#version 450
layout(location = 0) in vec3 a_position;
layout(location = 1) in vec3 a_normal;
layout(binding = 0) uniform Transform { mat4 u_pvm; mat4 u_model; mat4 u_lightPVM; mat3 u_normalMatrix; };
void main() {}
`)
	litFS := mustShader(t, "lit.frag", `#version 450
layout(location = 0) out vec4 o_color;
layout(binding = 1) uniform Light { vec3 u_lightDir; vec4 u_lightColor; vec4 u_color; };
layout(binding = 2) uniform sampler2D u_shadowMap;
void main() {}
`)
	depthVS := mustShader(t, "depth.vert", shadowVertSrc)
	depthFS := mustShader(t, "depth.frag", emptyFragSrc)
	colorFS := mustShader(t, "color.frag", colorFragSrc)
	vs := mustShader(t, "unlit.vert", vertSrc)

	floor := newTestNode(t, "floor")
	cube := newTestNode(t, "cube")
	floor.effect = NewLitShadowEffect(floor, Shaders(litVS, litFS), Shaders(depthVS, depthFS), []Node{cube}, colors.White, 0)
	cube.effect = NewColorEffect(cube, Shaders(vs, colorFS), colors.Red)

	sun := NewDirectionalLight(mgl32.Vec3{0, 10, 0}, mgl32.Vec3{})
	sun.Color = colors.Yellow
	q := NewQueue()
	q.PushLight(testLight{sun})
	q.Push(floor)
	q.Push(cube)
	frame(t, r, q)

	assert.True(t, floor.Lit())
	assert.False(t, cube.Lit())
	assert.True(t, cube.AllowsPass(PassShadow))
	require.Len(t, r.Passes(PassShadow), 1)
	sp := r.Passes(PassShadow)[0]
	w, _ := sp.Size()
	assert.Equal(t, 64, w, "shadow map size from options")
	assert.True(t, sp.State.Dynamic.DepthBias)

	std := floor.effect.Passes[PassStandard][0]
	assert.True(t, std.Lit())
	fub := std.UniformBuffer(glsl.Fragment)
	assert.InDelta(t, -1, fub.Float(gfx.RoleLightDir, 1), 1e-6)
	assert.Equal(t, float32(1), fub.Float(gfx.RoleLightColor, 1))
	assert.Same(t, sun, r.MainLight())

	shadowUB := sp.UniformBuffer(glsl.Vertex)
	lightPVM := sun.LightSpace()
	assert.Equal(t, lightPVM[0], shadowUB.Float(gfx.RoleLightPVM, 0))
}

func TestLitShadowRequiresLightSpaceRoles(t *testing.T) {
	r, _ := newTestRenderer(t)
	vs := mustShader(t, "unlit.vert", vertSrc)
	fs := mustShader(t, "color.frag", colorFragSrc)
	depthVS := mustShader(t, "depth.vert", shadowVertSrc)
	depthFS := mustShader(t, "depth.frag", emptyFragSrc)
	floor := newTestNode(t, "floor")
	floor.effect = NewLitShadowEffect(floor, Shaders(vs, fs), Shaders(depthVS, depthFS), nil, colors.White, 0)
	q := NewQueue()
	q.Push(floor)

	var missing *MissingRoleError
	require.ErrorAs(t, r.ComputeGraphicsResources(q), &missing)
	assert.Equal(t, gfx.RoleLightPVM, missing.Role)
}

func TestTargetCountIsExact(t *testing.T) {
	vs := mustShader(t, "unlit.vert", vertSrc)
	fs := mustShader(t, "color.frag", colorFragSrc)
	color, err := gfx.NewRenderTarget(gfx.TargetColor, gfx.OutputTexture, 8, 8)
	require.NoError(t, err)

	tests := []struct {
		name string
		pass func(n Node) *Pass
	}{
		{"standard with target", func(n Node) *Pass {
			return NewPass(PassStandard, n).SetShaders(Shaders(vs, fs)).SetTargets(color)
		}},
		{"offscreen with one target", func(n Node) *Pass {
			return NewPass(PassOffscreen, n).SetShaders(Shaders(vs, fs)).SetTargets(color)
		}},
		{"shadow without target", func(n Node) *Pass {
			return NewPass(PassShadow, n).SetShaders(Shaders(vs, fs))
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, _ := newTestRenderer(t)
			node := newTestNode(t, "n")
			node.effect = NewCustomEffect("bad", node, func(e *Effect, _ *Renderer) error {
				p := e.AddPass(tt.pass(node))
				if p.Type != PassStandard {
					e.AddPass(NewPass(PassStandard, node).SetShaders(Shaders(vs, fs)))
				}
				return nil
			})
			q := NewQueue()
			q.Push(node)
			assert.ErrorIs(t, r.ComputeGraphicsResources(q), ErrTargetCount)
		})
	}
}

func TestTextureForUndeclaredSampler(t *testing.T) {
	r, _ := newTestRenderer(t)
	vs := mustShader(t, "unlit.vert", vertSrc)
	fs := mustShader(t, "color.frag", colorFragSrc)
	tex, err := gfx.NewTexture2D(gfx.FormatRGBA8, 1, 1, []byte{255, 255, 255, 255})
	require.NoError(t, err)
	node := newTestNode(t, "n")
	node.effect = NewTextureEffect(node, Shaders(vs, fs), tex)
	q := NewQueue()
	q.Push(node)
	err = r.ComputeGraphicsResources(q)
	require.Error(t, err)
	assert.Contains(t, err.Error(), SamplerAlbedo)
}

func TestSamplerWithoutTextureFailsSetup(t *testing.T) {
	r, b := newTestRenderer(t)
	vs := mustShader(t, "unlit.vert", vertSrc)
	fs := mustShader(t, "sample.frag", sampleFragSrc)
	node := newTestNode(t, "n")
	node.effect = NewCustomEffect("bare", node, func(e *Effect, _ *Renderer) error {
		e.AddPass(NewPass(PassStandard, node).SetShaders(Shaders(vs, fs)))
		return nil
	})
	q := NewQueue()
	q.Push(node)
	assert.ErrorIs(t, r.ComputeGraphicsResources(q), ErrUnboundSampler)
	assert.ErrorIs(t, node.effect.Err(), ErrUnboundSampler)
	assert.Empty(t, r.Passes(PassStandard))
	assert.Empty(t, b.handles, "nothing reaches the backend")
}

func TestUnbindRebuildsDependentPasses(t *testing.T) {
	r, b := newTestRenderer(t)
	vs := mustShader(t, "unlit.vert", vertSrc)
	fs := mustShader(t, "tex.frag", "#version 450\nlayout(binding=1) uniform sampler2D u_albedo;\nvoid main(){}\n")
	tex, err := gfx.NewTexture2D(gfx.FormatRGBA8, 1, 1, nil)
	require.NoError(t, err)

	a := newTestNode(t, "a")
	c := newTestNode(t, "c")
	a.effect = NewTextureEffect(a, Shaders(vs, fs), tex)
	c.effect = NewColorEffect(c, Shaders(vs, mustShader(t, "color.frag", colorFragSrc)), colors.Red)
	q := NewQueue()
	q.Push(a)
	q.Push(c)
	frame(t, r, q)

	pa := a.effect.Passes[PassStandard][0]
	pc := c.effect.Passes[PassStandard][0]
	oldA, oldC := pa.Handle(), pc.Handle()
	assert.False(t, pa.Stale())

	require.True(t, r.UnBindTexture(tex))
	assert.False(t, r.UnBindTexture(tex))
	assert.True(t, pa.Stale())
	assert.False(t, pc.Stale())

	b.calls = nil
	frame(t, r, q)
	assert.True(t, oldA.(*fakePass).destroyed)
	assert.NotSame(t, oldA, pa.Handle())
	assert.Same(t, oldC, pc.Handle())
	assert.False(t, pa.Stale())
	assert.Contains(t, b.calls, "draw a 0 3")

	var textures []*fakeShadow
	for _, s := range b.shadows {
		if s.kind == "texture" {
			textures = append(textures, s)
		}
	}
	require.Len(t, textures, 2)
	assert.True(t, textures[0].destroyed)
	assert.False(t, textures[1].destroyed)
}

func TestTextEffectBlends(t *testing.T) {
	r, _ := newTestRenderer(t)
	vs := mustShader(t, "unlit.vert", vertSrc)
	fs := mustShader(t, "text.frag", `#version 450
layout(location = 0) out vec4 o_color;
layout(set = 0, binding = 1) uniform Material { vec4 u_color; };
layout(set = 0, binding = 2) uniform sampler2D u_albedo;
void main() { o_color = u_color * texture(u_albedo, vec2(0.0)).a; }
`)
	atlas, err := gfx.NewTexture2D(gfx.FormatRGBA8, 1, 1, []byte{255, 255, 255, 128})
	require.NoError(t, err)

	node := newTestNode(t, "sign")
	node.effect = NewTextEffect(node, Shaders(vs, fs), atlas, colors.Yellow)
	q := NewQueue()
	q.Push(node)
	frame(t, r, q)

	require.Len(t, node.effect.Passes[PassStandard], 1)
	p := node.effect.Passes[PassStandard][0]
	assert.True(t, p.State.Blend.Enabled)
	assert.False(t, p.State.DepthStencil.DepthWrite)
	assert.True(t, p.State.DepthStencil.DepthTest)
	assert.False(t, p.State.Cull.Enabled)
	assert.Equal(t, colors.Yellow, p.Color)
	assert.Equal(t, atlas, p.Textures(glsl.Fragment)[SamplerAlbedo])
}

func TestEffectNeedsOneStandardPass(t *testing.T) {
	r, _ := newTestRenderer(t)
	node := newTestNode(t, "n")
	e := NewCustomEffect("empty", node, func(*Effect, *Renderer) error { return nil })
	assert.Error(t, e.Init(r))
	assert.Error(t, e.InitPasses(r))
}

func TestEnvironmentMapNeedsCube(t *testing.T) {
	r, _ := newTestRenderer(t)
	flat, err := gfx.NewTexture2D(gfx.FormatRGBA8, 1, 1, nil)
	require.NoError(t, err)
	node := newTestNode(t, "sphere")
	assert.Error(t, NewEnvironmentMapEffect(node, ShaderSet{}, flat).Init(r))
}

func TestBindCachesShadows(t *testing.T) {
	r, b := newTestRenderer(t)
	tex, err := gfx.NewTexture2D(gfx.FormatRGBA8, 2, 2, nil)
	require.NoError(t, err)

	first, err := r.BindTexture(tex)
	require.NoError(t, err)
	again, err := r.BindTexture(tex)
	require.NoError(t, err)
	assert.Same(t, first, again)
	assert.Len(t, b.shadows, 1)

	assert.True(t, r.UnBindTexture(tex))
	assert.True(t, first.(*fakeShadow).destroyed)
	assert.False(t, r.UnBindTexture(tex))

	fresh, err := r.BindTexture(tex)
	require.NoError(t, err)
	assert.NotSame(t, first, fresh)
	assert.Equal(t, 1, r.textures.len())
}

func TestUpdateFrameUploadsUniforms(t *testing.T) {
	for _, ndc := range []NDC{NDCGL, NDCNative} {
		b := newFakeBackend()
		b.ndc = ndc
		r, err := New(b, Options{})
		require.NoError(t, err)

		vs := mustShader(t, "unlit.vert", vertSrc)
		fs := mustShader(t, "color.frag", colorFragSrc)
		node := newTestNode(t, "n")
		node.model = mgl32.Translate3D(0, 1, 0)
		node.effect = NewColorEffect(node, Shaders(vs, fs), colors.Red)
		q := NewQueue()
		q.Push(node)
		frame(t, r, q)

		ub := r.Passes(PassStandard)[0].UniformBuffer(glsl.Vertex)
		s, _, ok := r.uniforms.lookup(ub.ResourceID())
		require.True(t, ok)
		assert.Equal(t, 1, s.(*fakeShadow).uploads)
		assert.Equal(t, ub.Bytes(), s.(*fakeShadow).last)
		assert.False(t, ub.Dirty())

		want := float32(0)
		if ndc == NDCGL {
			want = 1
		}
		assert.Equal(t, want, ub.Float(gfx.RoleGLNDC, 0))

		cam := testCamera{pos: mgl32.Vec3{0, 2, 5}}
		pvm := cam.ProjView().Mul4(node.model)
		assert.Equal(t, pvm[13], ub.Float(gfx.RolePVM, 13))
	}
}

func TestTextureUnitsResetPerPass(t *testing.T) {
	b := newFakeBackend()
	b.units = 1
	r, err := New(b, Options{})
	require.NoError(t, err)
	vs := mustShader(t, "unlit.vert", vertSrc)
	one := mustShader(t, "one.frag", "#version 450\nlayout(binding=1) uniform sampler2D u_albedo;\nvoid main(){}\n")
	two := mustShader(t, "two.frag", "#version 450\nlayout(binding=1) uniform sampler2D u_albedo;\nlayout(binding=2) uniform sampler2D u_detail;\nvoid main(){}\n")
	tex, err := gfx.NewTexture2D(gfx.FormatRGBA8, 1, 1, nil)
	require.NoError(t, err)

	a := newTestNode(t, "a")
	c := newTestNode(t, "c")
	a.effect = NewTextureEffect(a, Shaders(vs, one), tex)
	c.effect = NewTextureEffect(c, Shaders(vs, one), tex)
	q := NewQueue()
	q.Push(a)
	q.Push(c)
	frame(t, r, q)
	assert.Equal(t, 1, r.Units().InUse())

	greedy := newTestNode(t, "greedy")
	greedy.effect = NewCustomEffect("greedy", greedy, func(e *Effect, _ *Renderer) error {
		e.AddPass(NewPass(PassStandard, greedy).SetShaders(Shaders(vs, two)).
			SetTexture(glsl.Fragment, "u_albedo", tex).SetTexture(glsl.Fragment, "u_detail", tex))
		return nil
	})
	q.Reset()
	q.Push(greedy)
	require.NoError(t, r.ComputeGraphicsResources(q))
	assert.ErrorIs(t, r.RenderFrame(q), ErrTextureUnits)
}

func TestFrameEntryPointsNeedCompute(t *testing.T) {
	r, _ := newTestRenderer(t)
	assert.ErrorIs(t, r.UpdateFrame(testCamera{}, 0), ErrNotInitialized)
	assert.ErrorIs(t, r.RenderFrame(NewQueue()), ErrNotInitialized)

	p := NewPass(PassStandard, newTestNode(t, "n"))
	assert.ErrorIs(t, p.RenderNode(0), ErrNotInitialized)
	assert.ErrorIs(t, p.UpdateNode(testCamera{}, 0), ErrNotInitialized)
}

func TestEmptyFrameStillClearsWindow(t *testing.T) {
	r, b := newTestRenderer(t)
	q := NewQueue()
	frame(t, r, q)
	assert.Equal(t, []string{"begin frame", "begin standard", "end standard", "end frame", "present"}, b.calls)
	assert.Equal(t, uint64(1), r.FrameCount())
}

func TestResizeUpdatesStandardPasses(t *testing.T) {
	r, b := newTestRenderer(t)
	vs := mustShader(t, "unlit.vert", vertSrc)
	fs := mustShader(t, "color.frag", colorFragSrc)
	node := newTestNode(t, "n")
	node.effect = NewColorEffect(node, Shaders(vs, fs), colors.Red)
	q := NewQueue()
	q.Push(node)
	frame(t, r, q)

	r.OnWindowResize(1024, 768)
	w, h := r.Passes(PassStandard)[0].Size()
	assert.Equal(t, []int{1024, 768}, []int{w, h})
	assert.Equal(t, 1024, b.w)
}

func TestShutdownReleasesEverything(t *testing.T) {
	r, b := newTestRenderer(t)
	vs := mustShader(t, "unlit.vert", vertSrc)
	colorFS := mustShader(t, "color.frag", colorFragSrc)
	sampleFS := mustShader(t, "mirror.frag", sampleFragSrc)
	mirror := newTestNode(t, "mirror")
	a := newTestNode(t, "a")
	a.effect = NewColorEffect(a, Shaders(vs, colorFS), colors.Red)
	mirror.effect = NewMirrorEffect(mirror, Shaders(vs, sampleFS), Shaders(vs, colorFS), []Node{a}, 0)
	q := NewQueue()
	q.Push(mirror)
	q.Push(a)
	frame(t, r, q)
	require.NotEmpty(t, b.shadows)

	r.Shutdown()
	for _, s := range b.shadows {
		assert.True(t, s.destroyed, s.kind)
	}
	for _, h := range b.handles {
		assert.True(t, h.destroyed)
	}
	assert.True(t, b.shutdown)
	assert.Zero(t, r.shaders.len()+r.textures.len()+r.uniforms.len()+r.vertices.len()+r.targets.len())
	assert.ErrorIs(t, r.SubmitFrame(), ErrNotInitialized)
	assert.ErrorIs(t, r.ComputeGraphicsResources(q), ErrNotInitialized)
	r.Shutdown()
}

func TestQueueSkipsIncompleteNodes(t *testing.T) {
	q := NewQueue()
	bare := newTestNode(t, "bare")
	noGeom := newTestNode(t, "no-geometry")
	noGeom.geom = nil
	noGeom.effect = NewColorEffect(noGeom, ShaderSet{}, colors.Red)
	ok := newTestNode(t, "ok")
	ok.effect = NewColorEffect(ok, ShaderSet{}, colors.Red)

	q.Push(bare)
	q.Push(noGeom)
	q.Push(ok)
	q.PushLight(testLight{NewDirectionalLight(mgl32.Vec3{1, 1, 1}, mgl32.Vec3{})})
	assert.Equal(t, 1, q.Len(BucketOpaque))

	var names []string
	q.ForEach(BucketOpaque, func(rn Renderable) { names = append(names, rn.Node.Name()) })
	assert.Equal(t, []string{"ok"}, names)
	lights := 0
	q.ForEachLight(func(*Light) { lights++ })
	assert.Equal(t, 1, lights)

	q.Reset()
	assert.Zero(t, q.Len(BucketOpaque))
}

func TestArenaGenerations(t *testing.T) {
	a := newArena[Shadow]()
	s1 := &fakeShadow{kind: "one"}
	h1 := a.insert(gfx.ID(1), s1)
	got, ok := a.get(h1)
	require.True(t, ok)
	assert.Same(t, s1, got)

	removed, ok := a.remove(gfx.ID(1))
	require.True(t, ok)
	assert.Same(t, s1, removed)
	_, ok = a.get(h1)
	assert.False(t, ok, "stale handle")
	assert.False(t, a.valid(h1))

	s2 := &fakeShadow{kind: "two"}
	h2 := a.insert(gfx.ID(2), s2)
	assert.NotEqual(t, h1, h2)
	_, ok = a.get(h1)
	assert.False(t, ok)
	got, _, ok = a.lookup(gfx.ID(2))
	require.True(t, ok)
	assert.Same(t, s2, got)

	a.clear()
	assert.True(t, s2.destroyed)
	assert.Zero(t, a.len())
}

func TestTextureUnitsAlloc(t *testing.T) {
	u := NewTextureUnits(2)
	for want := range 2 {
		n, err := u.Alloc()
		require.NoError(t, err)
		assert.Equal(t, want, n)
	}
	_, err := u.Alloc()
	assert.ErrorIs(t, err, ErrTextureUnits)
	u.Reset()
	assert.Zero(t, u.InUse())
}

func TestReflection(t *testing.T) {
	m := Reflection(mgl32.Vec3{0, 1, 0}, 1)
	p := m.Mul4x1(mgl32.Vec4{2, 3, 4, 1})
	assert.InDelta(t, 2, p[0], 1e-6)
	assert.InDelta(t, -1, p[1], 1e-6)
	assert.InDelta(t, 4, p[2], 1e-6)

	// mirroring twice is the identity
	assert.True(t, m.Mul4(m).ApproxEqual(mgl32.Ident4()))
}

func TestPassTypeOrdering(t *testing.T) {
	assert.Equal(t, 2, PassOffscreen.TargetCount())
	assert.Equal(t, 1, PassShadow.TargetCount())
	assert.Equal(t, 0, PassStandard.TargetCount())
	assert.Equal(t, -1, PassType(9).TargetCount())
	for i := 1; i < len(PassTypes); i++ {
		assert.Less(t, PassTypes[i-1], PassTypes[i])
	}
}
