package render

import (
	"fmt"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/hubastard/grove3d/engine/colors"
	"github.com/hubastard/grove3d/engine/gfx"
	"github.com/stretchr/testify/require"
)

// fakeBackend records every call so tests can check submission order.
type fakeBackend struct {
	calls    []string
	ndc      NDC
	units    int
	w, h     int
	handles  []*fakePass
	shadows  []*fakeShadow
	shutdown bool
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{units: 16, w: 640, h: 480}
}

func (b *fakeBackend) record(format string, args ...any) {
	b.calls = append(b.calls, fmt.Sprintf(format, args...))
}

func (b *fakeBackend) Name() string                { return "fake" }
func (b *fakeBackend) Init() error                 { return nil }
func (b *fakeBackend) FramebufferSize() (int, int) { return b.w, b.h }
func (b *fakeBackend) NDC() NDC                    { return b.ndc }
func (b *fakeBackend) MaxTextureUnits() int        { return b.units }
func (b *fakeBackend) BeginFrame() (int, error)    { b.record("begin frame"); return 0, nil }
func (b *fakeBackend) EndFrame() error             { b.record("end frame"); return nil }
func (b *fakeBackend) Present() error              { b.record("present"); return nil }
func (b *fakeBackend) Resize(w, h int)             { b.w, b.h = w, h }
func (b *fakeBackend) Shutdown()                   { b.shutdown = true }

func (b *fakeBackend) BeginRenderPass(pt PassType, _ colors.Color) error {
	b.record("begin %v", pt)
	return nil
}

func (b *fakeBackend) EndRenderPass(pt PassType) error {
	b.record("end %v", pt)
	return nil
}

// NewPass binds everything the pass uses, the way the real backends do.
func (b *fakeBackend) NewPass(r *Renderer, p *Pass) (PassHandle, error) {
	for _, s := range p.shaders {
		if s == nil {
			continue
		}
		if _, err := r.BindShader(s); err != nil {
			return nil, err
		}
	}
	for _, texs := range p.textures {
		for _, t := range texs {
			if _, err := r.BindTexture(t); err != nil {
				return nil, err
			}
		}
	}
	for _, rt := range p.targets {
		if _, err := r.BindRenderTarget(rt); err != nil {
			return nil, err
		}
	}
	if g := p.geometry(); g != nil {
		if _, err := r.BindVertexBuffer(g.Vertices); err != nil {
			return nil, err
		}
	}
	h := &fakePass{b: b, p: p}
	b.handles = append(b.handles, h)
	return h, nil
}

func (b *fakeBackend) newShadow(kind string) *fakeShadow {
	s := &fakeShadow{kind: kind}
	b.shadows = append(b.shadows, s)
	return s
}

func (b *fakeBackend) NewShader(*gfx.Shader) (Shadow, error)   { return b.newShadow("shader"), nil }
func (b *fakeBackend) NewTexture(*gfx.Texture) (Shadow, error) { return b.newShadow("texture"), nil }
func (b *fakeBackend) NewVertexBuffer(*gfx.VertexBuffer) (Shadow, error) {
	return b.newShadow("vertices"), nil
}
func (b *fakeBackend) NewIndexBuffer(*gfx.IndexBuffer) (Shadow, error) {
	return b.newShadow("indices"), nil
}
func (b *fakeBackend) NewRenderTarget(*gfx.RenderTarget) (Shadow, error) {
	return b.newShadow("target"), nil
}
func (b *fakeBackend) NewUniformBuffer(*gfx.UniformBuffer) (UniformBufferShadow, error) {
	return b.newShadow("uniforms"), nil
}

type fakeShadow struct {
	kind      string
	destroyed bool
	uploads   int
	last      []byte
}

func (s *fakeShadow) Destroy() { s.destroyed = true }

func (s *fakeShadow) Upload(ub *gfx.UniformBuffer) error {
	s.uploads++
	s.last = append(s.last[:0], ub.Bytes()...)
	return nil
}

type fakePass struct {
	b         *fakeBackend
	p         *Pass
	destroyed bool
}

func (h *fakePass) Bind(_ int, units *TextureUnits) error {
	for _, texs := range h.p.textures {
		for range texs {
			if _, err := units.Alloc(); err != nil {
				return err
			}
		}
	}
	op := "load"
	if h.p.Clears() {
		op = "clear"
	}
	h.b.record("bind %v %s %s", h.p.Type, h.p.nodeName(), op)
	return nil
}

func (h *fakePass) Draw(first, count int) { h.b.record("draw %s %d %d", h.p.nodeName(), first, count) }
func (h *fakePass) Destroy()              { h.destroyed = true }

// testNode implements Node.
type testNode struct {
	name    string
	geom    *gfx.Geometry
	effect  *Effect
	model   mgl32.Mat4
	lit     bool
	allowed map[PassType]bool
}

func newTestNode(t *testing.T, name string) *testNode {
	t.Helper()
	vb, err := gfx.NewVertexBuffer(gfx.VertexPC, gfx.Float32Bytes(make([]float32, 7*3)))
	require.NoError(t, err)
	return &testNode{
		name:    name,
		geom:    &gfx.Geometry{Vertices: vb},
		model:   mgl32.Ident4(),
		allowed: map[PassType]bool{},
	}
}

func (n *testNode) Name() string                { return n.name }
func (n *testNode) Geometry() *gfx.Geometry     { return n.geom }
func (n *testNode) Effect() *Effect             { return n.effect }
func (n *testNode) Transform() mgl32.Mat4       { return n.model }
func (n *testNode) Lit() bool                   { return n.lit }
func (n *testNode) SetLit(lit bool)             { n.lit = lit }
func (n *testNode) AllowsPass(pt PassType) bool { return n.allowed[pt] }
func (n *testNode) AllowPass(pt PassType)       { n.allowed[pt] = true }

type testCamera struct{ pos mgl32.Vec3 }

func (c testCamera) ProjView() mgl32.Mat4 {
	return mgl32.Perspective(mgl32.DegToRad(60), 4.0/3, 0.1, 100).Mul4(mgl32.LookAtV(c.pos, mgl32.Vec3{}, mgl32.Vec3{0, 1, 0}))
}
func (c testCamera) Position() mgl32.Vec3 { return c.pos }

const (
	vertSrc = `#version 450
layout(location = 0) in vec3 a_position;
layout(location = 3) in vec4 a_color;
layout(location = 0) out vec4 v_color;
layout(set = 0, binding = 0) uniform Transform { mat4 u_pvm; float u_glNDC; };
void main() { v_color = a_color; gl_Position = u_pvm * vec4(a_position, 1.0); }
`
	colorFragSrc = `#version 450
layout(location = 0) out vec4 o_color;
layout(set=0,binding=0) uniform UBO { vec4 u_color; };
void main() { o_color = u_color; }
`
	sampleFragSrc = `#version 450
layout(location = 0) in vec4 v_color;
layout(location = 0) out vec4 o_color;
layout(set = 0, binding = 1) uniform sampler2D u_mirror;
void main() { o_color = v_color; }
`
	shadowVertSrc = `#version 450
layout(location = 0) in vec3 a_position;
layout(set = 0, binding = 0) uniform Shadow { mat4 u_lightPVM; };
void main() { gl_Position = u_lightPVM * vec4(a_position, 1.0); }
`
	emptyFragSrc = `#version 450
void main() {}
`
)

func mustShader(t *testing.T, path, src string) *gfx.Shader {
	t.Helper()
	s, err := gfx.NewShader(path, src)
	require.NoError(t, err)
	return s
}

func newTestRenderer(t *testing.T) (*Renderer, *fakeBackend) {
	t.Helper()
	b := newFakeBackend()
	r, err := New(b, Options{ClearColor: colors.Black, ShadowMapSize: 64, OffscreenSize: 32})
	require.NoError(t, err)
	return r, b
}

// frame runs one full frame over q.
func frame(t *testing.T, r *Renderer, q *Queue) {
	t.Helper()
	require.NoError(t, r.ComputeGraphicsResources(q))
	require.NoError(t, r.UpdateFrame(testCamera{pos: mgl32.Vec3{0, 2, 5}}, 1))
	require.NoError(t, r.RenderFrame(q))
	require.NoError(t, r.SubmitFrame())
}
