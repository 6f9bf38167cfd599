package render

import (
	"github.com/hubastard/grove3d/engine/colors"
	"github.com/hubastard/grove3d/engine/gfx"
)

// NDC is the clip-space convention a backend rasterizes with. Shaders read it
// through the u_glNDC role and adjust gl_Position themselves.
type NDC int32

const (
	NDCGL     NDC = iota // y up, depth -1..1
	NDCNative            // y down, depth 0..1
)

// Shadow is the backend-native stand-in for one engine resource. The renderer
// owns every shadow and destroys it on UnBind or Shutdown.
type Shadow interface {
	Destroy()
}

// UniformBufferShadow receives the engine buffer contents every frame they
// change.
type UniformBufferShadow interface {
	Shadow
	Upload(ub *gfx.UniformBuffer) error
}

// PassHandle is the materialized form of a Pass.
type PassHandle interface {
	// Bind makes the pass current for frame buffer bufferIndex: render target,
	// program or pipeline, fixed-function state where the API needs it,
	// textures on units taken from units, uniform and vertex buffers.
	Bind(bufferIndex int, units *TextureUnits) error
	// Draw issues an indexed or non-indexed draw of count elements from first.
	Draw(first, count int)
	Destroy()
}

// Backend is a GPU API realization selected at runtime.
type Backend interface {
	Name() string
	Init() error
	FramebufferSize() (int, int)
	NDC() NDC
	MaxTextureUnits() int

	// BeginFrame starts recording work for one frame and returns the index of
	// the frame buffer it targets.
	BeginFrame() (int, error)
	// BeginRenderPass opens the bucket of pass type pt. The Standard bucket
	// targets the window and clears it with clear.
	BeginRenderPass(pt PassType, clear colors.Color) error
	EndRenderPass(pt PassType) error
	EndFrame() error
	Present() error
	Resize(w, h int)
	Shutdown()

	NewPass(r *Renderer, p *Pass) (PassHandle, error)
	NewShader(s *gfx.Shader) (Shadow, error)
	NewTexture(t *gfx.Texture) (Shadow, error)
	NewUniformBuffer(ub *gfx.UniformBuffer) (UniformBufferShadow, error)
	NewVertexBuffer(vb *gfx.VertexBuffer) (Shadow, error)
	NewIndexBuffer(ib *gfx.IndexBuffer) (Shadow, error)
	NewRenderTarget(rt *gfx.RenderTarget) (Shadow, error)
}
