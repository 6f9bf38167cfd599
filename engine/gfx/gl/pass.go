package glbackend

import (
	"fmt"
	"slices"
	"strings"

	"github.com/go-gl/gl/v4.1-core/gl"
	"github.com/hubastard/grove3d/engine/gfx"
	"github.com/hubastard/grove3d/engine/gfx/glsl"
	"github.com/hubastard/grove3d/engine/gfx/render"
)

type uniformBinding struct {
	point  uint32
	buffer *uniformObject
}

type samplerBinding struct {
	name     string
	location int32
	texture  *textureObject
}

// pass is a linked program plus the VAO and framebuffer one render.Pass
// draws with.
type pass struct {
	b *Backend
	p *render.Pass

	program  uint32
	vao      uint32
	fbo      uint32
	uniforms []uniformBinding
	samplers []samplerBinding

	mode      uint32
	indexType uint32
	indexSize int
	indexed   bool
}

func (b *Backend) NewPass(r *render.Renderer, p *render.Pass) (render.PassHandle, error) {
	h := &pass{b: b, p: p}
	steps := []func(*render.Renderer) error{h.link, h.bindUniforms, h.bindSamplers, h.buildVAO, h.buildFBO}
	for _, step := range steps {
		if err := step(r); err != nil {
			h.Destroy()
			return nil, err
		}
	}
	return h, nil
}

func (h *pass) link(r *render.Renderer) error {
	h.program = gl.CreateProgram()
	for stage := glsl.Stage(0); stage < glsl.StagesN; stage++ {
		s := h.p.Shader(stage)
		if s == nil {
			continue
		}
		shadow, err := r.BindShader(s)
		if err != nil {
			return err
		}
		gl.AttachShader(h.program, shadow.(*shaderObject).id)
	}
	gl.LinkProgram(h.program)

	var status int32
	gl.GetProgramiv(h.program, gl.LINK_STATUS, &status)
	if status == gl.FALSE {
		var logLen int32
		gl.GetProgramiv(h.program, gl.INFO_LOG_LENGTH, &logLen)
		log := strings.Repeat("\x00", int(logLen))
		gl.GetProgramInfoLog(h.program, logLen, nil, gl.Str(log))
		return fmt.Errorf("program link error: %s", strings.TrimRight(log, "\x00"))
	}
	return nil
}

// bindUniforms gives each stage's block the binding point of its stage
// index. Blocks of different stages therefore need distinct names.
func (h *pass) bindUniforms(r *render.Renderer) error {
	for stage := glsl.Stage(0); stage < glsl.StagesN; stage++ {
		ub := h.p.UniformBuffer(stage)
		if ub == nil {
			continue
		}
		idx := gl.GetUniformBlockIndex(h.program, gl.Str(ub.Block+"\x00"))
		if idx == gl.INVALID_INDEX {
			// declared but optimized out by the linker
			h.b.log.Warn("uniform block inactive", "block", ub.Block, "stage", stage)
			continue
		}
		point := uint32(stage)
		gl.UniformBlockBinding(h.program, idx, point)
		shadow, err := r.BindUniformBuffer(ub)
		if err != nil {
			return err
		}
		h.uniforms = append(h.uniforms, uniformBinding{point: point, buffer: shadow.(*uniformObject)})
	}
	return nil
}

func (h *pass) bindSamplers(r *render.Renderer) error {
	for stage := glsl.Stage(0); stage < glsl.StagesN; stage++ {
		texs := h.p.Textures(stage)
		names := make([]string, 0, len(texs))
		for name := range texs {
			names = append(names, name)
		}
		slices.Sort(names)
		for _, name := range names {
			loc := gl.GetUniformLocation(h.program, gl.Str(name+"\x00"))
			if loc < 0 {
				h.b.log.Warn("sampler inactive", "sampler", name, "stage", stage)
				continue
			}
			shadow, err := r.BindTexture(texs[name])
			if err != nil {
				return err
			}
			h.samplers = append(h.samplers, samplerBinding{name: name, location: loc, texture: shadow.(*textureObject)})
		}
	}
	return nil
}

// buildVAO points every vertex shader input at its attribute in the
// geometry's interleaved format.
func (h *pass) buildVAO(r *render.Renderer) error {
	var g *gfx.Geometry
	if h.p.Node != nil {
		g = h.p.Node.Geometry()
	}
	if g == nil || g.Vertices == nil {
		return fmt.Errorf("gl: %v pass has no vertex data", h.p.Type)
	}
	h.mode = topology(h.p.State.Topology)
	vs := h.p.Shader(glsl.Vertex)

	vbo, err := r.BindVertexBuffer(g.Vertices)
	if err != nil {
		return err
	}
	gl.GenVertexArrays(1, &h.vao)
	gl.BindVertexArray(h.vao)
	defer gl.BindVertexArray(0)
	gl.BindBuffer(gl.ARRAY_BUFFER, vbo.(*bufferObject).id)

	f := g.Vertices.Format
	for name, in := range vs.Reflection.Inputs {
		attr, ok := glsl.AttributeByName(name)
		if !ok {
			continue
		}
		off, ok := f.Offset(attr)
		if !ok {
			h.b.log.Warn("vertex input missing from geometry", "input", name, "shader", vs.Path)
			continue
		}
		loc := uint32(in.Location)
		gl.EnableVertexAttribArray(loc)
		gl.VertexAttribPointer(loc, int32(f.Components(attr)), gl.FLOAT, false, int32(f.Stride()), gl.PtrOffset(off))
	}
	gl.BindBuffer(gl.ARRAY_BUFFER, 0)

	if g.Indices != nil {
		ibo, err := r.BindIndexBuffer(g.Indices)
		if err != nil {
			return err
		}
		// element array binding is VAO state
		gl.BindBuffer(gl.ELEMENT_ARRAY_BUFFER, ibo.(*bufferObject).id)
		h.indexed = true
		h.indexSize = g.Indices.IndexSize
		h.indexType = indexType(g.Indices.IndexSize)
	}
	return nil
}

func (h *pass) buildFBO(r *render.Renderer) error {
	targets := h.p.Targets()
	if len(targets) == 0 {
		return nil
	}
	gl.GenFramebuffers(1, &h.fbo)
	gl.BindFramebuffer(gl.FRAMEBUFFER, h.fbo)
	defer gl.BindFramebuffer(gl.FRAMEBUFFER, 0)

	hasColor := false
	for _, rt := range targets {
		point := uint32(gl.COLOR_ATTACHMENT0)
		switch {
		case rt.Type == gfx.TargetDepthStencil:
			point = gl.DEPTH_STENCIL_ATTACHMENT
		case rt.Type == gfx.TargetDepth:
			point = gl.DEPTH_ATTACHMENT
		default:
			hasColor = true
		}
		shadow, err := r.BindRenderTarget(rt)
		if err != nil {
			return err
		}
		if rt.Sampled() {
			tex, err := r.BindTexture(rt.Texture)
			if err != nil {
				return err
			}
			gl.FramebufferTexture2D(gl.FRAMEBUFFER, point, gl.TEXTURE_2D, tex.(*textureObject).id, 0)
		} else {
			gl.FramebufferRenderbuffer(gl.FRAMEBUFFER, point, gl.RENDERBUFFER, shadow.(*targetObject).rbo)
		}
	}
	if !hasColor {
		gl.DrawBuffer(gl.NONE)
		gl.ReadBuffer(gl.NONE)
	}
	if status := gl.CheckFramebufferStatus(gl.FRAMEBUFFER); status != gl.FRAMEBUFFER_COMPLETE {
		return fmt.Errorf("gl: %v pass framebuffer incomplete: 0x%04x", h.p.Type, status)
	}
	return nil
}

// Bind makes the pass current. GL keeps no per-pass state, so everything the
// pass depends on is applied again here.
func (h *pass) Bind(_ int, units *render.TextureUnits) error {
	w, ht := h.p.Size()
	if h.fbo != 0 {
		gl.BindFramebuffer(gl.FRAMEBUFFER, h.fbo)
		gl.Viewport(0, 0, int32(w), int32(ht))
		if h.p.Clears() {
			hasColor, hasStencil := false, false
			for _, rt := range h.p.Targets() {
				hasColor = hasColor || rt.Type == gfx.TargetColor
				hasStencil = hasStencil || rt.Type == gfx.TargetDepthStencil
			}
			clearTarget(h.p.ClearColor, hasColor, true, hasStencil)
		}
	} else {
		gl.Viewport(0, 0, int32(w), int32(ht))
	}
	applyState(h.p.State)

	gl.UseProgram(h.program)
	for _, u := range h.uniforms {
		gl.BindBufferBase(gl.UNIFORM_BUFFER, u.point, u.buffer.id)
	}
	for _, s := range h.samplers {
		unit, err := units.Alloc()
		if err != nil {
			return fmt.Errorf("sampler %q: %w", s.name, err)
		}
		gl.ActiveTexture(gl.TEXTURE0 + uint32(unit))
		gl.BindTexture(s.texture.target, s.texture.id)
		gl.Uniform1i(s.location, int32(unit))
	}
	gl.BindVertexArray(h.vao)
	if h.mode == gl.PATCHES {
		gl.PatchParameteri(gl.PATCH_VERTICES, 3)
	}
	return nil
}

func (h *pass) Draw(first, count int) {
	if count <= 0 {
		return
	}
	if h.indexed {
		gl.DrawElements(h.mode, int32(count), h.indexType, gl.PtrOffset(first*h.indexSize))
		return
	}
	gl.DrawArrays(h.mode, int32(first), int32(count))
}

func (h *pass) Destroy() {
	if h.fbo != 0 {
		gl.DeleteFramebuffers(1, &h.fbo)
		h.fbo = 0
	}
	if h.vao != 0 {
		gl.DeleteVertexArrays(1, &h.vao)
		h.vao = 0
	}
	if h.program != 0 {
		gl.DeleteProgram(h.program)
		h.program = 0
	}
}

func applyState(s gfx.PipelineState) {
	if s.Cull.Enabled {
		gl.Enable(gl.CULL_FACE)
		gl.CullFace(cullFace(s.Cull.Mode))
	} else {
		gl.Disable(gl.CULL_FACE)
	}
	gl.FrontFace(frontFace(s.Cull.Front))

	ds := s.DepthStencil
	if ds.DepthTest {
		gl.Enable(gl.DEPTH_TEST)
		gl.DepthFunc(compareOp(ds.DepthCompare))
	} else {
		gl.Disable(gl.DEPTH_TEST)
	}
	gl.DepthMask(ds.DepthWrite)

	if ds.StencilTest {
		gl.Enable(gl.STENCIL_TEST)
		gl.StencilFuncSeparate(gl.FRONT, compareOp(ds.Front.Compare), int32(ds.Reference), ds.ReadMask)
		gl.StencilFuncSeparate(gl.BACK, compareOp(ds.Back.Compare), int32(ds.Reference), ds.ReadMask)
		gl.StencilOpSeparate(gl.FRONT, stencilOp(ds.Front.Fail), stencilOp(ds.Front.DepthFail), stencilOp(ds.Front.Pass))
		gl.StencilOpSeparate(gl.BACK, stencilOp(ds.Back.Fail), stencilOp(ds.Back.DepthFail), stencilOp(ds.Back.Pass))
		gl.StencilMask(ds.WriteMask)
	} else {
		gl.Disable(gl.STENCIL_TEST)
	}

	bs := s.Blend
	if bs.Enabled {
		gl.Enable(gl.BLEND)
		gl.BlendFuncSeparate(blendFactor(bs.SrcColor), blendFactor(bs.DstColor), blendFactor(bs.SrcAlpha), blendFactor(bs.DstAlpha))
		gl.BlendEquationSeparate(blendOp(bs.ColorOp), blendOp(bs.AlphaOp))
	} else {
		gl.Disable(gl.BLEND)
	}

	dyn := s.Dynamic
	if dyn.DepthBias {
		gl.Enable(gl.POLYGON_OFFSET_FILL)
		gl.PolygonOffset(dyn.DepthBiasSlope, dyn.DepthBiasConstant)
	} else {
		gl.Disable(gl.POLYGON_OFFSET_FILL)
	}
	if dyn.LineWidth > 0 {
		gl.LineWidth(dyn.LineWidth)
	}
}
