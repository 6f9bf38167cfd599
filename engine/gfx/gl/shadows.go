package glbackend

import (
	"fmt"
	"strings"
	"unsafe"

	"github.com/go-gl/gl/v4.1-core/gl"
	"github.com/hubastard/grove3d/engine/gfx"
	"github.com/hubastard/grove3d/engine/gfx/render"
)

type shaderObject struct {
	id    uint32
	stage uint32
}

func (s *shaderObject) Destroy() { gl.DeleteShader(s.id) }

func (b *Backend) NewShader(s *gfx.Shader) (render.Shadow, error) {
	typ := shaderType(s.Stage())
	id, err := makeShader(Source(s), typ)
	if err != nil {
		b.log.Error("shader compile failed", "shader", s.Path, "err", err)
		return nil, fmt.Errorf("gl: %s: %w", s.Path, err)
	}
	b.log.Debug("shader compiled", "shader", s.Path)
	return &shaderObject{id: id, stage: typ}, nil
}

func makeShader(src string, shaderType uint32) (uint32, error) {
	sh := gl.CreateShader(shaderType)
	csrc, free := gl.Strs(src + "\x00")
	defer free()
	gl.ShaderSource(sh, 1, csrc, nil)
	gl.CompileShader(sh)

	var status int32
	gl.GetShaderiv(sh, gl.COMPILE_STATUS, &status)
	if status == gl.FALSE {
		var logLen int32
		gl.GetShaderiv(sh, gl.INFO_LOG_LENGTH, &logLen)
		log := strings.Repeat("\x00", int(logLen))
		gl.GetShaderInfoLog(sh, logLen, nil, gl.Str(log))
		gl.DeleteShader(sh)
		return 0, fmt.Errorf("shader compile error: %s", strings.TrimRight(log, "\x00"))
	}
	return sh, nil
}

type textureObject struct {
	id     uint32
	target uint32
}

func (t *textureObject) Destroy() { gl.DeleteTextures(1, &t.id) }

// NewTexture allocates every level of t and uploads its pixels when it has
// any. Textures without pixels are render storage.
func (b *Backend) NewTexture(t *gfx.Texture) (render.Shadow, error) {
	target := textureTarget(t.Type)
	pf := texFormat(t.Format)
	if target == gl.INVALID_ENUM || pf.format == gl.INVALID_ENUM {
		return nil, fmt.Errorf("gl: unsupported %v %v texture", t.Type, t.Format)
	}
	tex := &textureObject{target: target}
	gl.GenTextures(1, &tex.id)
	gl.BindTexture(target, tex.id)
	defer gl.BindTexture(target, 0)

	mips := t.MipLevels()
	for mip := 0; mip < mips; mip++ {
		w, h, d := max(t.Width>>mip, 1), max(t.Height>>mip, 1), max(t.Depth>>mip, 1)
		allocLevel(t, target, pf, int32(mip), int32(w), int32(h), int32(d))
	}
	if t.Pixels != nil {
		for _, l := range t.Levels {
			uploadLevel(t, target, pf, l)
		}
	}

	gl.TexParameteri(target, gl.TEXTURE_WRAP_S, wrapMode(t.Wrap[0]))
	if t.Type != gfx.Texture1D {
		gl.TexParameteri(target, gl.TEXTURE_WRAP_T, wrapMode(t.Wrap[1]))
	}
	if t.Type == gfx.Texture3D || t.Type == gfx.TextureCube {
		gl.TexParameteri(target, gl.TEXTURE_WRAP_R, wrapMode(t.Wrap[2]))
	}
	mip := t.Mipmap
	if mips == 1 {
		mip = gfx.MipNone
	}
	gl.TexParameteri(target, gl.TEXTURE_MIN_FILTER, minFilter(t.MinFilter, mip))
	gl.TexParameteri(target, gl.TEXTURE_MAG_FILTER, magFilter(t.MagFilter))
	gl.TexParameteri(target, gl.TEXTURE_MAX_LEVEL, int32(mips-1))
	if t.GenerateMips && t.Pixels != nil {
		gl.GenerateMipmap(target)
	}
	b.log.Debug("texture created", "type", t.Type, "format", t.Format, "width", t.Width, "height", t.Height, "mips", mips)
	return tex, nil
}

// allocLevel reserves storage for one mip of every layer.
func allocLevel(t *gfx.Texture, target uint32, pf pixelFormat, mip, w, h, d int32) {
	switch t.Type {
	case gfx.Texture1D:
		gl.TexImage1D(target, mip, pf.internal, w, 0, pf.format, pf.xtype, nil)
	case gfx.Texture2D:
		gl.TexImage2D(target, mip, pf.internal, w, h, 0, pf.format, pf.xtype, nil)
	case gfx.Texture2DArray:
		gl.TexImage3D(target, mip, pf.internal, w, h, int32(t.Layers), 0, pf.format, pf.xtype, nil)
	case gfx.TextureCube:
		for face := uint32(0); face < 6; face++ {
			gl.TexImage2D(gl.TEXTURE_CUBE_MAP_POSITIVE_X+face, mip, pf.internal, w, h, 0, pf.format, pf.xtype, nil)
		}
	case gfx.Texture3D:
		gl.TexImage3D(target, mip, pf.internal, w, h, d, 0, pf.format, pf.xtype, nil)
	}
}

func uploadLevel(t *gfx.Texture, target uint32, pf pixelFormat, l gfx.Level) {
	if l.Offset+l.Size > len(t.Pixels) {
		return
	}
	pix := gl.Ptr(&t.Pixels[l.Offset])
	mip, w, h, d := int32(l.Mip), int32(l.Width), int32(l.Height), int32(l.Depth)
	switch t.Type {
	case gfx.Texture1D:
		gl.TexSubImage1D(target, mip, 0, w, pf.format, pf.xtype, pix)
	case gfx.Texture2D:
		gl.TexSubImage2D(target, mip, 0, 0, w, h, pf.format, pf.xtype, pix)
	case gfx.Texture2DArray:
		gl.TexSubImage3D(target, mip, 0, 0, int32(l.Layer), w, h, 1, pf.format, pf.xtype, pix)
	case gfx.TextureCube:
		gl.TexSubImage2D(gl.TEXTURE_CUBE_MAP_POSITIVE_X+uint32(l.Layer), mip, 0, 0, w, h, pf.format, pf.xtype, pix)
	case gfx.Texture3D:
		gl.TexSubImage3D(target, mip, 0, 0, 0, w, h, d, pf.format, pf.xtype, pix)
	}
}

type bufferObject struct {
	id   uint32
	size int
}

func (o *bufferObject) Destroy() { gl.DeleteBuffers(1, &o.id) }

// newBuffer uploads data through the array buffer target; GL buffers are
// untyped, so index data is bound as element array later, inside a VAO.
func newBuffer(data []byte, usage uint32) *bufferObject {
	o := &bufferObject{size: len(data)}
	gl.GenBuffers(1, &o.id)
	gl.BindBuffer(gl.ARRAY_BUFFER, o.id)
	var ptr unsafe.Pointer
	if len(data) > 0 {
		ptr = gl.Ptr(data)
	}
	gl.BufferData(gl.ARRAY_BUFFER, len(data), ptr, usage)
	gl.BindBuffer(gl.ARRAY_BUFFER, 0)
	return o
}

func (b *Backend) NewVertexBuffer(vb *gfx.VertexBuffer) (render.Shadow, error) {
	if len(vb.Data) == 0 {
		return nil, fmt.Errorf("gl: empty vertex buffer")
	}
	return newBuffer(vb.Data, gl.STATIC_DRAW), nil
}

func (b *Backend) NewIndexBuffer(ib *gfx.IndexBuffer) (render.Shadow, error) {
	if len(ib.Data) == 0 {
		return nil, fmt.Errorf("gl: empty index buffer")
	}
	return newBuffer(ib.Data, gl.STATIC_DRAW), nil
}

// uniformObject is a UBO sized to the std140 block.
type uniformObject struct {
	bufferObject
}

func (b *Backend) NewUniformBuffer(ub *gfx.UniformBuffer) (render.UniformBufferShadow, error) {
	if ub.Size() == 0 {
		return nil, fmt.Errorf("gl: uniform block %q is empty", ub.Block)
	}
	o := &uniformObject{bufferObject{size: ub.Size()}}
	gl.GenBuffers(1, &o.id)
	gl.BindBuffer(gl.UNIFORM_BUFFER, o.id)
	gl.BufferData(gl.UNIFORM_BUFFER, o.size, nil, gl.DYNAMIC_DRAW)
	gl.BindBuffer(gl.UNIFORM_BUFFER, 0)
	return o, nil
}

// Upload writes the whole block through a mapping that invalidates the
// previous contents, so the driver need not wait on draws still reading it.
func (o *uniformObject) Upload(ub *gfx.UniformBuffer) error {
	data := ub.Bytes()
	if len(data) != o.size {
		return fmt.Errorf("gl: uniform block %q is %d bytes, buffer holds %d", ub.Block, len(data), o.size)
	}
	gl.BindBuffer(gl.UNIFORM_BUFFER, o.id)
	defer gl.BindBuffer(gl.UNIFORM_BUFFER, 0)
	ptr := gl.MapBufferRange(gl.UNIFORM_BUFFER, 0, o.size, gl.MAP_WRITE_BIT|gl.MAP_INVALIDATE_BUFFER_BIT)
	if ptr == nil {
		return fmt.Errorf("gl: map uniform block %q failed", ub.Block)
	}
	copy(unsafe.Slice((*byte)(ptr), o.size), data)
	if !gl.UnmapBuffer(gl.UNIFORM_BUFFER) {
		return fmt.Errorf("gl: uniform block %q was corrupted while mapped", ub.Block)
	}
	return nil
}

// targetObject backs a render target nothing samples with a renderbuffer.
// Sampled targets attach the texture the renderer caches for rt.Texture, so
// the attachment and the sampled image are one object.
type targetObject struct {
	rbo uint32
}

func (o *targetObject) Destroy() {
	if o.rbo != 0 {
		gl.DeleteRenderbuffers(1, &o.rbo)
	}
}

func (b *Backend) NewRenderTarget(rt *gfx.RenderTarget) (render.Shadow, error) {
	o := &targetObject{}
	if rt.Sampled() {
		return o, nil
	}
	pf := texFormat(rt.Texture.Format)
	if pf.format == gl.INVALID_ENUM {
		return nil, fmt.Errorf("gl: unsupported render target format %v", rt.Texture.Format)
	}
	gl.GenRenderbuffers(1, &o.rbo)
	gl.BindRenderbuffer(gl.RENDERBUFFER, o.rbo)
	gl.RenderbufferStorage(gl.RENDERBUFFER, uint32(pf.internal), int32(rt.Width()), int32(rt.Height()))
	gl.BindRenderbuffer(gl.RENDERBUFFER, 0)
	return o, nil
}
