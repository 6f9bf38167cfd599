package glbackend

import (
	"fmt"

	"github.com/go-gl/gl/v4.1-core/gl"
	"github.com/hubastard/grove3d/engine/core"
	"github.com/hubastard/grove3d/engine/gfx"
	"github.com/hubastard/grove3d/engine/gfx/glsl"
)

// Every switch below covers its enum up to the ...N sentinel. Anything else
// is logged and becomes gl.INVALID_ENUM, which GL rejects at the call site.

func unmapped(v any) uint32 {
	core.Logger().Error("unmapped enum value", "backend", "gl", "type", fmt.Sprintf("%T", v), "value", v)
	return gl.INVALID_ENUM
}

func shaderType(s glsl.Stage) uint32 {
	switch s {
	case glsl.Vertex:
		return gl.VERTEX_SHADER
	case glsl.TessControl:
		return gl.TESS_CONTROL_SHADER
	case glsl.TessEval:
		return gl.TESS_EVALUATION_SHADER
	case glsl.Geometry:
		return gl.GEOMETRY_SHADER
	case glsl.Fragment:
		return gl.FRAGMENT_SHADER
	}
	return unmapped(s)
}

func textureTarget(t gfx.TextureType) uint32 {
	switch t {
	case gfx.Texture1D:
		return gl.TEXTURE_1D
	case gfx.Texture2D:
		return gl.TEXTURE_2D
	case gfx.Texture2DArray:
		return gl.TEXTURE_2D_ARRAY
	case gfx.TextureCube:
		return gl.TEXTURE_CUBE_MAP
	case gfx.Texture3D:
		return gl.TEXTURE_3D
	}
	return unmapped(t)
}

// pixelFormat is the (internal format, format, type) triple of a TexImage call.
type pixelFormat struct {
	internal int32
	format   uint32
	xtype    uint32
}

func texFormat(f gfx.TextureFormat) pixelFormat {
	switch f {
	case gfx.FormatR8:
		return pixelFormat{gl.R8, gl.RED, gl.UNSIGNED_BYTE}
	case gfx.FormatRG8:
		return pixelFormat{gl.RG8, gl.RG, gl.UNSIGNED_BYTE}
	case gfx.FormatRGBA8:
		return pixelFormat{gl.RGBA8, gl.RGBA, gl.UNSIGNED_BYTE}
	case gfx.FormatSRGBA8:
		return pixelFormat{gl.SRGB8_ALPHA8, gl.RGBA, gl.UNSIGNED_BYTE}
	case gfx.FormatR16F:
		return pixelFormat{gl.R16F, gl.RED, gl.HALF_FLOAT}
	case gfx.FormatRGBA16F:
		return pixelFormat{gl.RGBA16F, gl.RGBA, gl.HALF_FLOAT}
	case gfx.FormatR32F:
		return pixelFormat{gl.R32F, gl.RED, gl.FLOAT}
	case gfx.FormatRGBA32F:
		return pixelFormat{gl.RGBA32F, gl.RGBA, gl.FLOAT}
	case gfx.FormatDepth16:
		return pixelFormat{gl.DEPTH_COMPONENT16, gl.DEPTH_COMPONENT, gl.UNSIGNED_SHORT}
	case gfx.FormatDepth32F:
		return pixelFormat{gl.DEPTH_COMPONENT32F, gl.DEPTH_COMPONENT, gl.FLOAT}
	case gfx.FormatDepth24Stencil8:
		return pixelFormat{gl.DEPTH24_STENCIL8, gl.DEPTH_STENCIL, gl.UNSIGNED_INT_24_8}
	}
	bad := unmapped(f)
	return pixelFormat{int32(bad), bad, bad}
}

func wrapMode(w gfx.WrapMode) int32 {
	switch w {
	case gfx.WrapRepeat:
		return gl.REPEAT
	case gfx.WrapMirroredRepeat:
		return gl.MIRRORED_REPEAT
	case gfx.WrapClampToEdge:
		return gl.CLAMP_TO_EDGE
	case gfx.WrapClampToBorder:
		return gl.CLAMP_TO_BORDER
	}
	return int32(unmapped(w))
}

func magFilter(f gfx.FilterMode) int32 {
	switch f {
	case gfx.FilterNearest:
		return gl.NEAREST
	case gfx.FilterLinear:
		return gl.LINEAR
	}
	return int32(unmapped(f))
}

// minFilter folds the mip mode into the minification filter.
func minFilter(f gfx.FilterMode, m gfx.MipmapMode) int32 {
	switch m {
	case gfx.MipNone:
		return magFilter(f)
	case gfx.MipNearest:
		switch f {
		case gfx.FilterNearest:
			return gl.NEAREST_MIPMAP_NEAREST
		case gfx.FilterLinear:
			return gl.LINEAR_MIPMAP_NEAREST
		}
		return int32(unmapped(f))
	case gfx.MipLinear:
		switch f {
		case gfx.FilterNearest:
			return gl.NEAREST_MIPMAP_LINEAR
		case gfx.FilterLinear:
			return gl.LINEAR_MIPMAP_LINEAR
		}
		return int32(unmapped(f))
	}
	return int32(unmapped(m))
}

func blendFactor(b gfx.BlendFactor) uint32 {
	switch b {
	case gfx.BlendZero:
		return gl.ZERO
	case gfx.BlendOne:
		return gl.ONE
	case gfx.BlendSrcColor:
		return gl.SRC_COLOR
	case gfx.BlendOneMinusSrcColor:
		return gl.ONE_MINUS_SRC_COLOR
	case gfx.BlendDstColor:
		return gl.DST_COLOR
	case gfx.BlendOneMinusDstColor:
		return gl.ONE_MINUS_DST_COLOR
	case gfx.BlendSrcAlpha:
		return gl.SRC_ALPHA
	case gfx.BlendOneMinusSrcAlpha:
		return gl.ONE_MINUS_SRC_ALPHA
	case gfx.BlendDstAlpha:
		return gl.DST_ALPHA
	case gfx.BlendOneMinusDstAlpha:
		return gl.ONE_MINUS_DST_ALPHA
	case gfx.BlendConstantColor:
		return gl.CONSTANT_COLOR
	case gfx.BlendOneMinusConstantColor:
		return gl.ONE_MINUS_CONSTANT_COLOR
	case gfx.BlendSrcAlphaSaturate:
		return gl.SRC_ALPHA_SATURATE
	}
	return unmapped(b)
}

func blendOp(b gfx.BlendOp) uint32 {
	switch b {
	case gfx.BlendOpAdd:
		return gl.FUNC_ADD
	case gfx.BlendOpSubtract:
		return gl.FUNC_SUBTRACT
	case gfx.BlendOpReverseSubtract:
		return gl.FUNC_REVERSE_SUBTRACT
	case gfx.BlendOpMin:
		return gl.MIN
	case gfx.BlendOpMax:
		return gl.MAX
	}
	return unmapped(b)
}

func compareOp(c gfx.CompareOp) uint32 {
	switch c {
	case gfx.CompareNever:
		return gl.NEVER
	case gfx.CompareLess:
		return gl.LESS
	case gfx.CompareEqual:
		return gl.EQUAL
	case gfx.CompareLessEqual:
		return gl.LEQUAL
	case gfx.CompareGreater:
		return gl.GREATER
	case gfx.CompareNotEqual:
		return gl.NOTEQUAL
	case gfx.CompareGreaterEqual:
		return gl.GEQUAL
	case gfx.CompareAlways:
		return gl.ALWAYS
	}
	return unmapped(c)
}

func stencilOp(s gfx.StencilOp) uint32 {
	switch s {
	case gfx.StencilKeep:
		return gl.KEEP
	case gfx.StencilZero:
		return gl.ZERO
	case gfx.StencilReplace:
		return gl.REPLACE
	case gfx.StencilIncrClamp:
		return gl.INCR
	case gfx.StencilDecrClamp:
		return gl.DECR
	case gfx.StencilInvert:
		return gl.INVERT
	case gfx.StencilIncrWrap:
		return gl.INCR_WRAP
	case gfx.StencilDecrWrap:
		return gl.DECR_WRAP
	}
	return unmapped(s)
}

func topology(t gfx.Topology) uint32 {
	switch t {
	case gfx.TopologyTriangles:
		return gl.TRIANGLES
	case gfx.TopologyTriangleStrip:
		return gl.TRIANGLE_STRIP
	case gfx.TopologyTriangleFan:
		return gl.TRIANGLE_FAN
	case gfx.TopologyLines:
		return gl.LINES
	case gfx.TopologyLineStrip:
		return gl.LINE_STRIP
	case gfx.TopologyPoints:
		return gl.POINTS
	case gfx.TopologyPatches:
		return gl.PATCHES
	}
	return unmapped(t)
}

func frontFace(w gfx.Winding) uint32 {
	switch w {
	case gfx.WindingCCW:
		return gl.CCW
	case gfx.WindingCW:
		return gl.CW
	}
	return unmapped(w)
}

func cullFace(c gfx.CullMode) uint32 {
	switch c {
	case gfx.CullBack:
		return gl.BACK
	case gfx.CullFront:
		return gl.FRONT
	case gfx.CullFrontAndBack:
		return gl.FRONT_AND_BACK
	}
	return unmapped(c)
}

func indexType(size int) uint32 {
	switch size {
	case 2:
		return gl.UNSIGNED_SHORT
	case 4:
		return gl.UNSIGNED_INT
	}
	return unmapped(size)
}
