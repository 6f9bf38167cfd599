package vkbackend

import (
	"fmt"

	vk "github.com/goki/vulkan"
	"github.com/hubastard/grove3d/engine/core"
	"github.com/hubastard/grove3d/engine/gfx"
	"github.com/hubastard/grove3d/engine/gfx/glsl"
)

// invalid is the value every translation returns for an out of range enum.
// It is the MAX_ENUM of the Vulkan headers, which no create call accepts.
const invalid = 0x7fffffff

func unmapped(v any) {
	core.Logger().Error("unmapped enum value", "backend", "vulkan", "type", fmt.Sprintf("%T", v), "value", v)
}

func shaderStage(s glsl.Stage) vk.ShaderStageFlagBits {
	switch s {
	case glsl.Vertex:
		return vk.ShaderStageVertexBit
	case glsl.TessControl:
		return vk.ShaderStageTessellationControlBit
	case glsl.TessEval:
		return vk.ShaderStageTessellationEvaluationBit
	case glsl.Geometry:
		return vk.ShaderStageGeometryBit
	case glsl.Fragment:
		return vk.ShaderStageFragmentBit
	}
	unmapped(s)
	return invalid
}

func imageType(t gfx.TextureType) vk.ImageType {
	switch t {
	case gfx.Texture1D:
		return vk.ImageType1d
	case gfx.Texture2D, gfx.Texture2DArray, gfx.TextureCube:
		return vk.ImageType2d
	case gfx.Texture3D:
		return vk.ImageType3d
	}
	unmapped(t)
	return invalid
}

func viewType(t gfx.TextureType) vk.ImageViewType {
	switch t {
	case gfx.Texture1D:
		return vk.ImageViewType1d
	case gfx.Texture2D:
		return vk.ImageViewType2d
	case gfx.Texture2DArray:
		return vk.ImageViewType2dArray
	case gfx.TextureCube:
		return vk.ImageViewTypeCube
	case gfx.Texture3D:
		return vk.ImageViewType3d
	}
	unmapped(t)
	return invalid
}

// texFormat returns vk.FormatUndefined for formats it cannot map.
func texFormat(f gfx.TextureFormat) vk.Format {
	switch f {
	case gfx.FormatR8:
		return vk.FormatR8Unorm
	case gfx.FormatRG8:
		return vk.FormatR8g8Unorm
	case gfx.FormatRGBA8:
		return vk.FormatR8g8b8a8Unorm
	case gfx.FormatSRGBA8:
		return vk.FormatR8g8b8a8Srgb
	case gfx.FormatR16F:
		return vk.FormatR16Sfloat
	case gfx.FormatRGBA16F:
		return vk.FormatR16g16b16a16Sfloat
	case gfx.FormatR32F:
		return vk.FormatR32Sfloat
	case gfx.FormatRGBA32F:
		return vk.FormatR32g32b32a32Sfloat
	case gfx.FormatDepth16:
		return vk.FormatD16Unorm
	case gfx.FormatDepth32F:
		return vk.FormatD32Sfloat
	case gfx.FormatDepth24Stencil8:
		return vk.FormatD24UnormS8Uint
	}
	unmapped(f)
	return vk.FormatUndefined
}

func aspect(f gfx.TextureFormat) vk.ImageAspectFlagBits {
	switch {
	case f.HasStencil():
		return vk.ImageAspectDepthBit | vk.ImageAspectStencilBit
	case f.IsDepth():
		return vk.ImageAspectDepthBit
	}
	return vk.ImageAspectColorBit
}

// vertexFormat is the float format of an attribute with n components.
func vertexFormat(n int) vk.Format {
	switch n {
	case 1:
		return vk.FormatR32Sfloat
	case 2:
		return vk.FormatR32g32Sfloat
	case 3:
		return vk.FormatR32g32b32Sfloat
	case 4:
		return vk.FormatR32g32b32a32Sfloat
	}
	unmapped(n)
	return vk.FormatUndefined
}

func indexType(size int) vk.IndexType {
	switch size {
	case 2:
		return vk.IndexTypeUint16
	case 4:
		return vk.IndexTypeUint32
	}
	unmapped(size)
	return invalid
}

func addressMode(w gfx.WrapMode) vk.SamplerAddressMode {
	switch w {
	case gfx.WrapRepeat:
		return vk.SamplerAddressModeRepeat
	case gfx.WrapMirroredRepeat:
		return vk.SamplerAddressModeMirroredRepeat
	case gfx.WrapClampToEdge:
		return vk.SamplerAddressModeClampToEdge
	case gfx.WrapClampToBorder:
		return vk.SamplerAddressModeClampToBorder
	}
	unmapped(w)
	return invalid
}

func filter(f gfx.FilterMode) vk.Filter {
	switch f {
	case gfx.FilterNearest:
		return vk.FilterNearest
	case gfx.FilterLinear:
		return vk.FilterLinear
	}
	unmapped(f)
	return invalid
}

// mipmapMode maps MipNone to nearest; the sampler of an unmipped image has
// one level to choose from.
func mipmapMode(m gfx.MipmapMode) vk.SamplerMipmapMode {
	switch m {
	case gfx.MipNone, gfx.MipNearest:
		return vk.SamplerMipmapModeNearest
	case gfx.MipLinear:
		return vk.SamplerMipmapModeLinear
	}
	unmapped(m)
	return invalid
}

func blendFactor(f gfx.BlendFactor) vk.BlendFactor {
	switch f {
	case gfx.BlendZero:
		return vk.BlendFactorZero
	case gfx.BlendOne:
		return vk.BlendFactorOne
	case gfx.BlendSrcColor:
		return vk.BlendFactorSrcColor
	case gfx.BlendOneMinusSrcColor:
		return vk.BlendFactorOneMinusSrcColor
	case gfx.BlendDstColor:
		return vk.BlendFactorDstColor
	case gfx.BlendOneMinusDstColor:
		return vk.BlendFactorOneMinusDstColor
	case gfx.BlendSrcAlpha:
		return vk.BlendFactorSrcAlpha
	case gfx.BlendOneMinusSrcAlpha:
		return vk.BlendFactorOneMinusSrcAlpha
	case gfx.BlendDstAlpha:
		return vk.BlendFactorDstAlpha
	case gfx.BlendOneMinusDstAlpha:
		return vk.BlendFactorOneMinusDstAlpha
	case gfx.BlendConstantColor:
		return vk.BlendFactorConstantColor
	case gfx.BlendOneMinusConstantColor:
		return vk.BlendFactorOneMinusConstantColor
	case gfx.BlendSrcAlphaSaturate:
		return vk.BlendFactorSrcAlphaSaturate
	}
	unmapped(f)
	return invalid
}

func blendOp(o gfx.BlendOp) vk.BlendOp {
	switch o {
	case gfx.BlendOpAdd:
		return vk.BlendOpAdd
	case gfx.BlendOpSubtract:
		return vk.BlendOpSubtract
	case gfx.BlendOpReverseSubtract:
		return vk.BlendOpReverseSubtract
	case gfx.BlendOpMin:
		return vk.BlendOpMin
	case gfx.BlendOpMax:
		return vk.BlendOpMax
	}
	unmapped(o)
	return invalid
}

func compareOp(c gfx.CompareOp) vk.CompareOp {
	switch c {
	case gfx.CompareNever:
		return vk.CompareOpNever
	case gfx.CompareLess:
		return vk.CompareOpLess
	case gfx.CompareEqual:
		return vk.CompareOpEqual
	case gfx.CompareLessEqual:
		return vk.CompareOpLessOrEqual
	case gfx.CompareGreater:
		return vk.CompareOpGreater
	case gfx.CompareNotEqual:
		return vk.CompareOpNotEqual
	case gfx.CompareGreaterEqual:
		return vk.CompareOpGreaterOrEqual
	case gfx.CompareAlways:
		return vk.CompareOpAlways
	}
	unmapped(c)
	return invalid
}

func stencilOp(s gfx.StencilOp) vk.StencilOp {
	switch s {
	case gfx.StencilKeep:
		return vk.StencilOpKeep
	case gfx.StencilZero:
		return vk.StencilOpZero
	case gfx.StencilReplace:
		return vk.StencilOpReplace
	case gfx.StencilIncrClamp:
		return vk.StencilOpIncrementAndClamp
	case gfx.StencilDecrClamp:
		return vk.StencilOpDecrementAndClamp
	case gfx.StencilInvert:
		return vk.StencilOpInvert
	case gfx.StencilIncrWrap:
		return vk.StencilOpIncrementAndWrap
	case gfx.StencilDecrWrap:
		return vk.StencilOpDecrementAndWrap
	}
	unmapped(s)
	return invalid
}

func topology(t gfx.Topology) vk.PrimitiveTopology {
	switch t {
	case gfx.TopologyTriangles:
		return vk.PrimitiveTopologyTriangleList
	case gfx.TopologyTriangleStrip:
		return vk.PrimitiveTopologyTriangleStrip
	case gfx.TopologyTriangleFan:
		return vk.PrimitiveTopologyTriangleFan
	case gfx.TopologyLines:
		return vk.PrimitiveTopologyLineList
	case gfx.TopologyLineStrip:
		return vk.PrimitiveTopologyLineStrip
	case gfx.TopologyPoints:
		return vk.PrimitiveTopologyPointList
	case gfx.TopologyPatches:
		return vk.PrimitiveTopologyPatchList
	}
	unmapped(t)
	return invalid
}

func frontFace(w gfx.Winding) vk.FrontFace {
	switch w {
	case gfx.WindingCCW:
		return vk.FrontFaceCounterClockwise
	case gfx.WindingCW:
		return vk.FrontFaceClockwise
	}
	unmapped(w)
	return invalid
}

func cullMode(c gfx.CullMode) vk.CullModeFlagBits {
	switch c {
	case gfx.CullBack:
		return vk.CullModeBackBit
	case gfx.CullFront:
		return vk.CullModeFrontBit
	case gfx.CullFrontAndBack:
		return vk.CullModeFrontAndBack
	}
	unmapped(c)
	return invalid
}
