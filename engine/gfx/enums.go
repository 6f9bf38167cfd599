package gfx

import "fmt"

// Fixed-function enumerations. Every enum ends with an ...N sentinel so the
// backend translation tables can be checked for exhaustiveness.

func enumName(names []string, v int32, typ string) string {
	if v < 0 || int(v) >= len(names) {
		return fmt.Sprintf("%s(%d)", typ, v)
	}
	return names[v]
}

type TextureType int32

const (
	Texture1D TextureType = iota
	Texture2D
	Texture2DArray
	TextureCube
	Texture3D

	TextureTypesN
)

func (t TextureType) String() string {
	return enumName([]string{"1D", "2D", "2DArray", "Cube", "3D"}, int32(t), "TextureType")
}

type TextureFormat int32

const (
	FormatR8 TextureFormat = iota
	FormatRG8
	FormatRGBA8
	FormatSRGBA8
	FormatR16F
	FormatRGBA16F
	FormatR32F
	FormatRGBA32F
	FormatDepth16
	FormatDepth32F
	FormatDepth24Stencil8

	TextureFormatsN
)

var formatBytes = [TextureFormatsN]int{1, 2, 4, 4, 2, 8, 4, 16, 2, 4, 4}

func (f TextureFormat) String() string {
	return enumName([]string{"R8", "RG8", "RGBA8", "SRGBA8", "R16F", "RGBA16F", "R32F", "RGBA32F",
		"Depth16", "Depth32F", "Depth24Stencil8"}, int32(f), "TextureFormat")
}

// BytesPerPixel returns the texel size, or 0 for an invalid format.
func (f TextureFormat) BytesPerPixel() int {
	if f < 0 || f >= TextureFormatsN {
		return 0
	}
	return formatBytes[f]
}

func (f TextureFormat) IsDepth() bool {
	return f == FormatDepth16 || f == FormatDepth32F || f == FormatDepth24Stencil8
}

func (f TextureFormat) HasStencil() bool { return f == FormatDepth24Stencil8 }

type WrapMode int32

const (
	WrapRepeat WrapMode = iota
	WrapMirroredRepeat
	WrapClampToEdge
	WrapClampToBorder

	WrapModesN
)

func (w WrapMode) String() string {
	return enumName([]string{"Repeat", "MirroredRepeat", "ClampToEdge", "ClampToBorder"}, int32(w), "WrapMode")
}

type FilterMode int32

const (
	FilterNearest FilterMode = iota
	FilterLinear

	FilterModesN
)

func (f FilterMode) String() string {
	return enumName([]string{"Nearest", "Linear"}, int32(f), "FilterMode")
}

// MipmapMode selects how mip levels are sampled. MipNone disables mipmapping.
type MipmapMode int32

const (
	MipNone MipmapMode = iota
	MipNearest
	MipLinear

	MipmapModesN
)

func (m MipmapMode) String() string {
	return enumName([]string{"None", "Nearest", "Linear"}, int32(m), "MipmapMode")
}

type BlendFactor int32

const (
	BlendZero BlendFactor = iota
	BlendOne
	BlendSrcColor
	BlendOneMinusSrcColor
	BlendDstColor
	BlendOneMinusDstColor
	BlendSrcAlpha
	BlendOneMinusSrcAlpha
	BlendDstAlpha
	BlendOneMinusDstAlpha
	BlendConstantColor
	BlendOneMinusConstantColor
	BlendSrcAlphaSaturate

	BlendFactorsN
)

func (b BlendFactor) String() string {
	return enumName([]string{"Zero", "One", "SrcColor", "OneMinusSrcColor", "DstColor", "OneMinusDstColor",
		"SrcAlpha", "OneMinusSrcAlpha", "DstAlpha", "OneMinusDstAlpha", "ConstantColor",
		"OneMinusConstantColor", "SrcAlphaSaturate"}, int32(b), "BlendFactor")
}

type BlendOp int32

const (
	BlendOpAdd BlendOp = iota
	BlendOpSubtract
	BlendOpReverseSubtract
	BlendOpMin
	BlendOpMax

	BlendOpsN
)

func (b BlendOp) String() string {
	return enumName([]string{"Add", "Subtract", "ReverseSubtract", "Min", "Max"}, int32(b), "BlendOp")
}

type CompareOp int32

const (
	CompareNever CompareOp = iota
	CompareLess
	CompareEqual
	CompareLessEqual
	CompareGreater
	CompareNotEqual
	CompareGreaterEqual
	CompareAlways

	CompareOpsN
)

func (c CompareOp) String() string {
	return enumName([]string{"Never", "Less", "Equal", "LessEqual", "Greater", "NotEqual", "GreaterEqual", "Always"},
		int32(c), "CompareOp")
}

type StencilOp int32

const (
	StencilKeep StencilOp = iota
	StencilZero
	StencilReplace
	StencilIncrClamp
	StencilDecrClamp
	StencilInvert
	StencilIncrWrap
	StencilDecrWrap

	StencilOpsN
)

func (s StencilOp) String() string {
	return enumName([]string{"Keep", "Zero", "Replace", "IncrClamp", "DecrClamp", "Invert", "IncrWrap", "DecrWrap"},
		int32(s), "StencilOp")
}

type Topology int32

const (
	TopologyTriangles Topology = iota
	TopologyTriangleStrip
	TopologyTriangleFan
	TopologyLines
	TopologyLineStrip
	TopologyPoints
	TopologyPatches

	TopologiesN
)

func (t Topology) String() string {
	return enumName([]string{"Triangles", "TriangleStrip", "TriangleFan", "Lines", "LineStrip", "Points", "Patches"},
		int32(t), "Topology")
}

// Winding is the vertex order of front faces.
type Winding int32

const (
	WindingCCW Winding = iota
	WindingCW

	WindingsN
)

func (w Winding) String() string { return enumName([]string{"CCW", "CW"}, int32(w), "Winding") }

type CullMode int32

const (
	CullBack CullMode = iota
	CullFront
	CullFrontAndBack

	CullModesN
)

func (c CullMode) String() string {
	return enumName([]string{"Back", "Front", "FrontAndBack"}, int32(c), "CullMode")
}

// TextureUsage flags say how a texture is used beyond being sampled.
type TextureUsage uint32

const (
	UsageSampled TextureUsage = 1 << iota
	UsageColorAttachment
	UsageDepthAttachment
	UsageTransferSrc
)

func (u TextureUsage) Has(flag TextureUsage) bool { return u&flag != 0 }
