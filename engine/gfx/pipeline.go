package gfx

type CullState struct {
	Enabled bool
	Mode    CullMode
	Front   Winding
}

type StencilFace struct {
	Fail, DepthFail, Pass StencilOp
	Compare               CompareOp
}

type DepthStencilState struct {
	DepthTest    bool
	DepthWrite   bool
	DepthCompare CompareOp

	StencilTest         bool
	Front, Back         StencilFace
	ReadMask, WriteMask uint32
	Reference           uint32
}

// BlendState is the color attachment blend equation.
type BlendState struct {
	Enabled            bool
	SrcColor, DstColor BlendFactor
	ColorOp            BlendOp
	SrcAlpha, DstAlpha BlendFactor
	AlphaOp            BlendOp
}

// DynamicState lists state set at draw time rather than baked. Viewport and
// scissor are always dynamic on the pipeline-object backend; depth bias is
// used by shadow passes against acne.
type DynamicState struct {
	DepthBias         bool
	DepthBiasConstant float32
	DepthBiasSlope    float32
	LineWidth         float32
}

// PipelineState is the fixed-function bundle of a pass.
type PipelineState struct {
	Cull         CullState
	DepthStencil DepthStencilState
	Blend        BlendState
	Dynamic      DynamicState
	Topology     Topology
}

// DefaultPipelineState is opaque, back-face culled, counter-clockwise front
// faces, depth tested with less-or-equal.
func DefaultPipelineState() PipelineState {
	keep := StencilFace{Fail: StencilKeep, DepthFail: StencilKeep, Pass: StencilKeep, Compare: CompareAlways}
	return PipelineState{
		Cull: CullState{Enabled: true, Mode: CullBack, Front: WindingCCW},
		DepthStencil: DepthStencilState{
			DepthTest:    true,
			DepthWrite:   true,
			DepthCompare: CompareLessEqual,
			Front:        keep,
			Back:         keep,
			ReadMask:     0xff,
			WriteMask:    0xff,
		},
		Blend: BlendState{
			SrcColor: BlendOne, DstColor: BlendZero, ColorOp: BlendOpAdd,
			SrcAlpha: BlendOne, DstAlpha: BlendZero, AlphaOp: BlendOpAdd,
		},
		Dynamic:  DynamicState{LineWidth: 1},
		Topology: TopologyTriangles,
	}
}

// AlphaBlended returns s with standard straight-alpha blending enabled.
func (s PipelineState) AlphaBlended() PipelineState {
	s.Blend = BlendState{
		Enabled:  true,
		SrcColor: BlendSrcAlpha, DstColor: BlendOneMinusSrcAlpha, ColorOp: BlendOpAdd,
		SrcAlpha: BlendOne, DstAlpha: BlendOneMinusSrcAlpha, AlphaOp: BlendOpAdd,
	}
	s.DepthStencil.DepthWrite = false
	return s
}
