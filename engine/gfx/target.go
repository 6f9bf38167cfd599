package gfx

import "fmt"

type TargetType int32

const (
	TargetColor TargetType = iota
	TargetDepth
	TargetDepthStencil

	TargetTypesN
)

func (t TargetType) String() string {
	return enumName([]string{"Color", "Depth", "DepthStencil"}, int32(t), "TargetType")
}

// TargetOutput is what a render target is written for.
type TargetOutput int32

const (
	OutputRender  TargetOutput = iota // attachment only
	OutputTexture                     // sampled by later passes
	// OutputRenderAndSample names both uses. Targets never reach the window
	// directly, so backends treat it exactly like OutputTexture.
	OutputRenderAndSample
	TargetOutputsN
)

func (o TargetOutput) String() string {
	return enumName([]string{"Render", "Texture", "RenderAndSample"}, int32(o), "TargetOutput")
}

// RenderTarget is an attachment a pass renders into. It owns its Texture.
type RenderTarget struct {
	id      ID
	Type    TargetType
	Output  TargetOutput
	Texture *Texture
}

func NewRenderTarget(typ TargetType, out TargetOutput, w, h int) (*RenderTarget, error) {
	var (
		format TextureFormat
		usage  TextureUsage
	)
	switch typ {
	case TargetColor:
		format, usage = FormatRGBA8, UsageColorAttachment
	case TargetDepth:
		format, usage = FormatDepth32F, UsageDepthAttachment
	case TargetDepthStencil:
		format, usage = FormatDepth24Stencil8, UsageDepthAttachment
	default:
		return nil, fmt.Errorf("gfx: invalid render target type %v", typ)
	}
	if out < 0 || out >= TargetOutputsN {
		return nil, fmt.Errorf("gfx: invalid render target output %v", out)
	}
	tex, err := NewTexture2D(format, w, h, nil)
	if err != nil {
		return nil, fmt.Errorf("gfx: render target: %w", err)
	}
	tex.SetWrap(WrapClampToEdge)
	tex.Usage = usage
	if out != OutputRender {
		tex.Usage |= UsageSampled
	}
	return &RenderTarget{id: nextID(), Type: typ, Output: out, Texture: tex}, nil
}

func (rt *RenderTarget) ResourceID() ID { return rt.id }
func (rt *RenderTarget) Width() int     { return rt.Texture.Width }
func (rt *RenderTarget) Height() int    { return rt.Texture.Height }

// Sampled reports whether a later pass reads the target.
func (rt *RenderTarget) Sampled() bool { return rt.Output != OutputRender }
