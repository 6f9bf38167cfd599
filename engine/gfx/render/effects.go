package render

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/hubastard/grove3d/engine/colors"
	"github.com/hubastard/grove3d/engine/gfx"
	"github.com/hubastard/grove3d/engine/gfx/glsl"
)

// Sampler names the built-in effects bind their textures to.
const (
	SamplerAlbedo    = "u_albedo"
	SamplerShadowMap = "u_shadowMap"
	SamplerMirror    = "u_mirror"
	SamplerEnv       = "u_env"
)

// NewColorEffect draws target in one flat color written to u_color.
func NewColorEffect(target Node, shaders ShaderSet, color colors.Color) *Effect {
	return NewEffect("color", EffectUnlit, target, func(e *Effect, _ *Renderer) error {
		p := e.AddPass(NewPass(PassStandard, target).SetShaders(shaders))
		p.Color = color
		return nil
	})
}

// NewVertexColorEffect draws target with its per-vertex a_color.
func NewVertexColorEffect(target Node, shaders ShaderSet) *Effect {
	return NewEffect("vertex-color", EffectUnlit, target, func(e *Effect, _ *Renderer) error {
		vs := shaders[glsl.Vertex]
		if vs == nil {
			return fmt.Errorf("no vertex shader")
		}
		if _, ok := vs.Reflection.Inputs[glsl.AttrColor.String()]; !ok {
			return fmt.Errorf("%s does not read %v", vs.Path, glsl.AttrColor)
		}
		if g := target.Geometry(); g == nil || g.Vertices == nil || !g.Vertices.Format.Has(glsl.AttrColor) {
			return fmt.Errorf("geometry of %q has no %v attribute", target.Name(), glsl.AttrColor)
		}
		e.AddPass(NewPass(PassStandard, target).SetShaders(shaders))
		return nil
	})
}

// NewTextureEffect draws target sampling tex through u_albedo.
func NewTextureEffect(target Node, shaders ShaderSet, tex *gfx.Texture) *Effect {
	return NewEffect("texture", EffectUnlit, target, func(e *Effect, _ *Renderer) error {
		e.AddPass(NewPass(PassStandard, target).SetShaders(shaders).SetTexture(glsl.Fragment, SamplerAlbedo, tex))
		return nil
	})
}

// NewTextEffect draws target alpha blended, tinting the coverage in atlas's
// alpha channel with color. Both faces are drawn.
func NewTextEffect(target Node, shaders ShaderSet, atlas *gfx.Texture, color colors.Color) *Effect {
	return NewEffect("text", EffectUnlit, target, func(e *Effect, _ *Renderer) error {
		p := e.AddPass(NewPass(PassStandard, target).SetShaders(shaders).SetTexture(glsl.Fragment, SamplerAlbedo, atlas))
		p.State = p.State.AlphaBlended()
		p.State.Cull.Enabled = false
		p.Color = color
		return nil
	})
}

// NewLitEffect shades target with the scene's main light.
func NewLitEffect(target Node, shaders ShaderSet, color colors.Color, roughness float32) *Effect {
	return NewEffect("lit", EffectLit, target, func(e *Effect, _ *Renderer) error {
		p := e.AddPass(NewPass(PassStandard, target).SetShaders(shaders))
		p.Color, p.Roughness = color, roughness
		return nil
	})
}

// NewLitShadowEffect shades target with the main light and the shadows that
// casters throw on it. Each caster gets a Shadow pass into a shared depth
// map of mapSize texels (the renderer default when 0).
func NewLitShadowEffect(target Node, shaders, shadowShaders ShaderSet, casters []Node, color colors.Color, mapSize int) *Effect {
	return NewEffect("lit-shadow", EffectLitShadow, target, func(e *Effect, r *Renderer) error {
		size := mapSize
		if size <= 0 {
			size = r.opts.ShadowMapSize
		}
		depth, err := gfx.NewRenderTarget(gfx.TargetDepth, gfx.OutputTexture, size, size)
		if err != nil {
			return err
		}
		lightView := func(Camera) Camera {
			if l := r.MainLight(); l != nil {
				return lightCamera{l}
			}
			return lightCamera{fallbackLight}
		}
		e.Dependencies = casters
		for _, n := range casters {
			sp := e.AddPass(NewPass(PassShadow, n).SetShaders(shadowShaders).SetTargets(depth))
			sp.View = lightView
			sp.State.Cull.Mode = gfx.CullFront
			sp.State.Dynamic.DepthBias = true
			sp.State.Dynamic.DepthBiasConstant = 1.25
			sp.State.Dynamic.DepthBiasSlope = 1.75
		}
		p := e.AddPass(NewPass(PassStandard, target).SetShaders(shaders).SetTexture(glsl.Fragment, SamplerShadowMap, depth.Texture))
		p.Color = color
		return nil
	})
}

// NewMirrorEffect renders the reflected nodes, seen through the plane of
// target (its local XZ plane), into an offscreen target that target's
// Standard pass samples through u_mirror. size is the offscreen resolution
// (the renderer default when 0).
func NewMirrorEffect(target Node, shaders, reflectShaders ShaderSet, reflected []Node, size int) *Effect {
	return NewEffect("mirror", EffectUnlit, target, func(e *Effect, r *Renderer) error {
		if size <= 0 {
			size = r.opts.OffscreenSize
		}
		color, err := gfx.NewRenderTarget(gfx.TargetColor, gfx.OutputTexture, size, size)
		if err != nil {
			return err
		}
		depth, err := gfx.NewRenderTarget(gfx.TargetDepth, gfx.OutputRender, size, size)
		if err != nil {
			return err
		}
		mirrorView := func(frame Camera) Camera {
			return mirrorCamera{frame: frame, plane: target.Transform()}
		}
		e.Dependencies = reflected
		for _, n := range reflected {
			op := e.AddPass(NewPass(PassOffscreen, n).SetShaders(reflectShaders).SetTargets(color, depth))
			op.View = mirrorView
			op.ClearColor = r.opts.ClearColor
			// n's effect may be built after this one
			op.ColorFunc = func() colors.Color {
				if ne := n.Effect(); ne != nil && ne.Ready() {
					if ps := ne.Passes[PassStandard]; len(ps) == 1 {
						return ps[0].Color
					}
				}
				return op.Color
			}
			// the reflection flips handedness
			op.State.Cull.Front = gfx.WindingCW
		}
		e.AddPass(NewPass(PassStandard, target).SetShaders(shaders).SetTexture(glsl.Fragment, SamplerMirror, color.Texture))
		return nil
	})
}

// NewEnvironmentMapEffect reflects the cube map env off target through u_env.
func NewEnvironmentMapEffect(target Node, shaders ShaderSet, env *gfx.Texture) *Effect {
	return NewEffect("environment-map", EffectUnlit, target, func(e *Effect, _ *Renderer) error {
		if env == nil || env.Type != gfx.TextureCube {
			return fmt.Errorf("environment map needs a cube texture")
		}
		e.AddPass(NewPass(PassStandard, target).SetShaders(shaders).SetTexture(glsl.Fragment, SamplerEnv, env))
		return nil
	})
}

// mirrorCamera reflects the frame camera through the XZ plane of a transform.
type mirrorCamera struct {
	frame Camera
	plane mgl32.Mat4
}

func (c mirrorCamera) reflection() mgl32.Mat4 {
	n := c.plane.Mul4x1(mgl32.Vec4{0, 1, 0, 0}).Vec3().Normalize()
	d := n.Dot(c.plane.Col(3).Vec3())
	return Reflection(n, d)
}

func (c mirrorCamera) ProjView() mgl32.Mat4 { return c.frame.ProjView().Mul4(c.reflection()) }

func (c mirrorCamera) Position() mgl32.Vec3 {
	return c.reflection().Mul4x1(c.frame.Position().Vec4(1)).Vec3()
}

// Reflection is the matrix mirroring points through the plane n·x = d, n unit.
func Reflection(n mgl32.Vec3, d float32) mgl32.Mat4 {
	return mgl32.Mat4{
		1 - 2*n[0]*n[0], -2 * n[0] * n[1], -2 * n[0] * n[2], 0,
		-2 * n[1] * n[0], 1 - 2*n[1]*n[1], -2 * n[1] * n[2], 0,
		-2 * n[2] * n[0], -2 * n[2] * n[1], 1 - 2*n[2]*n[2], 0,
		2 * d * n[0], 2 * d * n[1], 2 * d * n[2], 1,
	}
}
