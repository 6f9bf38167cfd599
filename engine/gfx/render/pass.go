package render

import (
	"errors"
	"fmt"
	"slices"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/hubastard/grove3d/engine/colors"
	"github.com/hubastard/grove3d/engine/core"
	"github.com/hubastard/grove3d/engine/gfx"
	"github.com/hubastard/grove3d/engine/gfx/glsl"
)

// PassType orders the passes of a frame. Buckets are submitted in increasing
// value so everything a Standard pass samples has been rendered before it.
type PassType int32

const (
	PassOffscreen PassType = 1
	PassShadow    PassType = 2
	PassStandard  PassType = 3

	passTypesN = PassStandard + 1
)

// PassTypes lists the pass types in submission order.
var PassTypes = [...]PassType{PassOffscreen, PassShadow, PassStandard}

func (pt PassType) String() string {
	switch pt {
	case PassOffscreen:
		return "offscreen"
	case PassShadow:
		return "shadow"
	case PassStandard:
		return "standard"
	}
	return fmt.Sprintf("PassType(%d)", int32(pt))
}

// TargetCount is the exact number of render targets a pass of this type
// carries: none for Standard (the window), color+depth for Offscreen, depth
// for Shadow. It is -1 for unknown types.
func (pt PassType) TargetCount() int {
	switch pt {
	case PassStandard:
		return 0
	case PassOffscreen:
		return 2
	case PassShadow:
		return 1
	}
	return -1
}

type passState uint8

const (
	stateConstructed passState = iota
	stateDefaultsApplied
	stateUniformsNegotiated
	stateMaterialized
	stateReady
)

// Pass is one GPU submission unit: shaders per stage, textures per sampler,
// uniform buffers, fixed-function state, render targets and the node it draws.
type Pass struct {
	Type  PassType
	Node  Node
	State gfx.PipelineState

	ClearColor colors.Color
	Color      colors.Color // written to u_color
	Roughness  float32      // written to u_roughness

	// ColorFunc, when set, replaces Color at every UpdateNode.
	ColorFunc func() colors.Color

	// View replaces the frame camera when set; mirror passes reflect it and
	// shadow passes look from the light.
	View func(frame Camera) Camera
	// SubmeshFunc runs before each submesh of the node's geometry is drawn.
	SubmeshFunc func(index int, sm gfx.SubMesh)

	shaders  [glsl.StagesN]*gfx.Shader
	textures [glsl.StagesN]map[string]*gfx.Texture
	uniforms [glsl.StagesN]*gfx.UniformBuffer
	targets  []*gfx.RenderTarget

	state         passState
	clear         bool
	lit           bool
	width, height int
	r             *Renderer
	effect        *Effect
	handle        PassHandle
	deps          []dependency
}

// NewPass creates a pass of type pt drawing node, with default state applied.
func NewPass(pt PassType, node Node) *Pass {
	p := &Pass{Type: pt, Node: node}
	p.applyDefaults()
	return p
}

func (p *Pass) applyDefaults() {
	p.State = gfx.DefaultPipelineState()
	p.ClearColor = colors.Black
	p.Color = colors.White
	p.Roughness = 0.5
	p.clear = true
	p.state = stateDefaultsApplied
}

// SetShader places s at its stage.
func (p *Pass) SetShader(s *gfx.Shader) *Pass {
	if s != nil {
		p.shaders[s.Stage()] = s
	}
	return p
}

func (p *Pass) SetShaders(set ShaderSet) *Pass {
	for _, s := range set {
		p.SetShader(s)
	}
	return p
}

// SetTexture binds tex to the sampler named sampler of stage's shader.
func (p *Pass) SetTexture(stage glsl.Stage, sampler string, tex *gfx.Texture) *Pass {
	if p.textures[stage] == nil {
		p.textures[stage] = map[string]*gfx.Texture{}
	}
	p.textures[stage][sampler] = tex
	return p
}

func (p *Pass) SetTargets(rts ...*gfx.RenderTarget) *Pass {
	p.targets = rts
	return p
}

func (p *Pass) Shader(stage glsl.Stage) *gfx.Shader               { return p.shaders[stage] }
func (p *Pass) Textures(stage glsl.Stage) map[string]*gfx.Texture { return p.textures[stage] }
func (p *Pass) UniformBuffer(stage glsl.Stage) *gfx.UniformBuffer { return p.uniforms[stage] }
func (p *Pass) Targets() []*gfx.RenderTarget                      { return p.targets }
func (p *Pass) Effect() *Effect                                   { return p.effect }
func (p *Pass) Handle() PassHandle                                { return p.handle }
func (p *Pass) Size() (int, int)                                  { return p.width, p.height }
func (p *Pass) Ready() bool                                       { return p.state == stateReady }

// Lit reports whether light values are pushed into the pass's buffers.
func (p *Pass) Lit() bool { return p.lit }

// Clears reports whether the pass clears its targets this frame. The first
// pass writing a target clears it, later ones load its contents.
func (p *Pass) Clears() bool { return p.clear }

func (p *Pass) nodeName() string {
	if p.Node == nil {
		return ""
	}
	return p.Node.Name()
}

// Init negotiates uniform roles and materializes the pass on r's backend. A
// pass is materialized once; later calls return nil.
func (p *Pass) Init(r *Renderer, e *Effect) error {
	if p.state == stateReady {
		return nil
	}
	if p.state < stateDefaultsApplied {
		p.applyDefaults()
	}
	p.r, p.effect = r, e
	log := core.Logger().With("pass", p.Type, "node", p.nodeName())

	if err := p.initTargets(); err != nil {
		log.Error("pass targets", "err", err)
		return err
	}
	if g := p.geometry(); g != nil {
		p.State.Topology = g.Topology
	}
	if err := p.negotiate(e); err != nil {
		log.Error("pass uniforms", "err", err)
		return err
	}
	if err := p.checkTextures(); err != nil {
		log.Error("pass textures", "err", err)
		return err
	}
	p.state = stateUniformsNegotiated

	p.lit = e != nil && e.Lit() && p.Node != nil && p.Node.Lit()
	for _, ub := range p.uniforms {
		if ub == nil {
			continue
		}
		setRole(ub, gfx.RoleGLNDC, r.backend.NDC() == NDCGL)
		setRole(ub, gfx.RoleColor, p.Color)
		setRole(ub, gfx.RoleRoughness, p.Roughness)
		if p.lit {
			pushLight(ub, r.MainLight())
		}
	}

	if err := p.materialize(); err != nil {
		log.Error("pass materialization failed", "backend", r.backend.Name(), "err", err)
		return err
	}
	log.Debug("pass materialized", "backend", r.backend.Name(), "width", p.width, "height", p.height)
	p.state = stateReady
	return nil
}

// materialize creates the backend pass, recording every shadow it binds.
func (p *Pass) materialize() error {
	p.deps = p.deps[:0]
	p.r.building = p
	defer func() { p.r.building = nil }()
	h, err := p.r.backend.NewPass(p.r, p)
	if err != nil {
		return fmt.Errorf("render: materialize %v pass of %q: %w", p.Type, p.nodeName(), err)
	}
	p.handle = h
	p.state = stateMaterialized
	return nil
}

// Stale reports whether a shadow the backend pass was built with has been
// unbound since.
func (p *Pass) Stale() bool {
	for _, d := range p.deps {
		if !d.arena.valid(d.h) {
			return true
		}
	}
	return false
}

// rematerialize replaces the backend pass of a stale pass. On failure the
// pass stays out of the frame.
func (p *Pass) rematerialize() error {
	if p.handle != nil {
		p.handle.Destroy()
		p.handle = nil
	}
	p.state = stateUniformsNegotiated
	if err := p.materialize(); err != nil {
		return err
	}
	p.state = stateReady
	core.Logger().Debug("pass rematerialized", "pass", p.Type, "node", p.nodeName())
	return nil
}

func (p *Pass) geometry() *gfx.Geometry {
	if p.Node == nil {
		return nil
	}
	return p.Node.Geometry()
}

func (p *Pass) initTargets() error {
	want := p.Type.TargetCount()
	if want < 0 {
		return fmt.Errorf("render: invalid pass type %d", int32(p.Type))
	}
	if len(p.targets) != want {
		return fmt.Errorf("%w: %v pass of %q has %d, want %d", ErrTargetCount, p.Type, p.nodeName(), len(p.targets), want)
	}
	if want == 0 {
		p.width, p.height = p.r.Size()
		return nil
	}
	for _, rt := range p.targets {
		if rt == nil {
			return fmt.Errorf("%w: %v pass of %q has a nil target", ErrTargetCount, p.Type, p.nodeName())
		}
	}
	switch p.Type {
	case PassOffscreen:
		if p.targets[0].Type != gfx.TargetColor || p.targets[1].Type == gfx.TargetColor {
			return fmt.Errorf("render: offscreen pass of %q needs a color then a depth target", p.nodeName())
		}
	case PassShadow:
		if p.targets[0].Type == gfx.TargetColor {
			return fmt.Errorf("render: shadow pass of %q needs a depth target", p.nodeName())
		}
	}
	p.width, p.height = p.targets[0].Width(), p.targets[0].Height()
	for _, rt := range p.targets[1:] {
		if rt.Width() != p.width || rt.Height() != p.height {
			return fmt.Errorf("render: %v pass of %q mixes target sizes %dx%d and %dx%d",
				p.Type, p.nodeName(), p.width, p.height, rt.Width(), rt.Height())
		}
	}
	return nil
}

// requiredRoles are the roles whose absence fails the pass.
func (p *Pass) requiredRoles(stage glsl.Stage, e *Effect) []gfx.UniformRole {
	if stage != glsl.Vertex {
		return nil
	}
	if p.Type == PassShadow {
		return []gfx.UniformRole{gfx.RoleLightPVM}
	}
	if e != nil && e.Type == EffectLitShadow && p.Type == PassStandard {
		return []gfx.UniformRole{gfx.RolePVM, gfx.RoleLightPVM, gfx.RoleModel}
	}
	return []gfx.UniformRole{gfx.RolePVM}
}

// negotiate builds one uniform buffer per stage carrying exactly the catalog
// roles the stage's uniform block declares.
func (p *Pass) negotiate(e *Effect) error {
	if p.shaders[glsl.Vertex] == nil || p.shaders[glsl.Fragment] == nil {
		return fmt.Errorf("render: %v pass of %q needs vertex and fragment shaders", p.Type, p.nodeName())
	}
	var declared []gfx.UniformRole
	for i, s := range p.shaders {
		stage := glsl.Stage(i)
		if s == nil {
			continue
		}
		required := p.requiredRoles(stage, e)
		block := s.Block()
		var roles []gfx.UniformRole
		if block != nil {
			for _, m := range block.Members {
				if role, ok := gfx.RoleByName(m.Name); ok {
					roles = append(roles, role)
				}
			}
		}
		for _, req := range required {
			if !slices.Contains(roles, req) {
				return &MissingRoleError{Pass: p.Type, Stage: stage, Role: req, Node: p.nodeName()}
			}
		}
		if block == nil {
			continue
		}
		ub, err := gfx.NewUniformBuffer(stage, block, roles)
		if err != nil {
			return fmt.Errorf("render: %v pass of %q, %v shader %q: %w", p.Type, p.nodeName(), stage, s.Path, err)
		}
		p.uniforms[stage] = ub
		declared = append(declared, roles...)
	}

	if e != nil && e.Lit() {
		for _, role := range []gfx.UniformRole{gfx.RoleLightDir, gfx.RoleLightColor} {
			if !slices.Contains(declared, role) {
				core.Logger().Warn("lit pass renders without light uniform",
					"pass", p.Type, "node", p.nodeName(), "role", role)
			}
		}
	}
	return nil
}

func (p *Pass) checkTextures() error {
	for i, texs := range p.textures {
		stage := glsl.Stage(i)
		s := p.shaders[stage]
		for name, tex := range texs {
			if s == nil {
				return fmt.Errorf("render: %v pass of %q binds %q but has no %v shader", p.Type, p.nodeName(), name, stage)
			}
			if _, ok := s.Reflection.Samplers[name]; !ok {
				return fmt.Errorf("render: %v pass of %q binds %q, which %s does not declare", p.Type, p.nodeName(), name, s.Path)
			}
			if tex == nil {
				return fmt.Errorf("render: %v pass of %q binds a nil texture to %q", p.Type, p.nodeName(), name)
			}
		}
	}
	for _, s := range p.shaders {
		if s == nil {
			continue
		}
		for name := range s.Reflection.Samplers {
			if p.textures[s.Stage()][name] == nil {
				return fmt.Errorf("%w: %v pass of %q, %s declares %q", ErrUnboundSampler, p.Type, p.nodeName(), s.Path, name)
			}
		}
	}
	return nil
}

func setRole(ub *gfx.UniformBuffer, role gfx.UniformRole, v any) {
	if !ub.Has(role) {
		return
	}
	if err := ub.Set(role, v); err != nil {
		core.Logger().Error("uniform write failed", "role", role, "err", err)
	}
}

func pushLight(ub *gfx.UniformBuffer, l *Light) {
	if l == nil {
		return
	}
	setRole(ub, gfx.RoleLightDir, l.Dir)
	setRole(ub, gfx.RoleLightPos, l.Pos)
	setRole(ub, gfx.RoleLightColor, l.Radiance())
}

// UpdateNode recomputes the per-frame uniform values from cam and the node
// transform and uploads every uniform buffer of the pass.
func (p *Pass) UpdateNode(cam Camera, t float32) error {
	if p.state != stateReady {
		return fmt.Errorf("%w: %v pass of %q updated before Init", ErrNotInitialized, p.Type, p.nodeName())
	}
	view := cam
	if p.View != nil {
		view = p.View(cam)
	}
	if view == nil {
		return fmt.Errorf("%w: %v pass of %q has no camera", ErrNotInitialized, p.Type, p.nodeName())
	}

	if p.ColorFunc != nil {
		p.Color = p.ColorFunc()
	}
	model := mgl32.Ident4()
	if p.Node != nil {
		model = p.Node.Transform()
	}
	pvm := view.ProjView().Mul4(model)
	normal := model.Mat3().Inv().Transpose()
	light := p.r.MainLight()
	var lightPVM mgl32.Mat4
	if light != nil {
		lightPVM = light.LightSpace().Mul4(model)
	} else {
		lightPVM = lightCamera{fallbackLight}.ProjView().Mul4(model)
	}

	var errs []error
	for _, ub := range p.uniforms {
		if ub == nil {
			continue
		}
		setRole(ub, gfx.RolePVM, pvm)
		setRole(ub, gfx.RoleModel, model)
		setRole(ub, gfx.RoleNormalMatrix, normal)
		setRole(ub, gfx.RoleCameraPos, view.Position())
		setRole(ub, gfx.RoleTime, t)
		setRole(ub, gfx.RoleLightPVM, lightPVM)
		setRole(ub, gfx.RoleColor, p.Color)
		setRole(ub, gfx.RoleRoughness, p.Roughness)
		if p.lit {
			pushLight(ub, light)
		}
		if err := p.r.uploadUniforms(ub); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// RenderNode binds the pass and draws its node, one draw per submesh when the
// geometry has them.
func (p *Pass) RenderNode(bufferIndex int) error {
	if p.state != stateReady {
		return fmt.Errorf("%w: %v pass of %q rendered before Init", ErrNotInitialized, p.Type, p.nodeName())
	}
	p.r.units.Reset()
	if err := p.handle.Bind(bufferIndex, p.r.units); err != nil {
		return fmt.Errorf("render: bind %v pass of %q: %w", p.Type, p.nodeName(), err)
	}
	g := p.geometry()
	if g == nil {
		return nil
	}
	if len(g.SubMeshes) == 0 {
		p.handle.Draw(0, g.DrawCount())
		return nil
	}
	for i, sm := range g.SubMeshes {
		if p.SubmeshFunc != nil {
			p.SubmeshFunc(i, sm)
		}
		p.handle.Draw(sm.First, sm.Count)
	}
	return nil
}

func (p *Pass) destroy() {
	if p.handle != nil {
		p.handle.Destroy()
		p.handle = nil
	}
	p.state = stateConstructed
}
