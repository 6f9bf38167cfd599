package render

import (
	"fmt"

	"github.com/hubastard/grove3d/engine/core"
	"github.com/hubastard/grove3d/engine/gfx"
	"github.com/hubastard/grove3d/engine/gfx/glsl"
)

type EffectType int32

const (
	EffectUnlit EffectType = iota
	EffectLit
	EffectLitShadow
	EffectCustom
)

func (t EffectType) String() string {
	switch t {
	case EffectUnlit:
		return "unlit"
	case EffectLit:
		return "lit"
	case EffectLitShadow:
		return "lit+shadow"
	case EffectCustom:
		return "custom"
	}
	return fmt.Sprintf("EffectType(%d)", int32(t))
}

// ShaderSet holds at most one shader per stage.
type ShaderSet [glsl.StagesN]*gfx.Shader

// Shaders places each shader at its own stage.
func Shaders(shaders ...*gfx.Shader) ShaderSet {
	var set ShaderSet
	for _, s := range shaders {
		if s != nil {
			set[s.Stage()] = s
		}
	}
	return set
}

// BuildFunc adds an effect's passes. It runs once, the first time the renderer
// meets the effect.
type BuildFunc func(e *Effect, r *Renderer) error

// Effect is a named shading behavior made of passes: auxiliary Offscreen or
// Shadow passes that render dependency nodes into render targets, and one
// Standard pass drawing the target node, usually sampling those targets.
type Effect struct {
	Name         string
	Type         EffectType
	Target       Node
	Dependencies []Node
	Passes       map[PassType][]*Pass

	build BuildFunc
	built bool
	ready bool
	err   error
}

// NewEffect returns an effect whose passes are added by build.
func NewEffect(name string, typ EffectType, target Node, build BuildFunc) *Effect {
	return &Effect{Name: name, Type: typ, Target: target, Passes: map[PassType][]*Pass{}, build: build}
}

// NewCustomEffect is NewEffect with EffectCustom.
func NewCustomEffect(name string, target Node, build BuildFunc) *Effect {
	return NewEffect(name, EffectCustom, target, build)
}

func (e *Effect) Lit() bool { return e.Type == EffectLit || e.Type == EffectLitShadow }

// Ready reports whether every pass is materialized.
func (e *Effect) Ready() bool { return e.ready }

// Err is the failure that stopped the effect from building, if any. A failed
// effect is not retried.
func (e *Effect) Err() error { return e.err }

// AddPass appends p and records on its node that it takes part in p's type.
func (e *Effect) AddPass(p *Pass) *Pass {
	e.Passes[p.Type] = append(e.Passes[p.Type], p)
	if p.Node != nil {
		p.Node.AllowPass(p.Type)
	}
	return p
}

// Init builds the passes once.
func (e *Effect) Init(r *Renderer) error {
	if e.err != nil {
		return e.err
	}
	if e.built {
		return nil
	}
	e.built = true
	if e.build != nil {
		if err := e.build(e, r); err != nil {
			e.err = fmt.Errorf("render: build effect %q: %w", e.Name, err)
			return e.err
		}
	}
	if n := len(e.Passes[PassStandard]); n != 1 {
		e.err = fmt.Errorf("render: effect %q has %d standard passes, want 1", e.Name, n)
		return e.err
	}
	if e.Lit() && e.Target != nil {
		e.Target.SetLit(true)
	}
	core.Logger().Debug("effect built", "effect", e.Name, "type", e.Type,
		"offscreen", len(e.Passes[PassOffscreen]), "shadow", len(e.Passes[PassShadow]))
	return nil
}

// InitPasses initializes every pass in submission order.
func (e *Effect) InitPasses(r *Renderer) error {
	if e.err != nil {
		return e.err
	}
	if !e.built {
		return fmt.Errorf("%w: effect %q passes initialized before Init", ErrNotInitialized, e.Name)
	}
	if e.ready {
		return nil
	}
	for _, pt := range PassTypes {
		for _, p := range e.Passes[pt] {
			if err := p.Init(r, e); err != nil {
				e.err = fmt.Errorf("render: effect %q: %w", e.Name, err)
				return e.err
			}
		}
	}
	e.ready = true
	return nil
}

func (e *Effect) destroy() {
	for _, passes := range e.Passes {
		for _, p := range passes {
			p.destroy()
		}
	}
	e.ready = false
}
