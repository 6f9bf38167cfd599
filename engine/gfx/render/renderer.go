// Package render turns effects into ordered GPU submissions on a runtime
// selected backend. It owns the per-frame pipeline (compute, update, render,
// submit) and the cache of backend objects standing in for engine resources.
//
// A Renderer is single-threaded: every method must be called from the thread
// that owns the graphics context.
package render

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/hubastard/grove3d/engine/colors"
	"github.com/hubastard/grove3d/engine/core"
	"github.com/hubastard/grove3d/engine/gfx"
	"github.com/hubastard/grove3d/engine/profiler"
)

// Options tune a Renderer.
type Options struct {
	ClearColor colors.Color
	// MaxTextureUnits caps the units a pass may sample; 0 means the backend limit.
	MaxTextureUnits int
	ShadowMapSize   int
	OffscreenSize   int
}

// OptionsFromConfig picks the renderer settings out of the engine config.
func OptionsFromConfig(cfg core.Config) Options {
	return Options{
		ClearColor:      cfg.ClearColor,
		MaxTextureUnits: cfg.MaxTextureUnits,
		ShadowMapSize:   cfg.ShadowMapSize,
		OffscreenSize:   cfg.OffscreenSize,
	}
}

// Renderer drives a Backend through the frame and owns every backend object.
type Renderer struct {
	backend Backend
	opts    Options
	units   *TextureUnits
	log     *slog.Logger

	shaders  *arena[Shadow]
	textures *arena[Shadow]
	uniforms *arena[UniformBufferShadow]
	vertices *arena[Shadow]
	indices  *arena[Shadow]
	targets  *arena[Shadow]

	effects  []*Effect
	buckets  [passTypesN][]*Pass
	lights   []*Light
	computed *Queue
	building *Pass

	width, height int
	bufferIndex   int
	frame         uint64
	closed        bool
}

// New initializes backend and returns a renderer driving it.
func New(backend Backend, opts Options) (*Renderer, error) {
	if err := backend.Init(); err != nil {
		return nil, fmt.Errorf("render: init %s backend: %w", backend.Name(), err)
	}
	if opts.ShadowMapSize <= 0 {
		opts.ShadowMapSize = 2048
	}
	if opts.OffscreenSize <= 0 {
		opts.OffscreenSize = 1024
	}
	units := backend.MaxTextureUnits()
	if opts.MaxTextureUnits > 0 && opts.MaxTextureUnits < units {
		units = opts.MaxTextureUnits
	}
	r := &Renderer{
		backend:  backend,
		opts:     opts,
		units:    NewTextureUnits(units),
		log:      core.Logger().With("backend", backend.Name()),
		shaders:  newArena[Shadow](),
		textures: newArena[Shadow](),
		uniforms: newArena[UniformBufferShadow](),
		vertices: newArena[Shadow](),
		indices:  newArena[Shadow](),
		targets:  newArena[Shadow](),
	}
	r.width, r.height = backend.FramebufferSize()
	r.log.Info("renderer ready", "width", r.width, "height", r.height, "texture_units", units)
	return r, nil
}

func (r *Renderer) Backend() Backend     { return r.backend }
func (r *Renderer) Options() Options     { return r.opts }
func (r *Renderer) Units() *TextureUnits { return r.units }
func (r *Renderer) Size() (int, int)     { return r.width, r.height }
func (r *Renderer) BufferIndex() int     { return r.bufferIndex }
func (r *Renderer) FrameCount() uint64   { return r.frame }
func (r *Renderer) Lights() []*Light     { return r.lights }

// MainLight is the first directional light of the frame, else the first
// light, else nil.
func (r *Renderer) MainLight() *Light {
	for _, l := range r.lights {
		if l.Kind == LightDirectional {
			return l
		}
	}
	if len(r.lights) > 0 {
		return r.lights[0]
	}
	return nil
}

// Passes returns the passes of type pt collected for the current frame, in
// submission order.
func (r *Renderer) Passes(pt PassType) []*Pass {
	if pt <= 0 || pt >= passTypesN {
		return nil
	}
	return append([]*Pass(nil), r.buckets[pt]...)
}

// ComputeGraphicsResources builds the effect of every queued renderable the
// first time it is seen and collects the frame's passes into pass-type
// buckets. An effect that fails to build is logged, left out, and not retried.
func (r *Renderer) ComputeGraphicsResources(q *Queue) error {
	defer profiler.Start("ComputeGraphicsResources").End()
	if r.closed {
		return fmt.Errorf("%w: renderer is shut down", ErrNotInitialized)
	}

	r.lights = r.lights[:0]
	q.ForEachLight(func(l *Light) { r.lights = append(r.lights, l) })
	for i := range r.buckets {
		clear(r.buckets[i])
		r.buckets[i] = r.buckets[i][:0]
	}

	var errs []error
	seen := map[*Pass]bool{}
	q.ForEach(BucketOpaque, func(rn Renderable) {
		e := rn.Effect
		if e.Err() != nil {
			return
		}
		if !e.Ready() {
			if !e.built {
				r.effects = append(r.effects, e)
			}
			if err := r.initEffect(e); err != nil {
				errs = append(errs, err)
				return
			}
		}
		for _, pt := range PassTypes {
			for _, p := range e.Passes[pt] {
				if seen[p] || (p.Node != nil && !p.Node.AllowsPass(pt)) {
					continue
				}
				if p.Stale() {
					if err := p.rematerialize(); err != nil {
						r.log.Error("pass rebuild failed", "effect", e.Name, "err", err)
						errs = append(errs, err)
					}
				}
				if !p.Ready() {
					continue
				}
				seen[p] = true
				r.buckets[pt] = append(r.buckets[pt], p)
			}
		}
	})
	r.assignClears()
	r.computed = q
	return errors.Join(errs...)
}

func (r *Renderer) initEffect(e *Effect) error {
	err := e.Init(r)
	if err == nil {
		err = e.InitPasses(r)
	}
	if err != nil {
		var missing *MissingRoleError
		if errors.As(err, &missing) {
			r.log.Error("effect missing required uniform", "effect", e.Name, "node", missing.Node,
				"pass", missing.Pass, "role", missing.Role)
		} else {
			r.log.Error("effect init failed", "effect", e.Name, "err", err)
		}
	}
	return err
}

// assignClears makes the first pass writing each target clear it.
func (r *Renderer) assignClears() {
	written := map[gfx.ID]bool{}
	for _, pt := range PassTypes {
		for _, p := range r.buckets[pt] {
			if len(p.targets) == 0 {
				p.clear = true
				continue
			}
			id := p.targets[0].ResourceID()
			p.clear = !written[id]
			written[id] = true
		}
	}
}

// UpdateFrame recomputes and uploads the uniforms of every collected pass.
func (r *Renderer) UpdateFrame(cam Camera, t float32) error {
	defer profiler.Start("UpdateFrame").End()
	if r.computed == nil {
		return fmt.Errorf("%w: UpdateFrame before ComputeGraphicsResources", ErrNotInitialized)
	}
	var errs []error
	for _, pt := range PassTypes {
		for _, p := range r.buckets[pt] {
			if err := p.UpdateNode(cam, t); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}

// RenderFrame records the frame: every bucket in pass-type order, every pass
// of a bucket in registration order. q must be the queue last given to
// ComputeGraphicsResources.
func (r *Renderer) RenderFrame(q *Queue) error {
	defer profiler.Start("RenderFrame").End()
	if q == nil || q != r.computed {
		return fmt.Errorf("%w: RenderFrame for a queue that was not computed", ErrNotInitialized)
	}
	idx, err := r.backend.BeginFrame()
	if err != nil {
		return fmt.Errorf("render: begin frame: %w", err)
	}
	r.bufferIndex = idx

	var errs []error
	for _, pt := range PassTypes {
		passes := r.buckets[pt]
		// the window is cleared and presented even with nothing on it
		if len(passes) == 0 && pt != PassStandard {
			continue
		}
		if err := r.renderBucket(pt, passes); err != nil {
			errs = append(errs, err)
		}
	}
	if err := r.backend.EndFrame(); err != nil {
		errs = append(errs, fmt.Errorf("render: end frame: %w", err))
	}
	return errors.Join(errs...)
}

func (r *Renderer) renderBucket(pt PassType, passes []*Pass) error {
	defer profiler.Start("bucket " + pt.String()).End()
	if err := r.backend.BeginRenderPass(pt, r.opts.ClearColor); err != nil {
		return fmt.Errorf("render: begin %v render pass: %w", pt, err)
	}
	var errs []error
	for _, p := range passes {
		if err := p.RenderNode(r.bufferIndex); err != nil {
			r.log.Error("render node failed", "pass", pt, "node", p.nodeName(), "err", err)
			errs = append(errs, err)
		}
	}
	if err := r.backend.EndRenderPass(pt); err != nil {
		errs = append(errs, fmt.Errorf("render: end %v render pass: %w", pt, err))
	}
	return errors.Join(errs...)
}

// SubmitFrame presents the recorded frame.
func (r *Renderer) SubmitFrame() error {
	if r.closed {
		return fmt.Errorf("%w: renderer is shut down", ErrNotInitialized)
	}
	r.frame++
	return r.backend.Present()
}

// OnWindowResize resizes the window target and the Standard passes drawing to it.
func (r *Renderer) OnWindowResize(w, h int) {
	if w <= 0 || h <= 0 || (w == r.width && h == r.height) {
		return
	}
	r.width, r.height = w, h
	r.backend.Resize(w, h)
	for _, e := range r.effects {
		for _, p := range e.Passes[PassStandard] {
			p.width, p.height = w, h
		}
	}
	r.log.Debug("window resized", "width", w, "height", h)
}

// Shutdown destroys every pass and cached backend object, then the backend.
func (r *Renderer) Shutdown() {
	if r.closed {
		return
	}
	r.closed = true
	for _, e := range r.effects {
		e.destroy()
	}
	r.effects = nil
	r.uniforms.clear()
	r.vertices.clear()
	r.indices.clear()
	r.targets.clear()
	r.textures.clear()
	r.shaders.clear()
	r.backend.Shutdown()
	r.log.Info("renderer shut down", "frames", r.frame)
}

func (r *Renderer) BindShader(s *gfx.Shader) (Shadow, error) {
	return track(r, r.shaders, s, r.backend.NewShader)
}

func (r *Renderer) BindTexture(t *gfx.Texture) (Shadow, error) {
	return track(r, r.textures, t, r.backend.NewTexture)
}

func (r *Renderer) BindUniformBuffer(ub *gfx.UniformBuffer) (UniformBufferShadow, error) {
	return track(r, r.uniforms, ub, r.backend.NewUniformBuffer)
}

func (r *Renderer) BindVertexBuffer(vb *gfx.VertexBuffer) (Shadow, error) {
	return track(r, r.vertices, vb, r.backend.NewVertexBuffer)
}

func (r *Renderer) BindIndexBuffer(ib *gfx.IndexBuffer) (Shadow, error) {
	return track(r, r.indices, ib, r.backend.NewIndexBuffer)
}

func (r *Renderer) BindRenderTarget(rt *gfx.RenderTarget) (Shadow, error) {
	return track(r, r.targets, rt, r.backend.NewRenderTarget)
}

// UnBind* destroy the shadow of a resource. Passes materialized with it turn
// stale and are rebuilt on the next ComputeGraphicsResources.
func (r *Renderer) UnBindShader(s *gfx.Shader) bool                { return unbind(r.shaders, s) }
func (r *Renderer) UnBindTexture(t *gfx.Texture) bool              { return unbind(r.textures, t) }
func (r *Renderer) UnBindUniformBuffer(ub *gfx.UniformBuffer) bool { return unbind(r.uniforms, ub) }
func (r *Renderer) UnBindVertexBuffer(vb *gfx.VertexBuffer) bool   { return unbind(r.vertices, vb) }
func (r *Renderer) UnBindIndexBuffer(ib *gfx.IndexBuffer) bool     { return unbind(r.indices, ib) }
func (r *Renderer) UnBindRenderTarget(rt *gfx.RenderTarget) bool   { return unbind(r.targets, rt) }

func (r *Renderer) uploadUniforms(ub *gfx.UniformBuffer) error {
	s, err := r.BindUniformBuffer(ub)
	if err != nil {
		return fmt.Errorf("render: bind uniform buffer %q: %w", ub.Block, err)
	}
	if err := s.Upload(ub); err != nil {
		return fmt.Errorf("render: upload uniform buffer %q: %w", ub.Block, err)
	}
	ub.ClearDirty()
	return nil
}
