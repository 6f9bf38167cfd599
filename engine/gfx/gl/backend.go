// Package glbackend realizes the renderer on OpenGL 4.1 core. GL is a state
// machine: every pass re-applies its fixed-function state before drawing.
package glbackend

import (
	"fmt"
	"log/slog"

	"github.com/go-gl/gl/v4.1-core/gl"
	"github.com/hubastard/grove3d/engine/colors"
	"github.com/hubastard/grove3d/engine/core"
	"github.com/hubastard/grove3d/engine/gfx/render"
)

// Window is what the backend needs from the platform: a current 4.1 context
// and a way to present it.
type Window interface {
	SwapBuffers()
	FramebufferSize() (int, int)
}

// Backend implements render.Backend.
type Backend struct {
	win   Window
	debug bool
	log   *slog.Logger

	width, height int
	maxUnits      int
}

var _ render.Backend = (*Backend)(nil)

// New returns a backend drawing into win. The window's context must be
// current on the calling thread for the backend's whole life.
func New(win Window, cfg core.Config) *Backend {
	return &Backend{win: win, debug: cfg.Debug, log: core.Logger().With("backend", "gl")}
}

func (b *Backend) Name() string                { return "gl" }
func (b *Backend) NDC() render.NDC             { return render.NDCGL }
func (b *Backend) MaxTextureUnits() int        { return b.maxUnits }
func (b *Backend) FramebufferSize() (int, int) { return b.width, b.height }

func (b *Backend) Init() error {
	if err := gl.Init(); err != nil {
		return fmt.Errorf("gl init: %w", err)
	}
	var units int32
	gl.GetIntegerv(gl.MAX_COMBINED_TEXTURE_IMAGE_UNITS, &units)
	b.maxUnits = int(units)
	b.width, b.height = b.win.FramebufferSize()

	gl.PixelStorei(gl.UNPACK_ALIGNMENT, 1)
	gl.Enable(gl.TEXTURE_CUBE_MAP_SEAMLESS)
	b.log.Info("context ready",
		"version", gl.GoStr(gl.GetString(gl.VERSION)),
		"renderer", gl.GoStr(gl.GetString(gl.RENDERER)),
		"texture_units", b.maxUnits)
	return nil
}

// BeginFrame always targets buffer 0; the swap chain is the driver's.
func (b *Backend) BeginFrame() (int, error) {
	if b.debug {
		drainErrors(b.log, "previous frame")
	}
	return 0, nil
}

// BeginRenderPass clears the window for the Standard bucket. Offscreen and
// shadow passes bind and clear their own framebuffers.
func (b *Backend) BeginRenderPass(pt render.PassType, clear colors.Color) error {
	if pt != render.PassStandard {
		return nil
	}
	gl.BindFramebuffer(gl.FRAMEBUFFER, 0)
	gl.Viewport(0, 0, int32(b.width), int32(b.height))
	clearTarget(clear, true, true, true)
	return nil
}

func (b *Backend) EndRenderPass(pt render.PassType) error {
	if pt != render.PassStandard {
		gl.BindFramebuffer(gl.FRAMEBUFFER, 0)
	}
	return nil
}

func (b *Backend) EndFrame() error {
	gl.BindVertexArray(0)
	gl.UseProgram(0)
	if b.debug {
		drainErrors(b.log, "frame")
	}
	return nil
}

func (b *Backend) Present() error {
	b.win.SwapBuffers()
	return nil
}

func (b *Backend) Resize(w, h int) {
	b.width, b.height = w, h
	gl.Viewport(0, 0, int32(w), int32(h))
}

// Shutdown is a no-op: the renderer has destroyed every shadow by the time
// it is called and the context belongs to the window.
func (b *Backend) Shutdown() {
	b.log.Debug("backend shut down")
}

// clearTarget clears the bound framebuffer. Write masks are opened first
// since glClear honours them.
func clearTarget(c colors.Color, color, depth, stencil bool) {
	var mask uint32
	if color {
		gl.ColorMask(true, true, true, true)
		gl.ClearColor(c[0], c[1], c[2], c[3])
		mask |= gl.COLOR_BUFFER_BIT
	}
	if depth {
		gl.DepthMask(true)
		gl.ClearDepth(1)
		mask |= gl.DEPTH_BUFFER_BIT
	}
	if stencil {
		gl.StencilMask(0xff)
		gl.ClearStencil(0)
		mask |= gl.STENCIL_BUFFER_BIT
	}
	gl.Clear(mask)
}

func drainErrors(log *slog.Logger, where string) {
	for i := 0; i < 16; i++ {
		code := gl.GetError()
		if code == gl.NO_ERROR {
			return
		}
		log.Error("gl error", "where", where, "code", fmt.Sprintf("0x%04x", code))
	}
}
