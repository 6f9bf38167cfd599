package main

import (
	"fmt"
	"log/slog"
	"os"

	"cogentcore.org/core/cli"
	"github.com/hubastard/grove3d/engine/core"
	glbackend "github.com/hubastard/grove3d/engine/gfx/gl"
	"github.com/hubastard/grove3d/engine/gfx/render"
	vkbackend "github.com/hubastard/grove3d/engine/gfx/vulkan"
	"github.com/hubastard/grove3d/engine/platform"
	"github.com/hubastard/grove3d/engine/profiler"
)

//go:generate sh -c "for f in ../../assets/shaders/*.vert ../../assets/shaders/*.frag; do glslc $DOLLAR{f} -o $DOLLAR{f}.spv; done"

type App struct {
	scene *SceneLayer
	stats *StatsLayer
}

func (a *App) OnStart(e *core.Engine) {
	profiler.Init(1 << 10) // ~1K scope samples

	a.scene = &SceneLayer{}
	e.Layers.Attach(e, a.scene)

	a.stats = &StatsLayer{scene: a.scene}
	e.Layers.Attach(e, a.stats)
}

func (a *App) OnUpdate(e *core.Engine, dt float64)    {}
func (a *App) OnRender(e *core.Engine, alpha float64) {}
func (a *App) OnEvent(e *core.Engine, ev core.Event)  {}
func (a *App) OnShutdown(e *core.Engine)              {}

func newRenderer(win core.Window, cfg core.Config) (core.Renderer, error) {
	var backend render.Backend
	switch cfg.Backend {
	case core.BackendVulkan:
		vw, ok := win.(vkbackend.Window)
		if !ok {
			return nil, fmt.Errorf("window %T cannot host a vulkan surface", win)
		}
		backend = vkbackend.New(vw, cfg)
	default:
		backend = glbackend.New(win, cfg)
	}
	r, err := render.New(backend, render.OptionsFromConfig(cfg))
	if err != nil {
		return nil, err
	}
	return r, nil
}

// run starts the sandbox with cfg, which cli has filled from the defaults,
// the -config file and the flags, in that order.
func run(cfg *core.Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	core.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: core.ParseLogLevel(cfg.LogLevel)})))

	newWindow := func(cfg core.Config) (core.Window, error) {
		w, err := platform.NewGLFWWindow(cfg, nil)
		if err != nil {
			return nil, err
		}
		return w, nil
	}
	return core.Run(&App{}, *cfg, newWindow, newRenderer)
}

func main() {
	opts := cli.DefaultOptions("sandbox", "Renders the grove3d demo scene with the gl or vulkan backend.")
	opts.DefaultFiles = []string{"sandbox.toml"}
	cfg := core.DefaultConfig()
	cli.Run(opts, &cfg, run)
}
