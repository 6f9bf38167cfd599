package core

import (
	"runtime"
	"time"
)

// Run wires the platform window + renderer and executes the main loop.
func Run(app App, cfg Config, newWindow func(Config) (Window, error), newRenderer func(Window, Config) (Renderer, error)) error {
	// Graphics contexts require the main OS thread.
	runtime.LockOSThread()

	if err := cfg.Validate(); err != nil {
		return err
	}
	log := Logger()

	win, err := newWindow(cfg)
	if err != nil {
		return err
	}
	defer win.Destroy()

	rend, err := newRenderer(win, cfg)
	if err != nil {
		return err
	}
	// renderer releases its GPU objects before the window drops the context
	defer rend.Shutdown()

	w, h := win.FramebufferSize()
	rend.OnWindowResize(w, h)

	eng := &Engine{Window: win, Renderer: rend, Input: NewInput(), Config: cfg, start: time.Now()}
	win.SetEventCallback(func(ev Event) {
		eng.Input.Handle(ev)
		if !eng.Layers.Dispatch(eng, ev) {
			app.OnEvent(eng, ev)
		}
		switch ev.(type) {
		case EventResize:
			fw, fh := win.FramebufferSize()
			if fw < 1 || fh < 1 {
				return
			}
			rend.OnWindowResize(fw, fh)
		case EventCloseRequested:
			win.RequestClose()
		}
	})

	app.OnStart(eng)
	log.Info("engine started", "backend", cfg.Backend, "width", w, "height", h)

	// Fixed-timestep (60 Hz) with interpolation
	const tick = time.Second / 60
	var (
		accum   time.Duration
		prev    = time.Now()
		maxStep = 10 // prevent spiral of death
	)

	for !win.ShouldClose() {
		now := time.Now()
		accum += now.Sub(prev)
		prev = now

		// Poll OS events (platform will emit via callbacks)
		win.PollEvents()

		steps := 0
		for accum >= tick && steps < maxStep {
			dt := float64(tick) / float64(time.Second)
			eng.Layers.Update(eng, dt)
			app.OnUpdate(eng, dt)
			accum -= tick
			steps++
		}
		if steps > 0 {
			eng.Input.EndFrame()
		}

		alpha := float64(accum) / float64(tick)
		eng.Layers.Render(eng, alpha)
		app.OnRender(eng, alpha)

		if err := rend.SubmitFrame(); err != nil {
			log.Error("submit frame", "err", err)
			return err
		}
	}

	app.OnShutdown(eng)
	eng.Layers.DetachAll(eng)
	log.Info("engine exit", "uptime", eng.Uptime())
	return nil
}
