package main

import (
	"fmt"
	"runtime"
	"time"

	"github.com/hubastard/grove3d/engine/core"
	"github.com/hubastard/grove3d/engine/gfx/render"
	"github.com/hubastard/grove3d/engine/profiler"
)

// StatsLayer reports frame timing, pass counts and memory once a second in
// the log and the window title. Ctrl+P dumps the profiler capture.
type StatsLayer struct {
	scene   *SceneLayer
	title   string
	backend string
	frames  int
	last    time.Time
}

func (l *StatsLayer) OnAttach(e *core.Engine) {
	l.title = e.Config.Title
	l.backend = e.Config.Backend
	if r, ok := e.Renderer.(*render.Renderer); ok {
		l.backend = r.Backend().Name()
	}
	l.last = time.Now()
}

func (l *StatsLayer) OnDetach(e *core.Engine) {}

func (l *StatsLayer) OnUpdate(e *core.Engine, dt float64) {}

func (l *StatsLayer) OnRender(e *core.Engine, alpha float64) {
	l.frames++
	elapsed := time.Since(l.last)
	if elapsed < time.Second {
		return
	}
	ms := float64(elapsed.Microseconds()) / 1000 / float64(l.frames)
	fps := float64(l.frames) / elapsed.Seconds()
	l.frames, l.last = 0, time.Now()

	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	attrs := []any{
		"frame_ms", fmt.Sprintf("%.3f", ms),
		"fps", fmt.Sprintf("%.1f", fps),
		"heap_mb", fmt.Sprintf("%.2f", float64(mem.HeapAlloc)/(1<<20)),
		"goroutines", runtime.NumGoroutine(),
	}
	if l.scene != nil {
		for pt, n := range l.scene.PassCounts() {
			attrs = append(attrs, pt.String(), n)
		}
	}
	core.Logger().Debug("frame stats", attrs...)
	e.Window.SetTitle(fmt.Sprintf("%s [%s] %.1f FPS (%.2f ms)", l.title, l.backend, fps, ms))
}

func (l *StatsLayer) OnEvent(e *core.Engine, ev core.Event) bool {
	if v, ok := ev.(core.EventKey); ok && v.Down && v.Key == core.KeyP && v.Mods&core.ModCtrl != 0 {
		if path, err := profiler.Open(); err == nil {
			core.Logger().Info("speedscope dump", "path", path)
		} else {
			core.Logger().Error("profiler dump", "err", err)
		}
		return true
	}
	return false
}
