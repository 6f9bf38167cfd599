package core

// Layer is a slice of application behaviour (scene, debug overlay, camera rig) that
// receives the engine callbacks in stack order.
type Layer interface {
	OnAttach(e *Engine)
	OnDetach(e *Engine)
	OnUpdate(e *Engine, dt float64)
	OnRender(e *Engine, alpha float64)
	OnEvent(e *Engine, ev Event) bool // return true if handled; propagation stops
}

// LayerStack owns the attached layers. Updates and renders run bottom-up,
// events are offered top-down.
type LayerStack struct{ list []Layer }

// Attach pushes l and calls its OnAttach.
func (ls *LayerStack) Attach(e *Engine, l Layer) {
	ls.list = append(ls.list, l)
	l.OnAttach(e)
}

// Detach pops the top layer and calls its OnDetach.
func (ls *LayerStack) Detach(e *Engine) (Layer, bool) {
	if len(ls.list) == 0 {
		return nil, false
	}
	i := len(ls.list) - 1
	l := ls.list[i]
	ls.list[i] = nil
	ls.list = ls.list[:i]
	l.OnDetach(e)
	return l, true
}

// DetachAll detaches every layer, top first.
func (ls *LayerStack) DetachAll(e *Engine) {
	for {
		if _, ok := ls.Detach(e); !ok {
			return
		}
	}
}

func (ls *LayerStack) Len() int { return len(ls.list) }

func (ls *LayerStack) Update(e *Engine, dt float64) {
	for _, l := range ls.list {
		l.OnUpdate(e, dt)
	}
}

func (ls *LayerStack) Render(e *Engine, alpha float64) {
	for _, l := range ls.list {
		l.OnRender(e, alpha)
	}
}

// Dispatch offers ev to the layers from the top and reports whether one consumed it.
func (ls *LayerStack) Dispatch(e *Engine, ev Event) bool {
	for i := len(ls.list) - 1; i >= 0; i-- {
		if ls.list[i].OnEvent(e, ev) {
			return true
		}
	}
	return false
}
