package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type recLayer struct {
	name    string
	log     *[]string
	consume bool
}

func (l *recLayer) OnAttach(*Engine)          { *l.log = append(*l.log, l.name+".attach") }
func (l *recLayer) OnDetach(*Engine)          { *l.log = append(*l.log, l.name+".detach") }
func (l *recLayer) OnUpdate(*Engine, float64) { *l.log = append(*l.log, l.name+".update") }
func (l *recLayer) OnRender(*Engine, float64) { *l.log = append(*l.log, l.name+".render") }

func (l *recLayer) OnEvent(*Engine, Event) bool {
	*l.log = append(*l.log, l.name+".event")
	return l.consume
}

func TestLayerStackOrder(t *testing.T) {
	var log []string
	e := &Engine{}
	var ls LayerStack
	ls.Attach(e, &recLayer{name: "scene", log: &log})
	ls.Attach(e, &recLayer{name: "hud", log: &log, consume: true})

	ls.Update(e, 1)
	ls.Render(e, 0)
	handled := ls.Dispatch(e, EventResize{W: 1, H: 1})
	ls.DetachAll(e)

	assert.True(t, handled)
	assert.Equal(t, []string{
		"scene.attach", "hud.attach",
		"scene.update", "hud.update",
		"scene.render", "hud.render",
		"hud.event",
		"hud.detach", "scene.detach",
	}, log)
	assert.Zero(t, ls.Len())
}

func TestInputEdges(t *testing.T) {
	in := NewInput()
	in.Handle(EventKey{Key: KeyP, Down: true})
	in.Handle(EventKey{Key: KeyP, Down: true}) // key repeat
	in.Handle(EventScroll{Yoff: 2})
	assert.True(t, in.Pressed(KeyP))
	assert.True(t, in.IsKeyDown(KeyP))
	assert.Equal(t, 2.0, in.Scroll())

	in.EndFrame()
	assert.False(t, in.Pressed(KeyP))
	assert.True(t, in.IsKeyDown(KeyP))
	assert.Zero(t, in.Scroll())
}

func TestInputMouseButtons(t *testing.T) {
	in := NewInput()
	in.Handle(EventMouseButton{Button: MouseLeft, Down: true})
	in.Handle(EventMouseMove{X: 3, Y: 4})
	assert.True(t, in.IsButtonDown(MouseLeft))
	assert.False(t, in.IsButtonDown(MouseRight))
	assert.False(t, in.IsButtonDown(MouseButton(42)))
	x, y := in.Mouse()
	assert.Equal(t, 3.0, x)
	assert.Equal(t, 4.0, y)

	in.EndFrame()
	assert.True(t, in.IsButtonDown(MouseLeft), "held buttons survive the frame")
	in.Handle(EventMouseButton{Button: MouseLeft})
	assert.False(t, in.IsButtonDown(MouseLeft))
}
