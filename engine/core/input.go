package core

// Input tracks keyboard and mouse state from window events. Pressed reports
// edges since the last EndFrame so one-shot actions don't repeat while held.
type Input struct {
	keys           map[Key]bool
	pressed        map[Key]bool
	buttons        [mouseButtonsN]bool
	mouseX, mouseY float64
	scroll         float64
}

func NewInput() *Input { return &Input{keys: map[Key]bool{}, pressed: map[Key]bool{}} }

func (in *Input) Handle(ev Event) {
	switch e := ev.(type) {
	case EventKey:
		if e.Down && !in.keys[e.Key] {
			in.pressed[e.Key] = true
		}
		in.keys[e.Key] = e.Down
	case EventMouseMove:
		in.mouseX, in.mouseY = e.X, e.Y
	case EventScroll:
		in.scroll += e.Yoff
	case EventMouseButton:
		if e.Button >= 0 && e.Button < mouseButtonsN {
			in.buttons[e.Button] = e.Down
		}
	}
}

// EndFrame clears per-frame edge state.
func (in *Input) EndFrame() {
	clear(in.pressed)
	in.scroll = 0
}

func (in *Input) IsKeyDown(k Key) bool      { return in.keys[k] }
func (in *Input) Pressed(k Key) bool        { return in.pressed[k] }
func (in *Input) Mouse() (float64, float64) { return in.mouseX, in.mouseY }
func (in *Input) Scroll() float64           { return in.scroll }

func (in *Input) IsButtonDown(b MouseButton) bool {
	return b >= 0 && b < mouseButtonsN && in.buttons[b]
}
