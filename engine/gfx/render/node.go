package render

import (
	"github.com/go-gl/mathgl/mgl32"
	"github.com/hubastard/grove3d/engine/colors"
	"github.com/hubastard/grove3d/engine/gfx"
)

// Node is the scene-graph surface the renderer consumes.
type Node interface {
	Name() string
	Geometry() *gfx.Geometry
	Effect() *Effect
	Transform() mgl32.Mat4

	Lit() bool
	SetLit(lit bool)

	// AllowsPass reports whether the node takes part in passes of type pt.
	// Effects record the allow-list through AllowPass when they are built.
	AllowsPass(pt PassType) bool
	AllowPass(pt PassType)
}

// LightNode is a scene node carrying a light.
type LightNode interface {
	Light() *Light
}

// Camera supplies the view for a frame.
type Camera interface {
	ProjView() mgl32.Mat4
	Position() mgl32.Vec3
}

type LightKind int32

const (
	LightDirectional LightKind = iota
	LightPoint
)

// Light is a single light source. Directional lights shine along Dir; Pos is
// where their shadow camera sits.
type Light struct {
	Kind      LightKind
	Pos       mgl32.Vec3
	Dir       mgl32.Vec3
	Color     colors.Color
	Intensity float32

	// Shadow camera volume: half-extent of the orthographic box (directional)
	// or field of view in degrees (point), plus depth range.
	ShadowExtent float32
	Near, Far    float32
}

// NewDirectionalLight returns a white light at pos shining towards target.
func NewDirectionalLight(pos, target mgl32.Vec3) *Light {
	return &Light{
		Kind:         LightDirectional,
		Pos:          pos,
		Dir:          target.Sub(pos).Normalize(),
		Color:        colors.White,
		Intensity:    1,
		ShadowExtent: 10,
		Near:         0.1,
		Far:          50,
	}
}

// Radiance is the color scaled by intensity, alpha kept.
func (l *Light) Radiance() colors.Color { return l.Color.Scale(l.Intensity) }

// LightSpace is the projection-view matrix of the light's shadow camera.
func (l *Light) LightSpace() mgl32.Mat4 {
	up := mgl32.Vec3{0, 1, 0}
	dir := l.Dir
	if dir.Len() == 0 {
		dir = mgl32.Vec3{0, -1, 0}
	}
	if mgl32.Abs(dir.Normalize().Dot(up)) > 0.999 {
		up = mgl32.Vec3{0, 0, 1}
	}
	view := mgl32.LookAtV(l.Pos, l.Pos.Add(dir), up)
	var proj mgl32.Mat4
	switch l.Kind {
	case LightPoint:
		fov := l.ShadowExtent
		if fov <= 0 {
			fov = 90
		}
		proj = mgl32.Perspective(mgl32.DegToRad(fov), 1, l.Near, l.Far)
	default:
		e := l.ShadowExtent
		proj = mgl32.Ortho(-e, e, -e, e, l.Near, l.Far)
	}
	return proj.Mul4(view)
}

// lightCamera views the scene from a light; shadow passes render through it.
type lightCamera struct{ l *Light }

func (c lightCamera) ProjView() mgl32.Mat4 { return c.l.LightSpace() }
func (c lightCamera) Position() mgl32.Vec3 { return c.l.Pos }

// fallbackLight places the shadow camera of a scene without lights.
var fallbackLight = NewDirectionalLight(mgl32.Vec3{0, 10, 0}, mgl32.Vec3{})
