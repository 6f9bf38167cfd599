package scene

import (
	"github.com/go-gl/mathgl/mgl32"
)

// Camera is a perspective camera looking from Eye at Target. The
// projection-view matrix is recomputed lazily after any change.
type Camera struct {
	Eye, Target, Up mgl32.Vec3
	FovY            float32 // degrees
	Aspect          float32
	Near, Far       float32

	vp    mgl32.Mat4
	dirty bool
}

func NewCamera(width, height int) *Camera {
	c := &Camera{
		Eye:    mgl32.Vec3{0, 3, 8},
		Up:     mgl32.Vec3{0, 1, 0},
		FovY:   45,
		Aspect: 1,
		Near:   0.1,
		Far:    100,
	}
	c.SetViewportPixels(width, height)
	c.Recalculate()
	return c
}

func (c *Camera) SetViewportPixels(w, h int) {
	if w > 0 && h > 0 {
		c.Aspect = float32(w) / float32(h)
	}
	c.dirty = true
}

func (c *Camera) LookAt(eye, target mgl32.Vec3) {
	c.Eye, c.Target = eye, target
	c.dirty = true
}

func (c *Camera) SetFov(deg float32) {
	c.FovY = mgl32.Clamp(deg, 10, 120)
	c.dirty = true
}

func (c *Camera) View() mgl32.Mat4 { return mgl32.LookAtV(c.Eye, c.Target, c.Up) }

func (c *Camera) Projection() mgl32.Mat4 {
	return mgl32.Perspective(mgl32.DegToRad(c.FovY), c.Aspect, c.Near, c.Far)
}

// ProjView implements render.Camera.
func (c *Camera) ProjView() mgl32.Mat4 {
	if c.dirty {
		c.Recalculate()
	}
	return c.vp
}

func (c *Camera) Position() mgl32.Vec3 { return c.Eye }

func (c *Camera) Recalculate() {
	c.vp = c.Projection().Mul4(c.View())
	c.dirty = false
}
