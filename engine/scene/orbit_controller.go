package scene

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/hubastard/grove3d/engine/core"
)

// OrbitController circles a Camera around its target: A/D or left/right
// yaw, W/S or up/down pitch, Q/E or the scroll wheel zoom, and dragging with
// the left mouse button orbits freely.
type OrbitController struct {
	YawSpeed   float32 // radians per second
	PitchSpeed float32
	ZoomSpeed  float32 // distance units per second
	DragSpeed  float32 // radians per pixel
	MinDist    float32
	MaxDist    float32
	Camera     *Camera

	yaw, pitch, dist float32
	lastX, lastY     float64
	dragging         bool
}

// NewOrbitController starts from the camera's current eye position.
func NewOrbitController(cam *Camera) *OrbitController {
	oc := &OrbitController{
		YawSpeed:   1.5,
		PitchSpeed: 1,
		ZoomSpeed:  6,
		DragSpeed:  0.008,
		MinDist:    1,
		MaxDist:    60,
		Camera:     cam,
	}
	off := cam.Eye.Sub(cam.Target)
	oc.dist = off.Len()
	if oc.dist > 0 {
		oc.pitch = float32(math.Asin(float64(off.Y() / oc.dist)))
		oc.yaw = float32(math.Atan2(float64(off.X()), float64(off.Z())))
	}
	oc.dist = mgl32.Clamp(oc.dist, oc.MinDist, oc.MaxDist)
	oc.apply()
	return oc
}

func (oc *OrbitController) Update(e *core.Engine, dt float32) {
	in := e.Input
	if in.IsKeyDown(core.KeyA) || in.IsKeyDown(core.KeyLeft) {
		oc.yaw -= oc.YawSpeed * dt
	}
	if in.IsKeyDown(core.KeyD) || in.IsKeyDown(core.KeyRight) {
		oc.yaw += oc.YawSpeed * dt
	}
	if in.IsKeyDown(core.KeyW) || in.IsKeyDown(core.KeyUp) {
		oc.pitch += oc.PitchSpeed * dt
	}
	if in.IsKeyDown(core.KeyS) || in.IsKeyDown(core.KeyDown) {
		oc.pitch -= oc.PitchSpeed * dt
	}
	if in.IsKeyDown(core.KeyQ) {
		oc.dist += oc.ZoomSpeed * dt
	}
	if in.IsKeyDown(core.KeyE) {
		oc.dist -= oc.ZoomSpeed * dt
	}
	oc.dist -= float32(in.Scroll()) * oc.ZoomSpeed * 0.1

	x, y := in.Mouse()
	if in.IsButtonDown(core.MouseLeft) {
		if oc.dragging {
			oc.yaw -= float32(x-oc.lastX) * oc.DragSpeed
			oc.pitch += float32(y-oc.lastY) * oc.DragSpeed
		}
		oc.dragging = true
	} else {
		oc.dragging = false
	}
	oc.lastX, oc.lastY = x, y

	oc.apply()
}

// apply clamps pitch short of the poles so the view never flips over Up.
func (oc *OrbitController) apply() {
	const limit = math.Pi/2 - 0.05
	oc.pitch = mgl32.Clamp(oc.pitch, -limit, limit)
	oc.dist = mgl32.Clamp(oc.dist, oc.MinDist, oc.MaxDist)
	cp := float32(math.Cos(float64(oc.pitch)))
	off := mgl32.Vec3{
		cp * float32(math.Sin(float64(oc.yaw))),
		float32(math.Sin(float64(oc.pitch))),
		cp * float32(math.Cos(float64(oc.yaw))),
	}
	oc.Camera.LookAt(oc.Camera.Target.Add(off.Mul(oc.dist)), oc.Camera.Target)
}
