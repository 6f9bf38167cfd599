package scene

import (
	"github.com/go-gl/mathgl/mgl32"
	"github.com/hubastard/grove3d/engine/gfx"
	"github.com/hubastard/grove3d/engine/gfx/render"
)

// Node is a drawable scene object: geometry placed by a transform and drawn
// with one effect.
type Node struct {
	name     string
	geometry *gfx.Geometry
	effect   *render.Effect

	Translation mgl32.Vec3
	Rotation    mgl32.Quat
	Scale       mgl32.Vec3

	lit     bool
	allowed map[render.PassType]bool
}

func NewNode(name string, g *gfx.Geometry) *Node {
	return &Node{
		name:     name,
		geometry: g,
		Rotation: mgl32.QuatIdent(),
		Scale:    mgl32.Vec3{1, 1, 1},
		allowed:  map[render.PassType]bool{},
	}
}

func (n *Node) Name() string               { return n.name }
func (n *Node) Geometry() *gfx.Geometry    { return n.geometry }
func (n *Node) Effect() *render.Effect     { return n.effect }
func (n *Node) SetEffect(e *render.Effect) { n.effect = e }
func (n *Node) Lit() bool                  { return n.lit }
func (n *Node) SetLit(lit bool)            { n.lit = lit }

func (n *Node) AllowsPass(pt render.PassType) bool { return n.allowed[pt] }
func (n *Node) AllowPass(pt render.PassType)       { n.allowed[pt] = true }

// Transform is translation * rotation * scale.
func (n *Node) Transform() mgl32.Mat4 {
	t := mgl32.Translate3D(n.Translation.X(), n.Translation.Y(), n.Translation.Z())
	s := mgl32.Scale3D(n.Scale.X(), n.Scale.Y(), n.Scale.Z())
	return t.Mul4(n.Rotation.Mat4()).Mul4(s)
}

func (n *Node) SetPosition(x, y, z float32) *Node {
	n.Translation = mgl32.Vec3{x, y, z}
	return n
}

// Rotate turns the node by angle radians around axis, after its current
// rotation.
func (n *Node) Rotate(angle float32, axis mgl32.Vec3) {
	n.Rotation = mgl32.QuatRotate(angle, axis.Normalize()).Mul(n.Rotation).Normalize()
}

// LightNode places a light in the scene.
type LightNode struct {
	name  string
	light *render.Light
}

func NewLightNode(name string, l *render.Light) *LightNode {
	return &LightNode{name: name, light: l}
}

func (n *LightNode) Name() string         { return n.name }
func (n *LightNode) Light() *render.Light { return n.light }
