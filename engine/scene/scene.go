package scene

import (
	"github.com/hubastard/grove3d/engine/core"
	"github.com/hubastard/grove3d/engine/gfx/render"
)

// Scene owns the nodes and lights of a frame in the order they were added.
type Scene struct {
	nodes  []*Node
	lights []*LightNode
}

func New() *Scene { return &Scene{} }

func (s *Scene) Add(nodes ...*Node) {
	s.nodes = append(s.nodes, nodes...)
}

func (s *Scene) AddLight(l *LightNode) {
	s.lights = append(s.lights, l)
}

func (s *Scene) Nodes() []*Node       { return s.nodes }
func (s *Scene) Lights() []*LightNode { return s.lights }

// Find returns the node called name, or nil.
func (s *Scene) Find(name string) *Node {
	for _, n := range s.nodes {
		if n.Name() == name {
			return n
		}
	}
	return nil
}

// Fill resets q and pushes every light, then every node that has an effect
// that has not failed to build.
func (s *Scene) Fill(q *render.Queue) {
	q.Reset()
	for _, l := range s.lights {
		q.PushLight(l)
	}
	for _, n := range s.nodes {
		if e := n.Effect(); e != nil && e.Err() != nil {
			core.Logger().Debug("skip node with failed effect", "node", n.Name())
			continue
		}
		q.Push(n)
	}
}
