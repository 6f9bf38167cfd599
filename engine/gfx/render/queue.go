package render

import "github.com/hubastard/grove3d/engine/core"

// Bucket groups renderables by how they are drawn. Only opaque geometry is
// classified today.
type Bucket int32

const (
	BucketOpaque Bucket = iota

	BucketsN
)

// Renderable pairs a node with the effect it is drawn with.
type Renderable struct {
	Node   Node
	Effect *Effect
}

// Queue collects what to draw this frame. It is rebuilt every frame; order of
// Push is preserved within a bucket.
type Queue struct {
	buckets [BucketsN][]Renderable
	lights  []*Light
}

func NewQueue() *Queue { return &Queue{} }

// Push classifies node. Nodes without geometry or effect are skipped.
func (q *Queue) Push(node Node) {
	e := node.Effect()
	if e == nil || node.Geometry() == nil {
		core.Logger().Debug("queue skips node", "node", node.Name(), "effect", e != nil)
		return
	}
	q.buckets[BucketOpaque] = append(q.buckets[BucketOpaque], Renderable{Node: node, Effect: e})
}

func (q *Queue) PushLight(n LightNode) {
	if l := n.Light(); l != nil {
		q.lights = append(q.lights, l)
	}
}

func (q *Queue) ForEach(b Bucket, fn func(Renderable)) {
	if b < 0 || b >= BucketsN {
		return
	}
	for _, r := range q.buckets[b] {
		fn(r)
	}
}

func (q *Queue) ForEachLight(fn func(*Light)) {
	for _, l := range q.lights {
		fn(l)
	}
}

func (q *Queue) Len(b Bucket) int {
	if b < 0 || b >= BucketsN {
		return 0
	}
	return len(q.buckets[b])
}

// Reset empties the queue, keeping its storage.
func (q *Queue) Reset() {
	for i := range q.buckets {
		clear(q.buckets[i])
		q.buckets[i] = q.buckets[i][:0]
	}
	clear(q.lights)
	q.lights = q.lights[:0]
}
