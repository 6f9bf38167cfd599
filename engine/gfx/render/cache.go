package render

import (
	"fmt"

	"github.com/hubastard/grove3d/engine/core"
	"github.com/hubastard/grove3d/engine/gfx"
)

// Handle addresses a slot of an arena. A handle whose generation no longer
// matches its slot refers to a destroyed shadow.
type Handle struct {
	index uint32
	gen   uint32
}

type slot[S Shadow] struct {
	gen    uint32
	live   bool
	id     gfx.ID
	shadow S
}

// arena stores the shadows of one resource kind in reusable slots, indexed by
// the owning resource's ID.
type arena[S Shadow] struct {
	slots []slot[S]
	free  []uint32
	byID  map[gfx.ID]Handle
}

func newArena[S Shadow]() *arena[S] {
	return &arena[S]{byID: map[gfx.ID]Handle{}}
}

func (a *arena[S]) lookup(id gfx.ID) (S, Handle, bool) {
	h, ok := a.byID[id]
	if !ok {
		var zero S
		return zero, Handle{}, false
	}
	return a.slots[h.index].shadow, h, true
}

func (a *arena[S]) get(h Handle) (S, bool) {
	if int(h.index) >= len(a.slots) {
		var zero S
		return zero, false
	}
	s := &a.slots[h.index]
	if !s.live || s.gen != h.gen {
		var zero S
		return zero, false
	}
	return s.shadow, true
}

// valid reports whether h still names the shadow it was issued for.
func (a *arena[S]) valid(h Handle) bool {
	_, ok := a.get(h)
	return ok
}

func (a *arena[S]) insert(id gfx.ID, shadow S) Handle {
	var idx uint32
	if n := len(a.free); n > 0 {
		idx = a.free[n-1]
		a.free = a.free[:n-1]
	} else {
		idx = uint32(len(a.slots))
		a.slots = append(a.slots, slot[S]{})
	}
	s := &a.slots[idx]
	s.gen++
	s.live, s.id, s.shadow = true, id, shadow
	h := Handle{index: idx, gen: s.gen}
	a.byID[id] = h
	return h
}

func (a *arena[S]) remove(id gfx.ID) (S, bool) {
	h, ok := a.byID[id]
	if !ok {
		var zero S
		return zero, false
	}
	delete(a.byID, id)
	s := &a.slots[h.index]
	shadow := s.shadow
	var zero S
	s.live, s.id, s.shadow = false, 0, zero
	a.free = append(a.free, h.index)
	return shadow, true
}

func (a *arena[S]) len() int { return len(a.byID) }

// clear destroys every live shadow.
func (a *arena[S]) clear() {
	for i := range a.slots {
		s := &a.slots[i]
		if !s.live {
			continue
		}
		s.shadow.Destroy()
		var zero S
		s.live, s.id, s.shadow = false, 0, zero
		a.free = append(a.free, uint32(i))
	}
	clear(a.byID)
}

// bind returns the shadow of res and its slot, creating it with create on a
// cache miss.
func bind[R gfx.Resource, S Shadow](a *arena[S], res R, create func(R) (S, error)) (S, Handle, error) {
	id := res.ResourceID()
	if s, h, ok := a.lookup(id); ok {
		return s, h, nil
	}
	s, err := create(res)
	if err != nil {
		var zero S
		return zero, Handle{}, err
	}
	h := a.insert(id, s)
	core.Logger().Debug("shadow created", "resource", fmt.Sprintf("%T", res), "id", id, "slot", h.index)
	return s, h, nil
}

// dependency is a shadow a materialized backend pass holds on to.
type dependency struct {
	arena interface{ valid(Handle) bool }
	h     Handle
}

// track binds res for r. While a pass is materializing, the shadow is
// recorded as one of its dependencies.
func track[R gfx.Resource, S Shadow](r *Renderer, a *arena[S], res R, create func(R) (S, error)) (S, error) {
	s, h, err := bind(a, res, create)
	if err == nil && r.building != nil {
		r.building.deps = append(r.building.deps, dependency{arena: a, h: h})
	}
	return s, err
}

// unbind destroys and forgets the shadow of res. It reports whether one existed.
func unbind[R gfx.Resource, S Shadow](a *arena[S], res R) bool {
	s, ok := a.remove(res.ResourceID())
	if ok {
		s.Destroy()
	}
	return ok
}
