// Package gfx holds the backend-neutral description of GPU resources: shaders,
// textures, uniform buffers, vertex data, render targets and fixed-function
// state. Backends materialize these lazily into native objects.
package gfx

import "sync/atomic"

// ID identifies an engine resource for its whole lifetime. Backends key their
// native objects on it; the zero ID is never handed out.
type ID uint64

var lastID atomic.Uint64

func nextID() ID { return ID(lastID.Add(1)) }

// Resource is implemented by every engine resource.
type Resource interface {
	ResourceID() ID
}
