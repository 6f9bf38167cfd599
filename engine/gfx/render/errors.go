package render

import (
	"errors"
	"fmt"

	"github.com/hubastard/grove3d/engine/gfx"
	"github.com/hubastard/grove3d/engine/gfx/glsl"
)

var (
	// ErrTargetCount is wrapped when a pass has the wrong number of render targets.
	ErrTargetCount = errors.New("render: wrong render target count")
	// ErrNotInitialized is wrapped when a frame entry point runs before the
	// state it depends on exists.
	ErrNotInitialized = errors.New("render: not initialized")
	// ErrTextureUnits is returned when a pass samples more textures than the
	// backend has units.
	ErrTextureUnits = errors.New("render: out of texture units")
	// ErrUnboundSampler is wrapped when a shader declares a sampler the pass
	// gives no texture.
	ErrUnboundSampler = errors.New("render: sampler has no texture")
)

// MissingRoleError reports a mandatory uniform role absent from a shader's
// uniform block.
type MissingRoleError struct {
	Pass  PassType
	Stage glsl.Stage
	Role  gfx.UniformRole
	Node  string
}

func (e *MissingRoleError) Error() string {
	return fmt.Sprintf("render: %v pass of %q: %v shader does not declare required uniform %v", e.Pass, e.Node, e.Stage, e.Role)
}
