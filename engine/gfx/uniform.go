package gfx

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/hubastard/grove3d/engine/colors"
	"github.com/hubastard/grove3d/engine/gfx/glsl"
)

// UniformRole is a well-known semantic uniform. Shaders opt into a role by
// declaring a uniform block member with the role's exact name.
type UniformRole int32

const (
	RolePVM UniformRole = iota
	RoleModel
	RoleNormalMatrix
	RoleCameraPos
	RoleLightDir
	RoleLightPos
	RoleLightColor
	RoleRoughness
	RoleGLNDC
	RoleColor
	RoleLightPVM
	RoleTime

	UniformRolesN
)

var roles = [UniformRolesN]struct{ name, typ string }{
	RolePVM:          {"u_pvm", "mat4"},
	RoleModel:        {"u_model", "mat4"},
	RoleNormalMatrix: {"u_normalMatrix", "mat3"},
	RoleCameraPos:    {"u_cameraPos", "vec3"},
	RoleLightDir:     {"u_lightDir", "vec3"},
	RoleLightPos:     {"u_lightPos", "vec3"},
	RoleLightColor:   {"u_lightColor", "vec4"},
	RoleRoughness:    {"u_roughness", "float"},
	RoleGLNDC:        {"u_glNDC", "float"},
	RoleColor:        {"u_color", "vec4"},
	RoleLightPVM:     {"u_lightPVM", "mat4"},
	RoleTime:         {"u_time", "float"},
}

func (r UniformRole) String() string {
	if r < 0 || r >= UniformRolesN {
		return fmt.Sprintf("UniformRole(%d)", int32(r))
	}
	return roles[r].name
}

// Type is the GLSL type a shader must declare the role with.
func (r UniformRole) Type() string {
	if r < 0 || r >= UniformRolesN {
		return ""
	}
	return roles[r].typ
}

// RoleByName looks up a role by its member name.
func RoleByName(name string) (UniformRole, bool) {
	for i, r := range roles {
		if r.name == name {
			return UniformRole(i), true
		}
	}
	return 0, false
}

// UniformBuffer maps a set of roles onto the std140 backing store of a
// shader's uniform block. Its size is the block size, independent of how
// many roles it carries.
type UniformBuffer struct {
	id    ID
	Stage glsl.Stage
	Block string

	// DescriptorSet and Binding locate the block for pipeline-object backends.
	DescriptorSet int
	Binding       int

	roles   []UniformRole
	offsets [UniformRolesN]int // -1 when absent
	data    []byte
	dirty   bool
}

// NewUniformBuffer builds a buffer for block carrying roles. Every role must be
// declared by the block with its catalog type.
func NewUniformBuffer(stage glsl.Stage, block *glsl.UniformBlock, roles []UniformRole) (*UniformBuffer, error) {
	if block == nil {
		return nil, fmt.Errorf("gfx: uniform buffer for %v stage without a uniform block", stage)
	}
	ub := &UniformBuffer{
		id:            nextID(),
		Stage:         stage,
		Block:         block.Name,
		DescriptorSet: block.Set,
		Binding:       block.Binding,
		data:          make([]byte, block.Size),
		dirty:         true,
	}
	for i := range ub.offsets {
		ub.offsets[i] = -1
	}
	for _, r := range roles {
		m, ok := block.Member(r.String())
		if !ok {
			return nil, fmt.Errorf("gfx: uniform block %q does not declare %v", block.Name, r)
		}
		if m.Type != r.Type() || m.ArrayLen != 0 {
			return nil, fmt.Errorf("gfx: uniform block %q declares %v as %s, want %s", block.Name, r, m.Type, r.Type())
		}
		if ub.offsets[r] >= 0 {
			continue
		}
		ub.offsets[r] = m.Offset
		ub.roles = append(ub.roles, r)
	}
	return ub, nil
}

func (ub *UniformBuffer) ResourceID() ID { return ub.id }

// Roles returns the carried roles in the order they were negotiated.
func (ub *UniformBuffer) Roles() []UniformRole {
	return append([]UniformRole(nil), ub.roles...)
}

func (ub *UniformBuffer) Has(r UniformRole) bool {
	return r >= 0 && r < UniformRolesN && ub.offsets[r] >= 0
}

// Offset returns the std140 byte offset of r.
func (ub *UniformBuffer) Offset(r UniformRole) (int, bool) {
	if !ub.Has(r) {
		return 0, false
	}
	return ub.offsets[r], true
}

func (ub *UniformBuffer) Bytes() []byte { return ub.data }
func (ub *UniformBuffer) Size() int     { return len(ub.data) }
func (ub *UniformBuffer) Dirty() bool   { return ub.dirty }
func (ub *UniformBuffer) ClearDirty()   { ub.dirty = false }

// Set writes value into the slot of r. Accepted values depend on the role type:
// float32/float64/bool for float, mgl32.Vec3 or colors.Color for vec3,
// mgl32.Vec4 or colors.Color for vec4, mgl32.Mat3 or mgl32.Mat4 for mat3 and
// mgl32.Mat4 for mat4.
func (ub *UniformBuffer) Set(r UniformRole, value any) error {
	off, ok := ub.Offset(r)
	if !ok {
		return fmt.Errorf("gfx: uniform buffer %q has no %v", ub.Block, r)
	}
	var vals []float32
	switch r.Type() {
	case "float":
		switch v := value.(type) {
		case float32:
			vals = []float32{v}
		case float64:
			vals = []float32{float32(v)}
		case bool:
			vals = []float32{0}
			if v {
				vals[0] = 1
			}
		}
	case "vec3":
		switch v := value.(type) {
		case mgl32.Vec3:
			vals = v[:]
		case colors.Color:
			vals = v[:3]
		}
	case "vec4":
		switch v := value.(type) {
		case mgl32.Vec4:
			vals = v[:]
		case colors.Color:
			vals = v[:]
		}
	case "mat3":
		var m mgl32.Mat3
		switch v := value.(type) {
		case mgl32.Mat3:
			m = v
		case mgl32.Mat4:
			m = v.Mat3()
		default:
			return fmt.Errorf("gfx: cannot store %T in %v (%s)", value, r, r.Type())
		}
		// std140 pads each column to a vec4
		vals = []float32{m[0], m[1], m[2], 0, m[3], m[4], m[5], 0, m[6], m[7], m[8]}
	case "mat4":
		if v, ok := value.(mgl32.Mat4); ok {
			vals = v[:]
		}
	}
	if vals == nil {
		return fmt.Errorf("gfx: cannot store %T in %v (%s)", value, r, r.Type())
	}
	for i, f := range vals {
		binary.LittleEndian.PutUint32(ub.data[off+4*i:], math.Float32bits(f))
	}
	ub.dirty = true
	return nil
}

// Float reads back a float slot; used by tests and debug overlays.
func (ub *UniformBuffer) Float(r UniformRole, component int) float32 {
	off, ok := ub.Offset(r)
	if !ok {
		return 0
	}
	return math.Float32frombits(binary.LittleEndian.Uint32(ub.data[off+4*component:]))
}
