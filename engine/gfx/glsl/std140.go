package glsl

// std140 base alignment and size, in bytes, of the member types a uniform
// block may hold.
type layoutInfo struct {
	align, size int
}

var std140Types = map[string]layoutInfo{
	"bool": {4, 4}, "int": {4, 4}, "uint": {4, 4}, "float": {4, 4},

	"vec2": {8, 8}, "ivec2": {8, 8}, "uvec2": {8, 8}, "bvec2": {8, 8},
	"vec3": {16, 12}, "ivec3": {16, 12}, "uvec3": {16, 12}, "bvec3": {16, 12},
	"vec4": {16, 16}, "ivec4": {16, 16}, "uvec4": {16, 16}, "bvec4": {16, 16},

	// matrices are stored as arrays of column vectors padded to vec4
	"mat2": {16, 32}, "mat3": {16, 48}, "mat4": {16, 64},
}

// IsStd140Type reports whether typ can be a uniform block member.
func IsStd140Type(typ string) bool {
	_, ok := std140Types[typ]
	return ok
}

func roundUp(n, align int) int { return (n + align - 1) / align * align }

// Std140 computes the byte offset of every member, in declaration order, and the
// size of the whole block under the std140 rules. Arrays use a vec4-rounded stride.
// Members of unknown type take no space.
func Std140(members []Member) (offsets []int, size int) {
	offsets = make([]int, len(members))
	off := 0
	for i, m := range members {
		li, ok := std140Types[m.Type]
		if !ok {
			offsets[i] = off
			continue
		}
		align, msize := li.align, li.size
		if m.ArrayLen > 0 {
			stride := roundUp(li.size, 16)
			align, msize = 16, stride*m.ArrayLen
		}
		off = roundUp(off, align)
		offsets[i] = off
		off += msize
	}
	return offsets, roundUp(off, 16)
}
