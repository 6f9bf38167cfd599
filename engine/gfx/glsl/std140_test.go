package glsl

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStd140(t *testing.T) {
	tests := []struct {
		name    string
		members []Member
		offsets []int
		size    int
	}{
		{"empty", nil, []int{}, 0},
		{"scalar pads block", []Member{{Type: "float"}}, []int{0}, 16},
		{"vec3 then float packs", []Member{{Type: "vec3"}, {Type: "float"}}, []int{0, 12}, 16},
		{"float then vec3 aligns", []Member{{Type: "float"}, {Type: "vec3"}}, []int{0, 16}, 32},
		{"vec2 pair", []Member{{Type: "float"}, {Type: "vec2"}, {Type: "vec2"}}, []int{0, 8, 16}, 32},
		{"mat3 columns", []Member{{Type: "mat3"}, {Type: "float"}}, []int{0, 48}, 64},
		{"float array stride", []Member{{Type: "float", ArrayLen: 3}, {Type: "int"}}, []int{0, 48}, 64},
		{"mat4 array", []Member{{Type: "vec4"}, {Type: "mat4", ArrayLen: 2}}, []int{0, 16}, 144},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			offsets, size := Std140(tt.members)
			assert.Equal(t, tt.offsets, offsets)
			assert.Equal(t, tt.size, size)
		})
	}
}

func TestStageFromPath(t *testing.T) {
	for s := Stage(0); s < StagesN; s++ {
		got, err := StageFromPath("shaders/x" + s.Ext())
		assert.NoError(t, err)
		assert.Equal(t, s, got)
	}
	got, err := StageFromPath("lit.FRAG.spv")
	assert.NoError(t, err)
	assert.Equal(t, Fragment, got)

	_, err = StageFromPath("lit.glsl")
	assert.Error(t, err)
}

func TestAttributeCatalog(t *testing.T) {
	for a := Attribute(0); a < AttributesN; a++ {
		got, ok := AttributeByName(a.String())
		assert.True(t, ok)
		assert.Equal(t, a, got)
	}
	_, ok := AttributeByName("a_position2")
	assert.False(t, ok)
}
