package colors

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
)

func TestScaleKeepsAlpha(t *testing.T) {
	c := Color{0.5, 0.25, 1, 0.5}.Scale(2)
	assert.Equal(t, Color{1, 0.5, 2, 0.5}, c)
}

func TestVectorViews(t *testing.T) {
	c := Yellow.WithAlpha(0.25)
	assert.Equal(t, mgl32.Vec3{1, 1, 0}, c.Vec3())
	assert.Equal(t, mgl32.Vec4{1, 1, 0, 0.25}, c.Vec4())
}
