package mesh

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/hubastard/grove3d/engine/colors"
	"github.com/hubastard/grove3d/engine/gfx"
	"github.com/hubastard/grove3d/engine/gfx/glsl"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func vec3At(t *testing.T, g *gfx.Geometry, attr glsl.Attribute, i int) mgl32.Vec3 {
	t.Helper()
	f := g.Vertices.Format
	off, ok := f.Offset(attr)
	require.True(t, ok)
	var v mgl32.Vec3
	for k := range v {
		at := i*f.Stride() + off + 4*k
		v[k] = math.Float32frombits(binary.LittleEndian.Uint32(g.Vertices.Data[at:]))
	}
	return v
}

func indexAt(g *gfx.Geometry, i int) int {
	if g.Indices.IndexSize == 2 {
		return int(binary.LittleEndian.Uint16(g.Indices.Data[2*i:]))
	}
	return int(binary.LittleEndian.Uint32(g.Indices.Data[4*i:]))
}

// assertFrontFacing checks every non-degenerate triangle winds
// counter-clockwise seen from the side its normals point to.
func assertFrontFacing(t *testing.T, g *gfx.Geometry) {
	t.Helper()
	for i := 0; i < g.Indices.Count(); i += 3 {
		var p, n [3]mgl32.Vec3
		for k := range p {
			idx := indexAt(g, i+k)
			require.Less(t, idx, g.Vertices.Count())
			p[k] = vec3At(t, g, glsl.AttrPosition, idx)
			n[k] = vec3At(t, g, glsl.AttrNormal, idx)
		}
		face := p[1].Sub(p[0]).Cross(p[2].Sub(p[0]))
		if face.Len() < 1e-6 {
			continue
		}
		assert.Greater(t, face.Dot(n[0].Add(n[1]).Add(n[2])), float32(0), "triangle %d winds clockwise", i/3)
	}
}

func TestCube(t *testing.T) {
	g, err := Cube(2)
	require.NoError(t, err)
	assert.Equal(t, 24, g.Vertices.Count())
	assert.Equal(t, 36, g.DrawCount())
	assert.Equal(t, 2, g.Indices.IndexSize)
	assert.Equal(t, gfx.TopologyTriangles, g.Topology)
	for i := 0; i < g.Vertices.Count(); i++ {
		p := vec3At(t, g, glsl.AttrPosition, i)
		for _, c := range p {
			assert.InDelta(t, 1, math.Abs(float64(c)), 1e-6)
		}
	}
	assertFrontFacing(t, g)
}

func TestColorCube(t *testing.T) {
	faces := [6]colors.Color{colors.Red, colors.Green, colors.Blue, colors.Yellow, colors.Cyan, colors.Magenta}
	g, err := ColorCube(1, faces)
	require.NoError(t, err)
	assert.True(t, g.Vertices.Format.Has(glsl.AttrColor))
	assert.Equal(t, 4, g.Vertices.Format.Components(glsl.AttrColor))
	// the -Y face is the fourth
	off, _ := g.Vertices.Format.Offset(glsl.AttrColor)
	at := 12*g.Vertices.Format.Stride() + off
	assert.Equal(t, float32(1), math.Float32frombits(binary.LittleEndian.Uint32(g.Vertices.Data[at:])))
	assert.Equal(t, float32(1), math.Float32frombits(binary.LittleEndian.Uint32(g.Vertices.Data[at+4:])))
	assert.Equal(t, float32(0), math.Float32frombits(binary.LittleEndian.Uint32(g.Vertices.Data[at+8:])))
	assertFrontFacing(t, g)
}

func TestPlane(t *testing.T) {
	g, err := Plane(10, 4, 2)
	require.NoError(t, err)
	assert.Equal(t, 9, g.Vertices.Count())
	assert.Equal(t, 24, g.DrawCount())
	assert.Equal(t, mgl32.Vec3{-5, 0, 2}, vec3At(t, g, glsl.AttrPosition, 0))
	assert.Equal(t, mgl32.Vec3{5, 0, -2}, vec3At(t, g, glsl.AttrPosition, 8))
	assertFrontFacing(t, g)

	g, err = Plane(1, 1, 0)
	require.NoError(t, err)
	assert.Equal(t, 6, g.DrawCount())
}

func TestSphere(t *testing.T) {
	g, err := Sphere(3, 8, 12)
	require.NoError(t, err)
	assert.Equal(t, 9*13, g.Vertices.Count())
	assert.Equal(t, 8*12*6, g.DrawCount())
	for i := 0; i < g.Vertices.Count(); i++ {
		assert.InDelta(t, 3, vec3At(t, g, glsl.AttrPosition, i).Len(), 1e-4)
	}
	assertFrontFacing(t, g)
}

func TestLargeMeshUses32BitIndices(t *testing.T) {
	g, err := Plane(1, 1, 300)
	require.NoError(t, err)
	assert.Greater(t, g.Vertices.Count(), math.MaxUint16+1)
	assert.Equal(t, 4, g.Indices.IndexSize)
	assert.Equal(t, 300*300*6, g.DrawCount())
}
