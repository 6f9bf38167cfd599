package text

import (
	"encoding/binary"
	"math"
	"path/filepath"
	"testing"

	"github.com/hubastard/grove3d/engine/gfx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultFont(t *testing.T) {
	f, err := Default(24)
	require.NoError(t, err)
	assert.Greater(t, f.Ascent, float32(0))
	assert.Less(t, f.Descent, float32(0))
	assert.Greater(t, f.LineHeight(), f.Ascent)
	assert.Equal(t, 0, f.AtlasSize&(f.AtlasSize-1), "atlas size %d is a power of two", f.AtlasSize)

	require.NotNil(t, f.Texture)
	assert.Equal(t, gfx.FormatRGBA8, f.Texture.Format)
	assert.Len(t, f.Texture.Pixels, f.AtlasSize*f.AtlasSize*4)

	g, ok := f.Glyphs['A']
	require.True(t, ok)
	assert.Positive(t, g.W)
	assert.Positive(t, g.H)
	assert.Less(t, g.U0, g.U1)
	assert.Less(t, g.V0, g.V1)

	// some coverage inside the glyph's cell
	var alpha int
	x0, y0 := int(g.U0*float32(f.AtlasSize)), int(g.V0*float32(f.AtlasSize))
	for y := y0; y < y0+g.H; y++ {
		for x := x0; x < x0+g.W; x++ {
			alpha += int(f.Texture.Pixels[(y*f.AtlasSize+x)*4+3])
		}
	}
	assert.Positive(t, alpha)

	sp, ok := f.Glyphs[' ']
	require.True(t, ok)
	assert.Zero(t, sp.W)
	assert.Positive(t, sp.Advance)
}

func TestFontErrors(t *testing.T) {
	_, err := Default(0)
	assert.Error(t, err)
	_, err = New([]byte("not a font"), 12)
	assert.Error(t, err)
	_, err = Load(filepath.Join(t.TempDir(), "missing.ttf"), 12)
	assert.Error(t, err)
}

func TestMeasure(t *testing.T) {
	f, err := Default(16)
	require.NoError(t, err)

	w, h := f.Measure("")
	assert.Zero(t, w)
	assert.Equal(t, f.LineHeight(), h)

	w1, _ := f.Measure("abc")
	w2, h2 := f.Measure("ab\nabc")
	assert.Equal(t, w1, w2)
	assert.Equal(t, 2*f.LineHeight(), h2)

	// unknown runes advance like a space
	wu, _ := f.Measure("世")
	assert.Equal(t, f.Glyphs[' '].Advance, wu)
}

func TestMesh(t *testing.T) {
	f, err := Default(32)
	require.NoError(t, err)

	g, err := f.Mesh("Hi", 1)
	require.NoError(t, err)
	assert.Equal(t, 8, g.Vertices.Count())
	assert.Equal(t, 12, g.DrawCount())

	w, _ := f.Measure("Hi")
	half := w / f.LineHeight() / 2
	stride := g.Vertices.Format.Stride()
	for i := 0; i < g.Vertices.Count(); i++ {
		x := math.Float32frombits(binary.LittleEndian.Uint32(g.Vertices.Data[i*stride:]))
		y := math.Float32frombits(binary.LittleEndian.Uint32(g.Vertices.Data[i*stride+4:]))
		z := math.Float32frombits(binary.LittleEndian.Uint32(g.Vertices.Data[i*stride+8:]))
		assert.InDelta(t, 0, x, float64(half)+0.1)
		assert.InDelta(t, 0, y, 0.6)
		assert.Zero(t, z)
	}

	_, err = f.Mesh(" \n ", 1)
	assert.Error(t, err)
}
