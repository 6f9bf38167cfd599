package gfx

import (
	"testing"

	"github.com/hubastard/grove3d/engine/gfx/glsl"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVertexFormat(t *testing.T) {
	assert.Equal(t, 32, VertexPNU.Stride())
	off, ok := VertexPNU.Offset(glsl.AttrUV)
	require.True(t, ok)
	assert.Equal(t, 24, off)
	assert.False(t, VertexPNU.Has(glsl.AttrColor))
	assert.Equal(t, 4, VertexPC.Components(glsl.AttrColor))

	_, err := NewVertexFormat(VertexAttribute{glsl.AttrPosition, 3}, VertexAttribute{glsl.AttrPosition, 2})
	assert.Error(t, err)
	_, err = NewVertexFormat(VertexAttribute{glsl.AttrUV, 5})
	assert.Error(t, err)
}

func TestBufferCounts(t *testing.T) {
	vb, err := NewVertexBuffer(VertexPC, Float32Bytes(make([]float32, 7*3)))
	require.NoError(t, err)
	assert.Equal(t, 3, vb.Count())

	_, err = NewVertexBuffer(VertexPC, make([]byte, 30))
	assert.Error(t, err)

	ib, err := NewIndexBuffer(Uint16Bytes([]uint16{0, 1, 2, 2, 1, 3}), 2)
	require.NoError(t, err)
	assert.Equal(t, 6, ib.Count())
	_, err = NewIndexBuffer(make([]byte, 6), 4)
	assert.Error(t, err)
	_, err = NewIndexBuffer(nil, 3)
	assert.Error(t, err)

	g := Geometry{Vertices: vb}
	assert.Equal(t, 3, g.DrawCount())
	g.Indices = ib
	assert.Equal(t, 6, g.DrawCount())
}

func TestResourceIDsAreUnique(t *testing.T) {
	a, err := NewTexture2D(FormatRGBA8, 1, 1, nil)
	require.NoError(t, err)
	b, err := NewTexture2D(FormatRGBA8, 1, 1, nil)
	require.NoError(t, err)
	assert.NotZero(t, a.ResourceID())
	assert.NotEqual(t, a.ResourceID(), b.ResourceID())
}

func TestTextureLevels(t *testing.T) {
	tex, err := NewTextureArray(FormatRGBA8, 4, 2, 3, make([]byte, 4*2*4*3))
	require.NoError(t, err)
	require.Len(t, tex.Levels, 3)
	assert.Equal(t, Level{Layer: 2, Width: 4, Height: 2, Depth: 1, Offset: 64, Size: 32}, tex.Levels[2])

	_, err = NewTexture2D(FormatRGBA8, 4, 4, make([]byte, 10))
	assert.Error(t, err)
	_, err = NewTexture2D(FormatRGBA8, 0, 4, nil)
	assert.Error(t, err)

	tex.GenerateMips = true
	tex.Width = 256
	assert.Equal(t, 9, tex.MipLevels())
	tex.ReleasePixels()
	assert.Nil(t, tex.Pixels)
}

func TestTexture1DAnd3DLevels(t *testing.T) {
	ramp, err := NewTexture1D(FormatRGBA8, 16, make([]byte, 16*4))
	require.NoError(t, err)
	assert.Equal(t, Texture1D, ramp.Type)
	require.Len(t, ramp.Levels, 1)
	assert.Equal(t, Level{Width: 16, Height: 1, Depth: 1, Size: 64}, ramp.Levels[0])
	assert.Equal(t, 1, ramp.MipLevels())
	_, err = NewTexture1D(FormatRGBA8, 16, make([]byte, 16))
	assert.Error(t, err)
	_, err = NewTexture1D(FormatRGBA8, 0, nil)
	assert.Error(t, err)

	vol, err := NewTexture3D(FormatR8, 4, 2, 3, make([]byte, 4*2*3))
	require.NoError(t, err)
	assert.Equal(t, Texture3D, vol.Type)
	require.Len(t, vol.Levels, 1)
	assert.Equal(t, Level{Width: 4, Height: 2, Depth: 3, Size: 24}, vol.Levels[0])
	assert.Equal(t, [3]WrapMode{WrapClampToEdge, WrapClampToEdge, WrapClampToEdge}, vol.Wrap)
	_, err = NewTexture3D(FormatR8, 4, 2, 3, make([]byte, 4*2))
	assert.Error(t, err)
	_, err = NewTexture3D(FormatR8, 4, 2, 0, nil)
	assert.Error(t, err)

	vol.GenerateMips = true
	assert.Equal(t, 3, vol.MipLevels())
}

func TestTextureCube(t *testing.T) {
	face := make([]byte, 2*2*4)
	cube, err := NewTextureCube(FormatRGBA8, 2, [][]byte{face, face, face, face, face, face})
	require.NoError(t, err)
	assert.Equal(t, 6, cube.Layers)
	assert.Len(t, cube.Pixels, 6*16)
	assert.Equal(t, WrapClampToEdge, cube.Wrap[2])

	_, err = NewTextureCube(FormatRGBA8, 2, [][]byte{face})
	assert.Error(t, err)
}

func TestRenderTarget(t *testing.T) {
	rt, err := NewRenderTarget(TargetDepth, OutputTexture, 512, 256)
	require.NoError(t, err)
	assert.True(t, rt.Texture.Format.IsDepth())
	assert.True(t, rt.Texture.Usage.Has(UsageDepthAttachment))
	assert.True(t, rt.Texture.Usage.Has(UsageSampled))
	assert.Equal(t, 512, rt.Width())
	assert.Nil(t, rt.Texture.Pixels)

	rt, err = NewRenderTarget(TargetColor, OutputRender, 8, 8)
	require.NoError(t, err)
	assert.False(t, rt.Sampled())
	assert.False(t, rt.Texture.Usage.Has(UsageSampled))

	_, err = NewRenderTarget(TargetTypesN, OutputRender, 8, 8)
	assert.Error(t, err)

	both, err := NewRenderTarget(TargetColor, OutputRenderAndSample, 8, 8)
	require.NoError(t, err)
	sampled, err := NewRenderTarget(TargetColor, OutputTexture, 8, 8)
	require.NoError(t, err)
	assert.True(t, both.Sampled())
	assert.Equal(t, sampled.Texture.Usage, both.Texture.Usage)
}

func TestShaderParseFailure(t *testing.T) {
	_, err := NewShader("broken.vert", "layout(location=0) in vec3 a_position;")
	var pe *glsl.ParseError
	assert.ErrorAs(t, err, &pe)

	s, err := NewShader("ok.frag", "#version 450\nlayout(binding=0) uniform UBO { vec4 u_color; };\n")
	require.NoError(t, err)
	assert.Equal(t, glsl.Fragment, s.Stage())
	assert.Equal(t, "UBO", s.Block().Name)
}

func TestEnumNames(t *testing.T) {
	assert.Equal(t, "LessEqual", CompareLessEqual.String())
	assert.Equal(t, "CompareOp(42)", CompareOp(42).String())
	assert.Equal(t, "Depth24Stencil8", FormatDepth24Stencil8.String())
	for f := TextureFormat(0); f < TextureFormatsN; f++ {
		assert.Positive(t, f.BytesPerPixel(), f.String())
	}
}
