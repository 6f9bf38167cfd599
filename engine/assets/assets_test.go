package assets

import (
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/hubastard/grove3d/engine/gfx"
	"github.com/hubastard/grove3d/engine/gfx/glsl"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/image/bmp"
)

const vert = `#version 450
layout(location = 0) in vec3 a_position;
layout(set = 0, binding = 0) uniform Transform { mat4 u_pvm; };
void main() { gl_Position = u_pvm * vec4(a_position, 1.0); }
`

// twoRows is 1x2: red on top, blue below.
func twoRows() *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, 1, 2))
	img.Set(0, 0, color.RGBA{255, 0, 0, 255})
	img.Set(0, 1, color.RGBA{0, 0, 255, 255})
	return img
}

func writePNG(t *testing.T, path string, img image.Image) {
	t.Helper()
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, png.Encode(f, img))
}

func TestLoadShader(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "flat.vert"), []byte(vert), 0o644))

	s, err := LoadShader(dir, "flat.vert")
	require.NoError(t, err)
	assert.Equal(t, glsl.Vertex, s.Stage())
	assert.Nil(t, s.SPIRV)
	assert.NotNil(t, s.Block())

	spv := []byte{0x03, 0x02, 0x23, 0x07, 0, 0, 1, 0}
	require.NoError(t, os.WriteFile(filepath.Join(dir, "flat.vert.spv"), spv, 0o644))
	s, err = LoadShader(dir, "flat.vert")
	require.NoError(t, err)
	assert.Equal(t, spv, s.SPIRV)
}

func TestLoadShaderErrors(t *testing.T) {
	dir := t.TempDir()
	_, err := LoadShader(dir, "missing.vert")
	assert.Error(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "flat.vert"), []byte(vert), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "flat.vert.spv"), []byte{1, 2, 3}, 0o644))
	_, err = LoadShader(dir, "flat.vert")
	assert.ErrorContains(t, err, "multiple of 4")
}

func TestLoadImageFlip(t *testing.T) {
	dir := t.TempDir()
	writePNG(t, filepath.Join(dir, "rows.png"), twoRows())

	w, h, pix, err := LoadImage(dir, "rows.png", false)
	require.NoError(t, err)
	assert.Equal(t, 1, w)
	assert.Equal(t, 2, h)
	assert.Equal(t, []byte{255, 0, 0, 255, 0, 0, 255, 255}, pix)

	_, _, pix, err = LoadImage(dir, "rows.png", true)
	require.NoError(t, err)
	assert.Equal(t, []byte{0, 0, 255, 255, 255, 0, 0, 255}, pix)
}

func TestLoadTextureBMP(t *testing.T) {
	dir := t.TempDir()
	f, err := os.Create(filepath.Join(dir, "rows.bmp"))
	require.NoError(t, err)
	require.NoError(t, bmp.Encode(f, twoRows()))
	require.NoError(t, f.Close())

	tex, err := LoadTexture(dir, "rows.bmp", DefaultTextureOptions())
	require.NoError(t, err)
	assert.Equal(t, gfx.Texture2D, tex.Type)
	assert.Equal(t, gfx.FormatRGBA8, tex.Format)
	assert.Equal(t, 1, tex.Width)
	assert.Equal(t, 2, tex.Height)
	assert.True(t, tex.GenerateMips)
	assert.Equal(t, gfx.WrapRepeat, tex.Wrap[0])
	// bottom row first
	assert.Equal(t, []byte{0, 0, 255, 255}, tex.Pixels[:4])

	tex, err = LoadTexture(dir, "rows.bmp", TextureOptions{SRGB: true, Wrap: gfx.WrapClampToEdge})
	require.NoError(t, err)
	assert.Equal(t, gfx.FormatSRGBA8, tex.Format)
	assert.False(t, tex.GenerateMips)
	assert.Equal(t, 1, tex.MipLevels())
}

func TestLoadCubeTexture(t *testing.T) {
	dir := t.TempDir()
	var faces [6]string
	for i := range faces {
		img := image.NewRGBA(image.Rect(0, 0, 2, 2))
		img.Set(0, 0, color.RGBA{uint8(i), 0, 0, 255})
		faces[i] = string(rune('a'+i)) + ".png"
		writePNG(t, filepath.Join(dir, faces[i]), img)
	}
	tex, err := LoadCubeTexture(dir, faces)
	require.NoError(t, err)
	assert.Equal(t, gfx.TextureCube, tex.Type)
	assert.Equal(t, 6, tex.Layers)
	assert.Equal(t, 2, tex.Width)
	assert.Equal(t, byte(5), tex.Pixels[5*16])

	writePNG(t, filepath.Join(dir, faces[3]), twoRows())
	_, err = LoadCubeTexture(dir, faces)
	assert.ErrorContains(t, err, "not square")
}
