package main

import (
	"github.com/hubastard/grove3d/engine/gfx"
)

// checkerTexture is a size x size two-tone checkerboard of cells squares,
// used when no crate image ships with the assets.
func checkerTexture(size, cells int) (*gfx.Texture, error) {
	pix := make([]byte, 0, size*size*4)
	cell := max(size/cells, 1)
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			v := byte(70)
			if (x/cell+y/cell)%2 == 0 {
				v = 210
			}
			pix = append(pix, v, v, byte(int(v)*3/4), 255)
		}
	}
	t, err := gfx.NewTexture2D(gfx.FormatRGBA8, size, size, pix)
	if err != nil {
		return nil, err
	}
	t.SetWrap(gfx.WrapRepeat)
	t.GenerateMips = true
	t.Mipmap = gfx.MipLinear
	return t, nil
}

// skyCube is a vertical gradient cube map: horizon haze on the side faces,
// deep blue above and dark ground below.
func skyCube(size int) (*gfx.Texture, error) {
	top := [3]float32{0.15, 0.35, 0.8}
	horizon := [3]float32{0.85, 0.9, 0.95}
	ground := [3]float32{0.2, 0.18, 0.15}
	solid := func(c [3]float32) []byte {
		face := make([]byte, 0, size*size*4)
		for i := 0; i < size*size; i++ {
			face = append(face, byte(c[0]*255), byte(c[1]*255), byte(c[2]*255), 255)
		}
		return face
	}
	side := func() []byte {
		face := make([]byte, 0, size*size*4)
		for y := 0; y < size; y++ {
			// cube face rows run top to bottom
			t := float32(y) / float32(size-1)
			var c [3]float32
			for k := range c {
				if t < 0.5 {
					c[k] = top[k] + (horizon[k]-top[k])*t*2
				} else {
					c[k] = horizon[k] + (ground[k]-horizon[k])*(t-0.5)*2
				}
			}
			for x := 0; x < size; x++ {
				face = append(face, byte(c[0]*255), byte(c[1]*255), byte(c[2]*255), 255)
			}
		}
		return face
	}
	faces := [][]byte{side(), side(), solid(top), solid(ground), side(), side()}
	return gfx.NewTextureCube(gfx.FormatRGBA8, size, faces)
}
