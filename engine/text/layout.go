package text

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/hubastard/grove3d/engine/colors"
	"github.com/hubastard/grove3d/engine/gfx"
	"github.com/hubastard/grove3d/engine/mesh"
)

// walk calls fn for every drawable glyph of s with its pen position in
// pixels: x grows right, baseline y grows down one line at a time.
func (f *Font) walk(s string, fn func(g Glyph, penX, baseline float32)) {
	var penX, baseline float32
	prev := rune(-1)
	for _, r := range s {
		if r == '\n' {
			penX = 0
			baseline += f.LineHeight()
			prev = -1
			continue
		}
		g, ok := f.Glyphs[r]
		if !ok {
			if sp, ok := f.Glyphs[' ']; ok {
				penX += sp.Advance
			}
			prev = r
			continue
		}
		if prev >= 0 {
			penX += f.Kern(prev, r)
		}
		if fn != nil {
			fn(g, penX, baseline)
		}
		penX += g.Advance
		prev = r
	}
}

// Measure returns the pixel size of s at the baked size.
func (f *Font) Measure(s string) (width, height float32) {
	height = f.LineHeight()
	var lineW float32
	prev := rune(-1)
	for _, r := range s {
		if r == '\n' {
			width = max(width, lineW)
			lineW = 0
			height += f.LineHeight()
			prev = -1
			continue
		}
		g, ok := f.Glyphs[r]
		if !ok {
			if sp, ok := f.Glyphs[' ']; ok {
				lineW += sp.Advance
			}
			prev = r
			continue
		}
		if prev >= 0 {
			lineW += f.Kern(prev, r)
		}
		lineW += g.Advance
		prev = r
	}
	return max(width, lineW), height
}

// Mesh lays s out as quads on the XY plane facing +Z, scaled so one line is
// lineHeight units tall. The text block is centered on the origin.
func (f *Font) Mesh(s string, lineHeight float32) (*gfx.Geometry, error) {
	scale := lineHeight / f.LineHeight()
	w, h := f.Measure(s)
	ox, oy := -w/2, h/2-f.Ascent

	b := &mesh.Builder{}
	n := mgl32.Vec3{0, 0, 1}
	f.walk(s, func(g Glyph, penX, baseline float32) {
		if g.W == 0 || g.H == 0 {
			return
		}
		l := (ox + penX + g.BearingX) * scale
		r := l + float32(g.W)*scale
		t := (oy - baseline + g.BearingY) * scale
		bt := t - float32(g.H)*scale
		i0 := b.Vertex(mgl32.Vec3{l, bt, 0}, n, mgl32.Vec2{g.U0, g.V1}, colors.Color{})
		i1 := b.Vertex(mgl32.Vec3{r, bt, 0}, n, mgl32.Vec2{g.U1, g.V1}, colors.Color{})
		i2 := b.Vertex(mgl32.Vec3{r, t, 0}, n, mgl32.Vec2{g.U1, g.V0}, colors.Color{})
		i3 := b.Vertex(mgl32.Vec3{l, t, 0}, n, mgl32.Vec2{g.U0, g.V0}, colors.Color{})
		b.Tri(i0, i1, i2)
		b.Tri(i0, i2, i3)
	})
	if b.Len() == 0 {
		return nil, fmt.Errorf("text %q has no visible glyphs", s)
	}
	return b.Geometry()
}
