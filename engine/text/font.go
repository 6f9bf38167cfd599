// Package text bakes TrueType/OpenType fonts into glyph atlas textures and
// lays strings out as textured quads.
package text

import (
	"fmt"
	"image"
	"os"

	"github.com/hubastard/grove3d/engine/core"
	"github.com/hubastard/grove3d/engine/gfx"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
)

type Glyph struct {
	Advance  float32 // pixels
	BearingX float32 // left bearing in pixels
	BearingY float32 // distance from baseline to glyph top
	W, H     int     // glyph bitmap size
	U0, V0   float32 // atlas uv, V0 at the glyph top
	U1, V1   float32
}

// Font is a baked glyph atlas: white glyphs with alpha coverage.
type Font struct {
	SizePx                   float32
	Ascent, Descent, LineGap float32 // Descent is negative
	Glyphs                   map[rune]Glyph
	Texture                  *gfx.Texture
	AtlasSize                int

	kern map[[2]rune]float32
}

const (
	firstRune    = rune(32)
	lastRune     = rune(255)
	atlasPadding = 4
	maxAtlasSize = 4096
)

// Default bakes the Go Regular font shipped with x/image.
func Default(sizePx float32) (*Font, error) {
	return New(goregular.TTF, sizePx)
}

// Load bakes the font file at path.
func Load(path string, sizePx float32) (*Font, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read font: %w", err)
	}
	f, err := New(b, sizePx)
	if err != nil {
		return nil, fmt.Errorf("font %q: %w", path, err)
	}
	return f, nil
}

type measured struct {
	r      rune
	w, h   int
	adv    float32
	bx, by float32
}

// New bakes runes 32..255 of the font data ttf at sizePx pixels.
func New(ttf []byte, sizePx float32) (*Font, error) {
	if sizePx <= 0 {
		return nil, fmt.Errorf("font size %v must be positive", sizePx)
	}
	ft, err := opentype.Parse(ttf)
	if err != nil {
		return nil, fmt.Errorf("parse font: %w", err)
	}
	face, err := opentype.NewFace(ft, &opentype.FaceOptions{
		Size: float64(sizePx), DPI: 72, Hinting: font.HintingFull,
	})
	if err != nil {
		return nil, fmt.Errorf("new face: %w", err)
	}
	defer face.Close()

	// Metrics in pixels
	m := face.Metrics()
	ascent := float32(m.Ascent.Round())
	descent := float32(-m.Descent.Round())
	lineGap := float32(m.Height.Round()) - ascent + descent

	var glyphs []measured
	for r := firstRune; r <= lastRune; r++ {
		br, adv, ok := face.GlyphBounds(r)
		if !ok {
			continue
		}
		glyphs = append(glyphs, measured{
			r: r,
			w: (br.Max.X - br.Min.X).Round(), h: (br.Max.Y - br.Min.Y).Round(),
			adv: float32(adv.Round()),
			bx:  float32(br.Min.X.Round()),
			by:  float32(-br.Min.Y.Round()),
		})
	}

	size, pos, err := pack(glyphs)
	if err != nil {
		return nil, err
	}

	// Transparent background, white glyphs
	dst := image.NewRGBA(image.Rect(0, 0, size, size))
	drawer := &font.Drawer{Dst: dst, Src: image.White, Face: face}

	f := &Font{
		SizePx: sizePx,
		Ascent: ascent, Descent: descent, LineGap: lineGap,
		Glyphs:    make(map[rune]Glyph, len(glyphs)),
		AtlasSize: size,
		kern:      map[[2]rune]float32{},
	}
	for _, g := range glyphs {
		glyph := Glyph{Advance: g.adv, BearingX: g.bx, BearingY: g.by, W: g.w, H: g.h}
		if p, ok := pos[g.r]; ok {
			// the dot sits on the baseline, shifted left by the bearing
			drawer.Dot = fixed.P(p.X-int(g.bx), p.Y+int(g.by))
			drawer.DrawString(string(g.r))
			glyph.U0 = float32(p.X) / float32(size)
			glyph.V0 = float32(p.Y) / float32(size)
			glyph.U1 = float32(p.X+g.w) / float32(size)
			glyph.V1 = float32(p.Y+g.h) / float32(size)
		}
		f.Glyphs[g.r] = glyph
	}
	for _, a := range glyphs {
		for _, b := range glyphs {
			if dx := face.Kern(a.r, b.r); dx != 0 {
				f.kern[[2]rune{a.r, b.r}] = float32(dx.Round())
			}
		}
	}

	f.Texture, err = gfx.NewTexture2D(gfx.FormatRGBA8, size, size, dst.Pix)
	if err != nil {
		return nil, err
	}
	f.Texture.SetWrap(gfx.WrapClampToEdge)
	f.Texture.MinFilter, f.Texture.MagFilter = gfx.FilterLinear, gfx.FilterLinear
	core.Logger().Debug("font baked", "size_px", sizePx, "glyphs", len(f.Glyphs), "atlas", size)
	return f, nil
}

// pack places the visible glyphs on shelves, doubling the square atlas from
// 256 until everything fits.
func pack(glyphs []measured) (int, map[rune]image.Point, error) {
	for size := 256; size <= maxAtlasSize; size *= 2 {
		pos := make(map[rune]image.Point, len(glyphs))
		x, y, rowH := atlasPadding, atlasPadding, 0
		fits := true
		for _, g := range glyphs {
			if g.w == 0 || g.h == 0 {
				continue
			}
			if x+g.w+atlasPadding > size {
				x = atlasPadding
				y += rowH + atlasPadding
				rowH = 0
			}
			if g.w+2*atlasPadding > size || y+g.h+atlasPadding > size {
				fits = false
				break
			}
			pos[g.r] = image.Pt(x, y)
			x += g.w + atlasPadding
			rowH = max(rowH, g.h)
		}
		if fits {
			return size, pos, nil
		}
	}
	return 0, nil, fmt.Errorf("font atlas too large (>%d)", maxAtlasSize)
}

func (f *Font) LineHeight() float32 { return f.Ascent - f.Descent + f.LineGap }

// Kern is the pixel adjustment between a and b.
func (f *Font) Kern(a, b rune) float32 { return f.kern[[2]rune{a, b}] }
