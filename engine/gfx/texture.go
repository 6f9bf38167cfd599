package gfx

import (
	"fmt"
	"math/bits"
)

// Level describes where one (layer, mip) image sits in Texture.Pixels.
type Level struct {
	Layer, Mip           int
	Width, Height, Depth int
	Offset, Size         int
}

// Texture is an engine texture. It owns its pixel bytes until a backend has
// uploaded them and ReleasePixels is called.
type Texture struct {
	id     ID
	Type   TextureType
	Format TextureFormat

	Width, Height, Depth int
	Layers               int // 6 for cube maps

	Wrap                 [3]WrapMode // s, t, r
	MinFilter, MagFilter FilterMode
	Mipmap               MipmapMode
	GenerateMips         bool
	Usage                TextureUsage

	Levels []Level
	Pixels []byte
}

func (t *Texture) ResourceID() ID { return t.id }

func newTexture(typ TextureType, f TextureFormat, w, h, d, layers int) (*Texture, error) {
	if f < 0 || f >= TextureFormatsN {
		return nil, fmt.Errorf("gfx: invalid texture format %v", f)
	}
	if w <= 0 || h <= 0 || d <= 0 || layers <= 0 {
		return nil, fmt.Errorf("gfx: invalid %v texture size %dx%dx%d (%d layers)", typ, w, h, d, layers)
	}
	t := &Texture{
		id:        nextID(),
		Type:      typ,
		Format:    f,
		Width:     w,
		Height:    h,
		Depth:     d,
		Layers:    layers,
		MinFilter: FilterLinear,
		MagFilter: FilterLinear,
		Usage:     UsageSampled,
	}
	size := w * h * d * f.BytesPerPixel()
	for l := 0; l < layers; l++ {
		t.Levels = append(t.Levels, Level{Layer: l, Width: w, Height: h, Depth: d, Offset: l * size, Size: size})
	}
	return t, nil
}

// setPixels adopts pix when it matches the mip-0 level layout. nil leaves
// the texture as storage only.
func (t *Texture) setPixels(pix []byte) error {
	if pix == nil {
		return nil
	}
	want := 0
	for _, l := range t.Levels {
		want += l.Size
	}
	if len(pix) != want {
		return fmt.Errorf("gfx: %v %v texture %dx%dx%d needs %d bytes, got %d", t.Type, t.Format, t.Width, t.Height, t.Depth, want, len(pix))
	}
	t.Pixels = pix
	return nil
}

// NewTexture1D creates a one-row texture, such as a lookup ramp.
func NewTexture1D(f TextureFormat, w int, pix []byte) (*Texture, error) {
	t, err := newTexture(Texture1D, f, w, 1, 1, 1)
	if err != nil {
		return nil, err
	}
	return t, t.setPixels(pix)
}

// NewTexture2D creates a 2D texture. pix may be nil for render storage.
func NewTexture2D(f TextureFormat, w, h int, pix []byte) (*Texture, error) {
	t, err := newTexture(Texture2D, f, w, h, 1, 1)
	if err != nil {
		return nil, err
	}
	return t, t.setPixels(pix)
}

// NewTextureArray creates a 2D array texture; pix holds the layers back to back.
func NewTextureArray(f TextureFormat, w, h, layers int, pix []byte) (*Texture, error) {
	t, err := newTexture(Texture2DArray, f, w, h, 1, layers)
	if err != nil {
		return nil, err
	}
	return t, t.setPixels(pix)
}

// NewTexture3D creates a volume; pix holds the depth slices back to back.
func NewTexture3D(f TextureFormat, w, h, d int, pix []byte) (*Texture, error) {
	t, err := newTexture(Texture3D, f, w, h, d, 1)
	if err != nil {
		return nil, err
	}
	t.Wrap = [3]WrapMode{WrapClampToEdge, WrapClampToEdge, WrapClampToEdge}
	return t, t.setPixels(pix)
}

// NewTextureCube creates a cube map from six square faces in +X, -X, +Y, -Y,
// +Z, -Z order. A nil faces slice creates storage only.
func NewTextureCube(f TextureFormat, size int, faces [][]byte) (*Texture, error) {
	t, err := newTexture(TextureCube, f, size, size, 1, 6)
	if err != nil {
		return nil, err
	}
	t.Wrap = [3]WrapMode{WrapClampToEdge, WrapClampToEdge, WrapClampToEdge}
	if faces == nil {
		return t, nil
	}
	if len(faces) != 6 {
		return nil, fmt.Errorf("gfx: cube texture needs 6 faces, got %d", len(faces))
	}
	pix := make([]byte, 0, 6*t.Levels[0].Size)
	for i, face := range faces {
		if len(face) != t.Levels[i].Size {
			return nil, fmt.Errorf("gfx: cube face %d needs %d bytes, got %d", i, t.Levels[i].Size, len(face))
		}
		pix = append(pix, face...)
	}
	return t, t.setPixels(pix)
}

// MipLevels is the number of mip levels the backend allocates.
func (t *Texture) MipLevels() int {
	if !t.GenerateMips && t.Mipmap == MipNone {
		return 1
	}
	if t.GenerateMips {
		return bits.Len(uint(max(t.Width, t.Height, t.Depth)))
	}
	n := 1
	for _, l := range t.Levels {
		n = max(n, l.Mip+1)
	}
	return n
}

// SetWrap applies one wrap mode to every axis.
func (t *Texture) SetWrap(w WrapMode) { t.Wrap = [3]WrapMode{w, w, w} }

// ReleasePixels drops the CPU copy once a backend has uploaded it.
func (t *Texture) ReleasePixels() { t.Pixels = nil }
