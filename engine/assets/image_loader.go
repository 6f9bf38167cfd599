package assets

import (
	"fmt"
	"image"
	"image/draw"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"

	"github.com/hubastard/grove3d/engine/gfx"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// TextureOptions controls how a decoded image becomes a texture.
type TextureOptions struct {
	SRGB   bool
	Mipmap bool // generate a full chain, sampled trilinear
	Wrap   gfx.WrapMode
}

// DefaultTextureOptions repeats and mipmaps.
func DefaultTextureOptions() TextureOptions {
	return TextureOptions{Mipmap: true, Wrap: gfx.WrapRepeat}
}

// LoadImage returns width, height, and tightly packed RGBA8 pixels of
// dir/name. Any format registered with image (png, jpeg, bmp, tiff, webp)
// decodes. When flip is set the rows are reversed to match a bottom-left
// texture origin.
func LoadImage(dir, name string, flip bool) (w, h int, rgba []byte, err error) {
	path := filepath.Join(dir, name)
	f, err := os.Open(path)
	if err != nil {
		return 0, 0, nil, fmt.Errorf("open %q: %w", path, err)
	}
	defer f.Close()

	img, format, err := image.Decode(f)
	if err != nil {
		return 0, 0, nil, fmt.Errorf("decode image %q: %w", path, err)
	}

	// Ensure RGBA
	rgbaImg := imageToRGBA(img)
	w, h = rgbaImg.Bounds().Dx(), rgbaImg.Bounds().Dy()
	if w == 0 || h == 0 {
		return 0, 0, nil, fmt.Errorf("decode image %q: empty %s image", path, format)
	}

	// Repack in tight rows (stride == 4*w)
	out := make([]byte, w*h*4)
	src := rgbaImg.Pix
	srcStride := rgbaImg.Stride
	row := w * 4
	for y := 0; y < h; y++ {
		dy := y
		if flip {
			dy = h - 1 - y
		}
		copy(out[dy*row:(dy+1)*row], src[y*srcStride:y*srcStride+row])
	}
	return w, h, out, nil
}

// LoadTexture decodes dir/name into a 2D RGBA8 texture.
func LoadTexture(dir, name string, opts TextureOptions) (*gfx.Texture, error) {
	w, h, pix, err := LoadImage(dir, name, true)
	if err != nil {
		return nil, err
	}
	format := gfx.FormatRGBA8
	if opts.SRGB {
		format = gfx.FormatSRGBA8
	}
	t, err := gfx.NewTexture2D(format, w, h, pix)
	if err != nil {
		return nil, fmt.Errorf("texture %q: %w", name, err)
	}
	t.SetWrap(opts.Wrap)
	if opts.Mipmap {
		t.GenerateMips = true
		t.Mipmap = gfx.MipLinear
	}
	return t, nil
}

// LoadCubeTexture builds a cube map from six square images in +X, -X, +Y,
// -Y, +Z, -Z order. Cube faces keep their top-left origin.
func LoadCubeTexture(dir string, faces [6]string) (*gfx.Texture, error) {
	var (
		size int
		pix  = make([][]byte, 0, 6)
	)
	for i, name := range faces {
		w, h, face, err := LoadImage(dir, name, false)
		if err != nil {
			return nil, err
		}
		if w != h {
			return nil, fmt.Errorf("cube face %q is %dx%d, not square", name, w, h)
		}
		if i == 0 {
			size = w
		} else if w != size {
			return nil, fmt.Errorf("cube face %q is %d wide, want %d", name, w, size)
		}
		pix = append(pix, face)
	}
	return gfx.NewTextureCube(gfx.FormatRGBA8, size, pix)
}

func imageToRGBA(img image.Image) *image.RGBA {
	if m, ok := img.(*image.RGBA); ok && m.Stride == m.Rect.Dx()*4 && m.Rect.Min == (image.Point{}) {
		return m
	}
	dst := image.NewRGBA(image.Rect(0, 0, img.Bounds().Dx(), img.Bounds().Dy()))
	draw.Draw(dst, dst.Bounds(), img, img.Bounds().Min, draw.Src)
	return dst
}
