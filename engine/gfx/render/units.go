package render

import "fmt"

// TextureUnits hands out texture units to one pass at a time. The renderer
// owns it and resets it before each pass binds.
type TextureUnits struct {
	max  int
	next int
}

func NewTextureUnits(max int) *TextureUnits {
	return &TextureUnits{max: max}
}

func (u *TextureUnits) Reset()     { u.next = 0 }
func (u *TextureUnits) Max() int   { return u.max }
func (u *TextureUnits) InUse() int { return u.next }

// Alloc returns the next free unit.
func (u *TextureUnits) Alloc() (int, error) {
	if u.next >= u.max {
		return -1, fmt.Errorf("%w: %d in use", ErrTextureUnits, u.max)
	}
	n := u.next
	u.next++
	return n, nil
}
