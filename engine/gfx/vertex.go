package gfx

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/hubastard/grove3d/engine/gfx/glsl"
)

// VertexAttribute is one interleaved float attribute.
type VertexAttribute struct {
	Attr       glsl.Attribute
	Components int // 1..4 float32 components
}

// VertexFormat is an ordered attribute list with derived byte offsets.
type VertexFormat struct {
	attrs   []VertexAttribute
	offsets [glsl.AttributesN]int // -1 when absent
	stride  int
}

// NewVertexFormat lays attrs out interleaved in the given order.
func NewVertexFormat(attrs ...VertexAttribute) (VertexFormat, error) {
	f := VertexFormat{attrs: attrs}
	for i := range f.offsets {
		f.offsets[i] = -1
	}
	for _, a := range attrs {
		if a.Attr < 0 || a.Attr >= glsl.AttributesN {
			return VertexFormat{}, fmt.Errorf("gfx: invalid vertex attribute %v", a.Attr)
		}
		if a.Components < 1 || a.Components > 4 {
			return VertexFormat{}, fmt.Errorf("gfx: vertex attribute %v has %d components", a.Attr, a.Components)
		}
		if f.offsets[a.Attr] >= 0 {
			return VertexFormat{}, fmt.Errorf("gfx: vertex attribute %v listed twice", a.Attr)
		}
		f.offsets[a.Attr] = f.stride
		f.stride += 4 * a.Components
	}
	return f, nil
}

func mustFormat(attrs ...VertexAttribute) VertexFormat {
	f, err := NewVertexFormat(attrs...)
	if err != nil {
		panic(err)
	}
	return f
}

// Common layouts.
var (
	VertexP   = mustFormat(VertexAttribute{glsl.AttrPosition, 3})
	VertexPC  = mustFormat(VertexAttribute{glsl.AttrPosition, 3}, VertexAttribute{glsl.AttrColor, 4})
	VertexPNU = mustFormat(VertexAttribute{glsl.AttrPosition, 3}, VertexAttribute{glsl.AttrNormal, 3}, VertexAttribute{glsl.AttrUV, 2})
)

func (f VertexFormat) Attributes() []VertexAttribute { return f.attrs }
func (f VertexFormat) Stride() int                   { return f.stride }

func (f VertexFormat) Has(a glsl.Attribute) bool {
	return a >= 0 && a < glsl.AttributesN && f.offsets[a] >= 0
}

// Offset returns the byte offset of a within a vertex.
func (f VertexFormat) Offset(a glsl.Attribute) (int, bool) {
	if !f.Has(a) {
		return 0, false
	}
	return f.offsets[a], true
}

// Components returns the component count of a, 0 when absent.
func (f VertexFormat) Components(a glsl.Attribute) int {
	for _, va := range f.attrs {
		if va.Attr == a {
			return va.Components
		}
	}
	return 0
}

// VertexBuffer is interleaved vertex data in a VertexFormat.
type VertexBuffer struct {
	id     ID
	Format VertexFormat
	Data   []byte
	count  int
}

func NewVertexBuffer(f VertexFormat, data []byte) (*VertexBuffer, error) {
	if f.stride == 0 {
		return nil, fmt.Errorf("gfx: vertex buffer with empty format")
	}
	if len(data)%f.stride != 0 {
		return nil, fmt.Errorf("gfx: vertex data of %d bytes is not a multiple of stride %d", len(data), f.stride)
	}
	return &VertexBuffer{id: nextID(), Format: f, Data: data, count: len(data) / f.stride}, nil
}

func (vb *VertexBuffer) ResourceID() ID { return vb.id }
func (vb *VertexBuffer) Count() int     { return vb.count }

// IndexBuffer holds 16- or 32-bit indices.
type IndexBuffer struct {
	id        ID
	Data      []byte
	IndexSize int // 2 or 4
	count     int
}

func NewIndexBuffer(data []byte, indexSize int) (*IndexBuffer, error) {
	if indexSize != 2 && indexSize != 4 {
		return nil, fmt.Errorf("gfx: index size %d, want 2 or 4", indexSize)
	}
	if len(data)%indexSize != 0 {
		return nil, fmt.Errorf("gfx: index data of %d bytes is not a multiple of %d", len(data), indexSize)
	}
	return &IndexBuffer{id: nextID(), Data: data, IndexSize: indexSize, count: len(data) / indexSize}, nil
}

func (ib *IndexBuffer) ResourceID() ID { return ib.id }
func (ib *IndexBuffer) Count() int     { return ib.count }

// SubMesh is a primitive range drawn with its own call.
type SubMesh struct {
	First, Count int
}

// Geometry is what a node draws. Indices may be nil for non-indexed draws.
type Geometry struct {
	Vertices  *VertexBuffer
	Indices   *IndexBuffer
	Topology  Topology
	SubMeshes []SubMesh
}

// DrawCount is the element count of a whole-geometry draw.
func (g *Geometry) DrawCount() int {
	if g.Indices != nil {
		return g.Indices.Count()
	}
	if g.Vertices != nil {
		return g.Vertices.Count()
	}
	return 0
}

// Float32Bytes encodes f as little-endian bytes, the layout GPUs read.
func Float32Bytes(f []float32) []byte {
	b := make([]byte, 4*len(f))
	for i, v := range f {
		binary.LittleEndian.PutUint32(b[4*i:], math.Float32bits(v))
	}
	return b
}

func Uint16Bytes(idx []uint16) []byte {
	b := make([]byte, 2*len(idx))
	for i, v := range idx {
		binary.LittleEndian.PutUint16(b[2*i:], v)
	}
	return b
}

func Uint32Bytes(idx []uint32) []byte {
	b := make([]byte, 4*len(idx))
	for i, v := range idx {
		binary.LittleEndian.PutUint32(b[4*i:], v)
	}
	return b
}
