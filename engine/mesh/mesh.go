// Package mesh builds procedural geometry. Every mesh has counter-clockwise
// front faces and a position, normal, uv layout; ColorCube adds a color.
package mesh

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/hubastard/grove3d/engine/colors"
	"github.com/hubastard/grove3d/engine/gfx"
	"github.com/hubastard/grove3d/engine/gfx/glsl"
)

// VertexPNUC is VertexPNU plus an RGBA color.
var VertexPNUC, _ = gfx.NewVertexFormat(
	gfx.VertexAttribute{Attr: glsl.AttrPosition, Components: 3},
	gfx.VertexAttribute{Attr: glsl.AttrNormal, Components: 3},
	gfx.VertexAttribute{Attr: glsl.AttrUV, Components: 2},
	gfx.VertexAttribute{Attr: glsl.AttrColor, Components: 4},
)

// Builder accumulates interleaved VertexPNU (or VertexPNUC with Color)
// vertices and triangle indices.
type Builder struct {
	Color   bool
	verts   []float32
	indices []uint32
	n       uint32
}

// Vertex appends one vertex and returns its index. c is ignored unless
// Color is set.
func (b *Builder) Vertex(p, n mgl32.Vec3, uv mgl32.Vec2, c colors.Color) uint32 {
	b.verts = append(b.verts, p[0], p[1], p[2], n[0], n[1], n[2], uv[0], uv[1])
	if b.Color {
		b.verts = append(b.verts, c[:]...)
	}
	b.n++
	return b.n - 1
}

func (b *Builder) Tri(i, j, k uint32) { b.indices = append(b.indices, i, j, k) }

// Len is the number of vertices added so far.
func (b *Builder) Len() int { return int(b.n) }

// Geometry packs the buffers, with 16-bit indices when they fit.
func (b *Builder) Geometry() (*gfx.Geometry, error) {
	f := gfx.VertexPNU
	if b.Color {
		f = VertexPNUC
	}
	vb, err := gfx.NewVertexBuffer(f, gfx.Float32Bytes(b.verts))
	if err != nil {
		return nil, err
	}
	var ib *gfx.IndexBuffer
	if b.n <= math.MaxUint16+1 {
		idx := make([]uint16, len(b.indices))
		for i, v := range b.indices {
			idx[i] = uint16(v)
		}
		ib, err = gfx.NewIndexBuffer(gfx.Uint16Bytes(idx), 2)
	} else {
		ib, err = gfx.NewIndexBuffer(gfx.Uint32Bytes(b.indices), 4)
	}
	if err != nil {
		return nil, err
	}
	return &gfx.Geometry{Vertices: vb, Indices: ib, Topology: gfx.TopologyTriangles}, nil
}

// face is one side of a cube: its outward normal and the in-plane axes with
// u cross v equal to the normal.
type face struct{ n, u, v mgl32.Vec3 }

var cubeFaces = [6]face{
	{mgl32.Vec3{1, 0, 0}, mgl32.Vec3{0, 0, -1}, mgl32.Vec3{0, 1, 0}},
	{mgl32.Vec3{-1, 0, 0}, mgl32.Vec3{0, 0, 1}, mgl32.Vec3{0, 1, 0}},
	{mgl32.Vec3{0, 1, 0}, mgl32.Vec3{1, 0, 0}, mgl32.Vec3{0, 0, -1}},
	{mgl32.Vec3{0, -1, 0}, mgl32.Vec3{1, 0, 0}, mgl32.Vec3{0, 0, 1}},
	{mgl32.Vec3{0, 0, 1}, mgl32.Vec3{1, 0, 0}, mgl32.Vec3{0, 1, 0}},
	{mgl32.Vec3{0, 0, -1}, mgl32.Vec3{-1, 0, 0}, mgl32.Vec3{0, 1, 0}},
}

func cube(b *Builder, size float32, faceColors [6]colors.Color) (*gfx.Geometry, error) {
	h := size / 2
	corners := [4][2]float32{{-1, -1}, {1, -1}, {1, 1}, {-1, 1}}
	for i, f := range cubeFaces {
		var idx [4]uint32
		for k, c := range corners {
			p := f.n.Add(f.u.Mul(c[0])).Add(f.v.Mul(c[1])).Mul(h)
			uv := mgl32.Vec2{(c[0] + 1) / 2, (c[1] + 1) / 2}
			idx[k] = b.Vertex(p, f.n, uv, faceColors[i])
		}
		b.Tri(idx[0], idx[1], idx[2])
		b.Tri(idx[0], idx[2], idx[3])
	}
	return b.Geometry()
}

// Cube is an axis-aligned cube of edge size centered on the origin, with
// one quad of uv space per face.
func Cube(size float32) (*gfx.Geometry, error) {
	return cube(&Builder{}, size, [6]colors.Color{})
}

// ColorCube is Cube with a solid color per face in +X, -X, +Y, -Y, +Z, -Z
// order.
func ColorCube(size float32, faceColors [6]colors.Color) (*gfx.Geometry, error) {
	return cube(&Builder{Color: true}, size, faceColors)
}

// Plane is a width by depth grid on the XZ plane facing +Y, split into
// divisions quads per side. uv spans the whole plane once.
func Plane(width, depth float32, divisions int) (*gfx.Geometry, error) {
	n := max(divisions, 1)
	b := &Builder{}
	up := mgl32.Vec3{0, 1, 0}
	for j := 0; j <= n; j++ {
		for i := 0; i <= n; i++ {
			u, v := float32(i)/float32(n), float32(j)/float32(n)
			p := mgl32.Vec3{-width/2 + width*u, 0, depth/2 - depth*v}
			b.Vertex(p, up, mgl32.Vec2{u, v}, colors.Color{})
		}
	}
	row := uint32(n + 1)
	for j := uint32(0); j < uint32(n); j++ {
		for i := uint32(0); i < uint32(n); i++ {
			a := j*row + i
			b.Tri(a, a+1, a+row+1)
			b.Tri(a, a+row+1, a+row)
		}
	}
	return b.Geometry()
}

// Sphere is a UV sphere of radius around the origin with rings latitude
// bands and sectors longitude slices.
func Sphere(radius float32, rings, sectors int) (*gfx.Geometry, error) {
	rings, sectors = max(rings, 2), max(sectors, 3)
	b := &Builder{}
	for r := 0; r <= rings; r++ {
		phi := math.Pi * float64(r) / float64(rings)
		for s := 0; s <= sectors; s++ {
			theta := 2 * math.Pi * float64(s) / float64(sectors)
			n := mgl32.Vec3{
				float32(math.Sin(phi) * math.Cos(theta)),
				float32(math.Cos(phi)),
				float32(math.Sin(phi) * math.Sin(theta)),
			}
			uv := mgl32.Vec2{float32(s) / float32(sectors), 1 - float32(r)/float32(rings)}
			b.Vertex(n.Mul(radius), n, uv, colors.Color{})
		}
	}
	row := uint32(sectors + 1)
	for r := uint32(0); r < uint32(rings); r++ {
		for s := uint32(0); s < uint32(sectors); s++ {
			a := r*row + s
			bl, br, ar := a+row, a+row+1, a+1
			b.Tri(a, ar, br)
			b.Tri(a, br, bl)
		}
	}
	return b.Geometry()
}
