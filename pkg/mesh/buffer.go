// Package mesh holds the triangle mesh produced by the surface engine.
package mesh

import (
	"errors"
	"fmt"
	"math"

	v3 "github.com/deadsy/sdfx/vec/v3"
)

// ErrInvalid is returned by Validate when a buffer breaks one of its
// structural invariants.
var ErrInvalid = errors.New("invalid mesh buffer")

// Buffer is a triangle mesh with one source atom per vertex.
// All arrays are flat: Vertices and Normals have 3 floats per vertex,
// Triangles has 3 indices per triangle. AtomIndex has one entry per vertex
// indexing the atom list of the request the mesh was built for. Occlusion
// is either empty or has one value per vertex.
type Buffer struct {
	Vertices  []float32 `json:"vertices"`
	Normals   []float32 `json:"normals"`
	Triangles []uint32  `json:"triangles"`
	AtomIndex []uint32  `json:"atomIndex"`
	Occlusion []float32 `json:"occlusion,omitempty"`
}

// VertexCount returns the number of vertices.
func (b *Buffer) VertexCount() int {
	return len(b.Vertices) / 3
}

// TriangleCount returns the number of triangles.
func (b *Buffer) TriangleCount() int {
	return len(b.Triangles) / 3
}

// IsEmpty returns true if the mesh has no geometry.
func (b *Buffer) IsEmpty() bool {
	return len(b.Vertices) == 0
}

// HasOcclusion reports whether per-vertex occlusion is present.
func (b *Buffer) HasOcclusion() bool {
	return len(b.Occlusion) > 0
}

// Append concatenates other onto b. Triangle indices of other are shifted
// by the vertex count of b; atom indices are copied as they are, so they
// must already refer to the shared atom list. Occlusion does not survive
// concatenation and is cleared.
func (b *Buffer) Append(other *Buffer) {
	offset := uint32(b.VertexCount())
	b.Vertices = append(b.Vertices, other.Vertices...)
	b.Normals = append(b.Normals, other.Normals...)
	b.AtomIndex = append(b.AtomIndex, other.AtomIndex...)
	for _, t := range other.Triangles {
		b.Triangles = append(b.Triangles, t+offset)
	}
	b.Occlusion = nil
}

// Validate checks the buffer invariants against the size of the atom list
// the buffer indexes into.
func (b *Buffer) Validate(numAtoms int) error {
	if len(b.Vertices)%3 != 0 {
		return fmt.Errorf("%w: %d vertex floats is not a multiple of 3", ErrInvalid, len(b.Vertices))
	}
	v := b.VertexCount()
	if len(b.Normals) != 3*v {
		return fmt.Errorf("%w: %d normal floats for %d vertices", ErrInvalid, len(b.Normals), v)
	}
	if len(b.AtomIndex) != v {
		return fmt.Errorf("%w: %d atom indices for %d vertices", ErrInvalid, len(b.AtomIndex), v)
	}
	if n := len(b.Occlusion); n != 0 && n != v {
		return fmt.Errorf("%w: %d occlusion values for %d vertices", ErrInvalid, n, v)
	}
	if len(b.Triangles)%3 != 0 {
		return fmt.Errorf("%w: %d triangle indices is not a multiple of 3", ErrInvalid, len(b.Triangles))
	}
	for i, t := range b.Triangles {
		if int(t) >= v {
			return fmt.Errorf("%w: triangle index %d at %d out of range [0,%d)", ErrInvalid, t, i, v)
		}
	}
	for i, a := range b.AtomIndex {
		if int(a) >= numAtoms {
			return fmt.Errorf("%w: atom index %d at vertex %d out of range [0,%d)", ErrInvalid, a, i, numAtoms)
		}
	}
	return nil
}

// Vertex returns the position of vertex i.
func (b *Buffer) Vertex(i int) v3.Vec {
	return v3.Vec{
		X: float64(b.Vertices[3*i]),
		Y: float64(b.Vertices[3*i+1]),
		Z: float64(b.Vertices[3*i+2]),
	}
}

// BoundingBox returns the axis-aligned bounding box of the vertices.
// An empty buffer yields a zero box.
func (b *Buffer) BoundingBox() (min, max [3]float64) {
	if b.IsEmpty() {
		return min, max
	}
	lo := v3.Vec{X: math.Inf(1), Y: math.Inf(1), Z: math.Inf(1)}
	hi := v3.Vec{X: math.Inf(-1), Y: math.Inf(-1), Z: math.Inf(-1)}
	for i := 0; i < b.VertexCount(); i++ {
		p := b.Vertex(i)
		lo = lo.Min(p)
		hi = hi.Max(p)
	}
	return [3]float64{lo.X, lo.Y, lo.Z}, [3]float64{hi.X, hi.Y, hi.Z}
}
