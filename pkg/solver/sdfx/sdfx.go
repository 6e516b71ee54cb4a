// Package sdfx implements solver.Geometry in-process using the
// github.com/deadsy/sdfx SDF library. It approximates the solvent excluded
// surface by offsetting a union of probe-inflated atom spheres back by the
// probe radius and meshing it with marching cubes. It needs no external
// executable, which makes it the fallback backend and the one used by tests.
package sdfx

import (
	"context"
	"fmt"
	"math"

	"github.com/deadsy/sdfx/render"
	"github.com/deadsy/sdfx/sdf"
	v3 "github.com/deadsy/sdfx/vec/v3"

	"github.com/chazu/molsurf/pkg/logging"
	"github.com/chazu/molsurf/pkg/mesh"
	"github.com/chazu/molsurf/pkg/solver"
	"github.com/chazu/molsurf/pkg/structure"
)

// Compile-time interface check.
var _ solver.Geometry = (*Solver)(nil)

// Marching cubes resolution bounds along the longest axis.
const (
	MinCells = 16
	MaxCells = 256
)

// Solver meshes atoms with sdfx.
type Solver struct{}

// New returns a new Solver.
func New() *Solver {
	return &Solver{}
}

type result struct {
	buf *mesh.Buffer
	err error
}

// Solve meshes the surface of atoms. Meshing runs on its own goroutine;
// when ctx is canceled Solve returns solver.ErrCanceled right away and the
// late result is dropped.
func (s *Solver) Solve(ctx context.Context, atoms []structure.Atom, p solver.Params, indexOffset int) (*mesh.Buffer, error) {
	if err := solver.CheckCanceled(ctx); err != nil {
		return nil, err
	}
	if len(atoms) == 0 {
		return &mesh.Buffer{}, nil
	}

	ch := make(chan result, 1)
	go func() {
		b, err := solveSync(atoms, p, indexOffset)
		ch <- result{buf: b, err: err}
	}()

	select {
	case res := <-ch:
		if err := solver.CheckCanceled(ctx); err != nil {
			return nil, err
		}
		return res.buf, res.err
	case <-ctx.Done():
		logging.Logger().Debug("sdfx solve canceled", "atoms", len(atoms))
		return nil, solver.ErrCanceled
	}
}

func solveSync(atoms []structure.Atom, p solver.Params, indexOffset int) (*mesh.Buffer, error) {
	spheres := make([]sdf.SDF3, 0, len(atoms))
	for i := range atoms {
		a := &atoms[i]
		sphere, err := sdf.Sphere3D(float64(a.Radius()) + p.ProbeRadius)
		if err != nil {
			return nil, fmt.Errorf("sphere for atom %d: %w", i, err)
		}
		at := sdf.Translate3d(center(a))
		spheres = append(spheres, sdf.Transform3D(sphere, at))
	}
	surface := sdf.Offset3D(sdf.Union3D(spheres...), -p.ProbeRadius)

	cells := Cells(surface.BoundingBox(), p.Density)
	triangles := render.ToTriangles(surface, render.NewMarchingCubesUniform(cells))
	b := weld(triangles)
	assignAtoms(b, atoms, indexOffset)
	logging.Logger().Debug("sdfx solve finished",
		"atoms", len(atoms), "cells", cells, "vertices", b.VertexCount(), "triangles", b.TriangleCount())
	return b, nil
}

// Cells picks the marching cubes resolution so that the vertex spacing is
// about 1/sqrt(density) along the longest box axis.
func Cells(bb sdf.Box3, density float64) int {
	size := bb.Size()
	extent := math.Max(size.X, math.Max(size.Y, size.Z))
	if density <= 0 {
		density = solver.DefaultDensity
	}
	cells := int(math.Ceil(extent * math.Sqrt(density) / 2))
	return min(max(cells, MinCells), MaxCells)
}

func center(a *structure.Atom) v3.Vec {
	return v3.Vec{X: float64(a.Position[0]), Y: float64(a.Position[1]), Z: float64(a.Position[2])}
}

// weld merges coincident triangle corners into shared vertices and gives
// each vertex the normalized sum of its face normals. Triangles collapsed
// by the merge are dropped.
func weld(triangles []*sdf.Triangle3) *mesh.Buffer {
	b := &mesh.Buffer{}
	index := make(map[[3]float32]uint32, len(triangles))
	var sums []v3.Vec

	for _, tri := range triangles {
		var ids [3]uint32
		for j := 0; j < 3; j++ {
			v := tri[j]
			key := [3]float32{float32(v.X), float32(v.Y), float32(v.Z)}
			id, ok := index[key]
			if !ok {
				id = uint32(len(sums))
				index[key] = id
				b.Vertices = append(b.Vertices, key[0], key[1], key[2])
				sums = append(sums, v3.Vec{})
			}
			ids[j] = id
		}
		if ids[0] == ids[1] || ids[1] == ids[2] || ids[0] == ids[2] {
			continue
		}
		n := tri.Normal()
		for _, id := range ids {
			sums[id] = sums[id].Add(n)
		}
		b.Triangles = append(b.Triangles, ids[0], ids[1], ids[2])
	}

	b.Normals = make([]float32, 0, len(b.Vertices))
	for _, n := range sums {
		if l := n.Length(); l > 0 {
			n = n.DivScalar(l)
		}
		b.Normals = append(b.Normals, float32(n.X), float32(n.Y), float32(n.Z))
	}
	return b
}

// assignAtoms sets each vertex's atom to the atom whose van der Waals
// sphere surface is closest.
func assignAtoms(b *mesh.Buffer, atoms []structure.Atom, indexOffset int) {
	b.AtomIndex = make([]uint32, b.VertexCount())
	for i := range b.AtomIndex {
		v := b.Vertex(i)
		best, bestDist := 0, math.Inf(1)
		for j := range atoms {
			d := math.Abs(v.Sub(center(&atoms[j])).Length() - float64(atoms[j].Radius()))
			if d < bestDist {
				best, bestDist = j, d
			}
		}
		b.AtomIndex[i] = uint32(best + indexOffset)
	}
}
