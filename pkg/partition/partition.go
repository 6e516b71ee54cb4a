// Package partition splits an atom list into contiguous groups and builds
// one surface mesh from them, calling a geometry solver once per group.
package partition

import (
	"context"
	"fmt"
	"strings"

	"github.com/chazu/molsurf/pkg/logging"
	"github.com/chazu/molsurf/pkg/mesh"
	"github.com/chazu/molsurf/pkg/solver"
	"github.com/chazu/molsurf/pkg/structure"
)

// Mode selects how atoms are grouped before solving.
type Mode int

const (
	// Whole solves all atoms at once.
	Whole Mode = iota
	// ByChain solves each run of atoms sharing a chain name.
	ByChain
	// ByResidue solves each run of atoms sharing a residue serial.
	ByResidue
)

var modeNames = [...]string{
	Whole:     "whole",
	ByChain:   "chain",
	ByResidue: "residue",
}

func (m Mode) String() string {
	if m < 0 || int(m) >= len(modeNames) {
		return fmt.Sprintf("Mode(%d)", int(m))
	}
	return modeNames[m]
}

// ParseMode parses a mode name as produced by String.
func ParseMode(s string) (Mode, error) {
	for i, name := range modeNames {
		if strings.EqualFold(s, name) {
			return Mode(i), nil
		}
	}
	return Whole, fmt.Errorf("unknown partition mode %q", s)
}

// Group is the half-open atom range [Start, End) of one solver call.
type Group struct {
	Start, End int
}

// Len returns the number of atoms in the group.
func (g Group) Len() int { return g.End - g.Start }

// IndexOffset is the value added to group-local atom indices to make them
// indices into the full atom list.
func (g Group) IndexOffset() int { return g.Start }

// Split groups atoms by runs of equal key in input order. Atoms are not
// reordered: a chain that appears twice, split by another, yields two
// groups.
func Split(atoms []structure.Atom, mode Mode) []Group {
	if len(atoms) == 0 {
		return nil
	}
	if mode == Whole {
		return []Group{{Start: 0, End: len(atoms)}}
	}

	same := func(a, b *structure.Atom) bool {
		if mode == ByChain {
			return a.Chain == b.Chain
		}
		return a.Residue.Serial == b.Residue.Serial
	}

	var groups []Group
	start := 0
	for i := 1; i < len(atoms); i++ {
		if !same(&atoms[i-1], &atoms[i]) {
			groups = append(groups, Group{Start: start, End: i})
			start = i
		}
	}
	return append(groups, Group{Start: start, End: len(atoms)})
}

// Quality holds the solver settings used for every group. The high
// density drops to HDensityLarge for groups of LargeAtoms atoms or more.
type Quality struct {
	ProbeRadius   float64
	Density       float64
	HDensitySmall float64
	HDensityLarge float64
	LargeAtoms    int
}

// DefaultQuality returns the standard settings.
func DefaultQuality() Quality {
	return Quality{
		ProbeRadius:   solver.DefaultProbeRadius,
		Density:       solver.DefaultDensity,
		HDensitySmall: solver.DefaultHDensitySmall,
		HDensityLarge: solver.DefaultHDensityLarge,
		LargeAtoms:    solver.LargeStructureAtoms,
	}
}

// Params returns the solver parameters for a group of n atoms.
func (q Quality) Params(n int) solver.Params {
	hdensity := q.HDensitySmall
	if n >= q.LargeAtoms {
		hdensity = q.HDensityLarge
	}
	return solver.Params{
		ProbeRadius: q.ProbeRadius,
		Density:     q.Density,
		HDensity:    hdensity,
	}
}

// Build solves every group of atoms with g and concatenates the results
// into a single mesh whose atom indices refer to atoms. Cancellation is
// checked between groups.
func Build(ctx context.Context, g solver.Geometry, atoms []structure.Atom, mode Mode, q Quality) (*mesh.Buffer, error) {
	out := &mesh.Buffer{}
	groups := Split(atoms, mode)
	log := logging.Logger()
	for i, grp := range groups {
		if err := solver.CheckCanceled(ctx); err != nil {
			return nil, err
		}
		if grp.Len() == 0 {
			continue
		}
		b, err := g.Solve(ctx, atoms[grp.Start:grp.End], q.Params(grp.Len()), grp.IndexOffset())
		if err != nil {
			return nil, fmt.Errorf("%s group %d/%d: %w", mode, i+1, len(groups), err)
		}
		out.Append(b)
		log.Debug("group solved", "mode", mode.String(), "group", i+1, "of", len(groups),
			"atoms", grp.Len(), "vertices", b.VertexCount())
	}
	if err := out.Validate(len(atoms)); err != nil {
		return nil, err
	}
	return out, nil
}
