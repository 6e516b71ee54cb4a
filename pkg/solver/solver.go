// Package solver defines the geometry and occlusion solver interfaces used
// by the surface engine. Implementations (msms, aoembree, sdfx) run the
// actual computation, usually in an external process, behind these
// interfaces so backends can be swapped without touching the engine.
package solver

import (
	"context"
	"errors"

	"github.com/chazu/molsurf/pkg/mesh"
	"github.com/chazu/molsurf/pkg/structure"
)

var (
	// ErrProcessFailed means a solver process exited non-zero or did not
	// produce its expected output.
	ErrProcessFailed = errors.New("solver process failed")
	// ErrOutputMalformed means solver output could not be parsed.
	ErrOutputMalformed = errors.New("solver output malformed")
	// ErrOcclusionMismatch means the occlusion solver returned a value count
	// different from the mesh vertex count.
	ErrOcclusionMismatch = errors.New("occlusion vertex count mismatch")
	// ErrCanceled means the solve was abandoned because its context was
	// canceled. It is not a failure.
	ErrCanceled = errors.New("canceled")
	// ErrUnavailable means the solver is not available on this platform or
	// is not configured.
	ErrUnavailable = errors.New("solver unavailable")
)

// Quality defaults.
const (
	DefaultProbeRadius   = 1.5
	DefaultDensity       = 10.0
	DefaultHDensitySmall = 3.0
	DefaultHDensityLarge = 1.0
	// LargeStructureAtoms is the atom count from which the low high-density
	// setting is used.
	LargeStructureAtoms = 20000
)

// Params are the surface solver quality settings for one solve.
type Params struct {
	ProbeRadius float64
	Density     float64
	HDensity    float64
}

// Geometry computes a molecular surface for a list of atoms.
type Geometry interface {
	// Solve triangulates the surface of atoms. The returned buffer's atom
	// indices are positions in atoms shifted by indexOffset.
	Solve(ctx context.Context, atoms []structure.Atom, p Params, indexOffset int) (*mesh.Buffer, error)
}

// Occlusion computes one ambient occlusion value per mesh vertex, in [0,1]
// with 1 meaning fully lit.
type Occlusion interface {
	Solve(ctx context.Context, m *mesh.Buffer, steps int, maxDistance float64) ([]float32, error)
}

// CheckCanceled returns ErrCanceled once ctx is done.
func CheckCanceled(ctx context.Context) error {
	if ctx.Err() != nil {
		return ErrCanceled
	}
	return nil
}
