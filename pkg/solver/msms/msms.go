// Package msms implements solver.Geometry on top of the MSMS molecular
// surface program, run as an external process.
package msms

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/chazu/molsurf/pkg/mesh"
	"github.com/chazu/molsurf/pkg/solver"
	"github.com/chazu/molsurf/pkg/structure"
)

// Compile-time interface check.
var _ solver.Geometry = (*Solver)(nil)

// Solver runs MSMS once per Solve call.
type Solver struct {
	proc solver.Process
}

// New returns a Solver launching MSMS as described by proc.
func New(proc solver.Process) *Solver {
	return &Solver{proc: proc}
}

// Solve writes atoms to an xyzr file, runs MSMS on it and reads back every
// connected surface component it produced. All files live in a temporary
// directory removed before Solve returns.
func (s *Solver) Solve(ctx context.Context, atoms []structure.Atom, p solver.Params, indexOffset int) (*mesh.Buffer, error) {
	if err := solver.CheckCanceled(ctx); err != nil {
		return nil, err
	}

	var out *mesh.Buffer
	err := solver.WithTempDir("msms-*", func(dir string) error {
		input := filepath.Join(dir, "atoms.xyzr")
		base := filepath.Join(dir, "surface")
		if err := writeInput(input, atoms); err != nil {
			return err
		}

		label := fmt.Sprintf("MSMS %d atoms", len(atoms))
		if err := s.proc.Run(ctx, label, Args(input, base, p)...); err != nil {
			return err
		}
		if !exists(base + ".vert") {
			return fmt.Errorf("%w: %s: no vertex output", solver.ErrProcessFailed, label)
		}

		b, err := ReadComponents(base, len(atoms), indexOffset)
		if err != nil {
			return err
		}
		out = b
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Args returns the MSMS command line for one run.
func Args(input, output string, p solver.Params) []string {
	return []string{
		"-if", input,
		"-of", output,
		"-probe_radius", formatFloat(p.ProbeRadius),
		"-density", formatFloat(p.Density),
		"-hdensity", formatFloat(p.HDensity),
		"-no_area",
		"-no_header",
		"-all_components",
	}
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// writeInput writes one "x y z r" row per atom. Unknown radii are written
// as the carbon radius.
func writeInput(path string, atoms []structure.Atom) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating msms input: %w", err)
	}
	w := bufio.NewWriter(f)
	for i := range atoms {
		a := &atoms[i]
		fmt.Fprintf(w, "%.5f %.5f %.5f %.5f\n",
			a.Position[0], a.Position[1], a.Position[2], a.Radius())
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return fmt.Errorf("writing msms input: %w", err)
	}
	return f.Close()
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
