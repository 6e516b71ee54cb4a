// Package aoembree implements solver.Occlusion on top of the AOEmbree
// ambient occlusion program, run as an external process.
package aoembree

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/chazu/molsurf/pkg/mesh"
	"github.com/chazu/molsurf/pkg/solver"
)

// Compile-time interface check.
var _ solver.Occlusion = (*Solver)(nil)

// Sampling defaults.
const (
	DefaultSteps       = 512
	DefaultMaxDistance = 50.0
)

// Solver runs AOEmbree once per Solve call.
type Solver struct {
	proc solver.Process
}

// New returns a Solver launching AOEmbree as described by proc. It fails
// with solver.ErrUnavailable when the platform has no AOEmbree build or no
// executable is configured.
func New(proc solver.Process) (*Solver, error) {
	if !Supported {
		return nil, fmt.Errorf("%w: aoembree is not built for this platform", solver.ErrUnavailable)
	}
	if proc.Path == "" {
		return nil, fmt.Errorf("%w: aoembree path not configured", solver.ErrUnavailable)
	}
	return &Solver{proc: proc}, nil
}

// Solve writes m as an OBJ file, runs AOEmbree on it and returns one
// occlusion value per vertex. A value count different from the vertex
// count fails with solver.ErrOcclusionMismatch.
func (s *Solver) Solve(ctx context.Context, m *mesh.Buffer, steps int, maxDistance float64) ([]float32, error) {
	if err := solver.CheckCanceled(ctx); err != nil {
		return nil, err
	}

	var ao []float32
	err := solver.WithTempDir("aoembree-*", func(dir string) error {
		input := filepath.Join(dir, "mesh.obj")
		output := filepath.Join(dir, "occlusion.out")
		if err := writeOBJFile(input, m); err != nil {
			return err
		}

		label := fmt.Sprintf("AOEmbree %d vertices", m.VertexCount())
		if err := s.proc.Run(ctx, label, Args(input, output, steps, maxDistance)...); err != nil {
			return err
		}

		f, err := os.Open(output)
		if err != nil {
			return fmt.Errorf("%w: %s: no output: %v", solver.ErrProcessFailed, label, err)
		}
		defer f.Close()
		values, err := ReadValues(f)
		if err != nil {
			return err
		}
		if len(values) != m.VertexCount() {
			return fmt.Errorf("%w: expected %d, got %d",
				solver.ErrOcclusionMismatch, m.VertexCount(), len(values))
		}
		ao = values
		return nil
	})
	if err != nil {
		return nil, err
	}
	return ao, nil
}

// Args returns the AOEmbree command line for one run.
func Args(input, output string, steps int, maxDistance float64) []string {
	return []string{
		"-a", "-n",
		"-i", input,
		"-o", output,
		"-s", strconv.Itoa(steps),
		"-d", strconv.FormatFloat(maxDistance, 'f', -1, 64),
	}
}

func writeOBJFile(path string, m *mesh.Buffer) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating aoembree input: %w", err)
	}
	if err := WriteOBJ(f, m); err != nil {
		f.Close()
		return fmt.Errorf("writing aoembree input: %w", err)
	}
	return f.Close()
}

// WriteOBJ writes a v/vn line pair per vertex followed by one f line per
// triangle with 1-based indices.
func WriteOBJ(w io.Writer, m *mesh.Buffer) error {
	bw := bufio.NewWriter(w)
	for i := 0; i < m.VertexCount(); i++ {
		v, n := m.Vertices[3*i:3*i+3], m.Normals[3*i:3*i+3]
		fmt.Fprintf(bw, "v %.6f %.6f %.6f\n", v[0], v[1], v[2])
		fmt.Fprintf(bw, "vn %.6f %.6f %.6f\n", n[0], n[1], n[2])
	}
	for i := 0; i < m.TriangleCount(); i++ {
		t := m.Triangles[3*i : 3*i+3]
		fmt.Fprintf(bw, "f %d %d %d\n", t[0]+1, t[1]+1, t[2]+1)
	}
	return bw.Flush()
}

// ReadValues parses a whitespace-separated sequence of floats.
func ReadValues(r io.Reader) ([]float32, error) {
	sc := bufio.NewScanner(r)
	sc.Split(bufio.ScanWords)
	var values []float32
	for sc.Scan() {
		f, err := strconv.ParseFloat(strings.TrimSpace(sc.Text()), 32)
		if err != nil {
			return nil, fmt.Errorf("%w: value %d: %v", solver.ErrOutputMalformed, len(values)+1, err)
		}
		values = append(values, float32(f))
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("reading occlusion output: %w", err)
	}
	return values, nil
}
