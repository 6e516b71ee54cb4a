package aoembree

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chazu/molsurf/pkg/mesh"
	"github.com/chazu/molsurf/pkg/solver"
)

// TestHelperProcess stands in for AOEmbree: it counts the vertices of the
// OBJ input and writes one value per vertex. FAKE_AO_MODE selects failures.
func TestHelperProcess(t *testing.T) {
	if os.Getenv("MOLSURF_HELPER_PROCESS") != "1" {
		return
	}
	args := os.Args
	for len(args) > 0 && args[0] != "--" {
		args = args[1:]
	}
	opts := map[string]string{}
	for i := 1; i+1 < len(args); i++ {
		opts[args[i]] = args[i+1]
	}

	mode := os.Getenv("FAKE_AO_MODE")
	switch mode {
	case "fail":
		os.Exit(1)
	case "nooutput":
		os.Exit(0)
	case "hang":
		time.Sleep(time.Minute)
		os.Exit(0)
	}

	in, err := os.Open(opts["-i"])
	if err != nil {
		os.Exit(3)
	}
	vertices := 0
	sc := bufio.NewScanner(in)
	for sc.Scan() {
		if strings.HasPrefix(sc.Text(), "v ") {
			vertices++
		}
	}
	in.Close()
	if mode == "short" {
		vertices--
	}

	var out strings.Builder
	for i := 0; i < vertices; i++ {
		fmt.Fprintf(&out, "%.2f", float64(i%4)/4)
		if i%2 == 1 {
			out.WriteString("\n")
		} else {
			out.WriteString(" ")
		}
	}
	if err := os.WriteFile(opts["-o"], []byte(out.String()), 0o644); err != nil {
		os.Exit(4)
	}
	os.Exit(0)
}

func fakeSolver(t *testing.T, mode string) *Solver {
	t.Helper()
	if !Supported {
		t.Skip("aoembree is not supported on this platform")
	}
	s, err := New(solver.Process{
		Path: os.Args[0],
		Args: []string{"-test.run=^TestHelperProcess$", "--"},
		Env:  []string{"MOLSURF_HELPER_PROCESS=1", "FAKE_AO_MODE=" + mode},
	})
	require.NoError(t, err)
	return s
}

// quad is two triangles sharing an edge: 4 vertices, 2 triangles.
func quad() *mesh.Buffer {
	return &mesh.Buffer{
		Vertices:  []float32{0, 0, 0, 1, 0, 0, 1, 1, 0, 0, 1, 0},
		Normals:   []float32{0, 0, 1, 0, 0, 1, 0, 0, 1, 0, 0, 1},
		Triangles: []uint32{0, 1, 2, 2, 3, 0},
		AtomIndex: []uint32{0, 0, 0, 0},
	}
}

func TestSolve(t *testing.T) {
	ao, err := fakeSolver(t, "ok").Solve(t.Context(), quad(), DefaultSteps, DefaultMaxDistance)
	require.NoError(t, err)
	assert.Equal(t, []float32{0, 0.25, 0.5, 0.75}, ao)
}

func TestSolveFailures(t *testing.T) {
	tests := []struct {
		mode string
		want error
	}{
		{"fail", solver.ErrProcessFailed},
		{"nooutput", solver.ErrProcessFailed},
		{"short", solver.ErrOcclusionMismatch},
	}
	for _, tt := range tests {
		t.Run(tt.mode, func(t *testing.T) {
			ao, err := fakeSolver(t, tt.mode).Solve(t.Context(), quad(), DefaultSteps, DefaultMaxDistance)
			assert.ErrorIs(t, err, tt.want)
			assert.Empty(t, ao)
		})
	}
}

func TestSolveCanceled(t *testing.T) {
	s := fakeSolver(t, "hang")
	ctx, cancel := context.WithCancel(t.Context())
	time.AfterFunc(200*time.Millisecond, cancel)
	_, err := s.Solve(ctx, quad(), DefaultSteps, DefaultMaxDistance)
	assert.ErrorIs(t, err, solver.ErrCanceled)
}

func TestSolveRemovesTempDir(t *testing.T) {
	tmp := t.TempDir()
	t.Setenv("TMPDIR", tmp)
	for _, mode := range []string{"ok", "fail", "short"} {
		_, _ = fakeSolver(t, mode).Solve(t.Context(), quad(), DefaultSteps, DefaultMaxDistance)
	}
	ctx, cancel := context.WithCancel(t.Context())
	time.AfterFunc(200*time.Millisecond, cancel)
	_, err := fakeSolver(t, "hang").Solve(ctx, quad(), DefaultSteps, DefaultMaxDistance)
	require.ErrorIs(t, err, solver.ErrCanceled)

	entries, err := os.ReadDir(tmp)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestNewUnavailable(t *testing.T) {
	_, err := New(solver.Process{})
	assert.ErrorIs(t, err, solver.ErrUnavailable)
}

func TestWriteOBJ(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteOBJ(&buf, quad()))
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 10)
	assert.Equal(t, "v 0.000000 0.000000 0.000000", lines[0])
	assert.Equal(t, "vn 0.000000 0.000000 1.000000", lines[1])
	assert.Equal(t, "f 1 2 3", lines[8])
	assert.Equal(t, "f 3 4 1", lines[9])
}

func TestReadValues(t *testing.T) {
	values, err := ReadValues(strings.NewReader("0.5 1\n 0.25\n\n0\n"))
	require.NoError(t, err)
	assert.Equal(t, []float32{0.5, 1, 0.25, 0}, values)

	_, err = ReadValues(strings.NewReader("0.5 abc"))
	assert.ErrorIs(t, err, solver.ErrOutputMalformed)
}

func TestArgs(t *testing.T) {
	assert.Equal(t,
		[]string{"-a", "-n", "-i", "in.obj", "-o", "out", "-s", "512", "-d", "50"},
		Args("in.obj", "out", 512, 50))
}
