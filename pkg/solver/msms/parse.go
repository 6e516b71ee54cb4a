package msms

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/chazu/molsurf/pkg/mesh"
	"github.com/chazu/molsurf/pkg/solver"
)

// atomColumn is the 0-based column of the 1-based source atom index in a
// vertex row.
const atomColumn = 7

// ComponentName returns the base path of the i-th output file set: base
// itself for the first component, then base_1, base_2, ...
func ComponentName(base string, i int) string {
	if i == 0 {
		return base
	}
	return fmt.Sprintf("%s_%d", base, i)
}

// ReadComponents reads every consecutive component file set starting at
// base until a .vert file is missing, concatenating them into one buffer.
// numAtoms is the size of the atom list given to MSMS; atom indices are
// shifted by indexOffset.
func ReadComponents(base string, numAtoms, indexOffset int) (*mesh.Buffer, error) {
	b := &mesh.Buffer{}
	for i := 0; ; i++ {
		name := ComponentName(base, i)
		vf, err := os.Open(name + ".vert")
		if os.IsNotExist(err) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("opening %s.vert: %w", name, err)
		}
		vertexOffset := b.VertexCount()
		err = ReadVertices(vf, b, numAtoms, indexOffset)
		vf.Close()
		if err != nil {
			return nil, fmt.Errorf("%s.vert: %w", name, err)
		}

		ff, err := os.Open(name + ".face")
		if err != nil {
			return nil, fmt.Errorf("%w: %s.face: %v", solver.ErrOutputMalformed, name, err)
		}
		err = ReadFaces(ff, b, vertexOffset)
		ff.Close()
		if err != nil {
			return nil, fmt.Errorf("%s.face: %w", name, err)
		}
	}
	return b, nil
}

// ReadVertices appends the rows of a .vert file to b. Each row holds the
// position, the normal and, in column 8, the 1-based index of the atom the
// vertex belongs to.
func ReadVertices(r io.Reader, b *mesh.Buffer, numAtoms, indexOffset int) error {
	return eachRow(r, func(line int, fields []string) error {
		if len(fields) <= atomColumn {
			return fmt.Errorf("%w: line %d: %d columns, want at least %d",
				solver.ErrOutputMalformed, line, len(fields), atomColumn+1)
		}
		var v [6]float32
		for i := range v {
			f, err := strconv.ParseFloat(fields[i], 32)
			if err != nil {
				return fmt.Errorf("%w: line %d: %v", solver.ErrOutputMalformed, line, err)
			}
			v[i] = float32(f)
		}
		atom, err := strconv.Atoi(fields[atomColumn])
		if err != nil {
			return fmt.Errorf("%w: line %d: %v", solver.ErrOutputMalformed, line, err)
		}
		if atom < 1 || atom > numAtoms {
			return fmt.Errorf("%w: line %d: atom %d outside [1,%d]",
				solver.ErrOutputMalformed, line, atom, numAtoms)
		}
		b.Vertices = append(b.Vertices, v[0], v[1], v[2])
		b.Normals = append(b.Normals, v[3], v[4], v[5])
		b.AtomIndex = append(b.AtomIndex, uint32(atom-1+indexOffset))
		return nil
	})
}

// ReadFaces appends the triangles of a .face file to b. Vertex indices are
// 1-based and local to the component whose first vertex is vertexOffset.
func ReadFaces(r io.Reader, b *mesh.Buffer, vertexOffset int) error {
	count := b.VertexCount() - vertexOffset
	return eachRow(r, func(line int, fields []string) error {
		if len(fields) < 3 {
			return fmt.Errorf("%w: line %d: %d columns, want at least 3",
				solver.ErrOutputMalformed, line, len(fields))
		}
		var tri [3]uint32
		for i := range tri {
			idx, err := strconv.Atoi(fields[i])
			if err != nil {
				return fmt.Errorf("%w: line %d: %v", solver.ErrOutputMalformed, line, err)
			}
			if idx < 1 || idx > count {
				return fmt.Errorf("%w: line %d: vertex %d outside [1,%d]",
					solver.ErrOutputMalformed, line, idx, count)
			}
			tri[i] = uint32(idx - 1 + vertexOffset)
		}
		b.Triangles = append(b.Triangles, tri[:]...)
		return nil
	})
}

// eachRow calls fn with the whitespace-separated fields of every line that
// is neither blank nor a comment.
func eachRow(r io.Reader, fn func(line int, fields []string) error) error {
	sc := bufio.NewScanner(r)
	line := 0
	for sc.Scan() {
		line++
		text := sc.Text()
		if strings.HasPrefix(text, "#") {
			continue
		}
		fields := strings.Fields(text)
		if len(fields) == 0 {
			continue
		}
		if err := fn(line, fields); err != nil {
			return err
		}
	}
	return sc.Err()
}
