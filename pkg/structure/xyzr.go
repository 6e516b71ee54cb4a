package structure

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// ReadXYZR reads whitespace-separated "x y z radius" rows, the same format
// the surface solver consumes. Every atom is reported as a selected carbon
// in an unnamed chain; the row number becomes the residue serial.
func ReadXYZR(r io.Reader) ([]Atom, error) {
	var atoms []Atom
	sc := bufio.NewScanner(r)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 4 {
			return nil, fmt.Errorf("xyzr line %d: expected 4 fields, got %d", lineNo, len(fields))
		}
		var v [4]float32
		for i := range v {
			f, err := strconv.ParseFloat(fields[i], 32)
			if err != nil {
				return nil, fmt.Errorf("xyzr line %d: %w", lineNo, err)
			}
			v[i] = float32(f)
		}
		atoms = append(atoms, Atom{
			Position:  [3]float32{v[0], v[1], v[2]},
			VdwRadius: v[3],
			Symbol:    "C",
			Residue:   Residue{Serial: len(atoms) + 1},
			Selected:  true,
		})
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("reading xyzr: %w", err)
	}
	return atoms, nil
}
