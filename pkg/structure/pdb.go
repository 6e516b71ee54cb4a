package structure

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// residueKey identifies a residue within a structure.
type residueKey struct {
	chain  string
	serial int
}

type ssRange struct {
	chain      string
	start, end int
	class      SecondaryStructure
}

// ReadPDB reads ATOM and HETATM records from a PDB file. Residues covered by
// HELIX or SHEET records get the matching secondary structure; the other
// residues of ATOM records are coil and HETATM residues stay unknown.
// Only the first model of a multi-model file is read.
func ReadPDB(r io.Reader) ([]Atom, error) {
	var (
		atoms   []Atom
		polymer []bool
		ranges  []ssRange
	)

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := sc.Text()
		record := strings.TrimSpace(field(line, 0, 6))
		switch record {
		case "ATOM", "HETATM":
			a, err := parseAtomRecord(line)
			if err != nil {
				return nil, fmt.Errorf("pdb line %d: %w", lineNo, err)
			}
			atoms = append(atoms, a)
			polymer = append(polymer, record == "ATOM")
		case "HELIX":
			rg, err := parseRange(line, 19, 21, 25, 33, 37, SecondaryHelix)
			if err != nil {
				return nil, fmt.Errorf("pdb line %d: %w", lineNo, err)
			}
			ranges = append(ranges, rg)
		case "SHEET":
			rg, err := parseRange(line, 21, 22, 26, 33, 37, SecondarySheet)
			if err != nil {
				return nil, fmt.Errorf("pdb line %d: %w", lineNo, err)
			}
			ranges = append(ranges, rg)
		case "ENDMDL":
			return assignSecondary(atoms, polymer, ranges), nil
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("reading pdb: %w", err)
	}
	return assignSecondary(atoms, polymer, ranges), nil
}

func assignSecondary(atoms []Atom, polymer []bool, ranges []ssRange) []Atom {
	for i := range atoms {
		a := &atoms[i]
		if polymer[i] {
			a.Residue.SecondaryStructure = SecondaryCoil
		}
		for _, rg := range ranges {
			if rg.chain == a.Chain && a.Residue.Serial >= rg.start && a.Residue.Serial <= rg.end {
				a.Residue.SecondaryStructure = rg.class
				break
			}
		}
	}
	return atoms
}

func parseAtomRecord(line string) (Atom, error) {
	var a Atom
	for i, cols := range [3][2]int{{30, 38}, {38, 46}, {46, 54}} {
		v, err := strconv.ParseFloat(strings.TrimSpace(field(line, cols[0], cols[1])), 32)
		if err != nil {
			return a, fmt.Errorf("invalid coordinate: %w", err)
		}
		a.Position[i] = float32(v)
	}

	serial, err := strconv.Atoi(strings.TrimSpace(field(line, 22, 26)))
	if err != nil {
		return a, fmt.Errorf("invalid residue serial: %w", err)
	}

	a.Symbol = strings.TrimSpace(field(line, 76, 78))
	if a.Symbol == "" {
		a.Symbol = symbolFromName(field(line, 12, 16))
	}
	a.Symbol = normalizeSymbol(a.Symbol)
	a.VdwRadius = VdwRadius(a.Symbol)
	a.Chain = strings.TrimSpace(field(line, 21, 22))
	a.Residue = Residue{
		Name:   strings.TrimSpace(field(line, 17, 20)),
		Serial: serial,
	}
	a.Selected = true
	return a, nil
}

func parseRange(line string, chainCol, startFrom, startTo, endFrom, endTo int, class SecondaryStructure) (ssRange, error) {
	start, err := strconv.Atoi(strings.TrimSpace(field(line, startFrom, startTo)))
	if err != nil {
		return ssRange{}, fmt.Errorf("invalid %s start: %w", class, err)
	}
	end, err := strconv.Atoi(strings.TrimSpace(field(line, endFrom, endTo)))
	if err != nil {
		return ssRange{}, fmt.Errorf("invalid %s end: %w", class, err)
	}
	return ssRange{
		chain: strings.TrimSpace(field(line, chainCol, chainCol+1)),
		start: start,
		end:   end,
		class: class,
	}, nil
}

// field returns line[from:to] clipped to the line length.
func field(line string, from, to int) string {
	if from >= len(line) {
		return ""
	}
	if to > len(line) {
		to = len(line)
	}
	return line[from:to]
}

// symbolFromName guesses the element from a PDB atom name such as " CA "
// or "1HB2".
func symbolFromName(name string) string {
	name = strings.TrimLeft(strings.TrimSpace(name), "0123456789")
	if name == "" {
		return ""
	}
	return name[:1]
}

func normalizeSymbol(s string) string {
	if len(s) <= 1 {
		return strings.ToUpper(s)
	}
	return strings.ToUpper(s[:1]) + strings.ToLower(s[1:])
}
