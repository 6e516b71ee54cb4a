// Package colorscheme turns atoms into per-vertex surface colors. Colors
// are first computed per atom for a Scheme, expanded to vertices through
// the mesh's atom index, and finally darkened by ambient occlusion.
package colorscheme

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/samber/lo"

	"github.com/chazu/molsurf/pkg/structure"
)

// ErrInvalidSecondaryStructure is returned for an atom whose secondary
// structure code has no palette entry.
var ErrInvalidSecondaryStructure = errors.New("invalid secondary structure code")

// Scheme selects how atoms are colored.
type Scheme int

const (
	Monochrome Scheme = iota
	Chain
	Residue
	Element
	Hydrophobicity
	SecondaryStructure
)

var schemeNames = [...]string{
	Monochrome:         "monochrome",
	Chain:              "chain",
	Residue:            "residue",
	Element:            "element",
	Hydrophobicity:     "hydrophobicity",
	SecondaryStructure: "secondary-structure",
}

func (s Scheme) String() string {
	if s < 0 || int(s) >= len(schemeNames) {
		return fmt.Sprintf("Scheme(%d)", int(s))
	}
	return schemeNames[s]
}

// UsesBaseColor reports whether the scheme derives its colors from the
// base color. The others ignore it.
func (s Scheme) UsesBaseColor() bool {
	return s == Monochrome || s == Chain || s == Hydrophobicity
}

// ParseScheme parses a scheme name as produced by String. "all" is
// accepted for Monochrome and "ss" for SecondaryStructure.
func ParseScheme(name string) (Scheme, error) {
	switch n := strings.ToLower(strings.TrimSpace(name)); n {
	case "all":
		return Monochrome, nil
	case "ss", "secondary", "secondary_structure":
		return SecondaryStructure, nil
	default:
		if i := slices.Index(schemeNames[:], n); i >= 0 {
			return Scheme(i), nil
		}
	}
	return Monochrome, fmt.Errorf("unknown color scheme %q", name)
}

// PerAtom returns one opaque color per atom. Only the RGB channels of base
// are used.
func PerAtom(t *Tables, atoms []structure.Atom, scheme Scheme, base RGBA) ([]RGBA, error) {
	out := make([]RGBA, len(atoms))
	base = base.Opaque()

	switch scheme {
	case Monochrome:
		for i := range out {
			out[i] = base
		}

	case Chain:
		names := lo.Uniq(lo.Map(atoms, func(a structure.Atom, _ int) string { return a.Chain }))
		slices.Sort(names)
		rank := make(map[string]int, len(names))
		for i, n := range names {
			rank[n] = i
		}
		for i := range atoms {
			frac := float32(rank[atoms[i].Chain]) / float32(len(names))
			out[i] = base.BlendWhite(frac)
		}

	case Residue:
		for i := range atoms {
			out[i] = t.Residue(atoms[i].Residue.Name)
		}

	case Element:
		for i := range atoms {
			out[i] = t.Element(atoms[i].Symbol)
		}

	case Hydrophobicity:
		minV, maxV := t.HydrophobicityRange()
		for i := range atoms {
			v, ok := t.Hydrophobicity(atoms[i].Residue.Name)
			if !ok {
				out[i] = Gray
				continue
			}
			out[i] = base.BlendWhite(1 - (v-minV)/(maxV-minV))
		}

	case SecondaryStructure:
		for i := range atoms {
			c, err := t.SecondaryStructure(atoms[i].Residue.SecondaryStructure)
			if err != nil {
				return nil, fmt.Errorf("atom %d: %w", i, err)
			}
			out[i] = c
		}

	default:
		return nil, fmt.Errorf("unknown color scheme %d", int(scheme))
	}
	return out, nil
}

// PerVertex expands per-atom colors to vertices.
func PerVertex(perAtom []RGBA, atomIndex []uint32) []RGBA {
	out := make([]RGBA, len(atomIndex))
	for i, a := range atomIndex {
		out[i] = perAtom[a]
	}
	return out
}

// AOFactor returns the multiplier applied to a vertex with raw occlusion
// value ao. With aoScale below 1, values under 2*aoMin are lifted onto a
// quadratic that starts at aoMin so occluded areas keep their hue.
func AOFactor(ao, aoScale float32) float32 {
	aoMin := 0.5 - 0.5*aoScale
	if aoMin > 0 && ao < 2*aoMin {
		coef := aoMin / (4 * aoMin * aoMin)
		return coef*ao*ao + aoMin
	}
	return ao
}

// Composite flattens colors to RGBA floats, multiplying RGB by the
// occlusion factor of each vertex. Empty occlusion leaves colors as is.
// Alpha is never changed.
func Composite(colors []RGBA, occlusion []float32, aoScale float32) []float32 {
	out := make([]float32, 0, 4*len(colors))
	hasAO := len(occlusion) == len(colors) && len(occlusion) > 0
	for i, c := range colors {
		f := float32(1)
		if hasAO {
			f = AOFactor(occlusion[i], aoScale)
		}
		out = append(out, c.R*f, c.G*f, c.B*f, c.A)
	}
	return out
}
