// Package structure defines the atom model consumed by the surface engine,
// together with small readers for PDB and XYZR files and the selection
// filter used to decide which atoms are meshed.
package structure

import "strings"

// SecondaryStructure classifies the residue an atom belongs to.
type SecondaryStructure int

const (
	SecondaryUnknown SecondaryStructure = iota
	SecondaryCoil
	SecondarySheet
	SecondaryHelix
)

func (s SecondaryStructure) String() string {
	switch s {
	case SecondaryUnknown:
		return "unknown"
	case SecondaryCoil:
		return "coil"
	case SecondarySheet:
		return "sheet"
	case SecondaryHelix:
		return "helix"
	}
	return "invalid"
}

// Residue is the residue an atom belongs to.
type Residue struct {
	Name               string
	Serial             int
	SecondaryStructure SecondaryStructure
}

// Atom is a single atom as seen by the surface engine. Atoms are never
// mutated by the engine.
type Atom struct {
	Position  [3]float32
	VdwRadius float32 // 0 when unknown
	Symbol    string
	Chain     string
	Residue   Residue
	Selected  bool
}

// DefaultRadius is the radius substituted for atoms whose radius is unknown.
const DefaultRadius = 1.7

// Radius returns the van der Waals radius, falling back to the carbon
// radius when the atom has none.
func (a *Atom) Radius() float32 {
	if a.VdwRadius < 0.0001 {
		return DefaultRadius
	}
	return a.VdwRadius
}

// bondiRadii holds van der Waals radii in angstroms keyed by upper-case
// element symbol.
var bondiRadii = map[string]float32{
	"H":  1.20,
	"C":  1.70,
	"N":  1.55,
	"O":  1.52,
	"F":  1.47,
	"P":  1.80,
	"S":  1.80,
	"CL": 1.75,
	"BR": 1.85,
	"I":  1.98,
	"SE": 1.90,
	"NA": 2.27,
	"K":  2.75,
	"MG": 1.73,
	"ZN": 1.39,
	"CU": 1.40,
	"NI": 1.63,
}

// VdwRadius returns the van der Waals radius for an element symbol, or 0
// when the element is not known.
func VdwRadius(symbol string) float32 {
	return bondiRadii[strings.ToUpper(symbol)]
}
