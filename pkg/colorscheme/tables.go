package colorscheme

import (
	"fmt"
	"io"
	"maps"
	"strings"

	"github.com/pelletier/go-toml/v2"

	"github.com/chazu/molsurf/pkg/structure"
)

// Fallback colors for lookups that miss.
var (
	UnknownElement = MustParseHex("#ff00ff")
	UnknownResidue = MustParseHex("#808080")
)

// Tables holds the lookup data used by the table-driven schemes. A Tables
// value is read-only once built and safe for concurrent use.
type Tables struct {
	element            map[string]RGBA
	residue            map[string]RGBA
	hydrophobicity     map[string]float32
	hydroMin, hydroMax float32
	secondary          [4]RGBA
}

// TableData is the serialized form of Tables. Keys of Element are element
// symbols, keys of Residue and Hydrophobicity residue names; values of the
// color maps are "#rrggbb" strings.
type TableData struct {
	Element        map[string]string  `toml:"element"`
	Residue        map[string]string  `toml:"residue"`
	Hydrophobicity HydrophobicityData `toml:"hydrophobicity"`
}

// HydrophobicityData is a residue hydrophobicity scale and its declared
// range.
type HydrophobicityData struct {
	Min    float32            `toml:"min"`
	Max    float32            `toml:"max"`
	Values map[string]float32 `toml:"values"`
}

// NewTables validates d and builds Tables from it. Element keys are stored
// lower-cased and residue keys upper-cased.
func NewTables(d TableData) (*Tables, error) {
	if d.Hydrophobicity.Max <= d.Hydrophobicity.Min {
		return nil, fmt.Errorf("hydrophobicity range [%g,%g] is empty",
			d.Hydrophobicity.Min, d.Hydrophobicity.Max)
	}
	t := &Tables{
		element:        make(map[string]RGBA, len(d.Element)),
		residue:        make(map[string]RGBA, len(d.Residue)),
		hydrophobicity: make(map[string]float32, len(d.Hydrophobicity.Values)),
		hydroMin:       d.Hydrophobicity.Min,
		hydroMax:       d.Hydrophobicity.Max,
		secondary:      secondaryPalette,
	}
	for k, v := range d.Element {
		c, err := ParseHex(v)
		if err != nil {
			return nil, fmt.Errorf("element %s: %w", k, err)
		}
		t.element[strings.ToLower(k)] = c
	}
	for k, v := range d.Residue {
		c, err := ParseHex(v)
		if err != nil {
			return nil, fmt.Errorf("residue %s: %w", k, err)
		}
		t.residue[strings.ToUpper(k)] = c
	}
	for k, v := range d.Hydrophobicity.Values {
		if v < d.Hydrophobicity.Min || v > d.Hydrophobicity.Max {
			return nil, fmt.Errorf("hydrophobicity %s: %g outside [%g,%g]",
				k, v, d.Hydrophobicity.Min, d.Hydrophobicity.Max)
		}
		t.hydrophobicity[strings.ToUpper(k)] = v
	}
	return t, nil
}

// ReadTables decodes TOML table data from r. Sections missing from the
// input keep the default values.
func ReadTables(r io.Reader) (*Tables, error) {
	d := defaultTableData()
	var in TableData
	if err := toml.NewDecoder(r).Decode(&in); err != nil {
		return nil, fmt.Errorf("decoding color tables: %w", err)
	}
	if in.Element != nil {
		d.Element = in.Element
	}
	if in.Residue != nil {
		d.Residue = in.Residue
	}
	if in.Hydrophobicity.Values != nil {
		d.Hydrophobicity = in.Hydrophobicity
	}
	return NewTables(d)
}

// Element returns the color of an element symbol, or UnknownElement.
func (t *Tables) Element(symbol string) RGBA {
	if c, ok := t.element[strings.ToLower(symbol)]; ok {
		return c
	}
	return UnknownElement
}

// Residue returns the color of a residue name, or UnknownResidue.
func (t *Tables) Residue(name string) RGBA {
	if c, ok := t.residue[strings.ToUpper(name)]; ok {
		return c
	}
	return UnknownResidue
}

// Hydrophobicity returns the scale value of a residue name.
func (t *Tables) Hydrophobicity(name string) (float32, bool) {
	v, ok := t.hydrophobicity[strings.ToUpper(name)]
	return v, ok
}

// HydrophobicityRange returns the declared scale bounds.
func (t *Tables) HydrophobicityRange() (min, max float32) {
	return t.hydroMin, t.hydroMax
}

// SecondaryStructure returns the palette entry for ss.
func (t *Tables) SecondaryStructure(ss structure.SecondaryStructure) (RGBA, error) {
	if ss < 0 || int(ss) >= len(t.secondary) {
		return RGBA{}, fmt.Errorf("%w: %d", ErrInvalidSecondaryStructure, int(ss))
	}
	return t.secondary[ss], nil
}

var secondaryPalette = [4]RGBA{
	structure.SecondaryUnknown: {0.5, 0.5, 0.5, 1},
	structure.SecondaryCoil:    {0.0784, 1, 0.0784, 1},
	structure.SecondarySheet:   {0.941, 0.941, 0, 1},
	structure.SecondaryHelix:   {1, 0.0784, 0.0784, 1},
}

// DefaultTables returns the built-in tables: Jmol element colors, RasMol
// shapely residue colors and the Kyte-Doolittle hydropathy scale.
func DefaultTables() *Tables {
	t, err := NewTables(defaultTableData())
	if err != nil {
		panic(err)
	}
	return t
}

func defaultTableData() TableData {
	return TableData{
		Element: maps.Clone(jmolElements),
		Residue: maps.Clone(shapelyResidues),
		Hydrophobicity: HydrophobicityData{
			Min:    -4.5,
			Max:    4.5,
			Values: maps.Clone(kyteDoolittle),
		},
	}
}

var jmolElements = map[string]string{
	"h": "#ffffff", "he": "#d9ffff", "li": "#cc80ff", "be": "#c2ff00",
	"b": "#ffb5b5", "c": "#909090", "n": "#3050f8", "o": "#ff0d0d",
	"f": "#90e050", "ne": "#b3e3f5", "na": "#ab5cf2", "mg": "#8aff00",
	"al": "#bfa6a6", "si": "#f0c8a0", "p": "#ff8000", "s": "#ffff30",
	"cl": "#1ff01f", "ar": "#80d1e3", "k": "#8f40d4", "ca": "#3dff00",
	"sc": "#e6e6e6", "ti": "#bfc2c7", "v": "#a6a6ab", "cr": "#8a99c7",
	"mn": "#9c7ac7", "fe": "#e06633", "co": "#f090a0", "ni": "#50d050",
	"cu": "#c88033", "zn": "#7d80b0", "ga": "#c28f8f", "ge": "#668f8f",
	"as": "#bd80e3", "se": "#ffa100", "br": "#a62929", "kr": "#5cb8d1",
	"rb": "#702eb0", "sr": "#00ff00", "y": "#94ffff", "zr": "#94e0e0",
	"mo": "#54b5b5", "ru": "#248f8f", "rh": "#0a7d8c", "pd": "#006985",
	"ag": "#c0c0c0", "cd": "#ffd98f", "in": "#a67573", "sn": "#668080",
	"sb": "#9e63b5", "te": "#d47a00", "i": "#940094", "xe": "#429eb0",
	"cs": "#57178f", "ba": "#00c900", "pt": "#d0d0e0", "au": "#ffd123",
	"hg": "#b8b8d0", "pb": "#575961", "u": "#008fff",
}

var shapelyResidues = map[string]string{
	"ALA": "#8cff8c", "ARG": "#00007c", "ASN": "#ff7c70", "ASP": "#a00042",
	"CYS": "#ffff70", "GLN": "#ff4c4c", "GLU": "#660000", "GLY": "#ffffff",
	"HIS": "#7070ff", "ILE": "#004c00", "LEU": "#455e45", "LYS": "#4747b8",
	"MET": "#b8a042", "PHE": "#534c52", "PRO": "#525252", "SER": "#ff7042",
	"THR": "#b84c00", "TRP": "#4f4600", "TYR": "#8c704c", "VAL": "#ff8cff",
	"A": "#a0a0ff", "C": "#ff8c4b", "G": "#ff7070", "T": "#a0ffa0", "U": "#ff8080",
	"DA": "#a0a0ff", "DC": "#ff8c4b", "DG": "#ff7070", "DT": "#a0ffa0",
}

var kyteDoolittle = map[string]float32{
	"ILE": 4.5, "VAL": 4.2, "LEU": 3.8, "PHE": 2.8, "CYS": 2.5,
	"MET": 1.9, "ALA": 1.8, "GLY": -0.4, "THR": -0.7, "SER": -0.8,
	"TRP": -0.9, "TYR": -1.3, "PRO": -1.6, "HIS": -3.2, "GLU": -3.5,
	"GLN": -3.5, "ASP": -3.5, "ASN": -3.5, "LYS": -3.9, "ARG": -4.5,
}
