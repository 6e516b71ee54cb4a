package colorscheme

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chazu/molsurf/pkg/structure"
)

func atom(chain, residue, symbol string, ss structure.SecondaryStructure) structure.Atom {
	return structure.Atom{
		Chain:   chain,
		Symbol:  symbol,
		Residue: structure.Residue{Name: residue, SecondaryStructure: ss},
	}
}

func TestParseHex(t *testing.T) {
	c, err := ParseHex("#ff8000")
	require.NoError(t, err)
	assert.Equal(t, float32(1), c.R)
	assert.InDelta(t, 128.0/255, c.G, 1e-6)
	assert.Equal(t, float32(0), c.B)
	assert.Equal(t, float32(1), c.A)

	c, err = ParseHex("0000ff80")
	require.NoError(t, err)
	assert.InDelta(t, 128.0/255, c.A, 1e-6)
	assert.Equal(t, float32(1), c.B)

	_, err = ParseHex("#zzzzzz")
	assert.Error(t, err)
	_, err = ParseHex("#12345")
	assert.Error(t, err)

	assert.Equal(t, "#ff8000", MustParseHex("#FF8000").Hex())
}

func TestBlendWhiteEndpoints(t *testing.T) {
	for _, p := range Presets {
		base := MustParseHex(p.Hex)
		assert.Equal(t, base, base.BlendWhite(0), p.Name)
		assert.Equal(t, White, base.BlendWhite(1), p.Name)
	}
	mid := MustParseHex("#000000").BlendWhite(0.25)
	assert.InDelta(t, 0.25, mid.R, 1e-6)

	base := RGBA{0.2, 0.4, 0.6, 0.5}
	assert.Equal(t, base.Opaque(), base.BlendWhite(-0.5), "below 0 clamps to the base color")
	assert.Equal(t, White, base.BlendWhite(1.5), "above 1 clamps to white")
}

func TestChainScheme(t *testing.T) {
	atoms := []structure.Atom{atom("B", "", "", 0), atom("A", "", "", 0), atom("B", "", "", 0), atom("C", "", "", 0)}
	base := RGBA{0, 0, 1, 0.3}
	colors, err := PerAtom(DefaultTables(), atoms, Chain, base)
	require.NoError(t, err)

	// Sorted chains: A=0, B=1/3, C=2/3.
	assert.Equal(t, base.Opaque(), colors[1])
	assert.Equal(t, colors[0], colors[2])
	assert.InDelta(t, 1.0/3, colors[0].R, 1e-6)
	assert.InDelta(t, 2.0/3, colors[3].G, 1e-6)
	for _, c := range colors {
		assert.Equal(t, float32(1), c.A)
	}
}

func TestHydrophobicityScheme(t *testing.T) {
	atoms := []structure.Atom{atom("A", "ILE", "C", 0), atom("A", "ARG", "C", 0), atom("A", "HOH", "O", 0), atom("A", "gly", "C", 0)}
	base := MustParseHex("#ff0000")
	colors, err := PerAtom(DefaultTables(), atoms, Hydrophobicity, base)
	require.NoError(t, err)

	assert.Equal(t, base, colors[0], "most hydrophobic keeps the base color")
	assert.Equal(t, White, colors[1], "least hydrophobic is white")
	assert.Equal(t, Gray, colors[2])
	assert.InDelta(t, 1-(-0.4+4.5)/9, colors[3].G, 1e-6)
}

func TestTableSchemes(t *testing.T) {
	atoms := []structure.Atom{
		atom("A", "ala", "C", structure.SecondaryHelix),
		atom("A", "XYZ", "Xx", structure.SecondarySheet),
		atom("A", "GLY", "FE", structure.SecondaryCoil),
		atom("A", "GLY", "N", structure.SecondaryUnknown),
	}
	tables := DefaultTables()

	byResidue, err := PerAtom(tables, atoms, Residue, White)
	require.NoError(t, err)
	assert.Equal(t, MustParseHex("#8cff8c"), byResidue[0])
	assert.Equal(t, UnknownResidue, byResidue[1])

	byElement, err := PerAtom(tables, atoms, Element, White)
	require.NoError(t, err)
	assert.Equal(t, MustParseHex("#909090"), byElement[0])
	assert.Equal(t, UnknownElement, byElement[1])
	assert.Equal(t, MustParseHex("#e06633"), byElement[2])

	bySS, err := PerAtom(tables, atoms, SecondaryStructure, White)
	require.NoError(t, err)
	assert.Equal(t, RGBA{1, 0.0784, 0.0784, 1}, bySS[0])
	assert.Equal(t, RGBA{0.941, 0.941, 0, 1}, bySS[1])
	assert.Equal(t, RGBA{0.0784, 1, 0.0784, 1}, bySS[2])
	assert.Equal(t, Gray, bySS[3])

	mono, err := PerAtom(tables, atoms, Monochrome, RGBA{0.2, 0.4, 0.6, 0})
	require.NoError(t, err)
	for _, c := range mono {
		assert.Equal(t, RGBA{0.2, 0.4, 0.6, 1}, c)
	}
}

func TestInvalidInputs(t *testing.T) {
	bad := []structure.Atom{atom("A", "GLY", "C", structure.SecondaryStructure(7))}
	_, err := PerAtom(DefaultTables(), bad, SecondaryStructure, White)
	assert.ErrorIs(t, err, ErrInvalidSecondaryStructure)

	_, err = PerAtom(DefaultTables(), bad, Scheme(42), White)
	assert.Error(t, err)
}

func TestPerVertex(t *testing.T) {
	perAtom := []RGBA{{1, 0, 0, 1}, {0, 1, 0, 1}}
	got := PerVertex(perAtom, []uint32{1, 1, 0})
	assert.Equal(t, []RGBA{{0, 1, 0, 1}, {0, 1, 0, 1}, {1, 0, 0, 1}}, got)
}

func TestAOFactor(t *testing.T) {
	// aoScale 1 means aoMin 0: plain multiplication.
	for _, ao := range []float32{0, 0.1, 0.5, 0.99, 1} {
		assert.Equal(t, ao, AOFactor(ao, 1))
	}
	// aoScale 0.5 gives aoMin 0.25, remapped below 0.5.
	assert.InDelta(t, 0.25, AOFactor(0, 0.5), 1e-6)
	assert.InDelta(t, 0.5, AOFactor(0.5, 0.5), 1e-6)
	assert.InDelta(t, 0.3125, AOFactor(0.25, 0.5), 1e-6)
	assert.Equal(t, float32(0.75), AOFactor(0.75, 0.5))
}

func TestComposite(t *testing.T) {
	colors := []RGBA{{1, 0.5, 0.25, 0.8}, {1, 1, 1, 1}}
	assert.Equal(t, []float32{1, 0.5, 0.25, 0.8, 1, 1, 1, 1}, Composite(colors, nil, 1))
	assert.Equal(t, []float32{0.5, 0.25, 0.125, 0.8, 0, 0, 0, 1}, Composite(colors, []float32{0.5, 0}, 1))
}

func TestParseScheme(t *testing.T) {
	for s := Monochrome; s <= SecondaryStructure; s++ {
		got, err := ParseScheme(s.String())
		require.NoError(t, err)
		assert.Equal(t, s, got)
	}
	got, err := ParseScheme("All")
	require.NoError(t, err)
	assert.Equal(t, Monochrome, got)
	_, err = ParseScheme("rainbow")
	assert.Error(t, err)
	assert.True(t, Chain.UsesBaseColor())
	assert.False(t, Element.UsesBaseColor())
}

func TestPresets(t *testing.T) {
	assert.Len(t, Presets, 16)
	for i := 0; i < 100; i++ {
		p := RandomPreset()
		assert.NotContains(t, []string{"Custom", "White", "Gray", "Black"}, p.Name)
	}
	p, ok := PresetByName("azure")
	require.True(t, ok)
	assert.Equal(t, "#0080ff", p.Hex)
}

func TestReadTables(t *testing.T) {
	in := `
[element]
c = "#00ff00"

[hydrophobicity]
min = 0.0
max = 2.0
[hydrophobicity.values]
ala = 2.0
`
	tables, err := ReadTables(strings.NewReader(in))
	require.NoError(t, err)
	assert.Equal(t, MustParseHex("#00ff00"), tables.Element("C"))
	assert.Equal(t, UnknownElement, tables.Element("N"))
	assert.Equal(t, MustParseHex("#ff7c70"), tables.Residue("ASN"), "residue table keeps defaults")
	v, ok := tables.Hydrophobicity("ALA")
	assert.True(t, ok)
	assert.Equal(t, float32(2), v)

	_, err = ReadTables(strings.NewReader("[hydrophobicity]\nmin = 1.0\nmax = 1.0\n[hydrophobicity.values]\nALA = 1.0\n"))
	assert.Error(t, err)
	_, err = ReadTables(strings.NewReader("[element]\nc = \"green\"\n"))
	assert.Error(t, err)
	_, err = ReadTables(strings.NewReader("[hydrophobicity]\nmin = 0.0\nmax = 2.0\n[hydrophobicity.values]\nALA = 3.0\n"))
	assert.ErrorContains(t, err, "outside")
}
