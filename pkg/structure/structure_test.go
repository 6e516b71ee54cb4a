package structure

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const samplePDB = `HEADER    TEST
HELIX    1   1 ALA A    1  GLY A    2  1                                   2
SHEET    1   A 2 SER B  10  SER B  10  0
ATOM      1 N    ALA A   1       1.000   2.000   3.000  1.00  0.00           N
ATOM      2 CA   ALA A   1       1.500   2.500   3.500  1.00  0.00           C
ATOM      3 CA   GLY A   2       2.000   2.000   2.000  1.00  0.00           C
ATOM      4 CA   LEU A   3       3.000   2.000   2.000  1.00  0.00           C
ATOM      5 OG   SER B  10       4.000   2.000   2.000  1.00  0.00           O
HETATM    6 O    HOH B 101       9.000   9.000   9.000  1.00  0.00           O
HETATM    7 FE   HEM B 102       5.000   5.000   5.000  1.00  0.00          FE
END
`

func TestReadPDB(t *testing.T) {
	atoms, err := ReadPDB(strings.NewReader(samplePDB))
	require.NoError(t, err)
	require.Len(t, atoms, 7)

	first := atoms[0]
	assert.Equal(t, [3]float32{1, 2, 3}, first.Position)
	assert.Equal(t, "N", first.Symbol)
	assert.Equal(t, "A", first.Chain)
	assert.Equal(t, Residue{Name: "ALA", Serial: 1, SecondaryStructure: SecondaryHelix}, first.Residue)
	assert.InDelta(t, 1.55, first.VdwRadius, 1e-6)
	assert.True(t, first.Selected)

	assert.Equal(t, SecondaryHelix, atoms[2].Residue.SecondaryStructure)
	assert.Equal(t, SecondaryCoil, atoms[3].Residue.SecondaryStructure)
	assert.Equal(t, SecondarySheet, atoms[4].Residue.SecondaryStructure)
	assert.Equal(t, SecondaryUnknown, atoms[5].Residue.SecondaryStructure)

	iron := atoms[6]
	assert.Equal(t, "Fe", iron.Symbol)
	assert.Zero(t, iron.VdwRadius)
	assert.InDelta(t, DefaultRadius, iron.Radius(), 1e-6)
}

func TestReadPDBStopsAtFirstModel(t *testing.T) {
	src := `MODEL        1
ATOM      1 CA   ALA A   1       1.000   2.000   3.000  1.00  0.00           C
ENDMDL
MODEL        2
ATOM      1 CA   ALA A   1       7.000   7.000   7.000  1.00  0.00           C
ENDMDL
`
	atoms, err := ReadPDB(strings.NewReader(src))
	require.NoError(t, err)
	require.Len(t, atoms, 1)
	assert.Equal(t, float32(1), atoms[0].Position[0])
}

func TestReadPDBBadCoordinate(t *testing.T) {
	src := "ATOM      1 CA   ALA A   1       x.000   2.000   3.000  1.00  0.00           C\n"
	_, err := ReadPDB(strings.NewReader(src))
	assert.ErrorContains(t, err, "line 1")
}

func TestReadXYZR(t *testing.T) {
	src := "# comment\n0 0 0 1.0\n\n1.5 0 0 1.2\n"
	atoms, err := ReadXYZR(strings.NewReader(src))
	require.NoError(t, err)
	require.Len(t, atoms, 2)
	assert.Equal(t, [3]float32{1.5, 0, 0}, atoms[1].Position)
	assert.InDelta(t, 1.2, atoms[1].VdwRadius, 1e-6)
	assert.Equal(t, 2, atoms[1].Residue.Serial)

	_, err = ReadXYZR(strings.NewReader("1 2 3\n"))
	assert.Error(t, err)
}

func TestRadiusFallback(t *testing.T) {
	tests := []struct {
		name   string
		radius float32
		want   float32
	}{
		{"unknown", 0, 1.7},
		{"tiny", 0.00001, 1.7},
		{"known", 1.2, 1.2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := Atom{VdwRadius: tt.radius}
			assert.InDelta(t, tt.want, a.Radius(), 1e-6)
		})
	}
}

func water(chain string, serial int, symbols ...string) []Atom {
	var atoms []Atom
	for _, s := range symbols {
		atoms = append(atoms, Atom{Symbol: s, Chain: chain, Residue: Residue{Name: "HOH", Serial: serial}, Selected: true})
	}
	return atoms
}

func TestFilterApply(t *testing.T) {
	atoms := []Atom{
		{Symbol: "C", Chain: "B", Residue: Residue{Serial: 1}, Selected: true},
		{Symbol: "C", Chain: "A", Residue: Residue{Serial: 1}, Selected: true},
		{Symbol: "H", Chain: "A", Residue: Residue{Serial: 1}, Selected: true},
		{Symbol: "N", Chain: "B", Residue: Residue{Serial: 2}, Selected: false},
	}
	atoms = append(atoms, water("A", 50, "O", "H", "H")...)

	t.Run("defaults drop hydrogens and waters", func(t *testing.T) {
		kept, sum := Filter{}.Apply(atoms)
		require.Len(t, kept, 3)
		// Grouped by chain in order of first appearance.
		assert.Equal(t, []string{"B", "B", "A"}, []string{kept[0].Chain, kept[1].Chain, kept[2].Chain})
		assert.Equal(t, 2, sum.Chains)
		assert.Equal(t, 3, sum.Residues)
		assert.Equal(t, 3, sum.Atoms)
		assert.True(t, sum.HasHydrogens)
		assert.True(t, sum.HasWaters)
	})

	t.Run("include everything", func(t *testing.T) {
		kept, sum := Filter{IncludeHydrogens: true, IncludeWaters: true}.Apply(atoms)
		assert.Len(t, kept, 7)
		assert.Equal(t, 4, sum.Residues)
	})

	t.Run("chains and selection", func(t *testing.T) {
		kept, sum := Filter{Chains: []string{"B"}, SelectedOnly: true}.Apply(atoms)
		require.Len(t, kept, 1)
		assert.Equal(t, "C", kept[0].Symbol)
		assert.Equal(t, 1, sum.Chains)
		assert.False(t, sum.HasWaters)
		assert.Equal(t, "1 chain selected\n1 residue selected\n1 atom selected", sum.String())
	})

	t.Run("lone oxygen is water", func(t *testing.T) {
		kept, sum := Filter{}.Apply(water("W", 1, "O"))
		assert.Empty(t, kept)
		assert.True(t, sum.HasWaters)
		assert.Zero(t, sum.Chains)
	})

	t.Run("chains left empty are not counted", func(t *testing.T) {
		in := append([]Atom{{Symbol: "C", Chain: "A", Residue: Residue{Serial: 1}}}, water("W", 1, "O", "H", "H")...)
		in = append(in, Atom{Symbol: "H", Chain: "H", Residue: Residue{Serial: 2}})
		kept, sum := Filter{}.Apply(in)
		require.Len(t, kept, 1)
		assert.Equal(t, 1, sum.Chains)
		assert.Equal(t, "1 chain selected\n1 residue selected\n1 atom selected", sum.String())
	})
}

func TestChainNames(t *testing.T) {
	atoms := []Atom{{Chain: "B"}, {Chain: "A"}, {Chain: "B"}, {Chain: "C"}}
	assert.Equal(t, []string{"B", "A", "C"}, ChainNames(atoms))
}
