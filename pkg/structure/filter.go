package structure

import (
	"fmt"
	"slices"

	"github.com/samber/lo"
)

// Filter selects the atoms that take part in a surface.
type Filter struct {
	// Chains lists the chain names to keep. An empty list keeps every chain.
	Chains           []string
	IncludeHydrogens bool
	IncludeWaters    bool
	SelectedOnly     bool
}

// Summary describes the result of applying a Filter.
type Summary struct {
	Chains       int
	Residues     int
	Atoms        int
	HasHydrogens bool
	HasWaters    bool
}

func (s Summary) String() string {
	return fmt.Sprintf("%s selected\n%s selected\n%s selected",
		plural(s.Chains, "chain"), plural(s.Residues, "residue"), plural(s.Atoms, "atom"))
}

func plural(n int, noun string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, noun)
	}
	return fmt.Sprintf("%d %ss", n, noun)
}

// Apply returns the atoms kept by the filter. The result is grouped chain by
// chain, in order of first appearance, so that chain partitioning sees each
// chain as one contiguous run.
func (f Filter) Apply(atoms []Atom) ([]Atom, Summary) {
	var sum Summary

	elements := make(map[residueKey][]string)
	var order []string
	byChain := make(map[string][]int)
	for i := range atoms {
		a := &atoms[i]
		k := residueKey{a.Chain, a.Residue.Serial}
		elements[k] = append(elements[k], a.Symbol)
		if _, ok := byChain[a.Chain]; !ok {
			order = append(order, a.Chain)
		}
		byChain[a.Chain] = append(byChain[a.Chain], i)
	}

	residues := make(map[residueKey]struct{})
	var kept []Atom
	for _, chain := range order {
		if len(f.Chains) > 0 && !slices.Contains(f.Chains, chain) {
			continue
		}
		before := len(kept)
		for _, i := range byChain[chain] {
			a := atoms[i]
			if a.Symbol == "H" {
				sum.HasHydrogens = true
				if !f.IncludeHydrogens {
					continue
				}
			}
			if a.Symbol == "H" || a.Symbol == "O" {
				if isWater(elements[residueKey{a.Chain, a.Residue.Serial}]) {
					sum.HasWaters = true
					if !f.IncludeWaters {
						continue
					}
				}
			}
			if f.SelectedOnly && !a.Selected {
				continue
			}
			residues[residueKey{a.Chain, a.Residue.Serial}] = struct{}{}
			kept = append(kept, a)
		}
		if len(kept) > before {
			sum.Chains++
		}
	}

	sum.Residues = len(residues)
	sum.Atoms = len(kept)
	return kept, sum
}

// isWater reports whether a residue's elements are exactly O or H, H, O.
func isWater(symbols []string) bool {
	s := slices.Clone(symbols)
	slices.Sort(s)
	return slices.Equal(s, []string{"O"}) || slices.Equal(s, []string{"H", "H", "O"})
}

// ChainNames returns the distinct chain names in order of first appearance.
func ChainNames(atoms []Atom) []string {
	return lo.Uniq(lo.Map(atoms, func(a Atom, _ int) string { return a.Chain }))
}
