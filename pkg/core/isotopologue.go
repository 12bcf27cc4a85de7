package core

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// IsotopologueSeparator separates the metabolite from the mass shift in row keys.
const IsotopologueSeparator = "_m+"

// Isotopologue is a labeled variant of a metabolite.
type Isotopologue struct {
	Name       string
	Metabolite string
	MassShift  int
}

// ParseIsotopologue splits a key such as "Cit_m+3".
func ParseIsotopologue(name string) (Isotopologue, error) {
	pos := strings.LastIndex(name, IsotopologueSeparator)
	if pos <= 0 {
		return Isotopologue{}, &ValidationError{
			Field:   "Isotopologue",
			Message: fmt.Sprintf("%q has no %q mass shift suffix", name, IsotopologueSeparator),
		}
	}
	shift, err := strconv.Atoi(name[pos+len(IsotopologueSeparator):])
	if err != nil || shift < 0 {
		return Isotopologue{}, &ValidationError{
			Field:   "Isotopologue",
			Message: fmt.Sprintf("%q has an invalid mass shift", name),
		}
	}
	return Isotopologue{Name: name, Metabolite: name[:pos], MassShift: shift}, nil
}

// IsotopologueIndex groups isotopologues by metabolite, ordered by
// ascending mass shift.
type IsotopologueIndex struct {
	metabolites []string
	members     map[string][]Isotopologue
}

// BuildIsotopologueIndex parses every name and checks that, per metabolite,
// mass shifts run contiguously from 0.
func BuildIsotopologueIndex(names []string) (*IsotopologueIndex, error) {
	idx := &IsotopologueIndex{members: make(map[string][]Isotopologue)}
	for _, name := range names {
		iso, err := ParseIsotopologue(name)
		if err != nil {
			return nil, err
		}
		if _, ok := idx.members[iso.Metabolite]; !ok {
			idx.metabolites = append(idx.metabolites, iso.Metabolite)
		}
		idx.members[iso.Metabolite] = append(idx.members[iso.Metabolite], iso)
	}
	sort.Strings(idx.metabolites)

	for _, met := range idx.metabolites {
		isos := idx.members[met]
		sort.Slice(isos, func(i, j int) bool { return isos[i].MassShift < isos[j].MassShift })
		for k, iso := range isos {
			if iso.MassShift != k {
				return nil, &ValidationError{
					Field:   "IsotopologueIndex",
					Message: fmt.Sprintf("metabolite %s: mass shifts are not contiguous from 0 (found m+%d at position %d)", met, iso.MassShift, k),
				}
			}
		}
	}
	return idx, nil
}

// Metabolites returns the indexed metabolites, sorted.
func (idx *IsotopologueIndex) Metabolites() []string {
	return idx.metabolites
}

// Members returns the isotopologues of a metabolite by ascending mass shift.
func (idx *IsotopologueIndex) Members(metabolite string) []Isotopologue {
	return idx.members[metabolite]
}

// Len returns the number of indexed isotopologues.
func (idx *IsotopologueIndex) Len() int {
	n := 0
	for _, isos := range idx.members {
		n += len(isos)
	}
	return n
}
