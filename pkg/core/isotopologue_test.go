package core

import (
	"math"
	"strings"
	"testing"
)

func TestParseIsotopologue(t *testing.T) {
	tests := []struct {
		name      string
		in        string
		wantMet   string
		wantShift int
		wantErr   bool
	}{
		{name: "simple", in: "Cit_m+3", wantMet: "Cit", wantShift: 3},
		{name: "underscore in metabolite", in: "L-Glu_2_m+0", wantMet: "L-Glu_2", wantShift: 0},
		{name: "no suffix", in: "Cit", wantErr: true},
		{name: "bad shift", in: "Cit_m+x", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseIsotopologue(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseIsotopologue() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if got.Metabolite != tt.wantMet || got.MassShift != tt.wantShift {
				t.Errorf("ParseIsotopologue() = %+v", got)
			}
		})
	}
}

func TestBuildIsotopologueIndexOrdering(t *testing.T) {
	idx, err := BuildIsotopologueIndex([]string{"Mal_m+1", "Cit_m+2", "Cit_m+0", "Mal_m+0", "Cit_m+1"})
	if err != nil {
		t.Fatal(err)
	}

	if got := strings.Join(idx.Metabolites(), ","); got != "Cit,Mal" {
		t.Errorf("Metabolites() = %s", got)
	}
	for k, iso := range idx.Members("Cit") {
		if iso.MassShift != k {
			t.Errorf("Cit member %d has shift %d", k, iso.MassShift)
		}
	}
	if idx.Len() != 5 {
		t.Errorf("Len() = %d, want 5", idx.Len())
	}
}

func TestBuildIsotopologueIndexGap(t *testing.T) {
	if _, err := BuildIsotopologueIndex([]string{"Cit_m+0", "Cit_m+2"}); err == nil {
		t.Error("expected error for non contiguous mass shifts")
	}
	if _, err := BuildIsotopologueIndex([]string{"Cit_m+1", "Cit_m+2"}); err == nil {
		t.Error("expected error when m+0 is missing")
	}
}

func TestMeanEnrichments(t *testing.T) {
	props, _ := NewTable(
		[]string{"Cit_m+0", "Cit_m+1", "Cit_m+2", "Lac_m+0"},
		[]string{"s1", "s2"},
		[][]float64{{0.5, 1}, {0.25, 0}, {0.25, 0}, {1, 1}},
	)

	me, err := MeanEnrichments(props)
	if err != nil {
		t.Fatal(err)
	}
	// (1*0.25 + 2*0.25) / 2
	if got := me.Row("Cit")[0]; math.Abs(got-0.375) > 1e-9 {
		t.Errorf("Cit s1 = %v, want 0.375", got)
	}
	if got := me.Row("Cit")[1]; got != 0 {
		t.Errorf("Cit s2 = %v, want 0", got)
	}
	if got := me.Row("Lac")[0]; got != 0 {
		t.Errorf("Lac s1 = %v, want 0", got)
	}
}

func TestIsotopologueAbundances(t *testing.T) {
	props, _ := NewTable([]string{"Cit_m+0", "Cit_m+1"}, []string{"s1", "s2"}, [][]float64{{0.5, 0.2}, {0.5, 0.8}})
	abund, _ := NewTable([]string{"Cit"}, []string{"s1"}, [][]float64{{100}})

	out, err := IsotopologueAbundances(props, abund)
	if err != nil {
		t.Fatal(err)
	}
	if got := out.Row("Cit_m+1")[0]; got != 50 {
		t.Errorf("Cit_m+1 s1 = %v, want 50", got)
	}
	if got := out.Row("Cit_m+1")[1]; !math.IsNaN(got) {
		t.Errorf("Cit_m+1 s2 = %v, want NaN", got)
	}
}

func TestExclusionList(t *testing.T) {
	l := NewExclusionList()
	err := l.LoadFromCSV(strings.NewReader("metabolite,compartment\nCit,cell\n\nMal,med\n"))
	if err != nil {
		t.Fatal(err)
	}
	if l.Len() != 2 {
		t.Errorf("Len() = %d, want 2", l.Len())
	}
	if !l.Excludes("cell", "Cit_m+2") || l.Excludes("med", "Cit") {
		t.Error("Excludes mismatch")
	}

	tbl, _ := NewTable([]string{"Cit", "Lac"}, []string{"s1"}, [][]float64{{1}, {2}})
	if got := l.Apply("cell", tbl); len(got.Rows) != 1 || got.Rows[0] != "Lac" {
		t.Errorf("Apply() rows = %v", got.Rows)
	}

	if err := l.LoadFromCSV(strings.NewReader("h\nonlyone\n")); err == nil {
		t.Error("expected error for malformed line")
	}
}

func TestExclusionListQuotedFields(t *testing.T) {
	l := NewExclusionList()
	err := l.LoadFromCSV(strings.NewReader("metabolite,compartment\n\"Fru-1,6-BP\", cell\nCit,med\n"))
	if err != nil {
		t.Fatal(err)
	}
	if !l.Excludes("cell", "Fru-1,6-BP_m+3") {
		t.Error("quoted metabolite not excluded")
	}
	if l.Excludes("cell", "Fru-1") {
		t.Error("quoted field split on its comma")
	}

	if err := l.LoadFromCSV(strings.NewReader("metabolite,compartment\nCit,\n")); err == nil {
		t.Error("expected error for missing compartment")
	}
}

func TestTotalMarkedAndSplit(t *testing.T) {
	iso, err := NewTable(
		[]string{"Glc_m+0", "Glc_m+1", "Glc_m+2", "Lac_m+0"},
		[]string{"s1", "s2"},
		[][]float64{{50, 40}, {30, math.NaN()}, {20, 5}, {7, 8}},
	)
	if err != nil {
		t.Fatal(err)
	}

	total, err := TotalMarked(iso)
	if err != nil {
		t.Fatal(err)
	}
	if got := total.Row("Glc"); got[0] != 50 || got[1] != 5 {
		t.Errorf("Glc total marked = %v, want [50 5]", got)
	}
	if got := total.Row("Lac"); got[0] != 0 || got[1] != 0 {
		t.Errorf("Lac total marked = %v, want [0 0]", got)
	}

	split, err := SplitByMassShift(iso)
	if err != nil {
		t.Fatal(err)
	}
	if len(split) != 3 {
		t.Fatalf("got %d mass shift tables, want 3", len(split))
	}
	if rows := split[0].Rows; len(rows) != 2 || rows[0] != "Glc" || rows[1] != "Lac" {
		t.Errorf("m+0 rows = %v", rows)
	}
	if rows := split[2].Rows; len(rows) != 1 || split[2].Row("Glc")[1] != 5 {
		t.Errorf("m+2 table = %v %v", rows, split[2].Values)
	}
}
