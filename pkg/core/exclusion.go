package core

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/gocarina/gocsv"
)

// ExclusionList stores metabolites to leave out of the analysis, per compartment.
type ExclusionList struct {
	entries map[string]map[string]bool // compartment -> metabolite
}

// NewExclusionList creates an empty exclusion list
func NewExclusionList() *ExclusionList {
	return &ExclusionList{
		entries: make(map[string]map[string]bool),
	}
}

// exclusionRecord is one line of an exclusion file
type exclusionRecord struct {
	Metabolite  string `csv:"metabolite"`
	Compartment string `csv:"compartment"`
}

// LoadFromCSV loads exclusions from a CSV file with a metabolite,compartment
// header. Quoted fields may contain commas.
func (l *ExclusionList) LoadFromCSV(r io.Reader) error {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	var records []exclusionRecord
	if err := gocsv.UnmarshalCSV(reader, &records); err != nil {
		return fmt.Errorf("error reading CSV: %w", err)
	}

	for i, rec := range records {
		metabolite := strings.TrimSpace(rec.Metabolite)
		compartment := strings.TrimSpace(rec.Compartment)
		if metabolite == "" || compartment == "" {
			return fmt.Errorf("record %d: invalid format, expected metabolite,compartment", i+1)
		}
		l.Add(compartment, metabolite)
	}
	return nil
}

// Add excludes a metabolite from a compartment
func (l *ExclusionList) Add(compartment, metabolite string) {
	if l.entries[compartment] == nil {
		l.entries[compartment] = make(map[string]bool)
	}
	l.entries[compartment][metabolite] = true
}

// Excludes reports whether a row key is excluded in a compartment. Isotopologue
// keys are matched on their metabolite.
func (l *ExclusionList) Excludes(compartment, row string) bool {
	mets := l.entries[compartment]
	if len(mets) == 0 {
		return false
	}
	if mets[row] {
		return true
	}
	if iso, err := ParseIsotopologue(row); err == nil {
		return mets[iso.Metabolite]
	}
	return false
}

// Apply drops excluded rows from a compartment table
func (l *ExclusionList) Apply(compartment string, t *Table) *Table {
	return t.DropRows(func(row string) bool {
		return l.Excludes(compartment, row)
	})
}

// Len returns the number of exclusions across compartments
func (l *ExclusionList) Len() int {
	n := 0
	for _, mets := range l.entries {
		n += len(mets)
	}
	return n
}
