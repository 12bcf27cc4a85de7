package core

import (
	"fmt"
	"sort"
	"strings"
)

// Sample is one metadata row.
type Sample struct {
	Name         string  `csv:"name_to_plot,sample"`
	Condition    string  `csv:"condition"`
	Timepoint    string  `csv:"timepoint"`
	TimeNum      float64 `csv:"timenum"`
	Compartment  string  `csv:"short_comp,compartment"`
	OriginalName string  `csv:"original_name"`
}

// Metadata describes every sample of an experiment.
type Metadata struct {
	Samples []Sample
}

// Validate checks that sample names are unique and required fields are set.
func (m *Metadata) Validate() error {
	var errs []string
	seen := make(map[string]bool, len(m.Samples))
	for i, s := range m.Samples {
		if s.Name == "" {
			errs = append(errs, fmt.Sprintf("sample %d has no name", i))
			continue
		}
		if seen[s.Name] {
			return fmt.Errorf("%w: %s", ErrDuplicateSample, s.Name)
		}
		seen[s.Name] = true
		if s.Condition == "" {
			errs = append(errs, fmt.Sprintf("sample %s has no condition", s.Name))
		}
		if s.Timepoint == "" {
			errs = append(errs, fmt.Sprintf("sample %s has no timepoint", s.Name))
		}
		if s.Compartment == "" {
			errs = append(errs, fmt.Sprintf("sample %s has no compartment", s.Name))
		}
	}

	if len(errs) > 0 {
		return &ValidationError{
			Field:   "Metadata",
			Message: strings.Join(errs, "; "),
		}
	}
	return nil
}

func (m *Metadata) filter(keep func(Sample) bool) *Metadata {
	out := &Metadata{}
	for _, s := range m.Samples {
		if keep(s) {
			out.Samples = append(out.Samples, s)
		}
	}
	return out
}

// ForCompartment returns the samples of one compartment.
func (m *Metadata) ForCompartment(compartment string) *Metadata {
	return m.filter(func(s Sample) bool { return s.Compartment == compartment })
}

// WithCondition returns the samples of one condition.
func (m *Metadata) WithCondition(condition string) *Metadata {
	return m.filter(func(s Sample) bool { return s.Condition == condition })
}

// WithConditions returns the samples of any of the given conditions.
func (m *Metadata) WithConditions(conditions []string) *Metadata {
	keep := make(map[string]bool, len(conditions))
	for _, c := range conditions {
		keep[c] = true
	}
	return m.filter(func(s Sample) bool { return keep[s.Condition] })
}

// WithTimepoint returns the samples of one timepoint.
func (m *Metadata) WithTimepoint(timepoint string) *Metadata {
	return m.filter(func(s Sample) bool { return s.Timepoint == timepoint })
}

// WithConditionAndTimepoint returns the samples of one condition at one timepoint.
func (m *Metadata) WithConditionAndTimepoint(condition, timepoint string) *Metadata {
	return m.filter(func(s Sample) bool {
		return s.Condition == condition && s.Timepoint == timepoint
	})
}

// Names returns the sample names in metadata order.
func (m *Metadata) Names() []string {
	names := make([]string, len(m.Samples))
	for i, s := range m.Samples {
		names[i] = s.Name
	}
	return names
}

// Compartments returns the distinct compartments, sorted.
func (m *Metadata) Compartments() []string {
	return distinctSorted(m.Samples, func(s Sample) string { return s.Compartment })
}

// Conditions returns the distinct conditions, sorted.
func (m *Metadata) Conditions() []string {
	return distinctSorted(m.Samples, func(s Sample) string { return s.Condition })
}

// Timepoints returns the distinct timepoint labels ordered by numeric time.
func (m *Metadata) Timepoints() []string {
	labels := distinctSorted(m.Samples, func(s Sample) string { return s.Timepoint })
	times := make(map[string]float64, len(labels))
	for _, s := range m.Samples {
		times[s.Timepoint] = s.TimeNum
	}
	sort.SliceStable(labels, func(i, j int) bool {
		return times[labels[i]] < times[labels[j]]
	})
	return labels
}

// TimeNum returns the numeric time of a timepoint label.
func (m *Metadata) TimeNum(timepoint string) (float64, bool) {
	for _, s := range m.Samples {
		if s.Timepoint == timepoint {
			return s.TimeNum, true
		}
	}
	return 0, false
}

// CheckConditions fails if any of the conditions is absent from metadata.
func (m *Metadata) CheckConditions(conditions []string) error {
	known := make(map[string]bool)
	for _, s := range m.Samples {
		known[s.Condition] = true
	}
	for _, c := range conditions {
		if !known[c] {
			return fmt.Errorf("%w: %s", ErrUnknownCondition, c)
		}
	}
	return nil
}

// CheckColumns fails if a table column has no metadata row.
func (m *Metadata) CheckColumns(columns []string) error {
	known := make(map[string]bool, len(m.Samples))
	for _, s := range m.Samples {
		known[s.Name] = true
	}
	for _, c := range columns {
		if !known[c] {
			return fmt.Errorf("%w: %s", ErrUnknownSample, c)
		}
	}
	return nil
}

func distinctSorted(samples []Sample, key func(Sample) string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, s := range samples {
		k := key(s)
		if !seen[k] {
			seen[k] = true
			out = append(out, k)
		}
	}
	sort.Strings(out)
	return out
}
