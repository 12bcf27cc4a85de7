// Package comparison derives the pairs of sample groups contrasted by the
// statistical tests.
package comparison

import (
	"fmt"
	"sort"

	"github.com/ChrisMcGann/isostat/pkg/core"
)

// Behavior selects how bivariate arrays are built.
type Behavior int

const (
	// ConditionsMDV compares isotopologue vectors of two conditions at each timepoint.
	ConditionsMDV Behavior = iota
	// TimepointsMDV compares isotopologue vectors of consecutive timepoints for each condition.
	TimepointsMDV
	// ConditionsTimeProfiles compares time profiles of two conditions.
	ConditionsTimeProfiles
)

var behaviorNames = []string{
	ConditionsMDV:          "conditions_MDV_comparison",
	TimepointsMDV:          "timepoints_MDV_comparison",
	ConditionsTimeProfiles: "conditions_metabolite_time_profiles",
}

func (b Behavior) String() string {
	if int(b) < 0 || int(b) >= len(behaviorNames) {
		return fmt.Sprintf("Behavior(%d)", int(b))
	}
	return behaviorNames[b]
}

// ParseBehavior maps a behavior keyword to its Behavior.
func ParseBehavior(s string) (Behavior, error) {
	for i, name := range behaviorNames {
		if name == s {
			return Behavior(i), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", core.ErrUnsupportedBehavior, s)
}

// UnmarshalText lets Behavior be decoded from configuration.
func (b *Behavior) UnmarshalText(text []byte) error {
	parsed, err := ParseBehavior(string(text))
	if err != nil {
		return err
	}
	*b = parsed
	return nil
}

// Conditions returns every distinct unordered pair of condition labels,
// each pair sorted, the list ordered by first then second element.
func Conditions(labels []string) []core.Comparison {
	sorted := distinctSorted(labels)

	var out []core.Comparison
	for i := 0; i < len(sorted); i++ {
		for j := i + 1; j < len(sorted); j++ {
			out = append(out, core.Comparison{
				Interest: core.Group{Condition: sorted[i]},
				Baseline: core.Group{Condition: sorted[j]},
			})
		}
	}
	return out
}

func distinctSorted(labels []string) []string {
	seen := make(map[string]bool, len(labels))
	var out []string
	for _, l := range labels {
		if !seen[l] {
			seen[l] = true
			out = append(out, l)
		}
	}
	sort.Strings(out)
	return out
}

// Selection is the set of conditions a bivariate analysis is restricted to,
// with the comparisons run between them.
type Selection struct {
	Conditions  []string
	Comparisons []core.Comparison
}

// Select expands a condition list into every pair of its labels. Explicit
// [interest, baseline] pairs replace the expansion when given, and their
// conditions join the selection. Every condition must exist in metadata.
func Select(conditions []string, pairs [][]string, meta *core.Metadata) (*Selection, error) {
	if err := meta.CheckConditions(conditions); err != nil {
		return nil, err
	}

	s := &Selection{}
	labels := append([]string(nil), conditions...)
	if len(pairs) > 0 {
		cmps, err := FromPairs(pairs, "", meta)
		if err != nil {
			return nil, err
		}
		s.Comparisons = cmps
		for _, p := range pairs {
			labels = append(labels, p...)
		}
	} else {
		s.Comparisons = Conditions(conditions)
	}

	s.Conditions = distinctSorted(labels)
	if len(s.Conditions) == 0 {
		return nil, core.ErrNoConditions
	}
	return s, nil
}

// TimePair is a [later, earlier] pair of consecutive timepoints.
type TimePair struct {
	Later   string
	Earlier string
}

func (p TimePair) String() string {
	return p.Later + "-" + p.Earlier
}

// Timepoints returns consecutive [later, earlier] timepoint pairs ordered by
// numeric time. Two labels sharing a numeric time are an error.
func Timepoints(meta *core.Metadata) ([]TimePair, error) {
	labels, err := orderedTimepoints(meta)
	if err != nil {
		return nil, err
	}

	var out []TimePair
	for i := 1; i < len(labels); i++ {
		out = append(out, TimePair{Later: labels[i], Earlier: labels[i-1]})
	}
	return out, nil
}

// TimeCourse returns, for each condition, comparisons of every timepoint
// against the previous one. Comparisons are ordered by the later time
// descending, then by condition.
func TimeCourse(meta *core.Metadata) ([]core.Comparison, error) {
	type step struct {
		cmp   core.Comparison
		later float64
	}

	var steps []step
	for _, cond := range meta.Conditions() {
		sub := meta.WithCondition(cond)
		pairs, err := Timepoints(sub)
		if err != nil {
			return nil, fmt.Errorf("condition %s: %w", cond, err)
		}
		for _, p := range pairs {
			t, _ := sub.TimeNum(p.Later)
			steps = append(steps, step{
				cmp: core.Comparison{
					Interest: core.Group{Condition: cond, Timepoint: p.Later},
					Baseline: core.Group{Condition: cond, Timepoint: p.Earlier},
				},
				later: t,
			})
		}
	}

	sort.SliceStable(steps, func(i, j int) bool {
		if steps[i].later != steps[j].later {
			return steps[i].later > steps[j].later
		}
		return steps[i].cmp.Interest.Condition < steps[j].cmp.Interest.Condition
	})

	out := make([]core.Comparison, len(steps))
	for i, s := range steps {
		out[i] = s.cmp
	}
	return out, nil
}

// FromPairs converts declared [interest, baseline] condition pairs into
// comparisons, optionally pinned to a timepoint. Conditions must exist in metadata.
func FromPairs(pairs [][]string, timepoint string, meta *core.Metadata) ([]core.Comparison, error) {
	out := make([]core.Comparison, 0, len(pairs))
	for _, p := range pairs {
		if len(p) != 2 {
			return nil, fmt.Errorf("%w: got %v", core.ErrArity, p)
		}
		if err := meta.CheckConditions(p); err != nil {
			return nil, err
		}
		out = append(out, core.Comparison{
			Interest: core.Group{Condition: p[0], Timepoint: timepoint},
			Baseline: core.Group{Condition: p[1], Timepoint: timepoint},
		})
	}
	return out, nil
}

func orderedTimepoints(meta *core.Metadata) ([]string, error) {
	labels := meta.Timepoints()
	byTime := make(map[float64]string, len(labels))
	for _, l := range labels {
		t, _ := meta.TimeNum(l)
		if other, ok := byTime[t]; ok {
			return nil, fmt.Errorf("%w: %s and %s at %v", core.ErrAmbiguousTime, other, l, t)
		}
		byTime[t] = l
	}
	return labels, nil
}
