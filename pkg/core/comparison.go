package core

import "fmt"

// Group selects samples by condition and, optionally, timepoint.
type Group struct {
	Condition string
	Timepoint string
}

func (g Group) String() string {
	if g.Timepoint == "" {
		return g.Condition
	}
	return g.Condition + "_" + g.Timepoint
}

// Samples returns the metadata rows belonging to the group.
func (g Group) Samples(m *Metadata) *Metadata {
	if g.Timepoint == "" {
		return m.WithCondition(g.Condition)
	}
	return m.WithConditionAndTimepoint(g.Condition, g.Timepoint)
}

// Comparison contrasts a group of interest against a baseline.
type Comparison struct {
	Interest Group
	Baseline Group
}

func (c Comparison) String() string {
	return fmt.Sprintf("%s-%s", c.Interest, c.Baseline)
}
