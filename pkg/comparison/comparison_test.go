package comparison

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ChrisMcGann/isostat/pkg/core"
)

func pairs(cmps []core.Comparison) [][2]string {
	out := make([][2]string, len(cmps))
	for i, c := range cmps {
		out[i] = [2]string{c.Interest.String(), c.Baseline.String()}
	}
	return out
}

func TestConditions(t *testing.T) {
	got := Conditions([]string{"A", "B", "C", "D"})
	assert.Equal(t, [][2]string{
		{"A", "B"}, {"A", "C"}, {"A", "D"}, {"B", "C"}, {"B", "D"}, {"C", "D"},
	}, pairs(got))
}

func TestConditionsCountAndUniqueness(t *testing.T) {
	tests := []struct {
		name   string
		labels []string
		want   int
	}{
		{name: "empty", labels: nil, want: 0},
		{name: "single", labels: []string{"x"}, want: 0},
		{name: "unsorted", labels: []string{"z", "a", "m"}, want: 3},
		{name: "duplicates collapse", labels: []string{"b", "a", "b", "a"}, want: 1},
		{name: "five", labels: []string{"e", "d", "c", "b", "a"}, want: 10},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Conditions(tt.labels)
			assert.Len(t, got, tt.want)
			seen := map[[2]string]bool{}
			for _, p := range pairs(got) {
				assert.Less(t, p[0], p[1])
				assert.False(t, seen[p], "pair %v twice", p)
				assert.False(t, seen[[2]string{p[1], p[0]}], "pair %v reversed", p)
				seen[p] = true
			}
		})
	}
}

func timeMetadata() *core.Metadata {
	return &core.Metadata{Samples: []core.Sample{
		{Name: "a1", Condition: "cond1", Timepoint: "1h", TimeNum: 1, Compartment: "c"},
		{Name: "a2", Condition: "cond1", Timepoint: "2.7h", TimeNum: 2.7, Compartment: "c"},
		{Name: "a3", Condition: "cond1", Timepoint: "3h", TimeNum: 3, Compartment: "c"},
		{Name: "b2", Condition: "cond2", Timepoint: "2.7h", TimeNum: 2.7, Compartment: "c"},
		{Name: "b3", Condition: "cond2", Timepoint: "3h", TimeNum: 3, Compartment: "c"},
		{Name: "b4", Condition: "cond2", Timepoint: "4h", TimeNum: 4, Compartment: "c"},
	}}
}

func TestTimepoints(t *testing.T) {
	got, err := Timepoints(timeMetadata())
	require.NoError(t, err)
	assert.Equal(t, []TimePair{
		{Later: "2.7h", Earlier: "1h"},
		{Later: "3h", Earlier: "2.7h"},
		{Later: "4h", Earlier: "3h"},
	}, got)
}

func TestTimepointsNumericNotLexicographic(t *testing.T) {
	meta := &core.Metadata{Samples: []core.Sample{
		{Name: "a", Condition: "c", Timepoint: "T10", TimeNum: 10, Compartment: "x"},
		{Name: "b", Condition: "c", Timepoint: "T9", TimeNum: 9, Compartment: "x"},
	}}
	got, err := Timepoints(meta)
	require.NoError(t, err)
	assert.Equal(t, []TimePair{{Later: "T10", Earlier: "T9"}}, got)
}

func TestTimepointsAmbiguous(t *testing.T) {
	meta := &core.Metadata{Samples: []core.Sample{
		{Name: "a", Condition: "c", Timepoint: "early", TimeNum: 1, Compartment: "x"},
		{Name: "b", Condition: "c", Timepoint: "T1", TimeNum: 1, Compartment: "x"},
	}}
	_, err := Timepoints(meta)
	assert.ErrorIs(t, err, core.ErrAmbiguousTime)
}

func TestTimeCourse(t *testing.T) {
	got, err := TimeCourse(timeMetadata())
	require.NoError(t, err)
	assert.Equal(t, [][2]string{
		{"cond2_4h", "cond2_3h"},
		{"cond1_3h", "cond1_2.7h"},
		{"cond2_3h", "cond2_2.7h"},
		{"cond1_2.7h", "cond1_1h"},
	}, pairs(got))
}

func TestParseBehavior(t *testing.T) {
	for _, b := range []Behavior{ConditionsMDV, TimepointsMDV, ConditionsTimeProfiles} {
		got, err := ParseBehavior(b.String())
		require.NoError(t, err)
		assert.Equal(t, b, got)
	}
	_, err := ParseBehavior("conditions_everything")
	assert.ErrorIs(t, err, core.ErrUnsupportedBehavior)
}

func TestFromPairs(t *testing.T) {
	meta := timeMetadata()

	got, err := FromPairs([][]string{{"cond2", "cond1"}}, "3h", meta)
	require.NoError(t, err)
	assert.Equal(t, [][2]string{{"cond2_3h", "cond1_3h"}}, pairs(got))

	_, err = FromPairs([][]string{{"cond1", "cond2", "cond3"}}, "", meta)
	assert.ErrorIs(t, err, core.ErrArity)

	_, err = FromPairs([][]string{{"cond1", "ghost"}}, "", meta)
	assert.ErrorIs(t, err, core.ErrUnknownCondition)
}

func TestSelect(t *testing.T) {
	meta := &core.Metadata{Samples: []core.Sample{
		{Name: "a", Condition: "ctrl", Timepoint: "T0", Compartment: "c"},
		{Name: "b", Condition: "treat", Timepoint: "T0", Compartment: "c"},
		{Name: "c", Condition: "mock", Timepoint: "T0", Compartment: "c"},
	}}

	t.Run("list expands to pairs", func(t *testing.T) {
		sel, err := Select([]string{"treat", "mock", "ctrl"}, nil, meta)
		require.NoError(t, err)
		assert.Equal(t, []string{"ctrl", "mock", "treat"}, sel.Conditions)
		assert.Equal(t, [][2]string{{"ctrl", "mock"}, {"ctrl", "treat"}, {"mock", "treat"}}, pairs(sel.Comparisons))
	})

	t.Run("pairs override the expansion", func(t *testing.T) {
		sel, err := Select([]string{"mock"}, [][]string{{"treat", "ctrl"}}, meta)
		require.NoError(t, err)
		assert.Equal(t, []string{"ctrl", "mock", "treat"}, sel.Conditions)
		assert.Equal(t, [][2]string{{"treat", "ctrl"}}, pairs(sel.Comparisons))
	})

	t.Run("single condition", func(t *testing.T) {
		sel, err := Select([]string{"ctrl"}, nil, meta)
		require.NoError(t, err)
		assert.Equal(t, []string{"ctrl"}, sel.Conditions)
		assert.Empty(t, sel.Comparisons)
	})

	_, err := Select(nil, nil, meta)
	assert.ErrorIs(t, err, core.ErrNoConditions)
	_, err = Select([]string{"ctrl", "ghost"}, nil, meta)
	assert.ErrorIs(t, err, core.ErrUnknownCondition)
	_, err = Select(nil, [][]string{{"ctrl", "treat", "mock"}}, meta)
	assert.ErrorIs(t, err, core.ErrArity)
}
