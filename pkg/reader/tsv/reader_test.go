package tsv

import (
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleTable = "ID\tctrl_1\tctrl_2\ttreat_1\n" +
	"Glc\t1.5\t\t2\n" +
	"\n" +
	"Lac\tNA\t0\t3.25\r\n" +
	"Cit\tnan\tNaN\t1e-3\n"

func TestReaderStreamsRows(t *testing.T) {
	rd, err := NewReader(strings.NewReader(sampleTable))
	require.NoError(t, err)
	assert.Equal(t, []string{"ctrl_1", "ctrl_2", "treat_1"}, rd.Columns())

	var keys []string
	for rd.Next() {
		keys = append(keys, rd.Row().Key)
	}
	require.NoError(t, rd.Err())
	assert.Equal(t, []string{"Glc", "Lac", "Cit"}, keys)
}

func TestReadTable(t *testing.T) {
	tbl, err := ReadTable(strings.NewReader(sampleTable))
	require.NoError(t, err)

	glc := tbl.Row("Glc")
	assert.Equal(t, 1.5, glc[0])
	assert.True(t, math.IsNaN(glc[1]))
	assert.Equal(t, 2.0, glc[2])

	lac := tbl.Row("Lac")
	assert.True(t, math.IsNaN(lac[0]))
	assert.Equal(t, 0.0, lac[1])
	assert.Equal(t, 3.25, lac[2])

	cit := tbl.Row("Cit")
	assert.True(t, math.IsNaN(cit[0]) && math.IsNaN(cit[1]))
	assert.Equal(t, 0.001, cit[2])
}

func TestReadTableErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{name: "empty", input: ""},
		{name: "header only key", input: "ID\n"},
		{name: "ragged row", input: "ID\ta\tb\nGlc\t1\n"},
		{name: "bad number", input: "ID\ta\nGlc\tlots\n"},
		{name: "empty key", input: "ID\ta\n\t1\n"},
		{name: "duplicate row", input: "ID\ta\nGlc\t1\nGlc\t2\n"},
		{name: "negative", input: "ID\ta\nGlc\t-1\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadTable(strings.NewReader(tt.input))
			assert.Error(t, err)
		})
	}
}

func TestParseValue(t *testing.T) {
	for _, s := range []string{"", " ", "NA", "na", "NaN", "nan", "N/A"} {
		v, err := ParseValue(s)
		require.NoError(t, err)
		assert.True(t, math.IsNaN(v), "%q", s)
	}
	v, err := ParseValue(" 0.00154 ")
	require.NoError(t, err)
	assert.Equal(t, 0.00154, v)
}
