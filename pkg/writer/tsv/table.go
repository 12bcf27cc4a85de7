package tsv

import (
	"io"
	"math"
	"strconv"

	"github.com/ChrisMcGann/isostat/pkg/core"
)

// KeyColumn heads the row key column of written quantification tables.
const KeyColumn = "ID"

// TableName is the file name of a quantification table of one kind.
func TableName(kind core.FileKind) string {
	return kind.String() + ".tsv"
}

// WriteTable writes a quantification table in the layout the table reader
// accepts. Missing cells are written as NaN.
func WriteTable(w io.Writer, t *core.Table) error {
	cw := newWriter(w)

	header := append([]string{KeyColumn}, t.Columns...)
	if err := cw.Write(header); err != nil {
		return err
	}

	record := make([]string, len(t.Columns)+1)
	for i, row := range t.Rows {
		record[0] = row
		for j, v := range t.Values[i] {
			if math.IsNaN(v) {
				record[j+1] = "NaN"
				continue
			}
			record[j+1] = strconv.FormatFloat(v, 'f', -1, 64)
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}

// Table writes one quantification table under name.
func (w *Writer) Table(name string, t *core.Table) (string, error) {
	return w.create(name, func(f io.Writer) error { return WriteTable(f, t) })
}
