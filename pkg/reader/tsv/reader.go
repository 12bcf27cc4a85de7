// Package tsv provides streaming readers for tab-separated quantification tables
package tsv

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/ChrisMcGann/isostat/pkg/core"
)

// Row is one parsed line of a quantification table.
type Row struct {
	Key    string
	Values []float64
}

// Reader provides streaming access to quantification tables. The first
// column holds row keys; the header names the sample columns.
type Reader struct {
	scanner *bufio.Scanner
	columns []string
	lineNum int
	current *Row
	err     error
}

// NewReader creates a new table reader and consumes the header line
func NewReader(r io.Reader) (*Reader, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	rd := &Reader{scanner: scanner}
	for scanner.Scan() {
		rd.lineNum++
		line := strings.TrimRight(scanner.Text(), "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		fields := strings.Split(line, "\t")
		if len(fields) < 2 {
			return nil, fmt.Errorf("line %d: header needs a key column and at least one sample", rd.lineNum)
		}
		for i, f := range fields[1:] {
			fields[i+1] = strings.TrimSpace(f)
		}
		rd.columns = fields[1:]
		return rd, nil
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return nil, fmt.Errorf("empty table: %w", io.ErrUnexpectedEOF)
}

// Columns returns the sample names from the header
func (r *Reader) Columns() []string {
	return r.columns
}

// Next advances to the next row. Returns false when no more rows or error.
func (r *Reader) Next() bool {
	r.current = nil
	for r.scanner.Scan() {
		r.lineNum++
		line := strings.TrimRight(r.scanner.Text(), "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		row, err := r.parseRow(line)
		if err != nil {
			r.err = fmt.Errorf("line %d: %w", r.lineNum, err)
			return false
		}
		r.current = row
		return true
	}
	r.err = r.scanner.Err()
	return false
}

// Row returns the current row
func (r *Reader) Row() *Row {
	return r.current
}

// Err returns any error encountered during reading
func (r *Reader) Err() error {
	return r.err
}

func (r *Reader) parseRow(line string) (*Row, error) {
	fields := strings.Split(line, "\t")
	if len(fields) != len(r.columns)+1 {
		return nil, fmt.Errorf("expected %d fields, got %d", len(r.columns)+1, len(fields))
	}

	row := &Row{Key: strings.TrimSpace(fields[0]), Values: make([]float64, len(r.columns))}
	if row.Key == "" {
		return nil, fmt.Errorf("empty row key")
	}
	for i, f := range fields[1:] {
		v, err := ParseValue(f)
		if err != nil {
			return nil, fmt.Errorf("column %s: %w", r.columns[i], err)
		}
		row.Values[i] = v
	}
	return row, nil
}

// ParseValue reads a cell. Empty cells and NA/NaN markers are missing.
func ParseValue(s string) (float64, error) {
	s = strings.TrimSpace(s)
	switch strings.ToLower(s) {
	case "", "na", "nan", "n/a":
		return math.NaN(), nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid value %q", s)
	}
	return v, nil
}

// ReadTable reads a whole table and validates it.
func ReadTable(r io.Reader) (*core.Table, error) {
	rd, err := NewReader(r)
	if err != nil {
		return nil, err
	}

	var keys []string
	var values [][]float64
	for rd.Next() {
		row := rd.Row()
		keys = append(keys, row.Key)
		values = append(values, row.Values)
	}
	if err := rd.Err(); err != nil {
		return nil, err
	}
	return core.NewTable(keys, rd.Columns(), values)
}

// ReadFile opens and reads a table file.
func ReadFile(path string) (*core.Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open table: %w", err)
	}
	defer f.Close()

	t, err := ReadTable(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return t, nil
}
