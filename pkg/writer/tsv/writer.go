// Package tsv writes result tables as tab-separated files.
package tsv

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/gocarina/gocsv"

	"github.com/ChrisMcGann/isostat/pkg/bivariate"
	"github.com/ChrisMcGann/isostat/pkg/comparison"
	"github.com/ChrisMcGann/isostat/pkg/core"
	"github.com/ChrisMcGann/isostat/pkg/univariate"
)

// ProfileSuffix marks time-profile result files.
const ProfileSuffix = "metabo_time_profile"

// DifferentialName is the file name of a univariate result table.
func DifferentialName(kind core.FileKind, compartment, cmp, test string) string {
	return fmt.Sprintf("%s--%s-%s-%s.tsv", kind, compartment, cmp, test)
}

// BivariateName is the file name of a bivariate result table.
func BivariateName(kind core.FileKind, compartment string, unit bivariate.Unit, method string) string {
	var cmp string
	switch unit.Behavior {
	case comparison.ConditionsTimeProfiles:
		cmp = unit.Comparison + "--" + ProfileSuffix
	default:
		cmp = "MDV-" + unit.Comparison + "--" + unit.Key
	}
	return fmt.Sprintf("%s--%s-%s-%s.tsv", kind, compartment, cmp, method)
}

// lessPadj orders by padj ascending, NaN last.
func lessPadj(a, b float64) bool {
	if math.IsNaN(a) {
		return false
	}
	if math.IsNaN(b) {
		return true
	}
	return a < b
}

// SortDifferential orders rows by padj ascending, NaN last, keeping input
// order among equal values.
func SortDifferential(rows []univariate.Result) {
	sort.SliceStable(rows, func(i, j int) bool { return lessPadj(rows[i].Padj, rows[j].Padj) })
}

// SortBivariate orders rows by padj ascending, NaN last.
func SortBivariate(rows []bivariate.Result) {
	sort.SliceStable(rows, func(i, j int) bool { return lessPadj(rows[i].Padj, rows[j].Padj) })
}

func newWriter(w io.Writer) *gocsv.SafeCSVWriter {
	cw := csv.NewWriter(w)
	cw.Comma = '\t'
	return gocsv.NewSafeCSVWriter(cw)
}

// WriteDifferential sorts and writes univariate results.
func WriteDifferential(w io.Writer, rows []univariate.Result) error {
	sorted := append([]univariate.Result(nil), rows...)
	SortDifferential(sorted)
	return gocsv.MarshalCSV(&sorted, newWriter(w))
}

// WriteBivariate sorts and writes bivariate results.
func WriteBivariate(w io.Writer, rows []bivariate.Result) error {
	sorted := append([]bivariate.Result(nil), rows...)
	SortBivariate(sorted)
	return gocsv.MarshalCSV(&sorted, newWriter(w))
}

// Writer places result files in one output directory.
type Writer struct {
	dir     string
	written []string
}

// NewWriter creates the output directory if needed.
func NewWriter(dir string) (*Writer, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}
	return &Writer{dir: dir}, nil
}

// Differential writes one univariate table under name.
func (w *Writer) Differential(name string, rows []univariate.Result) (string, error) {
	return w.create(name, func(f io.Writer) error { return WriteDifferential(f, rows) })
}

// Bivariate writes one bivariate table under name.
func (w *Writer) Bivariate(name string, rows []bivariate.Result) (string, error) {
	return w.create(name, func(f io.Writer) error { return WriteBivariate(f, rows) })
}

// Written lists the paths written so far.
func (w *Writer) Written() []string {
	return w.written
}

func (w *Writer) create(name string, write func(io.Writer) error) (string, error) {
	if strings.ContainsRune(name, os.PathSeparator) {
		return "", fmt.Errorf("invalid result name %q", name)
	}
	path := filepath.Join(w.dir, name)
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := write(f); err != nil {
		f.Close()
		return "", fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return "", err
	}
	w.written = append(w.written, path)
	return path, nil
}
