// Package analysis runs configured differential and bivariate analyses over a
// dataset, one unit per file kind, compartment and comparison.
package analysis

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ChrisMcGann/isostat/pkg/config"
	"github.com/ChrisMcGann/isostat/pkg/core"
	"github.com/ChrisMcGann/isostat/pkg/reader/metadata"
	tsvreader "github.com/ChrisMcGann/isostat/pkg/reader/tsv"
	tsvwriter "github.com/ChrisMcGann/isostat/pkg/writer/tsv"
)

// Dataset is the metadata of an experiment plus its quantification tables.
type Dataset struct {
	Dir      string
	Metadata *core.Metadata
	Tables   map[core.FileKind]*core.Table
}

// LoadDataset reads metadata.tsv and every <kind>.tsv of dir among kinds.
// Missing table files are skipped; at least one must exist. Every table
// column must be a metadata sample.
func LoadDataset(dir string, kinds []core.FileKind) (*Dataset, error) {
	meta, err := metadata.ReadFile(filepath.Join(dir, config.MetadataFile))
	if err != nil {
		return nil, fmt.Errorf("failed to load metadata: %w", err)
	}

	ds := &Dataset{Dir: dir, Metadata: meta, Tables: make(map[core.FileKind]*core.Table)}
	for _, kind := range kinds {
		path := filepath.Join(dir, tsvwriter.TableName(kind))
		if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
			continue
		}
		t, err := tsvreader.ReadFile(path)
		if err != nil {
			return nil, err
		}
		if err := ds.Add(kind, t); err != nil {
			return nil, err
		}
	}

	if len(ds.Tables) == 0 {
		return nil, fmt.Errorf("no quantification tables found in %s", dir)
	}
	return ds, nil
}

// Add registers a table after checking its columns against metadata.
func (d *Dataset) Add(kind core.FileKind, t *core.Table) error {
	if err := d.Metadata.CheckColumns(t.Columns); err != nil {
		return fmt.Errorf("%s: %w", kind, err)
	}
	d.Tables[kind] = t
	return nil
}

// Kinds returns the loaded kinds in canonical order.
func (d *Dataset) Kinds() []core.FileKind {
	var out []core.FileKind
	for _, k := range core.AllFileKinds {
		if _, ok := d.Tables[k]; ok {
			out = append(out, k)
		}
	}
	return out
}

// Compartment returns the columns of a kind's table measured in one
// compartment, along with the metadata of exactly those samples. ok is false
// when the kind is not loaded or no column belongs to the compartment.
func (d *Dataset) Compartment(kind core.FileKind, compartment string) (*core.Table, *core.Metadata, bool, error) {
	t, ok := d.Tables[kind]
	if !ok {
		return nil, nil, false, nil
	}

	sub := &core.Metadata{}
	var columns []string
	for _, s := range d.Metadata.ForCompartment(compartment).Samples {
		if _, ok := t.ColumnIndex(s.Name); ok {
			sub.Samples = append(sub.Samples, s)
			columns = append(columns, s.Name)
		}
	}
	if len(columns) == 0 {
		return nil, nil, false, nil
	}

	selected, err := t.SelectColumns(columns)
	if err != nil {
		return nil, nil, false, fmt.Errorf("%s in %s: %w", kind, compartment, err)
	}
	return selected, sub, true, nil
}

// WithConditions restricts the metadata and every table to the samples of
// the given conditions.
func (d *Dataset) WithConditions(conditions []string) (*Dataset, error) {
	meta := d.Metadata.WithConditions(conditions)
	keep := make(map[string]bool, len(meta.Samples))
	for _, name := range meta.Names() {
		keep[name] = true
	}

	out := &Dataset{Dir: d.Dir, Metadata: meta, Tables: make(map[core.FileKind]*core.Table, len(d.Tables))}
	for kind, t := range d.Tables {
		var columns []string
		for _, c := range t.Columns {
			if keep[c] {
				columns = append(columns, c)
			}
		}
		selected, err := t.SelectColumns(columns)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", kind, err)
		}
		out.Tables[kind] = selected
	}
	return out, nil
}
