// Package metadata reads sample metadata tables.
package metadata

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/gocarina/gocsv"

	"github.com/ChrisMcGann/isostat/pkg/core"
)

// DetectDelimiter picks tab or comma from the header line.
func DetectDelimiter(header string) rune {
	if strings.Contains(header, "\t") {
		return '\t'
	}
	return ','
}

// Read decodes a metadata table, tab or comma separated, and validates it.
func Read(r io.Reader) (*core.Metadata, error) {
	br := bufio.NewReader(r)
	header, err := br.Peek(peekSize(br))
	if err != nil && err != io.EOF && err != bufio.ErrBufferFull {
		return nil, err
	}
	firstLine, _, _ := strings.Cut(string(header), "\n")

	reader := csv.NewReader(br)
	reader.Comma = DetectDelimiter(firstLine)
	reader.TrimLeadingSpace = true

	var samples []core.Sample
	if err := gocsv.UnmarshalCSV(reader, &samples); err != nil {
		return nil, fmt.Errorf("failed to decode metadata: %w", err)
	}
	for i := range samples {
		s := &samples[i]
		s.Name = strings.TrimSpace(s.Name)
		s.Condition = strings.TrimSpace(s.Condition)
		s.Timepoint = strings.TrimSpace(s.Timepoint)
		s.Compartment = strings.TrimSpace(s.Compartment)
	}

	meta := &core.Metadata{Samples: samples}
	if err := meta.Validate(); err != nil {
		return nil, err
	}
	return meta, nil
}

// peekSize bounds the header peek by what is buffered after one fill.
func peekSize(br *bufio.Reader) int {
	// Peek(1) forces the first fill
	if _, err := br.Peek(1); err != nil {
		return 0
	}
	return br.Buffered()
}

// ReadFile opens and reads a metadata file.
func ReadFile(path string) (*core.Metadata, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open metadata: %w", err)
	}
	defer f.Close()

	meta, err := Read(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return meta, nil
}
