// Package volumes parses the structure-volumes table written by the external
// segmentation tool and computes summary statistics over it.
//
// The table is a wide-format CSV: the header row holds "subject" followed by
// one column per anatomical structure, and the single data row holds the
// subject identifier followed by each structure's volume in cubic millimeters.
package volumes

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Entry is one structure's row in the volumes table.
type Entry struct {
	// Name is the anatomical structure name as written by the tool.
	Name string

	// VolumeMM3 is the structure's volume in cubic millimeters.
	VolumeMM3 float64
}

// Table is the parsed volumes table for one segmented subject.
type Table struct {
	// Subject is the subject identifier from the first column, when present.
	Subject string

	// Entries lists the structures in the order the tool wrote them.
	Entries []Entry
}

// Summary holds aggregate statistics over a volumes table.
type Summary struct {
	// Count is the number of structures in the table.
	Count int

	// TotalMM3 is the summed volume of all structures.
	TotalMM3 float64

	// MeanMM3 is the mean structure volume.
	MeanMM3 float64

	// StdDevMM3 is the sample standard deviation of structure volumes.
	StdDevMM3 float64

	// Largest names the structure with the greatest volume.
	Largest string

	// LargestMM3 is that structure's volume.
	LargestMM3 float64
}

// ReadFile parses a volumes table from a CSV file on disk.
func ReadFile(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open volumes table: %w", err)
	}
	defer f.Close()

	table, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return table, nil
}

// Parse reads a wide-format volumes table from r.
func Parse(r io.Reader) (*Table, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read header row: %w", err)
	}
	row, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read data row: %w", err)
	}
	if len(row) != len(header) {
		return nil, fmt.Errorf("data row has %d columns, header has %d", len(row), len(header))
	}

	table := &Table{}

	// The first column is the subject identifier when labeled as such;
	// otherwise every column is a structure.
	start := 0
	if len(header) > 0 && strings.EqualFold(strings.TrimSpace(header[0]), "subject") {
		table.Subject = strings.TrimSpace(row[0])
		start = 1
	}

	for i := start; i < len(header); i++ {
		name := strings.TrimSpace(header[i])
		if name == "" {
			continue
		}
		value, err := strconv.ParseFloat(strings.TrimSpace(row[i]), 64)
		if err != nil {
			return nil, fmt.Errorf("bad volume value %q for structure %q: %w", row[i], name, err)
		}
		table.Entries = append(table.Entries, Entry{Name: name, VolumeMM3: value})
	}

	if len(table.Entries) == 0 {
		return nil, fmt.Errorf("volumes table contains no structures")
	}
	return table, nil
}

// Total returns the summed volume of all structures in cubic millimeters.
func (t *Table) Total() float64 {
	return floats.Sum(t.values())
}

// Summarize computes aggregate statistics over the table.
func (t *Table) Summarize() Summary {
	values := t.values()
	s := Summary{
		Count:    len(t.Entries),
		TotalMM3: floats.Sum(values),
		MeanMM3:  stat.Mean(values, nil),
	}
	if len(values) > 1 {
		s.StdDevMM3 = stat.StdDev(values, nil)
	}
	for _, e := range t.Entries {
		if e.VolumeMM3 > s.LargestMM3 {
			s.Largest = e.Name
			s.LargestMM3 = e.VolumeMM3
		}
	}
	return s
}

// Largest returns up to n entries sorted by volume, largest first.
func (t *Table) Largest(n int) []Entry {
	sorted := make([]Entry, len(t.Entries))
	copy(sorted, t.Entries)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].VolumeMM3 > sorted[j].VolumeMM3
	})
	if n < len(sorted) {
		sorted = sorted[:n]
	}
	return sorted
}

func (t *Table) values() []float64 {
	values := make([]float64, len(t.Entries))
	for i, e := range t.Entries {
		values[i] = e.VolumeMM3
	}
	return values
}
