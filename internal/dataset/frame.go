package dataset

import (
	"fmt"
	"slices"

	"github.com/nao1215/fairhire/internal/model"
)

// Frame is an in-memory table of float64 columns.
type Frame struct {
	columns []string
	index   map[string]int
	// rows is row-major: rows[i][j] is column j of row i.
	rows [][]float64
}

// NewFrame builds a frame from column names and row-major values.
// Every row must have one value per column and names must be unique.
func NewFrame(columns []string, rows [][]float64) (*Frame, error) {
	index := make(map[string]int, len(columns))
	for i, c := range columns {
		if c == "" {
			return nil, fmt.Errorf("column %d has an empty name", i+1)
		}
		if _, dup := index[c]; dup {
			return nil, fmt.Errorf("duplicate column %q", c)
		}
		index[c] = i
	}
	for i, r := range rows {
		if len(r) != len(columns) {
			return nil, fmt.Errorf("row %d has %d values, expected %d", i+1, len(r), len(columns))
		}
	}

	cp := make([][]float64, len(rows))
	for i, r := range rows {
		cp[i] = slices.Clone(r)
	}
	return &Frame{columns: slices.Clone(columns), index: index, rows: cp}, nil
}

// Columns returns the column names in file order.
func (f *Frame) Columns() []string {
	return slices.Clone(f.columns)
}

// NumRows returns the number of data rows.
func (f *Frame) NumRows() int {
	return len(f.rows)
}

// HasColumn reports whether the frame has a column with the given name.
func (f *Frame) HasColumn(name string) bool {
	_, ok := f.index[name]
	return ok
}

// Column returns a copy of the named column.
func (f *Frame) Column(name string) ([]float64, error) {
	j, ok := f.index[name]
	if !ok {
		return nil, fmt.Errorf("column %q not found", name)
	}
	out := make([]float64, len(f.rows))
	for i, r := range f.rows {
		out[i] = r[j]
	}
	return out, nil
}

// Value returns the cell at row i of the named column.
func (f *Frame) Value(i int, name string) (float64, bool) {
	j, ok := f.index[name]
	if !ok || i < 0 || i >= len(f.rows) {
		return 0, false
	}
	return f.rows[i][j], true
}

// Features returns every column except the excluded ones as a feature matrix.
func (f *Frame) Features(exclude ...string) (model.FeatureMatrix, error) {
	for _, e := range exclude {
		if !f.HasColumn(e) {
			return model.FeatureMatrix{}, fmt.Errorf("column %q not found", e)
		}
	}

	keep := make([]int, 0, len(f.columns))
	names := make([]string, 0, len(f.columns))
	for j, c := range f.columns {
		if slices.Contains(exclude, c) {
			continue
		}
		keep = append(keep, j)
		names = append(names, c)
	}
	if len(keep) == 0 {
		return model.FeatureMatrix{}, fmt.Errorf("no feature columns left after excluding %v", exclude)
	}

	rows := make([][]float64, len(f.rows))
	for i, r := range f.rows {
		row := make([]float64, len(keep))
		for k, j := range keep {
			row[k] = r[j]
		}
		rows[i] = row
	}
	return model.FeatureMatrix{Columns: names, Rows: rows}, nil
}
