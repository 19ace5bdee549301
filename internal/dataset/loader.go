package dataset

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/nao1215/fairhire/internal/model"
)

// ErrEmptyDataset is returned when a file has a header but no data rows.
var ErrEmptyDataset = errors.New("dataset has no rows")

// CSVLoader loads datasets from CSV files on the local filesystem.
type CSVLoader struct{}

// Load opens the file at location and parses it.
// Every failure is reported as a DataUnavailable error.
func (CSVLoader) Load(ctx context.Context, location string) (*Frame, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f, err := os.Open(location) //nolint:gosec // location is chosen by the operator
	if err != nil {
		return nil, model.DataUnavailable("open dataset "+location, err)
	}
	defer f.Close()

	frame, err := Parse(f)
	if err != nil {
		return nil, model.DataUnavailable("parse dataset "+location, err)
	}
	return frame, nil
}

// Parse reads a CSV document with a header row and numeric cells.
func Parse(r io.Reader) (*Frame, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	cr.ReuseRecord = false

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, errors.New("dataset is empty")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}
	for i, h := range header {
		header[i] = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
	}

	var rows [][]float64
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read line %d: %w", line, err)
		}

		row := make([]float64, len(rec))
		for j, cell := range rec {
			v, err := strconv.ParseFloat(strings.TrimSpace(cell), 64)
			if err != nil {
				return nil, fmt.Errorf("line %d column %q: %q is not a number", line, header[j], cell)
			}
			// NaN and Inf parse but cannot be stored as JSON.
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return nil, fmt.Errorf("line %d column %q: %q is not a finite number", line, header[j], cell)
			}
			row[j] = v
		}
		rows = append(rows, row)
	}

	if len(rows) == 0 {
		return nil, ErrEmptyDataset
	}
	return NewFrame(header, rows)
}
