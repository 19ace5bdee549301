package dataset

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/nao1215/fairhire/internal/model"
)

const hiringCSV = `gender,experience,hired
1,5,1
1,3,1
1,4,1
1,2,0
0,6,0
0,1,0
0,7,1
0,2,0
`

// TestParse tests CSV parsing.
func TestParse(t *testing.T) {
	t.Parallel()

	t.Run("parses header and numeric rows", func(t *testing.T) {
		t.Parallel()

		f, err := Parse(strings.NewReader(hiringCSV))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if f.NumRows() != 8 {
			t.Errorf("expected 8 rows, got %d", f.NumRows())
		}
		cols := f.Columns()
		if len(cols) != 3 || cols[0] != "gender" || cols[2] != "hired" {
			t.Errorf("unexpected columns: %v", cols)
		}

		hired, err := f.Column("hired")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if hired[6] != 1 {
			t.Errorf("expected hired[6] == 1, got %v", hired[6])
		}
	})

	t.Run("trims whitespace and byte order mark", func(t *testing.T) {
		t.Parallel()

		f, err := Parse(strings.NewReader("\ufeffgender , hired\n1, 0\n"))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !f.HasColumn("gender") || !f.HasColumn("hired") {
			t.Errorf("expected trimmed column names, got %v", f.Columns())
		}
	})

	errorTests := []struct {
		name  string
		input string
	}{
		{name: "empty input", input: ""},
		{name: "header only", input: "gender,hired\n"},
		{name: "non numeric cell", input: "gender,hired\nmale,1\n"},
		{name: "NaN cell", input: "gender,hired\nNaN,1\n"},
		{name: "Inf cell", input: "gender,hired\n1,Inf\n"},
		{name: "negative infinity cell", input: "gender,hired\n-Infinity,1\n"},
		{name: "ragged row", input: "gender,hired\n1,1,1\n"},
		{name: "duplicate column", input: "a,a\n1,1\n"},
	}

	for _, tt := range errorTests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if _, err := Parse(strings.NewReader(tt.input)); err == nil {
				t.Error("expected error, got nil")
			}
		})
	}
}

// TestCSVLoaderLoad tests loading from the filesystem.
func TestCSVLoaderLoad(t *testing.T) {
	t.Parallel()

	t.Run("loads existing file", func(t *testing.T) {
		t.Parallel()

		path := filepath.Join(t.TempDir(), "hiring.csv")
		if err := os.WriteFile(path, []byte(hiringCSV), 0o600); err != nil {
			t.Fatalf("failed to write fixture: %v", err)
		}

		f, err := CSVLoader{}.Load(context.Background(), path)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if f.NumRows() != 8 {
			t.Errorf("expected 8 rows, got %d", f.NumRows())
		}
	})

	t.Run("missing file is data unavailable", func(t *testing.T) {
		t.Parallel()

		_, err := CSVLoader{}.Load(context.Background(), filepath.Join(t.TempDir(), "missing.csv"))
		if !errors.Is(err, model.ErrDataUnavailable) {
			t.Errorf("expected ErrDataUnavailable, got %v", err)
		}
		if !errors.Is(err, os.ErrNotExist) {
			t.Errorf("expected cause os.ErrNotExist, got %v", err)
		}
	})

	t.Run("malformed file is data unavailable", func(t *testing.T) {
		t.Parallel()

		path := filepath.Join(t.TempDir(), "bad.csv")
		if err := os.WriteFile(path, []byte("a,b\nx,y\n"), 0o600); err != nil {
			t.Fatalf("failed to write fixture: %v", err)
		}

		_, err := CSVLoader{}.Load(context.Background(), path)
		if model.KindOf(err) != model.KindDataUnavailable {
			t.Errorf("expected DataUnavailable kind, got %v", model.KindOf(err))
		}
	})

	t.Run("cancelled context", func(t *testing.T) {
		t.Parallel()

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := CSVLoader{}.Load(ctx, "unused.csv")
		if !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
	})
}

// TestFrameFeatures tests feature matrix projection.
func TestFrameFeatures(t *testing.T) {
	t.Parallel()

	f, err := Parse(strings.NewReader(hiringCSV))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	t.Run("excludes label column", func(t *testing.T) {
		t.Parallel()

		m, err := f.Features("hired")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(m.Columns) != 2 || m.Columns[0] != "gender" || m.Columns[1] != "experience" {
			t.Errorf("unexpected feature columns: %v", m.Columns)
		}
		if m.NumRows() != 8 {
			t.Errorf("expected 8 rows, got %d", m.NumRows())
		}
		if m.Rows[4][1] != 6 {
			t.Errorf("expected experience 6 at row 4, got %v", m.Rows[4][1])
		}
	})

	t.Run("unknown exclusion fails", func(t *testing.T) {
		t.Parallel()

		if _, err := f.Features("salary"); err == nil {
			t.Error("expected error for unknown column")
		}
	})

	t.Run("returned rows are copies", func(t *testing.T) {
		t.Parallel()

		m, err := f.Features("hired")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		m.Rows[0][0] = 42

		v, _ := f.Value(0, "gender")
		if v != 1 {
			t.Errorf("expected frame to be unchanged, got %v", v)
		}
	})
}
