package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/nao1215/fairhire/internal/model"
)

// hiringCSV is the eight-row scenario: privileged rate 0.75, unprivileged 0.25.
const hiringCSV = `gender,experience,hired
1,5,1
1,3,1
1,4,1
1,1,0
0,2,0
0,6,0
0,4,1
0,1,0
`

// balancedCSV hires half of each gender.
const balancedCSV = `gender,experience,hired
1,5,1
1,1,0
0,6,1
0,2,0
`

// genderModel hires exactly the privileged gender.
const genderModel = `name: gendered
intercept: -2
coefficients:
  gender: 4
`

// testEnv is an isolated workspace with its own SQLite store.
type testEnv struct {
	dir        string
	configPath string
}

// newTestEnv writes a configuration file that points the SQLite store into a
// temporary directory and keeps the explainer small.
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	dir := t.TempDir()
	configPath := filepath.Join(dir, "fairhire.yaml")
	content := "store:\n" +
		"  backend: sqlite\n" +
		"  db_dir: " + filepath.Join(dir, "db") + "\n" +
		"explain:\n" +
		"  samples: 100\n"
	writeFile(t, configPath, content)
	return &testEnv{dir: dir, configPath: configPath}
}

// file writes content into the workspace and returns its path.
func (e *testEnv) file(t *testing.T, name, content string) string {
	t.Helper()

	path := filepath.Join(e.dir, name)
	writeFile(t, path, content)
	return path
}

// run executes the root command against the workspace configuration.
func (e *testEnv) run(t *testing.T, args ...string) (stdout, stderr string, err error) {
	t.Helper()
	return executeCmd(t, append([]string{"--config", e.configPath}, args...)...)
}

// auditIDs runs a JSON audit and returns the saved audit IDs.
func (e *testEnv) auditIDs(t *testing.T, args ...string) []string {
	t.Helper()

	stdout, stderr, err := e.run(t, append([]string{"audit", "--json"}, args...)...)
	if err != nil {
		t.Fatalf("audit failed: %v\nstderr: %s", err, stderr)
	}
	recs := decodeRecords(t, stdout)
	ids := make([]string, 0, len(recs))
	for _, r := range recs {
		ids = append(ids, r.ID)
	}
	return ids
}

func executeCmd(t *testing.T, args ...string) (string, string, error) {
	t.Helper()

	cmd := NewRootCmd()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)

	err := cmd.ExecuteContext(t.Context())
	return stdout.String(), stderr.String(), err
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()

	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		t.Fatalf("failed to create directory: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write %s: %v", path, err)
	}
}

// decodeRecords decodes a stream of JSON audit records.
func decodeRecords(t *testing.T, s string) []model.AuditRecord {
	t.Helper()

	var recs []model.AuditRecord
	dec := json.NewDecoder(strings.NewReader(s))
	for {
		var r model.AuditRecord
		err := dec.Decode(&r)
		if errors.Is(err, io.EOF) {
			return recs
		}
		if err != nil {
			t.Fatalf("failed to decode records: %v\n%s", err, s)
		}
		recs = append(recs, r)
	}
}
