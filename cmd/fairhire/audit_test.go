package main

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"strings"
	"testing"

	"github.com/nao1215/fairhire/internal/config"
	"github.com/nao1215/fairhire/internal/fairness"
	"github.com/nao1215/fairhire/internal/model"
)

// TestNewAuditCmd tests the audit command creation.
func TestNewAuditCmd(t *testing.T) {
	t.Parallel()

	cmd := NewAuditCmd()

	t.Run("has correct use", func(t *testing.T) {
		t.Parallel()
		if cmd.Use != "audit [dataset.csv]..." {
			t.Errorf("expected use 'audit [dataset.csv]...', got %q", cmd.Use)
		}
	})

	t.Run("requires at least one argument", func(t *testing.T) {
		t.Parallel()
		if err := cmd.Args(cmd, nil); err == nil {
			t.Error("expected error without datasets")
		}
	})

	flags := []struct {
		name      string
		shorthand string
		defValue  string
	}{
		{name: "protected", shorthand: "p", defValue: "[]"},
		{name: "privileged", defValue: "[]"},
		{name: "unprivileged", defValue: "[]"},
		{name: "label", shorthand: "l", defValue: "hired"},
		{name: "threshold", shorthand: "t", defValue: "0.1"},
		{name: "model", defValue: ""},
		{name: "batch", shorthand: "b", defValue: "4"},
		{name: "json", shorthand: "j", defValue: "false"},
		{name: "markdown", shorthand: "m", defValue: "false"},
		{name: "output", shorthand: "o", defValue: ""},
		{name: "no-save", defValue: "false"},
	}
	for _, tt := range flags {
		t.Run("has "+tt.name+" flag", func(t *testing.T) {
			t.Parallel()

			flag := cmd.Flags().Lookup(tt.name)
			if flag == nil {
				t.Fatalf("expected %s flag", tt.name)
			}
			if flag.Shorthand != tt.shorthand {
				t.Errorf("expected shorthand %q, got %q", tt.shorthand, flag.Shorthand)
			}
			if flag.DefValue != tt.defValue {
				t.Errorf("expected default %q, got %q", tt.defValue, flag.DefValue)
			}
		})
	}
}

// TestRunAuditCmd tests complete audits through the CLI.
func TestRunAuditCmd(t *testing.T) {
	t.Parallel()

	t.Run("audits a dataset without a model", func(t *testing.T) {
		t.Parallel()

		env := newTestEnv(t)
		csv := env.file(t, "hiring.csv", hiringCSV)

		stdout, stderr, err := env.run(t, "audit", "--json", csv)
		if err != nil {
			t.Fatalf("unexpected error: %v\nstderr: %s", err, stderr)
		}

		recs := decodeRecords(t, stdout)
		if len(recs) != 1 {
			t.Fatalf("expected 1 record, got %d", len(recs))
		}
		rec := recs[0]
		if rec.Status != model.StatusComplete {
			t.Errorf("expected status complete, got %q", rec.Status)
		}
		if len(rec.Findings) != 1 {
			t.Fatalf("expected 1 finding, got %d", len(rec.Findings))
		}
		if !rec.Findings[0].IsBiased {
			t.Error("expected a biased data finding")
		}
		spd := rec.Findings[0].Metrics[fairness.MetricStatisticalParityDifference]
		if math.Abs(spd+0.5) > 1e-9 {
			t.Errorf("expected statistical parity difference -0.5, got %v", spd)
		}
		if len(rec.Explanations) != 0 {
			t.Errorf("expected no explanations, got %d", len(rec.Explanations))
		}
		if !strings.Contains(rec.Report, "### 1. Data Bias [BIAS]") {
			t.Errorf("expected rendered data bias entry, got %q", rec.Report)
		}
		if !strings.Contains(stderr, "saved as "+rec.ID) {
			t.Errorf("expected save notice for %s, got %q", rec.ID, stderr)
		}
	})

	t.Run("audits a model", func(t *testing.T) {
		t.Parallel()

		env := newTestEnv(t)
		csv := env.file(t, "hiring.csv", hiringCSV)
		modelPath := env.file(t, "model.yaml", genderModel)

		stdout, stderr, err := env.run(t, "audit", "--json", "--model", modelPath, csv)
		if err != nil {
			t.Fatalf("unexpected error: %v\nstderr: %s", err, stderr)
		}

		rec := decodeRecords(t, stdout)[0]
		if !rec.HasModel {
			t.Error("expected HasModel to be true")
		}
		if len(rec.Findings) != 2 {
			t.Fatalf("expected 2 findings, got %d", len(rec.Findings))
		}
		if rec.Findings[1].Type != fairness.ModelBiasType {
			t.Errorf("expected second finding %q, got %q", fairness.ModelBiasType, rec.Findings[1].Type)
		}
		if len(rec.Explanations) != 3 {
			t.Errorf("expected 3 explanations, got %d", len(rec.Explanations))
		}
	})

	t.Run("prints a text report by default", func(t *testing.T) {
		t.Parallel()

		env := newTestEnv(t)
		csv := env.file(t, "hiring.csv", hiringCSV)

		stdout, _, err := env.run(t, "audit", "--no-save", csv)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		for _, want := range []string{"FAIRHIRE AUDIT REPORT", "1. Data Bias [BIAS]", "1 of 1 checks detected bias"} {
			if !strings.Contains(stdout, want) {
				t.Errorf("expected output to contain %q, got:\n%s", want, stdout)
			}
		}
		if strings.Contains(stdout, "\x1b[") {
			t.Error("expected no colour codes when not writing to a terminal")
		}
	})

	t.Run("prints a markdown report", func(t *testing.T) {
		t.Parallel()

		env := newTestEnv(t)
		csv := env.file(t, "hiring.csv", hiringCSV)

		stdout, _, err := env.run(t, "audit", "--no-save", "--markdown", csv)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.HasPrefix(stdout, "# ") {
			t.Errorf("expected a markdown heading, got %q", stdout)
		}
	})

	t.Run("audits several datasets independently", func(t *testing.T) {
		t.Parallel()

		env := newTestEnv(t)
		biased := env.file(t, "biased.csv", hiringCSV)
		balanced := env.file(t, "balanced.csv", balancedCSV)

		stdout, stderr, err := env.run(t, "audit", "--json", "--batch", "2", biased, balanced)
		if err != nil {
			t.Fatalf("unexpected error: %v\nstderr: %s", err, stderr)
		}

		recs := decodeRecords(t, stdout)
		if len(recs) != 2 {
			t.Fatalf("expected 2 records, got %d", len(recs))
		}
		verdicts := map[string]bool{}
		for _, r := range recs {
			verdicts[filepath.Base(r.DatasetLocation)] = r.Findings[0].IsBiased
		}
		if !verdicts["biased.csv"] || verdicts["balanced.csv"] {
			t.Errorf("expected only biased.csv to be biased, got %v", verdicts)
		}
		if recs[0].ID == recs[1].ID {
			t.Error("expected distinct audit ids")
		}
		if !strings.Contains(stderr, "2 of 2 audits completed") {
			t.Errorf("expected batch summary, got %q", stderr)
		}
	})

	t.Run("writes the report to a file", func(t *testing.T) {
		t.Parallel()

		env := newTestEnv(t)
		csv := env.file(t, "hiring.csv", hiringCSV)
		out := filepath.Join(env.dir, "reports", "nested", "audit.md")

		stdout, _, err := env.run(t, "audit", "--no-save", "--markdown", "-o", out, csv)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if stdout != "" {
			t.Errorf("expected empty stdout, got %q", stdout)
		}

		info, err := os.Stat(out)
		if err != nil {
			t.Fatalf("expected report file: %v", err)
		}
		if runtime.GOOS != "windows" && info.Mode().Perm() != 0600 {
			t.Errorf("expected permissions 0600, got %o", info.Mode().Perm())
		}
	})

	t.Run("does not save with no-save", func(t *testing.T) {
		t.Parallel()

		env := newTestEnv(t)
		csv := env.file(t, "hiring.csv", hiringCSV)

		if _, _, err := env.run(t, "audit", "--no-save", csv); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		stdout, stderr, err := env.run(t, "list")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if stdout != "" || !strings.Contains(stderr, "No audits found") {
			t.Errorf("expected no saved audits, got stdout %q stderr %q", stdout, stderr)
		}
	})

	t.Run("does not save a failed audit", func(t *testing.T) {
		t.Parallel()

		env := newTestEnv(t)
		good := env.file(t, "hiring.csv", hiringCSV)
		missing := filepath.Join(env.dir, "missing.csv")

		_, stderr, err := env.run(t, "audit", "--json", good, missing)
		if !errors.Is(err, model.ErrDataUnavailable) {
			t.Fatalf("expected ErrDataUnavailable, got %v", err)
		}
		if !strings.Contains(stderr, "1 of 2 audits completed") {
			t.Errorf("expected batch summary, got %q", stderr)
		}

		stdout, _, err := env.run(t, "list")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if n := len(strings.Fields(stdout)); n != 1 {
			t.Errorf("expected 1 saved audit, got %d", n)
		}
	})

	t.Run("rejects conflicting formats", func(t *testing.T) {
		t.Parallel()

		env := newTestEnv(t)
		csv := env.file(t, "hiring.csv", hiringCSV)

		_, _, err := env.run(t, "audit", "--json", "--markdown", csv)
		if !errors.Is(err, config.ErrConflictingReportFormats) {
			t.Errorf("expected ErrConflictingReportFormats, got %v", err)
		}
	})

	t.Run("rejects an invalid threshold", func(t *testing.T) {
		t.Parallel()

		env := newTestEnv(t)
		csv := env.file(t, "hiring.csv", hiringCSV)

		_, _, err := env.run(t, "audit", "--threshold", "1.5", csv)
		if !errors.Is(err, config.ErrInvalidThreshold) {
			t.Errorf("expected ErrInvalidThreshold, got %v", err)
		}
	})

	t.Run("rejects a malformed group", func(t *testing.T) {
		t.Parallel()

		env := newTestEnv(t)
		csv := env.file(t, "hiring.csv", hiringCSV)

		_, _, err := env.run(t, "audit", "--privileged", "gender", csv)
		if err == nil || !strings.Contains(err.Error(), "--privileged") {
			t.Errorf("expected --privileged error, got %v", err)
		}
	})

	t.Run("rejects a group on an unprotected column", func(t *testing.T) {
		t.Parallel()

		env := newTestEnv(t)
		csv := env.file(t, "hiring.csv", hiringCSV)

		_, _, err := env.run(t, "audit", "--no-save", "--privileged", "experience=5", csv)
		if !errors.Is(err, model.ErrConfigurationInvalid) {
			t.Errorf("expected ErrConfigurationInvalid, got %v", err)
		}
	})

	t.Run("rejects a missing model file", func(t *testing.T) {
		t.Parallel()

		env := newTestEnv(t)
		csv := env.file(t, "hiring.csv", hiringCSV)

		_, _, err := env.run(t, "audit", "--model", filepath.Join(env.dir, "none.yaml"), csv)
		if err == nil || !strings.Contains(err.Error(), "failed to load model") {
			t.Errorf("expected model load error, got %v", err)
		}
	})
}

// TestBuildAuditConfig tests the precedence of flags over the configuration file.
func TestBuildAuditConfig(t *testing.T) {
	t.Parallel()

	t.Run("uses configuration file values for unset flags", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		configPath := filepath.Join(dir, "fairhire.yaml")
		writeFile(t, configPath, `audit:
  protected_attributes: [race]
  privileged_groups:
    - race: 1
  unprivileged_groups:
    - race: 0
  label_column: offer
  threshold: 0.2
batch_size: 2
`)

		cmd := NewRootCmd()
		auditCmd, _, err := cmd.Find([]string{"audit"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if err := auditCmd.ParseFlags([]string{"--config", configPath}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		cfg, err := buildAuditConfig(auditCmd)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !slices.Equal(cfg.ProtectedAttributes, []string{"race"}) {
			t.Errorf("expected [race], got %v", cfg.ProtectedAttributes)
		}
		if cfg.LabelColumn != "offer" {
			t.Errorf("expected label 'offer', got %q", cfg.LabelColumn)
		}
		if cfg.Threshold != 0.2 {
			t.Errorf("expected threshold 0.2, got %v", cfg.Threshold)
		}
		if cfg.BatchSize != 2 {
			t.Errorf("expected batch size 2, got %d", cfg.BatchSize)
		}
	})

	t.Run("flags override the configuration file", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		configPath := filepath.Join(dir, "fairhire.yaml")
		writeFile(t, configPath, "audit:\n  threshold: 0.2\n  label_column: offer\n")

		cmd := NewRootCmd()
		auditCmd, _, err := cmd.Find([]string{"audit"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		err = auditCmd.ParseFlags([]string{
			"--config", configPath,
			"--threshold", "0.3",
			"--protected", "gender,race",
			"--privileged", "gender=1,race=1",
			"--privileged", "gender=1,race=0",
			"--unprivileged", "gender=0",
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		cfg, err := buildAuditConfig(auditCmd)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if cfg.Threshold != 0.3 {
			t.Errorf("expected threshold 0.3, got %v", cfg.Threshold)
		}
		if cfg.LabelColumn != "offer" {
			t.Errorf("expected label from file 'offer', got %q", cfg.LabelColumn)
		}
		if !slices.Equal(cfg.ProtectedAttributes, []string{"gender", "race"}) {
			t.Errorf("expected [gender race], got %v", cfg.ProtectedAttributes)
		}
		if len(cfg.PrivilegedGroups) != 2 {
			t.Fatalf("expected 2 privileged groups, got %d", len(cfg.PrivilegedGroups))
		}
		if cfg.PrivilegedGroups[1]["race"] != 0 || cfg.PrivilegedGroups[1]["gender"] != 1 {
			t.Errorf("expected {gender:1 race:0}, got %v", cfg.PrivilegedGroups[1])
		}
	})

	t.Run("fails when an explicit configuration file is missing", func(t *testing.T) {
		t.Parallel()

		_, _, err := executeCmd(t, "--config", filepath.Join(t.TempDir(), "none.yaml"), "audit", "x.csv")
		if err == nil || !strings.Contains(err.Error(), "configuration file not found") {
			t.Errorf("expected not found error, got %v", err)
		}
	})
}

func TestNewRequests(t *testing.T) {
	t.Parallel()

	cfg := config.NewConfig()
	reqs := newRequests(cfg, []string{"a.csv", "b.csv"}, nil)
	if len(reqs) != 2 {
		t.Fatalf("expected 2 requests, got %d", len(reqs))
	}
	for _, r := range reqs {
		if err := r.Validate(); err != nil {
			t.Errorf("expected valid request, got %v", err)
		}
		if r.ID == "" {
			t.Error("expected an audit id")
		}
	}
	if reqs[0].ID == reqs[1].ID {
		t.Error("expected distinct audit ids")
	}
}
