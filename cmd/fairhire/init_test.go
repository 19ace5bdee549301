package main

import (
	"bytes"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"strings"
	"testing"

	"github.com/nao1215/fairhire/internal/config"
)

// TestNewInitCmd tests the init command creation.
func TestNewInitCmd(t *testing.T) {
	t.Parallel()

	cmd := NewInitCmd()

	t.Run("has output flag", func(t *testing.T) {
		t.Parallel()
		flag := cmd.Flags().Lookup("output")
		if flag == nil {
			t.Fatal("expected output flag")
		}
		if flag.Shorthand != "o" {
			t.Errorf("expected shorthand 'o', got %q", flag.Shorthand)
		}
		if flag.DefValue != config.DefaultConfigFile {
			t.Errorf("expected default %q, got %q", config.DefaultConfigFile, flag.DefValue)
		}
	})

	t.Run("has force flag", func(t *testing.T) {
		t.Parallel()
		flag := cmd.Flags().Lookup("force")
		if flag == nil {
			t.Fatal("expected force flag")
		}
		if flag.Shorthand != "f" {
			t.Errorf("expected shorthand 'f', got %q", flag.Shorthand)
		}
	})
}

func runInit(t *testing.T, args ...string) (string, error) {
	t.Helper()

	var buf bytes.Buffer
	cmd := NewInitCmd()
	cmd.SetOut(&buf)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

// TestRunInitCmd tests the init command execution.
func TestRunInitCmd(t *testing.T) {
	t.Parallel()

	t.Run("creates config file", func(t *testing.T) {
		t.Parallel()

		outputPath := filepath.Join(t.TempDir(), "nested", "dir", ".fairhire")
		out, err := runInit(t, "-o", outputPath)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(out, "Created configuration file") {
			t.Errorf("expected confirmation, got %q", out)
		}

		info, err := os.Stat(outputPath)
		if err != nil {
			t.Fatalf("expected config file: %v", err)
		}
		if runtime.GOOS != "windows" && info.Mode().Perm() != 0600 {
			t.Errorf("expected permissions 0600, got %o", info.Mode().Perm())
		}
	})

	t.Run("refuses to overwrite without force", func(t *testing.T) {
		t.Parallel()

		outputPath := filepath.Join(t.TempDir(), ".fairhire")
		writeFile(t, outputPath, "keep: me\n")

		_, err := runInit(t, "-o", outputPath)
		if err == nil || !strings.Contains(err.Error(), "already exists") {
			t.Errorf("expected already exists error, got %v", err)
		}
		data, _ := os.ReadFile(outputPath)
		if string(data) != "keep: me\n" {
			t.Errorf("expected file to be untouched, got %q", data)
		}
	})

	t.Run("overwrites with force", func(t *testing.T) {
		t.Parallel()

		outputPath := filepath.Join(t.TempDir(), ".fairhire")
		writeFile(t, outputPath, "keep: me\n")

		if _, err := runInit(t, "-o", outputPath, "-f"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		data, _ := os.ReadFile(outputPath)
		if !strings.Contains(string(data), "protected_attributes") {
			t.Errorf("expected template content, got %q", data)
		}
	})
}

// TestConfigTemplate checks that the generated file is a valid configuration
// equal to the built-in defaults.
func TestConfigTemplate(t *testing.T) {
	t.Parallel()

	content, err := configTemplate.ReadFile(configTemplatePath)
	if err != nil {
		t.Fatalf("failed to read template: %v", err)
	}

	f, err := config.ParseConfigFile(content)
	if err != nil {
		t.Fatalf("expected template to parse, got %v", err)
	}

	cfg := config.NewConfig()
	if err := f.Apply(cfg); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected valid configuration, got %v", err)
	}

	defaults := config.NewConfig()
	if cfg.TTL != defaults.TTL {
		t.Errorf("expected ttl %v, got %v", defaults.TTL, cfg.TTL)
	}
	if cfg.Threshold != defaults.Threshold {
		t.Errorf("expected threshold %v, got %v", defaults.Threshold, cfg.Threshold)
	}
	if cfg.MaxUploadSize != defaults.MaxUploadSize {
		t.Errorf("expected max upload size %d, got %d", defaults.MaxUploadSize, cfg.MaxUploadSize)
	}
	if !slices.Equal(cfg.ExplainClassNames, defaults.ExplainClassNames) {
		t.Errorf("expected class names %v, got %v", defaults.ExplainClassNames, cfg.ExplainClassNames)
	}
	if cfg.PrivilegedGroups[0]["gender"] != 1 || cfg.UnprivilegedGroups[0]["gender"] != 0 {
		t.Errorf("expected gender cohorts, got %v / %v", cfg.PrivilegedGroups, cfg.UnprivilegedGroups)
	}
}
