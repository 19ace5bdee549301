package main

import (
	"testing"
)

// TestNewRootCmd tests the root command creation.
func TestNewRootCmd(t *testing.T) {
	t.Parallel()

	cmd := NewRootCmd()

	t.Run("has correct use", func(t *testing.T) {
		t.Parallel()
		if cmd.Use != "fairhire" {
			t.Errorf("expected use 'fairhire', got %q", cmd.Use)
		}
	})

	t.Run("has descriptions", func(t *testing.T) {
		t.Parallel()
		if cmd.Short == "" || cmd.Long == "" {
			t.Error("expected non-empty short and long descriptions")
		}
	})

	t.Run("has version", func(t *testing.T) {
		t.Parallel()
		if cmd.Version == "" {
			t.Error("expected non-empty version")
		}
	})

	t.Run("has global flags", func(t *testing.T) {
		t.Parallel()

		tests := []struct {
			name      string
			shorthand string
			defValue  string
		}{
			{name: "verbose", shorthand: "v", defValue: "false"},
			{name: "config", shorthand: "c", defValue: ""},
			{name: "store", defValue: ""},
		}
		for _, tt := range tests {
			flag := cmd.PersistentFlags().Lookup(tt.name)
			if flag == nil {
				t.Errorf("expected %s flag", tt.name)
				continue
			}
			if flag.Shorthand != tt.shorthand {
				t.Errorf("%s: expected shorthand %q, got %q", tt.name, tt.shorthand, flag.Shorthand)
			}
			if flag.DefValue != tt.defValue {
				t.Errorf("%s: expected default %q, got %q", tt.name, tt.defValue, flag.DefValue)
			}
		}
	})

	t.Run("has subcommands", func(t *testing.T) {
		t.Parallel()

		names := map[string]bool{}
		for _, sub := range cmd.Commands() {
			names[sub.Name()] = true
		}
		for _, want := range []string{"audit", "show", "list", "delete", "compare", "serve", "init", "version"} {
			if !names[want] {
				t.Errorf("expected %s subcommand", want)
			}
		}
	})

	t.Run("silences usage and errors", func(t *testing.T) {
		t.Parallel()
		if !cmd.SilenceUsage {
			t.Error("expected SilenceUsage to be true")
		}
		if !cmd.SilenceErrors {
			t.Error("expected SilenceErrors to be true")
		}
	})
}

func TestGetVerboseFlag(t *testing.T) {
	t.Parallel()

	t.Run("reads the inherited flag", func(t *testing.T) {
		t.Parallel()

		cmd := NewRootCmd()
		listCmd, _, err := cmd.Find([]string{"list"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if err := listCmd.ParseFlags([]string{"-v"}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !getVerboseFlag(listCmd) {
			t.Error("expected verbose to be true")
		}
	})

	t.Run("defaults to false without the flag", func(t *testing.T) {
		t.Parallel()

		if getVerboseFlag(NewVersionCmd()) {
			t.Error("expected verbose to be false")
		}
	})
}
