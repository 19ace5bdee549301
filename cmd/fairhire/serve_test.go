package main

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/nao1215/fairhire/internal/config"
	fhlog "github.com/nao1215/fairhire/internal/log"
)

func TestNewServeCmd(t *testing.T) {
	t.Parallel()

	cmd := NewServeCmd()

	t.Run("has addr flag", func(t *testing.T) {
		t.Parallel()
		flag := cmd.Flags().Lookup("addr")
		if flag == nil {
			t.Fatal("expected addr flag")
		}
		if flag.DefValue != config.DefaultAddr {
			t.Errorf("expected default %q, got %q", config.DefaultAddr, flag.DefValue)
		}
	})

	t.Run("has max-upload-size flag", func(t *testing.T) {
		t.Parallel()
		if cmd.Flags().Lookup("max-upload-size") == nil {
			t.Fatal("expected max-upload-size flag")
		}
	})
}

func TestBuildServeConfig(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	cmd := NewRootCmd()
	serveCmd, _, err := cmd.Find([]string{"serve"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	err = serveCmd.ParseFlags([]string{
		"--config", env.configPath,
		"--store", "memory",
		"--addr", "127.0.0.1:0",
		"--max-upload-size", "1024",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	cfg, err := buildServeConfig(serveCmd)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Store != config.StoreMemory {
		t.Errorf("expected memory store, got %q", cfg.Store)
	}
	if cfg.Addr != "127.0.0.1:0" {
		t.Errorf("expected addr 127.0.0.1:0, got %q", cfg.Addr)
	}
	if cfg.MaxUploadSize != 1024 {
		t.Errorf("expected max upload size 1024, got %d", cfg.MaxUploadSize)
	}
	if cfg.ExplainSamples != 100 {
		t.Errorf("expected explain samples from file 100, got %d", cfg.ExplainSamples)
	}
}

func TestServeStopsWithContext(t *testing.T) {
	t.Parallel()

	cfg := config.NewConfig()
	cfg.Store = config.StoreMemory
	cfg.Addr = "127.0.0.1:0"
	cfg.ShutdownTimeout = time.Second

	ctx, cancel := context.WithCancel(t.Context())
	errCh := make(chan error, 1)
	go func() {
		errCh <- serve(ctx, cfg, fhlog.NewSecureJSONLogger(io.Discard, false))
	}()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-errCh:
		if err != nil {
			t.Errorf("expected clean shutdown, got %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}

func TestServeFailsOnBadAddr(t *testing.T) {
	t.Parallel()

	cfg := config.NewConfig()
	cfg.Store = config.StoreMemory
	cfg.Addr = "256.0.0.1:-1"

	if err := serve(t.Context(), cfg, fhlog.NewSecureJSONLogger(io.Discard, false)); err == nil {
		t.Error("expected listen error, got nil")
	}
}
