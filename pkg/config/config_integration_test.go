package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/fluxorio/lineserve/pkg/config"
)

func TestLoadConfig_FileAndEnvOverrides(t *testing.T) {
	yamlContent := `
server:
  addr: "127.0.0.1:8000"
  workers: 2
content:
  root: "www"
log:
  level: "debug"
`
	tmpFile := filepath.Join(t.TempDir(), "lineserve.yaml")
	if err := os.WriteFile(tmpFile, []byte(yamlContent), 0644); err != nil {
		t.Fatalf("Failed to create temp file: %v", err)
	}

	t.Setenv("LINESERVE_SERVER_ADDR", "127.0.0.1:9000")
	t.Setenv("LINESERVE_CONTENT_RELOAD", "true")

	cfg, err := config.LoadConfig(tmpFile)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	// Environment variables should override file values
	if cfg.Server.Addr != "127.0.0.1:9000" {
		t.Errorf("Server.Addr = %v, want 127.0.0.1:9000", cfg.Server.Addr)
	}
	if !cfg.Content.Reload {
		t.Errorf("Content.Reload = false, want true")
	}
	// Workers should remain from file (no env override)
	if cfg.Server.Workers != 2 {
		t.Errorf("Server.Workers = %v, want 2", cfg.Server.Workers)
	}
	if cfg.Content.Root != "www" || cfg.Log.Level != "debug" {
		t.Errorf("content/log = %+v %+v", cfg.Content, cfg.Log)
	}
}

func TestLoadConfig_NoFileUsesDefaults(t *testing.T) {
	cfg, err := config.LoadConfig("")
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Server.Addr != "127.0.0.1:7878" || cfg.Content.Root != "public" {
		t.Errorf("unexpected defaults: %+v", cfg)
	}
}

func TestLoadConfig_Invalid(t *testing.T) {
	t.Setenv("LINESERVE_SERVER_WORKERS", "0")
	if _, err := config.LoadConfig(""); err == nil {
		t.Fatal("expected validation error for zero workers")
	}
}

func TestLoadConfig_MissingFile(t *testing.T) {
	if _, err := config.LoadConfig(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}
