package config

import (
	"os"
	"path/filepath"
	"testing"
)

func chdir(t *testing.T, dir string) {
	t.Helper()
	prev, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		if err := os.Chdir(prev); err != nil {
			t.Fatal(err)
		}
	})
}

func TestLoadDefaultsWhenNoFile(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Workers != 2 || cfg.MaxDepth != 3 || cfg.RootSlug != "index" {
		t.Errorf("defaults = %+v", cfg)
	}
	if cfg.DBPath != filepath.Join(dir, ".tendril", "tendril.db") {
		t.Errorf("db path = %q, want resolved under %q", cfg.DBPath, dir)
	}
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	body := []byte("root_slug: home\nmax_depth: 5\nworkers: 4\ngenerator:\n  binary: claude\n  timeout_seconds: 120\n")
	path := filepath.Join(dir, FileName)
	if err := os.WriteFile(path, body, 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.RootSlug != "home" || cfg.MaxDepth != 5 || cfg.Workers != 4 {
		t.Errorf("cfg = %+v", cfg)
	}
	if cfg.Generator.TimeoutSeconds != 120 {
		t.Errorf("generator timeout = %d, want 120", cfg.Generator.TimeoutSeconds)
	}
	if cfg.Dir != dir {
		t.Errorf("cfg.Dir = %q, want %q", cfg.Dir, dir)
	}
}

func TestLoadDiscoversUpward(t *testing.T) {
	root := t.TempDir()
	if _, err := Write(root); err != nil {
		t.Fatalf("Write: %v", err)
	}
	nested := filepath.Join(root, "a", "b")
	if err := os.MkdirAll(nested, 0o755); err != nil {
		t.Fatal(err)
	}
	chdir(t, nested)

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Dir != root {
		t.Errorf("cfg.Dir = %q, want project root %q", cfg.Dir, root)
	}
	if len(cfg.Seeds) == 0 || len(cfg.Palette) == 0 {
		t.Errorf("starter config missing seeds or palette: %+v", cfg)
	}
}

func TestEnvOverrides(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)
	t.Setenv("TENDRIL_DB", "/var/lib/tendril/graph.db")
	t.Setenv("TENDRIL_GENERATOR", "/opt/bin/claude")
	t.Setenv("TENDRIL_WORKERS", "7")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.DBPath != "/var/lib/tendril/graph.db" {
		t.Errorf("db path = %q", cfg.DBPath)
	}
	if cfg.Generator.Binary != "/opt/bin/claude" {
		t.Errorf("generator = %q", cfg.Generator.Binary)
	}
	if cfg.Workers != 7 {
		t.Errorf("workers = %d", cfg.Workers)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	dir := t.TempDir()
	body := []byte("max_depth: 0\n")
	path := filepath.Join(dir, FileName)
	if err := os.WriteFile(path, body, 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("Load accepted max_depth 0")
	}
}

func TestWriteRefusesOverwrite(t *testing.T) {
	dir := t.TempDir()
	if _, err := Write(dir); err != nil {
		t.Fatalf("first Write: %v", err)
	}
	if _, err := Write(dir); err == nil {
		t.Fatal("second Write should fail")
	}
}
