package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadMissingFile(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Import.BatchRows != 10000 {
		t.Errorf("BatchRows = %d, want default 10000", cfg.Import.BatchRows)
	}
	if cfg.Import.BatchBytes != 16<<20 {
		t.Errorf("BatchBytes = %d, want default 16MiB", cfg.Import.BatchBytes)
	}
}

func TestLoadOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := "store:\n  path: /tmp/other.db\nimport:\n  batch_rows: 500\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Store.Path != "/tmp/other.db" {
		t.Errorf("Store.Path = %q", cfg.Store.Path)
	}
	if cfg.Import.BatchRows != 500 {
		t.Errorf("BatchRows = %d, want 500", cfg.Import.BatchRows)
	}
	// Unset fields keep defaults
	if cfg.Server.Listen != "localhost:8980" {
		t.Errorf("Listen = %q, want default", cfg.Server.Listen)
	}
}

func TestLoadInvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("store: [broken"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("expected parse error")
	}
}
