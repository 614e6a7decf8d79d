package library

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadMissingFile(t *testing.T) {
	cfg, err := Load(t.TempDir())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(cfg.Sources) != 0 {
		t.Errorf("Sources = %v, want empty registry", cfg.Sources)
	}
}

func TestSaveAndLoadRoundTrip(t *testing.T) {
	configDir := t.TempDir()
	cfg := &Config{Sources: []Source{
		{Name: "company", Path: "/srv/templates"},
		{Name: "personal", Path: "/home/dev/templates"},
	}}

	if err := Save(configDir, cfg); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded, err := Load(configDir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(loaded.Sources) != 2 {
		t.Fatalf("Sources = %v, want 2 entries", loaded.Sources)
	}
	if loaded.Sources[0].Name != "company" || loaded.Sources[1].Name != "personal" {
		t.Errorf("source order not preserved: %v", loaded.Sources)
	}
	if loaded.Sources[0].Path != "/srv/templates" {
		t.Errorf("Path = %q", loaded.Sources[0].Path)
	}
}

func TestLoadCorruptFile(t *testing.T) {
	configDir := t.TempDir()
	if err := os.WriteFile(filepath.Join(configDir, ConfigFile), []byte(":\tnot yaml"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(configDir); err == nil {
		t.Error("expected error for corrupt registry file")
	}
}

func TestAdd(t *testing.T) {
	dir := t.TempDir()
	cfg := &Config{}

	if err := cfg.Add(Source{Name: "company", Path: dir}); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if cfg.Find("company") == nil {
		t.Error("Find returned nil after Add")
	}
}

func TestAddRejectsDuplicateName(t *testing.T) {
	dir := t.TempDir()
	cfg := &Config{}

	if err := cfg.Add(Source{Name: "company", Path: dir}); err != nil {
		t.Fatalf("first Add: %v", err)
	}
	if err := cfg.Add(Source{Name: "company", Path: dir}); err == nil {
		t.Error("duplicate Add succeeded, want error")
	}
}

func TestAddRejectsMissingPath(t *testing.T) {
	cfg := &Config{}
	err := cfg.Add(Source{Name: "ghost", Path: filepath.Join(t.TempDir(), "nope")})
	if err == nil {
		t.Error("Add with a missing path succeeded, want error")
	}
}

func TestAddRejectsEmptyName(t *testing.T) {
	cfg := &Config{}
	if err := cfg.Add(Source{Name: "", Path: t.TempDir()}); err == nil {
		t.Error("Add with an empty name succeeded, want error")
	}
}

func TestRemove(t *testing.T) {
	dir := t.TempDir()
	cfg := &Config{}
	if err := cfg.Add(Source{Name: "company", Path: dir}); err != nil {
		t.Fatalf("Add: %v", err)
	}

	if err := cfg.Remove("company"); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if cfg.Find("company") != nil {
		t.Error("Find returned a source after Remove")
	}

	if err := cfg.Remove("company"); err == nil {
		t.Error("second Remove succeeded, want error")
	}
}
