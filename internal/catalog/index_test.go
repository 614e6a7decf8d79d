package catalog

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDiscoverCachedWritesIndex(t *testing.T) {
	root := testLibrary(t)
	indexPath := filepath.Join(t.TempDir(), "index.json")

	entries, err := DiscoverCached(root, indexPath)
	if err != nil {
		t.Fatalf("DiscoverCached: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("got %d entries, want 3", len(entries))
	}

	if _, err := os.Stat(indexPath); err != nil {
		t.Errorf("index file not written: %v", err)
	}
}

func TestDiscoverCachedServesFromIndex(t *testing.T) {
	root := testLibrary(t)
	indexPath := filepath.Join(t.TempDir(), "index.json")

	if _, err := DiscoverCached(root, indexPath); err != nil {
		t.Fatalf("first call: %v", err)
	}

	// Plant a marker entry in the index. While the library mtimes are
	// unchanged the second call must return it instead of rediscovering.
	idx, err := loadIndex(indexPath)
	if err != nil {
		t.Fatalf("loading index: %v", err)
	}
	idx.Entries = []Entry{{SDK: "cached", Name: "marker", Visible: true}}
	data, _ := json.Marshal(idx)
	if err := os.WriteFile(indexPath, data, 0644); err != nil {
		t.Fatalf("rewriting index: %v", err)
	}

	entries, err := DiscoverCached(root, indexPath)
	if err != nil {
		t.Fatalf("second call: %v", err)
	}
	if len(entries) != 1 || entries[0].Key() != "cached/marker" {
		t.Errorf("entries = %v, want the planted marker", entries)
	}
}

func TestDiscoverCachedInvalidatesOnChange(t *testing.T) {
	root := testLibrary(t)
	indexPath := filepath.Join(t.TempDir(), "index.json")

	if _, err := DiscoverCached(root, indexPath); err != nil {
		t.Fatalf("first call: %v", err)
	}

	writeManifest(t, root, "cache", "redis", `{
  "name": "redis",
  "description": "Redis caching layer",
  "packages": [],
  "envVars": [],
  "files": {}
}`)
	// Force a visible mtime bump; directory mtimes have coarse precision
	// on some filesystems.
	future := time.Now().Add(2 * time.Second)
	os.Chtimes(root, future, future)

	entries, err := DiscoverCached(root, indexPath)
	if err != nil {
		t.Fatalf("second call: %v", err)
	}
	if len(entries) != 4 {
		t.Errorf("got %d entries after adding a template, want 4", len(entries))
	}
}

func TestIndexValidRejectsOtherRoot(t *testing.T) {
	rootA := testLibrary(t)
	rootB := testLibrary(t)
	indexPath := filepath.Join(t.TempDir(), "index.json")

	if _, err := DiscoverCached(rootA, indexPath); err != nil {
		t.Fatalf("DiscoverCached: %v", err)
	}

	idx, err := loadIndex(indexPath)
	if err != nil {
		t.Fatalf("loading index: %v", err)
	}
	if indexValid(idx, rootB) {
		t.Error("index built for one root accepted for another")
	}
	if !indexValid(idx, rootA) {
		t.Error("index rejected for its own root")
	}
}

func TestLoadIndexBadJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.json")
	os.WriteFile(path, []byte("not json"), 0644)
	if _, err := loadIndex(path); err == nil {
		t.Error("expected error for bad JSON")
	}
}

func TestClearIndex(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index.json")
	os.WriteFile(path, []byte("{}"), 0644)

	if err := ClearIndex(path); err != nil {
		t.Fatalf("ClearIndex: %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("index file still present")
	}
	if err := ClearIndex(path); err != nil {
		t.Errorf("ClearIndex on missing file: %v", err)
	}
}

func TestLatestMtimeMissingDir(t *testing.T) {
	if got := latestMtime(filepath.Join(t.TempDir(), "nope")); got != 0 {
		t.Errorf("latestMtime = %d, want 0", got)
	}
}

func TestDefaultIndexPath(t *testing.T) {
	path := DefaultIndexPath()
	if filepath.Base(path) != "catalog-index.json" {
		t.Errorf("base = %q", filepath.Base(path))
	}
}
