package catalog

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/stacksmith-labs/stacksmith/internal/config"
)

// indexFileName is the listing cache kept under the config directory.
const indexFileName = "catalog-index.json"

// cachedIndex holds a discovered listing along with the library mtime
// used for invalidation.
type cachedIndex struct {
	Root     string    `json:"root"`
	RootMod  int64     `json:"root_mod"`
	Entries  []Entry   `json:"entries"`
	CachedAt time.Time `json:"cached_at"`
}

// DefaultIndexPath returns the index file location under the config dir.
func DefaultIndexPath() string {
	return filepath.Join(config.Dir(), indexFileName)
}

// DiscoverCached returns the library listing, serving it from the index
// file while the library's directory mtimes are unchanged. A stale or
// missing index triggers a rediscovery and a best-effort rewrite.
func DiscoverCached(root, indexPath string) ([]Entry, error) {
	cached, err := loadIndex(indexPath)
	if err == nil && indexValid(cached, root) {
		return cached.Entries, nil
	}

	entries, err := Discover(root)
	if err != nil {
		return nil, err
	}

	// Listing still works if the index cannot be written.
	writeIndex(indexPath, root, entries)
	return entries, nil
}

// ClearIndex removes the index file. A missing file is not an error.
func ClearIndex(path string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// loadIndex reads and parses the index file.
func loadIndex(path string) (*cachedIndex, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var idx cachedIndex
	if err := json.Unmarshal(data, &idx); err != nil {
		return nil, err
	}
	return &idx, nil
}

// indexValid reports whether the index still matches the library. The
// mtime check catches added and removed templates; an in-place manifest
// edit keeps the cached entry until something else touches the tree.
func indexValid(idx *cachedIndex, root string) bool {
	if idx == nil || idx.Root != root || idx.RootMod == 0 {
		return false
	}
	return latestMtime(root) == idx.RootMod
}

// latestMtime returns the newest modification time (unix seconds) across
// the library root, the sdk directories, and the template directories one
// level below. A shallow scan is enough to notice structural changes
// without a full walk.
func latestMtime(root string) int64 {
	var latest int64
	info, err := os.Stat(root)
	if err != nil {
		return 0
	}
	if t := info.ModTime().Unix(); t > latest {
		latest = t
	}

	sdks, err := os.ReadDir(root)
	if err != nil {
		return latest
	}
	for _, sdk := range sdks {
		if !sdk.IsDir() {
			continue
		}
		sdkDir := filepath.Join(root, sdk.Name())
		if fi, err := os.Stat(sdkDir); err == nil {
			if t := fi.ModTime().Unix(); t > latest {
				latest = t
			}
		}
		templates, err := os.ReadDir(sdkDir)
		if err != nil {
			continue
		}
		for _, tpl := range templates {
			if !tpl.IsDir() {
				continue
			}
			if fi, err := os.Stat(filepath.Join(sdkDir, tpl.Name())); err == nil {
				if t := fi.ModTime().Unix(); t > latest {
					latest = t
				}
			}
		}
	}
	return latest
}

// writeIndex serializes the listing and the library mtime to disk.
func writeIndex(path, root string, entries []Entry) {
	idx := cachedIndex{
		Root:     root,
		RootMod:  latestMtime(root),
		Entries:  entries,
		CachedAt: time.Now(),
	}

	data, err := json.MarshalIndent(idx, "", "  ")
	if err != nil {
		return
	}

	os.MkdirAll(filepath.Dir(path), 0755)
	os.WriteFile(path, data, 0644)
}
