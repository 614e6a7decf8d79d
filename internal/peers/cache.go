package peers

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

const cacheFileName = "peer-info.json"

// Cache is the on-disk peer-info cache. It is read-shared by concurrent
// runs and append-only on write: an entry that is still fresh is never
// overwritten, and persistence goes through an atomic rename so readers
// never observe a half-written file.
type Cache struct {
	dir string
	ttl time.Duration
}

// NewCache creates a cache rooted at dir with the given entry TTL.
func NewCache(dir string, ttl time.Duration) *Cache {
	return &Cache{dir: dir, ttl: ttl}
}

// Path returns the location of the cache file.
func (c *Cache) Path() string {
	return filepath.Join(c.dir, cacheFileName)
}

type cacheFile struct {
	Entries map[string]cacheEntry `json:"entries"`
}

type cacheEntry struct {
	Record   Record    `json:"record"`
	StoredAt time.Time `json:"stored_at"`
}

// cacheKey identifies an entry by package plus requested range, so the
// same package looked up under two ranges caches independently.
func cacheKey(name, rng string) string {
	return name + "@" + rng
}

// Get returns the cached record for a package and range if one exists and
// is within its TTL. Returned records carry the cache source marker.
func (c *Cache) Get(name, rng string) (*Record, bool) {
	file, err := c.load()
	if err != nil {
		return nil, false
	}

	entry, ok := file.Entries[cacheKey(name, rng)]
	if !ok || c.stale(entry) {
		return nil, false
	}

	rec := entry.Record
	rec.Source = SourceCache
	return &rec, true
}

// Put stores a record unless a fresh entry for the same key already
// exists. The whole file is rewritten to a temp file and renamed into
// place.
func (c *Cache) Put(name, rng string, rec *Record) error {
	file, err := c.load()
	if err != nil {
		file = &cacheFile{}
	}
	if file.Entries == nil {
		file.Entries = make(map[string]cacheEntry)
	}

	key := cacheKey(name, rng)
	if existing, ok := file.Entries[key]; ok && !c.stale(existing) {
		return nil
	}

	stored := *rec
	stored.Source = SourceRegistry
	file.Entries[key] = cacheEntry{Record: stored, StoredAt: time.Now()}

	return c.save(file)
}

// Clear removes the cache file.
func (c *Cache) Clear() error {
	err := os.Remove(c.Path())
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing peer cache: %w", err)
	}
	return nil
}

// Stats summarizes the cache for display.
type Stats struct {
	Path    string
	Entries int
	Fresh   int
	Stale   int
	Size    int64
}

// Stats reports the cache contents. A missing cache file yields zeroes.
func (c *Cache) Stats() (Stats, error) {
	stats := Stats{Path: c.Path()}

	info, err := os.Stat(c.Path())
	if os.IsNotExist(err) {
		return stats, nil
	}
	if err != nil {
		return stats, fmt.Errorf("reading peer cache: %w", err)
	}
	stats.Size = info.Size()

	file, err := c.load()
	if err != nil {
		return stats, err
	}
	for _, entry := range file.Entries {
		stats.Entries++
		if c.stale(entry) {
			stats.Stale++
		} else {
			stats.Fresh++
		}
	}
	return stats, nil
}

func (c *Cache) stale(entry cacheEntry) bool {
	return time.Since(entry.StoredAt) > c.ttl
}

func (c *Cache) load() (*cacheFile, error) {
	data, err := os.ReadFile(c.Path())
	if os.IsNotExist(err) {
		return &cacheFile{Entries: make(map[string]cacheEntry)}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading peer cache: %w", err)
	}

	var file cacheFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parsing peer cache: %w", err)
	}
	if file.Entries == nil {
		file.Entries = make(map[string]cacheEntry)
	}
	return &file, nil
}

func (c *Cache) save(file *cacheFile) error {
	if err := os.MkdirAll(c.dir, 0755); err != nil {
		return fmt.Errorf("creating cache directory: %w", err)
	}

	data, err := json.MarshalIndent(file, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling peer cache: %w", err)
	}

	tmp, err := os.CreateTemp(c.dir, cacheFileName+".tmp-*")
	if err != nil {
		return fmt.Errorf("creating temp cache file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("writing temp cache file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("closing temp cache file: %w", err)
	}
	if err := os.Chmod(tmpName, 0644); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("setting cache file mode: %w", err)
	}

	if err := os.Rename(tmpName, c.Path()); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replacing peer cache: %w", err)
	}
	return nil
}
