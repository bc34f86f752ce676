package store

import (
	"encoding/gob"
	"os"
	"path/filepath"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// ReferenceEntry is one (type, name) outgoing edge as recorded in a
// DetectedReferenceContainer (spec.md §6).
type ReferenceEntry struct {
	Type string
	Name string
}

// DetectedReferenceContainer is the flat-file cache payload spec.md §6
// fixes at path <workspace>/<type>/<name>. encoding/gob is the codec: no
// serialization library appears anywhere in the retrieved example pack, and
// the cache's byte format is explicitly "delegated to the serialization
// collaborator" and out of core (spec.md §6), so the stdlib codec is the
// simplest choice that does not invent a format the spec never fixes (see
// DESIGN.md).
type DetectedReferenceContainer struct {
	References []ReferenceEntry
}

// Cache fronts the flat-file cache with a bounded in-memory LRU so hot
// entries skip the filesystem, grounded on alex60217101990-opa's and
// evalgo-org-eve's use of hashicorp/golang-lru/v2.
type Cache struct {
	root string
	lru  *lru.Cache[string, DetectedReferenceContainer]
}

// NewCache creates a cache rooted at workspaceRoot, holding up to size
// entries in memory.
func NewCache(workspaceRoot string, size int) (*Cache, error) {
	l, err := lru.New[string, DetectedReferenceContainer](size)
	if err != nil {
		return nil, err
	}
	return &Cache{root: workspaceRoot, lru: l}, nil
}

func (c *Cache) key(typ, name string) string { return typ + "/" + name }

func (c *Cache) path(typ, name string) string {
	return filepath.Join(c.root, typ, name)
}

// Load reads the container for (typ, name), checking the in-memory cache
// first. A missing file is reported as (zero, false, nil): the caller
// falls back to scheduling a resource request (spec.md §4.5, §7 "cache
// read failure falls back to scheduling a resource request").
func (c *Cache) Load(typ, name string) (DetectedReferenceContainer, bool, error) {
	key := c.key(typ, name)
	if v, ok := c.lru.Get(key); ok {
		return v, true, nil
	}
	f, err := os.Open(c.path(typ, name))
	if err != nil {
		if os.IsNotExist(err) {
			return DetectedReferenceContainer{}, false, nil
		}
		return DetectedReferenceContainer{}, false, err
	}
	defer f.Close()

	var container DetectedReferenceContainer
	if err := gob.NewDecoder(f).Decode(&container); err != nil {
		return DetectedReferenceContainer{}, false, err
	}
	c.lru.Add(key, container)
	return container, true, nil
}

// Store writes container to disk atomically (write-to-temp then rename),
// and primes the in-memory cache. On encode or close failure the partial
// temp file is removed before returning the error (spec.md §7 "cache write
// failure deletes the partial file").
func (c *Cache) Store(typ, name string, container DetectedReferenceContainer) error {
	dir := filepath.Join(c.root, typ)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	path := c.path(typ, name)
	tmp := path + ".tmp"

	f, err := os.Create(tmp)
	if err != nil {
		return err
	}
	if err := gob.NewEncoder(f).Encode(container); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return err
	}
	c.lru.Add(c.key(typ, name), container)
	return nil
}

// Mtime returns the cache file's modification time, used as
// cache_update_time in the Requested-tick decision (spec.md §4.5).
func (c *Cache) Mtime(typ, name string) (time.Time, error) {
	info, err := os.Stat(c.path(typ, name))
	if err != nil {
		return time.Time{}, err
	}
	return info.ModTime(), nil
}
