// Package library resolves model names to containers on disk and caches
// decrypted archives.
package library

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/Faultbox/ezmodel/pkg/ez"
)

// Library indexes .ez containers under a set of search directories.
// Directories are searched in reverse order (last added = highest priority).
type Library struct {
	mu    sync.RWMutex
	index map[string]string // lower-cased stem -> container path
	cache *Cache
}

// New creates an empty library.
func New() *Library {
	return &Library{
		index: make(map[string]string),
		cache: NewCache(),
	}
}

// AddDir indexes every container below dir. A later directory shadows
// earlier ones for the same model name.
func (l *Library) AddDir(dir string) error {
	found := make(map[string]string)
	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.EqualFold(filepath.Ext(path), ".ez") {
			return nil
		}
		// Within one directory the first path in walk order wins.
		if k := key(path); found[k] == "" {
			found[k] = path
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("indexing %s: %w", dir, err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	for k, p := range found {
		l.index[k] = p
	}
	return nil
}

// Names returns every indexed model name in sorted order.
func (l *Library) Names() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()

	names := make([]string, 0, len(l.index))
	for k := range l.index {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// Find returns the container path for a model name. Matching ignores case
// and an optional .ez extension.
func (l *Library) Find(name string) (string, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if p, ok := l.index[key(name)]; ok {
		return p, nil
	}
	return "", fmt.Errorf("model not found: %s", name)
}

// Open returns the decrypted archive for a model name, from cache when
// it was opened before.
func (l *Library) Open(name string) (*ez.Archive, error) {
	k := key(name)
	if archive, ok := l.cache.Get(k); ok {
		return archive, nil
	}

	path, err := l.Find(name)
	if err != nil {
		return nil, err
	}
	archive, err := ez.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	l.cache.Set(k, archive)
	return archive, nil
}

// Cache returns the archive cache.
func (l *Library) Cache() *Cache {
	return l.cache
}

func key(name string) string {
	base := filepath.Base(name)
	if strings.EqualFold(filepath.Ext(base), ".ez") {
		base = base[:len(base)-len(".ez")]
	}
	return strings.ToLower(base)
}

// Cache is an in-memory cache of opened archives.
type Cache struct {
	data map[string]*ez.Archive
	mu   sync.RWMutex

	hits   atomic.Int64
	misses atomic.Int64
}

// NewCache creates a new cache.
func NewCache() *Cache {
	return &Cache{
		data: make(map[string]*ez.Archive),
	}
}

// Get retrieves an archive from cache.
func (c *Cache) Get(key string) (*ez.Archive, bool) {
	c.mu.RLock()
	archive, ok := c.data[key]
	c.mu.RUnlock()

	if ok {
		c.hits.Add(1)
	} else {
		c.misses.Add(1)
	}
	return archive, ok
}

// Set stores an archive in cache.
func (c *Cache) Set(key string, archive *ez.Archive) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = archive
}

// Clear empties the cache and resets statistics.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data = make(map[string]*ez.Archive)
	c.hits.Store(0)
	c.misses.Store(0)
}

// Stats returns cache statistics.
func (c *Cache) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}
