package watch

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/apex/log"
	lru "github.com/hashicorp/golang-lru/v2"
)

// SeenCache remembers which version of a report was already symbolicated
type SeenCache interface {
	Add(path, stamp string)
	Has(path, stamp string) bool
}

type MemoryCache struct {
	cache *lru.Cache[string, string]
}

type FileCache struct {
	mu   sync.Mutex
	path string
}

func NewMemoryCache(size int) (*MemoryCache, error) {
	lcache, err := lru.New[string, string](size)
	if err != nil {
		return nil, err
	}
	return &MemoryCache{
		cache: lcache,
	}, nil
}

func (c *MemoryCache) Add(path, stamp string) {
	c.cache.Add(path, stamp)
}

func (c *MemoryCache) Has(path, stamp string) bool {
	if val, ok := c.cache.Get(path); ok {
		return val == stamp
	}
	return false
}

// NewFileCache stores the seen reports as a JSON object at path
func NewFileCache(path string) (*FileCache, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, err
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		if err := os.WriteFile(path, []byte("{}"), 0644); err != nil {
			return nil, err
		}
	}

	return &FileCache{
		path: path,
	}, nil
}

func (c *FileCache) load() (map[string]string, error) {
	data, err := os.ReadFile(c.path)
	if err != nil {
		return nil, err
	}
	m := make(map[string]string)
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to parse watch cache %s: %v", c.path, err)
	}
	return m, nil
}

func (c *FileCache) Add(path, stamp string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	m, err := c.load()
	if err != nil {
		// on parse error, reset the cache
		log.WithError(err).Warn("resetting watch cache")
		m = make(map[string]string)
	}
	m[path] = stamp

	out, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		log.WithError(err).Error("failed to marshal cache JSON")
		return
	}
	if err := os.WriteFile(c.path, out, 0644); err != nil {
		log.WithError(err).Error("failed to write cache JSON")
	}
}

func (c *FileCache) Has(path, stamp string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	m, err := c.load()
	if err != nil {
		return false
	}
	return m[path] == stamp
}

// Stamp identifies one version of a file
func Stamp(fi os.FileInfo) string {
	return fmt.Sprintf("%d:%d", fi.ModTime().UnixNano(), fi.Size())
}
