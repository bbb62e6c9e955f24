package symbolicate

import (
	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/singleflight"
)

// Cache remembers which dSYM bundle was remapped for each binary image,
// so dsymutil runs at most once per image. Failures are not remembered.
// It is safe for concurrent use.
type Cache struct {
	paths *lru.Cache[uuid.UUID, string]
	group singleflight.Group
}

// NewCache creates a cache holding up to size images.
// Size it to the report's image count so nothing is evicted mid-report.
func NewCache(size int) *Cache {
	if size < 1 {
		size = 1
	}
	paths, err := lru.New[uuid.UUID, string](size)
	if err != nil {
		panic(err) // only fails for size <= 0
	}
	return &Cache{paths: paths}
}

// Get returns the cached dSYM path for the image id
func (c *Cache) Get(id uuid.UUID) (string, bool) {
	return c.paths.Get(id)
}

// Len returns the number of cached images
func (c *Cache) Len() int {
	return c.paths.Len()
}

// GetOrCompute returns the cached path for id or runs compute to find it.
// Concurrent callers for the same id share a single compute call.
func (c *Cache) GetOrCompute(id uuid.UUID, compute func() (string, error)) (string, error) {
	if path, ok := c.paths.Get(id); ok {
		return path, nil
	}
	v, err, _ := c.group.Do(id.String(), func() (any, error) {
		// a previous flight may have finished since the lookup above
		if path, ok := c.paths.Get(id); ok {
			return path, nil
		}
		path, err := compute()
		if err != nil {
			return "", err
		}
		c.paths.Add(id, path)
		return path, nil
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}
