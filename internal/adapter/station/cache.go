package station

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/couchcryptid/heatwave-etl/internal/domain"
)

// CachedDir wraps a Dir with an in-memory LRU cache of parsed series. An entry
// is reused only while the station file's modification time is unchanged.
// Cached series are shared between callers and must not be modified.
type CachedDir struct {
	*Dir
	cache *lruCache
}

// NewCachedDir creates a cache decorator around dir holding up to maxEntries
// station/variable series.
func NewCachedDir(dir *Dir, maxEntries int) *CachedDir {
	return &CachedDir{
		Dir:   dir,
		cache: newLRUCache(maxEntries),
	}
}

// LoadSeries returns the cached series for station and variable, reading the
// file again when it changed since it was cached.
func (c *CachedDir) LoadSeries(ctx context.Context, station string, variable domain.Variable) (domain.Series, error) {
	path, err := c.Path(station)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("open station file: %w", err)
	}

	key := fmt.Sprintf("%s|%s", variable, station)
	if v, ok := c.cache.get(key); ok && v.modTime.Equal(info.ModTime()) {
		return v.series, nil
	}

	series, err := c.Dir.LoadSeries(ctx, station, variable)
	if err != nil {
		return nil, err
	}
	c.cache.put(key, cachedSeries{series: series, modTime: info.ModTime()})
	return series, nil
}

// Len reports the number of cached series.
func (c *CachedDir) Len() int {
	c.cache.mu.Lock()
	defer c.cache.mu.Unlock()
	return len(c.cache.entries)
}

type cachedSeries struct {
	series  domain.Series
	modTime time.Time
}

// lruCache is a simple thread-safe LRU cache of parsed series.
type lruCache struct {
	maxEntries int
	mu         sync.Mutex
	entries    map[string]*entry
	head       *entry // most recently used
	tail       *entry // least recently used
}

type entry struct {
	key   string
	value cachedSeries
	prev  *entry
	next  *entry
}

func newLRUCache(maxEntries int) *lruCache {
	return &lruCache{
		maxEntries: maxEntries,
		entries:    make(map[string]*entry),
	}
}

func (c *lruCache) get(key string) (cachedSeries, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return cachedSeries{}, false
	}
	c.moveToFront(e)
	return e.value, true
}

func (c *lruCache) put(key string, value cachedSeries) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.entries[key]; ok {
		e.value = value
		c.moveToFront(e)
		return
	}

	e := &entry{key: key, value: value}
	c.entries[key] = e
	c.addToFront(e)

	if len(c.entries) > c.maxEntries {
		c.evictTail()
	}
}

func (c *lruCache) moveToFront(e *entry) {
	if e == c.head {
		return
	}
	c.remove(e)
	c.addToFront(e)
}

func (c *lruCache) addToFront(e *entry) {
	e.next = c.head
	e.prev = nil
	if c.head != nil {
		c.head.prev = e
	}
	c.head = e
	if c.tail == nil {
		c.tail = e
	}
}

func (c *lruCache) remove(e *entry) {
	if e.prev != nil {
		e.prev.next = e.next
	} else {
		c.head = e.next
	}
	if e.next != nil {
		e.next.prev = e.prev
	} else {
		c.tail = e.prev
	}
}

func (c *lruCache) evictTail() {
	if c.tail == nil {
		return
	}
	delete(c.entries, c.tail.key)
	c.remove(c.tail)
}
