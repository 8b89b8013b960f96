// Package assets handles model loading and caching.
package assets

import (
	"fmt"
	"path/filepath"
	"sync"

	"go.uber.org/zap"

	"github.com/Faultbox/skelanim/internal/importer"
	"github.com/Faultbox/skelanim/internal/logger"
	"github.com/Faultbox/skelanim/pkg/scene"
	"github.com/Faultbox/skelanim/pkg/skeleton"
)

// LoadFunc reads a model file into a scene.
type LoadFunc func(path string) (*scene.Scene, error)

// Manager builds skinned models from files and caches them by path and
// options. Cached models are immutable and shared by every caller.
type Manager struct {
	load  LoadFunc
	opts  skeleton.Options
	cache *Cache
	log   *zap.Logger
}

// NewManager creates a manager that reads glTF files.
func NewManager(opts skeleton.Options) *Manager {
	return NewManagerWithLoader(opts, importer.Load)
}

// NewManagerWithLoader creates a manager that reads files with load.
func NewManagerWithLoader(opts skeleton.Options, load LoadFunc) *Manager {
	return &Manager{
		load:  load,
		opts:  opts,
		cache: NewCache(),
		log:   logger.Named("assets"),
	}
}

// Load returns the model for path, building it on first use. The returned
// diagnostics are those of the build that populated the cache.
func (m *Manager) Load(path string) (*Entry, error) {
	key, err := filepath.Abs(path)
	if err != nil {
		key = path
	}

	if e, ok := m.cache.Get(key); ok {
		return e, nil
	}

	s, err := m.load(path)
	if err != nil {
		return nil, err
	}

	model, diags, err := skeleton.NewModel(s, m.opts)
	if err != nil {
		return nil, fmt.Errorf("building model %s: %w", path, err)
	}
	logger.Diagnostics(m.log, path, diags)

	m.log.Info("model loaded",
		zap.String("path", path),
		zap.String("id", model.ID),
		zap.Int("nodes", model.Hierarchy().Len()),
		zap.Int("bones", model.BoneCount()),
		zap.Int("warnings", len(diags)))

	e := &Entry{Path: path, Model: model, Diagnostics: diags}
	return m.cache.Add(key, e), nil
}

// Stats returns cache statistics.
func (m *Manager) Stats() (hits, misses int) {
	return m.cache.Stats()
}

// Close drops every cached model.
func (m *Manager) Close() {
	m.cache.Clear()
}

// Entry is one cached model.
type Entry struct {
	Path        string
	Model       *skeleton.Model
	Diagnostics skeleton.Diagnostics
}

// Cache is a simple in-memory cache for built models.
type Cache struct {
	data map[string]*Entry
	mu   sync.Mutex

	// Stats
	hits   int
	misses int
}

// NewCache creates a new cache.
func NewCache() *Cache {
	return &Cache{
		data: make(map[string]*Entry),
	}
}

// Get retrieves an item from cache.
func (c *Cache) Get(key string) (*Entry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.data[key]
	if ok {
		c.hits++
	} else {
		c.misses++
	}
	return e, ok
}

// Add stores e unless another caller cached key first, and returns the
// entry that ended up cached.
func (c *Cache) Add(key string, e *Entry) *Entry {
	c.mu.Lock()
	defer c.mu.Unlock()

	if existing, ok := c.data[key]; ok {
		return existing
	}
	c.data[key] = e
	return e
}

// Len returns the number of cached entries.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.data)
}

// Clear clears the cache.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data = make(map[string]*Entry)
	c.hits = 0
	c.misses = 0
}

// Stats returns cache statistics.
func (c *Cache) Stats() (hits, misses int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hits, c.misses
}
