// Copyright 2025 The Rivaas Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package cache

import (
	"container/list"
	"context"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"
)

// MemoryStorage hands out in-memory LRU caches, one per name. All
// caches share the storage's capacity and TTL configuration.
type MemoryStorage struct {
	cfg config

	mu     sync.Mutex
	caches map[string]*memoryCache
	closed bool
}

// NewMemoryStorage creates an in-memory storage.
func NewMemoryStorage(opts ...Option) *MemoryStorage {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	return &MemoryStorage{
		cfg:    cfg,
		caches: make(map[string]*memoryCache),
	}
}

// Open returns the cache registered under name, creating it on first
// use. It never fails unless the storage is closed.
func (s *MemoryStorage) Open(_ context.Context, name string) (Cache, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, ErrClosed
	}
	if c, ok := s.caches[name]; ok {
		return c, nil
	}

	c := newMemoryCache(name, s.cfg)
	s.caches[name] = c

	s.cfg.logger.Debug("memory cache opened",
		"name", name,
		"maxEntries", s.cfg.maxEntries,
		"ttl", s.cfg.ttl)

	return c, nil
}

// Close stops the background sweeps and drops all entries. The storage
// cannot be reopened.
func (s *MemoryStorage) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true

	for _, c := range s.caches {
		c.stop()
	}
	s.caches = nil

	return nil
}

// memoryCache is a single named LRU cache with optional entry TTL.
type memoryCache struct {
	name       string
	maxEntries int
	ttl        time.Duration
	logger     *slog.Logger

	mu       sync.Mutex
	items    map[string]*list.Element
	eviction *list.List

	hits   atomic.Int64
	misses atomic.Int64

	stopSweep chan struct{}
}

// memoryEntry is the eviction list payload.
type memoryEntry struct {
	key       string
	entry     *Entry
	expiresAt time.Time
}

func (e *memoryEntry) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && now.After(e.expiresAt)
}

func newMemoryCache(name string, cfg config) *memoryCache {
	c := &memoryCache{
		name:       name,
		maxEntries: cfg.maxEntries,
		ttl:        cfg.ttl,
		logger:     cfg.logger,
		items:      make(map[string]*list.Element),
		eviction:   list.New(),
		stopSweep:  make(chan struct{}),
	}

	if cfg.ttl > 0 && cfg.sweepInterval > 0 {
		go c.sweepLoop(cfg.sweepInterval)
	}

	return c
}

// Match returns the stored entry for the request, dropping it first if
// it has expired.
func (c *memoryCache) Match(_ context.Context, req *http.Request) (*Entry, error) {
	key := requestKey(req)

	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.items[key]
	if !ok {
		c.misses.Add(1)
		return nil, ErrMiss
	}

	me := elem.Value.(*memoryEntry)
	if me.expired(time.Now()) {
		c.removeElement(elem)
		c.misses.Add(1)
		return nil, ErrMiss
	}

	c.eviction.MoveToFront(elem)
	c.hits.Add(1)

	return me.entry.clone(), nil
}

// Put stores a copy of the entry, evicting least recently used entries
// when over capacity.
func (c *memoryCache) Put(_ context.Context, req *http.Request, entry *Entry) error {
	key := requestKey(req)

	var expiresAt time.Time
	if c.ttl > 0 {
		expiresAt = time.Now().Add(c.ttl)
	}

	me := &memoryEntry{
		key:       key,
		entry:     entry.clone(),
		expiresAt: expiresAt,
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.items[key]; ok {
		c.eviction.MoveToFront(elem)
		elem.Value = me
		return nil
	}

	c.items[key] = c.eviction.PushFront(me)

	for c.eviction.Len() > c.maxEntries {
		if oldest := c.eviction.Back(); oldest != nil {
			c.removeElement(oldest)
		}
	}

	return nil
}

// Delete removes the entry for the request if present.
func (c *memoryCache) Delete(_ context.Context, req *http.Request) (bool, error) {
	key := requestKey(req)

	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.items[key]
	if !ok {
		return false, nil
	}
	c.removeElement(elem)
	return true, nil
}

// Stats returns hit, miss, and size counters.
func (c *memoryCache) Stats() Stats {
	c.mu.Lock()
	entries := int64(c.eviction.Len())
	c.mu.Unlock()

	return Stats{
		Hits:    c.hits.Load(),
		Misses:  c.misses.Load(),
		Entries: entries,
	}
}

// removeElement drops an element from both structures. Lock must be
// held.
func (c *memoryCache) removeElement(elem *list.Element) {
	c.eviction.Remove(elem)
	delete(c.items, elem.Value.(*memoryEntry).key)
}

// stop ends the sweep goroutine and drops all entries.
func (c *memoryCache) stop() {
	close(c.stopSweep)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = make(map[string]*list.Element)
	c.eviction.Init()
}

// sweepLoop periodically removes expired entries so idle caches do not
// pin memory until the next access.
func (c *memoryCache) sweepLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.sweep()
		case <-c.stopSweep:
			return
		}
	}
}

func (c *memoryCache) sweep() {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	var expired []*list.Element
	for elem := c.eviction.Back(); elem != nil; elem = elem.Prev() {
		if elem.Value.(*memoryEntry).expired(now) {
			expired = append(expired, elem)
		}
	}
	for _, elem := range expired {
		c.removeElement(elem)
	}

	if len(expired) > 0 {
		c.logger.Debug("memory cache sweep",
			"name", c.name,
			"removed", len(expired))
	}
}
