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
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStorage hands out caches backed by a shared Redis connection.
// Each name gets its own key namespace under the configured prefix.
type RedisStorage struct {
	cfg        config
	client     redis.UniversalClient
	ownsClient bool

	mu     sync.Mutex
	opened map[string]*redisCache
	pinged bool
	closed bool
}

// NewRedisStorage creates a Redis storage from a connection URL such as
// "redis://localhost:6379/0". When WithClient is given, url is ignored
// and the supplied client is used instead.
//
// The connection is verified lazily on the first Open so that a Redis
// outage surfaces as an open failure rather than a construction error.
func NewRedisStorage(url string, opts ...Option) (*RedisStorage, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	s := &RedisStorage{
		cfg:    cfg,
		opened: make(map[string]*redisCache),
	}

	if cfg.client != nil {
		s.client = cfg.client
		return s, nil
	}

	ropts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("cache: parse redis url: %w", err)
	}
	s.client = redis.NewClient(ropts)
	s.ownsClient = true

	return s, nil
}

// Open returns the cache registered under name. The first call verifies
// the connection with a ping bounded by ctx.
func (s *RedisStorage) Open(ctx context.Context, name string) (Cache, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, ErrClosed
	}
	if c, ok := s.opened[name]; ok {
		return c, nil
	}

	if !s.pinged {
		if err := s.client.Ping(ctx).Err(); err != nil {
			return nil, fmt.Errorf("cache: open %q: %w", name, err)
		}
		s.pinged = true
	}

	c := &redisCache{
		client: s.client,
		prefix: s.cfg.keyPrefix + name + ":",
		ttl:    s.cfg.ttl,
		logger: s.cfg.logger,
	}
	s.opened[name] = c

	s.cfg.logger.Debug("redis cache opened",
		"name", name,
		"prefix", c.prefix,
		"ttl", s.cfg.ttl)

	return c, nil
}

// Close closes the Redis connection when the storage owns it. Clients
// supplied through WithClient stay open.
func (s *RedisStorage) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	s.opened = nil

	if s.ownsClient {
		return s.client.Close()
	}
	return nil
}

// redisCache stores JSON-serialized entries under a per-name prefix.
type redisCache struct {
	client redis.UniversalClient
	prefix string
	ttl    time.Duration
	logger *slog.Logger

	hits   atomic.Int64
	misses atomic.Int64
}

func (c *redisCache) key(req *http.Request) string {
	return c.prefix + requestKey(req)
}

// Match returns the stored entry for the request. Entries that fail to
// decode are dropped and reported as misses.
func (c *redisCache) Match(ctx context.Context, req *http.Request) (*Entry, error) {
	key := c.key(req)

	data, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		c.misses.Add(1)
		return nil, ErrMiss
	}
	if err != nil {
		return nil, fmt.Errorf("cache: redis get: %w", err)
	}

	var entry Entry
	if err := json.Unmarshal(data, &entry); err != nil {
		c.logger.Warn("redis cache entry corrupt, dropping",
			"key", key,
			"error", err)
		c.client.Del(ctx, key)
		c.misses.Add(1)
		return nil, ErrMiss
	}

	c.hits.Add(1)
	return &entry, nil
}

// Put stores the entry, applying the storage TTL. A zero TTL keeps the
// entry until it is deleted.
func (c *redisCache) Put(ctx context.Context, req *http.Request, entry *Entry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("cache: encode entry: %w", err)
	}

	if err := c.client.Set(ctx, c.key(req), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("cache: redis set: %w", err)
	}
	return nil
}

// Delete removes the entry for the request if present.
func (c *redisCache) Delete(ctx context.Context, req *http.Request) (bool, error) {
	n, err := c.client.Del(ctx, c.key(req)).Result()
	if err != nil {
		return false, fmt.Errorf("cache: redis del: %w", err)
	}
	return n > 0, nil
}

// Stats returns hit and miss counters. Entry counts are not tracked for
// Redis, counting keys per prefix is not cheap.
func (c *redisCache) Stats() Stats {
	return Stats{
		Hits:   c.hits.Load(),
		Misses: c.misses.Load(),
	}
}
