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
	"io"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// noopLogger discards all records. Used when no logger is configured.
var noopLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

// Option configures a storage. Options that do not apply to the storage
// being built are ignored.
type Option func(*config)

type config struct {
	maxEntries    int
	ttl           time.Duration
	sweepInterval time.Duration
	keyPrefix     string
	client        redis.UniversalClient
	logger        *slog.Logger
}

func defaultConfig() config {
	return config{
		maxEntries:    1024,
		sweepInterval: time.Minute,
		keyPrefix:     "dispatch:",
		logger:        noopLogger,
	}
}

// WithMaxEntries caps the number of entries each in-memory cache holds
// before evicting least recently used ones. Memory storage only.
func WithMaxEntries(n int) Option {
	return func(c *config) {
		if n > 0 {
			c.maxEntries = n
		}
	}
}

// WithTTL sets the lifetime of stored entries. Zero means entries never
// expire.
func WithTTL(d time.Duration) Option {
	return func(c *config) {
		if d >= 0 {
			c.ttl = d
		}
	}
}

// WithSweepInterval sets how often expired entries are removed in the
// background. Zero disables the sweep; expired entries are then dropped
// lazily on access. Memory storage only.
func WithSweepInterval(d time.Duration) Option {
	return func(c *config) {
		if d >= 0 {
			c.sweepInterval = d
		}
	}
}

// WithKeyPrefix sets the namespace prepended to every Redis key. Redis
// storage only.
func WithKeyPrefix(prefix string) Option {
	return func(c *config) {
		if prefix != "" {
			c.keyPrefix = prefix
		}
	}
}

// WithClient supplies an existing Redis client instead of connecting
// from a URL. The caller keeps ownership; Close does not close it.
// Redis storage only.
func WithClient(client redis.UniversalClient) Option {
	return func(c *config) {
		c.client = client
	}
}

// WithLogger sets the logger for storage diagnostics. Defaults to a
// no-op logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *config) {
		if logger != nil {
			c.logger = logger
		}
	}
}
