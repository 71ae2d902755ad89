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

// Package cache provides named response caches for the dispatcher.
//
// A Storage hands out caches by name. Routes registered with a cache
// descriptor ask the storage for the cache of that name during dispatch;
// if the storage cannot open it, dispatch continues without caching.
//
// # Storages
//
// Two storages are provided:
//
//   - NewMemoryStorage: per-name in-memory LRU caches with optional TTL
//     and a background sweep for expired entries.
//   - NewRedisStorage: a shared Redis connection with per-name key
//     namespaces and JSON-serialized entries.
//
// # Keys
//
// Entries are keyed by the request method, escaped path, and the query
// string re-encoded in sorted key order, so equivalent requests hit the
// same entry regardless of parameter order:
//
//	GET:/users/42?page=1&sort=asc
//
// # Usage
//
//	storage := cache.NewMemoryStorage(cache.WithTTL(5 * time.Minute))
//	defer storage.Close()
//
//	c, err := storage.Open(ctx, "articles")
//	if err != nil {
//		// dispatch proceeds uncached
//	}
//	entry, err := c.Match(ctx, req)
//	if errors.Is(err, cache.ErrMiss) {
//		// produce the response, then c.Put(ctx, req, entry)
//	}
package cache
