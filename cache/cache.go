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
	"errors"
	"net/http"
)

var (
	// ErrMiss indicates that no entry is stored for the request.
	ErrMiss = errors.New("cache miss")

	// ErrClosed indicates that the storage has been closed.
	ErrClosed = errors.New("cache storage closed")
)

// Storage opens named caches. Implementations must be safe for
// concurrent use; Open may be called repeatedly with the same name and
// must return a cache backed by the same entries each time.
type Storage interface {
	// Open returns the cache registered under name, creating it on
	// first use. The context bounds any connection setup.
	Open(ctx context.Context, name string) (Cache, error)

	// Close releases all caches held by the storage.
	Close() error
}

// Cache stores serialized response exchanges keyed by request identity.
type Cache interface {
	// Match returns the entry stored for the request, or ErrMiss.
	Match(ctx context.Context, req *http.Request) (*Entry, error)

	// Put stores an entry for the request, replacing any existing one.
	Put(ctx context.Context, req *http.Request, entry *Entry) error

	// Delete removes the entry stored for the request. It reports
	// whether an entry was removed.
	Delete(ctx context.Context, req *http.Request) (bool, error)

	// Stats returns hit and miss counters for the cache.
	Stats() Stats
}

// Entry is a cached response exchange.
type Entry struct {
	StatusCode int         `json:"status"`
	Header     http.Header `json:"header,omitempty"`
	Body       []byte      `json:"body,omitempty"`
}

// clone returns a deep copy so callers cannot mutate stored entries.
func (e *Entry) clone() *Entry {
	if e == nil {
		return nil
	}
	out := &Entry{StatusCode: e.StatusCode}
	if e.Header != nil {
		out.Header = e.Header.Clone()
	}
	if e.Body != nil {
		out.Body = append([]byte(nil), e.Body...)
	}
	return out
}

// Stats reports cache effectiveness counters.
type Stats struct {
	// Hits is the number of Match calls that found an entry.
	Hits int64

	// Misses is the number of Match calls that returned ErrMiss.
	Misses int64

	// Entries is the current number of stored entries, when the
	// backend can report it cheaply.
	Entries int64
}

// HitRate returns the hit percentage over all Match calls.
func (s Stats) HitRate() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total) * 100
}

// requestKey derives the storage key for a request. The query string is
// re-encoded in sorted key order so parameter order does not split
// entries.
func requestKey(req *http.Request) string {
	key := req.Method + ":" + req.URL.EscapedPath()
	if q := req.URL.Query().Encode(); q != "" {
		key += "?" + q
	}
	return key
}
