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

// Package requestid provides an interceptor that assigns a unique ID to
// every request for tracing and log correlation.
//
// The ID is stored in the request context for handlers and downstream
// interceptors, and reported on the response header during unwind. By
// default IDs are UUIDv7 (time-ordered), the header is X-Request-ID,
// and client-supplied IDs are accepted.
//
// # Basic Usage
//
//	r := dispatch.MustNew()
//	r.Use(requestid.New())
//
//	r.GET("/orders/:id", func(c *dispatch.Context) (*dispatch.Response, error) {
//		c.Logger().Info("fetching order", "request_id", requestid.Get(c))
//		return c.JSON(http.StatusOK, order)
//	})
//
// # ULID Generation
//
// ULIDs are lexicographically sortable and encode their timestamp,
// which makes them convenient keys for log aggregation:
//
//	r.Use(requestid.New(requestid.WithULID()))
package requestid

import (
	"context"
	"crypto/rand"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"

	"rivaas.dev/dispatch"
)

// DefaultHeader is the header used to read and report request IDs
// unless overridden with WithHeader.
const DefaultHeader = "X-Request-ID"

// contextKey is the context key under which the request ID is stored.
type contextKey struct{}

// Option configures the interceptor.
type Option func(*config)

type config struct {
	header        string
	generator     func() string
	allowClientID bool
}

// WithHeader sets the header used both to accept client-supplied IDs
// and to report the ID on the response.
func WithHeader(name string) Option {
	return func(cfg *config) {
		if name != "" {
			cfg.header = name
		}
	}
}

// WithGenerator replaces the ID generator. The function must be safe
// for concurrent use.
func WithGenerator(fn func() string) Option {
	return func(cfg *config) {
		if fn != nil {
			cfg.generator = fn
		}
	}
}

// WithULID generates ULIDs instead of UUIDv7.
func WithULID() Option {
	return func(cfg *config) {
		cfg.generator = newULIDGenerator()
	}
}

// WithAllowClientID controls whether an ID supplied by the client in
// the request header is trusted and propagated. Enabled by default;
// disable it on public-facing routers where clients should not pick
// their own correlation IDs.
func WithAllowClientID(allow bool) Option {
	return func(cfg *config) {
		cfg.allowClientID = allow
	}
}

type requestID struct {
	cfg config
}

// New returns the request ID interceptor. Register it with Router.Use
// before interceptors that log, so their log lines carry the ID.
func New(opts ...Option) dispatch.Interceptor {
	cfg := config{
		header:        DefaultHeader,
		generator:     generateUUIDv7,
		allowClientID: true,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &requestID{cfg: cfg}
}

// Before resolves the request ID and stores it in the request context.
// The ID rides in the state so After sees the value resolved for this
// request even if the context is replaced mid-chain.
func (ri *requestID) Before(c *dispatch.Context) (*dispatch.Response, any, error) {
	var id string
	if ri.cfg.allowClientID {
		id = c.Request.Header.Get(ri.cfg.header)
	}
	if id == "" {
		id = ri.cfg.generator()
	}

	ctx := context.WithValue(c.Context(), contextKey{}, id)
	c.Request = c.Request.WithContext(ctx)
	return nil, id, nil
}

// After reports the ID on the response header so clients can correlate
// responses with server-side logs.
func (ri *requestID) After(c *dispatch.Context, state any, res *dispatch.Response, err error) (*dispatch.Response, error) {
	if res != nil {
		if res.Header == nil {
			res.Header = make(http.Header)
		}
		res.Header.Set(ri.cfg.header, state.(string))
	}
	return res, err
}

// Get returns the request ID for the current request, or "" when the
// interceptor is not registered.
func Get(c *dispatch.Context) string {
	return FromContext(c.Context())
}

// FromContext returns the request ID stored in ctx, or "".
func FromContext(ctx context.Context) string {
	id, _ := ctx.Value(contextKey{}).(string)
	return id
}

// generateUUIDv7 is the default generator. UUIDv7 is time-ordered,
// which keeps IDs roughly sortable by arrival.
func generateUUIDv7() string {
	return uuid.Must(uuid.NewV7()).String()
}

// newULIDGenerator returns a generator backed by a monotonic entropy
// source. The source is not safe for concurrent use, so calls are
// serialized with a mutex.
func newULIDGenerator() func() string {
	entropy := ulid.Monotonic(rand.Reader, 0)
	var mu sync.Mutex
	return func() string {
		mu.Lock()
		defer mu.Unlock()
		return ulid.MustNew(ulid.Timestamp(time.Now()), entropy).String()
	}
}
