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

package dispatch

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"rivaas.dev/dispatch/cache"
	"rivaas.dev/dispatch/urlmatch"
)

// noopLogger is a singleton no-op logger used when no observability is configured.
var noopLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

// NoopLogger returns the singleton no-op logger.
// This is used by implementations of ObservabilityRecorder when logging is disabled.
func NoopLogger() *slog.Logger {
	return noopLogger
}

// Option defines functional options for router configuration.
type Option func(*Router)

// notFoundTemplate is the template sentinel reported for requests that
// matched no route. Keeping it out of the template namespace bounds
// metric cardinality.
const notFoundTemplate = "_not_found"

// knownMethods are the HTTP verbs accepted at registration time.
var knownMethods = map[string]bool{
	http.MethodGet:     true,
	http.MethodHead:    true,
	http.MethodPost:    true,
	http.MethodPut:     true,
	http.MethodPatch:   true,
	http.MethodDelete:  true,
	http.MethodConnect: true,
	http.MethodOptions: true,
	http.MethodTrace:   true,
}

// anyMethods are the verbs registered by Any and the route builder's
// Any, in registration order.
var anyMethods = []string{
	http.MethodGet,
	http.MethodHead,
	http.MethodPost,
	http.MethodPut,
	http.MethodPatch,
	http.MethodDelete,
	http.MethodOptions,
}

// Router matches requests against registered routes and runs each
// match through the interceptor chain and handler.
//
// Routes are matched by full URL: templates may constrain protocol,
// host, port, path, and query. Within a method, routes are tried in
// registration order and the first match wins; there is no specificity
// scoring. Routes are immutable once registered - the table is
// append-only and rebuilt lazily before the next dispatch.
//
// The Router is safe for concurrent use. Registration may happen
// concurrently with dispatching; in-flight dispatches keep matching
// against the table snapshot they started with.
//
// Example:
//
//	r := dispatch.MustNew()
//	r.GET("/users/:id", func(c *dispatch.Context) (*dispatch.Response, error) {
//	    return c.JSON(http.StatusOK, map[string]string{"id": c.Param("id")})
//	})
//	http.ListenAndServe(":8080", r)
type Router struct {
	table *routeTable

	interceptors  []interceptorEntry
	interceptorMu sync.RWMutex

	notFound   HandlerFunc
	notFoundMu sync.RWMutex

	storage cache.Storage
	caches  sync.Map // cache name -> cache.Cache, successes only

	observability ObservabilityRecorder
	diagnostics   DiagnosticHandler
	logger        *slog.Logger

	caseSensitive     bool
	checkCancellation bool

	enableH2C      bool
	serverTimeouts *serverTimeouts
	server         *http.Server
	serverMu       sync.Mutex
}

// serverTimeouts holds HTTP server timeout configuration.
type serverTimeouts struct {
	readHeader time.Duration
	read       time.Duration
	write      time.Duration
	idle       time.Duration
}

// New creates a router with optional configuration.
//
// The returned router is ready to use and safe for concurrent access.
// Configuration is validated immediately; for a version that panics on
// invalid configuration, use MustNew.
//
// Example:
//
//	r, err := dispatch.New(
//	    dispatch.WithCacheStorage(cache.NewMemoryStorage()),
//	    dispatch.WithLogger(slog.Default()),
//	)
//	if err != nil {
//	    log.Fatalf("invalid router configuration: %v", err)
//	}
func New(opts ...Option) (*Router, error) {
	r := &Router{
		table:             newRouteTable(),
		logger:            noopLogger,
		checkCancellation: true,
	}

	for _, opt := range opts {
		opt(r)
	}

	if err := r.validate(); err != nil {
		return nil, fmt.Errorf("router configuration validation failed: %w", err)
	}

	return r, nil
}

// MustNew creates a router and panics if configuration is invalid.
// Convenience wrapper around New for applications that should fail at
// startup on bad configuration.
func MustNew(opts ...Option) *Router {
	r, err := New(opts...)
	if err != nil {
		panic(fmt.Sprintf("dispatch.MustNew: %v", err))
	}
	return r
}

// validate checks the router configuration for common errors.
func (r *Router) validate() error {
	if t := r.serverTimeouts; t != nil {
		if t.readHeader <= 0 || t.read <= 0 || t.write <= 0 || t.idle <= 0 {
			return ErrServerTimeoutInvalid
		}
	}
	return nil
}

// Handle registers a route for the given method and template. The
// method is upper-cased; unknown verbs, nil handlers, and invalid
// templates panic, since they are programming errors best caught at
// startup.
//
// The template may constrain any URL component and carry a query
// mini-language suffix:
//
//	r.Handle("GET", "/users/:id", getUser)
//	r.Handle("GET", "/search?q=:query&lang=:lang?", search)
//	r.Handle("GET", "https://:tenant.example.com/dashboard", dashboard)
//
// Options attach route metadata, such as the cache descriptor:
//
//	r.Handle("GET", "/articles/:id", getArticle, dispatch.WithCache("articles"))
func (r *Router) Handle(method, template string, handler HandlerFunc, opts ...RouteOption) *Router {
	method = strings.ToUpper(method)
	if !knownMethods[method] {
		panic(fmt.Sprintf("dispatch: register %q %q: %v", method, template, ErrUnknownMethod))
	}
	if handler == nil {
		panic(fmt.Sprintf("dispatch: register %s %q: %v", method, template, ErrNilHandler))
	}

	var cfg routeConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	matcher, err := urlmatch.New(template, r.matcherOptions()...)
	if err != nil {
		panic(fmt.Sprintf("dispatch: register %s %q: %v", method, template, err))
	}

	r.table.add(&route{
		method:    method,
		template:  template,
		matcher:   matcher,
		handler:   handler,
		cacheName: cfg.cacheName,
	})

	r.emit(DiagRouteRegistered, "route registered", map[string]any{
		"method":   method,
		"template": template,
		"cache":    cfg.cacheName,
	})

	return r
}

// matcherOptions translates router configuration into matcher options.
func (r *Router) matcherOptions() []urlmatch.Option {
	if r.caseSensitive {
		return []urlmatch.Option{urlmatch.CaseSensitive()}
	}
	return nil
}

// GET registers a route for GET requests.
func (r *Router) GET(template string, handler HandlerFunc, opts ...RouteOption) *Router {
	return r.Handle(http.MethodGet, template, handler, opts...)
}

// HEAD registers a route for HEAD requests.
func (r *Router) HEAD(template string, handler HandlerFunc, opts ...RouteOption) *Router {
	return r.Handle(http.MethodHead, template, handler, opts...)
}

// POST registers a route for POST requests.
func (r *Router) POST(template string, handler HandlerFunc, opts ...RouteOption) *Router {
	return r.Handle(http.MethodPost, template, handler, opts...)
}

// PUT registers a route for PUT requests.
func (r *Router) PUT(template string, handler HandlerFunc, opts ...RouteOption) *Router {
	return r.Handle(http.MethodPut, template, handler, opts...)
}

// PATCH registers a route for PATCH requests.
func (r *Router) PATCH(template string, handler HandlerFunc, opts ...RouteOption) *Router {
	return r.Handle(http.MethodPatch, template, handler, opts...)
}

// DELETE registers a route for DELETE requests.
func (r *Router) DELETE(template string, handler HandlerFunc, opts ...RouteOption) *Router {
	return r.Handle(http.MethodDelete, template, handler, opts...)
}

// OPTIONS registers a route for OPTIONS requests.
func (r *Router) OPTIONS(template string, handler HandlerFunc, opts ...RouteOption) *Router {
	return r.Handle(http.MethodOptions, template, handler, opts...)
}

// Any registers the route for every common verb (GET, HEAD, POST, PUT,
// PATCH, DELETE, OPTIONS).
func (r *Router) Any(template string, handler HandlerFunc, opts ...RouteOption) *Router {
	for _, method := range anyMethods {
		r.Handle(method, template, handler, opts...)
	}
	return r
}

// Use registers resumable interceptors. They run around every dispatch:
// Before in registration order, After in reverse via the unwind stack.
// Registering nil panics.
func (r *Router) Use(interceptors ...Interceptor) *Router {
	entries := make([]interceptorEntry, 0, len(interceptors))
	for _, ic := range interceptors {
		if ic == nil {
			panic(fmt.Sprintf("dispatch: %v", ErrNilInterceptor))
		}
		entries = append(entries, interceptorEntry{
			kind: kindResumable,
			name: interceptorName(ic),
			ic:   ic,
		})
	}
	r.appendInterceptors(entries)
	return r
}

// UseFunc registers one-shot interceptors. They run before the handler
// in registration order and have no after phase. Registering nil panics.
func (r *Router) UseFunc(fns ...InterceptorFunc) *Router {
	entries := make([]interceptorEntry, 0, len(fns))
	for _, fn := range fns {
		if fn == nil {
			panic(fmt.Sprintf("dispatch: %v", ErrNilInterceptor))
		}
		entries = append(entries, interceptorEntry{
			kind: kindOneShot,
			name: interceptorName(fn),
			fn:   fn,
		})
	}
	r.appendInterceptors(entries)
	return r
}

func (r *Router) appendInterceptors(entries []interceptorEntry) {
	r.interceptorMu.Lock()
	r.interceptors = append(r.interceptors, entries...)
	r.interceptorMu.Unlock()
}

// snapshotInterceptors returns the current chain. Dispatches run on the
// snapshot taken at their start.
func (r *Router) snapshotInterceptors() []interceptorEntry {
	r.interceptorMu.RLock()
	defer r.interceptorMu.RUnlock()

	out := make([]interceptorEntry, len(r.interceptors))
	copy(out, r.interceptors)
	return out
}

// NotFound sets the handler for requests that match no route. The
// global interceptor chain still runs around it. Passing nil restores
// the default plain-text 404.
func (r *Router) NotFound(handler HandlerFunc) {
	r.notFoundMu.Lock()
	defer r.notFoundMu.Unlock()
	r.notFound = handler
}

func (r *Router) notFoundHandler() HandlerFunc {
	r.notFoundMu.RLock()
	h := r.notFound
	r.notFoundMu.RUnlock()

	if h == nil {
		return defaultNotFound
	}
	return h
}

func defaultNotFound(c *Context) (*Response, error) {
	return c.String(http.StatusNotFound, "404 page not found")
}

// emit sends a diagnostic event if a handler is configured.
func (r *Router) emit(kind DiagnosticKind, message string, fields map[string]any) {
	if r.diagnostics != nil {
		r.diagnostics.OnDiagnostic(DiagnosticEvent{
			Kind:    kind,
			Message: message,
			Fields:  fields,
		})
	}
}

// openCache returns the named cache, opening it through the configured
// storage on first use. Failures are logged and reported as nil so the
// dispatch proceeds uncached; only successful opens are memoized.
func (r *Router) openCache(ctx context.Context, name string, logger *slog.Logger) cache.Cache {
	if r.storage == nil {
		return nil
	}
	if v, ok := r.caches.Load(name); ok {
		return v.(cache.Cache)
	}

	c, err := r.storage.Open(ctx, name)
	if err != nil {
		logger.Warn("cache open failed, dispatching uncached",
			"cache", name,
			"error", err)
		r.emit(DiagCacheOpenFailed, "cache open failed", map[string]any{
			"cache": name,
			"error": err.Error(),
		})
		return nil
	}

	actual, _ := r.caches.LoadOrStore(name, c)
	return actual.(cache.Cache)
}
