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
	"log/slog"
	"time"

	"rivaas.dev/dispatch/cache"
)

// WithObservability attaches an observability recorder to the router.
// The recorder participates in the request lifecycle: it can enrich
// the request context, wrap the response writer, build per-request
// loggers, and record metrics when the request completes.
//
// Example:
//
//	rec, _ := metrics.New(metrics.WithPrometheus())
//	r := dispatch.MustNew(dispatch.WithObservability(rec))
func WithObservability(rec ObservabilityRecorder) Option {
	return func(r *Router) {
		r.observability = rec
	}
}

// WithCacheStorage configures the storage backend that route caches
// are opened from. Routes opt in per route with WithCache; without a
// storage those routes dispatch uncached.
//
// Example:
//
//	r := dispatch.MustNew(dispatch.WithCacheStorage(cache.NewMemoryStorage()))
//	r.GET("/articles/:id", getArticle, dispatch.WithCache("articles"))
func WithCacheStorage(storage cache.Storage) Option {
	return func(r *Router) {
		r.storage = storage
	}
}

// WithLogger sets the router's base logger. It is used for router-level
// events and for requests when no observability recorder is configured
// or the recorder returns a nil request logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Router) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithDiagnostics enables diagnostic event reporting for router
// internals: route registration, cache open failures, in-flight URL
// re-dispatches. Useful for debugging and monitoring router behavior
// without attaching a debugger.
//
// Example:
//
//	r := dispatch.MustNew(dispatch.WithDiagnostics(
//	    dispatch.DiagnosticHandlerFunc(func(e dispatch.DiagnosticEvent) {
//	        log.Printf("[%s] %s %v", e.Kind, e.Message, e.Fields)
//	    }),
//	))
func WithDiagnostics(handler DiagnosticHandler) Option {
	return func(r *Router) {
		r.diagnostics = handler
	}
}

// WithCaseSensitiveRouting makes path and host matching case-sensitive.
// The default treats /Users and /users as the same route.
func WithCaseSensitiveRouting() Option {
	return func(r *Router) {
		r.caseSensitive = true
	}
}

// WithCancellationCheck enables or disables context cancellation checks
// between chain phases. When enabled (the default), a request whose
// context is already cancelled stops before the next interceptor or the
// handler runs, and the dispatch fails with the context's error. Frames
// already on the unwind stack still run.
//
// Disable if you handle cancellation inside handlers yourself.
//
// Example:
//
//	r := dispatch.MustNew(dispatch.WithCancellationCheck(false))
func WithCancellationCheck(enabled bool) Option {
	return func(r *Router) {
		r.checkCancellation = enabled
	}
}

// WithoutCancellationCheck disables context cancellation checks between
// chain phases. Equivalent to WithCancellationCheck(false).
func WithoutCancellationCheck() Option {
	return func(r *Router) {
		r.checkCancellation = false
	}
}

// WithH2C enables HTTP/2 cleartext (h2c) support on servers started
// with Serve. Allows HTTP/2 without TLS for internal services and
// development. Has no effect on ServeTLS, which negotiates HTTP/2
// through ALPN.
func WithH2C() Option {
	return func(r *Router) {
		r.enableH2C = true
	}
}

// WithServerTimeouts overrides the timeouts applied to servers started
// with Serve and ServeTLS. All four values must be positive or New
// fails with ErrServerTimeoutInvalid.
//
// The defaults (read header 5s, read 15s, write 30s, idle 60s) suit
// typical APIs; raise the write timeout for streaming endpoints.
func WithServerTimeouts(readHeader, read, write, idle time.Duration) Option {
	return func(r *Router) {
		r.serverTimeouts = &serverTimeouts{
			readHeader: readHeader,
			read:       read,
			write:      write,
			idle:       idle,
		}
	}
}

// defaultServerTimeouts returns the timeouts used when none are
// configured.
func defaultServerTimeouts() *serverTimeouts {
	return &serverTimeouts{
		readHeader: 5 * time.Second,
		read:       15 * time.Second,
		write:      30 * time.Second,
		idle:       60 * time.Second,
	}
}

// RouteOption defines per-route configuration applied at registration.
type RouteOption func(*routeConfig)

// routeConfig collects per-route settings.
type routeConfig struct {
	cacheName string
}

// WithCache attaches a named cache descriptor to the route. The cache
// is opened lazily from the router's storage on the route's first
// dispatch; open failures are logged and the route dispatches uncached.
//
// The name becomes part of the storage key, so distinct routes may
// share one cache by using the same name.
func WithCache(name string) RouteOption {
	return func(cfg *routeConfig) {
		cfg.cacheName = name
	}
}
