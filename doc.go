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

// Package dispatch routes HTTP-style requests through URL templates
// and an interceptor chain with before/after phases and LIFO unwind
// semantics.
//
// Routes match against the full URL, not just the path: templates may
// constrain protocol, host, port, path, and query parameters, with
// named captures in any component. Within a method, routes are tried
// in registration order and the first match wins.
//
// # Basic Usage
//
//	r := dispatch.MustNew()
//
//	r.GET("/users/:id", func(c *dispatch.Context) (*dispatch.Response, error) {
//	    return c.JSON(http.StatusOK, map[string]string{"id": c.Param("id")})
//	})
//
//	log.Fatal(r.Serve(":8080"))
//
// The router implements http.Handler, so it also plugs into an
// existing server. Dispatch runs the same engine without a
// ResponseWriter for tests and non-HTTP transports.
//
// # Templates
//
// Path templates support named captures, optional and repeated
// segments, wildcards, and inline patterns:
//
//	r.GET("/users/:id", getUser)              // named capture
//	r.GET("/files/:name?", listOrGet)         // optional segment
//	r.GET("/docs/:chapters+", getChapters)    // one or more segments
//	r.GET("/static/*", serveStatic)           // wildcard, param "0"
//	r.GET("/orders/:id(\\d+)", getOrder)      // inline pattern
//
// A "?" after the path starts a query pattern with its own
// mini-language: required captures, optional captures, literals,
// wildcard values, and bare presence keys, matched order-independently
// against the candidate's query:
//
//	r.GET("/search?q=:query&lang=:lang?", search)
//
// Templates with a protocol or authority constrain the whole URL:
//
//	r.GET("https://:tenant.example.com/dashboard", dashboard)
//	r.GET("postgres://db.internal::port/health", dbHealth)
//
// # Handlers and Interceptors
//
// Handlers take a Context and return a Response or an error. The
// Context exposes unified captures, the matched template, a
// request-scoped logger, the route's cache, and render helpers (JSON,
// YAML, String, Data, Stream, Redirect).
//
// Interceptors run around every dispatch. Resumable interceptors
// (Use) have a before phase and an after phase; after phases run in
// reverse registration order and may recover errors or replace the
// response. One-shot interceptors (UseFunc) run before the handler
// only. A before phase returning a response short-circuits the chain;
// panics anywhere become *PanicError and unwind like errors.
//
// Rewriting c.Request.URL in a before phase re-dispatches against the
// new URL. If the URL still differs from the original when the chain
// finishes, the client gets a synthesized redirect instead of the
// computed response; rewrites to another origin fail with
// ErrCrossOriginRewrite.
//
// Ready-made interceptors live under interceptor/: request IDs, panic
// recovery, access logging, response caching, and rate limiting.
//
//	r.Use(recovery.New())
//	r.Use(requestid.New())
//	r.Use(accesslog.New())
//
// # Caching
//
// Routes opt into response caching with a named descriptor, resolved
// lazily against the configured storage (in-memory LRU or Redis):
//
//	r := dispatch.MustNew(dispatch.WithCacheStorage(cache.NewMemoryStorage()))
//	r.GET("/articles/:id", getArticle, dispatch.WithCache("articles"))
//
// A cache that fails to open degrades that request to uncached
// dispatch; the failure is logged and reported as a diagnostic, never
// surfaced to the client.
//
// # Observability
//
// WithObservability attaches a recorder that enriches the request
// context, wraps the response writer, builds per-request loggers, and
// records metrics when requests complete. WithDiagnostics surfaces
// router internals (route registration, cache open failures, mid-chain
// re-dispatches) as structured events.
package dispatch
