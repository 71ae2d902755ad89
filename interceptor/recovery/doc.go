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

// Package recovery provides an interceptor that converts handler panics
// into error responses instead of letting them crash the dispatch.
//
// The dispatch engine already contains panics and surfaces them as
// *dispatch.PanicError; without this interceptor they reach ServeHTTP
// and produce a bare 500. This interceptor intercepts the error during
// unwind, logs the panic with its stack trace, and builds a graceful
// JSON error response. It also marks the active OpenTelemetry span with
// exception information when tracing is configured.
//
// # Basic Usage
//
//	r := dispatch.MustNew()
//	r.Use(recovery.New())
//
// Register it first so it observes panics from every interceptor and
// handler downstream.
//
// # Custom Recovery Handler
//
//	r.Use(recovery.New(
//	    recovery.WithHandler(func(c *dispatch.Context, v any) (*dispatch.Response, error) {
//	        return c.JSON(http.StatusInternalServerError, map[string]any{
//	            "error":      "Something went wrong",
//	            "request_id": requestid.Get(c),
//	        })
//	    }),
//	))
//
// # OpenTelemetry Integration
//
// When the request context carries a recording span, the interceptor
// adds an exception event with:
//
//   - exception.escaped: true (the panic escaped the handler)
//   - exception.type: type of the panic value
//   - exception.message: string form of the panic value
package recovery
