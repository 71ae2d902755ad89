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
	"log/slog"
	"net/http"
)

// ObservabilityRecorder provides unified observability lifecycle hooks
// for dispatched requests. Implementations typically combine metrics
// collection, distributed tracing, and access logging.
//
// Lifecycle:
//  1. ServeHTTP calls OnRequestStart(ctx, req) → (enrichedCtx, state).
//     The enriched context is always attached to the request, even when
//     the request is excluded, so trace propagation keeps working. The
//     state token is opaque to the router; nil means the request is
//     excluded from the remaining hooks.
//  2. ServeHTTP wraps the ResponseWriter via WrapResponseWriter only
//     when state is non-nil.
//  3. The dispatch engine calls BuildRequestLogger once the route
//     template is known; the returned logger is exposed on the Context.
//  4. ServeHTTP calls OnRequestEnd(ctx, state, writer, template) after
//     the response is written, only when state is non-nil. The writer
//     implements ResponseInfo when it was wrapped in step 2.
//
// The template passed to BuildRequestLogger and OnRequestEnd is the
// matched route template (for example "/users/:id"), or the sentinel
// "_not_found" when no route matched. Implementations should label
// metrics and traces by template, never the raw path, to bound
// cardinality.
//
// All methods must be safe for concurrent use.
type ObservabilityRecorder interface {
	// OnRequestStart is called before matching begins. Return the
	// (possibly enriched) context and an opaque state token; return a
	// nil state to exclude the request from wrapping and OnRequestEnd.
	OnRequestStart(ctx context.Context, req *http.Request) (context.Context, any)

	// WrapResponseWriter wraps the writer to capture response metadata.
	// The wrapped writer should implement ResponseInfo. When state is
	// nil the original writer must be returned unchanged.
	WrapResponseWriter(w http.ResponseWriter, state any) http.ResponseWriter

	// BuildRequestLogger returns the request-scoped logger exposed as
	// Context.Logger. Implementations usually bind the template and
	// trace identifiers as attributes.
	BuildRequestLogger(ctx context.Context, req *http.Request, template string) *slog.Logger

	// OnRequestEnd is called after the response is written. Extract
	// status and size by asserting writer to ResponseInfo.
	OnRequestEnd(ctx context.Context, state any, writer http.ResponseWriter, template string)
}

// ResponseInfo is implemented by response writers that track response
// metadata. Wrapped writers returned by WrapResponseWriter should
// implement it so OnRequestEnd can extract status and size.
type ResponseInfo interface {
	StatusCode() int
	Size() int64
}
