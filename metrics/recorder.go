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

package metrics

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"rivaas.dev/dispatch"
)

// Recorder implements the router's observability lifecycle.
var _ dispatch.ObservabilityRecorder = (*Recorder)(nil)

// requestState carries per-request metrics data between the lifecycle
// hooks. It is the opaque state token the router threads through.
type requestState struct {
	start time.Time
	attrs []attribute.KeyValue
}

// OnRequestStart begins observation: it snapshots the start time,
// builds the base attribute set, and bumps the active-request gauge.
// Excluded paths and disabled recorders return a nil state, removing
// the request from the remaining hooks.
func (r *Recorder) OnRequestStart(ctx context.Context, req *http.Request) (context.Context, any) {
	if !r.enabled || r.excludePaths[req.URL.Path] {
		return ctx, nil
	}

	s := &requestState{start: time.Now()}

	s.attrs = make([]attribute.KeyValue, 3, 8+len(r.recordHeaders))
	s.attrs[0] = r.serviceNameAttr
	s.attrs[1] = r.serviceVersionAttr
	s.attrs[2] = attribute.String("http.method", req.Method)

	for i, header := range r.recordHeaders {
		if value := req.Header.Get(header); value != "" {
			s.attrs = append(s.attrs,
				attribute.String("http.request.header."+r.recordHeadersLower[i], value))
		}
	}

	set := metric.WithAttributes(s.attrs...)
	r.activeRequests.Add(ctx, 1, set)
	if req.ContentLength > 0 {
		r.requestSize.Record(ctx, req.ContentLength, set)
	}

	return ctx, s
}

// WrapResponseWriter wraps the writer to capture status and size. The
// wrapped writer implements dispatch.ResponseInfo.
func (r *Recorder) WrapResponseWriter(w http.ResponseWriter, state any) http.ResponseWriter {
	if state == nil {
		return w
	}
	return &responseWriter{ResponseWriter: w}
}

// BuildRequestLogger derives the request-scoped logger from the
// configured request logger, binding method and route template. A nil
// return tells the router to fall back to its base logger.
func (r *Recorder) BuildRequestLogger(ctx context.Context, req *http.Request, template string) *slog.Logger {
	if !r.enabled || r.requestLogger == nil {
		return nil
	}
	return r.requestLogger.With(
		"http.method", req.Method,
		"http.route", template,
	)
}

// OnRequestEnd completes observation: duration, request count,
// response size, and error count are recorded labeled by the route
// template, and the active-request gauge is released with the exact
// attribute set it was bumped with.
func (r *Recorder) OnRequestEnd(ctx context.Context, state any, writer http.ResponseWriter, template string) {
	s, ok := state.(*requestState)
	if !ok || s == nil {
		return
	}

	duration := time.Since(s.start).Seconds()

	status := http.StatusOK
	size := int64(0)
	if info, ok := writer.(dispatch.ResponseInfo); ok {
		status = info.StatusCode()
		size = info.Size()
	}

	r.activeRequests.Add(ctx, -1, metric.WithAttributes(s.attrs...))

	final := append(s.attrs,
		attribute.Int("http.status_code", status),
		attribute.String("http.status_class", statusClass(status)),
		attribute.String("http.route", template),
	)
	set := metric.WithAttributes(final...)

	r.requestDuration.Record(ctx, duration, set)
	r.requestCount.Add(ctx, 1, set)
	if status >= 400 {
		r.errorCount.Add(ctx, 1, set)
	}
	if size > 0 {
		r.responseSize.Record(ctx, size, set)
	}
}

// statusClass buckets a status code into 2xx/3xx/4xx/5xx.
func statusClass(statusCode int) string {
	switch statusCode / 100 {
	case 2:
		return "2xx"
	case 3:
		return "3xx"
	case 4:
		return "4xx"
	case 5:
		return "5xx"
	default:
		return "unknown"
	}
}

// responseWriter wraps http.ResponseWriter to capture status code and
// response size.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
	size       int64
	written    bool
}

var _ dispatch.ResponseInfo = (*responseWriter)(nil)

// WriteHeader captures the status code and suppresses duplicate calls.
func (rw *responseWriter) WriteHeader(code int) {
	if !rw.written {
		rw.statusCode = code
		rw.ResponseWriter.WriteHeader(code)
		rw.written = true
	}
}

// Write counts body bytes; an unset status defaults to 200.
func (rw *responseWriter) Write(b []byte) (int, error) {
	rw.written = true
	if rw.statusCode == 0 {
		rw.statusCode = http.StatusOK
	}
	n, err := rw.ResponseWriter.Write(b)
	rw.size += int64(n)
	return n, err
}

// StatusCode returns the written status, defaulting to 200.
func (rw *responseWriter) StatusCode() int {
	if rw.statusCode == 0 {
		return http.StatusOK
	}
	return rw.statusCode
}

// Size returns the number of body bytes written.
func (rw *responseWriter) Size() int64 {
	return rw.size
}

// Flush forwards to the underlying writer when it supports streaming.
func (rw *responseWriter) Flush() {
	if f, ok := rw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// Hijack forwards to the underlying writer for connection upgrades.
func (rw *responseWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	if h, ok := rw.ResponseWriter.(http.Hijacker); ok {
		return h.Hijack()
	}
	return nil, nil, fmt.Errorf("response writer does not support hijacking")
}
