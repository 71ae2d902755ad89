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
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"net/http"

	"gopkg.in/yaml.v3"

	"rivaas.dev/dispatch/cache"
	"rivaas.dev/dispatch/urlmatch"
)

// Context carries a single dispatch through the interceptor chain and
// handler. It exposes the matched route's captures, a request-scoped
// logger, and the route's cache handle when one is configured.
//
// Interceptors may mutate Request (including its URL) during their
// before phase; the engine re-matches when the URL changed. A Context
// is only valid for the duration of the dispatch.
type Context struct {
	// Request is the request being dispatched.
	Request *http.Request

	router   *Router
	template string
	params   map[string]string
	result   *urlmatch.Result
	logger   *slog.Logger
	cache    cache.Cache
}

// Param returns the unified capture with the given name, or "" when
// absent. Path captures are overlaid by query captures of the same name.
func (c *Context) Param(name string) string {
	return c.params[name]
}

// Params returns a copy of all unified captures.
func (c *Context) Params() map[string]string {
	if c.params == nil {
		return map[string]string{}
	}
	return maps.Clone(c.params)
}

// Query returns the first value of the named query parameter.
func (c *Context) Query(key string) string {
	return c.Request.URL.Query().Get(key)
}

// QueryDefault returns the first value of the named query parameter, or
// defaultValue when the key is absent.
func (c *Context) QueryDefault(key, defaultValue string) string {
	values := c.Request.URL.Query()
	if _, ok := values[key]; !ok {
		return defaultValue
	}
	return values.Get(key)
}

// Template returns the matched route template, or "_not_found" when no
// route matched.
func (c *Context) Template() string {
	return c.template
}

// Result returns the full match result with per-component capture maps,
// or nil when no route matched.
func (c *Context) Result() *urlmatch.Result {
	return c.result
}

// Logger returns the request-scoped logger. It is never nil; without
// observability configured it is the router's base logger.
func (c *Context) Logger() *slog.Logger {
	if c.logger == nil {
		return noopLogger
	}
	return c.logger
}

// Cache returns the opened cache handle when the matched route names a
// cache and the storage could open it, nil otherwise.
func (c *Context) Cache() cache.Cache {
	return c.cache
}

// Context returns the request's context.
func (c *Context) Context() context.Context {
	return c.Request.Context()
}

// JSON builds a JSON response with the given status code. The value is
// encoded before the response exists, so encoding failures do not
// produce partial responses.
//
// Example:
//
//	func getUser(c *dispatch.Context) (*dispatch.Response, error) {
//	    return c.JSON(http.StatusOK, map[string]string{"id": c.Param("id")})
//	}
func (c *Context) JSON(code int, obj any) (*Response, error) {
	var buf bytes.Buffer
	buf.Grow(256)

	if err := json.NewEncoder(&buf).Encode(obj); err != nil {
		return nil, fmt.Errorf("JSON encoding failed for type %T: %w", obj, err)
	}

	res := NewResponse(code, nil, buf.Bytes())
	res.Header.Set("Content-Type", "application/json; charset=utf-8")
	return res, nil
}

// String builds a plain-text response with the given status code.
func (c *Context) String(code int, value string) (*Response, error) {
	res := NewResponse(code, nil, []byte(value))
	res.Header.Set("Content-Type", "text/plain; charset=utf-8")
	return res, nil
}

// Stringf builds a formatted plain-text response.
func (c *Context) Stringf(code int, format string, values ...any) (*Response, error) {
	return c.String(code, fmt.Sprintf(format, values...))
}

// YAML builds a YAML response with the given status code. Useful for
// configuration APIs and DevOps tooling.
func (c *Context) YAML(code int, obj any) (*Response, error) {
	data, err := yaml.Marshal(obj)
	if err != nil {
		return nil, fmt.Errorf("YAML encoding failed for type %T: %w", obj, err)
	}

	res := NewResponse(code, nil, data)
	res.Header.Set("Content-Type", "application/x-yaml; charset=utf-8")
	return res, nil
}

// Data builds a response with raw bytes and a custom content type. An
// empty contentType defaults to application/octet-stream.
func (c *Context) Data(code int, contentType string, data []byte) (*Response, error) {
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	res := NewResponse(code, nil, data)
	res.Header.Set("Content-Type", contentType)
	return res, nil
}

// Stream builds a response whose body is streamed from reader when the
// response is written. The reader is closed after writing when it
// implements io.Closer.
func (c *Context) Stream(code int, contentType string, reader io.Reader) (*Response, error) {
	res := NewResponse(code, nil, nil)
	if contentType != "" {
		res.Header.Set("Content-Type", contentType)
	}
	if rc, ok := reader.(io.ReadCloser); ok {
		res.Body = rc
	} else if reader != nil {
		res.Body = io.NopCloser(reader)
	}
	return res, nil
}

// Status builds an empty response with the given status code.
func (c *Context) Status(code int) (*Response, error) {
	return NewResponse(code, nil, nil), nil
}

// NoContent builds an empty 204 No Content response.
func (c *Context) NoContent() (*Response, error) {
	return c.Status(http.StatusNoContent)
}

// Redirect builds a redirect response to location with the given status
// code (3xx).
func (c *Context) Redirect(code int, location string) (*Response, error) {
	res := NewResponse(code, nil, nil)
	res.Header.Set("Location", location)
	return res, nil
}
