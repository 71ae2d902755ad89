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

//go:build !integration

package caching

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rivaas.dev/dispatch"
	"rivaas.dev/dispatch/cache"
)

// countingRouter returns a router whose /data route counts handler
// invocations, so tests can tell hits from misses.
func countingRouter(calls *atomic.Int64, routeOpts []dispatch.RouteOption, opts ...Option) *dispatch.Router {
	r := dispatch.MustNew(dispatch.WithCacheStorage(cache.NewMemoryStorage()))
	r.Use(New(opts...))
	r.GET("/data", func(c *dispatch.Context) (*dispatch.Response, error) {
		n := calls.Add(1)
		return c.String(http.StatusOK, fmt.Sprintf("call %d", n))
	}, routeOpts...)
	return r
}

func get(t *testing.T, r *dispatch.Router, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestCaching_MissThenHit(t *testing.T) {
	t.Parallel()
	var calls atomic.Int64
	r := countingRouter(&calls, []dispatch.RouteOption{dispatch.WithCache("data")})

	first := get(t, r, "/data")
	assert.Equal(t, http.StatusOK, first.Code)
	assert.Equal(t, "call 1", first.Body.String())
	assert.Empty(t, first.Header().Get("X-Cache"))

	second := get(t, r, "/data")
	assert.Equal(t, http.StatusOK, second.Code)
	assert.Equal(t, "call 1", second.Body.String(), "second response should come from the cache")
	assert.Equal(t, "HIT", second.Header().Get("X-Cache"))

	assert.Equal(t, int64(1), calls.Load())
}

func TestCaching_PreservesHeaders(t *testing.T) {
	t.Parallel()
	r := dispatch.MustNew(dispatch.WithCacheStorage(cache.NewMemoryStorage()))
	r.Use(New())
	r.GET("/data", func(c *dispatch.Context) (*dispatch.Response, error) {
		res, err := c.JSON(http.StatusOK, map[string]string{"k": "v"})
		if err != nil {
			return nil, err
		}
		res.Header.Set("ETag", `"v1"`)
		return res, nil
	}, dispatch.WithCache("data"))

	get(t, r, "/data")
	hit := get(t, r, "/data")

	assert.Equal(t, "HIT", hit.Header().Get("X-Cache"))
	assert.Equal(t, `"v1"`, hit.Header().Get("ETag"))
	assert.Equal(t, "application/json; charset=utf-8", hit.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"k":"v"}`, hit.Body.String())
}

func TestCaching_RouteWithoutCachePassesThrough(t *testing.T) {
	t.Parallel()
	var calls atomic.Int64
	r := countingRouter(&calls, nil)

	get(t, r, "/data")
	get(t, r, "/data")

	assert.Equal(t, int64(2), calls.Load(), "uncached route should run the handler every time")
}

func TestCaching_NonGETNotCached(t *testing.T) {
	t.Parallel()
	var calls atomic.Int64
	r := dispatch.MustNew(dispatch.WithCacheStorage(cache.NewMemoryStorage()))
	r.Use(New())
	r.POST("/submit", func(c *dispatch.Context) (*dispatch.Response, error) {
		calls.Add(1)
		return c.String(http.StatusOK, "done")
	}, dispatch.WithCache("submit"))

	for range 2 {
		req := httptest.NewRequest(http.MethodPost, "/submit", nil)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code)
	}

	assert.Equal(t, int64(2), calls.Load())
}

func TestCaching_WithMethods(t *testing.T) {
	t.Parallel()
	var calls atomic.Int64
	r := dispatch.MustNew(dispatch.WithCacheStorage(cache.NewMemoryStorage()))
	r.Use(New(WithMethods(http.MethodGet, http.MethodHead)))
	r.HEAD("/data", func(c *dispatch.Context) (*dispatch.Response, error) {
		calls.Add(1)
		return c.Status(http.StatusOK)
	}, dispatch.WithCache("data"))

	for range 2 {
		req := httptest.NewRequest(http.MethodHead, "/data", nil)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
	}

	assert.Equal(t, int64(1), calls.Load())
}

func TestCaching_ErrorStatusNotStored(t *testing.T) {
	t.Parallel()
	var calls atomic.Int64
	r := dispatch.MustNew(dispatch.WithCacheStorage(cache.NewMemoryStorage()))
	r.Use(New())
	r.GET("/flaky", func(c *dispatch.Context) (*dispatch.Response, error) {
		calls.Add(1)
		return c.Status(http.StatusBadGateway)
	}, dispatch.WithCache("flaky"))

	get(t, r, "/flaky")
	get(t, r, "/flaky")

	assert.Equal(t, int64(2), calls.Load(), "5xx responses must not be cached")
}

func TestCaching_StatusFilter(t *testing.T) {
	t.Parallel()
	var calls atomic.Int64
	r := dispatch.MustNew(dispatch.WithCacheStorage(cache.NewMemoryStorage()))
	r.Use(New(WithStatusFilter(func(status int) bool {
		return status == http.StatusNotFound
	})))
	r.GET("/gone", func(c *dispatch.Context) (*dispatch.Response, error) {
		calls.Add(1)
		return c.Status(http.StatusNotFound)
	}, dispatch.WithCache("gone"))

	get(t, r, "/gone")
	hit := get(t, r, "/gone")

	assert.Equal(t, http.StatusNotFound, hit.Code)
	assert.Equal(t, "HIT", hit.Header().Get("X-Cache"))
	assert.Equal(t, int64(1), calls.Load())
}

func TestCaching_NoStorageConfigured(t *testing.T) {
	t.Parallel()
	var calls atomic.Int64
	r := dispatch.MustNew()
	r.Use(New())
	r.GET("/data", func(c *dispatch.Context) (*dispatch.Response, error) {
		calls.Add(1)
		return c.String(http.StatusOK, "ok")
	}, dispatch.WithCache("data"))

	w := get(t, r, "/data")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, int64(1), calls.Load())
}

func TestCaching_DistinctURLsDistinctEntries(t *testing.T) {
	t.Parallel()
	r := dispatch.MustNew(dispatch.WithCacheStorage(cache.NewMemoryStorage()))
	r.Use(New())
	r.GET("/users/:id", func(c *dispatch.Context) (*dispatch.Response, error) {
		return c.String(http.StatusOK, "user "+c.Param("id"))
	}, dispatch.WithCache("users"))

	assert.Equal(t, "user 1", get(t, r, "/users/1").Body.String())
	assert.Equal(t, "user 2", get(t, r, "/users/2").Body.String())

	hit := get(t, r, "/users/1")
	assert.Equal(t, "HIT", hit.Header().Get("X-Cache"))
	assert.Equal(t, "user 1", hit.Body.String())
}
