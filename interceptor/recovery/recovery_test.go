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

package recovery

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rivaas.dev/dispatch"
)

// captureHandler is a slog.Handler that records log records for
// assertions.
type captureHandler struct {
	mu      sync.Mutex
	records []capturedRecord
}

type capturedRecord struct {
	level slog.Level
	msg   string
	attrs map[string]any
}

func (h *captureHandler) Enabled(context.Context, slog.Level) bool { return true }

func (h *captureHandler) Handle(_ context.Context, r slog.Record) error {
	attrs := make(map[string]any)
	r.Attrs(func(a slog.Attr) bool {
		attrs[a.Key] = a.Value.Any()
		return true
	})
	h.mu.Lock()
	defer h.mu.Unlock()
	h.records = append(h.records, capturedRecord{level: r.Level, msg: r.Message, attrs: attrs})
	return nil
}

func (h *captureHandler) WithAttrs([]slog.Attr) slog.Handler { return h }
func (h *captureHandler) WithGroup(string) slog.Handler      { return h }

func (h *captureHandler) all() []capturedRecord {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]capturedRecord(nil), h.records...)
}

func TestRecovery_BasicPanic(t *testing.T) {
	t.Parallel()
	r := dispatch.MustNew()
	r.Use(New())
	r.GET("/panic", func(_ *dispatch.Context) (*dispatch.Response, error) {
		panic("test panic")
	})

	req := httptest.NewRequest(http.MethodGet, "/panic", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusInternalServerError, w.Code)

	var response map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Equal(t, "Internal server error", response["error"])
	assert.Equal(t, "INTERNAL_ERROR", response["code"])
}

func TestRecovery_NoPanic(t *testing.T) {
	t.Parallel()
	r := dispatch.MustNew()
	r.Use(New())
	r.GET("/ok", func(c *dispatch.Context) (*dispatch.Response, error) {
		return c.String(http.StatusOK, "all good")
	})

	req := httptest.NewRequest(http.MethodGet, "/ok", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "all good", w.Body.String())
}

func TestRecovery_ErrorPassthrough(t *testing.T) {
	t.Parallel()
	r := dispatch.MustNew()
	r.Use(New())
	r.GET("/fail", func(_ *dispatch.Context) (*dispatch.Response, error) {
		return nil, errors.New("handler failure")
	})

	req := httptest.NewRequest(http.MethodGet, "/fail", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	// Ordinary errors are not the recovery interceptor's business;
	// the dispatch boundary turns them into a plain 500.
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "INTERNAL_ERROR")
}

func TestRecovery_CustomHandler(t *testing.T) {
	t.Parallel()
	r := dispatch.MustNew()
	r.Use(New(WithHandler(func(c *dispatch.Context, v any) (*dispatch.Response, error) {
		return c.JSON(http.StatusServiceUnavailable, map[string]any{
			"error": fmt.Sprint(v),
		})
	})))
	r.GET("/panic", func(_ *dispatch.Context) (*dispatch.Response, error) {
		panic("boom")
	})

	req := httptest.NewRequest(http.MethodGet, "/panic", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	var response map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Equal(t, "boom", response["error"])
}

func TestRecovery_CustomLogger(t *testing.T) {
	t.Parallel()
	capture := &captureHandler{}
	r := dispatch.MustNew()
	r.Use(New(WithLogger(slog.New(capture))))
	r.GET("/panic", func(_ *dispatch.Context) (*dispatch.Response, error) {
		panic("logged panic")
	})

	req := httptest.NewRequest(http.MethodGet, "/panic", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	records := capture.all()
	require.Len(t, records, 1)
	assert.Equal(t, slog.LevelError, records[0].level)
	assert.Equal(t, "panic recovered", records[0].msg)
	assert.Equal(t, "logged panic", records[0].attrs["panic"])
	assert.Contains(t, records[0].attrs, "stack")
}

func TestRecovery_DisableStackTrace(t *testing.T) {
	t.Parallel()
	capture := &captureHandler{}
	r := dispatch.MustNew()
	r.Use(New(WithLogger(slog.New(capture)), WithStackTrace(false)))
	r.GET("/panic", func(_ *dispatch.Context) (*dispatch.Response, error) {
		panic("quiet panic")
	})

	req := httptest.NewRequest(http.MethodGet, "/panic", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	records := capture.all()
	require.Len(t, records, 1)
	assert.NotContains(t, records[0].attrs, "stack")
}

func TestRecovery_StackSize(t *testing.T) {
	t.Parallel()
	capture := &captureHandler{}
	r := dispatch.MustNew()
	r.Use(New(WithLogger(slog.New(capture)), WithStackSize(64)))
	r.GET("/panic", func(_ *dispatch.Context) (*dispatch.Response, error) {
		panic("truncated")
	})

	req := httptest.NewRequest(http.MethodGet, "/panic", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	records := capture.all()
	require.Len(t, records, 1)
	stack, ok := records[0].attrs["stack"].(string)
	require.True(t, ok)
	assert.LessOrEqual(t, len(stack), 64)
}

func TestRecovery_WithoutLogging(t *testing.T) {
	t.Parallel()
	capture := &captureHandler{}
	r := dispatch.MustNew()
	r.Use(New(WithLogger(slog.New(capture)), WithoutLogging()))
	r.GET("/panic", func(_ *dispatch.Context) (*dispatch.Response, error) {
		panic("silent")
	})

	req := httptest.NewRequest(http.MethodGet, "/panic", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Empty(t, capture.all())
}

func TestRecovery_DifferentPanicTypes(t *testing.T) {
	t.Parallel()
	values := []any{
		"string panic",
		errors.New("error panic"),
		42,
		struct{ Reason string }{"struct panic"},
	}

	for _, value := range values {
		t.Run(fmt.Sprintf("%T", value), func(t *testing.T) {
			t.Parallel()
			r := dispatch.MustNew()
			r.Use(New())
			r.GET("/panic", func(_ *dispatch.Context) (*dispatch.Response, error) {
				panic(value)
			})

			req := httptest.NewRequest(http.MethodGet, "/panic", nil)
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			assert.Equal(t, http.StatusInternalServerError, w.Code)
		})
	}
}

func TestRecovery_PanicInInterceptor(t *testing.T) {
	t.Parallel()
	r := dispatch.MustNew()
	r.Use(New())
	r.UseFunc(func(_ *dispatch.Context) (*dispatch.Response, error) {
		panic("interceptor panic")
	})
	r.GET("/test", func(c *dispatch.Context) (*dispatch.Response, error) {
		return c.String(http.StatusOK, "unreached")
	})

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusInternalServerError, w.Code)

	var response map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Equal(t, "INTERNAL_ERROR", response["code"])
}
