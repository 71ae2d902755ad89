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

package dispatch

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockDiagnosticHandler collects diagnostic events for assertions.
type mockDiagnosticHandler struct {
	mu     sync.Mutex
	events []DiagnosticEvent
}

func (m *mockDiagnosticHandler) OnDiagnostic(e DiagnosticEvent) {
	m.mu.Lock()
	m.events = append(m.events, e)
	m.mu.Unlock()
}

func (m *mockDiagnosticHandler) byKind(kind DiagnosticKind) []DiagnosticEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []DiagnosticEvent
	for _, e := range m.events {
		if e.Kind == kind {
			out = append(out, e)
		}
	}
	return out
}

func TestNew(t *testing.T) {
	t.Parallel()

	t.Run("default configuration", func(t *testing.T) {
		t.Parallel()
		r, err := New()
		require.NoError(t, err)
		assert.NotNil(t, r)
	})

	t.Run("invalid server timeouts", func(t *testing.T) {
		t.Parallel()
		_, err := New(WithServerTimeouts(0, time.Second, time.Second, time.Second))
		require.ErrorIs(t, err, ErrServerTimeoutInvalid)
		assert.Contains(t, err.Error(), "router configuration validation failed")
	})

	t.Run("negative server timeouts", func(t *testing.T) {
		t.Parallel()
		_, err := New(WithServerTimeouts(time.Second, -time.Second, time.Second, time.Second))
		assert.ErrorIs(t, err, ErrServerTimeoutInvalid)
	})
}

func TestMustNew_PanicsOnInvalidConfig(t *testing.T) {
	t.Parallel()
	assert.Panics(t, func() {
		MustNew(WithServerTimeouts(0, 0, 0, 0))
	})
}

func TestHandle_UnknownMethodPanics(t *testing.T) {
	t.Parallel()
	r := MustNew()
	assert.PanicsWithValue(t,
		`dispatch: register "BREW" "/coffee": unknown http method`,
		func() { r.Handle("brew", "/coffee", textHandler("no")) })
}

func TestHandle_NilHandlerPanics(t *testing.T) {
	t.Parallel()
	r := MustNew()
	assert.PanicsWithValue(t,
		`dispatch: register GET "/x": route handler is nil`,
		func() { r.Handle(http.MethodGet, "/x", nil) })
}

func TestHandle_InvalidTemplatePanics(t *testing.T) {
	t.Parallel()
	r := MustNew()
	assert.Panics(t, func() {
		r.GET("/users/:id(", textHandler("no"))
	})
}

func TestHandle_MethodCaseNormalized(t *testing.T) {
	t.Parallel()
	r := MustNew()
	r.Handle("get", "/lower", textHandler("ok"))

	res, err := r.Dispatch(httptest.NewRequest(http.MethodGet, "/lower", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, res.StatusCode)
}

func TestHandle_Chaining(t *testing.T) {
	t.Parallel()
	r := MustNew()
	got := r.GET("/a", textHandler("a")).POST("/b", textHandler("b")).Use(&stubInterceptor{})
	assert.Same(t, r, got)
}

func TestVerbHelpers(t *testing.T) {
	t.Parallel()
	r := MustNew()
	r.GET("/r", textHandler("get"))
	r.HEAD("/r", textHandler("head"))
	r.POST("/r", textHandler("post"))
	r.PUT("/r", textHandler("put"))
	r.PATCH("/r", textHandler("patch"))
	r.DELETE("/r", textHandler("delete"))
	r.OPTIONS("/r", textHandler("options"))

	for _, method := range []string{
		http.MethodGet, http.MethodHead, http.MethodPost, http.MethodPut,
		http.MethodPatch, http.MethodDelete, http.MethodOptions,
	} {
		res, err := r.Dispatch(httptest.NewRequest(method, "/r", nil))
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, res.StatusCode, method)
	}
}

func TestAny_RegistersCommonVerbs(t *testing.T) {
	t.Parallel()
	r := MustNew()
	r.Any("/everything", textHandler("ok"))

	for _, method := range anyMethods {
		res, err := r.Dispatch(httptest.NewRequest(method, "/everything", nil))
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, res.StatusCode, method)
	}

	res, err := r.Dispatch(httptest.NewRequest(http.MethodTrace, "/everything", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, res.StatusCode, "TRACE is not part of Any")
}

func TestUse_NilPanics(t *testing.T) {
	t.Parallel()
	r := MustNew()
	assert.PanicsWithValue(t, "dispatch: interceptor is nil", func() {
		r.Use(nil)
	})
}

func TestUseFunc_NilPanics(t *testing.T) {
	t.Parallel()
	r := MustNew()
	assert.PanicsWithValue(t, "dispatch: interceptor is nil", func() {
		r.UseFunc(nil)
	})
}

func TestHandle_EmitsRegistrationDiagnostic(t *testing.T) {
	t.Parallel()
	diag := &mockDiagnosticHandler{}
	r := MustNew(WithDiagnostics(diag))
	r.GET("/articles/:id", textHandler("ok"), WithCache("articles"))

	events := diag.byKind(DiagRouteRegistered)
	require.Len(t, events, 1)
	assert.Equal(t, http.MethodGet, events[0].Fields["method"])
	assert.Equal(t, "/articles/:id", events[0].Fields["template"])
	assert.Equal(t, "articles", events[0].Fields["cache"])
}

func TestRouter_ConcurrentRegistrationAndDispatch(t *testing.T) {
	t.Parallel()
	r := MustNew()
	r.GET("/seed", textHandler("seed"))

	var wg sync.WaitGroup
	for g := range 4 {
		wg.Add(2)
		go func() {
			defer wg.Done()
			for i := range 25 {
				r.GET(fmt.Sprintf("/g%d/r%d", g, i), textHandler("ok"))
			}
		}()
		go func() {
			defer wg.Done()
			for range 25 {
				res, err := r.Dispatch(httptest.NewRequest(http.MethodGet, "/seed", nil))
				assert.NoError(t, err)
				assert.Equal(t, http.StatusOK, res.StatusCode)
			}
		}()
	}
	wg.Wait()

	// Every route registered during the storm is matchable afterward.
	for g := range 4 {
		for i := range 25 {
			res, err := r.Dispatch(httptest.NewRequest(http.MethodGet, fmt.Sprintf("/g%d/r%d", g, i), nil))
			require.NoError(t, err)
			assert.Equal(t, http.StatusOK, res.StatusCode)
		}
	}
}

func TestRouter_InterceptorSnapshotPerDispatch(t *testing.T) {
	t.Parallel()

	// An interceptor registered mid-flight applies to later dispatches
	// but never to one already running.
	var log []string
	r := MustNew()
	r.GET("/test", func(c *Context) (*Response, error) {
		r.Use(&recordingInterceptor{name: "late", log: &log})
		return c.String(http.StatusOK, "ok")
	})

	_, err := r.Dispatch(httptest.NewRequest(http.MethodGet, "/test", nil))
	require.NoError(t, err)
	assert.Empty(t, log, "the in-flight dispatch keeps its chain snapshot")

	_, err = r.Dispatch(httptest.NewRequest(http.MethodGet, "/test", nil))
	require.NoError(t, err)
	assert.Equal(t, []string{"before late", "after late"}, log)
}
