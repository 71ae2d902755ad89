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
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoutes_ReflectsRegistrationOrder(t *testing.T) {
	t.Parallel()
	r := MustNew()
	r.GET("/users/:id", textHandler("a"), WithCache("users"))
	r.POST("/users", textHandler("b"))

	infos := r.Routes()
	require.Len(t, infos, 2)

	assert.Equal(t, http.MethodGet, infos[0].Method)
	assert.Equal(t, "/users/:id", infos[0].Template)
	assert.Equal(t, "users", infos[0].CacheName)
	assert.NotEmpty(t, infos[0].HandlerName)

	assert.Equal(t, http.MethodPost, infos[1].Method)
	assert.Empty(t, infos[1].CacheName)
}

func TestInterceptors_NamesAndKinds(t *testing.T) {
	t.Parallel()
	r := MustNew()
	r.Use(&stubInterceptor{})
	r.UseFunc(func(_ *Context) (*Response, error) { return nil, nil })

	infos := r.Interceptors()
	require.Len(t, infos, 2)

	assert.Equal(t, "resumable", infos[0].Kind)
	assert.Equal(t, "*dispatch.stubInterceptor", infos[0].Name)

	assert.Equal(t, "one-shot", infos[1].Kind)
	assert.NotEmpty(t, infos[1].Name)
}

func TestStats(t *testing.T) {
	t.Parallel()
	r := MustNew()
	r.GET("/a", textHandler("a"))
	r.GET("/b", textHandler("b"))
	r.Use(&stubInterceptor{})

	stats := r.Stats()
	assert.Equal(t, 2, stats.Routes)
	assert.Equal(t, 1, stats.Interceptors)
	assert.False(t, stats.MatcherUpToDate, "the matcher index is rebuilt lazily")

	_, err := r.Dispatch(httptest.NewRequest(http.MethodGet, "/a", nil))
	require.NoError(t, err)
	assert.True(t, r.Stats().MatcherUpToDate, "the first dispatch rebuilds the index")
}

func TestStats_EmptyRouter(t *testing.T) {
	t.Parallel()
	r := MustNew()
	stats := r.Stats()
	assert.Zero(t, stats.Routes)
	assert.Zero(t, stats.Interceptors)
	assert.True(t, stats.MatcherUpToDate)
}
