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

package caching

import (
	"errors"
	"net/http"

	"rivaas.dev/dispatch"
	"rivaas.dev/dispatch/cache"
)

// Option configures the interceptor.
type Option func(*config)

type config struct {
	methods      map[string]bool
	statusFilter func(int) bool
}

// WithMethods sets the request methods eligible for caching.
// Default: GET only.
func WithMethods(methods ...string) Option {
	return func(cfg *config) {
		cfg.methods = make(map[string]bool, len(methods))
		for _, m := range methods {
			cfg.methods[m] = true
		}
	}
}

// WithStatusFilter sets the predicate deciding which response statuses
// are stored. Default: 2xx.
func WithStatusFilter(fn func(status int) bool) Option {
	return func(cfg *config) {
		if fn != nil {
			cfg.statusFilter = fn
		}
	}
}

type caching struct {
	cfg config
}

// New returns the caching interceptor. Register it after recovery and
// logging so cache hits still get logged, but before interceptors whose
// work should be skipped on a hit.
func New(opts ...Option) dispatch.Interceptor {
	cfg := config{
		methods: map[string]bool{http.MethodGet: true},
		statusFilter: func(status int) bool {
			return status >= 200 && status < 300
		},
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &caching{cfg: cfg}
}

// Before serves a stored response when the route's cache has one. On a
// hit the chain short-circuits, so the handler and the interceptors
// below never run. A true state tells After to store the response.
func (ci *caching) Before(c *dispatch.Context) (*dispatch.Response, any, error) {
	cc := c.Cache()
	if cc == nil || !ci.cfg.methods[c.Request.Method] {
		return nil, nil, nil
	}

	entry, err := cc.Match(c.Context(), c.Request)
	if err == nil {
		res := dispatch.NewResponse(entry.StatusCode, entry.Header.Clone(), entry.Body)
		res.Header.Set("X-Cache", "HIT")
		return res, nil, nil
	}
	if !errors.Is(err, cache.ErrMiss) {
		c.Logger().Warn("cache lookup failed", "error", err)
	}
	return nil, true, nil
}

// After stores a successful response. Failures are logged and the
// response is served regardless; the cache never breaks a request.
func (ci *caching) After(c *dispatch.Context, state any, res *dispatch.Response, err error) (*dispatch.Response, error) {
	store, _ := state.(bool)
	if !store || err != nil || res == nil {
		return res, err
	}
	cc := c.Cache()
	if cc == nil {
		return res, err
	}

	status := res.StatusCode
	if status == 0 {
		status = http.StatusOK
	}
	if !ci.cfg.statusFilter(status) {
		return res, err
	}

	body, readErr := res.ReadBody()
	if readErr != nil {
		c.Logger().Warn("cache store skipped, response body unreadable", "error", readErr)
		return res, err
	}

	entry := &cache.Entry{
		StatusCode: status,
		Header:     res.Header.Clone(),
		Body:       body,
	}
	if putErr := cc.Put(c.Context(), c.Request, entry); putErr != nil {
		c.Logger().Warn("cache store failed", "error", putErr)
	}
	return res, err
}
