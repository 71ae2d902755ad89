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
	"sync"
	"sync/atomic"

	"rivaas.dev/dispatch/urlmatch"
)

// HandlerFunc resolves a dispatched request into a response. Returning
// an error hands it to the interceptor unwind stack; an unrecovered
// error is returned from Dispatch.
type HandlerFunc func(c *Context) (*Response, error)

// route is a registered route. Immutable after creation; registration
// order is preserved and the first matching route wins.
type route struct {
	method    string
	template  string
	matcher   *urlmatch.Matcher
	handler   HandlerFunc
	cacheName string
}

// routeTable holds routes in registration order and a per-method
// executor rebuilt lazily. Registration marks the table dirty; the next
// match rebuilds the executor before scanning. Matching runs on an
// immutable snapshot, so in-flight matches are unaffected by concurrent
// registration.
type routeTable struct {
	mu       sync.RWMutex
	routes   []*route
	executor map[string][]*route
	dirty    atomic.Bool
}

func newRouteTable() *routeTable {
	return &routeTable{
		executor: make(map[string][]*route),
	}
}

// add appends a route and marks the executor stale.
func (t *routeTable) add(rt *route) {
	t.mu.Lock()
	t.routes = append(t.routes, rt)
	t.mu.Unlock()
	t.dirty.Store(true)
}

// maybeRebuild rebuilds the per-method executor when routes changed
// since the last build. The executor maps are replaced wholesale, never
// mutated in place, so snapshots taken by concurrent matches stay valid.
func (t *routeTable) maybeRebuild() {
	if !t.dirty.Load() {
		return
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.dirty.Load() {
		return
	}

	executor := make(map[string][]*route)
	for _, rt := range t.routes {
		executor[rt.method] = append(executor[rt.method], rt)
	}
	t.executor = executor
	t.dirty.Store(false)
}

// match scans the method's routes in registration order and returns the
// first whose matcher accepts the candidate URL.
func (t *routeTable) match(method, candidate string) (*route, *urlmatch.Result, bool) {
	t.maybeRebuild()

	t.mu.RLock()
	list := t.executor[method]
	t.mu.RUnlock()

	for _, rt := range list {
		if result, ok := rt.matcher.Exec(candidate); ok {
			return rt, result, true
		}
	}
	return nil, nil, false
}

// snapshot returns a copy of the registered routes in order.
func (t *routeTable) snapshot() []*route {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make([]*route, len(t.routes))
	copy(out, t.routes)
	return out
}

// size returns the number of registered routes.
func (t *routeTable) size() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.routes)
}

// upToDate reports whether the executor reflects every registered route.
func (t *routeTable) upToDate() bool {
	return !t.dirty.Load()
}
