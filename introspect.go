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

// RouteInfo describes a registered route for debugging and
// introspection endpoints.
type RouteInfo struct {
	// Method is the upper-cased HTTP verb.
	Method string `json:"method"`

	// Template is the route template as registered.
	Template string `json:"template"`

	// CacheName is the route's cache descriptor; empty when the route
	// dispatches uncached.
	CacheName string `json:"cache_name,omitempty"`

	// HandlerName is the handler's resolved function name, best effort.
	HandlerName string `json:"handler_name"`
}

// InterceptorInfo describes a registered interceptor.
type InterceptorInfo struct {
	// Name identifies the interceptor: the implementation type for
	// resumable interceptors, the function name for one-shot ones.
	Name string `json:"name"`

	// Kind is "resumable" or "one-shot".
	Kind string `json:"kind"`
}

// Stats summarizes the router state for health endpoints.
type Stats struct {
	// Routes is the number of registered routes.
	Routes int `json:"routes"`

	// Interceptors is the length of the global chain.
	Interceptors int `json:"interceptors"`

	// MatcherUpToDate reports whether the per-method matcher index has
	// been rebuilt since the last registration. It turns true again on
	// the first dispatch after registration.
	MatcherUpToDate bool `json:"matcher_up_to_date"`
}

// Routes returns the registered routes in registration order, which is
// also match precedence order.
func (r *Router) Routes() []RouteInfo {
	routes := r.table.snapshot()
	out := make([]RouteInfo, 0, len(routes))
	for _, rt := range routes {
		out = append(out, RouteInfo{
			Method:      rt.method,
			Template:    rt.template,
			CacheName:   rt.cacheName,
			HandlerName: funcName(rt.handler),
		})
	}
	return out
}

// Interceptors returns the global chain in before-phase order.
func (r *Router) Interceptors() []InterceptorInfo {
	entries := r.snapshotInterceptors()
	out := make([]InterceptorInfo, 0, len(entries))
	for _, entry := range entries {
		out = append(out, InterceptorInfo{
			Name: entry.name,
			Kind: entry.kind.String(),
		})
	}
	return out
}

// Stats returns registration counters for the router.
func (r *Router) Stats() Stats {
	return Stats{
		Routes:          r.table.size(),
		Interceptors:    len(r.snapshotInterceptors()),
		MatcherUpToDate: r.table.upToDate(),
	}
}
