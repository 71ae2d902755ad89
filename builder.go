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

import "net/http"

// RouteBuilder registers handlers for several verbs of one template
// fluently. Configuration calls apply to the verbs registered after
// them; each verb call registers immediately with the same panic
// semantics as Handle.
type RouteBuilder struct {
	router   *Router
	template string
	opts     []RouteOption
}

// Route starts a fluent registration for template.
//
//	r.Route("/articles/:id").
//	    Cache("articles").
//	    GET(getArticle).
//	    PUT(updateArticle).
//	    DELETE(deleteArticle)
func (r *Router) Route(template string) *RouteBuilder {
	return &RouteBuilder{router: r, template: template}
}

// Cache attaches a named cache descriptor to the verbs registered
// after it.
func (b *RouteBuilder) Cache(name string) *RouteBuilder {
	return b.With(WithCache(name))
}

// With appends route options for the verbs registered after it.
func (b *RouteBuilder) With(opts ...RouteOption) *RouteBuilder {
	b.opts = append(b.opts, opts...)
	return b
}

// GET registers handler for GET requests on the builder's template.
func (b *RouteBuilder) GET(handler HandlerFunc) *RouteBuilder {
	return b.handle(http.MethodGet, handler)
}

// HEAD registers handler for HEAD requests on the builder's template.
func (b *RouteBuilder) HEAD(handler HandlerFunc) *RouteBuilder {
	return b.handle(http.MethodHead, handler)
}

// POST registers handler for POST requests on the builder's template.
func (b *RouteBuilder) POST(handler HandlerFunc) *RouteBuilder {
	return b.handle(http.MethodPost, handler)
}

// PUT registers handler for PUT requests on the builder's template.
func (b *RouteBuilder) PUT(handler HandlerFunc) *RouteBuilder {
	return b.handle(http.MethodPut, handler)
}

// PATCH registers handler for PATCH requests on the builder's template.
func (b *RouteBuilder) PATCH(handler HandlerFunc) *RouteBuilder {
	return b.handle(http.MethodPatch, handler)
}

// DELETE registers handler for DELETE requests on the builder's template.
func (b *RouteBuilder) DELETE(handler HandlerFunc) *RouteBuilder {
	return b.handle(http.MethodDelete, handler)
}

// OPTIONS registers handler for OPTIONS requests on the builder's template.
func (b *RouteBuilder) OPTIONS(handler HandlerFunc) *RouteBuilder {
	return b.handle(http.MethodOptions, handler)
}

// Any registers handler for every common verb on the builder's
// template.
func (b *RouteBuilder) Any(handler HandlerFunc) *RouteBuilder {
	b.router.Any(b.template, handler, b.opts...)
	return b
}

func (b *RouteBuilder) handle(method string, handler HandlerFunc) *RouteBuilder {
	b.router.Handle(method, b.template, handler, b.opts...)
	return b
}
