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
	"fmt"
	"strings"

	"rivaas.dev/dispatch/urlmatch"
)

// Mount re-registers every route and global interceptor of sub on r,
// with prefix prepended to each route's path template. The prefix is
// normalized to start with "/" and not end with one; the sub-router's
// root route collapses to exactly the prefix. Mounting copies: later
// registrations on sub do not appear on r. Mounting nil panics.
//
// Mounted routes are recompiled under r's configuration, keep their
// cache descriptors (resolved against r's storage), and obey r's
// first-match-wins order at their insertion point. Full-URL templates
// are re-registered unchanged, since a host-qualified route has no
// path to prefix.
//
// Example:
//
//	api := dispatch.MustNew()
//	api.GET("/widgets/:id", getWidget)
//
//	root := dispatch.MustNew()
//	root.Mount("/api/v1", api) // serves /api/v1/widgets/:id
func (r *Router) Mount(prefix string, sub *Router) *Router {
	if sub == nil {
		panic(fmt.Sprintf("dispatch: mount %q: %v", prefix, ErrNilRouter))
	}

	prefix = normalizePrefix(prefix)

	for _, rt := range sub.table.snapshot() {
		var opts []RouteOption
		if rt.cacheName != "" {
			opts = append(opts, WithCache(rt.cacheName))
		}
		r.Handle(rt.method, prefixTemplate(prefix, rt.template), rt.handler, opts...)
	}

	r.appendInterceptors(sub.snapshotInterceptors())
	return r
}

// normalizePrefix forces a leading slash and strips trailing slashes.
// The root prefix normalizes to "", leaving templates unchanged.
func normalizePrefix(prefix string) string {
	if prefix != "" && !strings.HasPrefix(prefix, "/") {
		prefix = "/" + prefix
	}
	for strings.HasSuffix(prefix, "/") {
		prefix = prefix[:len(prefix)-1]
	}
	return prefix
}

// prefixTemplate prepends the mount prefix to a route template,
// splitting off a query pattern first so the prefix lands on the path
// alone.
func prefixTemplate(prefix, template string) string {
	if prefix == "" || strings.Contains(template, "://") {
		return template
	}

	path, query := urlmatch.SplitPathQuery(template)
	switch path {
	case "", "/":
		path = prefix
	default:
		if !strings.HasPrefix(path, "/") {
			path = "/" + path
		}
		path = prefix + path
	}

	if query == "" {
		return path
	}
	return path + "?" + query
}
