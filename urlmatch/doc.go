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

// Package urlmatch matches whole URLs against compiled templates.
//
// A template may constrain any combination of protocol, host, port, path
// and query; components the template does not mention are ignored, so a
// path-only template matches absolute URLs too:
//
//	/users/:id                      path only
//	/search?q=:q&lang=en            path plus query constraints
//	https://:tenant.example.com/v1/*    protocol, host and path
//	https://cdn.example.com:8443/a      literal port
//	https://cdn.example.com::p/a        captured port
//
// Path, host, port and protocol compile through the compiler package
// (host and protocol with "." as delimiter). The query part is a
// mini-language of key=spec pairs, order-independent, where spec is a
// literal (exact match), ":name" (captures the first value; ":name?"
// tolerates an absent key), or "*" (key must be present, any value).
// Candidate query keys the template does not name are ignored.
//
// Matching normalizes one trailing slash away from both template and
// candidate paths; the root path "/" is preserved. Test never panics:
// malformed candidate URLs simply do not match.
//
// Exec returns captures per component plus a unified Params map built by
// applying path captures first and then overwriting with query captures.
package urlmatch
