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

// Package ratelimit provides a token bucket rate limiting interceptor.
//
// Requests are limited per client key; the default key is the client
// IP taken from RemoteAddr, with no proxy header trust. Denied requests
// short-circuit the chain with a 429 before the handler runs.
//
// # Basic Usage
//
//	limiter := ratelimit.New(
//	    ratelimit.WithRequestsPerSecond(100),
//	    ratelimit.WithBurst(20),
//	)
//	defer limiter.Stop()
//
//	r := dispatch.MustNew()
//	r.Use(limiter)
//
// # Keying Strategies
//
// A custom KeyFunc switches the bucket granularity. Returning the same
// key for every request yields one global bucket:
//
//	ratelimit.New(
//	    ratelimit.WithRequestsPerSecond(100),
//	    ratelimit.WithKeyFunc(func(c *dispatch.Context) string {
//	        return c.Request.Header.Get("X-API-Key")
//	    }),
//	)
//
// Per-key buckets are evicted after a TTL of inactivity by a background
// goroutine; call Stop when discarding a limiter to end it.
//
// # Rate Limit Headers
//
// Responses carry the usual reporting headers:
//
//   - X-RateLimit-Limit: bucket capacity (burst)
//   - X-RateLimit-Remaining: tokens left in the bucket
//   - X-RateLimit-Reset: Unix time when the bucket refills
//
// Denied responses additionally carry Retry-After.
package ratelimit
