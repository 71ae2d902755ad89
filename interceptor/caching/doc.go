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

// Package caching provides an interceptor that serves and populates
// the per-route response cache.
//
// Routes opt into caching with dispatch.WithCache; this interceptor
// does the work: on a hit the stored response is served without running
// the handler, on a miss the handler runs and a successful response is
// stored on the way out. Routes without a cache pass through untouched.
//
// # Basic Usage
//
//	r := dispatch.MustNew(dispatch.WithCacheStorage(cache.NewMemoryStorage()))
//	r.Use(caching.New())
//	r.GET("/reports/:id", reportHandler, dispatch.WithCache("reports"))
//
// Cache hits carry an X-Cache: HIT response header.
//
// By default only GET responses with 2xx statuses are stored. Use
// WithMethods and WithStatusFilter to widen or narrow that.
package caching
