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

// Package metrics records request metrics for the dispatch router over
// OpenTelemetry instruments.
//
// The Recorder implements the router's observability lifecycle: it
// times requests, tracks active requests, and records counts, sizes,
// and errors labeled by route template so cardinality stays bounded.
// Attach it with dispatch.WithObservability:
//
//	rec := metrics.MustNew(
//	    metrics.WithPrometheus(":9090", "/metrics"),
//	    metrics.WithServiceName("orders-api"),
//	)
//	defer rec.Shutdown(context.Background())
//
//	r := dispatch.MustNew(dispatch.WithObservability(rec))
//
// # Providers
//
// Three export backends are built in: Prometheus (pull, with an
// optional dedicated scrape server), OTLP HTTP (push), and stdout
// (development). Exactly one may be selected; supplying your own meter
// provider via WithMeterProvider bypasses all three.
//
// # Built-in instruments
//
//   - http_request_duration_seconds (histogram)
//   - http_requests_total (counter)
//   - http_requests_active (up/down counter)
//   - http_request_size_bytes (histogram)
//   - http_response_size_bytes (histogram)
//   - http_errors_total (counter, status >= 400)
//
// Custom counters, histograms, and gauges can be recorded through
// AddCounter, RecordHistogram, and SetGauge; instrument creation is
// capped by WithMaxCustomMetrics.
package metrics
