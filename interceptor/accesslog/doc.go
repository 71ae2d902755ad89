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

// Package accesslog provides an interceptor for structured access
// logging with slog.
//
// One line is logged per request during unwind, carrying the method,
// path, matched template, status, and duration. The log level follows
// the outcome: Info for success, Warn for 4xx, Error for 5xx and
// dispatch errors.
//
// # Basic Usage
//
//	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
//	r := dispatch.MustNew()
//	r.Use(accesslog.New(
//	    accesslog.WithLogger(logger),
//	))
//
// Without WithLogger the request-scoped logger is used, so an
// observability recorder that enriches loggers per request (trace IDs
// and the like) flows into access lines automatically.
//
// # Filtering
//
//   - WithExcludePaths: exact paths to skip (e.g. /health)
//   - WithExcludePrefixes: path prefixes to skip (e.g. /debug/pprof)
//   - WithErrorsOnly: only log 4xx/5xx outcomes
//   - WithSlowThreshold: escalate requests slower than a duration to Warn
package accesslog
