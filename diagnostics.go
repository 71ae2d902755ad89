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

// DiagnosticEvent represents a router diagnostic or anomaly. These are
// informational events that may indicate configuration issues or
// unusual request flows.
//
// Diagnostic events are optional - the router functions correctly
// whether they are collected or not.
type DiagnosticEvent struct {
	Kind    DiagnosticKind
	Message string
	Fields  map[string]any // Structured context
}

// DiagnosticKind categorizes diagnostic events.
type DiagnosticKind string

const (
	// DiagCacheOpenFailed is emitted when a route names a cache that the
	// configured storage could not open. Dispatch proceeds uncached.
	DiagCacheOpenFailed DiagnosticKind = "cache_open_failed"

	// DiagURLRedispatched is emitted when an interceptor rewrote the
	// request URL and the engine re-matched before running the handler.
	DiagURLRedispatched DiagnosticKind = "url_redispatched"

	// DiagRouteRegistered is emitted for each registered route.
	DiagRouteRegistered DiagnosticKind = "route_registered"

	// DiagH2CEnabled is emitted when Serve starts with H2C enabled.
	DiagH2CEnabled DiagnosticKind = "h2c_enabled"
)

// DiagnosticHandler receives diagnostic events from the router.
// Implementations may log, emit metrics, trace events, or ignore them.
//
// This interface is optional - if not provided, diagnostics are
// silently dropped.
//
// Example with logging:
//
//	import "log/slog"
//
//	handler := dispatch.DiagnosticHandlerFunc(func(e dispatch.DiagnosticEvent) {
//	    slog.Warn(e.Message, "kind", e.Kind, "fields", e.Fields)
//	})
//	r := dispatch.MustNew(dispatch.WithDiagnostics(handler))
type DiagnosticHandler interface {
	OnDiagnostic(DiagnosticEvent)
}

// DiagnosticHandlerFunc is a function adapter for DiagnosticHandler.
type DiagnosticHandlerFunc func(DiagnosticEvent)

func (f DiagnosticHandlerFunc) OnDiagnostic(e DiagnosticEvent) {
	f(e)
}
