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

package recovery

import (
	"log/slog"

	"rivaas.dev/dispatch"
)

// Option configures the interceptor.
type Option func(*config)

// Handler builds the response for a recovered panic. v is the value
// passed to panic.
type Handler func(c *dispatch.Context, v any) (*dispatch.Response, error)

type config struct {
	logger     *slog.Logger
	logging    bool
	handler    Handler
	stackTrace bool
	stackSize  int
}

// WithoutLogging disables panic logging. Useful for tests to avoid
// noisy output.
//
// Example:
//
//	recovery.New(recovery.WithoutLogging())
func WithoutLogging() Option {
	return func(cfg *config) {
		cfg.logging = false
	}
}

// WithLogger sets a custom slog.Logger for panic logging. Without it
// the request-scoped logger is used.
//
// Example:
//
//	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
//	recovery.New(recovery.WithLogger(logger))
func WithLogger(logger *slog.Logger) Option {
	return func(cfg *config) {
		cfg.logger = logger
	}
}

// WithHandler sets a custom recovery handler for building error
// responses.
//
// Example:
//
//	recovery.New(recovery.WithHandler(func(c *dispatch.Context, v any) (*dispatch.Response, error) {
//	    return c.JSON(http.StatusInternalServerError, map[string]any{
//	        "error": "Something went wrong",
//	    })
//	}))
func WithHandler(handler Handler) Option {
	return func(cfg *config) {
		cfg.handler = handler
	}
}

// WithStackTrace enables or disables stack traces in panic logs.
// Default: true
//
// Example:
//
//	recovery.New(recovery.WithStackTrace(false))
func WithStackTrace(enabled bool) Option {
	return func(cfg *config) {
		cfg.stackTrace = enabled
	}
}

// WithStackSize sets the maximum size of the logged stack trace in
// bytes. Default: 4KB
//
// Example:
//
//	recovery.New(recovery.WithStackSize(8 << 10)) // 8KB
func WithStackSize(size int) Option {
	return func(cfg *config) {
		if size > 0 {
			cfg.stackSize = size
		}
	}
}
