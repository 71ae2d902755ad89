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

package accesslog

import (
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"rivaas.dev/dispatch"
)

// Option configures the interceptor.
type Option func(*config)

type config struct {
	logger          *slog.Logger
	excludePaths    map[string]bool
	excludePrefixes []string
	errorsOnly      bool
	slowThreshold   time.Duration
}

// WithLogger sets the logger for access lines. Without it the
// request-scoped logger is used.
func WithLogger(logger *slog.Logger) Option {
	return func(cfg *config) {
		cfg.logger = logger
	}
}

// WithExcludePaths skips logging for the given exact request paths.
func WithExcludePaths(paths ...string) Option {
	return func(cfg *config) {
		for _, p := range paths {
			cfg.excludePaths[p] = true
		}
	}
}

// WithExcludePrefixes skips logging for request paths with any of the
// given prefixes.
func WithExcludePrefixes(prefixes ...string) Option {
	return func(cfg *config) {
		cfg.excludePrefixes = append(cfg.excludePrefixes, prefixes...)
	}
}

// WithErrorsOnly only logs requests that end in a 4xx/5xx status or a
// dispatch error.
func WithErrorsOnly() Option {
	return func(cfg *config) {
		cfg.errorsOnly = true
	}
}

// WithSlowThreshold escalates requests slower than d to Warn and tags
// them with slow=true. Zero disables the check.
func WithSlowThreshold(d time.Duration) Option {
	return func(cfg *config) {
		cfg.slowThreshold = d
	}
}

type accessLog struct {
	cfg config
}

// New returns the access logging interceptor. Register it early so the
// measured duration covers the interceptors below it.
func New(opts ...Option) dispatch.Interceptor {
	cfg := config{
		excludePaths: make(map[string]bool),
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &accessLog{cfg: cfg}
}

// Before records the start time. Excluded paths get a nil state so
// After knows to stay quiet.
func (al *accessLog) Before(c *dispatch.Context) (*dispatch.Response, any, error) {
	if al.excluded(c.Request.URL.Path) {
		return nil, nil, nil
	}
	return nil, time.Now(), nil
}

// After logs the outcome. The response and error pass through
// untouched.
func (al *accessLog) After(c *dispatch.Context, state any, res *dispatch.Response, err error) (*dispatch.Response, error) {
	start, ok := state.(time.Time)
	if !ok {
		return res, err
	}

	duration := time.Since(start)
	status := wireStatus(res, err)

	level := slog.LevelInfo
	switch {
	case err != nil || status >= http.StatusInternalServerError:
		level = slog.LevelError
	case status >= http.StatusBadRequest:
		level = slog.LevelWarn
	}

	slow := al.cfg.slowThreshold > 0 && duration > al.cfg.slowThreshold
	if slow && level == slog.LevelInfo {
		level = slog.LevelWarn
	}

	if al.cfg.errorsOnly && level == slog.LevelInfo {
		return res, err
	}

	attrs := []slog.Attr{
		slog.String("method", c.Request.Method),
		slog.String("path", c.Request.URL.Path),
		slog.String("template", c.Template()),
		slog.Int("status", status),
		slog.Duration("duration", duration),
		slog.String("client_ip", clientIP(c.Request)),
	}
	if err != nil {
		attrs = append(attrs, slog.Any("error", err))
	}
	if slow {
		attrs = append(attrs, slog.Bool("slow", true))
	}

	al.logger(c).LogAttrs(c.Context(), level, "http request", attrs...)
	return res, err
}

func (al *accessLog) logger(c *dispatch.Context) *slog.Logger {
	if al.cfg.logger != nil {
		return al.cfg.logger
	}
	return c.Logger()
}

func (al *accessLog) excluded(path string) bool {
	if al.cfg.excludePaths[path] {
		return true
	}
	for _, prefix := range al.cfg.excludePrefixes {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}

// wireStatus is the status ServeHTTP will put on the wire: 500 for
// errors, 204 for a nil response, the effective status otherwise.
func wireStatus(res *dispatch.Response, err error) int {
	switch {
	case err != nil:
		return http.StatusInternalServerError
	case res == nil:
		return http.StatusNoContent
	case res.StatusCode == 0:
		return http.StatusOK
	default:
		return res.StatusCode
	}
}

// clientIP extracts the peer address without trusting proxy headers.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
