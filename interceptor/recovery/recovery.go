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
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"rivaas.dev/dispatch"
)

// defaultStackSize caps the stack trace included in panic logs.
const defaultStackSize = 4 << 10

type recovery struct {
	cfg config
}

// New returns the recovery interceptor. It only acts on
// *dispatch.PanicError; ordinary handler errors pass through untouched
// so error-mapping interceptors further out still see them.
func New(opts ...Option) dispatch.Interceptor {
	cfg := config{
		logging:    true,
		stackTrace: true,
		stackSize:  defaultStackSize,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &recovery{cfg: cfg}
}

// Before only pushes an unwind frame; all the work happens in After.
func (rc *recovery) Before(c *dispatch.Context) (*dispatch.Response, any, error) {
	return nil, nil, nil
}

// After converts a panic surfaced by the engine into an error response.
func (rc *recovery) After(c *dispatch.Context, _ any, res *dispatch.Response, err error) (*dispatch.Response, error) {
	var pe *dispatch.PanicError
	if err == nil || !errors.As(err, &pe) {
		return res, err
	}

	rc.logPanic(c, pe)
	rc.markSpan(c, pe)

	if rc.cfg.handler != nil {
		out, herr := rc.cfg.handler(c, pe.Value)
		if herr == nil && out != nil {
			return out, nil
		}
		rc.logger(c).Error("recovery handler failed", "error", herr)
	}

	out, _ := c.JSON(http.StatusInternalServerError, map[string]string{
		"error": "Internal server error",
		"code":  "INTERNAL_ERROR",
	})
	return out, nil
}

func (rc *recovery) logger(c *dispatch.Context) *slog.Logger {
	if rc.cfg.logger != nil {
		return rc.cfg.logger
	}
	return c.Logger()
}

func (rc *recovery) logPanic(c *dispatch.Context, pe *dispatch.PanicError) {
	if !rc.cfg.logging {
		return
	}

	attrs := []any{
		"panic", fmt.Sprint(pe.Value),
		"method", c.Request.Method,
		"path", c.Request.URL.Path,
	}
	if rc.cfg.stackTrace {
		stack := pe.Stack
		if len(stack) > rc.cfg.stackSize {
			stack = stack[:rc.cfg.stackSize]
		}
		attrs = append(attrs, "stack", string(stack))
	}
	rc.logger(c).Error("panic recovered", attrs...)
}

// markSpan records the panic on the active span so traces show the
// exception even though the response is a clean 500.
func (rc *recovery) markSpan(c *dispatch.Context, pe *dispatch.PanicError) {
	span := trace.SpanFromContext(c.Context())
	if !span.IsRecording() {
		return
	}
	span.AddEvent("exception", trace.WithAttributes(
		attribute.Bool("exception.escaped", true),
		attribute.String("exception.type", fmt.Sprintf("%T", pe.Value)),
		attribute.String("exception.message", fmt.Sprint(pe.Value)),
	))
	span.SetStatus(codes.Error, "panic recovered")
}
