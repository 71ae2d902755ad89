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
	"errors"
	"fmt"
)

var (
	// ErrCrossOriginRewrite indicates that an interceptor rewrote the
	// request URL to a different origin. Redirects are only synthesized
	// within the original origin; anything else is a configuration error.
	ErrCrossOriginRewrite = errors.New("url rewritten to a different origin")

	// ErrUnknownMethod indicates that a route was registered with a
	// method that is not a known HTTP verb.
	ErrUnknownMethod = errors.New("unknown http method")

	// ErrNilHandler indicates that a route was registered without a handler.
	ErrNilHandler = errors.New("route handler is nil")

	// ErrNilInterceptor indicates that a nil interceptor was registered.
	ErrNilInterceptor = errors.New("interceptor is nil")

	// ErrNilRouter indicates that a nil sub-router was mounted.
	ErrNilRouter = errors.New("mounted router is nil")

	// ErrServerTimeoutInvalid indicates that a server timeout value must
	// be positive.
	ErrServerTimeoutInvalid = errors.New("server timeout must be positive")
)

// PanicError wraps a panic recovered from a handler or interceptor
// phase. It travels down the unwind stack like any other error, so an
// interceptor's after phase can turn it into a response.
type PanicError struct {
	// Value is the value passed to panic.
	Value any

	// Stack is the goroutine stack captured at recovery.
	Stack []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("panic: %v", e.Value)
}

// Unwrap exposes a wrapped error when the panic value was one.
func (e *PanicError) Unwrap() error {
	if err, ok := e.Value.(error); ok {
		return err
	}
	return nil
}
