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
	"fmt"
	"reflect"
	"runtime"
)

// Interceptor runs around every dispatch in two phases.
//
// Before runs ahead of the handler in registration order. Returning a
// non-nil Response short-circuits the chain: the handler and any later
// interceptors are skipped, and the finished interceptors' after phases
// run. Returning an error does the same with the error instead. When
// Before returns neither, the interceptor is pushed onto the unwind
// stack together with its state token and its After phase is guaranteed
// to run.
//
// After phases run in reverse registration order once the handler (or a
// short-circuit, or an error) resolved the chain. state is the token
// Before returned; res and err are the chain outcome so far. An after
// phase may pass them through, replace the response, or recover from the
// error by returning a response with a nil error - later frames then see
// the recovered outcome. An error still set after the last frame is
// returned from Dispatch.
//
// Panics in any phase are converted to *PanicError and travel the error
// path.
type Interceptor interface {
	Before(c *Context) (res *Response, state any, err error)
	After(c *Context, state any, res *Response, err error) (*Response, error)
}

// InterceptorFunc is a one-shot interceptor: it runs before the handler
// and has no after phase. A non-nil Response short-circuits the chain,
// a nil Response continues it.
type InterceptorFunc func(c *Context) (*Response, error)

// interceptorKind is fixed at registration. The engine never inspects
// an interceptor's shape at dispatch time.
type interceptorKind uint8

const (
	kindOneShot interceptorKind = iota
	kindResumable
)

func (k interceptorKind) String() string {
	if k == kindResumable {
		return "resumable"
	}
	return "one-shot"
}

// interceptorEntry is an interceptor tagged with its kind and a
// human-readable name for introspection.
type interceptorEntry struct {
	kind interceptorKind
	name string
	fn   InterceptorFunc // one-shot only
	ic   Interceptor     // resumable only
}

// unwindFrame pairs a resumable interceptor with the state token its
// before phase produced.
type unwindFrame struct {
	ic    Interceptor
	state any
}

// interceptorName derives a readable name for introspection output.
func interceptorName(v any) string {
	switch x := v.(type) {
	case InterceptorFunc:
		return funcName(x)
	default:
		return fmt.Sprintf("%T", v)
	}
}

// funcName resolves a function's symbol name, trimming the "-fm" suffix
// the runtime appends to method values.
func funcName(fn any) string {
	if fn == nil {
		return "nil"
	}
	pc := reflect.ValueOf(fn).Pointer()
	f := runtime.FuncForPC(pc)
	if f == nil {
		return "unknown"
	}
	name := f.Name()
	if len(name) > 3 && name[len(name)-3:] == "-fm" {
		name = name[:len(name)-3]
	}
	return name
}
