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
	"log/slog"
	"net/http"
	"net/url"
	"runtime/debug"
	"strings"
)

// Dispatch matches the request against the route table and runs the
// interceptor chain around the matched handler, returning the response
// the chain produced. It is the transport-free core behind ServeHTTP
// and can be called directly with a synthetic request, for example in
// tests or when bridging from a non-HTTP transport.
//
// Unmatched requests run the not-found handler through the same chain.
// A handler that returns neither response nor error yields 204 No
// Content. If the chain finishes with the request URL rewritten, the
// response is replaced by a synthesized redirect; rewrites to another
// origin fail with ErrCrossOriginRewrite.
//
// An error return means the chain finished without producing a
// response: a handler or interceptor error that no after phase
// recovered, a panic converted to *PanicError, or the request context's
// error when it was cancelled between phases (see
// WithCancellationCheck). Callers map these to a boundary error
// response; ServeHTTP writes a plain 500.
func (r *Router) Dispatch(req *http.Request) (*Response, error) {
	res, _, err := r.dispatch(req)
	return res, err
}

// dispatch is the engine behind Dispatch and ServeHTTP. It also
// returns the final route template so the serving layer can label
// metrics without re-matching.
func (r *Router) dispatch(req *http.Request) (*Response, string, error) {
	originalURL := *req.URL
	method := strings.ToUpper(req.Method)

	c := &Context{Request: req, router: r}
	handler := r.resolve(c, method)

	res, err := r.runChain(c, handler, method, &originalURL)

	if err == nil && req.URL.String() != originalURL.String() {
		redirect, rerr := synthesizeRedirect(method, &originalURL, req.URL)
		res.discard()
		res, err = redirect, rerr
	}

	if res == nil && err == nil {
		res = NewResponse(http.StatusNoContent, nil, nil)
	}

	return res, c.template, err
}

// resolve matches the request and points the context at the winning
// route: template, captures, per-request logger, and the route's cache
// handle. It returns the handler to run. Unmatched requests get the
// not-found handler under the "_not_found" template sentinel.
func (r *Router) resolve(c *Context, method string) HandlerFunc {
	req := c.Request

	rt, result, ok := r.table.match(method, candidateURL(req))
	if !ok {
		c.template = notFoundTemplate
		c.params = nil
		c.result = nil
		c.cache = nil
		c.logger = r.requestLogger(req, c.template)
		return r.notFoundHandler()
	}

	c.template = rt.template
	c.result = result
	c.params = result.Params
	c.logger = r.requestLogger(req, c.template)
	c.cache = nil
	if rt.cacheName != "" {
		c.cache = r.openCache(req.Context(), rt.cacheName, c.logger)
	}
	return rt.handler
}

// candidateURL renders the request URL in the form the route table
// matches against. Server requests carry a relative URL with the
// authority in req.Host; those are absolutized so protocol, host and
// port templates can constrain them. Requests with neither an absolute
// URL nor a Host are matched as-is and reach path-only templates.
func candidateURL(req *http.Request) string {
	if req.URL.IsAbs() || req.Host == "" {
		return req.URL.String()
	}
	scheme := "http"
	if req.TLS != nil {
		scheme = "https"
	}
	return scheme + "://" + req.Host + req.URL.String()
}

// requestLogger builds the per-request logger: the observability
// recorder's if one is configured and produces one, the router's base
// logger otherwise.
func (r *Router) requestLogger(req *http.Request, template string) *slog.Logger {
	if r.observability != nil {
		if lg := r.observability.BuildRequestLogger(req.Context(), req, template); lg != nil {
			return lg
		}
	}
	return r.logger
}

// runChain executes the interceptor chain around the handler: before
// phases in registration order, the handler, then the unwind stack in
// reverse. A before-phase URL rewrite re-dispatches against the new
// URL so the newly matched route's handler and context are used.
func (r *Router) runChain(c *Context, handler HandlerFunc, method string, originalURL *url.URL) (*Response, error) {
	chain := r.snapshotInterceptors()
	unwind := make([]unwindFrame, 0, len(chain))

	res, err := r.runBefores(c, chain, &unwind)
	if res == nil && err == nil {
		if err = r.cancelled(c); err == nil {
			if c.Request.URL.String() != originalURL.String() {
				handler = r.redispatch(c, method)
			}
			res, err = runHandler(c, handler)
		}
	}

	return runUnwind(c, unwind, res, err)
}

// cancelled reports the request context's error when cancellation
// checking is enabled. Checked between chain phases so cancelled
// requests stop before the next phase runs.
func (r *Router) cancelled(c *Context) error {
	if !r.checkCancellation {
		return nil
	}
	return c.Request.Context().Err()
}

// runBefores executes the chain's before phases in order. A response or
// error short-circuits: later interceptors and the handler are skipped
// and only the frames already pushed unwind. Resumable interceptors
// that complete cleanly push a frame carrying their state; one-shot
// interceptors never join the unwind stack.
func (r *Router) runBefores(c *Context, chain []interceptorEntry, unwind *[]unwindFrame) (*Response, error) {
	for _, entry := range chain {
		if err := r.cancelled(c); err != nil {
			return nil, err
		}
		res, err := runBefore(c, entry, unwind)
		if res != nil || err != nil {
			return res, err
		}
	}
	return nil, nil
}

// runBefore executes one before phase with a panic guard. A panicking
// interceptor does not join the unwind stack.
func runBefore(c *Context, entry interceptorEntry, unwind *[]unwindFrame) (res *Response, err error) {
	defer func() {
		if v := recover(); v != nil {
			res, err = nil, &PanicError{Value: v, Stack: debug.Stack()}
		}
	}()

	if entry.kind == kindOneShot {
		return entry.fn(c)
	}

	res, state, err := entry.ic.Before(c)
	if res == nil && err == nil {
		*unwind = append(*unwind, unwindFrame{ic: entry.ic, state: state})
	}
	return res, err
}

// runHandler executes the handler with a panic guard.
func runHandler(c *Context, handler HandlerFunc) (res *Response, err error) {
	defer func() {
		if v := recover(); v != nil {
			res, err = nil, &PanicError{Value: v, Stack: debug.Stack()}
		}
	}()
	return handler(c)
}

// runUnwind pops the unwind stack, running after phases in reverse
// registration order. Each after phase observes the current response
// and error; it may replace the response, recover the error by
// returning a response with a nil error, or decline by returning what
// it was given. Superseded responses are closed by the engine.
func runUnwind(c *Context, unwind []unwindFrame, res *Response, err error) (*Response, error) {
	for i := len(unwind) - 1; i >= 0; i-- {
		res, err = runAfter(c, unwind[i], res, err)
	}
	return res, err
}

// runAfter executes one after phase with a panic guard. A panic drops
// the in-flight response and continues unwinding with a *PanicError,
// so outer interceptors still observe the failure.
func runAfter(c *Context, frame unwindFrame, res *Response, err error) (outRes *Response, outErr error) {
	defer func() {
		if v := recover(); v != nil {
			res.discard()
			outRes, outErr = nil, &PanicError{Value: v, Stack: debug.Stack()}
		}
	}()

	outRes, outErr = frame.ic.After(c, frame.state, res, err)
	if outRes != res {
		res.discard()
	}
	return outRes, outErr
}

// redispatch re-matches the request after a before-phase URL rewrite
// and repoints the context at the newly matched route.
func (r *Router) redispatch(c *Context, method string) HandlerFunc {
	handler := r.resolve(c, method)

	r.emit(DiagURLRedispatched, "request URL rewritten mid-chain, re-dispatched", map[string]any{
		"method":   method,
		"url":      c.Request.URL.String(),
		"template": c.template,
	})
	c.logger.Debug("request URL rewritten mid-chain, re-dispatched",
		"url", c.Request.URL.String(),
		"template", c.template)

	return handler
}

// synthesizeRedirect builds the redirect issued when the chain
// finishes with a rewritten request URL. Rewrites to a different host,
// or a different port with both ports present, are configuration
// errors rather than redirects. A protocol change redirects
// permanently; non-GET methods get 307 so the method survives replay;
// everything else gets 302. The method is the one the request was
// dispatched with, not a mid-chain mutation.
func synthesizeRedirect(method string, original, final *url.URL) (*Response, error) {
	if !strings.EqualFold(original.Hostname(), final.Hostname()) {
		return nil, fmt.Errorf("%w: %q -> %q", ErrCrossOriginRewrite, original.String(), final.String())
	}
	if op, fp := original.Port(), final.Port(); op != "" && fp != "" && op != fp {
		return nil, fmt.Errorf("%w: %q -> %q", ErrCrossOriginRewrite, original.String(), final.String())
	}

	status := http.StatusFound
	switch {
	case original.Scheme != final.Scheme:
		status = http.StatusMovedPermanently
	case method != http.MethodGet:
		status = http.StatusTemporaryRedirect
	}

	header := make(http.Header)
	header.Set("Location", final.String())
	return NewResponse(status, header, nil), nil
}
