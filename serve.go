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
	"context"
	"errors"
	"net/http"

	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"
)

// ServeHTTP implements http.Handler. It runs the observability
// lifecycle around Dispatch and writes the resulting response. Errors
// that escape the chain are logged and mapped to a plain 500.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	var obsState any
	if r.observability != nil {
		ctx, state := r.observability.OnRequestStart(req.Context(), req)
		if ctx != req.Context() {
			req = req.WithContext(ctx)
		}
		obsState = state
		if state != nil {
			w = r.observability.WrapResponseWriter(w, state)
		}
	}

	res, template, err := r.dispatch(req)
	if err != nil {
		r.logDispatchError(req, template, err)
		http.Error(w, "500 internal server error", http.StatusInternalServerError)
	} else if werr := res.write(w); werr != nil {
		// Usually the client going away mid-body; nothing to send anymore.
		r.logger.Debug("response write failed",
			"method", req.Method,
			"template", template,
			"error", werr)
	}

	if obsState != nil {
		r.observability.OnRequestEnd(req.Context(), obsState, w, template)
	}
}

func (r *Router) logDispatchError(req *http.Request, template string, err error) {
	attrs := []any{
		"method", req.Method,
		"url", req.URL.String(),
		"template", template,
		"error", err,
	}
	var pe *PanicError
	if errors.As(err, &pe) {
		attrs = append(attrs, "stack", string(pe.Stack))
	}
	r.logger.Error("dispatch failed", attrs...)
}

// Serve starts an HTTP server on addr with the router as handler.
// It blocks until the server stops; a graceful stop via Shutdown
// returns http.ErrServerClosed.
//
// The server runs with the configured timeouts (see WithServerTimeouts
// for the defaults). With WithH2C the handler also accepts HTTP/2
// cleartext upgrades.
func (r *Router) Serve(addr string) error {
	var handler http.Handler = r
	if r.enableH2C {
		handler = h2c.NewHandler(handler, &http2.Server{})
		r.emit(DiagH2CEnabled, "HTTP/2 cleartext enabled", map[string]any{
			"addr": addr,
		})
	}

	srv := r.newServer(addr, handler)
	r.setServer(srv)
	return srv.ListenAndServe()
}

// ServeTLS starts an HTTPS server on addr using the given certificate
// and key files. HTTP/2 is negotiated through ALPN, so WithH2C has no
// effect here. Blocks like Serve.
func (r *Router) ServeTLS(addr, certFile, keyFile string) error {
	srv := r.newServer(addr, r)
	r.setServer(srv)
	return srv.ListenAndServeTLS(certFile, keyFile)
}

// Shutdown gracefully stops a server started with Serve or ServeTLS,
// waiting for in-flight requests up to the context deadline. It is a
// no-op when no server is running.
func (r *Router) Shutdown(ctx context.Context) error {
	r.serverMu.Lock()
	srv := r.server
	r.server = nil
	r.serverMu.Unlock()

	if srv == nil {
		return nil
	}
	return srv.Shutdown(ctx)
}

func (r *Router) newServer(addr string, handler http.Handler) *http.Server {
	t := r.serverTimeouts
	if t == nil {
		t = defaultServerTimeouts()
	}
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: t.readHeader,
		ReadTimeout:       t.read,
		WriteTimeout:      t.write,
		IdleTimeout:       t.idle,
	}
}

func (r *Router) setServer(srv *http.Server) {
	r.serverMu.Lock()
	r.server = srv
	r.serverMu.Unlock()
}
