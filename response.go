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
	"bytes"
	"io"
	"net/http"
)

// Response is the outcome of a dispatched request. Handlers and
// interceptors build it; ServeHTTP writes it to the wire at the
// boundary.
//
// A Response is single-use: the body is consumed when written. Use
// ReadBody to inspect the body without losing it.
type Response struct {
	// StatusCode is the HTTP status. Zero writes as 200 OK.
	StatusCode int

	// Header holds the response headers. May be nil.
	Header http.Header

	// Body is the response body. May be nil for empty responses.
	Body io.ReadCloser
}

// NewResponse builds a response with a byte body. A nil body is allowed.
func NewResponse(statusCode int, header http.Header, body []byte) *Response {
	res := &Response{
		StatusCode: statusCode,
		Header:     header,
	}
	if res.Header == nil {
		res.Header = make(http.Header)
	}
	if body != nil {
		res.Body = io.NopCloser(bytes.NewReader(body))
	}
	return res
}

// ReadBody consumes the body and returns its bytes, then re-arms the
// body so the response can still be written or cached. A nil body reads
// as empty.
func (r *Response) ReadBody() ([]byte, error) {
	if r.Body == nil {
		return nil, nil
	}
	data, err := io.ReadAll(r.Body)
	closeErr := r.Body.Close()
	if err == nil {
		err = closeErr
	}
	r.Body = io.NopCloser(bytes.NewReader(data))
	return data, err
}

// discard releases the body of a response that will not be written.
func (r *Response) discard() {
	if r != nil && r.Body != nil {
		_ = r.Body.Close()
	}
}

// write sends the response over the wire. The body is closed afterward.
func (r *Response) write(w http.ResponseWriter) error {
	for key, values := range r.Header {
		for _, value := range values {
			w.Header().Add(key, value)
		}
	}

	status := r.StatusCode
	if status == 0 {
		status = http.StatusOK
	}
	w.WriteHeader(status)

	if r.Body == nil {
		return nil
	}
	defer r.Body.Close()

	_, err := io.Copy(w, r.Body)
	return err
}
