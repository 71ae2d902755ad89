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

package compiler

import (
	"errors"
	"fmt"
)

var (
	// ErrMissingParamName is returned when ":" is not followed by a valid
	// identifier ([A-Za-z_$][A-Za-z0-9_$]*).
	ErrMissingParamName = errors.New("missing parameter name")

	// ErrMissingPattern is returned for an empty custom pattern "()".
	ErrMissingPattern = errors.New("missing pattern")

	// ErrPatternStart is returned when a custom pattern starts with "?".
	// Non-capturing or lookaround syntax at the top level of a custom
	// pattern is rejected; the compiler adds its own grouping.
	ErrPatternStart = errors.New(`pattern cannot start with "?"`)

	// ErrCapturingGroup is returned when a custom pattern contains a nested
	// capturing group. Use "(?:...)" instead.
	ErrCapturingGroup = errors.New("capturing groups are not allowed")

	// ErrUnbalancedPattern is returned when a custom pattern's parentheses
	// do not balance before the template ends.
	ErrUnbalancedPattern = errors.New("unbalanced pattern")

	// ErrDuplicateParamName is returned when two captures in one template
	// share a name.
	ErrDuplicateParamName = errors.New("duplicate parameter name")

	// ErrUnexpectedToken is returned when a modifier or group delimiter
	// appears where it cannot apply, such as "?" with no preceding capture
	// or an unmatched "}".
	ErrUnexpectedToken = errors.New("unexpected token")

	// ErrDanglingEscape is returned when a template ends with a bare "\".
	ErrDanglingEscape = errors.New("dangling escape")
)

// ParseError describes a malformed template. It carries the byte offset of
// the offending construct and wraps one of the sentinel errors above, so
// callers can test the failure class with errors.Is.
type ParseError struct {
	Template string
	Pos      int
	Err      error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("compiler: %v at %d in %q", e.Err, e.Pos, e.Template)
}

func (e *ParseError) Unwrap() error { return e.Err }

func parseErr(template string, pos int, err error) *ParseError {
	return &ParseError{Template: template, Pos: pos, Err: err}
}

// errorCollector accumulates parse errors when collect-errors mode is on.
// With collection disabled it refuses every error, which makes the caller
// fail fast on the first one.
type errorCollector struct {
	enabled bool
	errs    []error
}

// collect records err and reports whether scanning should continue.
func (ec *errorCollector) collect(err error) bool {
	if !ec.enabled {
		return false
	}
	ec.errs = append(ec.errs, err)
	return true
}

// joined returns every collected error as one, or nil when none occurred.
func (ec *errorCollector) joined() error { return errors.Join(ec.errs...) }
