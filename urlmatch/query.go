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

package urlmatch

import (
	"fmt"
	"net/url"
	"strings"

	"rivaas.dev/dispatch/compiler"
)

// querySpec is one key=spec pair of a query template.
type querySpec struct {
	key      string
	literal  string // exact expected value
	name     string // capture name; "" for literal and wildcard specs
	optional bool   // ":name?": absent key still matches
	wildcard bool   // "*" or bare key: any value, key must be present
}

// queryPattern matches URL query values order-independently. Keys the
// template does not name are ignored.
type queryPattern struct {
	specs []querySpec
}

// parseQueryPattern compiles a raw query template. Specs are "key=value"
// literals, "key=:name" captures (":name?" for optional), "key=*"
// wildcards, or a bare "key" which is shorthand for "key=*".
func parseQueryPattern(rawQuery string) (*queryPattern, error) {
	qp := &queryPattern{}
	seen := make(map[string]struct{})

	for _, pair := range strings.Split(rawQuery, "&") {
		if pair == "" {
			continue
		}
		rawKey, rawSpec, hasSpec := strings.Cut(pair, "=")
		key, err := url.QueryUnescape(rawKey)
		if err != nil {
			key = rawKey
		}

		if !hasSpec || rawSpec == "*" {
			qp.specs = append(qp.specs, querySpec{key: key, wildcard: true})
			continue
		}

		if strings.HasPrefix(rawSpec, ":") {
			name := rawSpec[1:]
			optional := strings.HasSuffix(name, "?")
			if optional {
				name = name[:len(name)-1]
			}
			if !validCaptureName(name) {
				return nil, fmt.Errorf("urlmatch: query key %q: %w", key, compiler.ErrMissingParamName)
			}
			if _, dup := seen[name]; dup {
				return nil, fmt.Errorf("urlmatch: query key %q: %w", key, compiler.ErrDuplicateParamName)
			}
			seen[name] = struct{}{}
			qp.specs = append(qp.specs, querySpec{key: key, name: name, optional: optional})
			continue
		}

		literal, err := url.QueryUnescape(rawSpec)
		if err != nil {
			literal = rawSpec
		}
		qp.specs = append(qp.specs, querySpec{key: key, literal: literal})
	}
	return qp, nil
}

// match tests candidate query values against every spec and returns the
// captured values. Multi-valued keys match on their first value.
func (qp *queryPattern) match(values url.Values) (map[string]string, bool) {
	captures := make(map[string]string)
	for _, spec := range qp.specs {
		vs, present := values[spec.key]
		var value string
		if len(vs) > 0 {
			value = vs[0]
		}

		switch {
		case spec.wildcard:
			if !present {
				return nil, false
			}
		case spec.name != "":
			if !present {
				if spec.optional {
					continue
				}
				return nil, false
			}
			captures[spec.name] = value
		default:
			if !present || value != spec.literal {
				return nil, false
			}
		}
	}
	return captures, true
}

// validCaptureName checks the identifier rule [A-Za-z_$][A-Za-z0-9_$]*.
func validCaptureName(name string) bool {
	if name == "" {
		return false
	}
	for i := 0; i < len(name); i++ {
		b := name[i]
		if b >= '0' && b <= '9' {
			if i == 0 {
				return false
			}
			continue
		}
		if !isIdentByte(b) {
			return false
		}
	}
	return true
}
