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

type tokenType uint8

const (
	tokenChar     tokenType = iota // literal character
	tokenEscaped                   // character following "\"
	tokenName                      // identifier following ":"
	tokenPattern                   // body of a "(...)" custom pattern
	tokenOpen                      // "{"
	tokenClose                     // "}"
	tokenModifier                  // "?", "*" or "+"
	tokenEnd                       // end of template
)

func (t tokenType) String() string {
	switch t {
	case tokenChar:
		return "char"
	case tokenEscaped:
		return "escaped char"
	case tokenName:
		return "name"
	case tokenPattern:
		return "pattern"
	case tokenOpen:
		return "{"
	case tokenClose:
		return "}"
	case tokenModifier:
		return "modifier"
	default:
		return "end"
	}
}

type token struct {
	typ   tokenType
	index int
	value string
}

// isNameByte reports whether b may appear in a capture identifier.
// Identifiers follow [A-Za-z_$][A-Za-z0-9_$]*: digits are allowed
// everywhere except the first byte.
func isNameByte(b byte, first bool) bool {
	switch {
	case b >= 'a' && b <= 'z', b >= 'A' && b <= 'Z', b == '_', b == '$':
		return true
	case b >= '0' && b <= '9':
		return !first
	default:
		return false
	}
}

// lex splits a template into tokens. In fail-fast mode the first malformed
// construct aborts the scan; a collector keeps scanning past errors so every
// problem in the template surfaces at once. Recovery treats the offending
// byte as a literal character.
func lex(template string, errs *errorCollector) ([]token, error) {
	tokens := make([]token, 0, len(template)/2+2)
	i := 0

	fail := func(pos int, sentinel error) error {
		err := parseErr(template, pos, sentinel)
		if errs.collect(err) {
			return nil
		}
		return err
	}

	for i < len(template) {
		switch c := template[i]; c {
		case '*', '+', '?':
			tokens = append(tokens, token{tokenModifier, i, string(c)})
			i++
		case '\\':
			if i+1 >= len(template) {
				if err := fail(i, ErrDanglingEscape); err != nil {
					return nil, err
				}
				tokens = append(tokens, token{tokenChar, i, `\`})
				i++
				continue
			}
			tokens = append(tokens, token{tokenEscaped, i, string(template[i+1])})
			i += 2
		case '{':
			tokens = append(tokens, token{tokenOpen, i, "{"})
			i++
		case '}':
			tokens = append(tokens, token{tokenClose, i, "}"})
			i++
		case ':':
			j := i + 1
			for j < len(template) && isNameByte(template[j], j == i+1) {
				j++
			}
			if j == i+1 {
				if err := fail(i, ErrMissingParamName); err != nil {
					return nil, err
				}
				tokens = append(tokens, token{tokenChar, i, ":"})
				i++
				continue
			}
			tokens = append(tokens, token{tokenName, i, template[i+1 : j]})
			i = j
		case '(':
			body, next, err := lexPattern(template, i)
			if err != nil {
				if ferr := fail(i, err); ferr != nil {
					return nil, ferr
				}
				tokens = append(tokens, token{tokenChar, i, "("})
				i++
				continue
			}
			tokens = append(tokens, token{tokenPattern, i, body})
			i = next
		default:
			tokens = append(tokens, token{tokenChar, i, string(c)})
			i++
		}
	}
	tokens = append(tokens, token{tokenEnd, i, ""})
	return tokens, nil
}

// lexPattern scans a "(...)" custom pattern starting at the opening paren.
// It returns the pattern body and the index just past the closing paren.
// The body may not be empty, may not start with "?", and may nest only
// non-capturing groups.
func lexPattern(template string, start int) (string, int, error) {
	j := start + 1
	if j < len(template) && template[j] == '?' {
		return "", 0, ErrPatternStart
	}
	depth := 1
	var body []byte
	for j < len(template) {
		switch template[j] {
		case '\\':
			if j+1 >= len(template) {
				return "", 0, ErrUnbalancedPattern
			}
			body = append(body, template[j], template[j+1])
			j += 2
			continue
		case ')':
			depth--
			if depth == 0 {
				if len(body) == 0 {
					return "", 0, ErrMissingPattern
				}
				return string(body), j + 1, nil
			}
		case '(':
			depth++
			if j+1 >= len(template) || template[j+1] != '?' {
				return "", 0, ErrCapturingGroup
			}
		}
		body = append(body, template[j])
		j++
	}
	return "", 0, ErrUnbalancedPattern
}
