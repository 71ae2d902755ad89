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
	"strconv"
	"strings"
)

// Modifier controls how often a capture or group may repeat.
type Modifier uint8

const (
	// ModifierNone requires exactly one occurrence.
	ModifierNone Modifier = iota
	// ModifierOptional ("?") allows zero or one occurrence.
	ModifierOptional
	// ModifierZeroOrMore ("*") allows any number of occurrences.
	ModifierZeroOrMore
	// ModifierOneOrMore ("+") requires at least one occurrence.
	ModifierOneOrMore
)

// String returns the modifier as it appears in templates.
func (m Modifier) String() string {
	switch m {
	case ModifierOptional:
		return "?"
	case ModifierZeroOrMore:
		return "*"
	case ModifierOneOrMore:
		return "+"
	default:
		return ""
	}
}

// PartKind identifies what a template part matches.
type PartKind uint8

const (
	// PartFixed is literal text that must match exactly.
	PartFixed PartKind = iota
	// PartCapture is a named or ordinal capture with a pattern.
	PartCapture
	// PartWildcard is a standalone "*" matching anything, delimiters
	// included.
	PartWildcard
	// PartGroup is a "{...}" group containing only literal text. Groups
	// that contain a capture parse as PartCapture with Prefix and Suffix
	// set.
	PartGroup
)

// Part is one element of a parsed template.
//
// Fixed parts carry Value. Captures carry Name (an identifier from the
// template, or an auto-generated ordinal such as "0" for unnamed captures
// and wildcards), the Pattern they must match, and optional Prefix/Suffix
// literals that repeat with the capture under a repeating Modifier.
type Part struct {
	Kind     PartKind
	Value    string
	Name     string
	Prefix   string
	Suffix   string
	Pattern  string
	Modifier Modifier
}

// Parse tokenizes and parses a template into its parts without building
// the matching automaton. Most callers want Compile; Parse is useful for
// template introspection and tooling.
func Parse(template string, opts ...Option) ([]Part, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}
	return parseTemplate(template, o)
}

func parseTemplate(template string, o *options) ([]Part, error) {
	ec := &errorCollector{enabled: o.collectErrors}
	tokens, err := lex(template, ec)
	if err != nil {
		return nil, err
	}

	var (
		parts   []Part
		pending strings.Builder
		ordinal int
		seen    = make(map[string]struct{})
		i       int
	)

	tryConsume := func(t tokenType) (string, bool) {
		if tokens[i].typ == t {
			v := tokens[i].value
			i++
			return v, true
		}
		return "", false
	}
	consumeText := func() string {
		var b strings.Builder
		for {
			if v, ok := tryConsume(tokenChar); ok {
				b.WriteString(v)
				continue
			}
			if v, ok := tryConsume(tokenEscaped); ok {
				b.WriteString(v)
				continue
			}
			return b.String()
		}
	}
	consumeModifier := func() Modifier {
		v, ok := tryConsume(tokenModifier)
		if !ok {
			return ModifierNone
		}
		switch v {
		case "?":
			return ModifierOptional
		case "*":
			return ModifierZeroOrMore
		default:
			return ModifierOneOrMore
		}
	}
	flushFixed := func() {
		if pending.Len() > 0 {
			parts = append(parts, Part{Kind: PartFixed, Value: pending.String()})
			pending.Reset()
		}
	}
	fail := func(pos int, sentinel error) error {
		err := parseErr(template, pos, sentinel)
		if ec.collect(err) {
			return nil
		}
		return err
	}
	claimName := func(name string, pos int) (string, error) {
		if name == "" {
			name = strconv.Itoa(ordinal)
			ordinal++
		}
		if _, dup := seen[name]; dup {
			return name, fail(pos, ErrDuplicateParamName)
		}
		seen[name] = struct{}{}
		return name, nil
	}

	for {
		pos := tokens[i].index
		char, hasChar := tryConsume(tokenChar)
		name, hasName := tryConsume(tokenName)
		pattern, hasPattern := tryConsume(tokenPattern)

		if hasName || hasPattern {
			prefix := char
			if !strings.Contains(o.prefixes, prefix) {
				pending.WriteString(prefix)
				prefix = ""
			}
			flushFixed()

			name, err := claimName(name, pos)
			if err != nil {
				return nil, err
			}
			if pattern == "" {
				pattern = o.defaultPattern()
			}
			parts = append(parts, Part{
				Kind:     PartCapture,
				Name:     name,
				Prefix:   prefix,
				Pattern:  pattern,
				Modifier: consumeModifier(),
			})
			continue
		}

		if hasChar {
			pending.WriteString(char)
			continue
		}
		if v, ok := tryConsume(tokenEscaped); ok {
			pending.WriteString(v)
			continue
		}

		// A modifier with no capture to bind to is either a standalone
		// wildcard ("*") or an error ("?" / "+").
		if tokens[i].typ == tokenModifier {
			if tokens[i].value == "*" {
				i++
				flushFixed()
				name, err := claimName("", pos)
				if err != nil {
					return nil, err
				}
				parts = append(parts, Part{
					Kind:     PartWildcard,
					Name:     name,
					Pattern:  wildcardPattern,
					Modifier: consumeModifier(),
				})
				continue
			}
			if err := fail(pos, ErrUnexpectedToken); err != nil {
				return nil, err
			}
			i++
			continue
		}

		flushFixed()

		if _, ok := tryConsume(tokenOpen); ok {
			prefix := consumeText()
			name, hasName := tryConsume(tokenName)
			pattern, _ := tryConsume(tokenPattern)
			suffix := consumeText()
			if _, ok := tryConsume(tokenClose); !ok {
				if err := fail(tokens[i].index, ErrUnexpectedToken); err != nil {
					return nil, err
				}
			}

			if !hasName && pattern == "" {
				parts = append(parts, Part{
					Kind:     PartGroup,
					Prefix:   prefix,
					Suffix:   suffix,
					Modifier: consumeModifier(),
				})
				continue
			}
			name, err := claimName(name, pos)
			if err != nil {
				return nil, err
			}
			if pattern == "" {
				pattern = o.defaultPattern()
			}
			parts = append(parts, Part{
				Kind:     PartCapture,
				Name:     name,
				Prefix:   prefix,
				Suffix:   suffix,
				Pattern:  pattern,
				Modifier: consumeModifier(),
			})
			continue
		}

		if tokens[i].typ == tokenEnd {
			break
		}

		// Stray "}" or similar.
		if err := fail(pos, ErrUnexpectedToken); err != nil {
			return nil, err
		}
		i++
	}

	if err := ec.joined(); err != nil {
		return nil, err
	}
	return parts, nil
}
