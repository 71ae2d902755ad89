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
	"fmt"
	"regexp"
	"strings"
)

// wildcardPattern matches anything, delimiters and newlines included.
// The s-flag set during emission makes "." cross newlines.
const wildcardPattern = `.*`

type options struct {
	delimiters    string
	prefixes      string
	sensitive     bool
	strict        bool
	anchorStart   bool
	anchorEnd     bool
	collectErrors bool
}

func defaultOptions() *options {
	return &options{
		delimiters:  "/#?",
		prefixes:    "./",
		anchorStart: true,
		anchorEnd:   true,
	}
}

// defaultPattern is what a capture without a custom pattern matches: one or
// more characters excluding the delimiter set, as few as possible.
func (o *options) defaultPattern() string {
	return "[^" + classEscape(o.delimiters) + "]+?"
}

// Option configures template compilation.
type Option func(*options)

// WithDelimiters sets the characters a default capture will not cross.
// The default is "/#?".
func WithDelimiters(delimiters string) Option {
	return func(o *options) {
		o.delimiters = delimiters
	}
}

// WithPrefixes sets the characters that bind to a following capture as its
// prefix instead of remaining fixed text. The default is "./", which is
// what makes "/:id" treat the slash as part of the optional unit in
// "/:id?".
func WithPrefixes(prefixes string) Option {
	return func(o *options) {
		o.prefixes = prefixes
	}
}

// CaseSensitive makes matching case-sensitive. Templates match
// case-insensitively by default.
func CaseSensitive() Option {
	return func(o *options) {
		o.sensitive = true
	}
}

// Strict disables the single optional trailing delimiter that end-anchored
// patterns otherwise accept, so "/users" no longer matches "/users/".
func Strict() Option {
	return func(o *options) {
		o.strict = true
	}
}

// WithoutStartAnchor lets the pattern match anywhere in the input rather
// than only at its beginning.
func WithoutStartAnchor() Option {
	return func(o *options) {
		o.anchorStart = false
	}
}

// WithoutEndAnchor turns the pattern into a prefix matcher: input may
// continue past the match, provided the match stops on a delimiter
// boundary or the end of input.
func WithoutEndAnchor() Option {
	return func(o *options) {
		o.anchorEnd = false
	}
}

// CollectErrors defers error surfacing: instead of stopping at the first
// malformed construct, compilation scans the whole template and returns
// every problem joined into a single error. Use errors.Is against the
// sentinel errors in this package to classify the individual failures.
func CollectErrors() Option {
	return func(o *options) {
		o.collectErrors = true
	}
}

// Pattern is a compiled template: a matching automaton plus the ordered
// list of capture names its groups bind to. A Pattern is immutable and
// safe for concurrent use.
type Pattern struct {
	template string
	parts    []Part
	names    []string
	re       *regexp.Regexp
	opts     options
}

// Compile parses a template and builds its matching automaton.
//
// Template syntax follows the path-to-regexp family:
//
//	/users/:id            named capture up to the next delimiter
//	/users/:id(\d+)       named capture with a custom pattern
//	/files/*              wildcard capture, delimiters included
//	/posts/:slug?         optional capture, slash bound as its prefix
//	/tags/:tag+           repeated capture, separators carried per repeat
//	/v{:major}.{:minor}   group prefix/suffix text bound to the capture
//	/icon\:small          escaped metacharacter matched literally
//
// Unnamed captures and wildcards are assigned ordinal names ("0", "1", …)
// in appearance order. Duplicate capture names fail compilation.
func Compile(template string, opts ...Option) (*Pattern, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}
	parts, err := parseTemplate(template, o)
	if err != nil {
		return nil, err
	}
	re, names, err := buildRegexp(parts, o)
	if err != nil {
		return nil, fmt.Errorf("compiler: compile %q: %w", template, err)
	}
	return &Pattern{template: template, parts: parts, names: names, re: re, opts: *o}, nil
}

// MustCompile is like Compile but panics on error. It simplifies route
// table construction during application startup.
func MustCompile(template string, opts ...Option) *Pattern {
	p, err := Compile(template, opts...)
	if err != nil {
		panic(err)
	}
	return p
}

// Template returns the source template.
func (p *Pattern) Template() string { return p.template }

// String returns the source template.
func (p *Pattern) String() string { return p.template }

// Names returns the capture names in group order. Callers must not modify
// the returned slice.
func (p *Pattern) Names() []string { return p.names }

// Parts returns the parsed template parts. Callers must not modify the
// returned slice.
func (p *Pattern) Parts() []Part { return p.parts }

// Regexp exposes the underlying automaton for diagnostics.
func (p *Pattern) Regexp() *regexp.Regexp { return p.re }

// MatchString reports whether input matches the pattern.
func (p *Pattern) MatchString(input string) bool {
	return p.re.MatchString(input)
}

// Match tests input against the pattern and, on success, returns the
// captured substrings keyed by capture name. Optional captures that did
// not participate in the match are absent from the map. A capture under a
// repeating modifier holds the full matched span, separators included.
func (p *Pattern) Match(input string) (map[string]string, bool) {
	m := p.re.FindStringSubmatchIndex(input)
	if m == nil {
		return nil, false
	}
	params := make(map[string]string, len(p.names))
	for i, name := range p.names {
		start, end := m[2*(i+1)], m[2*(i+1)+1]
		if start < 0 {
			continue
		}
		params[name] = input[start:end]
	}
	return params, true
}

// buildRegexp emits the automaton for a parsed template. Groups are
// positional; names lists the capture name for each group in order.
// Capture identifiers may contain "$", which RE2 group names cannot,
// so named groups are not used.
func buildRegexp(parts []Part, o *options) (re *regexp.Regexp, names []string, err error) {
	var b strings.Builder
	if o.sensitive {
		b.WriteString("(?s)")
	} else {
		b.WriteString("(?is)")
	}
	if o.anchorStart {
		b.WriteByte('^')
	}

	delimClass := "[" + classEscape(o.delimiters) + "]"

	for _, part := range parts {
		switch part.Kind {
		case PartFixed:
			b.WriteString(regexp.QuoteMeta(part.Value))
		case PartGroup:
			b.WriteString("(?:")
			b.WriteString(regexp.QuoteMeta(part.Prefix))
			b.WriteString(regexp.QuoteMeta(part.Suffix))
			b.WriteString(")")
			b.WriteString(part.Modifier.String())
		default:
			names = append(names, part.Name)
			prefix := regexp.QuoteMeta(part.Prefix)
			suffix := regexp.QuoteMeta(part.Suffix)
			repeating := part.Modifier == ModifierZeroOrMore || part.Modifier == ModifierOneOrMore

			switch {
			case repeating && (prefix != "" || suffix != ""):
				// Repeat the whole prefix+capture+suffix unit so every
				// repetition carries its own separator.
				opt := ""
				if part.Modifier == ModifierZeroOrMore {
					opt = "?"
				}
				fmt.Fprintf(&b, "(?:%s((?:%s)(?:%s%s(?:%s))*)%s)%s",
					prefix, part.Pattern, suffix, prefix, part.Pattern, suffix, opt)
			case prefix != "" || suffix != "":
				fmt.Fprintf(&b, "(?:%s(%s)%s)%s", prefix, part.Pattern, suffix, part.Modifier)
			case repeating:
				fmt.Fprintf(&b, "((?:%s)%s)", part.Pattern, part.Modifier)
			default:
				fmt.Fprintf(&b, "(%s)%s", part.Pattern, part.Modifier)
			}
		}
	}

	if o.anchorEnd {
		if !o.strict {
			b.WriteString(delimClass + "?")
		}
		b.WriteByte('$')
	} else if !endsWithDelimiter(parts, o.delimiters) {
		// RE2 has no lookahead, so the delimiter boundary is consumed
		// instead of peeked at. Prefix matchers only care that a boundary
		// exists, not who owns it.
		b.WriteString("(?:" + delimClass + "|$)")
	}

	re, err = regexp.Compile(b.String())
	if err != nil {
		return nil, nil, err
	}
	return re, names, nil
}

// endsWithDelimiter reports whether the template's own text already stops
// on a delimiter, in which case a prefix matcher needs no extra boundary.
func endsWithDelimiter(parts []Part, delimiters string) bool {
	if len(parts) == 0 {
		return true
	}
	last := parts[len(parts)-1]
	if last.Kind != PartFixed || last.Value == "" {
		return false
	}
	return strings.ContainsRune(delimiters, rune(last.Value[len(last.Value)-1]))
}

// classEscape escapes s for use inside a character class.
func classEscape(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch r {
		case '\\', ']', '^', '-':
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}
