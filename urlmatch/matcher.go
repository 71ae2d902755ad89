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

type config struct {
	caseSensitive bool
	collectErrors bool
}

// Option configures matcher construction.
type Option func(*config)

// CaseSensitive makes path matching case-sensitive. Host, port and
// protocol always match case-insensitively.
func CaseSensitive() Option {
	return func(c *config) {
		c.caseSensitive = true
	}
}

// CollectErrors reports every template problem at once instead of failing
// on the first. See the compiler package option of the same name.
func CollectErrors() Option {
	return func(c *config) {
		c.collectErrors = true
	}
}

// Matcher matches URLs against one compiled template. Matchers are
// immutable and safe for concurrent use.
type Matcher struct {
	template string
	protocol *compiler.Pattern
	host     *compiler.Pattern
	port     *compiler.Pattern
	path     *compiler.Pattern
	query    *queryPattern
}

// Result carries the outcome of a successful Exec.
type Result struct {
	// Template is the matcher's source template.
	Template string
	// URL is the candidate as given to Exec.
	URL string
	// Params unifies path and query captures: path captures are applied
	// first, then overwritten by query captures sharing a name.
	Params map[string]string

	// Per-component captures.
	Protocol map[string]string
	Host     map[string]string
	Port     map[string]string
	Path     map[string]string
	Query    map[string]string
}

// New compiles a URL template. Components absent from the template are
// unconstrained during matching. Host, port and protocol constraints
// require the "scheme://" form; templates without it are path (and
// query) templates.
func New(template string, opts ...Option) (*Matcher, error) {
	cfg := &config{}
	for _, opt := range opts {
		opt(cfg)
	}

	protocol, authority, rawPath, rawQuery := splitTemplate(template)

	m := &Matcher{template: template}
	var err error

	hostOpts := []compiler.Option{compiler.WithDelimiters("."), compiler.WithPrefixes(".")}
	if cfg.collectErrors {
		hostOpts = append(hostOpts, compiler.CollectErrors())
	}

	if protocol != "" {
		if m.protocol, err = compiler.Compile(protocol, hostOpts...); err != nil {
			return nil, err
		}
	}
	if authority != "" {
		host, port := splitHostPort(authority)
		if m.host, err = compiler.Compile(host, hostOpts...); err != nil {
			return nil, err
		}
		if port != "" {
			if m.port, err = compiler.Compile(port, hostOpts...); err != nil {
				return nil, err
			}
		}
	}

	hasOther := protocol != "" || authority != "" || rawQuery != ""
	if path := normalizePath(unescapePath(rawPath)); path != "" || !hasOther {
		var pathOpts []compiler.Option
		if cfg.caseSensitive {
			pathOpts = append(pathOpts, compiler.CaseSensitive())
		}
		if cfg.collectErrors {
			pathOpts = append(pathOpts, compiler.CollectErrors())
		}
		if m.path, err = compiler.Compile(path, pathOpts...); err != nil {
			return nil, err
		}
	}

	if rawQuery != "" {
		if m.query, err = parseQueryPattern(rawQuery); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// MustNew is like New but panics on error.
func MustNew(template string, opts ...Option) *Matcher {
	m, err := New(template, opts...)
	if err != nil {
		panic(err)
	}
	return m
}

// Template returns the source template.
func (m *Matcher) Template() string { return m.template }

// String returns the source template.
func (m *Matcher) String() string { return m.template }

// HasQuery reports whether the template constrains query parameters.
func (m *Matcher) HasQuery() bool { return m.query != nil }

// Test reports whether candidate satisfies every component the template
// constrains. It never panics; a candidate that does not parse as a URL
// does not match.
func (m *Matcher) Test(candidate string) bool {
	u, err := url.Parse(candidate)
	if err != nil {
		return false
	}
	if m.protocol != nil && !m.protocol.MatchString(u.Scheme) {
		return false
	}
	if m.host != nil && !m.host.MatchString(u.Hostname()) {
		return false
	}
	if m.port != nil && !m.port.MatchString(u.Port()) {
		return false
	}
	if m.path != nil && !m.path.MatchString(normalizePath(u.Path)) {
		return false
	}
	if m.query != nil {
		if _, ok := m.query.match(u.Query()); !ok {
			return false
		}
	}
	return true
}

// Exec matches candidate and extracts captures. It returns (nil, false)
// when the candidate does not match. When a component matches but its
// captures cannot be extracted, Exec degrades to empty captures for that
// component instead of failing the whole match.
func (m *Matcher) Exec(candidate string) (*Result, bool) {
	u, err := url.Parse(candidate)
	if err != nil {
		return nil, false
	}

	res := &Result{Template: m.template, URL: candidate}

	if res.Protocol, err = execComponent(m.protocol, u.Scheme); err != nil {
		return nil, false
	}
	if res.Host, err = execComponent(m.host, u.Hostname()); err != nil {
		return nil, false
	}
	if res.Port, err = execComponent(m.port, u.Port()); err != nil {
		return nil, false
	}
	if res.Path, err = execComponent(m.path, normalizePath(u.Path)); err != nil {
		return nil, false
	}
	if m.query != nil {
		captures, ok := m.query.match(u.Query())
		if !ok {
			return nil, false
		}
		res.Query = captures
	}

	res.Params = make(map[string]string, len(res.Path)+len(res.Query))
	for name, value := range res.Path {
		res.Params[name] = value
	}
	for name, value := range res.Query {
		res.Params[name] = value
	}
	return res, true
}

var errComponentMismatch = fmt.Errorf("urlmatch: component mismatch")

// execComponent matches one component and extracts its captures. A nil
// pattern is unconstrained. A component that matched but cannot yield its
// captures degrades to an empty capture map.
func execComponent(p *compiler.Pattern, input string) (captures map[string]string, err error) {
	if p == nil {
		return nil, nil
	}
	defer func() {
		if recover() != nil {
			captures, err = map[string]string{}, nil
		}
	}()
	captures, ok := p.Match(input)
	if !ok {
		return nil, errComponentMismatch
	}
	return captures, nil
}

// normalizePath strips one trailing slash; the root path is preserved.
// Applying it twice yields the same result.
func normalizePath(path string) string {
	if len(path) > 1 && strings.HasSuffix(path, "/") {
		return path[:len(path)-1]
	}
	return path
}

// unescapePath decodes percent-escapes in a template path so templates
// compare against the decoded paths that url.Parse produces for
// candidates. Undecodable templates are used as written.
func unescapePath(path string) string {
	if !strings.Contains(path, "%") {
		return path
	}
	decoded, err := url.PathUnescape(path)
	if err != nil {
		return path
	}
	return decoded
}

// splitTemplate separates a template into protocol, authority, path and
// raw query. Templates cannot round-trip through url.Parse: a "?"
// modifier would be taken for a query separator, and captures in the
// authority would be rejected as invalid ports.
func splitTemplate(template string) (protocol, authority, path, query string) {
	rest := template
	if i := strings.Index(rest, "://"); i >= 0 {
		protocol = rest[:i]
		rest = rest[i+3:]
		if j := strings.IndexByte(rest, '/'); j >= 0 {
			authority, rest = rest[:j], rest[j:]
		} else {
			authority, query = SplitPathQuery(rest)
			return protocol, authority, "", query
		}
	}
	path, query = SplitPathQuery(rest)
	return protocol, authority, path, query
}

// SplitPathQuery splits a template into its path part and query
// pattern, honoring the template syntax: a "?" inside a custom
// pattern, escaped, or directly modifying a preceding capture, group
// or wildcard stays in the path. The returned query has the leading
// "?" removed and is empty when the template has no query pattern.
func SplitPathQuery(s string) (path, query string) {
	depth := 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '\\':
			i++
		case '(':
			depth++
		case ')':
			if depth > 0 {
				depth--
			}
		case '?':
			if depth > 0 || isModifierPosition(s, i) {
				continue
			}
			return s[:i], s[i+1:]
		}
	}
	return s, ""
}

// isModifierPosition reports whether the "?" at index i modifies a
// preceding capture, group or wildcard rather than starting the query.
func isModifierPosition(s string, i int) bool {
	if i == 0 {
		return false
	}
	switch s[i-1] {
	case ')', '}', '*':
		return true
	}
	j := i - 1
	for j >= 0 && isIdentByte(s[j]) {
		j--
	}
	return j >= 0 && j < i-1 && s[j] == ':'
}

func isIdentByte(b byte) bool {
	switch {
	case b >= 'a' && b <= 'z', b >= 'A' && b <= 'Z', b >= '0' && b <= '9', b == '_', b == '$':
		return true
	default:
		return false
	}
}

// splitHostPort splits a template authority into host and port templates.
// Three port forms are recognized: a literal numeric port
// ("example.com:8080"), any port ("example.com:*"), and a captured port
// ("example.com::p"). Anything else keeps the colon inside the host
// template.
func splitHostPort(authority string) (host, port string) {
	if i := strings.Index(authority, "::"); i >= 0 {
		return authority[:i], authority[i+1:]
	}
	i := strings.LastIndexByte(authority, ':')
	if i < 0 {
		return authority, ""
	}
	switch suffix := authority[i+1:]; {
	case suffix == "*":
		return authority[:i], "*"
	case isDigits(suffix):
		return authority[:i], suffix
	default:
		return authority, ""
	}
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
