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

//go:build !integration

package compiler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompileAndMatch(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		template string
		input    string
		match    bool
		params   map[string]string
	}{
		{
			name:     "literal template",
			template: "/health",
			input:    "/health",
			match:    true,
			params:   map[string]string{},
		},
		{
			name:     "literal mismatch",
			template: "/health",
			input:    "/healthz",
			match:    false,
		},
		{
			name:     "named capture",
			template: "/users/:id",
			input:    "/users/123",
			match:    true,
			params:   map[string]string{"id": "123"},
		},
		{
			name:     "named capture rejects empty segment",
			template: "/users/:id",
			input:    "/users/",
			match:    false,
		},
		{
			name:     "capture stops at delimiter",
			template: "/users/:id",
			input:    "/users/123/posts",
			match:    false,
		},
		{
			name:     "two captures",
			template: "/users/:id/posts/:postID",
			input:    "/users/7/posts/42",
			match:    true,
			params:   map[string]string{"id": "7", "postID": "42"},
		},
		{
			name:     "dollar in identifier",
			template: "/q/:$ref",
			input:    "/q/abc",
			match:    true,
			params:   map[string]string{"$ref": "abc"},
		},
		{
			name:     "custom pattern digits",
			template: "/orders/:id(\\d+)",
			input:    "/orders/900",
			match:    true,
			params:   map[string]string{"id": "900"},
		},
		{
			name:     "custom pattern rejects non-digits",
			template: "/orders/:id(\\d+)",
			input:    "/orders/abc",
			match:    false,
		},
		{
			name:     "unnamed pattern gets ordinal",
			template: "/posts/(\\d+)",
			input:    "/posts/42",
			match:    true,
			params:   map[string]string{"0": "42"},
		},
		{
			name:     "wildcard captures across delimiters",
			template: "/api/*",
			input:    "/api/v1/users/7",
			match:    true,
			params:   map[string]string{"0": "v1/users/7"},
		},
		{
			name:     "wildcard and named capture keep separate names",
			template: "/:service/files/*",
			input:    "/assets/files/css/site.css",
			match:    true,
			params:   map[string]string{"service": "assets", "0": "css/site.css"},
		},
		{
			name:     "optional capture present",
			template: "/files/:name?",
			input:    "/files/readme.txt",
			match:    true,
			params:   map[string]string{"name": "readme.txt"},
		},
		{
			name:     "optional capture absent",
			template: "/files/:name?",
			input:    "/files",
			match:    true,
			params:   map[string]string{},
		},
		{
			name:     "optional capture absent with trailing slash",
			template: "/files/:name?",
			input:    "/files/",
			match:    true,
			params:   map[string]string{},
		},
		{
			name:     "one-or-more repeats with separators",
			template: "/tags/:tag+",
			input:    "/tags/go/web/http",
			match:    true,
			params:   map[string]string{"tag": "go/web/http"},
		},
		{
			name:     "one-or-more requires at least one",
			template: "/tags/:tag+",
			input:    "/tags",
			match:    false,
		},
		{
			name:     "zero-or-more allows none",
			template: "/tags/:tag*",
			input:    "/tags",
			match:    true,
			params:   map[string]string{},
		},
		{
			name:     "group binds prefix and suffix",
			template: "/v{:major}.{:minor}",
			input:    "/v1.2",
			match:    true,
			params:   map[string]string{"major": "1", "minor": "2"},
		},
		{
			name:     "optional group with literal prefix",
			template: "/releases{-v:major}?",
			input:    "/releases-v2",
			match:    true,
			params:   map[string]string{"major": "2"},
		},
		{
			name:     "optional group absent",
			template: "/releases{-v:major}?",
			input:    "/releases",
			match:    true,
			params:   map[string]string{},
		},
		{
			name:     "literal-only group optional",
			template: "/index{.html}?",
			input:    "/index",
			match:    true,
			params:   map[string]string{},
		},
		{
			name:     "literal-only group present",
			template: "/index{.html}?",
			input:    "/index.html",
			match:    true,
			params:   map[string]string{},
		},
		{
			name:     "escaped metacharacter is literal",
			template: `/icon\:small`,
			input:    "/icon:small",
			match:    true,
			params:   map[string]string{},
		},
		{
			name:     "dot prefix binds to capture",
			template: "/files/:name.:ext",
			input:    "/files/report.pdf",
			match:    true,
			params:   map[string]string{"name": "report", "ext": "pdf"},
		},
		{
			name:     "trailing slash tolerated by default",
			template: "/посты/:id",
			input:    "/посты/5/",
			match:    true,
			params:   map[string]string{"id": "5"},
		},
		{
			name:     "case-insensitive by default",
			template: "/Users/:id",
			input:    "/users/42",
			match:    true,
			params:   map[string]string{"id": "42"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			p, err := Compile(tt.template)
			require.NoError(t, err)

			params, ok := p.Match(tt.input)
			assert.Equal(t, tt.match, ok, "match outcome for %q", tt.input)
			if tt.match {
				assert.Equal(t, tt.params, params)
			}
		})
	}
}

func TestCompileOptions(t *testing.T) {
	t.Parallel()

	t.Run("case sensitive", func(t *testing.T) {
		t.Parallel()
		p := MustCompile("/Users/:id", CaseSensitive())
		assert.False(t, p.MatchString("/users/42"))
		assert.True(t, p.MatchString("/Users/42"))
	})

	t.Run("strict rejects trailing slash", func(t *testing.T) {
		t.Parallel()
		p := MustCompile("/users", Strict())
		assert.False(t, p.MatchString("/users/"))
		assert.True(t, p.MatchString("/users"))
	})

	t.Run("without end anchor matches prefixes on boundaries", func(t *testing.T) {
		t.Parallel()
		p := MustCompile("/api", WithoutEndAnchor())
		assert.True(t, p.MatchString("/api"))
		assert.True(t, p.MatchString("/api/users"))
		assert.False(t, p.MatchString("/apiusers"))
	})

	t.Run("without start anchor matches suffixes", func(t *testing.T) {
		t.Parallel()
		p := MustCompile("/edit", WithoutStartAnchor())
		assert.True(t, p.MatchString("/posts/4/edit"))
	})

	t.Run("custom delimiters", func(t *testing.T) {
		t.Parallel()
		p := MustCompile(":sub.example.com", WithDelimiters("."), WithPrefixes("."))
		params, ok := p.Match("api.example.com")
		require.True(t, ok)
		assert.Equal(t, map[string]string{"sub": "api"}, params)

		_, ok = p.Match("a.b.example.com")
		assert.False(t, ok, "default capture must not cross the delimiter")
	})
}

func TestCompileErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		template string
		sentinel error
		pos      int
	}{
		{"missing parameter name", "/users/:", ErrMissingParamName, 7},
		{"digit cannot start identifier", "/users/:1up", ErrMissingParamName, 7},
		{"empty custom pattern", "/a()", ErrMissingPattern, 2},
		{"pattern starting with question mark", "/a(?:x)", ErrPatternStart, 2},
		{"nested capturing group", "/a((b))", ErrCapturingGroup, 2},
		{"unbalanced pattern", "/a(b", ErrUnbalancedPattern, 2},
		{"duplicate names", "/:x/:x", ErrDuplicateParamName, 3},
		{"modifier without capture", "/a?", ErrUnexpectedToken, 2},
		{"stray close brace", "/a}", ErrUnexpectedToken, 2},
		{"unclosed group", "/a{b", ErrUnexpectedToken, 4},
		{"dangling escape", `/a\`, ErrDanglingEscape, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := Compile(tt.template)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.sentinel)

			var perr *ParseError
			require.ErrorAs(t, err, &perr)
			assert.Equal(t, tt.pos, perr.Pos)
			assert.Equal(t, tt.template, perr.Template)
		})
	}
}

func TestCompileCollectErrors(t *testing.T) {
	t.Parallel()

	_, err := Compile("/:/teams/:", CollectErrors())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMissingParamName)

	var perr *ParseError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, 1, perr.Pos, "first recorded error keeps its position")

	// Both malformed captures surface in one pass.
	assert.Contains(t, err.Error(), "at 1")
	assert.Contains(t, err.Error(), "at 9")
}

func TestCompileRejectsInvalidCustomRegexp(t *testing.T) {
	t.Parallel()

	// Valid template syntax, invalid RE2 inside the custom pattern.
	_, err := Compile(`/a/:id([z-a])`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "compile")
}

func TestMustCompilePanics(t *testing.T) {
	t.Parallel()

	assert.Panics(t, func() {
		MustCompile("/users/:")
	})
	assert.NotPanics(t, func() {
		MustCompile("/users/:id")
	})
}

func TestParseParts(t *testing.T) {
	t.Parallel()

	parts, err := Parse("/users/:id/files/*")
	require.NoError(t, err)
	require.Len(t, parts, 4)

	assert.Equal(t, Part{Kind: PartFixed, Value: "/users"}, parts[0])
	assert.Equal(t, PartCapture, parts[1].Kind)
	assert.Equal(t, "id", parts[1].Name)
	assert.Equal(t, "/", parts[1].Prefix)
	assert.Equal(t, ModifierNone, parts[1].Modifier)
	assert.Equal(t, Part{Kind: PartFixed, Value: "/files/"}, parts[2])
	assert.Equal(t, PartWildcard, parts[3].Kind)
	assert.Equal(t, "0", parts[3].Name)
}

func TestPatternAccessors(t *testing.T) {
	t.Parallel()

	p := MustCompile("/users/:id/posts/:postID")
	assert.Equal(t, "/users/:id/posts/:postID", p.Template())
	assert.Equal(t, "/users/:id/posts/:postID", p.String())
	assert.Equal(t, []string{"id", "postID"}, p.Names())
	assert.NotNil(t, p.Regexp())
	assert.Len(t, p.Parts(), 4)
}

func TestOrdinalNamesSkipExplicit(t *testing.T) {
	t.Parallel()

	p := MustCompile("/(\\d+)/x/(\\w+)/:name")
	assert.Equal(t, []string{"0", "1", "name"}, p.Names())

	params, ok := p.Match("/12/x/ab/zed")
	require.True(t, ok)
	assert.Equal(t, map[string]string{"0": "12", "1": "ab", "name": "zed"}, params)
}
