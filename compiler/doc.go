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

// Package compiler turns route templates into matching automata.
//
// A template mixes literal text with named captures, wildcards, custom
// patterns, groups and modifiers:
//
//	/users/:id                 one path segment, captured as "id"
//	/users/:id(\d+)            same, constrained to digits
//	/files/*                   greedy catch-all, captured as "0"
//	/posts/:slug?              optional segment
//	/tags/:tag+                one or more segments, slash-separated
//	/releases{-v:major}?       group: "-v" repeats with the capture
//
// # Compilation
//
// Compilation happens in three passes:
//
//  1. The lexer splits the template into characters, escapes, names,
//     custom patterns, group delimiters and modifiers.
//  2. The parser folds tokens into Parts, binding single prefix
//     characters (default "./") and group prefix/suffix text to their
//     captures, assigning ordinal names to unnamed captures, and
//     rejecting duplicate names.
//  3. Emission renders one regular expression with positional groups and
//     an ordered capture-name list.
//
// Malformed templates fail with a *ParseError carrying the byte offset;
// the CollectErrors option gathers every error across the template into
// one joined error instead of stopping at the first.
//
// # Matching
//
// Pattern.Match runs the automaton and maps captured substrings to their
// names. Matching is case-insensitive unless CaseSensitive is set, and
// end-anchored patterns tolerate one trailing delimiter unless Strict is
// set. Custom patterns use RE2 syntax: capturing groups and lookaround
// are rejected at compile time.
//
// # Thread safety
//
// Compiled Patterns are immutable and safe for concurrent use. Parsing
// and compilation are pure functions.
package compiler
