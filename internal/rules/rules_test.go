package rules

/*
rxhosts — fast tool in Go for publishing the hostnames routed by Traefik
Copyright (C) 2025  Pepijn van der Stap <rxtls@vanderstap.info>

This program is free software: you can redistribute it and/or modify
it under the terms of the GNU Affero General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

This program is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU Affero General Public License for more details.

You should have received a copy of the GNU Affero General Public License
along with this program.  If not, see <https://www.gnu.org/licenses/>.
*/

import (
	"reflect"
	"testing"
)

func TestParseLegacyRule(t *testing.T) {
	t.Parallel()
	testCases := []struct {
		name     string
		rule     string
		expected []Clause
	}{
		{"Single host", "Host:testhost", []Clause{{"testhost"}}},
		{"Multiple hosts", "Host:testhost,testhost2", []Clause{{"testhost", "testhost2"}}},
		{"After path clause", "PathPrefix:/;Host:a", []Clause{{"a"}}},
		{"Before path clause", "Host:a,b;PathPrefix:/api", []Clause{{"a", "b"}}},
		{"Two host clauses", "Host:a;Host:b", []Clause{{"a"}, {"b"}}},
		{"No host clause", "path", nil},
		{"Empty rule", "", nil},
		{"Lowercase prefix ignored", "host:a", nil},
		{"HostRegexp ignored", "HostRegexp:{sub:[a-z]+}.example.com", nil},
		{"Whitespace kept", "Host: a", []Clause{{" a"}}},
		{"Empty host list", "Host:", []Clause{{""}}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			actual := ParseLegacyRule(tc.rule)
			if !reflect.DeepEqual(actual, tc.expected) {
				t.Errorf("ParseLegacyRule(%q) = %q; want %q", tc.rule, actual, tc.expected)
			}
		})
	}
}

func TestParseRouterRule(t *testing.T) {
	t.Parallel()
	testCases := []struct {
		name     string
		rule     string
		expected []Clause
	}{
		{"Single host", "Host(`Testhost`)", []Clause{{"Testhost"}}},
		{"With path", "Host(`testhost.localhost`) && PathPrefix(`/`)", []Clause{{"testhost.localhost"}}},
		{"Path first", "PathPrefix(`/`) && Host(`a`)", []Clause{{"a"}}},
		{"Multiple arguments", "Host(`a`,`b`)", []Clause{{"a", "b"}}},
		{"Arguments with spaces", "Host(`a`, `b`)", []Clause{{"a", "b"}}},
		{"Or of hosts", "Host(`a`) || Host(`b`)", []Clause{{"a"}, {"b"}}},
		{"Double quotes", `Host("a.example.com")`, []Clause{{"a.example.com"}}},
		{"Wildcard kept for validator", "Host(`*.novalidhost.localhost`)", []Clause{{"*.novalidhost.localhost"}}},
		{"Parenthesised", "(Host(`a`) || Host(`b`)) && Method(`GET`)", []Clause{{"a"}, {"b"}}},
		{"HostRegexp skipped", "HostRegexp(`{sub:[a-z]+}.example.com`)", nil},
		{"HostSNI skipped", "HostSNI(`*`)", nil},
		{"Suffix matcher skipped", "XHost(`a`) && Host(`b`)", []Clause{{"b"}}},
		{"No host", "PathPrefix(`/`)", nil},
		{"Empty rule", "", nil},
		{"Unterminated", "Host(`a`) && Host(`b`", []Clause{{"a"}}},
		{"Host inside quoted path", "PathPrefix(`/Host(x)`)", nil},
		{"Host inside quoted path then real host", "Path(`/Host(x)`) && Host(`y`)", []Clause{{"y"}}},
		{"Host inside double quoted header", `Headers("X-Fwd", "Host(x)") || Host("y")`, []Clause{{"y"}}},
		{"Comma inside quotes", "Host(`a,b`)", []Clause{{"a,b"}}},
		{"Parenthesis inside quotes", "Host(`a)b`) && Host(`c`)", []Clause{{"a)b"}, {"c"}}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			actual := ParseRouterRule(tc.rule)
			if !reflect.DeepEqual(actual, tc.expected) {
				t.Errorf("ParseRouterRule(%q) = %q; want %q", tc.rule, actual, tc.expected)
			}
		})
	}
}

func TestTokenizersShareSignature(t *testing.T) {
	t.Parallel()
	for _, tok := range []Tokenizer{ParseLegacyRule, ParseRouterRule} {
		if got := tok("nothing here"); got != nil {
			t.Errorf("tokenizer returned %q for a rule without host clauses", got)
		}
	}
}

// The router grammar accepted here is looser than Traefik's own v3 rule
// parser: names keep their case, matchers it does not know are ignored rather
// than rejected, and Host takes several arguments.
func TestParseRouterRuleLenientGrammar(t *testing.T) {
	t.Parallel()
	if got := ParseRouterRule("Host(`Testhost`)"); !reflect.DeepEqual(got, []Clause{{"Testhost"}}) {
		t.Errorf("case not preserved: %q", got)
	}
	if got := ParseRouterRule("NotAMatcher(`x`) && Frobnicate(`y`)"); got != nil {
		t.Errorf("unknown matchers yielded %q; want no clauses", got)
	}
	if got := ParseRouterRule("NotAMatcher(`x`) || Host(`a`)"); !reflect.DeepEqual(got, []Clause{{"a"}}) {
		t.Errorf("unknown matcher next to Host = %q; want [[a]]", got)
	}
	if got := ParseRouterRule("Host(`a`,`b`,`c`)"); !reflect.DeepEqual(got, []Clause{{"a", "b", "c"}}) {
		t.Errorf("multi-argument Host = %q; want one clause of three names", got)
	}
}

func BenchmarkParseRouterRule(b *testing.B) {
	rule := "Host(`a.example.com`,`b.example.com`) && PathPrefix(`/api`) || Host(`c.example.com`)"
	for i := 0; i < b.N; i++ {
		_ = ParseRouterRule(rule)
	}
}
