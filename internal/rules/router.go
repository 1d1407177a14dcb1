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

import "strings"

// RouterHostMatcher is the call token of the router grammar's host matcher.
const RouterHostMatcher = "Host("

// ParseRouterRule returns one Clause per Host(...) call found in a router rule,
// e.g. "Host(`a`) || Host(`b`,`c`) && PathPrefix(`/`)".
// Arguments are split on ',' and stripped of whitespace and their backtick or
// double quote delimiters. Text inside quoted arguments of other matchers is
// never scanned, and calls of matchers whose name merely ends in "Host" are
// skipped. An unterminated call ends the scan.
func ParseRouterRule(rule string) []Clause {
	var clauses []Clause
	var quote byte
	for i := 0; i < len(rule); i++ {
		c := rule[i]
		if quote != 0 {
			if c == quote {
				quote = 0
			}
			continue
		}
		if isQuote(c) {
			quote = c
			continue
		}
		if !strings.HasPrefix(rule[i:], RouterHostMatcher) || (i > 0 && isIdentByte(rule[i-1])) {
			continue
		}

		open := i + len(RouterHostMatcher)
		end := closingParen(rule, open)
		if end < 0 {
			break
		}
		args := splitArgs(rule[open:end])
		clause := make(Clause, 0, len(args))
		for _, a := range args {
			clause = append(clause, unquote(a))
		}
		clauses = append(clauses, clause)
		i = end
	}
	return clauses
}

// closingParen returns the index of the first ')' at or after from that is not
// inside a quoted argument, or -1.
func closingParen(rule string, from int) int {
	var quote byte
	for i := from; i < len(rule); i++ {
		c := rule[i]
		switch {
		case quote != 0:
			if c == quote {
				quote = 0
			}
		case isQuote(c):
			quote = c
		case c == ')':
			return i
		}
	}
	return -1
}

// splitArgs splits on ',' outside quoted arguments.
func splitArgs(s string) []string {
	var args []string
	var quote byte
	start := 0
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case quote != 0:
			if c == quote {
				quote = 0
			}
		case isQuote(c):
			quote = c
		case c == ',':
			args = append(args, s[start:i])
			start = i + 1
		}
	}
	return append(args, s[start:])
}

func isQuote(c byte) bool { return c == '`' || c == '"' }

func unquote(arg string) string {
	return strings.Trim(strings.TrimSpace(arg), "`\"")
}

func isIdentByte(c byte) bool {
	return 'a' <= c && c <= 'z' ||
		'A' <= c && c <= 'Z' ||
		'0' <= c && c <= '9' ||
		c == '_'
}
