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

const (
	// LegacyClauseSeparator joins the clauses of a frontend rule.
	LegacyClauseSeparator = ";"
	// LegacyHostPrefix starts a host clause. Matching is case sensitive.
	LegacyHostPrefix = "Host:"
	// LegacyHostSeparator separates hostnames within a host clause.
	LegacyHostSeparator = ","
)

// ParseLegacyRule returns the Host clauses of a frontend rule such as
// "PathPrefix:/;Host:a,b". Names are split on ',' and returned untrimmed.
func ParseLegacyRule(rule string) []Clause {
	if rule == "" {
		return nil
	}
	var clauses []Clause
	for _, part := range strings.Split(rule, LegacyClauseSeparator) {
		hosts, ok := strings.CutPrefix(part, LegacyHostPrefix)
		if !ok {
			continue
		}
		clauses = append(clauses, Clause(strings.Split(hosts, LegacyHostSeparator)))
	}
	return clauses
}
