/*
Package rules tokenizes Traefik routing rules and returns the hostnames named by
their Host clauses.

Two unrelated grammars are supported:
  - the legacy frontend grammar, clauses joined by ';' with the form "Host:a,b";
  - the router grammar, boolean expressions of matcher calls such as
    "Host(`a`) && PathPrefix(`/`)".

Both tokenizers share the Tokenizer signature. Neither validates the names it returns.
*/
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

// Clause holds the candidate hostnames of a single Host clause, in rule order.
type Clause []string

// Tokenizer extracts every Host clause of one rule.
// A rule without Host clauses yields nil.
type Tokenizer func(rule string) []Clause
