package core

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
	"regexp"
	"strings"
)

// BlacklistSeparator separates the entries of blacklist text.
const BlacklistSeparator = ","

// Blacklist is the parsed form of an operator's exclusion list.
//
// An entry excludes a host when the host equals the entry, or when the entry read
// as an unanchored regular expression matches the host ("black.ist" excludes
// "blacklisted"). Entries that do not compile only match by equality. Matching is
// case sensitive. A Blacklist is immutable after parsing.
type Blacklist struct {
	exact    map[string]struct{}
	patterns []*regexp.Regexp
	entries  []string
}

// ParseBlacklist splits text on ','. Empty text and empty entries exclude nothing.
// Entries are not trimmed.
func ParseBlacklist(text string) *Blacklist {
	bl := &Blacklist{exact: make(map[string]struct{})}
	if text == "" {
		return bl
	}
	for _, entry := range strings.Split(text, BlacklistSeparator) {
		if entry == "" {
			continue
		}
		if _, dup := bl.exact[entry]; dup {
			continue
		}
		bl.exact[entry] = struct{}{}
		bl.entries = append(bl.entries, entry)
		if re, err := regexp.Compile(entry); err == nil {
			bl.patterns = append(bl.patterns, re)
		}
	}
	return bl
}

// Contains reports whether host is excluded. A nil Blacklist excludes nothing.
func (b *Blacklist) Contains(host string) bool {
	if b == nil {
		return false
	}
	if _, ok := b.exact[host]; ok {
		return true
	}
	for _, re := range b.patterns {
		if re.MatchString(host) {
			return true
		}
	}
	return false
}

// Len returns the number of distinct entries.
func (b *Blacklist) Len() int {
	if b == nil {
		return 0
	}
	return len(b.entries)
}

// Entries returns the distinct entries in the order they were given.
func (b *Blacklist) Entries() []string {
	if b == nil {
		return nil
	}
	out := make([]string, len(b.entries))
	copy(out, b.entries)
	return out
}

// FilterStats counts what Filter removed.
type FilterStats struct {
	Blacklisted int
	Duplicates  int
}

// Filter returns hosts without blacklisted entries and without repeats, keeping the
// first occurrence of each host in input order. The result is never nil.
func (b *Blacklist) Filter(hosts []string) ([]string, FilterStats) {
	var stats FilterStats
	out := make([]string, 0, len(hosts))
	seen := make(map[string]struct{}, len(hosts))
	for _, h := range hosts {
		if _, ok := seen[h]; ok {
			stats.Duplicates++
			continue
		}
		seen[h] = struct{}{}
		if b.Contains(h) {
			stats.Blacklisted++
			continue
		}
		out = append(out, h)
	}
	return out, stats
}
