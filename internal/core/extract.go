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
	"github.com/x-stp/rxhosts/internal/document"
	"github.com/x-stp/rxhosts/internal/hostname"
)

// Options tunes extraction beyond the document format.
type Options struct {
	// EnabledOnly skips routers whose status is present and not "enabled".
	// It has no effect on legacy documents.
	EnabledOnly bool
}

// Result is the outcome of one extraction.
type Result struct {
	// Hosts is the ordered, unique, non blacklisted list of valid hostnames.
	// Never nil.
	Hosts []string
	// Format is the format actually used, after detection.
	Format Format

	Rules       int // Rule strings visited.
	Candidates  int // Names found in Host clauses.
	Invalid     int // Names dropped with a clause that failed validation.
	Blacklisted int // Valid names dropped by the blacklist.
	Duplicates  int // Valid names dropped as repeats.
}

// ExtractHostsAndApplyBlacklist extracts the hostnames of a legacy frontend
// configuration and applies the comma separated blacklist.
// Only malformed JSON fails; the error is a *ParseError.
func ExtractHostsAndApplyBlacklist(configurationText, blacklistText string) ([]string, error) {
	res, err := Extract(configurationText, FormatLegacy, ParseBlacklist(blacklistText), Options{})
	if err != nil {
		return nil, err
	}
	return res.Hosts, nil
}

// ExtractHostsAndApplyBlacklistFromTraefik2 is ExtractHostsAndApplyBlacklist for a
// router list. Router status is not filtered.
func ExtractHostsAndApplyBlacklistFromTraefik2(configurationText, blacklistText string) ([]string, error) {
	res, err := Extract(configurationText, FormatRouters, ParseBlacklist(blacklistText), Options{})
	if err != nil {
		return nil, err
	}
	return res.Hosts, nil
}

// Extract parses configurationText and runs the full pipeline:
// walk -> tokenize -> validate clauses -> blacklist and dedup.
//
// A Host clause is validated as a unit: when any of its names is invalid the whole
// clause is dropped, so "Host:test_host,valid-host" yields nothing.
//
// Only text that is not valid JSON fails. Nesting is accepted up to
// document.MaxDepth, the same limit encoding/json applies.
//
// Operation: Pure and synchronous. Allocates the document tree and result slices.
func Extract(configurationText string, format Format, blacklist *Blacklist, opts Options) (*Result, error) {
	doc, err := document.ParseString(configurationText)
	if err != nil {
		return nil, &ParseError{Err: err}
	}
	return ExtractDocument(doc, format, blacklist, opts), nil
}

// ExtractDocument is Extract for an already parsed document.
func ExtractDocument(doc *document.Node, format Format, blacklist *Blacklist, opts Options) *Result {
	if format == FormatAuto {
		format = DetectFormat(doc)
	}
	res := &Result{Format: format}

	var valid []string
	walk, tokenize := walkerFor(format)
	if walk != nil {
		walk(doc, opts, func(rule string) {
			res.Rules++
			for _, clause := range tokenize(rule) {
				res.Candidates += len(clause)
				if !hostname.AllValid(clause) {
					res.Invalid += len(clause)
					continue
				}
				valid = append(valid, clause...)
			}
		})
	}

	hosts, stats := blacklist.Filter(valid)
	res.Hosts = hosts
	res.Blacklisted = stats.Blacklisted
	res.Duplicates = stats.Duplicates
	return res
}
