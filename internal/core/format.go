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
	"fmt"
	"strings"

	"github.com/x-stp/rxhosts/internal/document"
)

// Format selects the document shape and rule grammar used for extraction.
type Format int

const (
	// FormatAuto picks FormatLegacy or FormatRouters from the document's shape.
	FormatAuto Format = iota
	// FormatLegacy is the provider -> frontends -> routes document with "Host:a,b" rules.
	FormatLegacy
	// FormatRouters is the router list with "Host(`a`)" rule expressions.
	FormatRouters
	// FormatUnknown is reported by DetectFormat for documents of neither shape.
	FormatUnknown
)

// String returns the name accepted by ParseFormat.
func (f Format) String() string {
	switch f {
	case FormatAuto:
		return "auto"
	case FormatLegacy:
		return "legacy"
	case FormatRouters:
		return "routers"
	}
	return "unknown"
}

// ParseFormat maps a configuration or flag value to a Format.
// "v1"/"frontends" and "v2"/"traefik2" are accepted as aliases.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "auto":
		return FormatAuto, nil
	case "legacy", "v1", "frontends":
		return FormatLegacy, nil
	case "routers", "v2", "traefik2":
		return FormatRouters, nil
	}
	return FormatUnknown, fmt.Errorf("unknown configuration format %q (want auto, legacy or routers)", s)
}

// DetectFormat inspects the top of a document:
//   - a list is a router list;
//   - an object with a member holding a "frontends" key is a legacy document;
//   - an object with a "routers" object is a raw data dump of routers.
//
// Anything else is FormatUnknown.
func DetectFormat(doc *document.Node) Format {
	switch doc.Kind() {
	case document.Array:
		return FormatRouters
	case document.Object:
		for _, m := range doc.Members() {
			if m.Value.Has(legacyFrontendsKey) {
				return FormatLegacy
			}
		}
		if doc.Get(rawDataRoutersKey).IsObject() {
			return FormatRouters
		}
	}
	return FormatUnknown
}
