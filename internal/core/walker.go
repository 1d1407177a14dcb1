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
	"github.com/x-stp/rxhosts/internal/rules"
)

const (
	legacyFrontendsKey = "frontends"
	legacyRoutesKey    = "routes"
	ruleKey            = "rule"
	statusKey          = "status"
	rawDataRoutersKey  = "routers"

	// StatusEnabled is the router status kept by Options.EnabledOnly.
	StatusEnabled = "enabled"
)

// ruleVisitor receives each rule string found by a walker, in document order.
type ruleVisitor func(rule string)

// walkLegacy visits provider -> frontends -> frontend -> routes -> route -> rule.
// Provider names are not interpreted. Any level that is missing or of the wrong
// type contributes nothing.
func walkLegacy(doc *document.Node, visit ruleVisitor) {
	for _, provider := range doc.Children() {
		for _, frontend := range provider.Get(legacyFrontendsKey).Children() {
			for _, route := range frontend.Get(legacyRoutesKey).Children() {
				if rule, ok := route.Get(ruleKey).Str(); ok {
					visit(rule)
				}
			}
		}
	}
}

// walkRouters visits the rule of every router record. The document is either the
// router list itself or a raw data object whose "routers" member maps names to
// routers. Records without a non-empty string rule are skipped.
func walkRouters(doc *document.Node, opts Options, visit ruleVisitor) {
	routers := doc.Items()
	if doc.IsObject() {
		routers = doc.Get(rawDataRoutersKey).Children()
	}
	for _, router := range routers {
		if opts.EnabledOnly && !routerEnabled(router) {
			continue
		}
		rule, ok := router.Get(ruleKey).Str()
		if !ok || rule == "" {
			continue
		}
		visit(rule)
	}
}

// routerEnabled treats a router without a status as enabled.
func routerEnabled(router *document.Node) bool {
	status, ok := router.Get(statusKey).Str()
	return !ok || status == StatusEnabled
}

// walkerFor returns the walker and tokenizer for a concrete format.
func walkerFor(f Format) (func(*document.Node, Options, ruleVisitor), rules.Tokenizer) {
	switch f {
	case FormatLegacy:
		return func(doc *document.Node, _ Options, visit ruleVisitor) { walkLegacy(doc, visit) }, rules.ParseLegacyRule
	case FormatRouters:
		return walkRouters, rules.ParseRouterRule
	}
	return nil, nil
}
