/*
Package document decodes JSON text into a loosely typed tree whose shape is not known
in advance. Traefik's dynamic configuration is keyed by provider and frontend names
that cannot be enumerated, so instead of static structs callers walk a Node tree with
accessors that treat missing or mistyped nodes as empty.

Object members keep the order in which they appear in the source text, which makes
every walk over a document deterministic.
*/
package document

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

// Kind identifies the JSON type held by a Node.
type Kind int

const (
	Null Kind = iota
	Bool
	Number
	String
	Array
	Object
)

// String returns the JSON name of the kind.
func (k Kind) String() string {
	switch k {
	case Null:
		return "null"
	case Bool:
		return "bool"
	case Number:
		return "number"
	case String:
		return "string"
	case Array:
		return "array"
	case Object:
		return "object"
	}
	return "unknown"
}

// Member is a single key/value pair of an object node.
type Member struct {
	Key   string
	Value *Node
}

// Node is one value of a decoded document.
// All accessors are safe to call on a nil *Node and return zero values,
// so chains like doc.Get("a").Get("b").Members() never need nil checks.
type Node struct {
	kind    Kind
	text    string // String value, or the literal of a Number.
	boolean bool
	items   []*Node
	members []Member
	index   map[string]int // key -> position in members
}

// Kind returns the node's JSON type. A nil node reports Null.
func (n *Node) Kind() Kind {
	if n == nil {
		return Null
	}
	return n.kind
}

// IsObject reports whether the node is a JSON object.
func (n *Node) IsObject() bool { return n.Kind() == Object }

// IsArray reports whether the node is a JSON array.
func (n *Node) IsArray() bool { return n.Kind() == Array }

// Get returns the value stored under key, or nil when the node is not an
// object or has no such member.
func (n *Node) Get(key string) *Node {
	if n.Kind() != Object {
		return nil
	}
	i, ok := n.index[key]
	if !ok {
		return nil
	}
	return n.members[i].Value
}

// Has reports whether the node is an object with a member named key.
func (n *Node) Has(key string) bool {
	if n.Kind() != Object {
		return false
	}
	_, ok := n.index[key]
	return ok
}

// Members returns the members of an object node in document order.
func (n *Node) Members() []Member {
	if n.Kind() != Object {
		return nil
	}
	return n.members
}

// Items returns the elements of an array node.
func (n *Node) Items() []*Node {
	if n.Kind() != Array {
		return nil
	}
	return n.items
}

// Children returns the member values of an object or the elements of an array,
// in document order. Scalars have no children.
func (n *Node) Children() []*Node {
	switch n.Kind() {
	case Array:
		return n.items
	case Object:
		out := make([]*Node, len(n.members))
		for i, m := range n.members {
			out[i] = m.Value
		}
		return out
	}
	return nil
}

// Len returns the number of children of an object or array.
func (n *Node) Len() int {
	switch n.Kind() {
	case Array:
		return len(n.items)
	case Object:
		return len(n.members)
	}
	return 0
}

// Str returns the value of a string node. ok is false for any other kind.
func (n *Node) Str() (s string, ok bool) {
	if n.Kind() != String {
		return "", false
	}
	return n.text, true
}

// Bool returns the value of a boolean node.
func (n *Node) Bool() (b bool, ok bool) {
	if n.Kind() != Bool {
		return false, false
	}
	return n.boolean, true
}

// NumberText returns the literal text of a number node.
func (n *Node) NumberText() (s string, ok bool) {
	if n.Kind() != Number {
		return "", false
	}
	return n.text, true
}

// set stores a member, replacing the value of an existing key in place.
func (n *Node) set(key string, v *Node) {
	if i, ok := n.index[key]; ok {
		n.members[i].Value = v
		return
	}
	n.index[key] = len(n.members)
	n.members = append(n.members, Member{Key: key, Value: v})
}
