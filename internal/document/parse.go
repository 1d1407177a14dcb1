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

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// MaxDepth bounds the nesting of arrays and objects accepted by Parse. It is
// the limit encoding/json enforces on Unmarshal, so every document the standard
// decoder accepts parses here too.
const MaxDepth = 10000

var (
	// ErrEmpty is returned for input holding no JSON value at all.
	ErrEmpty = errors.New("empty document")
	// ErrTrailingData is returned when more than one top-level value is present.
	ErrTrailingData = errors.New("unexpected data after top-level value")
	// ErrTooDeep is returned when nesting exceeds MaxDepth.
	ErrTooDeep = errors.New("document nested too deeply")
)

// Parse decodes a single JSON value into a Node tree.
// Operation: Allocates one Node per value. Uses the streaming token API so that
// object member order from the source is preserved.
func Parse(data []byte) (*Node, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	root, err := parseValue(dec, 0)
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, ErrEmpty
		}
		return nil, err
	}

	// A JSON text is exactly one value.
	if _, err := dec.Token(); err != io.EOF {
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrTrailingData, err)
		}
		return nil, ErrTrailingData
	}
	return root, nil
}

// ParseString is Parse for text input.
func ParseString(text string) (*Node, error) {
	return Parse([]byte(text))
}

func parseValue(dec *json.Decoder, depth int) (*Node, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}

	switch t := tok.(type) {
	case json.Delim:
		if depth >= MaxDepth {
			return nil, ErrTooDeep
		}
		switch t {
		case '{':
			return parseObject(dec, depth+1)
		case '[':
			return parseArray(dec, depth+1)
		}
		return nil, fmt.Errorf("unexpected delimiter %q", t)
	case string:
		return &Node{kind: String, text: t}, nil
	case json.Number:
		return &Node{kind: Number, text: t.String()}, nil
	case bool:
		return &Node{kind: Bool, boolean: t}, nil
	case nil:
		return &Node{kind: Null}, nil
	}
	return nil, fmt.Errorf("unexpected token %v", tok)
}

func parseObject(dec *json.Decoder, depth int) (*Node, error) {
	n := &Node{kind: Object, index: make(map[string]int)}
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, unexpectedEOF(err)
		}
		key, ok := keyTok.(string)
		if !ok {
			return nil, fmt.Errorf("object key is %T, not string", keyTok)
		}
		v, err := parseValue(dec, depth)
		if err != nil {
			return nil, unexpectedEOF(err)
		}
		n.set(key, v)
	}
	// Closing '}'.
	if _, err := dec.Token(); err != nil {
		return nil, unexpectedEOF(err)
	}
	return n, nil
}

func parseArray(dec *json.Decoder, depth int) (*Node, error) {
	n := &Node{kind: Array}
	for dec.More() {
		v, err := parseValue(dec, depth)
		if err != nil {
			return nil, unexpectedEOF(err)
		}
		n.items = append(n.items, v)
	}
	// Closing ']'.
	if _, err := dec.Token(); err != nil {
		return nil, unexpectedEOF(err)
	}
	return n, nil
}

// unexpectedEOF turns an EOF inside a container into a syntax failure so that
// truncated input is never confused with empty input.
func unexpectedEOF(err error) error {
	if errors.Is(err, io.EOF) {
		return io.ErrUnexpectedEOF
	}
	return err
}
