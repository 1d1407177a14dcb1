/*
Package hostname checks candidate strings against the RFC 1123 hostname grammar.
Validation never rewrites its input: case, dots and everything else are reported
on exactly as given.
*/
package hostname

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
	"errors"
	"fmt"
)

const (
	// MaxLength is the longest hostname accepted, in bytes.
	MaxLength = 253
	// MaxLabelLength is the longest single label accepted, in bytes.
	MaxLabelLength = 63
)

var (
	ErrEmpty         = errors.New("hostname is empty")
	ErrTooLong       = errors.New("hostname exceeds 253 characters")
	ErrEmptyLabel    = errors.New("hostname has an empty label")
	ErrLabelTooLong  = errors.New("label exceeds 63 characters")
	ErrLabelHyphen   = errors.New("label starts or ends with a hyphen")
	ErrInvalidSymbol = errors.New("invalid character")
)

// Check validates name and describes the first rule it breaks.
// Wildcard labels ("*.example.com") and underscores fail with ErrInvalidSymbol.
// Hot Path: Yes. Single pass over the bytes, no allocation on success.
func Check(name string) error {
	if name == "" {
		return ErrEmpty
	}
	if len(name) > MaxLength {
		return ErrTooLong
	}

	labelStart := 0
	for i := 0; i <= len(name); i++ {
		if i < len(name) && name[i] != '.' {
			c := name[i]
			if !isLabelByte(c) {
				return fmt.Errorf("%w %q at offset %d", ErrInvalidSymbol, c, i)
			}
			continue
		}

		// End of a label: either a dot or the end of the name.
		label := name[labelStart:i]
		switch {
		case len(label) == 0:
			return ErrEmptyLabel
		case len(label) > MaxLabelLength:
			return fmt.Errorf("%w: %q", ErrLabelTooLong, label)
		case label[0] == '-' || label[len(label)-1] == '-':
			return fmt.Errorf("%w: %q", ErrLabelHyphen, label)
		}
		labelStart = i + 1
	}
	return nil
}

// AllValid reports whether every name is valid. An empty list is not valid.
func AllValid(names []string) bool {
	if len(names) == 0 {
		return false
	}
	for _, n := range names {
		if Check(n) != nil {
			return false
		}
	}
	return true
}

func isLabelByte(c byte) bool {
	return 'a' <= c && c <= 'z' ||
		'A' <= c && c <= 'Z' ||
		'0' <= c && c <= '9' ||
		c == '-'
}
