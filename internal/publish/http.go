package publish

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
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/x-stp/rxhosts/internal/client"
	"github.com/x-stp/rxhosts/internal/core"
)

// HTTPSource polls a Traefik API endpoint, for example
// http://traefik:8080/api/providers (legacy) or /api/http/routers.
type HTTPSource struct {
	URL string
}

// IsURL reports whether location names an HTTP(S) endpoint rather than a file.
func IsURL(location string) bool {
	return strings.HasPrefix(location, "http://") || strings.HasPrefix(location, "https://")
}

// NewSource returns an HTTPSource for URLs and a FileSource otherwise.
func NewSource(location string) Source {
	if IsURL(location) {
		return HTTPSource{URL: location}
	}
	return FileSource{Path: location}
}

// Read fetches the document. Network failures, 429 and 5xx responses are
// retryable; other statuses are not.
func (s HTTPSource) Read(ctx context.Context) (string, error) {
	body, err := client.FetchJSON(ctx, s.URL)
	if err == nil {
		return string(body), nil
	}
	if ctx.Err() != nil {
		return "", ctx.Err()
	}

	msg := fmt.Sprintf("failed to fetch %s", s.URL)
	var se *client.StatusError
	if errors.As(err, &se) {
		return "", core.WrapError(err, msg, se.Temporary())
	}
	if errors.Is(err, client.ErrBodyTooLarge) {
		return "", core.WrapError(err, msg, false)
	}
	return "", core.WrapError(err, msg, true)
}
