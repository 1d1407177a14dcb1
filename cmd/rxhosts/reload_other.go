//go:build !unix

package main

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

	"go.uber.org/zap"

	"github.com/x-stp/rxhosts/internal/publish"
)

// watchReload waits for ctx; there is no reload signal on this platform.
func watchReload(ctx context.Context, _ *publish.Refresher, log *zap.Logger) {
	log.Debug("Reload on signal not supported on this platform")
	<-ctx.Done()
}
