/*
Package publish keeps the current host list and refreshes it from the Traefik
configuration on a schedule.

A Refresher owns all writes. Readers call Holder.Get and receive an immutable
Snapshot; they never block the refresh loop.
*/
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
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/zeebo/xxh3"

	"github.com/x-stp/rxhosts/internal/core"
)

// Snapshot is one published host list. It must not be modified after Publish.
type Snapshot struct {
	Hosts       []string
	Format      core.Format
	Generation  uint64 // Incremented each time the list content changes.
	Fingerprint uint64 // xxh3 of the list, see Fingerprint.
	UpdatedAt   time.Time
	RunID       string
}

// ETag returns the strong HTTP entity tag of the list.
func (s *Snapshot) ETag() string {
	return fmt.Sprintf(`"%016x"`, s.Fingerprint)
}

// Fingerprint hashes the ordered list. Lists with the same hosts in the same
// order share a fingerprint.
func Fingerprint(hosts []string) uint64 {
	return xxh3.HashString(strings.Join(hosts, "\n"))
}

// Holder stores the current Snapshot.
type Holder struct {
	mu    sync.Mutex // serializes Publish
	value atomic.Pointer[Snapshot]
	ready atomic.Bool
}

// NewHolder returns a holder serving an empty list until the first Publish.
func NewHolder() *Holder {
	h := &Holder{}
	h.value.Store(&Snapshot{
		Hosts:       []string{},
		Fingerprint: Fingerprint(nil),
	})
	return h
}

// Get returns the current snapshot. It is never nil.
func (h *Holder) Get() *Snapshot {
	return h.value.Load()
}

// Ready reports whether a list has been published at least once.
func (h *Holder) Ready() bool {
	return h.ready.Load()
}

// Publish stores hosts as the current list and reports whether the content
// changed. The generation only moves on change; UpdatedAt and RunID always do.
func (h *Holder) Publish(hosts []string, format core.Format, runID string, at time.Time) (*Snapshot, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if hosts == nil {
		hosts = []string{}
	}
	prev := h.value.Load()
	next := &Snapshot{
		Hosts:       hosts,
		Format:      format,
		Generation:  prev.Generation,
		Fingerprint: Fingerprint(hosts),
		UpdatedAt:   at,
		RunID:       runID,
	}
	changed := !h.ready.Load() || next.Fingerprint != prev.Fingerprint || !equalHosts(hosts, prev.Hosts)
	if changed {
		next.Generation++
	}
	h.value.Store(next)
	h.ready.Store(true)
	return next, changed
}

func equalHosts(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
