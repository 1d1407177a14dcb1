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
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/x-stp/rxhosts/internal/core"
)

// Source yields the Traefik configuration text.
type Source interface {
	Read(ctx context.Context) (string, error)
}

// FileSource reads the configuration from a local file on every call.
type FileSource struct {
	Path string
}

// Read returns the file contents. Failures are retryable: the file may be
// mid-rewrite by whatever dumps the Traefik API.
func (s FileSource) Read(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	data, err := os.ReadFile(s.Path)
	if err != nil {
		return "", core.WrapError(err, fmt.Sprintf("failed to read %q", s.Path), true)
	}
	return string(data), nil
}

// Sink receives every changed snapshot.
type Sink interface {
	Name() string
	Write(ctx context.Context, snap *Snapshot) error
}

// FileSink mirrors the list into a file, one host per line, or in hosts(5)
// format when HostsAddress is set.
type FileSink struct {
	Path         string
	HostsAddress string
}

func (s *FileSink) Name() string { return "file" }

func (s *FileSink) Write(ctx context.Context, snap *Snapshot) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := WriteFileAtomic(s.Path, Render(snap.Hosts, s.HostsAddress), 0o644); err != nil {
		return core.WrapError(err, "file sink", true)
	}
	return nil
}

// Render formats hosts one per line. With a non-empty address each line is
// "<address> <host>". An empty list renders as an empty body.
func Render(hosts []string, address string) []byte {
	var b strings.Builder
	for _, h := range hosts {
		if address != "" {
			b.WriteString(address)
			b.WriteByte(' ')
		}
		b.WriteString(h)
		b.WriteByte('\n')
	}
	return []byte(b.String())
}

// WriteFileAtomic replaces path with data through a temporary file in the same
// directory, so readers see either the old or the new content.
func WriteFileAtomic(path string, data []byte, perm os.FileMode) (err error) {
	dir, base := filepath.Split(path)
	if dir == "" {
		dir = "."
	}
	tmp, err := os.CreateTemp(dir, "."+base+".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer func() {
		if err != nil {
			_ = os.Remove(tmpName)
		}
	}()

	if _, err = tmp.Write(data); err != nil {
		_ = tmp.Close()
		return err
	}
	if err = tmp.Sync(); err != nil {
		_ = tmp.Close()
		return err
	}
	if err = tmp.Close(); err != nil {
		return err
	}
	if err = os.Chmod(tmpName, perm); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}
