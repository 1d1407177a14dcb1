/*
Package config loads the YAML configuration of the rxhosts service.
Values missing from the file keep their defaults; command-line flags are applied by
the caller after Load and before Validate.
*/
package config

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
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"strings"
	"time"

	"github.com/x-stp/rxhosts/internal/core"
	"github.com/x-stp/rxhosts/internal/logging"

	"gopkg.in/yaml.v3"
)

// Duration is a time.Duration written as "30s" or "5m" in YAML.
type Duration time.Duration

// UnmarshalYAML parses a Go duration string. Plain integers are seconds.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: duration must be a scalar", value.Line)
	}
	var secs int64
	if err := value.Decode(&secs); err == nil {
		*d = Duration(time.Duration(secs) * time.Second)
		return nil
	}
	parsed, err := time.ParseDuration(value.Value)
	if err != nil {
		return fmt.Errorf("line %d: invalid duration %q: %w", value.Line, value.Value, err)
	}
	*d = Duration(parsed)
	return nil
}

// MarshalYAML writes the duration in Go notation.
func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

// Std returns the value as a time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// SourceConfig locates the Traefik configuration document.
type SourceConfig struct {
	// Path of the JSON document, an http(s) URL of the Traefik API, or "-" for
	// stdin (one-shot extraction only).
	Path string `yaml:"path"`
	// Format is auto, legacy or routers.
	Format string `yaml:"format"`
	// EnabledOnly drops routers whose status is not "enabled".
	EnabledOnly bool `yaml:"enabledOnly"`
}

// BlacklistConfig combines an inline list with an optional file.
type BlacklistConfig struct {
	// Hosts is comma separated blacklist text.
	Hosts string `yaml:"hosts"`
	// File holds entries separated by commas or newlines; '#' starts a comment line.
	File string `yaml:"file"`
}

// RefreshConfig schedules periodic recomputation.
type RefreshConfig struct {
	Interval       Duration `yaml:"interval"`
	MinInterval    Duration `yaml:"minInterval"` // floor between manual reloads
	InitialBackoff Duration `yaml:"initialBackoff"`
	MaxBackoff     Duration `yaml:"maxBackoff"`
	Timeout        Duration `yaml:"timeout"`
}

// ServerConfig configures the HTTP endpoint publishing the list.
type ServerConfig struct {
	Addr string `yaml:"addr"`
}

// MetricsConfig configures Prometheus exposition. An empty Addr mounts /metrics on
// the main server.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
}

// OutputConfig optionally mirrors every published list into a file.
type OutputConfig struct {
	Path string `yaml:"path"`
	// HostsAddress switches the file to hosts(5) format "<address> <host>".
	HostsAddress string `yaml:"hostsAddress"`
}

// Config is the root of the YAML document.
type Config struct {
	Source    SourceConfig    `yaml:"source"`
	Blacklist BlacklistConfig `yaml:"blacklist"`
	Refresh   RefreshConfig   `yaml:"refresh"`
	Server    ServerConfig    `yaml:"server"`
	Metrics   MetricsConfig   `yaml:"metrics"`
	Output    OutputConfig    `yaml:"output"`
	Log       logging.Config  `yaml:"log"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Source: SourceConfig{Format: "auto"},
		Refresh: RefreshConfig{
			Interval:       Duration(time.Minute),
			MinInterval:    Duration(5 * time.Second),
			InitialBackoff: Duration(5 * time.Second),
			MaxBackoff:     Duration(5 * time.Minute),
			Timeout:        Duration(30 * time.Second),
		},
		Server:  ServerConfig{Addr: ":8080"},
		Metrics: MetricsConfig{Enabled: true},
		Log:     logging.DefaultConfig(),
	}
}

// Load reads path over the defaults. An empty path returns the defaults.
// The result is not validated.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %q: %w", path, err)
	}
	if err := Parse(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %q: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes YAML into cfg. Unknown keys are rejected.
func Parse(data []byte, cfg *Config) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// Validate checks the settings needed by the long-running service.
func (c *Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.Source.Path) == "" {
		errs = append(errs, errors.New("source.path must not be empty"))
	} else if c.Source.Path == "-" {
		errs = append(errs, errors.New("source.path cannot be stdin for the service"))
	}
	if _, err := core.ParseFormat(c.Source.Format); err != nil {
		errs = append(errs, err)
	}
	if c.Refresh.Interval <= 0 {
		errs = append(errs, fmt.Errorf("refresh.interval must be positive, got %s", c.Refresh.Interval.Std()))
	}
	if c.Refresh.MinInterval < 0 {
		errs = append(errs, fmt.Errorf("refresh.minInterval must not be negative, got %s", c.Refresh.MinInterval.Std()))
	}
	if c.Refresh.InitialBackoff <= 0 || c.Refresh.MaxBackoff < c.Refresh.InitialBackoff {
		errs = append(errs, fmt.Errorf("refresh backoff must satisfy 0 < initialBackoff (%s) <= maxBackoff (%s)",
			c.Refresh.InitialBackoff.Std(), c.Refresh.MaxBackoff.Std()))
	}
	if c.Refresh.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("refresh.timeout must be positive, got %s", c.Refresh.Timeout.Std()))
	}
	if c.Server.Addr == "" {
		errs = append(errs, errors.New("server.addr must not be empty"))
	}
	if c.Output.HostsAddress != "" && net.ParseIP(c.Output.HostsAddress) == nil {
		errs = append(errs, fmt.Errorf("output.hostsAddress %q is not an IP address", c.Output.HostsAddress))
	}
	if err := c.Log.Validate(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// Format returns the parsed source format.
func (c *Config) Format() core.Format {
	f, err := core.ParseFormat(c.Source.Format)
	if err != nil {
		return core.FormatAuto
	}
	return f
}

// Options returns the extraction options of the source section.
func (c *Config) Options() core.Options {
	return core.Options{EnabledOnly: c.Source.EnabledOnly}
}

// BlacklistText merges the inline list and the blacklist file into comma separated
// text. The file is read on every call so edits apply on the next refresh.
func (c *Config) BlacklistText() (string, error) {
	return ReadBlacklist(c.Blacklist.Hosts, c.Blacklist.File)
}

// ReadBlacklist joins inline text with the entries of file (may be empty).
// Each file line is trimmed; blank lines and lines starting with '#' are skipped.
func ReadBlacklist(inline, file string) (string, error) {
	parts := make([]string, 0, 2)
	if inline != "" {
		parts = append(parts, inline)
	}
	if file == "" {
		return strings.Join(parts, core.BlacklistSeparator), nil
	}

	f, err := os.Open(file)
	if err != nil {
		return "", fmt.Errorf("failed to open blacklist file %q: %w", file, err)
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		parts = append(parts, line)
	}
	if err := sc.Err(); err != nil {
		return "", fmt.Errorf("failed reading blacklist file %q: %w", file, err)
	}
	return strings.Join(parts, core.BlacklistSeparator), nil
}
